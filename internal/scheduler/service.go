package scheduler

import (
	"context"

	"github.com/kmaassrock/nba-injury-alert/internal/config"
	"github.com/kmaassrock/nba-injury-alert/internal/pipeline"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Service runs pipeline cycles on a cron schedule instead of the continuous
// poll loop. Useful when the report publishes at known times.
type Service struct {
	config   *config.Config
	pipeline *pipeline.Service
	cron     *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, p *pipeline.Service) *Service {
	return &Service{
		config:   cfg,
		pipeline: p,
		cron:     cron.New(),
	}
}

// Start registers the configured schedule and begins running cycles.
func (s *Service) Start() error {
	expression := s.config.CronSchedule
	if expression == "" {
		// Injury reports publish on the half hour; check shortly after.
		expression = "35 * * * *"
	}

	_, err := s.cron.AddFunc(expression, func() {
		logrus.Info("Starting scheduled injury report check")
		if err := s.pipeline.RunOnce(context.Background()); err != nil {
			logrus.Errorf("Scheduled check failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with schedule %q", expression)
	return nil
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
