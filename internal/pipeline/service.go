package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kmaassrock/nba-injury-alert/internal/archive"
	"github.com/kmaassrock/nba-injury-alert/internal/config"
	"github.com/kmaassrock/nba-injury-alert/internal/fetch"
	"github.com/kmaassrock/nba-injury-alert/internal/metrics"
	"github.com/kmaassrock/nba-injury-alert/internal/models"
	"github.com/kmaassrock/nba-injury-alert/internal/notify"
	"github.com/kmaassrock/nba-injury-alert/internal/poll"
	"github.com/kmaassrock/nba-injury-alert/internal/report"
	"github.com/kmaassrock/nba-injury-alert/internal/storage"
	"github.com/sirupsen/logrus"
)

// Service wires the full change-detection and notification pipeline:
// poll → dedup → normalize → diff → route → dispatch → mark delivered.
// All collaborators are injected; nothing here is a global.
type Service struct {
	config     *config.Config
	store      storage.Store
	poller     *poll.Poller
	router     *notify.Router
	dispatcher *notify.Dispatcher
	archive    archive.Archive // nil when archiving is disabled

	mu       sync.Mutex
	previous []models.PlayerStatus
	baseline bool // a previous snapshot exists to diff against
	loaded   bool
}

// NewService creates the pipeline service.
func NewService(cfg *config.Config, store storage.Store, poller *poll.Poller, router *notify.Router, dispatcher *notify.Dispatcher, arc archive.Archive) *Service {
	return &Service{
		config:     cfg,
		store:      store,
		poller:     poller,
		router:     router,
		dispatcher: dispatcher,
		archive:    arc,
	}
}

// Start runs the poll loop with HandleSnapshot as the new-snapshot callback.
// It blocks until Stop is called or the context is cancelled.
func (s *Service) Start(ctx context.Context) error {
	if err := s.loadPrevious(ctx); err != nil {
		return err
	}
	return s.poller.Start(ctx, s.HandleSnapshot)
}

// Stop requests a cooperative shutdown of the poll loop.
func (s *Service) Stop() {
	s.poller.Stop()
}

// RunOnce performs a single fetch-and-process cycle. Duplicate content is a
// successful no-op.
func (s *Service) RunOnce(ctx context.Context) error {
	if err := s.loadPrevious(ctx); err != nil {
		return err
	}

	snap, isNew, err := s.poller.PollOnce(ctx)
	if err != nil {
		outcome := "transient"
		var rle *fetch.RateLimitError
		if errors.As(err, &rle) {
			outcome = "rate_limited"
		}
		metrics.FetchTotal.WithLabelValues(outcome).Inc()
		return fmt.Errorf("poll once: %w", err)
	}
	if !isNew {
		metrics.FetchTotal.WithLabelValues("duplicate").Inc()
		logrus.Info("No new injury report content")
		return nil
	}
	return s.HandleSnapshot(ctx, snap)
}

// CheckAt runs a one-shot check starting at the next wall-clock occurrence of
// hhmm ("15:04" format), polling until the report updates.
func (s *Service) CheckAt(ctx context.Context, hhmm string) error {
	at, err := time.Parse("15:04", hhmm)
	if err != nil {
		return fmt.Errorf("parse check time %q: %w", hhmm, err)
	}

	now := time.Now()
	startAt := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
	if startAt.Before(now) {
		startAt = startAt.Add(24 * time.Hour)
	}
	return s.CheckUntilNew(ctx, startAt)
}

// CheckUntilNew waits until startAt, polls until the first new snapshot
// appears, and processes it. One-shot mode for scheduled checks around the
// report's publication time.
func (s *Service) CheckUntilNew(ctx context.Context, startAt time.Time) error {
	if err := s.loadPrevious(ctx); err != nil {
		return err
	}

	snap, err := s.poller.PollUntilNew(ctx, startAt)
	if err != nil {
		return err
	}
	return s.HandleSnapshot(ctx, snap)
}

// HandleSnapshot processes one new snapshot end to end. Normalization and
// diff failures abort only this cycle; the caller's loop continues.
func (s *Service) HandleSnapshot(ctx context.Context, snap *models.Snapshot) error {
	start := time.Now()
	metrics.FetchTotal.WithLabelValues("ok").Inc()
	metrics.SnapshotsNew.Inc()

	if s.archive != nil {
		if err := s.archive.StoreSnapshot(ctx, snap); err != nil {
			// Archiving is best effort; the pipeline proceeds.
			logrus.Errorf("Failed to archive snapshot: %v", err)
		}
	}

	statuses, err := report.Normalize(snap.Raw)
	if err != nil {
		return fmt.Errorf("normalize snapshot %d: %w", snap.ID, err)
	}
	logrus.Infof("Normalized %d player statuses from snapshot %d", len(statuses), snap.ID)

	if s.config.TopPlayersOnly {
		topPlayers, err := s.store.TopPlayers(ctx)
		if err != nil {
			return fmt.Errorf("load top players: %w", err)
		}
		statuses = report.FilterTopPlayers(statuses, topPlayers)
		logrus.Infof("After top-player filtering: %d statuses", len(statuses))
	}

	s.mu.Lock()
	previous, baseline := s.previous, s.baseline
	s.mu.Unlock()

	// The very first snapshot establishes the baseline; everyone on it would
	// otherwise look newly added.
	var changes []models.StatusChange
	if baseline {
		changes = report.Diff(statuses, previous, snap.ID, time.Now())
		countChangeKinds(changes)
	} else {
		logrus.Info("Recording baseline snapshot, no changes emitted")
	}

	if err := s.store.SaveStatuses(ctx, snap.ID, report.AnnotateChanges(statuses, changes)); err != nil {
		return fmt.Errorf("save statuses: %w", err)
	}

	if len(changes) > 0 {
		stored, err := s.store.InsertChanges(ctx, changes)
		if err != nil {
			return fmt.Errorf("insert changes: %w", err)
		}
		logrus.Infof("Detected %d status changes (%d newly recorded)", len(changes), len(stored))

		if len(stored) > 0 {
			if err := s.notifyChanges(ctx, stored); err != nil {
				logrus.Errorf("Notification dispatch failed: %v", err)
			}
		}
	}

	s.mu.Lock()
	s.previous = statuses
	s.baseline = true
	s.loaded = true
	s.mu.Unlock()

	metrics.CycleDuration.Observe(time.Since(start).Seconds())
	logrus.Infof("Snapshot %d processed in %v", snap.ID, time.Since(start))
	return nil
}

func (s *Service) notifyChanges(ctx context.Context, changes []models.StatusChange) error {
	notifications, err := s.router.Route(ctx, changes)
	if err != nil {
		return fmt.Errorf("route changes: %w", err)
	}
	logrus.Infof("Routed %d changes into %d notifications", len(changes), len(notifications))

	results, err := s.dispatcher.Dispatch(ctx, changes, notifications)
	for _, r := range results {
		outcome := "ok"
		if !r.Success {
			outcome = "error"
		}
		metrics.NotificationsSent.WithLabelValues(r.Channel, outcome).Inc()
	}
	return err
}

// loadPrevious restores the last persisted normalized snapshot so a restart
// diffs against where the previous process left off.
func (s *Service) loadPrevious(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}

	snapshotID, statuses, err := s.store.LatestStatuses(ctx)
	if err != nil {
		return fmt.Errorf("load latest statuses: %w", err)
	}
	if snapshotID != 0 {
		logrus.Infof("Resuming from snapshot %d with %d statuses", snapshotID, len(statuses))
		s.baseline = true
	}
	s.previous = statuses
	s.loaded = true
	return nil
}

func countChangeKinds(changes []models.StatusChange) {
	for _, ch := range changes {
		switch {
		case ch.OldStatus == "":
			metrics.ChangesDetected.WithLabelValues("added").Inc()
		case ch.NewStatus == models.StatusActive:
			metrics.ChangesDetected.WithLabelValues("removed").Inc()
		default:
			metrics.ChangesDetected.WithLabelValues("changed").Inc()
		}
	}
}
