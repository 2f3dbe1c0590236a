package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/kmaassrock/nba-injury-alert/internal/archive"
	"github.com/kmaassrock/nba-injury-alert/internal/config"
	"github.com/kmaassrock/nba-injury-alert/internal/fetch"
	"github.com/kmaassrock/nba-injury-alert/internal/notify"
	"github.com/kmaassrock/nba-injury-alert/internal/pipeline"
	"github.com/kmaassrock/nba-injury-alert/internal/poll"
	"github.com/kmaassrock/nba-injury-alert/internal/scheduler"
	"github.com/kmaassrock/nba-injury-alert/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting NBA Injury Alert")

	// Initialize the database
	store, err := storage.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// Optional raw snapshot archive
	var arc archive.Archive
	if cfg.ArchiveConfigured() {
		azArchive, err := archive.NewAzureArchive(cfg.ArchiveAccount, cfg.ArchiveContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize snapshot archive: %v", err)
		}
		arc = azArchive
	}

	// Notification channel senders, gated on configuration
	limits := notify.BatchLimits{
		Concurrency: cfg.SendConcurrency,
		RatePerSec:  cfg.SendRatePerSec,
	}
	var senders []notify.Sender
	if cfg.EmailConfigured() {
		senders = append(senders, notify.NewEmailSender(
			cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom, limits))
	}
	if cfg.PushConfigured() {
		senders = append(senders, notify.NewPushSender(cfg.PushGatewayURL, cfg.PushAPIKey, limits))
	}
	senders = append(senders, notify.NewWebhookSender(cfg.WebhookTimeout, limits))
	logrus.Infof("Configured %d notification channels", len(senders))

	// Pipeline: fetch → dedup → diff → route → dispatch
	fetcher := fetch.NewClient(cfg.SourceURL, cfg.FetchTimeout, cfg.MaxRetries)
	poller := poll.New(fetcher, store, cfg.PollInterval)
	router := notify.NewRouter(store)
	dispatcher := notify.NewDispatcher(store, senders)
	pipelineService := pipeline.NewService(cfg, store, poller, router, dispatcher, arc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One-shot mode: wait for the configured time, process the next new
	// report, and exit.
	if cfg.CheckAt != "" {
		if err := pipelineService.CheckAt(ctx, cfg.CheckAt); err != nil {
			logrus.Fatalf("Scheduled check failed: %v", err)
		}
		logrus.Info("Scheduled check complete")
		return
	}

	if cfg.CronSchedule != "" {
		schedulerService := scheduler.NewService(cfg, pipelineService)
		if err := schedulerService.Start(); err != nil {
			logrus.Fatalf("Failed to start scheduler: %v", err)
		}
		defer schedulerService.Stop()
	} else {
		go func() {
			if err := pipelineService.Start(ctx); err != nil && err != context.Canceled {
				logrus.Errorf("Poll loop exited: %v", err)
			}
		}()
		defer pipelineService.Stop()
	}

	// HTTP server for health checks, metrics, and manual triggers
	httpRouter := mux.NewRouter()
	httpRouter.HandleFunc("/health", healthCheckHandler).Methods("GET")
	httpRouter.Handle("/metrics", promhttp.Handler()).Methods("GET")
	httpRouter.HandleFunc("/trigger", triggerHandler(pipelineService)).Methods("POST")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      httpRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func triggerHandler(p *pipeline.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go func() {
			if err := p.RunOnce(context.Background()); err != nil {
				logrus.Errorf("Manual check trigger failed: %v", err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"Check triggered successfully"}`))
	}
}
