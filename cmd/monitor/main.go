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

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/accountsync"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/alerting"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/api"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/auth"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/config"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/enrichment"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/ingestion"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/llm"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/notifications"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/scheduler"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/sources"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/storage"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting media monitoring pipeline")

	db, err := storage.Open(cfg.DatabaseDSN, cfg.Debug)
	if err != nil {
		logrus.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}

	archive := newArchive(cfg)

	registry := sources.NewRegistry(cfg)
	logrus.Infof("Enabled fetchers: %v", registry.Enabled())

	llmClient := llm.NewClient(llm.Config{
		APIKey:        cfg.LLMAPIKey,
		BaseURL:       cfg.LLMBaseURL,
		Model:         cfg.LLMModel,
		Timeout:       cfg.HTTPTimeout,
		RatePerSecond: cfg.LLMRatePerSecond,
	})
	if !llmClient.IsEnabled() {
		logrus.Warn("LLM_API_KEY not set, enrichment will use heuristic fallbacks")
	}

	syncer := accountsync.NewClient(cfg.SyncFunctionURL, cfg.ServiceRoleKey, cfg.HTTPTimeout)

	ingestionService := ingestion.NewService(db, registry, syncer, archive)
	enrichmentService := enrichment.NewService(db, llmClient, cfg.DefaultTargetLanguage)
	alertService := alerting.NewService(db, notifications.NewService(cfg.TeamsWebhookURL, cfg.HTTPTimeout))

	if cfg.EnableScheduler {
		schedulerService := scheduler.NewService(cfg, db, ingestionService, enrichmentService, alertService)
		if err := schedulerService.Start(); err != nil {
			logrus.Fatalf("Failed to start scheduler: %v", err)
		}
		defer schedulerService.Stop()
	}

	resolver := auth.NewResolver(cfg.ServiceRoleKey, cfg.JWTSecret, db)
	router := api.NewRouter(api.NewHandler(resolver, ingestionService, enrichmentService, alertService))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

// newArchive opens the configured raw payload archive, if any
func newArchive(cfg *config.Config) storage.ArchiveInterface {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	archive, err := storage.OpenArchive(ctx, cfg.StorageAccount, cfg.StorageContainer, cfg.ArchiveDir)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}
	if archive == nil {
		logrus.Info("No archive configured, raw candidates will not be kept")
	}
	return archive
}
