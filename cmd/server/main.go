package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ikkim/taxfiling-backend/config"
	"github.com/ikkim/taxfiling-backend/internal/app/controller"
	"github.com/ikkim/taxfiling-backend/internal/app/repository"
	"github.com/ikkim/taxfiling-backend/internal/app/service"
	"github.com/ikkim/taxfiling-backend/internal/db"
	"github.com/ikkim/taxfiling-backend/internal/middleware"
	"github.com/ikkim/taxfiling-backend/internal/router"
	"github.com/ikkim/taxfiling-backend/internal/scheduler"
	"github.com/ikkim/taxfiling-backend/internal/storage"
	ws "github.com/ikkim/taxfiling-backend/internal/websocket"
	"github.com/ikkim/taxfiling-backend/pkg/logger"
	"github.com/ikkim/taxfiling-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: true,
	})

	logger.Info("Starting tax filing backend", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Summary cache is optional; without Redis every summary is computed
	var summaryCache service.SummaryCache
	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Warn("Redis unavailable, summary cache disabled", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		summaryCache = redis.NewSummaryCache(redis.GetClient(), cfg.Redis.SummaryCacheTTL)
		defer func() {
			if err := redis.Close(); err != nil {
				logger.Error("Failed to close Redis connection", err)
			}
		}()
	}

	var artifacts service.ArtifactStorage
	if cfg.S3.Bucket != "" {
		artifacts = storage.NewS3Storage(cfg.S3)
	} else {
		logger.Warn("No S3 bucket configured, report documents disabled", nil)
	}

	hub := ws.NewHub()
	go hub.Run()

	// Initialize repositories
	conn := db.GetDB()
	profileRepo := repository.NewTaxProfileRepository(conn)
	reportRepo := repository.NewTaxReportRepository(conn)
	snapshotRepo := repository.NewTaxSnapshotRepository(conn)
	documentRepo := repository.NewDocumentRepository(conn)
	workspaceRepo := repository.NewWorkspaceRepository(conn)
	aggregates := repository.NewPeriodAggregationRepository(conn)
	txManager := repository.NewTransactionManager(conn)

	registry, err := service.NewStrategyRegistry(service.DefaultStrategies(aggregates)...)
	if err != nil {
		logger.Fatal("Failed to build strategy registry", err)
	}
	logger.Info("Report strategies registered", map[string]interface{}{
		"countries": registry.Countries(),
	})

	// Initialize services
	clock := service.Clock(service.SystemClock)
	profileService := service.NewTaxProfileService(profileRepo, txManager, summaryCache, clock)
	generationService := service.NewReportGenerationService(registry, profileService, reportRepo, summaryCache, hub, clock)
	reportService := service.NewTaxReportService(reportRepo, profileService, registry, generationService, artifacts, summaryCache, hub, clock)
	snapshotService := service.NewTaxSnapshotService(snapshotRepo, documentRepo, profileService, clock)
	summaryService := service.NewTaxSummaryService(workspaceRepo, profileService, reportRepo, aggregates, summaryCache, clock)

	var reportScheduler *scheduler.TaxReportScheduler
	if cfg.Scheduler.Enabled {
		reportScheduler = scheduler.NewTaxReportScheduler(cfg.Scheduler, profileRepo, generationService, clock)
		if err := reportScheduler.Start(); err != nil {
			logger.Fatal("Failed to start tax report scheduler", err)
		}
	}

	// Initialize controllers
	reportController := controller.NewTaxReportController(reportService, generationService)
	profileController := controller.NewTaxProfileController(profileService, clock)
	snapshotController := controller.NewTaxSnapshotController(snapshotService)
	summaryController := controller.NewTaxSummaryController(summaryService)
	eventsController := controller.NewEventsController(hub, cfg.CORS.AllowedOrigins)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Setup router
	r := router.NewRouter(
		reportController,
		profileController,
		snapshotController,
		summaryController,
		eventsController,
		authMiddleware,
		cfg,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	if reportScheduler != nil {
		reportScheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shut down", err)
	}
	hub.Stop()
	logger.Info("Server stopped successfully")
}
