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

	"order-analytics/config"
	"order-analytics/internal/api"
	"order-analytics/internal/broker"
	"order-analytics/internal/redisclient"
	"order-analytics/internal/service"
	"order-analytics/internal/store"
	"order-analytics/internal/util"
	"order-analytics/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting order analytics service")

	tp, err := util.InitTracer("order-analytics", cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	if err := db.EnsureRunsTable(context.Background()); err != nil {
		logger.Fatal("Failed to prepare run history", zap.Error(err))
	}
	logger.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	checks := map[string]api.ReadinessCheck{"database": db.Ping}

	// Redis is optional: without it every request computes.
	var (
		reportCache service.ReportCache
		invalidator api.CacheInvalidator
	)
	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("Redis unavailable, report cache disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
		reportCache = redisClient
		invalidator = redisClient
		checks["redis"] = redisClient.Ping
		logger.Info("Redis connected")
	}

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicReports)
	defer producer.Close()
	logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicReports))

	eventPublisher := broker.NewEventPublisher(producer)
	reportService := service.NewReportService(db, reportCache, eventPublisher, db, cfg.Reports)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	refreshConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicReports, cfg.Kafka.ConsumerGroup)
	refreshWorker := worker.NewRefreshWorker(refreshConsumer, reportService)
	go func() {
		if err := refreshWorker.Start(workerCtx); err != nil {
			logger.Error("Refresh worker error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(reportService, db, invalidator, checks)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if err := refreshWorker.Stop(); err != nil {
		logger.Error("Failed to stop refresh worker", zap.Error(err))
	}

	logger.Info("Server exited")
}
