package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vhvplatform/go-reminder-service/internal/alerting"
	"github.com/vhvplatform/go-reminder-service/internal/consumer"
	"github.com/vhvplatform/go-reminder-service/internal/delivery"
	"github.com/vhvplatform/go-reminder-service/internal/dlq"
	"github.com/vhvplatform/go-reminder-service/internal/gateway"
	"github.com/vhvplatform/go-reminder-service/internal/handler"
	"github.com/vhvplatform/go-reminder-service/internal/health"
	"github.com/vhvplatform/go-reminder-service/internal/middleware"
	"github.com/vhvplatform/go-reminder-service/internal/repository"
	"github.com/vhvplatform/go-reminder-service/internal/scheduler"
	"github.com/vhvplatform/go-reminder-service/internal/service"
	"github.com/vhvplatform/go-reminder-service/internal/shared/config"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
	"github.com/vhvplatform/go-reminder-service/internal/shared/mongodb"
	"github.com/vhvplatform/go-reminder-service/internal/shared/rabbitmq"
	"github.com/vhvplatform/go-reminder-service/internal/tracker"
)

func main() {
	// Initialize logger
	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting Reminder Service...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration", "error", err)
	}

	// Initialize MongoDB
	mongoClient, err := mongodb.NewMongoClient(cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}
	defer mongoClient.Disconnect(context.Background())

	// Initialize repositories
	preferencesRepo := repository.NewPreferencesRepository(mongoClient)
	failedReminderRepo := repository.NewFailedReminderRepository(mongoClient)

	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelIndex()
	if err := preferencesRepo.EnsureIndexes(indexCtx); err != nil {
		log.Fatal("Failed to create preference indexes", "error", err)
	}
	if err := failedReminderRepo.EnsureIndexes(indexCtx); err != nil {
		log.Fatal("Failed to create DLQ indexes", "error", err)
	}

	// Initialize RabbitMQ. The service degrades to log-only alerting and no
	// event consumer when the broker is not configured.
	var rabbitMQClient *rabbitmq.RabbitMQClient
	if cfg.RabbitMQ.URL != "" {
		rabbitMQClient, err = rabbitmq.NewRabbitMQClient(cfg.RabbitMQ.URL)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ", "error", err)
		}
		defer rabbitMQClient.Close()
	} else {
		log.Warn("RabbitMQ not configured, preference events and broker alerts disabled")
	}

	// Monitoring sinks
	var sink alerting.Sink = alerting.NewLogSink(log)
	if rabbitMQClient != nil {
		brokerSink, err := alerting.NewRabbitMQSink(rabbitMQClient, log)
		if err != nil {
			log.Fatal("Failed to declare alert exchange", "error", err)
		}
		sink = alerting.MultiSink{sink, brokerSink}
	}

	// Delivery gateway
	telegramGateway := gateway.NewTelegramGateway(cfg.Telegram.APIBaseURL, cfg.Telegram.BotToken, log)

	// Failure tracker and dead letter queue
	failureTracker := tracker.NewFailureTracker(cfg.Delivery.AlertThreshold, sink, nil, log)
	deadLetterQueue := dlq.NewDeadLetterQueue(failedReminderRepo, log)

	// Delivery executor
	executor := delivery.NewExecutor(preferencesRepo, telegramGateway, failureTracker, deadLetterQueue, delivery.Config{
		MaxRetries:     cfg.Delivery.MaxRetries,
		BackoffBase:    cfg.Delivery.BackoffBase,
		BackoffMax:     cfg.Delivery.BackoffMax,
		AttemptTimeout: cfg.Delivery.AttemptTimeout,
	}, nil, log)

	// Poller
	poller := scheduler.NewPoller(preferencesRepo, executor, sink, scheduler.Config{
		Interval:      cfg.Scheduler.PollInterval,
		MaxConcurrent: cfg.Delivery.MaxConcurrent,
	}, log)
	poller.Start()
	defer poller.Stop()

	// Preference service
	preferenceService := service.NewPreferenceService(preferencesRepo, nil, log)

	// Health monitoring
	healthChecker := health.NewChecker(preferencesRepo, mongoClient, telegramGateway, sink, log)
	healthMonitor := health.NewMonitor(healthChecker, log)
	if err := healthMonitor.Start(cfg.Scheduler.HealthCheckSchedule); err != nil {
		log.Error("Failed to start health monitor", "error", err)
	}
	defer healthMonitor.Stop()

	// Initialize HTTP handlers
	preferencesHandler := handler.NewPreferencesHandler(preferenceService, log)
	dlqHandler := handler.NewDLQHandler(deadLetterQueue, telegramGateway, log)
	sweepHandler := handler.NewSweepHandler(poller, log)
	healthHandler := handler.NewHealthHandler(healthChecker)

	// Initialize rate limiter
	rateLimiter := middleware.NewUserRateLimiter(cfg.Server.RateLimitPerUser, cfg.Server.RateLimitBurst)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	// Health check endpoints
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes with rate limiting
	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimitMiddleware(rateLimiter))
	{
		// Preferences
		preferences := v1.Group("/preferences")
		{
			preferences.GET("/:user_id", preferencesHandler.GetPreferences)
			preferences.PUT("/:user_id", preferencesHandler.UpdatePreferences)
		}

		// Manual sweep trigger
		v1.POST("/sweeps", sweepHandler.TriggerSweep)

		// Dead Letter Queue
		dlqRoutes := v1.Group("/dlq")
		{
			dlqRoutes.GET("", dlqHandler.GetFailedReminders)
			dlqRoutes.POST("/:id/retry", dlqHandler.RetryReminder)
		}
	}

	// Start RabbitMQ consumer
	if rabbitMQClient != nil {
		eventConsumer := consumer.NewEventConsumer(rabbitMQClient, preferenceService, log)
		go func() {
			if err := eventConsumer.Start(); err != nil {
				log.Error("Failed to start event consumer", "error", err)
			}
		}()
	}

	// Start HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info("Reminder Service started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Reminder Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Reminder Service stopped")
}
