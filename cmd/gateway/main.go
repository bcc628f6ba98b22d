package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/petminder/petminder/internal/ai"
	"github.com/petminder/petminder/internal/api"
	"github.com/petminder/petminder/internal/circuitbreaker"
	"github.com/petminder/petminder/internal/config"
	"github.com/petminder/petminder/internal/db"
	"github.com/petminder/petminder/internal/dispatch"
	"github.com/petminder/petminder/internal/engine"
	"github.com/petminder/petminder/internal/metrics"
	"github.com/petminder/petminder/internal/observ"
	"github.com/petminder/petminder/internal/queue"
	"github.com/petminder/petminder/internal/redis"
	"github.com/petminder/petminder/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting petminder gateway",
		zap.String("env", cfg.Env),
		zap.Int("port", cfg.Port),
		zap.String("version", "v1.0.0"),
	)

	// Initialize database connection
	ctx := context.Background()
	dbConfig := db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}

	database, err := db.New(ctx, dbConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	logger.Info("database connection established",
		zap.String("host", cfg.DBHost),
		zap.Int("port", cfg.DBPort),
		zap.String("database", cfg.DBName),
	)

	// Sample pool usage for the connection gauge
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			metrics.SetDBConnections(int(database.Pool().Stat().AcquiredConns()))
		}
	}()

	// Initialize repositories
	reminders := db.NewReminderRepository(database, logger)
	schedules := db.NewScheduleRepository(database, logger)
	pets := db.NewPetRepository(database, logger)

	// Initialize Redis for idempotency, rate limiting and sweep locks
	redisConfig := redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	redisClient, err := redis.New(ctx, redisConfig, logger)
	if err != nil {
		logger.Warn("redis unavailable, idempotency and sweep coordination disabled",
			zap.Error(err),
			zap.String("host", cfg.RedisHost),
		)
	}

	var idempotencyService *redis.IdempotencyService
	var rateLimiter *redis.RateLimiter
	var sweepLock scheduler.Locker
	if redisClient != nil {
		idempotencyService = redis.NewIdempotencyService(redisClient, logger)
		rateLimiter = redis.NewRateLimiter(redisClient, logger, redis.RateLimitConfig{
			Limit:  100,             // 100 requests
			Window: 1 * time.Minute, // per minute per owner
		})
		hostname, _ := os.Hostname()
		holder := fmt.Sprintf("%s-%d", hostname, os.Getpid())
		sweepLock = redis.NewSweepLock(redisClient, holder, redis.DefaultSweepLockTTL, logger)
		defer redisClient.Close()
	}

	// Channel senders, each behind its own circuit breaker
	var senders []dispatch.ChannelSender

	sesSender, err := dispatch.NewSESSender(ctx, dispatch.SESConfig{
		Region:    cfg.AWSRegion,
		FromEmail: cfg.SESFromEmail,
	}, logger)
	if err != nil {
		if cfg.Env != "development" {
			return fmt.Errorf("failed to create SES email sender: %w", err)
		}
		logger.Warn("SES sender unavailable, logging email notifications instead",
			zap.Error(err),
		)
		senders = append(senders, dispatch.NewLogSender(logger))
	} else {
		senders = append(senders, protect(sesSender, "ses-email", logger))
	}

	snsSender, err := dispatch.NewSNSSender(ctx, dispatch.SNSConfig{
		Region: cfg.SNSRegion,
	}, logger)
	if err != nil {
		logger.Warn("SNS sender unavailable, SMS notifications disabled",
			zap.Error(err),
		)
	} else {
		senders = append(senders, protect(snsSender, "sns-sms", logger))
	}

	if cfg.SNSTopicARN != "" {
		pushSender, err := dispatch.NewPushSender(ctx, dispatch.PushConfig{
			Region:   cfg.SNSRegion,
			TopicARN: cfg.SNSTopicARN,
		}, logger)
		if err != nil {
			logger.Warn("push sender unavailable, push notifications disabled",
				zap.Error(err),
			)
		} else {
			senders = append(senders, protect(pushSender, "sns-push", logger))
		}
	}

	webhookSender := dispatch.NewWebhookSender(logger, dispatch.WebhookConfig{
		Timeout: time.Duration(cfg.WebhookTimeout) * time.Second,
	})
	senders = append(senders, protect(webhookSender, "webhook", logger))

	multiSender := dispatch.NewMultiSender(logger, senders...)

	logger.Info("initialized multi-channel notification system",
		zap.Int("senders", len(senders)),
		zap.Bool("sms_enabled", snsSender != nil),
		zap.Bool("push_enabled", cfg.SNSTopicARN != ""),
	)

	// Optional AI message enrichment
	var enricher dispatch.MessageEnricher
	if cfg.AIEnabled {
		aiClient, err := ai.NewClient(ai.Config{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
		}, logger)
		if err != nil {
			logger.Warn("AI enrichment unavailable, using template messages",
				zap.Error(err),
			)
		} else {
			enricher = ai.NewEnricher(aiClient, logger)
			logger.Info("AI message enrichment enabled", zap.String("model", cfg.OpenAIModel))
		}
	}

	// Notifications go straight to the channel senders, or through SQS
	// when a queue is configured and a separate delivery fleet consumes it.
	var dispatcher engine.Dispatcher
	if cfg.SQSQueueURL != "" {
		producer, err := queue.NewProducer(ctx, queue.Config{
			Region:   cfg.SQSRegion,
			QueueURL: cfg.SQSQueueURL,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to create SQS producer: %w", err)
		}
		defer producer.Close()
		dispatcher = queue.NewDispatcher(producer)
		logger.Info("notifications routed through SQS", zap.String("queue_url", cfg.SQSQueueURL))
	} else {
		dispatcher = dispatch.NewDispatcher(pets, multiSender, enricher, logger)
	}

	svc := engine.NewService(reminders, schedules, pets, dispatcher, logger)

	// Background sweeps
	sched := scheduler.New(svc, sweepLock, scheduler.Config{
		EscalationSpec: cfg.EscalationCronSpec,
		GenerationSpec: cfg.GenerationCronSpec,
	}, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	logger.Info("sweep scheduler started",
		zap.String("escalation", cfg.EscalationCronSpec),
		zap.String("generation", cfg.GenerationCronSpec),
	)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// Custom logging middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration_ms", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	})

	// API routes
	handler := api.NewHandler(logger, svc, schedules, idempotencyService)
	r.Route("/v1", func(r chi.Router) {
		// Apply rate limiting to API routes
		r.Use(api.RateLimitMiddleware(rateLimiter, logger, api.OwnerKeyFunc))

		handler.Routes(r)
	})

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint
	r.Handle("/metrics", metrics.Handler())

	// Setup HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	// Listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or server error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		// Give outstanding requests 10 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		logger.Info("server stopped gracefully")
	}

	return nil
}

func protect(sender dispatch.ChannelSender, name string, logger *zap.Logger) dispatch.ChannelSender {
	breaker := circuitbreaker.New(circuitbreaker.DefaultConfig(name), logger)
	return circuitbreaker.NewProtectedSender(sender, breaker, logger)
}
