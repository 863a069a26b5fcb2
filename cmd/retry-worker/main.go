package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/flowsend/webhook-engine/internal/adapter"
	"github.com/flowsend/webhook-engine/internal/breaker"
	"github.com/flowsend/webhook-engine/internal/conditions"
	"github.com/flowsend/webhook-engine/internal/config"
	"github.com/flowsend/webhook-engine/internal/delivery"
	"github.com/flowsend/webhook-engine/internal/domain"
	"github.com/flowsend/webhook-engine/internal/logger"
	"github.com/flowsend/webhook-engine/internal/ratelimit"
	"github.com/flowsend/webhook-engine/internal/retry"
	"github.com/flowsend/webhook-engine/internal/safeurl"
	"github.com/flowsend/webhook-engine/internal/secrets"
	"github.com/flowsend/webhook-engine/internal/store"
	"github.com/flowsend/webhook-engine/internal/transform"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadRetryWorkerConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "retry-worker",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Retry Worker")

	// Connect to database
	db, err := store.Connect(ctx, cfg.Database.DSN(), 30*time.Second)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	// Initialize store
	dataStore := store.NewPGStore(db)

	// Connect to Redis
	redisClient := adapter.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	logger.InfoCtx(ctx, "Connected to Redis", zap.String("addr", cfg.Redis.Addr))

	// Initialize clock adapter
	clock := adapter.NewClock()

	// Decode the application master key for secret encryption
	appKey, err := secrets.DecodeAppKey(cfg.Secrets.AppKey)
	if err != nil {
		logger.FatalCtx(ctx, "Invalid application key", zap.Error(err))
	}

	secretManager, err := secrets.NewManager(dataStore, appKey, cfg.Secrets.GracePeriod, clock)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to initialize secret manager", zap.Error(err))
	}

	// Redeliveries bypass rate limit admission; the limiter and burst guard
	// are wired for completeness of the delivery pipeline
	limiter := ratelimit.NewLimiter(cfg.RateLimit, redisClient, clock)
	burst := ratelimit.NewBurstGuard(redisClient, cfg.Delivery.BurstPerSecond)
	breakerManager := breaker.NewManager(dataStore, breaker.Settings{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		SuccessThreshold: cfg.Breaker.SuccessThreshold,
		OpenTimeout:      cfg.Breaker.OpenTimeout,
	}, clock)

	// nil resolver uses net.DefaultResolver
	validator := safeurl.NewValidator(nil, safeurl.Config{
		DNSTimeout: cfg.Delivery.DNSTimeout,
	})

	conditionPolicy := domain.FailurePolicy(cfg.Delivery.ConditionPolicy)
	if !conditionPolicy.Valid() {
		conditionPolicy = domain.FailOpen
	}
	evaluator := conditions.NewEvaluator(dataStore, conditionPolicy)

	schedule := retry.Schedule{
		InitialDelay:    cfg.Retry.InitialDelay,
		MaxDelay:        cfg.Retry.MaxDelay,
		Multiplier:      cfg.Retry.Multiplier,
		MaxAttempts:     cfg.Retry.MaxAttempts,
		StopStatusCodes: cfg.Retry.StopStatusCodes,
	}
	enqueuer := retry.NewEnqueuer(dataStore, schedule, clock)

	httpClient := adapter.NewHTTPClient(cfg.Delivery.HTTPTimeout)

	executor := delivery.NewExecutor(
		delivery.Config{UserAgent: cfg.Delivery.UserAgent},
		dataStore,
		secretManager,
		limiter,
		burst,
		breakerManager,
		validator,
		evaluator,
		transform.NewTransformer(),
		enqueuer,
		httpClient,
		clock,
	)

	// Initialize retry worker
	workerConfig := retry.WorkerConfig{
		BatchSize:      cfg.Retry.BatchSize,
		WorkerPoolSize: cfg.Worker.PoolSize,
		PollEvery:      cfg.Retry.PollEvery,
		ClaimLease:     cfg.Retry.ClaimLease,
	}
	worker := retry.NewWorker(workerConfig, dataStore, executor, schedule, clock)

	logger.InfoCtx(ctx, "Initialized retry worker (continuous mode)",
		zap.Int("batch_size", cfg.Retry.BatchSize),
		zap.Int("worker_pool_size", cfg.Worker.PoolSize),
		zap.Duration("poll_every", cfg.Retry.PollEvery),
	)

	// Start the worker in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := worker.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		logger.ErrorCtx(ctx, err)
	}

	// Cancel context to stop the worker
	cancel()

	// Give the worker time to finish in-flight redeliveries
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()

	if err := worker.Stop(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, err)
	}

	logger.InfoCtx(shutdownCtx, "Retry worker stopped")
}
