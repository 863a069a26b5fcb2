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
	"github.com/flowsend/webhook-engine/internal/api/middleware"
	"github.com/flowsend/webhook-engine/internal/api/rest"
	"github.com/flowsend/webhook-engine/internal/api/server"
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
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Create shutdown context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "api-server",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Webhook Engine API")

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

	// Build the delivery executor
	executor, secretManager, validator := buildExecutor(ctx, cfg, dataStore, redisClient)

	// Create server config
	serverConfig := server.Config{
		Debug:          cfg.Debug,
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    time.Duration(cfg.Server.IdleTimeout) * time.Second,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Auth: middleware.AuthConfig{
			JWTPublicKey: cfg.Auth.JWTPublicKey,
			APIKeys:      cfg.Auth.APIKeys,
		},
	}

	// Create and start server
	handler := rest.NewHandler(dataStore, executor, secretManager, validator)
	srv := server.New(serverConfig, handler)

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.InfoCtx(shutdownCtx, "Shutting down server...")

	// Shutdown server
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.FatalCtx(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}

	// Use non-context logger for final message since original ctx is canceled
	logger.Info("API server stopped")
}

// buildExecutor wires the delivery pipeline the API serves requests with
func buildExecutor(ctx context.Context, cfg *config.APIConfig, dataStore store.Store, redisClient adapter.RedisClient) (*delivery.Executor, *secrets.Manager, *safeurl.Validator) {
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

	return executor, secretManager, validator
}
