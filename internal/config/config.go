package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds
	// AllowedOrigins restricts CORS; empty allows every origin
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey string   `mapstructure:"jwt_public_key"`
	APIKeys      []string `mapstructure:"api_keys"`
}

// SecretsConfig holds signing-secret encryption configuration
type SecretsConfig struct {
	// AppKey is the base64-encoded 32-byte application master key
	AppKey string `mapstructure:"app_key"`
	// GracePeriod is how long a rotated-out secret keeps signing
	GracePeriod time.Duration `mapstructure:"grace_period"`
}

// DeliveryConfig holds webhook delivery configuration
type DeliveryConfig struct {
	// HTTPTimeout is the platform ceiling for a single outbound call
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	// DNSTimeout bounds hostname resolution during URL safety checks
	DNSTimeout time.Duration `mapstructure:"dns_timeout"`
	// UserAgent identifies outbound requests
	UserAgent string `mapstructure:"user_agent"`
	// ConditionPolicy selects fail_open or fail_closed condition evaluation
	ConditionPolicy string `mapstructure:"condition_policy"`
	// BurstPerSecond caps per-webhook delivery bursts; 0 disables the guard
	BurstPerSecond int `mapstructure:"burst_per_second"`
}

// RateLimitConfig holds fixed-window rate limiter configuration
type RateLimitConfig struct {
	KeyPrefix  string                    `mapstructure:"key_prefix"`
	Window     time.Duration             `mapstructure:"window"`
	Policy     string                    `mapstructure:"policy"` // fail_open | fail_closed
	Limits     map[string]int            `mapstructure:"limits"`
	TierLimits map[string]map[string]int `mapstructure:"tier_limits"`
}

// BreakerConfig holds circuit breaker configuration
type BreakerConfig struct {
	// FailureThreshold is how many consecutive failures open the circuit
	FailureThreshold int `mapstructure:"failure_threshold"`
	// SuccessThreshold is how many consecutive half-open successes close it
	SuccessThreshold int `mapstructure:"success_threshold"`
	// OpenTimeout is how long an open circuit waits before probing
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
}

// RetryConfig holds retry queue configuration
type RetryConfig struct {
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	Multiplier   float64       `mapstructure:"multiplier"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	// StopStatusCodes are response codes that make further retries pointless
	StopStatusCodes []int `mapstructure:"stop_status_codes"`
	// ClaimLease is how long a claimed entry may stay in processing before
	// the stale-claim sweep returns it to pending
	ClaimLease time.Duration `mapstructure:"claim_lease"`
	BatchSize  int           `mapstructure:"batch_size"`
	PollEvery  time.Duration `mapstructure:"poll_every"`
}

// WorkerConfig holds worker pool configuration
type WorkerConfig struct {
	PoolSize  int `mapstructure:"pool_size"`
	QueueSize int `mapstructure:"queue_size"`
}

// APIConfig holds configuration for the API server
type APIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Server     ServerConfig    `mapstructure:"server"`
	Database   DatabaseConfig  `mapstructure:"database"`
	Redis      RedisConfig     `mapstructure:"redis"`
	Auth       AuthConfig      `mapstructure:"auth"`
	Secrets    SecretsConfig   `mapstructure:"secrets"`
	Delivery   DeliveryConfig  `mapstructure:"delivery"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Breaker    BreakerConfig   `mapstructure:"breaker"`
	Retry      RetryConfig     `mapstructure:"retry"`
}

// RetryWorkerConfig holds configuration for the retry worker
type RetryWorkerConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig  `mapstructure:"database"`
	Redis      RedisConfig     `mapstructure:"redis"`
	Secrets    SecretsConfig   `mapstructure:"secrets"`
	Delivery   DeliveryConfig  `mapstructure:"delivery"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Breaker    BreakerConfig   `mapstructure:"breaker"`
	Retry      RetryConfig     `mapstructure:"retry"`
	Worker     WorkerConfig    `mapstructure:"worker"`
}

// LoadAPIConfig loads configuration for the API server
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("api", configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 40)
	v.SetDefault("server.idle_timeout", 120)
	setSharedDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use environment variables
	}

	var cfg APIConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateShared(cfg.Database, cfg.Secrets); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadRetryWorkerConfig loads configuration for the retry worker
func LoadRetryWorkerConfig(configFile string, envPath string) (*RetryWorkerConfig, error) {
	v := configureViper("retry-worker", configFile, envPath)

	// Set defaults
	v.SetDefault("worker.pool_size", 20)
	v.SetDefault("worker.queue_size", 200)
	setSharedDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use environment variables
	}

	var cfg RetryWorkerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateShared(cfg.Database, cfg.Secrets); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setSharedDefaults sets defaults common to every binary
func setSharedDefaults(v *viper.Viper) {
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("secrets.grace_period", "24h")
	v.SetDefault("delivery.http_timeout", "30s")
	v.SetDefault("delivery.dns_timeout", "3s")
	v.SetDefault("delivery.user_agent", "Flowsend-Webhooks/1.0")
	v.SetDefault("delivery.condition_policy", "fail_open")
	v.SetDefault("delivery.burst_per_second", 0)
	v.SetDefault("rate_limit.key_prefix", "flowsend:webhooks:limiter:")
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("rate_limit.policy", "fail_open")
	v.SetDefault("rate_limit.limits", map[string]int{"deliveries": 600})
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.success_threshold", 2)
	v.SetDefault("breaker.open_timeout", "60s")
	v.SetDefault("retry.initial_delay", "30s")
	v.SetDefault("retry.max_delay", "1h")
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.stop_status_codes", []int{400, 401, 403, 404, 405, 410, 422})
	v.SetDefault("retry.claim_lease", "5m")
	v.SetDefault("retry.batch_size", 100)
	v.SetDefault("retry.poll_every", "15s")
}

// validateShared validates configuration required by every binary
func validateShared(db DatabaseConfig, secrets SecretsConfig) error {
	if db.Host == "" {
		return errors.New("database.host is required")
	}
	if db.DBName == "" {
		return errors.New("database.dbname is required")
	}
	if secrets.AppKey == "" {
		return errors.New("secrets.app_key is required")
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("WEBHOOK_ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables.
// This is required for viper to map env vars to config struct fields when no config file exists.
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// Redis
		"redis.addr",
		"redis.password",
		"redis.db",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		// Auth
		"auth.jwt_public_key",
		"auth.api_keys",
		// Secrets
		"secrets.app_key",
		"secrets.grace_period",
		// Delivery
		"delivery.http_timeout",
		"delivery.dns_timeout",
		"delivery.user_agent",
		"delivery.condition_policy",
		"delivery.burst_per_second",
		// Rate limiting
		"rate_limit.key_prefix",
		"rate_limit.window",
		"rate_limit.policy",
		// Circuit breaker
		"breaker.failure_threshold",
		"breaker.success_threshold",
		"breaker.open_timeout",
		// Retry queue
		"retry.initial_delay",
		"retry.max_delay",
		"retry.multiplier",
		"retry.max_attempts",
		"retry.stop_status_codes",
		"retry.claim_lease",
		"retry.batch_size",
		"retry.poll_every",
		// Worker
		"worker.pool_size",
		"worker.queue_size",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
