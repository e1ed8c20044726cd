// Package config provides configuration management for the edgecheck application.
package config

import (
	"fmt"

	"github.com/yourusername/edgecheck/internal/models"
)

// Config represents the complete application configuration
type Config struct {
	App          AppConfig          `mapstructure:"app" validate:"required"`
	Database     DatabaseConfig     `mapstructure:"database" validate:"required"`
	Tracker      TrackerConfig      `mapstructure:"tracker" validate:"required"`
	Backtest     BacktestConfig     `mapstructure:"backtest" validate:"required"`
	FeatureStore FeatureStoreConfig `mapstructure:"feature_store" validate:"required"`
	Feed         FeedConfig         `mapstructure:"feed"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Server       ServerConfig       `mapstructure:"server" validate:"required"`
	Metrics      MetricsConfig      `mapstructure:"metrics" validate:"required"`
	Secrets      SecretsConfig      `mapstructure:"secrets"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
	LogFormat   string `mapstructure:"log_format" validate:"omitempty,oneof=json text"`
}

// DatabaseConfig represents database connection configuration.
// Storage "memory" keeps everything in process and ignores the connection fields.
type DatabaseConfig struct {
	Storage            string `mapstructure:"storage" validate:"required,oneof=postgres memory"`
	Host               string `mapstructure:"host" validate:"required_if=Storage postgres"`
	Port               int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required_if=Storage postgres"`
	User               string `mapstructure:"user" validate:"required_if=Storage postgres"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"omitempty,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"omitempty,gt=0"`
}

// TrackerConfig configures the performance tracker
type TrackerConfig struct {
	// TrackingStake is the notional stake used to derive pnl for each settled prediction
	TrackingStake float64 `mapstructure:"tracking_stake" validate:"gt=0"`
	// LogLossEpsilon clamps probabilities away from 0 and 1
	LogLossEpsilon   float64 `mapstructure:"log_loss_epsilon" validate:"gte=0,lt=0.5"`
	CalibrationBins  int     `mapstructure:"calibration_bins" validate:"gte=0,lte=100"`
	RiskFreeRate     float64 `mapstructure:"risk_free_rate" validate:"gte=0,lte=1"`
	SummaryCacheTTLS int     `mapstructure:"summary_cache_ttl_seconds" validate:"gte=0"`
}

// BacktestConfig represents backtesting configuration
type BacktestConfig struct {
	Strategy             models.StrategyConfig `mapstructure:"strategy"`
	MaxConcurrentRuns    int                   `mapstructure:"max_concurrent_runs" validate:"gt=0,lte=64"`
	MonteCarloIterations int                   `mapstructure:"monte_carlo_iterations" validate:"gte=0"`
	WalkForwardWindows   int                   `mapstructure:"walk_forward_windows" validate:"gte=0"`
	OutputPath           string                `mapstructure:"output_path" validate:"required"`
}

// FeatureStoreConfig configures the feature store read cache
type FeatureStoreConfig struct {
	CacheTTLSeconds     int `mapstructure:"cache_ttl_seconds" validate:"gt=0"`
	CacheCleanupSeconds int `mapstructure:"cache_cleanup_seconds" validate:"gt=0"`
}

// FeedConfig represents the external prediction and settlement feed
type FeedConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BaseURL        string `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey         string `mapstructure:"api_key"`
	RateLimit      int    `mapstructure:"rate_limit" validate:"gte=0"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gte=0"`
	RetryAttempts  int    `mapstructure:"retry_attempts" validate:"gte=0,lte=10"`
	BatchSize      int    `mapstructure:"batch_size" validate:"gte=0"`
}

// SchedulerConfig holds cron expressions for background jobs
type SchedulerConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	FeedPoll       string `mapstructure:"feed_poll" validate:"omitempty,cron"`
	SummaryRefresh string `mapstructure:"summary_refresh" validate:"omitempty,cron"`
}

// ServerConfig represents the HTTP API server
type ServerConfig struct {
	Address             string `mapstructure:"address" validate:"required"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds" validate:"gte=0"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds" validate:"gte=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required"`
}

// SecretsConfig points at an optional AWS Secrets Manager secret
type SecretsConfig struct {
	Region     string `mapstructure:"region"`
	SecretName string `mapstructure:"secret_name"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// UsesPostgres reports whether the configured storage backend is Postgres
func (c *Config) UsesPostgres() bool {
	return c.Database.Storage == "postgres"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

