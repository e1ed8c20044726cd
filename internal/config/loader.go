// Package config provides configuration management for the edgecheck application.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix         = "EDGECHECK"
	defaultConfigPath = "config/config.yaml"
)

// Load reads and parses the configuration from file and environment variables.
// Environment variable placeholders in the YAML file (${VAR_NAME}) are expanded.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return unmarshal(v)
}

// LoadWithDefaults loads configuration with default values for optional fields.
// A missing config file is not an error.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return unmarshal(v)
}

// ReloadFromEnv reloads the configuration from EDGECHECK_CONFIG_PATH when set
func ReloadFromEnv(cfg *Config) error {
	if envPath := os.Getenv(envPrefix + "_CONFIG_PATH"); envPath != "" {
		newCfg, err := Load(envPath)
		if err != nil {
			return err
		}
		*cfg = *newCfg
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "edgecheck")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "text")

	v.SetDefault("database.storage", "memory")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_connections", 2)

	v.SetDefault("tracker.tracking_stake", 100.0)
	v.SetDefault("tracker.log_loss_epsilon", 1e-15)
	v.SetDefault("tracker.calibration_bins", 10)
	v.SetDefault("tracker.summary_cache_ttl_seconds", 0)

	v.SetDefault("backtest.strategy.initial_capital", 10000.0)
	v.SetDefault("backtest.strategy.position_sizing", "kelly")
	v.SetDefault("backtest.strategy.kelly_fraction", 0.25)
	v.SetDefault("backtest.strategy.max_position_size_pct", 5.0)
	v.SetDefault("backtest.strategy.periods_per_year", 365)
	v.SetDefault("backtest.max_concurrent_runs", 4)
	v.SetDefault("backtest.monte_carlo_iterations", 1000)
	v.SetDefault("backtest.walk_forward_windows", 4)
	v.SetDefault("backtest.output_path", "output/backtests")

	v.SetDefault("feature_store.cache_ttl_seconds", 300)
	v.SetDefault("feature_store.cache_cleanup_seconds", 600)

	v.SetDefault("feed.rate_limit", 5)
	v.SetDefault("feed.timeout_seconds", 30)
	v.SetDefault("feed.retry_attempts", 3)
	v.SetDefault("feed.batch_size", 500)

	v.SetDefault("scheduler.feed_poll", "*/5 * * * *")
	v.SetDefault("scheduler.summary_refresh", "0 * * * *")

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 60)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}
