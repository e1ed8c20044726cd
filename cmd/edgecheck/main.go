// Package main provides the edgecheck command line tool.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/edgecheck/internal/backtest"
	"github.com/yourusername/edgecheck/internal/config"
	"github.com/yourusername/edgecheck/internal/database"
	"github.com/yourusername/edgecheck/internal/logger"
	"github.com/yourusername/edgecheck/internal/metrics"
	"github.com/yourusername/edgecheck/internal/models"
	"github.com/yourusername/edgecheck/internal/repository"
	"github.com/yourusername/edgecheck/internal/service"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	configFile string
	cfg        *config.Config
	log        *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:           "edgecheck",
	Short:         "Prediction performance tracking and backtesting",
	Long:          `Tracks probabilistic predictions against market outcomes, serves performance analytics and replays strategies over settled history.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("edgecheck %s (%s)\n", Version, GitCommit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config/config.yaml", "Path to configuration file")
	rootCmd.AddCommand(versionCmd, serveCmd, backtestCmd, summaryCmd, featuresCmd, migrateCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(ctx context.Context) error {
	loaded, err := config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}
	if err := config.ReloadFromEnv(loaded); err != nil {
		return err
	}
	if err := config.LoadSecretsFromAWS(ctx, loaded); err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	if err := config.Validate(loaded); err != nil {
		return err
	}

	cfg = loaded
	log = logger.NewLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	metrics.InitRegistry()
	return nil
}

// app wires the storage backend and the services built on it
type app struct {
	db       *database.DB
	repos    *repository.Repositories
	tracker  *service.PerformanceTracker
	features *service.FeatureStore
	engine   *backtest.Engine
	strategy models.StrategyConfig
}

func newApp(ctx context.Context) (*app, error) {
	a := &app{}
	if cfg.UsesPostgres() {
		db, err := database.Initialize(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		repos, err := repository.NewRepositories(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		a.db, a.repos = db, repos
	} else {
		log.Warn("Using in-memory storage, data is lost on exit")
		a.repos = repository.NewMemoryRepositories()
	}

	strategy, opts, err := backtest.FromConfig(&cfg.Backtest)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.strategy = strategy

	a.tracker = service.NewPerformanceTracker(a.repos.Prediction, a.repos.Settlement, cfg.Tracker, log)
	a.features = service.NewFeatureStore(a.repos.Feature, cfg.FeatureStore, log)
	a.engine = backtest.NewEngine(a.repos.BacktestRun, opts, log)
	return a, nil
}

// Close releases the database pool
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
