package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/edgecheck/internal/api"
	"github.com/yourusername/edgecheck/internal/datasource"
	"github.com/yourusername/edgecheck/internal/health"
	"github.com/yourusername/edgecheck/internal/scheduler"
	"github.com/yourusername/edgecheck/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var pinger health.DatabasePinger
	if a.db != nil {
		pinger = a.db
	}
	checker := health.NewChecker(cfg.App.Name, Version, pinger)

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	router := api.NewRouter(api.Dependencies{
		Tracker:     a.tracker,
		Features:    a.features,
		Engine:      a.engine,
		Runs:        a.repos.BacktestRun,
		Settlements: a.repos.Settlement,
		Health:      checker,
		MetricsPath: metricsPath,
		Logger:      log,
	})
	server := api.NewServer(cfg.Server, router, log)

	sched, err := newScheduler(a)
	if err != nil {
		return err
	}
	if sched != nil {
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		checker.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	checker.SetReady(true)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newScheduler returns nil when background jobs are disabled
func newScheduler(a *app) (*scheduler.Scheduler, error) {
	if !cfg.Scheduler.Enabled {
		return nil, nil
	}
	sched := scheduler.NewScheduler(log)

	if cfg.Feed.Enabled && cfg.Scheduler.FeedPoll != "" {
		httpClient := datasource.NewRateLimitedHTTPClient(datasource.HTTPClientConfigFromFeed(cfg.Feed), log)
		feed := datasource.NewFeedClient(httpClient, cfg.Feed)
		ingestion := service.NewIngestionService(
			feed,
			a.tracker,
			service.NewDataValidator(5*time.Minute),
			service.NewDataNormalizer(),
			log,
			cfg.Feed.BatchSize,
		)
		if err := sched.ScheduleFeedPoll(cfg.Scheduler.FeedPoll, ingestion); err != nil {
			return nil, fmt.Errorf("failed to schedule feed poll: %w", err)
		}
	}
	if cfg.Scheduler.SummaryRefresh != "" {
		if err := sched.ScheduleSummaryRefresh(cfg.Scheduler.SummaryRefresh, a.tracker); err != nil {
			return nil, fmt.Errorf("failed to schedule summary refresh: %w", err)
		}
	}

	if len(sched.Jobs()) == 0 {
		return nil, nil
	}
	return sched, nil
}
