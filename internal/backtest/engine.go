package backtest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/edgecheck/internal/logger"
	"github.com/yourusername/edgecheck/internal/metrics"
	"github.com/yourusername/edgecheck/internal/models"
	"github.com/yourusername/edgecheck/internal/repository"
)

// Job is one independent backtest submitted to RunBatch
type Job struct {
	Name    string
	Config  models.StrategyConfig
	Records []*models.SettledPrediction
}

// Engine orchestrates backtest runs and their lifecycle
type Engine struct {
	runs    repository.BacktestRunRepository
	options Options
	logger  *logger.BacktestLogger
	now     func() time.Time
}

// NewEngine creates a new backtesting engine. runs may be nil, in which case
// runs are returned but not persisted.
func NewEngine(runs repository.BacktestRunRepository, opts Options, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.New()
	}
	if opts.MaxConcurrentRuns <= 0 {
		opts.MaxConcurrentRuns = 1
	}
	return &Engine{
		runs:    runs,
		options: opts,
		logger:  logger.NewBacktestLogger(log),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the clock used for run timestamps
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Options returns the engine options
func (e *Engine) Options() Options {
	return e.options
}

// Run validates cfg, replays records and returns the finished run. A run
// that fails mid-replay is returned in FAILED state with a nil error; the
// error is reserved for rejected configs and persistence failures.
func (e *Engine) Run(ctx context.Context, name string, cfg models.StrategyConfig, records []*models.SettledPrediction) (*models.BacktestRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateStrategyConfig(cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = fmt.Sprintf("%s-%s", cfg.PositionSizing, HashParameters(cfg))
	}

	run := models.NewBacktestRun(name, cfg, e.now())
	if err := e.save(ctx, run); err != nil {
		return nil, err
	}

	if err := run.Transition(models.RunStatusRunning, e.now()); err != nil {
		return nil, err
	}
	if err := e.save(ctx, run); err != nil {
		return nil, err
	}
	e.logger.LogRunStarted(run, len(records))

	started := time.Now()
	state, replayErr := replay(run.Config, records, *run.StartedAt, &runObserver{run: run, log: e.logger})

	run.Result = CalculateResult(state, run.Config)
	run.TerminationReason = state.TerminationReason

	status := models.RunStatusCompleted
	if replayErr != nil {
		status = models.RunStatusFailed
		run.TerminationReason = models.TerminationError
		run.ErrorMessage = replayErr.Error()
	}
	if err := run.Transition(status, e.now()); err != nil {
		return nil, err
	}

	sizing := string(run.Config.PositionSizing)
	metrics.RecordBacktestRun(sizing, strings.ToLower(string(status)), time.Since(started).Seconds(), run.Result.TotalTrades)
	if status == models.RunStatusCompleted {
		metrics.RecordBacktestReturn(sizing, run.Result.TotalReturnPct)
		e.logger.LogRunCompleted(run)
	} else {
		e.logger.LogRunFailed(run, replayErr)
	}

	if err := e.save(ctx, run); err != nil {
		return run, err
	}
	return run, nil
}

// RunBatch executes independent backtests concurrently, bounded by
// MaxConcurrentRuns. Results keep the order of jobs.
func (e *Engine) RunBatch(ctx context.Context, jobs []Job) ([]*models.BacktestRun, error) {
	runs := make([]*models.BacktestRun, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.options.MaxConcurrentRuns)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			run, err := e.Run(gctx, job.Name, job.Config, job.Records)
			if err != nil {
				return fmt.Errorf("backtest %q: %w", job.Name, err)
			}
			runs[i] = run
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return runs, err
	}
	return runs, nil
}

// Analyze runs the monte carlo and walk-forward checks enabled in the engine
// options and scores the run. Failed runs are scored on their partial result.
func (e *Engine) Analyze(ctx context.Context, run *models.BacktestRun, records []*models.SettledPrediction) (*AggregatedResult, error) {
	var mc *MonteCarloResult
	var wf *WalkForwardResult

	if run.Result != nil && e.options.MonteCarloIterations > 0 && len(run.Result.Trades) > 0 {
		result, err := RunMonteCarlo(ctx, run.Result.Trades, MonteCarloConfig{
			Iterations:     e.options.MonteCarloIterations,
			Seed:           int64(run.ID.ID()),
			InitialCapital: run.Config.InitialCapital,
		})
		if err != nil {
			return nil, fmt.Errorf("monte carlo for run %s: %w", run.ID, err)
		}
		mc = &result
	}
	if e.options.WalkForwardWindows > 0 && len(records) > 0 {
		result, err := RunWalkForward(run.Config, records, WalkForwardConfig{Windows: e.options.WalkForwardWindows})
		if err != nil {
			return nil, fmt.Errorf("walk-forward for run %s: %w", run.ID, err)
		}
		wf = &result
	}

	agg := AggregateResults(run, mc, wf, DefaultAggregationWeights())
	return &agg, nil
}

func (e *Engine) save(ctx context.Context, run *models.BacktestRun) error {
	if e.runs == nil {
		return nil
	}
	if err := e.runs.Save(ctx, run); err != nil {
		return fmt.Errorf("failed to persist backtest run %s: %w", run.ID, err)
	}
	return nil
}

type runObserver struct {
	run *models.BacktestRun
	log *logger.BacktestLogger
}

func (o *runObserver) OnTrade(trade models.Trade) {
	o.log.LogTrade(o.run, trade)
}

func (o *runObserver) OnSkip(prediction *models.Prediction, reason string) {
	o.log.LogSkip(o.run, prediction.ID.String(), reason)
}

func (o *runObserver) OnCircuitBreaker(drawdownPct, limitPct float64, remaining int) {
	metrics.RecordCircuitBreakerTrip()
	o.log.LogCircuitBreaker(o.run, drawdownPct, limitPct, remaining)
}
