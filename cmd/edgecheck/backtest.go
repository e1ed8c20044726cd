package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/edgecheck/internal/backtest"
	"github.com/yourusername/edgecheck/internal/models"
)

var backtestFlags struct {
	name          string
	input         string
	sizing        string
	minConfidence float64
	minEdge       float64
	maxDrawdown   float64
	analyze       bool
	outputDir     string
	filter        filterFlags
}

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay a strategy over settled predictions",
	Long: `Replays the configured strategy over settled predictions, loaded from
storage or from a JSON file, and prints a report. With --analyze the run is
also checked with monte carlo and walk-forward simulations.`,
	RunE: runBacktestCmd,
}

func init() {
	f := backtestCmd.Flags()
	f.StringVar(&backtestFlags.name, "name", "", "Run name (defaults to sizing and parameter hash)")
	f.StringVarP(&backtestFlags.input, "input", "i", "", "JSON file of settled predictions instead of storage")
	f.StringVar(&backtestFlags.sizing, "sizing", "", "Override position sizing: kelly, fixed or proportional")
	f.Float64Var(&backtestFlags.minConfidence, "min-confidence", -1, "Override minimum confidence")
	f.Float64Var(&backtestFlags.minEdge, "min-edge", -1, "Override minimum edge in percentage points")
	f.Float64Var(&backtestFlags.maxDrawdown, "max-drawdown", 0, "Override max drawdown circuit breaker in percent")
	f.BoolVar(&backtestFlags.analyze, "analyze", false, "Run monte carlo and walk-forward analysis")
	f.StringVarP(&backtestFlags.outputDir, "output", "o", "", "Directory for JSON, HTML and CSV reports (defaults to backtest.output_path)")
	backtestFlags.filter.register(f)
}

func runBacktestCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	strategy := applyStrategyOverrides(a.strategy)

	var records []*models.SettledPrediction
	if backtestFlags.input != "" {
		records, err = backtest.LoadRecordsFromFile(backtestFlags.input)
	} else {
		filter, ferr := backtestFlags.filter.build()
		if ferr != nil {
			return ferr
		}
		records, err = a.repos.Settlement.ListSettled(ctx, filter)
	}
	if err != nil {
		return err
	}

	run, err := a.engine.Run(ctx, backtestFlags.name, strategy, records)
	if err != nil {
		return err
	}

	var agg *backtest.AggregatedResult
	if backtestFlags.analyze {
		agg, err = a.engine.Analyze(ctx, run, records)
		if err != nil {
			return err
		}
	}
	fmt.Println(backtest.GenerateConsoleReport(run, agg))

	outputDir := backtestFlags.outputDir
	if outputDir == "" {
		outputDir = a.engine.Options().OutputPath
	}
	if outputDir != "" {
		if err := writeBacktestReports(outputDir, run, agg); err != nil {
			return err
		}
	}

	if run.Status == models.RunStatusFailed {
		return fmt.Errorf("backtest %s failed: %s", run.ID, run.ErrorMessage)
	}
	return nil
}

func applyStrategyOverrides(strategy models.StrategyConfig) models.StrategyConfig {
	if backtestFlags.sizing != "" {
		strategy.PositionSizing = models.PositionSizing(backtestFlags.sizing)
	}
	if backtestFlags.minConfidence >= 0 {
		strategy.MinConfidence = backtestFlags.minConfidence
	}
	if backtestFlags.minEdge >= 0 {
		strategy.MinEdge = backtestFlags.minEdge
	}
	if backtestFlags.maxDrawdown > 0 {
		limit := backtestFlags.maxDrawdown
		strategy.MaxDrawdownPct = &limit
	}
	return strategy
}

func writeBacktestReports(dir string, run *models.BacktestRun, agg *backtest.AggregatedResult) error {
	base := filepath.Join(dir, fmt.Sprintf("%s_%s", run.CreatedAt.Format("20060102T150405"), run.ID.String()[:8]))

	if err := backtest.ExportRunToFile(base+".json", run, agg); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}
	if err := backtest.GenerateHTMLReport(run, agg, base+".html"); err != nil {
		return fmt.Errorf("failed to write HTML report: %w", err)
	}
	if err := backtest.GenerateCSVExport(run, base+"_trades.csv"); err != nil {
		return fmt.Errorf("failed to write trade CSV: %w", err)
	}
	log.WithField("path", base).Info("Backtest reports written")
	return nil
}

// filterFlags are the performance filter options shared by several commands
type filterFlags struct {
	from          string
	to            string
	category      string
	modelID       string
	minConfidence float64
}

type flagSet interface {
	StringVar(p *string, name string, value string, usage string)
	Float64Var(p *float64, name string, value float64, usage string)
}

func (f *filterFlags) register(fs flagSet) {
	fs.StringVar(&f.from, "from", "", "Only predictions settled at or after this RFC3339 time")
	fs.StringVar(&f.to, "to", "", "Only predictions settled at or before this RFC3339 time")
	fs.StringVar(&f.category, "category", "", "Only predictions in this category")
	fs.StringVar(&f.modelID, "model", "", "Only predictions from this model")
	fs.Float64Var(&f.minConfidence, "filter-min-confidence", 0, "Only predictions with at least this confidence")
}

func (f *filterFlags) build() (models.PerformanceFilter, error) {
	filter := models.PerformanceFilter{
		Category:      f.category,
		ModelID:       f.modelID,
		MinConfidence: f.minConfidence,
	}
	for _, bound := range []struct {
		name   string
		raw    string
		target **time.Time
	}{{"from", f.from, &filter.From}, {"to", f.to, &filter.To}} {
		if bound.raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, bound.raw)
		if err != nil {
			return filter, fmt.Errorf("invalid --%s: %w", bound.name, err)
		}
		t = t.UTC()
		*bound.target = &t
	}
	return filter, nil
}
