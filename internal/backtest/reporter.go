package backtest

import (
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/edgecheck/internal/models"
)

// GenerateConsoleReport formats a run for terminal output
func GenerateConsoleReport(run *models.BacktestRun, agg *AggregatedResult) string {
	var b strings.Builder
	b.WriteString("Backtest Report\n")
	b.WriteString("================\n")
	b.WriteString(fmt.Sprintf("Run: %s (%s)\n", run.Name, run.ID))
	b.WriteString(fmt.Sprintf("Status: %s\n", run.Status))
	if run.TerminationReason != "" {
		b.WriteString(fmt.Sprintf("Termination: %s\n", run.TerminationReason))
	}
	if run.ErrorMessage != "" {
		b.WriteString(fmt.Sprintf("Error: %s\n", run.ErrorMessage))
	}

	if r := run.Result; r != nil {
		b.WriteString(fmt.Sprintf("Trades: %d (won %d, lost %d, skipped %d)\n", r.TotalTrades, r.WinningTrades, r.LosingTrades, r.SkippedPredictions))
		b.WriteString(fmt.Sprintf("Final Capital: %.2f\n", r.FinalCapital))
		b.WriteString(fmt.Sprintf("Total Return: %.2f%%\n", r.TotalReturnPct))
		b.WriteString(fmt.Sprintf("Annualized Return: %.2f%%\n", r.AnnualizedReturnPct))
		b.WriteString(fmt.Sprintf("Win Rate: %.2f%%\n", r.WinRate*100))
		b.WriteString(fmt.Sprintf("Sharpe Ratio: %.2f\n", r.SharpeRatio))
		b.WriteString(fmt.Sprintf("Sortino Ratio: %s\n", r.SortinoRatio))
		b.WriteString(fmt.Sprintf("Calmar Ratio: %.2f\n", r.CalmarRatio))
		b.WriteString(fmt.Sprintf("Max Drawdown: %.2f%%\n", r.MaxDrawdownPct))
		b.WriteString(fmt.Sprintf("Profit Factor: %s\n", r.ProfitFactor))
	}

	if agg != nil {
		if agg.MonteCarlo != nil {
			b.WriteString(fmt.Sprintf("Monte Carlo: mean %.2f%%, P(profit) %.2f, P(ruin) %.2f\n",
				agg.MonteCarlo.MeanReturnPct, agg.MonteCarlo.ProbabilityOfProfit, agg.MonteCarlo.ProbabilityOfRuin))
		}
		if agg.WalkForward != nil {
			b.WriteString(fmt.Sprintf("Walk-Forward: %d windows, mean %.2f%%, consistency %.2f\n",
				agg.WalkForward.ScoredWindowCount, agg.WalkForward.MeanReturnPct, agg.WalkForward.ConsistencyScore))
		}
		b.WriteString(fmt.Sprintf("Composite Score: %.2f\n", agg.CompositeScore))
		b.WriteString(fmt.Sprintf("Recommendation: %s\n", agg.Recommendation))
	}
	return b.String()
}

var htmlReport = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head><title>Backtest Report - {{.Run.Name}}</title></head>
<body>
<h1>Backtest Report</h1>
<p><strong>Run:</strong> {{.Run.Name}} ({{.Run.ID}})</p>
<p><strong>Status:</strong> {{.Run.Status}} {{.Run.TerminationReason}}</p>
{{with .Run.Result}}
<table>
<tr><td>Trades</td><td>{{.TotalTrades}}</td></tr>
<tr><td>Final Capital</td><td>{{printf "%.2f" .FinalCapital}}</td></tr>
<tr><td>Total Return</td><td>{{printf "%.2f" .TotalReturnPct}}%</td></tr>
<tr><td>Win Rate</td><td>{{printf "%.2f" .WinRate}}</td></tr>
<tr><td>Sharpe Ratio</td><td>{{printf "%.2f" .SharpeRatio}}</td></tr>
<tr><td>Sortino Ratio</td><td>{{.SortinoRatio}}</td></tr>
<tr><td>Max Drawdown</td><td>{{printf "%.2f" .MaxDrawdownPct}}%</td></tr>
<tr><td>Profit Factor</td><td>{{.ProfitFactor}}</td></tr>
</table>
{{end}}
{{with .Aggregate}}
<p><strong>Composite Score:</strong> {{printf "%.2f" .CompositeScore}}</p>
<p><strong>Recommendation:</strong> {{.Recommendation}}</p>
{{end}}
</body>
</html>
`))

// GenerateHTMLReport writes an HTML report to outputPath
func GenerateHTMLReport(run *models.BacktestRun, agg *AggregatedResult, outputPath string) error {
	f, err := createReportFile(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	data := struct {
		Run       *models.BacktestRun
		Aggregate *AggregatedResult
	}{Run: run, Aggregate: agg}
	if err := htmlReport.Execute(f, data); err != nil {
		return fmt.Errorf("failed to render html report: %w", err)
	}
	return nil
}

// GenerateCSVExport writes the trades of a run to outputPath
func GenerateCSVExport(run *models.BacktestRun, outputPath string) error {
	f, err := createReportFile(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	trades := []models.Trade{}
	if run.Result != nil {
		trades = run.Result.Trades
	}
	return WriteTradesCSV(f, trades)
}

// WriteTradesCSV writes one row per trade
func WriteTradesCSV(w io.Writer, trades []models.Trade) error {
	cw := csv.NewWriter(w)
	header := []string{"prediction_id", "ticker", "side", "probability", "price", "payout_odds", "stake", "won", "pnl", "capital_after", "settled_at"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, t := range trades {
		row := []string{
			t.PredictionID.String(),
			t.Ticker,
			string(t.Side),
			strconv.FormatFloat(t.Probability, 'f', 4, 64),
			strconv.FormatFloat(t.Price, 'f', 4, 64),
			strconv.FormatFloat(t.PayoutOdds, 'f', 4, 64),
			strconv.FormatFloat(t.Stake, 'f', 2, 64),
			strconv.FormatBool(t.Won),
			strconv.FormatFloat(t.PnL, 'f', 2, 64),
			strconv.FormatFloat(t.CapitalAfter, 'f', 2, 64),
			t.SettledAt.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func createReportFile(outputPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, err
	}
	return os.Create(outputPath)
}
