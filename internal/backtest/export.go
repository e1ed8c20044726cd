package backtest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/yourusername/edgecheck/internal/models"
)

// RunExport is the JSON document written for a finished run
type RunExport struct {
	ExportedAt    time.Time           `json:"exported_at"`
	ParameterHash string              `json:"parameter_hash"`
	Run           *models.BacktestRun `json:"run"`
	Aggregate     *AggregatedResult   `json:"aggregate,omitempty"`
}

// ExportRun writes a run and its optional aggregate as indented JSON
func ExportRun(w io.Writer, run *models.BacktestRun, agg *AggregatedResult) error {
	if run == nil {
		return fmt.Errorf("run is required")
	}
	doc := RunExport{
		ExportedAt:    time.Now().UTC(),
		ParameterHash: HashParameters(run.Config),
		Run:           run,
		Aggregate:     agg,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ExportRunToFile writes ExportRun output to path
func ExportRunToFile(path string, run *models.BacktestRun, agg *AggregatedResult) error {
	f, err := createReportFile(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ExportRun(f, run, agg)
}

// LoadRecords decodes settled predictions from a JSON array, as written by
// the summary export or produced by hand for offline backtests.
func LoadRecords(r io.Reader) ([]*models.SettledPrediction, error) {
	var records []*models.SettledPrediction
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode settled predictions: %w", err)
	}
	return records, nil
}

// LoadRecordsFromFile reads settled predictions from a JSON file
func LoadRecordsFromFile(path string) ([]*models.SettledPrediction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadRecords(f)
}
