package backtest

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/yourusername/edgecheck/internal/analytics"
	"github.com/yourusername/edgecheck/internal/models"
)

// EquityCurve represents a time-series of equity points
type EquityCurve []models.EquityPoint

// Values returns the capital series
func (e EquityCurve) Values() []float64 {
	values := make([]float64, len(e))
	for i, p := range e {
		values[i] = p.Capital
	}
	return values
}

// GetReturns calculates periodic returns from equity curve
func (e EquityCurve) GetReturns() []float64 {
	return analytics.Returns(e.Values())
}

// GetVolatility calculates standard deviation of returns
func (e EquityCurve) GetVolatility() float64 {
	return analytics.StdDev(e.GetReturns())
}

// Span returns the elapsed time between the first and last point
func (e EquityCurve) Span() time.Duration {
	if len(e) < 2 {
		return 0
	}
	return e[len(e)-1].Time.Sub(e[0].Time)
}

// WriteCSV exports the equity curve as CSV
func (e EquityCurve) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "capital", "drawdown_pct"}); err != nil {
		return err
	}
	for _, point := range e {
		row := []string{
			point.Time.Format(time.RFC3339),
			strconv.FormatFloat(point.Capital, 'f', 2, 64),
			strconv.FormatFloat(point.DrawdownPct, 'f', 4, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ToJSON exports equity curve to JSON string
func (e EquityCurve) ToJSON() string {
	data, _ := json.Marshal(e)
	return string(data)
}
