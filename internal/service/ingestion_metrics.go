package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/edgecheck/internal/metrics"
)

// Ingestion record kinds and statuses reported to Prometheus
const (
	kindPrediction = "prediction"
	kindSettlement = "settlement"

	statusApplied   = "applied"
	statusDuplicate = "duplicate"
	statusRejected  = "rejected"
)

// IngestionMetrics tracks statistics about one feed poll
type IngestionMetrics struct {
	mu                   sync.RWMutex
	StartTime            time.Time
	Duration             time.Duration
	PredictionsApplied   int
	PredictionDuplicates int
	SettlementsApplied   int
	SettlementDuplicates int
	ValidationErrors     int
	Conflicts            int
	Errors               int
}

// NewIngestionMetrics creates a new metrics tracker
func NewIngestionMetrics() *IngestionMetrics {
	return &IngestionMetrics{
		StartTime: time.Now(),
	}
}

// Reset resets all metrics
func (m *IngestionMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.StartTime = time.Now()
	m.Duration = 0
	m.PredictionsApplied = 0
	m.PredictionDuplicates = 0
	m.SettlementsApplied = 0
	m.SettlementDuplicates = 0
	m.ValidationErrors = 0
	m.Conflicts = 0
	m.Errors = 0
}

// Record counts one processed feed record and mirrors it to Prometheus
func (m *IngestionMetrics) Record(kind, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case kind == kindPrediction && status == statusApplied:
		m.PredictionsApplied++
	case kind == kindPrediction && status == statusDuplicate:
		m.PredictionDuplicates++
	case kind == kindSettlement && status == statusApplied:
		m.SettlementsApplied++
	case kind == kindSettlement && status == statusDuplicate:
		m.SettlementDuplicates++
	}
	metrics.RecordIngestedRecord(kind, status)
}

// RecordValidationError counts a record rejected by validation
func (m *IngestionMetrics) RecordValidationError(kind string) {
	m.mu.Lock()
	m.ValidationErrors++
	m.mu.Unlock()
	metrics.RecordIngestedRecord(kind, statusRejected)
}

// RecordConflict counts a settlement that contradicts a stored result
func (m *IngestionMetrics) RecordConflict() {
	m.mu.Lock()
	m.Conflicts++
	m.mu.Unlock()
	metrics.RecordIngestedRecord(kindSettlement, statusRejected)
}

// RecordError counts a record that failed for any other reason
func (m *IngestionMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.Errors++
	m.mu.Unlock()
	metrics.RecordIngestedRecord(kind, statusRejected)
}

// Finish stamps the poll duration
func (m *IngestionMetrics) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Duration = time.Since(m.StartTime)
}

// Rejected returns the number of records that were not applied
func (m *IngestionMetrics) Rejected() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ValidationErrors + m.Conflicts + m.Errors
}

// String returns a formatted string representation of metrics
func (m *IngestionMetrics) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return fmt.Sprintf(
		"IngestionMetrics{Predictions=%d (dup %d), Settlements=%d (dup %d), ValidationErrors=%d, Conflicts=%d, Errors=%d, Duration=%v}",
		m.PredictionsApplied,
		m.PredictionDuplicates,
		m.SettlementsApplied,
		m.SettlementDuplicates,
		m.ValidationErrors,
		m.Conflicts,
		m.Errors,
		m.Duration,
	)
}
