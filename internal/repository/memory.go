package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/edgecheck/internal/models"
)

// MemoryPredictionRepository is a process-local PredictionRepository
type MemoryPredictionRepository struct {
	mu          sync.RWMutex
	predictions map[uuid.UUID]models.Prediction
}

// NewMemoryPredictionRepository creates an empty in-memory prediction store
func NewMemoryPredictionRepository() *MemoryPredictionRepository {
	return &MemoryPredictionRepository{predictions: make(map[uuid.UUID]models.Prediction)}
}

// Insert stores a copy of the prediction
func (r *MemoryPredictionRepository) Insert(_ context.Context, p *models.Prediction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.predictions[p.ID]; exists {
		return fmt.Errorf("prediction %s: %w", p.ID, models.ErrDuplicateKey)
	}
	r.predictions[p.ID] = *p
	return nil
}

// GetByID returns a copy of the stored prediction
func (r *MemoryPredictionRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Prediction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.predictions[id]
	if !ok {
		return nil, fmt.Errorf("prediction %s: %w", id, models.ErrNotFound)
	}
	return &p, nil
}

// ListSince returns predictions created at or after since, oldest first
func (r *MemoryPredictionRepository) ListSince(_ context.Context, since time.Time, limit int) ([]*models.Prediction, error) {
	r.mu.RLock()
	var out []*models.Prediction
	for _, p := range r.predictions {
		if !p.CreatedAt.Before(since) {
			p := p
			out = append(out, &p)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type settlement struct {
	outcome models.Outcome
	record  models.PerformanceRecord
}

// MemorySettlementRepository is a process-local SettlementRepository
type MemorySettlementRepository struct {
	mu          sync.RWMutex
	predictions *MemoryPredictionRepository
	settled     map[uuid.UUID]settlement
}

// NewMemorySettlementRepository creates a settlement store joined against predictions
func NewMemorySettlementRepository(predictions *MemoryPredictionRepository) *MemorySettlementRepository {
	return &MemorySettlementRepository{
		predictions: predictions,
		settled:     make(map[uuid.UUID]settlement),
	}
}

// SaveSettlement stores the outcome and record together
func (r *MemorySettlementRepository) SaveSettlement(ctx context.Context, o *models.Outcome, rec *models.PerformanceRecord) error {
	if _, err := r.predictions.GetByID(ctx, o.PredictionID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.settled[o.PredictionID]; exists {
		return fmt.Errorf("outcome for %s: %w", o.PredictionID, models.ErrDuplicateKey)
	}
	r.settled[o.PredictionID] = settlement{outcome: *o, record: *rec}
	return nil
}

// GetSettlement returns copies of the stored outcome and record
func (r *MemorySettlementRepository) GetSettlement(_ context.Context, predictionID uuid.UUID) (*models.Outcome, *models.PerformanceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.settled[predictionID]
	if !ok {
		return nil, nil, fmt.Errorf("settlement for %s: %w", predictionID, models.ErrNotFound)
	}
	return &s.outcome, &s.record, nil
}

// ListSettled returns settled predictions matching the filter
func (r *MemorySettlementRepository) ListSettled(ctx context.Context, filter models.PerformanceFilter) ([]*models.SettledPrediction, error) {
	r.mu.RLock()
	snapshot := make([]settlement, 0, len(r.settled))
	for _, s := range r.settled {
		snapshot = append(snapshot, s)
	}
	r.mu.RUnlock()

	out := make([]*models.SettledPrediction, 0, len(snapshot))
	for _, s := range snapshot {
		p, err := r.predictions.GetByID(ctx, s.outcome.PredictionID)
		if err != nil {
			return nil, err
		}
		rec := s.record
		sp := &models.SettledPrediction{Prediction: *p, Outcome: s.outcome, Record: &rec}
		if filter.Matches(sp) {
			out = append(out, sp)
		}
	}

	SortSettled(out)
	return out, nil
}

// SortSettled orders settled predictions by settlement time, then creation time, then id
func SortSettled(records []*models.SettledPrediction) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.Outcome.SettledAt.Equal(b.Outcome.SettledAt) {
			return a.Outcome.SettledAt.Before(b.Outcome.SettledAt)
		}
		if !a.Prediction.CreatedAt.Equal(b.Prediction.CreatedAt) {
			return a.Prediction.CreatedAt.Before(b.Prediction.CreatedAt)
		}
		return a.Prediction.ID.String() < b.Prediction.ID.String()
	})
}

// MemoryBacktestRunRepository is a process-local BacktestRunRepository
type MemoryBacktestRunRepository struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]models.BacktestRun
}

// NewMemoryBacktestRunRepository creates an empty in-memory run store
func NewMemoryBacktestRunRepository() *MemoryBacktestRunRepository {
	return &MemoryBacktestRunRepository{runs: make(map[uuid.UUID]models.BacktestRun)}
}

// Save inserts or replaces a run
func (r *MemoryBacktestRunRepository) Save(_ context.Context, run *models.BacktestRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = *run
	return nil
}

// GetByID returns a copy of a stored run
func (r *MemoryBacktestRunRepository) GetByID(_ context.Context, id uuid.UUID) (*models.BacktestRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, fmt.Errorf("backtest run %s: %w", id, models.ErrNotFound)
	}
	return &run, nil
}

// GetLatest returns the most recent runs first
func (r *MemoryBacktestRunRepository) GetLatest(_ context.Context, limit int) ([]*models.BacktestRun, error) {
	r.mu.RLock()
	out := make([]*models.BacktestRun, 0, len(r.runs))
	for _, run := range r.runs {
		run := run
		out = append(out, &run)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MemoryFeatureRepository is a process-local FeatureRepository
type MemoryFeatureRepository struct {
	mu       sync.RWMutex
	features map[models.FeatureKey]models.FeatureRecord
}

// NewMemoryFeatureRepository creates an empty in-memory feature store
func NewMemoryFeatureRepository() *MemoryFeatureRepository {
	return &MemoryFeatureRepository{features: make(map[models.FeatureKey]models.FeatureRecord)}
}

// Upsert replaces the record stored under its key
func (r *MemoryFeatureRepository) Upsert(_ context.Context, rec *models.FeatureRecord) error {
	stored := *rec
	stored.Features = models.CopyFeatures(rec.Features)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.features[rec.Key()] = stored
	return nil
}

// Get returns a copy of the record stored under key
func (r *MemoryFeatureRepository) Get(_ context.Context, key models.FeatureKey) (*models.FeatureRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.features[key]
	if !ok {
		return nil, fmt.Errorf("features %s: %w", key, models.ErrNotFound)
	}
	rec.Features = models.CopyFeatures(rec.Features)
	return &rec, nil
}

// ListBySet returns all records for a version and feature set ordered by entity id
func (r *MemoryFeatureRepository) ListBySet(_ context.Context, version, featureSet string) ([]*models.FeatureRecord, error) {
	r.mu.RLock()
	var out []*models.FeatureRecord
	for key, rec := range r.features {
		if key.FeatureVersion == version && key.FeatureSet == featureSet {
			rec := rec
			rec.Features = models.CopyFeatures(rec.Features)
			out = append(out, &rec)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out, nil
}
