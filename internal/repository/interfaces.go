package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/edgecheck/internal/models"
)

// PredictionRepository defines append-only access to predictions
type PredictionRepository interface {
	// Insert stores a new prediction; an existing id yields models.ErrDuplicateKey
	Insert(ctx context.Context, prediction *models.Prediction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Prediction, error)
	// ListSince returns predictions created at or after since, oldest first
	ListSince(ctx context.Context, since time.Time, limit int) ([]*models.Prediction, error)
}

// SettlementRepository stores outcomes together with their derived performance records
type SettlementRepository interface {
	// SaveSettlement persists the outcome and record atomically. An existing
	// outcome for the prediction yields models.ErrDuplicateKey and nothing is written.
	SaveSettlement(ctx context.Context, outcome *models.Outcome, record *models.PerformanceRecord) error
	// GetSettlement returns the outcome and record of a prediction or models.ErrNotFound
	GetSettlement(ctx context.Context, predictionID uuid.UUID) (*models.Outcome, *models.PerformanceRecord, error)
	// ListSettled returns settled predictions ordered by settlement time,
	// then prediction creation time, then id.
	ListSettled(ctx context.Context, filter models.PerformanceFilter) ([]*models.SettledPrediction, error)
}

// BacktestRunRepository persists backtest runs and their results
type BacktestRunRepository interface {
	// Save inserts or replaces the run by id
	Save(ctx context.Context, run *models.BacktestRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BacktestRun, error)
	// GetLatest returns the most recently created runs first
	GetLatest(ctx context.Context, limit int) ([]*models.BacktestRun, error)
}

// FeatureRepository stores versioned feature snapshots
type FeatureRepository interface {
	// Upsert replaces the whole feature map stored under the record's key
	Upsert(ctx context.Context, record *models.FeatureRecord) error
	Get(ctx context.Context, key models.FeatureKey) (*models.FeatureRecord, error)
	// ListBySet returns every record of a version/set ordered by entity id
	ListBySet(ctx context.Context, version, featureSet string) ([]*models.FeatureRecord, error)
}
