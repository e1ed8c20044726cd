// Package repository provides Postgres and in-memory persistence for the domain models.
package repository

import (
	"fmt"

	"github.com/yourusername/edgecheck/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Prediction  PredictionRepository
	Settlement  SettlementRepository
	BacktestRun BacktestRunRepository
	Feature     FeatureRepository
}

// NewRepositories creates and returns all Postgres repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Prediction:  NewPostgresPredictionRepository(db),
		Settlement:  NewPostgresSettlementRepository(db),
		BacktestRun: NewPostgresBacktestRunRepository(db),
		Feature:     NewPostgresFeatureRepository(db),
	}, nil
}

// NewMemoryRepositories returns process-local repositories sharing one prediction store
func NewMemoryRepositories() *Repositories {
	predictions := NewMemoryPredictionRepository()
	return &Repositories{
		Prediction:  predictions,
		Settlement:  NewMemorySettlementRepository(predictions),
		BacktestRun: NewMemoryBacktestRunRepository(),
		Feature:     NewMemoryFeatureRepository(),
	}
}
