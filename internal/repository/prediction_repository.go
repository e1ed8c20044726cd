package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/edgecheck/internal/database"
	"github.com/yourusername/edgecheck/internal/models"
)

const predictionColumns = `id, ticker, category, model_id, predicted_probability,
	market_probability, confidence, edge, created_at, close_time`

// PostgresPredictionRepository implements PredictionRepository for PostgreSQL
type PostgresPredictionRepository struct {
	db *database.DB
}

// NewPostgresPredictionRepository creates a new prediction repository
func NewPostgresPredictionRepository(db *database.DB) PredictionRepository {
	return &PostgresPredictionRepository{db: db}
}

// Insert stores a new prediction
func (r *PostgresPredictionRepository) Insert(ctx context.Context, p *models.Prediction) error {
	query := `INSERT INTO predictions (` + predictionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		p.ID, p.Ticker, p.Category, p.ModelID, p.PredictedProbability,
		p.MarketProbability, p.Confidence, p.Edge, p.CreatedAt, p.CloseTime,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("prediction %s: %w", p.ID, models.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to insert prediction: %w", err)
	}
	return nil
}

// GetByID retrieves a prediction by id
func (r *PostgresPredictionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Prediction, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE id = $1`

	p, err := scanPrediction(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("prediction %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}
	return p, nil
}

// ListSince returns predictions created at or after since
func (r *PostgresPredictionRepository) ListSince(ctx context.Context, since time.Time, limit int) ([]*models.Prediction, error) {
	if limit <= 0 {
		limit = 1000
	}
	query := `SELECT ` + predictionColumns + ` FROM predictions
		WHERE created_at >= $1 ORDER BY created_at, id LIMIT $2`

	rows, err := r.db.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var predictions []*models.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, p)
	}
	return predictions, rows.Err()
}

func scanPrediction(row pgx.Row) (*models.Prediction, error) {
	p := &models.Prediction{}
	err := row.Scan(
		&p.ID, &p.Ticker, &p.Category, &p.ModelID, &p.PredictedProbability,
		&p.MarketProbability, &p.Confidence, &p.Edge, &p.CreatedAt, &p.CloseTime,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}
