package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/yourusername/edgecheck/internal/database"
	"github.com/yourusername/edgecheck/internal/models"
)

const errScanSettlement = "failed to scan settlement: %w"

// PostgresSettlementRepository implements SettlementRepository for PostgreSQL
type PostgresSettlementRepository struct {
	db *database.DB
}

// NewPostgresSettlementRepository creates a new settlement repository
func NewPostgresSettlementRepository(db *database.DB) SettlementRepository {
	return &PostgresSettlementRepository{db: db}
}

// SaveSettlement inserts the outcome and performance record in one transaction
func (r *PostgresSettlementRepository) SaveSettlement(ctx context.Context, o *models.Outcome, rec *models.PerformanceRecord) error {
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO prediction_outcomes (prediction_id, actual_result, settled_at) VALUES ($1, $2, $3)`,
			o.PredictionID, o.ActualResult, o.SettledAt,
		)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO prediction_performance (
				prediction_id, actual_outcome, is_correct, stake, pnl, roi_percent,
				brier_score, log_loss, settled_at, created_at
			) VALUES ($1, $2, $3, $4::text::numeric, $5::text::numeric, $6::text::numeric, $7, $8, $9, $10)`,
			rec.PredictionID, rec.ActualOutcome, rec.IsCorrect,
			rec.Stake.String(), rec.PnL.String(), rec.ROIPercent.String(),
			rec.BrierScore, rec.LogLoss, rec.SettledAt, rec.CreatedAt,
		)
		return err
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("outcome for %s: %w", o.PredictionID, models.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to save settlement: %w", err)
	}
	return nil
}

// GetSettlement retrieves the outcome and record of a prediction
func (r *PostgresSettlementRepository) GetSettlement(ctx context.Context, predictionID uuid.UUID) (*models.Outcome, *models.PerformanceRecord, error) {
	query := `
		SELECT o.prediction_id, o.actual_result, o.settled_at,
			p.actual_outcome, p.is_correct, p.stake::text, p.pnl::text, p.roi_percent::text,
			p.brier_score, p.log_loss, p.settled_at, p.created_at
		FROM prediction_outcomes o
		JOIN prediction_performance p ON p.prediction_id = o.prediction_id
		WHERE o.prediction_id = $1`

	o := &models.Outcome{}
	rec := &models.PerformanceRecord{}
	var stake, pnl, roi string
	err := r.db.QueryRow(ctx, query, predictionID).Scan(
		&o.PredictionID, &o.ActualResult, &o.SettledAt,
		&rec.ActualOutcome, &rec.IsCorrect, &stake, &pnl, &roi,
		&rec.BrierScore, &rec.LogLoss, &rec.SettledAt, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, fmt.Errorf("settlement for %s: %w", predictionID, models.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	rec.PredictionID = o.PredictionID
	if err := parseMoney(rec, stake, pnl, roi); err != nil {
		return nil, nil, err
	}
	return o, rec, nil
}

// ListSettled returns settled predictions matching the filter
func (r *PostgresSettlementRepository) ListSettled(ctx context.Context, filter models.PerformanceFilter) ([]*models.SettledPrediction, error) {
	var (
		conditions []string
		args       []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}
	if filter.From != nil {
		add("o.settled_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("o.settled_at <= $%d", *filter.To)
	}
	if filter.Category != "" {
		add("pr.category = $%d", filter.Category)
	}
	if filter.ModelID != "" {
		add("pr.model_id = $%d", filter.ModelID)
	}
	if filter.MinConfidence > 0 {
		add("pr.confidence >= $%d", filter.MinConfidence)
	}

	query := `
		SELECT pr.id, pr.ticker, pr.category, pr.model_id, pr.predicted_probability,
			pr.market_probability, pr.confidence, pr.edge, pr.created_at, pr.close_time,
			o.actual_result, o.settled_at,
			p.actual_outcome, p.is_correct, p.stake::text, p.pnl::text, p.roi_percent::text,
			p.brier_score, p.log_loss, p.settled_at, p.created_at
		FROM prediction_outcomes o
		JOIN predictions pr ON pr.id = o.prediction_id
		JOIN prediction_performance p ON p.prediction_id = o.prediction_id`
	if len(conditions) > 0 {
		query += "\n\t\tWHERE " + strings.Join(conditions, " AND ")
	}
	query += "\n\t\tORDER BY o.settled_at, pr.created_at, pr.id"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query settled predictions: %w", err)
	}
	defer rows.Close()

	var settled []*models.SettledPrediction
	for rows.Next() {
		sp := &models.SettledPrediction{Record: &models.PerformanceRecord{}}
		p := &sp.Prediction
		rec := sp.Record
		var stake, pnl, roi string
		if err := rows.Scan(
			&p.ID, &p.Ticker, &p.Category, &p.ModelID, &p.PredictedProbability,
			&p.MarketProbability, &p.Confidence, &p.Edge, &p.CreatedAt, &p.CloseTime,
			&sp.Outcome.ActualResult, &sp.Outcome.SettledAt,
			&rec.ActualOutcome, &rec.IsCorrect, &stake, &pnl, &roi,
			&rec.BrierScore, &rec.LogLoss, &rec.SettledAt, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf(errScanSettlement, err)
		}
		sp.Outcome.PredictionID = p.ID
		rec.PredictionID = p.ID
		if err := parseMoney(rec, stake, pnl, roi); err != nil {
			return nil, err
		}
		settled = append(settled, sp)
	}
	return settled, rows.Err()
}

func parseMoney(rec *models.PerformanceRecord, stake, pnl, roi string) error {
	var err error
	if rec.Stake, err = decimal.NewFromString(stake); err != nil {
		return fmt.Errorf(errScanSettlement, err)
	}
	if rec.PnL, err = decimal.NewFromString(pnl); err != nil {
		return fmt.Errorf(errScanSettlement, err)
	}
	if rec.ROIPercent, err = decimal.NewFromString(roi); err != nil {
		return fmt.Errorf(errScanSettlement, err)
	}
	return nil
}
