package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/edgecheck/internal/database"
	"github.com/yourusername/edgecheck/internal/models"
)

const (
	errScanBacktestRun = "failed to scan backtest run: %w"
	backtestRunColumns = `id, name, config, status, result, termination_reason, error_message,
		created_at, started_at, completed_at`
)

// PostgresBacktestRunRepository implements BacktestRunRepository for PostgreSQL
type PostgresBacktestRunRepository struct {
	db *database.DB
}

// NewPostgresBacktestRunRepository creates a new backtest run repository
func NewPostgresBacktestRunRepository(db *database.DB) BacktestRunRepository {
	return &PostgresBacktestRunRepository{db: db}
}

// Save upserts a backtest run. Summary columns are denormalised for querying.
func (r *PostgresBacktestRunRepository) Save(ctx context.Context, run *models.BacktestRun) error {
	cfgJSON, err := json.Marshal(run.Config)
	if err != nil {
		return fmt.Errorf("failed to encode run config: %w", err)
	}

	var (
		resultJSON                                  []byte
		finalCapital, totalReturn, sharpe, drawdown *float64
	)
	if run.Result != nil {
		if resultJSON, err = json.Marshal(run.Result); err != nil {
			return fmt.Errorf("failed to encode run result: %w", err)
		}
		finalCapital = &run.Result.FinalCapital
		totalReturn = &run.Result.TotalReturnPct
		sharpe = &run.Result.SharpeRatio
		drawdown = &run.Result.MaxDrawdownPct
	}

	query := `
		INSERT INTO backtest_results (
			id, name, config, status, result, termination_reason, error_message,
			final_capital, total_return_pct, sharpe_ratio, max_drawdown_pct,
			created_at, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			result = EXCLUDED.result,
			termination_reason = EXCLUDED.termination_reason,
			error_message = EXCLUDED.error_message,
			final_capital = EXCLUDED.final_capital,
			total_return_pct = EXCLUDED.total_return_pct,
			sharpe_ratio = EXCLUDED.sharpe_ratio,
			max_drawdown_pct = EXCLUDED.max_drawdown_pct,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at`

	_, err = r.db.Exec(ctx, query,
		run.ID, run.Name, cfgJSON, string(run.Status), resultJSON, run.TerminationReason, run.ErrorMessage,
		finalCapital, totalReturn, sharpe, drawdown,
		run.CreatedAt, run.StartedAt, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save backtest run: %w", err)
	}
	return nil
}

// GetByID retrieves a backtest run by id
func (r *PostgresBacktestRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BacktestRun, error) {
	query := `SELECT ` + backtestRunColumns + ` FROM backtest_results WHERE id = $1`

	run, err := scanBacktestRun(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("backtest run %s: %w", id, models.ErrNotFound)
		}
		return nil, err
	}
	return run, nil
}

// GetLatest retrieves the latest backtest runs
func (r *PostgresBacktestRunRepository) GetLatest(ctx context.Context, limit int) ([]*models.BacktestRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + backtestRunColumns + ` FROM backtest_results ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest backtest runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.BacktestRun
	for rows.Next() {
		run, err := scanBacktestRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanBacktestRun(row pgx.Row) (*models.BacktestRun, error) {
	run := &models.BacktestRun{}
	var (
		status              string
		cfgJSON, resultJSON []byte
	)
	err := row.Scan(
		&run.ID, &run.Name, &cfgJSON, &status, &resultJSON, &run.TerminationReason, &run.ErrorMessage,
		&run.CreatedAt, &run.StartedAt, &run.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf(errScanBacktestRun, err)
	}
	run.Status = models.RunStatus(status)

	if err := json.Unmarshal(cfgJSON, &run.Config); err != nil {
		return nil, fmt.Errorf(errScanBacktestRun, err)
	}
	if len(resultJSON) > 0 {
		run.Result = &models.BacktestResult{}
		if err := json.Unmarshal(resultJSON, run.Result); err != nil {
			return nil, fmt.Errorf(errScanBacktestRun, err)
		}
	}
	return run, nil
}
