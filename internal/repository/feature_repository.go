package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/edgecheck/internal/database"
	"github.com/yourusername/edgecheck/internal/models"
)

// PostgresFeatureRepository implements FeatureRepository for PostgreSQL
type PostgresFeatureRepository struct {
	db *database.DB
}

// NewPostgresFeatureRepository creates a new feature repository
func NewPostgresFeatureRepository(db *database.DB) FeatureRepository {
	return &PostgresFeatureRepository{db: db}
}

// Upsert replaces the feature map stored under the composite key
func (r *PostgresFeatureRepository) Upsert(ctx context.Context, rec *models.FeatureRecord) error {
	features, err := json.Marshal(rec.Features)
	if err != nil {
		return fmt.Errorf("failed to encode features: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO feature_store (entity_id, feature_version, feature_set, features, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (entity_id, feature_version, feature_set)
		DO UPDATE SET features = EXCLUDED.features, created_at = EXCLUDED.created_at`,
		rec.EntityID, rec.FeatureVersion, rec.FeatureSet, features, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert features: %w", err)
	}
	return nil
}

// Get retrieves the record stored under key
func (r *PostgresFeatureRepository) Get(ctx context.Context, key models.FeatureKey) (*models.FeatureRecord, error) {
	row := r.db.QueryRow(ctx, `
		SELECT entity_id, feature_version, feature_set, features, created_at
		FROM feature_store
		WHERE entity_id = $1 AND feature_version = $2 AND feature_set = $3`,
		key.EntityID, key.FeatureVersion, key.FeatureSet,
	)

	rec, err := scanFeatureRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("features %s: %w", key, models.ErrNotFound)
		}
		return nil, err
	}
	return rec, nil
}

// ListBySet returns all records for a version and feature set
func (r *PostgresFeatureRepository) ListBySet(ctx context.Context, version, featureSet string) ([]*models.FeatureRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT entity_id, feature_version, feature_set, features, created_at
		FROM feature_store
		WHERE feature_version = $1 AND feature_set = $2
		ORDER BY entity_id`,
		version, featureSet,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query features: %w", err)
	}
	defer rows.Close()

	var records []*models.FeatureRecord
	for rows.Next() {
		rec, err := scanFeatureRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanFeatureRecord(row pgx.Row) (*models.FeatureRecord, error) {
	rec := &models.FeatureRecord{}
	var raw []byte
	if err := row.Scan(&rec.EntityID, &rec.FeatureVersion, &rec.FeatureSet, &raw, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan features: %w", err)
	}
	if err := json.Unmarshal(raw, &rec.Features); err != nil {
		return nil, fmt.Errorf("failed to decode features: %w", err)
	}
	return rec, nil
}
