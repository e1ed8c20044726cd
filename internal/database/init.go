package database

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/edgecheck/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// SchemaVersion is recorded in schema_migrations after a successful Migrate
const SchemaVersion = 1

// Initialize creates a database connection pool and checks that the schema is present
func Initialize(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	var version int
	err = db.pool.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil || version < SchemaVersion {
		// Table might not exist yet, which is OK for initial setup
		log.WithField("schema_version", version).Warn("Database schema is not up to date, run 'edgecheck migrate'")
	}

	return db, nil
}

// Migrate applies the embedded schema. Statements are idempotent so running
// it against an up-to-date database is a no-op.
func Migrate(ctx context.Context, db *DB) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	_, err := db.pool.Exec(ctx,
		"INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT (version) DO NOTHING",
		SchemaVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}

// Schema returns the embedded DDL
func Schema() string {
	return schemaSQL
}
