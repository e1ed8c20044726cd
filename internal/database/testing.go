package database

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/yourusername/edgecheck/internal/config"
)

// SetupTestDB connects to the database named by EDGECHECK_TEST_DB_* variables
// and applies the schema. The test is skipped when EDGECHECK_TEST_DB_HOST is unset.
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	host := os.Getenv("EDGECHECK_TEST_DB_HOST")
	if host == "" {
		t.Skip("EDGECHECK_TEST_DB_HOST not set, skipping database test")
	}

	port, err := strconv.Atoi(getenvDefault("EDGECHECK_TEST_DB_PORT", "5432"))
	if err != nil {
		t.Fatalf("invalid EDGECHECK_TEST_DB_PORT: %v", err)
	}

	cfg := &config.DatabaseConfig{
		Storage:        "postgres",
		Host:           host,
		Port:           port,
		Name:           getenvDefault("EDGECHECK_TEST_DB_NAME", "edgecheck_test"),
		User:           getenvDefault("EDGECHECK_TEST_DB_USER", "edgecheck"),
		Password:       os.Getenv("EDGECHECK_TEST_DB_PASSWORD"),
		SSLMode:        "disable",
		MaxConnections: 4,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := NewDB(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to create test database connection: %v", err)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { TeardownTestDB(t, db) })
	return db
}

// TeardownTestDB truncates the domain tables and closes the pool
func TeardownTestDB(t *testing.T, db *DB) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := db.pool.Exec(ctx,
		"TRUNCATE prediction_performance, prediction_outcomes, predictions, backtest_results, feature_store")
	if err != nil {
		t.Logf("warning: failed to truncate test tables: %v", err)
	}
	db.Close()
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
