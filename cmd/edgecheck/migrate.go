package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/edgecheck/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.UsesPostgres() {
			return fmt.Errorf("migrate requires database.storage: postgres")
		}
		ctx := cmd.Context()

		db, err := database.NewDB(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		log.WithField("schema_version", database.SchemaVersion).Info("Database schema applied")
		return nil
	},
}
