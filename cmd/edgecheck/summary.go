package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yourusername/edgecheck/internal/models"
)

var summaryFlags struct {
	records string
	filter  filterFlags
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the performance summary of settled predictions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		filter, err := summaryFlags.filter.build()
		if err != nil {
			return err
		}
		summary, err := a.tracker.GetPerformanceSummary(ctx, filter)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return err
		}

		if summaryFlags.records != "" {
			return exportSettled(cmd, a, filter, summaryFlags.records)
		}
		return nil
	},
}

func init() {
	summaryCmd.Flags().StringVar(&summaryFlags.records, "records", "", "Also write the matching settled predictions to this JSON file")
	summaryFlags.filter.register(summaryCmd.Flags())
}

// exportSettled writes records in the format accepted by backtest --input
func exportSettled(cmd *cobra.Command, a *app, filter models.PerformanceFilter, path string) error {
	records, err := a.repos.Settlement.ListSettled(cmd.Context(), filter)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.WithField("records", len(records)).WithField("path", path).Info("Settled predictions exported")
	return nil
}
