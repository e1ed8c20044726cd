package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var featuresFlags struct {
	set     string
	version string
	format  string
	output  string
}

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Work with the feature store",
}

var featuresExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a feature version/set as a table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		table, err := a.features.GetFeaturesAsTable(ctx, featuresFlags.version, featuresFlags.set, nil)
		if err != nil {
			return err
		}

		var out io.Writer = os.Stdout
		if featuresFlags.output != "" {
			f, err := os.Create(featuresFlags.output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", featuresFlags.output, err)
			}
			defer f.Close()
			out = f
		}

		switch featuresFlags.format {
		case "csv":
			return table.WriteCSV(out)
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(table)
		default:
			return fmt.Errorf("unsupported format %q", featuresFlags.format)
		}
	},
}

func init() {
	f := featuresExportCmd.Flags()
	f.StringVar(&featuresFlags.set, "set", "", "Feature set")
	f.StringVar(&featuresFlags.version, "version", "", "Feature version")
	f.StringVar(&featuresFlags.format, "format", "csv", "Output format: csv or json")
	f.StringVarP(&featuresFlags.output, "output", "o", "", "Output file (defaults to stdout)")
	_ = featuresExportCmd.MarkFlagRequired("set")
	_ = featuresExportCmd.MarkFlagRequired("version")
	featuresCmd.AddCommand(featuresExportCmd)
}
