package main

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fahmycader/metermate-backend/internal/report"
	"github.com/fahmycader/metermate-backend/internal/store"
)

var (
	reportXLSXPath    string
	reportGeoJSONPath string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate wage and bonus reports",
	Long: `Compute per-worker bonus and wage reports across all jobs in the store.

Writes an XLSX workbook with one row per worker, and optionally a GeoJSON
file of job sites for mapping.

Examples:
  # Wage report for all workers
  report --xlsx wages.xlsx

  # Also export job sites for the dispatch map
  report --xlsx wages.xlsx --geojson sites.geojson`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		jobs, err := st.ListJobs(ctx, store.JobFilter{Limit: 100000})
		if err != nil {
			return eris.Wrap(err, "report: list jobs")
		}
		if len(jobs) == 0 {
			fmt.Println("No jobs in store.")
			return nil
		}

		workerSet := make(map[string]struct{})
		for i := range jobs {
			if jobs[i].AssignedTo != "" {
				workerSet[jobs[i].AssignedTo] = struct{}{}
			}
		}
		workers := make([]string, 0, len(workerSet))
		for id := range workerSet {
			workers = append(workers, id)
		}
		sort.Strings(workers)

		gen := report.NewGenerator(st, cfg.Wage)
		reports, err := gen.BuildAll(ctx, workers)
		if err != nil {
			return eris.Wrap(err, "report: build")
		}

		if err := report.WriteXLSX(reports, reportXLSXPath); err != nil {
			return err
		}
		zap.L().Info("report written", zap.String("xlsx", reportXLSXPath), zap.Int("workers", len(reports)))

		if reportGeoJSONPath != "" {
			if err := report.WriteGeoJSON(jobs, reportGeoJSONPath); err != nil {
				return err
			}
			zap.L().Info("geojson written", zap.String("file", reportGeoJSONPath), zap.Int("jobs", len(jobs)))
		}

		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportXLSXPath, "xlsx", "", "output XLSX path (required)")
	reportCmd.Flags().StringVar(&reportGeoJSONPath, "geojson", "", "optional GeoJSON export of job sites")
	_ = reportCmd.MarkFlagRequired("xlsx")
	rootCmd.AddCommand(reportCmd)
}
