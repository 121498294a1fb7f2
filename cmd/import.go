package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var importFilePath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk import jobs from a YAML or JSON file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		jobs, err := parseJobsFile(importFilePath)
		if err != nil {
			return err
		}
		for i := range jobs {
			if !jobs[i].Site().Valid() {
				return eris.Errorf("import: job %d (%s) has invalid site coordinates", i+1, jobs[i].Reference)
			}
		}

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "import: migrate")
		}

		inserted, err := st.BulkInsertJobs(ctx, jobs)
		if err != nil {
			return eris.Wrap(err, "import: bulk insert")
		}

		zap.L().Info("import complete",
			zap.Int64("inserted", inserted),
			zap.String("file", importFilePath),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFilePath, "file", "", "path to jobs file (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
