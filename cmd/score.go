package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/fahmycader/metermate-backend/internal/model"
	"github.com/fahmycader/metermate-backend/internal/rules"
)

var scoreFilePath string

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Classify and score jobs from a file",
	Long: `Classify jobs from a YAML or JSON file and print the score for each.

Each job earns 1 point for a filled register reading, 0.5 for a valid
no-access outcome, and 0 when incomplete. The summary shows the bonus
each outcome class contributes.

Examples:
  # Score a day's jobs
  score --file jobs.yaml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobs, err := parseJobsFile(scoreFilePath)
		if err != nil {
			return err
		}

		data, err := printScoreTable(os.Stdout, jobs)
		if err != nil {
			return err
		}

		summary := rules.Aggregate(data)
		fmt.Printf("\n--- Summary ---\n")
		fmt.Printf("Jobs:       %d\n", len(jobs))
		fmt.Printf("Readings:   %d (bonus %.2f)\n", summary.SuccessfulReadings, summary.ReadingAward)
		fmt.Printf("No access:  %d (bonus %.2f)\n", summary.NoAccessJobs, summary.NoAccessAward)
		fmt.Printf("Incomplete: %d\n", summary.IncompleteJobs)
		fmt.Printf("Points:     %.2f\n", summary.TotalPoints)
		fmt.Printf("Bonus:      %.2f\n", summary.TotalAward)
		return nil
	},
}

func printScoreTable(w *os.File, jobs []model.Job) ([]rules.JobData, error) {
	header := fmt.Sprintf("%-20s %-16s %7s %7s\n", "Reference", "Outcome", "Points", "Bonus")
	if _, err := fmt.Fprint(w, header); err != nil {
		return nil, eris.Wrap(err, "score: write table header")
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 53)); err != nil {
		return nil, eris.Wrap(err, "score: write table separator")
	}

	data := make([]rules.JobData, 0, len(jobs))
	for i := range jobs {
		jd := jobs[i].Data()
		data = append(data, jd)
		result := rules.Score(jd)

		ref := jobs[i].Reference
		if ref == "" {
			ref = fmt.Sprintf("job-%d", i+1)
		}
		line := fmt.Sprintf("%-20s %-16s %7.2f %7.2f\n", ref, result.Outcome, result.Points, result.Award)
		if _, err := fmt.Fprint(w, line); err != nil {
			return nil, eris.Wrap(err, "score: write table row")
		}
	}
	return data, nil
}

func init() {
	scoreCmd.Flags().StringVar(&scoreFilePath, "file", "", "path to jobs file (required)")
	_ = scoreCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(scoreCmd)
}
