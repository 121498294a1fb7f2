package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fahmycader/metermate-backend/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "metermate",
	Short: "Field-service job management backend",
	Long:  "Manages meter-reading jobs: geofenced completion, outcome scoring, bonus and wage calculation, and a realtime event feed for field workers.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
