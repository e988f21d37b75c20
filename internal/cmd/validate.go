package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hivelab/hive/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long:  `Load the effective configuration and report any validation errors.`,
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	fmt.Println("configuration valid")
	fmt.Printf("  queue: min %d, max %d, batch cap %d\n",
		cfg.Queue.MinThreshold, cfg.Queue.MaxThreshold, cfg.Queue.BatchCap)
	fmt.Printf("  breakdown thresholds: medium %s, high %s, critical %s\n",
		cfg.Breakdown.MediumThreshold(), cfg.Breakdown.HighThreshold(), cfg.Breakdown.CriticalThreshold())
	fmt.Printf("  workers: %d slots, capacity %d each\n",
		cfg.Workers.PoolSize, cfg.Workers.DefaultCapacity)
	fmt.Printf("  ledger: %s (watch: %v)\n", cfg.Ledger.Path, cfg.Ledger.Watch)
	return nil
}
