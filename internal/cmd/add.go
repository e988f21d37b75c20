package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hivelab/hive/internal/config"
	"github.com/hivelab/hive/internal/ledger"
	"github.com/hivelab/hive/internal/task"
)

var (
	addDescription  string
	addPriority     string
	addDuration     time.Duration
	addCapabilities []string
)

var addCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a work item to the ledger",
	Long: `Append a pending work item to the ledger file. The engine picks it
up on its next scan.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVarP(&addDescription, "description", "d", "", "item description")
	addCmd.Flags().StringVarP(&addPriority, "priority", "p", "MEDIUM", "priority: LOW, MEDIUM, HIGH, CRITICAL")
	addCmd.Flags().DurationVar(&addDuration, "duration", 30*time.Minute, "estimated duration")
	addCmd.Flags().StringSliceVar(&addCapabilities, "capability", nil, "required worker capabilities")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	ledgerPath := cfg.Ledger.Path
	if !filepath.IsAbs(ledgerPath) {
		ledgerPath = filepath.Join(cwd, ledgerPath)
	}

	item := task.WorkItem{
		ID:                   task.NewID(),
		Title:                strings.Join(args, " "),
		Description:          addDescription,
		Priority:             task.ParsePriority(strings.ToUpper(addPriority)),
		EstimatedDuration:    addDuration,
		RequiredCapabilities: addCapabilities,
		Status:               task.ItemPending,
		CreatedAt:            time.Now().UTC(),
	}

	adapter := ledger.NewFileAdapter(ledgerPath)
	if err := adapter.Add(context.Background(), item); err != nil {
		return fmt.Errorf("failed to add item: %w", err)
	}

	fmt.Printf("added %s [%s] %s (%s)\n", item.ID, item.Priority.String(), item.Title, addDuration)
	return nil
}
