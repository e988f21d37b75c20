package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hivelab/hive/internal/config"
	"github.com/hivelab/hive/internal/ledger"
	"github.com/hivelab/hive/internal/queue"
	"github.com/hivelab/hive/internal/util"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show engine status",
	Long: `Display the queue state of the engine running in this directory,
read from its on-disk checkpoint, together with the ledger backlog.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

var (
	statusTitleStyle = lipgloss.NewStyle().Bold(true)
	statusLabelStyle = lipgloss.NewStyle().Faint(true).Width(18)
	statusWarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	dataDir := cfg.Paths.ResolveDataDir(cwd)

	width := 60
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 && w < width {
		width = w
	}

	fmt.Println(statusTitleStyle.Render("hive engine"))
	fmt.Println(strings.Repeat("─", width))

	state, err := queue.ReadStateFile(dataDir)
	if err != nil {
		fmt.Println(statusWarnStyle.Render("no engine state found (is the engine running here?)"))
	} else {
		printField("active items", fmt.Sprintf("%d / %d", state.ActiveCount, state.MaxThreshold))
		printField("min threshold", fmt.Sprintf("%d", state.MinThreshold))
		printField("completed", fmt.Sprintf("%d", state.Completed))
		printField("failed", fmt.Sprintf("%d", state.Failed))
	}

	ledgerPath := cfg.Ledger.Path
	if !filepath.IsAbs(ledgerPath) {
		ledgerPath = filepath.Join(cwd, ledgerPath)
	}
	adapter := ledger.NewFileAdapter(ledgerPath)
	pending, err := adapter.ListPending(context.Background())
	if err != nil {
		fmt.Println(statusWarnStyle.Render(fmt.Sprintf("ledger unreadable: %v", err)))
		return nil
	}

	printField("ledger", ledgerPath)
	printField("pending items", fmt.Sprintf("%d", len(pending)))
	for _, item := range pending {
		line := fmt.Sprintf("  %s  [%s]  %s", item.ID, item.Priority.String(), item.Title)
		fmt.Println(util.TruncateWidth(line, width))
	}
	return nil
}

func printField(label, value string) {
	fmt.Printf("%s %s\n", statusLabelStyle.Render(label), value)
}
