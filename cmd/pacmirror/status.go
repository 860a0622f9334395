package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

var statusLimit int

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Display recent mirrorlist generation runs",
		Long: `Display the recorded history of mirrorlist generation runs: when each
ran, whether the ranked or fallback path produced the mirrorlist, and any
error message.`,
		Example: `  pacmirror status
  pacmirror status --limit 5`,
		RunE: statusRun,
	}

	cmd.Flags().IntVar(&statusLimit, "limit", 10, "maximum number of runs to show (0 for all)")

	return cmd
}

func statusRun(cmd *cobra.Command, args []string) error {
	log := slog.Default()

	if globalStore == nil {
		return fmt.Errorf("store not initialized")
	}

	runs, err := globalStore.ListRankRuns(statusLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded yet")
		return nil
	}

	log.Info("status request", "runs", len(runs))

	fmt.Println("Run History")
	fmt.Println("===========")
	fmt.Println("")
	fmt.Printf("%-20s %-10s %-9s %-10s %s\n", "Started", "Source", "Status", "Exit Code", "Error")
	fmt.Println(strings.Repeat("-", 75))

	for _, run := range runs {
		source := run.Source
		if source == "" {
			source = "-"
		}
		errMsg := run.ErrorMessage
		if len(errMsg) > 30 {
			errMsg = errMsg[:27] + "..."
		}

		fmt.Printf("%-20s %-10s %-9s %-10d %s\n",
			run.StartTime.Format("2006-01-02 15:04:05"),
			source,
			run.Status,
			run.ExitCode,
			errMsg,
		)
	}

	fmt.Println("")

	return nil
}
