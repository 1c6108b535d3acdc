package main

import (
	"context"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <file>...",
	Short: "Report syntax errors, skipped constructs and dead stores",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := context.Background()

	var firstErr error
	for _, path := range args {
		if _, err := analyzeFile(ctx, path); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return firstErr
	}

	color.Green("Checked %d file(s) in %s", len(args), formatDuration(time.Since(start)))
	return nil
}
