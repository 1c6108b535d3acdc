package main

import (
	"context"
	"encoding/json"
	"fmt"

	"dbd/internal/script"

	"github.com/spf13/cobra"
)

var scriptCmd = &cobra.Command{
	Use:   "script <file> <script.risor>",
	Short: "Run a Risor script over the lowered units of a file",
	Long:  "The script sees the global \"functions\" list and the host functions successors(fn, block) and print_ir(fn). The value of its last expression is printed as JSON.",
	Args:  cobra.ExactArgs(2),
	RunE:  runScript,
}

func runScript(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := analyzeFile(ctx, args[0])
	if err != nil {
		return err
	}

	value, err := script.NewRuntime(a.Result).RunFile(ctx, args[1])
	if err != nil {
		return err
	}
	if value == nil {
		return nil
	}
	if s, ok := value.(string); ok {
		fmt.Fprintln(cmd.OutOrStdout(), s)
		return nil
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding script result: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
	return nil
}
