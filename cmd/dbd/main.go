// SPDX-License-Identifier: Apache-2.0
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"dbd/internal/analysis"
	"dbd/internal/errors"
	"dbd/internal/lower"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var (
	flagVerbose          int
	flagGlobals          []string
	flagNoImplicitReturn bool
	flagDB               string
)

// errorHandled is set once diagnostics were printed so main() doesn't
// print the error a second time.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "dbd",
	Short:         "Lower JavaScript into block IR and analyze it",
	Long:          "dbd parses JavaScript (or ESTree JSON), lowers every function into basic blocks and solves live variables over the result.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		commonlog.Configure(flagVerbose, nil)
	},
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&flagVerbose, "verbose", "v", "log verbosity (repeat for more)")
	rootCmd.PersistentFlags().StringSliceVar(&flagGlobals, "global", nil, "host global bound in every program (repeatable)")
	rootCmd.PersistentFlags().BoolVar(&flagNoImplicitReturn, "no-implicit-return", false, "leave the last block of a function open instead of returning null")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite cache of lowered units and liveness")

	rootCmd.AddCommand(lowerCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(livenessCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(scriptCmd)
}

func options() lower.Options {
	return lower.Options{
		HostGlobals:        flagGlobals,
		OmitImplicitReturn: flagNoImplicitReturn,
	}
}

// analyzeFile runs the pipeline over path and prints its diagnostics to
// stderr. An error is returned when any diagnostic is an error.
func analyzeFile(ctx context.Context, path string) (*analysis.Analysis, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	a, err := analysis.Run(ctx, path, source, options())
	if err != nil {
		return nil, err
	}

	if failed := reportDiagnostics(a); failed > 0 {
		errorHandled = true
		color.Red("%s: %d error(s)", path, failed)
		return a, fmt.Errorf("%s has %d error(s)", path, failed)
	}
	return a, nil
}

// reportDiagnostics prints every diagnostic of a and returns the number of
// errors among them.
func reportDiagnostics(a *analysis.Analysis) int {
	reporter := errors.NewErrorReporter(a.Path, string(a.Source))
	failed := 0
	for _, d := range a.Diagnostics() {
		fmt.Fprint(os.Stderr, reporter.FormatError(d))
		if d.Level == errors.Error {
			failed++
		}
	}
	return failed
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
