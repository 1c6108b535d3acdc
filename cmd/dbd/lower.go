package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dbd/internal/lower"
	"dbd/internal/output"
	"dbd/internal/store"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	flagOut      string
	flagPrint    bool
	flagLiveness bool
)

var lowerCmd = &cobra.Command{
	Use:   "lower <file>",
	Short: "Lower a source file and write its units",
	Long:  "Writes <basename>_<id>.json, .ir and .metadata for every unit of the file. With --print the text dump goes to stdout instead.",
	Args:  cobra.ExactArgs(1),
	RunE:  runLower,
}

func init() {
	lowerCmd.Flags().StringVarP(&flagOut, "out", "o", "", "output directory (default: next to the source)")
	lowerCmd.Flags().BoolVarP(&flagPrint, "print", "p", false, "print the text dump instead of writing files")
	lowerCmd.Flags().BoolVarP(&flagLiveness, "liveness", "l", false, "include live-variable information")
}

func runLower(cmd *cobra.Command, args []string) error {
	start := time.Now()
	path := args[0]
	ctx := context.Background()

	a, err := analyzeFile(ctx, path)
	if err != nil {
		return err
	}

	if flagDB != "" {
		if err := cacheResult(flagDB, a.Source, a.Result, a.Path); err != nil {
			return err
		}
	}

	if flagPrint {
		return output.Print(cmd.OutOrStdout(), a.Result, flagLiveness)
	}

	dir := flagOut
	if dir == "" {
		dir = filepath.Dir(path)
	}
	w := output.NewWriter(dir, path)
	w.Liveness = flagLiveness
	written, err := w.Write(a.Result)
	if err != nil {
		return err
	}
	for _, p := range written {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}

	color.Green("Lowered %s into %d unit(s) in %s", path, len(a.Result.Units), formatDuration(time.Since(start)))
	return nil
}

// cacheResult stores result in the database at dbPath unless an entry for
// the same source and options already exists.
func cacheResult(dbPath string, source []byte, result *lower.Result, path string) error {
	s, err := openStore(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	opts := options()
	opts.FileName = filepath.Base(path)
	hash := store.Key(source, opts)

	cached, err := s.Units(hash)
	if err != nil {
		return err
	}
	if len(cached) > 0 {
		fmt.Fprintf(os.Stderr, "Cache hit: %s\n", hash[:12])
		return nil
	}
	return s.PutResult(hash, result)
}

func openStore(dbPath string) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
