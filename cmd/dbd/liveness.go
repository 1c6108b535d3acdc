package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"dbd/internal/lva"
	"dbd/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagFunction string
	flagFormat   string
)

var livenessCmd = &cobra.Command{
	Use:   "liveness <file>",
	Short: "Print live-in and live-out sets per block",
	Long:  "Solves live variables for every unit of the file. With --db a cached table is printed without lowering the file again.",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		switch flagFormat {
		case "text", "json":
			return nil
		default:
			return fmt.Errorf("invalid --format %q: must be text or json", flagFormat)
		}
	},
	RunE: runLiveness,
}

func init() {
	livenessCmd.Flags().StringVarP(&flagFunction, "function", "f", "", "only this unit (main, 0, 1, ...)")
	livenessCmd.Flags().StringVar(&flagFormat, "format", "text", "output format: text|json")
}

// unitLiveness is the printable liveness of one unit.
type unitLiveness struct {
	ID     string
	Name   string
	Blocks []store.BlockLiveness
}

func runLiveness(cmd *cobra.Command, args []string) error {
	path := args[0]
	out := cmd.OutOrStdout()

	if flagDB != "" && flagFormat == "text" {
		units, err := cachedLiveness(path)
		if err != nil {
			return err
		}
		if units != nil {
			formatLivenessText(out, units)
			return nil
		}
	}

	a, err := analyzeFile(context.Background(), path)
	if err != nil {
		return err
	}
	if flagDB != "" {
		if err := cacheResult(flagDB, a.Source, a.Result, a.Path); err != nil {
			return err
		}
	}

	var tables []*lva.Table
	var units []unitLiveness
	for _, unit := range a.Result.Units {
		if flagFunction != "" && unit.Info.ID != flagFunction {
			continue
		}
		t := a.Table(unit.Info.ID)
		tables = append(tables, t)
		units = append(units, unitLiveness{ID: unit.Info.ID, Name: unit.Info.Definition.Name, Blocks: livenessRows(t)})
	}
	if flagFunction != "" && len(units) == 0 {
		return fmt.Errorf("no unit %q in %s", flagFunction, path)
	}

	if flagFormat == "json" {
		return formatLivenessJSON(out, tables)
	}
	formatLivenessText(out, units)
	return nil
}

// cachedLiveness reads the liveness of path from the database. It returns
// nil when the file is not cached under its current contents.
func cachedLiveness(path string) ([]unitLiveness, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	s, err := openStore(flagDB)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	opts := options()
	opts.FileName = filepath.Base(path)
	hash := store.Key(source, opts)

	infos, err := s.Units(hash)
	if err != nil || len(infos) == 0 {
		return nil, err
	}

	var units []unitLiveness
	for _, info := range infos {
		if flagFunction != "" && info.ID != flagFunction {
			continue
		}
		blocks, err := s.Liveness(hash, info.ID)
		if err != nil {
			return nil, err
		}
		units = append(units, unitLiveness{ID: info.ID, Name: info.Definition.Name, Blocks: blocks})
	}
	if len(units) == 0 {
		return nil, nil
	}
	return units, nil
}

func livenessRows(t *lva.Table) []store.BlockLiveness {
	rows := make([]store.BlockLiveness, 0, len(t.Blocks))
	for _, lv := range t.Blocks {
		rows = append(rows, store.BlockLiveness{Block: lv.Block, LiveIn: lv.In.Names(), LiveOut: lv.Out.Names()})
	}
	return rows
}

// formatLivenessText prints one aligned table per unit.
func formatLivenessText(w io.Writer, units []unitLiveness) {
	for i, unit := range units {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "function %s %q\n", unit.ID, unit.Name)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "BLOCK\tLIVE-IN\tLIVE-OUT")
		for _, b := range unit.Blocks {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Block, names(b.LiveIn), names(b.LiveOut))
		}
		tw.Flush()
	}
}

func formatLivenessJSON(w io.Writer, tables []*lva.Table) error {
	for _, t := range tables {
		data, err := t.MarshalJSON()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\n", data)
	}
	return nil
}

func names(list []string) string {
	if len(list) == 0 {
		return "-"
	}
	return strings.Join(list, ",")
}
