package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dbd/grammar"
	"dbd/internal/ir"

	"github.com/spf13/cobra"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <file>...",
	Short: "Decode unit files and print their text dump",
	Long:  "Reads .ir (binary), .json (document) or .dump (text dump) files, validates them and prints the text dump.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDecode,
}

func runDecode(cmd *cobra.Command, args []string) error {
	var functions []*ir.FunctionInfo
	for _, path := range args {
		fns, err := readUnits(path)
		if err != nil {
			return err
		}
		functions = append(functions, fns...)
	}
	fmt.Fprint(cmd.OutOrStdout(), ir.Print(functions...))
	return nil
}

// readUnits decodes the units stored in path, picking the format from its
// extension.
func readUnits(path string) ([]*ir.FunctionInfo, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ir":
		fn, err := readUnit(path, ir.ReadBinary)
		if err != nil {
			return nil, err
		}
		return []*ir.FunctionInfo{fn}, nil
	case ".json":
		fn, err := readUnit(path, ir.ReadDocument)
		if err != nil {
			return nil, err
		}
		return []*ir.FunctionInfo{fn}, nil
	case ".dump", ".dbd", ".txt":
		return grammar.ParseFile(path)
	default:
		return nil, fmt.Errorf("%s: unknown unit format %q", path, filepath.Ext(path))
	}
}

func readUnit(path string, decode func(r io.Reader) (*ir.FunctionInfo, error)) (*ir.FunctionInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	defer f.Close()

	fn, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fn, nil
}
