// Package output writes lowered units to disk or prints them.
//
// Each unit becomes three files named after the source file and the unit id:
// <basename>_<id>.json (structured document), <basename>_<id>.ir (binary
// encoding) and <basename>_<id>.metadata (signatures of the user functions
// the unit calls). With liveness enabled a fourth file,
// <basename>_<id>.liveness.json, holds the solved liveness table.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dbd/internal/ir"
	"dbd/internal/lower"
	"dbd/internal/lva"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("dbd.output")

// Writer places the files of one source file in Dir.
type Writer struct {
	Dir string
	// Base is the source file name without directory and extension.
	Base     string
	Liveness bool
}

// NewWriter returns a writer for the units of sourcePath.
func NewWriter(dir, sourcePath string) *Writer {
	base := filepath.Base(sourcePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return &Writer{Dir: dir, Base: base}
}

// Path returns the path of the unit file with the given extension.
func (w *Writer) Path(id, ext string) string {
	return filepath.Join(w.Dir, fmt.Sprintf("%s_%s.%s", w.Base, id, ext))
}

// Write writes every unit of result and returns the paths written, in
// order.
func (w *Writer) Write(result *lower.Result) ([]string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	var written []string
	for _, unit := range result.Units {
		paths, err := w.WriteUnit(unit)
		if err != nil {
			return written, err
		}
		written = append(written, paths...)
	}
	return written, nil
}

// WriteUnit writes the files of a single unit.
func (w *Writer) WriteUnit(unit *lower.Unit) ([]string, error) {
	info := unit.Info
	document, err := ir.MarshalDocument(info)
	if err != nil {
		return nil, fmt.Errorf("unit %s: %w", info.ID, err)
	}
	binary, err := ir.MarshalBinary(info)
	if err != nil {
		return nil, fmt.Errorf("unit %s: %w", info.ID, err)
	}

	files := []file{
		{"json", document},
		{"ir", binary},
		{"metadata", Metadata(info)},
	}
	if w.Liveness {
		table, err := lva.Analyze(info, unit.References).MarshalJSON()
		if err != nil {
			return nil, err
		}
		files = append(files, file{"liveness.json", table})
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := w.Path(info.ID, f.ext)
		if err := os.WriteFile(path, f.data, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		log.Debugf("wrote %s (%d bytes)", path, len(f.data))
		paths = append(paths, path)
	}
	return paths, nil
}

type file struct {
	ext  string
	data []byte
}

// Metadata lists the signatures of the user functions info calls, one per
// line.
func Metadata(info *ir.FunctionInfo) []byte {
	var sb strings.Builder
	for _, def := range info.CalledFunctions() {
		sb.WriteString(def.Signature)
		sb.WriteString("\n")
	}
	return []byte(sb.String())
}

// Print writes the text dump of every unit to out. With liveness enabled
// each block is annotated with its live-in and live-out variables.
func Print(out io.Writer, result *lower.Result, liveness bool) error {
	for i, unit := range result.Units {
		if i > 0 {
			if _, err := io.WriteString(out, "\n"); err != nil {
				return err
			}
		}
		printer := ir.NewPrinter()
		if liveness {
			printer = printer.WithAnnotations(lva.Analyze(unit.Info, unit.References).Annotations())
		}
		if _, err := io.WriteString(out, printer.Print(unit.Info)); err != nil {
			return fmt.Errorf("print unit %s: %w", unit.Info.ID, err)
		}
	}
	return nil
}
