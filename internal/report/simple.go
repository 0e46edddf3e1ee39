package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/kbexport/internal/model"
)

// SimpleWriter outputs the human-readable CRAWL SUMMARY.
// Plain ASCII keeps the output usable when piped to a file.
type SimpleWriter struct {
	baseWriter

	// showEmpty lists node states that never occurred.
	showEmpty bool

	// verbose lists every visited URL after the directory table.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to list states with a zero count.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables the visited URL listing.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(summary *model.Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeStates(&sb, summary)
	w.writeDirectories(&sb, summary)
	if w.verbose {
		w.writeVisited(&sb, summary)
	}
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the run information block.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *model.Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("CRAWL SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Root URL:           %s\n", s.RootURL)
	fmt.Fprintf(sb, "Output directory:   %s\n", s.OutputDir)
	fmt.Fprintf(sb, "Format:             %s\n", s.Format)
	fmt.Fprintf(sb, "Total URLs visited: %d\n", s.TotalVisited())
	fmt.Fprintf(sb, "Documents exported: %d\n", s.TotalExported())
	fmt.Fprintf(sb, "Duration:           %s\n", s.Duration().Round(time.Millisecond))
	fmt.Fprintf(sb, "Status:             %s\n", statusText(s))
	sb.WriteString("\n")
}

// writeStates writes the per-state node counts.
func (w *SimpleWriter) writeStates(sb *strings.Builder, s *model.Summary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("NODES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, state := range stateOrder {
		n := s.StateCount(state)
		if n == 0 && !w.showEmpty {
			continue
		}
		fmt.Fprintf(sb, "  %-10s %d\n", strings.ToUpper(state.String())+":", n)
	}
	sb.WriteString("\n")
}

// writeDirectories writes one line per output directory. Paths are shown
// relative to the output root when possible.
func (w *SimpleWriter) writeDirectories(sb *strings.Builder, s *model.Summary) {
	if len(s.Directories) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("DIRECTORIES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	unit := "Markdown files"
	if s.Format == "pdf" {
		unit = "PDFs"
	}
	for _, d := range s.Directories {
		fmt.Fprintf(sb, "  %s: %d %s", relativeDir(s.OutputDir, d.Path), d.Exported, unit)
		if d.Attempts != d.Exported {
			fmt.Fprintf(sb, " (%d attempted)", d.Attempts)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

// writeVisited lists the visited URLs in visit order.
func (w *SimpleWriter) writeVisited(sb *strings.Builder, s *model.Summary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("VISITED\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for i, u := range s.Visited {
		fmt.Fprintf(sb, "  %3d. %s\n", i+1, u)
	}
	sb.WriteString("\n")
}

// relativeDir returns dir relative to root, or dir unchanged when it is not
// below root.
func relativeDir(root, dir string) string {
	if root == "" {
		return dir
	}
	rel, err := filepath.Rel(root, dir)
	if err != nil || strings.HasPrefix(rel, "..") {
		return dir
	}
	return filepath.ToSlash(rel)
}
