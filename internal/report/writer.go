package report

import (
	"io"

	"github.com/nao1215/kbexport/internal/model"
)

// Writer defines the interface for summary output.
type Writer interface {
	// Write outputs the summary to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(summary *model.Summary) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// Our Writer writes summaries, not raw bytes, so io.MultiWriter does not fit.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the summary to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(summary *model.Summary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// stateOrder is the order in which node states are listed in every format.
var stateOrder = []model.NodeState{
	model.NodeExported,
	model.NodeExpanded,
	model.NodeFailed,
	model.NodeSkipped,
	model.NodeRefused,
	model.NodeFiltered,
}

// statusText describes how the run ended.
func statusText(s *model.Summary) string {
	switch {
	case s.Cancelled:
		return "Cancelled (partial results)"
	case s.StateCount(model.NodeFailed) > 0:
		return "Complete with failures"
	default:
		return "Complete"
	}
}
