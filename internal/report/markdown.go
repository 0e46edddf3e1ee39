package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/kbexport/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs the summary as Markdown tables, with a mermaid
// pie chart of node states.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeStates(md, summary)
	w.writeDirectories(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the run information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *model.Summary) {
	md.H1("Crawl Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Root URL", "`" + s.RootURL + "`"},
			{"Output Directory", "`" + s.OutputDir + "`"},
			{"Format", s.Format},
			{"Started", s.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", s.Duration().Round(time.Millisecond).String()},
			{"URLs Visited", strconv.Itoa(s.TotalVisited())},
			{"Documents Exported", strconv.Itoa(s.TotalExported())},
			{"Status", statusText(s)},
		},
	})
	md.PlainText("")

	w.writeAlert(md, s)
}

// writeAlert flags cancelled runs and runs with failed nodes.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *model.Summary) {
	failed := s.StateCount(model.NodeFailed)
	switch {
	case s.Cancelled:
		md.Warningf("The crawl of %s was cancelled. The output tree is incomplete.", s.RootURL)
	case failed > 0:
		md.Importantf("%d node(s) failed. See the run log for URLs and errors.", failed)
	default:
		md.Tip("Every visited node completed.")
	}
	md.PlainText("")
}

// writeStates writes the node state table and its pie chart.
func (w *MarkdownWriter) writeStates(md *markdown.Markdown, s *model.Summary) {
	md.H2("Nodes")
	md.PlainText("")

	rows := make([][]string, 0, len(stateOrder))
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Node States"),
		piechart.WithShowData(true),
	)
	charted := false
	for _, state := range stateOrder {
		n := s.StateCount(state)
		rows = append(rows, []string{state.String(), strconv.Itoa(n)})
		if n > 0 {
			chart.LabelAndIntValue(state.String(), uint64(n))
			charted = true
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"State", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if charted {
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}
}

// writeDirectories writes one row per output directory.
func (w *MarkdownWriter) writeDirectories(md *markdown.Markdown, s *model.Summary) {
	md.H2("Directories")
	md.PlainText("")

	if len(s.Directories) == 0 {
		md.PlainText("No documents were attempted.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(s.Directories))
	for i, d := range s.Directories {
		rows[i] = []string{
			"`" + relativeDir(s.OutputDir, d.Path) + "`",
			strconv.Itoa(d.Exported),
			strconv.Itoa(d.Attempts),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Directory", "Exported", "Attempted"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Summary generated by [kbexport](https://github.com/nao1215/kbexport)*")
}
