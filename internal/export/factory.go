package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/kbexport/internal/scrape"
)

// Page is what both exporters need from a browser tab.
type Page interface {
	Printer
	scrape.Fetcher
}

// Settings are the format-independent exporter settings.
type Settings struct {
	Settle     time.Duration
	Chrome     []string
	Candidates []string
	Logger     *slog.Logger
}

// New returns the exporter for format, reading pages through p.
func New(format string, p Page, s Settings) (Exporter, error) {
	switch format {
	case FormatMarkdown, "md", "":
		return NewMarkdown(p,
			WithMarkdownSettle(s.Settle),
			WithChrome(s.Chrome),
			WithContentCandidates(s.Candidates),
			WithMarkdownLogger(s.Logger),
		), nil
	case FormatPDF:
		return NewPDF(p,
			WithPDFSettle(s.Settle),
			WithPDFChrome(s.Chrome),
			WithPDFLogger(s.Logger),
		), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
