package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/kbexport/internal/browser"
	"github.com/nao1215/kbexport/internal/crawler"
	"github.com/nao1215/kbexport/internal/model"
	"github.com/nao1215/kbexport/internal/naming"
)

// Printer prints a page to PDF after removing the given elements.
type Printer interface {
	PrintPDF(ctx context.Context, pageURL string, settle time.Duration, removeSelectors []string, opts browser.PDFOptions) (string, []byte, error)
}

// errEmptyPDF is returned when the printer produced no bytes.
var errEmptyPDF = errors.New("printer returned an empty document")

// PDFExporter writes posts as PDF files.
type PDFExporter struct {
	printer Printer
	settle  time.Duration
	chrome  []string
	opts    browser.PDFOptions
	logger  *slog.Logger
}

// PDFOption configures a PDFExporter.
type PDFOption func(*PDFExporter)

// WithPDFSettle sets the render wait.
func WithPDFSettle(d time.Duration) PDFOption {
	return func(e *PDFExporter) {
		if d >= 0 {
			e.settle = d
		}
	}
}

// WithPDFChrome replaces the selectors of elements removed before printing.
func WithPDFChrome(selectors []string) PDFOption {
	return func(e *PDFExporter) {
		if len(selectors) > 0 {
			e.chrome = selectors
		}
	}
}

// WithPDFOptions overrides paper and margins.
func WithPDFOptions(opts browser.PDFOptions) PDFOption {
	return func(e *PDFExporter) {
		e.opts = opts
	}
}

// WithPDFLogger sets the logger.
func WithPDFLogger(logger *slog.Logger) PDFOption {
	return func(e *PDFExporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewPDF creates a PDFExporter printing through p.
func NewPDF(p Printer, opts ...PDFOption) *PDFExporter {
	e := &PDFExporter{
		printer: p,
		settle:  DefaultSettle,
		chrome:  DefaultChrome(),
		opts:    browser.DefaultPDFOptions(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Format returns "pdf".
func (e *PDFExporter) Format() string {
	return FormatPDF
}

// Export prints req.URL and writes the PDF under req.Dir.
func (e *PDFExporter) Export(ctx context.Context, req crawler.ExportRequest) model.ExportResult {
	seq := reserve(req)

	if err := checkContext(ctx); err != nil {
		return failed(e.logger, req, seq, err)
	}
	title, pdf, err := e.printer.PrintPDF(ctx, req.URL, e.settle, e.chrome, e.opts)
	if err != nil {
		return failed(e.logger, req, seq, fmt.Errorf("%w: %w", ErrExport, err))
	}
	if len(pdf) == 0 {
		return failed(e.logger, req, seq, fmt.Errorf("%w: %w", ErrExport, errEmptyPDF))
	}

	path := target(req, seq, title, "pdf", naming.PDFStemMax)
	if err := write(path, pdf); err != nil {
		return failed(e.logger, req, seq, err)
	}

	e.logger.Debug("pdf written", "url", req.URL, "path", path, "bytes", len(pdf))
	return model.ExportResult{Success: true, Path: path, Title: title, Sequence: seq}
}
