package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nao1215/kbexport/internal/crawler"
	"github.com/nao1215/kbexport/internal/model"
	"github.com/nao1215/kbexport/internal/naming"
)

// Format names accepted by New.
const (
	FormatMarkdown = "markdown"
	FormatPDF      = "pdf"
)

// filePerm is used for every exported document.
const filePerm = 0o600

// Exporter is a DocumentExporter for one format.
type Exporter interface {
	crawler.DocumentExporter

	// Format returns the format name.
	Format() string
}

// reserve spends the next sequence number of req.Dir.
func reserve(req crawler.ExportRequest) int {
	if req.Counter == nil {
		return 0
	}
	return req.Counter.Next(req.Dir)
}

// target returns the file to write for req. An explicit filename gets ext
// appended when missing; otherwise the name is built from seq and title.
func target(req crawler.ExportRequest, seq int, title, ext string, stemMax int) string {
	if req.Filename != "" {
		return filepath.Join(req.Dir, naming.EnsureExt(req.Filename, ext))
	}
	return filepath.Join(req.Dir, naming.Filename(seq, naming.TitleStem(title, stemMax), ext))
}

// write stores data at path.
func write(path string, data []byte) error {
	if err := os.WriteFile(path, data, filePerm); err != nil {
		return fmt.Errorf("%w: %w", ErrExport, err)
	}
	return nil
}

// failed logs err and returns the failure result for req.
func failed(logger *slog.Logger, req crawler.ExportRequest, seq int, err error) model.ExportResult {
	logger.Error("export failed", "url", req.URL, "dir", req.Dir, "sequence", seq, "error", err)
	return model.FailedExport(req.URL, seq)
}

// checkContext returns the context error wrapped as an export failure.
func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrExport, err)
	}
	return nil
}
