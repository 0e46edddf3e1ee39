package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/kbexport/internal/model"
	"github.com/nao1215/kbexport/internal/report"
)

// ErrNoSummary is returned by steps that need the summary of a crawl that
// never ran.
var ErrNoSummary = errors.New("pipeline: job has no summary")

// Crawler is the part of crawler.Crawler a pipeline needs.
type Crawler interface {
	Crawl(ctx context.Context, rootURL string) (*model.Summary, error)
}

// History is the part of database.HistoryDB a pipeline needs.
type History interface {
	StartRun(ctx context.Context, rootURL, outputDir, format string, startedAt time.Time) (int64, error)
	RecordExport(ctx context.Context, runID int64, url, directory string, res model.ExportResult) error
	FinishRun(ctx context.Context, runID int64, summary *model.Summary) error
}

// CrawlStep crawls the job's root URL.
type CrawlStep struct {
	crawler Crawler
	logger  *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a step that runs c against the job's root.
func NewCrawlStep(c Crawler, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{crawler: c}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do crawls the root. A cancelled crawl still stores its partial summary.
func (s *CrawlStep) Do(ctx context.Context, job *Job) error {
	summary, err := s.crawler.Crawl(ctx, job.RootURL)
	if summary != nil {
		job.Summary = summary
	}
	if err != nil {
		return fmt.Errorf("crawl %s: %w", job.RootURL, err)
	}

	s.logger.Info("crawl finished",
		"root", job.RootURL,
		"visited", summary.TotalVisited(),
		"exported", summary.TotalExported(),
		"failed", summary.StateCount(model.NodeFailed),
	)
	return nil
}

// StartRunStep opens a history row for the job.
type StartRunStep struct {
	history   History
	outputDir string
	format    string
}

// NewStartRunStep creates a step that records the start of the job.
func NewStartRunStep(h History, outputDir, format string) *StartRunStep {
	return &StartRunStep{history: h, outputDir: outputDir, format: format}
}

// Name returns the step name.
func (s *StartRunStep) Name() string {
	return "history-start"
}

// Do inserts the run row and stores its ID in job.RunID.
func (s *StartRunStep) Do(ctx context.Context, job *Job) error {
	id, err := s.history.StartRun(ctx, job.RootURL, s.outputDir, s.format, time.Now())
	if err != nil {
		return err
	}
	job.RunID = id
	return nil
}

// FinishRunStep stores the totals of the job in its history row.
type FinishRunStep struct {
	history History
}

// NewFinishRunStep creates a final step that closes the history row.
func NewFinishRunStep(h History) *FinishRunStep {
	return &FinishRunStep{history: h}
}

// Name returns the step name.
func (s *FinishRunStep) Name() string {
	return "history-finish"
}

// Do updates the run row. Jobs whose run was never started are skipped.
func (s *FinishRunStep) Do(ctx context.Context, job *Job) error {
	if job.RunID == 0 {
		return nil
	}
	if job.Summary == nil {
		return ErrNoSummary
	}
	return s.history.FinishRun(ctx, job.RunID, job.Summary)
}

// ExportRecorder returns a crawl observer that stores every export attempt
// of job in h. Attempts seen before the run row exists are dropped.
func ExportRecorder(h History, job *Job, logger *slog.Logger) func(model.NodeEvent) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ev model.NodeEvent) {
		if ev.Export == nil || job.RunID == 0 {
			return
		}
		if err := h.RecordExport(context.Background(), job.RunID, ev.URL, ev.Directory, *ev.Export); err != nil {
			logger.Warn("failed to record export in history",
				"url", ev.URL,
				"error", err,
			)
		}
	}
}

// SummaryStep writes the summary of a job. One SummaryStep may be shared by
// the pipelines of a batch; writes are serialized.
type SummaryStep struct {
	writer report.Writer
	mu     sync.Mutex
}

// NewSummaryStep creates a step that writes job summaries to w.
func NewSummaryStep(w report.Writer) *SummaryStep {
	return &SummaryStep{writer: w}
}

// Name returns the step name.
func (s *SummaryStep) Name() string {
	return "summary"
}

// Do writes the job summary.
func (s *SummaryStep) Do(_ context.Context, job *Job) error {
	if job.Summary == nil {
		return ErrNoSummary
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.Write(job.Summary); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
