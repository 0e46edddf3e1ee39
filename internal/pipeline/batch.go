package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of roots crawled at once when no
// WithConcurrency option is given.
const DefaultConcurrency = 1

// Factory builds the pipeline of one job. The returned release function
// frees per-job resources such as the browser tab and may be nil.
type Factory func(job *Job) (*Pipeline, func(), error)

// BatchProcessor runs one independent crawl per root URL.
// It uses errgroup to manage goroutines and respect concurrency limits.
type BatchProcessor struct {
	// factory creates a fresh pipeline for each job.
	factory Factory

	// concurrency is the maximum number of concurrent crawls.
	concurrency int

	// fatal reports whether a job error must abort the whole batch.
	fatal func(error) bool

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent crawls.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithFatal sets the predicate that decides whether a job error cancels
// the remaining jobs. By default no error is fatal.
func WithFatal(fatal func(error) bool) BatchOption {
	return func(b *BatchProcessor) {
		b.fatal = fatal
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(factory Factory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: DefaultConcurrency,
		fatal:       func(error) bool { return false },
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch crawls every root and returns the jobs in input order.
// Jobs that never started because the batch was cancelled are returned
// with their context error.
//
// The error return is the first fatal job error, or the context error when
// the batch was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, roots []string) ([]*Job, error) {
	jobs := make([]*Job, len(roots))
	err := bp.ProcessBatchWithCallback(ctx, roots, func(job *Job) {
		jobs[job.Index] = job
	})
	return jobs, err
}

// ProcessBatchWithCallback crawls every root and calls callback once per
// job as it completes. The callback is called from the goroutine that ran
// the job, so it must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(ctx context.Context, roots []string, callback func(job *Job)) error {
	bp.logger.Info("starting batch",
		"roots", len(roots),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, root := range roots {
		g.Go(func() error {
			job := NewJob(i, root)
			defer callback(job)

			if err := gctx.Err(); err != nil {
				job.Err = err
				return nil
			}

			bp.logger.Info("crawling root",
				"root", root,
				"index", i+1,
				"total", len(roots),
			)

			err := bp.runJob(gctx, job)
			if err != nil && bp.fatal(err) {
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	bp.logger.Info("batch complete",
		"roots", len(roots),
		"elapsed", time.Since(startTime),
	)
	return err
}

// runJob builds the job's pipeline, executes it and releases its
// resources.
func (bp *BatchProcessor) runJob(ctx context.Context, job *Job) error {
	p, release, err := bp.factory(job)
	if err != nil {
		bp.logger.Error("failed to prepare crawl", "root", job.RootURL, "error", err)
		job.Err = err
		return err
	}
	if release != nil {
		defer release()
	}

	if err := p.Execute(ctx, job); err != nil {
		bp.logger.Warn("crawl ended with error", "root", job.RootURL, "error", err)
		return err
	}
	return nil
}
