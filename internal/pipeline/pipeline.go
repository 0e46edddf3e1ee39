package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/kbexport/internal/model"
)

// Job is the state of one root URL flowing through a Pipeline.
type Job struct {
	// Index is the position of the root in the batch input.
	Index int

	// RootURL is the knowledge base URL the crawl starts from.
	RootURL string

	// Summary is set by the crawl step, also for a cancelled crawl.
	Summary *model.Summary

	// RunID is the history row of the job, zero when history is off.
	RunID int64

	// Err is the first error a step returned.
	Err error

	// Performed lists the names of the steps that ran.
	Performed []string
}

// NewJob returns a job for rootURL at position index.
func NewJob(index int, rootURL string) *Job {
	return &Job{
		Index:     index,
		RootURL:   rootURL,
		Performed: make([]string, 0),
	}
}

// Step defines the interface that all pipeline steps must implement.
type Step interface {
	// Do executes the step against job. A returned error is recorded in
	// job.Err.
	Do(ctx context.Context, job *Job) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of the steps of one job.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// finals run after steps, whatever happened to them.
	finals []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError keeps executing steps after one fails.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:  make([]Step, 0),
		finals: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// AddFinalStep appends a step that runs after all regular steps, even when
// one of them failed or ctx was cancelled. Final steps receive a context
// that is never cancelled.
func (p *Pipeline) AddFinalStep(step Step) {
	p.finals = append(p.finals, step)
}

// Execute runs the regular steps in sequence, then the final steps.
// It checks ctx before each regular step; a step already running is
// expected to honour ctx itself.
//
// Returns the first error encountered, which is also stored in job.Err.
func (p *Pipeline) Execute(ctx context.Context, job *Job) error {
	p.logger.Debug("pipeline started",
		"root", job.RootURL,
		"steps", p.StepNames(),
	)

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"root", job.RootURL,
				"reason", err,
			)
			p.record(job, err)
			break
		}

		if err := p.run(ctx, step, job); err != nil && !p.continueOnError {
			break
		}
	}

	finalCtx := context.WithoutCancel(ctx)
	for _, step := range p.finals {
		_ = p.run(finalCtx, step, job) //nolint:errcheck // recorded in job.Err
	}

	return job.Err
}

// run executes one step and records its outcome in job.
func (p *Pipeline) run(ctx context.Context, step Step, job *Job) error {
	p.logger.Debug("executing step",
		"step", step.Name(),
		"root", job.RootURL,
	)

	err := step.Do(ctx, job)
	job.Performed = append(job.Performed, step.Name())
	if err != nil {
		p.logger.Error("step failed",
			"step", step.Name(),
			"root", job.RootURL,
			"error", err,
		)
		p.record(job, err)
		return err
	}

	p.logger.Debug("step completed",
		"step", step.Name(),
		"root", job.RootURL,
	)
	return nil
}

// record keeps the first error of the job.
func (p *Pipeline) record(job *Job, err error) {
	if job.Err == nil {
		job.Err = err
	}
}

// StepCount returns the number of regular and final steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps) + len(p.finals)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, p.StepCount())
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	for _, step := range p.finals {
		names = append(names, step.Name())
	}
	return names
}
