package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nao1215/kbexport/internal/browser"
	"github.com/nao1215/kbexport/internal/config"
	"github.com/nao1215/kbexport/internal/crawler"
	"github.com/nao1215/kbexport/internal/database"
	"github.com/nao1215/kbexport/internal/export"
	seclog "github.com/nao1215/kbexport/internal/log"
	"github.com/nao1215/kbexport/internal/model"
	"github.com/nao1215/kbexport/internal/naming"
	"github.com/nao1215/kbexport/internal/outdir"
	"github.com/nao1215/kbexport/internal/pipeline"
	"github.com/nao1215/kbexport/internal/report"
	"github.com/nao1215/kbexport/internal/scrape"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [root-folder-url]...",
		Short: "Mirror a knowledge base folder tree to local documents",
		Long: `Crawl walks a knowledge base folder tree depth-first in a headless Chrome
and exports every post it finds.

Each post is written to the directory named by its own breadcrumb, as
{seq}_{title}.md (or .pdf). The folder tree on disk mirrors the knowledge
base, and the end-of-run summary lists how many documents landed in each
directory.

Examples:
  # Export a folder tree as Markdown into ./kb_export
  kbexport crawl "https://kb.example.com/t/acme#/folders/1/handbook"

  # Export as PDF, two levels deep, into a custom directory
  kbexport crawl -f pdf -d 2 -o handbook "https://kb.example.com/t/acme#/folders/1/handbook"

  # Crawl two roots at once and record the runs
  kbexport crawl -b 2 --history URL1 URL2

  # Use baseUrl from the configuration file
  kbexport crawl

Configuration file (.kbexport) example:
  baseUrl: "https://kb.example.com/t/acme#/folders/1/handbook"
  sites:
    kb.example.com:
      cookie:
        name: thorn_session
        value: "${KBEXPORT_SESSION}"
      ignorePatterns:
        - "/folders/99/*"`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Output flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputDir,
		"Root directory of the mirrored folder tree")
	cmd.Flags().StringP("format", "f", config.FormatMarkdown,
		"Document format: markdown or pdf")

	// Crawl behavior flags
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Deepest folder level to expand (the root folder is 0)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultNavigationTimeout,
		"Navigation timeout for each page")
	cmd.Flags().Duration("settle", config.DefaultScrapeSettle,
		"Render wait before reading a folder listing or breadcrumb")
	cmd.Flags().Duration("export-settle", config.DefaultExportSettle,
		"Render wait before exporting a post")
	cmd.Flags().Duration("delay", config.DefaultDelay,
		"Pause between page operations")
	cmd.Flags().IntP("concurrency", "b", config.DefaultConcurrency,
		"Number of root URLs crawled at once")

	// Browser flags
	cmd.Flags().Bool("headful", false, "Show the Chrome window while crawling")
	cmd.Flags().String("chrome", "", "Path to the Chrome executable")
	cmd.Flags().String("user-agent", config.DefaultUserAgent, "Override the browser User-Agent")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .kbexport in current or home directory)")

	// Summary and logging flags
	cmd.Flags().String("summary", config.SummaryText,
		"Summary format: text, markdown or json")
	cmd.Flags().String("summary-file", "",
		"Write the summary to the specified file instead of stdout")
	cmd.Flags().Bool("history", false,
		"Record the run in the history database")
	cmd.Flags().Bool("no-progress", false, "Disable the progress spinner")
	cmd.Flags().String("log-format", config.LogText, "Log format: text or json")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	noProgress, err := cmd.Flags().GetBool("no-progress")
	if err != nil {
		return err
	}
	showProgress := !noProgress && !cfg.Verbose && cfg.LogFormat == config.LogText

	logger := setupLogger(cmd.ErrOrStderr(), cfg, showProgress)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, stopping after the current page...")
			cancel()
		case <-ctx.Done():
		}
	}()

	var prog *progress
	if showProgress {
		prog = newProgress(cmd.ErrOrStderr())
	}

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout(), prog)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags and the
// configuration file. Flags the user set explicitly win over the file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.OutputDir, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.Format, err = flags.GetString("format"); err != nil {
		return nil, err
	}
	if cfg.MaxDepth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	cfg.DepthFromFlag = flags.Changed("depth")
	if cfg.NavigationTimeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.ScrapeSettle, err = flags.GetDuration("settle"); err != nil {
		return nil, err
	}
	if cfg.ExportSettle, err = flags.GetDuration("export-settle"); err != nil {
		return nil, err
	}
	if cfg.Delay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}

	headful, err := flags.GetBool("headful")
	if err != nil {
		return nil, err
	}
	cfg.Headless = !headful

	if cfg.ChromePath, err = flags.GetString("chrome"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.SummaryFormat, err = flags.GetString("summary"); err != nil {
		return nil, err
	}
	if cfg.SummaryFile, err = flags.GetString("summary-file"); err != nil {
		return nil, err
	}
	if cfg.RecordHistory, err = flags.GetBool("history"); err != nil {
		return nil, err
	}
	if cfg.LogFormat, err = flags.GetString("log-format"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	// If the user explicitly specified a config file path, error if not found.
	// If no path is specified, silently use an empty config.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.SiteConfigs.ApplyTo(cfg, flags.Changed)
	case explicitConfigPath:
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.Targets = args
	if len(cfg.Targets) == 0 && cfg.BaseURL != "" {
		cfg.Targets = []string{cfg.BaseURL}
	}

	return cfg, nil
}

// setupLogger creates the run logger. While the spinner owns the terminal
// only warnings and errors are logged.
func setupLogger(w io.Writer, cfg *config.Config, quiet bool) *slog.Logger {
	switch {
	case cfg.LogFormat == config.LogJSON:
		return seclog.NewSecureJSONLogger(w, cfg.Verbose)
	case quiet:
		return seclog.NewQuietLogger(w)
	default:
		return seclog.NewSecureLogger(w, cfg.Verbose)
	}
}

// runCrawl crawls every target and writes the run summaries.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer, prog *progress) error {
	logger.Info("starting crawl",
		"targets", cfg.Targets,
		"output", cfg.OutputDir,
		"format", cfg.Format,
		"maxDepth", cfg.MaxDepth,
		"concurrency", cfg.Concurrency,
	)

	paths, err := outdir.New(cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to prepare output directory: %w", err)
	}

	var history *database.HistoryDB
	if cfg.RecordHistory {
		history, err = database.Open(cfg.HistoryDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer history.Close()
		logger.Info("history database opened", "path", history.Path())
	}

	summaryOut, closeSummary, err := openSummaryOutput(cfg.SummaryFile, stdout)
	if err != nil {
		return err
	}
	defer closeSummary()
	summaries := newSummaryWriter(cfg, summaryOut)

	b := browser.New(browserOptions(cfg, logger)...)
	if err := b.Start(ctx); err != nil {
		return err
	}
	defer b.Close()

	if prog != nil {
		prog.Start()
		defer prog.Stop()
	}

	// Roots may resolve to the same directory, so sequence numbers are
	// handed out by one counter for the whole batch.
	counter := naming.NewCounter()

	factory := func(job *pipeline.Job) (*pipeline.Pipeline, func(), error) {
		site := cfg.Site(job.RootURL)

		tab, err := b.NewTab(site.Headers)
		if err != nil {
			return nil, nil, err
		}

		resolver := scrape.NewResolver(tab,
			scrape.WithSelectors(scrape.Selectors{
				BreadcrumbContainer: site.Selectors.BreadcrumbContainer,
				BreadcrumbLinks:     site.Selectors.BreadcrumbLinks,
				Listing:             site.Selectors.Listing,
			}),
			scrape.WithSettle(cfg.ScrapeSettle),
			scrape.WithLogger(logger),
		)

		exporter, err := export.New(cfg.Format, tab, export.Settings{
			Settle:     cfg.ExportSettle,
			Chrome:     site.Selectors.Chrome,
			Candidates: site.Selectors.Content,
			Logger:     logger,
		})
		if err != nil {
			tab.Close()
			return nil, nil, err
		}

		var observers []func(model.NodeEvent)
		if prog != nil {
			observers = append(observers, prog.Observer(job.RootURL))
		}
		if history != nil {
			observers = append(observers, pipeline.ExportRecorder(history, job, logger))
		}

		c := crawler.New(resolver, resolver, exporter, paths,
			crawler.WithMaxDepth(cfg.DepthFor(job.RootURL)),
			crawler.WithCounter(counter),
			crawler.WithOutput(paths.Root(), exporter.Format()),
			crawler.WithDelay(cfg.Delay),
			crawler.WithIgnorePatterns(site.IgnorePatterns),
			crawler.WithFollowPatterns(site.FollowPatterns),
			crawler.WithLogger(logger),
			crawler.WithObserver(fanOut(observers...)),
		)

		p := pipeline.New(
			pipeline.WithLogger(logger),
			pipeline.WithContinueOnError(true),
		)
		var steps []pipeline.Step
		if history != nil {
			steps = append(steps, pipeline.NewStartRunStep(history, paths.Root(), cfg.Format))
		}
		steps = append(steps, pipeline.NewCrawlStep(c, pipeline.WithCrawlLogger(logger)))
		p.AddSteps(steps...)
		if history != nil {
			p.AddFinalStep(pipeline.NewFinishRunStep(history))
		}
		p.AddFinalStep(pipeline.NewSummaryStep(summaries))

		release := func() {
			if prog != nil {
				prog.Done(job.RootURL)
			}
			tab.Close()
		}
		return p, release, nil
	}

	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithBatchLogger(logger),
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithFatal(func(err error) bool {
			return errors.Is(err, browser.ErrInitialization)
		}),
	)

	jobs, err := bp.ProcessBatch(ctx, cfg.Targets)
	for _, dc := range counter.Snapshot() {
		logger.Debug("directory sequence", "dir", dc.Dir, "attempts", dc.Attempts)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return errors.New("crawl interrupted: partial results were kept")
		}
		return err
	}

	return jobErrors(jobs)
}

// browserOptions translates cfg into browser options. One cookie is
// installed per configured site so a single Chrome serves every root.
func browserOptions(cfg *config.Config, logger *slog.Logger) []browser.Option {
	opts := []browser.Option{
		browser.WithHeadless(cfg.Headless),
		browser.WithNavigationTimeout(cfg.NavigationTimeout),
		browser.WithUserAgent(cfg.UserAgent),
		browser.WithExecPath(cfg.ChromePath),
		browser.WithLogger(logger),
	}

	seen := make(map[string]bool)
	for _, target := range cfg.Targets {
		origin := originOf(target)
		if seen[origin] {
			continue
		}
		seen[origin] = true
		if c := cfg.Site(target).Cookie; c != nil {
			opts = append(opts, browser.WithCookie(browser.Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Secure:   c.Secure,
				HTTPOnly: c.HTTPOnly,
				URL:      origin,
			}))
		}
	}
	return opts
}

// originOf returns scheme://host of rawURL, or rawURL itself when it does
// not parse.
func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Scheme + "://" + u.Host
}

// fanOut combines node observers into one.
func fanOut(observers ...func(model.NodeEvent)) func(model.NodeEvent) {
	if len(observers) == 0 {
		return nil
	}
	return func(ev model.NodeEvent) {
		for _, fn := range observers {
			fn(ev)
		}
	}
}

// openSummaryOutput returns the destination of the run summaries: the named
// file (created with owner-only permissions) or stdout.
func openSummaryOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create summary directory: %w", err)
		}
	}

	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create summary file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// newSummaryWriter selects the summary writer for cfg.SummaryFormat.
func newSummaryWriter(cfg *config.Config, w io.Writer) report.Writer {
	switch cfg.SummaryFormat {
	case config.SummaryJSON:
		return report.NewJSONWriter(w, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case config.SummaryMarkdown:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
	}
}

// jobErrors reports the roots whose crawl could not run.
func jobErrors(jobs []*pipeline.Job) error {
	var errs []error
	for _, job := range jobs {
		if job.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", job.RootURL, job.Err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d crawls failed: %w", len(errs), len(jobs), errors.Join(errs...))
}
