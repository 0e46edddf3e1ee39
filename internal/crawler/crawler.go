package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/nao1215/kbexport/internal/model"
	"github.com/nao1215/kbexport/internal/naming"
)

// DefaultMaxDepth is the folder depth ceiling used when none is configured.
const DefaultMaxDepth = 10

// BreadcrumbResolver returns the normalized folder label of a page.
// An empty label means the page has no usable navigation trail.
type BreadcrumbResolver interface {
	ResolveBreadcrumb(ctx context.Context, pageURL string) (string, error)
}

// LinkExtractor returns the links of a page's listing table.
type LinkExtractor interface {
	ExtractLinks(ctx context.Context, pageURL string) ([]model.Link, error)
}

// ExportRequest asks a DocumentExporter to write one post into Dir.
type ExportRequest struct {
	// URL is the post to export.
	URL string

	// Dir is the absolute destination directory. It exists on disk.
	Dir string

	// Filename overrides the generated name when non-empty.
	Filename string

	// Counter is the run's per-directory sequence. Exporters reserve a
	// number from it for Dir before rendering.
	Counter *naming.Counter
}

// DocumentExporter renders and persists one post. Failures are reported
// through the result rather than an error.
type DocumentExporter interface {
	Export(ctx context.Context, req ExportRequest) model.ExportResult
}

// PathResolver maps a folder path to an existing directory.
type PathResolver interface {
	Resolve(path model.FolderPath) (string, error)
}

// Crawler walks a knowledge base depth-first from a root folder, mirrors
// its folder hierarchy through a PathResolver and hands every post to a
// DocumentExporter.
//
// A Crawler holds no per-run state. Each Crawl call owns its visited set
// and summary, so one Crawler can serve several runs, including concurrent
// ones, as long as the collaborators allow it. Sequence numbers come from
// the counter set with WithCounter, or from a fresh one per call.
type Crawler struct {
	breadcrumbs BreadcrumbResolver
	links       LinkExtractor
	exporter    DocumentExporter
	paths       PathResolver

	// maxDepth is the deepest folder that is still expanded.
	// The root folder has depth 0.
	maxDepth int

	// delay is the pause between two page operations.
	delay time.Duration

	// ignorePatterns are route patterns to skip.
	ignorePatterns []string

	// followPatterns, when set, restrict the crawl to matching routes.
	followPatterns []string

	// counter is shared by every Crawl call when set. Otherwise each call
	// numbers its directories on its own.
	counter *naming.Counter

	// outputDir and format are copied into every summary.
	outputDir string
	format    string

	logger   *slog.Logger
	observer func(model.NodeEvent)
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithMaxDepth sets the folder depth ceiling. Negative values are ignored.
func WithMaxDepth(depth int) Option {
	return func(c *Crawler) {
		if depth >= 0 {
			c.maxDepth = depth
		}
	}
}

// WithDelay sets the pause between page operations.
func WithDelay(d time.Duration) Option {
	return func(c *Crawler) {
		c.delay = d
	}
}

// WithIgnorePatterns sets route patterns to skip during crawling.
// Patterns use glob syntax against the SPA route, e.g. "/folders/archive*".
// The root URL is never filtered.
func WithIgnorePatterns(patterns []string) Option {
	return func(c *Crawler) {
		c.ignorePatterns = patterns
	}
}

// WithFollowPatterns restricts crawling to routes matching at least one
// pattern. Empty means every route is allowed.
func WithFollowPatterns(patterns []string) Option {
	return func(c *Crawler) {
		c.followPatterns = patterns
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver registers fn to receive every node's terminal event.
// fn runs on the crawl goroutine and must not block for long.
func WithObserver(fn func(model.NodeEvent)) Option {
	return func(c *Crawler) {
		c.observer = fn
	}
}

// WithCounter shares counter between crawls that write into the same
// output tree, so that two roots resolving to one directory never receive
// the same sequence number.
func WithCounter(counter *naming.Counter) Option {
	return func(c *Crawler) {
		c.counter = counter
	}
}

// WithOutput records the output root and document format in the summary
// of every crawl.
func WithOutput(outputDir, format string) Option {
	return func(c *Crawler) {
		c.outputDir = outputDir
		c.format = format
	}
}

// New creates a Crawler from its collaborators.
func New(breadcrumbs BreadcrumbResolver, links LinkExtractor, exporter DocumentExporter, paths PathResolver, opts ...Option) *Crawler {
	c := &Crawler{
		breadcrumbs: breadcrumbs,
		links:       links,
		exporter:    exporter,
		paths:       paths,
		maxDepth:    DefaultMaxDepth,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// frame is one pending node on the work stack.
type frame struct {
	url       string
	kind      model.LinkKind
	depth     int
	inherited model.FolderPath
}

// crawlState is everything one Crawl call mutates.
type crawlState struct {
	visited map[string]struct{}
	counter *naming.Counter

	// attempts and exported count this call's exports per directory. The
	// counter may be shared and cannot tell runs apart.
	attempts map[string]int
	exported map[string]int

	summary *model.Summary
	touched bool
}

func (c *Crawler) newCrawlState(rootURL string) *crawlState {
	counter := c.counter
	if counter == nil {
		counter = naming.NewCounter()
	}
	return &crawlState{
		visited:  make(map[string]struct{}),
		counter:  counter,
		attempts: make(map[string]int),
		exported: make(map[string]int),
		summary:  model.NewSummary(rootURL, c.outputDir, c.format),
	}
}

// visit adds u to the visited set and reports whether it was new.
func (s *crawlState) visit(u string) bool {
	if _, ok := s.visited[u]; ok {
		return false
	}
	s.visited[u] = struct{}{}
	s.summary.Visited = append(s.summary.Visited, u)
	return true
}

func (s *crawlState) finish() *model.Summary {
	stats := make([]model.DirectoryStat, 0, len(s.attempts))
	for dir, n := range s.attempts {
		stats = append(stats, model.DirectoryStat{
			Path:     dir,
			Attempts: n,
			Exported: s.exported[dir],
		})
	}
	s.summary.SetDirectories(stats)
	s.summary.FinishedAt = time.Now()
	return s.summary
}

// Crawl traverses the knowledge base starting at the folder rootURL and
// returns when every reachable node has been processed.
//
// Collaborator failures never stop the crawl: the node is logged and marked
// failed, and traversal continues with its siblings. The only error returned
// is the context error when ctx is cancelled, in which case the partial
// summary is returned along with it.
func (c *Crawler) Crawl(ctx context.Context, rootURL string) (*model.Summary, error) {
	if c.breadcrumbs == nil || c.links == nil || c.exporter == nil || c.paths == nil {
		return nil, ErrMissingCollaborator
	}
	u, err := url.Parse(rootURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRootURL, rootURL)
	}

	state := c.newCrawlState(rootURL)
	c.logger.Info("crawl started", "url", rootURL, "max_depth", c.maxDepth)

	stack := []frame{{url: rootURL, kind: model.LinkFolder}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			state.summary.Cancelled = true
			c.logger.Warn("crawl cancelled", "url", rootURL, "visited", len(state.visited), "pending", len(stack))
			return state.finish(), err
		}

		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch f.kind {
		case model.LinkFolder:
			children := c.expandFolder(ctx, state, f)
			// Reverse push keeps pops in listing order.
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, children[i])
			}
		case model.LinkPost:
			c.exportPost(ctx, state, f)
		default:
			c.emit(state, model.NodeEvent{
				URL:   f.url,
				Kind:  f.kind,
				Depth: f.depth,
				Path:  f.inherited,
				State: model.NodeFailed,
				Err:   fmt.Errorf("%w: %s", ErrUnknownLinkKind, f.kind),
			})
		}
	}

	summary := state.finish()
	c.logger.Info("crawl finished",
		"url", rootURL,
		"visited", summary.TotalVisited(),
		"exported", summary.TotalExported(),
		"failed", summary.StateCount(model.NodeFailed),
		"duration", summary.Duration().Round(time.Millisecond),
	)
	return summary, nil
}

// admit applies the depth bound, the visited set and the route filters to
// f. It returns false, after emitting the terminal event, when f must not
// be processed.
func (c *Crawler) admit(state *crawlState, f frame) bool {
	base := model.NodeEvent{URL: f.url, Kind: f.kind, Depth: f.depth, Path: f.inherited}

	if f.kind == model.LinkFolder && f.depth > c.maxDepth {
		c.logger.Debug("folder beyond depth bound", "url", f.url, "depth", f.depth, "max_depth", c.maxDepth)
		base.State = model.NodeRefused
		c.emit(state, base)
		return false
	}
	if _, seen := state.visited[f.url]; seen {
		c.logger.Debug("already visited", "url", f.url, "depth", f.depth)
		base.State = model.NodeSkipped
		c.emit(state, base)
		return false
	}
	if f.depth > 0 && !c.allowed(f.url) {
		c.logger.Debug("filtered by pattern", "url", f.url, "depth", f.depth)
		base.State = model.NodeFiltered
		c.emit(state, base)
		return false
	}
	return state.visit(f.url)
}

// expandFolder processes one folder node and returns its children.
func (c *Crawler) expandFolder(ctx context.Context, state *crawlState, f frame) []frame {
	if !c.admit(state, f) {
		return nil
	}
	c.pause(ctx, state)

	path := f.inherited
	if label := c.breadcrumb(ctx, f); label != "" {
		path = path.Append(label)
	}
	c.logger.Info("expanding folder", "url", f.url, "depth", f.depth, "folder_path", path.String())

	ev := model.NodeEvent{URL: f.url, Kind: f.kind, Depth: f.depth, Path: path}

	dir, err := c.paths.Resolve(path)
	if err != nil {
		c.fail(state, ev, err)
		return nil
	}
	ev.Directory = dir

	links, err := c.links.ExtractLinks(ctx, f.url)
	if err != nil {
		c.fail(state, ev, err)
		return nil
	}

	children := make([]frame, 0, len(links))
	for _, link := range links {
		children = append(children, frame{
			url:       link.URL,
			kind:      link.Kind,
			depth:     f.depth + 1,
			inherited: path,
		})
	}

	c.logger.Debug("folder expanded", "url", f.url, "children", len(children), "dir", dir)
	ev.State = model.NodeExpanded
	c.emit(state, ev)
	return children
}

// exportPost places one post in the output tree and exports it.
func (c *Crawler) exportPost(ctx context.Context, state *crawlState, f frame) {
	if !c.admit(state, f) {
		return
	}
	c.pause(ctx, state)

	label := c.breadcrumb(ctx, f)
	path := c.placePost(f, label)
	ev := model.NodeEvent{URL: f.url, Kind: f.kind, Depth: f.depth, Path: path}

	dir, err := c.paths.Resolve(path)
	if err != nil {
		c.fail(state, ev, err)
		return
	}
	ev.Directory = dir

	result := c.exporter.Export(ctx, ExportRequest{URL: f.url, Dir: dir, Counter: state.counter})
	state.attempts[dir]++
	ev.Export = &result
	if !result.Success {
		c.logger.Debug("export attempt consumed a sequence number",
			"url", f.url, "dir", dir, "attempts", state.counter.Attempts(dir))
		c.fail(state, ev, fmt.Errorf("%w: %s", ErrExportFailed, f.url))
		return
	}

	state.exported[dir]++
	c.logger.Info("post exported",
		"url", f.url,
		"depth", f.depth,
		"folder_path", path.String(),
		"divergent", !path.Equal(f.inherited),
		"file", result.Path,
	)
	ev.State = model.NodeExported
	c.emit(state, ev)
}

// placePost decides the folder path of a post from the path of the listing
// it was found in and the post's own breadcrumb label.
//
// A matching or missing label keeps the listing's path. A different label
// is appended (divergent placement) unless the path is already at the
// maxDepth+1 ceiling.
func (c *Crawler) placePost(f frame, label string) model.FolderPath {
	inherited := f.inherited
	if label == "" {
		c.logger.Warn("post breadcrumb unresolved, using listing folder",
			"url", f.url, "depth", f.depth, "folder_path", inherited.String())
		return inherited
	}
	if last, ok := inherited.Last(); ok && last == label {
		return inherited
	}
	if inherited.Len() >= c.maxDepth+1 {
		c.logger.Warn("divergent placement capped at depth bound",
			"url", f.url, "depth", f.depth, "folder_path", inherited.String(), "label", label)
		return inherited
	}
	placed := inherited.Append(label)
	c.logger.Debug("post placed outside listing folder",
		"url", f.url, "depth", f.depth, "folder_path", placed.String())
	return placed
}

// breadcrumb resolves the label of f. Errors degrade to "no label".
func (c *Crawler) breadcrumb(ctx context.Context, f frame) string {
	label, err := c.breadcrumbs.ResolveBreadcrumb(ctx, f.url)
	if err != nil {
		c.logger.Warn("breadcrumb resolution failed",
			"url", f.url, "depth", f.depth, "folder_path", f.inherited.String(), "error", err)
		return ""
	}
	return label
}

// pause waits for the politeness delay before every page operation but
// the first one of a run.
func (c *Crawler) pause(ctx context.Context, state *crawlState) {
	if !state.touched {
		state.touched = true
		return
	}
	if c.delay <= 0 {
		return
	}
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (c *Crawler) fail(state *crawlState, ev model.NodeEvent, err error) {
	c.logger.Error("node failed",
		"url", ev.URL, "kind", ev.Kind.String(), "depth", ev.Depth, "folder_path", ev.Path.String(), "error", err)
	ev.State = model.NodeFailed
	ev.Err = err
	c.emit(state, ev)
}

func (c *Crawler) emit(state *crawlState, ev model.NodeEvent) {
	state.summary.Count(ev.State)
	if c.observer != nil {
		c.observer(ev)
	}
}
