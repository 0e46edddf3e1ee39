package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/kbexport/internal/model"
)

// DefaultSettle is how long a page is given to render after navigation.
const DefaultSettle = 3 * time.Second

// Fetcher returns the rendered HTML of a page.
type Fetcher interface {
	Snapshot(ctx context.Context, pageURL string, settle time.Duration) (string, error)
}

// Resolver answers breadcrumb and listing queries from page snapshots.
//
// A folder is asked for its breadcrumb and its links back to back, so the
// most recent snapshot is reused for the same URL instead of navigating
// twice.
type Resolver struct {
	fetcher   Fetcher
	selectors Selectors
	settle    time.Duration
	logger    *slog.Logger

	mu       sync.Mutex
	lastURL  string
	lastHTML string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithSelectors overrides the page selectors. Empty fields keep defaults.
func WithSelectors(sel Selectors) ResolverOption {
	return func(r *Resolver) {
		r.selectors = sel.withDefaults()
	}
}

// WithSettle sets the render wait after each navigation.
func WithSettle(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d >= 0 {
			r.settle = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a Resolver reading pages through f.
func NewResolver(f Fetcher, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		fetcher:   f,
		selectors: DefaultSelectors(),
		settle:    DefaultSettle,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveBreadcrumb returns the normalized folder label of pageURL, or ""
// when the page has no usable trail. Navigation failures are returned.
func (r *Resolver) ResolveBreadcrumb(ctx context.Context, pageURL string) (string, error) {
	pageHTML, err := r.snapshot(ctx, pageURL)
	if err != nil {
		return "", err
	}
	label, ok := ParseBreadcrumb(pageHTML, r.selectors)
	if !ok {
		r.logger.Debug("no breadcrumb found", "url", pageURL)
		return "", nil
	}
	r.logger.Debug("breadcrumb resolved", "url", pageURL, "label", label)
	return label, nil
}

// ExtractLinks returns the listing links of pageURL. A page without a
// listing table yields an empty slice. Navigation failures are returned.
func (r *Resolver) ExtractLinks(ctx context.Context, pageURL string) ([]model.Link, error) {
	pageHTML, err := r.snapshot(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	links, err := ParseLinks(pageHTML, pageURL, r.selectors)
	if err != nil {
		return nil, fmt.Errorf("failed to extract links from %s: %w", pageURL, err)
	}
	r.logger.Debug("listing links extracted", "url", pageURL, "count", len(links))
	return links, nil
}

func (r *Resolver) snapshot(ctx context.Context, pageURL string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pageURL == r.lastURL {
		return r.lastHTML, nil
	}
	pageHTML, err := r.fetcher.Snapshot(ctx, pageURL, r.settle)
	if err != nil {
		r.lastURL, r.lastHTML = "", ""
		return "", err
	}
	r.lastURL, r.lastHTML = pageURL, pageHTML
	return pageHTML, nil
}
