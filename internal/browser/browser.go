package browser

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Browser is one Chrome process shared by all tabs of a run.
type Browser struct {
	headless   bool
	navTimeout time.Duration
	cookies    []Cookie
	headers    map[string]string
	userAgent  string
	execPath   string
	logger     *slog.Logger

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// New returns an unstarted Browser.
func New(opts ...Option) *Browser {
	b := &Browser{
		headless:   true,
		navTimeout: DefaultNavigationTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// allocatorOptions returns the Chrome flags for this browser.
func (b *Browser) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.headless),
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if b.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.userAgent))
	}
	if b.execPath != "" {
		opts = append(opts, chromedp.ExecPath(b.execPath))
	}
	return opts
}

// Start launches Chrome and installs the session cookies. The browser lives
// until ctx is cancelled or Close is called. Any failure is wrapped in
// ErrInitialization.
func (b *Browser) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx != nil {
		return nil
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, b.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			b.logger.Debug(fmt.Sprintf(format, args...), "component", "chromedp")
		}),
	)

	actions := []chromedp.Action{network.Enable()}
	if len(b.cookies) > 0 {
		params := make([]*network.CookieParam, len(b.cookies))
		for i, c := range b.cookies {
			params[i] = c.param()
		}
		actions = append(actions, network.SetCookies(params))
	}
	if err := chromedp.Run(browserCtx, actions...); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("%w: %w", ErrInitialization, err)
	}

	b.allocCancel = allocCancel
	b.browserCtx = browserCtx
	b.browserCancel = browserCancel

	b.logger.Info("browser started", "headless", b.headless, "cookies", len(b.cookies))
	return nil
}

// NewTab opens a new target in the running browser. headers are sent with
// every request of the tab on top of the browser-wide headers.
func (b *Browser) NewTab(headers map[string]string) (*Tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx == nil {
		return nil, fmt.Errorf("%w: browser not started", ErrInitialization)
	}

	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	actions := []chromedp.Action{network.Enable()}
	if merged := mergeHeaders(b.headers, headers); len(merged) > 0 {
		actions = append(actions, network.SetExtraHTTPHeaders(toHeaders(merged)))
	}
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		tabCancel()
		return nil, fmt.Errorf("%w: failed to open tab: %w", ErrInitialization, err)
	}

	return &Tab{
		ctx:        tabCtx,
		cancel:     tabCancel,
		navTimeout: b.navTimeout,
		logger:     b.logger,
	}, nil
}

// Close shuts Chrome down. It is safe to call more than once.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCancel != nil {
		b.browserCancel()
		b.browserCancel = nil
	}
	if b.allocCancel != nil {
		b.allocCancel()
		b.allocCancel = nil
	}
	b.browserCtx = nil
}

// mergeHeaders overlays tab headers onto browser headers.
func mergeHeaders(browserWide, tab map[string]string) map[string]string {
	merged := make(map[string]string, len(browserWide)+len(tab))
	maps.Copy(merged, browserWide)
	maps.Copy(merged, tab)
	return merged
}

func toHeaders(h map[string]string) network.Headers {
	out := make(network.Headers, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}
