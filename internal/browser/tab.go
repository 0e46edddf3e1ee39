package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Tab is one browser target. Operations on a Tab are serialized.
type Tab struct {
	ctx        context.Context
	cancel     context.CancelFunc
	navTimeout time.Duration
	logger     *slog.Logger

	mu     sync.Mutex
	closed bool
}

// run executes actions bounded by the navigation timeout plus extra and by
// the caller's ctx.
func (t *Tab) run(ctx context.Context, extra time.Duration, actions ...chromedp.Action) error {
	if t.closed {
		return ErrClosed
	}
	opCtx, cancel := context.WithTimeout(t.ctx, t.navTimeout+extra)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(opCtx, actions...)
}

// navigate loads pageURL from a blank page. Hash-only route changes never
// fire a load event, so starting from about:blank makes every navigation a
// full document load.
func navigate(pageURL string, settle time.Duration) chromedp.Tasks {
	tasks := chromedp.Tasks{
		chromedp.Navigate("about:blank"),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if settle > 0 {
		tasks = append(tasks, chromedp.Sleep(settle))
	}
	return tasks
}

// Snapshot loads pageURL, waits settle for the SPA to render and returns
// the document's outer HTML.
func (t *Tab) Snapshot(ctx context.Context, pageURL string, settle time.Duration) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	start := time.Now()
	var pageHTML string
	err := t.run(ctx, settle,
		navigate(pageURL, settle),
		chromedp.OuterHTML("html", &pageHTML, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrNavigation, pageURL, err)
	}
	t.logger.Debug("page snapshot taken", "url", pageURL, "bytes", len(pageHTML), "elapsed", time.Since(start).Round(time.Millisecond))
	return pageHTML, nil
}

// PrintPDF loads pageURL, removes every element matching removeSelectors
// and prints the page. It returns the page title and the PDF bytes.
func (t *Tab) PrintPDF(ctx context.Context, pageURL string, settle time.Duration, removeSelectors []string, opts PDFOptions) (string, []byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.run(ctx, settle, navigate(pageURL, settle)); err != nil {
		return "", nil, fmt.Errorf("%w: %s: %w", ErrNavigation, pageURL, err)
	}

	var (
		removed int
		title   string
		pdf     []byte
	)
	script, err := removeScript(removeSelectors)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s: %w", ErrRender, pageURL, err)
	}
	err = t.run(ctx, 0,
		chromedp.Evaluate(script, &removed),
		chromedp.Title(&title),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(opts.PrintBackground).
				WithPaperWidth(opts.PaperWidth).
				WithPaperHeight(opts.PaperHeight).
				WithMarginTop(opts.MarginTop).
				WithMarginBottom(opts.MarginBottom).
				WithMarginLeft(opts.MarginLeft).
				WithMarginRight(opts.MarginRight).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s: %w", ErrRender, pageURL, err)
	}

	t.logger.Debug("page printed", "url", pageURL, "removed_elements", removed, "bytes", len(pdf))
	return strings.TrimSpace(title), pdf, nil
}

// Close releases the target.
func (t *Tab) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		t.cancel()
	}
}

// removeScript builds a script that removes every element matching any of
// selectors and evaluates to the number removed. Invalid selectors are
// skipped.
func removeScript(selectors []string) (string, error) {
	encoded, err := json.Marshal(selectors)
	if err != nil {
		return "", err
	}
	if len(selectors) == 0 {
		encoded = []byte("[]")
	}
	return fmt.Sprintf(`(function(sels) {
  let n = 0;
  for (const s of sels) {
    try {
      document.querySelectorAll(s).forEach(function(e) { e.remove(); n++; });
    } catch (e) {}
  }
  return n;
})(%s)`, encoded), nil
}
