package browser

import (
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/network"
)

// DefaultNavigationTimeout bounds every page-level operation.
const DefaultNavigationTimeout = 30 * time.Second

// Cookie is the session cookie installed before the first navigation.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool

	// URL scopes the cookie when Domain is empty.
	URL string
}

// param converts c to the DevTools representation.
func (c Cookie) param() *network.CookieParam {
	p := &network.CookieParam{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HTTPOnly: c.HTTPOnly,
	}
	if c.Domain == "" {
		p.URL = c.URL
	}
	if p.Path == "" {
		p.Path = "/"
	}
	return p
}

// Option configures a Browser.
type Option func(*Browser)

// WithHeadless toggles headless mode. Defaults to true.
func WithHeadless(headless bool) Option {
	return func(b *Browser) {
		b.headless = headless
	}
}

// WithNavigationTimeout sets the bound on each page operation.
func WithNavigationTimeout(d time.Duration) Option {
	return func(b *Browser) {
		if d > 0 {
			b.navTimeout = d
		}
	}
}

// WithCookie installs c at start-up. It may be given once per site.
func WithCookie(c Cookie) Option {
	return func(b *Browser) {
		if c.Name != "" {
			b.cookies = append(b.cookies, c)
		}
	}
}

// WithHeaders sends extra HTTP headers with every request of every tab.
func WithHeaders(headers map[string]string) Option {
	return func(b *Browser) {
		b.headers = headers
	}
}

// WithUserAgent overrides Chrome's User-Agent.
func WithUserAgent(ua string) Option {
	return func(b *Browser) {
		b.userAgent = ua
	}
}

// WithExecPath points at a specific Chrome binary.
func WithExecPath(path string) Option {
	return func(b *Browser) {
		b.execPath = path
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Browser) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// PDFOptions control page.printToPDF. Sizes are in inches.
type PDFOptions struct {
	PaperWidth      float64
	PaperHeight     float64
	MarginTop       float64
	MarginBottom    float64
	MarginLeft      float64
	MarginRight     float64
	PrintBackground bool
}

const (
	cmInInches = 1 / 2.54
	pxInInches = 1.0 / 96
)

// DefaultPDFOptions returns A4 paper with 1cm vertical and 20px horizontal
// margins and background graphics enabled.
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		PaperWidth:      8.27,
		PaperHeight:     11.69,
		MarginTop:       cmInInches,
		MarginBottom:    cmInInches,
		MarginLeft:      20 * pxInInches,
		MarginRight:     20 * pxInInches,
		PrintBackground: true,
	}
}
