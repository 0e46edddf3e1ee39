package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "kbexport"

	// DefaultOutputDir is the root of the mirrored tree when none is given.
	DefaultOutputDir = "kb_export"

	// DefaultMaxDepth is the deepest folder level that is still expanded.
	// The root folder is depth 0.
	DefaultMaxDepth = 10

	// DefaultDelay is the pause between two page operations. Pages are
	// already given ScrapeSettle or ExportSettle to render, so no extra
	// pause is added unless one is configured.
	DefaultDelay time.Duration = 0

	// DefaultNavigationTimeout bounds a single page load.
	DefaultNavigationTimeout = 30 * time.Second

	// DefaultScrapeSettle is how long a listing or breadcrumb page is given
	// to render before it is read.
	DefaultScrapeSettle = 3 * time.Second

	// DefaultExportSettle is how long a post is given to render before it
	// is exported.
	DefaultExportSettle = 1 * time.Second

	// DefaultConcurrency is the number of root URLs crawled at once.
	DefaultConcurrency = 1

	// DefaultUserAgent is empty so that Chrome's own User-Agent is used.
	DefaultUserAgent = ""
)

// Document formats.
const (
	FormatMarkdown = "markdown"
	FormatPDF      = "pdf"
)

// Summary formats.
const (
	SummaryText     = "text"
	SummaryMarkdown = "markdown"
	SummaryJSON     = "json"
)

// Log formats.
const (
	LogText = "text"
	LogJSON = "json"
)

// Config holds all configuration options for kbexport.
// It is populated from defaults, the configuration file and CLI flags, and
// passed down explicitly rather than kept in global state.
type Config struct {
	// BaseURL is the root folder crawled when no target is given.
	BaseURL string

	// OutputDir is the root of the mirrored folder tree.
	OutputDir string

	// MaxDepth is the folder depth ceiling. 0 expands only the root folder.
	MaxDepth int

	// DepthFromFlag is set when MaxDepth came from --depth. It then applies
	// to every root and per-site depth overrides are ignored.
	DepthFromFlag bool

	// Delay is the pause between two page operations.
	Delay time.Duration

	// Format is the document format: "markdown" or "pdf".
	Format string

	// NavigationTimeout bounds each page load.
	NavigationTimeout time.Duration

	// ScrapeSettle is the render wait before reading breadcrumbs and listings.
	ScrapeSettle time.Duration

	// ExportSettle is the render wait before exporting a post.
	ExportSettle time.Duration

	// Headless runs Chrome without a window. Disable to watch the crawl.
	Headless bool

	// ChromePath points at a specific Chrome binary. Empty uses the default lookup.
	ChromePath string

	// UserAgent overrides Chrome's User-Agent when set.
	UserAgent string

	// Concurrency is the number of root URLs crawled at once. Each crawl
	// gets its own tab; traversal within one root is always sequential.
	Concurrency int

	// Verbose enables debug logging.
	Verbose bool

	// LogFormat is "text" or "json".
	LogFormat string

	// SummaryFormat selects the end-of-run summary: "text", "markdown" or "json".
	SummaryFormat string

	// SummaryFile receives the summary instead of stdout when set.
	SummaryFile string

	// RecordHistory stores every run and export in the history database.
	RecordHistory bool

	// HistoryDir is the directory of the history database.
	// Defaults to the XDG data directory (~/.local/share/kbexport on Linux).
	HistoryDir string

	// ConfigFilePath is the path to the configuration file.
	// If empty, .kbexport is searched in the current and home directories.
	ConfigFilePath string

	// SiteConfigs holds the per-site settings loaded from the config file.
	SiteConfigs *File

	// Targets are the root folder URLs to crawl.
	Targets []string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		OutputDir:         DefaultOutputDir,
		MaxDepth:          DefaultMaxDepth,
		Delay:             DefaultDelay,
		Format:            FormatMarkdown,
		NavigationTimeout: DefaultNavigationTimeout,
		ScrapeSettle:      DefaultScrapeSettle,
		ExportSettle:      DefaultExportSettle,
		Headless:          true,
		UserAgent:         DefaultUserAgent,
		Concurrency:       DefaultConcurrency,
		LogFormat:         LogText,
		SummaryFormat:     SummaryText,
		HistoryDir:        XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for kbexport.
// On Linux: ~/.local/share/kbexport
// On macOS: ~/Library/Application Support/kbexport
// On Windows: %LOCALAPPDATA%\kbexport
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for kbexport.
// On Linux: ~/.config/kbexport
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Site returns the merged site settings for target, or the zero value when
// no configuration file was loaded.
func (c *Config) Site(target string) SiteConfig {
	if c.SiteConfigs == nil {
		return SiteConfig{}
	}
	host := ""
	if u, err := url.Parse(target); err == nil {
		host = u.Hostname()
	}
	return c.SiteConfigs.GetSiteConfig(host)
}

// DepthFor returns the depth ceiling for target: MaxDepth when it was given
// on the command line, then the site override, then MaxDepth.
func (c *Config) DepthFor(target string) int {
	if c.DepthFromFlag {
		return c.MaxDepth
	}
	if d := c.Site(target).Depth; d != nil {
		return *d
	}
	return c.MaxDepth
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	for _, t := range c.Targets {
		if !isHTTPURL(t) {
			return ErrInvalidTarget
		}
	}
	if c.OutputDir == "" {
		return ErrInvalidOutputDir
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.NavigationTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.ScrapeSettle < 0 || c.ExportSettle < 0 {
		return ErrInvalidSettle
	}
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.Format != FormatMarkdown && c.Format != FormatPDF {
		return ErrInvalidFormat
	}
	switch c.SummaryFormat {
	case SummaryText, SummaryMarkdown, SummaryJSON:
	default:
		return ErrInvalidSummaryFormat
	}
	if c.LogFormat != LogText && c.LogFormat != LogJSON {
		return ErrInvalidLogFormat
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	return nil
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
