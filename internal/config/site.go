package config

import (
	"maps"
	"os"
	"time"
)

// Cookie is the session cookie used to authenticate against a site.
type Cookie struct {
	Name     string `yaml:"name"`
	Value    string `yaml:"value"`
	Domain   string `yaml:"domain,omitempty"`
	Path     string `yaml:"path,omitempty"`
	Secure   bool   `yaml:"secure,omitempty"`
	HTTPOnly bool   `yaml:"httpOnly,omitempty"`
}

// Selectors override the CSS selectors used to read and clean pages.
// Empty fields keep the built-in values.
type Selectors struct {
	// BreadcrumbContainer wraps the navigation trail.
	BreadcrumbContainer string `yaml:"breadcrumbContainer,omitempty"`

	// BreadcrumbLinks selects the trail entries inside the container.
	BreadcrumbLinks string `yaml:"breadcrumbLinks,omitempty"`

	// Listing selects the row links of a folder's listing table.
	Listing string `yaml:"listing,omitempty"`

	// Chrome lists presentation elements removed before export.
	Chrome []string `yaml:"chrome,omitempty"`

	// Content lists main-content containers, best first.
	Content []string `yaml:"content,omitempty"`
}

// merge overlays the non-empty fields of o onto s.
func (s Selectors) merge(o Selectors) Selectors {
	if o.BreadcrumbContainer != "" {
		s.BreadcrumbContainer = o.BreadcrumbContainer
	}
	if o.BreadcrumbLinks != "" {
		s.BreadcrumbLinks = o.BreadcrumbLinks
	}
	if o.Listing != "" {
		s.Listing = o.Listing
	}
	if len(o.Chrome) > 0 {
		s.Chrome = o.Chrome
	}
	if len(o.Content) > 0 {
		s.Content = o.Content
	}
	return s
}

// SiteConfig holds site-specific settings for a single knowledge-base host.
type SiteConfig struct {
	// Cookie is the session cookie installed before crawling this site.
	// Its value may reference environment variables, e.g. "${KBEXPORT_SESSION}".
	Cookie *Cookie `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the global depth ceiling for this site.
	Depth *int `yaml:"depth,omitempty"`

	// IgnorePatterns are route patterns to skip during crawling.
	// Patterns are matched against the SPA route using glob syntax.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are route patterns to follow during crawling.
	// If specified, only routes matching these patterns are crawled.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`

	// Selectors override the page selectors.
	Selectors Selectors `yaml:"selectors,omitempty"`
}

// File represents the structure of the .kbexport configuration file.
type File struct {
	// BaseURL is the root folder crawled when no target is given.
	BaseURL string `yaml:"baseUrl,omitempty"`

	// OutputDir is the root of the mirrored folder tree.
	OutputDir string `yaml:"outputDir,omitempty"`

	// MaxDepth is the global depth ceiling.
	MaxDepth *int `yaml:"maxDepth,omitempty"`

	// Delay is the pause between page operations, e.g. "2s".
	Delay *time.Duration `yaml:"delay,omitempty"`

	// Format is the document format.
	Format string `yaml:"format,omitempty"`

	// Sites maps hosts (without scheme or port) to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to every site unless overridden per site.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for host merged onto the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	if cf.Defaults.Headers != nil {
		result.Headers = maps.Clone(cf.Defaults.Headers)
	}

	siteConfig, ok := cf.Sites[host]
	if !ok {
		return result
	}
	if siteConfig.Cookie != nil {
		result.Cookie = siteConfig.Cookie
	}
	if siteConfig.Depth != nil {
		result.Depth = siteConfig.Depth
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		maps.Copy(result.Headers, siteConfig.Headers)
	}
	if len(siteConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = siteConfig.IgnorePatterns
	}
	if len(siteConfig.FollowPatterns) > 0 {
		result.FollowPatterns = siteConfig.FollowPatterns
	}
	result.Selectors = result.Selectors.merge(siteConfig.Selectors)
	return result
}

// ApplyTo copies the file's global settings onto cfg. Values already
// changed from their defaults by the caller (typically CLI flags) are
// reported through explicit and left alone.
func (cf *File) ApplyTo(cfg *Config, explicit func(name string) bool) {
	if cf.BaseURL != "" && !explicit("base-url") {
		cfg.BaseURL = cf.BaseURL
	}
	if cf.OutputDir != "" && !explicit("output") {
		cfg.OutputDir = cf.OutputDir
	}
	if cf.MaxDepth != nil && !explicit("depth") {
		cfg.MaxDepth = *cf.MaxDepth
	}
	if cf.Delay != nil && !explicit("delay") {
		cfg.Delay = *cf.Delay
	}
	if cf.Format != "" && !explicit("format") {
		cfg.Format = cf.Format
	}
}

// expandEnv resolves ${VAR} references in secrets and header values.
func (cf *File) expandEnv() {
	expandSite := func(sc *SiteConfig) {
		if sc.Cookie != nil {
			c := *sc.Cookie
			c.Value = os.ExpandEnv(c.Value)
			sc.Cookie = &c
		}
		for k, v := range sc.Headers {
			sc.Headers[k] = os.ExpandEnv(v)
		}
	}
	expandSite(&cf.Defaults)
	for host, sc := range cf.Sites {
		expandSite(&sc)
		cf.Sites[host] = sc
	}
}
