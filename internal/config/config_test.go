package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig documents the defaults. Changing a default must be
// intentional and will fail here.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	tests := []struct {
		name string
		ok   bool
	}{
		{"default OutputDir is kb_export", cfg.OutputDir == "kb_export"},
		{"default MaxDepth is 10", cfg.MaxDepth == 10},
		{"default Delay is zero", cfg.Delay == 0},
		{"default Format is markdown", cfg.Format == FormatMarkdown},
		{"default NavigationTimeout is 30s", cfg.NavigationTimeout == 30*time.Second},
		{"default ScrapeSettle is 3s", cfg.ScrapeSettle == 3*time.Second},
		{"default ExportSettle is 1s", cfg.ExportSettle == 1*time.Second},
		{"default Headless is true", cfg.Headless},
		{"default Concurrency is 1", cfg.Concurrency == 1},
		{"default SummaryFormat is text", cfg.SummaryFormat == SummaryText},
		{"default LogFormat is text", cfg.LogFormat == LogText},
		{"history disabled by default", !cfg.RecordHistory},
		{"history dir is XDG data dir", cfg.HistoryDir == XDGDataDir()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if !tt.ok {
				t.Errorf("unexpected default: %+v", cfg)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.Targets = []string{"https://kb.example/t/acme#/folders/1/handbook"}
		return cfg
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{"valid config", func(*Config) {}, nil},
		{"max depth zero is valid", func(c *Config) { c.MaxDepth = 0 }, nil},
		{"pdf format", func(c *Config) { c.Format = FormatPDF }, nil},
		{"no target", func(c *Config) { c.Targets = nil }, ErrNoTarget},
		{"relative target", func(c *Config) { c.Targets = []string{"#/folders/1"} }, ErrInvalidTarget},
		{"ftp target", func(c *Config) { c.Targets = []string{"ftp://kb.example/x"} }, ErrInvalidTarget},
		{"empty output", func(c *Config) { c.OutputDir = "" }, ErrInvalidOutputDir},
		{"negative depth", func(c *Config) { c.MaxDepth = -1 }, ErrInvalidMaxDepth},
		{"zero timeout", func(c *Config) { c.NavigationTimeout = 0 }, ErrInvalidTimeout},
		{"negative scrape settle", func(c *Config) { c.ScrapeSettle = -time.Second }, ErrInvalidSettle},
		{"negative export settle", func(c *Config) { c.ExportSettle = -time.Second }, ErrInvalidSettle},
		{"negative delay", func(c *Config) { c.Delay = -time.Second }, ErrInvalidDelay},
		{"unknown format", func(c *Config) { c.Format = "docx" }, ErrInvalidFormat},
		{"unknown summary", func(c *Config) { c.SummaryFormat = "html" }, ErrInvalidSummaryFormat},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }, ErrInvalidLogFormat},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, ErrInvalidConcurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func intPtr(n int) *int { return &n }

func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	cf := &File{
		Defaults: SiteConfig{
			Cookie:         &Cookie{Name: "thorn_session", Value: "default"},
			Headers:        map[string]string{"Accept-Language": "en"},
			IgnorePatterns: []string{"/folders/archive*"},
			Selectors:      Selectors{Listing: ".post-table tbody a[href]", Chrome: []string{".navbar"}},
		},
		Sites: map[string]SiteConfig{
			"kb.example": {
				Cookie:    &Cookie{Name: "thorn_session", Value: "site"},
				Headers:   map[string]string{"X-Team": "support"},
				Depth:     intPtr(0),
				Selectors: Selectors{Listing: ".docs a"},
			},
		},
	}

	t.Run("unknown host gets defaults", func(t *testing.T) {
		t.Parallel()
		sc := cf.GetSiteConfig("other.example")
		if sc.Cookie.Value != "default" || sc.Depth != nil {
			t.Errorf("site config = %+v", sc)
		}
	})

	t.Run("site overrides merge onto defaults", func(t *testing.T) {
		t.Parallel()
		sc := cf.GetSiteConfig("kb.example")
		if sc.Cookie.Value != "site" {
			t.Errorf("cookie = %+v", sc.Cookie)
		}
		if sc.Depth == nil || *sc.Depth != 0 {
			t.Errorf("depth override of 0 lost: %v", sc.Depth)
		}
		if sc.Headers["Accept-Language"] != "en" || sc.Headers["X-Team"] != "support" {
			t.Errorf("headers = %v", sc.Headers)
		}
		if len(sc.IgnorePatterns) != 1 {
			t.Errorf("ignore patterns = %v", sc.IgnorePatterns)
		}
		if sc.Selectors.Listing != ".docs a" || len(sc.Selectors.Chrome) != 1 {
			t.Errorf("selectors = %+v", sc.Selectors)
		}
	})

	t.Run("merging does not mutate defaults", func(t *testing.T) {
		t.Parallel()
		_ = cf.GetSiteConfig("kb.example")
		if _, ok := cf.Defaults.Headers["X-Team"]; ok {
			t.Error("site headers leaked into defaults")
		}
	})
}

func TestConfigSiteAndDepth(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	if cfg.DepthFor("https://kb.example/x") != DefaultMaxDepth {
		t.Error("expected global depth without a config file")
	}

	cfg.SiteConfigs = &File{Sites: map[string]SiteConfig{"kb.example": {Depth: intPtr(3)}}}
	if got := cfg.DepthFor("https://kb.example:8443/t/acme#/folders/1"); got != 3 {
		t.Errorf("DepthFor() = %d, want 3", got)
	}
	if got := cfg.DepthFor("https://other.example/"); got != DefaultMaxDepth {
		t.Errorf("DepthFor(other) = %d, want %d", got, DefaultMaxDepth)
	}

	cfg.MaxDepth = 1
	cfg.DepthFromFlag = true
	if got := cfg.DepthFor("https://kb.example/t/acme#/folders/1"); got != 1 {
		t.Errorf("DepthFor() with --depth = %d, want 1", got)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("KBEXPORT_TEST_SESSION", "s3cr3t")

	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigFile)
	content := `baseUrl: https://kb.example/t/acme#/folders/1/handbook
outputDir: ./handbook
maxDepth: 4
delay: 500ms
format: pdf
defaults:
  cookie:
    name: thorn_session
    value: "${KBEXPORT_TEST_SESSION}"
    domain: kb.example
    secure: true
    httpOnly: true
  headers:
    X-Token: "${KBEXPORT_TEST_SESSION}"
sites:
  kb.example:
    depth: 2
    followPatterns:
      - /folders/*
    selectors:
      content:
        - .post-body
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cf, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile() error = %v", err)
	}

	if cf.BaseURL != "https://kb.example/t/acme#/folders/1/handbook" {
		t.Errorf("BaseURL = %q", cf.BaseURL)
	}
	if cf.MaxDepth == nil || *cf.MaxDepth != 4 {
		t.Errorf("MaxDepth = %v", cf.MaxDepth)
	}
	if cf.Delay == nil || *cf.Delay != 500*time.Millisecond {
		t.Errorf("Delay = %v", cf.Delay)
	}
	if cf.Defaults.Cookie == nil || cf.Defaults.Cookie.Value != "s3cr3t" || !cf.Defaults.Cookie.HTTPOnly {
		t.Errorf("cookie = %+v", cf.Defaults.Cookie)
	}
	if cf.Defaults.Headers["X-Token"] != "s3cr3t" {
		t.Errorf("headers not expanded: %v", cf.Defaults.Headers)
	}

	sc := cf.GetSiteConfig("kb.example")
	if sc.Depth == nil || *sc.Depth != 2 || len(sc.FollowPatterns) != 1 || sc.Selectors.Content[0] != ".post-body" {
		t.Errorf("site config = %+v", sc)
	}

	cfg := NewConfig()
	cf.ApplyTo(cfg, func(name string) bool { return name == "format" })
	if cfg.OutputDir != "./handbook" || cfg.MaxDepth != 4 || cfg.Delay != 500*time.Millisecond {
		t.Errorf("ApplyTo() = %+v", cfg)
	}
	if cfg.Format != FormatMarkdown {
		t.Errorf("explicit flag overridden: format = %q", cfg.Format)
	}
	if cfg.BaseURL == "" {
		t.Error("BaseURL not applied")
	}
}

func TestLoadConfigFile_Errors(t *testing.T) {
	t.Parallel()

	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("error = %v, want ErrConfigNotFound", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("sites: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigFile(bad); err == nil || !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("error = %v, want parse error", err)
	}
}

func TestFindConfigFile_ExplicitPath(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	if got := FindConfigFile(path); got != path {
		t.Errorf("FindConfigFile() = %q, want %q", got, path)
	}
	if got := FindConfigFile(filepath.Join(t.TempDir(), "nope")); got != "" {
		t.Errorf("FindConfigFile(missing) = %q, want empty", got)
	}
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if filepath.Base(XDGDataDir()) != AppName {
		t.Errorf("XDGDataDir() = %q", XDGDataDir())
	}
	if filepath.Base(XDGConfigDir()) != AppName {
		t.Errorf("XDGConfigDir() = %q", XDGConfigDir())
	}
}
