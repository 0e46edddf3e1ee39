package main

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/kbexport/internal/config"
	"github.com/nao1215/kbexport/internal/model"
	"github.com/nao1215/kbexport/internal/pipeline"
	"github.com/nao1215/kbexport/internal/report"
)

const testRoot = "https://kb.example.com/t/acme#/folders/1/handbook"

// writeConfig writes a config file into a temp directory and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".kbexport")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to create config file: %v", err)
	}
	return path
}

// TestNewCrawlCmd tests the crawl command creation.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	if cmd.Name() != "crawl" {
		t.Errorf("expected name 'crawl', got %q", cmd.Name())
	}
	if cmd.Short == "" {
		t.Error("expected non-empty short description")
	}

	flags := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"output", "o", config.DefaultOutputDir},
		{"format", "f", config.FormatMarkdown},
		{"depth", "d", "10"},
		{"timeout", "t", "30s"},
		{"settle", "", "3s"},
		{"export-settle", "", "1s"},
		{"delay", "", "0s"},
		{"concurrency", "b", "1"},
		{"headful", "", "false"},
		{"config", "c", ""},
		{"summary", "", config.SummaryText},
		{"summary-file", "", ""},
		{"history", "", "false"},
		{"no-progress", "", "false"},
		{"log-format", "", config.LogText},
	}

	for _, tt := range flags {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}
}

// TestGetVerboseFlag tests reading the persistent verbose flag.
func TestGetVerboseFlag(t *testing.T) {
	t.Parallel()

	t.Run("returns false when flag not set", func(t *testing.T) {
		t.Parallel()
		root := NewRootCmd()
		crawl, _, err := root.Find([]string{"crawl"})
		if err != nil {
			t.Fatalf("failed to find crawl command: %v", err)
		}
		if getVerboseFlag(crawl) {
			t.Error("expected false")
		}
	})

	t.Run("returns true from parent flag", func(t *testing.T) {
		t.Parallel()
		root := NewRootCmd()
		if err := root.PersistentFlags().Set("verbose", "true"); err != nil {
			t.Fatalf("failed to set verbose: %v", err)
		}
		crawl, _, err := root.Find([]string{"crawl"})
		if err != nil {
			t.Fatalf("failed to find crawl command: %v", err)
		}
		if !getVerboseFlag(crawl) {
			t.Error("expected true from parent verbose flag")
		}
	})

	t.Run("returns false without any verbose flag", func(t *testing.T) {
		t.Parallel()
		if getVerboseFlag(NewCrawlCmd()) {
			t.Error("expected false for a detached command")
		}
	})
}

// TestBuildConfig tests configuration building from flags.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("builds config with default values", func(t *testing.T) {
		t.Parallel()
		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", writeConfig(t, "")}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{testRoot})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cfg.Targets) != 1 || cfg.Targets[0] != testRoot {
			t.Errorf("expected targets [%s], got %v", testRoot, cfg.Targets)
		}
		if cfg.OutputDir != config.DefaultOutputDir {
			t.Errorf("OutputDir = %q, want %q", cfg.OutputDir, config.DefaultOutputDir)
		}
		if cfg.MaxDepth != config.DefaultMaxDepth {
			t.Errorf("MaxDepth = %d, want %d", cfg.MaxDepth, config.DefaultMaxDepth)
		}
		if !cfg.Headless {
			t.Error("expected Headless to be true")
		}
		if cfg.RecordHistory {
			t.Error("expected RecordHistory to be false")
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})

	t.Run("builds config from flags", func(t *testing.T) {
		t.Parallel()
		cmd := NewCrawlCmd()
		err := cmd.ParseFlags([]string{
			"--config", writeConfig(t, ""),
			"-o", "out",
			"-f", "pdf",
			"-d", "3",
			"-t", "10s",
			"--settle", "500ms",
			"--export-settle", "2s",
			"--delay", "250ms",
			"-b", "4",
			"--headful",
			"--summary", "json",
			"--summary-file", "summary.json",
			"--history",
			"--log-format", "json",
		})
		if err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{testRoot})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.OutputDir != "out" {
			t.Errorf("OutputDir = %q, want out", cfg.OutputDir)
		}
		if cfg.Format != config.FormatPDF {
			t.Errorf("Format = %q, want pdf", cfg.Format)
		}
		if cfg.MaxDepth != 3 {
			t.Errorf("MaxDepth = %d, want 3", cfg.MaxDepth)
		}
		if cfg.NavigationTimeout != 10*time.Second {
			t.Errorf("NavigationTimeout = %v, want 10s", cfg.NavigationTimeout)
		}
		if cfg.ScrapeSettle != 500*time.Millisecond {
			t.Errorf("ScrapeSettle = %v, want 500ms", cfg.ScrapeSettle)
		}
		if cfg.ExportSettle != 2*time.Second {
			t.Errorf("ExportSettle = %v, want 2s", cfg.ExportSettle)
		}
		if cfg.Delay != 250*time.Millisecond {
			t.Errorf("Delay = %v, want 250ms", cfg.Delay)
		}
		if !cfg.DepthFromFlag {
			t.Error("expected DepthFromFlag for -d")
		}
		if cfg.Concurrency != 4 {
			t.Errorf("Concurrency = %d, want 4", cfg.Concurrency)
		}
		if cfg.Headless {
			t.Error("expected Headless to be false with --headful")
		}
		if cfg.SummaryFormat != config.SummaryJSON {
			t.Errorf("SummaryFormat = %q, want json", cfg.SummaryFormat)
		}
		if cfg.SummaryFile != "summary.json" {
			t.Errorf("SummaryFile = %q, want summary.json", cfg.SummaryFile)
		}
		if !cfg.RecordHistory {
			t.Error("expected RecordHistory to be true")
		}
		if cfg.LogFormat != config.LogJSON {
			t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
		}
	})

	t.Run("config file fills unset flags", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `baseUrl: "`+testRoot+`"
outputDir: from-file
maxDepth: 4
delay: 500ms
format: pdf
`)
		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", path, "--depth", "7"}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.OutputDir != "from-file" {
			t.Errorf("OutputDir = %q, want from-file", cfg.OutputDir)
		}
		if cfg.MaxDepth != 7 {
			t.Errorf("MaxDepth = %d, want the flag value 7", cfg.MaxDepth)
		}
		if cfg.Delay != 500*time.Millisecond {
			t.Errorf("Delay = %v, want 500ms", cfg.Delay)
		}
		if cfg.Format != config.FormatPDF {
			t.Errorf("Format = %q, want pdf", cfg.Format)
		}
		if len(cfg.Targets) != 1 || cfg.Targets[0] != testRoot {
			t.Errorf("expected baseUrl as the only target, got %v", cfg.Targets)
		}
	})

	t.Run("positional targets win over baseUrl", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `baseUrl: "https://other.example.com/#/folders/9/x"`+"\n")
		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", path}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{testRoot})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cfg.Targets) != 1 || cfg.Targets[0] != testRoot {
			t.Errorf("expected targets [%s], got %v", testRoot, cfg.Targets)
		}
	})

	t.Run("loads site settings", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `defaults:
  depth: 5
sites:
  kb.example.com:
    cookie:
      name: thorn_session
      value: abc
    depth: 2
`)
		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", path}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{testRoot})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := cfg.DepthFor(testRoot); got != 2 {
			t.Errorf("DepthFor() = %d, want 2", got)
		}
		if got := cfg.DepthFor("https://other.example.com/#/folders/1/x"); got != 5 {
			t.Errorf("DepthFor(other) = %d, want 5", got)
		}
		if c := cfg.Site(testRoot).Cookie; c == nil || c.Name != "thorn_session" {
			t.Errorf("expected the site cookie, got %+v", c)
		}
	})

	t.Run("depth flag wins over site depth", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `sites:
  kb.example.com:
    depth: 2
`)
		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", path, "--depth", "6"}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{testRoot})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := cfg.DepthFor(testRoot); got != 6 {
			t.Errorf("DepthFor() = %d, want 6", got)
		}
	})

	t.Run("returns error for missing explicit config file", func(t *testing.T) {
		t.Parallel()
		cmd := NewCrawlCmd()
		missing := filepath.Join(t.TempDir(), "missing.yaml")
		if err := cmd.ParseFlags([]string{"--config", missing}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		_, err := buildConfig(cmd, []string{testRoot})
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("returns error for invalid config file", func(t *testing.T) {
		t.Parallel()
		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", writeConfig(t, "invalid: yaml: content: [")}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		if _, err := buildConfig(cmd, []string{testRoot}); err == nil {
			t.Error("expected error for invalid config file")
		}
	})
}

// TestRunCrawlCmdValidation tests that invalid configurations fail before
// any browser is started.
func TestRunCrawlCmdValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"no target", nil, config.ErrNoTarget},
		{"relative target", []string{"kb.example.com/#/folders/1"}, config.ErrInvalidTarget},
		{"bad format", []string{"-f", "docx", testRoot}, config.ErrInvalidFormat},
		{"bad summary", []string{"--summary", "xml", testRoot}, config.ErrInvalidSummaryFormat},
		{"negative depth", []string{"-d", "-1", testRoot}, config.ErrInvalidMaxDepth},
		{"zero concurrency", []string{"-b", "0", testRoot}, config.ErrInvalidConcurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cmd := NewCrawlCmd()
			cmd.SetArgs(append([]string{"--config", writeConfig(t, "")}, tt.args...))
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})

			err := cmd.Execute()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestSetupLogger tests logger selection.
func TestSetupLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		verbose   bool
		logFormat string
		quiet     bool
		infoShown bool
		debugShow bool
		json      bool
	}{
		{"default text", false, config.LogText, false, true, false, false},
		{"verbose text", true, config.LogText, false, true, true, false},
		{"quiet while spinner runs", false, config.LogText, true, false, false, false},
		{"json ignores quiet", false, config.LogJSON, true, true, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			cfg := config.NewConfig()
			cfg.Verbose = tt.verbose
			cfg.LogFormat = tt.logFormat

			logger := setupLogger(&buf, cfg, tt.quiet)
			logger.Debug("debug message")
			logger.Info("info message")
			logger.Warn("warn message")

			out := buf.String()
			if got := strings.Contains(out, "info message"); got != tt.infoShown {
				t.Errorf("info shown = %v, want %v: %s", got, tt.infoShown, out)
			}
			if got := strings.Contains(out, "debug message"); got != tt.debugShow {
				t.Errorf("debug shown = %v, want %v: %s", got, tt.debugShow, out)
			}
			if !strings.Contains(out, "warn message") {
				t.Errorf("expected warnings to be shown: %s", out)
			}
			if got := strings.HasPrefix(out, "{"); got != tt.json {
				t.Errorf("json output = %v, want %v: %s", got, tt.json, out)
			}
		})
	}

	t.Run("masks the session cookie", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := setupLogger(&buf, config.NewConfig(), false)
		logger.Info("installing cookie", "cookie", "thorn_session=abc123")
		if strings.Contains(buf.String(), "abc123") {
			t.Errorf("cookie value leaked: %s", buf.String())
		}
	})
}

// TestBrowserOptions tests that one cookie option is added per site origin.
func TestBrowserOptions(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.DiscardHandler)
	base := len(browserOptions(config.NewConfig(), logger))

	cfg := config.NewConfig()
	cfg.SiteConfigs = &config.File{
		Sites: map[string]config.SiteConfig{
			"kb.example.com":  {Cookie: &config.Cookie{Name: "thorn_session", Value: "a"}},
			"kb2.example.com": {Cookie: &config.Cookie{Name: "thorn_session", Value: "b"}},
		},
	}
	cfg.Targets = []string{
		testRoot,
		"https://kb.example.com/t/acme#/folders/2/policies",
		"https://kb2.example.com/t/beta#/folders/1/root",
		"https://nocookie.example.com/t/x#/folders/1/root",
	}

	got := len(browserOptions(cfg, logger)) - base
	if got != 2 {
		t.Errorf("expected 2 cookie options, got %d", got)
	}
}

func TestOriginOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{testRoot, "https://kb.example.com"},
		{"http://localhost:8080/t/x#/posts/1", "http://localhost:8080"},
		{"not a url", "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := originOf(tt.in); got != tt.want {
				t.Errorf("originOf(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFanOut(t *testing.T) {
	t.Parallel()

	if fanOut() != nil {
		t.Error("expected nil observer without observers")
	}

	var calls []string
	fn := fanOut(
		func(ev model.NodeEvent) { calls = append(calls, "a:"+ev.URL) },
		func(ev model.NodeEvent) { calls = append(calls, "b:"+ev.URL) },
	)
	fn(model.NodeEvent{URL: "u"})

	if strings.Join(calls, ",") != "a:u,b:u" {
		t.Errorf("unexpected calls %v", calls)
	}
}

// TestOpenSummaryOutput tests the summary destination.
func TestOpenSummaryOutput(t *testing.T) {
	t.Parallel()

	t.Run("defaults to stdout", func(t *testing.T) {
		t.Parallel()
		var stdout bytes.Buffer
		w, closeFn, err := openSummaryOutput("", &stdout)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer closeFn()
		if w != &stdout {
			t.Error("expected stdout writer")
		}
	})

	t.Run("creates file and parent directories", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "reports", "nested", "summary.md")
		w, closeFn, err := openSummaryOutput(path, &bytes.Buffer{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := w.Write([]byte("hello")); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		closeFn()

		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read summary: %v", err)
		}
		if string(content) != "hello" {
			t.Errorf("content = %q, want hello", content)
		}

		if runtime.GOOS != "windows" {
			info, err := os.Stat(path)
			if err != nil {
				t.Fatalf("failed to stat file: %v", err)
			}
			if perm := info.Mode().Perm(); perm != 0600 {
				t.Errorf("expected permissions 0600, got %o", perm)
			}
		}
	})
}

func TestNewSummaryWriter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		check  func(report.Writer) bool
	}{
		{config.SummaryText, func(w report.Writer) bool { _, ok := w.(*report.SimpleWriter); return ok }},
		{config.SummaryMarkdown, func(w report.Writer) bool { _, ok := w.(*report.MarkdownWriter); return ok }},
		{config.SummaryJSON, func(w report.Writer) bool { _, ok := w.(*report.JSONWriter); return ok }},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()
			cfg := config.NewConfig()
			cfg.SummaryFormat = tt.format
			if w := newSummaryWriter(cfg, &bytes.Buffer{}); !tt.check(w) {
				t.Errorf("unexpected writer type %T", w)
			}
		})
	}
}

func TestJobErrors(t *testing.T) {
	t.Parallel()

	ok := pipeline.NewJob(0, testRoot)
	bad := pipeline.NewJob(1, "https://kb.example.com/#/folders/2/x")
	bad.Err = errors.New("boom")

	if err := jobErrors([]*pipeline.Job{ok}); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	err := jobErrors([]*pipeline.Job{ok, bad})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "1 of 2 crawls failed") {
		t.Errorf("unexpected message %q", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected the job error to be included, got %q", err)
	}
}
