package scrape

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nao1215/kbexport/internal/model"
)

const pageURL = "https://kb.example/t/acme?lang=en#/folders/1/handbook"

const folderPage = `<!DOCTYPE html>
<html><head><title>Handbook</title></head>
<body>
  <div class="content-nav break-work-break-all">
    <a href="#/category/9/home"><span>🏠 Home</span></a>
    <a href="#/folders/1/handbook"><span>📁 Clinics &amp; Facilities!!</span></a>
  </div>
  <table class="post-table">
    <thead><tr><th><a href="#/folders/ignored">Header</a></th></tr></thead>
    <tbody>
      <tr><td><a href="#/folders/2/billing"> Billing </a></td></tr>
      <tr><td><a href="#/posts/10">Refund
        policy</a></td></tr>
      <tr><td><a href="https://other.example/x#/posts/11">External post</a></td></tr>
      <tr><td><a href="/settings">Settings</a></td></tr>
      <tr><td><a>No href</a></td></tr>
    </tbody>
  </table>
</body></html>`

func TestParseBreadcrumb(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		html   string
		want   string
		wantOK bool
	}{
		{name: "last entry normalized", html: folderPage, want: "clinics_facilities", wantOK: true},
		{name: "no container", html: `<div><a href="#/folders/1"><span>X</span></a></div>`, want: "", wantOK: false},
		{name: "container without entries", html: `<div class="content-nav break-work-break-all"><a href="#/posts/1"><span>X</span></a></div>`, want: "", wantOK: false},
		{name: "entry without span", html: `<div class="content-nav break-work-break-all"><a href="#/folders/1">Text</a></div>`, want: "", wantOK: false},
		{name: "symbols only", html: `<div class="content-nav break-work-break-all"><a href="#/folders/1"><span>📁 !!</span></a></div>`, want: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseBreadcrumb(tt.html, Selectors{})
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseBreadcrumb() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseLinks(t *testing.T) {
	t.Parallel()

	links, err := ParseLinks(folderPage, pageURL, DefaultSelectors())
	if err != nil {
		t.Fatalf("ParseLinks() error = %v", err)
	}

	want := []model.Link{
		{URL: "https://kb.example/t/acme#/folders/2/billing", Text: "Billing", Kind: model.LinkFolder},
		{URL: "https://kb.example/t/acme#/posts/10", Text: "Refund policy", Kind: model.LinkPost},
		{URL: "https://other.example/x#/posts/11", Text: "External post", Kind: model.LinkPost},
	}
	if len(links) != len(want) {
		t.Fatalf("got %d links, want %d: %+v", len(links), len(want), links)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Errorf("links[%d] = %+v, want %+v", i, links[i], want[i])
		}
	}
}

func TestParseLinks_NoTable(t *testing.T) {
	t.Parallel()

	links, err := ParseLinks(`<html><body><p>Empty folder</p></body></html>`, pageURL, Selectors{})
	if err != nil {
		t.Fatalf("ParseLinks() error = %v", err)
	}
	if len(links) != 0 {
		t.Errorf("expected no links, got %+v", links)
	}
}

func TestParseLinks_InvalidPageURL(t *testing.T) {
	t.Parallel()

	if _, err := ParseLinks(folderPage, "://bad", Selectors{}); err == nil {
		t.Error("expected error for invalid page URL")
	}
}

func TestSelectors_CustomListing(t *testing.T) {
	t.Parallel()

	page := `<ul class="docs"><li><a href="#/posts/5">Five</a></li></ul>`
	links, err := ParseLinks(page, pageURL, Selectors{Listing: ".docs a[href]"})
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 || links[0].Kind != model.LinkPost {
		t.Errorf("custom listing selector not honored: %+v", links)
	}
}

type fakeFetcher struct {
	pages  map[string]string
	err    error
	calls  int
	settle time.Duration
}

func (f *fakeFetcher) Snapshot(_ context.Context, u string, settle time.Duration) (string, error) {
	f.calls++
	f.settle = settle
	if f.err != nil {
		return "", f.err
	}
	return f.pages[u], nil
}

func TestResolver(t *testing.T) {
	t.Parallel()

	t.Run("breadcrumb and links share one snapshot", func(t *testing.T) {
		t.Parallel()

		f := &fakeFetcher{pages: map[string]string{pageURL: folderPage}}
		r := NewResolver(f, WithSettle(500*time.Millisecond))

		label, err := r.ResolveBreadcrumb(context.Background(), pageURL)
		if err != nil || label != "clinics_facilities" {
			t.Fatalf("ResolveBreadcrumb() = (%q, %v)", label, err)
		}
		links, err := r.ExtractLinks(context.Background(), pageURL)
		if err != nil || len(links) != 3 {
			t.Fatalf("ExtractLinks() = (%d links, %v)", len(links), err)
		}
		if f.calls != 1 {
			t.Errorf("fetcher called %d times, want 1", f.calls)
		}
		if f.settle != 500*time.Millisecond {
			t.Errorf("settle = %v", f.settle)
		}
	})

	t.Run("missing elements are not errors", func(t *testing.T) {
		t.Parallel()

		f := &fakeFetcher{pages: map[string]string{pageURL: "<html><body></body></html>"}}
		r := NewResolver(f)

		label, err := r.ResolveBreadcrumb(context.Background(), pageURL)
		if err != nil || label != "" {
			t.Errorf("ResolveBreadcrumb() = (%q, %v), want empty and nil", label, err)
		}
		links, err := r.ExtractLinks(context.Background(), pageURL)
		if err != nil || len(links) != 0 {
			t.Errorf("ExtractLinks() = (%v, %v), want empty and nil", links, err)
		}
	})

	t.Run("navigation failure is returned", func(t *testing.T) {
		t.Parallel()

		errNav := errors.New("navigation timeout")
		r := NewResolver(&fakeFetcher{err: errNav})

		if _, err := r.ResolveBreadcrumb(context.Background(), pageURL); !errors.Is(err, errNav) {
			t.Errorf("ResolveBreadcrumb() error = %v", err)
		}
		if _, err := r.ExtractLinks(context.Background(), pageURL); !errors.Is(err, errNav) {
			t.Errorf("ExtractLinks() error = %v", err)
		}
	})
}
