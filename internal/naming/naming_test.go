package naming

import (
	"strings"
	"sync"
	"testing"
)

func TestNormalizeLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{name: "emoji and punctuation", raw: "📁 Clinics & Facilities!!", want: "clinics_facilities", wantOK: true},
		{name: "plain", raw: "Billing", want: "billing", wantOK: true},
		{name: "hyphen kept", raw: "Front-Desk Ops", want: "front-desk_ops", wantOK: true},
		{name: "whitespace collapsed", raw: "  Intake \t  Forms  ", want: "intake_forms", wantOK: true},
		{name: "only symbols", raw: "📁 !!", want: "", wantOK: false},
		{name: "empty", raw: "", want: "", wantOK: false},
		{name: "digits and underscore", raw: "2024_Q1 Reports", want: "2024_q1_reports", wantOK: true},
		{name: "inner symbol run", raw: "A / B", want: "a_b", wantOK: true},
		{name: "no-break space", raw: "Clinics\u00a0Facilities", want: "clinics_facilities", wantOK: true},
		{name: "icon then no-break space", raw: "📁\u00a0Billing\u2009Ops", want: "billing_ops", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := NormalizeLabel(tt.raw)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("NormalizeLabel(%q) = (%q, %v), want (%q, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNormalizeLabel_CharacterClass(t *testing.T) {
	t.Parallel()

	inputs := []string{"Ünïcödé Folder", "a b", "👩‍⚕️ Staff (2025)", "x--y", "!!!abc!!!"}
	for _, in := range inputs {
		got, ok := NormalizeLabel(in)
		if !ok {
			continue
		}
		for _, r := range got {
			valid := r == '_' || r == '-' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
			if !valid {
				t.Errorf("NormalizeLabel(%q) = %q contains %q", in, got, r)
			}
		}
	}
}

func TestTitleStem(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		title string
		max   int
		want  string
	}{
		{name: "case preserved", title: "Refund Policy", max: MarkdownStemMax, want: "Refund_Policy"},
		{name: "symbols removed", title: "What's new? (v2)", max: MarkdownStemMax, want: "Whats_new_v2"},
		{name: "empty", title: "", max: MarkdownStemMax, want: Untitled},
		{name: "no-break space", title: "Refund\u00a0Policy", max: MarkdownStemMax, want: "Refund_Policy"},
		{name: "only symbols", title: "???", max: PDFStemMax, want: Untitled},
		{name: "truncated", title: strings.Repeat("a", 120), max: PDFStemMax, want: strings.Repeat("a", 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TitleStem(tt.title, tt.max); got != tt.want {
				t.Errorf("TitleStem(%q, %d) = %q, want %q", tt.title, tt.max, got, tt.want)
			}
		})
	}
}

func TestFilename(t *testing.T) {
	t.Parallel()

	if got := Filename(1, "Intro", "md"); got != "001_Intro.md" {
		t.Errorf("Filename() = %q", got)
	}
	if got := Filename(42, "Intro", ".pdf"); got != "042_Intro.pdf" {
		t.Errorf("Filename() = %q", got)
	}
	if got := Filename(1234, "x", "md"); got != "1234_x.md" {
		t.Errorf("Filename() = %q", got)
	}
}

func TestEnsureExt(t *testing.T) {
	t.Parallel()

	if got := EnsureExt("notes", "md"); got != "notes.md" {
		t.Errorf("EnsureExt() = %q", got)
	}
	if got := EnsureExt("notes.md", ".md"); got != "notes.md" {
		t.Errorf("EnsureExt() = %q", got)
	}
	if got := EnsureExt("notes.md", "pdf"); got != "notes.md.pdf" {
		t.Errorf("EnsureExt() = %q", got)
	}
}

func TestCounter_Monotonic(t *testing.T) {
	t.Parallel()

	c := NewCounter()
	for want := 1; want <= 5; want++ {
		if got := c.Next("/out/a"); got != want {
			t.Fatalf("Next() = %d, want %d", got, want)
		}
	}
	if got := c.Next("/out/b"); got != 1 {
		t.Errorf("independent directory started at %d", got)
	}
	if c.Attempts("/out/a") != 5 {
		t.Errorf("Attempts(a) = %d, want 5", c.Attempts("/out/a"))
	}
	if c.Attempts("/out/missing") != 0 {
		t.Errorf("Attempts(missing) = %d, want 0", c.Attempts("/out/missing"))
	}

	snap := c.Snapshot()
	if len(snap) != 2 || snap[0].Dir != "/out/a" || snap[1].Dir != "/out/b" {
		t.Errorf("Snapshot() = %+v", snap)
	}
}

func TestCounter_ConcurrentNextIsUnique(t *testing.T) {
	t.Parallel()

	const workers = 50
	c := NewCounter()
	seen := make(chan int, workers)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- c.Next("/out/shared")
		}()
	}
	wg.Wait()
	close(seen)

	got := make(map[int]bool)
	for n := range seen {
		if got[n] {
			t.Fatalf("sequence %d handed out twice", n)
		}
		got[n] = true
	}
	for i := 1; i <= workers; i++ {
		if !got[i] {
			t.Errorf("sequence %d never handed out", i)
		}
	}
}
