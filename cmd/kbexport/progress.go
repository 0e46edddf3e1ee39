package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"

	"github.com/nao1215/kbexport/internal/model"
)

// maxSpinnerURL is the longest URL shown next to the spinner.
const maxSpinnerURL = 80

// progress renders a terminal spinner with the node currently being
// processed. Several roots may report at once; the most recent event wins.
type progress struct {
	s *spinner.Spinner

	mu       sync.Mutex
	exported int
	failed   int
	active   int
}

// newProgress creates a spinner writing to w.
func newProgress(w io.Writer) *progress {
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " starting browser..."
	return &progress{s: s}
}

// Start shows the spinner.
func (p *progress) Start() {
	p.s.Start()
}

// Stop removes the spinner from the terminal.
func (p *progress) Stop() {
	p.s.Stop()
}

// Observer returns a node observer for the crawl of root.
func (p *progress) Observer(root string) func(model.NodeEvent) {
	p.mu.Lock()
	p.active++
	p.mu.Unlock()

	return func(ev model.NodeEvent) {
		p.mu.Lock()
		switch ev.State {
		case model.NodeExported:
			p.exported++
		case model.NodeFailed:
			p.failed++
		}
		suffix := p.suffix(ev.URL)
		p.mu.Unlock()

		p.s.Lock()
		p.s.Suffix = suffix
		p.s.Unlock()
	}
}

// Done marks the crawl of root as finished.
func (p *progress) Done(_ string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active > 0 {
		p.active--
	}
}

// suffix formats the spinner text. p.mu must be held.
func (p *progress) suffix(url string) string {
	return fmt.Sprintf(" [exported %d, failed %d, roots %d] %s",
		p.exported, p.failed, p.active, shorten(url, maxSpinnerURL))
}

// shorten truncates s to max runes, marking the cut with "...".
func shorten(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
