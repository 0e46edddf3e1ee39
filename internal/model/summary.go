package model

import (
	"sort"
	"time"
)

// DirectoryStat holds per-directory export figures for the run summary.
type DirectoryStat struct {
	// Path is the absolute output directory.
	Path string `json:"path"`

	// Attempts is the number of sequence numbers consumed in Path.
	Attempts int `json:"attempts"`

	// Exported is the number of documents actually written to Path.
	Exported int `json:"exported"`
}

// Summary is the human-facing result of one crawl run.
// Individual failures are only counted here; details live in the run log.
type Summary struct {
	// RootURL is where the crawl started.
	RootURL string `json:"root_url"`

	// OutputDir is the root of the mirrored tree.
	OutputDir string `json:"output_dir"`

	// Format is the document format, "markdown" or "pdf".
	Format string `json:"format"`

	// Visited lists every URL added to the visited set, in visit order.
	Visited []string `json:"visited"`

	// Directories holds per-directory figures sorted by path.
	Directories []DirectoryStat `json:"directories"`

	// States counts terminal node states by name.
	States map[string]int `json:"states"`

	// Cancelled is true when the run stopped before the stack was exhausted.
	Cancelled bool `json:"cancelled,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewSummary returns an empty summary for a run starting now.
func NewSummary(rootURL, outputDir, format string) *Summary {
	return &Summary{
		RootURL:     rootURL,
		OutputDir:   outputDir,
		Format:      format,
		Visited:     make([]string, 0),
		Directories: make([]DirectoryStat, 0),
		States:      make(map[string]int),
		StartedAt:   time.Now(),
	}
}

// Count records one node reaching state.
func (s *Summary) Count(state NodeState) {
	s.States[state.String()]++
}

// StateCount returns how many nodes ended in state.
func (s *Summary) StateCount(state NodeState) int {
	return s.States[state.String()]
}

// TotalVisited returns the size of the visited set.
func (s *Summary) TotalVisited() int {
	return len(s.Visited)
}

// TotalExported returns the number of documents written across directories.
func (s *Summary) TotalExported() int {
	total := 0
	for _, d := range s.Directories {
		total += d.Exported
	}
	return total
}

// Duration returns the wall time of the run.
func (s *Summary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// SetDirectories replaces the per-directory figures, sorted by path.
func (s *Summary) SetDirectories(stats []DirectoryStat) {
	sorted := make([]DirectoryStat, len(stats))
	copy(sorted, stats)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})
	s.Directories = sorted
}
