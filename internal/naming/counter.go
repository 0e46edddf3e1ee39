package naming

import (
	"sort"
	"sync"
)

// Counter hands out 1-based sequence numbers per destination directory.
//
// Keys are absolute directory paths, so two folder paths that resolve to the
// same directory share one sequence. Every call to Next consumes a number,
// whether or not the export that asked for it succeeds. Next is safe for
// concurrent use: two exports racing into one directory never receive the
// same number.
type Counter struct {
	mu   sync.Mutex
	next map[string]int
}

// NewCounter returns an empty Counter.
func NewCounter() *Counter {
	return &Counter{next: make(map[string]int)}
}

// Next reserves and returns the next sequence number for dir.
func (c *Counter) Next(dir string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next[dir]++
	return c.next[dir]
}

// Attempts returns how many numbers have been handed out for dir.
func (c *Counter) Attempts(dir string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next[dir]
}

// DirCount is one entry of a Counter snapshot.
type DirCount struct {
	Dir      string
	Attempts int
}

// Snapshot returns the attempts per directory sorted by directory.
func (c *Counter) Snapshot() []DirCount {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]DirCount, 0, len(c.next))
	for dir, n := range c.next {
		out = append(out, DirCount{Dir: dir, Attempts: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Dir < out[j].Dir })
	return out
}
