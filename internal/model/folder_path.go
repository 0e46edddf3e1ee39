package model

import "strings"

// FolderPath is the ordered ancestry of normalized folder labels from the
// crawl root to the current node.
//
// A FolderPath is immutable: Append returns a new value backed by its own
// array, so sibling branches of the traversal never observe each other's
// extensions.
type FolderPath struct {
	labels []string
}

// NewFolderPath builds a FolderPath from labels. The slice is copied.
func NewFolderPath(labels ...string) FolderPath {
	if len(labels) == 0 {
		return FolderPath{}
	}
	cp := make([]string, len(labels))
	copy(cp, labels)
	return FolderPath{labels: cp}
}

// Append returns a new FolderPath with label added at the end.
func (p FolderPath) Append(label string) FolderPath {
	cp := make([]string, len(p.labels), len(p.labels)+1)
	copy(cp, p.labels)
	return FolderPath{labels: append(cp, label)}
}

// Last returns the deepest label and false when the path is empty.
func (p FolderPath) Last() (string, bool) {
	if len(p.labels) == 0 {
		return "", false
	}
	return p.labels[len(p.labels)-1], true
}

// Len returns the number of labels.
func (p FolderPath) Len() int {
	return len(p.labels)
}

// IsEmpty reports whether the path has no labels (the output root).
func (p FolderPath) IsEmpty() bool {
	return len(p.labels) == 0
}

// Labels returns a copy of the labels in order.
func (p FolderPath) Labels() []string {
	cp := make([]string, len(p.labels))
	copy(cp, p.labels)
	return cp
}

// Equal reports whether both paths hold the same labels in the same order.
func (p FolderPath) Equal(other FolderPath) bool {
	if len(p.labels) != len(other.labels) {
		return false
	}
	for i := range p.labels {
		if p.labels[i] != other.labels[i] {
			return false
		}
	}
	return true
}

// String renders the path as "a > b > c", the form used in logs.
func (p FolderPath) String() string {
	return strings.Join(p.labels, " > ")
}
