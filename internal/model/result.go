package model

import "fmt"

// ExportResult is the outcome of exporting one post.
// It lives only for the duration of a run and feeds the summary.
type ExportResult struct {
	// Success is true when the document was rendered and written.
	Success bool `json:"success"`

	// Path is the written file. Empty when Success is false.
	Path string `json:"path,omitempty"`

	// Title is the page title, or the post URL when the export failed.
	Title string `json:"title"`

	// Sequence is the per-directory number consumed by this attempt.
	// Zero when the caller supplied an explicit filename.
	Sequence int `json:"sequence,omitempty"`
}

// FailedExport returns the result reported for an export that did not
// produce a document. The URL stands in for the unknown title.
func FailedExport(url string, seq int) ExportResult {
	return ExportResult{Success: false, Title: url, Sequence: seq}
}

// NodeState is the terminal state of one traversal node.
type NodeState int

const (
	// NodeExpanded is a folder whose children were enumerated.
	NodeExpanded NodeState = iota

	// NodeExported is a post that was handed to the document exporter
	// and produced a document.
	NodeExported

	// NodeSkipped is a URL that was already in the visited set.
	NodeSkipped

	// NodeFailed is a node whose collaborator call failed.
	NodeFailed

	// NodeRefused is a folder beyond the depth bound. It is left unvisited.
	NodeRefused

	// NodeFiltered is a URL excluded by ignore/follow patterns.
	NodeFiltered
)

// String returns the lowercase state name.
func (s NodeState) String() string {
	switch s {
	case NodeExpanded:
		return "expanded"
	case NodeExported:
		return "exported"
	case NodeSkipped:
		return "skipped"
	case NodeFailed:
		return "failed"
	case NodeRefused:
		return "refused"
	case NodeFiltered:
		return "filtered"
	default:
		return fmt.Sprintf("NodeState(%d)", int(s))
	}
}

// NodeEvent describes a node reaching its terminal state.
// Observers receive one event per processed stack frame.
type NodeEvent struct {
	URL   string
	Kind  LinkKind
	Depth int
	Path  FolderPath
	State NodeState

	// Directory is the resolved output directory. Empty for skipped,
	// refused and filtered nodes.
	Directory string

	// Export is set for posts that reached the exporter.
	Export *ExportResult

	// Err is the collaborator error for failed nodes.
	Err error
}
