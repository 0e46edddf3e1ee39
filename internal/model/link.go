package model

import "fmt"

// LinkKind classifies an outbound link found in a listing table.
// A listing row either points at another listing (Folder) or at a leaf
// document (Post).
type LinkKind int

const (
	// LinkFolder is a listing page that contains further folders and/or posts.
	LinkFolder LinkKind = iota

	// LinkPost is a leaf page whose content is exported as one document.
	LinkPost
)

// String returns the lowercase name used in logs and reports.
func (k LinkKind) String() string {
	switch k {
	case LinkFolder:
		return "folder"
	case LinkPost:
		return "post"
	default:
		return fmt.Sprintf("LinkKind(%d)", int(k))
	}
}

// Link is a single outbound link produced by one page visit.
// Links are never persisted.
type Link struct {
	// URL is the absolute URL of the target page.
	URL string `json:"url"`

	// Text is the visible anchor text, trimmed.
	Text string `json:"text"`

	// Kind tells the orchestrator whether to expand or export the target.
	Kind LinkKind `json:"kind"`
}
