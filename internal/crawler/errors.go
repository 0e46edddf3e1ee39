package crawler

import "errors"

var (
	// ErrMissingCollaborator is returned by Crawl when the Crawler was built
	// without one of its collaborators.
	ErrMissingCollaborator = errors.New("crawler: missing collaborator")

	// ErrInvalidRootURL is returned when the root URL is not absolute.
	ErrInvalidRootURL = errors.New("crawler: invalid root URL")

	// ErrExportFailed marks a post whose export reported no document.
	ErrExportFailed = errors.New("crawler: export failed")

	// ErrUnknownLinkKind marks a link that is neither a folder nor a post.
	ErrUnknownLinkKind = errors.New("crawler: unknown link kind")
)
