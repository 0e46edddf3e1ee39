package export

import "errors"

// ErrExport wraps every render or write failure of a single post.
var ErrExport = errors.New("export failed")

// ErrUnknownFormat is returned by New for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown export format")
