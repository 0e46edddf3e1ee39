package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and let callers use
// errors.Is() while still printing a human-readable message.
var (
	// ErrNoTarget is returned when no root URL is given on the command line
	// and no baseUrl is configured.
	ErrNoTarget = errors.New("no target specified: provide a root URL or set baseUrl in the config file")

	// ErrInvalidTarget is returned when a root URL is not an absolute
	// http(s) URL.
	ErrInvalidTarget = errors.New("invalid target: must be an absolute http or https URL")

	// ErrInvalidMaxDepth is returned when the depth ceiling is negative.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidTimeout is returned when the navigation timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid navigation timeout: must be positive")

	// ErrInvalidSettle is returned when a settle time is negative.
	ErrInvalidSettle = errors.New("invalid settle time: must be non-negative")

	// ErrInvalidDelay is returned when the delay between page operations is negative.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidFormat is returned for a document format other than markdown or pdf.
	ErrInvalidFormat = errors.New("invalid format: must be markdown or pdf")

	// ErrInvalidSummaryFormat is returned for a summary format other than
	// text, markdown or json.
	ErrInvalidSummaryFormat = errors.New("invalid summary format: must be text, markdown or json")

	// ErrInvalidLogFormat is returned for a log format other than text or json.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrInvalidConcurrency is returned when the number of parallel crawls
	// is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidOutputDir is returned when the output directory is empty.
	ErrInvalidOutputDir = errors.New("invalid output directory: must not be empty")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
