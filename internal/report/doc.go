// Package report renders the summary of a crawl run.
//
// This package contains writers for different output formats:
//   - SimpleWriter: the plain text CRAWL SUMMARY printed at the end of a run
//   - MarkdownWriter: tables for pasting into a wiki or a pull request
//   - JSONWriter: structured output for scripts
//
// The summary data itself lives in the model package. Writers implement the
// Writer interface, so they can be combined with MultiWriter to print to the
// terminal and a file at once.
package report
