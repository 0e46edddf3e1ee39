// Package export renders knowledge-base posts into documents on disk.
//
// Two exporters implement the crawler's DocumentExporter contract:
// MarkdownExporter converts the post's main content to GitHub-flavoured
// Markdown, and PDFExporter prints the page through the browser.
//
// Both reserve a sequence number for the destination directory before
// loading the page. The number is spent even when the export fails, so
// file numbering reflects attempts, not successes.
package export
