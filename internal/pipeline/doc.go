// Package pipeline runs crawl jobs, one per root URL.
//
// A Pipeline executes the steps of a single job in order: typically
// recording the start of the run, crawling the root, then recording the
// totals and writing the summary. Steps added with AddFinalStep run even
// when an earlier step failed or the context was cancelled, so an
// interrupted crawl still leaves a partial summary behind.
//
// BatchProcessor fans several roots out over a bounded number of
// goroutines with errgroup. Every job gets a fresh Pipeline from a factory,
// which lets the caller give each root its own browser tab and crawler.
package pipeline
