// Package crawler drives the depth-first traversal of a knowledge base.
//
// # Architecture
//
// The Crawler is the only stateful piece of a run. It owns the visited set
// and the per-directory sequence counter for the duration of one Crawl call
// and delegates everything page-related to collaborators:
//
//   - BreadcrumbResolver: the folder label of a page
//   - LinkExtractor: the folder and post links of a listing page
//   - DocumentExporter: renders one post into a directory
//   - PathResolver: maps a FolderPath to a directory on disk
//
// # Traversal
//
// Nodes are processed from an explicit LIFO stack. Children are pushed in
// reverse listing order, so the traversal is depth-first and left-to-right.
// For every popped node the crawler checks, in order:
//
//  1. The depth bound. Folders deeper than the maximum are refused and left
//     unvisited.
//  2. The visited set. A URL seen before is skipped with no collaborator
//     calls.
//  3. The ignore and follow patterns, matched against the SPA route.
//
// A post does not simply inherit the folder of the listing it appears in.
// Its own breadcrumb is resolved, and a label that differs from the
// listing's last label is appended to form the post's directory.
//
// # Failure handling
//
// Every collaborator failure is local. The node is logged with its URL,
// depth and folder path, reported as failed, and the crawl continues with
// the next node on the stack.
//
// # Usage
//
//	c := crawler.New(resolver, resolver, exporter, paths, crawler.WithMaxDepth(5))
//	summary, err := c.Crawl(ctx, "https://kb.example/t/acme#/folders/1/handbook")
package crawler
