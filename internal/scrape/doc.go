// Package scrape reads breadcrumbs and listing links out of rendered
// knowledge-base pages.
//
// Parsing works on HTML snapshots taken after the single-page application
// has rendered, so everything here is testable with plain HTML fixtures.
// Resolver binds the parsers to a Fetcher (normally a browser tab) and
// implements the crawler's BreadcrumbResolver and LinkExtractor contracts.
//
// A page without a breadcrumb trail or listing table is not an error: it
// yields no label or no links, and the crawl carries on with less context.
package scrape
