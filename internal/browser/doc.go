// Package browser owns the headless Chrome instance that renders the
// knowledge base.
//
// Browser launches Chrome through chromedp and installs the session cookie
// before any page is loaded. Each Tab is an independent target that
// performs one page-level operation at a time: taking an HTML snapshot
// after the SPA has rendered, or printing a page to PDF.
//
// Launch failures are reported as ErrInitialization and abort the run.
// Everything that goes wrong while loading a single page is an
// ErrNavigation or ErrRender and only affects that page.
package browser
