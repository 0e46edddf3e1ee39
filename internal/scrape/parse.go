package scrape

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/kbexport/internal/model"
	"github.com/nao1215/kbexport/internal/naming"
)

// Route markers that identify listing rows worth following.
const (
	folderRoute = "#/folders/"
	postRoute   = "#/posts/"
)

// ParseDocument parses a rendered snapshot into a goquery document.
func ParseDocument(pageHTML string) (*goquery.Document, error) {
	root, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return goquery.NewDocumentFromNode(root), nil
}

// Breadcrumb returns the normalized label of the last trail entry in doc.
// It returns false when there is no trail, no entry, or the entry's span
// text normalizes to nothing.
func Breadcrumb(doc *goquery.Document, sel Selectors) (string, bool) {
	sel = sel.withDefaults()

	container := doc.Find(sel.BreadcrumbContainer).First()
	if container.Length() == 0 {
		return "", false
	}
	entries := container.Find(sel.BreadcrumbLinks)
	if entries.Length() == 0 {
		return "", false
	}

	span := entries.Last().Find("span").First()
	text := strings.TrimSpace(span.Text())
	if text == "" {
		return "", false
	}
	return naming.NormalizeLabel(text)
}

// Links returns the folder and post links of doc's listing table in
// document order. Fragment-only hrefs are resolved against the origin and
// path of pageURL. Rows pointing anywhere else are dropped.
func Links(doc *goquery.Document, pageURL string, sel Selectors) ([]model.Link, error) {
	sel = sel.withDefaults()

	page, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %q: %w", pageURL, err)
	}

	links := make([]model.Link, 0)
	doc.Find(sel.Listing).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		if !strings.Contains(href, folderRoute) && !strings.Contains(href, postRoute) {
			return
		}

		target := resolveHref(page, href)
		if target == "" {
			return
		}

		kind := model.LinkFolder
		if strings.Contains(href, postRoute) {
			kind = model.LinkPost
		}
		links = append(links, model.Link{
			URL:  target,
			Text: strings.Join(strings.Fields(a.Text()), " "),
			Kind: kind,
		})
	})
	return links, nil
}

// resolveHref turns a listing href into an absolute URL.
func resolveHref(page *url.URL, href string) string {
	if strings.HasPrefix(href, "#") {
		return page.Scheme + "://" + page.Host + page.EscapedPath() + href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return page.ResolveReference(ref).String()
}

// ParseBreadcrumb is Breadcrumb over a raw snapshot.
func ParseBreadcrumb(pageHTML string, sel Selectors) (string, bool) {
	doc, err := ParseDocument(pageHTML)
	if err != nil {
		return "", false
	}
	return Breadcrumb(doc, sel)
}

// ParseLinks is Links over a raw snapshot.
func ParseLinks(pageHTML, pageURL string, sel Selectors) ([]model.Link, error) {
	doc, err := ParseDocument(pageHTML)
	if err != nil {
		return nil, err
	}
	return Links(doc, pageURL, sel)
}
