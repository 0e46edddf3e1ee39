package export

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/strikethrough"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/nao1215/kbexport/internal/crawler"
	"github.com/nao1215/kbexport/internal/model"
	"github.com/nao1215/kbexport/internal/naming"
	"github.com/nao1215/kbexport/internal/scrape"
)

// DefaultSettle is the render wait before a post is captured.
const DefaultSettle = 1 * time.Second

// imageStyle keeps images inside the page width when the Markdown is
// rendered back to HTML.
const imageStyle = "max-width:100%; height:auto;"

// DefaultChrome lists the presentation elements stripped before export.
func DefaultChrome() []string {
	return []string{
		".d-flex.justify-content-end.justify-content-between.align-items-center.flex-row",
		".navbar",
		".header",
		".footer",
		".sidebar",
	}
}

// DefaultContentCandidates lists the main-content containers, best first.
func DefaultContentCandidates() []string {
	return []string{
		`[data-testid="post-content"]`,
		".post-content",
		".markdown-body",
		"article",
		"main",
		".ql-editor",
		".content",
	}
}

// MarkdownExporter writes posts as Markdown files.
type MarkdownExporter struct {
	fetcher    scrape.Fetcher
	settle     time.Duration
	chrome     []string
	candidates []string
	logger     *slog.Logger
	conv       *converter.Converter
}

// MarkdownOption configures a MarkdownExporter.
type MarkdownOption func(*MarkdownExporter)

// WithMarkdownSettle sets the render wait.
func WithMarkdownSettle(d time.Duration) MarkdownOption {
	return func(e *MarkdownExporter) {
		if d >= 0 {
			e.settle = d
		}
	}
}

// WithChrome replaces the selectors of elements removed before export.
func WithChrome(selectors []string) MarkdownOption {
	return func(e *MarkdownExporter) {
		if len(selectors) > 0 {
			e.chrome = selectors
		}
	}
}

// WithContentCandidates replaces the main-content container selectors.
func WithContentCandidates(selectors []string) MarkdownOption {
	return func(e *MarkdownExporter) {
		if len(selectors) > 0 {
			e.candidates = selectors
		}
	}
}

// WithMarkdownLogger sets the logger.
func WithMarkdownLogger(logger *slog.Logger) MarkdownOption {
	return func(e *MarkdownExporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewMarkdown creates a MarkdownExporter reading pages through f.
func NewMarkdown(f scrape.Fetcher, opts ...MarkdownOption) *MarkdownExporter {
	e := &MarkdownExporter{
		fetcher:    f,
		settle:     DefaultSettle,
		chrome:     DefaultChrome(),
		candidates: DefaultContentCandidates(),
		logger:     slog.Default(),
		conv:       newConverter(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// newConverter mirrors a GFM Markdown style: ATX headings, fenced code,
// underscore emphasis, dash bullets, tables and strikethrough.
func newConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(
				commonmark.WithHeadingStyle(commonmark.HeadingStyleATX),
				commonmark.WithCodeBlockFence("```"),
				commonmark.WithEmDelimiter("_"),
				commonmark.WithBulletListMarker("-"),
			),
			table.NewTablePlugin(),
			strikethrough.NewStrikethroughPlugin(),
		),
	)
}

// Format returns "markdown".
func (e *MarkdownExporter) Format() string {
	return FormatMarkdown
}

// Export renders req.URL to Markdown and writes it under req.Dir.
func (e *MarkdownExporter) Export(ctx context.Context, req crawler.ExportRequest) model.ExportResult {
	seq := reserve(req)

	if err := checkContext(ctx); err != nil {
		return failed(e.logger, req, seq, err)
	}
	pageHTML, err := e.fetcher.Snapshot(ctx, req.URL, e.settle)
	if err != nil {
		return failed(e.logger, req, seq, fmt.Errorf("%w: %w", ErrExport, err))
	}

	title, body, err := e.Render(pageHTML, req.URL)
	if err != nil {
		return failed(e.logger, req, seq, err)
	}

	path := target(req, seq, title, "md", naming.MarkdownStemMax)
	if err := write(path, []byte(body)); err != nil {
		return failed(e.logger, req, seq, err)
	}

	e.logger.Debug("markdown written", "url", req.URL, "path", path, "bytes", len(body))
	return model.ExportResult{Success: true, Path: path, Title: title, Sequence: seq}
}

// Render converts a rendered post snapshot into its title and Markdown
// body. The body ends with a single newline.
func (e *MarkdownExporter) Render(pageHTML, pageURL string) (string, string, error) {
	pageBase, err := url.Parse(pageURL)
	if err != nil {
		return "", "", fmt.Errorf("%w: invalid URL %q: %w", ErrExport, pageURL, err)
	}
	doc, err := scrape.ParseDocument(pageHTML)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrExport, err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	for _, sel := range e.chrome {
		doc.Find(sel).Remove()
	}
	absolutize(doc, pageBase)

	content, source, err := e.content(doc, pageBase)
	if err != nil {
		return "", "", err
	}
	e.logger.Debug("content selected", "url", pageURL, "source", source)

	md, err := e.conv.ConvertString(content, converter.WithDomain(pageBase.Scheme+"://"+pageBase.Host))
	if err != nil {
		return "", "", fmt.Errorf("%w: markdown conversion: %w", ErrExport, err)
	}
	return title, strings.TrimSpace(md) + "\n", nil
}

// content returns the inner HTML of the post's main container and a short
// description of where it came from.
func (e *MarkdownExporter) content(doc *goquery.Document, pageBase *url.URL) (string, string, error) {
	for _, sel := range e.candidates {
		el := doc.Find(sel).First()
		if el.Length() == 0 || strings.TrimSpace(el.Text()) == "" {
			continue
		}
		inner, err := el.Html()
		if err != nil {
			return "", "", fmt.Errorf("%w: %w", ErrExport, err)
		}
		return inner, sel, nil
	}

	full, err := goquery.OuterHtml(doc.Selection)
	if err == nil {
		article, rerr := readability.FromReader(strings.NewReader(full), pageBase)
		if rerr == nil && strings.TrimSpace(article.Content) != "" {
			return article.Content, "readability", nil
		}
	}

	inner, err := doc.Find("body").First().Html()
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrExport, err)
	}
	return inner, "body", nil
}

// absolutize rewrites link and image URLs against the page URL and constrains image
// width.
func absolutize(doc *goquery.Document, pageBase *url.URL) {
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		a.SetAttr("href", resolve(pageBase, href))
	})
	doc.Find("img[src]").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		img.SetAttr("src", resolve(pageBase, src))
		img.SetAttr("style", imageStyle)
	})
}

// resolve returns ref resolved against pageBase, or ref unchanged when it does
// not parse.
func resolve(pageBase *url.URL, ref string) string {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return pageBase.ResolveReference(u).String()
}
