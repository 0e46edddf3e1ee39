package naming

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Separator replaces runs of whitespace in labels and filename stems.
const Separator = "_"

// Untitled is the stem used when a document title normalizes to nothing.
const Untitled = "untitled"

// Stem length limits per document format.
const (
	MarkdownStemMax = 80
	PDFStemMax      = 50
)

var (
	// leadingSymbols matches one run of decorative symbols (icons, emoji)
	// at the start of a breadcrumb, together with the spaces after it.
	leadingSymbols = regexp.MustCompile(`^[^\w\s\p{Zs}]+[\s\p{Zs}]*`)

	// disallowed matches everything except word characters, whitespace
	// and hyphens.
	disallowed = regexp.MustCompile(`[^\w\s\p{Zs}-]`)

	// whitespace also covers Unicode space separators such as U+00A0,
	// which rendered breadcrumbs use between words.
	whitespace = regexp.MustCompile(`[\s\p{Zs}]+`)

	lower = cases.Lower(language.Und)
)

// NormalizeLabel converts raw breadcrumb text into a directory name.
//
// The pipeline strips a leading run of symbols, drops every character
// outside [A-Za-z0-9_-] and whitespace, collapses whitespace to Separator
// and lowercases the result. The second return value is false when nothing
// usable remains, which callers treat as "no breadcrumb".
//
//	NormalizeLabel("📁 Clinics & Facilities!!") // "clinics_facilities", true
func NormalizeLabel(raw string) (string, bool) {
	s := leadingSymbols.ReplaceAllString(strings.TrimSpace(raw), "")
	s = disallowed.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	s = whitespace.ReplaceAllString(s, Separator)
	return lower.String(s), true
}

// TitleStem converts a document title into a filename stem of at most max
// bytes. Case is preserved. An empty result yields Untitled.
func TitleStem(title string, max int) string {
	s := disallowed.ReplaceAllString(strings.TrimSpace(title), "")
	s = whitespace.ReplaceAllString(strings.TrimSpace(s), Separator)
	if max > 0 && len(s) > max {
		s = s[:max]
	}
	if s == "" {
		return Untitled
	}
	return s
}

// Filename builds "{seq:03d}_{stem}.{ext}".
func Filename(seq int, stem, ext string) string {
	return fmt.Sprintf("%03d_%s.%s", seq, stem, strings.TrimPrefix(ext, "."))
}

// EnsureExt appends "."+ext to name unless it already ends with it.
func EnsureExt(name, ext string) string {
	ext = "." + strings.TrimPrefix(ext, ".")
	if strings.HasSuffix(name, ext) {
		return name
	}
	return name + ext
}
