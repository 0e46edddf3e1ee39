package crawler

import (
	"net/url"
	"path/filepath"
	"strings"
)

// route returns the part of a knowledge-base URL that identifies the page.
// Single-page applications route through the fragment
// ("https://kb.example/t/acme#/folders/42/billing" has route
// "/folders/42/billing"); plain URLs fall back to the path.
func route(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	if strings.HasPrefix(u.Fragment, "/") {
		return u.Fragment
	}
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

// allowed reports whether target passes the ignore and follow patterns.
//
// Logic:
//  1. If the route matches any ignore pattern, it is rejected
//  2. If follow patterns are set and the route matches none, it is rejected
//  3. Otherwise it is allowed
func (c *Crawler) allowed(target string) bool {
	if len(c.ignorePatterns) == 0 && len(c.followPatterns) == 0 {
		return true
	}
	r := route(target)

	for _, pattern := range c.ignorePatterns {
		if matchPattern(pattern, r) {
			return false
		}
	}

	if len(c.followPatterns) > 0 {
		for _, pattern := range c.followPatterns {
			if matchPattern(pattern, r) {
				return true
			}
		}
		return false
	}
	return true
}

// matchPattern checks if a route matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - a trailing /* to match the prefix and everything below it
//   - ? to match any single character
//
// Examples:
//   - "/folders/*" matches "/folders/42/billing"
//   - "/posts/*/draft-?" matches "/posts/7/draft-1"
func matchPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		ext := strings.TrimPrefix(pattern, "*")
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	matched, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}
	if matched {
		return true
	}

	// Bare patterns such as "*archive*" are tried against the last segment.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := filepath.Match(pattern, filepath.Base(path))
		if err == nil && matched {
			return true
		}
	}

	return false
}
