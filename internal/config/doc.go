// Package config provides configuration structures and utilities for
// kbexport. It defines the crawl, browser, output and reporting options,
// the YAML configuration file with per-site overrides, and the XDG
// directories used for history.
package config
