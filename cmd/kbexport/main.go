// Package main provides the entry point for the kbexport CLI.
//
// kbexport mirrors a knowledge base that is only reachable through a
// JavaScript single-page application. It walks the folder tree depth-first
// in a headless Chrome and exports every post as Markdown or PDF into a
// local directory tree that follows the knowledge base's own folders.
//
// Usage:
//
//	kbexport crawl <root-folder-url>
//	kbexport crawl --format pdf --depth 3 <root-folder-url>
//
// See --help for all available options.
package main

// main is the entry point for kbexport.
func main() {
	Execute()
}
