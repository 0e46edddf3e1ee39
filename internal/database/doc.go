// Package database provides the opt-in SQLite history of crawl runs.
//
// A HistoryDB stores:
//   - One row per crawl run with its root URL, output directory and totals
//   - One row per export attempt, successful or not
//
// History is only recorded when the user asks for it with --history. The
// mirrored output tree stays the only artifact of a default run.
//
// SQLite comes from modernc.org/sqlite, a CGO-free driver, so the binary
// cross-compiles without a C toolchain.
package database
