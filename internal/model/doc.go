// Package model defines the data structures shared by the crawler, the
// collaborators it drives and the report writers.
//
// This package contains the following main types:
//   - Link: One outbound link of a listing page, tagged Folder or Post
//   - FolderPath: The immutable ancestry of folder labels for a node
//   - ExportResult: The outcome of exporting one post
//   - NodeEvent: A node reaching its terminal state during traversal
//   - Summary: The per-run figures printed at the end of a crawl
//
// Models live in their own package so that crawler, export and report can
// share them without import cycles. None of them are persisted except by the
// optional history database.
package model
