// Package naming turns page text into filesystem names.
//
// Folder labels come from breadcrumb text and become directory names.
// Document titles become filename stems prefixed by a per-directory
// sequence number handed out by Counter, producing names such as
// "001_Refund_policy.md".
package naming
