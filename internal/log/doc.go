// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of the session cookie and request headers
//   - Configurable log levels with verbose mode support
//   - Text and JSON output sharing the same masking rules
//
// # Security Features
//
// The SecureHandler automatically sanitizes sensitive information in log output:
//   - Site headers (Authorization, Cookie, X-Api-Key, X-CSRF-Token)
//   - Session cookies by name (thorn_session, laravel_session, connect.sid)
//     and cookie pairs such as "thorn_session=..." by pattern
//   - Passwords and token query parameters inside logged URLs, keeping
//     the SPA route readable
//   - Cookie and header values inside chromedp messages
//
// Even in verbose mode, sensitive values are masked so that a crawl log can
// be attached to a bug report without leaking the knowledge base session.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("browser started",
//	    "cookie", "thorn_session=abc123", // logged as ***REDACTED***
//	    "url", "https://kb.example.com/t/acme",
//	)
//	slog.SetDefault(logger)
package log
