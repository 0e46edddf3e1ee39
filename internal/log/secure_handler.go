package log

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// sensitiveKeys are attribute keys whose values are always masked. They
// are the request headers and session cookie names a knowledge base uses
// to authenticate the crawler.
var sensitiveKeys = map[string]bool{
	// Request headers
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"api_key":             true,
	"x-auth-token":        true,
	"x-csrf-token":        true,
	"x-xsrf-token":        true,

	// Session cookies
	"session":         true,
	"sessionid":       true,
	"session_id":      true,
	"thorn_session":   true,
	"laravel_session": true,
	"phpsessid":       true,
	"jsessionid":      true,
	"connect.sid":     true,
	"sid":             true,
}

// sensitiveKeywords mask any key that contains them, e.g. "cookie_value"
// or "access_token". The bare "key" is left out because it matches
// "primary_key" and similar harmless names.
var sensitiveKeywords = []string{
	"password", "secret", "token", "auth", "credential", "cookie",
}

// sensitivePatterns match values that are masked whatever their key.
var sensitivePatterns = []*regexp.Regexp{
	// JWT tokens
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),

	// Authorization header values
	regexp.MustCompile(`(?i)^(bearer|basic)\s+\S+`),

	// Opaque session values
	regexp.MustCompile(`^[a-zA-Z0-9]{32,}$`),

	// Cookie header pairs such as "thorn_session=..." or "connect.sid=..."
	regexp.MustCompile(`(?i)^[a-z0-9_.-]*(session|sessid|sid|token)[a-z0-9_.-]*=\S+`),
}

// messageSecrets match secrets embedded in free-form messages, such as the
// cookie and header parameters chromedp reports when a command fails. The
// first group is kept and the rest replaced.
var messageSecrets = []*regexp.Regexp{
	regexp.MustCompile(`(?i)("name":\s*"[^"]*(?:session|sid|token|auth)[^"]*",\s*"value":\s*")[^"]*"`),
	regexp.MustCompile(`(?i)("(?:authorization|cookie|x-api-key|x-auth-token|x-csrf-token|x-xsrf-token)":\s*")[^"]*"`),
}

// sensitiveParams are URL query parameters whose values are masked. Root
// URLs are logged on every node, and some knowledge bases accept a share
// token in the query string.
var sensitiveParams = []string{
	"token", "access_token", "auth", "key", "api_key", "sig", "signature", "session",
}

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// SecureHandler wraps an slog.Handler to sanitize sensitive information.
// Attributes named like a header or session cookie are masked, as are
// values that look like a session secret. URLs keep their route and only
// lose the password and sensitive query values. Messages are scrubbed of
// cookie and header values.
//
// It works with any underlying handler, so the same masking applies to
// both the text and the JSON log formats.
type SecureHandler struct {
	// handler is the underlying slog handler that receives sanitized records.
	handler slog.Handler
}

// NewSecureHandler creates a new SecureHandler wrapping the given handler.
// All log attributes will be sanitized before being passed to the underlying handler.
// If handler is nil, the returned SecureHandler will use slog.Default().Handler().
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle sanitizes the record's attributes and passes it to the underlying handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, sanitizeMessage(r.Message), r.PC)

	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(h.sanitizeAttr(a))
		return true
	})

	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are sanitized before being added.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitizedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		sanitizedAttrs[i] = h.sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(sanitizedAttrs)}
}

// WithGroup returns a new handler with the given group name.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

// sanitizeAttr sanitizes a single attribute, recursively handling groups.
func (h *SecureHandler) sanitizeAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		sanitizedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			sanitizedAttrs[i] = h.sanitizeAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitizedAttrs...)}
	}

	keyLower := strings.ToLower(a.Key)
	if sensitiveKeys[keyLower] || containsSensitiveKeyword(keyLower) {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() == slog.KindString {
		value := a.Value.String()
		if isSensitiveValue(value) {
			return slog.String(a.Key, MaskValue)
		}
		if masked, ok := sanitizeURL(value); ok {
			return slog.String(a.Key, masked)
		}
	}

	return a
}

// containsSensitiveKeyword checks if the key contains sensitive keywords.
func containsSensitiveKeyword(key string) bool {
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// isSensitiveValue checks if a value matches sensitive patterns.
func isSensitiveValue(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// sanitizeURL masks the password of an http(s) URL and the values of
// sensitive query parameters, including those of an SPA route after "#".
// ok is false when value is not such a URL or nothing was masked.
func sanitizeURL(value string) (string, bool) {
	if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
		return value, false
	}
	u, err := url.Parse(value)
	if err != nil {
		return value, false
	}

	changed := false
	if _, has := u.User.Password(); has {
		u.User = url.UserPassword(u.User.Username(), MaskValue)
		changed = true
	}
	if q, ok := maskQuery(u.RawQuery); ok {
		u.RawQuery = q
		changed = true
	}
	if route, query, found := strings.Cut(u.Fragment, "?"); found {
		if q, ok := maskQuery(query); ok {
			u.Fragment = route + "?" + q
			u.RawFragment = ""
			changed = true
		}
	}
	if !changed {
		return value, false
	}
	return u.String(), true
}

// maskQuery replaces the values of sensitive parameters in rawQuery and
// keeps the parameter order.
func maskQuery(rawQuery string) (string, bool) {
	if rawQuery == "" {
		return rawQuery, false
	}
	pairs := strings.Split(rawQuery, "&")
	changed := false
	for i, pair := range pairs {
		name, _, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		if slices.Contains(sensitiveParams, strings.ToLower(name)) {
			pairs[i] = name + "=" + MaskValue
			changed = true
		}
	}
	return strings.Join(pairs, "&"), changed
}

// sanitizeMessage masks cookie and header values embedded in msg.
func sanitizeMessage(msg string) string {
	for _, re := range messageSecrets {
		msg = re.ReplaceAllString(msg, "${1}"+MaskValue+`"`)
	}
	return msg
}

// Level returns the minimum level for a run: Debug when verbose,
// otherwise Info so that per-node progress stays visible.
func Level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// NewSecureLogger creates a new slog.Logger with secure handling.
// The logger sanitizes sensitive information in all log output.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Info
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: Level(verbose),
	}
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, opts)))
}

// NewSecureJSONLogger creates a new slog.Logger with secure handling
// that outputs JSON format. Useful for structured log aggregation.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: Level(verbose),
	}
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, opts)))
}

// NewQuietLogger creates a secure text logger that only reports warnings
// and errors. It is used while a progress spinner owns the terminal.
func NewQuietLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, opts)))
}
