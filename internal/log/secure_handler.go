package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// MaskValue replaces every masked value. model.Credential renders the same string.
const MaskValue = "***REDACTED***"

// sensitiveKeywords mark an attribute key as carrying a portal login, a session
// cookie or patient identity when the lowercased key contains one of them.
var sensitiveKeywords = []string{
	// portal login
	"email", "password", "secret", "credential", "authorization",
	// session
	"cookie", "token", "session",
	// patient identity, as printed on lab reports
	"patient", "dob", "birth", "mrn",
}

// emailPattern finds account e-mails, which portals also echo in error messages
// and login URLs.
var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

// secretValues match whole values that are session material whatever their key.
var secretValues = []*regexp.Regexp{
	// Authorization header sent to the portal API
	regexp.MustCompile(`(?i)^bearer\s+\S+`),
	// JWT access tokens
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	// Cookie header with several pairs, as copied from the browser
	regexp.MustCompile(`^[^=;\s]+=[^;]*(;\s*[^=;\s]+=[^;]*)+$`),
}

// SecureHandler wraps an slog.Handler and masks portal credentials, session
// cookies and patient identity before a record reaches the wrapped handler.
//
// Values are resolved first, so a model.Credential or model.SessionToken is
// rendered by its own LogValue. Under a sensitive key, strings and other
// opaque values are masked while counts and durations are kept, so
// "cookies=3" survives and "cookie=sid=..." does not. E-mail addresses are
// cut out of any string or error, wherever they appear.
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler wraps handler. A nil handler wraps slog.Default().Handler().
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled delegates to the wrapped handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks the record's attributes and its message.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, scrubEmails(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs masks attrs before handing them to the wrapped handler.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitized := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		sanitized[i] = sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(sanitized)}
}

// WithGroup delegates to the wrapped handler.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

func sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		sanitized := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			sanitized[i] = sanitizeAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitized...)}
	}

	if isSensitiveKey(a.Key) && !isMeasure(a.Value.Kind()) {
		return slog.String(a.Key, MaskValue)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		s := a.Value.String()
		if isSecretValue(s) {
			return slog.String(a.Key, MaskValue)
		}
		if scrubbed := scrubEmails(s); scrubbed != s {
			return slog.String(a.Key, scrubbed)
		}
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			msg := err.Error()
			if scrubbed := scrubEmails(msg); scrubbed != msg {
				return slog.String(a.Key, scrubbed)
			}
		}
	}
	return a
}

// isMeasure reports whether values of kind k are numbers or times, which carry
// no login or identity even under a sensitive key.
func isMeasure(k slog.Kind) bool {
	switch k {
	case slog.KindInt64, slog.KindUint64, slog.KindFloat64, slog.KindBool,
		slog.KindDuration, slog.KindTime:
		return true
	}
	return false
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

func isSecretValue(value string) bool {
	for _, p := range secretValues {
		if p.MatchString(value) {
			return true
		}
	}
	return false
}

func scrubEmails(s string) string {
	if !strings.Contains(s, "@") {
		return s
	}
	return emailPattern.ReplaceAllString(s, MaskValue)
}

// NewSecureLogger returns a text logger on w that masks sensitive values.
// verbose lowers the level from Warn to Debug.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, handlerOptions(verbose))))
}

// NewSecureJSONLogger is NewSecureLogger with JSON output.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, handlerOptions(verbose))))
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
