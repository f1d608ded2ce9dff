// Package observability wraps request handling in tracing spans and error
// capture.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/readmaster/read-master/internal/identity"
)

// Redacted replaces the value of sensitive headers.
const Redacted = "[REDACTED]"

var sensitiveHeaderParts = []string{
	"authorization",
	"cookie",
	"api-key",
	"apikey",
	"token",
	"secret",
}

// RequestInfo is the request context attached to a span.
type RequestInfo struct {
	Method  string
	URL     string
	Headers map[string]string
	// SentryTrace and Baggage continue an upstream trace when present.
	SentryTrace string
	Baggage     string
}

// Span is one traced unit of work.
type Span interface {
	SetUser(userID string)
	CaptureError(err error)
	CapturePanic(recovered any)
	Finish()
}

// Reporter starts spans and delivers captured events.
type Reporter interface {
	Start(ctx context.Context, name string, req RequestInfo) (context.Context, Span)
	Flush()
}

// HandlerFunc is an HTTP handler that reports unexpected failures. It must
// write its own response before returning an error.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// RedactHeaders copies h into a flat map with sensitive values replaced.
func RedactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if isSensitive(name) {
			out[name] = Redacted
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

func isSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, part := range sensitiveHeaderParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

// Run executes fn inside a span named name. Errors returned by fn are
// captured and returned unchanged. A panic is captured and re-raised after
// the span is finished and events are flushed.
func Run(ctx context.Context, reporter Reporter, name string, req RequestInfo, fn func(context.Context) error) (err error) {
	ctx, span := reporter.Start(ctx, name, req)
	if userID := identity.UserIDFromContext(ctx); userID != "" {
		span.SetUser(userID)
	}

	defer func() {
		if rec := recover(); rec != nil {
			span.CapturePanic(rec)
			span.Finish()
			reporter.Flush()
			panic(rec)
		}
		span.Finish()
		reporter.Flush()
	}()

	if err = fn(ctx); err != nil {
		span.CaptureError(err)
	}
	return err
}

// Wrap adapts h into an http.HandlerFunc traced as "{METHOD} {path}".
// Returned errors are logged through onError when it is non-nil.
func Wrap(reporter Reporter, h HandlerFunc, onError func(r *http.Request, err error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := SpanName(r)
		err := Run(r.Context(), reporter, name, requestInfo(r), func(ctx context.Context) error {
			return h(w, r.WithContext(ctx))
		})
		if err != nil && onError != nil {
			onError(r, err)
		}
	}
}

// SpanName is the span name used for r.
func SpanName(r *http.Request) string {
	return fmt.Sprintf("%s %s", r.Method, r.URL.Path)
}

func requestInfo(r *http.Request) RequestInfo {
	return RequestInfo{
		Method:      r.Method,
		URL:         r.URL.String(),
		Headers:     RedactHeaders(r.Header),
		SentryTrace: r.Header.Get("sentry-trace"),
		Baggage:     r.Header.Get("baggage"),
	}
}

// NopReporter discards everything. It is used when no DSN is configured.
type NopReporter struct{}

// Start returns ctx unchanged and a span that does nothing.
func (NopReporter) Start(ctx context.Context, _ string, _ RequestInfo) (context.Context, Span) {
	return ctx, nopSpan{}
}

// Flush does nothing.
func (NopReporter) Flush() {}

type nopSpan struct{}

func (nopSpan) SetUser(string)     {}
func (nopSpan) CaptureError(error) {}
func (nopSpan) CapturePanic(any)   {}
func (nopSpan) Finish()            {}

// DefaultFlushTimeout bounds how long Flush blocks.
const DefaultFlushTimeout = 2 * time.Second

var _ Reporter = NopReporter{}
