package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryOptions configures the Sentry reporter.
type SentryOptions struct {
	DSN              string
	Environment      string
	Release          string
	TracesSampleRate float64
	FlushTimeout     time.Duration
}

// SentryReporter sends spans and errors to Sentry.
type SentryReporter struct {
	flushTimeout time.Duration
}

// NewReporter initializes Sentry. Without a DSN it returns a NopReporter.
func NewReporter(opts SentryOptions) (Reporter, error) {
	if opts.DSN == "" {
		return NopReporter{}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Environment:      opts.Environment,
		Release:          opts.Release,
		EnableTracing:    opts.TracesSampleRate > 0,
		TracesSampleRate: opts.TracesSampleRate,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, fmt.Errorf("init sentry: %w", err)
	}

	timeout := opts.FlushTimeout
	if timeout <= 0 {
		timeout = DefaultFlushTimeout
	}
	return &SentryReporter{flushTimeout: timeout}, nil
}

// Start clones the current hub onto ctx and opens a server transaction.
func (s *SentryReporter) Start(ctx context.Context, name string, req RequestInfo) (context.Context, Span) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
		ctx = sentry.SetHubOnContext(ctx, hub)
	}

	hub.Scope().SetContext("request", sentry.Context{
		"method":  req.Method,
		"url":     req.URL,
		"headers": req.Headers,
	})

	spanOpts := []sentry.SpanOption{
		sentry.WithTransactionName(name),
		sentry.WithTransactionSource(sentry.SourceURL),
	}
	if req.SentryTrace != "" {
		spanOpts = append(spanOpts, sentry.ContinueFromHeaders(req.SentryTrace, req.Baggage))
	}
	span := sentry.StartSpan(ctx, "http.server", spanOpts...)

	return span.Context(), &sentrySpan{hub: hub, span: span}
}

// Flush waits for buffered events to be delivered.
func (s *SentryReporter) Flush() {
	sentry.Flush(s.flushTimeout)
}

type sentrySpan struct {
	hub    *sentry.Hub
	span   *sentry.Span
	failed bool
}

func (s *sentrySpan) SetUser(userID string) {
	s.hub.Scope().SetUser(sentry.User{ID: userID})
	s.span.SetTag("user_id", userID)
}

func (s *sentrySpan) CaptureError(err error) {
	s.failed = true
	s.hub.CaptureException(err)
}

func (s *sentrySpan) CapturePanic(recovered any) {
	s.failed = true
	s.hub.RecoverWithContext(s.span.Context(), recovered)
}

func (s *sentrySpan) Finish() {
	if s.failed {
		s.span.Status = sentry.SpanStatusInternalError
	} else {
		s.span.Status = sentry.SpanStatusOK
	}
	s.span.Finish()
}

var _ Reporter = (*SentryReporter)(nil)
