package instrumentation

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer feed spans are created with.
const TracerName = "github.com/teemow/gcalfeed"

// Span attribute keys.
const (
	SpanAttrOperation  = "gcal.operation"
	SpanAttrFeed       = "gcal.feed" // without query string
	SpanAttrStatusCode = "http.response.status_code"
	SpanAttrRetried    = "gcal.retried"
)

// EventSessionRedirect marks the point where a 302 rebound the session.
const EventSessionRedirect = "session.redirect"

// FeedSpan is the client span of one feed exchange, including its
// session redirect retry.
type FeedSpan struct {
	span trace.Span
}

// StartFeedSpan starts a "feed.<operation>" client span from the global
// tracer provider. End must be called.
func StartFeedSpan(ctx context.Context, operation, feed string) (context.Context, *FeedSpan) {
	ctx, span := otel.GetTracerProvider().Tracer(TracerName).Start(ctx, "feed."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(SpanAttrOperation, operation),
			attribute.String(SpanAttrFeed, feed),
		),
	)
	return ctx, &FeedSpan{span: span}
}

// Rebound records that the exchange is being retried on a new session.
func (s *FeedSpan) Rebound() {
	s.span.AddEvent(EventSessionRedirect)
	s.span.SetAttributes(attribute.Bool(SpanAttrRetried, true))
}

// Fail marks the exchange as failed before a response was obtained.
func (s *FeedSpan) Fail(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// Finish records the final status code. 5xx responses mark the span as an
// error; client errors are left to the caller to interpret.
func (s *FeedSpan) Finish(statusCode int) {
	s.span.SetAttributes(attribute.Int(SpanAttrStatusCode, statusCode))
	if statusCode >= http.StatusInternalServerError {
		s.span.SetStatus(codes.Error, http.StatusText(statusCode))
		return
	}
	s.span.SetStatus(codes.Ok, "")
}

// End ends the span.
func (s *FeedSpan) End() {
	s.span.End()
}
