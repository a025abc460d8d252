package instrumentation

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrOperation  = "operation"
	attrStatusCode = "status_code"
	attrStatus     = "status"
	attrResult     = "result"
	attrStrategy   = "strategy"
	attrFeedHost   = "feed_host"
)

// Metrics records feed client measurements. A nil or zero Metrics records
// nothing, so callers never check whether instrumentation is enabled.
type Metrics struct {
	feedRequests     metric.Int64Counter
	feedDuration     metric.Float64Histogram
	sessionRedirects metric.Int64Counter
	authAttempts     metric.Int64Counter
	eventOperations  metric.Int64Counter

	// detailedLabels adds the feed host to feed request metrics.
	detailedLabels bool
}

// feedDurationBuckets spans a cached GET up to a slow batch of inserts.
var feedDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}

	counters := []struct {
		dst         *metric.Int64Counter
		name        string
		description string
		unit        string
	}{
		{&m.feedRequests, "feed_requests_total", "Feed HTTP exchanges", "{request}"},
		{&m.sessionRedirects, "session_redirects_total", "Session affinity redirects", "{redirect}"},
		{&m.authAttempts, "auth_attempts_total", "Credential acquisitions", "{attempt}"},
		{&m.eventOperations, "event_operations_total", "Event lifecycle operations", "{operation}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.description), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.dst = counter
	}

	var err error
	m.feedDuration, err = meter.Float64Histogram(
		"feed_request_duration_seconds",
		metric.WithDescription("Feed HTTP exchange duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(feedDurationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed_request_duration_seconds histogram: %w", err)
	}
	return m, nil
}

// RecordFeedRequest records one HTTP exchange. statusCode is 0 when no
// response arrived. feedURL only contributes its host, and only with
// detailed labels.
func (m *Metrics) RecordFeedRequest(ctx context.Context, operation, feedURL string, statusCode int, duration time.Duration) {
	if m == nil || m.feedRequests == nil || m.feedDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatusCode, strconv.Itoa(statusCode)),
	}
	if m.detailedLabels {
		if u, err := url.Parse(feedURL); err == nil && u.Host != "" {
			attrs = append(attrs, attribute.String(attrFeedHost, u.Host))
		}
	}

	m.feedRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.feedDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordSessionRedirect takes RedirectRebound or RedirectUnbound.
func (m *Metrics) RecordSessionRedirect(ctx context.Context, result string) {
	if m == nil || m.sessionRedirects == nil {
		return
	}

	m.sessionRedirects.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordAuth records one credential acquisition by strategy.
func (m *Metrics) RecordAuth(ctx context.Context, strategy, result string) {
	if m == nil || m.authAttempts == nil {
		return
	}

	m.authAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrStrategy, strategy),
		attribute.String(attrResult, result),
	))
}

// RecordEventOperation records an event lifecycle operation (query, get, insert,
// update, delete) with its outcome.
func (m *Metrics) RecordEventOperation(ctx context.Context, operation, status string) {
	if m == nil || m.eventOperations == nil {
		return
	}

	m.eventOperations.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	))
}
