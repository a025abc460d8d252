// Package instrumentation provides OpenTelemetry instrumentation for the
// calendar feed client.
//
// # Metrics
//
// Feed transport metrics:
//   - feed_requests_total: Counter of feed HTTP exchanges by operation and status code
//   - feed_request_duration_seconds: Histogram of feed HTTP exchange durations
//   - session_redirects_total: Counter of session-affinity redirects by result
//     ("rebound" when cookie and session id were both present, "unbound" otherwise)
//
// Authentication metrics:
//   - auth_attempts_total: Counter of credential acquisitions by strategy and result
//
// Calendar metrics:
//   - event_operations_total: Counter of event lifecycle operations by operation and status
//
// # Tracing
//
// Client spans are created for every feed exchange (feed.<operation>).
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - GCAL_INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: false)
//   - GCAL_METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - GCAL_TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - GCAL_METRICS_DETAILED_LABELS: Add the feed host label (default: false)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: gcalfeed)
//
// # Example Usage
//
//	cfg := instrumentation.DefaultConfig()
//	cfg.ExportWriter = os.Stderr // stdout exporters stay off command output
//	provider, err := instrumentation.NewProvider(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	tr := transport.New(authorizer, transport.Config{Metrics: provider.Metrics()})
package instrumentation
