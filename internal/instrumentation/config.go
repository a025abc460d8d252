package instrumentation

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"time"
)

// Exporter names accepted by Config.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// Label values recorded by Metrics.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	RedirectRebound = "rebound"
	RedirectUnbound = "unbound"

	AuthResultSuccess = "success"
	AuthResultFailure = "failure"
)

// DefaultMetricInterval is the push interval of periodic metric readers.
const DefaultMetricInterval = 10 * time.Second

var (
	metricsExporters = []string{ExporterPrometheus, ExporterOTLP, ExporterStdout}
	tracingExporters = []string{ExporterOTLP, ExporterStdout, ExporterNone}
)

// Config selects exporters and resource attributes.
type Config struct {
	ServiceName       string
	ServiceVersion    string
	ServiceInstanceID string // defaults to the hostname

	// Enabled turns on export. A disabled provider records nothing.
	Enabled bool

	// MetricsExporter is prometheus, otlp or stdout.
	MetricsExporter string

	// TracingExporter is otlp, stdout or none.
	TracingExporter string

	// OTLPEndpoint is a host:port without scheme, e.g. "localhost:4318".
	OTLPEndpoint string
	OTLPInsecure bool

	// TraceSamplingRate is the parent-based ratio in [0, 1].
	TraceSamplingRate float64

	// DetailedLabels adds the feed host to feed request metrics.
	DetailedLabels bool

	// ExportWriter receives stdout exporter output. Defaults to os.Stderr.
	ExportWriter io.Writer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig reads the standard OTEL_* variables plus the GCAL_*
// switches from the environment.
func DefaultConfig() Config {
	env := envReader{lookup: os.LookupEnv}
	return Config{
		ServiceName:       env.str("OTEL_SERVICE_NAME", "gcalfeed"),
		ServiceVersion:    "unknown",
		ServiceInstanceID: env.str("OTEL_SERVICE_INSTANCE_ID", ""),
		Enabled:           env.boolean("GCAL_INSTRUMENTATION_ENABLED", false),
		MetricsExporter:   env.str("GCAL_METRICS_EXPORTER", ExporterPrometheus),
		TracingExporter:   env.str("GCAL_TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint:      env.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:      env.boolean("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate: env.float("OTEL_TRACES_SAMPLER_ARG", 0.1),
		DetailedLabels:    env.boolean("GCAL_METRICS_DETAILED_LABELS", false),
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %g", c.TraceSamplingRate)
	}
	if c.MetricsExporter != "" && !slices.Contains(metricsExporters, c.MetricsExporter) {
		return fmt.Errorf("invalid metrics exporter %q, must be one of %v", c.MetricsExporter, metricsExporters)
	}
	if c.TracingExporter != "" && !slices.Contains(tracingExporters, c.TracingExporter) {
		return fmt.Errorf("invalid tracing exporter %q, must be one of %v", c.TracingExporter, tracingExporters)
	}
	if c.OTLPEndpoint == "" {
		for kind, exporter := range map[string]string{"metrics": c.MetricsExporter, "tracing": c.TracingExporter} {
			if exporter == ExporterOTLP {
				return fmt.Errorf("OTLP endpoint is required when using OTLP %s exporter", kind)
			}
		}
	}
	return nil
}

// envReader falls back to the default when a variable is unset or does
// not parse.
type envReader struct {
	lookup func(string) (string, bool)
}

func (e envReader) str(key, def string) string {
	if v, ok := e.lookup(key); ok && v != "" {
		return v
	}
	return def
}

func (e envReader) boolean(key string, def bool) bool {
	b, err := strconv.ParseBool(e.str(key, strconv.FormatBool(def)))
	if err != nil {
		return def
	}
	return b
}

func (e envReader) float(key string, def float64) float64 {
	f, err := strconv.ParseFloat(e.str(key, ""), 64)
	if err != nil {
		return def
	}
	return f
}
