package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// DefaultMetricsAddr is used when MetricsServerConfig.Addr is empty.
const DefaultMetricsAddr = ":9090"

// DefaultShutdownTimeout bounds a graceful Shutdown.
const DefaultShutdownTimeout = 5 * time.Second

const (
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
)

// MetricsSource is satisfied by *instrumentation.Provider.
type MetricsSource interface {
	Enabled() bool
	// PrometheusHandler returns nil unless metrics go to prometheus.
	PrometheusHandler() http.Handler
}

// MetricsServerConfig configures a MetricsServer.
type MetricsServerConfig struct {
	Addr                    string
	InstrumentationProvider MetricsSource
	Logger                  *slog.Logger
}

// MetricsServer exposes /metrics and /healthz on a dedicated listener so a
// long running command (events --follow) can be scraped.
type MetricsServer struct {
	addr   string
	mux    *http.ServeMux
	logger *slog.Logger

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
}

// NewMetricsServer returns an unstarted server. The provider must be
// enabled with the prometheus metrics exporter.
func NewMetricsServer(config MetricsServerConfig) (*MetricsServer, error) {
	source := config.InstrumentationProvider
	switch {
	case source == nil:
		return nil, errors.New("instrumentation provider is required for metrics server")
	case !source.Enabled():
		return nil, errors.New("instrumentation provider is not enabled")
	}
	metrics := source.PrometheusHandler()
	if metrics == nil {
		return nil, errors.New("instrumentation provider does not use the prometheus exporter")
	}

	s := &MetricsServer{
		addr:   config.Addr,
		mux:    http.NewServeMux(),
		logger: config.Logger,
	}
	if s.addr == "" {
		s.addr = DefaultMetricsAddr
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.mux.Handle("GET /metrics", metrics)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return s, nil
}

// Handler returns the routes served by the server.
func (s *MetricsServer) Handler() http.Handler {
	return s.mux
}

// Start blocks serving until Shutdown.
func (s *MetricsServer) Start() error {
	return s.StartWithReadySignal(nil)
}

// StartWithReadySignal closes ready once the listener is bound, then
// serves. It returns http.ErrServerClosed after Shutdown.
func (s *MetricsServer) StartWithReadySignal(ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	s.mu.Lock()
	s.srv, s.listener = srv, ln
	s.mu.Unlock()

	s.logger.Info("metrics server listening", slog.String("addr", ln.Addr().String()))
	if ready != nil {
		close(ready)
	}
	return srv.Serve(ln)
}

// Shutdown stops a started server. Before Start it does nothing.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	s.logger.Debug("stopping metrics server")
	return srv.Shutdown(ctx)
}

// Addr is the bound address once listening, else the configured one.
func (s *MetricsServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}
