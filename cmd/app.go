package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/gcalfeed/internal/auth"
	"github.com/teemow/gcalfeed/internal/calendar"
	"github.com/teemow/gcalfeed/internal/config"
	"github.com/teemow/gcalfeed/internal/instrumentation"
	"github.com/teemow/gcalfeed/internal/logging"
	"github.com/teemow/gcalfeed/internal/server"
	"github.com/teemow/gcalfeed/internal/transport"
)

const metricsStartupTimeout = 5 * time.Second

// settings is the loaded configuration plus the logger built from it.
type settings struct {
	cfg    *config.Config
	logger *slog.Logger
}

// loadSettings reads the configuration without requiring credentials.
func loadSettings(opts *rootOptions, logOut io.Writer) (*settings, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if opts.debug {
		level = "debug"
	}
	format := cfg.Log.Format
	if opts.logFormat != "" {
		format = opts.logFormat
	}

	return &settings{
		cfg:    cfg,
		logger: logging.NewLogger(logOut, level, format),
	}, nil
}

func (s *settings) proxy() transport.Proxy {
	return transport.Proxy{
		URL:      s.cfg.Proxy.URL,
		User:     s.cfg.Proxy.User,
		Password: s.cfg.Proxy.Password,
	}
}

// app wires a calendar client for one command invocation.
type app struct {
	*settings

	provider      *instrumentation.Provider
	metricsServer *server.MetricsServer
	transport     *transport.Transport
	client        *calendar.Client
}

func newApp(ctx context.Context, opts *rootOptions, logOut io.Writer) (*app, error) {
	s, err := loadSettings(opts, logOut)
	if err != nil {
		return nil, err
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.Logger = s.logger
	instrConfig.ExportWriter = logOut
	if opts.metricsAddr != "" {
		instrConfig.Enabled = true
		instrConfig.MetricsExporter = instrumentation.ExporterPrometheus
	}
	if err := instrConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid instrumentation config: %w", err)
	}

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}

	a := &app{settings: s, provider: provider}

	if opts.metricsAddr != "" {
		if err := a.startMetricsServer(opts.metricsAddr); err != nil {
			_ = provider.Shutdown(ctx)
			return nil, err
		}
	}

	authorizer, err := newAuthProvider(ctx, s.cfg.Auth, s.proxy(), s.logger, provider.Metrics())
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	a.transport, err = transport.New(authorizer, transport.Config{
		Proxy:     s.proxy(),
		UserAgent: "gcalfeed/" + version,
		Logger:    s.logger,
		Metrics:   provider.Metrics(),
	})
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("failed to create feed transport: %w", err)
	}

	a.client = calendar.NewClient(a.transport, calendar.Config{
		CalendarListURL: s.cfg.Feeds.List,
		Logger:          s.logger,
		Metrics:         provider.Metrics(),
	})
	return a, nil
}

func (a *app) startMetricsServer(addr string) error {
	srv, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: a.provider,
		Logger:                  a.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create metrics server: %w", err)
	}

	ready := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := srv.StartWithReadySignal(ready); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-ready:
		a.metricsServer = srv
		return nil
	case err := <-metricsErr:
		return fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(metricsStartupTimeout):
		return errors.New("metrics server startup timed out")
	}
}

// feed returns arg, or the configured default feed when arg is empty.
func (a *app) feed(arg string) string {
	if arg != "" {
		return arg
	}
	return a.cfg.Feeds.Default
}

// Close stops the metrics server and flushes telemetry.
func (a *app) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), server.DefaultShutdownTimeout)
	defer cancel()

	var errs []error
	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.provider.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// newAuthProvider picks the credential: email and password first, then an
// AuthSub session token, then an OAuth2 refresh token, then a static OAuth2
// access token.
func newAuthProvider(ctx context.Context, cfg config.Auth, proxy transport.Proxy, logger *slog.Logger, metrics *instrumentation.Metrics) (auth.Provider, error) {
	switch {
	case cfg.HasPassword():
		httpClient, err := transport.NewHTTPClient(nil, proxy)
		if err != nil {
			return nil, err
		}
		p := auth.NewPasswordAuth(cfg.Email, cfg.Password)
		p.HTTPClient = httpClient
		p.Logger = logger
		p.Metrics = metrics
		return p, nil
	case cfg.Token != "":
		return auth.TokenAuth{Token: cfg.Token}, nil
	case cfg.RefreshToken != "":
		httpClient, err := transport.NewHTTPClient(nil, proxy)
		if err != nil {
			return nil, err
		}
		refresh := auth.OAuth2Refresh{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RefreshToken: cfg.RefreshToken,
			TokenURL:     cfg.TokenURL,
		}
		return auth.OAuth2Auth{TokenSource: refresh.TokenSource(ctx, httpClient)}, nil
	case cfg.OAuthToken != "":
		return auth.OAuth2Auth{
			TokenSource: oauth2.StaticTokenSource(&oauth2.Token{
				AccessToken: cfg.OAuthToken,
				TokenType:   "Bearer",
			}),
		}, nil
	default:
		return nil, errors.New("no credentials configured: set auth.email and auth.password, auth.token, auth.refreshtoken or auth.oauthtoken")
	}
}
