package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/teemow/gcalfeed/internal/instrumentation"
	"github.com/teemow/gcalfeed/internal/logging"
)

const (
	// DefaultLoginEndpoint is the ClientLogin URL.
	DefaultLoginEndpoint = "https://www.google.com/accounts/ClientLogin"
	// DefaultService is the service name of the calendar feeds.
	DefaultService = "cl"
	// DefaultSource identifies this client to the login endpoint.
	DefaultSource = "gcalfeed-1"
)

var authTokenPattern = regexp.MustCompile(`Auth=(.+)`)

// PasswordAuth obtains a ClientLogin token with one POST per call.
// Callers that need the token more than once should cache the header value;
// the feed transport does this for its lifetime.
type PasswordAuth struct {
	Email    string
	Password string

	// Source defaults to DefaultSource.
	Source string
	// Service defaults to DefaultService.
	Service string
	// Endpoint defaults to DefaultLoginEndpoint and must be https.
	Endpoint string

	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    *instrumentation.Metrics
}

// NewPasswordAuth returns a PasswordAuth with default endpoint, source and service.
func NewPasswordAuth(email, password string) *PasswordAuth {
	return &PasswordAuth{
		Email:    email,
		Password: password,
	}
}

// AuthorizationHeaderValue implements Provider.
func (a *PasswordAuth) AuthorizationHeaderValue(ctx context.Context) (string, error) {
	cred, err := a.Credential(ctx)
	if err != nil {
		return "", err
	}
	return cred.HeaderValue(), nil
}

// Credential performs the login exchange. It is never retried.
func (a *PasswordAuth) Credential(ctx context.Context) (Credential, error) {
	logger := a.logger()

	endpoint := a.Endpoint
	if endpoint == "" {
		endpoint = DefaultLoginEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return Credential{}, fmt.Errorf("invalid login endpoint: %w", err)
	}
	if u.Scheme != "https" {
		return Credential{}, fmt.Errorf("%w: %s", ErrInsecureEndpoint, logging.StripQuery(endpoint))
	}

	form := url.Values{
		"Email":   {a.Email},
		"Passwd":  {a.Password},
		"source":  {valueOr(a.Source, DefaultSource)},
		"service": {valueOr(a.Service, DefaultService)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Credential{}, fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	logger.Debug("requesting login token",
		logging.Strategy(string(StrategyPassword)),
		logging.UserHash(a.Email))

	resp, err := a.client().Do(req)
	if err != nil {
		a.Metrics.RecordAuth(ctx, string(StrategyPassword), instrumentation.AuthResultFailure)
		return Credential{}, fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		a.Metrics.RecordAuth(ctx, string(StrategyPassword), instrumentation.AuthResultFailure)
		return Credential{}, fmt.Errorf("failed to read login response: %w", err)
	}

	m := authTokenPattern.FindSubmatch(body)
	if m == nil {
		a.Metrics.RecordAuth(ctx, string(StrategyPassword), instrumentation.AuthResultFailure)
		logger.Warn("login rejected",
			logging.Strategy(string(StrategyPassword)),
			logging.UserHash(a.Email),
			logging.StatusCode(resp.StatusCode))
		return Credential{}, &AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	a.Metrics.RecordAuth(ctx, string(StrategyPassword), instrumentation.AuthResultSuccess)
	logger.Info("login succeeded",
		logging.Strategy(string(StrategyPassword)),
		logging.UserHash(a.Email))

	return Credential{
		Value:    strings.TrimRight(string(m[1]), "\r"),
		Strategy: StrategyPassword,
	}, nil
}

func (a *PasswordAuth) client() *http.Client {
	if a.HTTPClient != nil {
		return a.HTTPClient
	}
	return http.DefaultClient
}

func (a *PasswordAuth) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
