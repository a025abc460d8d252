package auth

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/teemow/gcalfeed/internal/logging"
)

const (
	// DefaultAuthSubBaseURL is the accounts endpoint hosting the AuthSub handlers.
	DefaultAuthSubBaseURL = "https://www.google.com/accounts"

	// CalendarScope is the AuthSub scope granting access to calendar feeds.
	CalendarScope = "http://www.google.com/calendar/feeds/"
)

const (
	authSubRequestPath = "/AuthSubRequest"
	authSubSessionPath = "/AuthSubSessionToken"
	authSubRevokePath  = "/AuthSubRevokeToken"
	authSubInfoPath    = "/AuthSubTokenInfo"
)

var (
	sessionTokenPattern = regexp.MustCompile(`(?m)Token=([^\r\n]+)`)
	tokenInfoLine       = regexp.MustCompile(`^([^=]+)=(.+)$`)
)

// AuthSub drives the AuthSub token lifecycle for unregistered web applications.
type AuthSub struct {
	// BaseURL defaults to DefaultAuthSubBaseURL.
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewAuthSub returns an AuthSub bound to the default accounts endpoint.
func NewAuthSub() *AuthSub {
	return &AuthSub{BaseURL: DefaultAuthSubBaseURL}
}

// RequestURL builds the consent URL the user visits to grant access. An empty
// scope selects CalendarScope.
func (s *AuthSub) RequestURL(next, scope string, secure, session bool) string {
	if scope == "" {
		scope = CalendarScope
	}
	q := url.Values{
		"next":    {next},
		"scope":   {scope},
		"secure":  {boolFlag(secure)},
		"session": {boolFlag(session)},
	}
	return s.baseURL() + authSubRequestPath + "?" + q.Encode()
}

// OneTimeToken extracts the single-use token from the URL the user was
// redirected to after granting access.
func OneTimeToken(redirectURL string) (string, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return "", fmt.Errorf("invalid redirect url: %w", err)
	}
	values := u.Query()
	if !values.Has("token") {
		return "", &AuthSubError{Op: "one-time token", Reason: "token not found"}
	}
	return values.Get("token"), nil
}

// ExchangeSessionToken trades a one-time token for a long-lived session token.
func (s *AuthSub) ExchangeSessionToken(ctx context.Context, oneTimeToken string) (string, error) {
	const op = "exchange session token"

	resp, body, err := s.get(ctx, authSubSessionPath, oneTimeToken)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", newAuthSubError(op, resp, body, "")
	}

	m := sessionTokenPattern.FindSubmatch(body)
	if m == nil {
		return "", newAuthSubError(op, resp, body, "token not found")
	}

	s.logger().Info("session token obtained", logging.Strategy(string(StrategyToken)))
	return string(m[1]), nil
}

// RevokeSessionToken invalidates a session token.
func (s *AuthSub) RevokeSessionToken(ctx context.Context, sessionToken string) error {
	const op = "revoke session token"

	resp, body, err := s.get(ctx, authSubRevokePath, sessionToken)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return newAuthSubError(op, resp, body, "")
	}

	s.logger().Info("session token revoked", logging.Strategy(string(StrategyToken)))
	return nil
}

// TokenInfo returns the key=value pairs describing a session token
// (Target, Scope, Secure).
func (s *AuthSub) TokenInfo(ctx context.Context, sessionToken string) (map[string]string, error) {
	const op = "token info"

	resp, body, err := s.get(ctx, authSubInfoPath, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newAuthSubError(op, resp, body, "")
	}

	info := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if m := tokenInfoLine.FindStringSubmatch(line); m != nil {
			info[m[1]] = m[2]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", op, err)
	}
	return info, nil
}

func (s *AuthSub) get(ctx context.Context, path, token string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL()+path, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("AuthSub token=%q", token))

	s.logger().Debug("authsub request",
		logging.Operation(path),
		slog.String("token", logging.SanitizeToken(token)))

	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp, body, nil
}

func (s *AuthSub) baseURL() string {
	if s.BaseURL == "" {
		return DefaultAuthSubBaseURL
	}
	return strings.TrimRight(s.BaseURL, "/")
}

func (s *AuthSub) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func newAuthSubError(op string, resp *http.Response, body []byte, reason string) *AuthSubError {
	return &AuthSubError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       string(body),
		Reason:     reason,
	}
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
