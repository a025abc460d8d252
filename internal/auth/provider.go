package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Strategy identifies how a credential was obtained and how it is presented.
type Strategy string

const (
	// StrategyPassword is a ClientLogin token obtained from email and password.
	StrategyPassword Strategy = "password"
	// StrategyToken is a pre-obtained AuthSub session token.
	StrategyToken Strategy = "token"
	// StrategyOAuth2 is an OAuth2 bearer access token.
	StrategyOAuth2 Strategy = "oauth2"
)

// Credential is an opaque token tagged with the strategy that produced it.
// It is immutable once obtained.
type Credential struct {
	Value    string
	Strategy Strategy
}

// HeaderValue renders the credential as an Authorization header value.
func (c Credential) HeaderValue() string {
	switch c.Strategy {
	case StrategyPassword:
		return "GoogleLogin auth=" + c.Value
	case StrategyToken:
		return "AuthSub token=" + c.Value
	case StrategyOAuth2:
		return "Bearer " + c.Value
	default:
		return c.Value
	}
}

// Provider yields the Authorization header value for feed requests.
type Provider interface {
	AuthorizationHeaderValue(ctx context.Context) (string, error)
}

var (
	// ErrAuthenticationFailed is returned when the login endpoint does not
	// hand out a token.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrInsecureEndpoint is returned when credentials would be sent over a
	// non-HTTPS endpoint.
	ErrInsecureEndpoint = errors.New("login endpoint must use https")

	// ErrAuthSubFailed is returned when an AuthSub exchange is rejected.
	ErrAuthSubFailed = errors.New("authsub request failed")
)

// AuthError describes a failed password login.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: status %d", ErrAuthenticationFailed, e.StatusCode)
}

func (e *AuthError) Unwrap() error {
	return ErrAuthenticationFailed
}

// AuthSubError describes a rejected AuthSub exchange. It carries the raw
// response status, header and body.
type AuthSubError struct {
	Op         string
	StatusCode int
	Header     http.Header
	Body       string
	Reason     string
}

func (e *AuthSubError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s: %s (status %d)", ErrAuthSubFailed, e.Op, e.Reason, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s: status %d", ErrAuthSubFailed, e.Op, e.StatusCode)
}

func (e *AuthSubError) Unwrap() error {
	return ErrAuthSubFailed
}
