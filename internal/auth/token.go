package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

// TokenAuth presents a pre-obtained AuthSub session token. It performs no
// network I/O.
type TokenAuth struct {
	Token string
}

// AuthorizationHeaderValue implements Provider.
func (a TokenAuth) AuthorizationHeaderValue(context.Context) (string, error) {
	if a.Token == "" {
		return "", errors.New("authsub token is empty")
	}
	return Credential{Value: a.Token, Strategy: StrategyToken}.HeaderValue(), nil
}

// OAuth2Auth presents bearer tokens from an oauth2.TokenSource. The source
// handles refresh; wrap it in oauth2.ReuseTokenSource to cache tokens.
type OAuth2Auth struct {
	TokenSource oauth2.TokenSource
}

// Expires reports that access tokens must be fetched per request; the
// token source caches and refreshes them.
func (a OAuth2Auth) Expires() bool {
	return true
}

// AuthorizationHeaderValue implements Provider.
func (a OAuth2Auth) AuthorizationHeaderValue(context.Context) (string, error) {
	if a.TokenSource == nil {
		return "", errors.New("oauth2 token source is nil")
	}
	tok, err := a.TokenSource.Token()
	if err != nil {
		return "", fmt.Errorf("failed to obtain oauth2 token: %w", err)
	}
	if !tok.Valid() {
		return "", fmt.Errorf("%w: oauth2 token is invalid or expired", ErrAuthenticationFailed)
	}
	return Credential{Value: tok.AccessToken, Strategy: StrategyOAuth2}.HeaderValue(), nil
}
