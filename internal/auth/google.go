package auth

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// CalendarOAuthScope grants read and write access to calendars.
const CalendarOAuthScope = "https://www.googleapis.com/auth/calendar"

// OAuth2Refresh mints access tokens from a long-lived refresh token issued to
// an installed OAuth2 client.
type OAuth2Refresh struct {
	ClientID     string
	ClientSecret string
	RefreshToken string

	// TokenURL defaults to Google's token endpoint.
	TokenURL string
	// Scopes defaults to CalendarOAuthScope.
	Scopes []string
}

// TokenSource returns a caching source that refreshes on first use and
// whenever the access token expires. httpClient may be nil.
func (r OAuth2Refresh) TokenSource(ctx context.Context, httpClient *http.Client) oauth2.TokenSource {
	conf := &oauth2.Config{
		ClientID:     r.ClientID,
		ClientSecret: r.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       r.Scopes,
	}
	if r.TokenURL != "" {
		conf.Endpoint.TokenURL = r.TokenURL
	}
	if len(conf.Scopes) == 0 {
		conf.Scopes = []string{CalendarOAuthScope}
	}
	if httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	}

	// An expired token forces a refresh on the first call.
	return conf.TokenSource(ctx, &oauth2.Token{
		TokenType:    "Bearer",
		RefreshToken: r.RefreshToken,
		Expiry:       time.Unix(1, 0),
	})
}
