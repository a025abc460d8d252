// Package auth produces Authorization header values for the calendar feed
// protocol.
//
// Three strategies share the Provider interface:
//
//   - PasswordAuth exchanges an account email and password for a ClientLogin
//     token with a single HTTPS POST ("GoogleLogin auth=<token>").
//   - TokenAuth wraps a pre-obtained AuthSub session token ("AuthSub token=<token>").
//   - OAuth2Auth reads access tokens from an oauth2.TokenSource ("Bearer <token>").
//     OAuth2Refresh builds such a source from an installed client's refresh token.
//
// The AuthSub type implements the web-application token lifecycle: building
// the consent URL, extracting the one-time token from the redirect, exchanging
// it for a session token, inspecting and revoking session tokens.
//
// Credentials are never logged. Emails appear in logs only as hashes.
package auth
