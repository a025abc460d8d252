package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// Attribute keys shared by the transport, auth and calendar packages.
const (
	KeyOperation  = "operation"
	KeyFeed       = "feed"
	KeyStatusCode = "status_code"
	KeyStrategy   = "strategy"
	KeyUserHash   = "user_hash"
	KeyDuration   = "duration"
	KeyError      = "error"
)

// Operation is the feed operation (query, insert, update, delete).
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Feed logs a feed URL without its query string, which may carry the
// gsessionid.
func Feed(feedURL string) slog.Attr {
	return slog.String(KeyFeed, StripQuery(feedURL))
}

func StatusCode(code int) slog.Attr {
	return slog.Int(KeyStatusCode, code)
}

// Strategy is the credential kind: password, authsub or oauth2.
func Strategy(strategy string) slog.Attr {
	return slog.String(KeyStrategy, strategy)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration(KeyDuration, d)
}

// Err is omitted from output when err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// UserHash identifies an account across log lines without logging the
// address.
func UserHash(email string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeEmail(email))
}

// AnonymizeEmail returns "user:" plus 16 hex chars of the address's
// SHA-256, or "" for an empty address.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(strings.ToLower(email)))
	return "user:" + hex.EncodeToString(sum[:8])
}

// SanitizeToken reports only the length of a credential.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}

// StripQuery drops the query, fragment and userinfo of a URL. Input that
// does not parse is cut at the first '?'.
func StripQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		before, _, _ := strings.Cut(raw, "?")
		return before
	}
	u.RawQuery, u.Fragment, u.User = "", "", nil
	return u.String()
}

// Truncate caps s at n bytes for logging response bodies.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
