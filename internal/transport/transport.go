package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teemow/gcalfeed/internal/instrumentation"
	"github.com/teemow/gcalfeed/internal/logging"
)

const sessionParam = "gsessionid"

// Authorizer yields the Authorization header value. auth.Provider satisfies it.
// The value is requested once and reused for the Transport's lifetime.
type Authorizer interface {
	AuthorizationHeaderValue(ctx context.Context) (string, error)
}

// Expiring is implemented by authorizers whose credential expires and
// renews itself, such as auth.OAuth2Auth. Their header value is requested
// for every Execute instead of cached.
type Expiring interface {
	Expires() bool
}

// Config holds optional Transport settings.
type Config struct {
	// HTTPClient is copied; its redirect policy is replaced.
	HTTPClient *http.Client
	Proxy      Proxy
	UserAgent  string
	Logger     *slog.Logger
	Metrics    *instrumentation.Metrics
}

// Result is a raw feed response.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport executes feed requests. It is not safe for concurrent use.
type Transport struct {
	authorizer Authorizer
	client     *http.Client
	userAgent  string
	logger     *slog.Logger
	metrics    *instrumentation.Metrics

	// Session state; cleared only by constructing a new Transport.
	authHeader string
	cookie     string
	sessionID  string
}

// New creates a Transport that authenticates with authorizer.
func New(authorizer Authorizer, cfg Config) (*Transport, error) {
	if authorizer == nil {
		return nil, fmt.Errorf("authorizer is required")
	}

	client, err := NewHTTPClient(cfg.HTTPClient, cfg.Proxy)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Transport{
		authorizer: authorizer,
		client:     client,
		userAgent:  cfg.UserAgent,
		logger:     logger,
		metrics:    cfg.Metrics,
	}, nil
}

// SessionID returns the session id learned from a redirect, if any.
func (t *Transport) SessionID() string {
	return t.sessionID
}

// Cookie returns the sticky cookie learned from a redirect, if any.
func (t *Transport) Cookie() string {
	return t.cookie
}

// Execute performs op against rawURL. params are merged into the URL query.
// body is sent for insert, update and delete. Any status code, including 401
// and an unresolved 302, is returned in the Result without interpretation.
func (t *Transport) Execute(ctx context.Context, op Operation, rawURL string, params url.Values, body []byte) (*Result, error) {
	feed := logging.StripQuery(rawURL)
	ctx, span := instrumentation.StartFeedSpan(ctx, op.String(), feed)
	defer span.End()

	authHeader, err := t.authorization(ctx)
	if err != nil {
		span.Fail(err)
		return nil, err
	}

	res, err := t.exchange(ctx, op, rawURL, params, body, authHeader)
	if err != nil {
		span.Fail(err)
		return nil, err
	}

	if res.StatusCode == http.StatusFound {
		cookie, sessionID := sessionFromRedirect(res)
		if cookie == "" || sessionID == "" {
			t.metrics.RecordSessionRedirect(ctx, instrumentation.RedirectUnbound)
			t.logger.Error("redirect without session affinity",
				logging.Operation(op.String()),
				logging.Feed(rawURL),
				slog.Bool("has_cookie", cookie != ""),
				slog.Bool("has_session_id", sessionID != ""),
				slog.String("body", logging.Truncate(strings.ReplaceAll(string(res.Body), "\n", " "), 512)))
		} else {
			t.metrics.RecordSessionRedirect(ctx, instrumentation.RedirectRebound)
			span.Rebound()
			t.logger.Debug("session redirect",
				logging.Operation(op.String()),
				logging.Feed(rawURL))

			t.cookie = cookie
			t.sessionID = sessionID

			res, err = t.exchange(ctx, op, rawURL, params, body, authHeader)
			if err != nil {
				span.Fail(err)
				return nil, err
			}
		}
	}

	span.Finish(res.StatusCode)
	return res, nil
}

func (t *Transport) authorization(ctx context.Context) (string, error) {
	if t.authHeader != "" {
		return t.authHeader, nil
	}
	v, err := t.authorizer.AuthorizationHeaderValue(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to authorize: %w", err)
	}
	if e, ok := t.authorizer.(Expiring); !ok || !e.Expires() {
		t.authHeader = v
	}
	return v, nil
}

// exchange performs a single HTTP round trip with the current session state.
func (t *Transport) exchange(ctx context.Context, op Operation, rawURL string, params url.Values, body []byte, authHeader string) (*Result, error) {
	start := time.Now()

	target, err := t.requestURL(rawURL, params)
	if err != nil {
		return nil, err
	}

	method, override := op.method()
	var reader io.Reader
	if op.hasBody() {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", authHeader)
	if t.cookie != "" {
		req.Header.Set("Cookie", t.cookie)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if op.hasBody() {
		req.Header.Set("Content-Type", AtomContentType)
	}
	if override != "" {
		req.Header.Set(methodOverrideHeader, override)
	}

	t.logger.Debug("feed request",
		logging.Operation(op.String()),
		slog.String("method", method),
		logging.Feed(target))

	resp, err := t.client.Do(req)
	if err != nil {
		t.metrics.RecordFeedRequest(ctx, op.String(), rawURL, 0, time.Since(start))
		return nil, fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.metrics.RecordFeedRequest(ctx, op.String(), rawURL, resp.StatusCode, time.Since(start))
		return nil, fmt.Errorf("failed to read %s response: %w", op, err)
	}

	duration := time.Since(start)
	t.metrics.RecordFeedRequest(ctx, op.String(), rawURL, resp.StatusCode, duration)
	t.logger.Debug("feed response",
		logging.Operation(op.String()),
		logging.Feed(target),
		logging.StatusCode(resp.StatusCode),
		logging.Duration(duration))

	return &Result{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func (t *Transport) requestURL(rawURL string, params url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid feed url: %w", err)
	}

	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if t.sessionID != "" {
		q.Set(sessionParam, t.sessionID)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// sessionFromRedirect extracts the cookie header value and gsessionid from a
// 302 response. Either may be empty.
func sessionFromRedirect(res *Result) (cookie, sessionID string) {
	cookies := (&http.Response{Header: res.Header}).Cookies()
	if len(cookies) > 0 {
		pairs := make([]string, 0, len(cookies))
		for _, c := range cookies {
			pairs = append(pairs, c.Name+"="+c.Value)
		}
		cookie = strings.Join(pairs, "; ")
	}

	if loc := res.Header.Get("Location"); loc != "" {
		if u, err := url.Parse(loc); err == nil {
			sessionID = u.Query().Get(sessionParam)
		}
	}
	return cookie, sessionID
}
