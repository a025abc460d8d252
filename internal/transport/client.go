package transport

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// Proxy configures the forward proxy used for every exchange.
type Proxy struct {
	// URL of the proxy, e.g. "http://proxy.example.com:3128". Empty disables the proxy.
	URL      string
	User     string
	Password string
}

// NewHTTPClient returns a copy of base (or a fresh client) that routes through
// the proxy, if any, and never follows redirects.
func NewHTTPClient(base *http.Client, proxy Proxy) (*http.Client, error) {
	client := &http.Client{}
	if base != nil {
		*client = *base
	}

	if proxy.URL != "" {
		proxyURL, err := url.Parse(proxy.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		if proxyURL.Scheme == "" || proxyURL.Host == "" {
			return nil, fmt.Errorf("invalid proxy url %q: scheme and host are required", proxy.URL)
		}
		if proxy.User != "" {
			proxyURL.User = url.UserPassword(proxy.User, proxy.Password)
		}

		rt := client.Transport
		if rt == nil {
			rt = http.DefaultTransport
		}
		httpTransport, ok := rt.(*http.Transport)
		if !ok {
			return nil, errors.New("proxy configuration requires an *http.Transport")
		}
		httpTransport = httpTransport.Clone()
		httpTransport.Proxy = http.ProxyURL(proxyURL)
		client.Transport = httpTransport
	}

	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return client, nil
}
