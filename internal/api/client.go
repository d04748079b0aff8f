// Package api is the REST client for a capture service account.
package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

const defaultTimeout = 30 * time.Second

// Option configures a Client.
type Option func(*settings)

type settings struct {
	timeout    time.Duration
	proxyURL   string
	noProxy    string
	tlsConfig  *tls.Config
	log        *slog.Logger
	httpClient *http.Client
	userAgent  string
}

// WithTimeout sets the per-request timeout of the underlying HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// WithProxy routes requests through an http, https or socks5 proxy.
// noProxy is a comma-separated list of hosts (or .suffixes) to reach
// directly.
func WithProxy(proxyURL, noProxy string) Option {
	return func(s *settings) {
		s.proxyURL = proxyURL
		s.noProxy = noProxy
	}
}

// WithTLS sets the TLS configuration used for https endpoints.
func WithTLS(cfg *tls.Config) Option {
	return func(s *settings) { s.tlsConfig = cfg }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithHTTPClient replaces the HTTP client entirely. Proxy and TLS options
// are ignored when it is set.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.httpClient = c }
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(s *settings) { s.userAgent = ua }
}

// Client talks to the REST API of one account on a capture service.
type Client struct {
	base       *url.URL
	account    string
	httpClient *http.Client
	log        *slog.Logger
	userAgent  string
	tlsConfig  *tls.Config
}

// New creates a client for account on the service at baseURL.
func New(baseURL, account string, opts ...Option) (*Client, error) {
	if account == "" {
		return nil, fmt.Errorf("account is required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server URL must be http or https, got %q", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("server URL has no host: %q", baseURL)
	}

	s := settings{timeout: defaultTimeout, log: slog.Default()}
	for _, opt := range opts {
		opt(&s)
	}

	hc := s.httpClient
	if hc == nil {
		transport, err := buildTransport(s.proxyURL, s.noProxy, s.tlsConfig)
		if err != nil {
			return nil, fmt.Errorf("configuring transport: %w", err)
		}
		hc = &http.Client{
			Timeout:   s.timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		}
	}

	return &Client{
		base:       u,
		account:    account,
		httpClient: hc,
		log:        s.log,
		userAgent:  s.userAgent,
		tlsConfig:  s.tlsConfig,
	}, nil
}

// HTTPClient returns the underlying client, carrying the proxy and TLS
// settings.
func (c *Client) HTTPClient() *http.Client { return c.httpClient }

// Account returns the account this client is bound to.
func (c *Client) Account() string { return c.account }

// TLSConfig returns the TLS configuration passed with WithTLS, if any.
func (c *Client) TLSConfig() *tls.Config { return c.tlsConfig }

// WebhookURL is the capture endpoint external senders post to.
func (c *Client) WebhookURL() string {
	return c.endpoint("api", "@"+c.account).String()
}

// PushURL is the WebSocket endpoint streaming this account's events.
func (c *Client) PushURL() string {
	u := c.endpoint("ws", "@"+c.account)
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	return u.String()
}

func (c *Client) endpoint(segments ...string) *url.URL {
	u := *c.base
	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, strings.TrimRight(u.EscapedPath(), "/"))
	for _, s := range segments {
		parts = append(parts, url.PathEscape(s))
	}
	u.RawPath = strings.Join(parts, "/")
	u.Path, _ = url.PathUnescape(u.RawPath)
	u.RawQuery = ""
	return &u
}

func (c *Client) newRequest(ctx context.Context, method string, u *url.URL, body []byte) (*http.Request, error) {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	} else {
		req, err = http.NewRequestWithContext(ctx, method, u.String(), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

// buildTransport creates an http.Transport configured with proxy and TLS settings.
func buildTransport(proxyURL, noProxy string, tlsConfig *tls.Config) (http.RoundTripper, error) {
	transport := &http.Transport{
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig:     tlsConfig,
	}
	if proxyURL == "" {
		transport.Proxy = http.ProxyFromEnvironment
		return transport, nil
	}

	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("parsing proxy URL: %w", err)
	}
	bypass := parseNoProxy(noProxy)

	switch parsed.Scheme {
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if parsed.User != nil {
			password, _ := parsed.User.Password()
			auth = &proxy.Auth{User: parsed.User.Username(), Password: password}
		}
		dialer, err := proxy.SOCKS5("tcp", parsed.Host, auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("creating SOCKS5 dialer: %w", err)
		}
		direct := &net.Dialer{Timeout: 30 * time.Second}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, _, _ := net.SplitHostPort(addr)
			if shouldBypassProxy(host, bypass) {
				return direct.DialContext(ctx, network, addr)
			}
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		}
	case "http", "https":
		transport.Proxy = func(r *http.Request) (*url.URL, error) {
			if shouldBypassProxy(r.URL.Hostname(), bypass) {
				return nil, nil
			}
			return parsed, nil
		}
	default:
		return nil, fmt.Errorf("unsupported proxy scheme: %s", parsed.Scheme)
	}
	return transport, nil
}

// parseNoProxy splits a comma-separated no-proxy string into trimmed host entries.
func parseNoProxy(noProxy string) []string {
	parts := strings.Split(noProxy, ",")
	hosts := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			hosts = append(hosts, strings.ToLower(p))
		}
	}
	return hosts
}

// shouldBypassProxy checks whether a host should bypass the proxy.
func shouldBypassProxy(host string, noProxyHosts []string) bool {
	host = strings.ToLower(host)
	for _, h := range noProxyHosts {
		if h == "*" || h == host {
			return true
		}
		// .example.com matches any subdomain
		if strings.HasPrefix(h, ".") && strings.HasSuffix(host, h) {
			return true
		}
	}
	return false
}
