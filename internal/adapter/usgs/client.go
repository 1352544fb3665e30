package usgs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/couchcryptid/quake-feed-service/internal/domain"
)

const userAgent = "quake-feed-service/1.0"

// Client fetches USGS GeoJSON feeds. It implements feed.Fetcher.
type Client struct {
	httpClient     *http.Client
	resolver       *net.Resolver
	connectTimeout time.Duration
	logger         *slog.Logger
}

// NewClient creates a feed client. connectTimeout bounds the dial and TLS
// handshake; readTimeout bounds every socket read, including the wait for
// response headers.
func NewClient(connectTimeout, readTimeout time.Duration, logger *slog.Logger) *Client {
	dialer := &net.Dialer{Timeout: connectTimeout}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &readDeadlineConn{Conn: conn, timeout: readTimeout}, nil
		},
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: readTimeout,
		// One connection per fetch, closed with the response body.
		DisableKeepAlives: true,
	}

	return &Client{
		httpClient:     &http.Client{Transport: transport},
		resolver:       net.DefaultResolver,
		connectTimeout: connectTimeout,
		logger:         logger,
	}
}

// Fetch performs a single GET against rawURL and returns the body of a 200
// response. Every failure maps to an error from the domain taxonomy.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := parseFeedURL(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidURL, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(ctx, "feed request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("feed returned non-200 status", "url", u.Redacted(), "status", resp.StatusCode)
		return nil, &domain.StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(ctx, "read feed body", err)
	}

	c.logger.Debug("feed fetched", "url", u.Redacted(), "bytes", len(body))
	return body, nil
}

// CheckConnectivity resolves the feed host within the connect timeout. Hosts
// call it before starting a fetch to tell "offline" apart from "no results".
func (c *Client) CheckConnectivity(ctx context.Context, rawURL string) error {
	u, err := parseFeedURL(rawURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	if _, err := c.resolver.LookupHost(ctx, u.Hostname()); err != nil {
		return classify(ctx, "resolve feed host", err)
	}
	return nil
}

func parseFeedURL(rawURL string) (*url.URL, error) {
	u, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", domain.ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", domain.ErrInvalidURL)
	}
	return u, nil
}

// classify maps a network error to the domain taxonomy. Cancellation by the
// caller is passed through as context.Canceled.
func classify(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%s: %w", op, context.Canceled)
	}
	if isTimeout(err) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrConnectionFailed, err)
}

// isTimeout walks the whole chain; *url.Error only reports Timeout for its
// direct cause, which hides deadline errors wrapped by the transport.
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		if t, ok := e.(interface{ Timeout() bool }); ok && t.Timeout() {
			return true
		}
	}
	return false
}

// readDeadlineConn refreshes the read deadline before every read, so a stalled
// server trips the read timeout while a slow but steady one does not.
type readDeadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *readDeadlineConn) Read(p []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(p)
}
