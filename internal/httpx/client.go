// Package httpx provides the shared JSON HTTP client used for vendor API
// calls: one pooled transport, browser-like headers, a rate limiter, and an
// explicit retry policy.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// ErrStatus wraps non-2xx responses that were not retried away. Callers can
// branch on it with errors.Is.
var ErrStatus = errors.New("unexpected status")

// maxBodyBytes caps response reads; the vendor payloads are well under this.
const maxBodyBytes = 10 << 20

// RetryPolicy controls how GetJSON retries transient failures.
type RetryPolicy struct {
	MaxAttempts     int           // total attempts, including the first
	BackoffBase     time.Duration // doubled after each retryable failure
	RetryableStatus map[int]bool
}

// DefaultRetryPolicy mirrors the vendor-facing session policy: five retries
// on gateway-style errors with exponential backoff from one second, plus 429.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 6,
		BackoffBase: time.Second,
		RetryableStatus: map[int]bool{
			http.StatusTooManyRequests:     true,
			http.StatusInternalServerError: true,
			http.StatusBadGateway:          true,
			http.StatusServiceUnavailable:  true,
			http.StatusGatewayTimeout:      true,
		},
	}
}

var (
	sharedTransport *http.Transport
	transportOnce   sync.Once
)

// transport returns the shared pooled transport so connections are reused
// across calls and across cycles.
func transport() *http.Transport {
	transportOnce.Do(func() {
		sharedTransport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:   true,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     90 * time.Second,
		}
	})
	return sharedTransport
}

// BrowserHeaders returns the header block the vendor endpoints expect;
// naked clients get rejected.
func BrowserHeaders() http.Header {
	h := make(http.Header)
	h.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("Cache-Control", "max-age=0")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	h.Set("Sec-Fetch-User", "?1")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Sec-GPC", "1")
	return h
}

// Client is a retrying JSON GET client.
type Client struct {
	hc      *http.Client
	policy  RetryPolicy
	limiter *rate.Limiter
	headers http.Header
	logger  *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithPolicy overrides the retry policy.
func WithPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.policy = p }
}

// WithLimiter sets the request rate limiter shared by all calls.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithHeaders replaces the default browser header block.
func WithHeaders(h http.Header) Option {
	return func(c *Client) { c.headers = h }
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.hc.Timeout = d }
}

// New builds a Client on the shared transport with a 10 second request
// timeout and the default policy, headers and limiter.
func New(opts ...Option) *Client {
	c := &Client{
		hc: &http.Client{
			Transport: transport(),
			Timeout:   10 * time.Second,
		},
		policy:  DefaultRetryPolicy(),
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		headers: BrowserHeaders(),
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON fetches url and decodes the body into out. Retryable statuses are
// retried per the policy; any other non-2xx status fails immediately with an
// ErrStatus-wrapped error. An unparseable body is an error, not a retry.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	var lastErr error

	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("httpx: rate limiter: %w", err)
			}
		}

		status, body, after, err := c.get(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("httpx: get %s: %w", url, ctx.Err())
			}
			// transport errors are transient by nature
			lastErr = fmt.Errorf("httpx: get %s: %w", url, err)
		} else if status >= 200 && status < 300 {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("httpx: decode %s: %w", url, err)
			}
			return nil
		} else if !c.policy.RetryableStatus[status] {
			return fmt.Errorf("httpx: get %s: %w %d", url, ErrStatus, status)
		} else {
			lastErr = fmt.Errorf("httpx: get %s: %w %d", url, ErrStatus, status)
		}

		if attempt == c.policy.MaxAttempts {
			break
		}

		delay := c.policy.BackoffBase << (attempt - 1)
		// on 429, honor Retry-After when the server supplies one
		if status == http.StatusTooManyRequests && after > 0 {
			delay = after
		}
		c.logger.Warn("retrying request", "url", url, "attempt", attempt, "delay", delay, "err", lastErr)

		select {
		case <-ctx.Done():
			return fmt.Errorf("httpx: get %s: %w", url, ctx.Err())
		case <-time.After(delay):
		}
	}

	return lastErr
}

func (c *Client) get(ctx context.Context, url string) (int, []byte, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, 0, err
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()

	var after time.Duration
	if v := resp.Header.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			after = time.Duration(seconds) * time.Second
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, 0, err
	}
	return resp.StatusCode, body, after, nil
}
