// Package httpclient wraps net/http with retries, rate limiting and the
// transport options (proxy, TLS verification) every adapter shares.
package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"sentinel/internal/platform/errors"
	"sentinel/internal/platform/logx"
)

const defaultUserAgent = "Sentinel/1.0"

// Config holds transport and retry settings.
type Config struct {
	Timeout         time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
	UserAgent       string

	// RateLimit is requests per second; 0 disables limiting.
	RateLimit      float64
	RateLimitBurst int

	// MaxBodyBytes bounds how much of a response body is buffered.
	MaxBodyBytes int64

	InsecureSkipVerify bool
	ProxyURL           string
}

func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Second,
		MaxRetries:      2,
		RetryBackoff:    500 * time.Millisecond,
		MaxRetryBackoff: 10 * time.Second,
		UserAgent:       defaultUserAgent,
		RateLimitBurst:  1,
		MaxBodyBytes:    5 << 20,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = d.RetryBackoff
	}
	if c.MaxRetryBackoff <= 0 {
		c.MaxRetryBackoff = d.MaxRetryBackoff
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 1
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = d.MaxBodyBytes
	}
	return c
}

// NewStdClient builds a plain *http.Client honouring Timeout, ProxyURL and
// InsecureSkipVerify. Probing adapters use it directly since they must not retry.
func NewStdClient(cfg Config) (*http.Client, error) {
	cfg = cfg.withDefaults()

	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: cfg.Timeout, KeepAlive: 30 * time.Second}).DialContext,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}, //nolint:gosec // opt-in via config
		TLSHandshakeTimeout:   cfg.Timeout,
		ResponseHeaderTimeout: cfg.Timeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       60 * time.Second,
	}
	if cfg.ProxyURL != "" {
		u, err := url.Parse(cfg.ProxyURL)
		if err != nil || u.Host == "" {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "proxy url %q", cfg.ProxyURL)
		}
		tr.Proxy = http.ProxyURL(u)
	}

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: tr,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// Response is a fully buffered HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client retries 429/502/503/504 and transport errors with exponential backoff.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	logger  logx.Logger
	cfg     Config
}

// New builds a Client with its own transport.
func New(cfg Config, logger logx.Logger) (*Client, error) {
	hc, err := NewStdClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithHTTPClient(hc, cfg, logger), nil
}

// NewWithHTTPClient reuses hc; tests pass one backed by a fake transport.
func NewWithHTTPClient(hc *http.Client, cfg Config, logger logx.Logger) *Client {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = logx.Discard()
	}
	var lim *rate.Limiter
	if cfg.RateLimit > 0 {
		lim = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)
	}
	return &Client{
		http:    hc,
		limiter: lim,
		logger:  logger.With("component", "httpclient"),
		cfg:     cfg,
	}
}

// Do sends the request, retrying transient failures. A non-2xx final status
// is not an error; callers classify it with errors.FromStatus.
func (c *Client) Do(ctx context.Context, method, rawURL string, body []byte, headers map[string]string) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt-1); err != nil {
				return nil, errors.Wrap(err, "backoff interrupted")
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, errors.Wrap(err, "rate limit wait")
			}
		}

		resp, err := c.once(ctx, method, rawURL, body, headers)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Wrap(ctx.Err(), method+" "+rawURL)
			}
			if errors.Is(err, errors.ErrInvalidInput) {
				return nil, err
			}
			lastErr = errors.Wrapf(errors.ErrConnectionFailed, "%s %s: %v", method, rawURL, err)
			c.logger.Debug("request failed", "url", rawURL, "attempt", attempt+1, "error", err.Error())
			continue
		}

		if !retryableStatus(resp.StatusCode) || attempt == c.cfg.MaxRetries {
			return resp, nil
		}
		lastErr = errors.FromStatus(resp.StatusCode, rawURL)
		c.logger.Debug("retryable status", "url", rawURL, "status", resp.StatusCode, "attempt", attempt+1)
	}

	return nil, errors.Wrapf(lastErr, "giving up after %d attempts", c.cfg.MaxRetries+1)
}

func (c *Client) once(ctx context.Context, method, rawURL string, body []byte, headers map[string]string) (*Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, err.Error())
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	c.logger.Debug("response", "method", method, "url", rawURL, "status", resp.StatusCode,
		"bytes", len(data), "duration_ms", time.Since(start).Milliseconds())

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, rawURL, nil, headers)
}

// PostJSON marshals payload and posts it. Extra headers override the defaults.
func (c *Client) PostJSON(ctx context.Context, rawURL string, payload any, headers map[string]string) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encode payload")
	}
	h := map[string]string{"Content-Type": "application/json", "Accept": "application/json"}
	for k, v := range headers {
		h[k] = v
	}
	return c.Do(ctx, http.MethodPost, rawURL, body, h)
}

// FetchJSON GETs rawURL, requires a 2xx status and decodes the body into out.
func (c *Client) FetchJSON(ctx context.Context, rawURL string, out any) error {
	resp, err := c.Get(ctx, rawURL, map[string]string{"Accept": "application/json"})
	if err != nil {
		return err
	}
	if err := errors.FromStatus(resp.StatusCode, rawURL); err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return errors.Wrapf(errors.ErrInvalidResponse, "decode %s: %v", rawURL, err)
	}
	return nil
}

func (c *Client) backoff(ctx context.Context, attempt int) error {
	d := c.cfg.RetryBackoff << attempt
	if d <= 0 || d > c.cfg.MaxRetryBackoff {
		d = c.cfg.MaxRetryBackoff
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func (c *Client) String() string {
	return fmt.Sprintf("httpclient{timeout=%s retries=%d rate=%.1f/s}", c.cfg.Timeout, c.cfg.MaxRetries, c.cfg.RateLimit)
}
