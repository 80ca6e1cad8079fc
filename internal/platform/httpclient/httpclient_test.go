package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"sentinel/internal/platform/errors"
	"sentinel/internal/platform/logx"
	"sentinel/internal/testutil"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Timeout = 2 * time.Second
	cfg.RetryBackoff = time.Millisecond
	cfg.MaxRetryBackoff = 5 * time.Millisecond
	return cfg
}

func newTestClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	c, err := New(cfg, logx.Discard())
	testutil.RequireNoError(t, err, "New")
	return c
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	testutil.AssertEqual(t, cfg.Timeout, 30*time.Second, "timeout")
	testutil.AssertEqual(t, cfg.UserAgent, defaultUserAgent, "user agent")
	testutil.AssertEqual(t, cfg.RateLimitBurst, 1, "burst")
	testutil.AssertTrue(t, cfg.MaxBodyBytes > 0, "body limit")
}

func TestNew_RateLimiter(t *testing.T) {
	cfg := fastConfig()
	testutil.AssertNil(t, newTestClient(t, cfg).limiter, "no limiter by default")

	cfg.RateLimit = 5
	testutil.AssertNotNil(t, newTestClient(t, cfg).limiter, "limiter when configured")
}

func TestNew_InvalidProxy(t *testing.T) {
	cfg := fastConfig()
	cfg.ProxyURL = "::not a url"
	_, err := New(cfg, logx.Discard())
	testutil.AssertTrue(t, errors.Is(err, errors.ErrInvalidInput), "invalid proxy rejected")
}

func TestClient_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		testutil.AssertEqual(t, r.Header.Get("User-Agent"), defaultUserAgent, "user agent header")
		testutil.AssertEqual(t, r.Header.Get("X-Test"), "1", "custom header")
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	resp, err := newTestClient(t, fastConfig()).Get(context.Background(), srv.URL, map[string]string{"X-Test": "1"})
	testutil.RequireNoError(t, err, "Get")
	testutil.AssertEqual(t, resp.StatusCode, http.StatusOK, "status")
	testutil.AssertEqual(t, string(resp.Body), "hello", "body")
}

func TestClient_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	resp, err := newTestClient(t, fastConfig()).Get(context.Background(), srv.URL, nil)
	testutil.RequireNoError(t, err, "Get")
	testutil.AssertEqual(t, resp.StatusCode, http.StatusOK, "status after retries")
	testutil.AssertEqual(t, calls.Load(), int32(3), "attempts")
}

func TestClient_ExhaustedRetriesReturnLastResponse(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cfg := fastConfig()
	cfg.MaxRetries = 1
	resp, err := newTestClient(t, cfg).Get(context.Background(), srv.URL, nil)
	testutil.RequireNoError(t, err, "Get")
	testutil.AssertEqual(t, resp.StatusCode, http.StatusTooManyRequests, "final status")
	testutil.AssertEqual(t, calls.Load(), int32(2), "attempts")
}

func TestClient_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	resp, err := newTestClient(t, fastConfig()).Get(context.Background(), srv.URL, nil)
	testutil.RequireNoError(t, err, "Get")
	testutil.AssertEqual(t, resp.StatusCode, http.StatusNotFound, "status")
	testutil.AssertEqual(t, calls.Load(), int32(1), "single attempt")
}

func TestClient_ConnectionFailure(t *testing.T) {
	hc := &http.Client{Transport: &testutil.StaticTransport{}}
	c := NewWithHTTPClient(hc, fastConfig(), logx.Discard())

	_, err := c.Get(context.Background(), "http://nowhere.invalid/", nil)
	testutil.AssertTrue(t, errors.Is(err, errors.ErrConnectionFailed), "connection failure sentinel")
}

func TestClient_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := newTestClient(t, fastConfig()).Get(ctx, srv.URL, nil)
	testutil.AssertTrue(t, errors.Is(err, context.Canceled), "cancellation propagates")
}

func TestClient_PostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		testutil.AssertEqual(t, r.Method, http.MethodPost, "method")
		testutil.AssertEqual(t, r.Header.Get("Content-Type"), "application/json", "content type")
		testutil.AssertEqual(t, r.Header.Get("Authorization"), "Bearer k", "auth header")
		b, _ := io.ReadAll(r.Body)
		testutil.AssertEqual(t, string(b), `{"n":1}`, "payload")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	resp, err := newTestClient(t, fastConfig()).PostJSON(context.Background(), srv.URL,
		map[string]int{"n": 1}, map[string]string{"Authorization": "Bearer k"})
	testutil.RequireNoError(t, err, "PostJSON")
	testutil.AssertEqual(t, resp.StatusCode, http.StatusNoContent, "status")
}

func TestClient_FetchJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte(`{"name":"x"}`))
		case "/bad":
			w.Write([]byte(`not json`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, fastConfig())
	var out struct{ Name string }

	testutil.AssertNoError(t, c.FetchJSON(context.Background(), srv.URL+"/ok", &out), "ok")
	testutil.AssertEqual(t, out.Name, "x", "decoded")

	err := c.FetchJSON(context.Background(), srv.URL+"/bad", &out)
	testutil.AssertTrue(t, errors.Is(err, errors.ErrInvalidResponse), "bad json")

	err = c.FetchJSON(context.Background(), srv.URL+"/missing", &out)
	testutil.AssertTrue(t, errors.Is(err, errors.ErrNotFound), "404 classified")
}
