// internal/adapters/prober/prober.go
package prober

import (
	"context"
	"io"
	"net/http"
	"time"

	"sentinel/internal/core/domain"
	"sentinel/internal/platform/errors"
	"sentinel/internal/platform/logx"
	"sentinel/internal/platform/workerpool"
)

// Options configures HTTPProber.
type Options struct {
	// Client must not follow redirects endlessly; httpclient.NewStdClient is the usual source.
	Client          *http.Client
	Timeout         time.Duration
	StatusThreshold int
	UserAgent       string
	Pool            *workerpool.Pool
	Logger          logx.Logger
}

// HTTPProber marks a host live when http:// (or, failing that, https://)
// answers within Timeout with a status below StatusThreshold.
type HTTPProber struct {
	client    *http.Client
	timeout   time.Duration
	threshold int
	userAgent string
	pool      *workerpool.Pool
	logger    logx.Logger
}

func New(opts Options) *HTTPProber {
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.StatusThreshold <= 0 {
		opts.StatusThreshold = http.StatusBadRequest
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Sentinel/1.0"
	}
	if opts.Logger == nil {
		opts.Logger = logx.Discard()
	}
	if opts.Pool == nil {
		opts.Pool = workerpool.New(workerpool.Config{Workers: 10, Name: "probe", Logger: opts.Logger})
	}
	return &HTTPProber{
		client:    opts.Client,
		timeout:   opts.Timeout,
		threshold: opts.StatusThreshold,
		userAgent: opts.UserAgent,
		pool:      opts.Pool,
		logger:    opts.Logger.With("component", "prober"),
	}
}

func (p *HTTPProber) Name() string { return domain.PhaseProbe }

// Run returns the live subset of hosts. Host failures only remove that host.
func (p *HTTPProber) Run(ctx context.Context, hosts domain.HostSet) (domain.HostSet, error) {
	live := workerpool.NewResults[domain.Host, struct{}](hosts.Len())

	st := workerpool.ForEach(ctx, p.pool, hosts.Sorted(), func(ctx context.Context, h domain.Host) error {
		ok, err := p.probe(ctx, h)
		if ok {
			live.Set(h, struct{}{})
		}
		return err
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(domain.HostSet, live.Len())
	for h := range live.Map() {
		out.Add(h)
	}
	p.logger.Info("probe finished", "candidates", hosts.Len(), "live", out.Len(),
		"errors", st.Failed, "panics", st.Panicked)
	return out, nil
}

// probe tries http then https. The returned error describes the last
// failure and is only informational.
func (p *HTTPProber) probe(ctx context.Context, h domain.Host) (bool, error) {
	var lastErr error
	for _, scheme := range []string{"http", "https"} {
		status, err := p.fetchStatus(ctx, scheme+"://"+string(h)+"/")
		if err != nil {
			lastErr = err
			continue
		}
		if status < p.threshold {
			p.logger.Debug("host live", "host", h, "scheme", scheme, "status", status)
			return true, nil
		}
		lastErr = errors.FromStatus(status, scheme+"://"+string(h)+"/")
	}
	return false, lastErr
}

func (p *HTTPProber) fetchStatus(ctx context.Context, url string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
	return resp.StatusCode, nil
}
