// internal/adapters/scanner/scanner.go
package scanner

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"sentinel/internal/core/domain"
	"sentinel/internal/platform/errors"
	"sentinel/internal/platform/httpclient"
	"sentinel/internal/platform/logx"
	"sentinel/internal/platform/workerpool"
)

const maxEvidence = 160

// Fetcher is the subset of httpclient.Client the scanner needs.
type Fetcher interface {
	Get(ctx context.Context, rawURL string, headers map[string]string) (*httpclient.Response, error)
}

// Options configures RuleScanner.
type Options struct {
	Client  Fetcher
	Rules   []Rule // nil = DefaultRules()
	Timeout time.Duration
	Pool    *workerpool.Pool
	Logger  logx.Logger
	Now     func() time.Time
}

// RuleScanner sends one probe request per (resource, matching rule) and
// reports a Finding for every match, validated when the response confirms it.
type RuleScanner struct {
	client  Fetcher
	rules   []*compiledRule
	timeout time.Duration
	pool    *workerpool.Pool
	logger  logx.Logger
	now     func() time.Time
}

func New(opts Options) (*RuleScanner, error) {
	if opts.Client == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "scanner: nil client")
	}
	if opts.Rules == nil {
		opts.Rules = DefaultRules()
	}
	rules, err := compileRules(opts.Rules)
	if err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logx.Discard()
	}
	if opts.Pool == nil {
		opts.Pool = workerpool.New(workerpool.Config{Workers: 10, Name: "scan", Logger: opts.Logger})
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &RuleScanner{
		client:  opts.Client,
		rules:   rules,
		timeout: opts.Timeout,
		pool:    opts.Pool,
		logger:  opts.Logger.With("component", "scanner"),
		now:     opts.Now,
	}, nil
}

func (s *RuleScanner) Name() string { return domain.PhaseScan }

// Rules lists the active rule names.
func (s *RuleScanner) Rules() []string {
	out := make([]string, len(s.rules))
	for i, r := range s.rules {
		out[i] = r.Name
	}
	return out
}

// Run scans every resource. A resource whose requests fail contributes no
// findings; the others are unaffected.
func (s *RuleScanner) Run(ctx context.Context, resources []domain.Resource) ([]domain.Finding, error) {
	found := workerpool.NewResults[string, []domain.Finding](len(resources))

	st := workerpool.ForEach(ctx, s.pool, resources, func(ctx context.Context, res domain.Resource) error {
		fs, err := s.scanResource(ctx, res)
		if err != nil {
			s.logger.Debug("resource skipped", "url", res.URL, "error", err.Error())
			return err
		}
		if len(fs) > 0 {
			found.Set(res.URL, fs)
		}
		return nil
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []domain.Finding
	for _, fs := range found.Map() {
		out = append(out, fs...)
	}
	domain.SortFindings(out)
	s.logger.Info("scan finished", "resources", len(resources), "findings", len(out),
		"validated", len(domain.Validated(out)), "skipped", st.Failed+st.Panicked)
	return out, nil
}

func (s *RuleScanner) scanResource(ctx context.Context, res domain.Resource) ([]domain.Finding, error) {
	var out []domain.Finding
	for _, r := range s.rules {
		if !r.applies(res) {
			continue
		}
		f, err := s.check(ctx, r, res)
		if err != nil {
			return nil, errors.Wrapf(err, "rule %s", r.Name)
		}
		if f != nil {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (s *RuleScanner) check(ctx context.Context, r *compiledRule, res domain.Resource) (*domain.Finding, error) {
	target, err := probeURL(res.URL, r.Param, r.Payload)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	resp, err := s.client.Get(ctx, target, nil)
	if err != nil {
		return nil, err
	}

	evidence, ok := confirm(r, resp)
	if !ok && r.ConfirmedOnly {
		return nil, nil
	}
	return &domain.Finding{
		Source:    res.URL,
		Host:      res.Host,
		Category:  r.Category,
		Severity:  r.severity,
		Validated: ok,
		Rule:      r.Name,
		Payload:   r.Payload,
		Evidence:  evidence,
		Timestamp: s.now().UTC(),
	}, nil
}

// confirm checks the three confirming signals in order.
func confirm(r *compiledRule, resp *httpclient.Response) (string, bool) {
	body := string(resp.Body)
	switch {
	case r.Payload != "" && strings.Contains(body, r.Payload):
		return "payload reflected in response body", true
	case resp.StatusCode >= 500:
		return fmt.Sprintf("server error %d on payload", resp.StatusCode), true
	case r.evidence != nil:
		if m := r.evidence.FindString(body); m != "" {
			return "matched: " + truncate(m, maxEvidence), true
		}
	}
	return "", false
}

// probeURL adds param=payload to the query; no payload means a plain GET.
func probeURL(raw, param, payload string) (string, error) {
	if payload == "" {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrap(errors.ErrInvalidInput, err.Error())
	}
	q := u.Query()
	q.Set(param, payload)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// truncate keeps at most n runes of s, so evidence stays valid UTF-8.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
