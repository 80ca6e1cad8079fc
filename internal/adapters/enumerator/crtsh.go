// internal/adapters/enumerator/crtsh.go
package enumerator

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"sentinel/internal/core/domain"
	"sentinel/internal/platform/errors"
	"sentinel/internal/platform/logx"
	"sentinel/internal/platform/validator"
)

// certRecord is the subset of crt.sh JSON output we read.
type certRecord struct {
	CommonName string `json:"common_name"`
	NameValue  string `json:"name_value"`
}

type crtshPolicy struct {
	base   string
	deps   Deps
	logger logx.Logger
}

func newCrtshPolicy(d Deps) (Policy, error) {
	if d.HTTP == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "crtsh policy needs an http client")
	}
	base := d.CrtshURL
	if base == "" {
		base = "https://crt.sh/"
	}
	if _, err := url.Parse(base); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "crtsh url %q", base)
	}
	lg := d.Logger
	if lg == nil {
		lg = logx.Discard()
	}
	return &crtshPolicy{base: base, deps: d, logger: lg.With("policy", "crtsh")}, nil
}

func (p *crtshPolicy) Name() string { return "crtsh" }

func (p *crtshPolicy) Candidates(ctx context.Context, t domain.Target) ([]domain.Host, error) {
	load := func() ([]domain.Host, error) { return p.fetch(ctx, t) }
	if p.deps.Cache == nil {
		return load()
	}
	return p.deps.Cache.GetOrLoad("crtsh:"+string(t), load)
}

func (p *crtshPolicy) fetch(ctx context.Context, t domain.Target) ([]domain.Host, error) {
	u := fmt.Sprintf("%s?q=%s&output=json", p.base, url.QueryEscape("%."+string(t)))

	var records []certRecord
	call := func() error { return p.deps.HTTP.FetchJSON(ctx, u, &records) }
	var err error
	if p.deps.Breaker != nil {
		err = p.deps.Breaker.Do(call)
	} else {
		err = call()
	}
	if err != nil {
		return nil, errors.Wrapf(err, "crt.sh lookup for %s", t)
	}

	seen := make(map[domain.Host]bool)
	var out []domain.Host
	for _, r := range records {
		for _, name := range strings.Split(r.NameValue+"\n"+r.CommonName, "\n") {
			name = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "*.")
			h := domain.Host(strings.TrimSuffix(name, "."))
			if h == "" || seen[h] || !validator.IsDomain(string(h)) || !t.Covers(h) {
				continue
			}
			seen[h] = true
			out = append(out, h)
		}
	}
	p.logger.Debug("crt.sh names", "target", t, "records", len(records), "hosts", len(out))
	return out, nil
}
