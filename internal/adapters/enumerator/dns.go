// internal/adapters/enumerator/dns.go
package enumerator

import (
	"context"
	"net"
	"time"

	"github.com/miekg/dns"

	"sentinel/internal/core/domain"
	"sentinel/internal/platform/errors"
	"sentinel/internal/platform/logx"
)

// Exchanger is satisfied by *dns.Client.
type Exchanger interface {
	ExchangeContext(ctx context.Context, m *dns.Msg, address string) (*dns.Msg, time.Duration, error)
}

// dnsPolicy keeps the prefix candidates (and the target itself) that have
// an A or AAAA answer, following CNAMEs as the resolver returns them.
type dnsPolicy struct {
	labels   []string
	resolver string
	client   Exchanger
	deps     Deps
	logger   logx.Logger
}

func newDNSPolicy(d Deps) (Policy, error) {
	labels := cleanLabels(d.Prefixes)
	if len(labels) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "dns policy needs at least one prefix")
	}
	resolver := d.Resolver
	if resolver == "" {
		resolver = "1.1.1.1:53"
	}
	if _, _, err := net.SplitHostPort(resolver); err != nil {
		resolver = net.JoinHostPort(resolver, "53")
	}
	client := d.DNS
	if client == nil {
		timeout := d.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		client = &dns.Client{Net: "udp", Timeout: timeout}
	}
	lg := d.Logger
	if lg == nil {
		lg = logx.Discard()
	}
	return &dnsPolicy{
		labels:   labels,
		resolver: resolver,
		client:   client,
		deps:     d,
		logger:   lg.With("policy", "dns"),
	}, nil
}

func (p *dnsPolicy) Name() string { return "dns" }

func (p *dnsPolicy) Candidates(ctx context.Context, t domain.Target) ([]domain.Host, error) {
	names := make([]domain.Host, 0, len(p.labels)+1)
	names = append(names, domain.Host(t))
	for _, l := range p.labels {
		names = append(names, domain.Host(l+"."+string(t)))
	}

	var out []domain.Host
	var failures int
	var lastErr error
	for _, h := range names {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		ok, err := p.resolves(ctx, h)
		if err != nil {
			failures++
			lastErr = err
			continue
		}
		if ok {
			out = append(out, h)
		}
	}
	if failures == len(names) {
		return nil, errors.Wrapf(lastErr, "dns: every lookup for %s failed", t)
	}
	return out, nil
}

func (p *dnsPolicy) resolves(ctx context.Context, h domain.Host) (bool, error) {
	key := "dns:" + string(h)
	if p.deps.Cache != nil {
		if v, ok := p.deps.Cache.Get(key); ok {
			return len(v) > 0, nil
		}
	}

	found := false
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		m := new(dns.Msg)
		m.SetQuestion(dns.Fqdn(string(h)), qtype)
		m.RecursionDesired = true

		r, _, err := p.client.ExchangeContext(ctx, m, p.resolver)
		if err != nil {
			return false, errors.Wrapf(errors.ErrConnectionFailed, "query %s: %v", h, err)
		}
		if r.Rcode == dns.RcodeNameError {
			break
		}
		if r.Rcode == dns.RcodeSuccess && hasAddress(r.Answer) {
			found = true
			break
		}
	}

	if p.deps.Cache != nil {
		var v []domain.Host
		if found {
			v = []domain.Host{h}
		}
		p.deps.Cache.Set(key, v)
	}
	p.logger.Debug("dns lookup", "host", h, "found", found)
	return found, nil
}

func hasAddress(rrs []dns.RR) bool {
	for _, rr := range rrs {
		switch rr.(type) {
		case *dns.A, *dns.AAAA:
			return true
		}
	}
	return false
}
