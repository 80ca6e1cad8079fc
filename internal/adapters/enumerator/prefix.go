// internal/adapters/enumerator/prefix.go
package enumerator

import (
	"context"
	"strings"

	"sentinel/internal/core/domain"
	"sentinel/internal/platform/errors"
)

type prefixPolicy struct {
	labels []string
}

func newPrefixPolicy(d Deps) (Policy, error) {
	labels := cleanLabels(d.Prefixes)
	if len(labels) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "prefix policy needs at least one prefix")
	}
	return &prefixPolicy{labels: labels}, nil
}

func (p *prefixPolicy) Name() string { return "prefix" }

func (p *prefixPolicy) Candidates(_ context.Context, t domain.Target) ([]domain.Host, error) {
	out := make([]domain.Host, 0, len(p.labels))
	for _, l := range p.labels {
		out = append(out, domain.Host(l+"."+string(t)))
	}
	return out, nil
}

func cleanLabels(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, l := range in {
		l = strings.Trim(strings.ToLower(strings.TrimSpace(l)), ".")
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
