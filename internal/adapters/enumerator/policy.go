// internal/adapters/enumerator/policy.go
package enumerator

import (
	"context"
	"time"

	"sentinel/internal/core/domain"
	"sentinel/internal/platform/cache"
	"sentinel/internal/platform/httpclient"
	"sentinel/internal/platform/logx"
	"sentinel/internal/platform/registry"
	"sentinel/internal/platform/resilience"
)

// Policy derives candidate hosts for one target. Implementations may return
// out-of-scope names; the Enumerator filters them.
type Policy interface {
	Name() string
	Candidates(ctx context.Context, target domain.Target) ([]domain.Host, error)
}

// Deps is everything a policy factory may need. Unused fields are ignored.
type Deps struct {
	Prefixes []string
	CrtshURL string
	Resolver string
	Timeout  time.Duration

	HTTP    *httpclient.Client
	DNS     Exchanger
	Cache   *cache.LRU[[]domain.Host]
	Breaker *resilience.Breaker // guards crt.sh; nil disables
	Logger  logx.Logger
}

// Policies holds the built-in policies, registered from init().
var Policies = registry.New[Policy, Deps]("policy")

func init() {
	Policies.MustRegister("prefix", "fixed label prefixes (api, dev, www, ...)", newPrefixPolicy)
	Policies.MustRegister("crtsh", "certificate transparency names from crt.sh", newCrtshPolicy)
	Policies.MustRegister("dns", "prefix candidates that resolve in DNS", newDNSPolicy)
}
