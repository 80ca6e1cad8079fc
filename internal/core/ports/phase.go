// internal/core/ports/phase.go
package ports

import (
	"context"

	"sentinel/internal/core/domain"
)

// Phase is one step of the pipeline: it consumes the previous phase's
// container and produces its own. A returned error aborts the cycle;
// per-item failures are handled inside the implementation.
type Phase[In, Out any] interface {
	Name() string
	Run(ctx context.Context, in In) (Out, error)
}

// TargetSource produces the cycle's target set. A missing input yields an
// empty set and no error.
type TargetSource interface {
	Name() string
	LoadTargets(ctx context.Context) (domain.TargetSet, error)
}

// Enumerator expands each target into candidate hosts within its scope.
type Enumerator = Phase[domain.TargetSet, domain.Enumeration]

// Prober keeps the candidates that answer over HTTP(S).
type Prober = Phase[domain.HostSet, domain.HostSet]

// Crawler collects pages and scripts per live host.
type Crawler = Phase[domain.HostSet, domain.SiteMap]

// Scanner applies detection rules to resources.
type Scanner = Phase[[]domain.Resource, []domain.Finding]
