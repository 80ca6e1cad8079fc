// internal/adapters/enumerator/enumerator.go
package enumerator

import (
	"context"

	"sentinel/internal/core/domain"
	"sentinel/internal/platform/errors"
	"sentinel/internal/platform/logx"
	"sentinel/internal/platform/workerpool"
)

const defaultMaxPerTarget = 200

type Options struct {
	Policies     []Policy
	MaxPerTarget int
	Pool         *workerpool.Pool
	Logger       logx.Logger
}

// Enumerator runs every policy for every target and keeps the in-scope
// union, sorted and capped per target.
type Enumerator struct {
	policies []Policy
	max      int
	pool     *workerpool.Pool
	logger   logx.Logger
}

func New(opts Options) *Enumerator {
	if opts.MaxPerTarget <= 0 {
		opts.MaxPerTarget = defaultMaxPerTarget
	}
	if opts.Logger == nil {
		opts.Logger = logx.Discard()
	}
	if opts.Pool == nil {
		opts.Pool = workerpool.New(workerpool.Config{Workers: 4, Name: "enumerate", Logger: opts.Logger})
	}
	return &Enumerator{
		policies: opts.Policies,
		max:      opts.MaxPerTarget,
		pool:     opts.Pool,
		logger:   opts.Logger.With("component", "enumerator"),
	}
}

// NewFromNames builds the named policies from the registry.
func NewFromNames(names []string, deps Deps, opts Options) (*Enumerator, error) {
	if deps.Logger == nil {
		deps.Logger = opts.Logger
	}
	lg := opts.Logger
	if lg == nil {
		lg = logx.Discard()
	}
	ps, err := Policies.Build(names, deps, lg)
	if err != nil {
		return nil, errors.Wrap(err, "enumeration policies")
	}
	opts.Policies = ps
	return New(opts), nil
}

func (e *Enumerator) Name() string { return domain.PhaseEnumerate }

// Run never fails because of a single target or policy; it only returns an
// error when ctx is done.
func (e *Enumerator) Run(ctx context.Context, targets domain.TargetSet) (domain.Enumeration, error) {
	res := workerpool.NewResults[domain.Target, domain.HostSet](targets.Len())

	workerpool.ForEach(ctx, e.pool, targets.Sorted(), func(ctx context.Context, t domain.Target) error {
		res.Set(t, e.enumerate(ctx, t))
		return nil
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(domain.Enumeration, targets.Len())
	found := res.Map()
	for t := range targets {
		hs, ok := found[t]
		if !ok {
			hs = domain.NewSet[domain.Host]()
		}
		out[t] = hs
	}
	return out, nil
}

func (e *Enumerator) enumerate(ctx context.Context, t domain.Target) domain.HostSet {
	all := domain.NewSet[domain.Host]()
	for _, p := range e.policies {
		hosts, err := e.safeCandidates(ctx, p, t)
		if err != nil {
			e.logger.Warn("policy failed", "target", t, "policy", p.Name(), "error", err.Error())
			continue
		}
		for _, h := range hosts {
			if t.Covers(h) {
				all.Add(h)
			}
		}
	}

	if all.Len() <= e.max {
		return all
	}
	capped := domain.NewSet(all.Sorted()[:e.max]...)
	e.logger.Debug("candidates capped", "target", t, "found", all.Len(), "kept", e.max)
	return capped
}

func (e *Enumerator) safeCandidates(ctx context.Context, p Policy, t domain.Target) (hosts []domain.Host, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("policy %s panicked: %v", p.Name(), r)
		}
	}()
	return p.Candidates(ctx, t)
}
