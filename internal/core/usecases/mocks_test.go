// internal/core/usecases/mocks_test.go
package usecases

import (
	"context"
	"sync"
	"time"

	"sentinel/internal/core/domain"
	"sentinel/internal/platform/ui"
)

// phaseFunc is a configurable ports.Phase for orchestrator tests.
type phaseFunc[In, Out any] struct {
	name  string
	fn    func(ctx context.Context, in In) (Out, error)
	calls int
}

func (p *phaseFunc[In, Out]) Name() string { return p.name }

func (p *phaseFunc[In, Out]) Run(ctx context.Context, in In) (Out, error) {
	p.calls++
	return p.fn(ctx, in)
}

// mockTargets is a canned ports.TargetSource.
type mockTargets struct {
	set domain.TargetSet
	err error
}

func (m *mockTargets) Name() string { return "mock" }

func (m *mockTargets) LoadTargets(context.Context) (domain.TargetSet, error) {
	return m.set, m.err
}

// happyPipeline wires fakes that reproduce example.com → api/dev/www →
// api+www live → one page each → one validated finding on api.
type happyPipeline struct {
	targets    *mockTargets
	enumerator *phaseFunc[domain.TargetSet, domain.Enumeration]
	prober     *phaseFunc[domain.HostSet, domain.HostSet]
	crawler    *phaseFunc[domain.HostSet, domain.SiteMap]
	scanner    *phaseFunc[[]domain.Resource, []domain.Finding]
}

func newHappyPipeline() *happyPipeline {
	return &happyPipeline{
		targets: &mockTargets{set: domain.NewSet[domain.Target]("example.com")},
		enumerator: &phaseFunc[domain.TargetSet, domain.Enumeration]{
			name: domain.PhaseEnumerate,
			fn: func(_ context.Context, ts domain.TargetSet) (domain.Enumeration, error) {
				e := domain.Enumeration{}
				for t := range ts {
					e[t] = domain.NewSet[domain.Host]("api."+domain.Host(t), "dev."+domain.Host(t), "www."+domain.Host(t))
				}
				return e, nil
			},
		},
		prober: &phaseFunc[domain.HostSet, domain.HostSet]{
			name: domain.PhaseProbe,
			fn: func(_ context.Context, hs domain.HostSet) (domain.HostSet, error) {
				live := domain.NewSet[domain.Host]()
				for h := range hs {
					if h != "dev.example.com" {
						live.Add(h)
					}
				}
				return live, nil
			},
		},
		crawler: &phaseFunc[domain.HostSet, domain.SiteMap]{
			name: domain.PhaseCrawl,
			fn: func(_ context.Context, hs domain.HostSet) (domain.SiteMap, error) {
				m := domain.SiteMap{}
				for h := range hs {
					rs := domain.ResourceSet{}
					rs.Add(domain.Resource{URL: "https://" + string(h) + "/", Host: h, Kind: domain.ResourcePage})
					m[h] = rs
				}
				return m, nil
			},
		},
		scanner: &phaseFunc[[]domain.Resource, []domain.Finding]{
			name: domain.PhaseScan,
			fn: func(_ context.Context, rs []domain.Resource) ([]domain.Finding, error) {
				var out []domain.Finding
				for _, r := range rs {
					if r.Host == "api.example.com" {
						out = append(out, domain.Finding{Source: r.URL, Category: "xss", Severity: domain.SeverityHigh, Validated: true, Rule: "reflected-xss"})
					}
				}
				return out, nil
			},
		},
	}
}

func (p *happyPipeline) options() OrchestratorOptions {
	return OrchestratorOptions{
		Targets:    p.targets,
		Enumerator: p.enumerator,
		Prober:     p.prober,
		Crawler:    p.crawler,
		Scanner:    p.scanner,
		Now:        fixedClock(),
	}
}

// fixedClock advances one second per call so durations are non-zero.
func fixedClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

// recordingWriter keeps every record it was given.
type recordingWriter struct {
	name     string
	location string
	err      error
	panics   bool
	closed   bool
	mutate   bool

	records []*domain.RunRecord
	ctxErrs []error
}

func (w *recordingWriter) Name() string { return w.name }

func (w *recordingWriter) Persist(ctx context.Context, rec *domain.RunRecord) (string, error) {
	w.records = append(w.records, rec)
	w.ctxErrs = append(w.ctxErrs, ctx.Err())
	if w.panics {
		panic("writer exploded")
	}
	if w.mutate {
		rec.RunID = "mutated"
		rec.Findings = nil
	}
	if w.err != nil {
		return "", w.err
	}
	return w.location, nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

// recordingNotifier returns a fixed status and counts calls.
type recordingNotifier struct {
	name   string
	status domain.NotifyStatus
	panics bool
	calls  int
}

func (n *recordingNotifier) Name() string { return n.name }

func (n *recordingNotifier) Notify(context.Context, *domain.RunRecord) domain.NotifyResult {
	n.calls++
	if n.panics {
		panic("notifier exploded")
	}
	return domain.NotifyResult{Channel: n.name, Status: n.status}
}

// mockSummarizer is a canned ports.Summarizer.
type mockSummarizer struct {
	triage *domain.Triage
	err    error
	calls  int
	seen   *domain.RunRecord
}

func (s *mockSummarizer) Summarize(_ context.Context, rec *domain.RunRecord) (*domain.Triage, error) {
	s.calls++
	s.seen = rec
	return s.triage, s.err
}

// recordingPresenter captures the presenter callbacks in order.
type recordingPresenter struct {
	ui.NoopPresenter

	info     ui.CycleInfo
	started  []string
	outcomes []ui.PhaseOutcome
	stats    *ui.CycleStats
}

func (p *recordingPresenter) Start(info ui.CycleInfo)         { p.info = info }
func (p *recordingPresenter) StartPhase(name string)          { p.started = append(p.started, name) }
func (p *recordingPresenter) FinishPhase(out ui.PhaseOutcome) { p.outcomes = append(p.outcomes, out) }
func (p *recordingPresenter) Finish(stats ui.CycleStats)      { p.stats = &stats }

func (p *recordingPresenter) outcome(name string) (ui.PhaseOutcome, bool) {
	for _, o := range p.outcomes {
		if o.Name == name {
			return o, true
		}
	}
	return ui.PhaseOutcome{}, false
}

// fakeClock records requested sleeps and never blocks.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return ctx.Err()
}
