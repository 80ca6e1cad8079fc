// internal/core/usecases/orchestrator.go
package usecases

import (
	"context"
	"fmt"
	"io"
	"time"

	"sentinel/internal/core/domain"
	"sentinel/internal/core/ports"
	"sentinel/internal/platform/errors"
	"sentinel/internal/platform/logx"
	"sentinel/internal/platform/ui"
)

const defaultSinkTimeout = 30 * time.Second

// OrchestratorOptions configures the Orchestrator. Targets through Scanner
// are required; the rest are optional.
type OrchestratorOptions struct {
	Targets    ports.TargetSource
	Enumerator ports.Enumerator
	Prober     ports.Prober
	Crawler    ports.Crawler
	Scanner    ports.Scanner

	// Summarizer runs between SCANNED and PERSISTED; nil disables triage.
	Summarizer ports.Summarizer

	// Writers[0] is the primary sink; its location is the cycle's location.
	Writers   []ports.RecordWriter
	Notifiers []ports.Notifier

	Presenter ui.Presenter
	Logger    logx.Logger

	// CycleTimeout bounds the phases (0 = none). SinkTimeout bounds
	// persist and notify, which run on a context detached from cancellation.
	CycleTimeout time.Duration
	SinkTimeout  time.Duration

	// Info is shown by the presenter at the start of each cycle.
	Info ui.CycleInfo

	// Loop, when set, replaces the scheduler's pacing from the next pause on.
	Loop *LoopSettings

	Now func() time.Time
}

// CycleResult is what RunCycle reports back to the scheduler or CLI.
type CycleResult struct {
	Record        *domain.RunRecord
	State         domain.State
	Location      string
	Notifications []domain.NotifyResult
	SinkFailures  int
	Err           error
}

// Orchestrator drives one cycle through the state machine
// IDLE → TARGETS_LOADED → ENUMERATED → PROBED → CRAWLED → SCANNED →
// PERSISTED → NOTIFIED → DONE, with FAILED reachable from any
// non-terminal state.
type Orchestrator struct {
	targets    ports.TargetSource
	enumerator ports.Enumerator
	prober     ports.Prober
	crawler    ports.Crawler
	scanner    ports.Scanner
	summarizer ports.Summarizer
	writers    []ports.RecordWriter
	notifiers  []ports.Notifier

	presenter    ui.Presenter
	logger       logx.Logger
	cycleTimeout time.Duration
	sinkTimeout  time.Duration
	info         ui.CycleInfo
	loop         *LoopSettings
	now          func() time.Time
}

func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	if opts.Targets == nil || opts.Enumerator == nil || opts.Prober == nil || opts.Crawler == nil || opts.Scanner == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "orchestrator: targets, enumerator, prober, crawler and scanner are required")
	}
	if opts.Logger == nil {
		opts.Logger = logx.New()
	}
	if opts.Presenter == nil {
		opts.Presenter = ui.NewNoopPresenter()
	}
	if opts.SinkTimeout <= 0 {
		opts.SinkTimeout = defaultSinkTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if len(opts.Info.Phases) == 0 {
		opts.Info.Phases = []string{
			domain.PhaseTargets, domain.PhaseEnumerate, domain.PhaseProbe, domain.PhaseCrawl,
			domain.PhaseScan, domain.PhasePersist, domain.PhaseNotify,
		}
	}

	return &Orchestrator{
		targets:      opts.Targets,
		enumerator:   opts.Enumerator,
		prober:       opts.Prober,
		crawler:      opts.Crawler,
		scanner:      opts.Scanner,
		summarizer:   opts.Summarizer,
		writers:      opts.Writers,
		notifiers:    opts.Notifiers,
		presenter:    opts.Presenter,
		logger:       opts.Logger.With("component", "orchestrator"),
		cycleTimeout: opts.CycleTimeout,
		sinkTimeout:  opts.SinkTimeout,
		info:         opts.Info,
		loop:         opts.Loop,
		now:          opts.Now,
	}, nil
}

// cycle holds the mutable state of one RunCycle call.
type cycle struct {
	o     *Orchestrator
	rec   *domain.RunRecord
	state domain.State
}

// advance moves along the success path. Illegal transitions are logged and ignored.
func (c *cycle) advance(to domain.State) {
	if !c.state.CanTransition(to) {
		c.o.logger.Warn("illegal state transition ignored", "from", c.state, "to", to)
		return
	}
	c.state = to
}

func (c *cycle) fail(err error) {
	var pe *domain.PhaseError
	if errors.As(err, &pe) {
		c.rec.FailedPhase = pe.Phase
	}
	c.rec.Error = err.Error()
	c.state = domain.StateFailed
	c.o.logger.Err(err, "phase", c.rec.FailedPhase, "run_id", c.rec.RunID)
}

// RunCycle runs one full cycle. It never returns an error: failures are
// reflected in the result's State and Err, and the partial record is still
// persisted.
func (o *Orchestrator) RunCycle(ctx context.Context, n int) *CycleResult {
	c := &cycle{o: o, rec: domain.NewRunRecord(o.now()), state: domain.StateIdle}
	res := &CycleResult{}

	info := o.info
	info.RunID, info.Cycle = c.rec.RunID, n
	o.presenter.Start(info)
	o.logger.Info("cycle started", "cycle", n, "run_id", c.rec.RunID)

	phaseCtx, cancel := ctx, context.CancelFunc(func() {})
	if o.cycleTimeout > 0 {
		phaseCtx, cancel = context.WithTimeout(ctx, o.cycleTimeout)
	}
	err := o.runPhases(phaseCtx, c)
	cancel()

	// The record carries the final state from here on: triage and the sinks
	// see DONE or FAILED.
	c.rec.State = domain.StateDone
	if err != nil {
		c.fail(err)
		c.rec.State = domain.StateFailed
		res.Err = err
	} else if o.summarizer != nil {
		o.triage(ctx, c)
	}

	// Persist and notify still run after cancellation, on a short detached context.
	sinkCtx, sinkCancel := context.WithTimeout(context.WithoutCancel(ctx), o.sinkTimeout)
	defer sinkCancel()

	c.rec.EndedAt = o.now().UTC()

	res.Location, res.SinkFailures = o.persist(sinkCtx, c)
	if c.state != domain.StateFailed {
		c.advance(domain.StatePersisted)
	}
	res.Notifications = o.notify(sinkCtx, c)
	if c.state != domain.StateFailed {
		c.advance(domain.StateNotified)
		c.advance(domain.StateDone)
	}

	res.Record, res.State = c.rec, c.state
	o.presenter.Finish(ui.CycleStats{
		State:      string(c.state),
		Duration:   c.rec.EndedAt.Sub(c.rec.StartedAt),
		Targets:    c.rec.Targets,
		AliveHosts: c.rec.AliveHosts,
		Resources:  c.rec.Resources,
		Findings:   c.rec.FindingsTotal,
		Validated:  c.rec.Validated,
		Location:   res.Location,
	})
	o.logger.Info("cycle finished", "cycle", n, "run_id", c.rec.RunID, "state", c.state,
		"alive_hosts", c.rec.AliveHosts, "findings", c.rec.FindingsTotal, "location", res.Location)
	return res
}

func (o *Orchestrator) runPhases(ctx context.Context, c *cycle) error {
	rec := c.rec

	targets, err := runPhase(ctx, c, ports.Phase[struct{}, domain.TargetSet](targetsPhase{o.targets}), struct{}{},
		func(s domain.TargetSet) int { return s.Len() }, domain.StateTargetsLoaded)
	if err != nil {
		return err
	}
	rec.Targets, rec.Scope = targets.Len(), targets.Sorted()

	enum, err := runPhase(ctx, c, o.enumerator, targets,
		func(e domain.Enumeration) int { return e.Candidates().Len() }, domain.StateEnumerated)
	if err != nil {
		return err
	}
	candidates := enum.Candidates()
	rec.Candidates = candidates.Len()

	live, err := runPhase(ctx, c, o.prober, candidates,
		func(h domain.HostSet) int { return h.Len() }, domain.StateProbed)
	if err != nil {
		return err
	}
	rec.AliveHosts, rec.LiveHosts = live.Len(), live.Sorted()

	sites, err := runPhase(ctx, c, o.crawler, live,
		func(m domain.SiteMap) int { return len(m.Resources()) }, domain.StateCrawled)
	if err != nil {
		return err
	}
	resources := sites.Resources()
	rec.CrawledHosts, rec.Resources = sites.CrawledHosts(), len(resources)

	findings, err := runPhase(ctx, c, o.scanner, resources,
		func(f []domain.Finding) int { return len(f) }, domain.StateScanned)
	if err != nil {
		return err
	}
	domain.SortFindings(findings)
	rec.Findings = append([]domain.Finding{}, findings...)
	rec.FindingsTotal, rec.Validated = len(findings), len(domain.Validated(findings))
	return nil
}

// triage never fails the cycle.
func (o *Orchestrator) triage(ctx context.Context, c *cycle) {
	start := o.now()
	o.presenter.StartPhase(domain.PhaseTriage)
	outcome := ui.PhaseOutcome{Name: domain.PhaseTriage, Status: ui.StatusSuccess}
	pr := domain.PhaseResult{Name: domain.PhaseTriage, StartedAt: start.UTC()}

	t, err := safeSummarize(ctx, o.summarizer, c.rec.Clone())
	switch {
	case errors.Is(err, domain.ErrMissingInput):
		outcome.Status, outcome.Detail = ui.StatusSkipped, err.Error()
		o.logger.Debug("triage skipped", "reason", err.Error())
	case err != nil:
		outcome.Status, outcome.Detail = ui.StatusWarning, err.Error()
		pr.Error = err.Error()
		o.logger.Warn("triage failed", "error", err.Error())
	default:
		c.rec.Triage = t
		outcome.Count, pr.Count = 1, 1
	}

	outcome.Duration = o.now().Sub(start)
	pr.DurationMS = outcome.Duration.Milliseconds()
	if outcome.Status != ui.StatusSkipped {
		c.rec.Phases = append(c.rec.Phases, pr)
	}
	o.presenter.FinishPhase(outcome)
}

func safeSummarize(ctx context.Context, s ports.Summarizer, rec *domain.RunRecord) (t *domain.Triage, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, fmt.Errorf("summarizer panic: %v", r)
		}
	}()
	return s.Summarize(ctx, rec)
}

// persist hands a copy of the record to every writer. Failures are
// counted and logged, never raised.
func (o *Orchestrator) persist(ctx context.Context, c *cycle) (location string, failures int) {
	start := o.now()
	o.presenter.StartPhase(domain.PhasePersist)

	written := 0
	for i, w := range o.writers {
		loc, err := safePersist(ctx, w, c.rec.Clone())
		if err != nil {
			failures++
			o.logger.Warn("sink failure", "sink", w.Name(), "error",
				errors.Wrap(domain.ErrSinkFailure, err.Error()).Error())
			continue
		}
		written++
		if i == 0 {
			location = loc
		}
		if loc != "" {
			o.logger.Debug("record persisted", "sink", w.Name(), "location", loc)
		}
	}

	outcome := ui.PhaseOutcome{Name: domain.PhasePersist, Status: ui.StatusSuccess, Count: written, Duration: o.now().Sub(start), Detail: location}
	switch {
	case len(o.writers) == 0:
		outcome.Status, outcome.Detail = ui.StatusSkipped, "no writers configured"
	case failures > 0:
		outcome.Status, outcome.Detail = ui.StatusWarning, fmt.Sprintf("%d sink failure(s)", failures)
	}
	o.presenter.FinishPhase(outcome)
	return location, failures
}

func safePersist(ctx context.Context, w ports.RecordWriter, rec *domain.RunRecord) (loc string, err error) {
	defer func() {
		if r := recover(); r != nil {
			loc, err = "", fmt.Errorf("writer panic: %v", r)
		}
	}()
	return w.Persist(ctx, rec)
}

// notify asks every notifier; a cycle that had no targets is not announced.
func (o *Orchestrator) notify(ctx context.Context, c *cycle) []domain.NotifyResult {
	start := o.now()
	o.presenter.StartPhase(domain.PhaseNotify)

	results := make([]domain.NotifyResult, 0, len(o.notifiers))
	sent := 0
	for _, n := range o.notifiers {
		var r domain.NotifyResult
		if c.rec.Targets == 0 {
			r = domain.NotifyResult{Channel: n.Name(), Status: domain.NotifySkipped, Detail: "no targets"}
		} else {
			r = safeNotify(ctx, n, c.rec.Clone())
		}
		if r.Status == domain.NotifySent {
			sent++
		}
		switch r.Status {
		case domain.NotifyFailed:
			o.logger.Warn("notification failed", "channel", r.Channel, "detail", r.Detail)
		case domain.NotifySkipped:
			o.logger.Info("notification skipped", "channel", r.Channel, "detail", r.Detail)
		}
		results = append(results, r)
	}

	status := ui.StatusSuccess
	if sent == 0 {
		status = ui.StatusSkipped
	}
	o.presenter.FinishPhase(ui.PhaseOutcome{Name: domain.PhaseNotify, Status: status, Count: sent, Duration: o.now().Sub(start)})
	return results
}

func safeNotify(ctx context.Context, n ports.Notifier, rec *domain.RunRecord) (r domain.NotifyResult) {
	defer func() {
		if p := recover(); p != nil {
			r = domain.NotifyResult{Channel: n.Name(), Status: domain.NotifyFailed, Detail: fmt.Sprintf("panic: %v", p)}
		}
	}()
	return n.Notify(ctx, rec)
}

// Close releases writers that hold resources (the history database).
func (o *Orchestrator) Close() error {
	var errs []error
	for _, w := range o.writers {
		if c, ok := w.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, errors.Wrapf(err, "close %s", w.Name()))
			}
		}
	}
	return errors.Join(errs...)
}
