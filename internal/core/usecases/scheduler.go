// internal/core/usecases/scheduler.go
package usecases

import (
	"context"
	"math/rand/v2"
	"time"

	"sentinel/internal/core/domain"
	"sentinel/internal/platform/errors"
	"sentinel/internal/platform/logx"
)

// Clock abstracts time for the loop so tests never sleep.
type Clock interface {
	Now() time.Time
	// Sleep waits d or until ctx is done, returning ctx.Err() in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Factory builds a fresh orchestrator for each cycle, re-reading
// configuration so that edits take effect without a restart.
type Factory interface {
	Build(ctx context.Context) (*Orchestrator, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(ctx context.Context) (*Orchestrator, error)

func (f FactoryFunc) Build(ctx context.Context) (*Orchestrator, error) { return f(ctx) }

// LoopSettings are the pacing values re-read with the configuration.
type LoopSettings struct {
	Interval  time.Duration
	Jitter    time.Duration
	MaxCycles int // 0 = until cancelled
}

func (l LoopSettings) validate() error {
	if l.Interval < 0 || l.Jitter < 0 || l.MaxCycles < 0 {
		return errors.Wrap(errors.ErrInvalidInput, "scheduler: interval, jitter and max cycles must not be negative")
	}
	return nil
}

// SchedulerOptions configures the loop.
type SchedulerOptions struct {
	Factory   Factory
	Interval  time.Duration
	Jitter    time.Duration
	MaxCycles int // 0 = until cancelled
	Clock     Clock
	Logger    logx.Logger

	// Rand returns a value in [0, n); defaults to math/rand/v2.
	Rand func(n int64) int64

	// OnCycle is called after every cycle, before the pause.
	OnCycle func(n int, res *CycleResult)
}

// Scheduler runs cycles back to back with a pause of Interval plus a random
// jitter in between. Cycles never overlap.
type Scheduler struct {
	factory   Factory
	interval  time.Duration
	jitter    time.Duration
	maxCycles int
	clock     Clock
	logger    logx.Logger
	rand      func(n int64) int64
	onCycle   func(int, *CycleResult)
}

func NewScheduler(opts SchedulerOptions) (*Scheduler, error) {
	if opts.Factory == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "scheduler: factory is required")
	}
	if err := (LoopSettings{opts.Interval, opts.Jitter, opts.MaxCycles}).validate(); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Logger == nil {
		opts.Logger = logx.New()
	}
	if opts.Rand == nil {
		opts.Rand = rand.Int64N
	}
	return &Scheduler{
		factory:   opts.Factory,
		interval:  opts.Interval,
		jitter:    opts.Jitter,
		maxCycles: opts.MaxCycles,
		clock:     opts.Clock,
		logger:    opts.Logger.With("component", "scheduler"),
		rand:      opts.Rand,
		onCycle:   opts.OnCycle,
	}, nil
}

// apply adopts the pacing of a freshly built orchestrator. Invalid values
// keep the previous ones.
func (s *Scheduler) apply(n int, l *LoopSettings) {
	if l == nil {
		return
	}
	if err := l.validate(); err != nil {
		s.logger.Warn("loop settings ignored", "cycle", n, "error", err.Error())
		return
	}
	s.interval, s.jitter, s.maxCycles = l.Interval, l.Jitter, l.MaxCycles
}

// Pause is the wait before the next cycle: Interval plus [0, Jitter].
func (s *Scheduler) Pause() time.Duration {
	d := s.interval
	if s.jitter > 0 {
		d += time.Duration(s.rand(int64(s.jitter) + 1))
	}
	return d
}

// Run loops until ctx is cancelled or MaxCycles is reached. A failed cycle
// does not stop the loop. If rebuilding the orchestrator fails, the previous
// one is reused; with none available the cycle is skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	var current *Orchestrator
	defer func() {
		if current != nil {
			if err := current.Close(); err != nil {
				s.logger.Warn("close orchestrator", "error", err.Error())
			}
		}
	}()

	for n := 1; s.maxCycles == 0 || n <= s.maxCycles; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		next, err := s.factory.Build(ctx)
		switch {
		case err != nil && current != nil:
			s.logger.Warn("config reload failed, keeping previous settings", "cycle", n, "error", err.Error())
		case err != nil:
			s.logger.Err(err, "cycle", n, "msg", "cannot build pipeline, cycle skipped")
		default:
			if current != nil && current != next {
				if cerr := current.Close(); cerr != nil {
					s.logger.Warn("close orchestrator", "error", cerr.Error())
				}
			}
			current = next
			s.apply(n, current.loop)
		}

		if current != nil {
			started := s.clock.Now()
			res := current.RunCycle(ctx, n)
			s.logger.Info("loop cycle done", "cycle", n, "state", res.State,
				"duration", s.clock.Now().Sub(started).String())
			if s.onCycle != nil {
				s.onCycle(n, res)
			}
			if res.State == domain.StateFailed && ctx.Err() != nil {
				return ctx.Err()
			}
		}

		if s.maxCycles != 0 && n >= s.maxCycles {
			break
		}
		pause := s.Pause()
		s.logger.Debug("sleeping before next cycle", "pause", pause.String())
		if err := s.clock.Sleep(ctx, pause); err != nil {
			return err
		}
	}
	return nil
}
