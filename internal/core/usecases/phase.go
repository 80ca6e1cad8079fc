// internal/core/usecases/phase.go
package usecases

import (
	"context"
	"fmt"
	"runtime/debug"

	"sentinel/internal/core/domain"
	"sentinel/internal/core/ports"
	"sentinel/internal/platform/ui"
)

// targetsPhase adapts a TargetSource to the Phase shape so the targets
// step runs through the same bookkeeping as the others.
type targetsPhase struct {
	src ports.TargetSource
}

func (p targetsPhase) Name() string { return domain.PhaseTargets }

func (p targetsPhase) Run(ctx context.Context, _ struct{}) (domain.TargetSet, error) {
	set, err := p.src.LoadTargets(ctx)
	if err != nil {
		return nil, err
	}
	if set.Len() == 0 {
		return nil, domain.ErrNoTargets
	}
	return set, nil
}

// runPhase executes one pipeline phase: it times it, recovers panics,
// records a PhaseResult and advances the cycle state. Any error comes back
// as a *domain.PhaseError.
func runPhase[In, Out any](ctx context.Context, c *cycle, p ports.Phase[In, Out], in In, count func(Out) int, next domain.State) (out Out, err error) {
	name := p.Name()
	start := c.o.now()
	c.o.presenter.StartPhase(name)
	c.o.logger.Debug("phase started", "phase", name, "run_id", c.rec.RunID)

	defer func() {
		if r := recover(); r != nil {
			c.o.logger.Debug("phase panic stack", "phase", name, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}

		n := 0
		if err == nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			} else {
				n = count(out)
			}
		}

		elapsed := c.o.now().Sub(start)
		pr := domain.PhaseResult{Name: name, StartedAt: start.UTC(), DurationMS: elapsed.Milliseconds(), Count: n}
		outcome := ui.PhaseOutcome{Name: name, Status: ui.StatusSuccess, Duration: elapsed, Count: n}

		if err != nil {
			outcome.Status, outcome.Detail = ui.StatusError, err.Error()
			err = domain.NewPhaseError(name, err)
			pr.Error = err.Error()
			var zero Out
			out = zero
		} else {
			c.advance(next)
			c.o.logger.Info("phase finished", "phase", name, "count", n, "duration_ms", pr.DurationMS)
		}
		c.rec.Phases = append(c.rec.Phases, pr)
		c.o.presenter.FinishPhase(outcome)
	}()

	return p.Run(ctx, in)
}
