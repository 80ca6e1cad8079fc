// internal/platform/resilience/breaker_test.go
package resilience

import (
	"testing"
	"time"

	"sentinel/internal/platform/errors"
	"sentinel/internal/testutil"
)

type manualClock struct{ t time.Time }

func (c *manualClock) now() time.Time          { return c.t }
func (c *manualClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int) (*Breaker, *manualClock) {
	clk := &manualClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(Options{Threshold: threshold, Cooldown: time.Minute, Now: clk.now}), clk
}

func fail() error    { return errors.Wrap(errors.ErrServiceUnavailable, "upstream") }
func succeed() error { return nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(2)

	testutil.AssertError(t, b.Do(fail), "first failure")
	testutil.AssertEqual(t, b.State(), StateClosed, "still closed")
	testutil.AssertError(t, b.Do(fail), "second failure")
	testutil.AssertEqual(t, b.State(), StateOpen, "opened")

	called := false
	err := b.Do(func() error { called = true; return nil })
	testutil.AssertTrue(t, errors.Is(err, ErrOpen), "rejected while open")
	testutil.AssertFalse(t, called, "fn not called while open")
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b, _ := newTestBreaker(2)

	_ = b.Do(fail)
	testutil.AssertNoError(t, b.Do(succeed), "success")
	_ = b.Do(fail)
	testutil.AssertEqual(t, b.State(), StateClosed, "failures are consecutive")
}

func TestBreaker_IgnoresNonRetryableErrors(t *testing.T) {
	b, _ := newTestBreaker(1)

	err := b.Do(func() error { return errors.FromStatus(404, "https://crt.sh/") })
	testutil.AssertTrue(t, errors.Is(err, errors.ErrNotFound), "error passed through")
	testutil.AssertEqual(t, b.State(), StateClosed, "404 does not trip")
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	tests := []struct {
		name  string
		trial func() error
		want  State
	}{
		{"trial succeeds", succeed, StateClosed},
		{"trial fails", fail, StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, clk := newTestBreaker(1)
			_ = b.Do(fail)
			testutil.AssertEqual(t, b.State(), StateOpen, "opened")

			clk.advance(30 * time.Second)
			testutil.AssertTrue(t, errors.Is(b.Do(succeed), ErrOpen), "cooldown not over")

			clk.advance(31 * time.Second)
			_ = b.Do(tt.trial)
			testutil.AssertEqual(t, b.State(), tt.want, "after trial")
		})
	}
}

func TestBreaker_HalfOpenLimitsTrials(t *testing.T) {
	b, clk := newTestBreaker(1)
	_ = b.Do(fail)
	clk.advance(2 * time.Minute)

	var second error
	first := b.Do(func() error {
		second = b.Do(succeed)
		return nil
	})
	testutil.AssertNoError(t, first, "trial call")
	testutil.AssertTrue(t, errors.Is(second, ErrOpen), "concurrent trial rejected")
	testutil.AssertEqual(t, b.State(), StateClosed, "closed after trial")
}

func TestState_String(t *testing.T) {
	testutil.AssertEqual(t, StateHalfOpen.String(), "half-open", "half-open")
	testutil.AssertEqual(t, State(9).String(), "unknown", "unknown")
}
