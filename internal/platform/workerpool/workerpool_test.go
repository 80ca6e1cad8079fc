// internal/platform/workerpool/workerpool_test.go
package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"sentinel/internal/testutil"
)

func TestForEach_RunsEveryItem(t *testing.T) {
	p := New(Config{Workers: 3, Name: "test"})
	res := NewResults[int, int](10)

	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	st := ForEach(context.Background(), p, items, func(_ context.Context, n int) error {
		res.Set(n, n*n)
		return nil
	})

	testutil.AssertEqual(t, st.Total, 10, "total")
	testutil.AssertEqual(t, st.Failed, 0, "failed")
	testutil.AssertEqual(t, res.Len(), 10, "results")
	testutil.AssertEqual(t, res.Map()[7], 49, "value for 7")
}

func TestForEach_BoundsConcurrency(t *testing.T) {
	p := New(Config{Workers: 2})
	var inFlight, peak atomic.Int32

	ForEach(context.Background(), p, make([]struct{}, 12), func(context.Context, struct{}) error {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	})

	testutil.AssertTrue(t, peak.Load() <= 2, "never more than 2 workers in flight")
}

func TestForEach_IsolatesErrorsAndPanics(t *testing.T) {
	p := New(Config{Workers: 4})
	res := NewResults[string, bool](4)

	st := ForEach(context.Background(), p, []string{"ok1", "err", "panic", "ok2"}, func(_ context.Context, s string) error {
		switch s {
		case "err":
			return errors.New("boom")
		case "panic":
			panic("kaboom")
		}
		res.Set(s, true)
		return nil
	})

	testutil.AssertEqual(t, st.Failed, 1, "failed")
	testutil.AssertEqual(t, st.Panicked, 1, "panicked")
	testutil.AssertEqual(t, res.Len(), 2, "healthy items still recorded")
}

func TestForEach_CancelledContextSkips(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	st := ForEach(ctx, New(Config{Workers: 2}), []int{1, 2, 3}, func(context.Context, int) error {
		calls.Add(1)
		return nil
	})

	testutil.AssertEqual(t, calls.Load(), int32(0), "no work after cancel")
	testutil.AssertEqual(t, st.Skipped, 3, "skipped")
}
