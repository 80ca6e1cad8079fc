// internal/platform/workerpool/workerpool.go
package workerpool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"sentinel/internal/platform/logx"
)

// Config configures a Pool.
type Config struct {
	Workers int
	Name    string
	Logger  logx.Logger
}

// Pool bounds fan-out for one phase. It is stateless between calls and safe
// to share.
type Pool struct {
	workers int
	logger  logx.Logger
}

func New(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = logx.Discard()
	}
	if cfg.Name == "" {
		cfg.Name = "pool"
	}
	return &Pool{
		workers: cfg.Workers,
		logger:  cfg.Logger.With("pool", cfg.Name),
	}
}

func (p *Pool) Workers() int { return p.workers }

// Stats summarises one ForEach call.
type Stats struct {
	Total    int
	Failed   int
	Panicked int
	Skipped  int
	Duration time.Duration
}

// ForEach runs fn for every item with at most p.Workers() in flight.
// An item's error or panic is logged and counted; it never cancels the other
// items. Once ctx is done, items not yet started are skipped.
func ForEach[T any](ctx context.Context, p *Pool, items []T, fn func(context.Context, T) error) Stats {
	start := time.Now()
	var failed, panicked, skipped atomic.Int64

	var g errgroup.Group
	g.SetLimit(p.workers)

	for _, item := range items {
		if ctx.Err() != nil {
			skipped.Add(1)
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				skipped.Add(1)
				return nil
			}
			defer func() {
				if r := recover(); r != nil {
					panicked.Add(1)
					p.logger.Warn("worker panic recovered", "item", fmt.Sprint(item), "panic", fmt.Sprint(r))
					p.logger.Debug("panic stack", "stack", string(debug.Stack()))
				}
			}()
			if err := fn(ctx, item); err != nil {
				failed.Add(1)
				p.logger.Debug("item failed", "item", fmt.Sprint(item), "error", err.Error())
			}
			return nil
		})
	}
	_ = g.Wait()

	st := Stats{
		Total:    len(items),
		Failed:   int(failed.Load()),
		Panicked: int(panicked.Load()),
		Skipped:  int(skipped.Load()),
		Duration: time.Since(start),
	}
	p.logger.Debug("pool drained", "total", st.Total, "failed", st.Failed, "panicked", st.Panicked,
		"skipped", st.Skipped, "duration_ms", st.Duration.Milliseconds())
	return st
}

// Results is a mutex-guarded map each worker writes its own key into.
type Results[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]V
}

func NewResults[K comparable, V any](hint int) *Results[K, V] {
	return &Results[K, V]{m: make(map[K]V, hint)}
}

func (r *Results[K, V]) Set(k K, v V) {
	r.mu.Lock()
	r.m[k] = v
	r.mu.Unlock()
}

// Map returns the collected entries. Call it after ForEach returns.
func (r *Results[K, V]) Map() map[K]V {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[K]V, len(r.m))
	for k, v := range r.m {
		out[k] = v
	}
	return out
}

func (r *Results[K, V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}
