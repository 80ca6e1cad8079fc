// internal/platform/registry/registry.go
package registry

import (
	"fmt"
	"sort"
	"sync"

	"sentinel/internal/platform/errors"
	"sentinel/internal/platform/logx"
)

// Factory builds one named implementation from its dependencies.
type Factory[T any, D any] func(deps D) (T, error)

// Registry maps names to factories. Packages register their variants from
// init() and the pipeline builds the configured subset by name.
type Registry[T any, D any] struct {
	kind string

	mu        sync.RWMutex
	factories map[string]Factory[T, D]
	about     map[string]string
}

// New creates an empty registry; kind only appears in messages ("policy").
func New[T any, D any](kind string) *Registry[T, D] {
	return &Registry[T, D]{
		kind:      kind,
		factories: make(map[string]Factory[T, D]),
		about:     make(map[string]string),
	}
}

func (r *Registry[T, D]) Register(name, description string, f Factory[T, D]) error {
	if name == "" {
		return errors.Wrapf(errors.ErrInvalidInput, "%s name cannot be empty", r.kind)
	}
	if f == nil {
		return errors.Wrapf(errors.ErrInvalidInput, "nil factory for %s %s", r.kind, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[name]; dup {
		return fmt.Errorf("%s %s is already registered", r.kind, name)
	}
	r.factories[name] = f
	r.about[name] = description
	return nil
}

// MustRegister panics on error; meant for init().
func (r *Registry[T, D]) MustRegister(name, description string, f Factory[T, D]) {
	if err := r.Register(name, description, f); err != nil {
		panic(err)
	}
}

// Build instantiates names in order. Unknown names and factory failures are
// logged and skipped; it fails only when nothing could be built.
func (r *Registry[T, D]) Build(names []string, deps D, logger logx.Logger) ([]T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, 0, len(names))
	var errs []error
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		f, ok := r.factories[name]
		if !ok {
			errs = append(errs, errors.Wrapf(errors.ErrNotFound, "%s %q", r.kind, name))
			logger.Warn(r.kind+" not registered, skipping", "name", name)
			continue
		}
		v, err := f(deps)
		if err != nil {
			errs = append(errs, errors.Wrapf(err, "build %s %s", r.kind, name))
			logger.Warn(r.kind+" build failed, skipping", "name", name, "error", err.Error())
			continue
		}
		out = append(out, v)
	}

	if len(out) == 0 {
		if len(errs) == 0 {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "no %s configured", r.kind)
		}
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// List returns registered names sorted.
func (r *Registry[T, D]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry[T, D]) Describe(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.about[name]
	return d, ok
}
