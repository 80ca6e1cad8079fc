// internal/core/domain/target.go
package domain

import (
	"sort"
	"strings"
)

// Target is a root domain listed in the targets file.
type Target string

// Host is a name derived from a Target: the Target itself or a sub-name.
type Host string

func (t Target) String() string { return string(t) }
func (h Host) String() string   { return string(h) }

// Covers reports whether h is t or one of its sub-names.
func (t Target) Covers(h Host) bool {
	hs, ts := string(h), string(t)
	return hs == ts || strings.HasSuffix(hs, "."+ts)
}

// Set is an unordered collection of unique names.
type Set[T ~string] map[T]struct{}

func NewSet[T ~string](items ...T) Set[T] {
	s := make(Set[T], len(items))
	for _, v := range items {
		s[v] = struct{}{}
	}
	return s
}

// Add inserts v and reports whether it was new.
func (s Set[T]) Add(v T) bool {
	if _, ok := s[v]; ok {
		return false
	}
	s[v] = struct{}{}
	return true
}

func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

func (s Set[T]) Len() int { return len(s) }

func (s Set[T]) Union(o Set[T]) {
	for v := range o {
		s[v] = struct{}{}
	}
}

// Sorted returns members in lexical order.
func (s Set[T]) Sorted() []T {
	out := make([]T, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type (
	TargetSet = Set[Target]
	HostSet   = Set[Host]
)

// Enumeration maps each Target to its candidate hosts.
type Enumeration map[Target]HostSet

// Candidates flattens the enumeration into one host set.
func (e Enumeration) Candidates() HostSet {
	out := make(HostSet)
	for _, hs := range e {
		out.Union(hs)
	}
	return out
}
