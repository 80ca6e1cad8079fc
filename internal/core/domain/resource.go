// internal/core/domain/resource.go
package domain

import "sort"

type ResourceKind string

const (
	ResourcePage   ResourceKind = "page"
	ResourceScript ResourceKind = "script"
)

func (k ResourceKind) IsValid() bool {
	return k == ResourcePage || k == ResourceScript
}

// Resource is a URL discovered on a live host.
type Resource struct {
	URL  string       `json:"url"`
	Host Host         `json:"host"`
	Kind ResourceKind `json:"kind"`
}

// ResourceSet is keyed by normalised URL.
type ResourceSet map[string]Resource

func (s ResourceSet) Add(r Resource) bool {
	if _, ok := s[r.URL]; ok {
		return false
	}
	s[r.URL] = r
	return true
}

func (s ResourceSet) Sorted() []Resource {
	out := make([]Resource, 0, len(s))
	for _, r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

// SiteMap maps each live host to what was found on it.
type SiteMap map[Host]ResourceSet

// Resources flattens the map, ordered by URL.
func (m SiteMap) Resources() []Resource {
	all := make(ResourceSet)
	for _, rs := range m {
		for _, r := range rs {
			all.Add(r)
		}
	}
	return all.Sorted()
}

// CrawledHosts counts hosts that yielded at least one resource.
func (m SiteMap) CrawledHosts() int {
	n := 0
	for _, rs := range m {
		if len(rs) > 0 {
			n++
		}
	}
	return n
}
