// internal/core/domain/finding.go
package domain

import (
	"sort"
	"strings"
	"time"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities; unknown values rank lowest.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

func (s Severity) IsValid() bool { return s.Rank() > 0 }

// ParseSeverity is case-insensitive.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if !sev.IsValid() {
		return "", ErrInvalidSeverity
	}
	return sev, nil
}

// Finding is one heuristic match on a resource.
type Finding struct {
	Source    string    `json:"source"`
	Host      Host      `json:"host,omitempty"`
	Category  string    `json:"category"`
	Severity  Severity  `json:"severity"`
	Validated bool      `json:"validated"`
	Rule      string    `json:"rule,omitempty"`
	Payload   string    `json:"payload,omitempty"`
	Evidence  string    `json:"evidence,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SortFindings orders by severity (highest first), then source and category.
func SortFindings(fs []Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Category < b.Category
	})
}

// CountBySeverity tallies findings per severity.
func CountBySeverity(fs []Finding) map[Severity]int {
	out := make(map[Severity]int, 4)
	for _, f := range fs {
		out[f.Severity]++
	}
	return out
}

// Validated filters confirmed findings.
func Validated(fs []Finding) []Finding {
	var out []Finding
	for _, f := range fs {
		if f.Validated {
			out = append(out, f)
		}
	}
	return out
}
