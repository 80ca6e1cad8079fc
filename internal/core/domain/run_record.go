// internal/core/domain/run_record.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Counts are the per-phase cardinalities of one cycle.
type Counts struct {
	Targets       int `json:"targets"`
	Candidates    int `json:"candidates"`
	AliveHosts    int `json:"alive_hosts"`
	CrawledHosts  int `json:"crawled_hosts"`
	Resources     int `json:"resources"`
	FindingsTotal int `json:"findings_total"`
	Validated     int `json:"validated"`
}

// PhaseResult records timing and outcome of one phase.
type PhaseResult struct {
	Name       string    `json:"name"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Count      int       `json:"count"`
	Error      string    `json:"error,omitempty"`
}

// Triage is the optional AI summary of a cycle.
type Triage struct {
	Model     string `json:"model"`
	Summary   string `json:"summary"`
	RiskScore int    `json:"risk_score"`
}

// RunRecord is the durable summary of one cycle. It is built while the
// cycle runs and frozen once handed to the reporters.
type RunRecord struct {
	RunID       string    `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
	State       State     `json:"state"`
	FailedPhase string    `json:"failed_phase,omitempty"`
	Error       string    `json:"error,omitempty"`

	Counts

	Scope     []Target      `json:"scope"`
	LiveHosts []Host        `json:"live_hosts"`
	Phases    []PhaseResult `json:"phases"`
	Findings  []Finding     `json:"findings"`
	Triage    *Triage       `json:"triage,omitempty"`
}

// NewRunRecord starts a record with a fresh UUID.
func NewRunRecord(now time.Time) *RunRecord {
	return &RunRecord{
		RunID:     uuid.NewString(),
		StartedAt: now.UTC(),
		State:     StateIdle,
		Scope:     []Target{},
		LiveHosts: []Host{},
		Phases:    []PhaseResult{},
		Findings:  []Finding{},
	}
}

// ShortID is the first block of the run id, used in file names.
func (r *RunRecord) ShortID() string {
	if len(r.RunID) >= 8 {
		return r.RunID[:8]
	}
	return r.RunID
}

func (r *RunRecord) Failed() bool { return r.State == StateFailed }

// SeverityCounts tallies the record's findings.
func (r *RunRecord) SeverityCounts() map[Severity]int { return CountBySeverity(r.Findings) }

// Clone returns a deep copy so sinks can never mutate the orchestrator's record.
func (r *RunRecord) Clone() *RunRecord {
	c := *r
	c.Scope = cloneSlice(r.Scope)
	c.LiveHosts = cloneSlice(r.LiveHosts)
	c.Phases = cloneSlice(r.Phases)
	c.Findings = cloneSlice(r.Findings)
	if r.Triage != nil {
		t := *r.Triage
		c.Triage = &t
	}
	return &c
}

// cloneSlice never returns nil so empty lists encode as [].
func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
