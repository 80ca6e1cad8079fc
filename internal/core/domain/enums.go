// internal/core/domain/enums.go
package domain

// State is the orchestrator's position in a cycle.
type State string

const (
	StateIdle          State = "IDLE"
	StateTargetsLoaded State = "TARGETS_LOADED"
	StateEnumerated    State = "ENUMERATED"
	StateProbed        State = "PROBED"
	StateCrawled       State = "CRAWLED"
	StateScanned       State = "SCANNED"
	StatePersisted     State = "PERSISTED"
	StateNotified      State = "NOTIFIED"
	StateDone          State = "DONE"
	StateFailed        State = "FAILED"
)

var happyPath = map[State]State{
	StateIdle:          StateTargetsLoaded,
	StateTargetsLoaded: StateEnumerated,
	StateEnumerated:    StateProbed,
	StateProbed:        StateCrawled,
	StateCrawled:       StateScanned,
	StateScanned:       StatePersisted,
	StatePersisted:     StateNotified,
	StateNotified:      StateDone,
}

func (s State) Terminal() bool { return s == StateDone || s == StateFailed }

// Next returns the successor on the success path ("" for terminal states).
func (s State) Next() State { return happyPath[s] }

// CanTransition allows the success edge and FAILED from any non-terminal state.
func (s State) CanTransition(to State) bool {
	if s.Terminal() {
		return false
	}
	return to == StateFailed || happyPath[s] == to
}

// Phase names as they appear in logs and records.
const (
	PhaseTargets   = "targets"
	PhaseEnumerate = "enumerate"
	PhaseProbe     = "probe"
	PhaseCrawl     = "crawl"
	PhaseScan      = "scan"
	PhaseTriage    = "triage"
	PhasePersist   = "persist"
	PhaseNotify    = "notify"
)

// NotifyStatus is the outcome of one notification attempt.
type NotifyStatus string

const (
	NotifySent    NotifyStatus = "sent"
	NotifySkipped NotifyStatus = "skipped"
	NotifyFailed  NotifyStatus = "failed"
)

// NotifyResult is returned by every notifier; notifiers never return errors.
type NotifyResult struct {
	Channel string       `json:"channel"`
	Status  NotifyStatus `json:"status"`
	Detail  string       `json:"detail,omitempty"`
}
