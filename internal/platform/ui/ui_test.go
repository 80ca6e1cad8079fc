// internal/platform/ui/ui_test.go
package ui

import (
	"testing"
	"time"

	"github.com/pterm/pterm"
)

var (
	_ Presenter = (*PTermPresenter)(nil)
	_ Presenter = (*NoopPresenter)(nil)
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{125 * time.Second, "2m5s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStateStatus(t *testing.T) {
	if stateStatus("DONE") != StatusSuccess || stateStatus("FAILED") != StatusError || stateStatus("SCANNED") != StatusWarning {
		t.Error("unexpected state mapping")
	}
}

func TestStatusSymbols(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusRunning, StatusSuccess, StatusWarning, StatusError, StatusSkipped} {
		if s.Symbol() == "?" || s.String() == "unknown" {
			t.Errorf("status %d has no symbol/name", s)
		}
	}
}

func TestPTermPresenter_FullCycle(t *testing.T) {
	pterm.DisableOutput()
	defer pterm.EnableOutput()

	p := NewPTermPresenter()
	p.Start(CycleInfo{RunID: "r", Cycle: 1, TargetsFile: "t.txt", Workers: 2, Phases: []string{"targets", "probe"}})
	p.StartPhase("probe")
	p.Warning("slow host")
	p.FinishPhase(PhaseOutcome{Name: "probe", Status: StatusSuccess, Duration: time.Millisecond, Count: 2})
	p.FinishPhase(PhaseOutcome{Name: "notify", Status: StatusSkipped, Detail: "no webhook"})
	p.Finish(CycleStats{State: "DONE", Duration: time.Second, AliveHosts: 2})

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if p.spinner != nil {
		t.Error("spinner should be stopped")
	}
}
