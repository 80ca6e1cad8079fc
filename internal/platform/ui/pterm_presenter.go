// internal/platform/ui/pterm_presenter.go
package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pterm/pterm"
)

// PTermPresenter implementa Presenter usando pterm: banner, un spinner por
// fase y una caja de resumen al final.
type PTermPresenter struct {
	mu sync.Mutex

	cycleStart time.Time
	bannerDone bool
	spinner    *pterm.SpinnerPrinter
	phase      string
}

func NewPTermPresenter() *PTermPresenter {
	return &PTermPresenter{}
}

func (p *PTermPresenter) Start(info CycleInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cycleStart = time.Now()
	if !p.bannerDone {
		pterm.Println(StylePrimary.Sprint(SentinelBanner))
		p.bannerDone = true
	}

	title := "Digital Sentinel"
	if info.Cycle > 0 {
		title = fmt.Sprintf("Digital Sentinel - cycle %d", info.Cycle)
	}
	pterm.DefaultHeader.
		WithBackgroundStyle(pterm.NewStyle(pterm.BgBlue)).
		WithTextStyle(pterm.NewStyle(pterm.FgBlack)).
		Println(title)

	content := fmt.Sprintf("%s Targets: %s\n", IconTarget, pterm.Cyan(info.TargetsFile))
	content += fmt.Sprintf("%s Workers: %d\n", IconWorkers, info.Workers)
	if len(info.Policies) > 0 {
		content += fmt.Sprintf("   Policies: %s\n", pterm.Yellow(strings.Join(info.Policies, ", ")))
	}
	content += fmt.Sprintf("%s Phases: %s\n", IconPhase, strings.Join(info.Phases, " → "))
	content += fmt.Sprintf("   Run: %s", StyleSecondary.Sprint(info.RunID))

	pterm.DefaultBox.
		WithTitle("Cycle").
		WithTitleTopCenter().
		WithRightPadding(4).
		WithLeftPadding(4).
		WithBoxStyle(pterm.NewStyle(pterm.FgCyan)).
		Println(content)
	pterm.Println()
}

func (p *PTermPresenter) StartPhase(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopSpinner()
	p.phase = name
	p.spinner, _ = pterm.DefaultSpinner.
		WithStyle(pterm.NewStyle(pterm.FgCyan)).
		WithSequence("⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷").
		WithRemoveWhenDone(true).
		Start(fmt.Sprintf("  %s Running %s...", StatusRunning.Symbol(), pterm.Cyan(name)))
}

func (p *PTermPresenter) FinishPhase(r PhaseOutcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.phase == r.Name {
		p.stopSpinner()
	}
	p.renderPhaseLine(r)
}

func (p *PTermPresenter) Info(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pterm.Info.Println(msg)
}

func (p *PTermPresenter) Warning(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pterm.Warning.Println(msg)
}

func (p *PTermPresenter) Error(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pterm.Error.Println(msg)
}

func (p *PTermPresenter) Finish(stats CycleStats) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopSpinner()
	pterm.Println()
	pterm.Println(StylePrimary.Sprint(SeparatorHeavy))

	status := stateStatus(stats.State)
	content := fmt.Sprintf("%s State: %s\n", status.Symbol(), status.Style().Sprint(stats.State))
	content += fmt.Sprintf("%s Duration: %s\n", IconTime, StyleSuccess.Sprint(formatDuration(stats.Duration)))
	content += fmt.Sprintf("%s Targets: %d   Live hosts: %d   Resources: %d\n", IconHosts, stats.Targets, stats.AliveHosts, stats.Resources)
	findings := fmt.Sprintf("%d (%d validated)", stats.Findings, stats.Validated)
	if stats.Validated > 0 {
		findings = StyleError.Sprint(findings)
	}
	content += fmt.Sprintf("%s Findings: %s", IconFindings, findings)
	if stats.Location != "" {
		content += fmt.Sprintf("\n%s Record: %s", IconRecord, pterm.Cyan(stats.Location))
	}

	pterm.DefaultBox.
		WithTitle("Cycle Summary").
		WithTitleTopCenter().
		WithRightPadding(4).
		WithLeftPadding(4).
		WithBoxStyle(pterm.NewStyle(status.Color())).
		Println(content)
	pterm.Println()
}

func (p *PTermPresenter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopSpinner()
	return nil
}

// stopSpinner requiere p.mu tomado.
func (p *PTermPresenter) stopSpinner() {
	if p.spinner != nil {
		_ = p.spinner.Stop()
		p.spinner = nil
	}
	p.phase = ""
}

func (p *PTermPresenter) renderPhaseLine(r PhaseOutcome) {
	line := fmt.Sprintf("  %s %-10s", r.Status.Symbol(), r.Name)
	if r.Duration > 0 {
		line += fmt.Sprintf(" (%s)", formatDuration(r.Duration))
	}
	if r.Status != StatusSkipped {
		line += fmt.Sprintf(" %d", r.Count)
	}
	if r.Detail != "" {
		line += " " + StyleSecondary.Sprint(r.Detail)
	}
	r.Status.Style().Println(line)
}
