// internal/platform/ui/presenter.go
package ui

import (
	"time"
)

// Presenter muestra el progreso de un ciclo del pipeline en la terminal.
// Las implementaciones deben ser seguras para uso concurrente.
type Presenter interface {
	// Start abre la presentación de un ciclo.
	Start(info CycleInfo)

	// StartPhase marca el inicio de una fase.
	StartPhase(name string)

	// FinishPhase cierra una fase con su resultado.
	FinishPhase(result PhaseOutcome)

	Info(msg string)
	Warning(msg string)
	Error(msg string)

	// Finish muestra el resumen final del ciclo.
	Finish(stats CycleStats)

	Close() error
}

// CycleInfo describe el ciclo que va a empezar.
type CycleInfo struct {
	RunID       string
	Cycle       int
	TargetsFile string
	Workers     int
	Policies    []string
	Phases      []string
}

// PhaseOutcome es lo que una fase terminada reporta a la UI.
type PhaseOutcome struct {
	Name     string
	Status   Status
	Duration time.Duration
	Count    int
	Detail   string
}

// CycleStats es el resumen final de un ciclo.
type CycleStats struct {
	State      string
	Duration   time.Duration
	Targets    int
	AliveHosts int
	Resources  int
	Findings   int
	Validated  int
	Location   string
}
