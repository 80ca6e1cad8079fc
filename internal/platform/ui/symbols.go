// internal/platform/ui/symbols.go
package ui

import "github.com/pterm/pterm"

// Status es cómo terminó una fase, tal como se muestra en consola.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusSuccess
	StatusWarning
	StatusError
	StatusSkipped
)

type statusLook struct {
	name   string
	symbol string
	color  pterm.Color
}

var statusLooks = map[Status]statusLook{
	StatusPending: {"pending", "⏸", pterm.FgGray},
	StatusRunning: {"running", "⣾", pterm.FgCyan},
	StatusSuccess: {"success", "✓", pterm.FgGreen},
	StatusWarning: {"warning", "⚠", pterm.FgYellow},
	StatusError:   {"error", "✗", pterm.FgRed},
	StatusSkipped: {"skipped", "⊘", pterm.FgGray},
}

func (s Status) look() statusLook {
	if l, ok := statusLooks[s]; ok {
		return l
	}
	return statusLook{"unknown", "?", pterm.FgDefault}
}

func (s Status) String() string      { return s.look().name }
func (s Status) Symbol() string      { return s.look().symbol }
func (s Status) Color() pterm.Color  { return s.look().color }
func (s Status) Style() *pterm.Style { return pterm.NewStyle(s.Color()) }

// Iconos de la cabecera del ciclo y de las cajas de resumen.
const (
	IconTarget   = "🎯"
	IconPhase    = "🔄"
	IconTime     = "⏱"
	IconHosts    = "🌐"
	IconFindings = "🔥"
	IconWorkers  = "⚙️"
	IconRecord   = "💾"
)

const SeparatorHeavy = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"
