// internal/platform/ui/helpers.go
package ui

import (
	"fmt"
	"time"
)

// formatDuration formatea una duración de manera legible
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}

// stateStatus traduce el nombre de un estado de ciclo a un Status.
func stateStatus(state string) Status {
	switch state {
	case "DONE":
		return StatusSuccess
	case "FAILED":
		return StatusError
	default:
		return StatusWarning
	}
}
