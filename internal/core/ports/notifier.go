// internal/core/ports/notifier.go
package ports

import (
	"context"

	"sentinel/internal/core/domain"
)

// Notifier delivers a cycle summary to one channel. It must not panic or
// block past ctx; every outcome is reported in the result.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, rec *domain.RunRecord) domain.NotifyResult
}

// Summarizer produces the optional triage block of a record.
type Summarizer interface {
	Summarize(ctx context.Context, rec *domain.RunRecord) (*domain.Triage, error)
}
