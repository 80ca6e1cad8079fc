// internal/core/ports/repository.go
package ports

import (
	"context"
	"time"

	"sentinel/internal/core/domain"
)

// RecordWriter persists a finished record and returns where it went.
type RecordWriter interface {
	Name() string
	Persist(ctx context.Context, rec *domain.RunRecord) (string, error)
}

// RunSummary is one row of the run history.
type RunSummary struct {
	RunID       string
	StartedAt   time.Time
	EndedAt     time.Time
	State       domain.State
	FailedPhase string
	Counts      domain.Counts
}

// RunRepository is the queryable history of past cycles.
type RunRepository interface {
	RecordWriter
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
	GetRun(ctx context.Context, runID string) (*domain.RunRecord, error)
	CategoryCounts(ctx context.Context) (map[string]int, error)
	Close() error
}
