// internal/platform/ui/noop_presenter.go
package ui

// NoopPresenter no produce salida. Se usa con --quiet y en tests.
type NoopPresenter struct{}

func NewNoopPresenter() *NoopPresenter { return &NoopPresenter{} }

func (NoopPresenter) Start(CycleInfo)          {}
func (NoopPresenter) StartPhase(string)        {}
func (NoopPresenter) FinishPhase(PhaseOutcome) {}
func (NoopPresenter) Info(string)              {}
func (NoopPresenter) Warning(string)           {}
func (NoopPresenter) Error(string)             {}
func (NoopPresenter) Finish(CycleStats)        {}
func (NoopPresenter) Close() error             { return nil }
