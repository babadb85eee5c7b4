package monitoring

import (
	"github.com/sarchlab/pathtrace/smoothing"
	"github.com/sarchlab/pathtrace/tracing"
)

// StepProgressHook moves a progress bar as the steps of a path run.
type StepProgressHook struct {
	bar *ProgressBar
}

// NewStepProgressHook creates a hook that drives the bar.
func NewStepProgressHook(bar *ProgressBar) *StepProgressHook {
	return &StepProgressHook{bar: bar}
}

// Func updates the bar.
func (h *StepProgressHook) Func(ctx tracing.HookCtx) {
	switch ctx.Pos {
	case tracing.HookPosStepStart:
		h.bar.IncrementInProgress(1)
	case tracing.HookPosStepEnd:
		h.bar.MoveInProgressToFinished(1)
	}
}

// SmoothingHook publishes the progress and the traces of a smoothing run.
type SmoothingHook struct {
	monitor *Monitor
	bar     *ProgressBar
}

// NewSmoothingHook creates a hook with a progress bar that counts up to the
// iteration limit.
func NewSmoothingHook(m *Monitor, iterationLimit int) *SmoothingHook {
	return &SmoothingHook{
		monitor: m,
		bar: m.CreateProgressBar("smoothing iterations",
			uint64(iterationLimit)),
	}
}

// Bar returns the progress bar of the run.
func (h *SmoothingHook) Bar() *ProgressBar {
	return h.bar
}

// Func records the traces of every iteration, updates the bar, and removes
// the bar when the run ends.
func (h *SmoothingHook) Func(ctx tracing.HookCtx) {
	if ctx.Pos != smoothing.HookPosIterationEnd {
		return
	}

	record, ok := ctx.Item.(smoothing.IterationRecord)
	if !ok {
		return
	}

	for _, t := range record.Traces {
		h.monitor.RecordTrace(t)
	}

	h.bar.IncrementFinished(1)

	if record.Next.Terminal() {
		h.monitor.CompleteProgressBar(h.bar)
	}
}
