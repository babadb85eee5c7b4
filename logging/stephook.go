package logging

import (
	"log/slog"

	"github.com/sarchlab/pathtrace/tracing"
)

// StepLogHook logs every step that starts and ends.
type StepLogHook struct {
	logger *slog.Logger
}

// NewStepLogHook creates a StepLogHook.
func NewStepLogHook(logger *slog.Logger) *StepLogHook {
	return &StepLogHook{logger: logger}
}

// Func logs a step event.
func (h *StepLogHook) Func(ctx tracing.HookCtx) {
	e, ok := ctx.Item.(tracing.StepEvent)
	if !ok {
		return
	}

	attrs := []any{
		"index", e.Index,
		"step", e.Name,
		"parallel", e.Parallel,
		"status", e.Status.String(),
	}

	switch ctx.Pos {
	case tracing.HookPosStepStart:
		h.logger.Debug("step started", attrs...)
	case tracing.HookPosStepEnd:
		if e.Result == nil {
			return
		}

		attrs = append(attrs,
			"duration_us", e.Result.Duration.Microseconds(),
			"memory_delta", e.Result.MemoryDelta,
		)

		if e.Result.Failed() {
			attrs = append(attrs, "error", e.Result.Err.Error())
			h.logger.Warn("step failed", attrs...)

			return
		}

		h.logger.Debug("step succeeded", attrs...)
	}
}
