package reporting

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sarchlab/pathtrace/tracing"
)

// PersistError is a failure to write a trace to its sink.
type PersistError struct {
	Trace string
	Err   error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist trace %s: %s", e.Trace, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// FailureHandler is told about persistence failures.
type FailureHandler func(t tracing.Trace, err *PersistError)

// Reporter renders traces and, if it has a sink, persists them. Persistence
// failures go to the logger and the failure handler.
type Reporter struct {
	renderer  *Renderer
	sink      Sink
	logger    *slog.Logger
	onFailure FailureHandler
}

// ReporterBuilder can build reporters.
type ReporterBuilder struct {
	renderer  *Renderer
	sink      Sink
	logger    *slog.Logger
	onFailure FailureHandler
}

// MakeReporterBuilder creates a ReporterBuilder with a plain text renderer
// and no sink.
func MakeReporterBuilder() ReporterBuilder {
	return ReporterBuilder{}
}

// WithRenderer sets the renderer.
func (b ReporterBuilder) WithRenderer(r *Renderer) ReporterBuilder {
	b.renderer = r
	return b
}

// WithSink sets where traces are persisted.
func (b ReporterBuilder) WithSink(s Sink) ReporterBuilder {
	b.sink = s
	return b
}

// WithLogger sets the logger.
func (b ReporterBuilder) WithLogger(l *slog.Logger) ReporterBuilder {
	b.logger = l
	return b
}

// WithFailureHandler sets the function told about persistence failures.
func (b ReporterBuilder) WithFailureHandler(h FailureHandler) ReporterBuilder {
	b.onFailure = h
	return b
}

// Build creates the reporter.
func (b ReporterBuilder) Build() *Reporter {
	r := &Reporter{
		renderer:  b.renderer,
		sink:      b.sink,
		logger:    b.logger,
		onFailure: b.onFailure,
	}

	if r.renderer == nil {
		r.renderer = NewRenderer(false)
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	return r
}

// Report renders a trace.
func (r *Reporter) Report(t tracing.Trace) string {
	return r.renderer.Render(t)
}

// HasSink returns true if the reporter persists traces.
func (r *Reporter) HasSink() bool {
	return r.sink != nil
}

// Persist writes a trace to the sink. Without a sink it does nothing.
func (r *Reporter) Persist(ctx context.Context, t tracing.Trace) (string, error) {
	if r.sink == nil {
		return "", nil
	}

	location, err := r.sink.Persist(ctx, NewRecord(t))
	if err != nil {
		perr := &PersistError{Trace: t.Name, Err: err}

		r.logger.Warn("failed to persist trace",
			"trace", t.Name,
			"trace_id", t.ID,
			"error", err,
		)

		if r.onFailure != nil {
			r.onFailure(t, perr)
		}

		return "", perr
	}

	r.logger.Debug("trace persisted",
		"trace", t.Name,
		"trace_id", t.ID,
		"location", location,
	)

	return location, nil
}
