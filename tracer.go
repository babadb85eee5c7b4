package pathtrace

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sarchlab/pathtrace/analysis"
	"github.com/sarchlab/pathtrace/reporting"
	"github.com/sarchlab/pathtrace/tracing"
)

// Tracer runs paths and turns the measurements into analyzed traces.
type Tracer struct {
	engine   *tracing.Engine
	analyzer tracing.TraceAnalyzer
	reporter *reporting.Reporter
	logger   *slog.Logger
}

// Trace executes a path and returns its complete trace. Failing steps are
// part of the trace. The only error returned is a *tracing.SpecError for a
// malformed path, in which case nothing runs.
//
// If the tracer has a reporter with a sink, the trace is persisted before it
// is returned. Persistence failures are left to the reporter and never fail
// the trace.
func (t *Tracer) Trace(ctx context.Context, p Path) (tracing.Trace, error) {
	startedAt := time.Now()

	steps, err := t.engine.Execute(ctx, p.Steps)
	if err != nil {
		return tracing.Trace{}, fmt.Errorf("path %q: %w", p.Name, err)
	}

	trace := tracing.AssembleTrace(p.Name, startedAt, steps, p.Metadata,
		t.analyzer)

	t.logger.Debug("path traced",
		"path", trace.Name,
		"trace_id", trace.ID,
		"total_us", trace.TotalDurationMicros(),
		"bottlenecks", len(trace.Bottlenecks),
		"failed_steps", len(trace.FailedSteps()),
	)

	if t.reporter != nil && t.reporter.HasSink() {
		_, _ = t.reporter.Persist(ctx, trace)
	}

	return trace, nil
}

// Report renders a trace with the reporter of the tracer.
func (t *Tracer) Report(trace tracing.Trace) string {
	if t.reporter == nil {
		return reporting.NewRenderer(false).Render(trace)
	}

	return t.reporter.Report(trace)
}

// Engine returns the engine that executes the steps.
func (t *Tracer) Engine() *tracing.Engine {
	return t.engine
}

// withoutPersistence returns a tracer that shares everything but the sink.
func (t *Tracer) withoutPersistence() *Tracer {
	clone := *t
	clone.reporter = nil

	return &clone
}

// TracerBuilder can build tracers.
type TracerBuilder struct {
	engine   *tracing.Engine
	analyzer tracing.TraceAnalyzer
	reporter *reporting.Reporter
	logger   *slog.Logger
}

// MakeTracerBuilder creates a TracerBuilder with a default engine and the
// default analyzer.
func MakeTracerBuilder() TracerBuilder {
	return TracerBuilder{}
}

// WithEngine sets the engine that executes the steps.
func (b TracerBuilder) WithEngine(e *tracing.Engine) TracerBuilder {
	b.engine = e
	return b
}

// WithAnalyzer sets the analyzer that annotates traces.
func (b TracerBuilder) WithAnalyzer(a tracing.TraceAnalyzer) TracerBuilder {
	b.analyzer = a
	return b
}

// WithReporter sets the reporter that renders and persists traces.
func (b TracerBuilder) WithReporter(r *reporting.Reporter) TracerBuilder {
	b.reporter = r
	return b
}

// WithLogger sets the logger.
func (b TracerBuilder) WithLogger(l *slog.Logger) TracerBuilder {
	b.logger = l
	return b
}

// Build creates the tracer.
func (b TracerBuilder) Build() *Tracer {
	t := &Tracer{
		engine:   b.engine,
		analyzer: b.analyzer,
		reporter: b.reporter,
		logger:   b.logger,
	}

	if t.engine == nil {
		t.engine = tracing.MakeBuilder().Build()
	}

	if t.analyzer == nil {
		t.analyzer = analysis.NewAnalyzer()
	}

	if t.logger == nil {
		t.logger = slog.Default()
	}

	return t
}
