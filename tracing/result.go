package tracing

import (
	"maps"
	"time"

	"github.com/rs/xid"
)

// A StepResult is the measurement of one executed step.
type StepResult struct {
	Name      string
	Duration  time.Duration
	Value     any
	Err       error
	Timestamp time.Time

	// MemoryDelta is the process memory after the step minus the process
	// memory before the step, in bytes.
	MemoryDelta int64

	IsParallel    bool
	ParallelCount int

	// SubErrors lists the failed members of a parallel step in member order.
	// It is empty for sequential steps and for parallel steps without
	// failures.
	SubErrors []error
}

// Failed returns true if the step did not succeed.
func (r StepResult) Failed() bool {
	return r.Err != nil
}

// Severity classifies how much of a trace a bottleneck consumes.
type Severity int

// Severities, from the mildest to the worst.
const (
	SeverityMinor Severity = iota
	SeverityMajor
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityMinor:
		return "Minor"
	case SeverityMajor:
		return "Major"
	case SeverityCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// A Bottleneck is a step that consumes a disproportionate share of a trace.
type Bottleneck struct {
	StepName string
	Duration time.Duration

	// Percentage is the share of the total trace duration, between 0 and
	// 100, rounded to one decimal.
	Percentage float64
	Severity   Severity
	HasError   bool
}

// A Trace is the complete record of one path execution. Traces are assembled
// once and must not be modified afterwards.
type Trace struct {
	ID              string
	Name            string
	StartedAt       time.Time
	Steps           []StepResult
	TotalDuration   time.Duration
	Bottlenecks     []Bottleneck
	Recommendations []string
	Metadata        map[string]any
}

// TotalDurationMicros returns the total duration in microseconds.
func (t Trace) TotalDurationMicros() int64 {
	return t.TotalDuration.Microseconds()
}

// FailedSteps returns the steps that did not succeed.
func (t Trace) FailedSteps() []StepResult {
	var failed []StepResult
	for _, s := range t.Steps {
		if s.Failed() {
			failed = append(failed, s)
		}
	}

	return failed
}

// StepByName returns the first step with the given name.
func (t Trace) StepByName(name string) (StepResult, bool) {
	for _, s := range t.Steps {
		if s.Name == name {
			return s, true
		}
	}

	return StepResult{}, false
}

// A TraceAnalyzer derives bottlenecks and recommendations from executed
// steps.
type TraceAnalyzer interface {
	// Analyze returns the bottlenecks of the steps, sorted by duration in
	// descending order.
	Analyze(steps []StepResult, total time.Duration) []Bottleneck

	// Recommend returns advice for a trace that has its bottlenecks but not
	// yet its recommendations. It must not have side effects.
	Recommend(t Trace) []string
}

// SumDurations returns the sum of all step durations.
func SumDurations(steps []StepResult) time.Duration {
	var total time.Duration
	for _, s := range steps {
		total += s.Duration
	}

	return total
}

// AssembleTrace builds a complete trace out of executed steps. The analyzer
// may be nil, in which case the trace has no bottlenecks or recommendations.
func AssembleTrace(
	name string,
	startedAt time.Time,
	steps []StepResult,
	metadata map[string]any,
	analyzer TraceAnalyzer,
) Trace {
	t := Trace{
		ID:            xid.New().String(),
		Name:          name,
		StartedAt:     startedAt,
		Steps:         steps,
		TotalDuration: SumDurations(steps),
		Metadata:      buildMetadata(steps, metadata),
	}

	if analyzer == nil {
		return t
	}

	t.Bottlenecks = analyzer.Analyze(t.Steps, t.TotalDuration)
	t.Recommendations = analyzer.Recommend(t)

	return t
}

func buildMetadata(steps []StepResult, extra map[string]any) map[string]any {
	md := make(map[string]any, len(extra)+3)
	maps.Copy(md, extra)

	parallel := 0
	failed := 0
	for _, s := range steps {
		if s.IsParallel {
			parallel++
		}

		if s.Failed() {
			failed++
		}
	}

	md["step_count"] = len(steps)
	md["parallel_steps"] = parallel
	md["failed_steps"] = failed

	return md
}
