package analysis

import (
	"fmt"
	"strings"

	"github.com/sarchlab/pathtrace/tracing"
)

// Recommend derives advice from a trace. Each rule contributes at most one
// line, in a fixed order. The result only depends on the trace.
func (a *Analyzer) Recommend(t tracing.Trace) []string {
	recs := []string{}

	if critical := bySeverity(t.Bottlenecks, tracing.SeverityCritical); len(critical) > 0 {
		recs = append(recs, fmt.Sprintf(
			"Critical bottleneck in %s (%.1f%% of total time): "+
				"optimize, cache, or parallelize this step first",
			joinNames(critical), critical[0].Percentage))
	}

	if major := bySeverity(t.Bottlenecks, tracing.SeverityMajor); len(major) > 0 {
		recs = append(recs, fmt.Sprintf(
			"Major bottlenecks in %s: review these steps for "+
				"optimization opportunities",
			joinNames(major)))
	}

	switch {
	case t.TotalDuration > a.opts.SlowTrace:
		recs = append(recs, fmt.Sprintf(
			"Total duration %s exceeds %s: consider splitting the path "+
				"into smaller asynchronous units",
			t.TotalDuration, a.opts.SlowTrace))
	case t.TotalDuration > a.opts.LongTrace:
		recs = append(recs, fmt.Sprintf(
			"Total duration %s exceeds %s: consider caching results or "+
				"running independent steps in parallel",
			t.TotalDuration, a.opts.LongTrace))
	}

	if step, ok := a.largestMemoryStep(t.Steps); ok {
		recs = append(recs, fmt.Sprintf(
			"High memory growth in %s (+%.1f MB): consider streaming data "+
				"or reducing allocations",
			step.Name, float64(step.MemoryDelta)/1e6))
	}

	if failed := t.FailedSteps(); len(failed) > 0 {
		recs = append(recs, fmt.Sprintf(
			"%d step(s) failed (%s): add retry logic and error handling",
			len(failed), joinStepNames(failed)))
	}

	return recs
}

func (a *Analyzer) largestMemoryStep(
	steps []tracing.StepResult,
) (tracing.StepResult, bool) {
	var (
		largest tracing.StepResult
		found   bool
	)

	for _, s := range steps {
		if s.MemoryDelta <= a.opts.HighMemoryBytes {
			continue
		}

		if !found || s.MemoryDelta > largest.MemoryDelta {
			largest = s
			found = true
		}
	}

	return largest, found
}

func bySeverity(
	bottlenecks []tracing.Bottleneck,
	severity tracing.Severity,
) []tracing.Bottleneck {
	var selected []tracing.Bottleneck
	for _, b := range bottlenecks {
		if b.Severity == severity {
			selected = append(selected, b)
		}
	}

	return selected
}

func joinNames(bottlenecks []tracing.Bottleneck) string {
	names := make([]string, 0, len(bottlenecks))
	for _, b := range bottlenecks {
		names = append(names, b.StepName)
	}

	return strings.Join(names, ", ")
}

func joinStepNames(steps []tracing.StepResult) string {
	names := make([]string, 0, len(steps))
	for _, s := range steps {
		names = append(names, s.Name)
	}

	return strings.Join(names, ", ")
}
