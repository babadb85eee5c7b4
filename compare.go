package pathtrace

import (
	"context"
	"fmt"
	"strings"

	"github.com/sarchlab/pathtrace/reporting"
	"github.com/sarchlab/pathtrace/tracing"
)

// A Comparison ranks the traces of several paths.
type Comparison struct {
	// Traces holds one trace per path, in the order the paths were given.
	Traces []tracing.Trace

	Fastest tracing.Trace
	Slowest tracing.Trace

	// GapPercentage is how much slower the slowest trace is than the
	// fastest, in percent. It is 0 when the fastest trace took no time.
	GapPercentage float64
}

// Compare traces every path once, in order, without persisting anything.
// The paths run one after another so that they do not disturb each other's
// timing.
func (t *Tracer) Compare(ctx context.Context, paths []Path) (Comparison, error) {
	if len(paths) == 0 {
		return Comparison{}, fmt.Errorf("nothing to compare")
	}

	tracer := t.withoutPersistence()
	traces := make([]tracing.Trace, 0, len(paths))

	for _, p := range paths {
		trace, err := tracer.Trace(ctx, p)
		if err != nil {
			return Comparison{}, err
		}

		traces = append(traces, trace)
	}

	return Rank(traces), nil
}

// Compare traces the paths with a default tracer.
func Compare(ctx context.Context, paths []Path) (Comparison, error) {
	return MakeTracerBuilder().Build().Compare(ctx, paths)
}

// Rank finds the fastest and the slowest of the traces. The first trace wins
// ties. Rank panics if there are no traces.
func Rank(traces []tracing.Trace) Comparison {
	if len(traces) == 0 {
		panic("no traces to rank")
	}

	fastest, slowest := 0, 0
	for i, trace := range traces {
		if trace.TotalDuration < traces[fastest].TotalDuration {
			fastest = i
		}

		if trace.TotalDuration > traces[slowest].TotalDuration {
			slowest = i
		}
	}

	c := Comparison{
		Traces:  traces,
		Fastest: traces[fastest],
		Slowest: traces[slowest],
	}

	if c.Fastest.TotalDuration > 0 {
		gap := c.Slowest.TotalDuration - c.Fastest.TotalDuration
		c.GapPercentage = float64(gap) / float64(c.Fastest.TotalDuration) * 100
	}

	return c
}

// Render returns a summary of the comparison.
func (c Comparison) Render() string {
	var b strings.Builder

	b.WriteString("=== Path comparison ===\n")

	for i, trace := range c.Traces {
		marker := ""
		switch trace.ID {
		case c.Fastest.ID:
			marker = "  (fastest)"
		case c.Slowest.ID:
			marker = "  (slowest)"
		}

		fmt.Fprintf(&b, "  %d. %-24s %12s  bottlenecks: %d%s\n",
			i+1, trace.Name, reporting.FormatDuration(trace.TotalDuration),
			len(trace.Bottlenecks), marker)
	}

	fmt.Fprintf(&b, "Fastest: %s (%s)\n",
		c.Fastest.Name, reporting.FormatDuration(c.Fastest.TotalDuration))
	fmt.Fprintf(&b, "Slowest: %s (%s)\n",
		c.Slowest.Name, reporting.FormatDuration(c.Slowest.TotalDuration))
	fmt.Fprintf(&b, "Gap: %.1f%%\n", c.GapPercentage)

	return b.String()
}
