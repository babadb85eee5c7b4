// Package analysis finds the bottlenecks of a trace and turns them into
// optimization advice.
package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/sarchlab/pathtrace/tracing"
)

// Options are the thresholds used by the Analyzer.
type Options struct {
	// Percentages of the total trace duration above which a step is a
	// bottleneck of the given severity.
	CriticalPercent float64
	MajorPercent    float64
	MinorPercent    float64

	// SlowTrace and LongTrace are the total durations above which the
	// duration advisories fire. Only the stricter one fires.
	SlowTrace time.Duration
	LongTrace time.Duration

	// HighMemoryBytes is the memory growth of a single step above which the
	// memory advisory fires.
	HighMemoryBytes int64
}

// DefaultOptions returns the default thresholds.
func DefaultOptions() Options {
	return Options{
		CriticalPercent: 40,
		MajorPercent:    20,
		MinorPercent:    10,
		SlowTrace:       5 * time.Second,
		LongTrace:       time.Second,
		HighMemoryBytes: 50_000_000,
	}
}

// Analyzer classifies steps by their share of the total duration and derives
// recommendations. It implements tracing.TraceAnalyzer.
type Analyzer struct {
	opts Options
}

var _ tracing.TraceAnalyzer = (*Analyzer)(nil)

// NewAnalyzer creates an Analyzer with the default thresholds.
func NewAnalyzer() *Analyzer {
	return NewAnalyzerWithOptions(DefaultOptions())
}

// NewAnalyzerWithOptions creates an Analyzer with custom thresholds.
func NewAnalyzerWithOptions(opts Options) *Analyzer {
	return &Analyzer{opts: opts}
}

// Options returns the thresholds of the analyzer.
func (a *Analyzer) Options() Options {
	return a.opts
}

// Analyze returns the steps that take more than the minor threshold of the
// total duration, sorted by duration in descending order. Steps with equal
// durations keep their original order. A zero total yields no bottleneck.
func (a *Analyzer) Analyze(
	steps []tracing.StepResult,
	total time.Duration,
) []tracing.Bottleneck {
	bottlenecks := []tracing.Bottleneck{}

	if total <= 0 || len(steps) == 0 {
		return bottlenecks
	}

	for _, s := range steps {
		pct := Percentage(s.Duration, total)

		severity, ok := a.Classify(pct)
		if !ok {
			continue
		}

		bottlenecks = append(bottlenecks, tracing.Bottleneck{
			StepName:   s.Name,
			Duration:   s.Duration,
			Percentage: pct,
			Severity:   severity,
			HasError:   s.Failed(),
		})
	}

	sort.SliceStable(bottlenecks, func(i, j int) bool {
		return bottlenecks[i].Duration > bottlenecks[j].Duration
	})

	return bottlenecks
}

// Classify maps a percentage of the total duration to a severity. It returns
// false if the percentage is not high enough to be a bottleneck.
func (a *Analyzer) Classify(pct float64) (tracing.Severity, bool) {
	switch {
	case pct > a.opts.CriticalPercent:
		return tracing.SeverityCritical, true
	case pct > a.opts.MajorPercent:
		return tracing.SeverityMajor, true
	case pct > a.opts.MinorPercent:
		return tracing.SeverityMinor, true
	default:
		return 0, false
	}
}

// Percentage returns d as a percentage of total, rounded to one decimal.
func Percentage(d, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}

	pct := float64(d) / float64(total) * 100

	return math.Round(pct*10) / 10
}
