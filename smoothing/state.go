package smoothing

import (
	"time"

	"github.com/sarchlab/pathtrace/tracing"
)

// Phase is where a smoothing run is in its loop.
type Phase int

// All the phases.
const (
	PhaseTracing Phase = iota
	PhaseAnalyzing
	PhaseOptimizing
	PhaseConverged
	PhaseIterationLimitReached
)

func (p Phase) String() string {
	switch p {
	case PhaseTracing:
		return "tracing"
	case PhaseAnalyzing:
		return "analyzing"
	case PhaseOptimizing:
		return "optimizing"
	case PhaseConverged:
		return "converged"
	case PhaseIterationLimitReached:
		return "iteration limit reached"
	default:
		return "unknown"
	}
}

// Terminal returns true if the run ends in this phase.
func (p Phase) Terminal() bool {
	return p == PhaseConverged || p == PhaseIterationLimitReached
}

// Outcome is how a run ended.
type Outcome int

// All the outcomes.
const (
	Converged Outcome = iota
	IterationLimitReached
)

func (o Outcome) String() string {
	if o == Converged {
		return "converged"
	}

	return "iteration limit reached"
}

// A Candidate is a bottleneck that dominates its path enough to be
// optimized.
type Candidate struct {
	Path       string
	Bottleneck tracing.Bottleneck
	PathTotal  time.Duration

	// Share is the duration of the bottleneck over the total of its path.
	Share float64
}

// An Optimization is a simulated fix applied to a candidate.
type Optimization struct {
	Iteration int
	Path      string
	Step      string
	Label     string
}

// State is the loop state of one run.
type State struct {
	Iteration int
	Phase     Phase

	// TotalTime is the sum of the trace totals of the current iteration, in
	// milliseconds.
	TotalTime         float64
	PreviousTotalTime float64

	Traces               []tracing.Trace
	Bottlenecks          []Candidate
	OptimizationsApplied int
}

func newState() *State {
	return &State{Iteration: 1, Phase: PhaseTracing}
}

// Improvement compares the current iteration to the previous one. It is 0
// when there is no previous time.
func (s *State) Improvement() float64 {
	if s.PreviousTotalTime <= 0 {
		return 0
	}

	return 1 - s.TotalTime/s.PreviousTotalTime
}

// IterationRecord summarizes one finished iteration.
type IterationRecord struct {
	Iteration            int
	TotalTime            float64
	Improvement          float64
	Bottlenecks          int
	OptimizationsApplied int
	Optimizations        []Optimization
	Traces               []tracing.Trace

	// Next is the phase the run moves to after this iteration.
	Next Phase
}

// Result is the outcome of a run.
type Result struct {
	Outcome     Outcome
	Iterations  int
	TotalTime   float64
	Improvement float64

	Bottlenecks   []Candidate
	Traces        []tracing.Trace
	Optimizations int
	History       []IterationRecord
	Summary       string
}
