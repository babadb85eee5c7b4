package smoothing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sarchlab/pathtrace"
	"github.com/sarchlab/pathtrace/reporting"
	"github.com/sarchlab/pathtrace/services"
	"github.com/sarchlab/pathtrace/tracing"
)

// HookPosIterationEnd triggers after every iteration. The item is an
// IterationRecord.
var HookPosIterationEnd = &tracing.HookPos{Name: "IterationEnd"}

// Smoother runs the smoothing loop. Every call to Run starts from a fresh
// state with an empty cache, so a Smoother can be reused and runs do not
// share counters or cached values.
type Smoother struct {
	*tracing.HookableBase

	config  Config
	tracer  *pathtrace.Tracer
	battery Battery
	cache   services.Cache
	logger  *slog.Logger
}

// Config returns the policy of the smoother.
func (s *Smoother) Config() Config {
	return s.config
}

// Run drives the loop until it converges or reaches the iteration limit. It
// stops between phases when the context is done.
func (s *Smoother) Run(ctx context.Context) (Result, error) {
	if s.cache != nil {
		s.cache.Clear()
	}

	state := newState()
	var (
		history []IterationRecord
		applied []Optimization
	)

	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		s.logPhase(state)

		switch state.Phase {
		case PhaseTracing:
			if err := s.trace(ctx, state); err != nil {
				return Result{}, err
			}
			state.Phase = PhaseAnalyzing

		case PhaseAnalyzing:
			s.analyze(state)
			state.Phase = PhaseOptimizing

		case PhaseOptimizing:
			applied = s.optimize(state)
			state.Phase = s.next(state)

			record := IterationRecord{
				Iteration:            state.Iteration,
				TotalTime:            state.TotalTime,
				Improvement:          state.Improvement(),
				Bottlenecks:          len(state.Bottlenecks),
				OptimizationsApplied: state.OptimizationsApplied,
				Optimizations:        applied,
				Traces:               state.Traces,
				Next:                 state.Phase,
			}
			history = append(history, record)
			s.InvokeHook(tracing.HookCtx{
				Domain: s,
				Pos:    HookPosIterationEnd,
				Item:   record,
			})

			if state.Phase.Terminal() {
				return s.finish(state, history), nil
			}

			if err := wait(ctx, s.config.Pause); err != nil {
				return Result{}, err
			}

			state.PreviousTotalTime = state.TotalTime
			state.Iteration++
		}
	}
}

func (s *Smoother) logPhase(state *State) {
	s.logger.Debug("smoothing phase",
		"iteration", state.Iteration,
		"phase", state.Phase.String(),
		"optimizations", state.OptimizationsApplied,
	)
}

func (s *Smoother) trace(ctx context.Context, state *State) error {
	paths := s.battery(state.OptimizationsApplied)
	traces := make([]tracing.Trace, 0, len(paths))

	for _, p := range paths {
		t, err := s.tracer.Trace(ctx, p)
		if err != nil {
			return fmt.Errorf("iteration %d: %w", state.Iteration, err)
		}

		traces = append(traces, t)
	}

	state.Traces = traces

	return nil
}

func (s *Smoother) analyze(state *State) {
	var (
		candidates []Candidate
		total      time.Duration
	)

	for _, t := range state.Traces {
		total += t.TotalDuration

		if t.TotalDuration <= 0 {
			continue
		}

		for _, b := range t.Bottlenecks {
			share := float64(b.Duration) / float64(t.TotalDuration)
			if share <= s.config.OptimizationThreshold {
				continue
			}

			candidates = append(candidates, Candidate{
				Path:       t.Name,
				Bottleneck: b,
				PathTotal:  t.TotalDuration,
				Share:      share,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Bottleneck.Duration > candidates[j].Bottleneck.Duration
	})

	state.Bottlenecks = candidates
	state.TotalTime = float64(total.Microseconds()) / 1000
}

func (s *Smoother) optimize(state *State) []Optimization {
	applied := make([]Optimization, 0, len(state.Bottlenecks))
	for _, c := range state.Bottlenecks {
		o := Optimization{
			Iteration: state.Iteration,
			Path:      c.Path,
			Step:      c.Bottleneck.StepName,
			Label:     OptimizationLabel(c.Bottleneck.StepName),
		}
		applied = append(applied, o)

		s.logger.Info("optimization applied",
			"iteration", o.Iteration,
			"path", o.Path,
			"step", o.Step,
			"optimization", o.Label,
		)
	}

	state.OptimizationsApplied += len(applied)

	return applied
}

func (s *Smoother) next(state *State) Phase {
	if state.Improvement() >= s.config.TargetImprovement {
		return PhaseConverged
	}

	if state.Iteration >= s.config.IterationLimit {
		return PhaseIterationLimitReached
	}

	return PhaseTracing
}

func (s *Smoother) finish(state *State, history []IterationRecord) Result {
	r := Result{
		Outcome:       IterationLimitReached,
		Iterations:    state.Iteration,
		TotalTime:     state.TotalTime,
		Improvement:   state.Improvement(),
		Bottlenecks:   state.Bottlenecks,
		Traces:        state.Traces,
		Optimizations: state.OptimizationsApplied,
		History:       history,
	}

	if state.Phase == PhaseConverged {
		r.Outcome = Converged
	}

	r.Summary = Summarize(r)

	s.logger.Info("smoothing finished",
		"outcome", r.Outcome.String(),
		"iterations", r.Iterations,
		"total_ms", r.TotalTime,
		"optimizations", r.Optimizations,
	)

	return r
}

// Summarize renders the final summary of a run.
func Summarize(r Result) string {
	var b strings.Builder

	b.WriteString("=== Smoothing summary ===\n")
	fmt.Fprintf(&b, "Outcome: %s after %d iteration(s)\n",
		r.Outcome, r.Iterations)
	fmt.Fprintf(&b, "Total time: %.3fms | Improvement: %.1f%% | "+
		"Optimizations applied: %d\n",
		r.TotalTime, r.Improvement*100, r.Optimizations)

	b.WriteString("\nHistory\n")
	for _, h := range r.History {
		fmt.Fprintf(&b, "  #%d %10.3fms  %+6.1f%%  bottlenecks: %d\n",
			h.Iteration, h.TotalTime, h.Improvement*100, h.Bottlenecks)
		for _, o := range h.Optimizations {
			fmt.Fprintf(&b, "      %s/%s: %s\n", o.Path, o.Step, o.Label)
		}
	}

	b.WriteString("\nRemaining bottlenecks\n")
	if len(r.Bottlenecks) == 0 {
		b.WriteString("  none\n")
	}

	for _, c := range r.Bottlenecks {
		fmt.Fprintf(&b, "  %s %s/%s: %s (%.1f%% of path)\n",
			reporting.SeverityIcon(c.Bottleneck.Severity), c.Path,
			c.Bottleneck.StepName,
			reporting.FormatDuration(c.Bottleneck.Duration), c.Share*100)
	}

	return b.String()
}
