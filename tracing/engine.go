package tracing

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultParallelTimeout bounds how long a parallel step may run.
const DefaultParallelTimeout = 30 * time.Second

// Engine executes the steps of a path in order and measures each of them.
// Sequential steps never overlap. Members of a parallel step run
// concurrently, and the engine only blocks at the join point of the group.
type Engine struct {
	*HookableBase

	memorySampler   MemorySampler
	parallelTimeout time.Duration
	maxConcurrency  int
}

// Execute runs all the steps and returns one result per step, in step order.
// A failing step never stops the execution. The only error returned is a
// *SpecError for malformed steps, in which case nothing runs.
func (e *Engine) Execute(ctx context.Context, steps []Step) ([]StepResult, error) {
	if err := ValidateSteps(steps); err != nil {
		return nil, err
	}

	results := make([]StepResult, 0, len(steps))
	for i, step := range steps {
		var r StepResult

		switch s := unwrapStep(step).(type) {
		case Sequential:
			r = e.runSequential(ctx, i, s)
		case Parallel:
			r = e.runParallel(ctx, i, s)
		}

		results = append(results, r)
	}

	return results, nil
}

// ParallelTimeout returns the timeout applied to parallel steps.
func (e *Engine) ParallelTimeout() time.Duration {
	return e.parallelTimeout
}

func (e *Engine) runSequential(
	ctx context.Context,
	index int,
	s Sequential,
) StepResult {
	e.notifyStart(index, s.Name, false)

	memBefore := e.sampleMemory()
	start := time.Now()

	value, err := invoke(ctx, s.Op)

	duration := time.Since(start)
	memAfter := e.sampleMemory()

	r := StepResult{
		Name:        s.Name,
		Duration:    duration.Truncate(time.Microsecond),
		Value:       value,
		Err:         err,
		Timestamp:   start,
		MemoryDelta: memAfter - memBefore,
	}

	e.notifyEnd(index, &r)

	return r
}

func (e *Engine) runParallel(
	ctx context.Context,
	index int,
	p Parallel,
) StepResult {
	e.notifyStart(index, p.Name, true)

	memBefore := e.sampleMemory()
	start := time.Now()

	groupCtx, cancel := context.WithTimeout(ctx, e.parallelTimeout)
	defer cancel()

	outcomes := newMemberOutcomes(len(p.Ops))
	joined := e.dispatch(groupCtx, p.Ops, outcomes)

	interrupted := false
	select {
	case <-joined:
	case <-groupCtx.Done():
		select {
		case <-joined:
		default:
			interrupted = true
		}
	}

	values, errs, done := outcomes.seal()

	duration := time.Since(start)
	memAfter := e.sampleMemory()

	r := StepResult{
		Name:          p.Name,
		Duration:      duration.Truncate(time.Microsecond),
		Value:         values,
		Timestamp:     start,
		MemoryDelta:   memAfter - memBefore,
		IsParallel:    true,
		ParallelCount: len(p.Ops),
		SubErrors:     []error{},
	}

	pending := 0
	for i, err := range errs {
		if !done[i] {
			pending++
			err = fmt.Errorf("not finished: %w", ErrGroupTimeout)
		}

		if err != nil {
			r.SubErrors = append(r.SubErrors, &MemberError{Index: i, Err: err})
		}
	}

	switch {
	case interrupted && ctx.Err() != nil:
		r.Err = fmt.Errorf("parallel step %s interrupted: %w", p.Name, ctx.Err())
	case interrupted:
		r.Err = &TimeoutError{
			Step:    p.Name,
			Timeout: e.parallelTimeout,
			Pending: pending,
		}
	case len(r.SubErrors) > 0:
		r.Err = &GroupError{
			Step:    p.Name,
			Total:   len(p.Ops),
			Members: r.SubErrors,
		}
	}

	e.notifyEnd(index, &r)

	return r
}

// dispatch starts all the operations and returns a channel that is closed
// once every operation has returned.
func (e *Engine) dispatch(
	ctx context.Context,
	ops []Operation,
	outcomes *memberOutcomes,
) <-chan struct{} {
	joined := make(chan struct{})

	g := new(errgroup.Group)
	if e.maxConcurrency > 0 {
		g.SetLimit(e.maxConcurrency)
	}

	go func() {
		defer close(joined)

		for i, op := range ops {
			g.Go(func() error {
				value, err := invoke(ctx, op)
				outcomes.record(i, value, err)

				return nil
			})
		}

		_ = g.Wait()
	}()

	return joined
}

func (e *Engine) sampleMemory() int64 {
	if e.memorySampler == nil {
		return 0
	}

	m, err := e.memorySampler.SampleMemory()
	if err != nil {
		return 0
	}

	return m
}

func (e *Engine) notifyStart(index int, name string, parallel bool) {
	if e.NumHooks() == 0 {
		return
	}

	e.InvokeHook(HookCtx{
		Domain: e,
		Pos:    HookPosStepStart,
		Item: StepEvent{
			Index:    index,
			Name:     name,
			Parallel: parallel,
			Status:   StatusRunning,
		},
	})
}

func (e *Engine) notifyEnd(index int, r *StepResult) {
	if e.NumHooks() == 0 {
		return
	}

	status := StatusSucceeded
	if r.Failed() {
		status = StatusFailed
	}

	e.InvokeHook(HookCtx{
		Domain: e,
		Pos:    HookPosStepEnd,
		Item: StepEvent{
			Index:    index,
			Name:     r.Name,
			Parallel: r.IsParallel,
			Status:   status,
			Result:   r,
		},
	})
}

// invoke calls the operation and converts a panic into a *PanicError.
func invoke(ctx context.Context, op Operation) (value any, err error) {
	defer func() {
		if p := recover(); p != nil {
			value = nil
			err = &PanicError{Value: p, Stack: debug.Stack()}
		}
	}()

	return op(ctx)
}

// memberOutcomes collects the outcomes of parallel members. Once sealed,
// late members can no longer change what the step reports.
type memberOutcomes struct {
	mu     sync.Mutex
	sealed bool
	values []any
	errs   []error
	done   []bool
}

func newMemberOutcomes(n int) *memberOutcomes {
	return &memberOutcomes{
		values: make([]any, n),
		errs:   make([]error, n),
		done:   make([]bool, n),
	}
}

func (m *memberOutcomes) record(i int, value any, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sealed {
		return
	}

	m.values[i] = value
	m.errs[i] = err
	m.done[i] = true
}

func (m *memberOutcomes) seal() ([]any, []error, []bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sealed = true

	values := append([]any(nil), m.values...)
	errs := append([]error(nil), m.errs...)
	done := append([]bool(nil), m.done...)

	return values, errs, done
}
