package tracing

import (
	"context"
	"fmt"
)

// An Operation is one unit of measured work. It returns a value on success or
// an error on failure. Operations should honor ctx when they can, but the
// engine does not rely on it.
type Operation func(ctx context.Context) (any, error)

// A Step is one entry of a path. The set of step kinds is closed: a Step is
// either a Sequential or a Parallel.
type Step interface {
	StepName() string
	isStep()
}

// Sequential is a step that runs a single operation to completion before the
// next step begins.
type Sequential struct {
	Name string
	Op   Operation
}

// StepName returns the name of the step.
func (s Sequential) StepName() string { return s.Name }

func (Sequential) isStep() {}

// Parallel is a step that dispatches all its operations concurrently and
// joins on their completion or on the group timeout.
type Parallel struct {
	Name string
	Ops  []Operation
}

// StepName returns the name of the step.
func (p Parallel) StepName() string { return p.Name }

func (Parallel) isStep() {}

// Seq is a shorthand for creating a Sequential step.
func Seq(name string, op Operation) Sequential {
	return Sequential{Name: name, Op: op}
}

// Par is a shorthand for creating a Parallel step.
func Par(name string, ops ...Operation) Parallel {
	return Parallel{Name: name, Ops: ops}
}

// unwrapStep turns pointer steps into value steps so that the engine only
// deals with the two value kinds.
func unwrapStep(step Step) Step {
	switch s := step.(type) {
	case *Sequential:
		if s == nil {
			return nil
		}

		return *s
	case *Parallel:
		if s == nil {
			return nil
		}

		return *s
	default:
		return step
	}
}

// ValidateSteps checks that every step of a path is well formed. It is called
// before any step runs.
func ValidateSteps(steps []Step) error {
	for i, step := range steps {
		step = unwrapStep(step)

		switch s := step.(type) {
		case nil:
			return &SpecError{Index: i, Reason: "step is nil"}
		case Sequential:
			if s.Name == "" {
				return &SpecError{Index: i, Reason: "step name must not be empty"}
			}

			if s.Op == nil {
				return &SpecError{
					Index: i, Step: s.Name, Reason: "operation must not be nil",
				}
			}
		case Parallel:
			if err := validateParallel(i, s); err != nil {
				return err
			}
		default:
			return &SpecError{
				Index:  i,
				Reason: fmt.Sprintf("unknown step kind %T", step),
			}
		}
	}

	return nil
}

func validateParallel(i int, p Parallel) error {
	if p.Name == "" {
		return &SpecError{Index: i, Reason: "step name must not be empty"}
	}

	if len(p.Ops) == 0 {
		return &SpecError{
			Index: i, Step: p.Name, Reason: "parallel step has no operations",
		}
	}

	for j, op := range p.Ops {
		if op == nil {
			return &SpecError{
				Index:  i,
				Step:   p.Name,
				Reason: fmt.Sprintf("operation %d must not be nil", j),
			}
		}
	}

	return nil
}
