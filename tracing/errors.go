package tracing

import (
	"errors"
	"fmt"
	"time"
)

// ErrGroupTimeout is matched by errors.Is for every failure caused by a
// parallel group exceeding its timeout.
var ErrGroupTimeout = errors.New("parallel group timed out")

// SpecError reports a malformed step. It is the only error that makes a whole
// execution fail, and it is returned before any step runs.
type SpecError struct {
	Index  int
	Step   string
	Reason string
}

func (e *SpecError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("invalid step #%d: %s", e.Index, e.Reason)
	}

	return fmt.Sprintf("invalid step #%d (%s): %s", e.Index, e.Step, e.Reason)
}

// PanicError records an operation that terminated abnormally.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	if err, ok := e.Value.(error); ok {
		return "operation panicked: " + err.Error()
	}

	return fmt.Sprintf("operation panicked: %v", e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// TimeoutError is the outcome of a parallel step whose members did not all
// finish within the group timeout.
type TimeoutError struct {
	Step    string
	Timeout time.Duration
	Pending int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("parallel step %s timed out after %s with %d pending operations",
		e.Step, e.Timeout, e.Pending)
}

// Is makes TimeoutError match ErrGroupTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrGroupTimeout
}

// MemberError is a failure of one member operation of a parallel step.
type MemberError struct {
	Index int
	Err   error
}

func (e *MemberError) Error() string {
	return fmt.Sprintf("operation %d: %s", e.Index, e.Err)
}

func (e *MemberError) Unwrap() error {
	return e.Err
}

// GroupError is the outcome of a parallel step in which some members failed.
type GroupError struct {
	Step    string
	Total   int
	Members []error
}

func (e *GroupError) Error() string {
	return fmt.Sprintf("parallel step %s: %d of %d operations failed",
		e.Step, len(e.Members), e.Total)
}

// Unwrap exposes the member failures to errors.Is and errors.As.
func (e *GroupError) Unwrap() []error {
	return e.Members
}
