// Package pathtrace measures named execution paths step by step, finds the
// steps that dominate them, and recommends what to optimize.
//
// A Path is an ordered list of sequential and parallel steps. A Tracer runs
// a path through the tracing engine, analyzes the measurements, and returns
// an immutable trace. Compare runs several paths and ranks them.
package pathtrace

import (
	"github.com/sarchlab/pathtrace/tracing"
)

// A Path is a named unit of work to be timed.
type Path struct {
	Name  string
	Steps []tracing.Step

	// Metadata is copied into the trace. The tracer adds the step_count,
	// parallel_steps, and failed_steps entries.
	Metadata map[string]any
}

// NewPath creates a path out of steps.
func NewPath(name string, steps ...tracing.Step) Path {
	return Path{Name: name, Steps: steps}
}

// WithMetadata returns a copy of the path that carries an extra metadata
// entry.
func (p Path) WithMetadata(key string, value any) Path {
	md := make(map[string]any, len(p.Metadata)+1)
	for k, v := range p.Metadata {
		md[k] = v
	}

	md[key] = value
	p.Metadata = md

	return p
}
