package tracing

import "time"

// Builder can build engines.
type Builder struct {
	memorySampler   MemorySampler
	parallelTimeout time.Duration
	maxConcurrency  int
	hooks           []Hook
}

// MakeBuilder creates a new Builder with default parameters. By default the
// engine samples the process RSS, gives parallel steps 30 seconds to finish,
// and runs all members of a parallel step at the same time.
func MakeBuilder() Builder {
	return Builder{
		parallelTimeout: DefaultParallelTimeout,
	}
}

// WithMemorySampler sets the sampler used to measure memory deltas.
func (b Builder) WithMemorySampler(s MemorySampler) Builder {
	b.memorySampler = s
	return b
}

// WithParallelTimeout sets the timeout of parallel steps.
func (b Builder) WithParallelTimeout(d time.Duration) Builder {
	b.parallelTimeout = d
	return b
}

// WithMaxConcurrency caps the number of members of a parallel step that run
// at the same time. Zero or a negative number means no cap.
func (b Builder) WithMaxConcurrency(n int) Builder {
	b.maxConcurrency = n
	return b
}

// WithHook registers a hook on the engine to be built.
func (b Builder) WithHook(h Hook) Builder {
	b.hooks = append(append([]Hook(nil), b.hooks...), h)
	return b
}

// Build creates the engine.
func (b Builder) Build() *Engine {
	e := &Engine{
		HookableBase:    NewHookableBase(),
		memorySampler:   b.memorySampler,
		parallelTimeout: b.parallelTimeout,
		maxConcurrency:  b.maxConcurrency,
	}

	if e.memorySampler == nil {
		e.memorySampler = DefaultMemorySampler()
	}

	if e.parallelTimeout <= 0 {
		e.parallelTimeout = DefaultParallelTimeout
	}

	for _, h := range b.hooks {
		e.AcceptHook(h)
	}

	return e
}
