// Package smoothing repeatedly traces a battery of paths, simulates
// optimizing the worst bottlenecks, and stops once the total time has
// improved enough or the iteration limit is reached.
package smoothing

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the policy of a smoothing run.
type Config struct {
	// OptimizationThreshold is the share of a path, between 0 and 1, that a
	// bottleneck must exceed to be optimized.
	OptimizationThreshold float64

	// TargetImprovement is the improvement over the previous iteration, between
	// 0 and 1, that counts as converged.
	TargetImprovement float64

	IterationLimit int

	// Pause is the wait between iterations.
	Pause time.Duration
}

// DefaultConfig returns the default policy.
func DefaultConfig() Config {
	return Config{
		OptimizationThreshold: 0.75,
		TargetImprovement:     0.90,
		IterationLimit:        10,
		Pause:                 100 * time.Millisecond,
	}
}

// Validate checks that the policy can drive a run.
func (c Config) Validate() error {
	var errs []error

	if c.OptimizationThreshold < 0 || c.OptimizationThreshold >= 1 {
		errs = append(errs, fmt.Errorf(
			"optimization threshold must be in [0, 1), got %v",
			c.OptimizationThreshold))
	}

	if c.TargetImprovement <= 0 || c.TargetImprovement > 1 {
		errs = append(errs, fmt.Errorf(
			"target improvement must be in (0, 1], got %v",
			c.TargetImprovement))
	}

	if c.IterationLimit < 1 {
		errs = append(errs, fmt.Errorf(
			"iteration limit must be at least 1, got %d", c.IterationLimit))
	}

	if c.Pause < 0 {
		errs = append(errs, fmt.Errorf("pause must not be negative, got %s",
			c.Pause))
	}

	return errors.Join(errs...)
}
