package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "smoothing.iteration_limit")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats returns the list of valid log formats
func ValidLogFormats() []string {
	return []string{"text", "json"}
}

// ValidSinks returns the list of valid persistence sinks
func ValidSinks() []string {
	return []string{"none", "json", "sqlite"}
}

// ValidMemorySamplers returns the list of valid memory samplers
func ValidMemorySamplers() []string {
	return []string{"process", "runtime"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateTrace()...)
	errors = append(errors, c.validateAnalysis()...)
	errors = append(errors, c.validateSmoothing()...)
	errors = append(errors, c.validateReporting()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateMonitor()...)

	return errors
}

func (c *Config) validateTrace() []ValidationError {
	var errors []ValidationError

	if c.Trace.ParallelTimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "trace.parallel_timeout_ms",
			Value:   c.Trace.ParallelTimeoutMs,
			Message: "must be positive",
		})
	}

	if c.Trace.MaxConcurrency < 0 {
		errors = append(errors, ValidationError{
			Field:   "trace.max_concurrency",
			Value:   c.Trace.MaxConcurrency,
			Message: "must be non-negative (0 = unbounded)",
		})
	}

	if !slices.Contains(ValidMemorySamplers(), strings.ToLower(c.Trace.MemorySampler)) {
		errors = append(errors, ValidationError{
			Field:   "trace.memory_sampler",
			Value:   c.Trace.MemorySampler,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidMemorySamplers(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateAnalysis() []ValidationError {
	var errors []ValidationError
	a := c.Analysis

	if a.MinorPercent <= 0 || a.MinorPercent > a.MajorPercent || a.MajorPercent > a.CriticalPercent || a.CriticalPercent > 100 {
		errors = append(errors, ValidationError{
			Field:   "analysis",
			Value:   fmt.Sprintf("%v/%v/%v", a.MinorPercent, a.MajorPercent, a.CriticalPercent),
			Message: "thresholds must satisfy 0 < minor <= major <= critical <= 100",
		})
	}

	if a.LongTraceMs <= 0 || a.SlowTraceMs < a.LongTraceMs {
		errors = append(errors, ValidationError{
			Field:   "analysis.slow_trace_ms",
			Value:   a.SlowTraceMs,
			Message: fmt.Sprintf("must be at least long_trace_ms (%d), which must be positive", a.LongTraceMs),
		})
	}

	if a.HighMemoryBytes <= 0 {
		errors = append(errors, ValidationError{
			Field:   "analysis.high_memory_bytes",
			Value:   a.HighMemoryBytes,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateSmoothing() []ValidationError {
	var errors []ValidationError
	s := c.Smoothing

	if s.OptimizationThreshold < 0 || s.OptimizationThreshold >= 1 {
		errors = append(errors, ValidationError{
			Field:   "smoothing.optimization_threshold",
			Value:   s.OptimizationThreshold,
			Message: "must be in [0, 1)",
		})
	}

	if s.TargetImprovement <= 0 || s.TargetImprovement > 1 {
		errors = append(errors, ValidationError{
			Field:   "smoothing.target_improvement",
			Value:   s.TargetImprovement,
			Message: "must be in (0, 1]",
		})
	}

	if s.IterationLimit < 1 {
		errors = append(errors, ValidationError{
			Field:   "smoothing.iteration_limit",
			Value:   s.IterationLimit,
			Message: "must be at least 1",
		})
	}

	if s.PauseMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "smoothing.pause_ms",
			Value:   s.PauseMs,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateReporting() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidSinks(), strings.ToLower(c.Reporting.Sink)) {
		errors = append(errors, ValidationError{
			Field:   "reporting.sink",
			Value:   c.Reporting.Sink,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidSinks(), ", ")),
		})
	}

	if c.Reporting.Sink != "none" && c.Reporting.Dir == "" {
		errors = append(errors, ValidationError{
			Field:   "reporting.dir",
			Value:   c.Reporting.Dir,
			Message: "must be set when a sink is used",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if !slices.Contains(ValidLogFormats(), strings.ToLower(c.Logging.Format)) {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogFormats(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateMonitor() []ValidationError {
	var errors []ValidationError

	if c.Monitor.Port < 0 || c.Monitor.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "monitor.port",
			Value:   c.Monitor.Port,
			Message: "must be between 0 and 65535 (0 = any free port)",
		})
	}

	return errors
}
