package reporting_test

import (
	"errors"
	"time"

	"github.com/sarchlab/pathtrace/tracing"
)

func sampleTrace() tracing.Trace {
	started := time.Date(2024, 3, 5, 10, 20, 30, 123456000, time.UTC)

	return tracing.Trace{
		ID:        "trace-1",
		Name:      "User Login/Flow",
		StartedAt: started,
		Steps: []tracing.StepResult{
			{
				Name:        "load",
				Duration:    60 * time.Millisecond,
				Timestamp:   started,
				MemoryDelta: 2048,
			},
			{
				Name:          "fetch",
				Duration:      30 * time.Millisecond,
				Timestamp:     started.Add(60 * time.Millisecond),
				IsParallel:    true,
				ParallelCount: 3,
				Err:           errors.New("1 of 3 operations failed"),
				SubErrors:     []error{errors.New("member 1: boom")},
			},
			{
				Name:        "render",
				Duration:    10 * time.Millisecond,
				Timestamp:   started.Add(90 * time.Millisecond),
				MemoryDelta: -512,
			},
		},
		TotalDuration: 100 * time.Millisecond,
		Bottlenecks: []tracing.Bottleneck{
			{
				StepName:   "load",
				Duration:   60 * time.Millisecond,
				Percentage: 60,
				Severity:   tracing.SeverityCritical,
			},
			{
				StepName:   "fetch",
				Duration:   30 * time.Millisecond,
				Percentage: 30,
				Severity:   tracing.SeverityMajor,
				HasError:   true,
			},
			{
				StepName:   "render",
				Duration:   10 * time.Millisecond,
				Percentage: 10,
				Severity:   tracing.SeverityMinor,
			},
		},
		Recommendations: []string{"optimize load", "retry fetch"},
		Metadata:        map[string]any{"step_count": 3},
	}
}
