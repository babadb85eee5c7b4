package smoothing

import (
	"context"
	"fmt"
	"time"

	"github.com/sarchlab/pathtrace"
	"github.com/sarchlab/pathtrace/services"
	"github.com/sarchlab/pathtrace/tracing"
)

// A Battery produces the paths traced in every iteration. The paths get
// faster as more optimizations are applied.
type Battery func(optimizations int) []pathtrace.Path

// SimulatedOperation stands for work whose cost shrinks with every applied
// optimization.
type SimulatedOperation struct {
	Name     string
	BaseCost time.Duration

	// Decay is the fraction of the base cost removed per optimization.
	Decay float64
}

// Cost returns the cost after a number of optimizations. It never goes below
// zero.
func (s SimulatedOperation) Cost(optimizations int) time.Duration {
	factor := max(0, 1-float64(optimizations)*s.Decay)

	return time.Duration(float64(s.BaseCost) * factor)
}

// Operation returns an operation that waits for the cost.
func (s SimulatedOperation) Operation(optimizations int) tracing.Operation {
	cost := s.Cost(optimizations)

	return func(ctx context.Context) (any, error) {
		if err := wait(ctx, cost); err != nil {
			return nil, err
		}

		return cost, nil
	}
}

// Step returns a sequential step named after the operation.
func (s SimulatedOperation) Step(optimizations int) tracing.Sequential {
	return tracing.Seq(s.Name, s.Operation(optimizations))
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var (
	loadConfig       = SimulatedOperation{"load-config", 5 * time.Millisecond, 0.10}
	compileTemplates = SimulatedOperation{"compile-templates", 40 * time.Millisecond, 0.20}
	warmUp           = SimulatedOperation{"warm-up", 3 * time.Millisecond, 0.05}

	loadSession    = SimulatedOperation{"load-session", 4 * time.Millisecond, 0.10}
	apiProbe       = SimulatedOperation{"api-fanout", 30 * time.Millisecond, 0.25}
	renderResponse = SimulatedOperation{"render-response", 4 * time.Millisecond, 0.10}

	connect       = SimulatedOperation{"connect", 2 * time.Millisecond, 0.05}
	queryOrders   = SimulatedOperation{"query-orders", 50 * time.Millisecond, 0.30}
	serializeRows = SimulatedOperation{"serialize", 3 * time.Millisecond, 0.10}
)

// DownstreamServices are the services probed by the request-handling path.
var DownstreamServices = []string{"auth", "inventory", "payments"}

// DefaultBattery returns the startup, request-handling, and data-access
// paths. The request-handling path reads its session through the cache.
func DefaultBattery(cache services.Cache) Battery {
	if cache == nil {
		cache = services.NewTTLCache(services.DefaultTTL)
	}

	return func(n int) []pathtrace.Path {
		return []pathtrace.Path{
			pathtrace.NewPath("startup",
				loadConfig.Step(n),
				compileTemplates.Step(n),
				warmUp.Step(n),
			),
			requestHandling(cache, n),
			pathtrace.NewPath("data-access",
				connect.Step(n),
				queryOrders.Step(n),
				serializeRows.Step(n),
			),
		}
	}
}

func requestHandling(cache services.Cache, n int) pathtrace.Path {
	session := loadSession.Operation(n)
	lookup := func(ctx context.Context) (any, error) {
		if v, ok := cache.Get("session"); ok {
			return v, nil
		}

		v, err := session(ctx)
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}

		cache.Put("session", v)

		return v, nil
	}

	checker := services.NewFanOutHealthChecker(
		services.SimulatedProbe(apiProbe.Cost(n)),
		DownstreamServices...,
	)

	return pathtrace.NewPath("request-handling",
		tracing.Seq("session-lookup", lookup),
		checker.AsParallelStep(apiProbe.Name),
		renderResponse.Step(n),
	)
}
