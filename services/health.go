package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/pathtrace/tracing"
)

// A ProbeFunc checks one service. It returns a short status text, or an
// error if the service is unhealthy.
type ProbeFunc func(ctx context.Context, service string) (string, error)

// HealthResult is the outcome of probing one service.
type HealthResult struct {
	Service      string
	Healthy      bool
	ResponseTime time.Duration
	Status       string
}

// HealthReport is the outcome of probing all services.
type HealthReport struct {
	Results      []HealthResult
	TotalTime    time.Duration
	HealthyCount int
	TotalCount   int
}

// A HealthChecker probes a set of services.
type HealthChecker interface {
	CheckAll(ctx context.Context) HealthReport
}

// FanOutHealthChecker probes all its services concurrently.
type FanOutHealthChecker struct {
	services []string
	probe    ProbeFunc
	limit    int
}

// NewFanOutHealthChecker creates a checker for the services. Results keep the
// order of the services.
func NewFanOutHealthChecker(
	probe ProbeFunc,
	services ...string,
) *FanOutHealthChecker {
	return &FanOutHealthChecker{
		services: append([]string(nil), services...),
		probe:    probe,
		limit:    -1,
	}
}

// WithConcurrencyLimit caps how many probes run at the same time.
func (c *FanOutHealthChecker) WithConcurrencyLimit(n int) *FanOutHealthChecker {
	c.limit = n
	return c
}

// Services returns the probed services.
func (c *FanOutHealthChecker) Services() []string {
	return append([]string(nil), c.services...)
}

// CheckAll probes every service and waits for all probes.
func (c *FanOutHealthChecker) CheckAll(ctx context.Context) HealthReport {
	start := time.Now()
	results := make([]HealthResult, len(c.services))

	g, gctx := errgroup.WithContext(ctx)
	if c.limit > 0 {
		g.SetLimit(c.limit)
	}

	for i, service := range c.services {
		g.Go(func() error {
			results[i] = c.probeOne(gctx, service)

			// Probe failures are results, never group errors.
			return nil
		})
	}

	_ = g.Wait()

	report := HealthReport{
		Results:    results,
		TotalTime:  time.Since(start),
		TotalCount: len(results),
	}

	for _, r := range results {
		if r.Healthy {
			report.HealthyCount++
		}
	}

	return report
}

func (c *FanOutHealthChecker) probeOne(
	ctx context.Context,
	service string,
) (r HealthResult) {
	start := time.Now()
	r.Service = service

	defer func() {
		if v := recover(); v != nil {
			r.Healthy = false
			r.Status = fmt.Sprintf("probe panicked: %v", v)
		}

		r.ResponseTime = time.Since(start)
	}()

	status, err := c.probe(ctx, service)
	if err != nil {
		r.Status = err.Error()
		return r
	}

	r.Healthy = true
	r.Status = status

	return r
}

// Operation wraps CheckAll so that it can run as a single step. The value
// of the operation is the HealthReport.
func (c *FanOutHealthChecker) Operation() tracing.Operation {
	return func(ctx context.Context) (any, error) {
		report := c.CheckAll(ctx)
		if report.HealthyCount < report.TotalCount {
			return report, fmt.Errorf("%d of %d services unhealthy",
				report.TotalCount-report.HealthyCount, report.TotalCount)
		}

		return report, nil
	}
}

// AsParallelStep exposes the probes as the members of a parallel step, so
// that each probe is measured by the engine.
func (c *FanOutHealthChecker) AsParallelStep(name string) tracing.Parallel {
	ops := make([]tracing.Operation, 0, len(c.services))
	for _, service := range c.services {
		ops = append(ops, func(ctx context.Context) (any, error) {
			r := c.probeOne(ctx, service)
			if !r.Healthy {
				return r, fmt.Errorf("%s: %s", service, r.Status)
			}

			return r, nil
		})
	}

	return tracing.Par(name, ops...)
}

// SimulatedProbe returns a probe that sleeps for latency and reports every
// service in unhealthy as down.
func SimulatedProbe(latency time.Duration, unhealthy ...string) ProbeFunc {
	down := make(map[string]bool, len(unhealthy))
	for _, s := range unhealthy {
		down[s] = true
	}

	return func(ctx context.Context, service string) (string, error) {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return "", ctx.Err()
		}

		if down[service] {
			return "", fmt.Errorf("service %s is down", service)
		}

		return "ok", nil
	}
}
