package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sarchlab/pathtrace/monitoring"
	"github.com/sarchlab/pathtrace/smoothing"
)

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve traces and smoothing progress over HTTP.",
		Long: "`serve` starts the monitoring API, runs the smoothing loop " +
			"while publishing its traces and progress, and keeps serving " +
			"until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, v)
			if err != nil {
				return err
			}
			defer a.close()

			if port, _ := cmd.Flags().GetInt("port"); port != 0 {
				a.cfg.Monitor.Port = port
			}

			if open, _ := cmd.Flags().GetBool("open"); open {
				a.cfg.Monitor.OpenBrowser = true
			}

			ctx, stop := signal.NotifyContext(cmd.Context(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return a.serve(ctx)
		},
	}

	cmd.Flags().Int("port", 0, "port of the monitoring server")
	cmd.Flags().Bool("open", false, "open the trace list in a browser")

	return cmd
}

func (a *app) serve(ctx context.Context) error {
	m := monitoring.NewMonitor().
		WithPortNumber(a.cfg.Monitor.Port).
		WithLogger(a.logger)

	url, err := m.StartServer()
	if err != nil {
		return err
	}

	fmt.Fprintf(a.errOut, "Monitoring pathtrace with %s\n", url)

	if a.cfg.Monitor.OpenBrowser {
		if err := browser.OpenURL(url + "/api/traces"); err != nil {
			a.logger.Warn("failed to open browser", "error", err)
		}
	}

	smoother, steps, err := a.monitoredSmoother(m)
	if err != nil {
		return err
	}

	result, err := smoother.Run(ctx)
	m.CompleteProgressBar(steps)
	if err == nil {
		fmt.Fprint(a.out, result.Summary)
		<-ctx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		5*time.Second)
	defer cancel()

	if shutdownErr := m.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	if ctx.Err() != nil {
		return nil
	}

	return err
}

// monitoredSmoother builds a smoother that publishes its traces to the
// monitor and moves one bar per traced step and one per iteration.
func (a *app) monitoredSmoother(
	m *monitoring.Monitor,
) (*smoothing.Smoother, *monitoring.ProgressBar, error) {
	limit := a.cfg.Smoothing.IterationLimit
	steps := m.CreateProgressBar("traced steps",
		a.stepsPerIteration()*uint64(limit))

	tracer, err := a.tracer(monitoring.NewStepProgressHook(steps))
	if err != nil {
		return nil, nil, err
	}

	smoother, err := a.smoother(tracer, monitoring.NewSmoothingHook(m, limit))
	if err != nil {
		return nil, nil, err
	}

	return smoother, steps, nil
}

// stepsPerIteration counts the top-level steps of one pass over the battery.
func (a *app) stepsPerIteration() uint64 {
	var n uint64
	for _, p := range smoothing.DefaultBattery(a.cache)(0) {
		n += uint64(len(p.Steps))
	}

	return n
}
