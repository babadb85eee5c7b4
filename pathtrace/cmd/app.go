package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sarchlab/pathtrace"
	"github.com/sarchlab/pathtrace/analysis"
	"github.com/sarchlab/pathtrace/config"
	"github.com/sarchlab/pathtrace/datarecording"
	"github.com/sarchlab/pathtrace/logging"
	"github.com/sarchlab/pathtrace/reporting"
	"github.com/sarchlab/pathtrace/services"
	"github.com/sarchlab/pathtrace/smoothing"
	"github.com/sarchlab/pathtrace/tracing"
)

// app holds what every command needs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
	errOut io.Writer
	cache  *services.TTLCache

	// closers release the resources of the app, in order.
	closers []func() error
}

func newApp(cmd *cobra.Command, v *viper.Viper) (*app, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		cfg.Reporting.Color = false
	}

	return &app{
		cfg:    cfg,
		logger: logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format),
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
		cache:  services.NewTTLCache(services.DefaultTTL),
	}, nil
}

func (a *app) close() error {
	var firstErr error
	for _, c := range a.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	a.closers = nil

	return firstErr
}

func (a *app) memorySampler() tracing.MemorySampler {
	if strings.EqualFold(a.cfg.Trace.MemorySampler, "runtime") {
		return tracing.RuntimeMemorySampler{}
	}

	return tracing.DefaultMemorySampler()
}

func (a *app) engine(hooks ...tracing.Hook) *tracing.Engine {
	b := tracing.MakeBuilder().
		WithMemorySampler(a.memorySampler()).
		WithParallelTimeout(a.cfg.Trace.ParallelTimeout()).
		WithMaxConcurrency(a.cfg.Trace.MaxConcurrency)

	if a.logger.Enabled(context.Background(), slog.LevelDebug) {
		b = b.WithHook(logging.NewStepLogHook(a.logger))
	}

	for _, h := range hooks {
		b = b.WithHook(h)
	}

	return b.Build()
}

func (a *app) analyzer() *analysis.Analyzer {
	c := a.cfg.Analysis

	return analysis.NewAnalyzerWithOptions(analysis.Options{
		CriticalPercent: c.CriticalPercent,
		MajorPercent:    c.MajorPercent,
		MinorPercent:    c.MinorPercent,
		SlowTrace:       time.Duration(c.SlowTraceMs) * time.Millisecond,
		LongTrace:       time.Duration(c.LongTraceMs) * time.Millisecond,
		HighMemoryBytes: c.HighMemoryBytes,
	})
}

func (a *app) sink() (reporting.Sink, error) {
	dir := a.cfg.Reporting.Dir

	switch strings.ToLower(a.cfg.Reporting.Sink) {
	case "json":
		return reporting.NewJSONSink(dir), nil
	case "sqlite":
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}

		name := filepath.Join(dir, "pathtrace_"+xid.New().String())
		recorder, err := datarecording.New(name)
		if err != nil {
			return nil, err
		}

		exec, err := datarecording.NewExecRecorder(recorder)
		if err != nil {
			_ = recorder.Close()
			return nil, err
		}

		exec.Start()
		exec.Set("Sink", "sqlite")
		a.closers = append(a.closers, exec.End, recorder.Close)

		return reporting.NewSQLiteSink(recorder, name+".sqlite3"), nil
	default:
		return nil, nil
	}
}

func (a *app) reporter() (*reporting.Reporter, error) {
	sink, err := a.sink()
	if err != nil {
		return nil, err
	}

	b := reporting.MakeReporterBuilder().
		WithRenderer(reporting.NewRenderer(a.cfg.Reporting.Color)).
		WithLogger(a.logger).
		WithFailureHandler(func(t tracing.Trace, err *reporting.PersistError) {
			fmt.Fprintf(a.errOut, "warning: %s\n", err)
		})

	if sink != nil {
		b = b.WithSink(sink)
	}

	return b.Build(), nil
}

func (a *app) tracer(hooks ...tracing.Hook) (*pathtrace.Tracer, error) {
	reporter, err := a.reporter()
	if err != nil {
		return nil, err
	}

	return pathtrace.MakeTracerBuilder().
		WithEngine(a.engine(hooks...)).
		WithAnalyzer(a.analyzer()).
		WithReporter(reporter).
		WithLogger(a.logger).
		Build(), nil
}

func (a *app) smoothingConfig() smoothing.Config {
	c := a.cfg.Smoothing

	return smoothing.Config{
		OptimizationThreshold: c.OptimizationThreshold,
		TargetImprovement:     c.TargetImprovement,
		IterationLimit:        c.IterationLimit,
		Pause:                 c.Pause(),
	}
}

// paths returns the battery paths with the given names, or all of them.
func (a *app) paths(names []string) ([]pathtrace.Path, error) {
	all := smoothing.DefaultBattery(a.cache)(0)
	if len(names) == 0 {
		return all, nil
	}

	byName := make(map[string]pathtrace.Path, len(all))
	for _, p := range all {
		byName[p.Name] = p
	}

	selected := make([]pathtrace.Path, 0, len(names))
	for _, n := range names {
		p, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown path %q, known paths are %s",
				n, strings.Join(pathNames(all), ", "))
		}

		selected = append(selected, p)
	}

	return selected, nil
}

func pathNames(paths []pathtrace.Path) []string {
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, p.Name)
	}

	return names
}
