package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sarchlab/pathtrace"
	"github.com/sarchlab/pathtrace/smoothing"
	"github.com/sarchlab/pathtrace/tracing"
)

func newSmoothCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smooth",
		Short: "Run the smoothing loop over the built-in paths.",
		Long: "`smooth` traces the built-in paths repeatedly, simulates " +
			"optimizing the steps that dominate them, and stops when the " +
			"total time converges or the iteration limit is reached.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, v)
			if err != nil {
				return err
			}
			defer a.close()

			if n, _ := cmd.Flags().GetInt("iterations"); n > 0 {
				a.cfg.Smoothing.IterationLimit = n
			}

			tracer, err := a.tracer()
			if err != nil {
				return err
			}

			smoother, err := a.smoother(tracer)
			if err != nil {
				return err
			}

			result, err := smoother.Run(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprint(a.out, result.Summary)

			return a.close()
		},
	}

	cmd.Flags().Int("iterations", 0, "override the iteration limit")

	return cmd
}

func (a *app) smoother(
	tracer *pathtrace.Tracer,
	hooks ...tracing.Hook,
) (*smoothing.Smoother, error) {
	b := smoothing.MakeBuilder().
		WithConfig(a.smoothingConfig()).
		WithTracer(tracer).
		WithBattery(smoothing.DefaultBattery(a.cache)).
		WithCache(a.cache).
		WithLogger(a.logger)

	for _, h := range hooks {
		b = b.WithHook(h)
	}

	return b.Build()
}
