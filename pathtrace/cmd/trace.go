package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newTraceCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "trace [path...]",
		Short: "Trace the built-in paths and print their reports.",
		Long: "`trace` runs the startup, request-handling, and data-access " +
			"paths, or only the named ones, and prints one report per path.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, v)
			if err != nil {
				return err
			}
			defer a.close()

			paths, err := a.paths(args)
			if err != nil {
				return err
			}

			tracer, err := a.tracer()
			if err != nil {
				return err
			}

			for i, p := range paths {
				trace, err := tracer.Trace(cmd.Context(), p)
				if err != nil {
					return err
				}

				if i > 0 {
					fmt.Fprintln(a.out)
				}

				fmt.Fprint(a.out, tracer.Report(trace))
			}

			return a.close()
		},
	}
}
