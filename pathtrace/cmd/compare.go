package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newCompareCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [path...]",
		Short: "Trace several paths and rank them.",
		Long: "`compare` traces the named paths, or all built-in paths, one " +
			"after another and reports the fastest, the slowest, and the gap " +
			"between them. Compared traces are never persisted.",
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

			c, err := tracer.Compare(cmd.Context(), paths)
			if err != nil {
				return err
			}

			if verbose, _ := cmd.Flags().GetBool("reports"); verbose {
				for _, t := range c.Traces {
					fmt.Fprintln(a.out, tracer.Report(t))
				}
			}

			fmt.Fprint(a.out, c.Render())

			return nil
		},
	}

	cmd.Flags().Bool("reports", false, "also print the report of every path")

	return cmd
}
