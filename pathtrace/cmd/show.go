package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sarchlab/pathtrace/datarecording"
	"github.com/sarchlab/pathtrace/reporting"
)

func newShowCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "show <database> [path]",
		Short: "Print the reports of traces stored in SQLite.",
		Long: "`show` reads the traces that the sqlite sink stored in a " +
			"database file and prints their reports, oldest first. With a " +
			"path name, only the traces of that path are printed.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, v)
			if err != nil {
				return err
			}

			var name string
			if len(args) > 1 {
				name = args[1]
			}

			return a.show(cmd, args[0], name)
		},
	}
}

func (a *app) show(cmd *cobra.Command, database, name string) error {
	if _, err := os.Stat(database); err != nil {
		return err
	}

	reader, err := datarecording.NewReader(database)
	if err != nil {
		return err
	}
	defer reader.Close()

	records, err := reporting.LoadRecords(cmd.Context(), reader, name)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		return fmt.Errorf("no traces found in %s", database)
	}

	renderer := reporting.NewRenderer(a.cfg.Reporting.Color)
	for i, r := range records {
		if i > 0 {
			fmt.Fprintln(a.out)
		}

		fmt.Fprint(a.out, renderer.Render(r.Trace()))
	}

	return nil
}
