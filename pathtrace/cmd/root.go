// Package cmd provides the command-line interface for pathtrace.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sarchlab/pathtrace/config"
)

// NewRootCommand creates the pathtrace command with all its subcommands.
// Every command tree reads its settings through its own viper instance.
func NewRootCommand() *cobra.Command {
	v := viper.New()

	var cfgFile, envFile string

	rootCmd := &cobra.Command{
		Use:   "pathtrace",
		Short: "Trace execution paths and find their bottlenecks.",
		Long: `pathtrace times named execution paths step by step, ranks the ` +
			`steps that dominate them, and recommends what to optimize. It can ` +
			`also compare paths and run an iterative smoothing loop over a ` +
			`battery of simulated paths.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.Setup(v, cfgFile, envFile)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "",
		"config file (default is ./pathtrace.yaml)")
	flags.StringVar(&envFile, "env-file", ".env",
		"file with environment variables to load")
	flags.String("log-level", "", "log level: debug, info, warn, or error")
	flags.String("log-format", "", "log format: text or json")
	flags.String("sink", "", "where traces are persisted: none, json, or sqlite")
	flags.String("out", "", "directory of persisted traces")
	flags.Bool("no-color", false, "render reports without colors")

	_ = v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("logging.format", flags.Lookup("log-format"))
	_ = v.BindPFlag("reporting.sink", flags.Lookup("sink"))
	_ = v.BindPFlag("reporting.dir", flags.Lookup("out"))

	rootCmd.AddCommand(
		newTraceCommand(v),
		newCompareCommand(v),
		newSmoothCommand(v),
		newServeCommand(v),
		newShowCommand(v),
	)

	return rootCmd
}

// Execute runs the pathtrace command with the arguments of the process.
func Execute() error {
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(os.Args[1:])

	return rootCmd.Execute()
}
