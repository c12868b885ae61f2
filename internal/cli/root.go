// Package cli implements the sniper command line.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	EnvFile    string
	Verbose    bool
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sniper",
		Short: "Detect a pump.fun token launch by name and ticker",
		Long: `sniper watches the launch program's on-chain logs and the launchpad
frontend feed at the same time and reports the first launch whose name and
ticker match the target.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "path to .env file (ignored if missing)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log every examined candidate")

	cmd.AddCommand(NewRaceCommand(opts))
	cmd.AddCommand(NewPairCommand(opts))

	return cmd
}
