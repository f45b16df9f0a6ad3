package main

import (
	"github.com/spf13/cobra"
)

// globalFlags are available to all subcommands.
type globalFlags struct {
	configFile string
	logLevel   string
}

// NewRootCmd creates the root command of the robosim CLI.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "robosim",
		Short: "robosim - a 2D modular soft robot simulator",
		Long: `robosim simulates robots made of voxels, rigid bodies and rotational joints
on a fixed-step 2D physics backend.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "engine config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log level: debug, info, warn, error, silent")

	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newConfigCmd(flags))
	cmd.AddCommand(newValidateCmd(flags))

	return cmd
}
