package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/robosim/internal/core/engine"
	"github.com/zeusync/robosim/internal/core/robot"
)

func loadEngineConfig(path string) (engine.Config, error) {
	if path == "" {
		return engine.DefaultConfig(), nil
	}
	return engine.LoadFile(path)
}

// newConfigCmd prints the effective engine configuration.
func newConfigCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective engine configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadEngineConfig(flags.configFile)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			return enc.Close()
		},
	}
}

// newValidateCmd checks the engine configuration and any grid files given as arguments.
func newValidateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [grid.yaml...]",
		Short: "Validate the engine configuration and grid robot files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadEngineConfig(flags.configFile); err != nil {
				return err
			}
			for _, path := range args {
				if _, err := robot.LoadGridFile(path); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}
			cmd.Println("ok")
			return nil
		},
	}
}
