package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/open-edge-platform/pkg-pipeline/internal/config"
)

// createConfigCommand creates the config subcommand
func createConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage global configuration for the pipeline tool.

Available commands:
  init    Initialize a new configuration file with default values
  show    Print the effective configuration`,
	}

	configCmd.AddCommand(createConfigInitCommand())
	configCmd.AddCommand(createConfigShowCommand())

	return configCmd
}

// createConfigInitCommand creates the config init subcommand
func createConfigInitCommand() *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init [config-file]",
		Short: "Initialize a new configuration file",
		Long: `Initialize a new configuration file with default values.

If no path is specified, the config will be created in the current directory
as pkg-pipeline.yml

Examples:
  # Create config in current directory
  pkg-pipeline config init

  # Create config at specific location
  pkg-pipeline config init /etc/pkg-pipeline/config.yml

  # Create config in user's home directory
  pkg-pipeline config init ~/.pkg-pipeline/config.yml`,
		Args: cobra.MaximumNArgs(1),
		RunE: executeConfigInit,
	}

	return initCmd
}

// executeConfigInit handles the config init command logic
func executeConfigInit(cmd *cobra.Command, args []string) error {
	configPath := "pkg-pipeline.yml"
	if len(args) > 0 {
		configPath = args[0]
	}

	defaultConfig := config.DefaultGlobalConfig()

	if err := defaultConfig.SaveGlobalConfigWithComments(configPath); err != nil {
		return fmt.Errorf("failed to save config file: %v", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Printf("\nDefault configuration settings:\n")
	fmt.Printf("  Workers: %d\n", defaultConfig.Workers)
	fmt.Printf("  Work Directory: %s\n", defaultConfig.WorkDir)
	fmt.Printf("  Artifacts Directory: %s\n", defaultConfig.ArtifactsDir)
	fmt.Printf("  Solver Mode: %s\n", defaultConfig.SolverMode)
	fmt.Printf("  Install Command: %s\n", defaultConfig.Install.Command)
	fmt.Printf("  Log Level: %s\n", defaultConfig.Logging.Level)
	fmt.Printf("\nEdit the configuration file to customize these settings.\n")

	return nil
}

// createConfigShowCommand creates the config show subcommand
func createConfigShowCommand() *cobra.Command {
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the effective configuration as YAML, after merging the config
file with any command-line overrides.`,
		RunE: executeConfigShow,
	}

	return showCmd
}

// executeConfigShow handles the config show command logic
func executeConfigShow(cmd *cobra.Command, args []string) error {
	data, err := yaml.Marshal(config.Global())
	if err != nil {
		return fmt.Errorf("marshaling configuration: %w", err)
	}
	fmt.Print(string(data))
	return nil
}
