package main

import (
	"fmt"
	"os"

	"github.com/open-edge-platform/pkg-pipeline/internal/config"
	"github.com/open-edge-platform/pkg-pipeline/internal/utils/logger"
	"github.com/open-edge-platform/pkg-pipeline/internal/utils/security"
	"github.com/spf13/cobra"
)

// Command-line flags that can override config file settings
var (
	configFile string = "" // Path to config file
	logLevel   string = "" // Empty means use config file value
)

func main() {
	configFilePath := configFile
	if configFilePath == "" {
		configFilePath = config.FindConfigFile()
	}

	globalConfig, err := config.LoadGlobalConfig(configFilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	config.SetGlobal(globalConfig)

	_, cleanup, err := logger.InitWithConfig(logger.Config{
		Level:    globalConfig.Logging.Level,
		FilePath: globalConfig.Logging.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	rootCmd := createRootCommand()
	security.AttachRecursive(rootCmd, security.DefaultLimits())

	// Handle log level override after flag parsing
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if logLevel != "" {
			globalConfig.Logging.Level = logLevel
			config.SetGlobal(globalConfig)
			logger.SetLogLevel(logLevel)
		}
	}

	log := logger.Logger()
	if configFilePath != "" {
		log.Infof("Using configuration from: %s", configFilePath)
	}
	workDir, _ := config.WorkDir()
	artifactsDir, _ := config.ArtifactsDir()
	log.Debugf("Config: workers=%d, work_dir=%s, artifacts_dir=%s",
		config.Workers(), workDir, artifactsDir)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// createRootCommand creates and configures the root cobra command with all subcommands
func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pkg-pipeline",
		Short: "CI pipeline orchestrator for packaged projects",
		Long: `pkg-pipeline drives the build-and-verify pipeline of a packaged
source tree: it resolves build dependencies from package metadata, runs the
configure/build/package stages in order, executes the project's test suites
concurrently, and verifies that the built packages actually install.

Two pipeline variants are available:
- test: configure and build the tree, then run its test suites
- rpm:  additionally build RPM packages and verify they install

Use 'pkg-pipeline --help' to see available commands.
Use 'pkg-pipeline <command> --help' for more information about a command.`,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error)")

	rootCmd.AddCommand(createRunCommand())
	rootCmd.AddCommand(createSolveCommand())
	rootCmd.AddCommand(createVerifyInstallCommand())
	rootCmd.AddCommand(createVersionCommand())
	rootCmd.AddCommand(createConfigCommand())
	rootCmd.AddCommand(createInstallCompletionCommand())

	return rootCmd
}
