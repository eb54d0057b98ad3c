package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/open-edge-platform/pkg-pipeline/internal/config"
	"github.com/open-edge-platform/pkg-pipeline/internal/depsolver"
	"github.com/open-edge-platform/pkg-pipeline/internal/utils/file"
	"github.com/open-edge-platform/pkg-pipeline/internal/utils/logger"
)

// Solve command flags
var (
	solveMode   string = "" // Empty means use config file value
	solveOutput string = "" // Empty means stdout
)

// createSolveCommand creates the solve subcommand
func createSolveCommand() *cobra.Command {
	solveCmd := &cobra.Command{
		Use:   "solve [flags] SPEC_FILE...",
		Short: "Resolve package dependencies from metadata files",
		Long: `Parse one or more package metadata files and emit the deduplicated,
normalized dependency set, one requirement per line, sorted by name.

The output form is what a package manager batch install accepts: bare names
for unversioned requirements and space-free constraints like "make>=4.0"
otherwise. Incompatible version constraints for the same package abort the
solve with a conflict error; nothing is emitted.`,
		Args:              cobra.MinimumNArgs(1),
		RunE:              executeSolve,
		ValidArgsFunction: specFileCompletion,
	}

	solveCmd.Flags().StringVarP(&solveMode, "mode", "m", "",
		"Dependency classes to collect: build-only or full")
	solveCmd.Flags().StringVarP(&solveOutput, "output", "o", "",
		"Write the dependency set to this file instead of stdout")

	return solveCmd
}

// executeSolve handles the solve command logic
func executeSolve(cmd *cobra.Command, args []string) error {
	log := logger.Logger()

	modeStr := solveMode
	if modeStr == "" {
		modeStr = config.Global().SolverMode
	}
	mode, err := depsolver.ParseMode(modeStr)
	if err != nil {
		return err
	}

	deps, err := depsolver.Solve(args, mode)
	if err != nil {
		return fmt.Errorf("dependency solve failed: %w", err)
	}
	log.Infof("solved %d files into %d requirements", len(args), deps.Len())

	if solveOutput == "" {
		return deps.WriteTo(os.Stdout)
	}

	f, err := file.CreateWithDirs(solveOutput, 0o644)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()
	if err := deps.WriteTo(f); err != nil {
		return fmt.Errorf("writing dependency set: %w", err)
	}
	log.Infof("wrote dependency set to %s", solveOutput)
	return nil
}

// specFileCompletion suggests spec files for the positional arguments
func specFileCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"spec"}, cobra.ShellCompDirectiveFilterFileExt
}
