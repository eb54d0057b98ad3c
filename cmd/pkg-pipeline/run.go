package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/open-edge-platform/pkg-pipeline/internal/artifacts"
	"github.com/open-edge-platform/pkg-pipeline/internal/config"
	"github.com/open-edge-platform/pkg-pipeline/internal/depsolver"
	"github.com/open-edge-platform/pkg-pipeline/internal/installcheck"
	"github.com/open-edge-platform/pkg-pipeline/internal/pipeline"
	"github.com/open-edge-platform/pkg-pipeline/internal/testharness"
	"github.com/open-edge-platform/pkg-pipeline/internal/utils/file"
	"github.com/open-edge-platform/pkg-pipeline/internal/utils/logger"
)

// Run command flags
var (
	runWorkers      int    = -1 // -1 means use config file value
	runWorkDir      string = "" // Empty means use config file value
	runArtifactsDir string = "" // Empty means use config file value
	runPipelineFile string = "" // Empty means probe the work dir
	runRPMDir       string = "" // Empty means use the work dir
	runBundle       string = "" // Empty disables bundling
	runSkipInstall  bool   = false
)

// createRunCommand creates the run subcommand
func createRunCommand() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [flags] {test|rpm}",
		Short: "Run a full pipeline variant",
		Long: `Run one of the fixed pipeline variants against the work directory.

The test variant configures and builds the tree, then runs its test suites.
The rpm variant additionally solves and installs build dependencies up front,
builds RPM packages, and verifies the built packages install cleanly.

Stage commands and test suites can be overridden per repository with a
pipeline.yml descriptor in the work directory.`,
		Args:              cobra.ExactArgs(1),
		RunE:              executeRun,
		ValidArgsFunction: variantCompletion,
	}

	runCmd.Flags().IntVarP(&runWorkers, "workers", "w", -1,
		"Number of concurrent test suite workers")
	runCmd.Flags().StringVar(&runWorkDir, "work-dir", "",
		"Source tree the pipeline operates on")
	runCmd.Flags().StringVar(&runArtifactsDir, "artifacts-dir", "",
		"Root directory for per-run logs and captures")
	runCmd.Flags().StringVar(&runPipelineFile, "pipeline-file", "",
		"Per-repository pipeline descriptor (default: pipeline.yml under the work dir)")
	runCmd.Flags().StringVar(&runRPMDir, "rpm-dir", "",
		"Directory containing the built packages (default: the work dir)")
	runCmd.Flags().StringVar(&runBundle, "bundle", "",
		"Bundle run artifacts on completion (xz or zst)")
	runCmd.Flags().BoolVar(&runSkipInstall, "skip-install-check", false,
		"Skip the installability verification of built packages")

	return runCmd
}

// executeRun handles the run command execution logic
func executeRun(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("workers") {
		currentConfig := config.Global()
		currentConfig.Workers = runWorkers
		config.SetGlobal(currentConfig)
	}
	if cmd.Flags().Changed("work-dir") {
		currentConfig := config.Global()
		currentConfig.WorkDir = runWorkDir
		config.SetGlobal(currentConfig)
	}
	if cmd.Flags().Changed("artifacts-dir") {
		currentConfig := config.Global()
		currentConfig.ArtifactsDir = runArtifactsDir
		config.SetGlobal(currentConfig)
	}

	variant, err := pipeline.ParseVariant(args[0])
	if err != nil {
		return err
	}

	log := logger.Logger()
	cfg := config.Global()

	workDir, err := config.WorkDir()
	if err != nil {
		return err
	}
	artifactsDir, err := config.ArtifactsDir()
	if err != nil {
		return err
	}

	layout := artifacts.NewLayout(artifactsDir)
	if err := layout.EnsureDirs(); err != nil {
		return err
	}
	log.Infof("pipeline run %s: variant=%s work_dir=%s", layout.RunID, variant, workDir)

	pf, err := loadPipelineDescriptor(workDir)
	if err != nil {
		return err
	}
	overrides, err := stageOverrides(pf)
	if err != nil {
		return err
	}

	stages := pipeline.Stages(variant, workDir, overrides)

	// The rpm variant installs the solved build dependencies before any
	// stage runs; a tree that cannot satisfy its own metadata should fail
	// fast, not midway through a build.
	if variant == pipeline.VariantRPM && cfg.Install.DepsCommand != "" {
		depsStage, ok, err := buildInstallDepsStage(cfg, pf, workDir)
		if err != nil {
			return err
		}
		if ok {
			stages = append([]pipeline.Stage{depsStage}, stages...)
		} else {
			log.Infof("no build dependencies declared, skipping install-deps stage")
		}
	}

	runner := &pipeline.Runner{LogsDir: layout.LogsDir()}
	report, stageErr := runner.Run(stages)

	var summary *testharness.Summary
	var verifyResult *installcheck.Result
	var verifyErr error

	if stageErr == nil {
		suites := pipelineSuites(variant, workDir, pf)
		harness := &testharness.Harness{Workers: config.Workers(), CaptureDir: layout.TestsDir()}
		summary, err = harness.Run(suites)
		if err != nil {
			return err
		}
		collectSuiteArtifacts(layout, summary)

		if variant == pipeline.VariantRPM && !runSkipInstall {
			rpmDir := runRPMDir
			if rpmDir == "" {
				rpmDir = workDir
			} else if !filepath.IsAbs(rpmDir) {
				rpmDir = filepath.Join(workDir, rpmDir)
			}
			verifier := &installcheck.Verifier{
				InstallCmd:      cfg.Install.Command,
				Sudo:            cfg.Install.Sudo,
				CheckSignatures: cfg.Install.CheckSignatures,
				KeyringPath:     cfg.Install.Keyring,
				Workers:         config.Workers(),
			}
			verifyResult, verifyErr = verifier.Verify(rpmDir)
		}
	}

	printRunSummary(report, summary, verifyResult, verifyErr)

	if runBundle != "" {
		dest := layout.RunDir() + ".tar." + runBundle
		if err := artifacts.Bundle(layout, dest); err != nil {
			log.Warnf("bundling run artifacts failed: %v", err)
		}
	}

	switch {
	case stageErr != nil:
		return stageErr
	case verifyErr != nil:
		return verifyErr
	case summary != nil && summary.Failed():
		return fmt.Errorf("one or more test suites failed")
	case report.Failed():
		return fmt.Errorf("pipeline completed with stage failures")
	}

	log.Infof("pipeline run %s completed successfully", layout.RunID)
	return nil
}

func loadPipelineDescriptor(workDir string) (*config.PipelineFile, error) {
	path := runPipelineFile
	if path == "" {
		path = config.FindPipelineFile(workDir)
	}
	if path == "" {
		return &config.PipelineFile{}, nil
	}
	return config.LoadPipelineFile(path)
}

func stageOverrides(pf *config.PipelineFile) (map[string]pipeline.Override, error) {
	overrides := make(map[string]pipeline.Override, len(pf.Stages))
	for name, ov := range pf.Stages {
		out := pipeline.Override{Command: ov.Command}
		if ov.Policy != "" {
			policy, err := pipeline.ParsePolicy(ov.Policy)
			if err != nil {
				return nil, fmt.Errorf("stage %q: %w", name, err)
			}
			out.Policy = &policy
		}
		overrides[name] = out
	}
	return overrides, nil
}

// buildInstallDepsStage solves the metadata files and renders the solved
// set onto the configured installer command. A tree that declares no build
// dependencies is valid; the stage is skipped rather than failed.
func buildInstallDepsStage(cfg *config.GlobalConfig, pf *config.PipelineFile, workDir string) (pipeline.Stage, bool, error) {
	specs, err := specPaths(pf, workDir)
	if err != nil {
		return pipeline.Stage{}, false, err
	}

	mode, err := depsolver.ParseMode(cfg.SolverMode)
	if err != nil {
		return pipeline.Stage{}, false, err
	}
	deps, err := depsolver.Solve(specs, mode)
	if err != nil {
		return pipeline.Stage{}, false, err
	}
	if deps.Len() == 0 {
		return pipeline.Stage{}, false, nil
	}

	command := cfg.Install.DepsCommand + " " + strings.Join(deps.Render(), " ")
	return pipeline.InstallDepsStage(workDir, command), true, nil
}

func specPaths(pf *config.PipelineFile, workDir string) ([]string, error) {
	if len(pf.Specs) > 0 {
		paths := make([]string, 0, len(pf.Specs))
		for _, spec := range pf.Specs {
			if !filepath.IsAbs(spec) {
				spec = filepath.Join(workDir, spec)
			}
			paths = append(paths, spec)
		}
		return paths, nil
	}

	paths, err := filepath.Glob(filepath.Join(workDir, "*.spec"))
	if err != nil {
		return nil, fmt.Errorf("globbing spec files under %s: %w", workDir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no spec files found under %s", workDir)
	}
	return paths, nil
}

// pipelineSuites returns the descriptor's suites, or the variant's default
// suite when the descriptor declares none. The default suites declare the
// artifacts their commands produce in the work tree, so a suite that exits
// zero without writing them still fails.
func pipelineSuites(variant pipeline.Variant, workDir string, pf *config.PipelineFile) []testharness.Suite {
	if len(pf.Suites) > 0 {
		suites := make([]testharness.Suite, 0, len(pf.Suites))
		for _, sc := range pf.Suites {
			suites = append(suites, testharness.Suite{
				Name:         sc.Name,
				Command:      sc.Command,
				WorkDir:      workDir,
				LogPath:      resolveArtifact(workDir, sc.Log),
				CoveragePath: resolveArtifact(workDir, sc.Coverage),
				Packaging:    sc.Packaging,
			})
		}
		return suites
	}

	switch variant {
	case pipeline.VariantRPM:
		return []testharness.Suite{
			{
				Name:      "rpm-tests",
				Command:   "make check-rpms",
				WorkDir:   workDir,
				LogPath:   filepath.Join(workDir, "tests", "rpm-tests.log"),
				Packaging: true,
			},
		}
	default:
		return []testharness.Suite{
			{
				Name:         "unit",
				Command:      "make check",
				WorkDir:      workDir,
				LogPath:      filepath.Join(workDir, "tests", "unit.log"),
				CoveragePath: filepath.Join(workDir, "tests", "coverage.log"),
			},
		}
	}
}

// collectSuiteArtifacts copies the logs and coverage reports each passed
// suite produced in the work tree into the run's tests directory, so the
// bundled run is self-contained.
func collectSuiteArtifacts(layout *artifacts.Layout, summary *testharness.Summary) {
	log := logger.Logger()
	for _, res := range summary.Results {
		if !res.Passed() {
			continue
		}
		for _, pair := range []struct{ src, dst string }{
			{res.Suite.LogPath, layout.SuiteLog(res.Suite.Name)},
			{res.Suite.CoveragePath, layout.SuiteCoverage(res.Suite.Name)},
		} {
			if pair.src == "" {
				continue
			}
			data, err := os.ReadFile(pair.src)
			if err != nil {
				log.Warnf("collecting artifact %s for suite %s: %v", pair.src, res.Suite.Name, err)
				continue
			}
			if err := file.WriteWithDirs(pair.dst, data, 0o644); err != nil {
				log.Warnf("collecting artifact %s for suite %s: %v", pair.src, res.Suite.Name, err)
			}
		}
	}
}

func resolveArtifact(workDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workDir, path)
}

// printRunSummary renders the per-stage and per-suite outcome table.
func printRunSummary(report *pipeline.Report, summary *testharness.Summary, verifyResult *installcheck.Result, verifyErr error) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Println()
	fmt.Println("Pipeline summary:")
	for _, res := range report.Results {
		switch res.Status {
		case pipeline.Succeeded:
			fmt.Printf("  %s stage %s\n", green("PASS"), res.Stage.Name)
		default:
			label := red("FAIL")
			if res.Stage.Policy == pipeline.Tolerant {
				label = yellow("FAIL")
			}
			fmt.Printf("  %s stage %s (exit %d, log: %s)\n", label, res.Stage.Name, res.ExitCode, res.LogPath)
		}
	}
	if report.Aborted {
		fmt.Printf("  %s pipeline aborted, later stages skipped\n", red("!"))
	}

	if summary != nil {
		for _, res := range summary.Results {
			if res.Passed() {
				fmt.Printf("  %s suite %s\n", green("PASS"), res.Suite.Name)
			} else {
				fmt.Printf("  %s suite %s (exit %d, capture: %s)\n", red("FAIL"), res.Suite.Name, res.ExitCode, res.CapturePath)
			}
		}
	}

	switch {
	case verifyErr != nil:
		fmt.Printf("  %s install check failed: %v\n", red("FAIL"), verifyErr)
	case verifyResult != nil:
		fmt.Printf("  %s install check (%d packages)\n", green("PASS"), len(verifyResult.Artifacts))
	}
	fmt.Println()
}

// variantCompletion suggests the fixed pipeline variants
func variantCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{string(pipeline.VariantTest), string(pipeline.VariantRPM)}, cobra.ShellCompDirectiveNoFileComp
}
