package main

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/open-edge-platform/pkg-pipeline/internal/config"
	"github.com/open-edge-platform/pkg-pipeline/internal/pipeline"
	"github.com/open-edge-platform/pkg-pipeline/internal/utils/shell"
)

func exitError(t *testing.T, code int) error {
	t.Helper()
	err := exec.Command("bash", "-c", "exit "+strconv.Itoa(code)).Run()
	if err == nil {
		t.Fatalf("expected exit %d to fail", code)
	}
	return err
}

func withMock(t *testing.T, commands []shell.MockCommand) *shell.MockExecutor {
	t.Helper()
	original := shell.Default
	t.Cleanup(func() { shell.Default = original })
	mock := shell.NewMockExecutor(commands)
	shell.Default = mock
	return mock
}

func withTestConfig(t *testing.T, workDir, artifactsDir string) {
	t.Helper()
	original := config.Global()
	t.Cleanup(func() { config.SetGlobal(original) })

	cfg := config.DefaultGlobalConfig()
	cfg.WorkDir = workDir
	cfg.ArtifactsDir = artifactsDir
	config.SetGlobal(cfg)
}

func TestStageOverrides(t *testing.T) {
	pf := &config.PipelineFile{
		Stages: map[string]config.StageOverride{
			"build":     {Command: "make -j8"},
			"rpm-tests": {Policy: "tolerant"},
		},
	}
	overrides, err := stageOverrides(pf)
	if err != nil {
		t.Fatalf("stageOverrides failed: %v", err)
	}
	if overrides["build"].Command != "make -j8" {
		t.Errorf("build override = %+v", overrides["build"])
	}
	if overrides["rpm-tests"].Policy == nil || *overrides["rpm-tests"].Policy != pipeline.Tolerant {
		t.Errorf("rpm-tests policy override = %+v", overrides["rpm-tests"])
	}
}

func TestStageOverridesBadPolicy(t *testing.T) {
	pf := &config.PipelineFile{
		Stages: map[string]config.StageOverride{"build": {Policy: "maybe"}},
	}
	if _, err := stageOverrides(pf); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestSpecPathsFromDescriptor(t *testing.T) {
	pf := &config.PipelineFile{Specs: []string{"packaging/app.spec", "/abs/other.spec"}}
	paths, err := specPaths(pf, "/work")
	if err != nil {
		t.Fatalf("specPaths failed: %v", err)
	}
	want := []string{filepath.Join("/work", "packaging/app.spec"), "/abs/other.spec"}
	for i, p := range want {
		if paths[i] != p {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], p)
		}
	}
}

func TestSpecPathsGlobFallback(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "app.spec")
	if err := os.WriteFile(specPath, []byte("Name: app\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	paths, err := specPaths(&config.PipelineFile{}, dir)
	if err != nil {
		t.Fatalf("specPaths failed: %v", err)
	}
	if len(paths) != 1 || paths[0] != specPath {
		t.Errorf("paths = %v", paths)
	}
}

func TestSpecPathsNoneFound(t *testing.T) {
	if _, err := specPaths(&config.PipelineFile{}, t.TempDir()); err == nil {
		t.Error("expected error when no spec files exist")
	}
}

func TestPipelineSuitesDefaults(t *testing.T) {
	suites := pipelineSuites(pipeline.VariantTest, "/work", &config.PipelineFile{})
	if len(suites) != 1 || suites[0].Name != "unit" {
		t.Errorf("test variant default suites = %+v", suites)
	}
	if suites[0].LogPath != filepath.Join("/work", "tests", "unit.log") {
		t.Errorf("unit suite log path = %q", suites[0].LogPath)
	}
	if suites[0].CoveragePath != filepath.Join("/work", "tests", "coverage.log") {
		t.Errorf("unit suite coverage path = %q", suites[0].CoveragePath)
	}

	suites = pipelineSuites(pipeline.VariantRPM, "/work", &config.PipelineFile{})
	if len(suites) != 1 || suites[0].Name != "rpm-tests" || !suites[0].Packaging {
		t.Errorf("rpm variant default suites = %+v", suites)
	}
	if suites[0].LogPath != filepath.Join("/work", "tests", "rpm-tests.log") {
		t.Errorf("rpm-tests suite log path = %q", suites[0].LogPath)
	}
}

func TestPipelineSuitesFromDescriptor(t *testing.T) {
	pf := &config.PipelineFile{
		Suites: []config.SuiteConfig{
			{Name: "unit", Command: "make test", Log: "tests/unit.log"},
		},
	}
	suites := pipelineSuites(pipeline.VariantTest, "/work", pf)
	if len(suites) != 1 {
		t.Fatalf("suites = %+v", suites)
	}
	if suites[0].LogPath != filepath.Join("/work", "tests/unit.log") {
		t.Errorf("relative log path not resolved: %q", suites[0].LogPath)
	}
	if suites[0].WorkDir != "/work" {
		t.Errorf("suite work dir = %q", suites[0].WorkDir)
	}
}

// seedSuiteArtifacts plants the files the default unit suite's command
// would have written in the work tree.
func seedSuiteArtifacts(t *testing.T, workDir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(workDir, "tests", name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(name+" content\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestExecuteRunTestVariant(t *testing.T) {
	workDir := t.TempDir()
	artifactsDir := t.TempDir()
	withTestConfig(t, workDir, artifactsDir)
	seedSuiteArtifacts(t, workDir, "unit.log", "coverage.log")
	mock := withMock(t, []shell.MockCommand{
		{Pattern: "./autogen.sh && ./configure", Output: "configured\n"},
		{Pattern: "make check", Output: "42 tests passed\n"},
		{Pattern: "make", Output: "built\n"},
	})

	cmd := createRunCommand()
	cmd.SetArgs([]string{"test"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("run test failed: %v", err)
	}

	if len(mock.Calls) != 3 {
		t.Errorf("expected 3 commands, got %v", mock.Calls)
	}

	// stage logs land under the run's logs directory
	runs, err := os.ReadDir(artifactsDir)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one run directory, got %v (%v)", runs, err)
	}
	logsDir := filepath.Join(artifactsDir, runs[0].Name(), "logs")
	for _, name := range []string{"configure.log", "build.log"} {
		if _, err := os.Stat(filepath.Join(logsDir, name)); err != nil {
			t.Errorf("missing stage log %s: %v", name, err)
		}
	}

	testsDir := filepath.Join(artifactsDir, runs[0].Name(), "tests")
	capture := filepath.Join(testsDir, "unit-output.log")
	data, err := os.ReadFile(capture)
	if err != nil {
		t.Fatalf("missing suite capture: %v", err)
	}
	if !strings.Contains(string(data), "42 tests passed") {
		t.Errorf("capture content = %q", data)
	}

	// the suite's own artifacts get collected into the run directory
	for _, name := range []string{"unit.log", "unit-coverage.log"} {
		if _, err := os.Stat(filepath.Join(testsDir, name)); err != nil {
			t.Errorf("missing collected artifact %s: %v", name, err)
		}
	}
}

func TestExecuteRunDefaultSuiteMissingArtifact(t *testing.T) {
	workDir := t.TempDir()
	artifactsDir := t.TempDir()
	withTestConfig(t, workDir, artifactsDir)
	withMock(t, []shell.MockCommand{
		{Pattern: "./autogen.sh && ./configure", Output: "configured\n"},
		{Pattern: "make check", Output: "42 tests passed\n"},
		{Pattern: "make", Output: "built\n"},
	})

	cmd := createRunCommand()
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetArgs([]string{"test"})
	err := cmd.Execute()
	// the suite exited zero but never wrote tests/unit.log in the work tree
	if err == nil || !strings.Contains(err.Error(), "test suites failed") {
		t.Fatalf("expected suite failure for missing artifacts, got %v", err)
	}
}

func TestExecuteRunRPMVariantNoBuildDeps(t *testing.T) {
	workDir := t.TempDir()
	artifactsDir := t.TempDir()
	withTestConfig(t, workDir, artifactsDir)
	seedSuiteArtifacts(t, workDir, "rpm-tests.log")

	// a spec that declares no build dependencies is a valid tree
	spec := filepath.Join(workDir, "app.spec")
	if err := os.WriteFile(spec, []byte("Name: app\nVersion: 1.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rpm := filepath.Join(workDir, "app-1.0-1.noarch.rpm")
	if err := os.WriteFile(rpm, []byte("not a real rpm"), 0o644); err != nil {
		t.Fatal(err)
	}

	mock := withMock(t, []shell.MockCommand{
		{Pattern: "./autogen.sh && ./configure", Output: "configured\n"},
		{Pattern: "make check-rpms", Output: "rpm tests passed\n"},
		{Pattern: "make rpms", Output: "packaged\n"},
		{Pattern: "make", Output: "built\n"},
		{Pattern: "rpm -i --test", Output: "ok\n"},
	})

	cmd := createRunCommand()
	cmd.SetArgs([]string{"rpm"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("run rpm failed: %v", err)
	}

	// the install-deps stage is skipped, not failed
	for _, call := range mock.Calls {
		if strings.Contains(call, "builddep") {
			t.Errorf("dependency install ran for a dependency-free tree: %q", call)
		}
	}
	if len(mock.Calls) != 5 {
		t.Errorf("expected 5 commands, got %v", mock.Calls)
	}
}

func TestExecuteRunFatalStageAborts(t *testing.T) {
	workDir := t.TempDir()
	artifactsDir := t.TempDir()
	withTestConfig(t, workDir, artifactsDir)
	mock := withMock(t, []shell.MockCommand{
		{Pattern: "./autogen.sh && ./configure", Output: "config.log: error\n", Error: exitError(t, 2)},
	})

	cmd := createRunCommand()
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetArgs([]string{"test"})
	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected fatal stage failure")
	}

	var stageErr *pipeline.StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %T: %v", err, err)
	}
	if stageErr.Stage != "configure" || stageErr.ExitCode != 2 {
		t.Errorf("stage error = %+v", stageErr)
	}

	// the build stage never ran
	if len(mock.Calls) != 1 {
		t.Errorf("expected 1 command, got %v", mock.Calls)
	}
}

func TestExecuteRunUnknownVariant(t *testing.T) {
	withTestConfig(t, t.TempDir(), t.TempDir())

	cmd := createRunCommand()
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetArgs([]string{"deb"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error for unknown variant")
	}
}
