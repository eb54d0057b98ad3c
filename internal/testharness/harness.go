package testharness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/open-edge-platform/pkg-pipeline/internal/utils/file"
	"github.com/open-edge-platform/pkg-pipeline/internal/utils/logger"
	"github.com/open-edge-platform/pkg-pipeline/internal/utils/shell"
)

// Suite is one independent test suite invocation. LogPath (and the
// optional CoveragePath) name the artifacts the suite itself must produce;
// a suite that exits zero without them is treated as failed.
type Suite struct {
	Name         string
	Command      string
	WorkDir      string
	LogPath      string
	CoveragePath string
	// Packaging suites surface their full log content immediately on
	// failure, since downstream consumers may not retain the log.
	Packaging bool
}

// Result is the immutable outcome of one suite run.
type Result struct {
	Suite       Suite
	ExitCode    int
	CapturePath string
	Err         error
}

// Passed reports whether the suite exited zero and produced its declared
// artifacts.
func (r Result) Passed() bool { return r.ExitCode == 0 && r.Err == nil }

// MissingArtifactError reports a suite that claimed success but did not
// produce a declared log or coverage file.
type MissingArtifactError struct {
	Suite string
	Path  string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("suite %q reported success but artifact %s is missing", e.Suite, e.Path)
}

// Summary aggregates all suite results; the harness never stops after the
// first failing suite.
type Summary struct {
	Results []Result
}

// Failed reports whether at least one suite failed.
func (s *Summary) Failed() bool {
	for _, r := range s.Results {
		if !r.Passed() {
			return true
		}
	}
	return false
}

// Harness runs test suites to completion independently of each other.
// Suites run concurrently, bounded by Workers; the shared result list is
// the only shared state and is appended under a mutex.
type Harness struct {
	Workers    int
	CaptureDir string
}

// Run executes every suite and returns the aggregated summary. Individual
// suite failures never produce an error here; only environment failures
// (an unwritable capture directory) do.
func (h *Harness) Run(suites []Suite) (*Summary, error) {
	log := logger.Logger()

	workers := h.Workers
	if workers <= 0 {
		workers = len(suites)
	}
	if err := os.MkdirAll(h.CaptureDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating capture directory %s: %w", h.CaptureDir, err)
	}

	summary := &Summary{}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(workers)
	for _, suite := range suites {
		g.Go(func() error {
			res := h.runSuite(suite)
			mu.Lock()
			summary.Results = append(summary.Results, res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(summary.Results, func(i, j int) bool {
		return summary.Results[i].Suite.Name < summary.Results[j].Suite.Name
	})

	for _, r := range summary.Results {
		if r.Passed() {
			log.Infof("suite %s: passed", r.Suite.Name)
		} else {
			log.Warnf("suite %s: failed (exit %d): %v", r.Suite.Name, r.ExitCode, r.Err)
		}
	}
	return summary, nil
}

func (h *Harness) runSuite(suite Suite) Result {
	log := logger.Logger()
	log.Infof("suite %s: starting", suite.Name)

	res := Result{Suite: suite}

	output, runErr := shell.ExecCmd(suite.Command, false, suite.WorkDir, nil)
	res.ExitCode = shell.ExitCode(runErr)

	capturePath := filepath.Join(h.CaptureDir, suite.Name+"-output.log")
	if err := file.WriteWithDirs(capturePath, []byte(output), 0o644); err != nil {
		res.Err = fmt.Errorf("writing capture for suite %s: %w", suite.Name, err)
		return res
	}
	res.CapturePath = capturePath

	if runErr != nil {
		res.Err = runErr
		if suite.Packaging {
			h.dumpSuiteLog(suite, output)
		}
		return res
	}

	// success without the declared artifacts is indistinguishable from a
	// suite that never ran
	for _, artifact := range []string{suite.LogPath, suite.CoveragePath} {
		if artifact == "" {
			continue
		}
		if !file.Exists(artifact) {
			res.Err = &MissingArtifactError{Suite: suite.Name, Path: artifact}
			return res
		}
	}

	return res
}

// dumpSuiteLog emits the suite's declared log content in full, falling
// back to the captured output when the log was never written.
func (h *Harness) dumpSuiteLog(suite Suite, capturedOutput string) {
	log := logger.Logger()

	content := capturedOutput
	if suite.LogPath != "" {
		if data, err := os.ReadFile(suite.LogPath); err == nil {
			content = string(data)
		}
	}
	log.Errorf("suite %s failed, full log follows:\n%s", suite.Name, content)
}
