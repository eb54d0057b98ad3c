package installcheck

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/open-edge-platform/pkg-pipeline/internal/utils/logger"
	"github.com/open-edge-platform/pkg-pipeline/internal/utils/shell"
)

// InstallError reports that the package manager refused to install the
// built artifacts. It always carries the manager's full output; this is
// the pipeline's final correctness gate and is never tolerated.
type InstallError struct {
	ArtifactDir string
	ExitCode    int
	Output      string
	Err         error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("artifacts in %s failed to install (exit %d): %v",
		e.ArtifactDir, e.ExitCode, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }

// Result is the terminal record of one installability check.
type Result struct {
	Artifacts []string
	ExitCode  int
	Output    string
}

// Verifier confirms built package artifacts install cleanly via the
// target system's package manager.
type Verifier struct {
	// InstallCmd is the manager invocation the artifact paths are appended
	// to, e.g. "dnf install -y" or "rpm -i --test".
	InstallCmd string
	// Sudo runs the manager under sudo, needed for real installs.
	Sudo bool
	// CheckSignatures additionally GPG-verifies every artifact against
	// KeyringPath before handing them to the manager.
	CheckSignatures bool
	KeyringPath     string
	Workers         int
}

// Verify batch-installs every *.rpm under artifactDir in one manager
// invocation. Repeated invocation against already-installed artifacts is
// passed through to the manager's own semantics unchanged.
func (v *Verifier) Verify(artifactDir string) (*Result, error) {
	log := logger.Logger()

	pattern := filepath.Join(artifactDir, "*.rpm")
	artifacts, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("globbing artifacts in %s: %w", artifactDir, err)
	}
	if len(artifacts) == 0 {
		return nil, fmt.Errorf("no package artifacts found under %s", artifactDir)
	}
	sort.Strings(artifacts)

	// header reads are informational; the manager is the authority on
	// whether an artifact is a valid package
	inspections := InspectAll(artifacts, v.Workers)
	for _, ins := range inspections {
		if ins.Error != nil {
			log.Warnf("could not read header of %s: %v", filepath.Base(ins.Path), ins.Error)
			continue
		}
		log.Infof("artifact %s: %s", filepath.Base(ins.Path), ins.NEVRA)
	}

	if v.CheckSignatures {
		if err := v.verifySignatures(artifacts); err != nil {
			return nil, err
		}
	}

	cmdStr := v.InstallCmd + " " + strings.Join(artifacts, " ")
	log.Infof("verifying installability of %d artifacts", len(artifacts))

	// the manager output is surfaced below in full on failure; the silent
	// variant keeps it from being echoed twice
	output, runErr := shell.ExecCmdSilent(cmdStr, v.Sudo, shell.HostPath, nil)
	result := &Result{
		Artifacts: artifacts,
		ExitCode:  shell.ExitCode(runErr),
		Output:    output,
	}

	if runErr != nil {
		// surface the manager's full output; truncating it would force a
		// re-run to diagnose
		log.Errorf("package manager rejected artifacts:\n%s", output)
		return result, &InstallError{
			ArtifactDir: artifactDir,
			ExitCode:    result.ExitCode,
			Output:      output,
			Err:         runErr,
		}
	}

	log.Infof("all %d artifacts installable", len(artifacts))
	return result, nil
}

func (v *Verifier) verifySignatures(artifacts []string) error {
	if v.KeyringPath == "" {
		return fmt.Errorf("signature checking enabled but no keyring configured")
	}
	results := VerifyAll(artifacts, v.KeyringPath, v.Workers)
	for _, res := range results {
		if !res.OK {
			return fmt.Errorf("signature verification failed for %s: %w", res.Path, res.Error)
		}
	}
	return nil
}
