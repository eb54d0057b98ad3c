// Package artifacts defines the on-disk layout of a pipeline run: where
// stage logs, suite captures, and coverage reports land, and how a
// finished run is bundled for retention.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Layout is the directory structure for a single pipeline run. All
// paths are rooted under Root/RunID so concurrent runs never collide.
type Layout struct {
	Root  string
	RunID string
}

// NewLayout allocates a layout with a fresh run identifier.
func NewLayout(root string) *Layout {
	return &Layout{Root: root, RunID: uuid.New().String()}
}

// NewLayoutWithID resumes or inspects an existing run.
func NewLayoutWithID(root, runID string) *Layout {
	return &Layout{Root: root, RunID: runID}
}

func (l *Layout) RunDir() string {
	return filepath.Join(l.Root, l.RunID)
}

// LogsDir holds one log file per stage.
func (l *Layout) LogsDir() string {
	return filepath.Join(l.RunDir(), "logs")
}

// TestsDir holds per-suite captures and coverage reports.
func (l *Layout) TestsDir() string {
	return filepath.Join(l.RunDir(), "tests")
}

func (l *Layout) StageLog(stage string) string {
	return filepath.Join(l.LogsDir(), stage+".log")
}

func (l *Layout) SuiteLog(suite string) string {
	return filepath.Join(l.TestsDir(), suite+".log")
}

func (l *Layout) SuiteCoverage(suite string) string {
	return filepath.Join(l.TestsDir(), suite+"-coverage.log")
}

// EnsureDirs creates the run's directory skeleton.
func (l *Layout) EnsureDirs() error {
	for _, dir := range []string{l.LogsDir(), l.TestsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}
