package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/open-edge-platform/pkg-pipeline/internal/utils/file"
	"github.com/open-edge-platform/pkg-pipeline/internal/utils/logger"
	"github.com/open-edge-platform/pkg-pipeline/internal/utils/shell"
)

// Runner executes an ordered stage sequence, one stage at a time. Each
// stage's interleaved stdout+stderr is captured to logs/<stage>.log under
// LogsDir, and a one-line record per stage accumulates in logs/pipeline.log.
// A failed fatal stage aborts the run; later stages never start and their
// logs are never created.
type Runner struct {
	LogsDir string
}

// Report aggregates the results of one pipeline run.
type Report struct {
	Results  []Result
	Aborted  bool
	Degraded bool
}

// Failed reports whether the run must map to a non-zero exit: any aborted
// run, and any degraded run even when every later stage succeeded.
func (r *Report) Failed() bool {
	return r.Aborted || r.Degraded
}

// Run executes the stages in order and returns the aggregated report.
// The returned error is non-nil only for a fatal stage failure (or an
// environment failure such as an unwritable log directory); tolerant
// failures are reported solely through the Report.
func (r *Runner) Run(stages []Stage) (*Report, error) {
	log := logger.Logger()
	report := &Report{}

	for _, stage := range stages {
		result := Result{Stage: stage, Status: Running}
		log.Infof("stage %s: starting in %s", stage.Name, displayDir(stage.WorkDir))

		output, runErr := shell.ExecCmd(stage.Command, false, stage.WorkDir, nil)
		exitCode := shell.ExitCode(runErr)

		logPath := filepath.Join(r.LogsDir, stage.Name+".log")
		if err := file.WriteWithDirs(logPath, []byte(output), 0o644); err != nil {
			return report, fmt.Errorf("writing stage log for %s: %w", stage.Name, err)
		}
		record := fmt.Sprintf("stage %s: exit %d\n", stage.Name, exitCode)
		if err := file.Append(record, filepath.Join(r.LogsDir, "pipeline.log")); err != nil {
			return report, fmt.Errorf("recording stage %s: %w", stage.Name, err)
		}
		result.LogPath = logPath
		result.ExitCode = exitCode

		if runErr == nil {
			result.Status = Succeeded
			report.Results = append(report.Results, result)
			log.Infof("stage %s: succeeded", stage.Name)
			continue
		}

		result.Status = Failed
		report.Results = append(report.Results, result)

		if stage.Policy == Tolerant {
			report.Degraded = true
			log.Warnf("stage %s: failed (exit %d), continuing (tolerant)", stage.Name, exitCode)
			continue
		}

		report.Aborted = true
		// surface the full captured log so a human can diagnose without
		// re-running
		log.Errorf("stage %s: failed (exit %d), aborting pipeline\n%s", stage.Name, exitCode, output)
		return report, &StageError{
			Stage:    stage.Name,
			Policy:   stage.Policy,
			ExitCode: exitCode,
			LogPath:  logPath,
			Output:   output,
			Err:      runErr,
		}
	}

	if report.Degraded {
		log.Warnf("pipeline completed with tolerant stage failures")
	}
	return report, nil
}

func displayDir(dir string) string {
	if dir == shell.HostPath {
		return "."
	}
	return dir
}
