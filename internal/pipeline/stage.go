package pipeline

import "fmt"

// Policy decides what a stage failure does to the rest of the pipeline.
type Policy int

const (
	// Fatal stops the pipeline on the first non-zero exit.
	Fatal Policy = iota
	// Tolerant records the failure and lets later stages run; the overall
	// run still fails.
	Tolerant
)

func (p Policy) String() string {
	if p == Tolerant {
		return "tolerant"
	}
	return "fatal"
}

// ParsePolicy maps the pipeline-file policy strings onto a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "fatal", "":
		return Fatal, nil
	case "tolerant":
		return Tolerant, nil
	}
	return 0, fmt.Errorf("unknown stage policy %q (expected fatal or tolerant)", s)
}

// Status is the lifecycle state of one stage.
type Status int

const (
	Pending Status = iota
	Running
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Stage is one ordered unit of pipeline work: an external command run in
// a working directory under a failure policy. Stages communicate only via
// filesystem side effects and exit status.
type Stage struct {
	Name    string
	Command string
	WorkDir string
	Policy  Policy
}

// Result is the outcome of one executed stage.
type Result struct {
	Stage    Stage
	Status   Status
	ExitCode int
	LogPath  string
}

// StageError is returned when a fatal stage fails; it carries the stage
// log so callers can surface it without re-running.
type StageError struct {
	Stage    string
	Policy   Policy
	ExitCode int
	LogPath  string
	Output   string
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %q failed (%s, exit %d): %v",
		e.Stage, e.Policy, e.ExitCode, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
