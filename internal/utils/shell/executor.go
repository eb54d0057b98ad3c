package shell

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// Executor runs a fully-prepared command line and returns its interleaved
// stdout+stderr output. Default is swapped for a MockExecutor in tests so
// nothing shells out.
type Executor interface {
	Run(fullCmdStr string, workDir string, stdin string) (string, error)
}

// Default is the process-wide executor used by the ExecCmd helpers.
var Default Executor = &bashExecutor{}

type bashExecutor struct{}

func (e *bashExecutor) Run(fullCmdStr string, workDir string, stdin string) (string, error) {
	cmd := exec.Command("bash", "-c", fullCmdStr)
	if workDir != HostPath {
		cmd.Dir = workDir
	}
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// MockCommand is one canned response for the MockExecutor. Pattern is a
// substring matched against the prepared command line.
type MockCommand struct {
	Pattern string
	Output  string
	Error   error
}

// MockExecutor satisfies Executor with canned responses and records every
// command it receives. Safe for concurrent use.
type MockExecutor struct {
	Commands []MockCommand

	mu    sync.Mutex
	Calls []string
}

// NewMockExecutor builds a MockExecutor with the given canned responses.
func NewMockExecutor(commands []MockCommand) *MockExecutor {
	return &MockExecutor{Commands: commands}
}

func (m *MockExecutor) Run(fullCmdStr string, workDir string, stdin string) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, fullCmdStr)
	m.mu.Unlock()
	for _, mc := range m.Commands {
		if strings.Contains(fullCmdStr, mc.Pattern) {
			return mc.Output, mc.Error
		}
	}
	return "", fmt.Errorf("mock executor: no canned response for %q", fullCmdStr)
}
