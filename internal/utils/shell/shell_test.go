package shell_test

import (
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/open-edge-platform/pkg-pipeline/internal/utils/shell"
)

func TestGetFullCmdStr(t *testing.T) {
	cmd, err := shell.GetFullCmdStr("echo 'hello'", false, nil)
	if err != nil {
		t.Fatalf("GetFullCmdStr failed: %v", err)
	}
	if !strings.Contains(cmd, "/usr/bin/echo 'hello'") {
		t.Errorf("Expected full path for echo, got: %s", cmd)
	}
}

func TestGetFullCmdStrScriptPath(t *testing.T) {
	cmd, err := shell.GetFullCmdStr("./autogen.sh && ./configure", false, nil)
	if err != nil {
		t.Fatalf("GetFullCmdStr failed for script path: %v", err)
	}
	if !strings.Contains(cmd, "./autogen.sh && ./configure") {
		t.Errorf("Expected script paths to pass through, got: %s", cmd)
	}
}

func TestGetFullCmdStrUnknownTool(t *testing.T) {
	_, err := shell.GetFullCmdStr("nonexistent-tool --flag", false, nil)
	if err == nil {
		t.Fatal("expected error for unknown tool")
	}
	if !errors.Is(err, shell.ErrToolNotFound) {
		t.Errorf("expected ErrToolNotFound, got: %v", err)
	}
}

func TestExecCmd(t *testing.T) {
	out, err := shell.ExecCmd("echo 'test-exec-cmd'", false, shell.HostPath, nil)
	if err != nil {
		t.Fatalf("ExecCmd failed: %v", err)
	}
	if !strings.Contains(out, "test-exec-cmd") {
		t.Errorf("Expected output to contain 'test-exec-cmd', got: %s", out)
	}
}

func TestExecCmdWorkDir(t *testing.T) {
	dir := t.TempDir()
	out, err := shell.ExecCmd("sh -c pwd", false, dir, nil)
	if err != nil {
		t.Fatalf("ExecCmd in workDir failed: %v", err)
	}
	if !strings.Contains(out, dir) {
		t.Errorf("Expected output to contain %q, got: %s", dir, out)
	}
}

func TestExecCmdWithInput(t *testing.T) {
	out, err := shell.ExecCmdWithInput("input-line", "cat", false, shell.HostPath, nil)
	if err != nil {
		t.Fatalf("ExecCmdWithInput failed: %v", err)
	}
	if !strings.Contains(out, "input-line") {
		t.Errorf("Expected output to contain 'input-line', got: %s", out)
	}
}

func TestExecCmdOverride(t *testing.T) {
	originalExecutor := shell.Default
	defer func() { shell.Default = originalExecutor }()
	mockExpectedOutput := []shell.MockCommand{
		{Pattern: "echo 'test-exec-cmd-override'", Output: "override-test\n", Error: nil},
	}
	shell.Default = shell.NewMockExecutor(mockExpectedOutput)
	out, err := shell.ExecCmd("echo 'test-exec-cmd-override'", true, shell.HostPath, nil)
	if err != nil {
		t.Fatalf("ExecCmd with override failed: %v", err)
	}
	if !strings.Contains(out, "override-test") {
		t.Errorf("Expected output to contain 'override-test', got: %s", out)
	}
}

func TestExecCmdSilentOverride(t *testing.T) {
	originalExecutor := shell.Default
	defer func() { shell.Default = originalExecutor }()
	mockExpectedOutput := []shell.MockCommand{
		{Pattern: "echo 'test-exec-cmd-override'", Output: "override-test\n", Error: nil},
	}
	shell.Default = shell.NewMockExecutor(mockExpectedOutput)
	out, err := shell.ExecCmdSilent("echo 'test-exec-cmd-override'", false, shell.HostPath, nil)
	if err != nil {
		t.Fatalf("ExecCmdSilent with override failed: %v", err)
	}
	if !strings.Contains(out, "override-test") {
		t.Errorf("Expected output to contain 'override-test', got: %s", out)
	}
}

func TestMockExecutorRecordsCalls(t *testing.T) {
	mock := shell.NewMockExecutor([]shell.MockCommand{
		{Pattern: "make", Output: "done\n"},
	})
	if _, err := mock.Run("/usr/bin/make rpms", "", ""); err != nil {
		t.Fatalf("mock Run failed: %v", err)
	}
	if len(mock.Calls) != 1 || !strings.Contains(mock.Calls[0], "make rpms") {
		t.Errorf("expected recorded call, got: %v", mock.Calls)
	}
}

func TestExitCode(t *testing.T) {
	if got := shell.ExitCode(nil); got != 0 {
		t.Errorf("ExitCode(nil) = %d, want 0", got)
	}

	cmd := exec.Command("bash", "-c", "exit 3")
	runErr := cmd.Run()
	if runErr == nil {
		t.Fatal("expected non-zero exit")
	}
	if got := shell.ExitCode(runErr); got != 3 {
		t.Errorf("ExitCode = %d, want 3", got)
	}

	if got := shell.ExitCode(errors.New("never ran")); got != -1 {
		t.Errorf("ExitCode for non-exec error = %d, want -1", got)
	}
}
