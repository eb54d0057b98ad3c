package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/open-edge-platform/pkg-pipeline/internal/utils/shell"
)

func TestExecuteVerifyInstall(t *testing.T) {
	withTestConfig(t, t.TempDir(), t.TempDir())
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "app-1.0-1.x86_64.rpm"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	mock := withMock(t, []shell.MockCommand{
		{Pattern: "rpm -i --test", Output: "ok\n"},
	})

	cmd := createVerifyInstallCommand()
	cmd.SetArgs([]string{dir})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("verify-install failed: %v", err)
	}
	if len(mock.Calls) != 1 || !strings.Contains(mock.Calls[0], "app-1.0-1.x86_64.rpm") {
		t.Errorf("manager invocation = %v", mock.Calls)
	}
}

func TestExecuteVerifyInstallFailure(t *testing.T) {
	withTestConfig(t, t.TempDir(), t.TempDir())
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "app-1.0-1.x86_64.rpm"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	withMock(t, []shell.MockCommand{
		{Pattern: "rpm -i --test", Output: "error: Failed dependencies\n", Error: exitError(t, 1)},
	})

	cmd := createVerifyInstallCommand()
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetArgs([]string{dir})
	if err := cmd.Execute(); err == nil {
		t.Error("expected install failure")
	}
}

func TestExecuteVerifyInstallCmdOverride(t *testing.T) {
	withTestConfig(t, t.TempDir(), t.TempDir())
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "app-1.0-1.x86_64.rpm"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	mock := withMock(t, []shell.MockCommand{
		{Pattern: "dnf install --assumeno", Output: "ok\n"},
	})

	cmd := createVerifyInstallCommand()
	cmd.SetArgs([]string{"--install-cmd", "dnf install --assumeno", dir})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("verify-install failed: %v", err)
	}
	if len(mock.Calls) != 1 || !strings.Contains(mock.Calls[0], "dnf install --assumeno") {
		t.Errorf("manager invocation = %v", mock.Calls)
	}
}
