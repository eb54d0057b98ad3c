package file_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/open-edge-platform/pkg-pipeline/internal/utils/file"
)

func TestIsSubPath(t *testing.T) {
	base := t.TempDir()
	sub := filepath.Join(base, "logs", "configure.log")

	ok, err := file.IsSubPath(base, sub)
	if err != nil {
		t.Fatalf("IsSubPath failed: %v", err)
	}
	if !ok {
		t.Errorf("expected %s to be a subpath of %s", sub, base)
	}

	ok, err = file.IsSubPath(base, filepath.Join(base, "..", "escape"))
	if err != nil {
		t.Fatalf("IsSubPath failed: %v", err)
	}
	if ok {
		t.Error("expected escape path not to be a subpath")
	}
}

func TestAppend(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.log")
	if err := file.Append("first\n", dst); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := file.Append("second\n", dst); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("reading appended file: %v", err)
	}
	if string(data) != "first\nsecond\n" {
		t.Errorf("unexpected content: %q", string(data))
	}
}

func TestWriteWithDirs(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "a", "b", "suite.log")
	if err := file.WriteWithDirs(dst, []byte("log body"), 0o644); err != nil {
		t.Fatalf("WriteWithDirs failed: %v", err)
	}
	if !file.Exists(dst) {
		t.Errorf("expected %s to exist", dst)
	}
}
