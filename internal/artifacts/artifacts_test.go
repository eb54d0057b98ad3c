package artifacts_test

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/open-edge-platform/pkg-pipeline/internal/artifacts"
)

func TestLayoutPaths(t *testing.T) {
	l := artifacts.NewLayoutWithID("/work/artifacts", "run-1")

	cases := []struct {
		got, want string
	}{
		{l.RunDir(), filepath.Join("/work/artifacts", "run-1")},
		{l.StageLog("build"), filepath.Join("/work/artifacts", "run-1", "logs", "build.log")},
		{l.SuiteLog("unit"), filepath.Join("/work/artifacts", "run-1", "tests", "unit.log")},
		{l.SuiteCoverage("unit"), filepath.Join("/work/artifacts", "run-1", "tests", "unit-coverage.log")},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("got %s, want %s", c.got, c.want)
		}
	}
}

func TestNewLayoutUniqueRunIDs(t *testing.T) {
	a := artifacts.NewLayout("/work")
	b := artifacts.NewLayout("/work")
	if a.RunID == "" || a.RunID == b.RunID {
		t.Errorf("run IDs must be unique and non-empty: %q vs %q", a.RunID, b.RunID)
	}
}

func TestEnsureDirs(t *testing.T) {
	l := artifacts.NewLayout(t.TempDir())
	if err := l.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs failed: %v", err)
	}
	for _, dir := range []string{l.LogsDir(), l.TestsDir()} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("expected directory %s", dir)
		}
	}
}

func seedRun(t *testing.T) *artifacts.Layout {
	t.Helper()
	l := artifacts.NewLayoutWithID(t.TempDir(), "run-1")
	if err := l.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		l.StageLog("build"):  "building\n",
		l.SuiteLog("unit"):   "42 tests passed\n",
		l.SuiteCoverage("unit"): "total 87%\n",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return l
}

func readTarNames(t *testing.T, r io.Reader) map[string]string {
	t.Helper()
	entries := map[string]string{}
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			t.Fatal(err)
		}
		entries[hdr.Name] = string(data)
	}
	return entries
}

func TestBundleXZ(t *testing.T) {
	l := seedRun(t)
	dest := filepath.Join(t.TempDir(), "run-1.tar.xz")
	if err := artifacts.Bundle(l, dest); err != nil {
		t.Fatalf("Bundle failed: %v", err)
	}

	f, err := os.Open(dest)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	xr, err := xz.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	entries := readTarNames(t, xr)
	if got := entries["run-1/logs/build.log"]; got != "building\n" {
		t.Errorf("build log content = %q", got)
	}
	if _, ok := entries["run-1/tests/unit-coverage.log"]; !ok {
		t.Errorf("coverage report missing from bundle: %v", keys(entries))
	}
}

func TestBundleZstd(t *testing.T) {
	l := seedRun(t)
	dest := filepath.Join(t.TempDir(), "run-1.tar.zst")
	if err := artifacts.Bundle(l, dest); err != nil {
		t.Fatalf("Bundle failed: %v", err)
	}

	f, err := os.Open(dest)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zr, err := zstd.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	entries := readTarNames(t, zr)
	if got := entries["run-1/tests/unit.log"]; !strings.Contains(got, "42 tests passed") {
		t.Errorf("suite log content = %q", got)
	}
}

func TestBundleRefusesDestinationInsideRun(t *testing.T) {
	l := seedRun(t)
	if err := artifacts.Bundle(l, filepath.Join(l.RunDir(), "run-1.tar.xz")); err == nil {
		t.Error("expected error for destination inside the run directory")
	}
}

func TestBundleUnknownSuffix(t *testing.T) {
	l := seedRun(t)
	if err := artifacts.Bundle(l, filepath.Join(t.TempDir(), "run-1.zip")); err == nil {
		t.Error("expected error for unsupported bundle format")
	}
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
