package artifacts

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/open-edge-platform/pkg-pipeline/internal/utils/file"
	"github.com/open-edge-platform/pkg-pipeline/internal/utils/logger"
)

// Bundle archives the run directory into dest. The compression codec is
// chosen from the destination suffix: .tar.xz or .tar.zst.
func Bundle(l *Layout, dest string) error {
	log := logger.Logger()

	// a destination inside the tree being archived would be walked into
	// its own bundle
	inside, err := file.IsSubPath(l.RunDir(), dest)
	if err != nil {
		return fmt.Errorf("resolving bundle destination %s: %w", dest, err)
	}
	if inside {
		return fmt.Errorf("bundle destination %s is inside the run directory", dest)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating bundle %s: %w", dest, err)
	}
	defer out.Close()

	compressor, err := newCompressor(out, dest)
	if err != nil {
		return err
	}

	tw := tar.NewWriter(compressor)
	if err := addTree(tw, l.RunDir(), l.RunID); err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("finalizing tar stream: %w", err)
	}
	if err := compressor.Close(); err != nil {
		return fmt.Errorf("finalizing compression stream: %w", err)
	}

	log.Infof("bundled run %s to %s", l.RunID, dest)
	return nil
}

func newCompressor(out io.Writer, dest string) (io.WriteCloser, error) {
	switch {
	case strings.HasSuffix(dest, ".tar.xz"):
		w, err := xz.NewWriter(out)
		if err != nil {
			return nil, fmt.Errorf("initializing xz writer: %w", err)
		}
		return w, nil
	case strings.HasSuffix(dest, ".tar.zst"):
		w, err := zstd.NewWriter(out)
		if err != nil {
			return nil, fmt.Errorf("initializing zstd writer: %w", err)
		}
		return w, nil
	default:
		return nil, fmt.Errorf("unsupported bundle format for %s: want .tar.xz or .tar.zst", dest)
	}
}

func addTree(tw *tar.Writer, root, prefix string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return fmt.Errorf("building tar header for %s: %w", path, err)
		}
		hdr.Name = filepath.ToSlash(filepath.Join(prefix, rel))
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("writing tar header for %s: %w", path, err)
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(tw, f); err != nil {
			return fmt.Errorf("archiving %s: %w", path, err)
		}
		return nil
	})
}
