package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IsSubPath checks if the target path is a subpath of the base path
func IsSubPath(base, target string) (bool, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return false, err
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(absBase, absTarget)
	if err != nil {
		return false, err
	}
	// rel == "." means same dir, rel starting with ".." means not subpath
	if rel == "." {
		return true, nil
	}
	if strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return false, nil
	}
	return true, nil
}

// Exists reports whether path refers to an existing file or directory.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Append appends a string to the end of file dst.
func Append(data string, dst string) error {
	dstFile, err := os.OpenFile(dst, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file %s for appending: %w", dst, err)
	}
	defer dstFile.Close()

	_, err = dstFile.WriteString(data)
	return err
}

// CreateWithDirs creates dst for writing, creating parent directories as
// needed. The caller owns closing the returned file.
func CreateWithDirs(dst string, perm os.FileMode) (*os.File, error) {
	dir := filepath.Dir(dst)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
}

// WriteWithDirs writes data to dst, creating parent directories as needed.
func WriteWithDirs(dst string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(dst)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return os.WriteFile(dst, data, perm)
}
