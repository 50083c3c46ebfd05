// Package fileutils contains helpers for writing local state files.
package fileutils

import (
	"os"
	"path/filepath"
)

// EnsureParentDir creates the parent directory of path, and any of its parents, if absent.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	return os.MkdirAll(dir, 0o755)
}

// WriteFileAtomic writes data to a temporary file next to path and renames it over path, so a
// reader never observes a partially written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := EnsureParentDir(path); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return err
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmpName)

		return err
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)

		return err
	}

	return os.Rename(tmpName, path)
}
