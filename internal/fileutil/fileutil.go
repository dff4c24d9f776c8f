// Package fileutil provides scratch directory and file helpers.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for file utility operations.
var (
	ErrDirNameEmpty         = errors.New("directory name cannot be empty")
	ErrDirNamePathTraversal = errors.New("directory name contains path separator, dot segment or null byte")
)

// ScratchDirMode restricts scratch directories to the service user.
const ScratchDirMode = 0o700

// MakeScratchDir creates root if needed and a fresh directory named by a
// random UUID inside it. It returns the new directory's absolute path.
func MakeScratchDir(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving scratch root %q: %w", root, err)
	}
	if err := os.MkdirAll(abs, ScratchDirMode); err != nil {
		return "", fmt.Errorf("creating scratch root: %w", err)
	}

	name := uuid.NewString()
	if err := ValidateDirName(name); err != nil {
		return "", err
	}
	dir := filepath.Join(abs, name)
	// Mkdir, not MkdirAll: an existing directory means a collision.
	if err := os.Mkdir(dir, ScratchDirMode); err != nil {
		return "", fmt.Errorf("creating scratch directory: %w", err)
	}
	return dir, nil
}

// ValidateDirName checks that name is a single path element.
func ValidateDirName(name string) error {
	if name == "" {
		return ErrDirNameEmpty
	}
	if name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return ErrDirNamePathTraversal
	}
	return nil
}

// RemoveAllRetry removes path recursively, retrying up to attempts times.
// The wait before the first retry is backoff and doubles after each
// failure. A path that does not exist counts as removed.
func RemoveAllRetry(path string, attempts int, backoff time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}
		err = os.RemoveAll(path)
		if err == nil || errors.Is(err, os.ErrNotExist) {
			return nil
		}
	}
	return fmt.Errorf("removing %s after %d attempts: %w", path, attempts, err)
}

// DirExists returns true if the path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// CheckWritable reports whether files can be created in dir, creating dir
// if it does not exist.
func CheckWritable(dir string) error {
	if err := os.MkdirAll(dir, ScratchDirMode); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, ".web2pdf-probe-*")
	if err != nil {
		return fmt.Errorf("%s is not writable: %w", dir, err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, so readers never observe a partial document.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tmp := tmpFile.Name()
	cleanup := func() { _ = os.Remove(tmp) }

	if _, writeErr := tmpFile.Write(data); writeErr != nil {
		_ = tmpFile.Close()
		cleanup()
		return fmt.Errorf("writing temp file: %w", writeErr)
	}
	if closeErr := tmpFile.Close(); closeErr != nil {
		cleanup()
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Chmod(tmp, perm); err != nil {
		cleanup()
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		cleanup()
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
