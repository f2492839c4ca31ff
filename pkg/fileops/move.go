package fileops

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// ErrDestinationExists is returned by Move when the target path is taken.
var ErrDestinationExists = errors.New("destination already exists")

// Move relocates src to dst, creating dst's parent directories as needed.
//
// The move is a rename when both paths live on the same filesystem. Across
// devices it falls back to CopyTree followed by RemoveAll of the source; in
// that case a failure while removing the source leaves both copies behind.
//
// Move never overwrites: an existing dst yields ErrDestinationExists, and a
// missing src yields an error wrapping fs.ErrNotExist.
func Move(src, dst string) error {
	if _, err := os.Lstat(src); err != nil {
		return fmt.Errorf("cannot access source %s: %w", src, err)
	}

	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("cannot move %s: %w: %s", src, ErrDestinationExists, dst)
	}

	if err := EnsureDirectoryExists(filepath.Dir(dst)); err != nil {
		return err
	}

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}

	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("failed to move %s to %s: %w", src, dst, err)
	}

	if err := CopyTree(src, dst, false); err != nil {
		return fmt.Errorf("failed to copy %s across devices: %w", src, err)
	}
	if err := os.RemoveAll(src); err != nil {
		return fmt.Errorf("copied %s to %s but failed to remove the source: %w", src, dst, err)
	}
	return nil
}

// RemoveAll deletes path and everything below it. Removing a path that does
// not exist succeeds.
func RemoveAll(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}
