package fileops

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// AtomicCopy performs an atomic file copy operation from source to destination.
// The destination either appears fully copied or not at all: data is written
// to a temporary sibling file, synced, then renamed over the destination.
//
// Parameters:
//   - srcPath: Absolute path to the source file
//   - destPath: Absolute path to the destination file
//   - perm: Permission bits for the destination file
//
// Returns:
//   - error: Copy operation errors, including source access, destination creation,
//     or filesystem errors
//
// The temporary file is removed on any failure. Existing destinations are
// replaced without warning; callers decide whether overwriting is allowed.
func AtomicCopy(srcPath, destPath string, perm os.FileMode) error {
	srcFile, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	return writeAtomically(destPath, perm, func(w io.Writer) error {
		if _, err := io.Copy(w, srcFile); err != nil {
			return fmt.Errorf("failed to copy file contents: %w", err)
		}
		return nil
	})
}

// AtomicWriteFile writes data to path with the same temp-file-and-rename
// strategy as AtomicCopy. It is used for the record store and config files.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	return writeAtomically(path, perm, func(w io.Writer) error {
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("failed to write file contents: %w", err)
		}
		return nil
	})
}

func writeAtomically(destPath string, perm os.FileMode, fill func(io.Writer) error) error {
	// Unique suffix so concurrent writers in the same directory never share a temp file
	tempPath := fmt.Sprintf("%s.%s.tmp", destPath, uuid.NewString())
	tempFile, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	var success bool
	defer func() {
		tempFile.Close()
		if !success {
			os.Remove(tempPath)
		}
	}()

	if err := fill(tempFile); err != nil {
		return err
	}

	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Rename(tempPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	success = true
	return nil
}

// EnsureDirectoryExists creates a directory and all necessary parent directories.
// This is equivalent to `mkdir -p` and is safe to call multiple times.
//
// It fails when path exists but is not a directory.
func EnsureDirectoryExists(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// CopyTree recursively copies src into dst, creating dst when needed.
//
// When overwrite is false, files that already exist in dst are left as they
// are, which makes the copy safe to re-run over a partially populated
// directory. Symlinks are recreated rather than followed. A missing src is an
// error wrapping fs.ErrNotExist.
//
// Usage example:
//
//	// Seed a new project from a template without touching existing files
//	if err := fileops.CopyTree("/templates/c", "/home/me/projects/a", false); err != nil {
//	    return err
//	}
func CopyTree(src, dst string, overwrite bool) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("cannot access source %s: %w", src, err)
	}

	if !info.IsDir() {
		return copyEntry(src, dst, info.Mode(), overwrite)
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("cannot resolve %s relative to %s: %w", path, src, err)
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			dirInfo, err := d.Info()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(target, dirInfo.Mode().Perm()|0o700); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
			return nil
		}

		entryInfo, err := d.Info()
		if err != nil {
			return err
		}
		return copyEntry(path, target, entryInfo.Mode(), overwrite)
	})
}

func copyEntry(src, dst string, mode os.FileMode, overwrite bool) error {
	if _, err := os.Lstat(dst); err == nil {
		if !overwrite {
			return nil
		}
		if err := os.Remove(dst); err != nil {
			return fmt.Errorf("failed to replace %s: %w", dst, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", dst, err)
	}

	if mode&os.ModeSymlink != 0 {
		target, err := os.Readlink(src)
		if err != nil {
			return fmt.Errorf("failed to read symlink %s: %w", src, err)
		}
		return os.Symlink(target, dst)
	}

	if !mode.IsRegular() {
		// sockets, devices and pipes have no place in a template
		return nil
	}

	return AtomicCopy(src, dst, mode.Perm())
}

// Exists reports whether path can be stat'ed.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsNotExist reports whether err (or anything it wraps) means a missing path.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
