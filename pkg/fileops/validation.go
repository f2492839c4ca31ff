package fileops

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ValidatePathSecurity rejects paths that are empty, contain traversal
// sequences, or point into system or otherwise reserved directories.
//
// The check is static: it does not require the path to exist.
//
// Usage example:
//
//	if err := fileops.ValidatePathSecurity("/etc/project"); err != nil {
//	    return err // reserved directory
//	}
func ValidatePathSecurity(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path cannot be empty")
	}

	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("path traversal not allowed")
		}
	}

	if filepath.IsAbs(path) && IsReservedDirectory(filepath.Clean(path)) {
		return fmt.Errorf("%s is a reserved system directory", path)
	}

	return nil
}

// ExpandPath expands a leading "~/" to the user's home directory.
// Any other path is returned unchanged.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}

// IsReservedDirectory checks if the path is a system or reserved directory
// (or a child of one) that must never hold project data.
//
// Symlinks are resolved when possible so /private/etc and /etc compare equal
// on macOS. User temp directories are always allowed.
func IsReservedDirectory(path string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return true
	}
	absPath = filepath.Clean(absPath)
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = resolved
	}

	if absPath == "/" || absPath == `\` || strings.EqualFold(absPath, `C:\`) {
		return true
	}

	if isUserTempDirectory(absPath) {
		return false
	}

	pathLower := strings.ToLower(absPath)
	for _, reserved := range getReservedDirectories() {
		reservedLower := strings.ToLower(filepath.Clean(reserved))
		if pathLower == reservedLower || strings.HasPrefix(pathLower, reservedLower+string(os.PathSeparator)) {
			return true
		}
	}

	return false
}

// getReservedDirectories returns platform-specific reserved directories
func getReservedDirectories() []string {
	var reservedDirs []string

	switch runtime.GOOS {
	case "windows":
		reservedDirs = []string{
			`C:\Windows`,
			`C:\Program Files`,
			`C:\Program Files (x86)`,
			`C:\ProgramData\Microsoft`,
		}
	case "darwin":
		reservedDirs = []string{
			"/System",
			"/usr/bin",
			"/usr/sbin",
			"/bin",
			"/sbin",
			"/etc",
			"/var/log",
			"/var/db",
			"/var/root",
			"/Library/System",
			"/private/etc",
		}
	default:
		reservedDirs = []string{
			"/bin",
			"/sbin",
			"/usr/bin",
			"/usr/sbin",
			"/etc",
			"/boot",
			"/dev",
			"/proc",
			"/sys",
			"/var/log",
			"/var/lib",
			"/var/cache",
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		reservedDirs = append(reservedDirs,
			filepath.Join(home, ".ssh"),
			filepath.Join(home, ".gnupg"),
		)
	}

	return reservedDirs
}

// isUserTempDirectory detects legitimate user temp directories
func isUserTempDirectory(path string) bool {
	cleanPath := filepath.Clean(path)

	tempRoots := []string{filepath.Clean(os.TempDir())}
	if resolved, err := filepath.EvalSymlinks(os.TempDir()); err == nil {
		tempRoots = append(tempRoots, filepath.Clean(resolved))
	}
	if runtime.GOOS == "linux" {
		tempRoots = append(tempRoots, "/tmp")
	}

	for _, root := range tempRoots {
		if cleanPath == root || strings.HasPrefix(cleanPath, root+string(os.PathSeparator)) {
			return true
		}
	}

	return runtime.GOOS == "darwin" && strings.Contains(cleanPath, "/var/folders/")
}
