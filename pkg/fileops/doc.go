// Package fileops provides the filesystem driver behind project directories.
//
// # Operations
//
//   - EnsureDirectoryExists: mkdir -p, safe to repeat
//   - CopyTree: recursive copy, optionally non-overwriting (template seeding)
//   - Move: rename with a cross-device copy fallback, never overwrites
//   - RemoveAll: recursive delete, succeeds when the path is already gone
//   - AtomicCopy / AtomicWriteFile: temp file + rename so readers never see
//     half-written content
//
// # Path Validation
//
// ValidatePathSecurity rejects traversal sequences and reserved system
// directories. Combine it with filepath.IsAbs when a caller requires an
// absolute path:
//
//	if !filepath.IsAbs(dir) {
//	    return fmt.Errorf("directory must be absolute")
//	}
//	if err := fileops.ValidatePathSecurity(dir); err != nil {
//	    return fmt.Errorf("directory rejected: %w", err)
//	}
//
// None of the functions log; errors carry the failing path and wrap the
// underlying os error so callers can test for fs.ErrNotExist.
package fileops
