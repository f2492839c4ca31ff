package fileops

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestValidatePathSecurity(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}

	tests := []struct {
		name        string
		path        string
		expectError bool
		errorText   string
	}{
		{name: "project directory", path: filepath.Join(os.TempDir(), "projects", "a")},
		{name: "relative path", path: "projects/a"},
		{name: "empty path", path: "", expectError: true, errorText: "path cannot be empty"},
		{name: "whitespace only path", path: "  \t ", expectError: true, errorText: "path cannot be empty"},
		{name: "traversal", path: "/home/me/../../etc", expectError: true, errorText: "path traversal not allowed"},
		{name: "dots inside a name", path: "/home/me/my..project"},
		{name: "system directory", path: "/etc", expectError: true, errorText: "reserved system directory"},
		{name: "child of a system directory", path: "/usr/bin/a", expectError: true, errorText: "reserved system directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathSecurity(tt.path)
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error for %q", tt.path)
				}
				if !strings.Contains(err.Error(), tt.errorText) {
					t.Errorf("error %q does not mention %q", err, tt.errorText)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error for %q: %v", tt.path, err)
			}
		})
	}
}

func TestIsReservedDirectory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		path     string
		reserved bool
	}{
		{path: "/", reserved: true},
		{path: "/proc/self", reserved: runtime.GOOS != "darwin"},
		{path: filepath.Join(home, ".ssh"), reserved: true},
		{path: filepath.Join(home, ".ssh", "id_ed25519"), reserved: true},
		{path: filepath.Join(home, "projects"), reserved: false},
		{path: t.TempDir(), reserved: false},
	}

	for _, tt := range tests {
		if got := IsReservedDirectory(tt.path); got != tt.reserved {
			t.Errorf("IsReservedDirectory(%q) = %v, want %v", tt.path, got, tt.reserved)
		}
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := map[string]string{
		"~":           home,
		"~/projects":  filepath.Join(home, "projects"),
		"/abs/path":   "/abs/path",
		"rel/path":    "rel/path",
		"~other/path": "~other/path",
	}
	for in, want := range tests {
		if got := ExpandPath(in); got != want {
			t.Errorf("ExpandPath(%q) = %q, want %q", in, got, want)
		}
	}
}
