package project

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"yarvis/internal/hosting"
	"yarvis/pkg/fileops"
)

// Validate checks rec against the configuration and every stored record.
// It may strip git fields the repo mode does not use.
func (m *Manager) Validate(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.validate(rec)
}

func (m *Manager) validate(rec *Record) error {
	if rec == nil {
		return fmt.Errorf("%w: record is required", ErrInvalidArgument)
	}

	switch {
	case strings.TrimSpace(rec.Name) == "":
		return invalid("name", "No name specified")
	case strings.TrimSpace(rec.Language) == "":
		return invalid("language", "No language selected")
	case strings.TrimSpace(rec.Directory) == "":
		return invalid("directory", "No directory specified")
	}

	if len(m.settings.Languages) > 0 && !slices.Contains(m.settings.Languages, rec.Language) {
		return invalid("language", fmt.Sprintf("Unknown language %q", rec.Language))
	}

	existing, err := m.all()
	if err != nil {
		return err
	}

	for _, other := range existing {
		if other.Name == rec.Name {
			return invalid("name", "This name is already taken by another project")
		}
	}

	if !filepath.IsAbs(rec.Directory) {
		return invalid("directory", "You must specify an absolute path to your project's directory.")
	}
	if err := fileops.ValidatePathSecurity(rec.Directory); err != nil {
		return &ValidationError{Field: "directory", Message: "This directory cannot hold a project.", Err: err}
	}
	if occupied(existing, filepath.Clean(rec.Directory), "") {
		return invalid("directory", "This directory is already used by another project")
	}

	if rec.Deadline != nil && rec.Deadline.Before(rec.Start) {
		return invalid("deadline", "The deadline cannot be before the start of the project.")
	}

	return validateGit(&rec.Git)
}

func validateGit(g *GitInfo) error {
	switch g.Repo {
	case RepoNone:
		g.API = ""
		g.Username = ""
		g.Password = ""
		g.LegacyUsername = ""
	case RepoNew:
		if g.API == "" {
			return invalid("git.api", "You must specify an API to use to create the repository.")
		}
		backend, err := hosting.ParseBackend(g.API)
		if err != nil {
			return &ValidationError{Field: "git.api", Message: "This API is not supported", Err: err}
		}
		if backend == hosting.BLIH && g.LegacyUsername == "" {
			return invalid("git.legacyUsername", `The "legacyUsername" field is mandatory to use the BLIH API.`)
		}
		if !g.HasCredentials() {
			return invalid("git.username", "You must provide credentials to create the repository.")
		}
		if backend != hosting.BLIH {
			g.LegacyUsername = ""
		}
	case RepoUse:
		if g.Remote == "" {
			return invalid("git.remote", "No remote specified.")
		}
	default:
		return invalid("git.repo", fmt.Sprintf("Unknown repository mode %q", g.Repo))
	}
	return nil
}

// occupied reports whether dir belongs to a record other than skip.
func occupied(records []Record, dir, skip string) bool {
	for _, r := range records {
		if r.Name == skip {
			continue
		}
		if filepath.Clean(r.Directory) == dir {
			return true
		}
	}
	return false
}
