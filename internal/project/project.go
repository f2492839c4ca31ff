package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"yarvis/internal/gitlocal"
	"yarvis/pkg/fileops"
)

// GitState mirrors the local repository of a project directory.
type GitState struct {
	Enabled bool
	Remotes map[string]string
}

// Project is one working directory and the local git plumbing on it.
type Project struct {
	Name      string
	Directory string
	Git       GitState

	driver gitlocal.Driver
}

// Open binds name to dir, creating dir when missing. Existing git metadata
// is detected and its remotes are loaded.
func Open(name, dir string, driver gitlocal.Driver) (*Project, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: name and directory are required", ErrInvalidArgument)
	}
	if !filepath.IsAbs(dir) {
		return nil, fmt.Errorf("%w: project path must be absolute: %s", ErrInvalidArgument, dir)
	}
	if driver == nil {
		return nil, fmt.Errorf("%w: git driver is required", ErrInvalidArgument)
	}

	if err := fileops.EnsureDirectoryExists(dir); err != nil {
		return nil, ioError("create", dir, err)
	}

	p := attach(name, dir, driver)
	if err := p.refresh(); err != nil {
		return nil, err
	}
	return p, nil
}

// attach binds a project without touching the filesystem.
func attach(name, dir string, driver gitlocal.Driver) *Project {
	return &Project{
		Name:      name,
		Directory: dir,
		Git:       GitState{Remotes: map[string]string{}},
		driver:    driver,
	}
}

func (p *Project) refresh() error {
	p.Git.Enabled = p.driver.IsRepository(p.Directory)
	p.Git.Remotes = map[string]string{}
	if !p.Git.Enabled {
		return nil
	}
	remotes, err := p.driver.Remotes(p.Directory)
	if err != nil {
		return ioError("list remotes", p.Directory, err)
	}
	p.Git.Remotes = remotes
	return nil
}

// MoveTo moves the directory into dest, keeping its base name.
func (p *Project) MoveTo(dest string) error {
	if strings.TrimSpace(dest) == "" {
		return fmt.Errorf("%w: destination is required", ErrInvalidArgument)
	}
	return p.relocate(filepath.Join(dest, filepath.Base(p.Directory)))
}

// relocate moves the directory to exactly newDir.
func (p *Project) relocate(newDir string) error {
	if err := fileops.Move(p.Directory, newDir); err != nil {
		return ioError("move", p.Directory, err)
	}
	p.Directory = newDir
	return nil
}

// Include copies boilerplate into the directory. Files already present are kept.
func (p *Project) Include(boilerplate string) error {
	if strings.TrimSpace(boilerplate) == "" {
		return fmt.Errorf("%w: boilerplate path is required", ErrInvalidArgument)
	}
	if err := fileops.CopyTree(boilerplate, p.Directory, false); err != nil {
		return ioError("include", boilerplate, err)
	}
	return nil
}

// Delete removes the directory. A missing directory is not an error;
// reserved system directories and the home directory are refused.
func (p *Project) Delete() error {
	if home, err := os.UserHomeDir(); err == nil && filepath.Clean(p.Directory) == filepath.Clean(home) {
		return fmt.Errorf("%w: refusing to delete the home directory", ErrInvalidArgument)
	}
	if fileops.IsReservedDirectory(p.Directory) {
		return fmt.Errorf("%w: refusing to delete reserved directory %s", ErrInvalidArgument, p.Directory)
	}
	if err := fileops.RemoveAll(p.Directory); err != nil {
		return ioError("delete", p.Directory, err)
	}
	return nil
}

// GitEnable initializes a repository in the directory.
func (p *Project) GitEnable() error {
	if err := p.driver.Init(p.Directory); err != nil {
		return ioError("git init", p.Directory, err)
	}
	p.Git.Enabled = true
	return nil
}

// GitDisable removes the repository metadata, keeping the files.
func (p *Project) GitDisable() error {
	if err := p.driver.Remove(p.Directory); err != nil {
		return ioError("git remove", p.Directory, err)
	}
	p.Git.Enabled = false
	p.Git.Remotes = map[string]string{}
	return nil
}

// GitRemoteAdd configures remote name and records it in Git.Remotes.
func (p *Project) GitRemoteAdd(name, url string) error {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(url) == "" {
		return fmt.Errorf("%w: remote name and url are required", ErrInvalidArgument)
	}
	if err := p.driver.AddRemote(p.Directory, name, url); err != nil {
		return ioError("git remote add", p.Directory, err)
	}
	p.Git.Remotes[name] = url
	return nil
}

// GitRemoteRemove drops remote name. It fails when the remote is absent.
func (p *Project) GitRemoteRemove(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: remote name is required", ErrInvalidArgument)
	}
	if err := p.driver.RemoveRemote(p.Directory, name); err != nil {
		return ioError("git remote remove", p.Directory, err)
	}
	delete(p.Git.Remotes, name)
	return nil
}

// GitRemotePull fast-forwards the current branch to remote/branch.
func (p *Project) GitRemotePull(ctx context.Context, remote, branch string) error {
	if strings.TrimSpace(remote) == "" || strings.TrimSpace(branch) == "" {
		return fmt.Errorf("%w: remote and branch are required", ErrInvalidArgument)
	}
	if err := p.driver.Pull(ctx, p.Directory, remote, branch); err != nil {
		return ioError("git pull", p.Directory, err)
	}
	return nil
}
