// Package gitlocal performs the local git plumbing behind a project
// directory: init, remote bookkeeping and fast-forward pulls.
//
// It is deliberately not a git client. There is no merge, no branch
// management and no commit creation; Pull refuses anything that is not a
// fast-forward.
package gitlocal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"yarvis/internal/logging"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/config"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/transport/http"
)

var (
	// ErrNotRepository is returned for directories without git metadata.
	ErrNotRepository = errors.New("not a git repository")
	// ErrRemoteNotFound is returned when the named remote is not configured.
	ErrRemoteNotFound = errors.New("remote not found")
	// ErrNonFastForward is returned by Pull when local history has diverged.
	ErrNonFastForward = errors.New("pull is not a fast-forward")
	// ErrDirtyWorktree is returned by Pull when tracked files have local changes.
	ErrDirtyWorktree = errors.New("working tree has uncommitted changes")
)

// Driver is the local repository contract used by projects.
type Driver interface {
	// IsRepository reports whether dir holds git metadata.
	IsRepository(dir string) bool
	// Init creates a repository in dir. Existing repositories are left alone.
	Init(dir string) error
	// Remove deletes the git metadata of dir, keeping the files. Idempotent.
	Remove(dir string) error
	// Remotes returns remote name to first URL.
	Remotes(dir string) (map[string]string, error)
	AddRemote(dir, name, url string) error
	RemoveRemote(dir, name string) error
	// Pull fetches branch from remote and fast-forwards the current branch.
	Pull(ctx context.Context, dir, remote, branch string) error
}

// AuthResolver supplies HTTP credentials for a remote URL.
type AuthResolver func(remoteURL string) (username, password string, ok bool)

// GoGit implements Driver with go-git.
type GoGit struct {
	auth          AuthResolver
	defaultBranch string
	log           *logging.AppLogger
}

// Option configures GoGit.
type Option func(*GoGit)

// WithAuthResolver enables authenticated retries after an anonymous fetch
// is rejected.
func WithAuthResolver(r AuthResolver) Option {
	return func(g *GoGit) { g.auth = r }
}

// WithDefaultBranch sets the branch HEAD points at after Init.
func WithDefaultBranch(branch string) Option {
	return func(g *GoGit) { g.defaultBranch = branch }
}

// WithLogger sets the logger. Defaults to the package logger.
func WithLogger(l *logging.AppLogger) Option {
	return func(g *GoGit) { g.log = l }
}

// New returns a go-git backed driver.
func New(opts ...Option) *GoGit {
	g := &GoGit{defaultBranch: "master"}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = logging.GetDefault()
	}
	return g
}

var _ Driver = (*GoGit)(nil)

func open(dir string) (*git.Repository, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, dir)
		}
		return nil, fmt.Errorf("failed to open repository %s: %w", dir, err)
	}
	return repo, nil
}

func (g *GoGit) IsRepository(dir string) bool {
	_, err := git.PlainOpen(dir)
	return err == nil
}

func (g *GoGit) Init(dir string) error {
	repo, err := git.PlainInit(dir, false)
	if errors.Is(err, git.ErrRepositoryAlreadyExists) {
		g.log.Debug("Repository already initialized", "dir", dir)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to initialize repository in %s: %w", dir, err)
	}

	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(g.defaultBranch))
	if err := repo.Storer.SetReference(head); err != nil {
		return fmt.Errorf("failed to point HEAD at %s: %w", g.defaultBranch, err)
	}

	g.log.Debug("Repository initialized", "dir", dir, "branch", g.defaultBranch)
	return nil
}

func (g *GoGit) Remove(dir string) error {
	if err := os.RemoveAll(filepath.Join(dir, git.GitDirName)); err != nil {
		return fmt.Errorf("failed to remove git metadata from %s: %w", dir, err)
	}
	return nil
}

func (g *GoGit) Remotes(dir string) (map[string]string, error) {
	repo, err := open(dir)
	if err != nil {
		return nil, err
	}

	remotes, err := repo.Remotes()
	if err != nil {
		return nil, fmt.Errorf("failed to list remotes: %w", err)
	}

	out := make(map[string]string, len(remotes))
	for _, r := range remotes {
		cfg := r.Config()
		url := ""
		if len(cfg.URLs) > 0 {
			url = cfg.URLs[0]
		}
		out[cfg.Name] = url
	}
	return out, nil
}

func (g *GoGit) AddRemote(dir, name, url string) error {
	repo, err := open(dir)
	if err != nil {
		return err
	}

	_, err = repo.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{url}})
	if err != nil {
		return fmt.Errorf("failed to add remote %s: %w", name, err)
	}
	g.log.Debug("Remote added", "dir", dir, "name", name, "url", url)
	return nil
}

func (g *GoGit) RemoveRemote(dir, name string) error {
	repo, err := open(dir)
	if err != nil {
		return err
	}

	if err := repo.DeleteRemote(name); err != nil {
		if errors.Is(err, git.ErrRemoteNotFound) {
			return fmt.Errorf("%w: %s", ErrRemoteNotFound, name)
		}
		return fmt.Errorf("failed to remove remote %s: %w", name, err)
	}
	g.log.Debug("Remote removed", "dir", dir, "name", name)
	return nil
}

// containsAuthErrorPatterns checks if error message contains authentication-related patterns
func containsAuthErrorPatterns(errMsg string) bool {
	errStr := strings.ToLower(errMsg)
	authPatterns := []string{
		"authentication required",
		"401",
		"unauthorized",
		"403",
		"forbidden",
	}

	for _, pattern := range authPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// isAuthenticationError checks if an error is related to authentication.
func isAuthenticationError(err error) bool {
	return err != nil && containsAuthErrorPatterns(err.Error())
}

// translateFetchError turns transport failures into actionable messages.
func translateFetchError(remote string, err error) error {
	errStr := strings.ToLower(err.Error())

	if containsAuthErrorPatterns(errStr) {
		return fmt.Errorf("authentication to remote %s failed - store credentials with `yarvis login`: %w", remote, err)
	}
	if strings.Contains(errStr, "couldn't find remote ref") || strings.Contains(errStr, "reference not found") {
		return fmt.Errorf("branch not found on remote %s: %w", remote, err)
	}
	if strings.Contains(errStr, "network") || strings.Contains(errStr, "connection") || strings.Contains(errStr, "timeout") {
		return fmt.Errorf("network error while fetching from %s: %w", remote, err)
	}
	return fmt.Errorf("failed to fetch from %s: %w", remote, err)
}

// basicAuth returns credentials for url from the resolver, or nil.
func (g *GoGit) basicAuth(url string) *http.BasicAuth {
	if g.auth == nil {
		return nil
	}
	username, password, ok := g.auth(url)
	if !ok {
		return nil
	}
	return &http.BasicAuth{Username: username, Password: password}
}
