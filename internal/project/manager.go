// Package project implements the project lifecycle: validation, creation
// with optional remote provisioning, archiving, moving and deletion.
//
// A Manager owns all record mutations. It is built with its collaborators
// injected:
//
//	mgr, err := project.NewManager(store, project.Settings{
//	    ProjectsDir: "/home/me/projects",
//	    ArchivesDir: "/home/me/archives",
//	    Languages:   []string{"c", "javascript"},
//	}, project.WithGitDriver(gitlocal.New()))
//
// Create and DeleteGlobal stop at the first failing step and never roll
// back what already happened. In particular a remote created by Create
// stays in place when attaching it locally fails; the returned error then
// matches ErrOrphanedRemote. Archive, Unarchive and Move put the directory
// back when the record cannot be saved.
package project

import (
	"context"
	"fmt"
	"sync"

	"yarvis/internal/gitlocal"
	"yarvis/internal/hosting"
	"yarvis/internal/logging"
)

// Host is the hosting adapter contract used by the manager.
type Host interface {
	Authenticate(username, password string) error
	Create(ctx context.Context, name string, opts hosting.CreateOptions) (string, error)
	Delete(ctx context.Context, name string) error
	AddCollaborator(ctx context.Context, name, collaborator, rights string) error
}

// HostFactory builds an unauthenticated Host for an api id.
type HostFactory func(api string) (Host, error)

// DefaultHostFactory returns a factory building hosting.Adapter values with opts.
func DefaultHostFactory(opts ...hosting.Option) HostFactory {
	return func(api string) (Host, error) {
		adapter, err := hosting.New(api, opts...)
		if err != nil {
			return nil, err
		}
		return adapter, nil
	}
}

// Settings are the configuration values the lifecycle depends on.
type Settings struct {
	ProjectsDir string
	ArchivesDir string
	// Languages lists the accepted language ids.
	Languages []string
	// DefaultBranch is pulled when adopting an existing remote. Defaults to "master".
	DefaultBranch string
}

// Manager drives project workflows and owns store read-modify-write.
type Manager struct {
	mu       sync.Mutex
	store    Store
	settings Settings
	hosts    HostFactory
	git      gitlocal.Driver
	log      *logging.AppLogger
}

// Option configures a Manager.
type Option func(*Manager)

// WithHostFactory sets how hosting adapters are built.
func WithHostFactory(f HostFactory) Option {
	return func(m *Manager) { m.hosts = f }
}

// WithGitDriver sets the local repository driver.
func WithGitDriver(d gitlocal.Driver) Option {
	return func(m *Manager) { m.git = d }
}

// WithLogger sets the logger. Defaults to the package logger.
func WithLogger(l *logging.AppLogger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager returns a Manager over store.
func NewManager(store Store, settings Settings, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidArgument)
	}
	if settings.DefaultBranch == "" {
		settings.DefaultBranch = "master"
	}

	m := &Manager{store: store, settings: settings}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logging.GetDefault()
	}
	if m.git == nil {
		m.git = gitlocal.New(gitlocal.WithLogger(m.log), gitlocal.WithDefaultBranch(settings.DefaultBranch))
	}
	if m.hosts == nil {
		m.hosts = DefaultHostFactory(hosting.WithLogger(m.log))
	}
	return m, nil
}

// Settings returns the manager's settings.
func (m *Manager) Settings() Settings {
	return m.settings
}

// host builds and authenticates the adapter for g.
func (m *Manager) host(g GitInfo) (Host, error) {
	if !g.HasCredentials() {
		return nil, ErrMissingCredentials
	}
	if _, err := hosting.ParseBackend(g.API); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAdapter, g.API)
	}

	h, err := m.hosts(g.API)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownAdapter, err)
	}
	if err := h.Authenticate(g.Username, g.Password); err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	return h, nil
}
