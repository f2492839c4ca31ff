// Package hosting creates, deletes and shares remote repositories on the
// supported hosting backends behind one Adapter type.
//
// # Backends
//
//   - github: GitHub REST API (or a GitHub Enterprise endpoint)
//   - blih: the campus legacy API, requests signed with the user's password hash
//
// The backend is chosen once in New. Authenticate binds a session; every
// other call fails with ErrNotAuthenticated until it has been made:
//
//	adapter, err := hosting.New("blih")
//	if err != nil {
//	    return err
//	}
//	adapter.Authenticate("bob", password)
//	url, err := adapter.Create(ctx, "A", hosting.CreateOptions{LegacyUsername: "bob"})
//	// url == "git@git.epitech.eu:/bob/A"
package hosting

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"yarvis/internal/logging"
)

// Backend identifies a supported hosting API.
type Backend string

const (
	GitHub Backend = "github"
	BLIH   Backend = "blih"
)

const (
	defaultBLIHBaseURL = "https://blih.epitech.eu/"
	defaultLegacyHost  = "git.epitech.eu"
)

var (
	// ErrUnsupportedBackend is returned by New and ParseBackend for unknown ids.
	ErrUnsupportedBackend = errors.New("unsupported hosting backend")
	// ErrNotAuthenticated is returned by remote operations before Authenticate.
	ErrNotAuthenticated = errors.New("you must first authenticate into the API")
	// ErrInvalidRights is returned when a rights string carries no a/w/r flag.
	ErrInvalidRights = errors.New("rights must contain one of a, w or r")
	// ErrUnsupportedAuth is returned for an unknown GitHub authentication mode.
	ErrUnsupportedAuth = errors.New("unsupported authentication mode")
)

// GitHubAuth selects how the GitHub backend presents the password.
type GitHubAuth string

const (
	// GitHubAuthAuto sends tokens (ghp_, github_pat_, ...) as bearer tokens
	// and anything else as basic auth.
	GitHubAuthAuto  GitHubAuth = "auto"
	GitHubAuthBasic GitHubAuth = "basic"
	GitHubAuthToken GitHubAuth = "token"
)

// ParseGitHubAuth maps a configured mode to a GitHubAuth. Empty means auto.
func ParseGitHubAuth(mode string) (GitHubAuth, error) {
	switch a := GitHubAuth(strings.ToLower(strings.TrimSpace(mode))); a {
	case "", GitHubAuthAuto:
		return GitHubAuthAuto, nil
	case GitHubAuthBasic, GitHubAuthToken:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q (use auto, basic or token)", ErrUnsupportedAuth, mode)
	}
}

// RemoteAPIError wraps a failure reported by a hosting backend, keeping the
// backend's own message.
type RemoteAPIError struct {
	Backend    Backend
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteAPIError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s failed (HTTP %d): %s", e.Backend, e.Op, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Backend, e.Op, msg)
}

func (e *RemoteAPIError) Unwrap() error {
	return e.Err
}

// SupportedBackends lists the accepted backend ids.
func SupportedBackends() []Backend {
	return []Backend{GitHub, BLIH}
}

// ParseBackend maps an id such as "github" to its Backend.
func ParseBackend(id string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(id)))
	for _, supported := range SupportedBackends() {
		if b == supported {
			return b, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedBackend, id)
}

// CreateOptions carries the optional inputs of Create.
type CreateOptions struct {
	Description string
	// LegacyUsername replaces the login in BLIH clone URLs. Ignored by GitHub.
	LegacyUsername string
}

// backend builds sessions for one hosting API.
type backend interface {
	authenticate(username, password string) (session, error)
}

// session is an authenticated client bound to one backend.
type session interface {
	create(ctx context.Context, name string, opts CreateOptions) (string, error)
	delete(ctx context.Context, name string) error
	addCollaborator(ctx context.Context, name, collaborator, rights string) error
}

type options struct {
	githubBaseURL string
	githubAuth    string
	blihBaseURL   string
	legacyHost    string
	httpClient    *http.Client
	logger        *logging.AppLogger
}

// Option customizes endpoints and transport.
type Option func(*options)

// WithGitHubBaseURL points the GitHub backend at another REST root,
// e.g. "https://ghe.example.com/api/v3/".
func WithGitHubBaseURL(u string) Option {
	return func(o *options) { o.githubBaseURL = u }
}

// WithGitHubAuth forces the GitHub authentication mode ("basic" or "token")
// instead of guessing it from the password.
func WithGitHubAuth(mode string) Option {
	return func(o *options) { o.githubAuth = mode }
}

// WithBLIHBaseURL overrides the BLIH endpoint.
func WithBLIHBaseURL(u string) Option {
	return func(o *options) { o.blihBaseURL = u }
}

// WithLegacyHost overrides the SSH host used in BLIH clone URLs.
func WithLegacyHost(host string) Option {
	return func(o *options) { o.legacyHost = host }
}

// WithHTTPClient sets the base HTTP client used for every request. Its
// timeout and redirect policy carry over to authenticated sessions.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger sets the logger. Defaults to the package logger.
func WithLogger(l *logging.AppLogger) Option {
	return func(o *options) { o.logger = l }
}

// Adapter exposes create, delete and addCollaborator uniformly across backends.
type Adapter struct {
	backend Backend
	impl    backend
	sess    session
	log     *logging.AppLogger
}

// New returns an unauthenticated adapter for the backend named by api.
func New(api string, opts ...Option) (*Adapter, error) {
	b, err := ParseBackend(api)
	if err != nil {
		return nil, err
	}

	o := options{
		blihBaseURL: defaultBLIHBaseURL,
		legacyHost:  defaultLegacyHost,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.GetDefault()
	}
	if o.httpClient == nil {
		o.httpClient = http.DefaultClient
	}

	a := &Adapter{backend: b, log: o.logger.With("backend", string(b))}
	switch b {
	case GitHub:
		auth, err := ParseGitHubAuth(o.githubAuth)
		if err != nil {
			return nil, err
		}
		a.impl = &githubBackend{baseURL: o.githubBaseURL, auth: auth, httpClient: o.httpClient}
	case BLIH:
		a.impl = &blihBackend{baseURL: o.blihBaseURL, host: o.legacyHost, httpClient: o.httpClient}
	}
	return a, nil
}

// Backend returns the backend chosen at construction.
func (a *Adapter) Backend() Backend {
	return a.backend
}

// Authenticated reports whether Authenticate has succeeded.
func (a *Adapter) Authenticated() bool {
	return a.sess != nil
}

// Authenticate binds a session for username. No network call is made; bad
// credentials surface on the first remote operation.
func (a *Adapter) Authenticate(username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return fmt.Errorf("username and password are required")
	}
	sess, err := a.impl.authenticate(username, password)
	if err != nil {
		return err
	}
	a.sess = sess
	a.log.Debug("Authenticated", "username", username)
	return nil
}

// Create provisions a remote repository and returns its clone URL.
func (a *Adapter) Create(ctx context.Context, name string, opts CreateOptions) (string, error) {
	if a.sess == nil {
		return "", ErrNotAuthenticated
	}
	url, err := a.sess.create(ctx, name, opts)
	if err != nil {
		return "", err
	}
	a.log.Info("Remote repository created", "name", name, "url", url)
	return url, nil
}

// Delete removes the remote repository name.
func (a *Adapter) Delete(ctx context.Context, name string) error {
	if a.sess == nil {
		return ErrNotAuthenticated
	}
	if err := a.sess.delete(ctx, name); err != nil {
		return err
	}
	a.log.Info("Remote repository deleted", "name", name)
	return nil
}

// AddCollaborator grants collaborator access to name. rights holds a/w/r
// flags; GitHub maps them to admin/push/pull, BLIH receives them verbatim.
func (a *Adapter) AddCollaborator(ctx context.Context, name, collaborator, rights string) error {
	if a.sess == nil {
		return ErrNotAuthenticated
	}
	if strings.TrimSpace(collaborator) == "" {
		return fmt.Errorf("collaborator cannot be empty")
	}
	if err := a.sess.addCollaborator(ctx, name, collaborator, rights); err != nil {
		return err
	}
	a.log.Info("Collaborator added", "name", name, "collaborator", collaborator, "rights", rights)
	return nil
}
