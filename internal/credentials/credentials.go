// Package credentials keeps hosting passwords and tokens in the OS keyring so
// they do not have to be typed for every remote operation.
package credentials

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/zalando/go-keyring"
)

// Service name for OS credential store
const credentialService = "yarvis"

// ErrNotFound is returned when no secret is stored for an account.
var ErrNotFound = errors.New("no stored credentials")

// Account identifies one stored secret: a hosting backend and a user on it.
type Account struct {
	API      string
	Username string
	// Hosts lists the git hosts the secret may be sent to. An account
	// without hosts is never offered to a remote.
	Hosts []string
}

func (a Account) serves(host string) bool {
	for _, h := range a.Hosts {
		if h != "" && strings.EqualFold(h, host) {
			return true
		}
	}
	return false
}

func (a Account) key() string {
	return a.API + ":" + a.Username
}

func (a Account) validate() error {
	if strings.TrimSpace(a.API) == "" {
		return fmt.Errorf("api cannot be empty")
	}
	if strings.TrimSpace(a.Username) == "" {
		return fmt.Errorf("username cannot be empty")
	}
	return nil
}

// Manager handles secure storage and retrieval of hosting credentials.
type Manager struct {
	service string
}

// NewManager creates a credential manager bound to the yarvis keyring service.
func NewManager() *Manager {
	return &Manager{service: credentialService}
}

// Store saves secret for account, replacing any previous value.
//
// When the account is on GitHub and the secret looks like a personal access
// token, the token format is checked before anything is written.
//
// Parameters:
//   - account: Backend and username the secret belongs to
//   - secret: Password or token
//
// Returns:
//   - error: Validation or keyring errors
func (m *Manager) Store(account Account, secret string) error {
	if err := account.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(secret) == "" {
		return fmt.Errorf("secret cannot be empty")
	}
	if account.API == "github" && LooksLikeToken(secret) {
		if err := ValidateTokenFormat(secret); err != nil {
			return fmt.Errorf("invalid token format: %w", err)
		}
	}

	if err := keyring.Set(m.service, account.key(), secret); err != nil {
		return fmt.Errorf("failed to store secret in credential store: %w", err)
	}
	return nil
}

// Get returns the secret stored for account. A missing entry wraps ErrNotFound.
func (m *Manager) Get(account Account) (string, error) {
	if err := account.validate(); err != nil {
		return "", err
	}

	secret, err := keyring.Get(m.service, account.key())
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w for %s (run `yarvis login %s --username %s`)",
				ErrNotFound, account.key(), account.API, account.Username)
		}
		return "", fmt.Errorf("failed to retrieve secret from credential store: %w", err)
	}

	if strings.TrimSpace(secret) == "" {
		return "", fmt.Errorf("%w for %s: stored value is empty", ErrNotFound, account.key())
	}
	return secret, nil
}

// Delete removes the secret for account. Deleting a missing entry is not an error.
func (m *Manager) Delete(account Account) error {
	if err := account.validate(); err != nil {
		return err
	}
	err := keyring.Delete(m.service, account.key())
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete secret from credential store: %w", err)
	}
	return nil
}

// Has reports whether a secret is stored for account without returning it.
func (m *Manager) Has(account Account) bool {
	_, err := m.Get(account)
	return err == nil
}

// Resolver returns a lookup usable as a git authentication callback. It
// yields the username and secret of the first account that serves the
// remote's host and has a secret stored. Remotes on any other host get
// nothing.
func (m *Manager) Resolver(accounts ...Account) func(remoteURL string) (string, string, bool) {
	return func(remoteURL string) (string, string, bool) {
		host := RemoteHost(remoteURL)
		if host == "" {
			return "", "", false
		}
		for _, account := range accounts {
			if account.API == "" || account.Username == "" || !account.serves(host) {
				continue
			}
			if secret, err := m.Get(account); err == nil {
				return account.Username, secret, true
			}
		}
		return "", "", false
	}
}

// RemoteHost returns the lower-cased host of a git remote URL, accepting both
// URL and scp-like ([user@]host:path) forms. Local paths yield "".
func RemoteHost(remoteURL string) string {
	remoteURL = strings.TrimSpace(remoteURL)
	if strings.Contains(remoteURL, "://") {
		u, err := url.Parse(remoteURL)
		if err != nil {
			return ""
		}
		return strings.ToLower(u.Hostname())
	}
	i := strings.Index(remoteURL, ":")
	if i <= 0 || strings.ContainsAny(remoteURL[:i], `/\`) {
		return ""
	}
	host := remoteURL[:i]
	if j := strings.LastIndex(host, "@"); j >= 0 {
		host = host[j+1:]
	}
	return strings.ToLower(host)
}

var tokenPrefixes = []string{
	"ghp_",        // Classic Personal Access Token
	"github_pat_", // Fine-grained Personal Access Token
	"gho_",        // OAuth token
	"ghu_",        // User-to-server token
	"ghs_",        // Server-to-server token
}

// LooksLikeToken reports whether secret carries a GitHub token prefix.
func LooksLikeToken(secret string) bool {
	secret = strings.TrimSpace(secret)
	for _, prefix := range tokenPrefixes {
		if strings.HasPrefix(secret, prefix) {
			return true
		}
	}
	return false
}

// ValidateTokenFormat validates that the token matches GitHub PAT format expectations.
// GitHub tokens have specific prefixes depending on their type:
//   - Classic PATs: ghp_*
//   - Fine-grained PATs: github_pat_*
//   - OAuth tokens: gho_*
//   - User-to-server tokens: ghu_*
//   - Server-to-server tokens: ghs_*
func ValidateTokenFormat(token string) error {
	token = strings.TrimSpace(token)

	// GitHub PATs are typically 40+ characters
	if len(token) < 20 {
		return fmt.Errorf("token too short (minimum 20 characters)")
	}

	if !LooksLikeToken(token) {
		return fmt.Errorf("token does not match expected GitHub PAT format (should start with %s)", strings.Join(tokenPrefixes, ", "))
	}
	return nil
}
