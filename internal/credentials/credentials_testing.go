package credentials

import (
	"fmt"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"
)

// TestManager wraps Manager with a per-test keyring service so tests never
// touch the developer's real credentials.
//
// The OS keyring is replaced by go-keyring's in-memory mock, which makes the
// helpers safe in CI where no Secret Service is running.
//
// Usage:
//
//	creds := credentials.NewTestManager(t)
//	creds.MustStore(credentials.Account{API: "github", Username: "octocat"}, "secret")
//	username, secret, ok := creds.Resolver(credentials.Account{
//		API: "github", Username: "octocat", Hosts: []string{"github.com"},
//	})("https://github.com/octocat/a.git")
type TestManager struct {
	*Manager
	t *testing.T
}

// NewTestManager installs the mock keyring and returns an isolated manager.
func NewTestManager(t *testing.T) *TestManager {
	t.Helper()
	keyring.MockInit()

	service := fmt.Sprintf("yarvis-test-%s", strings.ReplaceAll(t.Name(), "/", "_"))
	return &TestManager{
		Manager: &Manager{service: service},
		t:       t,
	}
}

// MustStore stores secret for account and fails the test on error.
func (tm *TestManager) MustStore(account Account, secret string) {
	tm.t.Helper()
	if err := tm.Store(account, secret); err != nil {
		tm.t.Fatalf("failed to store test credentials: %v", err)
	}
}

// CreateTestToken generates a token that passes ValidateTokenFormat but is
// not a real GitHub token. Empty prefix means "ghp_".
func CreateTestToken(prefix string) string {
	if prefix == "" {
		prefix = "ghp_"
	}
	return prefix + "1234567890abcdefghijklmnopqrstuvwxyzABCD"
}
