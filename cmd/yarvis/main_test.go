package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"yarvis/internal/config"
	"yarvis/internal/credentials"
	"yarvis/internal/hosting"
	"yarvis/internal/logging"
	"yarvis/internal/project"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

type fakeHost struct {
	mu            sync.Mutex
	username      string
	password      string
	created       []string
	deleted       []string
	collaborators []string
}

func (h *fakeHost) factory(api string) (project.Host, error) {
	return h, nil
}

func (h *fakeHost) Authenticate(username, password string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.username, h.password = username, password
	return nil
}

func (h *fakeHost) Create(ctx context.Context, name string, opts hosting.CreateOptions) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.created = append(h.created, name)
	return fmt.Sprintf("https://example.test/%s/%s.git", h.username, name), nil
}

func (h *fakeHost) Delete(ctx context.Context, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deleted = append(h.deleted, name)
	return nil
}

func (h *fakeHost) AddCollaborator(ctx context.Context, name, collaborator, rights string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.collaborators = append(h.collaborators, name+":"+collaborator+":"+rights)
	return nil
}

type testEnv struct {
	root       string
	projects   string
	archives   string
	templates  string
	configPath string
	host       *fakeHost
	now        time.Time
}

func newTestEnv(t *testing.T, autoArchive bool) *testEnv {
	t.Helper()
	keyring.MockInit()

	root := t.TempDir()
	env := &testEnv{
		root:       root,
		projects:   filepath.Join(root, "projects"),
		archives:   filepath.Join(root, "archives"),
		templates:  filepath.Join(root, "boilerplates"),
		configPath: filepath.Join(root, "config.yaml"),
		host:       &fakeHost{},
		now:        time.Now(),
	}
	cfg := fmt.Sprintf(`projects:
  directory: %s
  boilerplates: %s
archives:
  directory: %s
  auto_archive: %t
git:
  default_branch: master
  apis:
    github:
      username: octocat
    blih:
      username: me@epitech.eu
      legacy_username: me
data_file: %s
`, env.projects, env.templates, env.archives, autoArchive, filepath.Join(root, "data.yaml"))
	require.NoError(t, os.WriteFile(env.configPath, []byte(cfg), 0600))
	return env
}

// run executes one command line with fresh command state and returns its output.
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(
		withLogger(logging.NewDiscardLogger()),
		withHostFactory(e.host.factory),
		withClock(func() time.Time { return e.now }),
	)
	root.SetArgs(append([]string{"--config", e.configPath}, args...))
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, "", args...)
	require.NoError(t, err, out)
	return out
}

func TestRootCmd_Commands(t *testing.T) {
	root := newRootCmd()
	want := []string{
		"new", "list", "show", "archive", "unarchive", "move", "forget", "delete",
		"collab", "remote", "boilerplates", "stats", "login", "logout", "edit", "mcp",
	}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
		assert.NotEmpty(t, cmd.Short, name)
	}

	newCmd, _, err := root.Find([]string{"new"})
	require.NoError(t, err)
	for _, flag := range []string{"language", "dir", "description", "deadline", "repo", "api", "username", "legacy-username", "remote", "boilerplate"} {
		assert.NotNil(t, newCmd.Flags().Lookup(flag), flag)
	}
}

func TestInvalidConfig(t *testing.T) {
	env := newTestEnv(t, false)
	require.NoError(t, os.WriteFile(env.configPath, []byte("projects:\n  directory: relative/path\n"), 0600))

	_, err := env.run(t, "", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestNewListShow(t *testing.T) {
	env := newTestEnv(t, false)

	out := env.mustRun(t, "new", "minishell", "--language", "c", "--description", "A tiny shell")
	assert.Contains(t, out, "Project minishell created in "+filepath.Join(env.projects, "minishell"))
	assert.DirExists(t, filepath.Join(env.projects, "minishell"))

	out = env.mustRun(t, "list")
	assert.Contains(t, out, "minishell")
	assert.Contains(t, out, "C")

	out = env.mustRun(t, "show", "minishell", "--raw")
	assert.Contains(t, out, "# minishell")
	assert.Contains(t, out, "A tiny shell")
	assert.Contains(t, out, "Local directory only.")

	out = env.mustRun(t, "list", "--archived")
	assert.Contains(t, out, "No projects.")
}

func TestNew_ValidationErrors(t *testing.T) {
	env := newTestEnv(t, false)

	tests := []struct {
		name    string
		args    []string
		message string
	}{
		{name: "missing language", args: []string{"new", "a"}, message: "No language selected"},
		{name: "unknown language", args: []string{"new", "a", "--language", "cobol"}, message: `Unknown language "cobol"`},
		{name: "relative dir", args: []string{"new", "a", "--language", "c", "--dir", "rel/a"}, message: "absolute path"},
		{name: "use without remote", args: []string{"new", "a", "--language", "c", "--repo", "use"}, message: "No remote specified."},
		{name: "bad deadline", args: []string{"new", "a", "--language", "c", "--deadline", "soon"}, message: "invalid deadline"},
		{name: "unknown boilerplate", args: []string{"new", "a", "--language", "c", "--boilerplate", "nope"}, message: "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.run(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}

	out := env.mustRun(t, "list")
	assert.Contains(t, out, "No projects.")
}

func TestNew_RemoteWithStoredCredentials(t *testing.T) {
	env := newTestEnv(t, false)

	out, err := env.run(t, "hunter2\n", "login", "github", "--password-stdin")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Stored credentials for octocat on github")

	out = env.mustRun(t, "new", "api", "--language", "c", "--repo", "new", "--api", "github")
	assert.Contains(t, out, "remote: https://example.test/octocat/api.git")

	assert.Equal(t, []string{"api"}, env.host.created)
	assert.Equal(t, "octocat", env.host.username)
	assert.Equal(t, "hunter2", env.host.password)

	out = env.mustRun(t, "remote", "list", "api")
	assert.Contains(t, out, "origin\thttps://example.test/octocat/api.git")
}

func TestAccounts_BoundToConfiguredHosts(t *testing.T) {
	keyring.MockInit()

	cfg := config.DefaultConfig()
	cfg.Git.APIs.GitHub.Username = "octocat"
	cfg.Git.APIs.GitHub.BaseURL = "https://ghe.example.com/api/v3/"
	cfg.Git.APIs.BLIH.Username = "me@epitech.eu"
	c := &cli{cfg: &cfg}

	creds := credentials.NewManager()
	require.NoError(t, creds.Store(credentials.Account{API: "github", Username: "octocat"}, "gh-secret"))
	require.NoError(t, creds.Store(credentials.Account{API: "blih", Username: "me@epitech.eu"}, "blih-secret"))
	resolve := creds.Resolver(c.accounts()...)

	user, secret, ok := resolve("https://github.com/octocat/a.git")
	require.True(t, ok)
	assert.Equal(t, "octocat", user)
	assert.Equal(t, "gh-secret", secret)

	_, secret, ok = resolve("https://ghe.example.com/team/a.git")
	require.True(t, ok)
	assert.Equal(t, "gh-secret", secret)

	user, secret, ok = resolve("git@git.epitech.eu:/me@epitech.eu/a")
	require.True(t, ok)
	assert.Equal(t, "me@epitech.eu", user)
	assert.Equal(t, "blih-secret", secret)

	_, _, ok = resolve("https://evil.example.org/trap.git")
	assert.False(t, ok)
}

func TestLogin_SavesUnconfiguredUsername(t *testing.T) {
	env := newTestEnv(t, false)
	raw, err := os.ReadFile(env.configPath)
	require.NoError(t, err)
	unconfigured := strings.Replace(string(raw), "      username: octocat\n", "      name: GitHub\n", 1)
	require.NotEqual(t, string(raw), unconfigured)
	require.NoError(t, os.WriteFile(env.configPath, []byte(unconfigured), 0600))

	_, err = env.run(t, "hunter2\n", "login", "github", "--password-stdin")
	require.Error(t, err, "no username configured or given")

	out, err := env.run(t, "hunter2\n", "login", "github", "-u", "hubot", "--password-stdin")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Saved hubot as the github username")

	cfg, err := config.LoadFrom(env.configPath)
	require.NoError(t, err)
	assert.Equal(t, "hubot", cfg.Git.APIs.GitHub.Username)
	assert.Equal(t, "me@epitech.eu", cfg.Git.APIs.BLIH.Username)
	assert.Equal(t, env.projects, cfg.Projects.Directory)

	// The saved username now backs remote creation
	env.mustRun(t, "new", "api", "--language", "c", "--repo", "new", "--api", "github")
	assert.Equal(t, "hubot", env.host.username)
	assert.Equal(t, "hunter2", env.host.password)

	// A configured username is never overwritten
	out, err = env.run(t, "other\n", "login", "github", "-u", "someone", "--password-stdin")
	require.NoError(t, err, out)
	assert.NotContains(t, out, "Saved")
	cfg, err = config.LoadFrom(env.configPath)
	require.NoError(t, err)
	assert.Equal(t, "hubot", cfg.Git.APIs.GitHub.Username)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, false)

	_, err := env.run(t, "s3cret\n", "login", "blih", "--password-stdin")
	require.NoError(t, err)

	out := env.mustRun(t, "logout", "blih")
	assert.Contains(t, out, "Removed credentials for me@epitech.eu on blih")

	_, err = env.run(t, "", "login", "gitlab", "--password-stdin")
	require.Error(t, err)
	assert.ErrorIs(t, err, hosting.ErrUnsupportedBackend)
}

func TestArchiveUnarchive(t *testing.T) {
	env := newTestEnv(t, false)
	env.mustRun(t, "new", "a", "--language", "c")

	out := env.mustRun(t, "archive", "a")
	assert.Contains(t, out, "archived to "+filepath.Join(env.archives, "a"))
	assert.DirExists(t, filepath.Join(env.archives, "a"))
	assert.NoDirExists(t, filepath.Join(env.projects, "a"))

	out = env.mustRun(t, "list", "--archived")
	assert.Contains(t, out, "a")

	_, err := env.run(t, "", "archive", "a")
	require.Error(t, err)
	assert.ErrorIs(t, err, project.ErrValidation)

	out = env.mustRun(t, "unarchive", "a")
	assert.Contains(t, out, "restored to "+filepath.Join(env.projects, "a"))
	assert.DirExists(t, filepath.Join(env.projects, "a"))
}

func TestList_AutoArchive(t *testing.T) {
	env := newTestEnv(t, true)

	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	env.mustRun(t, "new", "due", "--language", "c", "--deadline", tomorrow)
	env.mustRun(t, "new", "open", "--language", "c")

	out := env.mustRun(t, "list")
	assert.NotContains(t, out, "Archived overdue")

	env.now = time.Now().AddDate(0, 0, 3)
	out = env.mustRun(t, "list")
	assert.Contains(t, out, "Archived overdue project due")
	assert.Contains(t, out, "open")
	assert.DirExists(t, filepath.Join(env.archives, "due"))

	out = env.mustRun(t, "list", "--archived")
	assert.Contains(t, out, "due")
}

func TestMoveForget(t *testing.T) {
	env := newTestEnv(t, false)
	env.mustRun(t, "new", "a", "--language", "c")

	dest := filepath.Join(env.root, "elsewhere")
	out := env.mustRun(t, "move", "a", dest)
	assert.Contains(t, out, "moved to "+filepath.Join(dest, "a"))
	assert.DirExists(t, filepath.Join(dest, "a"))

	out = env.mustRun(t, "forget", "a")
	assert.Contains(t, out, "forgotten")
	assert.DirExists(t, filepath.Join(dest, "a"), "forget keeps files")

	_, err := env.run(t, "", "show", "a")
	assert.ErrorIs(t, err, project.ErrNotFound)
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t, false)
	env.mustRun(t, "new", "local", "--language", "c")

	out := env.mustRun(t, "delete", "local", "--yes")
	assert.Contains(t, out, "Project local deleted")
	assert.NoDirExists(t, filepath.Join(env.projects, "local"))
	assert.Empty(t, env.host.deleted)

	_, err := env.run(t, "pw\n", "login", "github", "--password-stdin")
	require.NoError(t, err)
	env.mustRun(t, "new", "global", "--language", "c", "--repo", "new", "--api", "github")

	out = env.mustRun(t, "delete", "global", "--remote", "--yes")
	assert.Contains(t, out, "and its remote repository deleted")
	assert.Equal(t, []string{"global"}, env.host.deleted)
	assert.NoDirExists(t, filepath.Join(env.projects, "global"))
}

func TestCollab(t *testing.T) {
	env := newTestEnv(t, false)
	_, err := env.run(t, "pw\n", "login", "github", "--password-stdin")
	require.NoError(t, err)
	env.mustRun(t, "new", "a", "--language", "c", "--repo", "new", "--api", "github")

	out := env.mustRun(t, "collab", "a", "ramassage-tek", "r")
	assert.Contains(t, out, "ramassage-tek can now access a (r)")
	assert.Equal(t, []string{"a:ramassage-tek:r"}, env.host.collaborators)

	env.mustRun(t, "new", "b", "--language", "c")
	_, err = env.run(t, "", "collab", "b", "someone", "r")
	assert.ErrorIs(t, err, project.ErrMissingCredentials)
}

func TestRemoteCommands(t *testing.T) {
	env := newTestEnv(t, false)
	env.mustRun(t, "new", "a", "--language", "c")

	out := env.mustRun(t, "remote", "list", "a")
	assert.Contains(t, out, "Not a git repository.")

	env.mustRun(t, "remote", "add", "a", "upstream", "https://example.test/school/a.git")
	out = env.mustRun(t, "remote", "list", "a")
	assert.Contains(t, out, "upstream\thttps://example.test/school/a.git")

	env.mustRun(t, "remote", "remove", "a", "upstream")
	out = env.mustRun(t, "remote", "list", "a")
	assert.Contains(t, out, "No remotes.")

	require.NoError(t, os.RemoveAll(filepath.Join(env.projects, "a")))
	_, err := env.run(t, "", "remote", "list", "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project directory unavailable")
}

func TestBoilerplates(t *testing.T) {
	env := newTestEnv(t, false)
	starter := filepath.Join(env.templates, "c-starter")
	require.NoError(t, os.MkdirAll(starter, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(starter, "BOILERPLATE.md"), []byte("---\nname: C starter\nlanguage: c\ndescription: Makefile and main\n---\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(starter, "Makefile"), []byte("all:\n"), 0644))

	out := env.mustRun(t, "boilerplates")
	assert.Contains(t, out, "C starter")

	out = env.mustRun(t, "boilerplates", "--language", "javascript")
	assert.NotContains(t, out, "C starter")

	env.mustRun(t, "new", "a", "--language", "c", "--boilerplate", "c-starter")
	assert.FileExists(t, filepath.Join(env.projects, "a", "Makefile"))
}

func TestStats(t *testing.T) {
	env := newTestEnv(t, false)
	env.mustRun(t, "new", "a", "--language", "c")
	env.mustRun(t, "new", "b", "--language", "c")
	env.mustRun(t, "archive", "b")

	out := env.mustRun(t, "stats")
	assert.Contains(t, out, "Projects")
	assert.Contains(t, out, "Archives")
}

func TestParseDeadline(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		err  bool
	}{
		{in: "2024-06-30", want: time.Date(2024, 6, 30, 0, 0, 0, 0, time.Local)},
		{in: "2024-06-30 18:42", want: time.Date(2024, 6, 30, 18, 42, 0, 0, time.Local)},
		{in: "2024-06-30T18:42:00Z", want: time.Date(2024, 6, 30, 18, 42, 0, 0, time.UTC)},
		{in: "30/06/2024", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDeadline(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(*got), "got %v", got)
		})
	}
}

func TestDescribe(t *testing.T) {
	verr := &project.ValidationError{Field: "git.remote", Message: "No remote specified."}
	assert.Equal(t, "No remote specified. (git.remote)", describe(verr))

	orphan := fmt.Errorf("%w (%s): %w", project.ErrOrphanedRemote, "https://example.test/a.git", errors.New("disk full"))
	assert.Contains(t, describe(orphan), "must be attached or deleted by hand")

	assert.Equal(t, "boom", describe(errors.New("boom")))
}
