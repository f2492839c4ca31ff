package gitlocal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"yarvis/internal/logging"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDriver(t *testing.T, opts ...Option) *GoGit {
	t.Helper()
	logger, _ := logging.NewTestLogger()
	return New(append([]Option{WithLogger(logger)}, opts...)...)
}

// commitFile writes content to name inside repoPath and commits it.
func commitFile(t *testing.T, repo *git.Repository, repoPath, name, content string) {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(repoPath, name), []byte(content), 0644))

	worktree, err := repo.Worktree()
	require.NoError(t, err)

	_, err = worktree.Add(name)
	require.NoError(t, err)

	_, err = worktree.Commit("update "+name, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test User",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)
}

// createUpstream builds a repository with one commit and returns its path
// and current branch name.
func createUpstream(t *testing.T) (*git.Repository, string, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upstream")
	repo, err := git.PlainInit(path, false)
	require.NoError(t, err)

	commitFile(t, repo, path, "README.md", "v1")

	head, err := repo.Head()
	require.NoError(t, err)
	return repo, path, head.Name().Short()
}

func TestInit(t *testing.T) {
	g := newTestDriver(t, WithDefaultBranch("trunk"))
	dir := t.TempDir()

	assert.False(t, g.IsRepository(dir))
	require.NoError(t, g.Init(dir))
	assert.True(t, g.IsRepository(dir))
	require.NoError(t, g.Init(dir), "Init must be idempotent")

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	head, err := repo.Storer.Reference("HEAD")
	require.NoError(t, err)
	assert.Equal(t, "refs/heads/trunk", head.Target().String())
}

func TestRemove(t *testing.T) {
	g := newTestDriver(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.c"), nil, 0644))

	require.NoError(t, g.Init(dir))
	require.NoError(t, g.Remove(dir))

	assert.False(t, g.IsRepository(dir))
	assert.FileExists(t, filepath.Join(dir, "main.c"))
	require.NoError(t, g.Remove(dir), "Remove must be idempotent")
}

func TestRemotes(t *testing.T) {
	g := newTestDriver(t)
	dir := t.TempDir()

	_, err := g.Remotes(dir)
	assert.True(t, errors.Is(err, ErrNotRepository))
	assert.True(t, errors.Is(g.AddRemote(dir, "origin", "x"), ErrNotRepository))

	require.NoError(t, g.Init(dir))

	remotes, err := g.Remotes(dir)
	require.NoError(t, err)
	assert.Empty(t, remotes)

	require.NoError(t, g.AddRemote(dir, "origin", "git@git.epitech.eu:/bob/A"))
	require.NoError(t, g.AddRemote(dir, "github", "https://github.com/bob/A.git"))
	assert.Error(t, g.AddRemote(dir, "origin", "elsewhere"), "duplicate remote")

	remotes, err = g.Remotes(dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"origin": "git@git.epitech.eu:/bob/A",
		"github": "https://github.com/bob/A.git",
	}, remotes)

	require.NoError(t, g.RemoveRemote(dir, "github"))
	err = g.RemoveRemote(dir, "github")
	assert.True(t, errors.Is(err, ErrRemoteNotFound))
}

func TestPull_IntoFreshRepository(t *testing.T) {
	g := newTestDriver(t)
	_, upstreamPath, branch := createUpstream(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("local"), 0644))
	require.NoError(t, g.Init(dir))
	require.NoError(t, g.AddRemote(dir, "origin", upstreamPath))

	require.NoError(t, g.Pull(context.Background(), dir, "origin", branch))

	content, err := os.ReadFile(filepath.Join(dir, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(content))
}

func TestPull_FastForward(t *testing.T) {
	g := newTestDriver(t)
	upstream, upstreamPath, branch := createUpstream(t)

	dir := t.TempDir()
	require.NoError(t, g.Init(dir))
	require.NoError(t, g.AddRemote(dir, "origin", upstreamPath))
	require.NoError(t, g.Pull(context.Background(), dir, "origin", branch))

	commitFile(t, upstream, upstreamPath, "README.md", "v2")

	require.NoError(t, g.Pull(context.Background(), dir, "origin", branch))
	content, err := os.ReadFile(filepath.Join(dir, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(content))

	// Nothing new upstream
	require.NoError(t, g.Pull(context.Background(), dir, "origin", branch))
}

func TestPull_Diverged(t *testing.T) {
	g := newTestDriver(t)
	upstream, upstreamPath, branch := createUpstream(t)

	dir := t.TempDir()
	require.NoError(t, g.Init(dir))
	require.NoError(t, g.AddRemote(dir, "origin", upstreamPath))
	require.NoError(t, g.Pull(context.Background(), dir, "origin", branch))

	local, err := git.PlainOpen(dir)
	require.NoError(t, err)
	commitFile(t, local, dir, "local.txt", "mine")
	commitFile(t, upstream, upstreamPath, "README.md", "theirs")

	err = g.Pull(context.Background(), dir, "origin", branch)
	assert.True(t, errors.Is(err, ErrNonFastForward), "got %v", err)
}

func TestPull_DirtyWorktree(t *testing.T) {
	g := newTestDriver(t)
	upstream, upstreamPath, branch := createUpstream(t)

	dir := t.TempDir()
	require.NoError(t, g.Init(dir))
	require.NoError(t, g.AddRemote(dir, "origin", upstreamPath))
	require.NoError(t, g.Pull(context.Background(), dir, "origin", branch))

	commitFile(t, upstream, upstreamPath, "README.md", "v2")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("edited"), 0644))

	err := g.Pull(context.Background(), dir, "origin", branch)
	assert.True(t, errors.Is(err, ErrDirtyWorktree), "got %v", err)

	content, err := os.ReadFile(filepath.Join(dir, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "edited", string(content), "local edits must not be discarded")
}

func TestPull_UntrackedCollision(t *testing.T) {
	g := newTestDriver(t)
	_, upstreamPath, branch := createUpstream(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("boilerplate"), 0644))
	require.NoError(t, g.Init(dir))
	require.NoError(t, g.AddRemote(dir, "origin", upstreamPath))

	err := g.Pull(context.Background(), dir, "origin", branch)
	assert.True(t, errors.Is(err, ErrDirtyWorktree), "got %v", err)
}

func TestPull_UntrackedCollisionAfterHistory(t *testing.T) {
	g := newTestDriver(t)
	upstream, upstreamPath, branch := createUpstream(t)

	dir := t.TempDir()
	require.NoError(t, g.Init(dir))
	require.NoError(t, g.AddRemote(dir, "origin", upstreamPath))
	require.NoError(t, g.Pull(context.Background(), dir, "origin", branch))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("my local notes"), 0644))
	commitFile(t, upstream, upstreamPath, "notes.txt", "upstream notes")

	err := g.Pull(context.Background(), dir, "origin", branch)
	assert.True(t, errors.Is(err, ErrDirtyWorktree), "got %v", err)

	content, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "my local notes", string(content))

	// Untracked files the fetched commit does not touch are kept
	require.NoError(t, os.Remove(filepath.Join(dir, "notes.txt")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scratch.txt"), []byte("keep"), 0644))
	require.NoError(t, g.Pull(context.Background(), dir, "origin", branch))
	content, err = os.ReadFile(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "upstream notes", string(content))
}

func TestPull_Errors(t *testing.T) {
	g := newTestDriver(t)
	ctx := context.Background()

	t.Run("not a repository", func(t *testing.T) {
		err := g.Pull(ctx, t.TempDir(), "origin", "master")
		assert.True(t, errors.Is(err, ErrNotRepository))
	})

	t.Run("missing remote", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, g.Init(dir))
		err := g.Pull(ctx, dir, "origin", "master")
		assert.True(t, errors.Is(err, ErrRemoteNotFound))
	})

	t.Run("missing branch", func(t *testing.T) {
		_, upstreamPath, _ := createUpstream(t)
		dir := t.TempDir()
		require.NoError(t, g.Init(dir))
		require.NoError(t, g.AddRemote(dir, "origin", upstreamPath))
		assert.Error(t, g.Pull(ctx, dir, "origin", "does-not-exist"))
	})
}

func TestContainsAuthErrorPatterns(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{msg: "authentication required", want: true},
		{msg: "unexpected client error: unexpected requesting ... status code: 401", want: true},
		{msg: "403 Forbidden", want: true},
		{msg: "repository not found", want: false},
		{msg: "connection refused", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, containsAuthErrorPatterns(tt.msg))
		})
	}
}

func TestBasicAuth(t *testing.T) {
	assert.Nil(t, newTestDriver(t).basicAuth("https://github.com/a/b"))

	g := newTestDriver(t, WithAuthResolver(func(url string) (string, string, bool) {
		return "bob", "pw", url == "https://github.com/a/b"
	}))
	auth := g.basicAuth("https://github.com/a/b")
	require.NotNil(t, auth)
	assert.Equal(t, "bob", auth.Username)
	assert.Nil(t, g.basicAuth("https://other"))
}
