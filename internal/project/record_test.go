package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	deadline := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := NewRecord(Draft{
		Name:        "  a  ",
		Language:    " c ",
		Directory:   "~/projects/a/",
		Deadline:    &deadline,
		Boilerplate: "/tmp/boilerplates/c/../c",
		Repo:        "NEW",
		API:         " GitHub ",
		Username:    " me ",
		Password:    " keep spaces ",
	})

	assert.Equal(t, "a", rec.Name)
	assert.Equal(t, "c", rec.Language)
	assert.Equal(t, filepath.Join(home, "projects", "a"), rec.Directory)
	assert.Equal(t, "/tmp/boilerplates/c", rec.Boilerplate)
	assert.True(t, rec.Active)
	assert.False(t, rec.Start.IsZero(), "start defaults to now")
	assert.Equal(t, RepoNew, rec.Git.Repo)
	assert.Equal(t, "github", rec.Git.API)
	assert.Equal(t, "me", rec.Git.Username)
	assert.Equal(t, " keep spaces ", rec.Git.Password)

	deadline = deadline.Add(time.Hour)
	assert.NotEqual(t, deadline, *rec.Deadline, "deadline must be copied")
}

func TestNewRecord_Defaults(t *testing.T) {
	rec := NewRecord(Draft{Name: "a"})

	assert.Equal(t, RepoNone, rec.Git.Repo)
	assert.Empty(t, rec.Directory)
	assert.Nil(t, rec.Deadline)
	assert.Equal(t, Projects, rec.Collection())

	rec.Active = false
	assert.Equal(t, Archives, rec.Collection())
}

func TestRecord_Clone(t *testing.T) {
	deadline := time.Now()
	rec := Record{
		Name:     "a",
		Deadline: &deadline,
		Git:      GitInfo{Remotes: map[string]string{"origin": "u"}},
	}

	c := rec.Clone()
	c.Git.Remotes["origin"] = "changed"
	*c.Deadline = deadline.Add(time.Hour)

	assert.Equal(t, "u", rec.Git.Remotes["origin"])
	assert.Equal(t, deadline, *rec.Deadline)
}

func TestGitInfo_HasCredentials(t *testing.T) {
	assert.False(t, GitInfo{}.HasCredentials())
	assert.False(t, GitInfo{Username: "me"}.HasCredentials())
	assert.False(t, GitInfo{Password: "pw"}.HasCredentials())
	assert.True(t, GitInfo{Username: "me", Password: "pw"}.HasCredentials())
}

func TestErrors(t *testing.T) {
	t.Run("validation error", func(t *testing.T) {
		err := invalid("name", "No name specified")

		assert.True(t, errors.Is(err, ErrValidation))
		assert.EqualError(t, err, "No name specified")

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "name", verr.Field)
	})

	t.Run("validation error with cause", func(t *testing.T) {
		cause := errors.New("unsupported")
		err := &ValidationError{Field: "git.api", Message: "This API is not supported", Err: cause}

		assert.True(t, errors.Is(err, ErrValidation))
		assert.True(t, errors.Is(err, cause))
		assert.Contains(t, err.Error(), "unsupported")
	})

	t.Run("io error", func(t *testing.T) {
		err := ioError("move", "/tmp/a", os.ErrNotExist)

		assert.True(t, errors.Is(err, ErrIO))
		assert.True(t, errors.Is(err, os.ErrNotExist))
		assert.Contains(t, err.Error(), "move /tmp/a")
	})
}
