package project

import (
	"path/filepath"
	"strings"
	"time"

	"yarvis/pkg/fileops"
)

// RepoMode says how a project relates to a remote repository.
type RepoMode string

const (
	// RepoNone: local directory only.
	RepoNone RepoMode = "none"
	// RepoNew: provision a remote on a hosting backend at creation.
	RepoNew RepoMode = "new"
	// RepoUse: attach an existing remote and pull it.
	RepoUse RepoMode = "use"
)

// GitInfo is the git section of a record. Credentials are stored in plain
// text for compatibility with existing data files.
type GitInfo struct {
	Repo           RepoMode          `yaml:"repo" json:"repo"`
	API            string            `yaml:"api,omitempty" json:"api,omitempty"`
	Username       string            `yaml:"username,omitempty" json:"username,omitempty"`
	Password       string            `yaml:"password,omitempty" json:"-"`
	LegacyUsername string            `yaml:"legacyUsername,omitempty" json:"legacyUsername,omitempty"`
	Remote         string            `yaml:"remote,omitempty" json:"remote,omitempty"`
	Remotes        map[string]string `yaml:"remotes,omitempty" json:"remotes,omitempty"`
}

// HasCredentials reports whether both username and password are set.
func (g GitInfo) HasCredentials() bool {
	return g.Username != "" && g.Password != ""
}

// Record is the persisted description of one project.
type Record struct {
	Name        string     `yaml:"name" json:"name"`
	Language    string     `yaml:"language" json:"language"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Directory   string     `yaml:"directory" json:"directory"`
	Start       time.Time  `yaml:"start" json:"start"`
	Deadline    *time.Time `yaml:"deadline,omitempty" json:"deadline,omitempty"`
	// Active is true while the record lives in the projects collection.
	Active bool `yaml:"active" json:"active"`
	// ArchivedFrom is the directory the project left when archived.
	ArchivedFrom string  `yaml:"archivedFrom,omitempty" json:"archivedFrom,omitempty"`
	Git          GitInfo `yaml:"git" json:"git"`

	// Boilerplate is the template copied into Directory on creation. Never persisted.
	Boilerplate string `yaml:"-" json:"-"`
}

// Collection returns the store collection the record belongs to.
func (r Record) Collection() Collection {
	if r.Active {
		return Projects
	}
	return Archives
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	c := r
	if r.Deadline != nil {
		d := *r.Deadline
		c.Deadline = &d
	}
	if r.Git.Remotes != nil {
		c.Git.Remotes = make(map[string]string, len(r.Git.Remotes))
		for k, v := range r.Git.Remotes {
			c.Git.Remotes[k] = v
		}
	}
	return c
}

// Draft is the raw user input a Record is built from.
type Draft struct {
	Name        string
	Language    string
	Description string
	Directory   string
	Start       time.Time
	Deadline    *time.Time
	Boilerplate string

	Repo           string
	API            string
	Username       string
	Password       string
	LegacyUsername string
	Remote         string
}

// NewRecord builds an active record from d. Strings are trimmed, "~/" is
// expanded in paths, the directory is cleaned, a zero Start becomes now and
// an empty repo mode becomes RepoNone. Nothing is validated here.
func NewRecord(d Draft) Record {
	rec := Record{
		Name:        strings.TrimSpace(d.Name),
		Language:    strings.TrimSpace(d.Language),
		Description: strings.TrimSpace(d.Description),
		Directory:   cleanPath(d.Directory),
		Start:       d.Start,
		Active:      true,
		Boilerplate: cleanPath(d.Boilerplate),
		Git: GitInfo{
			Repo:           RepoMode(strings.ToLower(strings.TrimSpace(d.Repo))),
			API:            strings.ToLower(strings.TrimSpace(d.API)),
			Username:       strings.TrimSpace(d.Username),
			Password:       d.Password,
			LegacyUsername: strings.TrimSpace(d.LegacyUsername),
			Remote:         strings.TrimSpace(d.Remote),
		},
	}
	if rec.Start.IsZero() {
		rec.Start = time.Now()
	}
	if d.Deadline != nil {
		deadline := *d.Deadline
		rec.Deadline = &deadline
	}
	if rec.Git.Repo == "" {
		rec.Git.Repo = RepoNone
	}
	return rec
}

func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return filepath.Clean(fileops.ExpandPath(p))
}
