package project

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"yarvis/internal/gitlocal"
	"yarvis/internal/hosting"
	"yarvis/internal/logging"
	"yarvis/pkg/fileops"
)

// Create validates rec, materializes its directory, wires its repository
// and persists it into the projects collection. On success rec is updated
// with the resolved remote and the local remotes.
func (m *Manager) Create(ctx context.Context, rec *Record) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.validate(rec); err != nil {
		return err
	}

	log := m.log.With("project", rec.Name)
	defer log.LogOperation("create", time.Now(), &err)

	work := rec.Clone()
	p, err := Open(work.Name, work.Directory, m.git)
	if err != nil {
		return err
	}
	if work.Boilerplate != "" {
		if err := p.Include(work.Boilerplate); err != nil {
			return err
		}
		log.Info("Boilerplate copied", "boilerplate", work.Boilerplate)
		work.Boilerplate = ""
	}

	switch work.Git.Repo {
	case RepoNew:
		err = m.provision(ctx, p, &work, log)
	case RepoUse:
		err = m.adopt(ctx, p, &work, log)
	}
	if err != nil {
		return err
	}

	if len(p.Git.Remotes) > 0 {
		work.Git.Remotes = copyRemotes(p.Git.Remotes)
	}

	if err := m.upsert(Projects, work); err != nil {
		return err
	}

	*rec = work
	log.Info("Project created", "directory", work.Directory, "repo", work.Git.Repo)
	return nil
}

// provision creates the remote repository and attaches it as origin.
func (m *Manager) provision(ctx context.Context, p *Project, rec *Record, log *logging.AppLogger) error {
	h, err := m.host(rec.Git)
	if err != nil {
		return err
	}

	url, err := h.Create(ctx, rec.Name, hosting.CreateOptions{
		Description:    rec.Description,
		LegacyUsername: rec.Git.LegacyUsername,
	})
	if err != nil {
		return fmt.Errorf("failed to create remote repository: %w", err)
	}
	rec.Git.Remote = url
	log.Info("Remote repository created", "api", rec.Git.API, "url", url)

	if err := p.GitEnable(); err != nil {
		return orphaned(log, url, err)
	}
	if err := p.GitRemoteAdd("origin", url); err != nil {
		return orphaned(log, url, err)
	}
	return nil
}

func orphaned(log *logging.AppLogger, url string, err error) error {
	log.Warn("Remote repository is not attached to any local directory", "url", url, "error", err)
	return fmt.Errorf("%w (%s): %w", ErrOrphanedRemote, url, err)
}

// adopt points origin at the existing remote and pulls the default branch.
func (m *Manager) adopt(ctx context.Context, p *Project, rec *Record, log *logging.AppLogger) error {
	if !p.Git.Enabled {
		if err := p.GitEnable(); err != nil {
			return err
		}
	}
	if err := p.GitRemoteRemove("origin"); err != nil && !errors.Is(err, gitlocal.ErrRemoteNotFound) {
		return err
	}
	if err := p.GitRemoteAdd("origin", rec.Git.Remote); err != nil {
		return err
	}
	if err := p.GitRemotePull(ctx, "origin", m.settings.DefaultBranch); err != nil {
		return err
	}
	log.Info("Remote pulled", "url", rec.Git.Remote, "branch", m.settings.DefaultBranch)
	return nil
}

// Archive moves the project into the archives directory and the record
// into the archives collection.
func (m *Manager) Archive(ctx context.Context, rec *Record) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec == nil {
		return fmt.Errorf("%w: record is required", ErrInvalidArgument)
	}
	if !rec.Active {
		return invalid("active", "This project is already archived")
	}
	if m.settings.ArchivesDir == "" {
		return invalid("archives.directory", "No archive directory configured")
	}

	defer m.log.LogOperation("archive", time.Now(), &err)
	return m.transfer(rec, Archives, filepath.Join(m.settings.ArchivesDir, rec.Name))
}

// Unarchive moves the project back where it was archived from, or into the
// projects directory, and the record into the projects collection.
func (m *Manager) Unarchive(ctx context.Context, rec *Record) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec == nil {
		return fmt.Errorf("%w: record is required", ErrInvalidArgument)
	}
	if rec.Active {
		return invalid("active", "This project is not archived")
	}

	target := rec.ArchivedFrom
	if target == "" {
		if m.settings.ProjectsDir == "" {
			return invalid("projects.directory", "No projects directory configured")
		}
		target = filepath.Join(m.settings.ProjectsDir, rec.Name)
	}

	defer m.log.LogOperation("unarchive", time.Now(), &err)
	return m.transfer(rec, Projects, target)
}

// transfer relocates the directory to target, then moves the record to the
// other collection. A failed store write moves the directory back.
func (m *Manager) transfer(rec *Record, to Collection, target string) error {
	from := rec.Collection()
	existing, err := m.all()
	if err != nil {
		return err
	}
	if !contains(existing, rec.Name) {
		return fmt.Errorf("%w: %s", ErrNotFound, rec.Name)
	}
	if occupied(existing, target, rec.Name) {
		return invalid("directory", "This directory is already used by another project")
	}

	log := m.log.With("project", rec.Name)
	p := attach(rec.Name, rec.Directory, m.git)
	if err := p.relocate(target); err != nil {
		return err
	}

	work := rec.Clone()
	work.Directory = target
	if to == Archives {
		work.Active = false
		work.ArchivedFrom = rec.Directory
	} else {
		work.Active = true
		work.ArchivedFrom = ""
	}

	if err := m.moveRecord(rec.Name, from, to, work); err != nil {
		if undo := p.relocate(rec.Directory); undo != nil {
			log.Warn("Directory moved but record not updated", "directory", target, "error", undo)
		}
		return err
	}

	*rec = work
	log.Info("Project moved", "collection", to, "directory", target)
	return nil
}

// Move relocates the project to destinationDir/<name> and persists the new
// directory in the record's collection.
func (m *Manager) Move(ctx context.Context, rec *Record, destinationDir string) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec == nil {
		return fmt.Errorf("%w: record is required", ErrInvalidArgument)
	}
	destinationDir = cleanPath(destinationDir)
	if destinationDir == "" {
		return invalid("directory", "No directory specified")
	}
	if !filepath.IsAbs(destinationDir) {
		return invalid("directory", "You must specify an absolute path to your project's directory.")
	}

	if err := fileops.ValidatePathSecurity(destinationDir); err != nil {
		return &ValidationError{Field: "directory", Message: "This directory cannot hold a project.", Err: err}
	}

	existing, err := m.all()
	if err != nil {
		return err
	}
	if !contains(existing, rec.Name) {
		return fmt.Errorf("%w: %s", ErrNotFound, rec.Name)
	}

	target := filepath.Join(destinationDir, rec.Name)
	if target == filepath.Clean(rec.Directory) {
		return nil
	}
	if occupied(existing, target, rec.Name) {
		return invalid("directory", "This directory is already used by another project")
	}

	log := m.log.With("project", rec.Name)
	defer log.LogOperation("move", time.Now(), &err)

	p := attach(rec.Name, rec.Directory, m.git)
	if err := p.relocate(target); err != nil {
		return err
	}

	work := rec.Clone()
	work.Directory = target
	if err := m.upsert(work.Collection(), work); err != nil {
		if undo := p.relocate(rec.Directory); undo != nil {
			log.Warn("Directory moved but record not updated", "directory", target, "error", undo)
		}
		return err
	}

	*rec = work
	log.Info("Project moved", "directory", target)
	return nil
}

// Forget removes the record from whichever collection holds it. Nothing on
// disk or remote is touched.
func (m *Manager) Forget(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec == nil {
		return fmt.Errorf("%w: record is required", ErrInvalidArgument)
	}
	return m.forget(rec.Name)
}

func (m *Manager) forget(name string) error {
	for _, c := range Collections() {
		records, err := m.get(c)
		if err != nil {
			return err
		}
		idx := indexOf(records, name)
		if idx < 0 {
			continue
		}
		records = append(records[:idx:idx], records[idx+1:]...)
		if err := m.set(c, records); err != nil {
			return err
		}
		m.log.Info("Project forgotten", "project", name, "collection", c)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNotFound, name)
}

// DeleteLocal removes the project directory, then forgets the record.
func (m *Manager) DeleteLocal(ctx context.Context, rec *Record) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec == nil {
		return fmt.Errorf("%w: record is required", ErrInvalidArgument)
	}
	defer m.log.LogOperation("delete", time.Now(), &err)
	return m.deleteLocal(rec)
}

func (m *Manager) deleteLocal(rec *Record) error {
	if err := attach(rec.Name, rec.Directory, m.git).Delete(); err != nil {
		return err
	}
	if err := m.forget(rec.Name); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// DeleteGlobal deletes the remote repository, then the local project. A
// remote that is already gone is not restored if the local part fails.
func (m *Manager) DeleteGlobal(ctx context.Context, rec *Record) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec == nil {
		return fmt.Errorf("%w: record is required", ErrInvalidArgument)
	}

	log := m.log.With("project", rec.Name)
	defer log.LogOperation("delete global", time.Now(), &err)

	h, err := m.host(rec.Git)
	if err != nil {
		return err
	}
	if err := h.Delete(ctx, rec.Name); err != nil {
		return fmt.Errorf("failed to delete remote repository: %w", err)
	}
	log.Info("Remote repository deleted", "api", rec.Git.API)

	return m.deleteLocal(rec)
}

// AddCollaborator grants rights ("a", "w", "r" flags) on the project's
// remote repository to collaborator.
func (m *Manager) AddCollaborator(ctx context.Context, rec *Record, collaborator, rights string) (err error) {
	if rec == nil {
		return fmt.Errorf("%w: record is required", ErrInvalidArgument)
	}
	collaborator = strings.TrimSpace(collaborator)
	if collaborator == "" {
		return fmt.Errorf("%w: collaborator is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(rights) == "" {
		return fmt.Errorf("%w: rights are required", ErrInvalidArgument)
	}

	log := m.log.With("project", rec.Name)
	defer log.LogOperation("add collaborator", time.Now(), &err)

	h, err := m.host(rec.Git)
	if err != nil {
		return err
	}
	if err := h.AddCollaborator(ctx, rec.Name, collaborator, rights); err != nil {
		return fmt.Errorf("failed to add collaborator: %w", err)
	}
	log.Info("Collaborator added", "collaborator", collaborator, "rights", rights)
	return nil
}

// List returns copies of the records in collection c.
func (m *Manager) List(ctx context.Context, c Collection) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, err := m.get(c)
	if err != nil {
		return nil, err
	}
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out, nil
}

// Find returns the record named name and the collection holding it.
func (m *Manager) Find(ctx context.Context, name string) (Record, Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range Collections() {
		records, err := m.get(c)
		if err != nil {
			return Record{}, "", err
		}
		if idx := indexOf(records, name); idx >= 0 {
			return records[idx].Clone(), c, nil
		}
	}
	return Record{}, "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Stats counts records per collection.
type Stats struct {
	Projects int `json:"projects"`
	Archives int `json:"archives"`
	// Repositories counts active projects with a remote repository.
	Repositories int `json:"repositories"`
}

// Stats returns the record counts.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	projects, err := m.get(Projects)
	if err != nil {
		return Stats{}, err
	}
	archives, err := m.get(Archives)
	if err != nil {
		return Stats{}, err
	}

	s := Stats{Projects: len(projects), Archives: len(archives)}
	for _, r := range projects {
		if r.Git.Repo != RepoNone {
			s.Repositories++
		}
	}
	return s, nil
}

func (m *Manager) get(c Collection) ([]Record, error) {
	records, err := m.store.Get(c)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c, err)
	}
	return records, nil
}

func (m *Manager) set(c Collection, records []Record) error {
	if err := m.store.Set(c, records); err != nil {
		return fmt.Errorf("failed to save %s: %w", c, err)
	}
	return nil
}

// all returns the records of every collection.
func (m *Manager) all() ([]Record, error) {
	var out []Record
	for _, c := range Collections() {
		records, err := m.get(c)
		if err != nil {
			return nil, err
		}
		out = append(out, records...)
	}
	return out, nil
}

// upsert replaces the record with rec's name in c, or appends rec.
func (m *Manager) upsert(c Collection, rec Record) error {
	records, err := m.get(c)
	if err != nil {
		return err
	}
	if idx := indexOf(records, rec.Name); idx >= 0 {
		records[idx] = rec
	} else {
		records = append(records, rec)
	}
	return m.set(c, records)
}

// moveRecord moves the record named name from one collection to the other,
// replacing it with rec.
func (m *Manager) moveRecord(name string, from, to Collection, rec Record) error {
	if t, ok := m.store.(Transferer); ok {
		if err := t.Transfer(name, from, to, rec); err != nil {
			return fmt.Errorf("failed to transfer record: %w", err)
		}
		return nil
	}

	source, err := m.get(from)
	if err != nil {
		return err
	}
	idx := indexOf(source, name)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	original := source[idx]
	if err := m.set(from, append(source[:idx:idx], source[idx+1:]...)); err != nil {
		return err
	}

	dest, err := m.get(to)
	if err == nil {
		err = m.set(to, append(dest, rec))
	}
	if err != nil {
		if restore := m.upsert(from, original); restore != nil {
			m.log.Error("Record lost between collections", "project", name, "error", restore)
		}
		return err
	}
	return nil
}

func indexOf(records []Record, name string) int {
	for i := range records {
		if records[i].Name == name {
			return i
		}
	}
	return -1
}

func contains(records []Record, name string) bool {
	return indexOf(records, name) >= 0
}

func copyRemotes(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
