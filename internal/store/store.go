// Package store persists project records in a single YAML document with
// two lists, projects and archives.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"yarvis/internal/logging"
	"yarvis/internal/project"
	"yarvis/pkg/fileops"

	"gopkg.in/yaml.v3"
)

// document is the on-disk shape of the data file.
type document struct {
	Projects []project.Record `yaml:"projects"`
	Archives []project.Record `yaml:"archives"`
}

func (d *document) list(c project.Collection) (*[]project.Record, error) {
	switch c {
	case project.Projects:
		return &d.Projects, nil
	case project.Archives:
		return &d.Archives, nil
	}
	return nil, fmt.Errorf("unknown collection %q", c)
}

// YAMLStore keeps records in a YAML file. Every Set rewrites the file
// atomically, so a failed write leaves the previous contents in place.
type YAMLStore struct {
	mu   sync.Mutex
	path string
}

var (
	_ project.Store      = (*YAMLStore)(nil)
	_ project.Transferer = (*YAMLStore)(nil)
)

// NewYAMLStore opens the store at path. The file is created on first write.
func NewYAMLStore(path string) (*YAMLStore, error) {
	if path == "" {
		return nil, errors.New("store path is required")
	}
	if !filepath.IsAbs(path) {
		return nil, fmt.Errorf("store path must be absolute: %s", path)
	}
	return &YAMLStore{path: path}, nil
}

// Path returns the data file location.
func (s *YAMLStore) Path() string {
	return s.path
}

func (s *YAMLStore) Get(c project.Collection) ([]project.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	list, err := doc.list(c)
	if err != nil {
		return nil, err
	}
	return *list, nil
}

func (s *YAMLStore) Set(c project.Collection, records []project.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	list, err := doc.list(c)
	if err != nil {
		return err
	}
	*list = records
	return s.save(doc)
}

// Transfer removes name from one collection and appends rec to the other in
// a single write.
func (s *YAMLStore) Transfer(name string, from, to project.Collection, rec project.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	src, err := doc.list(from)
	if err != nil {
		return err
	}
	dst, err := doc.list(to)
	if err != nil {
		return err
	}

	idx := indexOf(*src, name)
	if idx < 0 {
		return fmt.Errorf("%w: %s", project.ErrNotFound, name)
	}
	*src = append((*src)[:idx:idx], (*src)[idx+1:]...)
	*dst = append(*dst, rec)
	return s.save(doc)
}

func (s *YAMLStore) load() (*document, error) {
	doc := &document{}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse data file %s: %w", s.path, err)
	}
	return doc, nil
}

func (s *YAMLStore) save(doc *document) error {
	if err := fileops.EnsureDirectoryExists(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if doc.Projects == nil {
		doc.Projects = []project.Record{}
	}
	if doc.Archives == nil {
		doc.Archives = []project.Record{}
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	if err := fileops.AtomicWriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write data file: %w", err)
	}

	logging.Debug("Records saved", "path", s.path, "projects", len(doc.Projects), "archives", len(doc.Archives))
	return nil
}

// MemoryStore keeps records in memory. Used by tests and dry runs.
type MemoryStore struct {
	mu   sync.Mutex
	data map[project.Collection][]project.Record
	// FailSet, when set, is returned by every Set and Transfer.
	FailSet error
}

var (
	_ project.Store      = (*MemoryStore)(nil)
	_ project.Transferer = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[project.Collection][]project.Record{}}
}

func (s *MemoryStore) Get(c project.Collection) ([]project.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkCollection(c); err != nil {
		return nil, err
	}
	return cloneAll(s.data[c]), nil
}

func (s *MemoryStore) Set(c project.Collection, records []project.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkCollection(c); err != nil {
		return err
	}
	if s.FailSet != nil {
		return s.FailSet
	}
	s.data[c] = cloneAll(records)
	return nil
}

func (s *MemoryStore) Transfer(name string, from, to project.Collection, rec project.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkCollection(from); err != nil {
		return err
	}
	if err := checkCollection(to); err != nil {
		return err
	}
	if s.FailSet != nil {
		return s.FailSet
	}

	src := s.data[from]
	idx := indexOf(src, name)
	if idx < 0 {
		return fmt.Errorf("%w: %s", project.ErrNotFound, name)
	}
	s.data[from] = append(src[:idx:idx], src[idx+1:]...)
	s.data[to] = append(s.data[to], rec.Clone())
	return nil
}

func checkCollection(c project.Collection) error {
	for _, known := range project.Collections() {
		if c == known {
			return nil
		}
	}
	return fmt.Errorf("unknown collection %q", c)
}

func cloneAll(records []project.Record) []project.Record {
	out := make([]project.Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

func indexOf(records []project.Record, name string) int {
	for i := range records {
		if records[i].Name == name {
			return i
		}
	}
	return -1
}
