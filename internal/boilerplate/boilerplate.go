// Package boilerplate lists the project templates kept under the
// configured boilerplates directory.
//
// Every directory directly below the root is a template. It may carry a
// BOILERPLATE.md file whose YAML front matter names and documents it:
//
//	---
//	name: C project
//	language: c
//	description: Makefile, src/ and include/ layout
//	---
//	Free form notes shown by `yarvis boilerplates`.
//
// The metadata file itself is copied with the rest of the template.
package boilerplate

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"yarvis/internal/logging"
	"yarvis/pkg/fileops"

	"github.com/adrg/frontmatter"
)

// MetadataFile is the optional description file inside a template.
const MetadataFile = "BOILERPLATE.md"

const maxMetadataSize = 64 * 1024

// ErrNotFound is returned by Find for unknown templates.
var ErrNotFound = errors.New("boilerplate not found")

// Metadata is the front matter of MetadataFile.
type Metadata struct {
	Name        string `yaml:"name"`
	Language    string `yaml:"language,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Boilerplate is one template directory.
type Boilerplate struct {
	// ID is the directory name.
	ID   string
	Path string

	Name        string
	Language    string
	Description string
	// Notes is the body of MetadataFile after the front matter.
	Notes string

	// Files counts regular files in the template.
	Files int
}

// Catalog reads templates from a root directory.
type Catalog struct {
	root   string
	logger *logging.AppLogger
}

func NewCatalog(root string, logger *logging.AppLogger) *Catalog {
	if logger == nil {
		logger = logging.GetDefault()
	}
	return &Catalog{root: root, logger: logger}
}

func (c *Catalog) Root() string {
	return c.root
}

// List returns every template sorted by ID. An unset or missing root yields
// an empty list.
func (c *Catalog) List() ([]Boilerplate, error) {
	if c.root == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(c.root)
	if err != nil {
		if fileops.IsNotExist(err) {
			c.logger.Debug("Boilerplate directory missing", "root", c.root)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read boilerplate directory: %w", err)
	}

	var out []Boilerplate
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		bp, err := c.load(entry.Name())
		if err != nil {
			c.logger.Warn("Skipping boilerplate", "id", entry.Name(), "error", err)
			continue
		}
		out = append(out, bp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	c.logger.Debug("Boilerplates loaded", "root", c.root, "count", len(out))
	return out, nil
}

// Find returns the template whose ID or name matches, ignoring case.
func (c *Catalog) Find(name string) (Boilerplate, error) {
	name = strings.TrimSpace(name)
	all, err := c.List()
	if err != nil {
		return Boilerplate{}, err
	}
	for _, bp := range all {
		if strings.EqualFold(bp.ID, name) || strings.EqualFold(bp.Name, name) {
			return bp, nil
		}
	}
	return Boilerplate{}, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// ForLanguage returns the templates declaring language, plus those that
// declare none.
func (c *Catalog) ForLanguage(language string) ([]Boilerplate, error) {
	all, err := c.List()
	if err != nil {
		return nil, err
	}
	var out []Boilerplate
	for _, bp := range all {
		if bp.Language == "" || strings.EqualFold(bp.Language, language) {
			out = append(out, bp)
		}
	}
	return out, nil
}

func (c *Catalog) load(id string) (Boilerplate, error) {
	dir := filepath.Join(c.root, id)
	bp := Boilerplate{ID: id, Path: dir, Name: id}

	meta, notes, err := readMetadata(filepath.Join(dir, MetadataFile))
	if err != nil {
		return Boilerplate{}, err
	}
	if meta != nil {
		if strings.TrimSpace(meta.Name) != "" {
			bp.Name = strings.TrimSpace(meta.Name)
		}
		bp.Language = strings.TrimSpace(meta.Language)
		bp.Description = strings.TrimSpace(meta.Description)
		bp.Notes = strings.TrimSpace(notes)
	}

	bp.Files, err = countFiles(dir)
	if err != nil {
		return Boilerplate{}, err
	}
	return bp, nil
}

// readMetadata parses path. A missing file returns nil metadata.
func readMetadata(path string) (*Metadata, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if fileops.IsNotExist(err) {
			return nil, "", nil
		}
		return nil, "", err
	}
	if info.Size() > maxMetadataSize {
		return nil, "", fmt.Errorf("%s too large: %d bytes", MetadataFile, info.Size())
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", MetadataFile, err)
	}

	var meta Metadata
	body, err := frontmatter.Parse(bytes.NewReader(content), &meta)
	if err != nil {
		return nil, "", fmt.Errorf("invalid front matter in %s: %w", MetadataFile, err)
	}
	return &meta, string(body), nil
}

func countFiles(dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		if d.Type().IsRegular() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	return count, nil
}
