package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"yarvis/internal/logging"
	"yarvis/pkg/fileops"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

const (
	APP_NAME = "yarvis" // application name used for config and data directories

	// EnvPrefix marks environment variables that override file settings,
	// e.g. YARVIS_PROJECTS_DIRECTORY overrides projects.directory.
	EnvPrefix = "YARVIS_"

	// ConfigPathEnv points Load at a different config file.
	ConfigPathEnv = "YARVIS_CONFIG_PATH"

	DefaultBranch = "master"

	maxConfigFileSize = 1024 * 1024
)

// Config holds user configuration for yarvis.
type Config struct {
	Projects  ProjectsConfig      `yaml:"projects"`
	Archives  ArchivesConfig      `yaml:"archives"`
	Git       GitConfig           `yaml:"git"`
	Languages map[string]Language `yaml:"languages"`
	// DataFile is the YAML file holding project records. Empty means the
	// XDG data directory.
	DataFile string `yaml:"data_file"`
	// Version is the config file format.
	Version string `yaml:"version"`
}

type ProjectsConfig struct {
	Directory    string `yaml:"directory"`
	Boilerplates string `yaml:"boilerplates"`
}

type ArchivesConfig struct {
	Directory   string `yaml:"directory"`
	AutoArchive bool   `yaml:"auto_archive"`
}

type GitConfig struct {
	// DefaultBranch is pulled when a project adopts an existing remote.
	DefaultBranch string     `yaml:"default_branch"`
	APIs          APIsConfig `yaml:"apis"`
}

type APIsConfig struct {
	GitHub GitHubAPI `yaml:"github"`
	BLIH   BLIHAPI   `yaml:"blih"`
}

type GitHubAPI struct {
	Name     string `yaml:"name"`
	Username string `yaml:"username"`
	// Authentication is "auto", "basic" or "token". Auto sends secrets that
	// look like GitHub tokens as tokens and anything else as basic auth.
	Authentication string `yaml:"authentication"`
	// BaseURL overrides the REST endpoint (GitHub Enterprise). Empty means api.github.com.
	BaseURL string `yaml:"base_url"`
}

type BLIHAPI struct {
	Name           string `yaml:"name"`
	Username       string `yaml:"username"`
	LegacyUsername string `yaml:"legacy_username"`
	BaseURL        string `yaml:"base_url"`
	// Host is the SSH host used in synthesized clone URLs.
	Host string `yaml:"host"`
}

// Language describes one entry of the languages table a project may use.
type Language struct {
	Name       string   `yaml:"name"`
	Color      string   `yaml:"color"`
	Icon       string   `yaml:"icon"`
	Extensions []string `yaml:"extensions"`
}

// ConfigPath returns the config file location: $YARVIS_CONFIG_PATH when set,
// otherwise $XDG_CONFIG_HOME/yarvis/config.yaml.
func ConfigPath() string {
	if override := os.Getenv(ConfigPathEnv); override != "" {
		return override
	}
	return filepath.Join(xdg.ConfigHome, APP_NAME, "config.yaml")
}

// DefaultDataPath returns where project records live when data_file is unset.
func DefaultDataPath() string {
	return filepath.Join(xdg.DataHome, APP_NAME, "data.yaml")
}

// DefaultConfig returns a Config with the stock language table and the
// user's home directory as projects root.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		logging.Warn("Cannot resolve home directory, using working directory", "error", err)
		home, _ = os.Getwd()
	}

	return Config{
		Projects: ProjectsConfig{Directory: home},
		Git: GitConfig{
			DefaultBranch: DefaultBranch,
			APIs: APIsConfig{
				GitHub: GitHubAPI{Name: "GitHub", Authentication: "auto"},
				BLIH: BLIHAPI{
					Name:    "BLIH",
					BaseURL: "https://blih.epitech.eu/",
					Host:    "git.epitech.eu",
				},
			},
		},
		Languages: map[string]Language{
			"c": {
				Name:       "C",
				Color:      "violet",
				Icon:       "devicon-c-plain",
				Extensions: []string{".c", ".h"},
			},
			"cplusplus": {
				Name:       "C++",
				Color:      "olive",
				Icon:       "devicon-cplusplus-plain",
				Extensions: []string{".cpp", ".hpp", ".h"},
			},
			"javascript": {
				Name:       "Javascript",
				Color:      "yellow",
				Icon:       "devicon-javascript-plain",
				Extensions: []string{".js"},
			},
			"other": {
				Name:       "Other",
				Color:      "grey",
				Icon:       "help icon",
				Extensions: []string{},
			},
		},
		Version: "1.0",
	}
}

// Load reads the config from ConfigPath. A missing file is not an error:
// defaults (plus environment overrides) are returned.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom layers, lowest to highest precedence: defaults, the YAML file at
// path (if present), then YARVIS_* environment variables.
//
// Environment keys are matched against the known key set, so
// YARVIS_GIT_DEFAULT_BRANCH maps to git.default_branch and
// YARVIS_DATA_FILE to data_file. Unknown variables are ignored.
func LoadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	defaults, err := yamlv3.Marshal(DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to encode defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(defaults), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	content, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	if content != nil {
		logging.Debug("Reading config file", "path", path)
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	known := envKeyTable(k.Keys())
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return known[strings.TrimPrefix(s, EnvPrefix)]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.expandPaths()
	return &cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Debug("No config file, using defaults", "path", path)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s too large: %d bytes", path, info.Size())
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// envKeyTable maps upper-cased, underscore-joined keys back to their dotted
// koanf form.
func envKeyTable(keys []string) map[string]string {
	table := make(map[string]string, len(keys))
	for _, key := range keys {
		flat := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		table[flat] = key
	}
	return table
}

func (c *Config) expandPaths() {
	c.Projects.Directory = fileops.ExpandPath(c.Projects.Directory)
	c.Projects.Boilerplates = fileops.ExpandPath(c.Projects.Boilerplates)
	c.Archives.Directory = fileops.ExpandPath(c.Archives.Directory)
	c.DataFile = fileops.ExpandPath(c.DataFile)
}

// DataPath returns the configured record file, or DefaultDataPath.
func (c *Config) DataPath() string {
	if c.DataFile != "" {
		return c.DataFile
	}
	return DefaultDataPath()
}

// LanguageIDs returns the configured language keys in sorted order.
func (c *Config) LanguageIDs() []string {
	ids := make([]string, 0, len(c.Languages))
	for id := range c.Languages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate checks that directories are absolute and required settings exist.
func (c *Config) Validate() error {
	if c.Projects.Directory == "" {
		return fmt.Errorf("projects.directory is required")
	}
	if !filepath.IsAbs(c.Projects.Directory) {
		return fmt.Errorf("projects.directory must be absolute: %s", c.Projects.Directory)
	}
	if c.Archives.Directory != "" && !filepath.IsAbs(c.Archives.Directory) {
		return fmt.Errorf("archives.directory must be absolute: %s", c.Archives.Directory)
	}
	if c.Projects.Boilerplates != "" && !filepath.IsAbs(c.Projects.Boilerplates) {
		return fmt.Errorf("projects.boilerplates must be absolute: %s", c.Projects.Boilerplates)
	}
	if c.DataFile != "" && !filepath.IsAbs(c.DataFile) {
		return fmt.Errorf("data_file must be absolute: %s", c.DataFile)
	}
	if len(c.Languages) == 0 {
		return fmt.Errorf("at least one language must be configured")
	}
	if strings.TrimSpace(c.Git.DefaultBranch) == "" {
		return fmt.Errorf("git.default_branch cannot be empty")
	}
	switch strings.ToLower(strings.TrimSpace(c.Git.APIs.GitHub.Authentication)) {
	case "", "auto", "basic", "token":
	default:
		return fmt.Errorf("git.apis.github.authentication must be auto, basic or token: %s", c.Git.APIs.GitHub.Authentication)
	}
	return nil
}

// Save writes the config to ConfigPath.
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes the config to path with owner-only permissions.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := fileops.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	logging.Debug("Configuration saved", "path", path)
	return nil
}
