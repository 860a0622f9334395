package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/pacmirror/pacmirror/internal/mirror"
)

// Config is the top-level configuration
type Config struct {
	Mirrorlist MirrorlistConfig    `yaml:"mirrorlist"`
	Reflector  ReflectorConfig     `yaml:"reflector"`
	Regions    map[string][]string `yaml:"regions"`
}

// MirrorlistConfig holds target and data settings
type MirrorlistConfig struct {
	Path          string `yaml:"path"`
	DBPath        string `yaml:"db_path"`
	StatusURL     string `yaml:"status_url"`
	ProbeFallback bool   `yaml:"probe_fallback"`
}

// ReflectorConfig is the raw YAML form of the reflector settings
type ReflectorConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Countries []string `yaml:"countries"`
	Protocols []string `yaml:"protocols"`
	Age       int      `yaml:"age"`
	Latest    int      `yaml:"latest"`
	Sort      string   `yaml:"sort"`
	Verbose   bool     `yaml:"verbose"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Mirrorlist: MirrorlistConfig{
			Path:      "/etc/pacman.d/mirrorlist",
			DBPath:    "/var/lib/pacmirror/pacmirror.db",
			StatusURL: mirror.DefaultStatusURL,
		},
		Reflector: ReflectorConfig{
			Enabled:   false,
			Protocols: []string{"https"},
			Age:       12,
			Latest:    20,
			Sort:      "rate",
			Verbose:   true,
		},
		Regions: make(map[string][]string),
	}
}

// Load reads a config file from the given path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() (string, error) {
	searchPaths := []string{
		"pacmirror.yaml",
		"/etc/pacmirror/pacmirror.yaml",
	}

	// Add user config path
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(home, ".config", "pacmirror", "pacmirror.yaml"),
		)
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", searchPaths)
}

// MirrorConfig converts the raw YAML configuration into the domain model.
// Regions are ordered by name so repeated loads behave identically; protocol
// and sort tokens are normalized later by validation.
func (c *Config) MirrorConfig() mirror.Config {
	names := make([]string, 0, len(c.Regions))
	for name := range c.Regions {
		names = append(names, name)
	}
	sort.Strings(names)

	regions := make([]mirror.Region, 0, len(names))
	for _, name := range names {
		regions = append(regions, mirror.Region{
			Name: name,
			URLs: append([]string(nil), c.Regions[name]...),
		})
	}

	protocols := make([]mirror.Protocol, 0, len(c.Reflector.Protocols))
	for _, p := range c.Reflector.Protocols {
		protocols = append(protocols, mirror.Protocol(p))
	}

	return mirror.Config{
		Regions: regions,
		Reflector: mirror.ReflectorConfig{
			Enabled:   c.Reflector.Enabled,
			Countries: append([]string(nil), c.Reflector.Countries...),
			Protocols: protocols,
			Age:       c.Reflector.Age,
			Latest:    c.Reflector.Latest,
			Sort:      mirror.SortOrder(c.Reflector.Sort),
			Verbose:   c.Reflector.Verbose,
		},
	}
}
