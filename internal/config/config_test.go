package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pacmirror/pacmirror/internal/mirror"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Mirrorlist.Path != "/etc/pacman.d/mirrorlist" {
		t.Errorf("mirrorlist path = %q", cfg.Mirrorlist.Path)
	}
	if cfg.Mirrorlist.DBPath != "/var/lib/pacmirror/pacmirror.db" {
		t.Errorf("db path = %q", cfg.Mirrorlist.DBPath)
	}
	if cfg.Mirrorlist.StatusURL != mirror.DefaultStatusURL {
		t.Errorf("status url = %q", cfg.Mirrorlist.StatusURL)
	}
	if cfg.Reflector.Enabled {
		t.Error("reflector should default to disabled")
	}
	if len(cfg.Reflector.Protocols) != 1 || cfg.Reflector.Protocols[0] != "https" {
		t.Errorf("protocols = %v, want [https]", cfg.Reflector.Protocols)
	}
	if cfg.Reflector.Age != 12 || cfg.Reflector.Latest != 20 || cfg.Reflector.Sort != "rate" {
		t.Errorf("unexpected reflector defaults: %+v", cfg.Reflector)
	}
	if !cfg.Reflector.Verbose {
		t.Error("verbose should default to true")
	}
}

func TestLoad(t *testing.T) {
	content := `
mirrorlist:
  path: /tmp/mirrorlist
  probe_fallback: true
reflector:
  enabled: true
  countries:
    - Brazil
    - Chile
  age: 24
regions:
  Germany:
    - https://mirror.de.example/$repo/os/$arch
`
	path := filepath.Join(t.TempDir(), "pacmirror.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Mirrorlist.Path != "/tmp/mirrorlist" {
		t.Errorf("mirrorlist path = %q", cfg.Mirrorlist.Path)
	}
	if !cfg.Mirrorlist.ProbeFallback {
		t.Error("probe_fallback not loaded")
	}
	if !cfg.Reflector.Enabled {
		t.Error("reflector.enabled not loaded")
	}
	if len(cfg.Reflector.Countries) != 2 || cfg.Reflector.Countries[0] != "Brazil" {
		t.Errorf("countries = %v", cfg.Reflector.Countries)
	}
	if cfg.Reflector.Age != 24 {
		t.Errorf("age = %d, want 24", cfg.Reflector.Age)
	}

	// Fields absent from the file keep their defaults.
	if cfg.Mirrorlist.DBPath != "/var/lib/pacmirror/pacmirror.db" {
		t.Errorf("db path = %q, want default", cfg.Mirrorlist.DBPath)
	}
	if cfg.Reflector.Latest != 20 {
		t.Errorf("latest = %d, want default 20", cfg.Reflector.Latest)
	}

	if urls, ok := cfg.Regions["Germany"]; !ok || len(urls) != 1 {
		t.Errorf("regions = %v", cfg.Regions)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("mirrorlist: ["), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestMirrorConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Reflector.Enabled = true
	cfg.Reflector.Countries = []string{"Brazil"}
	cfg.Regions = map[string][]string{
		"Germany": {"https://mirror.de.example/$repo/os/$arch"},
		"Brazil":  {"https://mirror.br.example/$repo/os/$arch"},
	}

	mc := cfg.MirrorConfig()

	// Map iteration order must not leak into the region list.
	if len(mc.Regions) != 2 || mc.Regions[0].Name != "Brazil" || mc.Regions[1].Name != "Germany" {
		t.Errorf("regions = %v, want sorted by name", mc.Regions)
	}
	if !mc.Reflector.Enabled {
		t.Error("enabled flag not carried over")
	}
	if len(mc.Reflector.Protocols) != 1 || mc.Reflector.Protocols[0] != mirror.ProtocolHTTPS {
		t.Errorf("protocols = %v", mc.Reflector.Protocols)
	}
	if mc.Reflector.Sort != mirror.SortRate {
		t.Errorf("sort = %q", mc.Reflector.Sort)
	}
}

func TestMirrorConfigCopiesSlices(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Reflector.Countries = []string{"Brazil"}
	cfg.Regions = map[string][]string{
		"Brazil": {"https://mirror.br.example/$repo/os/$arch"},
	}

	mc := cfg.MirrorConfig()
	mc.Reflector.Countries[0] = "changed"
	mc.Regions[0].URLs[0] = "changed"

	if cfg.Reflector.Countries[0] != "Brazil" {
		t.Error("domain conversion aliased the countries slice")
	}
	if cfg.Regions["Brazil"][0] == "changed" {
		t.Error("domain conversion aliased the region URLs")
	}
}
