package reflector

import (
	"reflect"
	"testing"

	"github.com/pacmirror/pacmirror/internal/mirror"
)

func validatedConfig(t *testing.T, cfg mirror.ReflectorConfig) mirror.ValidatedReflectorConfig {
	t.Helper()
	v, err := mirror.Validate(cfg, nil)
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	return v
}

func TestBuildArgs(t *testing.T) {
	cfg := mirror.ReflectorConfig{
		Enabled:   true,
		Countries: []string{"Brazil", "Chile"},
		Protocols: []mirror.Protocol{mirror.ProtocolHTTPS},
		Age:       12,
		Latest:    20,
		Sort:      mirror.SortRate,
		Verbose:   true,
	}

	got := BuildArgs(validatedConfig(t, cfg), "/etc/pacman.d/mirrorlist")
	want := []string{
		"--verbose",
		"--country", "Brazil,Chile",
		"--protocol", "https",
		"--age", "12",
		"--latest", "20",
		"--sort", "rate",
		"--save", "/etc/pacman.d/mirrorlist",
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("BuildArgs() = %v, want %v", got, want)
	}
}

func TestBuildArgsOmitsEmptyCountries(t *testing.T) {
	cfg := mirror.ReflectorConfig{
		Enabled:   true,
		Protocols: []mirror.Protocol{mirror.ProtocolHTTPS, mirror.ProtocolHTTP},
		Age:       24,
		Latest:    10,
		Sort:      mirror.SortScore,
	}

	got := BuildArgs(validatedConfig(t, cfg), "/tmp/mirrorlist")

	for _, tok := range got {
		if tok == "--country" {
			t.Fatalf("--country must be omitted for empty countries: %v", got)
		}
	}
	if got[0] != "--protocol" || got[1] != "https,http" {
		t.Errorf("unexpected leading tokens: %v", got)
	}
}

func TestBuildArgsDeterministic(t *testing.T) {
	cfg := mirror.ReflectorConfig{
		Enabled:   true,
		Countries: []string{"Germany"},
		Protocols: []mirror.Protocol{mirror.ProtocolHTTPS},
		Age:       12,
		Latest:    20,
		Sort:      mirror.SortRate,
		Verbose:   true,
	}
	v := validatedConfig(t, cfg)

	first := BuildArgs(v, "/tmp/mirrorlist")
	second := BuildArgs(v, "/tmp/mirrorlist")

	if !reflect.DeepEqual(first, second) {
		t.Errorf("BuildArgs() is not deterministic: %v vs %v", first, second)
	}
}

func TestCommandString(t *testing.T) {
	got := CommandString("reflector", []string{"--age", "12"})
	if got != "reflector --age 12" {
		t.Errorf("CommandString() = %q", got)
	}
}

func TestParseArgsRoundTrip(t *testing.T) {
	cfg := mirror.ReflectorConfig{
		Enabled:   true,
		Countries: []string{"Brazil", "Chile"},
		Protocols: []mirror.Protocol{mirror.ProtocolHTTPS},
		Age:       12,
		Latest:    20,
		Sort:      mirror.SortRate,
		Verbose:   true,
	}

	args := BuildArgs(validatedConfig(t, cfg), "/etc/pacman.d/mirrorlist")

	parsed, savePath, err := ParseArgs(args)
	if err != nil {
		t.Fatalf("ParseArgs() failed: %v", err)
	}

	if savePath != "/etc/pacman.d/mirrorlist" {
		t.Errorf("save path = %q", savePath)
	}
	if !reflect.DeepEqual(parsed.Countries, cfg.Countries) {
		t.Errorf("countries = %v, want %v", parsed.Countries, cfg.Countries)
	}
	if !reflect.DeepEqual(parsed.Protocols, cfg.Protocols) {
		t.Errorf("protocols = %v, want %v", parsed.Protocols, cfg.Protocols)
	}
	if parsed.Age != 12 || parsed.Latest != 20 || parsed.Sort != mirror.SortRate || !parsed.Verbose {
		t.Errorf("parsed config mismatch: %+v", parsed)
	}
}

func TestParseArgsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--frobnicate"}},
		{"missing value", []string{"--age"}},
		{"bad age", []string{"--age", "soon"}},
		{"bad protocol", []string{"--protocol", "gopher"}},
		{"bad sort", []string{"--sort", "vibes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ParseArgs(tt.args); err == nil {
				t.Errorf("ParseArgs(%v) expected error", tt.args)
			}
		})
	}
}
