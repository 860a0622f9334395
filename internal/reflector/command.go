// Package reflector builds and executes invocations of the external
// reflector mirror-ranking tool.
package reflector

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pacmirror/pacmirror/internal/mirror"
)

// BuildArgs maps a validated reflector configuration to the ordered argument
// list for the reflector binary. The mapping is deterministic: the same
// configuration always produces the same token sequence, and comma joins
// preserve the insertion order of countries and protocols (the first entry
// is the strongest preference signal).
func BuildArgs(v mirror.ValidatedReflectorConfig, savePath string) []string {
	cfg := v.Config()
	var args []string

	if cfg.Verbose {
		args = append(args, "--verbose")
	}

	if len(cfg.Countries) > 0 {
		args = append(args, "--country", strings.Join(cfg.Countries, ","))
	}

	protocols := make([]string, len(cfg.Protocols))
	for i, p := range cfg.Protocols {
		protocols[i] = string(p)
	}

	args = append(args,
		"--protocol", strings.Join(protocols, ","),
		"--age", strconv.Itoa(cfg.Age),
		"--latest", strconv.Itoa(cfg.Latest),
		"--sort", string(cfg.Sort),
		"--save", savePath,
	)

	return args
}

// CommandString renders the full invocation for logging and dry-run display.
func CommandString(binary string, args []string) string {
	return binary + " " + strings.Join(args, " ")
}

// ParseArgs is the inverse of BuildArgs. It reconstructs the configuration
// and save path from a recorded token sequence, so audit entries stored as
// command lines can be interpreted later.
func ParseArgs(args []string) (mirror.ReflectorConfig, string, error) {
	cfg := mirror.ReflectorConfig{Enabled: true}
	var savePath string

	i := 0
	next := func(flag string) (string, error) {
		if i >= len(args) {
			return "", fmt.Errorf("flag %s is missing a value", flag)
		}
		val := args[i]
		i++
		return val, nil
	}

	for i < len(args) {
		flag := args[i]
		i++

		switch flag {
		case "--verbose":
			cfg.Verbose = true
		case "--country":
			val, err := next(flag)
			if err != nil {
				return mirror.ReflectorConfig{}, "", err
			}
			cfg.Countries = strings.Split(val, ",")
		case "--protocol":
			val, err := next(flag)
			if err != nil {
				return mirror.ReflectorConfig{}, "", err
			}
			for _, tok := range strings.Split(val, ",") {
				p, err := mirror.ParseProtocol(tok)
				if err != nil {
					return mirror.ReflectorConfig{}, "", err
				}
				cfg.Protocols = append(cfg.Protocols, p)
			}
		case "--age":
			val, err := next(flag)
			if err != nil {
				return mirror.ReflectorConfig{}, "", err
			}
			cfg.Age, err = strconv.Atoi(val)
			if err != nil {
				return mirror.ReflectorConfig{}, "", fmt.Errorf("invalid --age value %q: %w", val, err)
			}
		case "--latest":
			val, err := next(flag)
			if err != nil {
				return mirror.ReflectorConfig{}, "", err
			}
			cfg.Latest, err = strconv.Atoi(val)
			if err != nil {
				return mirror.ReflectorConfig{}, "", fmt.Errorf("invalid --latest value %q: %w", val, err)
			}
		case "--sort":
			val, err := next(flag)
			if err != nil {
				return mirror.ReflectorConfig{}, "", err
			}
			cfg.Sort, err = mirror.ParseSortOrder(val)
			if err != nil {
				return mirror.ReflectorConfig{}, "", err
			}
		case "--save":
			val, err := next(flag)
			if err != nil {
				return mirror.ReflectorConfig{}, "", err
			}
			savePath = val
		default:
			return mirror.ReflectorConfig{}, "", fmt.Errorf("unknown flag: %q", flag)
		}
	}

	return cfg, savePath, nil
}
