package mirror

import (
	"fmt"
	"strings"
)

// InvalidConfigError reports a reflector configuration that failed
// validation. It is recoverable: the caller may re-prompt and retry.
type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid reflector configuration: %s: %s", e.Field, e.Reason)
}

// ValidatedReflectorConfig is a ReflectorConfig that passed Validate.
// It is a distinct type so downstream components (command builder, executor)
// cannot be handed an unchecked configuration.
type ValidatedReflectorConfig struct {
	cfg ReflectorConfig
}

// Config returns the normalized configuration value.
func (v ValidatedReflectorConfig) Config() ReflectorConfig {
	return v.cfg
}

// Validate checks a ReflectorConfig for internal consistency and normalizes
// protocol and sort tokens to their canonical lowercase values. knownCountries
// is the external vocabulary of country names supported by reflector; if it
// is empty no country check is possible and countries are accepted as given.
// Validation is pure: nothing is corrected silently except case.
func Validate(cfg ReflectorConfig, knownCountries []string) (ValidatedReflectorConfig, error) {
	if cfg.Enabled && len(cfg.Protocols) == 0 {
		return ValidatedReflectorConfig{}, &InvalidConfigError{
			Field:  "protocols",
			Reason: "at least one protocol is required when reflector is enabled",
		}
	}

	if cfg.Age <= 0 {
		return ValidatedReflectorConfig{}, &InvalidConfigError{
			Field:  "age",
			Reason: fmt.Sprintf("must be a positive number of hours, got %d", cfg.Age),
		}
	}

	if cfg.Latest <= 0 {
		return ValidatedReflectorConfig{}, &InvalidConfigError{
			Field:  "latest",
			Reason: fmt.Sprintf("must be a positive mirror count, got %d", cfg.Latest),
		}
	}

	normalized := cfg
	normalized.Protocols = make([]Protocol, 0, len(cfg.Protocols))
	for _, p := range cfg.Protocols {
		parsed, err := ParseProtocol(string(p))
		if err != nil {
			return ValidatedReflectorConfig{}, &InvalidConfigError{Field: "protocols", Reason: err.Error()}
		}
		normalized.Protocols = append(normalized.Protocols, parsed)
	}

	sort, err := ParseSortOrder(string(cfg.Sort))
	if err != nil {
		return ValidatedReflectorConfig{}, &InvalidConfigError{Field: "sort", Reason: err.Error()}
	}
	normalized.Sort = sort

	if len(knownCountries) > 0 {
		known := make(map[string]struct{}, len(knownCountries))
		for _, c := range knownCountries {
			known[strings.ToLower(c)] = struct{}{}
		}
		for _, c := range cfg.Countries {
			if _, ok := known[strings.ToLower(c)]; !ok {
				return ValidatedReflectorConfig{}, &InvalidConfigError{
					Field:  "countries",
					Reason: fmt.Sprintf("unknown country: %q", c),
				}
			}
		}
	}

	normalized.Countries = append([]string(nil), cfg.Countries...)

	return ValidatedReflectorConfig{cfg: normalized}, nil
}
