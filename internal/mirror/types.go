package mirror

import (
	"fmt"
	"strings"
)

// Protocol is a mirror transport protocol accepted by reflector.
type Protocol string

const (
	ProtocolHTTP  Protocol = "http"
	ProtocolHTTPS Protocol = "https"
	ProtocolFTP   Protocol = "ftp"
	ProtocolRsync Protocol = "rsync"
)

// SortOrder selects how reflector orders the ranked mirrorlist.
type SortOrder string

const (
	SortRate    SortOrder = "rate"
	SortScore   SortOrder = "score"
	SortDelay   SortOrder = "delay"
	SortAge     SortOrder = "age"
	SortCountry SortOrder = "country"
)

// ParseProtocol normalizes a protocol token to its canonical lowercase value.
func ParseProtocol(s string) (Protocol, error) {
	switch p := Protocol(strings.ToLower(strings.TrimSpace(s))); p {
	case ProtocolHTTP, ProtocolHTTPS, ProtocolFTP, ProtocolRsync:
		return p, nil
	default:
		return "", fmt.Errorf("unknown protocol: %q", s)
	}
}

// ParseSortOrder normalizes a sort-order token to its canonical lowercase value.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case SortRate, SortScore, SortDelay, SortAge, SortCountry:
		return o, nil
	default:
		return "", fmt.Errorf("unknown sort order: %q", s)
	}
}

// Region is a named group of mirror server URLs, either selected manually by
// the user or grouped by country from the mirror status data.
type Region struct {
	Name string   `json:"name"`
	URLs []string `json:"urls"`
}

// ReflectorConfig describes a reflector invocation. Country and protocol
// order is preserved: the first entry is the strongest preference signal
// passed to the ranking tool.
type ReflectorConfig struct {
	Enabled   bool       `json:"enabled"`
	Countries []string   `json:"countries"`
	Protocols []Protocol `json:"protocols"`
	Age       int        `json:"age"`
	Latest    int        `json:"latest"`
	Sort      SortOrder  `json:"sort"`
	Verbose   bool       `json:"verbose"`
}

// DefaultReflectorConfig returns a disabled configuration carrying the
// documented defaults (protocol=https, age=12, latest=20, sort=rate).
// Defaults are baked in at construction time, never filled in later by the
// command builder.
func DefaultReflectorConfig() ReflectorConfig {
	return ReflectorConfig{
		Protocols: []Protocol{ProtocolHTTPS},
		Age:       12,
		Latest:    20,
		Sort:      SortRate,
		Verbose:   true,
	}
}

// Config is the mirror-selection intent for one installation session:
// manually chosen regions plus an optional reflector configuration.
type Config struct {
	Regions   []Region
	Reflector ReflectorConfig
}

// RegionNames returns the names of the manually selected regions in order.
func (c Config) RegionNames() []string {
	names := make([]string, 0, len(c.Regions))
	for _, r := range c.Regions {
		names = append(names, r.Name)
	}
	return names
}
