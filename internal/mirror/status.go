package mirror

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pacmirror/pacmirror/internal/safety"
)

const (
	// DefaultStatusURL is the archlinux.org mirror status endpoint (version 3).
	DefaultStatusURL = "https://archlinux.org/mirrors/status/json/"

	defaultCacheTTL        = 1 * time.Hour
	maxStatusResponseBytes = 16 * 1024 * 1024

	// serverURLSuffix turns a mirror base URL into a pacman Server entry.
	serverURLSuffix = "$repo/os/$arch"
)

// statusEntry is one mirror in the version-3 status payload.
type statusEntry struct {
	URL      string     `json:"url"`
	Protocol string     `json:"protocol"`
	Active   bool       `json:"active"`
	Country  string     `json:"country"`
	Score    *float64   `json:"score"`
	LastSync *time.Time `json:"last_sync"`
	Delay    *int       `json:"delay"`
}

// statusPayload is the version-3 mirror status document.
type statusPayload struct {
	Cutoff    int           `json:"cutoff"`
	LastCheck time.Time     `json:"last_check"`
	NumChecks int           `json:"num_checks"`
	URLs      []statusEntry `json:"urls"`
	Version   int           `json:"version"`
}

// StatusClient provides the mirror region list and country vocabulary,
// fetched from the mirror status endpoint with an in-memory cache and a
// fallback to parsing the local mirrorlist when the endpoint is unreachable.
type StatusClient struct {
	client          *http.Client
	logger          *slog.Logger
	statusURL       string
	localMirrorlist string

	mu        sync.RWMutex
	regions   []Region
	fetchedAt time.Time
	cacheTTL  time.Duration
}

// NewStatusClient creates a StatusClient with sensible defaults.
func NewStatusClient(logger *slog.Logger) *StatusClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusClient{
		client:          safety.NewHTTPClient(30 * time.Second),
		logger:          logger,
		statusURL:       DefaultStatusURL,
		localMirrorlist: "/etc/pacman.d/mirrorlist",
		cacheTTL:        defaultCacheTTL,
	}
}

// SetStatusURL overrides the status endpoint (primarily for tests).
func (s *StatusClient) SetStatusURL(url string) { s.statusURL = url }

// SetLocalMirrorlist overrides the local mirrorlist path used as fallback.
func (s *StatusClient) SetLocalMirrorlist(path string) { s.localMirrorlist = path }

// Regions returns all known mirror regions sorted by name. Remote status is
// tried first; on failure the local mirrorlist is parsed instead. Results
// are cached until the TTL expires.
func (s *StatusClient) Regions(ctx context.Context) ([]Region, error) {
	s.mu.RLock()
	if s.regions != nil && time.Since(s.fetchedAt) <= s.cacheTTL {
		cached := s.regions
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	regions, err := s.fetchRemote(ctx)
	if err != nil {
		s.logger.Warn("failed to fetch mirror status, falling back to local mirrorlist",
			"url", s.statusURL, "error", err)
		regions, err = s.loadLocal()
		if err != nil {
			return nil, fmt.Errorf("failed to load mirror regions: %w", err)
		}
	}

	s.mu.Lock()
	s.regions = regions
	s.fetchedAt = time.Now()
	s.mu.Unlock()

	return regions, nil
}

// Countries returns the country vocabulary for reflector validation:
// region names excluding the synthetic Worldwide bucket.
func (s *StatusClient) Countries(ctx context.Context) ([]string, error) {
	regions, err := s.Regions(ctx)
	if err != nil {
		return nil, err
	}

	var countries []string
	for _, r := range regions {
		if r.Name == "Worldwide" {
			continue
		}
		countries = append(countries, r.Name)
	}
	return countries, nil
}

// RegionsByName returns the subset of known regions matching the given names,
// preserving the order of names. Unknown names are skipped with a warning.
func (s *StatusClient) RegionsByName(ctx context.Context, names []string) ([]Region, error) {
	regions, err := s.Regions(ctx)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]Region, len(regions))
	for _, r := range regions {
		byName[r.Name] = r
	}

	var selected []Region
	for _, name := range names {
		r, ok := byName[name]
		if !ok {
			s.logger.Warn("unknown mirror region", "region", name)
			continue
		}
		selected = append(selected, r)
	}
	return selected, nil
}

// fetchRemote downloads and parses the mirror status document.
func (s *StatusClient) fetchRemote(ctx context.Context) ([]Region, error) {
	if _, err := safety.ValidateHTTPURL(s.statusURL); err != nil {
		return nil, fmt.Errorf("invalid status URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.statusURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "pacmirror/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, s.statusURL)
	}

	body, err := safety.ReadAllWithLimit(resp.Body, maxStatusResponseBytes)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return parseStatusJSON(body)
}

// loadLocal parses the local mirrorlist into regions.
func (s *StatusClient) loadLocal() ([]Region, error) {
	f, err := os.Open(s.localMirrorlist)
	if err != nil {
		return nil, fmt.Errorf("opening local mirrorlist: %w", err)
	}
	defer f.Close()

	regions, err := ParseMirrorlist(f)
	if err != nil {
		return nil, fmt.Errorf("parsing local mirrorlist: %w", err)
	}
	return regions, nil
}

// parseStatusJSON converts a version-3 status payload into regions grouped
// by country, sorted by name. Mirrors that are inactive, have never synced,
// or carry a score of 100 or more (the backend's error ceiling) are dropped.
func parseStatusJSON(data []byte) ([]Region, error) {
	var payload statusPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parsing mirror status: %w", err)
	}
	if payload.Version != 3 {
		return nil, fmt.Errorf("unsupported mirror status version %d, want 3", payload.Version)
	}

	grouped := make(map[string][]string)
	for _, entry := range payload.URLs {
		if !entry.Active || entry.LastSync == nil {
			continue
		}
		if entry.Score == nil || *entry.Score >= 100 {
			continue
		}
		if !strings.HasPrefix(entry.URL, "http") {
			continue
		}

		country := entry.Country
		if country == "" {
			// Some mirrors lack location data in the backend; bucket them
			// under Worldwide rather than dropping them.
			country = "Worldwide"
		}

		grouped[country] = append(grouped[country], entry.URL+serverURLSuffix)
	}

	regions := make([]Region, 0, len(grouped))
	for name, urls := range grouped {
		regions = append(regions, Region{Name: name, URLs: urls})
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].Name < regions[j].Name })

	return regions, nil
}

// ParseMirrorlist parses pacman mirrorlist text into regions. Region headers
// are "## Name" comment lines; servers appearing before any header are
// grouped under "Local".
func ParseMirrorlist(r io.Reader) ([]Region, error) {
	var (
		regions []Region
		index   = make(map[string]int)
		current string
	)

	addServer := func(region, url string) {
		i, ok := index[region]
		if !ok {
			regions = append(regions, Region{Name: region})
			i = len(regions) - 1
			index[region] = i
		}
		regions[i].URLs = append(regions[i].URLs, url)
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "## ") {
			current = strings.TrimSpace(strings.TrimPrefix(line, "## "))
			if _, ok := index[current]; !ok {
				regions = append(regions, Region{Name: current})
				index[current] = len(regions) - 1
			}
			continue
		}

		if strings.HasPrefix(line, "Server = ") {
			url := strings.TrimSpace(strings.TrimPrefix(line, "Server = "))
			region := current
			if region == "" {
				region = "Local"
			}
			addServer(region, url)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading mirrorlist: %w", err)
	}

	return regions, nil
}
