package mirror

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	probeTimeout    = 5 * time.Second
	probeMaxWorkers = 10
)

// ProbeResult holds the outcome of a single mirror latency probe.
type ProbeResult struct {
	URL       string
	LatencyMs int
	Error     string
}

// ProbeRank orders server URLs by measured latency ascending, unreachable
// mirrors last. It is used on the fallback path so a manual region list is
// still written fastest-first, the way the ranked path would order it.
// Pacman $repo/$arch placeholders are stripped for probing only; returned
// URLs are unchanged.
func (s *StatusClient) ProbeRank(ctx context.Context, urls []string) []ProbeResult {
	results := make([]ProbeResult, len(urls))
	sem := make(chan struct{}, probeMaxWorkers)
	var wg sync.WaitGroup

	for i, u := range urls {
		wg.Add(1)
		go func(idx int, url string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			reqCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()

			probeURL := strings.TrimSuffix(url, serverURLSuffix)
			req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, probeURL, nil)
			if err != nil {
				results[idx] = ProbeResult{URL: url, Error: err.Error()}
				return
			}
			req.Header.Set("User-Agent", "pacmirror/1.0")

			start := time.Now()
			resp, err := s.client.Do(req)
			elapsed := time.Since(start)

			if err != nil {
				results[idx] = ProbeResult{URL: url, LatencyMs: int(elapsed.Milliseconds()), Error: err.Error()}
				return
			}
			resp.Body.Close()

			results[idx] = ProbeResult{URL: url, LatencyMs: int(elapsed.Milliseconds())}
		}(i, u)
	}

	wg.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Error != "" && results[j].Error == "" {
			return false
		}
		if results[i].Error == "" && results[j].Error != "" {
			return true
		}
		return results[i].LatencyMs < results[j].LatencyMs
	})

	return results
}
