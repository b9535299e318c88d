// Package eppo implements the client for the EPPO Global Database API.
//
// Every endpoint fetch goes through a disk cache keyed by (code, endpoint).
// Misses hit the network behind an unconditional inter-request delay and a
// bounded retry loop with exponential backoff. Fetch failures never surface
// as errors: an endpoint that cannot be retrieved degrades to an absent
// field, and the caller decides what absence means.
//
// The cache directory is shared mutable state with no locking discipline.
// Concurrent fetches of the same (code, endpoint) may race on the write,
// but both sides write identical bytes, so the race is benign.
package eppo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"phytovet/internal/config"
	"phytovet/internal/logging"
	"phytovet/internal/types"
)

// Endpoints fetched per taxon.
const (
	endpointOverview = "overview"
	endpointNames    = "names"
	endpointHosts    = "hosts"
)

// Stats counts cache and network activity. Misses and calls count
// attempts, not endpoints: a fetch that retries three times records
// three misses and three calls.
type Stats struct {
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`
	APICalls    int64 `json:"api_calls"`
}

// Client fetches taxon facts from the EPPO Global Database.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cacheDir   string
	rateDelay  time.Duration
	backoff    time.Duration
	maxRetries int

	mu    sync.Mutex
	stats Stats
}

// New creates a Client from configuration.
func New(cfg *config.Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.GetRequestTimeout()},
		baseURL:    strings.TrimRight(cfg.EPPO.BaseURL, "/"),
		apiKey:     cfg.EPPO.APIKey,
		cacheDir:   cfg.EPPO.CacheDir,
		rateDelay:  cfg.GetRateLimitDelay(),
		backoff:    cfg.GetRetryBackoff(),
		maxRetries: cfg.EPPO.MaxRetries,
	}
}

// FetchFacts fetches overview, names, and hosts for one EPPO code.
// Endpoint failures degrade to absent fields: names and hosts normalize
// to empty sequences, overview to nil. Callers treat a nil overview as
// the terminal "facts unavailable" signal.
func (c *Client) FetchFacts(ctx context.Context, code string) types.Facts {
	var facts types.Facts

	if body := c.fetchEndpoint(ctx, code, endpointOverview); body != nil {
		var ov types.TaxonOverview
		if err := json.Unmarshal(body, &ov); err != nil {
			logging.APIWarn("Overview for %s has unexpected shape: %v", code, err)
		} else {
			facts.Overview = &ov
		}
	}

	if body := c.fetchEndpoint(ctx, code, endpointNames); body != nil {
		var names []types.TaxonName
		if err := json.Unmarshal(body, &names); err != nil {
			logging.APIWarn("Names for %s are not a sequence: %v", code, err)
		} else {
			facts.Names = names
		}
	}

	if body := c.fetchEndpoint(ctx, code, endpointHosts); body != nil {
		var hosts []types.TaxonHost
		if err := json.Unmarshal(body, &hosts); err != nil {
			logging.APIWarn("Hosts for %s are not a sequence: %v", code, err)
		} else {
			facts.Hosts = hosts
		}
	}

	return facts
}

// Stats returns a snapshot of the cache and network counters.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// =============================================================================
// ENDPOINT FETCH
// =============================================================================

// fetchState classifies the outcome of a single fetch attempt, so the
// retry loop's exit conditions live in the type instead of error
// string-matching.
type fetchState int

const (
	// fetchOK carries a non-null JSON body.
	fetchOK fetchState = iota
	// fetchRetry is a transient failure worth another attempt.
	fetchRetry
	// fetchAbsent means the record definitively has no content
	// (a JSON null body); retrying cannot help.
	fetchAbsent
)

type fetchResult struct {
	state fetchState
	body  json.RawMessage
	err   error
}

// fetchEndpoint returns the raw JSON for one (code, endpoint) pair, or
// nil when it cannot be retrieved. Cache hits never touch the network.
func (c *Client) fetchEndpoint(ctx context.Context, code, endpoint string) json.RawMessage {
	if body, ok := c.loadCached(code, endpoint); ok {
		c.mu.Lock()
		c.stats.CacheHits++
		c.mu.Unlock()
		logging.CacheDebug("Hit for %s/%s (%d bytes)", code, endpoint, len(body))
		return body
	}

	url := fmt.Sprintf("%s/taxons/taxon/%s/%s", c.baseURL, code, endpoint)

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(c.backoff << uint(attempt-1))
		}

		c.mu.Lock()
		c.stats.CacheMisses++
		c.stats.APICalls++
		c.mu.Unlock()

		// Courtesy delay before every network attempt, not a token
		// bucket: the EPPO API is shared infrastructure.
		time.Sleep(c.rateDelay)

		res := c.attempt(ctx, url)
		switch res.state {
		case fetchOK:
			c.saveCached(code, endpoint, res.body)
			logging.APIDebug("Fetched %s/%s (%d bytes)", code, endpoint, len(res.body))
			return res.body
		case fetchAbsent:
			logging.APIDebug("No content for %s/%s", code, endpoint)
			return nil
		case fetchRetry:
			logging.APIWarn("Attempt %d/%d for %s/%s failed: %v",
				attempt+1, c.maxRetries, code, endpoint, res.err)
		}
	}

	logging.APIError("Giving up on %s/%s after %d attempts", code, endpoint, c.maxRetries)
	return nil
}

// attempt performs one authenticated GET and classifies the outcome.
func (c *Client) attempt(ctx context.Context, url string) fetchResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fetchResult{state: fetchRetry, err: fmt.Errorf("failed to create request: %w", err)}
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fetchResult{state: fetchRetry, err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fetchResult{state: fetchRetry, err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fetchResult{state: fetchRetry, err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	if !json.Valid(body) {
		return fetchResult{state: fetchRetry, err: fmt.Errorf("response is not valid JSON")}
	}
	if isJSONNull(body) {
		return fetchResult{state: fetchAbsent}
	}

	return fetchResult{state: fetchOK, body: body}
}

// =============================================================================
// DISK CACHE
// =============================================================================

func (c *Client) cachePath(code, endpoint string) string {
	return filepath.Join(c.cacheDir, "taxons", code, endpoint+".json")
}

// loadCached returns the cached body for (code, endpoint). Unreadable,
// corrupt, or null entries count as misses.
func (c *Client) loadCached(code, endpoint string) (json.RawMessage, bool) {
	data, err := os.ReadFile(c.cachePath(code, endpoint))
	if err != nil {
		return nil, false
	}
	if !json.Valid(data) || isJSONNull(data) {
		return nil, false
	}
	return data, true
}

// saveCached persists a response body. Best effort: a cache that cannot
// be written only costs a refetch next time.
func (c *Client) saveCached(code, endpoint string, body []byte) {
	path := c.cachePath(code, endpoint)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		logging.CacheDebug("Cannot create cache dir for %s/%s: %v", code, endpoint, err)
		return
	}
	if err := os.WriteFile(path, body, 0644); err != nil {
		logging.CacheDebug("Cannot write cache for %s/%s: %v", code, endpoint, err)
	}
}

func isJSONNull(b []byte) bool {
	return string(bytes.TrimSpace(b)) == "null"
}
