// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

/*
client.go - Jikan REST API Client

Jikan (https://docs.api.jikan.moe/) is an unofficial read-only MyAnimeList
API. It allows roughly three requests per second per client, so every call
waits on a shared token bucket before going out.
*/

package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/otakumatch/internal/metrics"
	"github.com/tomtom215/otakumatch/internal/taste"
)

// DefaultBaseURL is the public Jikan v4 endpoint.
const DefaultBaseURL = "https://api.jikan.moe/v4"

// DefaultRequestInterval is the minimum spacing between two upstream calls.
const DefaultRequestInterval = 600 * time.Millisecond

// Response bodies larger than maxResponseBytes are rejected. Error messages
// quote at most maxErrorBodyBytes of an upstream body.
const (
	maxResponseBytes  = 8 << 20
	maxErrorBodyBytes = 256
)

// ErrNotFound is returned when the catalog has no title with the given id.
var ErrNotFound = errors.New("anime not found")

// Client defines the catalog operations used by the fetcher.
// Both JikanClient and CircuitBreakerClient implement it.
type Client interface {
	TopAnime(ctx context.Context, limit int) ([]taste.Item, error)
	Search(ctx context.Context, query string, limit int) ([]taste.Item, error)
	Anime(ctx context.Context, id int) (taste.Item, error)
}

var _ Client = (*JikanClient)(nil)

// JikanClient talks to the Jikan v4 REST API.
type JikanClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewJikanClient creates a Jikan client.
//
// Parameters:
//   - baseURL: API root, e.g. https://api.jikan.moe/v4 (empty uses DefaultBaseURL)
//   - timeout: per-request HTTP timeout (<= 0 uses 30s)
//   - interval: minimum spacing between requests (<= 0 disables throttling)
func NewJikanClient(baseURL string, timeout, interval time.Duration) *JikanClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}

	return &JikanClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// TopAnime returns the first page of the top-rated list.
func (c *JikanClient) TopAnime(ctx context.Context, limit int) ([]taste.Item, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, "top", "/top/anime", params)
	if err != nil {
		return nil, fmt.Errorf("jikan top anime request failed: %w", err)
	}

	items, err := decodeList(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode jikan top anime: %w", err)
	}
	return items, nil
}

// Search returns titles matching a free-text query.
func (c *JikanClient) Search(ctx context.Context, query string, limit int) ([]taste.Item, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, "search", "/anime", params)
	if err != nil {
		return nil, fmt.Errorf("jikan search request failed: %w", err)
	}

	items, err := decodeList(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode jikan search: %w", err)
	}
	return items, nil
}

// Anime returns a single title by MyAnimeList id.
func (c *JikanClient) Anime(ctx context.Context, id int) (taste.Item, error) {
	if id <= 0 {
		return taste.Item{}, fmt.Errorf("invalid anime id %d: %w", id, ErrNotFound)
	}

	body, err := c.get(ctx, "anime", "/anime/"+strconv.Itoa(id), nil)
	if err != nil {
		return taste.Item{}, fmt.Errorf("jikan anime %d request failed: %w", id, err)
	}

	var env jikanEnvelope[jikanAnime]
	if err := json.Unmarshal(body, &env); err != nil {
		return taste.Item{}, fmt.Errorf("failed to decode jikan anime %d: %w", id, err)
	}
	if env.Data.MalID <= 0 {
		return taste.Item{}, fmt.Errorf("jikan anime %d: %w", id, ErrNotFound)
	}
	return env.Data.toItem(), nil
}

// get performs a throttled GET and returns the body of a 200 response.
// endpoint labels the call in metrics.
func (c *JikanClient) get(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordCatalogRequest(endpoint, 0, time.Since(start))
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.RecordCatalogRequest(endpoint, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > maxResponseBytes {
		return nil, fmt.Errorf("jikan response exceeds %d bytes", maxResponseBytes)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("jikan returned status %d: %s", resp.StatusCode, truncateBody(body))
	}
}

func truncateBody(body []byte) string {
	if len(body) <= maxErrorBodyBytes {
		return string(body)
	}
	return string(body[:maxErrorBodyBytes]) + "..."
}
