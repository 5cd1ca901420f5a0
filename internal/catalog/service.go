// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

package catalog

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/otakumatch/internal/cache"
	"github.com/tomtom215/otakumatch/internal/logging"
	"github.com/tomtom215/otakumatch/internal/metrics"
	"github.com/tomtom215/otakumatch/internal/taste"
)

// Config configures the catalog fetcher.
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	RequestInterval time.Duration
	CacheTTL        time.Duration
	CacheSize       int
	CircuitBreaker  bool
}

// DefaultConfig returns the configuration used against the public Jikan API.
func DefaultConfig() Config {
	return Config{
		BaseURL:         DefaultBaseURL,
		Timeout:         30 * time.Second,
		RequestInterval: DefaultRequestInterval,
		CacheTTL:        10 * time.Minute,
		CacheSize:       256,
		CircuitBreaker:  true,
	}
}

// Fetcher is the degrading front of the catalog: it caches successful
// responses and turns every failure into an empty result after logging it.
// It satisfies recommend.CandidateSource.
type Fetcher struct {
	client Client
	lists  *cache.Cache[[]taste.Item]
	titles *cache.Cache[taste.Item]
	logger zerolog.Logger
}

// New builds the production fetcher from cfg: a throttled Jikan client,
// optionally behind a circuit breaker, with response caching.
func New(cfg Config) *Fetcher {
	var client Client = NewJikanClient(cfg.BaseURL, cfg.Timeout, cfg.RequestInterval)
	if cfg.CircuitBreaker {
		client = NewCircuitBreakerClient(client)
	}
	return NewFetcher(client, cfg.CacheTTL, cfg.CacheSize)
}

// NewFetcher wraps an arbitrary client. ttl <= 0 uses the cache default.
func NewFetcher(client Client, ttl time.Duration, size int) *Fetcher {
	return &Fetcher{
		client: client,
		lists:  cache.New[[]taste.Item]("catalog_lists", ttl, size),
		titles: cache.New[taste.Item]("catalog_titles", ttl, size),
		logger: logging.WithComponent("catalog"),
	}
}

// State reports the circuit breaker state (closed, open or half-open), or
// "direct" when the client is not behind a breaker.
func (f *Fetcher) State() string {
	if cb, ok := f.client.(*CircuitBreakerClient); ok {
		return cb.State()
	}
	return "direct"
}

// Close stops the cache sweepers.
func (f *Fetcher) Close() {
	f.lists.Close()
	f.titles.Close()
}

// TopAnime returns up to limit top-rated titles, or an empty slice if the
// catalog is unreachable.
func (f *Fetcher) TopAnime(ctx context.Context, limit int) []taste.Item {
	key := "top:" + strconv.Itoa(limit)
	if items, ok := f.lists.Get(key); ok {
		return cloneItems(items)
	}

	items, err := f.client.TopAnime(ctx, limit)
	if err != nil {
		f.fail(ctx, "top", err).Int("limit", limit).Msg("Failed to fetch top anime")
		return []taste.Item{}
	}

	f.lists.Set(key, items)
	return cloneItems(items)
}

// Search returns up to limit titles matching query. A blank query returns
// an empty slice without calling upstream.
func (f *Fetcher) Search(ctx context.Context, query string, limit int) []taste.Item {
	query = strings.TrimSpace(query)
	if query == "" {
		return []taste.Item{}
	}

	key := cache.GenerateKey("search", map[string]any{"q": strings.ToLower(query), "limit": limit})
	if items, ok := f.lists.Get(key); ok {
		return cloneItems(items)
	}

	items, err := f.client.Search(ctx, query, limit)
	if err != nil {
		f.fail(ctx, "search", err).Str("query", query).Msg("Failed to search catalog")
		return []taste.Item{}
	}

	f.lists.Set(key, items)
	return cloneItems(items)
}

// Anime resolves a single title. The boolean is false when the title does
// not exist or the catalog is unreachable.
func (f *Fetcher) Anime(ctx context.Context, id int) (taste.Item, bool) {
	key := strconv.Itoa(id)
	if item, ok := f.titles.Get(key); ok {
		return cloneItem(item), true
	}

	item, err := f.client.Anime(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			logging.Ctx(ctx).Debug().Int("anime_id", id).Msg("Anime not found in catalog")
			return taste.Item{}, false
		}
		f.fail(ctx, "anime", err).Int("anime_id", id).Msg("Failed to fetch anime")
		return taste.Item{}, false
	}

	f.titles.Set(key, item)
	return cloneItem(item), true
}

func (f *Fetcher) fail(ctx context.Context, op string, err error) *zerolog.Event {
	metrics.CatalogFetchFailures.WithLabelValues(op).Inc()
	event := f.logger.Warn().Err(err).Str("operation", op)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		event = event.Str("correlation_id", id)
	}
	return event
}

func cloneItems(items []taste.Item) []taste.Item {
	out := make([]taste.Item, len(items))
	for i := range items {
		out[i] = cloneItem(items[i])
	}
	return out
}

func cloneItem(item taste.Item) taste.Item {
	if item.Genres != nil {
		item.Genres = append(taste.GenreList(nil), item.Genres...)
	}
	return item
}
