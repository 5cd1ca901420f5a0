// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/otakumatch/internal/metrics"
	"github.com/tomtom215/otakumatch/internal/taste"
)

// mockClient is a scripted Client that counts calls.
type mockClient struct {
	mu     sync.Mutex
	top    []taste.Item
	search []taste.Item
	titles map[int]taste.Item
	err    error
	calls  map[string]int
}

func newMockClient() *mockClient {
	return &mockClient{titles: map[int]taste.Item{}, calls: map[string]int{}}
}

func (m *mockClient) count(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
}

func (m *mockClient) callCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *mockClient) TopAnime(_ context.Context, _ int) ([]taste.Item, error) {
	m.count("top")
	if m.err != nil {
		return nil, m.err
	}
	return m.top, nil
}

func (m *mockClient) Search(_ context.Context, _ string, _ int) ([]taste.Item, error) {
	m.count("search")
	if m.err != nil {
		return nil, m.err
	}
	return m.search, nil
}

func (m *mockClient) Anime(_ context.Context, id int) (taste.Item, error) {
	m.count("anime")
	if m.err != nil {
		return taste.Item{}, m.err
	}
	item, ok := m.titles[id]
	if !ok {
		return taste.Item{}, fmt.Errorf("anime %d: %w", id, ErrNotFound)
	}
	return item, nil
}

func TestFetcherTopAnimeCaches(t *testing.T) {
	client := newMockClient()
	client.top = []taste.Item{{ID: 1, Title: "A", Genres: taste.GenreList{"Action"}}}

	f := NewFetcher(client, time.Minute, 16)
	defer f.Close()

	ctx := context.Background()
	first := f.TopAnime(ctx, 25)
	second := f.TopAnime(ctx, 25)

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("lengths = %d, %d", len(first), len(second))
	}
	if got := client.callCount("top"); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}

	// callers cannot corrupt the cached value
	first[0].Genres[0] = "Mutated"
	third := f.TopAnime(ctx, 25)
	if third[0].Genres[0] != "Action" {
		t.Errorf("cached genres were mutated: %v", third[0].Genres)
	}
}

func TestFetcherFailuresDegradeToEmpty(t *testing.T) {
	client := newMockClient()
	client.err = errors.New("connection refused")

	f := NewFetcher(client, time.Minute, 16)
	defer f.Close()
	ctx := context.Background()

	before := testutil.ToFloat64(metrics.CatalogFetchFailures.WithLabelValues("top"))

	top := f.TopAnime(ctx, 25)
	if top == nil || len(top) != 0 {
		t.Errorf("TopAnime() = %v, want non-nil empty slice", top)
	}
	if got := f.Search(ctx, "naruto", 12); len(got) != 0 {
		t.Errorf("Search() = %v, want empty", got)
	}
	if _, ok := f.Anime(ctx, 5); ok {
		t.Error("Anime() ok = true on failure")
	}

	after := testutil.ToFloat64(metrics.CatalogFetchFailures.WithLabelValues("top"))
	if after-before != 1 {
		t.Errorf("fetch failures delta = %v, want 1", after-before)
	}

	// failures are not cached
	client.err = nil
	client.top = []taste.Item{{ID: 9}}
	if got := f.TopAnime(ctx, 25); len(got) != 1 {
		t.Errorf("TopAnime() after recovery = %v", got)
	}
}

func TestFetcherSearch(t *testing.T) {
	client := newMockClient()
	client.search = []taste.Item{{ID: 3}, {ID: 1}, {ID: 2}}

	f := NewFetcher(client, time.Minute, 16)
	defer f.Close()
	ctx := context.Background()

	t.Run("blank query skips upstream", func(t *testing.T) {
		if got := f.Search(ctx, "   ", 12); len(got) != 0 {
			t.Errorf("Search() = %v", got)
		}
		if client.callCount("search") != 0 {
			t.Error("upstream called for blank query")
		}
	})

	t.Run("order preserved", func(t *testing.T) {
		got := f.Search(ctx, "Bebop", 12)
		if len(got) != 3 || got[0].ID != 3 || got[1].ID != 1 || got[2].ID != 2 {
			t.Errorf("Search() = %+v", got)
		}
	})

	t.Run("case-insensitive cache key", func(t *testing.T) {
		_ = f.Search(ctx, "bebop", 12)
		if got := client.callCount("search"); got != 1 {
			t.Errorf("upstream calls = %d, want 1", got)
		}
	})
}

func TestFetcherAnime(t *testing.T) {
	client := newMockClient()
	client.titles[16498] = taste.Item{ID: 16498, Title: "Shingeki no Kyojin", Episodes: 25}

	f := NewFetcher(client, time.Minute, 16)
	defer f.Close()
	ctx := context.Background()

	item, ok := f.Anime(ctx, 16498)
	if !ok || item.Title != "Shingeki no Kyojin" {
		t.Fatalf("Anime() = %+v, %v", item, ok)
	}
	_, _ = f.Anime(ctx, 16498)
	if got := client.callCount("anime"); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}

	if _, ok := f.Anime(ctx, 404); ok {
		t.Error("Anime(404) ok = true")
	}
}

func TestNewBuildsBreakerChain(t *testing.T) {
	cfg := DefaultConfig()
	f := New(cfg)
	defer f.Close()
	if _, ok := f.client.(*CircuitBreakerClient); !ok {
		t.Errorf("client = %T, want *CircuitBreakerClient", f.client)
	}
	if got := f.State(); got != "closed" {
		t.Errorf("State() = %q, want closed", got)
	}

	cfg.CircuitBreaker = false
	g := New(cfg)
	defer g.Close()
	if _, ok := g.client.(*JikanClient); !ok {
		t.Errorf("client = %T, want *JikanClient", g.client)
	}
	if got := g.State(); got != "direct" {
		t.Errorf("State() = %q, want direct", got)
	}
}
