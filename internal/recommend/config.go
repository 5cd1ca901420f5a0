// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

package recommend

import "fmt"

// Config contains the sizing parameters of the recommendation service.
type Config struct {
	// PoolSize is the number of candidates requested from the catalog.
	PoolSize int

	// DefaultLimit is the number of results returned when a request does
	// not ask for a specific count.
	DefaultLimit int

	// MaxLimit caps any requested limit.
	MaxLimit int

	// SearchLimit is the default number of plain search results.
	SearchLimit int
}

// DefaultConfig returns sensible defaults: a pool of 25, top 10 returned.
func DefaultConfig() Config {
	return Config{
		PoolSize:     25,
		DefaultLimit: 10,
		MaxLimit:     25,
		SearchLimit:  12,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.PoolSize < 1 {
		return fmt.Errorf("pool_size must be at least 1, got %d", c.PoolSize)
	}
	if c.DefaultLimit < 1 {
		return fmt.Errorf("default_limit must be at least 1, got %d", c.DefaultLimit)
	}
	if c.MaxLimit < c.DefaultLimit {
		return fmt.Errorf("max_limit must be >= default_limit, got %d < %d", c.MaxLimit, c.DefaultLimit)
	}
	if c.SearchLimit < 1 {
		return fmt.Errorf("search_limit must be at least 1, got %d", c.SearchLimit)
	}
	return nil
}

// clampLimit applies the default and maximum to a requested limit.
func (c Config) clampLimit(limit int) int {
	if limit <= 0 {
		return c.DefaultLimit
	}
	if limit > c.MaxLimit {
		return c.MaxLimit
	}
	return limit
}
