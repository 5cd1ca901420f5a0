// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

package taste

import "fmt"

// DefaultProfileKey is the storage key of the persisted profile.
const DefaultProfileKey = "otakumatch_user_profile"

// Config holds the accumulation weights of the preference store.
type Config struct {
	// WatchedWeight is added per genre and length bucket when a title is
	// marked watched. Must exceed WantWeight.
	WatchedWeight int

	// WantWeight is added when a title is marked want-to-watch.
	WantWeight int

	// Key is the storage key the profile is persisted under.
	Key string
}

// DefaultConfig returns the default weights (watched 5, want 2).
func DefaultConfig() Config {
	return Config{
		WatchedWeight: 5,
		WantWeight:    2,
		Key:           DefaultProfileKey,
	}
}

// Validate checks the weight ordering and key.
func (c Config) Validate() error {
	if c.WantWeight < 1 {
		return fmt.Errorf("want weight must be at least 1, got %d", c.WantWeight)
	}
	if c.WatchedWeight <= c.WantWeight {
		return fmt.Errorf("watched weight must be greater than want weight, got watched=%d want=%d",
			c.WatchedWeight, c.WantWeight)
	}
	if c.Key == "" {
		return fmt.Errorf("profile key must not be empty")
	}
	return nil
}
