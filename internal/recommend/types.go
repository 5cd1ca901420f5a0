// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

package recommend

import (
	"time"

	"github.com/tomtom215/otakumatch/internal/taste"
)

// ScoredItem is a catalog item annotated with its match against the
// taste profile.
type ScoredItem struct {
	taste.Item

	// MatchScore is the rounded profile match. Higher is better.
	MatchScore int `json:"matchScore"`

	// LengthCategory is the item's length bucket.
	LengthCategory taste.LengthBucket `json:"lengthCategory"`
}

// Source identifies where a candidate pool came from.
type Source string

const (
	// SourceTop is the catalog's top-ranked titles.
	SourceTop Source = "top"

	// SourceSearch is a free-text catalog search.
	SourceSearch Source = "search"
)

// Request is a recommendation request.
type Request struct {
	// Query narrows the candidate pool to a catalog search. Empty uses the
	// top titles.
	Query string

	// Limit caps the number of results. Zero uses the configured default.
	Limit int
}

// Response is the outcome of a recommendation request.
type Response struct {
	// Items are the ranked recommendations, best first.
	Items []ScoredItem `json:"items"`

	// Source is the candidate pool that was scored.
	Source Source `json:"source"`

	// Query echoes the search query, if any.
	Query string `json:"query,omitempty"`

	// Candidates is the size of the pool before exclusion.
	Candidates int `json:"candidates"`

	// Excluded is the number of candidates dropped because they are already
	// on a profile list.
	Excluded int `json:"excluded"`

	// GeneratedAt is when the ranking was computed.
	GeneratedAt time.Time `json:"generatedAt"`
}
