// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

// Package models holds the HTTP wire types shared by the API handlers and
// the CLI's remote mode.
package models

import (
	"sort"
	"time"

	"github.com/tomtom215/otakumatch/internal/recommend"
	"github.com/tomtom215/otakumatch/internal/taste"
)

// APIResponse is the envelope of every API response.
//
// Success:
//
//	{"status":"success","data":{...},"metadata":{"timestamp":"2026-01-02T03:04:05Z","query_time_ms":12}}
//
// Error:
//
//	{"status":"error","error":{"code":"VALIDATION_ERROR","message":"id must be greater than 0"},"metadata":{...}}
type APIResponse struct {
	Status   string    `json:"status"`
	Data     any       `json:"data"`
	Metadata Metadata  `json:"metadata"`
	Error    *APIError `json:"error,omitempty"`
}

// Metadata carries response timing.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

// APIError is a machine-readable error code with a human message.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error codes.
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeBadRequest  = "BAD_REQUEST"
	CodeNotFound    = "NOT_FOUND"
	CodeStorage     = "STORAGE_ERROR"
	CodeNotReady    = "NOT_READY"
	CodeRateLimited = "RATE_LIMITED"
	CodeInternal    = "INTERNAL_ERROR"
)

// ActionRequest is the body of POST /profile/watched and /profile/want.
// Only ID is required; when Title and Genres are both empty the server
// resolves the full title from the catalog. Genres decode leniently and
// unusable entries are skipped rather than rejected.
type ActionRequest struct {
	ID       int             `json:"id" validate:"gt=0"`
	Title    string          `json:"title" validate:"omitempty,nonblank,max=512"`
	Genres   taste.GenreList `json:"genres" validate:"omitempty,max=64"`
	Episodes int             `json:"episodes" validate:"gte=0"`
	URL      string          `json:"url" validate:"omitempty,url"`
	ImageURL string          `json:"imageUrl" validate:"omitempty,url"`
}

// NeedsLookup reports whether the request carries only an id.
func (r *ActionRequest) NeedsLookup() bool {
	return r.Title == "" && len(r.Genres) == 0
}

// Item converts the request to a catalog item.
func (r *ActionRequest) Item() taste.Item {
	return taste.Item{
		ID:       r.ID,
		Title:    r.Title,
		Genres:   append(taste.GenreList(nil), r.Genres...),
		Episodes: r.Episodes,
		URL:      r.URL,
		ImageURL: r.ImageURL,
	}
}

// ActionResponse reports whether an action changed the profile.
type ActionResponse struct {
	Applied bool        `json:"applied"`
	Item    taste.Item  `json:"item"`
	Profile ProfileView `json:"profile"`
}

// ProfileView is the API view of a taste profile.
type ProfileView struct {
	WatchedIDs    []int               `json:"watchedIds"`
	WantIDs       []int               `json:"wantIds"`
	GenreWeights  map[string]int      `json:"genreWeights"`
	LengthWeights taste.LengthWeights `json:"lengthWeights"`
	TopGenres     []GenreWeight       `json:"topGenres"`
}

// NewProfileView builds the API view of p. TopGenres is ordered by weight,
// then name.
func NewProfileView(p taste.Profile) ProfileView {
	view := ProfileView{
		WatchedIDs:    append([]int{}, p.WatchedIDs...),
		WantIDs:       append([]int{}, p.WantIDs...),
		GenreWeights:  make(map[string]int, len(p.GenreWeight)),
		LengthWeights: p.LengthWeight,
		TopGenres:     make([]GenreWeight, 0, len(p.GenreWeight)),
	}
	for g, w := range p.GenreWeight {
		view.GenreWeights[g] = w
		view.TopGenres = append(view.TopGenres, GenreWeight{Genre: g, Weight: w})
	}
	sort.Slice(view.TopGenres, func(i, j int) bool {
		a, b := view.TopGenres[i], view.TopGenres[j]
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		return a.Genre < b.Genre
	})
	return view
}

// GenreWeight is one entry of the ranked genre list.
type GenreWeight struct {
	Genre  string `json:"genre"`
	Weight int    `json:"weight"`
}

// RecommendationsResponse is the body of GET /recommendations.
type RecommendationsResponse struct {
	Items      []recommend.ScoredItem `json:"items"`
	Source     recommend.Source       `json:"source"`
	Query      string                 `json:"query,omitempty"`
	Candidates int                    `json:"candidates"`
	Excluded   int                    `json:"excluded"`
}

// SearchResponse is the body of GET /search.
type SearchResponse struct {
	Items []recommend.ScoredItem `json:"items"`
	Query string                 `json:"query"`
}

// HealthResponse is the body of the health endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
	Storage string `json:"storage,omitempty"`
	Catalog string `json:"catalog,omitempty"`
}
