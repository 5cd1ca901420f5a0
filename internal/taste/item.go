// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

package taste

import (
	"strings"

	"github.com/goccy/go-json"
)

// Item is a single catalog title as seen by the taste profile and the
// recommender.
type Item struct {
	// ID is the MyAnimeList id. Unique and stable across requests.
	ID int `json:"id"`

	// Title is the display title.
	Title string `json:"title"`

	// Genres is the ordered list of genre names. May be empty.
	Genres GenreList `json:"genres"`

	// Episodes is the episode count. Zero means unknown or still airing.
	Episodes int `json:"episodes"`

	// URL links to the title's catalog page.
	URL string `json:"url,omitempty"`

	// ImageURL is the poster image.
	ImageURL string `json:"imageUrl,omitempty"`

	// Score is the community rating (0-10). Carried for display only.
	Score float64 `json:"score,omitempty"`
}

// GenreList is a list of genre names that decodes leniently. It accepts
// null, an array of strings, or an array of {"name": "..."} objects, and
// drops entries without a usable name. Any other JSON shape decodes to an
// empty list instead of failing the enclosing item.
type GenreList []string

// UnmarshalJSON implements json.Unmarshaler.
func (g *GenreList) UnmarshalJSON(data []byte) error {
	*g = nil

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil //nolint:nilerr // malformed genre data is skipped, never fatal
	}

	out := make(GenreList, 0, len(raw))
	for _, r := range raw {
		var name string
		if err := json.Unmarshal(r, &name); err == nil {
			if strings.TrimSpace(name) != "" {
				out = append(out, name)
			}
			continue
		}

		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(r, &obj); err == nil && strings.TrimSpace(obj.Name) != "" {
			out = append(out, obj.Name)
		}
	}

	if len(out) > 0 {
		*g = out
	}
	return nil
}

// LengthBucket is the coarse length class of a title.
type LengthBucket string

const (
	LengthUnknown LengthBucket = "unknown"
	LengthShort   LengthBucket = "short"
	LengthMedium  LengthBucket = "medium"
	LengthLong    LengthBucket = "long"
)

// Bucket boundaries (inclusive upper bounds).
const (
	shortMaxEpisodes  = 13
	mediumMaxEpisodes = 26
)

// Classify maps an episode count to its length bucket. Counts of zero or
// less are unknown and never carry length weight.
func Classify(episodes int) LengthBucket {
	switch {
	case episodes <= 0:
		return LengthUnknown
	case episodes <= shortMaxEpisodes:
		return LengthShort
	case episodes <= mediumMaxEpisodes:
		return LengthMedium
	default:
		return LengthLong
	}
}
