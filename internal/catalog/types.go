// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

package catalog

import (
	"github.com/goccy/go-json"

	"github.com/tomtom215/otakumatch/internal/taste"
)

// jikanEnvelope wraps every Jikan v4 response body.
type jikanEnvelope[T any] struct {
	Data T `json:"data"`
}

// jikanAnime is the subset of the Jikan anime resource we consume.
type jikanAnime struct {
	MalID    int             `json:"mal_id"`
	URL      string          `json:"url"`
	Title    string          `json:"title"`
	Episodes *int            `json:"episodes"`
	Score    *float64        `json:"score"`
	Images   jikanImages     `json:"images"`
	Genres   taste.GenreList `json:"genres"`
}

type jikanImages struct {
	JPG struct {
		ImageURL      string `json:"image_url"`
		LargeImageURL string `json:"large_image_url"`
	} `json:"jpg"`
}

// toItem converts a Jikan resource into a catalog item. Null episode counts
// (airing titles) map to 0, which classifies as unknown length.
func (a *jikanAnime) toItem() taste.Item {
	item := taste.Item{
		ID:       a.MalID,
		Title:    a.Title,
		Genres:   a.Genres,
		URL:      a.URL,
		ImageURL: a.Images.JPG.ImageURL,
	}
	if item.ImageURL == "" {
		item.ImageURL = a.Images.JPG.LargeImageURL
	}
	if a.Episodes != nil && *a.Episodes > 0 {
		item.Episodes = *a.Episodes
	}
	if a.Score != nil {
		item.Score = *a.Score
	}
	return item
}

// decodeList decodes a list response leniently: entries that fail to decode
// or carry no id are skipped instead of failing the whole page.
func decodeList(body []byte) ([]taste.Item, error) {
	var env jikanEnvelope[[]json.RawMessage]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}

	items := make([]taste.Item, 0, len(env.Data))
	for _, raw := range env.Data {
		var a jikanAnime
		if err := json.Unmarshal(raw, &a); err != nil {
			continue
		}
		if a.MalID <= 0 {
			continue
		}
		items = append(items, a.toItem())
	}
	return items, nil
}
