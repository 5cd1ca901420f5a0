// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

// Package recommend ranks catalog titles against a taste profile.
//
// Scoring is a pure function of the candidates and a snapshot of the
// profile weights: each genre on a candidate contributes its accumulated
// weight, and a known length bucket contributes its weight times
// LengthMultiplier. Totals are rounded half away from zero and sorted
// descending with a stable sort, so equal scores keep catalog order.
// Exclusion of already-recorded titles is a separate step (Exclude).
package recommend

import (
	"math"
	"slices"
	"sort"

	"github.com/tomtom215/otakumatch/internal/taste"
)

// LengthMultiplier amplifies the length-bucket weight relative to genre weights.
const LengthMultiplier = 1.5

// Score ranks candidates against the given weights. Inputs are not modified.
func Score(candidates []taste.Item, genreWeights map[string]int, lengthWeights taste.LengthWeights) []ScoredItem {
	scored := Annotate(candidates, genreWeights, lengthWeights)
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].MatchScore > scored[j].MatchScore
	})
	return scored
}

// Annotate computes the match score of every candidate but keeps input order.
func Annotate(candidates []taste.Item, genreWeights map[string]int, lengthWeights taste.LengthWeights) []ScoredItem {
	out := make([]ScoredItem, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, scoreItem(c, genreWeights, lengthWeights))
	}
	return out
}

func scoreItem(item taste.Item, genreWeights map[string]int, lengthWeights taste.LengthWeights) ScoredItem {
	var total float64
	for _, g := range item.Genres {
		if w := genreWeights[g]; w != 0 {
			total += float64(w)
		}
	}

	bucket := taste.Classify(item.Episodes)
	if bucket != taste.LengthUnknown {
		if w := lengthWeights.Get(bucket); w != 0 {
			total += float64(w) * LengthMultiplier
		}
	}

	item.Genres = slices.Clone(item.Genres)
	return ScoredItem{
		Item:           item,
		MatchScore:     int(math.Round(total)),
		LengthCategory: bucket,
	}
}

// Exclude drops items whose id is in excluded, preserving order.
func Exclude(items []ScoredItem, excluded map[int]struct{}) []ScoredItem {
	out := make([]ScoredItem, 0, len(items))
	for _, it := range items {
		if _, skip := excluded[it.ID]; skip {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Top returns at most n leading items.
func Top(items []ScoredItem, n int) []ScoredItem {
	if n < 0 || len(items) <= n {
		return items
	}
	return items[:n]
}
