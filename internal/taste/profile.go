// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

package taste

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// LengthWeights holds the accumulated weight for each known length bucket.
type LengthWeights struct {
	Short  int `json:"short"`
	Medium int `json:"medium"`
	Long   int `json:"long"`
}

// Get returns the weight for b. Unknown buckets always weigh zero.
func (w LengthWeights) Get(b LengthBucket) int {
	switch b {
	case LengthShort:
		return w.Short
	case LengthMedium:
		return w.Medium
	case LengthLong:
		return w.Long
	default:
		return 0
	}
}

func (w *LengthWeights) add(b LengthBucket, n int) {
	switch b {
	case LengthShort:
		w.Short += n
	case LengthMedium:
		w.Medium += n
	case LengthLong:
		w.Long += n
	}
}

// IsZero reports whether no length weight has been accumulated.
func (w LengthWeights) IsZero() bool {
	return w == LengthWeights{}
}

// Profile is the accumulated taste of the single user. It is only mutated
// through Store; callers receive copies.
type Profile struct {
	WatchedIDs   []int          `json:"watchedIds"`
	WantIDs      []int          `json:"wantIds"`
	GenreWeight  map[string]int `json:"genreWeight"`
	LengthWeight LengthWeights  `json:"lengthWeight"`
}

// NewProfile returns an empty profile with non-nil collections.
func NewProfile() Profile {
	return Profile{
		WatchedIDs:  []int{},
		WantIDs:     []int{},
		GenreWeight: map[string]int{},
	}
}

// Clone returns a deep copy of p.
func (p Profile) Clone() Profile {
	out := Profile{
		WatchedIDs:   append(make([]int, 0, len(p.WatchedIDs)), p.WatchedIDs...),
		WantIDs:      append(make([]int, 0, len(p.WantIDs)), p.WantIDs...),
		GenreWeight:  make(map[string]int, len(p.GenreWeight)),
		LengthWeight: p.LengthWeight,
	}
	for k, v := range p.GenreWeight {
		out.GenreWeight[k] = v
	}
	return out
}

// IsEmpty reports whether p carries no ids and no weights.
func (p Profile) IsEmpty() bool {
	return len(p.WatchedIDs) == 0 && len(p.WantIDs) == 0 &&
		len(p.GenreWeight) == 0 && p.LengthWeight.IsZero()
}

// ExcludedIDs returns the union of watched and want-to-watch ids.
func (p Profile) ExcludedIDs() map[int]struct{} {
	out := make(map[int]struct{}, len(p.WatchedIDs)+len(p.WantIDs))
	for _, id := range p.WatchedIDs {
		out[id] = struct{}{}
	}
	for _, id := range p.WantIDs {
		out[id] = struct{}{}
	}
	return out
}

// accumulate adds weight for every named genre and for the item's length
// bucket.
func (p *Profile) accumulate(item Item, weight int) {
	for _, g := range item.Genres {
		if strings.TrimSpace(g) == "" {
			continue
		}
		p.GenreWeight[g] += weight
	}
	p.LengthWeight.add(Classify(item.Episodes), weight)
}

// profileRecord is the persisted layout. The second field group holds the
// names used by profiles written before the rename; they are read, never
// written.
type profileRecord struct {
	WatchedIDs   []int          `json:"watchedIds"`
	WantIDs      []int          `json:"wantIds"`
	GenreWeight  map[string]int `json:"genreWeight"`
	LengthWeight *LengthWeights `json:"lengthWeight"`

	Watched           []int          `json:"watched"`
	WantToWatch       []int          `json:"wantToWatch"`
	GenrePreferences  map[string]int `json:"genrePreferences"`
	LengthPreferences *LengthWeights `json:"lengthPreferences"`
}

// EncodeProfile serializes p into the persisted layout.
func EncodeProfile(p Profile) ([]byte, error) {
	p = p.Clone()
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	return data, nil
}

// DecodeProfile parses a persisted record. A record without lengthWeight
// decodes with zero length weights. Legacy field names are migrated. Id lists
// are de-duplicated, keeping first occurrence order.
func DecodeProfile(data []byte) (Profile, error) {
	var rec profileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}

	p := NewProfile()
	p.WatchedIDs = uniqueIDs(pick(rec.WatchedIDs, rec.Watched))
	p.WantIDs = uniqueIDs(pick(rec.WantIDs, rec.WantToWatch))

	genres := rec.GenreWeight
	if genres == nil {
		genres = rec.GenrePreferences
	}
	for k, v := range genres {
		p.GenreWeight[k] = v
	}

	switch {
	case rec.LengthWeight != nil:
		p.LengthWeight = *rec.LengthWeight
	case rec.LengthPreferences != nil:
		p.LengthWeight = *rec.LengthPreferences
	}

	return p, nil
}

func pick(current, legacy []int) []int {
	if current != nil {
		return current
	}
	return legacy
}

func uniqueIDs(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
