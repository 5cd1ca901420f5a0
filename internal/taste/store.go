// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

package taste

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/otakumatch/internal/logging"
	"github.com/tomtom215/otakumatch/internal/metrics"
	"github.com/tomtom215/otakumatch/internal/storage"
)

// ErrInvalidItem is returned when an action is issued for an item without a
// positive id.
var ErrInvalidItem = errors.New("item id must be positive")

// Store owns the user's taste profile. Mutations are serialized and each one
// is persisted before it becomes visible to readers.
type Store struct {
	mu       sync.RWMutex
	backend  storage.Backend
	cfg      Config
	profile  Profile
	loaded   bool
	observer Observer
	logger   zerolog.Logger
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithObserver registers an observer for applied changes.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// WithLogger overrides the store's logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a store over backend. The profile starts empty; call Load
// to read persisted state.
func NewStore(backend storage.Backend, cfg Config, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, errors.New("taste store requires a storage backend")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid taste config: %w", err)
	}

	s := &Store{
		backend: backend,
		cfg:     cfg,
		profile: NewProfile(),
		logger:  logging.WithComponent("taste"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Load reads the persisted profile. A missing record leaves the profile
// empty. A record that cannot be decoded is discarded: the store starts over
// with an empty profile, and the loss is logged, counted and published.
// Only backend read failures are returned.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.backend.Get(ctx, s.cfg.Key)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load profile: %w", err)
	}

	profile := NewProfile()
	corrupt := false
	if err == nil {
		decoded, decErr := DecodeProfile(data)
		if decErr != nil {
			corrupt = true
			l := s.log(ctx)
			l.Error().
				Err(decErr).
				Str("key", s.cfg.Key).
				Int("bytes", len(data)).
				Msg("Persisted taste profile is corrupt, starting with an empty profile")
			metrics.ProfileLoadFallbacks.Inc()
		} else {
			profile = decoded
		}
	}

	s.mu.Lock()
	s.profile = profile
	s.loaded = true
	snapshot := profile.Clone()
	s.mu.Unlock()

	updateTitleGauges(snapshot)
	l := s.log(ctx)
	l.Info().
		Int("watched", len(snapshot.WatchedIDs)).
		Int("want", len(snapshot.WantIDs)).
		Int("genres", len(snapshot.GenreWeight)).
		Msg("Taste profile loaded")

	if corrupt {
		s.notify(ctx, Change{Action: ActionCorruptReset, Profile: snapshot, At: s.now()})
	}
	return nil
}

// Loaded reports whether Load has completed.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// RecordWatched adds item to the watched list and credits its genres and
// length bucket with the watched weight. It returns false without changing
// anything when the id is already on the watched list.
func (s *Store) RecordWatched(ctx context.Context, item Item) (bool, error) {
	return s.record(ctx, ActionWatched, item)
}

// RecordWantToWatch adds item to the want-to-watch list and credits it with
// the want weight. It returns false when the id is already on that list.
func (s *Store) RecordWantToWatch(ctx context.Context, item Item) (bool, error) {
	return s.record(ctx, ActionWantToWatch, item)
}

func (s *Store) record(ctx context.Context, action Action, item Item) (bool, error) {
	if item.ID <= 0 {
		metrics.ProfileActions.WithLabelValues(string(action), "invalid").Inc()
		return false, ErrInvalidItem
	}

	weight := s.cfg.WatchedWeight
	if action == ActionWantToWatch {
		weight = s.cfg.WantWeight
	}

	applied, snapshot, err := s.apply(ctx, action, item, weight)
	log := s.log(ctx).With().
		Str("action", string(action)).
		Int("anime_id", item.ID).
		Str("title", item.Title).
		Logger()

	switch {
	case err != nil:
		metrics.ProfileActions.WithLabelValues(string(action), "error").Inc()
		log.Error().Err(err).Msg("Failed to persist taste profile")
		return false, err
	case !applied:
		metrics.ProfileActions.WithLabelValues(string(action), "duplicate").Inc()
		log.Debug().Msg("Title already recorded, ignoring")
		return false, nil
	}

	metrics.ProfileActions.WithLabelValues(string(action), "applied").Inc()
	updateTitleGauges(snapshot)
	log.Info().
		Int("weight", weight).
		Int("genres", len(item.Genres)).
		Str("length", string(Classify(item.Episodes))).
		Msg("Taste profile updated")

	recorded := item
	s.notify(ctx, Change{Action: action, Item: &recorded, Weight: weight, Profile: snapshot, At: s.now()})
	return true, nil
}

// apply performs the read-modify-persist sequence under the write lock.
// The live profile is replaced only after the save succeeds.
func (s *Store) apply(ctx context.Context, action Action, item Item, weight int) (bool, Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.profile.WatchedIDs
	if action == ActionWantToWatch {
		ids = s.profile.WantIDs
	}
	if slices.Contains(ids, item.ID) {
		return false, Profile{}, nil
	}

	next := s.profile.Clone()
	if action == ActionWantToWatch {
		next.WantIDs = append(next.WantIDs, item.ID)
	} else {
		next.WatchedIDs = append(next.WatchedIDs, item.ID)
	}
	next.accumulate(item, weight)

	if err := s.save(ctx, next); err != nil {
		return false, Profile{}, err
	}
	s.profile = next
	return true, next.Clone(), nil
}

func (s *Store) save(ctx context.Context, p Profile) error {
	data, err := EncodeProfile(p)
	if err != nil {
		return err
	}
	if err := s.backend.Put(ctx, s.cfg.Key, data); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// GenreWeights returns a copy of the accumulated genre weights.
func (s *Store) GenreWeights() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int, len(s.profile.GenreWeight))
	for k, v := range s.profile.GenreWeight {
		out[k] = v
	}
	return out
}

// LengthWeights returns the accumulated length weights.
func (s *Store) LengthWeights() LengthWeights {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile.LengthWeight
}

// ExcludedIDs returns the union of watched and want-to-watch ids.
func (s *Store) ExcludedIDs() map[int]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile.ExcludedIDs()
}

// Snapshot returns a deep copy of the whole profile.
func (s *Store) Snapshot() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile.Clone()
}

// Reset deletes the persisted profile and clears the in-memory one. If the
// delete fails the in-memory profile is left as it was.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	if err := s.backend.Delete(ctx, s.cfg.Key); err != nil {
		s.mu.Unlock()
		l := s.log(ctx)
		l.Error().Err(err).Msg("Failed to reset taste profile")
		return fmt.Errorf("reset profile: %w", err)
	}
	s.profile = NewProfile()
	s.mu.Unlock()

	metrics.ProfileResets.Inc()
	updateTitleGauges(NewProfile())
	l := s.log(ctx)
	l.Info().Msg("Taste profile reset")

	s.notify(ctx, Change{Action: ActionReset, Profile: NewProfile(), At: s.now()})
	return nil
}

// log returns the store logger with the request and correlation ids of ctx.
func (s *Store) log(ctx context.Context) zerolog.Logger {
	c := s.logger.With()
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		c = c.Str("correlation_id", id)
	}
	if id := logging.RequestIDFromContext(ctx); id != "" {
		c = c.Str("request_id", id)
	}
	return c.Logger()
}

func (s *Store) notify(ctx context.Context, change Change) {
	if s.observer == nil {
		return
	}
	s.observer.ProfileChanged(ctx, change)
}

func updateTitleGauges(p Profile) {
	metrics.ProfileTitles.WithLabelValues("watched").Set(float64(len(p.WatchedIDs)))
	metrics.ProfileTitles.WithLabelValues("want").Set(float64(len(p.WantIDs)))
}
