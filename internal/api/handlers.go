// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

package api

import (
	"context"
	"time"

	"github.com/tomtom215/otakumatch/internal/events"
	"github.com/tomtom215/otakumatch/internal/recommend"
	"github.com/tomtom215/otakumatch/internal/taste"
)

// ProfileStore is the subset of taste.Store the handlers use.
type ProfileStore interface {
	Loaded() bool
	Snapshot() taste.Profile
	RecordWatched(ctx context.Context, item taste.Item) (bool, error)
	RecordWantToWatch(ctx context.Context, item taste.Item) (bool, error)
	Reset(ctx context.Context) error
}

// Recommender produces rankings and annotated search results.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) *recommend.Response
	Search(ctx context.Context, query string, limit int) []recommend.ScoredItem
}

// TitleResolver looks up a single catalog title by id.
type TitleResolver interface {
	Anime(ctx context.Context, id int) (taste.Item, bool)
	State() string
}

// EventLog exposes recently published profile events.
type EventLog interface {
	Recent(limit int) []events.ProfileEvent
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_health.go: liveness and readiness
//   - handlers_profile.go: profile snapshot, actions, reset and event log
//   - handlers_recommend.go: recommendations and search
type Handler struct {
	profile   ProfileStore
	recommend Recommender
	titles    TitleResolver
	events    EventLog
	version   string
	startTime time.Time
}

// NewHandler creates a handler. events may be nil, in which case the event
// log endpoint returns an empty list.
func NewHandler(profile ProfileStore, rec Recommender, titles TitleResolver, log EventLog, version string) *Handler {
	return &Handler{
		profile:   profile,
		recommend: rec,
		titles:    titles,
		events:    log,
		version:   version,
		startTime: time.Now(),
	}
}
