// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/otakumatch/internal/events"
	"github.com/tomtom215/otakumatch/internal/models"
	"github.com/tomtom215/otakumatch/internal/taste"
)

// maxEventsLimit caps GET /profile/events.
const maxEventsLimit = 100

// GetProfile returns the current taste profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !h.requireLoaded(w, r) {
		return
	}
	respondSuccess(w, r, http.StatusOK, models.NewProfileView(h.profile.Snapshot()), start)
}

// RecordWatched marks a title as watched.
func (h *Handler) RecordWatched(w http.ResponseWriter, r *http.Request) {
	h.recordAction(w, r, taste.ActionWatched)
}

// RecordWantToWatch adds a title to the want-to-watch list.
func (h *Handler) RecordWantToWatch(w http.ResponseWriter, r *http.Request) {
	h.recordAction(w, r, taste.ActionWantToWatch)
}

func (h *Handler) recordAction(w http.ResponseWriter, r *http.Request, action taste.Action) {
	start := time.Now()
	if !h.requireLoaded(w, r) {
		return
	}

	var req models.ActionRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, models.CodeBadRequest, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	item := req.Item()
	if req.NeedsLookup() {
		resolved, ok := h.titles.Anime(r.Context(), req.ID)
		if !ok {
			respondError(w, r, http.StatusNotFound, models.CodeNotFound,
				fmt.Sprintf("anime %d could not be resolved from the catalog", req.ID), nil)
			return
		}
		item = resolved
	}

	var (
		applied bool
		err     error
	)
	if action == taste.ActionWantToWatch {
		applied, err = h.profile.RecordWantToWatch(r.Context(), item)
	} else {
		applied, err = h.profile.RecordWatched(r.Context(), item)
	}
	if err != nil {
		if errors.Is(err, taste.ErrInvalidItem) {
			respondError(w, r, http.StatusBadRequest, models.CodeValidation, err.Error(), nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError, models.CodeStorage, "Failed to save taste profile", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, models.ActionResponse{
		Applied: applied,
		Item:    item,
		Profile: models.NewProfileView(h.profile.Snapshot()),
	}, start)
}

// ResetProfile clears both lists and all weights.
func (h *Handler) ResetProfile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !h.requireLoaded(w, r) {
		return
	}
	if err := h.profile.Reset(r.Context()); err != nil {
		respondError(w, r, http.StatusInternalServerError, models.CodeStorage, "Failed to reset taste profile", err)
		return
	}
	respondSuccess(w, r, http.StatusOK, models.NewProfileView(h.profile.Snapshot()), start)
}

// ProfileEvents returns the most recent profile change events, newest first.
func (h *Handler) ProfileEvents(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	limit, err := getIntParam(r, "limit", 20)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, models.CodeValidation, err.Error(), nil)
		return
	}
	if limit == 0 || limit > maxEventsLimit {
		limit = maxEventsLimit
	}

	recent := []events.ProfileEvent{}
	if h.events != nil {
		recent = h.events.Recent(limit)
	}
	respondSuccess(w, r, http.StatusOK, recent, start)
}

// requireLoaded writes a 503 and returns false until the profile is loaded.
func (h *Handler) requireLoaded(w http.ResponseWriter, r *http.Request) bool {
	if h.profile.Loaded() {
		return true
	}
	respondError(w, r, http.StatusServiceUnavailable, models.CodeNotReady, "Taste profile is still loading", nil)
	return false
}
