// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/otakumatch/internal/models"
	"github.com/tomtom215/otakumatch/internal/recommend"
)

// maxQueryLen bounds the free-text query forwarded to the catalog.
const maxQueryLen = 200

// Recommendations ranks the top titles, or search results for q, against
// the taste profile and returns the best matches not yet recorded.
//
// Query parameters:
//   - q: optional search query
//   - limit: number of results (default and cap from config)
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !h.requireLoaded(w, r) {
		return
	}

	query, ok := queryParam(w, r)
	if !ok {
		return
	}
	limit, err := getIntParam(r, "limit", 0)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, models.CodeValidation, err.Error(), nil)
		return
	}

	resp := h.recommend.Recommend(r.Context(), recommend.Request{Query: query, Limit: limit})
	respondSuccess(w, r, http.StatusOK, models.RecommendationsResponse{
		Items:      resp.Items,
		Source:     resp.Source,
		Query:      resp.Query,
		Candidates: resp.Candidates,
		Excluded:   resp.Excluded,
	}, start)
}

// Search returns catalog results for q in catalog order, annotated with
// match scores. Recorded titles are included.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	query, ok := queryParam(w, r)
	if !ok {
		return
	}
	if query == "" {
		respondError(w, r, http.StatusBadRequest, models.CodeValidation, "q is required", nil)
		return
	}
	limit, err := getIntParam(r, "limit", 0)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, models.CodeValidation, err.Error(), nil)
		return
	}

	items := h.recommend.Search(r.Context(), query, limit)
	respondSuccess(w, r, http.StatusOK, models.SearchResponse{Items: items, Query: query}, start)
}

func queryParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(q) > maxQueryLen {
		respondError(w, r, http.StatusBadRequest, models.CodeValidation, "q is too long", nil)
		return "", false
	}
	return q, true
}
