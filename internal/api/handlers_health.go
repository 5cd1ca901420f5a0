// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/otakumatch/internal/models"
)

// HealthLive reports that the process is serving HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, models.HealthResponse{
		Status:  "alive",
		Version: h.version,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
	}, time.Time{})
}

// HealthReady returns 200 once the taste profile has been loaded and 503
// before that. The catalog breaker state is informational; an open breaker
// degrades recommendations to empty results but does not make the service
// unready.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	loaded := h.profile.Loaded()

	resp := models.HealthResponse{
		Status:  "ready",
		Version: h.version,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
		Storage: "loaded",
		Catalog: h.titles.State(),
	}
	status := http.StatusOK
	if !loaded {
		resp.Status = "not_ready"
		resp.Storage = "loading"
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, &models.APIResponse{
		Status:   resp.Status,
		Data:     resp,
		Metadata: newMetadata(r, time.Time{}),
	})
}
