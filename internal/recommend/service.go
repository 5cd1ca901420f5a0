// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/otakumatch/internal/logging"
	"github.com/tomtom215/otakumatch/internal/metrics"
	"github.com/tomtom215/otakumatch/internal/taste"
)

// CandidateSource supplies candidate pools. Implementations report failures
// as empty slices; the service cannot tell "no results" from "fetch failed".
type CandidateSource interface {
	TopAnime(ctx context.Context, limit int) []taste.Item
	Search(ctx context.Context, query string, limit int) []taste.Item
}

// ProfileSource exposes read-only snapshots of the taste profile.
type ProfileSource interface {
	Snapshot() taste.Profile
}

// Service fetches a candidate pool, scores it against the current profile,
// drops already-recorded titles and truncates the ranking.
// It is safe for concurrent use.
type Service struct {
	catalog CandidateSource
	profile ProfileSource
	config  Config
	logger  zerolog.Logger
	now     func() time.Time
}

// NewService creates a recommendation service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewService(catalog CandidateSource, profile ProfileSource, cfg Config, logger zerolog.Logger) (*Service, error) {
	if catalog == nil || profile == nil {
		return nil, errors.New("recommend service requires a catalog and a profile")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		catalog: catalog,
		profile: profile,
		config:  cfg,
		logger:  logger.With().Str("component", "recommend").Logger(),
		now:     time.Now,
	}, nil
}

// Recommend returns the best-matching titles the user has not recorded yet.
// An empty or failed catalog fetch yields an empty response, never an error.
func (s *Service) Recommend(ctx context.Context, req Request) *Response {
	start := s.now()
	query := strings.TrimSpace(req.Query)
	limit := s.config.clampLimit(req.Limit)

	source := SourceTop
	var pool []taste.Item
	if query != "" {
		source = SourceSearch
		pool = s.catalog.Search(ctx, query, s.config.PoolSize)
	} else {
		pool = s.catalog.TopAnime(ctx, s.config.PoolSize)
	}

	profile := s.profile.Snapshot()
	ranked := Score(pool, profile.GenreWeight, profile.LengthWeight)
	kept := Exclude(ranked, profile.ExcludedIDs())
	items := Top(kept, limit)

	resp := &Response{
		Items:       items,
		Source:      source,
		Query:       query,
		Candidates:  len(pool),
		Excluded:    len(ranked) - len(kept),
		GeneratedAt: s.now().UTC(),
	}

	elapsed := s.now().Sub(start)
	metrics.RecordRecommendation(string(source), resp.Candidates, resp.Excluded, len(items), elapsed)

	event := s.log(ctx).Debug()
	if len(items) == 0 {
		event = s.log(ctx).Info()
	}
	event.
		Str("source", string(source)).
		Str("query", query).
		Int("candidates", resp.Candidates).
		Int("excluded", resp.Excluded).
		Int("returned", len(items)).
		Dur("duration", elapsed).
		Msg("Recommendations computed")

	return resp
}

// Search returns catalog search results in catalog order, annotated with
// match scores and length categories. Recorded titles are not filtered.
func (s *Service) Search(ctx context.Context, query string, limit int) []ScoredItem {
	query = strings.TrimSpace(query)
	if query == "" {
		return []ScoredItem{}
	}
	if limit <= 0 {
		limit = s.config.SearchLimit
	}
	if limit > s.config.MaxLimit {
		limit = s.config.MaxLimit
	}

	items := s.catalog.Search(ctx, query, limit)
	profile := s.profile.Snapshot()
	return Annotate(items, profile.GenreWeight, profile.LengthWeight)
}

func (s *Service) log(ctx context.Context) *zerolog.Logger {
	c := s.logger.With()
	if id := logging.RequestIDFromContext(ctx); id != "" {
		c = c.Str("request_id", id)
	}
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		c = c.Str("correlation_id", id)
	}
	l := c.Logger()
	return &l
}
