// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

package catalog

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/otakumatch/internal/logging"
	"github.com/tomtom215/otakumatch/internal/metrics"
	"github.com/tomtom215/otakumatch/internal/taste"
)

// BreakerName labels the catalog circuit breaker in logs and metrics.
const BreakerName = "jikan-api"

// CircuitBreakerClient wraps a Client so that a failing or throttling
// upstream is short-circuited instead of stalling every request on the
// HTTP timeout.
//
// Configuration:
//   - Max 3 concurrent requests in half-open state
//   - 1 minute measurement window
//   - 2 minute timeout before attempting recovery
//   - Opens after 60% failure rate with minimum 10 requests
//
// A 404 is an answer, not a failure, and does not count toward tripping.
type CircuitBreakerClient struct {
	client Client
	cb     *gobreaker.CircuitBreaker[any]
	name   string
}

var _ Client = (*CircuitBreakerClient)(nil)

// NewCircuitBreakerClient wraps client with a circuit breaker.
func NewCircuitBreakerClient(client Client) *CircuitBreakerClient {
	return newCircuitBreakerClient(client, BreakerName, 2*time.Minute)
}

func newCircuitBreakerClient(client Client, name string, timeout time.Duration) *CircuitBreakerClient {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().
					Str("breaker", name).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("Opening circuit")
			}
			return shouldTrip
		},

		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("Circuit breaker state transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &CircuitBreakerClient{client: client, cb: cb, name: name}
}

// State returns the current breaker state as "closed", "half-open" or "open".
func (cbc *CircuitBreakerClient) State() string {
	return stateToString(cbc.cb.State())
}

// TopAnime fetches the top list with circuit breaker protection.
func (cbc *CircuitBreakerClient) TopAnime(ctx context.Context, limit int) ([]taste.Item, error) {
	return castItems(cbc.execute(func() (any, error) {
		return cbc.client.TopAnime(ctx, limit)
	}))
}

// Search runs a catalog search with circuit breaker protection.
func (cbc *CircuitBreakerClient) Search(ctx context.Context, query string, limit int) ([]taste.Item, error) {
	return castItems(cbc.execute(func() (any, error) {
		return cbc.client.Search(ctx, query, limit)
	}))
}

// Anime fetches a single title with circuit breaker protection.
func (cbc *CircuitBreakerClient) Anime(ctx context.Context, id int) (taste.Item, error) {
	result, err := cbc.execute(func() (any, error) {
		return cbc.client.Anime(ctx, id)
	})
	if err != nil {
		return taste.Item{}, err
	}
	item, ok := result.(taste.Item)
	if !ok {
		return taste.Item{}, errors.New("circuit breaker: unexpected result type")
	}
	return item, nil
}

func (cbc *CircuitBreakerClient) execute(fn func() (any, error)) (any, error) {
	result, err := cbc.cb.Execute(fn)
	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
			logging.Warn().Err(err).Str("breaker", cbc.name).Msg("Catalog request rejected")
		case errors.Is(err, ErrNotFound):
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
		default:
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
			counts := cbc.cb.Counts()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(float64(counts.ConsecutiveFailures))
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(0)
	return result, nil
}

func castItems(result any, err error) ([]taste.Item, error) {
	if err != nil {
		return nil, err
	}
	items, ok := result.([]taste.Item)
	if !ok {
		return nil, errors.New("circuit breaker: unexpected result type")
	}
	return items, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
