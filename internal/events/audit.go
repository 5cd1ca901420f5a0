// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/otakumatch/internal/logging"
	"github.com/tomtom215/otakumatch/internal/metrics"
)

const auditSubscriberName = "audit"

// AuditLog subscribes to profile events, logs each one and keeps the most
// recent ones in memory for the API. It runs as a supervised service.
type AuditLog struct {
	subscriber message.Subscriber
	topic      string
	capacity   int
	logger     zerolog.Logger

	mu     sync.RWMutex
	recent []ProfileEvent
	next   int
	full   bool
	ready  chan struct{}
	once   sync.Once
}

// NewAuditLog creates an audit subscriber retaining up to capacity events.
func NewAuditLog(sub message.Subscriber, capacity int) *AuditLog {
	if capacity <= 0 {
		capacity = 100
	}
	return &AuditLog{
		subscriber: sub,
		topic:      TopicProfile,
		capacity:   capacity,
		logger:     logging.WithComponent("audit"),
		recent:     make([]ProfileEvent, capacity),
		ready:      make(chan struct{}),
	}
}

// Serve implements suture.Service. It returns when ctx is cancelled or the
// subscription channel closes.
func (a *AuditLog) Serve(ctx context.Context) error {
	msgs, err := a.subscriber.Subscribe(ctx, a.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", a.topic, err)
	}
	a.once.Do(func() { close(a.ready) })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			a.handle(msg)
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (a *AuditLog) String() string {
	return "profile-audit"
}

// Ready is closed once the subscription is established.
func (a *AuditLog) Ready() <-chan struct{} {
	return a.ready
}

func (a *AuditLog) handle(msg *message.Message) {
	defer msg.Ack()
	metrics.EventsConsumed.WithLabelValues(auditSubscriberName).Inc()

	ev, err := UnmarshalProfileEvent(msg.Payload)
	if err != nil {
		a.logger.Error().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping malformed profile event")
		return
	}

	a.logger.Info().
		Str("event_id", ev.EventID).
		Str("action", string(ev.Action)).
		Int("anime_id", ev.AnimeID).
		Str("title", ev.Title).
		Int("weight", ev.Weight).
		Str("correlation_id", ev.CorrelationID).
		Msg("Profile changed")

	a.mu.Lock()
	a.recent[a.next] = ev
	a.next = (a.next + 1) % a.capacity
	if a.next == 0 {
		a.full = true
	}
	a.mu.Unlock()
}

// Recent returns retained events, newest first.
func (a *AuditLog) Recent(limit int) []ProfileEvent {
	a.mu.RLock()
	defer a.mu.RUnlock()

	n := a.next
	if a.full {
		n = a.capacity
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]ProfileEvent, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (a.next - 1 - i + a.capacity) % a.capacity
		out = append(out, a.recent[idx])
	}
	return out
}
