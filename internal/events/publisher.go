// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/otakumatch/internal/logging"
	"github.com/tomtom215/otakumatch/internal/metrics"
	"github.com/tomtom215/otakumatch/internal/taste"
)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("publisher is closed")

// Publisher turns taste store changes into messages. It implements
// taste.Observer; publish failures are logged and counted but never
// propagate back into the store.
type Publisher struct {
	publisher message.Publisher
	topic     string

	mu     sync.RWMutex
	closed bool
}

var _ taste.Observer = (*Publisher)(nil)

// NewPublisher wraps a Watermill publisher.
func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{publisher: pub, topic: TopicProfile}
}

// ProfileChanged implements taste.Observer.
func (p *Publisher) ProfileChanged(ctx context.Context, change taste.Change) {
	if err := p.Publish(ctx, &change); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("action", string(change.Action)).Msg("Failed to publish profile event")
	}
}

// Publish sends one change on the profile topic.
func (p *Publisher) Publish(ctx context.Context, change *taste.Change) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	action := string(change.Action)
	if p.closed {
		metrics.EventsPublished.WithLabelValues(action, "closed").Inc()
		return ErrPublisherClosed
	}

	correlationID := logging.CorrelationIDFromContext(ctx)
	ev := NewProfileEvent(change, correlationID)
	payload, err := ev.Marshal()
	if err != nil {
		metrics.EventsPublished.WithLabelValues(action, "error").Inc()
		return fmt.Errorf("marshal profile event: %w", err)
	}

	msg := message.NewMessage(ev.EventID, payload)
	msg.Metadata.Set(MetadataAction, action)
	if correlationID != "" {
		msg.Metadata.Set(MetadataCorrelationID, correlationID)
	}

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		metrics.EventsPublished.WithLabelValues(action, "error").Inc()
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}

	metrics.EventsPublished.WithLabelValues(action, "success").Inc()
	return nil
}

// Close stops publishing. The underlying pub/sub is owned by the caller.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}
