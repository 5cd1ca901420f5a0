// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

// Package events carries profile changes over an in-process Watermill
// pub/sub so that consumers (the audit trail, future sync targets) stay
// decoupled from the taste store.
//
// Flow:
//
//	taste.Store --Observer--> Publisher --"profile.events"--> AuditLog
package events

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/otakumatch/internal/logging"
	"github.com/tomtom215/otakumatch/internal/taste"
)

// TopicProfile is the topic every profile change is published on.
const TopicProfile = "profile.events"

// Metadata keys set on every message.
const (
	MetadataCorrelationID = "correlation_id"
	MetadataAction        = "action"
)

// ProfileEvent is the wire form of a taste.Change.
type ProfileEvent struct {
	EventID       string       `json:"eventId"`
	Action        taste.Action `json:"action"`
	AnimeID       int          `json:"animeId,omitempty"`
	Title         string       `json:"title,omitempty"`
	Genres        []string     `json:"genres,omitempty"`
	Episodes      int          `json:"episodes,omitempty"`
	Weight        int          `json:"weight,omitempty"`
	WatchedCount  int          `json:"watchedCount"`
	WantCount     int          `json:"wantCount"`
	CorrelationID string       `json:"correlationId,omitempty"`
	OccurredAt    time.Time    `json:"occurredAt"`
}

// NewProfileEvent converts a store change into an event.
func NewProfileEvent(change *taste.Change, correlationID string) ProfileEvent {
	ev := ProfileEvent{
		EventID:       watermill.NewUUID(),
		Action:        change.Action,
		Weight:        change.Weight,
		WatchedCount:  len(change.Profile.WatchedIDs),
		WantCount:     len(change.Profile.WantIDs),
		CorrelationID: correlationID,
		OccurredAt:    change.At.UTC(),
	}
	if change.Item != nil {
		ev.AnimeID = change.Item.ID
		ev.Title = change.Item.Title
		ev.Genres = append([]string(nil), change.Item.Genres...)
		ev.Episodes = change.Item.Episodes
	}
	return ev
}

// Marshal encodes the event as JSON.
func (e *ProfileEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalProfileEvent decodes an event payload.
func UnmarshalProfileEvent(data []byte) (ProfileEvent, error) {
	var e ProfileEvent
	err := json.Unmarshal(data, &e)
	return e, err
}

// NewLogger returns a Watermill logger adapter that writes through the
// process zerolog logger.
func NewLogger() watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logging.NewSlogLogger())
}

// NewPubSub creates the in-process pub/sub. Publish returns once every
// subscriber has acked, so subscribers see changes in the order they were
// applied. Messages published with no subscriber are dropped.
func NewPubSub(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	if logger == nil {
		logger = NewLogger()
	}
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            64,
		BlockPublishUntilSubscriberAck: true,
	}, logger)
}
