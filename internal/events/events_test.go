// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/otakumatch/internal/logging"
	"github.com/tomtom215/otakumatch/internal/metrics"
	"github.com/tomtom215/otakumatch/internal/storage"
	"github.com/tomtom215/otakumatch/internal/taste"
)

func watchedChange(id int) taste.Change {
	p := taste.NewProfile()
	p.WatchedIDs = []int{id}
	return taste.Change{
		Action:  taste.ActionWatched,
		Item:    &taste.Item{ID: id, Title: "Cowboy Bebop", Genres: taste.GenreList{"Action", "Sci-Fi"}, Episodes: 26},
		Weight:  5,
		Profile: p,
		At:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestNewProfileEvent(t *testing.T) {
	change := watchedChange(1)
	ev := NewProfileEvent(&change, "abc12345")

	if ev.EventID == "" {
		t.Error("EventID is empty")
	}
	if ev.Action != taste.ActionWatched || ev.AnimeID != 1 || ev.Weight != 5 {
		t.Errorf("event = %+v", ev)
	}
	if ev.WatchedCount != 1 || ev.WantCount != 0 {
		t.Errorf("counts = %d/%d, want 1/0", ev.WatchedCount, ev.WantCount)
	}
	if ev.CorrelationID != "abc12345" {
		t.Errorf("CorrelationID = %q", ev.CorrelationID)
	}

	change.Item.Genres[0] = "Mutated"
	if ev.Genres[0] != "Action" {
		t.Error("event shares genre slice with the change")
	}

	reset := taste.Change{Action: taste.ActionReset, Profile: taste.NewProfile()}
	if ev := NewProfileEvent(&reset, ""); ev.AnimeID != 0 || ev.Title != "" {
		t.Errorf("reset event carries item fields: %+v", ev)
	}
}

func TestProfileEventRoundTrip(t *testing.T) {
	change := watchedChange(42)
	ev := NewProfileEvent(&change, "")
	data, err := ev.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	got, err := UnmarshalProfileEvent(data)
	if err != nil {
		t.Fatalf("UnmarshalProfileEvent() error = %v", err)
	}
	if got.EventID != ev.EventID || got.AnimeID != 42 || !got.OccurredAt.Equal(ev.OccurredAt) {
		t.Errorf("round trip = %+v, want %+v", got, ev)
	}

	if _, err := UnmarshalProfileEvent([]byte("{not json")); err == nil {
		t.Error("expected error for malformed payload")
	}
}

// recordingPublisher captures published messages.
type recordingPublisher struct {
	msgs []*message.Message
	err  error
}

func (r *recordingPublisher) Publish(_ string, msgs ...*message.Message) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msgs...)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func TestPublisherSetsMetadata(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewPublisher(rec)

	ctx := logging.ContextWithCorrelationID(context.Background(), "corr0001")
	change := watchedChange(7)
	if err := p.Publish(ctx, &change); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if len(rec.msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(rec.msgs))
	}
	msg := rec.msgs[0]
	if got := msg.Metadata.Get(MetadataAction); got != "watched" {
		t.Errorf("action metadata = %q", got)
	}
	if got := msg.Metadata.Get(MetadataCorrelationID); got != "corr0001" {
		t.Errorf("correlation metadata = %q", got)
	}
	ev, err := UnmarshalProfileEvent(msg.Payload)
	if err != nil || ev.EventID != msg.UUID {
		t.Errorf("payload event = %+v, err = %v, uuid = %s", ev, err, msg.UUID)
	}
}

func TestPublisherErrors(t *testing.T) {
	rec := &recordingPublisher{err: errors.New("bus down")}
	p := NewPublisher(rec)
	change := watchedChange(1)

	before := testutil.ToFloat64(metrics.EventsPublished.WithLabelValues("watched", "error"))
	if err := p.Publish(context.Background(), &change); err == nil {
		t.Error("expected publish error")
	}
	if got := testutil.ToFloat64(metrics.EventsPublished.WithLabelValues("watched", "error")); got-before != 1 {
		t.Errorf("error count delta = %v, want 1", got-before)
	}

	// observer path swallows the error
	p.ProfileChanged(context.Background(), change)

	p.Close()
	if err := p.Publish(context.Background(), &change); !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("err = %v, want ErrPublisherClosed", err)
	}
}

func TestAuditLogReceivesStoreChanges(t *testing.T) {
	pubsub := NewPubSub(nil)
	defer func() { _ = pubsub.Close() }()

	audit := NewAuditLog(pubsub, 2)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- audit.Serve(ctx) }()

	select {
	case <-audit.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("audit subscriber not ready")
	}

	backend, err := storage.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	defer func() { _ = backend.Close() }()

	store, err := taste.NewStore(backend, taste.DefaultConfig(), taste.WithObserver(NewPublisher(pubsub)))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if err := store.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	for _, id := range []int{1, 2, 3} {
		if _, err := store.RecordWatched(ctx, taste.Item{ID: id, Title: "t", Genres: taste.GenreList{"Action"}}); err != nil {
			t.Fatalf("RecordWatched(%d) error = %v", id, err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	var recent []ProfileEvent
	for time.Now().Before(deadline) {
		recent = audit.Recent(0)
		if len(recent) == 2 && recent[0].AnimeID == 3 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if len(recent) != 2 {
		t.Fatalf("Recent() = %d events, want 2 (capacity)", len(recent))
	}
	if recent[0].AnimeID != 3 || recent[1].AnimeID != 2 {
		t.Errorf("Recent() order = %d,%d want 3,2", recent[0].AnimeID, recent[1].AnimeID)
	}
	if got := audit.Recent(1); len(got) != 1 || got[0].AnimeID != 3 {
		t.Errorf("Recent(1) = %+v", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
