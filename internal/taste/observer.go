// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

package taste

import (
	"context"
	"time"
)

// Action names a profile change.
type Action string

const (
	ActionWatched     Action = "watched"
	ActionWantToWatch Action = "want_to_watch"
	ActionReset       Action = "reset"

	// ActionCorruptReset is emitted when a persisted profile could not be
	// decoded and the store started over with an empty profile.
	ActionCorruptReset Action = "corrupt_reset"
)

// Change describes one applied profile change.
type Change struct {
	Action Action

	// Item is the title the action was applied to. Nil for resets.
	Item *Item

	// Weight is the amount added to each genre and the length bucket.
	Weight int

	// Profile is the profile after the change.
	Profile Profile

	At time.Time
}

// Observer is notified after a change has been persisted. Notifications
// happen outside the store lock, in the order changes were applied by the
// calling goroutine.
type Observer interface {
	ProfileChanged(ctx context.Context, change Change)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, change Change)

// ProfileChanged calls f.
func (f ObserverFunc) ProfileChanged(ctx context.Context, change Change) {
	f(ctx, change)
}
