// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

package storage

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/otakumatch/internal/logging"
)

// BadgerStore implements Backend on an embedded BadgerDB.
type BadgerStore struct {
	db       *badger.DB
	inMemory bool
	closed   atomic.Bool
}

// OpenBadger opens (or creates) a BadgerDB at path.
func OpenBadger(path string, syncWrites bool) (*BadgerStore, error) {
	if path == "" {
		return nil, errors.New("badger path is required")
	}

	opts := badger.DefaultOptions(path)
	opts.SyncWrites = syncWrites
	opts.Logger = newBadgerLogger()

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().Str("path", path).Bool("sync_writes", syncWrites).Msg("Profile store opened")
	return &BadgerStore{db: db}, nil
}

// OpenMemory opens a BadgerDB that lives entirely in memory.
func OpenMemory() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory BadgerDB: %w", err)
	}
	return &BadgerStore{db: db, inMemory: true}, nil
}

// Get returns the value stored under key.
func (s *BadgerStore) Get(_ context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Put stores value under key.
func (s *BadgerStore) Put(_ context.Context, key string, value []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(key), value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
		return nil
	})
}

// Delete removes key.
func (s *BadgerStore) Delete(_ context.Context, key string) error {
	if s.closed.Load() {
		return ErrClosed
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete %s: %w", key, err)
		}
		return nil
	})
}

// Close closes the database. Subsequent calls are no-ops.
func (s *BadgerStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

// RunGC reclaims value log space until BadgerDB reports nothing left to rewrite.
func (s *BadgerStore) RunGC(ratio float64) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if s.inMemory {
		return nil
	}

	for {
		err := s.db.RunValueLogGC(ratio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// GCService periodically runs value log GC on a BadgerStore. It implements
// suture.Service.
type GCService struct {
	store    *BadgerStore
	interval time.Duration
	ratio    float64
}

// NewGCService creates a GC service. A zero interval defaults to ten minutes.
func NewGCService(store *BadgerStore, interval time.Duration) *GCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &GCService{store: store, interval: interval, ratio: 0.5}
}

// Serve runs until ctx is canceled.
func (g *GCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := g.store.RunGC(g.ratio); err != nil {
				if errors.Is(err, ErrClosed) {
					return err
				}
				logging.Warn().Err(err).Msg("Profile store GC failed")
			}
		}
	}
}

// String returns the service name for supervisor logging.
func (g *GCService) String() string {
	return "badger-gc"
}

// badgerLogger routes BadgerDB's internal logging through zerolog at the
// level BadgerDB asked for.
type badgerLogger struct{}

func newBadgerLogger() badger.Logger { return badgerLogger{} }

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logging.Error().Str("component", "badger").Msgf(trimNewline(format), args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logging.Warn().Str("component", "badger").Msgf(trimNewline(format), args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logging.Debug().Str("component", "badger").Msgf(trimNewline(format), args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logging.Debug().Str("component", "badger").Msgf(trimNewline(format), args...)
}

func trimNewline(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		return s[:n-1]
	}
	return s
}
