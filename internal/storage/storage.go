// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

// Package storage provides the key/value backends that hold the persisted
// taste profile. The profile is a single opaque record, so backends only
// need whole-value get, put and delete.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key has never been written or was deleted.
var ErrNotFound = errors.New("storage: key not found")

// ErrClosed is returned when a backend is used after Close.
var ErrClosed = errors.New("storage: backend closed")

// Backend is a minimal key/value store.
type Backend interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend's resources.
	Close() error
}

// Type selects a backend implementation.
type Type string

const (
	// TypeBadger stores records in an embedded BadgerDB directory (default).
	TypeBadger Type = "badger"

	// TypeRedis stores records in a Redis server.
	TypeRedis Type = "redis"

	// TypeMemory keeps records in an in-memory BadgerDB; nothing survives a restart.
	TypeMemory Type = "memory"
)

// Config selects and configures a backend.
type Config struct {
	Type Type

	// Path is the BadgerDB directory for TypeBadger.
	Path string

	// SyncWrites fsyncs every BadgerDB write.
	SyncWrites bool

	// RedisAddr, RedisPassword and RedisDB configure TypeRedis.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// KeyPrefix namespaces every key written to a shared Redis database.
	KeyPrefix string
}

// Open creates the backend described by cfg.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Type {
	case TypeBadger, "":
		return OpenBadger(cfg.Path, cfg.SyncWrites)
	case TypeMemory:
		return OpenMemory()
	case TypeRedis:
		return OpenRedis(ctx, RedisOptions{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.KeyPrefix,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Type)
	}
}
