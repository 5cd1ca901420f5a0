// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

// Package config loads OtakuMatch configuration.
//
// Loading order (later layers win):
//  1. Defaults: built-in values from defaultConfig
//  2. Config file: optional YAML (CONFIG_PATH, ./config.yaml, /etc/otakumatch/config.yaml)
//  3. Environment variables: an explicit allow-list, see envTransformFunc
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	addr := cfg.Server.Addr()
//
// Config is immutable after Load and safe for concurrent reads.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Profile   ProfileConfig   `koanf:"profile"`
	Recommend RecommendConfig `koanf:"recommend"`
	Events    EventsConfig    `koanf:"events"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// Addr returns host:port for net.Listen.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// StorageConfig selects and configures the profile backend.
type StorageConfig struct {
	// Backend is badger (embedded, default), redis or memory.
	Backend    string        `koanf:"backend" validate:"oneof=badger redis memory"`
	Path       string        `koanf:"path"`
	SyncWrites bool          `koanf:"sync_writes"`
	GCInterval time.Duration `koanf:"gc_interval" validate:"gte=0"`

	// Key is the record key the profile is stored under.
	Key string `koanf:"key" validate:"nonblank"`

	RedisAddr      string `koanf:"redis_addr"`
	RedisPassword  string `koanf:"redis_password"`
	RedisDB        int    `koanf:"redis_db" validate:"gte=0"`
	RedisKeyPrefix string `koanf:"redis_key_prefix"`
}

// CatalogConfig configures the Jikan client.
type CatalogConfig struct {
	BaseURL         string        `koanf:"base_url" validate:"url"`
	Timeout         time.Duration `koanf:"timeout" validate:"gt=0"`
	RequestInterval time.Duration `koanf:"request_interval" validate:"gte=0"`
	CacheTTL        time.Duration `koanf:"cache_ttl" validate:"gte=0"`
	CacheSize       int           `koanf:"cache_size" validate:"gte=0"`
	CircuitBreaker  bool          `koanf:"circuit_breaker"`
}

// ProfileConfig holds the taste accumulation weights.
type ProfileConfig struct {
	WatchedWeight int `koanf:"watched_weight" validate:"gtfield=WantWeight"`
	WantWeight    int `koanf:"want_weight" validate:"gt=0"`
}

// RecommendConfig bounds recommendation requests.
type RecommendConfig struct {
	PoolSize     int `koanf:"pool_size" validate:"gte=1,lte=25"`
	DefaultLimit int `koanf:"default_limit" validate:"gte=1"`
	MaxLimit     int `koanf:"max_limit" validate:"gte=1"`
	SearchLimit  int `koanf:"search_limit" validate:"gte=1,lte=25"`
}

// EventsConfig configures the in-process profile event bus.
type EventsConfig struct {
	AuditCapacity int `koanf:"audit_capacity" validate:"gte=1"`
}

// SecurityConfig holds HTTP hardening settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gte=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3857,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Backend:        "badger",
			Path:           "/data/otakumatch",
			SyncWrites:     true,
			GCInterval:     10 * time.Minute,
			Key:            "otakumatch_user_profile",
			RedisAddr:      "localhost:6379",
			RedisKeyPrefix: "otakumatch:",
		},
		Catalog: CatalogConfig{
			BaseURL:         "https://api.jikan.moe/v4",
			Timeout:         30 * time.Second,
			RequestInterval: 600 * time.Millisecond,
			CacheTTL:        10 * time.Minute,
			CacheSize:       256,
			CircuitBreaker:  true,
		},
		Profile: ProfileConfig{
			WatchedWeight: 5,
			WantWeight:    2,
		},
		Recommend: RecommendConfig{
			PoolSize:     25,
			DefaultLimit: 10,
			MaxLimit:     25,
			SearchLimit:  12,
		},
		Events: EventsConfig{
			AuditCapacity: 100,
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Default returns the built-in configuration without consulting files or
// the environment.
func Default() *Config {
	return defaultConfig()
}

// String summarizes the effective configuration without secrets.
func (c *Config) String() string {
	return fmt.Sprintf("server=%s storage=%s catalog=%s weights=%d/%d",
		c.Server.Addr(), c.Storage.Backend, c.Catalog.BaseURL, c.Profile.WatchedWeight, c.Profile.WantWeight)
}
