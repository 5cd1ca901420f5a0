// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/otakumatch/internal/catalog"
	"github.com/tomtom215/otakumatch/internal/config"
	"github.com/tomtom215/otakumatch/internal/events"
	"github.com/tomtom215/otakumatch/internal/logging"
	"github.com/tomtom215/otakumatch/internal/recommend"
	"github.com/tomtom215/otakumatch/internal/storage"
	"github.com/tomtom215/otakumatch/internal/taste"
)

// app holds the wired components shared by the server and the one-shot
// commands.
type app struct {
	cfg         *config.Config
	backend     storage.Backend
	pubsub      *gochannel.GoChannel
	publisher   *events.Publisher
	store       *taste.Store
	catalog     *catalog.Fetcher
	recommender *recommend.Service
}

// newApp opens the profile backend and builds the catalog and
// recommendation services. Without events the profile is loaded here. With
// withEvents set, profile changes are published on an in-process event bus
// and the caller loads the profile once its subscribers are in place. The
// caller must Close the app.
func newApp(ctx context.Context, cfg *config.Config, withEvents bool) (*app, error) {
	backend, err := storage.Open(ctx, storageConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}

	a := &app{cfg: cfg, backend: backend}
	storeOpts := []taste.Option{taste.WithLogger(logging.WithComponent("taste"))}
	if withEvents {
		a.pubsub = events.NewPubSub(events.NewLogger())
		a.publisher = events.NewPublisher(a.pubsub)
		storeOpts = append(storeOpts, taste.WithObserver(a.publisher))
	}

	a.store, err = taste.NewStore(backend, tasteConfig(cfg), storeOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	if !withEvents {
		if err := a.store.Load(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.catalog = catalog.New(catalogConfig(cfg))
	a.recommender, err = recommend.NewService(a.catalog, a.store, recommendConfig(cfg), logging.Logger())
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// resolve returns the catalog entry for id.
func (a *app) resolve(ctx context.Context, id int) (taste.Item, error) {
	item, ok := a.catalog.Anime(ctx, id)
	if !ok {
		return taste.Item{}, fmt.Errorf("anime %d could not be resolved from the catalog", id)
	}
	return item, nil
}

// Close releases everything newApp opened, in reverse order.
func (a *app) Close() {
	if a.catalog != nil {
		a.catalog.Close()
	}
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.pubsub != nil {
		if err := a.pubsub.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing event bus")
		}
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil && !errors.Is(err, storage.ErrClosed) {
			logging.Error().Err(err).Msg("Error closing profile storage")
		}
	}
}

func storageConfig(cfg *config.Config) storage.Config {
	return storage.Config{
		Type:          storage.Type(cfg.Storage.Backend),
		Path:          cfg.Storage.Path,
		SyncWrites:    cfg.Storage.SyncWrites,
		RedisAddr:     cfg.Storage.RedisAddr,
		RedisPassword: cfg.Storage.RedisPassword,
		RedisDB:       cfg.Storage.RedisDB,
		KeyPrefix:     cfg.Storage.RedisKeyPrefix,
	}
}

func tasteConfig(cfg *config.Config) taste.Config {
	return taste.Config{
		WatchedWeight: cfg.Profile.WatchedWeight,
		WantWeight:    cfg.Profile.WantWeight,
		Key:           cfg.Storage.Key,
	}
}

func catalogConfig(cfg *config.Config) catalog.Config {
	return catalog.Config{
		BaseURL:         cfg.Catalog.BaseURL,
		Timeout:         cfg.Catalog.Timeout,
		RequestInterval: cfg.Catalog.RequestInterval,
		CacheTTL:        cfg.Catalog.CacheTTL,
		CacheSize:       cfg.Catalog.CacheSize,
		CircuitBreaker:  cfg.Catalog.CircuitBreaker,
	}
}

func recommendConfig(cfg *config.Config) recommend.Config {
	return recommend.Config{
		PoolSize:     cfg.Recommend.PoolSize,
		DefaultLimit: cfg.Recommend.DefaultLimit,
		MaxLimit:     cfg.Recommend.MaxLimit,
		SearchLimit:  cfg.Recommend.SearchLimit,
	}
}
