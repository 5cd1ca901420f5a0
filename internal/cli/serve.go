// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

package cli

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomtom215/otakumatch/internal/api"
	"github.com/tomtom215/otakumatch/internal/events"
	"github.com/tomtom215/otakumatch/internal/logging"
	"github.com/tomtom215/otakumatch/internal/storage"
	"github.com/tomtom215/otakumatch/internal/supervisor"
	"github.com/tomtom215/otakumatch/internal/supervisor/services"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts)
		},
	}
}

func serve(ctx context.Context, opts *rootOptions) error {
	cfg := opts.cfg
	logging.Info().Str("version", Version).Str("config", cfg.String()).Msg("Starting OtakuMatch")

	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	if badgerStore, ok := a.backend.(*storage.BadgerStore); ok && cfg.Storage.GCInterval > 0 {
		tree.AddStorageService(storage.NewGCService(badgerStore, cfg.Storage.GCInterval))
	}

	audit := events.NewAuditLog(a.pubsub, cfg.Events.AuditCapacity)
	tree.AddEventService(audit)

	handler := api.NewHandler(a.store, a.recommender, a.catalog, audit, Version)
	router := api.NewRouter(handler, api.ChiMiddlewareConfigFromSecurity(&cfg.Security))
	server := &http.Server{
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	treeCtx, stopTree := context.WithCancel(ctx)
	defer stopTree()
	errCh := tree.ServeBackground(treeCtx)

	// The profile is loaded, and traffic accepted, only once the audit
	// subscription exists. Events published before that are dropped.
	stopped := false
	select {
	case <-audit.Ready():
		tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Addr(), cfg.Server.ShutdownTimeout))
		if loadErr := a.store.Load(ctx); loadErr != nil {
			logging.Error().Err(loadErr).Msg("Failed to load taste profile")
			stopTree()
			<-errCh
			return loadErr
		}
	case err = <-errCh:
		stopped = true
	case <-ctx.Done():
	}
	if !stopped {
		err = <-errCh
	}
	if ctx.Err() != nil {
		err = nil
	}
	if err != nil {
		logging.Error().Err(err).Msg("Supervisor tree stopped with error")
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}
	logging.Info().Msg("OtakuMatch stopped")
	return err
}
