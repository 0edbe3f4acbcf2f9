package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/potluck/internal/database"
	"github.com/dukerupert/potluck/internal/server"
	"github.com/dukerupert/potluck/internal/store"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	db, err := database.Open(a.cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if a.cfg.OrganizerPassword != "" {
		o, created, err := store.NewOrganizerStore(db).Ensure(ctx, a.cfg.OrganizerUsername, a.cfg.OrganizerPassword)
		if err != nil {
			return err
		}
		if created {
			a.logger.Info("created organizer", "username", o.Username)
		}
	}

	srv := server.New(db, a.cfg, a.logger)
	httpServer := &http.Server{
		Addr:         a.cfg.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("potluck listening", "addr", httpServer.Addr, "db", a.cfg.DBPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		srv.RateLimiter().RunCleanup(gctx, time.Minute)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down", "websocket_clients", srv.Hub().ClientCount())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
