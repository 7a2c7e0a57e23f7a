package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gemini-replica/internal/api"
	"gemini-replica/internal/countries"
	"gemini-replica/internal/persist"
	"gemini-replica/internal/responder"
	"gemini-replica/internal/store"
)

const shutdownTimeout = 30 * time.Second

// runServe starts the HTTP server and blocks until SIGINT or SIGTERM
func runServe(cmd *cobra.Command, args []string) error {
	backend, closeBackend, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	// 0 means a random 1.5-2.5s delay per reply
	replies := responder.NewManager(logger, cfg.ReplyDelay)
	if cfg.ReplyDelay == 0 {
		logger.Info("Reply manager initialized with random delay (1.5-2.5 seconds)")
	} else {
		logger.Info("Reply manager initialized with fixed delay", zap.Duration("delay", cfg.ReplyDelay))
	}

	st := store.New(store.WithScheduler(replies), store.WithLogger(logger))

	adapter := persist.NewAdapter(backend, st,
		persist.WithKey(cfg.SnapshotKey),
		persist.WithDebounce(cfg.PersistDebounce),
		persist.WithLogger(logger))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := adapter.Hydrate(ctx); err != nil {
		logger.Warn("Continuing with default session", zap.Error(err))
	}

	persistCtx, stopPersist := context.WithCancel(context.Background())
	defer stopPersist()
	adapter.Start(persistCtx)

	directory := countries.NewClient(
		countries.WithURL(cfg.CountriesURL),
		countries.WithLogger(logger))

	router := api.NewRouter(st, directory, cfg.StaticDir, logger)
	server := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}
	server.RegisterOnShutdown(router.CloseStreams)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting",
			zap.String("addr", server.Addr),
			zap.String("static_dir", cfg.StaticDir),
			zap.String("storage", cfg.StorageBackend))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			stopPersist()
			adapter.Wait()
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// outstanding replies land before the final snapshot is written
	if err := replies.Shutdown(); err != nil {
		logger.Error("Error shutting down reply manager", zap.Error(err))
	}

	stopPersist()
	adapter.Wait()

	logger.Info("Server stopped gracefully")
	return nil
}
