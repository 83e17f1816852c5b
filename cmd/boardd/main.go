package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/modboard/modboard/pkg/announce"
	"github.com/modboard/modboard/pkg/api"
	"github.com/modboard/modboard/pkg/auth"
	"github.com/modboard/modboard/pkg/config"
	"github.com/modboard/modboard/pkg/kv"
	"github.com/modboard/modboard/pkg/mods"
	"github.com/modboard/modboard/pkg/observability"
	"github.com/modboard/modboard/pkg/password"
	"github.com/modboard/modboard/pkg/system"
	"github.com/modboard/modboard/pkg/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, os.Stdout)

	store, err := kv.New(cfg.Storage)
	if err != nil {
		logger.WithError(err).Fatal("failed to open storage")
	}
	defer store.Close()
	logger.WithField("backend", cfg.Storage.Type).Info("storage ready")

	hasher := password.NewHasher(cfg.PasswordIterations)
	userStore := users.NewStore(store)
	registry := mods.NewRegistry(store)

	metrics := observability.NewMetrics()
	server := api.NewServer(api.Deps{
		Logger:    logger,
		Metrics:   metrics,
		Store:     store,
		Sessions:  auth.NewSessions(store, userStore, hasher, cfg.SessionTTL),
		APIKeys:   auth.NewAPIKeys(store),
		Users:     users.NewService(userStore, hasher),
		Mods:      registry,
		Announce:  announce.NewStore(store, registry),
		Bootstrap: system.NewBootstrap(store, userStore, registry, hasher, cfg.InitToken),
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", httpServer.Addr).Info("listening")
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.WithError(err).Fatal("server stopped")
	case sig := <-stop:
		logger.WithField("signal", sig.String()).Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("shutdown incomplete")
	}
}
