package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/tbuchmann/postcarder/internal/adapter/driven/identity"
	"github.com/tbuchmann/postcarder/internal/adapter/driven/picture"
	"github.com/tbuchmann/postcarder/internal/adapter/driven/postapi"
	sqliteadapter "github.com/tbuchmann/postcarder/internal/adapter/driven/sqlite"
	httphandler "github.com/tbuchmann/postcarder/internal/adapter/driving/http"
	"github.com/tbuchmann/postcarder/internal/application"
	"github.com/tbuchmann/postcarder/internal/config"
	"github.com/tbuchmann/postcarder/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"auth_method", cfg.AuthMethod,
		"image_export", cfg.ImageExport,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open token cache database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters and services.
	tokenStore := sqliteadapter.NewTokenRepo(db)
	fetcher := identity.NewFetcher(slog.Default())
	tokens := application.NewTokenService(fetcher, tokenStore, cfg.AuthMethod, slog.Default())

	apiFactory := func(token string) driven.PostcardAPI {
		return postapi.NewClient(token, slog.Default())
	}
	pictures := picture.NewFetcher(slog.Default())
	sender := application.NewSendService(tokens, apiFactory, pictures, cfg.ImageExport, slog.Default())

	// 6. HTTP handler and server.
	handler := httphandler.NewHandler(tokens, sender, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(handler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// A send drives the full login dance plus rendering, so the write
		// timeout follows the configured flow timeout.
		WriteTimeout: cfg.HTTPTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("postcarder started", "listen_addr", cfg.ListenAddr)

	// 7. Wait for shutdown signal, then drain.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
