// Command directoryd serves the directory HTTP API.
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

	"github.com/jacentio/directories/api"
	"github.com/jacentio/directories/config"
	"github.com/jacentio/directories/directory"
	"github.com/jacentio/directories/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.RequireJWTSecret(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		"table", cfg.DirectoryTable,
		"region", cfg.Region,
		"atomicMoves", cfg.AtomicMoves,
		"port", cfg.Port,
	)

	ctx := context.Background()
	client, err := cfg.DynamoDB(ctx)
	if err != nil {
		logger.Error("failed to create dynamodb client", "error", err)
		os.Exit(1)
	}

	st := store.New(client, store.Config{DirectoryTable: cfg.DirectoryTable})
	dirCfg := directory.DefaultConfig()
	dirCfg.AtomicMoves = cfg.AtomicMoves
	svc := directory.NewService(st, dirCfg, logger)

	opts := api.DefaultOptions()
	opts.CORSOrigins = cfg.CORSOrigins
	opts.RateLimitPerMinute = cfg.RateLimitPerMinute
	server := api.NewServer(svc, api.NewAuthenticator(cfg.JWTSecret), opts, logger)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server.Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutdown signal received", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}
