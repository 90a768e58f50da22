package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pagebin/internal/config"
	"pagebin/internal/entry"
	"pagebin/internal/httpserver"
	"pagebin/internal/id"
	"pagebin/internal/metrics"
	"pagebin/internal/storage"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(2)
	}

	logger, logCloser, err := newLogger(cfg.LogLevel, cfg.LogFile, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer logCloser.Close()

	store, err := openStore(cfg)
	if err != nil {
		logger.Error("failed opening data store", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}
	backend := storage.NewBackend(store, logger)

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	err = backend.Initialize(initCtx)
	cancelInit()
	if err != nil {
		logger.Error("storage initialization failed", "backend", cfg.StorageBackend, "error", err)
		_ = backend.Close()
		os.Exit(1)
	}

	m := metrics.New()
	svc, err := entry.NewService(entry.Config{
		Repo:     backend,
		IDs:      id.New(0, 0),
		Logger:   logger,
		Metrics:  m,
		Reserved: httpserver.ReservedNames,
	})
	if err != nil {
		logger.Error("failed to construct entry service", "error", err)
		os.Exit(1)
	}

	srv, err := httpserver.New(httpserver.Config{
		Service:    svc,
		Reveals:    httpserver.NewRevealStore(cfg.RevealTTL),
		Metrics:    m,
		MaxBytes:   cfg.MaxBytes,
		TrustProxy: cfg.BehindProxy,
		BaseURL:    cfg.BaseURL,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to construct server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if sweeper, ok := store.(httpserver.TempSweeper); ok {
		httpserver.StartJanitor(ctx, sweeper, cfg.SweepInterval, logger)
	}

	srvHTTP := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr(), "backend", cfg.StorageBackend)
		if err := srvHTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	failed := false
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		if err := srvHTTP.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
		cancel()
	case err := <-errCh:
		logger.Error("http server error", "error", err)
		failed = true
	}

	// The server is drained before the pool or files are released.
	if err := backend.Close(); err != nil {
		logger.Error("close storage", "error", err)
	}
	logger.Info("shutdown complete")
	if failed {
		_ = logCloser.Close()
		os.Exit(1)
	}
}
