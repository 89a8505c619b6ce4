package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/park285/Cheese-3DChess/internal/config"
	"github.com/park285/Cheese-3DChess/internal/obslog"
	"github.com/park285/Cheese-3DChess/internal/stagebuilder"
)

const sweepInterval = time.Minute

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	err = run(cfg, logger)
	_ = logger.Sync()
	if err != nil {
		log.Fatalf("stage server: %v", err)
	}
}

func run(cfg *appcfg.AppConfig, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := stagebuilder.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("close_stores_failed", zap.Error(err))
		}
	}()

	go deps.Registry.Run(ctx, sweepInterval)

	feedSrv := &http.Server{
		Addr:              cfg.FeedAddr,
		Handler:           deps.Feed,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	errCh := make(chan error, 2)
	go func() {
		if err := deps.API.ListenAndServe(cfg.HTTPAddr); err != nil {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("feed_listening", zap.String("addr", cfg.FeedAddr))
		if err := feedSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown_requested")
	case serveErr = <-errCh:
		logger.Error("server_failed", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := deps.API.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http_shutdown_failed", zap.Error(err))
	}
	if err := feedSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("feed_shutdown_failed", zap.Error(err))
	}
	logger.Info("stopped", zap.Int("live_sessions", deps.Registry.Len()))
	return serveErr
}
