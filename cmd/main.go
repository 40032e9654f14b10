package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwise1/civic_dispatch/config"
	deps "github.com/bwise1/civic_dispatch/internal/debs"
	api "github.com/bwise1/civic_dispatch/internal/http/rest"
)

const (
	allowConnectionsAfterShutdown = 1 * time.Second
)

func main() {
	cfg := config.New()
	logger := config.NewLogger(cfg.LogLevel)

	dependencies, err := deps.New(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialise dependencies")
	}

	a := &api.API{
		Config: cfg,
		Deps:   dependencies,
		Logger: logger,
	}
	go dependencies.WebSocket.Run()
	go func() {
		logger.WithField("port", cfg.Port).Info("server running")
		if err := a.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server stopped")
		}
	}()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-stopChan

	logger.WithField("wait", allowConnectionsAfterShutdown.String()).Info("request to shutdown server")
	waitTimer := time.NewTimer(allowConnectionsAfterShutdown)
	<-waitTimer.C

	logger.Info("shutting down server")
	if err := a.Shutdown(); err != nil {
		logger.WithError(err).Error("server shutdown")
	}

	dependencies.Close()
	logger.Info("dependencies closed")
}
