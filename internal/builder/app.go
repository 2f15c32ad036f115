package builder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"docqa/internal/api"
	"docqa/internal/config"
	"docqa/internal/service"
)

const shutdownTimeout = 30 * time.Second

// App is the HTTP API with its session registry.
type App struct {
	server   *http.Server
	sessions *Sessions
	logger   *zap.Logger
}

// Build assembles the HTTP application from cfg.
func Build(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*App, error) {
	sessions, err := NewSessions(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("build sessions: %w", err)
	}
	registry := service.NewRegistry(sessions.New, cfg.Server.SessionTTL())
	handler := api.NewHandler(registry, cfg.Server.MaxUploadBytes)
	return &App{
		server: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           api.SetupRouter(handler, logger, cfg.Server.RequestTimeout()),
			ReadHeaderTimeout: 10 * time.Second,
		},
		sessions: sessions,
		logger:   logger,
	}, nil
}

// Run serves until an interrupt, then shuts down gracefully.
func (a *App) Run() error {
	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		a.logger.Error("Server error", zap.Error(err))
		_ = a.sessions.Close()
		return err
	case sig := <-sigChan:
		a.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}
	return a.shutdown()
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.logger.Info("Shutting down server gracefully")
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("Server shutdown error", zap.Error(err))
		return err
	}
	if err := a.sessions.Close(); err != nil {
		a.logger.Warn("Closing provider clients", zap.Error(err))
	}
	a.logger.Info("Application stopped gracefully")
	return nil
}
