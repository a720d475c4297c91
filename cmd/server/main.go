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

	"github.com/anonto42/studyhub/backend/internal/relay"
	"github.com/anonto42/studyhub/backend/internal/repositories"
	"github.com/anonto42/studyhub/backend/internal/router"
	"github.com/anonto42/studyhub/backend/pkg/config"
	"github.com/anonto42/studyhub/backend/pkg/firebase"
	"github.com/anonto42/studyhub/backend/pkg/logger"
	"github.com/anonto42/studyhub/backend/pkg/metrics"
	"github.com/anonto42/studyhub/backend/validators"
	"github.com/labstack/echo/v4"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDB(cfg)
	if err != nil {
		return err
	}
	defer db.CloseDB()

	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = repositories.EnsureIndexes(indexCtx, db.Mongo.Database(cfg.MongoDatabase))
	cancel()
	if err != nil {
		return err
	}

	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	if err != nil {
		return err
	}

	m := metrics.New()
	metricsSrv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: metricsMux(m)}
	go func() {
		slog.Info("metrics listening", "addr", metricsSrv.Addr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()

	hub := relay.NewHub(m)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	config.SetupMiddleware(e, cfg)

	if err := router.SetupRoutes(e, router.Deps{
		Config:   cfg,
		DB:       db,
		Firebase: firebaseApp,
		Hub:      hub,
		Metrics:  m,
	}); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "port", cfg.Port, "env", cfg.Env)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub.Close()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics shutdown", "error", err)
	}
	return nil
}

func metricsMux(m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}
