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

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/web3-frozen/yield-monitor/internal/config"
	"github.com/web3-frozen/yield-monitor/internal/handler"
	"github.com/web3-frozen/yield-monitor/internal/middleware"
	"github.com/web3-frozen/yield-monitor/internal/monitor"
)

func serve(parent context.Context, flags *rootFlags) error {
	cfg, err := config.Load(flags.configPath, flags.mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return err
	}
	logger := newLogger(cfg)

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Redis retried up to 30s for ExternalSecret to sync
	a, err := build(ctx, cfg, logger, 6)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	defer a.Close()

	engineDone := startEngine(ctx, a.engine, cfg.PollInterval)
	// Stop the loop and let an in-flight run finish before a.Close releases
	// the database pool and Redis client.
	defer func() {
		cancel()
		<-engineDone
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(a),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "interval", cfg.PollInterval.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err := <-errCh:
		logger.Error("server failed", "error", err)
		return err
	}

	logger.Info("shutting down gracefully")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// startEngine runs the poll loop in the background. The returned channel is
// closed once the loop has exited after ctx is cancelled.
func startEngine(ctx context.Context, e *monitor.Engine, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.Run(ctx, interval)
	}()
	return done
}

func newRouter(a *app) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(a.logger))
	r.Use(middleware.Logger(a.logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(a.cfg.FrontendOrigin))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", handler.Health())
	var deps []handler.Pinger
	if a.db != nil {
		deps = append(deps, a.db)
	}
	if a.lock != nil {
		deps = append(deps, a.lock)
	}
	r.Get("/readyz", handler.Ready(a.engine, deps...))

	r.Route("/api", func(r chi.Router) {
		r.Get("/snapshot", handler.Snapshot(a.engine))
		r.Get("/pools/{id}", handler.Pool(a.engine))
		if a.db != nil {
			r.Get("/history/{id}", handler.History(a.db))
		}
	})
	return r
}
