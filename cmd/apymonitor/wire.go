package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/web3-frozen/yield-monitor/internal/config"
	"github.com/web3-frozen/yield-monitor/internal/monitor"
	"github.com/web3-frozen/yield-monitor/internal/monitor/sources"
	"github.com/web3-frozen/yield-monitor/internal/runlock"
	"github.com/web3-frozen/yield-monitor/internal/store"
	"github.com/web3-frozen/yield-monitor/internal/telegram"
)

// app holds the wired engine and the resources that must be closed on exit.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	engine *monitor.Engine
	db     *store.Postgres
	lock   *runlock.Locker
}

func (a *app) Close() {
	if a.lock != nil {
		_ = a.lock.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

func newSelector(cfg config.Config, logger *slog.Logger) monitor.Selector {
	switch cfg.Mode {
	case config.ModeSingle:
		return &monitor.SingleMatch{Chain: cfg.TargetChain, PoolID: cfg.TargetPoolID, Logger: logger}
	case config.ModePredicate:
		return &monitor.Predicate{Project: cfg.ProjectFilter, Assets: cfg.Assets}
	default:
		return &monitor.AllowList{IDs: cfg.AllowList, Logger: logger}
	}
}

// build wires storage, notifiers and the optional lock and Postgres mirror.
// redisAttempts controls how often the lock connection is retried.
func build(ctx context.Context, cfg config.Config, logger *slog.Logger, redisAttempts int) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	recorders := []monitor.Recorder{store.NewCSVRecorder(cfg.LogPath())}
	var mirrors []monitor.Recorder

	if cfg.DatabaseURL != "" {
		db, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		a.db = db
		mirrors = append(mirrors, db)
		logger.Info("database connected and migrated")
	}

	notifiers := monitor.MultiNotifier{monitor.NewConsoleNotifier(os.Stdout)}
	if cfg.TelegramEnabled() {
		notifiers = append(notifiers, telegram.NewBot(cfg.TelegramToken, cfg.TelegramChatID, logger))
		logger.Info("telegram alerts enabled", "chat_id", cfg.TelegramChatID)
	}

	deps := monitor.Deps{
		Fetcher:     sources.NewDefiLlama(cfg.APIURL, cfg.FetchTimeout, logger),
		Selector:    newSelector(cfg, logger),
		Recorders:   recorders,
		Mirrors:     mirrors,
		Snapshotter: store.NewJSONSnapshotter(cfg.SnapshotPath()),
		Notifier:    notifiers,
	}

	if cfg.RedisURL != "" {
		lock, err := connectLock(cfg, logger, redisAttempts)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.lock = lock
		deps.Lock = lock
		logger.Info("redis connected for run lock")
	}

	a.engine = monitor.NewEngine(deps, cfg.Threshold, logger)
	return a, nil
}

func connectLock(cfg config.Config, logger *slog.Logger, attempts int) (*runlock.Locker, error) {
	key := "apymonitor:lock:" + cfg.LogPath()
	var (
		lock *runlock.Locker
		err  error
	)
	for i := 0; i < attempts; i++ {
		lock, err = runlock.New(cfg.RedisURL, cfg.RedisPassword, key, cfg.LockTTL)
		if err == nil {
			return lock, nil
		}
		if i < attempts-1 {
			logger.Warn("redis not ready, retrying...", "attempt", i+1, "error", err)
			time.Sleep(5 * time.Second)
		}
	}
	return nil, fmt.Errorf("connect redis: %w", err)
}

// exitErr maps a finished run to the process outcome. Aborts for missing
// data or an empty selection succeed unless strict is set and the fetch
// returned nothing.
func exitErr(res *monitor.Result, runErr error, strict bool) error {
	if runErr != nil {
		return runErr
	}
	if strict && res != nil && res.Aborted() && res.Reason == monitor.ReasonNoData {
		return fmt.Errorf("no pool data fetched")
	}
	return nil
}
