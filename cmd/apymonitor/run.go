package main

import (
	"context"
	"fmt"
	"os"

	"github.com/web3-frozen/yield-monitor/internal/config"
)

func runOnce(ctx context.Context, flags *rootFlags) error {
	cfg, err := config.Load(flags.configPath, flags.mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return err
	}
	if flags.strict {
		cfg.StrictExit = true
	}
	logger := newLogger(cfg)

	a, err := build(ctx, cfg, logger, 1)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	defer a.Close()

	logger.Info("starting run",
		"mode", cfg.Mode,
		"threshold", cfg.Threshold,
		"log_path", cfg.LogPath(),
		"snapshot_path", cfg.SnapshotPath())

	res, runErr := a.engine.RunOnce(ctx)
	if err := exitErr(res, runErr, cfg.StrictExit); err != nil {
		logger.Error("run failed", "error", err)
		return err
	}
	return nil
}
