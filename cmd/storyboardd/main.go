package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"storyboard/internal/assets"
	"storyboard/internal/catalog"
	"storyboard/internal/config"
	"storyboard/internal/daemon"
	"storyboard/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := catalog.Open(cfg)
	if err != nil {
		logger.Error("open catalog store", logging.Error(err))
		return
	}

	assetStore, err := assets.New(cfg.Paths.UploadDir, logger)
	if err != nil {
		logger.Error("open asset store", logging.Error(err))
		_ = store.Close()
		return
	}

	d, err := daemon.New(cfg, store, assetStore, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = store.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("storyboardd shutting down")
}
