package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gofrs/flock"

	"darkroom/internal/aimeta"
	"darkroom/internal/config"
	"darkroom/internal/core"
	"darkroom/internal/logging"
	"darkroom/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	lock := flock.New(filepath.Join(cfg.Paths.LogDir, "darkroomd.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		logger.Error("acquire instance lock", logging.Error(err))
		os.Exit(1)
	}
	if !locked {
		logger.Error("another darkroomd instance is already running")
		os.Exit(1)
	}
	defer lock.Unlock() //nolint:errcheck

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		os.Exit(1)
	}
	defer st.Close()

	svc := core.New(cfg, st, core.Options{
		Providers: buildProviders(cfg),
		Logger:    logger,
	})
	if err := svc.Warm(ctx); err != nil {
		logger.Error("warm duplicate index", logging.Error(err))
		os.Exit(1)
	}

	watcher := newStagingWatcher(cfg, svc, logger)
	go watcher.Run(ctx)

	logger.Info("darkroomd started",
		logging.String("staging_dir", cfg.Paths.StagingDir),
		logging.String("library_dir", cfg.Paths.LibraryDir))

	<-ctx.Done()
	logger.Info("darkroomd shutting down")
}

func buildProviders(cfg *config.Config) []aimeta.Provider {
	providers := make([]aimeta.Provider, 0, len(cfg.AI.Providers))
	for _, provider := range cfg.AI.Providers {
		if strings.TrimSpace(provider.BaseURL) == "" {
			continue
		}
		providers = append(providers, aimeta.NewHTTPProvider(provider))
	}
	return providers
}
