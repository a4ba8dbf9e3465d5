package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"darkroom/internal/config"
	"darkroom/internal/core"
	"darkroom/internal/logging"
)

const stagingPollInterval = 5 * time.Second

// stagingWatcher polls the staging directory and feeds new files into the
// ingestion pipeline. Accepted and skipped files are removed from staging;
// conflicting or failing files stay put for manual review.
type stagingWatcher struct {
	cfg    *config.Config
	svc    *core.Service
	logger *slog.Logger

	// attempted remembers files that failed or conflicted, keyed by path,
	// so they are not retried until their modtime changes.
	attempted map[string]time.Time
}

func newStagingWatcher(cfg *config.Config, svc *core.Service, logger *slog.Logger) *stagingWatcher {
	return &stagingWatcher{
		cfg:       cfg,
		svc:       svc,
		logger:    logger,
		attempted: make(map[string]time.Time),
	}
}

// Run polls until the context is canceled.
func (w *stagingWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(stagingPollInterval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *stagingWatcher) sweep(ctx context.Context) {
	entries, err := os.ReadDir(w.cfg.Paths.StagingDir)
	if err != nil {
		w.logger.Warn("read staging dir", logging.Error(err))
		return
	}

	type staged struct {
		path    string
		modTime time.Time
	}
	var pending []staged
	var files []core.IngestFile
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(w.cfg.Paths.StagingDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue
		}
		// Skip files still being written; a second of quiet is enough for
		// local copies.
		if time.Since(info.ModTime()) < time.Second {
			continue
		}
		if last, ok := w.attempted[path]; ok && last.Equal(info.ModTime()) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			w.logger.Warn("read staged file",
				logging.String("path", path), logging.Error(err))
			continue
		}
		pending = append(pending, staged{path: path, modTime: info.ModTime()})
		files = append(files, core.IngestFile{Data: data, Filename: entry.Name()})
	}
	if len(files) == 0 {
		return
	}

	batch, err := w.svc.IngestBatch(ctx, files)
	if err != nil {
		w.logger.Error("ingest batch", logging.Error(err))
		return
	}

	for i, file := range pending {
		if failure, ok := batch.Failures[i]; ok {
			w.logger.Warn("staged file rejected",
				logging.String("path", file.path), logging.Error(failure))
			w.attempted[file.path] = file.modTime
			continue
		}
		result := batch.Results[i]
		if result == nil {
			continue
		}
		switch result.Status {
		case core.IngestAccepted, core.IngestSkipped:
			if err := os.Remove(file.path); err != nil {
				w.logger.Warn("remove staged file",
					logging.String("path", file.path), logging.Error(err))
			}
			delete(w.attempted, file.path)
		case core.IngestConflict:
			w.logger.Info("staged file needs conflict review",
				logging.String("path", file.path),
				logging.Int("conflicts", len(result.Conflicts)))
			w.attempted[file.path] = file.modTime
		}
	}
}
