package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	"github.com/heimdex/heimdex-trim/internal/config"
	"github.com/heimdex/heimdex-trim/internal/db"
	"github.com/heimdex/heimdex-trim/internal/ffmpeg"
	"github.com/heimdex/heimdex-trim/internal/library"
	"github.com/heimdex/heimdex-trim/internal/metrics"
	"github.com/heimdex/heimdex-trim/internal/picker"
	"github.com/heimdex/heimdex-trim/internal/store"
	"github.com/heimdex/heimdex-trim/internal/thumbnail"
	"github.com/heimdex/heimdex-trim/internal/trim"
	"github.com/heimdex/heimdex-trim/internal/workflow"
)

// app holds the components every command shares.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	db      *db.DB
	repo    *store.SQLiteRepository
	metrics *metrics.Collector

	doctor   *ffmpeg.CachedDoctor
	picker   *picker.Picker
	library  *library.Service
	trimmer  *trim.Trimmer
	thumbs   *thumbnail.Generator
	workflow *workflow.Orchestrator
}

func newApp(cfg config.Config, logger *slog.Logger) (*app, error) {
	for _, dir := range []string{cfg.DataDir(), cfg.CacheDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		db:      database,
		repo:    store.NewRepository(database.Conn()),
		metrics: metrics.New(),
	}

	var exec ffmpeg.Executor
	if e, err := ffmpeg.NewExecutor(cfg.FFmpegPath(), logger); err != nil {
		logger.Warn("ffmpeg unavailable, trims and thumbnails will fail", "error", err)
		exec = unavailableExecutor{err: err}
	} else {
		exec = e
	}

	// A nil *FFprobe must not end up inside the interface.
	var prober ffmpeg.Prober
	if p, err := ffmpeg.NewProber(cfg.FFprobePath(), 0); err != nil {
		logger.Warn("ffprobe unavailable, durations must be supplied", "error", err)
	} else {
		prober = p
	}

	a.doctor = ffmpeg.NewCachedDoctor(ffmpeg.Toolchain{
		FFmpeg:  cfg.FFmpegPath(),
		FFprobe: cfg.FFprobePath(),
	}, logger)
	a.picker = picker.New(cfg.MediaDir(), prober, logger)
	a.library = library.NewService(library.NewStore(a.repo, logger, a.metrics), logger)
	a.trimmer = trim.New(exec, trim.Config{
		OutputDir: cfg.CacheDir(),
		Timeout:   cfg.TrimTimeout(),
		Logger:    logger,
		Metrics:   a.metrics,
	})
	a.thumbs = thumbnail.New(exec, thumbnail.Config{
		Dir:     cfg.ThumbnailDir(),
		Pause:   cfg.ThumbnailPause(),
		Timeout: cfg.ThumbnailTimeout(),
		Logger:  logger,
		Metrics: a.metrics,
	})
	a.workflow = workflow.New(workflow.Deps{
		Trimmer:    a.trimmer,
		Thumbnails: a.thumbs,
		Library:    a.library,
		Journal:    a.repo,
		Logger:     logger,
	})
	return a, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// unavailableExecutor stands in when the ffmpeg binary cannot be resolved, so
// the agent still starts and reports the problem through /status.
type unavailableExecutor struct {
	err error
}

func (u unavailableExecutor) Execute(ctx context.Context, args ...string) (ffmpeg.Result, error) {
	return ffmpeg.Result{}, u.err
}

func ensureAuthToken(ctx context.Context, kv store.KV) (string, error) {
	existing, ok, err := kv.GetValue(ctx, "auth_token")
	if err == nil && ok && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := kv.SetValue(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
