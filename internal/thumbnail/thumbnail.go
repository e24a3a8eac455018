// Package thumbnail extracts one preview frame per second of a source video.
package thumbnail

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/heimdex/heimdex-trim/internal/ffmpeg"
	"github.com/heimdex/heimdex-trim/internal/logging"
	"github.com/heimdex/heimdex-trim/internal/metrics"
)

// Frame is a generated preview at second Index of the source.
type Frame struct {
	Index int    `json:"index"`
	Path  string `json:"path"`
}

type Config struct {
	// Dir is the scratch directory. It is deleted and recreated on every Generate.
	Dir string
	// Pause is slept between extractions, never after the last one.
	Pause time.Duration
	// Timeout bounds each single-frame extraction.
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics *metrics.Collector
}

type Generator struct {
	exec ffmpeg.Executor
	cfg  Config
}

func New(exec ffmpeg.Executor, cfg Config) *Generator {
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &Generator{exec: exec, cfg: cfg}
}

func (g *Generator) Dir() string {
	return g.cfg.Dir
}

// Count is the number of whole seconds a duration spans, rounded up.
func Count(durationMs int64) int {
	if durationMs <= 0 {
		return 0
	}
	return int((durationMs + 999) / 1000)
}

func FramePath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("thumb_%d.jpg", index))
}

// BuildArgs returns the ffmpeg arguments that extract the frame at second from source.
func BuildArgs(source string, second int, output string) []string {
	return []string{
		"-y", "-hide_banner",
		"-ss", strconv.Itoa(second),
		"-i", ffmpeg.LocalPath(source),
		"-vframes", "1",
		"-q:v", "2",
		output,
	}
}

// Generate regenerates the scratch directory and extracts frames 0..Count-1 in order.
// Frames that fail or whose file is missing afterwards are left out. Cancelling ctx
// stops the loop and returns what was collected so far.
func (g *Generator) Generate(ctx context.Context, source string, durationMs int64) []Frame {
	logger := g.cfg.Logger.With("source", logging.SanitizePath(ffmpeg.LocalPath(source)))

	if err := g.Clear(); err != nil {
		logger.Error("failed to clear thumbnail dir", "error", err)
		return nil
	}
	if err := os.MkdirAll(g.cfg.Dir, 0755); err != nil {
		logger.Error("failed to create thumbnail dir", "error", err)
		return nil
	}

	n := Count(durationMs)
	frames := make([]Frame, 0, n)
	start := time.Now()

	for i := 0; i < n; i++ {
		if i > 0 && !g.pause(ctx) {
			break
		}
		if ctx.Err() != nil {
			break
		}

		if frame, ok := g.extract(ctx, logger, source, i); ok {
			frames = append(frames, frame)
			g.cfg.Metrics.ThumbnailGenerated()
		} else {
			g.cfg.Metrics.ThumbnailSkipped()
		}
	}

	logger.Info("thumbnails generated",
		"requested", n,
		"generated", len(frames),
		"duration_ms", time.Since(start).Milliseconds(),
		"interrupted", ctx.Err() != nil,
	)
	return frames
}

func (g *Generator) extract(ctx context.Context, logger *slog.Logger, source string, i int) (Frame, bool) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	out := FramePath(g.cfg.Dir, i)
	res, err := g.exec.Execute(ctx, BuildArgs(source, i, out)...)
	if err != nil {
		logger.Warn("thumbnail extraction could not run", "index", i, "error", err)
		return Frame{}, false
	}
	if !res.IsSuccess() {
		logger.Debug("thumbnail extraction failed", "index", i, "outcome", res.Outcome, "exit_code", res.ExitCode)
		return Frame{}, false
	}
	// ffmpeg exits 0 when seeking past the last keyframe without writing anything.
	if _, err := os.Stat(out); err != nil {
		logger.Debug("thumbnail missing after extraction", "index", i)
		return Frame{}, false
	}
	return Frame{Index: i, Path: out}, true
}

// pause sleeps for the configured interval. It returns false if ctx ended first.
func (g *Generator) pause(ctx context.Context) bool {
	if g.cfg.Pause <= 0 {
		return true
	}
	timer := time.NewTimer(g.cfg.Pause)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Clear deletes the scratch directory. A missing directory is not an error.
func (g *Generator) Clear() error {
	if g.cfg.Dir == "" {
		return fmt.Errorf("thumbnail dir not configured")
	}
	if err := os.RemoveAll(g.cfg.Dir); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
