// Package trim cuts a time range out of a source video with ffmpeg stream copy.
package trim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heimdex/heimdex-trim/internal/ffmpeg"
	"github.com/heimdex/heimdex-trim/internal/logging"
	"github.com/heimdex/heimdex-trim/internal/metrics"
)

const defaultExt = ".mp4"

var (
	ErrInvalidRange = errors.New("invalid trim range: need 0 <= start < end")
	ErrNoSource     = errors.New("no source video")
)

// ProcessFailedError is returned when ffmpeg ran and exited unsuccessfully.
type ProcessFailedError struct {
	ExitCode int
	Logs     string
}

func (e *ProcessFailedError) Error() string {
	logs := strings.TrimSpace(e.Logs)
	if logs == "" {
		return fmt.Sprintf("ffmpeg exited %d", e.ExitCode)
	}
	return fmt.Sprintf("ffmpeg exited %d: %s", e.ExitCode, lastLine(logs))
}

// ExecutionError is returned when ffmpeg could not be started or communicated with.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string {
	return "trim execution error: " + e.Err.Error()
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Result describes one trim attempt. Cancelled results carry no output.
type Result struct {
	OutputPath   string    `json:"output_path,omitempty"`
	SourcePath   string    `json:"source_path"`
	StartSeconds int       `json:"start_seconds"`
	EndSeconds   int       `json:"end_seconds"`
	CreatedAt    time.Time `json:"created_at"`
	Cancelled    bool      `json:"cancelled,omitempty"`
}

type Config struct {
	OutputDir string
	Timeout   time.Duration
	Logger    *slog.Logger
	Metrics   *metrics.Collector
}

type Trimmer struct {
	exec ffmpeg.Executor
	cfg  Config

	now       func() time.Time
	newSuffix func() string
}

func New(exec ffmpeg.Executor, cfg Config) *Trimmer {
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &Trimmer{
		exec:      exec,
		cfg:       cfg,
		now:       time.Now,
		newSuffix: randomSuffix,
	}
}

// FormatTime renders whole seconds as HH:MM:SS.
func FormatTime(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// BuildArgs returns the ffmpeg arguments that copy [start, end) of source into output.
func BuildArgs(source string, start, end int, output string) []string {
	return []string{
		"-y", "-hide_banner",
		"-ss", FormatTime(start),
		"-i", ffmpeg.LocalPath(source),
		"-t", FormatTime(end - start),
		"-c", "copy",
		output,
	}
}

// OutputPath names a fresh output file for source inside the output directory.
func (t *Trimmer) OutputPath(source string) string {
	ext := strings.ToLower(filepath.Ext(ffmpeg.LocalPath(source)))
	if ext == "" {
		ext = defaultExt
	}
	name := fmt.Sprintf("trimmed_%s_%s%s", t.now().UTC().Format("20060102T150405"), t.newSuffix(), ext)
	return filepath.Join(t.cfg.OutputDir, name)
}

// Trim writes [start, end) of sourcePath to a new file. A cancelled run returns a
// Result with Cancelled set and a nil error. The source is never written.
func (t *Trimmer) Trim(ctx context.Context, sourcePath string, start, end int) (*Result, error) {
	if sourcePath == "" {
		return nil, ErrNoSource
	}
	if start < 0 || start >= end {
		return nil, fmt.Errorf("%w (start=%d end=%d)", ErrInvalidRange, start, end)
	}

	if err := os.MkdirAll(t.cfg.OutputDir, 0755); err != nil {
		return nil, &ExecutionError{Err: fmt.Errorf("cannot create output dir: %w", err)}
	}

	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	output := t.OutputPath(sourcePath)
	logger := t.cfg.Logger.With(
		"source", logging.SanitizePath(ffmpeg.LocalPath(sourcePath)),
		"start", FormatTime(start),
		"end", FormatTime(end),
	)
	logger.Info("trimming")

	res, err := t.exec.Execute(ctx, BuildArgs(sourcePath, start, end, output)...)
	if err != nil {
		t.discard(output, logger)
		t.cfg.Metrics.ObserveTrim("error", res.Duration)
		logger.Error("trim could not run", "error", err)
		return nil, &ExecutionError{Err: err}
	}

	result := &Result{
		SourcePath:   sourcePath,
		StartSeconds: start,
		EndSeconds:   end,
		CreatedAt:    t.now(),
	}

	switch res.Outcome {
	case ffmpeg.OutcomeSuccess:
		if _, err := os.Stat(output); err != nil {
			t.cfg.Metrics.ObserveTrim("error", res.Duration)
			return nil, &ExecutionError{Err: fmt.Errorf("ffmpeg reported success but output is missing: %w", err)}
		}
		result.OutputPath = output
		t.cfg.Metrics.ObserveTrim("success", res.Duration)
		logger.Info("trim complete", "output", logging.SanitizePath(output), "duration_ms", res.Duration.Milliseconds())
		return result, nil
	case ffmpeg.OutcomeCancelled:
		t.discard(output, logger)
		result.Cancelled = true
		t.cfg.Metrics.ObserveTrim("cancelled", res.Duration)
		logger.Info("trim cancelled")
		return result, nil
	default:
		t.discard(output, logger)
		t.cfg.Metrics.ObserveTrim("failed", res.Duration)
		return nil, &ProcessFailedError{ExitCode: res.ExitCode, Logs: res.Logs}
	}
}

// discard removes a partial output file left by an unsuccessful run.
func (t *Trimmer) discard(path string, logger *slog.Logger) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove partial output", "error", err)
	}
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
