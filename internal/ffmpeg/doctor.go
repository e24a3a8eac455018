package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/heimdex/heimdex-trim/internal/logging"
)

const defaultCacheTTL = 5 * time.Minute

// Diagnoser probes the installed toolchain.
type Diagnoser interface {
	RunDoctor(ctx context.Context) (*Capabilities, error)
}

// Toolchain runs `-version` against the configured ffmpeg and ffprobe binaries.
type Toolchain struct {
	FFmpeg  string
	FFprobe string
	Timeout time.Duration
}

// RunDoctor fails only when ffmpeg itself is unusable. A missing ffprobe is reported
// through HasFFprobe.
func (tc Toolchain) RunDoctor(ctx context.Context) (*Capabilities, error) {
	timeout := tc.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	caps := &Capabilities{ProbedAt: time.Now()}

	path, version, err := versionOf(ctx, tc.FFmpeg, "ffmpeg")
	if err != nil {
		return nil, err
	}
	caps.FFmpegPath, caps.FFmpegVersion, caps.HasFFmpeg = path, version, true

	if path, version, err := versionOf(ctx, tc.FFprobe, "ffprobe"); err == nil {
		caps.FFprobePath, caps.FFprobeVersion, caps.HasFFprobe = path, version, true
	}

	return caps, nil
}

func versionOf(ctx context.Context, binary, fallback string) (string, string, error) {
	path, err := resolveBinary(binary, fallback)
	if err != nil {
		return "", "", err
	}
	out, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return path, "", fmt.Errorf("%s -version failed: %w", fallback, err)
	}
	return path, firstLine(out), nil
}

func firstLine(b []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(b))
	if sc.Scan() {
		return sc.Text()
	}
	return ""
}

// CachedDoctor wraps a Diagnoser to cache probe results with a configurable TTL.
// This avoids spawning two processes on every status request.
type CachedDoctor struct {
	diag   Diagnoser
	ttl    time.Duration
	logger *slog.Logger

	mu     sync.RWMutex
	cached *Capabilities
}

// NewCachedDoctor creates a caching wrapper around doctor probes.
func NewCachedDoctor(diag Diagnoser, logger *slog.Logger) *CachedDoctor {
	if logger == nil {
		logger = logging.Discard()
	}
	return &CachedDoctor{
		diag:   diag,
		ttl:    defaultCacheTTL,
		logger: logger,
	}
}

// Get returns cached capabilities if fresh, otherwise re-probes.
func (d *CachedDoctor) Get(ctx context.Context) (*Capabilities, error) {
	d.mu.RLock()
	if d.cached != nil && time.Since(d.cached.ProbedAt) < d.ttl {
		caps := d.cached
		d.mu.RUnlock()
		return caps, nil
	}
	d.mu.RUnlock()

	return d.Refresh(ctx)
}

func (d *CachedDoctor) Peek() *Capabilities {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cached
}

// Refresh forces a new probe regardless of cache freshness.
func (d *CachedDoctor) Refresh(ctx context.Context) (*Capabilities, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	caps, err := d.diag.RunDoctor(ctx)
	if err != nil {
		d.logger.Warn("doctor probe failed", "error", err)
		// Return stale cache if available
		if d.cached != nil {
			d.logger.Info("returning stale capabilities cache")
			return d.cached, nil
		}
		return nil, err
	}

	d.logger.Info("doctor probe complete",
		"ffmpeg", caps.FFmpegVersion,
		"ffprobe", caps.HasFFprobe,
	)
	d.cached = caps
	return caps, nil
}

// Invalidate clears the cached capabilities.
func (d *CachedDoctor) Invalidate() {
	d.mu.Lock()
	d.cached = nil
	d.mu.Unlock()
}
