package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/heimdex/heimdex-trim/internal/logging"
)

const (
	maxStderrBytes = 8 * 1024 // 8 KB tail of stderr kept for diagnostics

	// waitDelay bounds how long Execute waits for ffmpeg to exit after SIGINT.
	waitDelay = 5 * time.Second
)

// SubprocessExecutor is the production implementation of Executor.
type SubprocessExecutor struct {
	binary string
	logger *slog.Logger
}

// NewExecutor resolves binary on PATH (or as a direct path) and returns an executor for it.
func NewExecutor(binary string, logger *slog.Logger) (*SubprocessExecutor, error) {
	resolved, err := resolveBinary(binary, "ffmpeg")
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &SubprocessExecutor{binary: resolved, logger: logger}, nil
}

// Binary returns the resolved binary path.
func (e *SubprocessExecutor) Binary() string {
	return e.binary
}

// Execute runs the binary with args. Cancelling ctx sends SIGINT so ffmpeg can
// finish cleanly; that ends as OutcomeCancelled. A ctx deadline is an error.
func (e *SubprocessExecutor) Execute(ctx context.Context, args ...string) (Result, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = waitDelay

	// Capture stderr with bounded buffer
	var stderrBuf bytes.Buffer
	cmd.Stderr = &limitedWriter{w: &stderrBuf, limit: maxStderrBytes}
	cmd.Stdout = io.Discard

	e.logger.Debug("executing ffmpeg", "args", args)

	err := cmd.Run()
	elapsed := time.Since(start)

	result := Result{
		ExitCode: exitCode(err),
		Logs:     stderrBuf.String(),
		Duration: elapsed,
	}

	switch ctxErr := ctx.Err(); {
	case errors.Is(ctxErr, context.DeadlineExceeded):
		result.Outcome = OutcomeFailed
		e.logger.Warn("ffmpeg timed out", "duration_ms", elapsed.Milliseconds())
		return result, fmt.Errorf("ffmpeg timed out after %s: %w", elapsed.Round(time.Millisecond), ctxErr)
	case errors.Is(ctxErr, context.Canceled):
		result.Outcome = OutcomeCancelled
		e.logger.Info("ffmpeg cancelled", "duration_ms", elapsed.Milliseconds())
		return result, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			result.Outcome = OutcomeFailed
			e.logger.Error("ffmpeg could not run", "error", err)
			return result, fmt.Errorf("failed to run %s: %w", logging.SanitizePath(e.binary), err)
		}
	}

	switch result.ExitCode {
	case 0:
		result.Outcome = OutcomeSuccess
		e.logger.Debug("ffmpeg succeeded", "duration_ms", elapsed.Milliseconds())
	case ExitCodeCancelled:
		result.Outcome = OutcomeCancelled
		e.logger.Info("ffmpeg reported cancellation", "duration_ms", elapsed.Milliseconds())
	default:
		result.Outcome = OutcomeFailed
		e.logger.Warn("ffmpeg failed",
			"exit_code", result.ExitCode,
			"duration_ms", elapsed.Milliseconds(),
			"stderr_tail", truncate(result.Logs, 512),
		)
	}

	return result, nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// resolveBinary finds a usable binary, preferring the configured one.
func resolveBinary(preferred, fallback string) (string, error) {
	if preferred == "" {
		preferred = fallback
	}
	p, err := exec.LookPath(preferred)
	if err != nil {
		return "", fmt.Errorf("%s not found: %w", preferred, err)
	}
	return p, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		// Keep only the tail
		b := lw.w.Bytes()
		tail := append([]byte(nil), b[len(b)-lw.limit:]...)
		lw.w.Reset()
		lw.w.Write(tail)
	}
	return n, nil
}
