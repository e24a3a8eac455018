// Package ffmpeg runs the ffmpeg and ffprobe binaries as opaque subprocesses
// and reports a structured success / cancelled / failed outcome.
package ffmpeg

import (
	"context"
	"strings"
	"time"
)

// Outcome classifies how an invocation ended.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

// ExitCodeCancelled is what ffmpeg exits with after SIGINT.
const ExitCodeCancelled = 255

// Executor runs one ffmpeg invocation.
//
// A non-nil error means the process could not be run or communicated with
// (missing binary, start failure, deadline exceeded). A process that ran and
// exited non-zero is reported through Result with a nil error.
type Executor interface {
	Execute(ctx context.Context, args ...string) (Result, error)
}

// Result is the structured outcome of an ffmpeg invocation.
type Result struct {
	Outcome  Outcome       `json:"outcome"`
	ExitCode int           `json:"exit_code"`
	Logs     string        `json:"logs,omitempty"` // last N bytes of stderr
	Duration time.Duration `json:"duration"`
}

// IsSuccess returns true when the subprocess exited cleanly.
func (r Result) IsSuccess() bool { return r.Outcome == OutcomeSuccess }

// MediaInfo is the subset of ffprobe output the agent uses.
type MediaInfo struct {
	Path       string        `json:"path"`
	Duration   time.Duration `json:"duration"`
	Size       int64         `json:"size"`
	Width      int           `json:"width,omitempty"`
	Height     int           `json:"height,omitempty"`
	VideoCodec string        `json:"video_codec,omitempty"`
	AudioCodec string        `json:"audio_codec,omitempty"`
	HasVideo   bool          `json:"has_video"`
	HasAudio   bool          `json:"has_audio"`
}

// DurationMs returns the probed duration in whole milliseconds.
func (m *MediaInfo) DurationMs() int64 {
	return m.Duration.Milliseconds()
}

// Capabilities reports which binaries are usable, from `-version` probes.
type Capabilities struct {
	FFmpegPath     string    `json:"ffmpeg_path,omitempty"`
	FFmpegVersion  string    `json:"ffmpeg_version,omitempty"`
	FFprobePath    string    `json:"ffprobe_path,omitempty"`
	FFprobeVersion string    `json:"ffprobe_version,omitempty"`
	HasFFmpeg      bool      `json:"has_ffmpeg"`
	HasFFprobe     bool      `json:"has_ffprobe"`
	ProbedAt       time.Time `json:"probed_at"`
}

const fileScheme = "file://"

// LocalPath strips a file:// prefix so a picker URI can be handed to ffmpeg.
func LocalPath(uri string) string {
	return strings.TrimPrefix(uri, fileScheme)
}
