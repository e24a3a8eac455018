package api

import (
	"time"

	"github.com/heimdex/heimdex-trim/internal/ffmpeg"
	"github.com/heimdex/heimdex-trim/internal/library"
	"github.com/heimdex/heimdex-trim/internal/picker"
	"github.com/heimdex/heimdex-trim/internal/store"
	"github.com/heimdex/heimdex-trim/internal/trim"
	"github.com/heimdex/heimdex-trim/internal/workflow"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	State        workflow.State     `json:"state"`
	SessionID    string             `json:"session_id,omitempty"`
	LastError    string             `json:"last_error,omitempty"`
	LibraryCount int                `json:"library_count"`
	TrimsRunning int                `json:"trims_running"`
	Toolchain    *ToolchainResponse `json:"toolchain,omitempty"`
}

type ToolchainResponse struct {
	HasFFmpeg      bool   `json:"has_ffmpeg"`
	HasFFprobe     bool   `json:"has_ffprobe"`
	FFmpegVersion  string `json:"ffmpeg_version,omitempty"`
	FFprobeVersion string `json:"ffprobe_version,omitempty"`
	LastProbeAt    string `json:"last_probe_at,omitempty"`
}

type MediaResponse struct {
	Root   string         `json:"root"`
	Videos []picker.Asset `json:"videos"`
}

type StartSessionRequest struct {
	Path        string `json:"path"`
	DurationMs  int64  `json:"duration_ms,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SelectionRequest taps Index, or clears the selection when Clear is set.
type SelectionRequest struct {
	Index *int `json:"index,omitempty"`
	Clear bool `json:"clear,omitempty"`
}

type TrimResponse struct {
	Result   *trim.Result      `json:"result"`
	Snapshot workflow.Snapshot `json:"snapshot"`
}

type SaveResponse struct {
	Videos            []library.SavedVideo `json:"videos"`
	NavigateToLibrary bool                 `json:"navigate_to_library"`
}

type VideosResponse struct {
	Videos []library.SavedVideo `json:"videos"`
}

type TrimRecordResponse struct {
	ID           string `json:"id"`
	SessionID    string `json:"session_id"`
	SourcePath   string `json:"source_path"`
	StartSeconds int    `json:"start_seconds"`
	EndSeconds   int    `json:"end_seconds"`
	OutputPath   string `json:"output_path,omitempty"`
	Status       string `json:"status"`
	ExitCode     *int   `json:"exit_code,omitempty"`
	Error        string `json:"error,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

type TrimsResponse struct {
	Trims []TrimRecordResponse `json:"trims"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func TrimToResponse(t *store.TrimRecord) TrimRecordResponse {
	return TrimRecordResponse{
		ID:           t.ID,
		SessionID:    t.SessionID,
		SourcePath:   t.SourcePath,
		StartSeconds: t.StartSeconds,
		EndSeconds:   t.EndSeconds,
		OutputPath:   t.OutputPath,
		Status:       t.Status,
		ExitCode:     t.ExitCode,
		Error:        t.Error,
		CreatedAt:    t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    t.UpdatedAt.Format(time.RFC3339),
	}
}

func ToolchainToResponse(c *ffmpeg.Capabilities) *ToolchainResponse {
	if c == nil {
		return nil
	}
	resp := &ToolchainResponse{
		HasFFmpeg:      c.HasFFmpeg,
		HasFFprobe:     c.HasFFprobe,
		FFmpegVersion:  c.FFmpegVersion,
		FFprobeVersion: c.FFprobeVersion,
	}
	if !c.ProbedAt.IsZero() {
		resp.LastProbeAt = c.ProbedAt.Format(time.RFC3339)
	}
	return resp
}
