package store

import (
	"time"

	"github.com/google/uuid"
)

const (
	TrimStatusRunning   = "running"
	TrimStatusCompleted = "completed"
	TrimStatusCancelled = "cancelled"
	TrimStatusFailed    = "failed"
)

// TrimRecord is one journal row per trim attempt.
type TrimRecord struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	SourcePath   string    `json:"source_path"`
	StartSeconds int       `json:"start_seconds"`
	EndSeconds   int       `json:"end_seconds"`
	OutputPath   string    `json:"output_path,omitempty"`
	Status       string    `json:"status"`
	ExitCode     *int      `json:"exit_code,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TrimOutcome is what FinishTrim writes back onto a running row.
type TrimOutcome struct {
	Status     string
	OutputPath string
	ExitCode   *int
	Error      string
}

func NewID() string {
	return uuid.NewString()
}
