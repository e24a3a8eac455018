package tui

import (
	"github.com/heimdex/heimdex-trim/internal/trim"
	"github.com/heimdex/heimdex-trim/internal/workflow"
)

// SnapshotMsg carries the workflow state after a transition.
type SnapshotMsg struct {
	Snapshot workflow.Snapshot
}

// TrimDoneMsg is sent when a trim started from the UI returns.
type TrimDoneMsg struct {
	Result *trim.Result
	Err    error
}

// SaveDoneMsg is sent when a save started from the UI returns.
type SaveDoneMsg struct {
	Outcome *workflow.SaveOutcome
	Err     error
}
