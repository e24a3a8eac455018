// Package tui is an interactive terminal front end for a trim session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/heimdex/heimdex-trim/internal/trim"
	"github.com/heimdex/heimdex-trim/internal/workflow"
)

// Workflow is the subset of the orchestrator the UI drives.
type Workflow interface {
	OnChange(fn func(workflow.Snapshot))
	Snapshot() workflow.Snapshot
	Tap(index int) (workflow.Snapshot, error)
	ClearSelection() (workflow.Snapshot, error)
	Trim(ctx context.Context) (*trim.Result, error)
	Save(ctx context.Context) (*workflow.SaveOutcome, error)
	Reset() workflow.Snapshot
}

// Model is the root bubbletea model.
type Model struct {
	wf      Workflow
	ctx     context.Context
	changes chan struct{}

	snap   workflow.Snapshot
	cursor int

	cancelTrim context.CancelFunc
	status     string
	errMsg     string
	saved      int

	width int
}

// New subscribes to wf. ctx bounds trims and saves started from the UI.
func New(ctx context.Context, wf Workflow) Model {
	changes := make(chan struct{}, 1)
	wf.OnChange(func(workflow.Snapshot) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	return Model{
		wf:      wf,
		ctx:     ctx,
		changes: changes,
		snap:    wf.Snapshot(),
		width:   80,
	}
}

func (m Model) Init() tea.Cmd {
	return waitForChange(m.wf, m.changes)
}

// waitForChange blocks until the workflow transitions. Notifications coalesce,
// so the snapshot is read after the wakeup rather than carried in it.
func waitForChange(wf Workflow, changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-changes
		return SnapshotMsg{Snapshot: wf.Snapshot()}
	}
}

func trimCmd(ctx context.Context, wf Workflow) tea.Cmd {
	return func() tea.Msg {
		res, err := wf.Trim(ctx)
		return TrimDoneMsg{Result: res, Err: err}
	}
}

func saveCmd(ctx context.Context, wf Workflow) tea.Cmd {
	return func() tea.Msg {
		out, err := wf.Save(ctx)
		return SaveDoneMsg{Outcome: out, Err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case SnapshotMsg:
		m.setSnapshot(msg.Snapshot)
		return m, waitForChange(m.wf, m.changes)

	case TrimDoneMsg:
		m.cancelTrim = nil
		switch {
		case errors.Is(msg.Err, workflow.ErrSessionReset):
			m.status = "Trim discarded"
		case msg.Err != nil:
			m.errMsg = msg.Err.Error()
		case msg.Result.Cancelled:
			m.status = "Trim cancelled"
		default:
			m.status = fmt.Sprintf("Trimmed %s", clipLabel(msg.Result.StartSeconds, msg.Result.EndSeconds))
		}
		m.setSnapshot(m.wf.Snapshot())
		return m, nil

	case SaveDoneMsg:
		if msg.Err != nil {
			if !errors.Is(msg.Err, workflow.ErrSessionReset) {
				m.errMsg = msg.Err.Error()
			}
		} else {
			m.saved = len(msg.Outcome.Videos)
			m.status = fmt.Sprintf("Saved to library (%d videos)", m.saved)
		}
		m.setSnapshot(m.wf.Snapshot())
		return m, nil
	}
	return m, nil
}

func (m *Model) setSnapshot(s workflow.Snapshot) {
	m.snap = s
	if n := len(s.Thumbnails); m.cursor >= n {
		m.cursor = max(0, n-1)
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key != KeyQuit && key != KeyCtrlC {
		m.errMsg = ""
	}

	switch key {
	case KeyQuit, KeyCtrlC:
		if m.cancelTrim != nil {
			m.cancelTrim()
			m.cancelTrim = nil
		}
		return m, tea.Quit

	case KeyLeft, KeyH:
		if m.cursor > 0 {
			m.cursor--
		}

	case KeyRight, KeyL:
		if m.cursor < len(m.snap.Thumbnails)-1 {
			m.cursor++
		}

	case KeyHome:
		m.cursor = 0

	case KeyEnd:
		m.cursor = max(0, len(m.snap.Thumbnails)-1)

	case KeySpace, KeySpaceName, KeyEnter:
		if len(m.snap.Thumbnails) == 0 {
			return m, nil
		}
		snap, err := m.wf.Tap(m.snap.Thumbnails[m.cursor].Index)
		if err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.setSnapshot(snap)

	case KeyClear:
		snap, err := m.wf.ClearSelection()
		if err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.setSnapshot(snap)

	case KeyTrim:
		if m.cancelTrim != nil {
			return m, nil
		}
		if !m.snap.CanTrim {
			m.errMsg = workflow.ErrNoCommittedRange.Error()
			return m, nil
		}
		ctx, cancel := context.WithCancel(m.ctx)
		m.cancelTrim = cancel
		m.status = "Trimming..."
		return m, trimCmd(ctx, m.wf)

	case KeyEsc:
		if m.cancelTrim != nil {
			m.cancelTrim()
			m.status = "Cancelling..."
		}

	case KeySave:
		if !m.snap.CanSave {
			m.errMsg = workflow.ErrNothingToSave.Error()
			return m, nil
		}
		m.status = "Saving..."
		return m, saveCmd(m.ctx, m.wf)

	case KeyReset:
		if m.cancelTrim != nil {
			m.cancelTrim()
			m.cancelTrim = nil
		}
		m.status = "Session reset"
		m.setSnapshot(m.wf.Reset())
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Heimdex Trim"))
	b.WriteString("\n")
	if m.snap.Session != nil {
		b.WriteString(StatusStyle.Render(fmt.Sprintf("%s  %s", m.snap.Session.Title, m.snap.Session.Video.Filename)))
	} else {
		b.WriteString(StatusStyle.Render("No video loaded"))
	}
	b.WriteString("\n\n")

	switch m.snap.State {
	case workflow.StateIdle:
		b.WriteString(StatusStyle.Render("Session closed."))
		b.WriteString("\n")
	case workflow.StateLoaded:
		b.WriteString(StatusStyle.Render("Generating thumbnails..."))
		b.WriteString("\n")
	default:
		b.WriteString(m.renderFrames())
		b.WriteString("\n\n")
		if m.snap.Prompt != "" {
			b.WriteString(PromptStyle.Render(m.snap.Prompt))
			b.WriteString("\n")
		}
	}

	for i, r := range m.snap.Results {
		b.WriteString(ResultStyle.Render(fmt.Sprintf("%d. %s -> %s", i+1, clipLabel(r.StartSeconds, r.EndSeconds), r.OutputPath)))
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString(StatusStyle.Render(m.status))
		b.WriteString("\n")
	}
	if msg := m.errorText(); msg != "" {
		b.WriteString(ErrorStyle.Render("Error: " + msg))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) errorText() string {
	if m.errMsg != "" {
		return m.errMsg
	}
	return m.snap.LastError
}

// renderFrames draws one cell per thumbnail, windowed around the cursor.
func (m Model) renderFrames() string {
	frames := m.snap.Thumbnails
	if len(frames) == 0 {
		return StatusStyle.Render("No thumbnails could be generated.")
	}

	const cellWidth = 5
	visible := max(1, m.width/cellWidth)
	first := 0
	if len(frames) > visible {
		first = min(max(0, m.cursor-visible/2), len(frames)-visible)
	}
	last := min(len(frames), first+visible)

	lo, hi, committed := -1, -1, len(m.snap.Selection) == 2
	if committed {
		lo, hi = m.snap.Selection[0], m.snap.Selection[1]
	}

	var b strings.Builder
	for i := first; i < last; i++ {
		idx := frames[i].Index
		cell := fmt.Sprintf("%4d", idx)
		style := FrameStyle
		switch {
		case i == m.cursor:
			style = CursorStyle
		case m.isPoint(idx):
			style = PointStyle
		case committed && idx > lo && idx < hi:
			style = InRangeStyle
		}
		b.WriteString(style.Render(cell))
		b.WriteString(" ")
	}
	return b.String()
}

func (m Model) isPoint(idx int) bool {
	for _, p := range m.snap.Selection {
		if p == idx {
			return true
		}
	}
	return false
}

func (m Model) renderFooter() string {
	keys := [][2]string{
		{"←/→", "move"},
		{"space", "tap"},
		{"c", "clear"},
		{"t", "trim"},
		{"s", "save"},
		{"r", "reset"},
		{"q", "quit"},
	}
	if m.cancelTrim != nil {
		keys = [][2]string{{"esc", "cancel trim"}, {"q", "quit"}}
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, FooterKeyStyle.Render(k[0])+" "+FooterDescStyle.Render(k[1]))
	}
	return strings.Join(parts, "  ")
}

// Saved reports how many videos the library held after the last save.
func (m Model) Saved() int {
	return m.saved
}

func clipLabel(start, end int) string {
	return fmt.Sprintf("%s-%s", trim.FormatTime(start), trim.FormatTime(end))
}
