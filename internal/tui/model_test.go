package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/heimdex/heimdex-trim/internal/library"
	"github.com/heimdex/heimdex-trim/internal/picker"
	"github.com/heimdex/heimdex-trim/internal/thumbnail"
	"github.com/heimdex/heimdex-trim/internal/trim"
	"github.com/heimdex/heimdex-trim/internal/workflow"
)

type fakeWorkflow struct {
	snap      workflow.Snapshot
	listeners []func(workflow.Snapshot)
	taps      []int
	resets    int
	trimFn    func(ctx context.Context) (*trim.Result, error)
	saveFn    func(ctx context.Context) (*workflow.SaveOutcome, error)
}

func (f *fakeWorkflow) OnChange(fn func(workflow.Snapshot)) {
	f.listeners = append(f.listeners, fn)
}

func (f *fakeWorkflow) Snapshot() workflow.Snapshot { return f.snap }

func (f *fakeWorkflow) Tap(index int) (workflow.Snapshot, error) {
	f.taps = append(f.taps, index)
	f.snap.Selection = append(f.snap.Selection, index)
	f.snap.CanTrim = len(f.snap.Selection) == 2
	return f.snap, nil
}

func (f *fakeWorkflow) ClearSelection() (workflow.Snapshot, error) {
	f.snap.Selection = []int{}
	f.snap.CanTrim = false
	return f.snap, nil
}

func (f *fakeWorkflow) Trim(ctx context.Context) (*trim.Result, error) {
	return f.trimFn(ctx)
}

func (f *fakeWorkflow) Save(ctx context.Context) (*workflow.SaveOutcome, error) {
	return f.saveFn(ctx)
}

func (f *fakeWorkflow) Reset() workflow.Snapshot {
	f.resets++
	f.snap = workflow.Snapshot{State: workflow.StateIdle}
	return f.snap
}

func (f *fakeWorkflow) notify() {
	for _, fn := range f.listeners {
		fn(f.snap)
	}
}

func readySnapshot(n int) workflow.Snapshot {
	frames := make([]thumbnail.Frame, n)
	for i := range frames {
		frames[i] = thumbnail.Frame{Index: i, Path: "/tmp/thumb.jpg"}
	}
	return workflow.Snapshot{
		State:      workflow.StateThumbnailsReady,
		Session:    &workflow.Session{ID: "s1", Title: "Beach", Video: picker.Asset{Filename: "beach.mp4"}},
		Thumbnails: frames,
		Selection:  []int{},
		Prompt:     "select start",
	}
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case KeyLeft:
		return tea.KeyMsg{Type: tea.KeyLeft}
	case KeyRight:
		return tea.KeyMsg{Type: tea.KeyRight}
	case KeySpace:
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case KeyEsc:
		return tea.KeyMsg{Type: tea.KeyEsc}
	case KeyCtrlC:
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var updated tea.Model
		updated, cmd = m.Update(keyMsg(k))
		m = updated.(Model)
	}
	return m, cmd
}

func TestNew_TakesInitialSnapshot(t *testing.T) {
	wf := &fakeWorkflow{snap: readySnapshot(5)}
	m := New(context.Background(), wf)

	if m.snap.State != workflow.StateThumbnailsReady {
		t.Errorf("state = %s", m.snap.State)
	}
	if len(wf.listeners) != 1 {
		t.Errorf("listeners = %d, want 1", len(wf.listeners))
	}
}

func TestCursorMovementIsBounded(t *testing.T) {
	m := New(context.Background(), &fakeWorkflow{snap: readySnapshot(3)})

	m, _ = press(t, m, KeyLeft)
	if m.cursor != 0 {
		t.Errorf("cursor = %d after left at 0", m.cursor)
	}
	m, _ = press(t, m, KeyRight, KeyRight, KeyRight, KeyRight)
	if m.cursor != 2 {
		t.Errorf("cursor = %d, want 2", m.cursor)
	}
	m, _ = press(t, m, KeyH)
	if m.cursor != 1 {
		t.Errorf("cursor = %d after h, want 1", m.cursor)
	}
}

func TestSpaceTapsFrameUnderCursor(t *testing.T) {
	wf := &fakeWorkflow{snap: readySnapshot(10)}
	m := New(context.Background(), wf)

	m, _ = press(t, m, KeyRight, KeyRight, KeySpace, KeyRight, KeyRight, KeyRight, KeySpace)

	if len(wf.taps) != 2 || wf.taps[0] != 2 || wf.taps[1] != 5 {
		t.Fatalf("taps = %v, want [2 5]", wf.taps)
	}
	if !m.snap.CanTrim {
		t.Error("model should see a trimmable range")
	}
}

func TestTrimWithoutRangeShowsError(t *testing.T) {
	m := New(context.Background(), &fakeWorkflow{snap: readySnapshot(5)})

	m, cmd := press(t, m, KeyTrim)
	if cmd != nil {
		t.Error("trim without a range should not start a command")
	}
	if m.errMsg != workflow.ErrNoCommittedRange.Error() {
		t.Errorf("errMsg = %q", m.errMsg)
	}
}

func TestTrimRunsAndReportsResult(t *testing.T) {
	wf := &fakeWorkflow{snap: readySnapshot(10)}
	wf.trimFn = func(ctx context.Context) (*trim.Result, error) {
		res := &trim.Result{OutputPath: "/out/trim.mp4", StartSeconds: 2, EndSeconds: 5}
		wf.snap.State = workflow.StateTrimmed
		wf.snap.Results = []trim.Result{*res}
		wf.snap.CanSave = true
		return res, nil
	}
	m := New(context.Background(), wf)
	m, _ = press(t, m, KeyRight, KeyRight, KeySpace, KeyRight, KeyRight, KeyRight, KeySpace)

	m, cmd := press(t, m, KeyTrim)
	if cmd == nil {
		t.Fatal("trim should return a command")
	}
	if m.cancelTrim == nil {
		t.Error("trim in flight should be cancellable")
	}

	updated, _ := m.Update(cmd())
	m = updated.(Model)

	if m.cancelTrim != nil {
		t.Error("cancel func should be cleared after the trim returns")
	}
	if m.status != "Trimmed 00:00:02-00:00:05" {
		t.Errorf("status = %q", m.status)
	}
	if !strings.Contains(m.View(), "/out/trim.mp4") {
		t.Error("view should list the trimmed output")
	}
}

func TestEscCancelsTrim(t *testing.T) {
	wf := &fakeWorkflow{snap: readySnapshot(10)}
	wf.snap.CanTrim = true
	wf.trimFn = func(ctx context.Context) (*trim.Result, error) {
		<-ctx.Done()
		return &trim.Result{Cancelled: true}, nil
	}
	m := New(context.Background(), wf)

	m, cmd := press(t, m, KeyTrim)
	m, _ = press(t, m, KeyEsc)

	updated, _ := m.Update(cmd())
	m = updated.(Model)
	if m.status != "Trim cancelled" {
		t.Errorf("status = %q", m.status)
	}
}

func TestTrimErrorIsShown(t *testing.T) {
	wf := &fakeWorkflow{snap: readySnapshot(10)}
	wf.snap.CanTrim = true
	wf.trimFn = func(ctx context.Context) (*trim.Result, error) {
		return nil, &trim.ProcessFailedError{ExitCode: 1, Logs: "moov atom not found"}
	}
	m := New(context.Background(), wf)

	m, cmd := press(t, m, KeyTrim)
	updated, _ := m.Update(cmd())
	m = updated.(Model)

	if !strings.Contains(m.View(), "Error:") {
		t.Error("view should show the trim error")
	}
}

func TestSave(t *testing.T) {
	wf := &fakeWorkflow{snap: readySnapshot(3)}
	wf.saveFn = func(ctx context.Context) (*workflow.SaveOutcome, error) {
		wf.snap.State = workflow.StateSaved
		wf.snap.CanSave = false
		return &workflow.SaveOutcome{Videos: make([]library.SavedVideo, 4), NavigateToLibrary: true}, nil
	}
	m := New(context.Background(), wf)

	m, cmd := press(t, m, KeySave)
	if cmd != nil {
		t.Fatal("save before a trim should not start a command")
	}
	if m.errMsg != workflow.ErrNothingToSave.Error() {
		t.Errorf("errMsg = %q", m.errMsg)
	}

	wf.snap.State = workflow.StateTrimmed
	wf.snap.CanSave = true
	m.snap = wf.snap

	m, cmd = press(t, m, KeySave)
	if cmd == nil {
		t.Fatal("save should return a command")
	}
	updated, _ := m.Update(cmd())
	m = updated.(Model)

	if m.Saved() != 4 {
		t.Errorf("Saved() = %d, want 4", m.Saved())
	}
	if m.snap.State != workflow.StateSaved {
		t.Errorf("state = %s", m.snap.State)
	}
}

func TestSaveErrorIsShown(t *testing.T) {
	wf := &fakeWorkflow{snap: readySnapshot(3)}
	wf.snap.State = workflow.StateTrimmed
	wf.snap.CanSave = true
	wf.saveFn = func(ctx context.Context) (*workflow.SaveOutcome, error) {
		return nil, errors.New("disk full")
	}
	m := New(context.Background(), wf)

	m, cmd := press(t, m, KeySave)
	updated, _ := m.Update(cmd())
	m = updated.(Model)

	if m.errMsg != "disk full" {
		t.Errorf("errMsg = %q", m.errMsg)
	}
}

func TestResetAndClear(t *testing.T) {
	wf := &fakeWorkflow{snap: readySnapshot(3)}
	m := New(context.Background(), wf)

	m, _ = press(t, m, KeySpace, KeyClear)
	if len(m.snap.Selection) != 0 {
		t.Errorf("selection = %v after clear", m.snap.Selection)
	}

	m, _ = press(t, m, KeyReset)
	if wf.resets != 1 {
		t.Errorf("resets = %d", wf.resets)
	}
	if m.snap.State != workflow.StateIdle {
		t.Errorf("state = %s", m.snap.State)
	}
	if !strings.Contains(m.View(), "Session closed.") {
		t.Error("view should show the closed session")
	}
}

func TestSnapshotMsgFromWorkflowChange(t *testing.T) {
	wf := &fakeWorkflow{snap: workflow.Snapshot{State: workflow.StateLoaded}}
	m := New(context.Background(), wf)
	if !strings.Contains(m.View(), "Generating thumbnails") {
		t.Error("view should show generation in progress")
	}

	wf.snap = readySnapshot(4)
	wf.notify()
	wf.notify()

	updated, next := m.Update(m.Init()())
	m = updated.(Model)
	if m.snap.State != workflow.StateThumbnailsReady {
		t.Errorf("state = %s", m.snap.State)
	}
	if next == nil {
		t.Error("snapshot handling should keep waiting for changes")
	}
	if !strings.Contains(m.View(), "select start") {
		t.Error("view should show the selection prompt")
	}
}

func TestQuit(t *testing.T) {
	for _, key := range []string{KeyQuit, KeyCtrlC} {
		m := New(context.Background(), &fakeWorkflow{snap: readySnapshot(1)})
		_, cmd := press(t, m, key)
		if cmd == nil {
			t.Fatalf("%s: no command", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s: command did not quit", key)
		}
	}
}

func TestRenderFramesWindowsAroundCursor(t *testing.T) {
	m := New(context.Background(), &fakeWorkflow{snap: readySnapshot(100)})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 50, Height: 20})
	m = updated.(Model)
	m.cursor = 60

	out := m.renderFrames()
	if !strings.Contains(out, "60") {
		t.Error("cursor frame should be visible")
	}
	if strings.Contains(out, "  10 ") {
		t.Error("frames far from the cursor should be hidden")
	}
}
