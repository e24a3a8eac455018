// Package workflow drives a trim session: load a video and generate thumbnails,
// select a range by tapping frames, trim it, and save the result to the library.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/heimdex/heimdex-trim/internal/library"
	"github.com/heimdex/heimdex-trim/internal/logging"
	"github.com/heimdex/heimdex-trim/internal/selection"
	"github.com/heimdex/heimdex-trim/internal/store"
	"github.com/heimdex/heimdex-trim/internal/thumbnail"
	"github.com/heimdex/heimdex-trim/internal/trim"
)

type State string

const (
	StateIdle            State = "idle"
	StateLoaded          State = "loaded"
	StateThumbnailsReady State = "thumbnails_ready"
	StateSelecting       State = "selecting"
	StateTrimming        State = "trimming"
	StateTrimmed         State = "trimmed"
	StateSaving          State = "saving"
	StateSaved           State = "saved"
)

var (
	ErrNoSession        = errors.New("no video loaded")
	ErrNotReady         = errors.New("thumbnails are still being generated")
	ErrUnknownFrame     = errors.New("no thumbnail at that index")
	ErrNoCommittedRange = errors.New("select a start and an end frame first")
	ErrTrimInProgress   = errors.New("a trim is already in progress")
	ErrBusy             = errors.New("another operation is in progress")
	ErrNothingToSave    = errors.New("no unsaved trim")
	ErrSessionReset     = errors.New("session was reset")
)

type Trimmer interface {
	Trim(ctx context.Context, sourcePath string, start, end int) (*trim.Result, error)
}

type ThumbnailGenerator interface {
	Generate(ctx context.Context, source string, durationMs int64) []thumbnail.Frame
	Clear() error
}

type Library interface {
	Save(ctx context.Context, v library.NewVideo) ([]library.SavedVideo, error)
}

// Journal records every trim attempt. Journal failures are logged, never surfaced.
type Journal interface {
	CreateTrim(ctx context.Context, rec *store.TrimRecord) error
	FinishTrim(ctx context.Context, id string, outcome store.TrimOutcome) error
}

type Deps struct {
	Trimmer    Trimmer
	Thumbnails ThumbnailGenerator
	Library    Library
	Journal    Journal // optional
	Logger     *slog.Logger
}

// Snapshot is a copy of the orchestrator state for observers.
type Snapshot struct {
	State      State                `json:"state"`
	Session    *Session             `json:"session,omitempty"`
	Thumbnails []thumbnail.Frame    `json:"thumbnails"`
	Selection  []int                `json:"selection"`
	Prompt     string               `json:"prompt,omitempty"`
	CanTrim    bool                 `json:"can_trim"`
	CanSave    bool                 `json:"can_save"`
	Results    []trim.Result        `json:"results"`
	LastError  string               `json:"last_error,omitempty"`
	Saved      []library.SavedVideo `json:"saved,omitempty"`
}

// SaveOutcome is returned by a successful Save. NavigateToLibrary tells the UI
// to leave the trim screen for the library view.
type SaveOutcome struct {
	Videos            []library.SavedVideo `json:"videos"`
	NavigateToLibrary bool                 `json:"navigate_to_library"`
}

type Orchestrator struct {
	deps   Deps
	logger *slog.Logger

	mu         sync.Mutex
	state      State
	session    *Session
	frames     []thumbnail.Frame
	sel        selection.State
	results    []trim.Result
	unsaved    bool
	saved      []library.SavedVideo
	lastErr    error
	generation uint64
	cancel     context.CancelFunc
	loading    chan struct{}
	listeners  []func(Snapshot)
}

func New(deps Deps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Orchestrator{
		deps:   deps,
		logger: logging.WithComponent(logger, "workflow"),
		state:  StateIdle,
	}
}

// OnChange registers fn to receive a snapshot after every transition.
// fn runs on the goroutine that caused the transition and must not block.
func (o *Orchestrator) OnChange(fn func(Snapshot)) {
	o.mu.Lock()
	o.listeners = append(o.listeners, fn)
	o.mu.Unlock()
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Load starts s, discarding any previous session, and generates its thumbnails.
// A load still generating thumbnails is cancelled and replaced.
// It returns once thumbnails are ready.
func (o *Orchestrator) Load(ctx context.Context, s *Session) (Snapshot, error) {
	gen, ctx, done, err := o.beginLoad(ctx, s)
	if err != nil {
		return Snapshot{}, err
	}
	return o.generate(ctx, gen, s, done)
}

// LoadAsync validates and enters the loaded state, then generates thumbnails on
// a new goroutine. ctx must outlive the call.
func (o *Orchestrator) LoadAsync(ctx context.Context, s *Session) (Snapshot, error) {
	gen, ctx, done, err := o.beginLoad(ctx, s)
	if err != nil {
		return Snapshot{}, err
	}
	go o.generate(ctx, gen, s, done)
	return o.Snapshot(), nil
}

func (o *Orchestrator) beginLoad(ctx context.Context, s *Session) (uint64, context.Context, chan struct{}, error) {
	if s == nil {
		return 0, nil, nil, ErrNoSession
	}

	o.mu.Lock()
	for {
		switch o.state {
		case StateTrimming:
			o.mu.Unlock()
			return 0, nil, nil, ErrTrimInProgress
		case StateSaving:
			o.mu.Unlock()
			return 0, nil, nil, ErrBusy
		}
		if o.loading == nil {
			break
		}
		// The previous generator shares the scratch directory, so it must stop
		// before the next one starts.
		prev := o.loading
		o.release()
		o.generation++
		o.mu.Unlock()
		<-prev
		o.mu.Lock()
	}

	o.clearLocked()
	o.session = s
	o.state = StateLoaded
	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	done := make(chan struct{})
	o.loading = done
	gen := o.generation
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.logger.Info("session loaded",
		"session_id", s.ID,
		"source", logging.SanitizePath(s.Video.Path()),
		"duration_ms", s.Video.DurationMs,
	)
	o.emit(snap)
	return gen, ctx, done, nil
}

func (o *Orchestrator) generate(ctx context.Context, gen uint64, s *Session, done chan struct{}) (Snapshot, error) {
	frames := o.deps.Thumbnails.Generate(ctx, s.Video.URI, s.Video.DurationMs)

	o.mu.Lock()
	if o.loading == done {
		o.loading = nil
	}
	close(done)
	if o.generation != gen {
		o.mu.Unlock()
		return Snapshot{}, ErrSessionReset
	}
	o.release()
	o.frames = frames
	o.state = StateThumbnailsReady
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.logger.Info("thumbnails ready", "session_id", s.ID, "count", len(frames))
	o.emit(snap)
	return snap, nil
}

// Tap feeds a tapped thumbnail index into the selection.
func (o *Orchestrator) Tap(index int) (Snapshot, error) {
	o.mu.Lock()
	if err := o.readyLocked(); err != nil {
		o.mu.Unlock()
		return Snapshot{}, err
	}
	if !o.hasFrameLocked(index) {
		o.mu.Unlock()
		return Snapshot{}, fmt.Errorf("%w: %d", ErrUnknownFrame, index)
	}

	o.sel = o.sel.Tap(index)
	o.state = StateSelecting
	o.lastErr = nil
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.emit(snap)
	return snap, nil
}

// ClearSelection drops any partial or committed selection.
func (o *Orchestrator) ClearSelection() (Snapshot, error) {
	o.mu.Lock()
	if err := o.readyLocked(); err != nil {
		o.mu.Unlock()
		return Snapshot{}, err
	}
	o.sel = o.sel.Reset()
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.emit(snap)
	return snap, nil
}

// Trim cuts the committed range. Only one trim runs at a time. On success the
// selection resets so another range can be cut from the same source. On cancel
// or error the selection is kept so the user can retry.
func (o *Orchestrator) Trim(ctx context.Context) (*trim.Result, error) {
	o.mu.Lock()
	if err := o.readyLocked(); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	lo, hi, ok := o.sel.Range()
	if !ok {
		o.mu.Unlock()
		return nil, ErrNoCommittedRange
	}
	if lo == hi {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w (start=%d end=%d)", trim.ErrInvalidRange, lo, hi)
	}

	s := o.session
	o.state = StateTrimming
	o.lastErr = nil
	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	gen := o.generation
	snap := o.snapshotLocked()
	o.mu.Unlock()
	o.emit(snap)

	journalID := o.journalStart(ctx, s, lo, hi)
	start := time.Now()

	res, err := o.deps.Trimmer.Trim(ctx, s.Video.URI, lo, hi)

	o.journalFinish(journalID, res, err)

	o.mu.Lock()
	if o.generation != gen {
		o.mu.Unlock()
		return nil, ErrSessionReset
	}
	o.release()

	logger := o.logger.With("session_id", s.ID, "duration_ms", time.Since(start).Milliseconds())
	switch {
	case err != nil:
		o.state = StateSelecting
		o.lastErr = err
		logger.Warn("trim failed", "error", err)
	case res.Cancelled:
		o.state = StateSelecting
		logger.Info("trim cancelled, selection kept")
	default:
		o.results = append(o.results, *res)
		o.unsaved = true
		o.sel = o.sel.Reset()
		o.state = StateTrimmed
		logger.Info("trim complete", "output", logging.SanitizePath(res.OutputPath))
	}
	snap = o.snapshotLocked()
	o.mu.Unlock()

	o.emit(snap)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Save persists the most recent trim with the session's title and description.
// The trim stays saveable while the user selects again, until it is saved or the
// session ends. On failure the previous state is restored so the save can be retried.
func (o *Orchestrator) Save(ctx context.Context) (*SaveOutcome, error) {
	o.mu.Lock()
	if err := o.readyLocked(); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	if !o.unsaved {
		o.mu.Unlock()
		return nil, ErrNothingToSave
	}

	prev := o.state
	s := o.session
	latest := o.results[len(o.results)-1]
	o.state = StateSaving
	o.lastErr = nil
	gen := o.generation
	snap := o.snapshotLocked()
	o.mu.Unlock()
	o.emit(snap)

	start, end := latest.StartSeconds, latest.EndSeconds
	videos, err := o.deps.Library.Save(ctx, library.NewVideo{
		URI:          latest.OutputPath,
		Title:        s.Title,
		Description:  s.Description,
		Source:       latest.SourcePath,
		StartSeconds: &start,
		EndSeconds:   &end,
	})

	o.mu.Lock()
	if o.generation != gen {
		o.mu.Unlock()
		return nil, ErrSessionReset
	}
	if err != nil {
		o.state = prev
		o.lastErr = err
		snap = o.snapshotLocked()
		o.mu.Unlock()
		o.logger.Warn("save failed", "session_id", s.ID, "error", err)
		o.emit(snap)
		return nil, err
	}

	o.state = StateSaved
	o.unsaved = false
	o.saved = videos
	snap = o.snapshotLocked()
	o.mu.Unlock()

	o.logger.Info("trim saved to library", "session_id", s.ID, "library_size", len(videos))
	o.emit(snap)
	return &SaveOutcome{Videos: videos, NavigateToLibrary: true}, nil
}

// Reset drops the session, stops any in-flight work and clears the thumbnail
// scratch directory.
func (o *Orchestrator) Reset() Snapshot {
	o.mu.Lock()
	prev := o.session
	o.clearLocked()
	o.state = StateIdle
	snap := o.snapshotLocked()
	o.mu.Unlock()

	if err := o.deps.Thumbnails.Clear(); err != nil {
		o.logger.Warn("failed to clear thumbnails", "error", err)
	}
	if prev != nil {
		o.logger.Info("session reset", "session_id", prev.ID)
	}
	o.emit(snap)
	return snap
}

// clearLocked cancels in-flight work and invalidates its completion.
func (o *Orchestrator) clearLocked() {
	o.release()
	o.generation++
	o.session = nil
	o.frames = nil
	o.sel = o.sel.Reset()
	o.results = nil
	o.unsaved = false
	o.saved = nil
	o.lastErr = nil
}

func (o *Orchestrator) release() {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

// readyLocked reports whether the session accepts selection and trim input.
func (o *Orchestrator) readyLocked() error {
	switch o.state {
	case StateIdle:
		return ErrNoSession
	case StateLoaded:
		return ErrNotReady
	case StateTrimming:
		return ErrTrimInProgress
	case StateSaving:
		return ErrBusy
	}
	return nil
}

func (o *Orchestrator) hasFrameLocked(index int) bool {
	for _, f := range o.frames {
		if f.Index == index {
			return true
		}
	}
	return false
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:      o.state,
		Thumbnails: append([]thumbnail.Frame{}, o.frames...),
		Selection:  o.sel.Points(),
		Results:    append([]trim.Result{}, o.results...),
		Saved:      append([]library.SavedVideo(nil), o.saved...),
	}
	if o.session != nil {
		s := *o.session
		snap.Session = &s
		snap.Prompt = o.sel.Prompt()
	}
	if o.readyLocked() == nil {
		lo, hi, ok := o.sel.Range()
		snap.CanTrim = ok && lo < hi
	}
	snap.CanSave = o.unsaved && o.readyLocked() == nil
	if o.lastErr != nil {
		snap.LastError = o.lastErr.Error()
	}
	return snap
}

func (o *Orchestrator) emit(snap Snapshot) {
	o.mu.Lock()
	listeners := append([]func(Snapshot){}, o.listeners...)
	o.mu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
}

func (o *Orchestrator) journalStart(ctx context.Context, s *Session, lo, hi int) string {
	if o.deps.Journal == nil {
		return ""
	}
	now := time.Now()
	rec := &store.TrimRecord{
		ID:           store.NewID(),
		SessionID:    s.ID,
		SourcePath:   s.Video.Path(),
		StartSeconds: lo,
		EndSeconds:   hi,
		Status:       store.TrimStatusRunning,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// The journal write must not be cut short by a trim cancel.
	if err := o.deps.Journal.CreateTrim(context.WithoutCancel(ctx), rec); err != nil {
		o.logger.Warn("failed to journal trim", "error", err)
		return ""
	}
	return rec.ID
}

func (o *Orchestrator) journalFinish(id string, res *trim.Result, err error) {
	if id == "" {
		return
	}
	outcome := store.TrimOutcome{Status: store.TrimStatusCompleted}
	var pf *trim.ProcessFailedError
	switch {
	case errors.As(err, &pf):
		code := pf.ExitCode
		outcome = store.TrimOutcome{Status: store.TrimStatusFailed, ExitCode: &code, Error: err.Error()}
	case err != nil:
		outcome = store.TrimOutcome{Status: store.TrimStatusFailed, Error: err.Error()}
	case res.Cancelled:
		outcome = store.TrimOutcome{Status: store.TrimStatusCancelled}
	default:
		outcome.OutputPath = res.OutputPath
	}
	if err := o.deps.Journal.FinishTrim(context.Background(), id, outcome); err != nil {
		o.logger.Warn("failed to finish trim journal entry", "trim_id", id, "error", err)
	}
}
