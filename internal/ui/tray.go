// Package ui runs the system tray icon that mirrors the trim session.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/getlantern/systray"

	"github.com/heimdex/heimdex-trim/internal/library"
	"github.com/heimdex/heimdex-trim/internal/logging"
	"github.com/heimdex/heimdex-trim/internal/workflow"
)

type Tray struct {
	workflow *workflow.Orchestrator
	library  library.LibraryService
	logger   *slog.Logger

	statusItem  *systray.MenuItem
	sessionItem *systray.MenuItem
	libraryItem *systray.MenuItem
	resetItem   *systray.MenuItem

	mu sync.Mutex

	onQuit func()
}

type TrayConfig struct {
	Workflow *workflow.Orchestrator
	Library  library.LibraryService
	Logger   *slog.Logger
	OnQuit   func()
}

func NewTray(cfg TrayConfig) *Tray {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Tray{
		workflow: cfg.Workflow,
		library:  cfg.Library,
		logger:   logging.WithComponent(logger, "tray"),
		onQuit:   cfg.OnQuit,
	}
}

// Run blocks on the platform event loop until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Heimdex Trim")
	systray.SetTooltip("Heimdex Trim Agent")

	t.mu.Lock()
	t.statusItem = systray.AddMenuItem("Status: Idle", "Current session state")
	t.statusItem.Disable()
	t.sessionItem = systray.AddMenuItem("No video loaded", "Loaded source video")
	t.sessionItem.Disable()
	t.libraryItem = systray.AddMenuItem("Library: 0 videos", "Saved trims")
	t.libraryItem.Disable()
	systray.AddSeparator()
	t.resetItem = systray.AddMenuItem("Reset Session", "Discard the loaded video and selection")
	systray.AddSeparator()
	quitItem := systray.AddMenuItem("Quit", "Quit Heimdex Trim")
	t.mu.Unlock()

	if t.workflow != nil {
		t.workflow.OnChange(t.Update)
		t.Update(t.workflow.Snapshot())
	}
	t.refreshLibrary()

	go func() {
		for {
			select {
			case <-t.resetItem.ClickedCh:
				t.logger.Info("session reset requested from tray")
				if t.workflow != nil {
					t.workflow.Reset()
				}
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

// Update redraws the menu from a workflow snapshot.
func (t *Tray) Update(s workflow.Snapshot) {
	t.mu.Lock()
	if t.statusItem == nil {
		t.mu.Unlock()
		return
	}
	t.statusItem.SetTitle(StatusTitle(s))
	t.sessionItem.SetTitle(SessionTitle(s))
	if s.State == workflow.StateIdle {
		t.resetItem.Disable()
	} else {
		t.resetItem.Enable()
	}
	t.mu.Unlock()

	if s.State == workflow.StateSaved {
		t.refreshLibrary()
	}
}

func (t *Tray) refreshLibrary() {
	if t.library == nil {
		return
	}
	n, err := t.library.Count(context.Background())
	if err != nil {
		t.logger.Warn("failed to count library", "error", err)
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.libraryItem != nil {
		t.libraryItem.SetTitle(LibraryTitle(n))
	}
}

func (t *Tray) Quit() {
	systray.Quit()
}

// StatusTitle is the status line shown for s.
func StatusTitle(s workflow.Snapshot) string {
	if s.LastError != "" && s.State == workflow.StateSelecting {
		return "Status: Trim failed"
	}
	switch s.State {
	case workflow.StateIdle:
		return "Status: Idle"
	case workflow.StateLoaded:
		return "Status: Generating thumbnails"
	case workflow.StateThumbnailsReady, workflow.StateSelecting:
		return "Status: " + capitalize(s.Prompt)
	case workflow.StateTrimming:
		return "Status: Trimming"
	case workflow.StateTrimmed:
		return fmt.Sprintf("Status: Trimmed (%d ready)", len(s.Results))
	case workflow.StateSaving:
		return "Status: Saving"
	case workflow.StateSaved:
		return "Status: Saved to library"
	}
	return "Status: " + string(s.State)
}

func SessionTitle(s workflow.Snapshot) string {
	if s.Session == nil {
		return "No video loaded"
	}
	return fmt.Sprintf("%s (%s)", s.Session.Title, s.Session.Video.Filename)
}

func LibraryTitle(n int) string {
	if n == 1 {
		return "Library: 1 video"
	}
	return fmt.Sprintf("Library: %d videos", n)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
