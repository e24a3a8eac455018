package tui

// Key bindings handled in handleKey.
const (
	KeyQuit      = "q"
	KeyCtrlC     = "ctrl+c"
	KeyLeft      = "left"
	KeyRight     = "right"
	KeyH         = "h"
	KeyL         = "l"
	KeyHome      = "home"
	KeyEnd       = "end"
	KeySpace     = " "
	KeySpaceName = "space"
	KeyEnter     = "enter"
	KeyTrim      = "t"
	KeySave      = "s"
	KeyClear     = "c"
	KeyReset     = "r"
	KeyEsc       = "esc"
)
