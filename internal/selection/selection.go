// Package selection turns frame taps into a committed trim range.
package selection

import "fmt"

// Phase is how many points are currently selected.
type Phase int

const (
	Empty Phase = iota
	OnePoint
	TwoPoints
)

func (p Phase) String() string {
	switch p {
	case Empty:
		return "empty"
	case OnePoint:
		return "one_point"
	case TwoPoints:
		return "two_points"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is a zero, one or two point selection. The zero value is Empty.
// In TwoPoints, Lo <= Hi always holds.
type State struct {
	Phase Phase
	Lo    int
	Hi    int
}

// Tap advances the selection with a tapped frame index.
func (s State) Tap(i int) State {
	switch s.Phase {
	case OnePoint:
		lo, hi := s.Lo, i
		if hi < lo {
			lo, hi = hi, lo
		}
		return State{Phase: TwoPoints, Lo: lo, Hi: hi}
	default:
		// Empty starts a selection; a third tap discards the committed range.
		return State{Phase: OnePoint, Lo: i, Hi: i}
	}
}

// Range reports the committed range. ok is false unless both points are set.
func (s State) Range() (lo, hi int, ok bool) {
	if s.Phase != TwoPoints {
		return 0, 0, false
	}
	return s.Lo, s.Hi, true
}

// Start returns the pending start point while in OnePoint.
func (s State) Start() (int, bool) {
	if s.Phase != OnePoint {
		return 0, false
	}
	return s.Lo, true
}

// Points lists the selected indices in ascending order.
func (s State) Points() []int {
	switch s.Phase {
	case OnePoint:
		return []int{s.Lo}
	case TwoPoints:
		return []int{s.Lo, s.Hi}
	default:
		return []int{}
	}
}

// Contains reports whether index i is one of the selected points.
func (s State) Contains(i int) bool {
	for _, p := range s.Points() {
		if p == i {
			return true
		}
	}
	return false
}

// Reset discards any selection.
func (State) Reset() State {
	return State{}
}

// Prompt tells the UI what to ask for next.
func (s State) Prompt() string {
	switch s.Phase {
	case OnePoint:
		return "select end"
	case TwoPoints:
		return "ready to trim"
	default:
		return "select start"
	}
}

func (s State) String() string {
	switch s.Phase {
	case OnePoint:
		return fmt.Sprintf("OnePoint(%d)", s.Lo)
	case TwoPoints:
		return fmt.Sprintf("TwoPoints(%d,%d)", s.Lo, s.Hi)
	default:
		return "Empty"
	}
}
