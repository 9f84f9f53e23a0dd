// Package focus reports which top-level window holds input focus.
package focus

import "errors"

// EventType represents the kind of focus change reported by a tracker.
type EventType int

const (
	// EventFocused indicates a window gained focus.
	EventFocused EventType = iota + 1
	// EventCleared indicates no window holds focus.
	EventCleared
	// EventError communicates a transient query failure.
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventFocused:
		return "focused"
	case EventCleared:
		return "cleared"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Window identifies a focused top-level window.
type Window struct {
	ID    uint64
	Title string
	Class string
	PID   int32
}

// Valid reports whether the window carries an id usable for discovery.
func (w Window) Valid() bool {
	return w.ID != 0
}

// Event is delivered whenever the tracker observes a change.
type Event struct {
	Type   EventType
	Window Window
	Err    error
}

// Tracker follows the focused window.
type Tracker interface {
	Current() (Window, bool, error)
	Watch(stop <-chan struct{}) (<-chan Event, error)
	Close() error
}

// ErrUnavailable indicates focus tracking is not supported on this platform.
var ErrUnavailable = errors.New("focus tracking unavailable on this platform")
