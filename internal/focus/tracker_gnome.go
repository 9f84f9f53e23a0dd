//go:build linux

package focus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/example/globalmenu/internal/logging"
)

const (
	shellBusName       = "org.gnome.Shell"
	focusedWindowPath  = dbus.ObjectPath("/org/gnome/shell/extensions/FocusedWindow")
	focusedWindowGet   = "org.gnome.shell.extensions.FocusedWindow.Get"
	defaultInterval    = 500 * time.Millisecond
	focusedWindowError = "org.gnome.gjs.JSError.Error"
)

// windowSource returns the raw description of the focused window, or an
// empty string when nothing is focused.
type windowSource interface {
	FocusedWindow(ctx context.Context) (string, error)
}

type shellSource struct {
	obj dbus.BusObject
}

func (s shellSource) FocusedWindow(ctx context.Context) (string, error) {
	logging.LogBusCall(shellBusName, focusedWindowPath, focusedWindowGet)
	var raw string
	err := s.obj.CallWithContext(ctx, focusedWindowGet, 0).Store(&raw)
	if err != nil {
		var dbusErr dbus.Error
		if errors.As(err, &dbusErr) && dbusErr.Name == focusedWindowError {
			// The extension raises when no window has focus.
			return "", nil
		}
		return "", fmt.Errorf("query focused window: %w", err)
	}
	return raw, nil
}

// NewGnomeTracker constructs a tracker backed by the FocusedWindow GNOME
// Shell extension.
func NewGnomeTracker(conn *dbus.Conn, interval time.Duration) (Tracker, error) {
	if conn == nil {
		return nil, errors.New("focus: nil bus connection")
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	source := shellSource{obj: conn.Object(shellBusName, focusedWindowPath)}
	return newGnomeTracker(source, interval), nil
}

func newGnomeTracker(source windowSource, interval time.Duration) *gnomeTracker {
	return &gnomeTracker{
		source:   source,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

type gnomeTracker struct {
	source   windowSource
	interval time.Duration

	mu     sync.Mutex
	closed bool
	stop   chan struct{}
}

func (t *gnomeTracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	close(t.stop)
	t.closed = true
	return nil
}

func (t *gnomeTracker) Current() (Window, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return t.query(ctx)
}

func (t *gnomeTracker) Watch(stop <-chan struct{}) (<-chan Event, error) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return nil, errors.New("focus: tracker closed")
	}
	events := make(chan Event, 8)
	go t.monitor(stop, events)
	return events, nil
}

func (t *gnomeTracker) monitor(stop <-chan struct{}, events chan<- Event) {
	defer close(events)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
		case <-t.stop:
		}
		cancel()
	}()

	var previous *Window

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}

		window, ok, err := t.query(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !send(ctx, events, Event{Type: EventError, Err: err}) {
				return
			}
		} else {
			var current *Window
			if ok {
				current = &window
			}
			if !emitDiff(ctx, events, previous, current) {
				return
			}
			previous = current
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// emitDiff reports the transition from previous to current. Polls that see
// the same window as before produce nothing; a changed title on the same
// window is reported so the menu title can follow it.
func emitDiff(ctx context.Context, events chan<- Event, previous, current *Window) bool {
	switch {
	case current == nil && previous == nil:
		return true
	case current == nil:
		return send(ctx, events, Event{Type: EventCleared, Window: *previous})
	case previous != nil && *previous == *current:
		return true
	default:
		return send(ctx, events, Event{Type: EventFocused, Window: *current})
	}
}

func send(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (t *gnomeTracker) query(ctx context.Context) (Window, bool, error) {
	raw, err := t.source.FocusedWindow(ctx)
	if err != nil {
		return Window{}, false, err
	}
	return parseWindow(raw)
}

type shellWindow struct {
	ID      uint64 `json:"id"`
	Title   string `json:"title"`
	WMClass string `json:"wm_class"`
	PID     int32  `json:"pid"`
	// Some extension versions report the X11 window id separately from the
	// compositor's stable id.
	XID uint64 `json:"xid"`
}

func parseWindow(raw string) (Window, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" || raw == "{}" {
		return Window{}, false, nil
	}
	var sw shellWindow
	if err := json.Unmarshal([]byte(raw), &sw); err != nil {
		return Window{}, false, fmt.Errorf("decode focused window: %w", err)
	}
	w := Window{
		ID:    sw.ID,
		Title: sw.Title,
		Class: sw.WMClass,
		PID:   sw.PID,
	}
	if sw.XID != 0 {
		w.ID = sw.XID
	}
	if !w.Valid() {
		return Window{}, false, nil
	}
	return w, true, nil
}
