//go:build !linux

package focus

import (
	"time"

	"github.com/godbus/dbus/v5"
)

// NewGnomeTracker returns an error on unsupported platforms.
func NewGnomeTracker(*dbus.Conn, time.Duration) (Tracker, error) {
	return nil, ErrUnavailable
}
