//go:build linux

package dbusmenu

import (
	"time"

	"golang.org/x/sys/unix"
)

// Timestamp returns CLOCK_MONOTONIC in milliseconds, truncated to the 32 bits
// carried by Event.
func Timestamp() uint32 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return fallbackTimestamp()
	}
	return uint32(ts.Nano() / int64(time.Millisecond))
}
