//go:build !linux

package dbusmenu

// Timestamp returns milliseconds on the process's monotonic clock, truncated
// to the 32 bits carried by Event.
func Timestamp() uint32 {
	return fallbackTimestamp()
}
