package dbusmenu

import "time"

var processStart = time.Now()

func fallbackTimestamp() uint32 {
	return uint32(time.Since(processStart) / time.Millisecond)
}
