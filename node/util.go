package node

import "time"

// clockStart anchors nowMs to Go's monotonic clock reading.
var clockStart = time.Now()

// nowMs returns monotonic milliseconds since process start.
func nowMs() int64 {
	return time.Since(clockStart).Milliseconds()
}
