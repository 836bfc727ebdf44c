package raft

import (
	"math/rand"
	"time"
)

// clockStart anchors nowMs to Go's monotonic clock reading.
var clockStart = time.Now()

// nowMs is the engine's Clock component: a monotonic millisecond
// source (milliseconds since process start) used for lastHeartbeatMs
// comparisons.
func nowMs() int64 {
	return time.Since(clockStart).Milliseconds()
}

// randomElectionTimeoutMs re-randomizes in [150, 300], per the design.
func randomElectionTimeoutMs() int {
	return 150 + rand.Intn(151)
}

// majorityOf returns the number of votes needed to win an election
// among n total Queens (including self): floor(n/2) + 1, the standard
// Raft majority. This corrects the source's off-by-one, which used
// strictly-greater-than ceil(n/2) — see design notes §9.1.
func majorityOf(n int) int {
	return n/2 + 1
}
