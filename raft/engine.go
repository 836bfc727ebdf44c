// Package raft implements the hive's Raft-lite election engine: the
// per-Queen {Follower, Candidate, Leader} state machine, term counter,
// and heartbeat/vote driver loop described by the design. It carries
// no log, no commit index and no snapshotting — those are explicit
// non-goals of this core.
package raft

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"hive/peer"
)

// State is one of Follower, Candidate or Leader.
type State int

const (
	Follower State = iota
	Candidate
	Leader
)

func (s State) String() string {
	switch s {
	case Follower:
		return "FOLLOWER"
	case Candidate:
		return "CANDIDATE"
	case Leader:
		return "LEADER"
	default:
		return "UNKNOWN"
	}
}

// Config configures a new Engine.
type Config struct {
	Self   string   // this Queen's own address, excluded from Peers
	Peers  []string // the other Queens' addresses (New filters out Self if present)
	Client *peer.Client
	Log    *Logger

	// TickInterval is the Leader heartbeat period. Zero uses the
	// design's recommended ~100ms.
	TickInterval time.Duration
	// FollowerPollInterval is how often the driver loop re-checks a
	// Follower's timeout. Zero uses the design's recommended ~10ms.
	FollowerPollInterval time.Duration
}

// Engine is a single Queen's election state machine.
type Engine struct {
	self   string
	peers  []string
	client *peer.Client
	log    *Logger

	tick       time.Duration
	pollFollow time.Duration

	mu                sync.Mutex
	role              State
	currentTerm       uint64
	electionTimeoutMs int
	leaderAddr        string // best known Leader, "" if unknown

	lastHeartbeatMs int64 // atomic; monotonic ms, see Clock §1

	shutdownCh chan struct{}
	wg         sync.WaitGroup
}

// New constructs an Engine in the Follower state with term 0. Call
// Start to begin the driver loop.
func New(cfg Config) *Engine {
	tick := cfg.TickInterval
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	poll := cfg.FollowerPollInterval
	if poll <= 0 {
		poll = 10 * time.Millisecond
	}

	e := &Engine{
		self:       cfg.Self,
		peers:      filterSelf(cfg.Peers, cfg.Self),
		client:     cfg.Client,
		log:        cfg.Log,
		tick:       tick,
		pollFollow: poll,
		role:       Follower,
		shutdownCh: make(chan struct{}),
	}
	e.electionTimeoutMs = randomElectionTimeoutMs()
	e.touchHeartbeat()
	return e
}

// filterSelf drops addr from peers if present, per the design note
// that self inclusion in --queen-list is undefined and should be
// filtered rather than left to chance.
func filterSelf(peers []string, self string) []string {
	out := make([]string, 0, len(peers))
	for _, p := range peers {
		if p != self {
			out = append(out, p)
		}
	}
	return out
}

// Start launches the driver goroutine.
func (e *Engine) Start() {
	e.wg.Add(1)
	go e.run()
}

// Shutdown stops the driver loop and waits for it to exit.
func (e *Engine) Shutdown() {
	close(e.shutdownCh)
	e.wg.Wait()
}

// run is the main driver loop: Followers watch for election timeout,
// Leaders tick heartbeats. It must never busy-wait.
func (e *Engine) run() {
	defer e.wg.Done()

	for {
		select {
		case <-e.shutdownCh:
			return
		default:
		}

		switch e.Role() {
		case Leader:
			e.sendHeartbeats()
			e.sleep(e.tick)
		default: // Follower or Candidate between rounds
			if e.electionTimedOut() {
				e.startElection()
			}
			e.sleep(e.pollFollow)
		}
	}
}

// sleep is interruptible by shutdown so Shutdown doesn't have to wait
// out a full tick.
func (e *Engine) sleep(d time.Duration) {
	select {
	case <-time.After(d):
	case <-e.shutdownCh:
	}
}

// Role returns the engine's current state.
func (e *Engine) Role() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.role
}

// Term returns the current term.
func (e *Engine) Term() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentTerm
}

// LeaderAddr returns the best known Leader address and whether one is
// known at all. It is best-effort: in a partition it may be stale or
// empty.
func (e *Engine) LeaderAddr() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.leaderAddr, e.leaderAddr != ""
}

// LastHeartbeatMs returns the monotonic millisecond timestamp of the
// most recent inbound event that counted as "heard from the cluster".
func (e *Engine) LastHeartbeatMs() int64 {
	return atomic.LoadInt64(&e.lastHeartbeatMs)
}

func (e *Engine) touchHeartbeat() {
	atomic.StoreInt64(&e.lastHeartbeatMs, nowMs())
}

func (e *Engine) electionTimedOut() bool {
	e.mu.Lock()
	timeout := e.electionTimeoutMs
	e.mu.Unlock()
	return nowMs()-e.LastHeartbeatMs() > int64(timeout)
}

// Probe is invoked by the Node Service on every GET /healthz: it
// counts as "heard from the cluster" per the design's Election State
// definition of lastHeartbeatMs.
func (e *Engine) Probe() {
	e.touchHeartbeat()
}

func (e *Engine) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), peer.DefaultTimeout)
}

// adoptTermLocked updates currentTerm and demotes to Follower whenever
// term exceeds it. Callers must hold e.mu. Returns whether a demotion
// happened, so callers can decide whether to log a transition.
func (e *Engine) adoptTermLocked(term uint64) bool {
	if term <= e.currentTerm {
		return false
	}
	oldRole := e.role
	e.currentTerm = term
	e.role = Follower
	return oldRole != Follower
}
