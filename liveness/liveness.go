// Package liveness implements the Liveness Monitor: a Leader-only
// background task that periodically probes every registered drone and
// evicts the ones that have stopped answering. It is grounded on the
// teacher's own ticker-driven background task shape (see
// replication/hinted_handoff.go's StartCleanupTask), repurposed here
// to health-check rather than hint-cleanup.
package liveness

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"hive/peer"
	"hive/raft"
	"hive/registry"
)

// CycleInterval is how often the monitor sweeps the registry.
const CycleInterval = 10 * time.Second

// MaxRetries is the number of probe attempts before a drone is
// considered dead.
const MaxRetries = 5

// RetryBackoff is the pause between failed probe attempts.
const RetryBackoff = 500 * time.Millisecond

// Monitor owns the periodic sweep. It is a no-op on any Queen that
// isn't currently Leader, so every Queen can run one unconditionally.
type Monitor struct {
	reg    *registry.Registry
	client *peer.Client
	engine *raft.Engine
	log    *logrus.Entry

	shutdownCh chan struct{}
	done       chan struct{}
}

// New constructs a Monitor. Start must be called to begin sweeping.
func New(reg *registry.Registry, client *peer.Client, engine *raft.Engine, log *logrus.Entry) *Monitor {
	return &Monitor{
		reg:        reg,
		client:     client,
		engine:     engine,
		log:        log,
		shutdownCh: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the sweep loop in the background.
func (m *Monitor) Start() {
	go m.run()
}

// Shutdown stops the sweep loop and waits for the current sweep, if
// any, to finish.
func (m *Monitor) Shutdown() {
	close(m.shutdownCh)
	<-m.done
}

func (m *Monitor) run() {
	defer close(m.done)

	ticker := time.NewTicker(CycleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.shutdownCh:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep snapshots the registry, probes each drone outside the
// registry lock, and evicts every drone that exhausted its retries in
// a single batched Evict call. It is a no-op when this Queen is not
// Leader, per the design's "Leader-only" rule for liveness checking.
func (m *Monitor) sweep() {
	if m.engine.Role() != raft.Leader {
		return
	}

	snapshot := m.reg.Snapshot()
	if len(snapshot) == 0 {
		return
	}

	var dead []string
	for addr, name := range snapshot {
		if m.probeWithRetries(addr) {
			continue
		}
		m.log.WithFields(logrus.Fields{"drone": name, "address": addr}).
			Warn("drone failed liveness check, evicting")
		dead = append(dead, addr)
	}

	if len(dead) > 0 {
		m.reg.Evict(dead)
	}
}

// probeWithRetries returns true as soon as one probe succeeds, and
// false only after MaxRetries consecutive failures.
func (m *Monitor) probeWithRetries(addr string) bool {
	for attempt := 0; attempt < MaxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), peer.DefaultTimeout)
		ok := m.client.Probe(ctx, addr)
		cancel()
		if ok {
			return true
		}
		if attempt < MaxRetries-1 {
			time.Sleep(RetryBackoff)
		}
	}
	return false
}
