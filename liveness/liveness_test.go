package liveness

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"hive/peer"
	"hive/raft"
	"hive/registry"
)

func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("component", "test")
}

// leaderEngine builds a single-node raft.Engine (no peers) and starts
// its driver loop: with no peers to out-vote it, it is guaranteed to
// become Leader once its first election timeout fires.
func leaderEngine(t *testing.T) *raft.Engine {
	t.Helper()
	e := raft.New(raft.Config{
		Self:   "queen-under-test",
		Client: peer.New(0, discardLogger()),
		Log:    raft.NewLogger(discardLogger()),
	})
	e.Start()
	t.Cleanup(e.Shutdown)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if e.Role() == raft.Leader {
			return e
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("engine never became leader")
	return nil
}

func addrOf(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestSweepSkipsWhenNotLeader(t *testing.T) {
	reg := registry.New()
	reg.Register("10.0.0.1:9000")

	e := raft.New(raft.Config{Self: "queen-under-test", Client: peer.New(0, discardLogger()), Log: raft.NewLogger(discardLogger())})
	m := New(reg, peer.New(0, discardLogger()), e, discardLogger())

	m.sweep()

	if reg.Len() != 1 {
		t.Error("a non-Leader sweep must not touch the registry")
	}
}

func TestSweepEvictsDeadDrone(t *testing.T) {
	var calls int32
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer dead.Close()

	reg := registry.New()
	reg.Register(addrOf(t, dead))

	m := &Monitor{reg: reg, client: peer.New(0, discardLogger()), engine: leaderEngine(t), log: discardLogger()}
	m.sweep()

	if reg.Len() != 0 {
		t.Error("expected the unresponsive drone to be evicted")
	}
	if got := atomic.LoadInt32(&calls); int(got) != MaxRetries {
		t.Errorf("expected %d probe attempts, got %d", MaxRetries, got)
	}
}

func TestSweepKeepsHealthyDrone(t *testing.T) {
	alive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer alive.Close()

	reg := registry.New()
	reg.Register(addrOf(t, alive))

	m := &Monitor{reg: reg, client: peer.New(0, discardLogger()), engine: leaderEngine(t), log: discardLogger()}
	m.sweep()

	if reg.Len() != 1 {
		t.Error("a healthy drone must survive the sweep")
	}
}

func TestSweepEmptyRegistryIsNoop(t *testing.T) {
	reg := registry.New()
	m := &Monitor{reg: reg, client: peer.New(0, discardLogger()), engine: leaderEngine(t), log: discardLogger()}
	m.sweep() // must not panic or block
}

func TestMonitorStartStop(t *testing.T) {
	reg := registry.New()
	m := New(reg, peer.New(0, discardLogger()), leaderEngine(t), discardLogger())
	m.Start()
	time.Sleep(10 * time.Millisecond)
	m.Shutdown()
}
