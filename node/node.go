// Package node implements the Node Service: the HTTP surface that
// exposes every role's endpoints over gorilla/mux, wires a Node's
// collaborators together, and carries the /register leader-redirect
// logic that closes the source's largest functional gap.
package node

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"hive/dispatch"
	"hive/drone"
	"hive/liveness"
	"hive/peer"
	"hive/raft"
	"hive/registry"
)

// Version is reported on /healthz.
const Version = "1.0.0"

// Role distinguishes a Queen node from a Drone node.
type Role int

const (
	RoleQueen Role = iota
	RoleDrone
)

func (r Role) String() string {
	if r == RoleQueen {
		return "QUEEN"
	}
	return "DRONE"
}

// Config assembles a Node's collaborators. Queen-only fields
// (Registry, Engine, Liveness, Dispatcher) are nil for a Drone node;
// Drone-only fields (DroneService) are nil for a Queen node.
type Config struct {
	Role    Role
	Self    string
	Client  *peer.Client
	Log     *logrus.Logger
	Version string

	Registry   *registry.Registry
	Engine     *raft.Engine
	Liveness   *liveness.Monitor
	Dispatcher *dispatch.Dispatcher

	DroneService *drone.Service
}

// Node owns one process's full collaborator set and serves its HTTP
// surface. It replaces the source's module-level mutable globals with
// a single value passed to handlers by capability.
type Node struct {
	role   Role
	self   string
	client *peer.Client
	log    *logrus.Logger

	reg        *registry.Registry
	engine     *raft.Engine
	liveness   *liveness.Monitor
	dispatcher *dispatch.Dispatcher

	droneService *drone.Service

	// droneLastHeartbeatMs tracks last_heartbeat for a Drone node,
	// which has no election engine of its own to source it from.
	droneLastHeartbeatMs int64

	// Readiness tracking (atomic bools via int32). A Queen is ready once
	// its election engine has started AND its HTTP surface is serving; a
	// Drone is ready once it has successfully registered with its Queen.
	electionStarted int32
	serving         int32
	droneRegistered int32
}

// New constructs a Node from cfg.
func New(cfg Config) *Node {
	return &Node{
		role:         cfg.Role,
		self:         cfg.Self,
		client:       cfg.Client,
		log:          cfg.Log,
		reg:          cfg.Registry,
		engine:       cfg.Engine,
		liveness:     cfg.Liveness,
		dispatcher:   cfg.Dispatcher,
		droneService: cfg.DroneService,
	}
}

// Start brings up background collaborators: the election engine and
// liveness monitor for a Queen. A Drone has nothing to start beyond
// its own registration, which the caller drives separately via
// drone.RegisterWithQueen.
func (n *Node) Start() {
	if n.role != RoleQueen {
		return
	}
	if n.engine != nil {
		n.engine.Start()
	}
	if n.liveness != nil {
		n.liveness.Start()
	}
	atomic.StoreInt32(&n.electionStarted, 1)
}

// Shutdown stops background collaborators.
func (n *Node) Shutdown() {
	if n.role != RoleQueen {
		return
	}
	if n.liveness != nil {
		n.liveness.Shutdown()
	}
	if n.engine != nil {
		n.engine.Shutdown()
	}
}

func (n *Node) touchDroneHeartbeat() {
	atomic.StoreInt64(&n.droneLastHeartbeatMs, nowMs())
}

// MarkServing records that the HTTP surface has started accepting
// connections. The caller wiring up the listener (cmd/hive) calls this
// once the serve goroutine is launched.
func (n *Node) MarkServing() {
	atomic.StoreInt32(&n.serving, 1)
}

// MarkDroneRegistered records that this Drone has successfully
// registered with its Queen. Passed as the success callback to
// drone.RegisterWithQueen.
func (n *Node) MarkDroneRegistered() {
	atomic.StoreInt32(&n.droneRegistered, 1)
}

// IsReady reports the Readiness state: for a Queen, the election
// engine must have started and the HTTP surface must be serving; for a
// Drone, registration with its Queen must have succeeded.
func (n *Node) IsReady() bool {
	if n.role == RoleQueen {
		return atomic.LoadInt32(&n.electionStarted) == 1 && atomic.LoadInt32(&n.serving) == 1
	}
	return atomic.LoadInt32(&n.droneRegistered) == 1
}
