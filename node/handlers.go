package node

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"hive/dispatch"
	"hive/drone"
	"hive/raft"
	"hive/wire"
)

// Router builds the gorilla/mux router for this Node's role, wrapped
// in the logging/recovery middleware.
func (n *Node) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(n.loggingMiddleware)
	r.Use(recoveryMiddleware)

	r.HandleFunc("/healthz", n.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/register", n.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/submit_task", n.handleSubmitTask).Methods(http.MethodPost)
	r.HandleFunc("/do_task", n.handleDoTask).Methods(http.MethodPost)
	r.HandleFunc("/request_vote", n.handleRequestVote).Methods(http.MethodPost)
	r.HandleFunc("/append_entries", n.handleAppendEntries).Methods(http.MethodPost)

	return r
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, wire.ErrorBody{Error: msg})
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, wire.OKResult)
}

// handleHealthz reports node status. Side effect: counts as "heard
// from the cluster" for a Queen's election engine, and updates a
// Drone's own last_heartbeat marker.
func (n *Node) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := wire.HealthzResponse{
		Status:  "ok",
		Ready:   n.IsReady(),
		Version: Version,
		Mode:    n.role.String(),
	}

	if n.role == RoleQueen {
		n.engine.Probe()
		resp.LastHeartbeat = n.engine.LastHeartbeatMs()
		resp.Drones = n.reg.Snapshot()
		state := n.engine.Role().String()
		resp.RaftState = state
		term := n.engine.Term()
		resp.Term = &term
	} else {
		n.touchDroneHeartbeat()
		resp.LastHeartbeat = atomic.LoadInt64(&n.droneLastHeartbeatMs)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleRegister accepts a drone's self-registration. Only the Leader
// Queen actually registers; a Follower redirects to the Leader it
// knows about (307), or reports 503 if no Leader is currently known
// locally — see the design's resolved registration-routing gap.
func (n *Node) handleRegister(w http.ResponseWriter, r *http.Request) {
	if n.role != RoleQueen {
		writeError(w, http.StatusBadRequest, "register is a queen-only endpoint")
		return
	}

	var req wire.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Address == "" {
		writeError(w, http.StatusBadRequest, "missing or invalid address")
		return
	}

	if n.engine.Role() != raft.Leader {
		leaderAddr, known := n.engine.LeaderAddr()
		if !known {
			writeError(w, http.StatusServiceUnavailable, "no leader known locally")
			return
		}
		http.Redirect(w, r, "http://"+leaderAddr+"/register", http.StatusTemporaryRedirect)
		return
	}

	name := n.reg.Register(req.Address)
	n.log.WithFields(logrus.Fields{"drone": name, "address": req.Address}).Info("node: drone registered")
	writeOK(w)
}

// handleSubmitTask accepts a task submission and hands it to the
// Dispatcher.
func (n *Node) handleSubmitTask(w http.ResponseWriter, r *http.Request) {
	if n.role != RoleQueen {
		writeError(w, http.StatusBadRequest, "submit_task is a queen-only endpoint")
		return
	}

	var req wire.TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, "missing or empty text")
		return
	}

	if err := n.dispatcher.Submit(r.Context(), req.Text); err != nil {
		if err == dispatch.ErrNoDrones {
			writeError(w, http.StatusConflict, "no drones registered")
			return
		}
		writeError(w, http.StatusInternalServerError, "dispatch failed")
		return
	}

	writeOK(w)
}

// handleDoTask accepts a forwarded task on a Drone.
func (n *Node) handleDoTask(w http.ResponseWriter, r *http.Request) {
	if n.role != RoleDrone {
		writeError(w, http.StatusBadRequest, "do_task is a drone-only endpoint")
		return
	}

	var req wire.TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := n.droneService.DoTask(req.Text); err != nil {
		if err == drone.ErrEmptyText {
			writeError(w, http.StatusBadRequest, "missing or empty text")
			return
		}
		writeError(w, http.StatusInternalServerError, "task handling failed")
		return
	}

	writeOK(w)
}

// handleRequestVote dispatches into the election engine. A 300 status
// signals an application-level rejection, preserved for wire
// compatibility with the protocol this design was distilled from.
func (n *Node) handleRequestVote(w http.ResponseWriter, r *http.Request) {
	if n.role != RoleQueen {
		writeError(w, http.StatusBadRequest, "request_vote is a queen-only endpoint")
		return
	}

	var req wire.RequestVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Candidate == "" {
		writeError(w, http.StatusBadRequest, "malformed vote request")
		return
	}

	reply := n.engine.HandleRequestVote(req)
	if !reply.Granted {
		writeJSON(w, http.StatusMultipleChoices, reply)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// handleAppendEntries dispatches into the election engine.
func (n *Node) handleAppendEntries(w http.ResponseWriter, r *http.Request) {
	if n.role != RoleQueen {
		writeError(w, http.StatusBadRequest, "append_entries is a queen-only endpoint")
		return
	}

	var req wire.AppendEntriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Leader == "" {
		writeError(w, http.StatusBadRequest, "malformed append_entries request")
		return
	}

	reply := n.engine.HandleAppendEntries(req)
	if !reply.Success {
		writeJSON(w, http.StatusBadRequest, reply)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}
