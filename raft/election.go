package raft

import (
	"sync"

	"hive/peer"
	"hive/wire"
)

// startElection runs one full candidacy: bump term, vote for self,
// fan RequestVote out to every peer in parallel, wait for all replies,
// then either become Leader or fall back to Follower. It blocks for
// the duration of the vote round, matching the design's "waits for
// all to complete before tallying" rule.
func (e *Engine) startElection() {
	e.mu.Lock()
	e.role = Candidate
	e.electionTimeoutMs = randomElectionTimeoutMs()
	e.currentTerm++
	term := e.currentTerm
	e.leaderAddr = ""
	e.mu.Unlock()
	e.touchHeartbeat()

	e.log.LogElectionStart(term)

	votes := 1 // self
	needed := majorityOf(len(e.peers) + 1)

	var mu sync.Mutex
	var wg sync.WaitGroup
	highestSeen := term

	for _, addr := range e.peers {
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()

			ctx, cancel := e.ctx()
			defer cancel()

			result, replyTerm := e.client.RequestVote(ctx, addr, wire.RequestVoteRequest{
				Candidate: e.self,
				Term:      term,
			})

			mu.Lock()
			defer mu.Unlock()
			if replyTerm > highestSeen {
				highestSeen = replyTerm
			}
			if result == peer.Unreachable {
				return
			}
			if result == peer.Granted {
				votes++
			}
		}(addr)
	}
	wg.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.adoptTermLocked(highestSeen) {
		e.log.LogStepDown(term, highestSeen, "saw higher term during election")
		return
	}

	// Discard the round if we were demoted (by an inbound AppendEntries
	// or a higher-term vote reply) or the term moved on while voting.
	if e.role != Candidate || e.currentTerm != term {
		e.log.LogElectionDiscarded(term, e.role)
		return
	}

	if votes < needed {
		e.log.LogElectionLost(term, votes, needed)
		e.role = Follower
		return
	}

	e.log.LogElectionWon(term, votes, needed)
	e.role = Leader
	e.leaderAddr = e.self
}

// sendHeartbeats fans empty AppendEntries out to every peer. Called
// only while Leader, at ~10Hz by the driver loop.
func (e *Engine) sendHeartbeats() {
	term := e.Term()
	e.log.LogHeartbeatSent(term, len(e.peers))

	var wg sync.WaitGroup
	for _, addr := range e.peers {
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()

			ctx, cancel := e.ctx()
			defer cancel()

			reply, ok := e.client.AppendEntries(ctx, addr, wire.AppendEntriesRequest{
				Leader: e.self,
				Term:   term,
			})
			if !ok {
				return
			}
			if reply.Term > term {
				e.mu.Lock()
				demoted := e.adoptTermLocked(reply.Term)
				e.mu.Unlock()
				if demoted {
					e.log.LogStepDown(term, reply.Term, "peer reports higher term")
				}
			}
		}(addr)
	}
	wg.Wait()
}

// HandleRequestVote is the /request_vote handler's entry point into
// the engine. Grants iff term > currentTerm; term equality is a
// rejection since logs are always empty in this core (see design
// notes on the simplified vote-granting policy).
func (e *Engine) HandleRequestVote(req wire.RequestVoteRequest) wire.RequestVoteReply {
	e.mu.Lock()

	if req.Term <= e.currentTerm {
		term := e.currentTerm
		e.mu.Unlock()
		return wire.RequestVoteReply{Term: term, Granted: false}
	}

	e.adoptTermLocked(req.Term)
	term := e.currentTerm
	e.mu.Unlock()

	e.touchHeartbeat()
	e.log.LogVoteGranted(req.Candidate, req.Term)

	return wire.RequestVoteReply{Term: term, Granted: true}
}

// HandleAppendEntries is the /append_entries handler's entry point.
// Demotes to Follower on any term >= currentTerm, including a Leader
// receiving a rival's heartbeat at an equal term (best-effort
// split-brain avoidance; a correctly configured cluster never has two
// Leaders at the same term, see design invariants).
func (e *Engine) HandleAppendEntries(req wire.AppendEntriesRequest) wire.AppendEntriesReply {
	e.mu.Lock()

	if req.Term < e.currentTerm {
		term := e.currentTerm
		e.mu.Unlock()
		return wire.AppendEntriesReply{Term: term, Success: false}
	}

	e.adoptTermLocked(req.Term)
	e.role = Follower
	e.leaderAddr = req.Leader
	term := e.currentTerm
	e.mu.Unlock()

	e.touchHeartbeat()
	e.log.LogHeartbeatReceived(req.Leader, req.Term)

	return wire.AppendEntriesReply{Term: term, Success: true}
}
