// Package peer is the hive's Peer Client: synchronous, timeout-bounded
// JSON/HTTP calls to other nodes, tolerant of unreachable peers. It is
// shared by the election engine (RequestVote/AppendEntries), the
// liveness monitor (Probe), the dispatcher (DoTask) and drone
// bootstrap (Register).
package peer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"hive/wire"
)

// DefaultTimeout bounds every peer call. It is kept well under the
// 100ms leader-tick interval so a hung peer cannot stall a heartbeat
// or an election round past its next scheduled attempt.
const DefaultTimeout = 75 * time.Millisecond

// Client issues HTTP/JSON requests to other hive nodes.
type Client struct {
	http    *http.Client
	log     *logrus.Entry
	timeout time.Duration
}

// New creates a Client with the given per-request timeout. Passing a
// zero timeout uses DefaultTimeout.
func New(timeout time.Duration, log *logrus.Entry) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		log:     log,
		timeout: timeout,
	}
}

// Probe issues GET /healthz and reports only success/failure, per the
// design's Peer Client contract — callers never see why a probe
// failed, only that it did.
func (c *Client) Probe(ctx context.Context, addr string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/healthz", nil)
	if err != nil {
		return false
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// VoteResult classifies the outcome of a RequestVote call.
type VoteResult int

const (
	// Unreachable means the peer could not be contacted at all.
	Unreachable VoteResult = iota
	Granted
	Rejected
)

// RequestVote POSTs /request_vote to addr. Granted iff the remote
// returned 2xx; Rejected iff 3xx or 4xx; Unreachable on any transport
// error. replyTerm is the remote's reported term, valid whenever the
// result is Granted or Rejected.
func (c *Client) RequestVote(ctx context.Context, addr string, req wire.RequestVoteRequest) (result VoteResult, replyTerm uint64) {
	var reply wire.RequestVoteReply
	status, err := c.postJSON(ctx, addr, "/request_vote", req, &reply)
	if err != nil {
		c.log.WithError(err).WithField("peer", addr).Debug("request_vote: peer unreachable")
		return Unreachable, 0
	}

	if status >= 200 && status < 300 {
		return Granted, reply.Term
	}
	return Rejected, reply.Term
}

// AppendEntries POSTs /append_entries (always with empty Entries: this
// core only uses it as a heartbeat). Returns ok=false and a zero reply
// when the peer is unreachable.
func (c *Client) AppendEntries(ctx context.Context, addr string, req wire.AppendEntriesRequest) (reply wire.AppendEntriesReply, ok bool) {
	status, err := c.postJSON(ctx, addr, "/append_entries", req, &reply)
	if err != nil {
		c.log.WithError(err).WithField("peer", addr).Debug("append_entries: peer unreachable")
		return wire.AppendEntriesReply{}, false
	}
	reply.Success = reply.Success && status >= 200 && status < 300
	return reply, true
}

// Register POSTs {address: selfAddr} to queenAddr's /register.
// Returns the HTTP status code (0 on transport failure) and an error
// describing either the transport failure or a >=300 status.
func (c *Client) Register(ctx context.Context, queenAddr, selfAddr string) (status int, err error) {
	status, err = c.postJSON(ctx, queenAddr, "/register", wire.RegisterRequest{Address: selfAddr}, &wire.Result{})
	if err != nil {
		return 0, fmt.Errorf("peer: register with %s: %w", queenAddr, err)
	}
	if status >= 300 {
		return status, fmt.Errorf("peer: register with %s: rejected with status %d", queenAddr, status)
	}
	return status, nil
}

// DoTask POSTs {text} to droneAddr's /do_task.
func (c *Client) DoTask(ctx context.Context, droneAddr, text string) error {
	status, err := c.postJSON(ctx, droneAddr, "/do_task", wire.TaskRequest{Text: text}, &wire.Result{})
	if err != nil {
		return fmt.Errorf("peer: do_task on %s: %w", droneAddr, err)
	}
	if status >= 300 {
		return fmt.Errorf("peer: do_task on %s: rejected with status %d", droneAddr, status)
	}
	return nil
}

// SubmitTask POSTs {text} to queenAddr's /submit_task. Used by the
// operator CLI, not by any component of the dispatch core itself.
func (c *Client) SubmitTask(ctx context.Context, queenAddr, text string) error {
	status, err := c.postJSON(ctx, queenAddr, "/submit_task", wire.TaskRequest{Text: text}, &wire.Result{})
	if err != nil {
		return fmt.Errorf("peer: submit_task on %s: %w", queenAddr, err)
	}
	if status >= 300 {
		return fmt.Errorf("peer: submit_task on %s: rejected with status %d", queenAddr, status)
	}
	return nil
}

// Healthz GETs addr's /healthz and returns the decoded body along with
// the HTTP status code. Used by the operator CLI.
func (c *Client) Healthz(ctx context.Context, addr string) (status int, body wire.HealthzResponse, err error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/healthz", nil)
	if reqErr != nil {
		return 0, wire.HealthzResponse{}, fmt.Errorf("peer: healthz on %s: %w", addr, reqErr)
	}

	resp, doErr := c.http.Do(req)
	if doErr != nil {
		return 0, wire.HealthzResponse{}, fmt.Errorf("peer: healthz on %s: %w", addr, doErr)
	}
	defer resp.Body.Close()

	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body, nil
}

// postJSON encodes body as the request, POSTs it to addr+path, and
// decodes the response into out. It returns the response status code
// whenever the transport succeeded, even for non-2xx statuses.
func (c *Client) postJSON(ctx context.Context, addr, path string, body, out interface{}) (int, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+addr+path, bytes.NewReader(buf))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode, nil
}
