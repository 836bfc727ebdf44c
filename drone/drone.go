// Package drone implements the Drone Service: the worker side of the
// hive that accepts tasks forwarded by a Queen's Dispatcher and
// registers itself with a Queen at startup.
package drone

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"hive/peer"
)

// ErrEmptyText is returned by DoTask when the task payload is empty.
var ErrEmptyText = errors.New("drone: task text is empty")

// RegisterRetryInterval is how long register-with-queen waits before
// retrying a transport failure. A var, not a const, so tests can
// shrink it.
var RegisterRetryInterval = 10 * time.Second

// TaskHandler is the extension hook invoked once a task clears
// validation. The default handler only logs receipt; a caller running
// a real worker wires its own handler in here.
type TaskHandler func(text string)

// Service is a Drone's task-execution surface.
type Service struct {
	self    string
	handler TaskHandler
	log     *logrus.Entry
}

// New constructs a drone Service. A nil handler falls back to logging
// receipt only.
func New(self string, handler TaskHandler, log *logrus.Entry) *Service {
	if handler == nil {
		handler = func(string) {}
	}
	return &Service{self: self, handler: handler, log: log}
}

// DoTask validates and accepts a forwarded task. Execution is handed
// off to the configured TaskHandler; DoTask itself never blocks on it
// beyond a direct synchronous call, matching the wire contract's
// "accept and acknowledge" semantics.
func (s *Service) DoTask(text string) error {
	if text == "" {
		return ErrEmptyText
	}

	s.log.WithField("text", text).Info("drone: received task")
	s.handler(text)
	return nil
}

// RegisterWithQueen POSTs this drone's address to queenAddr/register
// and retries indefinitely on transport failure. It exits the process
// with a nonzero status on any HTTP response >= 300, per the design's
// bootstrap contract: a Queen that actively refuses registration means
// misconfiguration, not a transient condition worth retrying. onSuccess,
// if non-nil, is invoked once registration succeeds — the hook the
// caller uses to flip its own Readiness state.
func RegisterWithQueen(client *peer.Client, queenAddr, selfAddr string, onSuccess func(), log *logrus.Entry) {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), peer.DefaultTimeout)
		status, err := client.Register(ctx, queenAddr, selfAddr)
		cancel()

		if err == nil {
			log.WithField("queen", queenAddr).Info("drone: registered with queen")
			if onSuccess != nil {
				onSuccess()
			}
			return
		}

		if status >= 300 {
			log.WithFields(logrus.Fields{"queen": queenAddr, "status": status, "error": err}).
				Error("drone: queen rejected registration, exiting")
			os.Exit(1)
		}

		log.WithFields(logrus.Fields{"queen": queenAddr, "error": err}).
			Warn("drone: queen unreachable, retrying registration")
		time.Sleep(RegisterRetryInterval)
	}
}
