// Package dispatch implements the Dispatcher: binds a submitted task
// to a live drone. It is grounded on the registry's own
// lock-only-for-the-critical-section shape (see registry.PickOne),
// extended here to the "snapshot-then-release" rule the design adds
// on top of it — the registry lock is held only long enough to pick a
// drone; the network call to forward the task happens after it is
// released.
package dispatch

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"hive/peer"
	"hive/registry"
)

// ErrNoDrones is returned when a task is submitted but no drone is
// registered to receive it.
var ErrNoDrones = errors.New("dispatch: no drones registered")

// Dispatcher forwards submitted tasks to a registered drone.
type Dispatcher struct {
	reg    *registry.Registry
	client *peer.Client
	log    *logrus.Entry
}

// New constructs a Dispatcher.
func New(reg *registry.Registry, client *peer.Client, log *logrus.Entry) *Dispatcher {
	return &Dispatcher{reg: reg, client: client, log: log}
}

// Submit picks a drone and forwards text to it. A forwarding failure
// is logged at WARN and swallowed: the caller only ever learns that no
// drone was selectable at all (ErrNoDrones), never that the forward
// itself failed, matching the wire contract's at-most-once guarantee.
func (d *Dispatcher) Submit(ctx context.Context, text string) error {
	addr, name, err := d.reg.PickOne()
	if err != nil {
		return ErrNoDrones
	}

	if err := d.client.DoTask(ctx, addr, text); err != nil {
		d.log.WithFields(logrus.Fields{"drone": name, "address": addr, "error": err}).
			Warn("dispatch: forward failed, drone may be unreachable")
	} else {
		d.log.WithFields(logrus.Fields{"drone": name, "address": addr}).Info("dispatch: task forwarded")
	}

	return nil
}
