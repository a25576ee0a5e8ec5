// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"context"
	"sync"
	"time"
)

// DefaultApprovalTimeout is how long Wait blocks before approving on its own.
const DefaultApprovalTimeout = 300 * time.Second

// Gate is a one-shot, externally signalable approval latch. The first
// Approve or Reject wins; later signals are ignored.
type Gate struct {
	mu       sync.Mutex
	done     chan struct{}
	decided  bool
	approved bool
}

// NewGate returns an undecided gate.
func NewGate() *Gate {
	return &Gate{done: make(chan struct{})}
}

// Approve opens the gate. It reports whether this call decided it.
func (g *Gate) Approve() bool { return g.decide(true) }

// Reject closes the gate. It reports whether this call decided it.
func (g *Gate) Reject() bool { return g.decide(false) }

func (g *Gate) decide(approved bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.decided {
		return false
	}
	g.decided = true
	g.approved = approved
	close(g.done)
	return true
}

// Wait blocks until the gate is decided, timeout elapses, or ctx is done.
// A timeout counts as approval and is reported through timedOut. A
// non-positive timeout uses DefaultApprovalTimeout.
func (g *Gate) Wait(ctx context.Context, timeout time.Duration) (approved, timedOut bool, err error) {
	if timeout <= 0 {
		timeout = DefaultApprovalTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-g.done:
		g.mu.Lock()
		defer g.mu.Unlock()
		return g.approved, false, nil
	case <-timer.C:
		return true, true, nil
	case <-ctx.Done():
		return false, false, ctx.Err()
	}
}
