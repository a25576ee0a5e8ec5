// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/investigator/internal/cost"
	"github.com/pdiddy/investigator/internal/events"
	"github.com/pdiddy/investigator/internal/reasoning"
	"github.com/pdiddy/investigator/pkg/types"
)

// runState is the shared mutable state of one run. mu is the single
// advisory lock: every mutation of investigation-owned collections and
// every ledger update happens while holding it. The event log orders
// itself and may be appended to with or without mu held.
type runState struct {
	mu     sync.Mutex
	inv    *types.Investigation
	ledger *cost.Ledger
	log    *events.Log
}

// update runs fn under the state lock and stamps UpdatedAt.
func (s *runState) update(fn func(inv *types.Investigation)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.inv)
	s.inv.UpdatedAt = time.Now().UTC()
}

// read runs fn under the state lock without stamping.
func (s *runState) read(fn func(inv *types.Investigation)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.inv)
}

func (s *runState) emit(t events.Type, data any) events.Event {
	return s.log.Append(t, data)
}

// addUsage books one port call and publishes the new cost snapshot. The
// event is appended before mu is released so cost_updated events reach the
// log in ledger order.
func (s *runState) addUsage(model string, resp *reasoning.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.AddUsage(resp.InputTokens, resp.OutputTokens, model, resp.CacheReadTokens, resp.CacheWriteTokens)
	snap := s.ledger.Snapshot()
	s.inv.Cost = snap
	s.emit(events.TypeCostUpdated, snap)
}

// addToolCall books one dispatch.
func (s *runState) addToolCall() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.AddToolCall()
	s.inv.Cost = s.ledger.Snapshot()
}

// appendFinding adds f to the investigation and to its hypothesis's
// evidence lists. It assigns f an ID when it has none.
func (s *runState) appendFinding(f types.Finding) types.Finding {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	s.update(func(inv *types.Investigation) {
		inv.Findings = append(inv.Findings, f)
		if h := inv.Hypothesis(f.HypothesisID); h != nil {
			switch f.EvidenceType {
			case types.EvidenceSupporting:
				h.SupportingEvidence = append(h.SupportingEvidence, f.Title)
			case types.EvidenceContradicting:
				h.ContradictingEvidence = append(h.ContradictingEvidence, f.Title)
			}
		}
	})
	s.emit(events.TypeFindingRecorded, f)
	return f
}

// appendControl adds c to the negative or positive control list.
func (s *runState) appendControl(c types.Control) types.Control {
	s.update(func(inv *types.Investigation) {
		if c.ExpectedActive {
			inv.PositiveControls = append(inv.PositiveControls, c)
		} else {
			inv.NegativeControls = append(inv.NegativeControls, c)
		}
	})
	s.emit(events.TypeControlRecorded, c)
	return c
}

// experimentRecorder is the tools.Recorder handed to one experiment. It
// counts what the experiment contributed so batch results can be checked
// against the investigation totals.
type experimentRecorder struct {
	st       *runState
	mu       sync.Mutex
	findings int
	controls int
}

func (r *experimentRecorder) RecordFinding(_ context.Context, f types.Finding) (types.Finding, error) {
	f = r.st.appendFinding(f)
	r.mu.Lock()
	r.findings++
	r.mu.Unlock()
	return f, nil
}

func (r *experimentRecorder) RecordControl(_ context.Context, c types.Control) (types.Control, error) {
	c = r.st.appendControl(c)
	r.mu.Lock()
	r.controls++
	r.mu.Unlock()
	return c, nil
}

func (r *experimentRecorder) counts() (findings, controls int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findings, r.controls
}
