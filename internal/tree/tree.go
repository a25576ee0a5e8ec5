// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tree implements selection and mutation over the hypothesis tree.
// Hypotheses live in a flat arena on the Investigation; parent and child
// links are ID references. Functions here never take the run state lock;
// callers that share an Investigation across goroutines must hold it.
package tree

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/investigator/pkg/types"
)

// BatchSize is the maximum number of hypotheses SelectNext returns.
const BatchSize = 2

// ErrCycle is returned when a parent walk revisits a hypothesis.
var ErrCycle = errors.New("hypothesis tree cycle")

// depthDiscount is the per-level penalty in ComputeBranchScore.
const depthDiscount = 0.2

// certaintyFactor maps a parent's certainty of evidence onto a score
// multiplier. Unknown or absent certainty is 1.0.
var certaintyFactor = map[types.Certainty]float64{
	types.CertaintyHigh:     1.3,
	types.CertaintyModerate: 1.0,
	types.CertaintyLow:      0.85,
	types.CertaintyVeryLow:  0.7,
}

// ComputeBranchScore returns the selection priority of h. The prior
// confidence (0.5 when unset) is discounted by depth and scaled by the
// parent's certainty of evidence, then rounded to four decimals.
func ComputeBranchScore(h *types.Hypothesis, inv *types.Investigation) float64 {
	base := h.PriorConfidence
	if base <= 0 {
		base = 0.5
	}
	score := base / (1 + depthDiscount*float64(h.Depth))

	if inv != nil && h.ParentID != "" && h.ParentID != h.ID {
		if parent := inv.Hypothesis(h.ParentID); parent != nil && parent.CertaintyOfEvidence != "" {
			if f, ok := certaintyFactor[parent.CertaintyOfEvidence]; ok {
				score *= f
			}
		}
	}
	return round4(score)
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// eligible reports whether h can be picked for testing.
func eligible(h *types.Hypothesis, maxDepth int) bool {
	return h.Status == types.HypothesisProposed && h.Depth <= maxDepth
}

// SelectNext returns up to BatchSize proposed hypotheses with depth at most
// maxDepth, highest branch score first. Equal scores go to the shallower
// hypothesis; remaining ties keep arena order.
func SelectNext(hs []*types.Hypothesis, maxDepth int) []*types.Hypothesis {
	var out []*types.Hypothesis
	for _, h := range hs {
		if eligible(h, maxDepth) {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BranchScore != out[j].BranchScore {
			return out[i].BranchScore > out[j].BranchScore
		}
		return out[i].Depth < out[j].Depth
	})
	if len(out) > BatchSize {
		out = out[:BatchSize]
	}
	return out
}

// ShouldContinue reports whether any hypothesis is still eligible for
// testing.
func ShouldContinue(hs []*types.Hypothesis, maxDepth int) bool {
	for _, h := range hs {
		if eligible(h, maxDepth) {
			return true
		}
	}
	return false
}

// ApplyEvaluation applies the evaluation's tree action to h and returns the
// hypotheses it created. Deepen adds a child one level below h; Branch adds
// an alternative at h's depth. Both are parented to h and recorded in
// h.Children. An empty revision creates nothing. Prune rejects h unless it
// already holds a conclusive status.
//
// New hypotheses are not added to the arena; the caller appends them with
// inv.AddHypothesis.
func ApplyEvaluation(h *types.Hypothesis, eval types.Evaluation, inv *types.Investigation) []*types.Hypothesis {
	switch eval.Action {
	case types.ActionDeepen:
		if eval.Revision == "" {
			return nil
		}
		return []*types.Hypothesis{newChild(h, eval, h.Depth+1, inv)}

	case types.ActionBranch:
		if eval.Revision == "" {
			return nil
		}
		return []*types.Hypothesis{newChild(h, eval, h.Depth, inv)}

	default:
		if !h.Status.Conclusive() {
			h.Status = types.HypothesisRejected
		}
		return nil
	}
}

func newChild(parent *types.Hypothesis, eval types.Evaluation, depth int, inv *types.Investigation) *types.Hypothesis {
	child := &types.Hypothesis{
		ID:              uuid.NewString(),
		Statement:       eval.Revision,
		Rationale:       eval.Reasoning,
		Scope:           parent.Scope,
		Type:            parent.Type,
		PriorConfidence: eval.Confidence,
		Status:          types.HypothesisProposed,
		ParentID:        parent.ID,
		Depth:           depth,
		CreatedAt:       time.Now().UTC(),
	}
	parent.AddChild(child.ID)
	child.BranchScore = ComputeBranchScore(child, inv)
	return child
}

// Index maps hypothesis IDs to their arena entries.
func Index(hs []*types.Hypothesis) map[string]*types.Hypothesis {
	idx := make(map[string]*types.Hypothesis, len(hs))
	for _, h := range hs {
		idx[h.ID] = h
	}
	return idx
}

// Ancestors returns the parent chain of id, nearest first. It fails with
// ErrCycle when a hypothesis is its own ancestor, including self-parenting.
func Ancestors(idx map[string]*types.Hypothesis, id string) ([]*types.Hypothesis, error) {
	h, ok := idx[id]
	if !ok {
		return nil, fmt.Errorf("hypothesis %s not found", id)
	}
	seen := map[string]bool{h.ID: true}
	var out []*types.Hypothesis
	for h.ParentID != "" {
		if seen[h.ParentID] {
			return out, fmt.Errorf("walking parents of %s: %w", id, ErrCycle)
		}
		parent, ok := idx[h.ParentID]
		if !ok {
			break
		}
		seen[parent.ID] = true
		out = append(out, parent)
		h = parent
	}
	return out, nil
}

// Validate checks the structural integrity of the investigation's
// hypothesis arena: unique IDs, no parent cycles, and children lists that
// point back at their parent.
func Validate(inv *types.Investigation) error {
	idx := make(map[string]*types.Hypothesis, len(inv.Hypotheses))
	for _, h := range inv.Hypotheses {
		if _, dup := idx[h.ID]; dup {
			return fmt.Errorf("duplicate hypothesis id %s", h.ID)
		}
		idx[h.ID] = h
	}
	for _, h := range inv.Hypotheses {
		if h.ParentID == h.ID {
			return fmt.Errorf("hypothesis %s is its own parent: %w", h.ID, ErrCycle)
		}
		if _, err := Ancestors(idx, h.ID); err != nil {
			return err
		}
		for _, c := range h.Children {
			child, ok := idx[c]
			if !ok {
				continue
			}
			if child.ParentID != h.ID {
				return fmt.Errorf("child %s of %s has parent %q", c, h.ID, child.ParentID)
			}
		}
	}
	return nil
}
