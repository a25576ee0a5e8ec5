// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// Action is the tree transition an evaluation requests for its hypothesis.
type Action string

const (
	// ActionDeepen refines the hypothesis into a child one level deeper.
	ActionDeepen Action = "deepen"
	// ActionBranch proposes an alternative at the same depth.
	ActionBranch Action = "branch"
	// ActionPrune stops exploring the hypothesis.
	ActionPrune Action = "prune"
)

// ParseAction maps a raw action string onto an Action. A missing action is
// Prune; that mapping lives here, at the decoding boundary, so tree logic
// never sees an empty action. ok is false for unrecognized values, which
// also map to Prune.
func ParseAction(s string) (a Action, ok bool) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return ActionPrune, true
	case ActionDeepen:
		return ActionDeepen, true
	case ActionBranch:
		return ActionBranch, true
	case ActionPrune:
		return ActionPrune, true
	}
	return ActionPrune, false
}

// Evaluation is the verdict on one tested hypothesis. Revision carries the
// new statement for Deepen and Branch and is ignored for Prune.
type Evaluation struct {
	Status      HypothesisStatus `json:"status" yaml:"status"`
	Confidence  float64          `json:"confidence" yaml:"confidence"`
	Certainty   Certainty        `json:"certainty_of_evidence,omitempty" yaml:"certainty_of_evidence,omitempty"`
	Reasoning   string           `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
	KeyEvidence []string         `json:"key_evidence,omitempty" yaml:"key_evidence,omitempty"`
	Action      Action           `json:"action" yaml:"action"`
	Revision    string           `json:"revision,omitempty" yaml:"revision,omitempty"`
}

// Deepen returns an evaluation requesting a deeper refinement.
func Deepen(revision string) Evaluation {
	return Evaluation{Action: ActionDeepen, Revision: revision}
}

// Branch returns an evaluation requesting a same-depth alternative.
func Branch(revision string) Evaluation {
	return Evaluation{Action: ActionBranch, Revision: revision}
}

// Prune returns an evaluation that stops exploring the hypothesis.
func Prune() Evaluation {
	return Evaluation{Action: ActionPrune}
}
