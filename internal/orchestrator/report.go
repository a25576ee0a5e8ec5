// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"time"

	"github.com/pdiddy/investigator/pkg/types"
)

// HypothesisOutcome is the report view of one hypothesis.
type HypothesisOutcome struct {
	ID                  string                 `json:"id" yaml:"id"`
	Statement           string                 `json:"statement" yaml:"statement"`
	Status              types.HypothesisStatus `json:"status" yaml:"status"`
	Confidence          float64                `json:"confidence" yaml:"confidence"`
	CertaintyOfEvidence types.Certainty        `json:"certainty_of_evidence,omitempty" yaml:"certainty_of_evidence,omitempty"`
	ParentID            string                 `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Depth               int                    `json:"depth" yaml:"depth"`
	BranchScore         float64                `json:"branch_score" yaml:"branch_score"`
	Tested              bool                   `json:"tested" yaml:"tested"`
	Supporting          int                    `json:"supporting" yaml:"supporting"`
	Contradicting       int                    `json:"contradicting" yaml:"contradicting"`
}

// Report is the final snapshot of an investigation handed to callers.
type Report struct {
	InvestigationID  string                    `json:"investigation_id" yaml:"investigation_id"`
	Prompt           string                    `json:"prompt" yaml:"prompt"`
	Status           types.InvestigationStatus `json:"status" yaml:"status"`
	Domains          []string                  `json:"domains" yaml:"domains"`
	Summary          string                    `json:"summary,omitempty" yaml:"summary,omitempty"`
	Candidates       []types.Candidate         `json:"candidates" yaml:"candidates"`
	Hypotheses       []HypothesisOutcome       `json:"hypotheses" yaml:"hypotheses"`
	NegativeControls []types.Control           `json:"negative_controls" yaml:"negative_controls"`
	PositiveControls []types.Control           `json:"positive_controls" yaml:"positive_controls"`
	Validation       types.ValidationMetrics   `json:"validation" yaml:"validation"`
	Citations        int                       `json:"citations" yaml:"citations"`
	Findings         int                       `json:"findings" yaml:"findings"`
	Iterations       int                       `json:"iterations" yaml:"iterations"`
	Cost             types.CostSnapshot        `json:"cost" yaml:"cost"`
	Error            string                    `json:"error,omitempty" yaml:"error,omitempty"`
	CompletedAt      time.Time                 `json:"completed_at" yaml:"completed_at"`
}

// BuildReport projects inv into a Report. Candidates is never nil.
func BuildReport(inv *types.Investigation) *Report {
	r := &Report{
		InvestigationID:  inv.ID,
		Prompt:           inv.Prompt,
		Status:           inv.Status,
		Domains:          inv.Domains,
		Summary:          inv.Summary,
		Candidates:       append([]types.Candidate{}, inv.Candidates...),
		NegativeControls: inv.NegativeControls,
		PositiveControls: inv.PositiveControls,
		Validation:       inv.Validation,
		Citations:        len(inv.Citations),
		Findings:         len(inv.Findings),
		Iterations:       inv.Iteration,
		Cost:             inv.Cost,
		Error:            inv.Error,
		CompletedAt:      inv.UpdatedAt,
	}
	for _, h := range inv.Hypotheses {
		r.Hypotheses = append(r.Hypotheses, HypothesisOutcome{
			ID:                  h.ID,
			Statement:           h.Statement,
			Status:              h.Status,
			Confidence:          h.Confidence,
			CertaintyOfEvidence: h.CertaintyOfEvidence,
			ParentID:            h.ParentID,
			Depth:               h.Depth,
			BranchScore:         h.BranchScore,
			Tested:              h.Tested,
			Supporting:          len(h.SupportingEvidence),
			Contradicting:       len(h.ContradictingEvidence),
		})
	}
	return r
}
