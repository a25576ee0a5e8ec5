// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"time"

	"github.com/google/uuid"
)

// HypothesisStatus is the lifecycle state of a Hypothesis.
type HypothesisStatus string

const (
	HypothesisProposed  HypothesisStatus = "proposed"
	HypothesisTesting   HypothesisStatus = "testing"
	HypothesisSupported HypothesisStatus = "supported"
	HypothesisRefuted   HypothesisStatus = "refuted"
	HypothesisRevised   HypothesisStatus = "revised"
	HypothesisRejected  HypothesisStatus = "rejected"
)

// Conclusive reports whether the status is a settled outcome that pruning
// must never overwrite.
func (s HypothesisStatus) Conclusive() bool {
	return s == HypothesisSupported || s == HypothesisRefuted
}

// ParseHypothesisStatus maps an evaluation verdict onto a status. Only the
// verdicts an evaluation may assign are accepted.
func ParseHypothesisStatus(s string) (HypothesisStatus, bool) {
	switch HypothesisStatus(s) {
	case HypothesisSupported, HypothesisRefuted, HypothesisRevised, HypothesisRejected:
		return HypothesisStatus(s), true
	}
	return "", false
}

// Certainty grades the body of evidence behind a hypothesis outcome.
type Certainty string

const (
	CertaintyHigh     Certainty = "high"
	CertaintyModerate Certainty = "moderate"
	CertaintyLow      Certainty = "low"
	CertaintyVeryLow  Certainty = "very_low"
)

// Hypothesis is one falsifiable claim in the hypothesis tree.
type Hypothesis struct {
	ID              string  `json:"id" yaml:"id"`
	Statement       string  `json:"statement" yaml:"statement"`
	Rationale       string  `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	Prediction      string  `json:"prediction,omitempty" yaml:"prediction,omitempty"`
	NullPrediction  string  `json:"null_prediction,omitempty" yaml:"null_prediction,omitempty"`
	SuccessCriteria string  `json:"success_criteria,omitempty" yaml:"success_criteria,omitempty"`
	FailureCriteria string  `json:"failure_criteria,omitempty" yaml:"failure_criteria,omitempty"`
	Scope           string  `json:"scope,omitempty" yaml:"scope,omitempty"`
	Type            string  `json:"type,omitempty" yaml:"type,omitempty"`
	PriorConfidence float64 `json:"prior_confidence" yaml:"prior_confidence"`

	Status HypothesisStatus `json:"status" yaml:"status"`

	// ParentID is empty for roots.
	ParentID string   `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Depth    int      `json:"depth" yaml:"depth"`
	Children []string `json:"children,omitempty" yaml:"children,omitempty"`

	BranchScore         float64   `json:"branch_score" yaml:"branch_score"`
	Confidence          float64   `json:"confidence" yaml:"confidence"`
	CertaintyOfEvidence Certainty `json:"certainty_of_evidence,omitempty" yaml:"certainty_of_evidence,omitempty"`
	Reasoning           string    `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`

	SupportingEvidence    []string `json:"supporting_evidence,omitempty" yaml:"supporting_evidence,omitempty"`
	ContradictingEvidence []string `json:"contradicting_evidence,omitempty" yaml:"contradicting_evidence,omitempty"`

	// Tested is set once the hypothesis enters testing and never cleared.
	Tested    bool      `json:"tested" yaml:"tested"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// NewHypothesis returns a proposed root hypothesis with a fresh ID.
func NewHypothesis(statement string) *Hypothesis {
	return &Hypothesis{
		ID:        uuid.NewString(),
		Statement: statement,
		Status:    HypothesisProposed,
		CreatedAt: time.Now().UTC(),
	}
}

// AddChild records childID in the ordered children list, once.
func (h *Hypothesis) AddChild(childID string) {
	for _, c := range h.Children {
		if c == childID {
			return
		}
	}
	h.Children = append(h.Children, childID)
}

// ExperimentStatus is the lifecycle state of an Experiment.
type ExperimentStatus string

const (
	ExperimentPlanned   ExperimentStatus = "planned"
	ExperimentRunning   ExperimentStatus = "running"
	ExperimentCompleted ExperimentStatus = "completed"
)

// Experiment is the designed test of one hypothesis.
type Experiment struct {
	ID                   string           `json:"id" yaml:"id"`
	HypothesisID         string           `json:"hypothesis_id" yaml:"hypothesis_id"`
	Description          string           `json:"description" yaml:"description"`
	ToolPlan             []string         `json:"tool_plan,omitempty" yaml:"tool_plan,omitempty"`
	IndependentVariables []string         `json:"independent_variables,omitempty" yaml:"independent_variables,omitempty"`
	DependentVariables   []string         `json:"dependent_variables,omitempty" yaml:"dependent_variables,omitempty"`
	Controls             []string         `json:"controls,omitempty" yaml:"controls,omitempty"`
	Confounders          []string         `json:"confounders,omitempty" yaml:"confounders,omitempty"`
	AnalysisPlan         string           `json:"analysis_plan,omitempty" yaml:"analysis_plan,omitempty"`
	SuccessCriteria      string           `json:"success_criteria,omitempty" yaml:"success_criteria,omitempty"`
	FailureCriteria      string           `json:"failure_criteria,omitempty" yaml:"failure_criteria,omitempty"`
	Status               ExperimentStatus `json:"status" yaml:"status"`
	Iterations           int              `json:"iterations" yaml:"iterations"`
	FindingCount         int              `json:"finding_count" yaml:"finding_count"`
}

// EvidenceType classifies how a finding bears on its hypothesis.
type EvidenceType string

const (
	EvidenceSupporting    EvidenceType = "supporting"
	EvidenceContradicting EvidenceType = "contradicting"
	EvidenceNeutral       EvidenceType = "neutral"
)

// ParseEvidenceType normalizes s, defaulting to neutral.
func ParseEvidenceType(s string) EvidenceType {
	switch EvidenceType(s) {
	case EvidenceSupporting, EvidenceContradicting:
		return EvidenceType(s)
	}
	return EvidenceNeutral
}

// Finding is one append-only piece of evidence.
type Finding struct {
	ID           string       `json:"id" yaml:"id"`
	Title        string       `json:"title" yaml:"title"`
	Detail       string       `json:"detail,omitempty" yaml:"detail,omitempty"`
	Evidence     string       `json:"evidence,omitempty" yaml:"evidence,omitempty"`
	HypothesisID string       `json:"hypothesis_id,omitempty" yaml:"hypothesis_id,omitempty"`
	EvidenceType EvidenceType `json:"evidence_type" yaml:"evidence_type"`
	SourceType   string       `json:"source_type,omitempty" yaml:"source_type,omitempty"`
	SourceID     string       `json:"source_id,omitempty" yaml:"source_id,omitempty"`

	// EvidenceLevel ranks study strength, 1 (strongest) to 6 (weakest).
	EvidenceLevel int `json:"evidence_level" yaml:"evidence_level"`
}

// Candidate is one ranked output of evidence synthesis.
type Candidate struct {
	Identifier   string  `json:"identifier" yaml:"identifier"`
	Name         string  `json:"name,omitempty" yaml:"name,omitempty"`
	Rationale    string  `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	Rank         int     `json:"rank" yaml:"rank"`
	Score        float64 `json:"score" yaml:"score"`
	HypothesisID string  `json:"hypothesis_id,omitempty" yaml:"hypothesis_id,omitempty"`
	Notes        string  `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Control is a negative or positive validation control. ExpectedActive is
// false for negative controls and true for positive ones; Correct reports
// whether the investigation classified it as expected.
type Control struct {
	Identifier     string  `json:"identifier" yaml:"identifier"`
	Name           string  `json:"name,omitempty" yaml:"name,omitempty"`
	Rationale      string  `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	ExpectedActive bool    `json:"expected_active" yaml:"expected_active"`
	Score          float64 `json:"score" yaml:"score"`
	Correct        bool    `json:"correct" yaml:"correct"`
	HypothesisID   string  `json:"hypothesis_id,omitempty" yaml:"hypothesis_id,omitempty"`
	Source         string  `json:"source,omitempty" yaml:"source,omitempty"`
}
