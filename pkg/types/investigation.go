// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the investigator engine:
// the Investigation aggregate and everything it owns (hypotheses,
// experiments, findings, controls, candidates, citations), the cost
// snapshot, the evaluation union, and per-component configuration.
package types

import (
	"time"

	"github.com/google/uuid"
)

// InvestigationStatus is the lifecycle state of an Investigation.
type InvestigationStatus string

const (
	StatusPending   InvestigationStatus = "pending"
	StatusRunning   InvestigationStatus = "running"
	StatusCompleted InvestigationStatus = "completed"
	StatusFailed    InvestigationStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s InvestigationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Phase names one stage of the fixed investigation pipeline.
type Phase string

const (
	PhaseClassification Phase = "classification"
	PhaseLiterature     Phase = "literature"
	PhaseFormulation    Phase = "formulation"
	PhaseTesting        Phase = "testing"
	PhaseControls       Phase = "controls"
	PhaseSynthesis      Phase = "synthesis"
)

// Phases lists the pipeline stages in execution order.
var Phases = []Phase{
	PhaseClassification,
	PhaseLiterature,
	PhaseFormulation,
	PhaseTesting,
	PhaseControls,
	PhaseSynthesis,
}

// Index returns the zero-based position of p in Phases, or -1.
func (p Phase) Index() int {
	for i, q := range Phases {
		if q == p {
			return i
		}
	}
	return -1
}

// PICO is the structured decomposition of the research question produced
// by the classification phase.
type PICO struct {
	Population   string   `json:"population" yaml:"population"`
	Intervention string   `json:"intervention" yaml:"intervention"`
	Comparison   string   `json:"comparison" yaml:"comparison"`
	Outcome      string   `json:"outcome" yaml:"outcome"`
	SearchTerms  []string `json:"search_terms" yaml:"search_terms"`
}

// Citation is a literature reference collected during an investigation.
type Citation struct {
	// Identifier is the canonical ID from the source (arXiv ID, DOI, or OpenAlex ID).
	Identifier string   `json:"identifier" yaml:"identifier"`
	Title      string   `json:"title" yaml:"title"`
	Authors    []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Year       int      `json:"year,omitempty" yaml:"year,omitempty"`
	Abstract   string   `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	// Source names the backend(s) that returned the reference, comma-joined.
	Source string `json:"source" yaml:"source"`
}

// ValidationMetrics summarizes how the recorded controls were classified.
// Accuracy fields are zero when the matching control set is empty.
type ValidationMetrics struct {
	NegativeControls int     `json:"negative_controls" yaml:"negative_controls"`
	PositiveControls int     `json:"positive_controls" yaml:"positive_controls"`
	NegativeCorrect  int     `json:"negative_correct" yaml:"negative_correct"`
	PositiveCorrect  int     `json:"positive_correct" yaml:"positive_correct"`
	NegativeAccuracy float64 `json:"negative_accuracy" yaml:"negative_accuracy"`
	PositiveAccuracy float64 `json:"positive_accuracy" yaml:"positive_accuracy"`
}

// Investigation is the root aggregate for one end-to-end research run.
// It is mutated only by the orchestrator, under the run's state lock.
// Hypotheses form an arena: tree links are ID references, never pointers.
type Investigation struct {
	ID        string              `json:"id" yaml:"id"`
	Prompt    string              `json:"prompt" yaml:"prompt"`
	Status    InvestigationStatus `json:"status" yaml:"status"`
	Domains   []string            `json:"domains" yaml:"domains"`
	Phase     Phase               `json:"phase" yaml:"phase"`
	Iteration int                 `json:"iteration" yaml:"iteration"`

	PICO              PICO   `json:"pico" yaml:"pico"`
	LiteratureSummary string `json:"literature_summary,omitempty" yaml:"literature_summary,omitempty"`

	Hypotheses       []*Hypothesis `json:"hypotheses" yaml:"hypotheses"`
	Experiments      []*Experiment `json:"experiments" yaml:"experiments"`
	Findings         []Finding     `json:"findings" yaml:"findings"`
	Candidates       []Candidate   `json:"candidates" yaml:"candidates"`
	NegativeControls []Control     `json:"negative_controls" yaml:"negative_controls"`
	PositiveControls []Control     `json:"positive_controls" yaml:"positive_controls"`
	Citations        []Citation    `json:"citations" yaml:"citations"`

	Summary    string            `json:"summary,omitempty" yaml:"summary,omitempty"`
	Validation ValidationMetrics `json:"validation" yaml:"validation"`
	Cost       CostSnapshot      `json:"cost" yaml:"cost"`
	Error      string            `json:"error,omitempty" yaml:"error,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// NewInvestigation creates a pending investigation for prompt.
func NewInvestigation(prompt string) *Investigation {
	now := time.Now().UTC()
	return &Investigation{
		ID:        uuid.NewString(),
		Prompt:    prompt,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Hypothesis returns the hypothesis with the given ID, or nil.
func (inv *Investigation) Hypothesis(id string) *Hypothesis {
	if id == "" {
		return nil
	}
	for _, h := range inv.Hypotheses {
		if h.ID == id {
			return h
		}
	}
	return nil
}

// AddHypothesis appends h to the arena.
func (inv *Investigation) AddHypothesis(h *Hypothesis) {
	inv.Hypotheses = append(inv.Hypotheses, h)
}

// Experiment returns the experiment with the given ID, or nil.
func (inv *Investigation) Experiment(id string) *Experiment {
	for _, e := range inv.Experiments {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// FindingsFor returns the findings recorded against hypothesisID, in order.
func (inv *Investigation) FindingsFor(hypothesisID string) []Finding {
	var out []Finding
	for _, f := range inv.Findings {
		if f.HypothesisID == hypothesisID {
			out = append(out, f)
		}
	}
	return out
}

// Tested returns the number of hypotheses that have entered testing,
// whatever their current status.
func (inv *Investigation) Tested() int {
	n := 0
	for _, h := range inv.Hypotheses {
		if h.Tested {
			n++
		}
	}
	return n
}
