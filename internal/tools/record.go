// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/investigator/pkg/types"
)

// Names of the universal recording tools.
const (
	RecordFinding         = "record_finding"
	RecordNegativeControl = "record_negative_control"
	RecordPositiveControl = "record_positive_control"
)

// Evidence levels bound Finding.EvidenceLevel.
const (
	StrongestEvidence = 1
	WeakestEvidence   = 6
	defaultEvidence   = 5
)

const findingSchema = `{
  "type": "object",
  "properties": {
    "title": {"type": "string", "description": "One-line statement of what was observed."},
    "detail": {"type": "string"},
    "evidence": {"type": "string", "description": "Quoted tool output or data supporting the finding."},
    "evidence_type": {"type": "string", "enum": ["supporting", "contradicting", "neutral"]},
    "evidence_level": {"type": "integer", "minimum": 1, "maximum": 6, "description": "1 = systematic review, 6 = anecdote."},
    "source_type": {"type": "string"},
    "source_id": {"type": "string"}
  },
  "required": ["title", "evidence_type"]
}`

const controlSchema = `{
  "type": "object",
  "properties": {
    "identifier": {"type": "string"},
    "name": {"type": "string"},
    "rationale": {"type": "string"},
    "score": {"type": "number"},
    "classified_active": {"type": "boolean", "description": "Whether the investigation's approach judged this control active."}
  },
  "required": ["identifier", "classified_active"]
}`

type findingInput struct {
	Title         string `json:"title"`
	Detail        string `json:"detail"`
	Evidence      string `json:"evidence"`
	EvidenceType  string `json:"evidence_type"`
	EvidenceLevel int    `json:"evidence_level"`
	SourceType    string `json:"source_type"`
	SourceID      string `json:"source_id"`
}

type controlInput struct {
	Identifier       string  `json:"identifier"`
	Name             string  `json:"name"`
	Rationale        string  `json:"rationale"`
	Score            float64 `json:"score"`
	ClassifiedActive bool    `json:"classified_active"`
}

// ack is returned to the model after a successful record.
type ack struct {
	Recorded string `json:"recorded"`
	ID       string `json:"id"`
}

// RegisterRecorders adds the three universal recording tools to reg.
func RegisterRecorders(reg *Registry) error {
	if err := reg.Register(RecordFinding, Func(recordFinding), nil,
		WithDescription("Record a finding from this experiment as evidence for or against the hypothesis."),
		WithSchema(findingSchema)); err != nil {
		return err
	}
	if err := reg.Register(RecordNegativeControl, controlRecorder(false), nil,
		WithDescription("Record a negative control: something expected to be inactive, with how the approach classified it."),
		WithSchema(controlSchema)); err != nil {
		return err
	}
	return reg.Register(RecordPositiveControl, controlRecorder(true), nil,
		WithDescription("Record a positive control: something known to be active, with how the approach classified it."),
		WithSchema(controlSchema))
}

// ParseFinding validates a record_finding input and fills defaults from
// scope.
func ParseFinding(input json.RawMessage, scope Scope) (types.Finding, error) {
	var in findingInput
	if err := json.Unmarshal(input, &in); err != nil {
		return types.Finding{}, fmt.Errorf("parsing finding: %w", err)
	}
	if strings.TrimSpace(in.Title) == "" {
		return types.Finding{}, fmt.Errorf("finding title is required")
	}

	f := types.Finding{
		Title:         strings.TrimSpace(in.Title),
		Detail:        in.Detail,
		Evidence:      in.Evidence,
		HypothesisID:  scope.HypothesisID,
		EvidenceType:  types.ParseEvidenceType(in.EvidenceType),
		SourceType:    in.SourceType,
		SourceID:      in.SourceID,
		EvidenceLevel: in.EvidenceLevel,
	}
	if f.SourceType == "" {
		f.SourceType = "experiment"
	}
	if f.SourceID == "" {
		f.SourceID = scope.ExperimentID
	}
	switch {
	case f.EvidenceLevel == 0:
		f.EvidenceLevel = defaultEvidence
	case f.EvidenceLevel < StrongestEvidence:
		f.EvidenceLevel = StrongestEvidence
	case f.EvidenceLevel > WeakestEvidence:
		f.EvidenceLevel = WeakestEvidence
	}
	return f, nil
}

// ParseControl validates a control input. expectedActive is false for
// negative controls.
func ParseControl(input json.RawMessage, scope Scope, expectedActive bool) (types.Control, error) {
	var in controlInput
	if err := json.Unmarshal(input, &in); err != nil {
		return types.Control{}, fmt.Errorf("parsing control: %w", err)
	}
	if strings.TrimSpace(in.Identifier) == "" {
		return types.Control{}, fmt.Errorf("control identifier is required")
	}
	return types.Control{
		Identifier:     strings.TrimSpace(in.Identifier),
		Name:           in.Name,
		Rationale:      in.Rationale,
		ExpectedActive: expectedActive,
		Score:          in.Score,
		Correct:        in.ClassifiedActive == expectedActive,
		HypothesisID:   scope.HypothesisID,
		Source:         "experiment",
	}, nil
}

func recordFinding(ctx context.Context, call Call) (string, error) {
	if call.Scope.Recorder == nil {
		return "", fmt.Errorf("findings can only be recorded inside an experiment")
	}
	f, err := ParseFinding(call.Input, call.Scope)
	if err != nil {
		return "", err
	}
	f, err = call.Scope.Recorder.RecordFinding(ctx, f)
	if err != nil {
		return "", fmt.Errorf("recording finding: %w", err)
	}
	return marshalAck("finding", f.ID), nil
}

func controlRecorder(expectedActive bool) Func {
	kind := "negative_control"
	if expectedActive {
		kind = "positive_control"
	}
	return func(ctx context.Context, call Call) (string, error) {
		if call.Scope.Recorder == nil {
			return "", fmt.Errorf("controls can only be recorded inside an experiment")
		}
		c, err := ParseControl(call.Input, call.Scope, expectedActive)
		if err != nil {
			return "", err
		}
		c, err = call.Scope.Recorder.RecordControl(ctx, c)
		if err != nil {
			return "", fmt.Errorf("recording control: %w", err)
		}
		return marshalAck(kind, c.Identifier), nil
	}
}

func marshalAck(kind, id string) string {
	b, _ := json.Marshal(ack{Recorded: kind, ID: id})
	return string(b)
}
