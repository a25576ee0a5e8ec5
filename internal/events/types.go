// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package events

import (
	"encoding/json"
	"time"
)

// Type names the kind of state change an event records.
type Type string

const (
	TypePhaseChanged           Type = "phase_changed"
	TypeDomainDetected         Type = "domain_detected"
	TypeThinking               Type = "thinking"
	TypeLiteratureSearched     Type = "literature_searched"
	TypeHypothesisFormulated   Type = "hypothesis_formulated"
	TypeApprovalRequested      Type = "approval_requested"
	TypeApprovalResolved       Type = "approval_resolved"
	TypeExperimentStarted      Type = "experiment_started"
	TypeExperimentCompleted    Type = "experiment_completed"
	TypeToolCalled             Type = "tool_called"
	TypeToolResult             Type = "tool_result"
	TypeFindingRecorded        Type = "finding_recorded"
	TypeControlRecorded        Type = "control_recorded"
	TypeHypothesisEvaluated    Type = "hypothesis_evaluated"
	TypeCostUpdated            Type = "cost_updated"
	TypeInvestigationCompleted Type = "investigation_completed"
	TypeInvestigationError     Type = "investigation_error"
)

// Terminal reports whether t ends a run.
func (t Type) Terminal() bool {
	return t == TypeInvestigationCompleted || t == TypeInvestigationError
}

// Event is one record in the log. Seq starts at 1 and increases by one per
// append; it is the position readers resume from.
type Event struct {
	Seq             int64           `json:"seq"`
	ID              string          `json:"id"`
	InvestigationID string          `json:"investigation_id"`
	Type            Type            `json:"type"`
	Timestamp       time.Time       `json:"timestamp"`
	Data            json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

// Payloads for the event types that carry more than a message.

// PhaseChanged is the payload of TypePhaseChanged.
type PhaseChanged struct {
	Phase string `json:"phase"`
}

// ToolCalled is the payload of TypeToolCalled.
type ToolCalled struct {
	Tool         string          `json:"tool"`
	ToolUseID    string          `json:"tool_use_id"`
	ExperimentID string          `json:"experiment_id,omitempty"`
	Input        json.RawMessage `json:"input,omitempty"`
}

// ToolResult is the payload of TypeToolResult.
type ToolResult struct {
	Tool         string `json:"tool"`
	ToolUseID    string `json:"tool_use_id"`
	ExperimentID string `json:"experiment_id,omitempty"`
	Output       string `json:"output"`
	IsError      bool   `json:"is_error"`
}

// Message is the payload of events that carry only text.
type Message struct {
	Text         string `json:"text"`
	ExperimentID string `json:"experiment_id,omitempty"`
}
