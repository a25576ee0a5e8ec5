// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

const directorSystem = `You are the director of a hypothesis-driven research investigation. You plan, judge evidence strictly, and prefer falsifiable claims. Answer only through the structured response you are asked for.`

const researcherSystem = `You are a research scientist running one experiment to test a single hypothesis. Use the available tools to gather evidence. Record every meaningful observation with record_finding, and any control you evaluate with record_negative_control or record_positive_control. Stop calling tools when the evidence is sufficient to judge the hypothesis.`

const summarizerSystem = `You classify research questions. Be concise and return only the structured response.`

var funcs = template.FuncMap{
	"join": strings.Join,
	"inc":  func(i int) int { return i + 1 },
}

var classifyTmpl = template.Must(template.New("classify").Funcs(funcs).Parse(`Classify the research question below.

Return its scientific domains as short lowercase tags (e.g. "chemistry", "biology", "economics"), a PICO decomposition, and up to five literature search queries.

Research question:
{{.Prompt}}
`))

var literatureTmpl = template.Must(template.New("literature").Funcs(funcs).Parse(`Survey the literature relevant to this research question.

Research question:
{{.Prompt}}

Population: {{.PICO.Population}}
Intervention: {{.PICO.Intervention}}
Comparison: {{.PICO.Comparison}}
Outcome: {{.PICO.Outcome}}
{{if .Citations}}
Retrieved references:
{{range $i, $c := .Citations}}{{inc $i}}. [{{$c.Identifier}}] {{$c.Title}}{{if $c.Year}} ({{$c.Year}}){{end}}
{{end}}{{else}}
No references were retrieved; rely on what you know and say so.
{{end}}
Summarize the state of knowledge and list the key findings, each with an evidence level from 1 (systematic review) to 6 (anecdote) and, where possible, the identifier of the reference it comes from as source_id.
`))

var formulateTmpl = template.Must(template.New("formulate").Funcs(funcs).Parse(`Formulate falsifiable hypotheses for this research question.

Research question:
{{.Prompt}}

Domains: {{join .Domains ", "}}

Literature summary:
{{.Summary}}

For each hypothesis give a statement, rationale, prediction, null prediction, success and failure criteria, scope, a type tag, and a prior confidence between 0 and 1. Propose at most {{.Max}} hypotheses, most promising first. Also propose negative controls: cases the investigation should classify as inactive.
`))

var designTmpl = template.Must(template.New("design").Funcs(funcs).Parse(`Design an experiment that tests this hypothesis with the available tools.

Hypothesis: {{.Hypothesis.Statement}}
Prediction: {{.Hypothesis.Prediction}}
Null prediction: {{.Hypothesis.NullPrediction}}
Success criteria: {{.Hypothesis.SuccessCriteria}}
Failure criteria: {{.Hypothesis.FailureCriteria}}

Available tools: {{join .Tools ", "}}
{{if .Siblings}}
Experiments already designed in this round (choose a non-overlapping approach):
{{range .Siblings}}- {{.Description}}{{if .ToolPlan}} [tools: {{join .ToolPlan ", "}}]{{end}}
{{end}}{{end}}`))

var experimentTmpl = template.Must(template.New("experiment").Funcs(funcs).Parse(`Research question: {{.Prompt}}

Hypothesis under test: {{.Hypothesis.Statement}}
Prediction: {{.Hypothesis.Prediction}}
Null prediction: {{.Hypothesis.NullPrediction}}

Experiment design:
{{.Experiment.Description}}
{{if .Experiment.ToolPlan}}Planned tools: {{join .Experiment.ToolPlan ", "}}
{{end}}{{if .Experiment.AnalysisPlan}}Analysis plan: {{.Experiment.AnalysisPlan}}
{{end}}Success criteria: {{.Experiment.SuccessCriteria}}
Failure criteria: {{.Experiment.FailureCriteria}}

Run the experiment now.
`))

var evaluateTmpl = template.Must(template.New("evaluate").Funcs(funcs).Parse(`Evaluate the hypothesis against the evidence gathered.

Hypothesis: {{.Hypothesis.Statement}}
Success criteria: {{.Hypothesis.SuccessCriteria}}
Failure criteria: {{.Hypothesis.FailureCriteria}}
Depth in tree: {{.Hypothesis.Depth}}
{{if .Findings}}
Findings:
{{range .Findings}}- [{{.EvidenceType}}, level {{.EvidenceLevel}}] {{.Title}}{{if .Detail}}: {{.Detail}}{{end}}
{{end}}{{else}}
No findings were recorded.
{{end}}
Decide the status (supported, refuted, revised, or rejected), a posterior confidence between 0 and 1, the certainty of evidence (high, moderate, low, very_low), and the next action: "deepen" to refine into a narrower hypothesis, "branch" to try an alternative at the same level, or "prune" to stop. Give the revised statement for deepen and branch.
`))

var controlsTmpl = template.Must(template.New("controls").Funcs(funcs).Parse(`Validate the investigation with controls.

Research question: {{.Prompt}}

Tested hypotheses:
{{range .Hypotheses}}- [{{.Status}}] {{.Statement}}
{{else}}(none)
{{end}}{{if .Proposed}}
Proposed negative controls:
{{range .Proposed}}- {{.Identifier}}{{if .Name}} ({{.Name}}){{end}}: {{.Rationale}}
{{end}}{{end}}{{if .Recorded}}
Controls already recorded during experiments:
{{range .Recorded}}- {{.Identifier}} expected_active={{.ExpectedActive}} correct={{.Correct}}
{{end}}{{end}}
Classify each proposed negative control, and add positive controls (known actives) with how the investigation's approach classifies them.
`))

var synthesisTmpl = template.Must(template.New("synthesis").Funcs(funcs).Parse(`Synthesize the evidence into a final answer.

Research question: {{.Prompt}}

Hypothesis outcomes:
{{range .Hypotheses}}- [{{.Status}}, confidence {{printf "%.2f" .Confidence}}] {{.Statement}} (id {{.ID}})
{{else}}(no hypotheses were tested)
{{end}}
Findings recorded: {{.FindingCount}}
Validation: negative accuracy {{printf "%.2f" .Validation.NegativeAccuracy}}, positive accuracy {{printf "%.2f" .Validation.PositiveAccuracy}}

Write a summary and rank the candidate answers (rank 1 is best) with a score between 0 and 1. Return no candidates if the evidence supports none.
`))

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// Output schemas for structured replies.
var (
	classifySchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "domains": {"type": "array", "items": {"type": "string"}},
    "population": {"type": "string"},
    "intervention": {"type": "string"},
    "comparison": {"type": "string"},
    "outcome": {"type": "string"},
    "search_terms": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["domains", "search_terms"]
}`)

	literatureSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "summary": {"type": "string"},
    "findings": {"type": "array", "items": {
      "type": "object",
      "properties": {
        "title": {"type": "string"},
        "detail": {"type": "string"},
        "evidence": {"type": "string"},
        "evidence_type": {"type": "string", "enum": ["supporting", "contradicting", "neutral"]},
        "evidence_level": {"type": "integer"},
        "source_id": {"type": "string"}
      },
      "required": ["title"]
    }}
  },
  "required": ["summary"]
}`)

	formulateSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "hypotheses": {"type": "array", "items": {
      "type": "object",
      "properties": {
        "statement": {"type": "string"},
        "rationale": {"type": "string"},
        "prediction": {"type": "string"},
        "null_prediction": {"type": "string"},
        "success_criteria": {"type": "string"},
        "failure_criteria": {"type": "string"},
        "scope": {"type": "string"},
        "type": {"type": "string"},
        "prior_confidence": {"type": "number"}
      },
      "required": ["statement"]
    }},
    "negative_controls": {"type": "array", "items": {
      "type": "object",
      "properties": {
        "identifier": {"type": "string"},
        "name": {"type": "string"},
        "rationale": {"type": "string"}
      },
      "required": ["identifier"]
    }}
  },
  "required": ["hypotheses"]
}`)

	designSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "description": {"type": "string"},
    "tool_plan": {"type": "array", "items": {"type": "string"}},
    "independent_variables": {"type": "array", "items": {"type": "string"}},
    "dependent_variables": {"type": "array", "items": {"type": "string"}},
    "controls": {"type": "array", "items": {"type": "string"}},
    "confounders": {"type": "array", "items": {"type": "string"}},
    "analysis_plan": {"type": "string"},
    "success_criteria": {"type": "string"},
    "failure_criteria": {"type": "string"}
  },
  "required": ["description"]
}`)

	evaluateSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "status": {"type": "string", "enum": ["supported", "refuted", "revised", "rejected"]},
    "confidence": {"type": "number"},
    "certainty_of_evidence": {"type": "string", "enum": ["high", "moderate", "low", "very_low"]},
    "reasoning": {"type": "string"},
    "key_evidence": {"type": "array", "items": {"type": "string"}},
    "action": {"type": "string", "enum": ["deepen", "branch", "prune"]},
    "revision": {"type": "string"}
  },
  "required": ["status", "confidence", "action"]
}`)

	controlsSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "negative_controls": {"type": "array", "items": {"$ref": "#/$defs/control"}},
    "positive_controls": {"type": "array", "items": {"$ref": "#/$defs/control"}}
  },
  "$defs": {
    "control": {
      "type": "object",
      "properties": {
        "identifier": {"type": "string"},
        "name": {"type": "string"},
        "rationale": {"type": "string"},
        "score": {"type": "number"},
        "classified_active": {"type": "boolean"}
      },
      "required": ["identifier", "classified_active"]
    }
  }
}`)

	synthesisSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "summary": {"type": "string"},
    "candidates": {"type": "array", "items": {
      "type": "object",
      "properties": {
        "identifier": {"type": "string"},
        "name": {"type": "string"},
        "rationale": {"type": "string"},
        "rank": {"type": "integer"},
        "score": {"type": "number"},
        "hypothesis_id": {"type": "string"},
        "notes": {"type": "string"}
      },
      "required": ["identifier"]
    }}
  },
  "required": ["summary"]
}`)
)
