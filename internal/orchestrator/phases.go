// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/investigator/internal/events"
	"github.com/pdiddy/investigator/internal/tools"
	"github.com/pdiddy/investigator/internal/tree"
	"github.com/pdiddy/investigator/pkg/types"
)

// SearchTool is the tool the literature phase dispatches, when registered.
const SearchTool = "search_literature"

// generalDomain is used when classification names no domain.
const generalDomain = "general"

// classification is the result of the classification phase.
type classification struct {
	Domains []string
	PICO    types.PICO
}

type classifyReply struct {
	Domains      []string `json:"domains"`
	Population   string   `json:"population"`
	Intervention string   `json:"intervention"`
	Comparison   string   `json:"comparison"`
	Outcome      string   `json:"outcome"`
	SearchTerms  []string `json:"search_terms"`
}

func (e *Engine) classify(ctx context.Context, st *runState) (classification, error) {
	prompt, err := render(classifyTmpl, struct{ Prompt string }{st.inv.Prompt})
	if err != nil {
		return classification{}, err
	}
	resp, err := e.ask(ctx, st, e.models.Summarizer, summarizerSystem, prompt, classifySchema)
	if err != nil {
		return classification{}, err
	}

	var reply classifyReply
	e.decode(resp, &reply, "classification")

	out := classification{
		Domains: normalizeTags(reply.Domains),
		PICO: types.PICO{
			Population:   reply.Population,
			Intervention: reply.Intervention,
			Comparison:   reply.Comparison,
			Outcome:      reply.Outcome,
			SearchTerms:  nonEmpty(reply.SearchTerms),
		},
	}
	if len(out.Domains) == 0 {
		out.Domains = []string{generalDomain}
	}

	st.update(func(inv *types.Investigation) {
		inv.Domains = out.Domains
		inv.PICO = out.PICO
	})
	st.emit(events.TypeDomainDetected, struct {
		Domains []string   `json:"domains"`
		PICO    types.PICO `json:"pico"`
	}{out.Domains, out.PICO})
	return out, nil
}

// literature is the result of the literature phase.
type literature struct {
	Summary   string
	Citations []types.Citation
}

type literatureReply struct {
	Summary  string `json:"summary"`
	Findings []struct {
		Title         string `json:"title"`
		Detail        string `json:"detail"`
		Evidence      string `json:"evidence"`
		EvidenceType  string `json:"evidence_type"`
		EvidenceLevel int    `json:"evidence_level"`
		SourceID      string `json:"source_id"`
	} `json:"findings"`
}

// searchReply is the output shape of the search tool.
type searchReply struct {
	Results []types.Citation `json:"results"`
}

func (e *Engine) survey(ctx context.Context, st *runState, cls classification) (literature, error) {
	var lit literature

	terms := cls.PICO.SearchTerms
	if len(terms) == 0 {
		terms = []string{st.inv.Prompt}
	}
	if len(terms) > e.cfg.MaxSearchQueries {
		terms = terms[:e.cfg.MaxSearchQueries]
	}

	if _, err := e.dispatcher.Registry().Lookup(SearchTool); err == nil {
		seen := make(map[string]bool)
		scope := tools.Scope{InvestigationID: st.inv.ID, Domains: cls.Domains}
		for _, term := range terms {
			input, _ := json.Marshal(map[string]string{"query": term})
			out := e.dispatchTracked(ctx, st, SearchTool, "", input, scope, nil)

			var reply searchReply
			added := 0
			if !tools.IsError(out) && json.Unmarshal([]byte(out), &reply) == nil {
				for _, c := range reply.Results {
					key := strings.ToLower(c.Identifier)
					if key == "" || seen[key] {
						continue
					}
					seen[key] = true
					lit.Citations = append(lit.Citations, c)
					added++
				}
			}
			st.emit(events.TypeLiteratureSearched, struct {
				Query string `json:"query"`
				Added int    `json:"added"`
			}{term, added})
		}
	}

	st.update(func(inv *types.Investigation) {
		inv.Citations = mergeCitations(inv.Citations, lit.Citations)
	})

	prompt, err := render(literatureTmpl, struct {
		Prompt    string
		PICO      types.PICO
		Citations []types.Citation
	}{st.inv.Prompt, cls.PICO, lit.Citations})
	if err != nil {
		return lit, err
	}
	resp, err := e.ask(ctx, st, e.models.Director, directorSystem, prompt, literatureSchema)
	if err != nil {
		return lit, err
	}

	var reply literatureReply
	if raw, ok := e.decode(resp, &reply, "literature"); !ok {
		reply.Summary = raw
	}
	lit.Summary = reply.Summary

	for _, f := range reply.Findings {
		if strings.TrimSpace(f.Title) == "" {
			continue
		}
		level := f.EvidenceLevel
		if level < tools.StrongestEvidence || level > tools.WeakestEvidence {
			level = tools.WeakestEvidence
		}
		st.appendFinding(types.Finding{
			Title:         f.Title,
			Detail:        f.Detail,
			Evidence:      f.Evidence,
			EvidenceType:  types.ParseEvidenceType(f.EvidenceType),
			SourceType:    "literature",
			SourceID:      f.SourceID,
			EvidenceLevel: level,
		})
	}
	st.update(func(inv *types.Investigation) { inv.LiteratureSummary = lit.Summary })
	fmt.Fprintf(e.progress, "literature %d references, %d findings\n", len(lit.Citations), len(reply.Findings))
	return lit, nil
}

// formulation is the result of the formulation phase.
type formulation struct {
	Roots            []string
	ProposedControls []types.Control
	Approved         bool
}

type formulateReply struct {
	Hypotheses []struct {
		Statement       string  `json:"statement"`
		Rationale       string  `json:"rationale"`
		Prediction      string  `json:"prediction"`
		NullPrediction  string  `json:"null_prediction"`
		SuccessCriteria string  `json:"success_criteria"`
		FailureCriteria string  `json:"failure_criteria"`
		Scope           string  `json:"scope"`
		Type            string  `json:"type"`
		PriorConfidence float64 `json:"prior_confidence"`
	} `json:"hypotheses"`
	NegativeControls []struct {
		Identifier string `json:"identifier"`
		Name       string `json:"name"`
		Rationale  string `json:"rationale"`
	} `json:"negative_controls"`
}

func (e *Engine) formulate(ctx context.Context, st *runState, lit literature, gate *Gate) (formulation, error) {
	var form formulation

	prompt, err := render(formulateTmpl, struct {
		Prompt  string
		Domains []string
		Summary string
		Max     int
	}{st.inv.Prompt, st.inv.Domains, lit.Summary, e.cfg.MaxHypotheses})
	if err != nil {
		return form, err
	}
	resp, err := e.ask(ctx, st, e.models.Director, directorSystem, prompt, formulateSchema)
	if err != nil {
		return form, err
	}

	var reply formulateReply
	e.decode(resp, &reply, "formulation")

	for _, r := range reply.Hypotheses {
		if strings.TrimSpace(r.Statement) == "" {
			continue
		}
		h := types.NewHypothesis(r.Statement)
		h.Rationale = r.Rationale
		h.Prediction = r.Prediction
		h.NullPrediction = r.NullPrediction
		h.SuccessCriteria = r.SuccessCriteria
		h.FailureCriteria = r.FailureCriteria
		h.Scope = r.Scope
		h.Type = r.Type
		h.PriorConfidence = clamp01(r.PriorConfidence)

		st.update(func(inv *types.Investigation) {
			h.BranchScore = tree.ComputeBranchScore(h, inv)
			inv.AddHypothesis(h)
		})
		st.emit(events.TypeHypothesisFormulated, h)
		form.Roots = append(form.Roots, h.ID)
	}
	for _, c := range reply.NegativeControls {
		if strings.TrimSpace(c.Identifier) == "" {
			continue
		}
		form.ProposedControls = append(form.ProposedControls, types.Control{
			Identifier: c.Identifier,
			Name:       c.Name,
			Rationale:  c.Rationale,
			Source:     "formulation",
		})
	}
	fmt.Fprintf(e.progress, "formulated %d hypotheses, %d negative controls\n", len(form.Roots), len(form.ProposedControls))

	form.Approved = true
	if e.cfg.RequireApproval {
		approved, err := e.awaitApproval(ctx, st, gate, len(form.Roots))
		if err != nil {
			return form, err
		}
		form.Approved = approved
	}
	if !form.Approved {
		st.update(func(inv *types.Investigation) {
			for _, h := range inv.Hypotheses {
				if h.Status == types.HypothesisProposed {
					h.Status = types.HypothesisRejected
				}
			}
		})
	}
	return form, nil
}

// awaitApproval consumes the gate once. A timeout approves.
func (e *Engine) awaitApproval(ctx context.Context, st *runState, gate *Gate, n int) (bool, error) {
	st.emit(events.TypeApprovalRequested, struct {
		Hypotheses int     `json:"hypotheses"`
		TimeoutSec float64 `json:"timeout_seconds"`
	}{n, e.cfg.ApprovalTimeout.Seconds()})

	approved, timedOut, err := gate.Wait(ctx, e.cfg.ApprovalTimeout)
	if err != nil {
		return false, fmt.Errorf("waiting for approval: %w", err)
	}
	st.emit(events.TypeApprovalResolved, struct {
		Approved bool `json:"approved"`
		TimedOut bool `json:"timed_out"`
	}{approved, timedOut})
	e.logger.Info("approval resolved",
		zap.String("investigation", st.inv.ID),
		zap.Bool("approved", approved),
		zap.Bool("timed_out", timedOut))
	return approved, nil
}

type controlsReply struct {
	NegativeControls []controlReply `json:"negative_controls"`
	PositiveControls []controlReply `json:"positive_controls"`
}

type controlReply struct {
	Identifier       string  `json:"identifier"`
	Name             string  `json:"name"`
	Rationale        string  `json:"rationale"`
	Score            float64 `json:"score"`
	ClassifiedActive bool    `json:"classified_active"`
}

// validate classifies controls and derives the validation metrics. It
// skips the port when there is nothing to classify.
func (e *Engine) validate(ctx context.Context, st *runState, form formulation, tested testOutcome) (types.ValidationMetrics, error) {
	var (
		hs       []types.Hypothesis
		recorded []types.Control
	)
	st.read(func(inv *types.Investigation) {
		for _, h := range inv.Hypotheses {
			if h.Tested {
				hs = append(hs, *h)
			}
		}
		recorded = append(recorded, inv.NegativeControls...)
		recorded = append(recorded, inv.PositiveControls...)
	})

	if len(hs) > 0 || len(form.ProposedControls) > 0 {
		prompt, err := render(controlsTmpl, struct {
			Prompt     string
			Hypotheses []types.Hypothesis
			Proposed   []types.Control
			Recorded   []types.Control
		}{st.inv.Prompt, hs, form.ProposedControls, recorded})
		if err != nil {
			return types.ValidationMetrics{}, err
		}
		resp, err := e.ask(ctx, st, e.models.Director, directorSystem, prompt, controlsSchema)
		if err != nil {
			return types.ValidationMetrics{}, err
		}

		var reply controlsReply
		e.decode(resp, &reply, "controls")
		for _, c := range reply.NegativeControls {
			if c.Identifier != "" {
				st.appendControl(toControl(c, false))
			}
		}
		for _, c := range reply.PositiveControls {
			if c.Identifier != "" {
				st.appendControl(toControl(c, true))
			}
		}
	}

	var m types.ValidationMetrics
	st.update(func(inv *types.Investigation) {
		m = ComputeValidation(inv.NegativeControls, inv.PositiveControls)
		inv.Validation = m
	})
	fmt.Fprintf(e.progress, "controls  %d negative, %d positive (%d experiments)\n",
		m.NegativeControls, m.PositiveControls, len(tested.Results))
	return m, nil
}

func toControl(c controlReply, expectedActive bool) types.Control {
	return types.Control{
		Identifier:     c.Identifier,
		Name:           c.Name,
		Rationale:      c.Rationale,
		ExpectedActive: expectedActive,
		Score:          c.Score,
		Correct:        c.ClassifiedActive == expectedActive,
		Source:         "validation",
	}
}

// ComputeValidation counts controls and the fraction classified as
// expected. Accuracy is zero for an empty set.
func ComputeValidation(negative, positive []types.Control) types.ValidationMetrics {
	m := types.ValidationMetrics{NegativeControls: len(negative), PositiveControls: len(positive)}
	for _, c := range negative {
		if c.Correct {
			m.NegativeCorrect++
		}
	}
	for _, c := range positive {
		if c.Correct {
			m.PositiveCorrect++
		}
	}
	if m.NegativeControls > 0 {
		m.NegativeAccuracy = float64(m.NegativeCorrect) / float64(m.NegativeControls)
	}
	if m.PositiveControls > 0 {
		m.PositiveAccuracy = float64(m.PositiveCorrect) / float64(m.PositiveControls)
	}
	return m
}

type synthesisReply struct {
	Summary    string            `json:"summary"`
	Candidates []types.Candidate `json:"candidates"`
}

func (e *Engine) synthesize(ctx context.Context, st *runState, val types.ValidationMetrics) error {
	var (
		hs       []types.Hypothesis
		findings int
	)
	st.read(func(inv *types.Investigation) {
		for _, h := range inv.Hypotheses {
			hs = append(hs, *h)
		}
		findings = len(inv.Findings)
	})

	prompt, err := render(synthesisTmpl, struct {
		Prompt       string
		Hypotheses   []types.Hypothesis
		FindingCount int
		Validation   types.ValidationMetrics
	}{st.inv.Prompt, hs, findings, val})
	if err != nil {
		return err
	}
	resp, err := e.ask(ctx, st, e.models.Director, directorSystem, prompt, synthesisSchema)
	if err != nil {
		return err
	}

	var reply synthesisReply
	if raw, ok := e.decode(resp, &reply, "synthesis"); !ok {
		reply.Summary = raw
	}
	candidates := RankCandidates(reply.Candidates)

	st.update(func(inv *types.Investigation) {
		inv.Summary = reply.Summary
		if candidates == nil {
			candidates = []types.Candidate{}
		}
		inv.Candidates = candidates
	})
	fmt.Fprintf(e.progress, "synthesis %d candidates\n", len(candidates))
	return nil
}

// RankCandidates orders candidates by rank ascending, then score
// descending, and renumbers ranks from 1. Candidates without a positive
// rank sort after ranked ones; entries without an identifier are dropped.
func RankCandidates(cs []types.Candidate) []types.Candidate {
	var out []types.Candidate
	for _, c := range cs {
		if strings.TrimSpace(c.Identifier) != "" {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Rank, out[j].Rank
		if (ri > 0) != (rj > 0) {
			return ri > 0
		}
		if ri != rj {
			return ri < rj
		}
		return out[i].Score > out[j].Score
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func mergeCitations(have, add []types.Citation) []types.Citation {
	seen := make(map[string]bool, len(have))
	for _, c := range have {
		seen[strings.ToLower(c.Identifier)] = true
	}
	for _, c := range add {
		key := strings.ToLower(c.Identifier)
		if seen[key] {
			continue
		}
		seen[key] = true
		have = append(have, c)
	}
	return have
}

func normalizeTags(tags []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func nonEmpty(ss []string) []string {
	var out []string
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
