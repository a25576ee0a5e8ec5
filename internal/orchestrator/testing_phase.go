// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/investigator/internal/events"
	"github.com/pdiddy/investigator/internal/tree"
	"github.com/pdiddy/investigator/pkg/types"
)

// testOutcome is the result of the testing phase.
type testOutcome struct {
	Rounds  int
	Results []ExperimentResult
}

type designReply struct {
	Description          string   `json:"description"`
	ToolPlan             []string `json:"tool_plan"`
	IndependentVariables []string `json:"independent_variables"`
	DependentVariables   []string `json:"dependent_variables"`
	Controls             []string `json:"controls"`
	Confounders          []string `json:"confounders"`
	AnalysisPlan         string   `json:"analysis_plan"`
	SuccessCriteria      string   `json:"success_criteria"`
	FailureCriteria      string   `json:"failure_criteria"`
}

type evaluateReply struct {
	Status      string   `json:"status"`
	Confidence  float64  `json:"confidence"`
	Certainty   string   `json:"certainty_of_evidence"`
	Reasoning   string   `json:"reasoning"`
	KeyEvidence []string `json:"key_evidence"`
	Action      string   `json:"action"`
	Revision    string   `json:"revision"`
}

// test runs selection, design, batch execution, and evaluation rounds
// until the hypothesis budget is spent or no eligible hypothesis remains.
func (e *Engine) test(ctx context.Context, st *runState, form formulation) (testOutcome, error) {
	var out testOutcome
	if !form.Approved {
		return out, nil
	}

	for {
		var batch []*types.Hypothesis
		st.update(func(inv *types.Investigation) {
			remaining := e.cfg.MaxHypotheses - inv.Tested()
			if remaining <= 0 || !tree.ShouldContinue(inv.Hypotheses, e.cfg.MaxDepth) {
				return
			}
			batch = tree.SelectNext(inv.Hypotheses, e.cfg.MaxDepth)
			if len(batch) > remaining {
				batch = batch[:remaining]
			}
			if len(batch) > e.cfg.BatchSize {
				batch = batch[:e.cfg.BatchSize]
			}
			for _, h := range batch {
				h.Status = types.HypothesisTesting
				h.Tested = true
			}
		})
		if len(batch) == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}

		var exps []*types.Experiment
		for _, h := range batch {
			exp, err := e.design(ctx, st, h, exps)
			if err != nil {
				return out, err
			}
			exps = append(exps, exp)
		}

		results, err := e.runBatch(ctx, st, exps)
		out.Results = append(out.Results, results...)
		if err != nil {
			return out, err
		}

		st.update(func(inv *types.Investigation) { inv.Iteration++ })
		out.Rounds++

		for _, h := range batch {
			if err := e.evaluate(ctx, st, h); err != nil {
				return out, err
			}
		}
		fmt.Fprintf(e.progress, "round     %d: tested %d/%d hypotheses\n", out.Rounds, st.inv.Tested(), e.cfg.MaxHypotheses)
	}
	return out, nil
}

// design asks for an experiment plan for h. Designs already made this
// round are shown so the new one avoids overlapping them.
func (e *Engine) design(ctx context.Context, st *runState, h *types.Hypothesis, siblings []*types.Experiment) (*types.Experiment, error) {
	var snapshot types.Hypothesis
	var domains []string
	st.read(func(inv *types.Investigation) {
		snapshot = *h
		domains = inv.Domains
	})

	prompt, err := render(designTmpl, struct {
		Hypothesis types.Hypothesis
		Tools      []string
		Siblings   []*types.Experiment
	}{snapshot, e.dispatcher.Registry().ListForDomain(domains), siblings})
	if err != nil {
		return nil, err
	}
	resp, err := e.ask(ctx, st, e.models.Director, directorSystem, prompt, designSchema)
	if err != nil {
		return nil, err
	}

	var reply designReply
	if raw, ok := e.decode(resp, &reply, "design"); !ok {
		reply.Description = raw
	}
	if strings.TrimSpace(reply.Description) == "" {
		reply.Description = "Test: " + snapshot.Statement
	}

	exp := &types.Experiment{
		ID:                   uuid.NewString(),
		HypothesisID:         h.ID,
		Description:          reply.Description,
		ToolPlan:             reply.ToolPlan,
		IndependentVariables: reply.IndependentVariables,
		DependentVariables:   reply.DependentVariables,
		Controls:             reply.Controls,
		Confounders:          reply.Confounders,
		AnalysisPlan:         reply.AnalysisPlan,
		SuccessCriteria:      firstNonEmpty(reply.SuccessCriteria, snapshot.SuccessCriteria),
		FailureCriteria:      firstNonEmpty(reply.FailureCriteria, snapshot.FailureCriteria),
		Status:               types.ExperimentPlanned,
	}
	st.update(func(inv *types.Investigation) {
		inv.Experiments = append(inv.Experiments, exp)
	})
	return exp, nil
}

// evaluate judges h on its findings and applies the resulting tree action.
func (e *Engine) evaluate(ctx context.Context, st *runState, h *types.Hypothesis) error {
	var (
		snapshot types.Hypothesis
		findings []types.Finding
	)
	st.read(func(inv *types.Investigation) {
		snapshot = *h
		findings = inv.FindingsFor(h.ID)
	})

	prompt, err := render(evaluateTmpl, struct {
		Hypothesis types.Hypothesis
		Findings   []types.Finding
	}{snapshot, findings})
	if err != nil {
		return err
	}
	resp, err := e.ask(ctx, st, e.models.Director, directorSystem, prompt, evaluateSchema)
	if err != nil {
		return err
	}

	var reply evaluateReply
	if raw, ok := e.decode(resp, &reply, "evaluation"); !ok {
		reply.Reasoning = raw
	}
	eval := toEvaluation(reply)

	var created []*types.Hypothesis
	st.update(func(inv *types.Investigation) {
		h.Status = eval.Status
		h.Confidence = eval.Confidence
		h.CertaintyOfEvidence = eval.Certainty
		h.Reasoning = eval.Reasoning
		created = tree.ApplyEvaluation(h, eval, inv)
		for _, c := range created {
			inv.AddHypothesis(c)
		}
	})

	st.emit(events.TypeHypothesisEvaluated, struct {
		HypothesisID string                 `json:"hypothesis_id"`
		Status       types.HypothesisStatus `json:"status"`
		Confidence   float64                `json:"confidence"`
		Certainty    types.Certainty        `json:"certainty_of_evidence,omitempty"`
		Action       types.Action           `json:"action"`
		Created      []string               `json:"created,omitempty"`
	}{h.ID, eval.Status, eval.Confidence, eval.Certainty, eval.Action, ids(created)})
	for _, c := range created {
		st.emit(events.TypeHypothesisFormulated, c)
	}
	e.logger.Debug("hypothesis evaluated",
		zap.String("hypothesis", h.ID),
		zap.String("status", string(eval.Status)),
		zap.String("action", string(eval.Action)),
		zap.Int("created", len(created)))
	return nil
}

// toEvaluation maps the raw reply onto the evaluation union. A missing or
// unknown action prunes; an unknown status is treated as revised so that
// pruning can still reject it.
func toEvaluation(r evaluateReply) types.Evaluation {
	action, ok := types.ParseAction(r.Action)
	if !ok {
		action = types.ActionPrune
	}
	status, ok := types.ParseHypothesisStatus(strings.ToLower(strings.TrimSpace(r.Status)))
	if !ok {
		status = types.HypothesisRevised
	}
	return types.Evaluation{
		Status:      status,
		Confidence:  clamp01(r.Confidence),
		Certainty:   parseCertainty(r.Certainty),
		Reasoning:   r.Reasoning,
		KeyEvidence: r.KeyEvidence,
		Action:      action,
		Revision:    strings.TrimSpace(r.Revision),
	}
}

func parseCertainty(s string) types.Certainty {
	switch c := types.Certainty(strings.ToLower(strings.TrimSpace(s))); c {
	case types.CertaintyHigh, types.CertaintyModerate, types.CertaintyLow, types.CertaintyVeryLow:
		return c
	}
	return ""
}

func ids(hs []*types.Hypothesis) []string {
	var out []string
	for _, h := range hs {
		out = append(out, h.ID)
	}
	return out
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}
