// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/investigator/internal/events"
	"github.com/pdiddy/investigator/internal/reasoning"
	"github.com/pdiddy/investigator/internal/tools"
	"github.com/pdiddy/investigator/pkg/types"
)

// ExperimentResult reports what one experiment contributed. Findings is
// the number of findings the experiment appended to the investigation.
type ExperimentResult struct {
	ExperimentID string `json:"experiment_id"`
	HypothesisID string `json:"hypothesis_id"`
	Findings     int    `json:"findings"`
	Controls     int    `json:"controls"`
	Iterations   int    `json:"iterations"`
	StopReason   string `json:"stop_reason"`
}

// runBatch runs the experiments concurrently, at most BatchSize at a time.
// The first port error cancels the others and is returned; results for
// experiments that finished are still filled in.
func (e *Engine) runBatch(ctx context.Context, st *runState, exps []*types.Experiment) ([]ExperimentResult, error) {
	results := make([]ExperimentResult, len(exps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.BatchSize)
	for i, exp := range exps {
		g.Go(func() error {
			r, err := e.runExperiment(gctx, st, exp)
			results[i] = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// runExperiment drives one researcher conversation. Each iteration sends
// the transcript, surfaces text as thinking, dispatches every requested
// tool, and feeds the compacted outputs back. It ends when the model
// requests no tool or the iteration bound is reached.
func (e *Engine) runExperiment(ctx context.Context, st *runState, exp *types.Experiment) (ExperimentResult, error) {
	res := ExperimentResult{ExperimentID: exp.ID, HypothesisID: exp.HypothesisID}

	ctx, span := tracer.Start(ctx, "experiment.run", trace.WithAttributes(
		attribute.String("experiment.id", exp.ID),
		attribute.String("hypothesis.id", exp.HypothesisID)))
	defer span.End()

	var (
		hyp     types.Hypothesis
		domains []string
		design  types.Experiment
	)
	st.update(func(inv *types.Investigation) {
		exp.Status = types.ExperimentRunning
		if h := inv.Hypothesis(exp.HypothesisID); h != nil {
			hyp = *h
		}
		domains = inv.Domains
		design = *exp
	})
	st.emit(events.TypeExperimentStarted, struct {
		ExperimentID string `json:"experiment_id"`
		HypothesisID string `json:"hypothesis_id"`
		Description  string `json:"description"`
	}{exp.ID, exp.HypothesisID, design.Description})

	prompt, err := render(experimentTmpl, struct {
		Prompt     string
		Hypothesis types.Hypothesis
		Experiment types.Experiment
	}{st.inv.Prompt, hyp, design})
	if err != nil {
		return res, err
	}

	reg := e.dispatcher.Registry()
	visible := reg.ListForDomain(domains)
	specs := reg.Specs(visible)
	offered := make(map[string]bool, len(visible))
	for _, name := range visible {
		offered[name] = true
	}
	rec := &experimentRecorder{st: st}
	scope := tools.Scope{
		InvestigationID: st.inv.ID,
		HypothesisID:    exp.HypothesisID,
		ExperimentID:    exp.ID,
		Domains:         domains,
		Recorder:        rec,
	}
	transcript := []reasoning.Message{reasoning.UserText(prompt)}

	for iter := 1; iter <= e.cfg.MaxExperimentIterations; iter++ {
		resp, err := e.port.CreateMessage(ctx, reasoning.Request{
			Model:    e.models.Researcher,
			System:   researcherSystem,
			Messages: transcript,
			Tools:    specs,
		})
		if err != nil {
			span.RecordError(err)
			return res, fmt.Errorf("experiment %s: reasoning with %s: %w", exp.ID, e.models.Researcher, err)
		}
		st.addUsage(e.models.Researcher, resp)
		res.Iterations = iter
		res.StopReason = resp.StopReason

		if text := resp.Text(); text != "" {
			st.emit(events.TypeThinking, events.Message{Text: text, ExperimentID: exp.ID})
		}

		uses := resp.ToolUses()
		if len(uses) == 0 {
			break
		}
		transcript = append(transcript, reasoning.Message{Role: "assistant", Content: resp.Content})

		results := make([]reasoning.Block, 0, len(uses))
		for _, use := range uses {
			out := e.dispatchTracked(ctx, st, use.Name, use.ID, use.Input, scope, offered)
			results = append(results, reasoning.ToolResultBlock(use.ID, e.dispatcher.Compact(use.Name, out), tools.IsError(out)))
		}
		transcript = append(transcript, reasoning.Message{Role: "user", Content: results})
	}

	res.Findings, res.Controls = rec.counts()
	st.update(func(inv *types.Investigation) {
		exp.Status = types.ExperimentCompleted
		exp.Iterations = res.Iterations
		exp.FindingCount = res.Findings
	})
	st.emit(events.TypeExperimentCompleted, res)
	e.logger.Debug("experiment completed",
		zap.String("experiment", exp.ID),
		zap.Int("iterations", res.Iterations),
		zap.Int("findings", res.Findings))
	return res, nil
}

// dispatchTracked runs one tool with tool_called and tool_result events
// around it and books the call on the ledger. A non-nil offered set limits
// which tools may run; any other name gets an error payload without being
// invoked. The returned output is raw; compaction is left to the caller.
func (e *Engine) dispatchTracked(ctx context.Context, st *runState, name, useID string, input json.RawMessage, scope tools.Scope, offered map[string]bool) string {
	st.emit(events.TypeToolCalled, events.ToolCalled{
		Tool:         name,
		ToolUseID:    useID,
		ExperimentID: scope.ExperimentID,
		Input:        input,
	})

	var out string
	if offered != nil && !offered[name] {
		out = tools.ErrorPayload(name, fmt.Sprintf("tool %q is not available for domains %v", name, scope.Domains))
	} else {
		out = e.dispatcher.Dispatch(ctx, name, input, scope)
	}
	st.addToolCall()

	isErr := tools.IsError(out)
	st.emit(events.TypeToolResult, events.ToolResult{
		Tool:         name,
		ToolUseID:    useID,
		ExperimentID: scope.ExperimentID,
		Output:       tools.Truncate(out, e.cfg.MaxToolOutputChars),
		IsError:      isErr,
	})
	if isErr {
		e.logger.Warn("tool returned error payload",
			zap.String("tool", name),
			zap.String("experiment", scope.ExperimentID))
	}
	return out
}
