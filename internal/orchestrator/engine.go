// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package orchestrator runs an investigation end to end: six ordered
// phases over a shared Investigation, with hypothesis testing fanned out
// in batches of at most two concurrent experiments.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pdiddy/investigator/internal/cost"
	"github.com/pdiddy/investigator/internal/events"
	"github.com/pdiddy/investigator/internal/reasoning"
	"github.com/pdiddy/investigator/internal/tools"
	"github.com/pdiddy/investigator/pkg/types"
)

var tracer = otel.Tracer("github.com/pdiddy/investigator/internal/orchestrator")

// ErrTerminal is returned when Run is given an investigation that already
// completed or failed.
var ErrTerminal = errors.New("investigation already terminal")

// Engine sequences the investigation phases. One Engine may run many
// investigations; per-run state lives in runState.
type Engine struct {
	port       reasoning.Port
	dispatcher *tools.Dispatcher
	cfg        types.EngineConfig
	models     types.ModelsConfig
	pricing    map[string]types.ModelPrice
	logger     *zap.Logger
	progress   io.Writer
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the engine bounds. Non-positive bounds take defaults,
// except MaxDepth where zero limits testing to root hypotheses.
func WithConfig(cfg types.EngineConfig) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithModels assigns models to the director, researcher, and summarizer roles.
func WithModels(m types.ModelsConfig) Option {
	return func(e *Engine) { e.models = m }
}

// WithPricing overrides model prices in new ledgers.
func WithPricing(p map[string]types.ModelPrice) Option {
	return func(e *Engine) { e.pricing = p }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithProgress sets where one-line phase progress is printed.
func WithProgress(w io.Writer) Option {
	return func(e *Engine) { e.progress = w }
}

// New returns an engine that reasons through port and runs tools through
// dispatcher.
func New(port reasoning.Port, dispatcher *tools.Dispatcher, opts ...Option) *Engine {
	e := &Engine{
		port:       port,
		dispatcher: dispatcher,
		cfg:        types.DefaultEngineConfig(),
		models:     types.DefaultConfig().Models,
		logger:     zap.NewNop(),
		progress:   io.Discard,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cfg = e.cfg.Normalize()
	return e
}

// Config returns the normalized engine bounds.
func (e *Engine) Config() types.EngineConfig { return e.cfg }

// runOptions carries per-run collaborators.
type runOptions struct {
	log    *events.Log
	gate   *Gate
	ledger *cost.Ledger
}

// RunOption configures one Run.
type RunOption func(*runOptions)

// WithEventLog makes the run append to log, so callers can stream it while
// the run progresses. Run closes the log when it returns.
func WithEventLog(log *events.Log) RunOption {
	return func(o *runOptions) { o.log = log }
}

// WithGate supplies the approval gate consumed after formulation.
func WithGate(g *Gate) RunOption {
	return func(o *runOptions) { o.gate = g }
}

// WithLedger supplies the cost ledger.
func WithLedger(l *cost.Ledger) RunOption {
	return func(o *runOptions) { o.ledger = l }
}

// Run executes every phase against inv and returns the final report.
// Every run ends completed or failed. On failure the investigation
// records the error and a partial cost snapshot, an investigation_error
// event is emitted, and Run returns the report together with the error.
func (e *Engine) Run(ctx context.Context, inv *types.Investigation, opts ...RunOption) (*Report, error) {
	if inv.Status.Terminal() {
		return nil, fmt.Errorf("running %s: %w", inv.ID, ErrTerminal)
	}

	o := runOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = events.NewLog(inv.ID)
	}
	if o.gate == nil {
		o.gate = NewGate()
	}
	if o.ledger == nil {
		o.ledger = cost.NewLedger(e.pricing)
	}
	defer o.log.Close()

	st := &runState{inv: inv, ledger: o.ledger, log: o.log}
	log := e.logger.With(zap.String("investigation", inv.ID))

	ctx, span := tracer.Start(ctx, "investigation.run",
		trace.WithAttributes(attribute.String("investigation.id", inv.ID)))
	defer span.End()

	st.update(func(inv *types.Investigation) { inv.Status = types.StatusRunning })
	log.Info("investigation started", zap.String("prompt", inv.Prompt))

	if err := e.runPhases(ctx, st, o.gate); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.fail(st, err)
		log.Error("investigation failed", zap.Error(err))
		return BuildReport(inv), err
	}

	snap := o.ledger.Snapshot()
	st.update(func(inv *types.Investigation) {
		inv.Status = types.StatusCompleted
		inv.Cost = snap
	})
	st.emit(events.TypeInvestigationCompleted, snap)
	fmt.Fprintf(e.progress, "completed %s: %d hypotheses tested, %d findings, $%.4f\n",
		inv.ID, inv.Tested(), len(inv.Findings), snap.TotalCostUSD)
	log.Info("investigation completed",
		zap.Int("hypotheses_tested", inv.Tested()),
		zap.Int("findings", len(inv.Findings)),
		zap.Float64("cost_usd", snap.TotalCostUSD))
	return BuildReport(inv), nil
}

func (e *Engine) fail(st *runState, err error) {
	snap := st.ledger.Snapshot()
	st.update(func(inv *types.Investigation) {
		inv.Status = types.StatusFailed
		inv.Error = err.Error()
		inv.Cost = snap
	})
	st.emit(events.TypeInvestigationError, struct {
		Error string             `json:"error"`
		Cost  types.CostSnapshot `json:"cost"`
	}{err.Error(), snap})
	fmt.Fprintf(e.progress, "failed    %s: %v\n", st.inv.ID, err)
}

func (e *Engine) runPhases(ctx context.Context, st *runState, gate *Gate) error {
	cls, err := phase(ctx, e, st, types.PhaseClassification, func(ctx context.Context) (classification, error) {
		return e.classify(ctx, st)
	})
	if err != nil {
		return err
	}
	lit, err := phase(ctx, e, st, types.PhaseLiterature, func(ctx context.Context) (literature, error) {
		return e.survey(ctx, st, cls)
	})
	if err != nil {
		return err
	}
	form, err := phase(ctx, e, st, types.PhaseFormulation, func(ctx context.Context) (formulation, error) {
		return e.formulate(ctx, st, lit, gate)
	})
	if err != nil {
		return err
	}
	tested, err := phase(ctx, e, st, types.PhaseTesting, func(ctx context.Context) (testOutcome, error) {
		return e.test(ctx, st, form)
	})
	if err != nil {
		return err
	}
	val, err := phase(ctx, e, st, types.PhaseControls, func(ctx context.Context) (types.ValidationMetrics, error) {
		return e.validate(ctx, st, form, tested)
	})
	if err != nil {
		return err
	}
	_, err = phase(ctx, e, st, types.PhaseSynthesis, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.synthesize(ctx, st, val)
	})
	return err
}

// phase marks p current, emits phase_changed, and runs fn inside a span.
// A cancelled context fails the phase before it starts.
func phase[T any](ctx context.Context, e *Engine, st *runState, p types.Phase, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, fmt.Errorf("%s phase: %w", p, err)
	}

	ctx, span := tracer.Start(ctx, "phase."+string(p))
	defer span.End()

	st.update(func(inv *types.Investigation) { inv.Phase = p })
	st.emit(events.TypePhaseChanged, events.PhaseChanged{Phase: string(p)})
	fmt.Fprintf(e.progress, "phase     %s\n", p)
	e.logger.Debug("phase started", zap.String("investigation", st.inv.ID), zap.String("phase", string(p)))

	out, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return zero, fmt.Errorf("%s phase: %w", p, err)
	}
	return out, nil
}

// ask sends one structured request and books its usage. Port errors are
// returned unchanged; they fail the run.
func (e *Engine) ask(ctx context.Context, st *runState, model, system, prompt string, schema json.RawMessage) (*reasoning.Response, error) {
	resp, err := e.port.CreateMessage(ctx, reasoning.Request{
		Model:        model,
		System:       system,
		Messages:     []reasoning.Message{reasoning.UserText(prompt)},
		OutputSchema: schema,
	})
	if err != nil {
		return nil, fmt.Errorf("reasoning with %s: %w", model, err)
	}
	st.addUsage(model, resp)
	return resp, nil
}

// decode parses the structured reply into v. On failure it logs and
// returns the raw text so callers can degrade to a best-effort payload.
func (e *Engine) decode(resp *reasoning.Response, v any, what string) (raw string, ok bool) {
	if err := reasoning.Decode(resp, v); err != nil {
		e.logger.Warn("unstructured reply", zap.String("step", what), zap.Error(err))
		return resp.Text(), false
	}
	return "", true
}
