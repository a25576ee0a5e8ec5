// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tools holds the capability registry and the dispatcher that
// invokes registered tools with failure isolation. Tools share one
// string-in, string-out contract; the registry knows nothing about a
// tool's internals beyond its name, tags, description, and input schema.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/pdiddy/investigator/internal/reasoning"
	"github.com/pdiddy/investigator/pkg/types"
)

// ErrUnknownTool is returned by Lookup for unregistered names.
var ErrUnknownTool = errors.New("unknown tool")

// ErrDuplicateTool is returned when a name is registered twice.
var ErrDuplicateTool = errors.New("tool already registered")

// Recorder receives evidence produced by recording tools. The batch
// executor implements it and applies each record under the run state lock.
type Recorder interface {
	RecordFinding(ctx context.Context, f types.Finding) (types.Finding, error)
	RecordControl(ctx context.Context, c types.Control) (types.Control, error)
}

// Scope identifies where a call happens. Recorder is nil outside
// experiments.
type Scope struct {
	InvestigationID string
	HypothesisID    string
	ExperimentID    string
	Domains         []string
	Recorder        Recorder
}

// Call is one tool invocation.
type Call struct {
	Name  string
	Input json.RawMessage
	Scope Scope
}

// Tool is a named capability.
type Tool interface {
	Invoke(ctx context.Context, call Call) (string, error)
}

// Func adapts a function to the Tool interface.
type Func func(ctx context.Context, call Call) (string, error)

// Invoke calls f.
func (f Func) Invoke(ctx context.Context, call Call) (string, error) {
	return f(ctx, call)
}

// Compactor shrinks a tool's raw output before it enters a transcript.
type Compactor func(output string, limit int) string

type entry struct {
	name        string
	tool        Tool
	tags        map[string]bool
	description string
	schema      json.RawMessage
	compactor   Compactor
}

func (e *entry) universal() bool { return len(e.tags) == 0 }

// Option configures a registered tool.
type Option func(*entry)

// WithDescription sets the description shown to the model.
func WithDescription(d string) Option {
	return func(e *entry) { e.description = d }
}

// WithSchema sets the JSON schema of the tool input.
func WithSchema(schema string) Option {
	return func(e *entry) { e.schema = json.RawMessage(schema) }
}

// WithCompactor sets a tool-specific output compactor.
func WithCompactor(c Compactor) Option {
	return func(e *entry) { e.compactor = c }
}

// defaultSchema accepts any object.
var defaultSchema = json.RawMessage(`{"type":"object"}`)

// Registry maps tool names to implementations. Register during setup;
// after that the registry is read-only and safe for concurrent reads.
type Registry struct {
	entries map[string]*entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register adds a tool. Nil or empty tags make it universal: visible to
// every domain.
func (r *Registry) Register(name string, tool Tool, tags []string, opts ...Option) error {
	if name == "" {
		return fmt.Errorf("registering tool: empty name")
	}
	if tool == nil {
		return fmt.Errorf("registering tool %s: nil implementation", name)
	}
	if _, ok := r.entries[name]; ok {
		return fmt.Errorf("registering tool %s: %w", name, ErrDuplicateTool)
	}
	e := &entry{name: name, tool: tool, schema: defaultSchema}
	if len(tags) > 0 {
		e.tags = make(map[string]bool, len(tags))
		for _, t := range tags {
			e.tags[t] = true
		}
	}
	for _, opt := range opts {
		opt(e)
	}
	r.entries[name] = e
	return nil
}

// MustRegister is Register for setup code that cannot recover.
func (r *Registry) MustRegister(name string, tool Tool, tags []string, opts ...Option) {
	if err := r.Register(name, tool, tags, opts...); err != nil {
		panic(err)
	}
}

// Lookup returns the named tool.
func (r *Registry) Lookup(name string) (Tool, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownTool)
	}
	return e.tool, nil
}

// ListForDomain returns, sorted, the tools whose tags intersect tags plus
// every universal tool.
func (r *Registry) ListForDomain(tags []string) []string {
	var names []string
	for name, e := range r.entries {
		if e.universal() || intersects(e.tags, tags) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Names returns every registered tool name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tags returns the sorted tags of the named tool; nil for universal or
// unknown tools.
func (r *Registry) Tags(name string) []string {
	e, ok := r.entries[name]
	if !ok || e.universal() {
		return nil
	}
	out := make([]string, 0, len(e.tags))
	for t := range e.tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Description returns the named tool's description.
func (r *Registry) Description(name string) string {
	if e, ok := r.entries[name]; ok {
		return e.description
	}
	return ""
}

// Specs returns reasoning tool specs for the named tools, skipping
// unknown names.
func (r *Registry) Specs(names []string) []reasoning.ToolSpec {
	var out []reasoning.ToolSpec
	for _, n := range names {
		e, ok := r.entries[n]
		if !ok {
			continue
		}
		out = append(out, reasoning.ToolSpec{Name: e.name, Description: e.description, InputSchema: e.schema})
	}
	return out
}

func intersects(have map[string]bool, want []string) bool {
	for _, t := range want {
		if have[t] {
			return true
		}
	}
	return false
}
