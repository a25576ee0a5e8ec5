// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// DefaultMaxOutputChars is the compaction limit when none is configured.
const DefaultMaxOutputChars = 6000

// unknownToolLabel stands in for unregistered names in metric labels, which
// must not take values chosen by the model.
const unknownToolLabel = "_unknown"

// errorPayload is the structured result of a failed dispatch.
type errorPayload struct {
	Error string `json:"error"`
	Tool  string `json:"tool"`
}

// ErrorPayload renders the structured error result for tool.
func ErrorPayload(tool, msg string) string {
	b, _ := json.Marshal(errorPayload{Error: msg, Tool: tool})
	return string(b)
}

// IsError reports whether output is a structured error payload.
func IsError(output string) bool {
	var p errorPayload
	if err := json.Unmarshal([]byte(output), &p); err != nil {
		return false
	}
	return p.Error != ""
}

// Dispatcher invokes registered tools. Dispatch never fails: unknown
// names, tool errors, and tool panics all come back as an error payload
// so one failing tool cannot abort an experiment.
type Dispatcher struct {
	reg      *Registry
	logger   *zap.Logger
	maxChars int
}

// NewDispatcher returns a dispatcher over reg. maxOutputChars <= 0 uses
// DefaultMaxOutputChars.
func NewDispatcher(reg *Registry, logger *zap.Logger, maxOutputChars int) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxOutputChars <= 0 {
		maxOutputChars = DefaultMaxOutputChars
	}
	return &Dispatcher{reg: reg, logger: logger, maxChars: maxOutputChars}
}

// Registry returns the underlying registry.
func (d *Dispatcher) Registry() *Registry { return d.reg }

// Dispatch runs the named tool with input and returns its raw output.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, input json.RawMessage, scope Scope) (out string) {
	e, ok := d.reg.entries[name]
	if !ok {
		dispatchTotal.WithLabelValues(unknownToolLabel, "unknown").Inc()
		d.logger.Warn("unknown tool", zap.String("tool", name), zap.String("investigation", scope.InvestigationID))
		return ErrorPayload(name, fmt.Sprintf("unknown tool %q", name))
	}
	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}

	start := time.Now()
	defer func() {
		dispatchDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			dispatchTotal.WithLabelValues(name, "panic").Inc()
			d.logger.Error("tool panicked", zap.String("tool", name), zap.Any("panic", r))
			out = ErrorPayload(name, fmt.Sprintf("tool panicked: %v", r))
		}
	}()

	result, err := e.tool.Invoke(ctx, Call{Name: name, Input: input, Scope: scope})
	if err != nil {
		dispatchTotal.WithLabelValues(name, "error").Inc()
		d.logger.Warn("tool failed",
			zap.String("tool", name),
			zap.String("hypothesis", scope.HypothesisID),
			zap.Error(err))
		return ErrorPayload(name, err.Error())
	}
	dispatchTotal.WithLabelValues(name, "ok").Inc()
	return result
}

// Compact applies the tool's compactor, or Truncate, to output.
func (d *Dispatcher) Compact(name, output string) string {
	if e, ok := d.reg.entries[name]; ok && e.compactor != nil {
		return e.compactor(output, d.maxChars)
	}
	return Truncate(output, d.maxChars)
}

// Truncate cuts s to at most limit bytes on a rune boundary and appends a
// marker noting how much was dropped.
func Truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return fmt.Sprintf("%s\n...[truncated %d chars]", s[:cut], len(s)-cut)
}
