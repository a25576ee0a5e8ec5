// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reasoningtest provides a scripted reasoning.Port for tests.
package reasoningtest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pdiddy/investigator/internal/reasoning"
)

// Handler produces the reply for one request.
type Handler func(ctx context.Context, req reasoning.Request) (*reasoning.Response, error)

// Port is a reasoning.Port that delegates to Handler and records every
// request it receives. It is safe for concurrent use.
type Port struct {
	Handler Handler

	mu       sync.Mutex
	requests []reasoning.Request
}

// New returns a Port backed by h.
func New(h Handler) *Port {
	return &Port{Handler: h}
}

// CreateMessage records req and returns the handler's reply. A nil handler
// ends every turn immediately with no content.
func (p *Port) CreateMessage(ctx context.Context, req reasoning.Request) (*reasoning.Response, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Handler == nil {
		return EndTurn(), nil
	}
	return p.Handler(ctx, req)
}

// Requests returns a copy of the recorded requests.
func (p *Port) Requests() []reasoning.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]reasoning.Request(nil), p.requests...)
}

// EndTurn is a reply with no content that ends the turn.
func EndTurn() *reasoning.Response {
	return &reasoning.Response{StopReason: reasoning.StopEndTurn}
}

// Text is an end_turn reply holding one text block.
func Text(text string) *reasoning.Response {
	return &reasoning.Response{
		Content:    []reasoning.Block{reasoning.TextBlock(text)},
		StopReason: reasoning.StopEndTurn,
	}
}

// JSON is a structured reply carrying v as respond tool input.
func JSON(v any) *reasoning.Response {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return &reasoning.Response{
		Content: []reasoning.Block{{
			Type:  reasoning.BlockToolUse,
			ID:    "respond",
			Name:  reasoning.RespondTool,
			Input: b,
		}},
		StopReason:   reasoning.StopToolUse,
		InputTokens:  10,
		OutputTokens: 5,
	}
}

// ToolUse returns a reply requesting the given tool invocations.
func ToolUse(calls ...reasoning.Block) *reasoning.Response {
	return &reasoning.Response{Content: calls, StopReason: reasoning.StopToolUse, InputTokens: 20, OutputTokens: 10}
}

// Call builds a tool_use block with input marshaled from v.
func Call(id, name string, v any) reasoning.Block {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return reasoning.Block{Type: reasoning.BlockToolUse, ID: id, Name: name, Input: b}
}
