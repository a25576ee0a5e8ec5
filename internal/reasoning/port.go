// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reasoning defines the port through which the engine talks to a
// language model, an Anthropic Messages adapter implementing it, and the
// lenient decoding applied to structured replies.
package reasoning

import (
	"context"
	"encoding/json"
	"strings"
)

// Port is the abstract reasoning service. Implementations must be safe for
// concurrent use; the batch executor calls CreateMessage from two
// goroutines at once.
type Port interface {
	CreateMessage(ctx context.Context, req Request) (*Response, error)
}

// PortFunc adapts a function to the Port interface.
type PortFunc func(ctx context.Context, req Request) (*Response, error)

// CreateMessage calls f.
func (f PortFunc) CreateMessage(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// BlockType discriminates content blocks.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// Stop reasons reported by the port.
const (
	StopEndTurn   = "end_turn"
	StopToolUse   = "tool_use"
	StopMaxTokens = "max_tokens"
)

// Block is one content block of a message. Text blocks carry Text;
// tool_use blocks carry ID, Name, and Input; tool_result blocks answer a
// tool_use by ToolUseID with Content.
type Block struct {
	Type      BlockType       `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// TextBlock returns a text block.
func TextBlock(text string) Block {
	return Block{Type: BlockText, Text: text}
}

// ToolResultBlock returns a tool_result block answering toolUseID.
func ToolResultBlock(toolUseID, content string, isError bool) Block {
	return Block{Type: BlockToolResult, ToolUseID: toolUseID, Content: content, IsError: isError}
}

// Message is one turn of a conversation.
type Message struct {
	Role    string  `json:"role"`
	Content []Block `json:"content"`
}

// UserText returns a user message holding a single text block.
func UserText(text string) Message {
	return Message{Role: "user", Content: []Block{TextBlock(text)}}
}

// ToolSpec describes a tool the model may invoke.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// ToolChoice constrains tool selection. Type is one of auto, any, tool, or
// none; Name is set when Type is tool.
type ToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// Request is one call to the reasoning port. OutputSchema, when set, asks
// for a structured reply conforming to the JSON schema.
type Request struct {
	Model        string
	System       string
	Messages     []Message
	Tools        []ToolSpec
	ToolChoice   *ToolChoice
	OutputSchema json.RawMessage
	MaxTokens    int
}

// Response is the port's reply together with its token usage.
type Response struct {
	Content          []Block
	StopReason       string
	InputTokens      int
	OutputTokens     int
	CacheReadTokens  int
	CacheWriteTokens int
}

// Text joins the text blocks of the response.
func (r *Response) Text() string {
	var parts []string
	for _, b := range r.Content {
		if b.Type == BlockText && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// ToolUses returns the tool_use blocks in order, excluding the structured
// output tool.
func (r *Response) ToolUses() []Block {
	var out []Block
	for _, b := range r.Content {
		if b.Type == BlockToolUse && b.Name != RespondTool {
			out = append(out, b)
		}
	}
	return out
}
