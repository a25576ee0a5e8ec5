// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"

	"go.uber.org/zap"

	"github.com/pdiddy/investigator/internal/httputil"
)

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

const (
	anthropicVersion = "2023-06-01"
	defaultMaxTokens = 8192
)

// Claude implements Port over the Anthropic Messages API. An output schema
// is realized as a forced tool named respond whose input is the structured
// reply.
type Claude struct {
	APIKey string
	// BaseURL overrides claudeAPIURL when set.
	BaseURL   string
	MaxTokens int
	Client    *http.Client
	Logger    *zap.Logger
}

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model      string          `json:"model"`
	MaxTokens  int             `json:"max_tokens"`
	System     string          `json:"system,omitempty"`
	Messages   []claudeMessage `json:"messages"`
	Tools      []ToolSpec      `json:"tools,omitempty"`
	ToolChoice *ToolChoice     `json:"tool_choice,omitempty"`
}

// claudeMessage is a single message in the Claude API conversation.
type claudeMessage struct {
	Role    string          `json:"role"`
	Content []claudeContent `json:"content"`
}

// claudeContent is a content block in either direction.
type claudeContent struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content    []claudeContent `json:"content"`
	StopReason string          `json:"stop_reason"`
	Usage      struct {
		InputTokens              int `json:"input_tokens"`
		OutputTokens             int `json:"output_tokens"`
		CacheReadInputTokens     int `json:"cache_read_input_tokens"`
		CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	} `json:"usage"`
}

// CreateMessage sends one request to the Messages API. Throttled responses
// are retried by httputil.DoWithRetry; every other failure is returned.
func (c *Claude) CreateMessage(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := claudeAPIURL
	if c.BaseURL != "" {
		url = c.BaseURL
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, httpReq, 0)
	if err != nil {
		return nil, fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(b))
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return nil, fmt.Errorf("decoding Claude response: %w", err)
	}

	out := &Response{
		StopReason:       cResp.StopReason,
		InputTokens:      cResp.Usage.InputTokens,
		OutputTokens:     cResp.Usage.OutputTokens,
		CacheReadTokens:  cResp.Usage.CacheReadInputTokens,
		CacheWriteTokens: cResp.Usage.CacheCreationInputTokens,
	}
	for _, b := range cResp.Content {
		switch BlockType(b.Type) {
		case BlockText:
			out.Content = append(out.Content, TextBlock(b.Text))
		case BlockToolUse:
			out.Content = append(out.Content, Block{Type: BlockToolUse, ID: b.ID, Name: b.Name, Input: b.Input})
		}
	}

	c.logger().Debug("claude response",
		zap.String("model", req.Model),
		zap.String("stop_reason", out.StopReason),
		zap.Int("blocks", len(out.Content)),
		zap.Int("input_tokens", out.InputTokens),
		zap.Int("output_tokens", out.OutputTokens))
	return out, nil
}

func (c *Claude) buildRequest(req Request) claudeRequest {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.MaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	out := claudeRequest{
		Model:      req.Model,
		MaxTokens:  maxTokens,
		System:     req.System,
		Tools:      req.Tools,
		ToolChoice: req.ToolChoice,
	}
	for _, m := range req.Messages {
		cm := claudeMessage{Role: m.Role}
		for _, b := range m.Content {
			cm.Content = append(cm.Content, claudeContent{
				Type:      string(b.Type),
				Text:      b.Text,
				ID:        b.ID,
				Name:      b.Name,
				Input:     b.Input,
				ToolUseID: b.ToolUseID,
				Content:   b.Content,
				IsError:   b.IsError,
			})
		}
		out.Messages = append(out.Messages, cm)
	}

	if len(req.OutputSchema) > 0 {
		out.Tools = append(slices.Clip(out.Tools), ToolSpec{
			Name:        RespondTool,
			Description: "Return the final structured answer.",
			InputSchema: req.OutputSchema,
		})
		if len(req.Tools) == 0 {
			out.ToolChoice = &ToolChoice{Type: "tool", Name: RespondTool}
		}
	}
	return out
}

func (c *Claude) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
