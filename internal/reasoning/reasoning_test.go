// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reasoning

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructured(t *testing.T) {
	tests := []struct {
		name   string
		resp   *Response
		want   string
		wantOK bool
	}{
		{
			name: "respond tool input wins",
			resp: &Response{Content: []Block{
				TextBlock(`{"ignored": true}`),
				{Type: BlockToolUse, Name: RespondTool, Input: json.RawMessage(`{"a":1}`)},
			}},
			want:   `{"a":1}`,
			wantOK: true,
		},
		{
			name:   "fenced json",
			resp:   &Response{Content: []Block{TextBlock("Here you go:\n```json\n{\"a\": 2}\n```\nDone.")}},
			want:   `{"a": 2}`,
			wantOK: true,
		},
		{
			name:   "first object span",
			resp:   &Response{Content: []Block{TextBlock(`Sure. {"a": "x}y", "b": {"c": 3}} trailing {"d":4}`)}},
			want:   `{"a": "x}y", "b": {"c": 3}}`,
			wantOK: true,
		},
		{
			name:   "skips invalid leading brace",
			resp:   &Response{Content: []Block{TextBlock(`{not json} then {"ok":true}`)}},
			want:   `{"ok":true}`,
			wantOK: true,
		},
		{
			name:   "plain prose",
			resp:   &Response{Content: []Block{TextBlock("I could not decide.")}},
			wantOK: false,
		},
		{
			name:   "nil response",
			resp:   nil,
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Structured(tt.resp)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, string(got))
			}
		})
	}
}

func TestDecode(t *testing.T) {
	var out struct {
		Summary string `json:"summary"`
	}
	err := Decode(&Response{Content: []Block{TextBlock(`{"summary":"fine"}`)}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "fine", out.Summary)

	err = Decode(&Response{Content: []Block{TextBlock("nothing here")}}, &out)
	assert.ErrorIs(t, err, ErrNoStructuredOutput)

	err = Decode(&Response{Content: []Block{TextBlock(`{"summary": 3}`)}}, &out)
	assert.ErrorIs(t, err, ErrNoStructuredOutput)
}

func TestResponseHelpers(t *testing.T) {
	resp := &Response{Content: []Block{
		TextBlock("first"),
		{Type: BlockToolUse, ID: "t1", Name: "search_literature"},
		TextBlock("second"),
		{Type: BlockToolUse, ID: "t2", Name: RespondTool},
	}}
	assert.Equal(t, "first\nsecond", resp.Text())

	uses := resp.ToolUses()
	require.Len(t, uses, 1)
	assert.Equal(t, "t1", uses[0].ID)
}

func TestClaude_CreateMessage(t *testing.T) {
	var got claudeRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"content": [
				{"type": "text", "text": "thinking aloud"},
				{"type": "tool_use", "id": "tu_1", "name": "respond", "input": {"domains": ["chemistry"]}}
			],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 120, "output_tokens": 30, "cache_read_input_tokens": 10, "cache_creation_input_tokens": 5}
		}`))
	}))
	defer ts.Close()

	c := &Claude{APIKey: "test-key", BaseURL: ts.URL, Client: ts.Client()}
	resp, err := c.CreateMessage(context.Background(), Request{
		Model:        "claude-haiku-4-5",
		System:       "classify",
		Messages:     []Message{UserText("is aspirin an anticoagulant?")},
		OutputSchema: json.RawMessage(`{"type":"object"}`),
	})
	require.NoError(t, err)

	assert.Equal(t, "claude-haiku-4-5", got.Model)
	assert.Equal(t, defaultMaxTokens, got.MaxTokens)
	assert.Equal(t, "classify", got.System)
	require.Len(t, got.Tools, 1)
	assert.Equal(t, RespondTool, got.Tools[0].Name)
	require.NotNil(t, got.ToolChoice)
	assert.Equal(t, "tool", got.ToolChoice.Type)

	assert.Equal(t, StopToolUse, resp.StopReason)
	assert.Equal(t, 120, resp.InputTokens)
	assert.Equal(t, 30, resp.OutputTokens)
	assert.Equal(t, 10, resp.CacheReadTokens)
	assert.Equal(t, 5, resp.CacheWriteTokens)

	var out struct {
		Domains []string `json:"domains"`
	}
	require.NoError(t, Decode(resp, &out))
	assert.Equal(t, []string{"chemistry"}, out.Domains)
}

func TestClaude_ToolsKeepCallerChoice(t *testing.T) {
	c := &Claude{MaxTokens: 1000}
	req := c.buildRequest(Request{
		Tools:        []ToolSpec{{Name: "search_literature", InputSchema: json.RawMessage(`{}`)}},
		OutputSchema: json.RawMessage(`{"type":"object"}`),
		Messages: []Message{{Role: "user", Content: []Block{
			ToolResultBlock("tu_1", `{"ok":true}`, false),
		}}},
	})
	assert.Equal(t, 1000, req.MaxTokens)
	assert.Len(t, req.Tools, 2)
	assert.Nil(t, req.ToolChoice)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "tool_result", req.Messages[0].Content[0].Type)
	assert.Equal(t, "tu_1", req.Messages[0].Content[0].ToolUseID)
}

func TestClaude_RespondToolLeavesCallerToolsAlone(t *testing.T) {
	callerTools := make([]ToolSpec, 1, 4)
	callerTools[0] = ToolSpec{Name: "search_literature", InputSchema: json.RawMessage(`{}`)}

	req := (&Claude{}).buildRequest(Request{
		Tools:        callerTools,
		OutputSchema: json.RawMessage(`{"type":"object"}`),
	})
	require.Len(t, req.Tools, 2)
	assert.Equal(t, RespondTool, req.Tools[1].Name)

	spare := callerTools[:2]
	assert.Empty(t, spare[1].Name)
}

func TestClaude_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad"}`))
	}))
	defer ts.Close()

	c := &Claude{BaseURL: ts.URL, Client: ts.Client()}
	_, err := c.CreateMessage(context.Background(), Request{Model: "m", Messages: []Message{UserText("hi")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
