// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/investigator/internal/tools"
	"github.com/pdiddy/investigator/pkg/types"
)

func invoke(t *testing.T, tool *Tool, input string) (Reply, error) {
	t.Helper()
	out, err := tool.Invoke(context.Background(), tools.Call{Name: LiteratureTool, Input: json.RawMessage(input)})
	if err != nil {
		return Reply{}, err
	}
	var r Reply
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	return r, nil
}

func TestToolInvoke(t *testing.T) {
	b := &mockBackend{name: "arxiv", results: []Result{
		{Identifier: "2301.00001", Title: "One", Score: 0.9},
		{Identifier: "2301.00002", Title: "Two", Score: 0.5},
		{Identifier: "2301.00003", Title: "Three", Score: 0.1},
	}}
	tool := &Tool{Backends: []Backend{b}, Config: testCfg()}

	reply, err := invoke(t, tool, `{"query":" aspirin ","keywords":["platelet"],"date_from":"2020-01-01","max_results":2}`)
	require.NoError(t, err)
	require.Len(t, reply.Results, 2)
	assert.Equal(t, "2301.00001", reply.Results[0].Identifier)

	require.Len(t, b.queries, 1)
	assert.Equal(t, "aspirin", b.queries[0].FreeText)
	assert.Equal(t, []string{"platelet"}, b.queries[0].Keywords)
	assert.Equal(t, 2020, b.queries[0].DateFrom.Year())
}

func TestToolInvokeErrors(t *testing.T) {
	ok := &mockBackend{name: "ok"}
	tests := []struct {
		name    string
		tool    *Tool
		input   string
		wantErr string
	}{
		{"bad json", &Tool{Backends: []Backend{ok}}, `{`, "decoding search input"},
		{"bad date", &Tool{Backends: []Backend{ok}}, `{"query":"x","date_to":"yesterday"}`, "invalid date_to"},
		{"empty query", &Tool{Backends: []Backend{ok}}, `{}`, "query is empty"},
		{
			"all backends fail",
			&Tool{Backends: []Backend{&mockBackend{name: "a", err: errors.New("down")}}},
			`{"query":"x"}`,
			"all search backends failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := invoke(t, tt.tool, tt.input)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestToolPartialFailureReported(t *testing.T) {
	tool := &Tool{Backends: []Backend{
		&mockBackend{name: "a", err: errors.New("down")},
		&mockBackend{name: "b", results: []Result{{Identifier: "x", Title: "X"}}},
	}}
	reply, err := invoke(t, tool, `{"query":"x"}`)
	require.NoError(t, err)
	assert.Len(t, reply.Results, 1)
	assert.Equal(t, []string{"a: down"}, reply.BackendErrors)
}

func TestCompact(t *testing.T) {
	long := strings.Repeat("word ", 200)
	reply := Reply{Results: []types.Citation{
		{Identifier: "a", Title: "A", Abstract: long},
		{Identifier: "b", Title: "B", Abstract: long},
	}}
	raw, err := json.Marshal(reply)
	require.NoError(t, err)

	assert.Equal(t, string(raw), Compact(string(raw), len(raw)))

	var shortened Reply
	require.NoError(t, json.Unmarshal([]byte(Compact(string(raw), 1000)), &shortened))
	assert.True(t, strings.HasSuffix(shortened.Results[0].Abstract, "..."))
	assert.LessOrEqual(t, len([]rune(shortened.Results[0].Abstract)), abstractLimit+3)

	var dropped Reply
	require.NoError(t, json.Unmarshal([]byte(Compact(string(raw), 200)), &dropped))
	assert.Empty(t, dropped.Results[0].Abstract)
	assert.Len(t, dropped.Results, 2)

	assert.Contains(t, Compact(strings.Repeat("x", 100), 10), "truncated")
}

func TestRegister(t *testing.T) {
	reg := tools.NewRegistry()
	cfg := types.DefaultConfig().Search
	require.NoError(t, Register(reg, cfg, nil, nil))

	assert.Equal(t, []string{LiteratureTool}, reg.ListForDomain([]string{"biology"}))
	assert.Equal(t, []string{LiteratureTool, PatentTool}, reg.ListForDomain([]string{"engineering"}))
	assert.Equal(t, cfg.PatentDomains, reg.Tags(PatentTool))

	cfg.EnableArxiv, cfg.EnableSemanticScholar, cfg.EnableOpenAlex, cfg.EnablePatentsView = false, false, false, false
	empty := tools.NewRegistry()
	require.NoError(t, Register(empty, cfg, nil, nil))
	assert.Empty(t, empty.Names())
}

func TestLiteratureBackends(t *testing.T) {
	cfg := types.SearchConfig{EnableArxiv: true, EnableOpenAlex: true, OpenAlexEmail: "me@example.com"}
	bs := LiteratureBackends(cfg, nil)
	require.Len(t, bs, 2)
	assert.Equal(t, "arxiv", bs[0].Name())
	assert.Equal(t, "me@example.com", bs[1].(*OpenAlexBackend).Email)
}

func TestFormatCSL(t *testing.T) {
	var buf bytes.Buffer
	err := FormatCSL([]types.Citation{
		{Identifier: "10.1/x", Title: "DOI paper", Authors: []string{"Grace Brewster Hopper", "Plato"}, Year: 1952},
		{Identifier: "US10000000", Title: "Widget", Source: "patentsview"},
	}, &buf)
	require.NoError(t, err)

	var items []CSLItem
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &items))
	require.Len(t, items, 2)

	assert.Equal(t, "10.1/x", items[0].DOI)
	assert.Equal(t, "article", items[0].Type)
	assert.Equal(t, [][]int{{1952}}, items[0].Issued.DateParts)
	assert.Equal(t, []CSLName{{Given: "Grace Brewster", Family: "Hopper"}, {Literal: "Plato"}}, items[0].Author)

	assert.Equal(t, "patent", items[1].Type)
	assert.Equal(t, "US10000000", items[1].Number)
	assert.Nil(t, items[1].Issued)
}
