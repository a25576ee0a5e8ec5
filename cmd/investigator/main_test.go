// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/investigator/internal/events"
	"github.com/pdiddy/investigator/internal/orchestrator"
	"github.com/pdiddy/investigator/internal/reasoning"
	"github.com/pdiddy/investigator/internal/reasoning/reasoningtest"
	"github.com/pdiddy/investigator/internal/search"
	"github.com/pdiddy/investigator/internal/tools"
	"github.com/pdiddy/investigator/pkg/types"
)

// resetFlags restores every flag under cmd to its default so commands can
// be executed repeatedly in one process.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the CLI with args against an isolated environment.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// isolate keeps the developer's config, secrets, and network out of the test.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("INVESTIGATOR_AI_API_KEY", "")
	t.Setenv("INVESTIGATOR_SEARCH_ENABLE_ARXIV", "false")
	t.Setenv("INVESTIGATOR_SEARCH_ENABLE_SEMANTIC_SCHOLAR", "false")
	t.Setenv("INVESTIGATOR_SEARCH_ENABLE_OPENALEX", "false")
	t.Setenv("INVESTIGATOR_SEARCH_ENABLE_PATENTSVIEW", "false")
	t.Setenv("INVESTIGATOR_LOG_LEVEL", "error")
	t.Chdir(t.TempDir())
	return t.TempDir()
}

func TestVersion(t *testing.T) {
	isolate(t)
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "investigator dev\n", out)
}

func TestRunRequiresPromptAndKey(t *testing.T) {
	dir := isolate(t)

	_, err := execute(t, "run", "--store-dir", dir)
	assert.ErrorContains(t, err, "prompt required")

	_, err = execute(t, "run", "--store-dir", dir, "--prompt", "why?")
	assert.ErrorIs(t, err, errNoAPIKey)
}

func TestRunPersistsAndInspects(t *testing.T) {
	dir := isolate(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	port := reasoningtest.New(nil)
	orig := newPort
	newPort = func(types.AIConfig) reasoning.Port { return port }
	t.Cleanup(func() { newPort = orig })

	out, err := execute(t, "run", "--store-dir", dir, "--json", "--max-depth", "1", "does", "anything", "work?")
	require.NoError(t, err)
	assert.NotEmpty(t, port.Requests())

	var report orchestrator.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, types.StatusCompleted, report.Status)
	assert.Equal(t, "does anything work?", report.Prompt)
	id := report.InvestigationID

	out, err = execute(t, "list", "--store-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "completed")

	out, err = execute(t, "show", id, "--store-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "investigation_id: "+id)

	out, err = execute(t, "show", id, "--store-dir", dir, "--full", "--format", "json")
	require.NoError(t, err)
	var inv types.Investigation
	require.NoError(t, json.Unmarshal([]byte(out), &inv))
	assert.Equal(t, types.PhaseSynthesis, inv.Phase)

	out, err = execute(t, "show", id, "--store-dir", dir, "--export")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), id+".yaml"))

	out, err = execute(t, "events", id, "--store-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, string(events.TypePhaseChanged))
	assert.Contains(t, out, string(events.TypeInvestigationCompleted))

	out, err = execute(t, "events", id, "--store-dir", dir, "--after", "1000")
	require.NoError(t, err)
	assert.Equal(t, "No events found.\n", out)

	out, err = execute(t, "findings", "search", "--store-dir", dir, "--investigation", id)
	require.NoError(t, err)
	assert.Equal(t, "No results found.\n", out)

	_, err = execute(t, "show", "missing", "--store-dir", dir)
	assert.Error(t, err)
}

func TestFindingsSearchRequiresQuery(t *testing.T) {
	dir := isolate(t)
	_, err := execute(t, "findings", "search", "--store-dir", dir)
	assert.ErrorContains(t, err, "query or filter required")
}

func TestSearchValidatesFlags(t *testing.T) {
	isolate(t)

	_, err := execute(t, "search")
	assert.ErrorContains(t, err, "query required")

	_, err = execute(t, "search", "aspirin", "--from", "last-year")
	assert.ErrorContains(t, err, "invalid --from date")

	_, err = execute(t, "search", "aspirin")
	assert.ErrorContains(t, err, "no search backends enabled")
}

func TestToolsListing(t *testing.T) {
	isolate(t)
	t.Setenv("INVESTIGATOR_SEARCH_ENABLE_ARXIV", "true")
	t.Setenv("INVESTIGATOR_SEARCH_ENABLE_PATENTSVIEW", "true")

	out, err := execute(t, "tools")
	require.NoError(t, err)
	assert.Contains(t, out, tools.RecordFinding)
	assert.Contains(t, out, search.LiteratureTool)
	assert.Contains(t, out, search.PatentTool)

	out, err = execute(t, "tools", "--domain", "biology")
	require.NoError(t, err)
	assert.Contains(t, out, search.LiteratureTool)
	assert.NotContains(t, out, search.PatentTool)
}

func TestBuildRegistry(t *testing.T) {
	cfg := types.DefaultConfig().Search
	reg, err := buildRegistry(cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		tools.RecordFinding, tools.RecordNegativeControl, tools.RecordPositiveControl,
		search.LiteratureTool, search.PatentTool,
	}, reg.Names())
	assert.NotContains(t, reg.ListForDomain([]string{"medicine"}), search.PatentTool)

	var buf bytes.Buffer
	formatTools(&buf, reg, reg.Names())
	assert.Contains(t, buf.String(), "all")
	assert.Contains(t, buf.String(), "engineering,materials,technology")
}

func TestApplyRunFlags(t *testing.T) {
	cmd := &cobra.Command{}
	addRunFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--max-depth", "0", "--approve"}))

	cfg := types.DefaultEngineConfig()
	applyRunFlags(cmd, &cfg)
	assert.Equal(t, 0, cfg.MaxDepth)
	assert.True(t, cfg.RequireApproval)
	assert.Equal(t, types.DefaultEngineConfig().MaxHypotheses, cfg.MaxHypotheses)
}

func TestAskApproval(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantApproved bool
		wantTimedOut bool
	}{
		{"explicit no rejects", "n\n", false, false},
		{"spelled out no rejects", " NO \n", false, false},
		{"empty line approves", "\n", true, false},
		{"answer without newline approves", "yes", true, false},
		{"closed input leaves the timeout", "", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := orchestrator.NewGate()
			askApproval(strings.NewReader(tt.input), gate)
			approved, timedOut, err := gate.Wait(context.Background(), 20*time.Millisecond)
			require.NoError(t, err)
			assert.Equal(t, tt.wantApproved, approved)
			assert.Equal(t, tt.wantTimedOut, timedOut)
		})
	}
}

func TestWatchApproval(t *testing.T) {
	log := events.NewLog("inv")
	gate := orchestrator.NewGate()
	var out bytes.Buffer

	log.Append(events.TypePhaseChanged, events.PhaseChanged{Phase: "formulation"})
	log.Append(events.TypeApprovalRequested, map[string]any{"hypotheses": 3, "timeout_seconds": 300})
	log.Close()

	watchApproval(context.Background(), log, gate, strings.NewReader("no\n"), &out)

	approved, timedOut, err := gate.Wait(context.Background(), 5*time.Second)
	require.NoError(t, err)
	assert.False(t, approved)
	assert.False(t, timedOut)
	assert.Contains(t, out.String(), "3 hypotheses formulated")
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short", 10))
	assert.Equal(t, "héllo w...", clip("héllo world, again", 10))
}
