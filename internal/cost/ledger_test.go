// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cost

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/investigator/pkg/types"
)

func TestPriceFor(t *testing.T) {
	l := NewLedger(map[string]types.ModelPrice{
		"claude-sonnet-4-5": {Input: 2, Output: 10, CacheRead: 0.5},
	})

	tests := []struct {
		model  string
		want   types.ModelPrice
		wantOK bool
	}{
		{"claude-opus-4-1", types.ModelPrice{Input: 15, Output: 75, CacheRead: 1.5, CacheWrite: 18.75}, true},
		{"claude-haiku-4-5", types.ModelPrice{Input: 1, Output: 5, CacheRead: 0.1, CacheWrite: 1.25}, true},
		{"Claude-Sonnet-4-5", types.ModelPrice{Input: 2, Output: 10, CacheRead: 0.5, CacheWrite: 2.5}, true},
		{"claude-sonnet-3-7", types.ModelPrice{Input: 3, Output: 15, CacheRead: 0.3, CacheWrite: 3.75}, true},
		{"gpt-unknown", types.ModelPrice{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got, ok := l.PriceFor(tt.model)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want.Input, got.Input, 1e-9)
			assert.InDelta(t, tt.want.Output, got.Output, 1e-9)
			assert.InDelta(t, tt.want.CacheRead, got.CacheRead, 1e-9)
			assert.InDelta(t, tt.want.CacheWrite, got.CacheWrite, 1e-9)
		})
	}
}

func TestLedger_Arithmetic(t *testing.T) {
	l := NewLedger(nil)
	l.AddUsage(1_000_000, 100_000, "claude-opus-4-1", 0, 0)
	l.AddUsage(200_000, 0, "claude-haiku-4-5", 1_000_000, 400_000)
	l.AddUsage(10, 10, "local-model", 0, 0)
	l.AddToolCall()
	l.AddToolCall()

	s := l.Snapshot()
	assert.Equal(t, int64(1_200_010), s.InputTokens)
	assert.Equal(t, int64(100_010), s.OutputTokens)
	assert.Equal(t, int64(1_000_000), s.CacheReadTokens)
	assert.Equal(t, int64(400_000), s.CacheWriteTokens)
	assert.Equal(t, int64(2_700_020), s.TotalTokens)
	assert.Equal(t, 2, s.ToolCalls)

	// opus: 15 + 7.5; haiku: 0.2 + 0.1 + 0.5
	assert.InDelta(t, 22.5, s.ByModel["claude-opus-4-1"].CostUSD, 1e-9)
	assert.InDelta(t, 0.8, s.ByModel["claude-haiku-4-5"].CostUSD, 1e-9)
	assert.Zero(t, s.ByModel["local-model"].CostUSD)
	assert.Equal(t, 1, s.ByModel["local-model"].Calls)
	assert.InDelta(t, 23.3, s.TotalCostUSD, 1e-9)
}

func TestLedger_SnapshotIsImmutable(t *testing.T) {
	l := NewLedger(nil)
	l.AddUsage(100, 100, "claude-haiku-4-5", 0, 0)
	s := l.Snapshot()

	l.AddUsage(100, 100, "claude-haiku-4-5", 0, 0)
	l.AddToolCall()

	assert.Equal(t, int64(100), s.InputTokens)
	assert.Equal(t, 1, s.ByModel["claude-haiku-4-5"].Calls)
	assert.Zero(t, s.ToolCalls)
}

func TestLedger_EmptySnapshot(t *testing.T) {
	s := NewLedger(nil).Snapshot()
	assert.Nil(t, s.ByModel)
	assert.Zero(t, s.TotalCostUSD)
}

func TestLedger_Concurrent(t *testing.T) {
	l := NewLedger(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.AddUsage(10, 5, "claude-sonnet-4-5", 1, 1)
			l.AddToolCall()
		}()
	}
	wg.Wait()

	s := l.Snapshot()
	require.Contains(t, s.ByModel, "claude-sonnet-4-5")
	assert.Equal(t, 50, s.ByModel["claude-sonnet-4-5"].Calls)
	assert.Equal(t, int64(500), s.InputTokens)
	assert.Equal(t, 50, s.ToolCalls)
}
