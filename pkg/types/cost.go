// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ModelPrice is the USD price per million tokens for one model family.
// Zero cache prices are derived from Input by the ledger.
type ModelPrice struct {
	Input      float64 `json:"input" yaml:"input" mapstructure:"input"`
	Output     float64 `json:"output" yaml:"output" mapstructure:"output"`
	CacheRead  float64 `json:"cache_read,omitempty" yaml:"cache_read,omitempty" mapstructure:"cache_read"`
	CacheWrite float64 `json:"cache_write,omitempty" yaml:"cache_write,omitempty" mapstructure:"cache_write"`
}

// ModelUsage is the accumulated usage for one model.
type ModelUsage struct {
	InputTokens      int64   `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens     int64   `json:"output_tokens" yaml:"output_tokens"`
	CacheReadTokens  int64   `json:"cache_read_tokens" yaml:"cache_read_tokens"`
	CacheWriteTokens int64   `json:"cache_write_tokens" yaml:"cache_write_tokens"`
	Calls            int     `json:"calls" yaml:"calls"`
	CostUSD          float64 `json:"cost_usd" yaml:"cost_usd"`
}

// CostSnapshot is an immutable projection of the cost ledger.
type CostSnapshot struct {
	InputTokens      int64                 `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens     int64                 `json:"output_tokens" yaml:"output_tokens"`
	CacheReadTokens  int64                 `json:"cache_read_tokens" yaml:"cache_read_tokens"`
	CacheWriteTokens int64                 `json:"cache_write_tokens" yaml:"cache_write_tokens"`
	TotalTokens      int64                 `json:"total_tokens" yaml:"total_tokens"`
	ToolCalls        int                   `json:"tool_calls" yaml:"tool_calls"`
	TotalCostUSD     float64               `json:"total_cost_usd" yaml:"total_cost_usd"`
	ByModel          map[string]ModelUsage `json:"by_model,omitempty" yaml:"by_model,omitempty"`
}
