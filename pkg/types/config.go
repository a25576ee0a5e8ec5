// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "investigator/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SearchConfig holds settings for the literature search tool.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxResults is the maximum number of results per query (default 10).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// EnableArxiv controls whether the arXiv backend is used.
	EnableArxiv bool `json:"enable_arxiv" yaml:"enable_arxiv" mapstructure:"enable_arxiv"`

	// EnableSemanticScholar controls whether the Semantic Scholar backend is used.
	EnableSemanticScholar bool `json:"enable_semantic_scholar" yaml:"enable_semantic_scholar" mapstructure:"enable_semantic_scholar"`

	// EnableOpenAlex controls whether the OpenAlex backend is used.
	EnableOpenAlex bool `json:"enable_openalex" yaml:"enable_openalex" mapstructure:"enable_openalex"`

	// EnablePatentsView registers the patent search tool for PatentDomains.
	EnablePatentsView bool `json:"enable_patentsview" yaml:"enable_patentsview" mapstructure:"enable_patentsview"`

	// PatentDomains are the domain tags that see the patent search tool.
	PatentDomains []string `json:"patent_domains" yaml:"patent_domains" mapstructure:"patent_domains"`

	// PatentsViewAPIKey authenticates PatentsView requests.
	PatentsViewAPIKey string `json:"patentsview_api_key,omitempty" yaml:"patentsview_api_key,omitempty" mapstructure:"patentsview_api_key"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`

	// OpenAlexEmail is sent as mailto for OpenAlex polite-pool access.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty" mapstructure:"openalex_email"`

	// InterBackendDelay is the delay between API calls to different backends.
	InterBackendDelay time.Duration `json:"inter_backend_delay" yaml:"inter_backend_delay" mapstructure:"inter_backend_delay"`

	// RecencyBiasWindow is the time window for boosting recent papers (default 5 years).
	RecencyBiasWindow time.Duration `json:"recency_bias_window" yaml:"recency_bias_window" mapstructure:"recency_bias_window"`
}

// AIConfig holds settings for the reasoning port adapter.
type AIConfig struct {
	// APIKey is the authentication key for the Anthropic API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the Messages API endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// MaxTokens bounds each response (default 8192).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// ModelsConfig assigns a model to each role in the pipeline.
type ModelsConfig struct {
	// Director formulates, evaluates, and synthesizes.
	Director string `json:"director" yaml:"director" mapstructure:"director"`

	// Researcher runs experiment conversations.
	Researcher string `json:"researcher" yaml:"researcher" mapstructure:"researcher"`

	// Summarizer classifies the prompt.
	Summarizer string `json:"summarizer" yaml:"summarizer" mapstructure:"summarizer"`
}

// EngineConfig bounds the orchestration loop.
type EngineConfig struct {
	// MaxHypotheses caps how many hypotheses may enter testing (default 6).
	MaxHypotheses int `json:"max_hypotheses" yaml:"max_hypotheses" mapstructure:"max_hypotheses"`

	// MaxDepth is the deepest tree level eligible for testing (default 3).
	MaxDepth int `json:"max_depth" yaml:"max_depth" mapstructure:"max_depth"`

	// BatchSize is the number of experiments run concurrently (default and maximum 2).
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`

	// MaxExperimentIterations bounds each experiment conversation (default 10).
	MaxExperimentIterations int `json:"max_experiment_iterations" yaml:"max_experiment_iterations" mapstructure:"max_experiment_iterations"`

	// MaxSearchQueries bounds the literature survey (default 3).
	MaxSearchQueries int `json:"max_search_queries" yaml:"max_search_queries" mapstructure:"max_search_queries"`

	// MaxToolOutputChars is the default compaction limit (default 6000).
	MaxToolOutputChars int `json:"max_tool_output_chars" yaml:"max_tool_output_chars" mapstructure:"max_tool_output_chars"`

	// RequireApproval gates testing on an external approval signal.
	RequireApproval bool `json:"require_approval" yaml:"require_approval" mapstructure:"require_approval"`

	// ApprovalTimeout is how long the gate waits before opening on its own (default 300s).
	ApprovalTimeout time.Duration `json:"approval_timeout" yaml:"approval_timeout" mapstructure:"approval_timeout"`
}

// StoreConfig holds settings for the investigation store.
type StoreConfig struct {
	// Dir is the directory holding investigator.db and exports.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `json:"level" yaml:"level" mapstructure:"level"`
	JSON  bool   `json:"json" yaml:"json" mapstructure:"json"`
}

// Config groups all component configurations.
type Config struct {
	Engine  EngineConfig          `json:"engine" yaml:"engine" mapstructure:"engine"`
	AI      AIConfig              `json:"ai" yaml:"ai" mapstructure:"ai"`
	Models  ModelsConfig          `json:"models" yaml:"models" mapstructure:"models"`
	Search  SearchConfig          `json:"search" yaml:"search" mapstructure:"search"`
	Store   StoreConfig           `json:"store" yaml:"store" mapstructure:"store"`
	Log     LogConfig             `json:"log" yaml:"log" mapstructure:"log"`
	Pricing map[string]ModelPrice `json:"pricing,omitempty" yaml:"pricing,omitempty" mapstructure:"pricing"`
}

// DefaultEngineConfig returns the engine bounds used when nothing is configured.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxHypotheses:           6,
		MaxDepth:                3,
		BatchSize:               2,
		MaxExperimentIterations: 10,
		MaxSearchQueries:        3,
		MaxToolOutputChars:      6000,
		ApprovalTimeout:         300 * time.Second,
	}
}

// DefaultConfig returns a complete configuration with defaults applied.
func DefaultConfig() Config {
	return Config{
		Engine: DefaultEngineConfig(),
		AI: AIConfig{
			MaxTokens: 8192,
			Timeout:   5 * time.Minute,
		},
		Models: ModelsConfig{
			Director:   "claude-opus-4-1",
			Researcher: "claude-sonnet-4-5",
			Summarizer: "claude-haiku-4-5",
		},
		Search: SearchConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "investigator/0.1",
			},
			MaxResults:            10,
			EnableArxiv:           true,
			EnableSemanticScholar: true,
			EnableOpenAlex:        true,
			EnablePatentsView:     true,
			PatentDomains:         []string{"engineering", "materials", "technology"},
			InterBackendDelay:     time.Second,
			RecencyBiasWindow:     5 * 365 * 24 * time.Hour,
		},
		Store: StoreConfig{Dir: ".investigator"},
		Log:   LogConfig{Level: "info"},
	}
}

// Normalize fills zero-valued engine bounds with defaults and clamps
// BatchSize to the supported range [1, 2].
func (c EngineConfig) Normalize() EngineConfig {
	d := DefaultEngineConfig()
	if c.MaxHypotheses <= 0 {
		c.MaxHypotheses = d.MaxHypotheses
	}
	if c.MaxDepth < 0 {
		c.MaxDepth = d.MaxDepth
	}
	if c.BatchSize <= 0 || c.BatchSize > d.BatchSize {
		c.BatchSize = d.BatchSize
	}
	if c.MaxExperimentIterations <= 0 {
		c.MaxExperimentIterations = d.MaxExperimentIterations
	}
	if c.MaxSearchQueries <= 0 {
		c.MaxSearchQueries = d.MaxSearchQueries
	}
	if c.MaxToolOutputChars <= 0 {
		c.MaxToolOutputChars = d.MaxToolOutputChars
	}
	if c.ApprovalTimeout <= 0 {
		c.ApprovalTimeout = d.ApprovalTimeout
	}
	return c
}
