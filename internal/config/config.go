// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads investigator settings from investigator.yaml, the
// INVESTIGATOR_* environment, and a .secrets/ directory of credential
// files, layered over types.DefaultConfig.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/pdiddy/investigator/pkg/types"
)

// Name is the config file base name and the ~/.config subdirectory.
const Name = "investigator"

// EnvPrefix prefixes environment overrides, e.g. INVESTIGATOR_ENGINE_MAX_DEPTH.
const EnvPrefix = "INVESTIGATOR"

// New returns a viper instance that reads cfgFile, or investigator.yaml
// from the working directory or ~/.config/investigator when cfgFile is
// empty. Environment variables override file values.
func New(cfgFile string) *viper.Viper {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", Name))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("ai.api_key", EnvPrefix+"_AI_API_KEY", "ANTHROPIC_API_KEY")

	SetDefaults(v)
	return v
}

// SetDefaults registers every key of types.DefaultConfig with v so that
// environment overrides resolve during Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := types.DefaultConfig()

	v.SetDefault("engine.max_hypotheses", d.Engine.MaxHypotheses)
	v.SetDefault("engine.max_depth", d.Engine.MaxDepth)
	v.SetDefault("engine.batch_size", d.Engine.BatchSize)
	v.SetDefault("engine.max_experiment_iterations", d.Engine.MaxExperimentIterations)
	v.SetDefault("engine.max_search_queries", d.Engine.MaxSearchQueries)
	v.SetDefault("engine.max_tool_output_chars", d.Engine.MaxToolOutputChars)
	v.SetDefault("engine.require_approval", d.Engine.RequireApproval)
	v.SetDefault("engine.approval_timeout", d.Engine.ApprovalTimeout)

	v.SetDefault("ai.api_key", d.AI.APIKey)
	v.SetDefault("ai.base_url", d.AI.BaseURL)
	v.SetDefault("ai.max_tokens", d.AI.MaxTokens)
	v.SetDefault("ai.timeout", d.AI.Timeout)

	v.SetDefault("models.director", d.Models.Director)
	v.SetDefault("models.researcher", d.Models.Researcher)
	v.SetDefault("models.summarizer", d.Models.Summarizer)

	v.SetDefault("search.timeout", d.Search.Timeout)
	v.SetDefault("search.user_agent", d.Search.UserAgent)
	v.SetDefault("search.max_results", d.Search.MaxResults)
	v.SetDefault("search.enable_arxiv", d.Search.EnableArxiv)
	v.SetDefault("search.enable_semantic_scholar", d.Search.EnableSemanticScholar)
	v.SetDefault("search.enable_openalex", d.Search.EnableOpenAlex)
	v.SetDefault("search.enable_patentsview", d.Search.EnablePatentsView)
	v.SetDefault("search.patent_domains", d.Search.PatentDomains)
	v.SetDefault("search.patentsview_api_key", d.Search.PatentsViewAPIKey)
	v.SetDefault("search.semantic_scholar_api_key", d.Search.SemanticScholarAPIKey)
	v.SetDefault("search.openalex_email", d.Search.OpenAlexEmail)
	v.SetDefault("search.inter_backend_delay", d.Search.InterBackendDelay)
	v.SetDefault("search.recency_bias_window", d.Search.RecencyBiasWindow)

	v.SetDefault("store.dir", d.Store.Dir)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)
}

// Load reads the config file, if any, and decodes the merged settings.
// A missing config file is not an error. The returned path is the file
// that was read, or empty.
func Load(v *viper.Viper) (types.Config, string, error) {
	var cfg types.Config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, "", fmt.Errorf("reading config: %w", err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, "", fmt.Errorf("decoding config: %w", err)
	}
	return cfg, v.ConfigFileUsed(), nil
}
