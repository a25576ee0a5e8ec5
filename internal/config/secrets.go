// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/investigator/pkg/types"
)

// Secret file names recognized in the secrets directory.
const (
	SecretAnthropicKey       = "anthropic-api-key"
	SecretSemanticScholarKey = "semantic-scholar-api-key"
	SecretOpenAlexEmail      = "openalex-email"
	SecretPatentsViewKey     = "patentsview-api-key"
)

// LoadSecrets reads every file in dir and returns a map of filename to
// trimmed contents. A missing directory yields an empty map. Hidden files,
// subdirectories, and empty files are skipped; unreadable files are logged
// and skipped.
func LoadSecrets(dir string, logger *zap.Logger) (map[string]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// ApplySecrets fills credentials that are still empty in cfg from secrets.
// Values already set by the config file or environment win.
func ApplySecrets(cfg *types.Config, secrets map[string]string) {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = secrets[key]
		}
	}
	fill(&cfg.AI.APIKey, SecretAnthropicKey)
	fill(&cfg.Search.SemanticScholarAPIKey, SecretSemanticScholarKey)
	fill(&cfg.Search.OpenAlexEmail, SecretOpenAlexEmail)
	fill(&cfg.Search.PatentsViewAPIKey, SecretPatentsViewKey)
}
