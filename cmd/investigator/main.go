// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the investigator CLI.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/investigator/internal/config"
	"github.com/pdiddy/investigator/internal/logging"
	"github.com/pdiddy/investigator/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// secretsDir holds credential files, one per key.
const secretsDir = ".secrets/"

var (
	appConfig types.Config
	logger    = zap.NewNop()
)

// rootCmd is the base command for the investigator CLI.
var rootCmd = &cobra.Command{
	Use:   "investigator",
	Short: "Hypothesis-driven research investigations",
	Long: `investigator turns a research prompt into a tree of testable hypotheses,
runs experiments against them in small concurrent batches, and synthesizes
a ranked report with validation metrics and cost.

Investigations, their event logs, and recorded findings are kept in a local
SQLite store so they can be inspected, searched, and exported later.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./investigator.yaml or ~/.config/investigator/investigator.yaml)")
	rootCmd.PersistentFlags().String("store-dir", "", "directory holding investigator.db (overrides store.dir)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (overrides log.level)")
}

// setup loads configuration, applies secrets, and builds the logger.
func setup(cmd *cobra.Command) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, used, err := config.Load(config.New(cfgFile))
	if err != nil {
		return err
	}
	if dir, _ := cmd.Flags().GetString("store-dir"); dir != "" {
		cfg.Store.Dir = dir
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}

	l, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	logger = l
	if used != "" {
		logger.Debug("using config file", zap.String("path", used))
	}

	secrets, err := config.LoadSecrets(secretsDir, logger)
	if err != nil {
		return err
	}
	if len(secrets) > 0 {
		keys := make([]string, 0, len(secrets))
		for k := range secrets {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		logger.Debug("loaded secrets", zap.Strings("keys", keys))
	}
	config.ApplySecrets(&cfg, secrets)

	appConfig = cfg
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
