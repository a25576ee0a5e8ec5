// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/investigator/internal/events"
	"github.com/pdiddy/investigator/internal/orchestrator"
	"github.com/pdiddy/investigator/internal/reasoning"
	"github.com/pdiddy/investigator/internal/search"
	"github.com/pdiddy/investigator/internal/store"
	"github.com/pdiddy/investigator/internal/tools"
	"github.com/pdiddy/investigator/pkg/types"
)

var errNoAPIKey = errors.New("no Anthropic API key: set ANTHROPIC_API_KEY, ai.api_key, or .secrets/anthropic-api-key")

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Run an investigation end to end",
	Long: `Run classifies the prompt, surveys the literature, formulates hypotheses,
tests them in batches of at most two concurrent experiments, and writes a
synthesis. Every event is persisted to the store as it happens, and the
final investigation is saved when the run ends, whether it completed or
failed.

With --approve the run pauses after formulation until you confirm on
stdin. An unanswered prompt approves once engine.approval_timeout passes.`,
	RunE: runInvestigation,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("prompt", "", "research prompt (or pass it as arguments)")
	cmd.Flags().Int("max-hypotheses", 0, "maximum hypotheses admitted to testing")
	cmd.Flags().Int("max-depth", 0, "deepest tree level eligible for testing (0 tests roots only)")
	cmd.Flags().Int("batch-size", 0, "concurrent experiments per batch (1 or 2)")
	cmd.Flags().Bool("approve", false, "ask for approval on stdin before testing")
	cmd.Flags().Bool("auto-approve", false, "approve the hypothesis set without asking")
	cmd.Flags().Bool("stream", false, "print events to stderr as they happen")
	cmd.Flags().Bool("json", false, "print the report as JSON instead of YAML")
}

func runInvestigation(cmd *cobra.Command, args []string) error {
	prompt, _ := cmd.Flags().GetString("prompt")
	if prompt == "" {
		prompt = strings.Join(args, " ")
	}
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("prompt required: pass --prompt or a positional argument")
	}

	cfg := appConfig
	applyRunFlags(cmd, &cfg.Engine)
	if cfg.AI.APIKey == "" {
		return errNoAPIKey
	}
	autoApprove, _ := cmd.Flags().GetBool("auto-approve")
	streamEvents, _ := cmd.Flags().GetBool("stream")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	reg, err := buildRegistry(cfg.Search, nil)
	if err != nil {
		return err
	}
	eng := newEngine(cfg, reg, newPort(cfg.AI), cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	inv := types.NewInvestigation(prompt)
	log := events.NewLog(inv.ID)
	gate := orchestrator.NewGate()
	if autoApprove {
		gate.Approve()
	}
	if err := st.Save(ctx, inv); err != nil {
		return fmt.Errorf("saving investigation %s: %w", inv.ID, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "investigation %s\n", inv.ID)

	// Persistence outlives an interrupt so the failure events reach the store.
	persistCtx := context.WithoutCancel(ctx)
	var g errgroup.Group
	g.Go(func() error {
		_, err := st.Follow(persistCtx, log)
		return err
	})
	if cfg.Engine.RequireApproval && !autoApprove {
		g.Go(func() error {
			watchApproval(ctx, log, gate, cmd.InOrStdin(), cmd.ErrOrStderr())
			return nil
		})
	}
	if streamEvents {
		g.Go(func() error {
			for ev := range log.Stream(ctx, 0) {
				writeEventLine(cmd.ErrOrStderr(), ev)
			}
			return nil
		})
	}

	report, runErr := eng.Run(ctx, inv, orchestrator.WithEventLog(log), orchestrator.WithGate(gate))
	if err := g.Wait(); err != nil {
		logger.Error("persisting events", zap.Error(err))
	}
	if err := st.Save(persistCtx, inv); err != nil {
		return fmt.Errorf("saving investigation %s: %w", inv.ID, err)
	}
	if report != nil {
		format := store.FormatYAML
		if jsonOutput {
			format = store.FormatJSON
		}
		if err := store.Encode(cmd.OutOrStdout(), report, format); err != nil {
			return err
		}
	}
	return runErr
}

// applyRunFlags overrides engine bounds with the flags the user set.
func applyRunFlags(cmd *cobra.Command, cfg *types.EngineConfig) {
	flags := cmd.Flags()
	if flags.Changed("max-hypotheses") {
		cfg.MaxHypotheses, _ = flags.GetInt("max-hypotheses")
	}
	if flags.Changed("max-depth") {
		cfg.MaxDepth, _ = flags.GetInt("max-depth")
	}
	if flags.Changed("batch-size") {
		cfg.BatchSize, _ = flags.GetInt("batch-size")
	}
	if approve, _ := flags.GetBool("approve"); approve {
		cfg.RequireApproval = true
	}
}

// buildRegistry registers the recording tools and the search tools enabled
// in cfg.
func buildRegistry(cfg types.SearchConfig, client *http.Client) (*tools.Registry, error) {
	reg := tools.NewRegistry()
	if err := tools.RegisterRecorders(reg); err != nil {
		return nil, err
	}
	if err := search.Register(reg, cfg, client, logger); err != nil {
		return nil, err
	}
	return reg, nil
}

// newPort builds the reasoning port for a run. Package-level var for test
// substitution.
var newPort = func(cfg types.AIConfig) reasoning.Port { return newClaude(cfg) }

func newClaude(cfg types.AIConfig) *reasoning.Claude {
	return &reasoning.Claude{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		MaxTokens: cfg.MaxTokens,
		Client:    &http.Client{Timeout: cfg.Timeout},
		Logger:    logger,
	}
}

func newEngine(cfg types.Config, reg *tools.Registry, port reasoning.Port, progress io.Writer) *orchestrator.Engine {
	return orchestrator.New(port, tools.NewDispatcher(reg, logger, cfg.Engine.MaxToolOutputChars),
		orchestrator.WithConfig(cfg.Engine),
		orchestrator.WithModels(cfg.Models),
		orchestrator.WithPricing(cfg.Pricing),
		orchestrator.WithLogger(logger),
		orchestrator.WithProgress(progress))
}

// watchApproval waits for the approval request and asks on in. The prompt
// runs in its own goroutine so an unanswered read never holds the run open.
func watchApproval(ctx context.Context, log *events.Log, gate *orchestrator.Gate, in io.Reader, out io.Writer) {
	for ev := range log.Stream(ctx, 0) {
		if ev.Type != events.TypeApprovalRequested {
			continue
		}
		var req struct {
			Hypotheses int     `json:"hypotheses"`
			TimeoutSec float64 `json:"timeout_seconds"`
		}
		_ = ev.Decode(&req)
		fmt.Fprintf(out, "%d hypotheses formulated. Approve testing? [Y/n] (auto-approves in %.0fs) ",
			req.Hypotheses, req.TimeoutSec)
		go askApproval(in, gate)
	}
}

// askApproval reads one answer from in. Anything but an explicit no
// approves; a closed reader leaves the gate to its timeout.
func askApproval(in io.Reader, gate *orchestrator.Gate) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "n", "no":
		gate.Reject()
	default:
		gate.Approve()
	}
}
