// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/investigator/internal/events"
	"github.com/pdiddy/investigator/internal/orchestrator"
	"github.com/pdiddy/investigator/internal/search"
	"github.com/pdiddy/investigator/internal/store"
)

// openStore opens the configured store for read commands.
func openStore() (*store.Store, error) {
	return store.Open(appConfig.Store)
}

// --- show subcommand ---

var showCmd = &cobra.Command{
	Use:   "show <investigation-id>",
	Short: "Print a stored investigation report",
	Long: `Show prints the report of a stored investigation: status, summary,
ranked candidates, hypothesis outcomes, controls, validation metrics, and
cost. Use --full for the complete investigation record, --csl for its
citations as CSL YAML, or --export to write the record under
<store>/exports/.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	full, _ := cmd.Flags().GetBool("full")
	csl, _ := cmd.Flags().GetBool("csl")
	export, _ := cmd.Flags().GetBool("export")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	if export {
		path, err := st.Export(ctx, args[0], format)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	}

	inv, err := st.Load(ctx, args[0])
	if err != nil {
		return err
	}
	switch {
	case csl:
		return search.FormatCSL(inv.Citations, cmd.OutOrStdout())
	case full:
		return store.Encode(cmd.OutOrStdout(), inv, format)
	default:
		return store.Encode(cmd.OutOrStdout(), orchestrator.BuildReport(inv), format)
	}
}

// --- events subcommand ---

var eventsCmd = &cobra.Command{
	Use:   "events <investigation-id>",
	Short: "Print the stored event log of an investigation",
	Long: `Events replays the persisted event log of an investigation in sequence
order. Use --after to resume from a known sequence number.`,
	Args: cobra.ExactArgs(1),
	RunE: runEvents,
}

func runEvents(cmd *cobra.Command, args []string) error {
	after, _ := cmd.Flags().GetInt64("after")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	evs, err := st.Events(context.Background(), args[0], after)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(w)
		for _, ev := range evs {
			if err := enc.Encode(ev); err != nil {
				return err
			}
		}
		return nil
	}
	if len(evs) == 0 {
		fmt.Fprintln(w, "No events found.")
		return nil
	}
	for _, ev := range evs {
		writeEventLine(w, ev)
	}
	return nil
}

// writeEventLine prints one event as "seq  time  type  payload".
func writeEventLine(w io.Writer, ev events.Event) {
	fmt.Fprintf(w, "%5d  %s  %-24s  %s\n",
		ev.Seq, ev.Timestamp.Local().Format(time.TimeOnly), ev.Type, clip(string(ev.Data), 80))
}

// --- list subcommand ---

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored investigations, newest first",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	items, err := st.List(context.Background(), limit)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(w, "No investigations found.")
		return nil
	}

	fmt.Fprintf(w, "%-36s  %-10s  %-16s  %8s  %s\n", "ID", "Status", "Created", "Cost", "Prompt")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, s := range items {
		fmt.Fprintf(w, "%-36s  %-10s  %-16s  %8s  %s\n",
			s.ID, s.Status, s.CreatedAt.Local().Format("2006-01-02 15:04"),
			"$"+strconv.FormatFloat(s.CostUSD, 'f', 4, 64), clip(s.Prompt, 40))
	}
	return nil
}

// clip shortens s to max runes with a trailing ellipsis.
func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func init() {
	showCmd.Flags().String("format", store.FormatYAML, "output format: yaml or json")
	showCmd.Flags().Bool("full", false, "print the full investigation record instead of the report")
	showCmd.Flags().Bool("csl", false, "print citations as CSL YAML")
	showCmd.Flags().Bool("export", false, "write the investigation to <store>/exports/ and print the path")

	eventsCmd.Flags().Int64("after", 0, "print events with sequence number greater than this")
	eventsCmd.Flags().Bool("json", false, "print events as JSON lines")

	listCmd.Flags().Int("limit", 20, "maximum investigations to list (0 for all)")

	rootCmd.AddCommand(showCmd, eventsCmd, listCmd)
}
