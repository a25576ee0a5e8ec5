// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/investigator/internal/store"
	"github.com/pdiddy/investigator/pkg/types"
)

var findingsCmd = &cobra.Command{
	Use:   "findings",
	Short: "Query findings recorded across investigations",
}

var findingsSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Full-text search over stored findings",
	Long: `Search matches findings by title, detail, and evidence using SQLite full-text
syntax ("platelet AND aspirin", "thrombo*"). Filter-only queries with
--investigation or --evidence list findings in recording order.`,
	RunE: runFindingsSearch,
}

func runFindingsSearch(cmd *cobra.Command, args []string) error {
	q := store.FindingQuery{Query: strings.Join(args, " ")}
	q.InvestigationID, _ = cmd.Flags().GetString("investigation")
	evidence, _ := cmd.Flags().GetString("evidence")
	q.EvidenceType = types.EvidenceType(evidence)
	q.MaxResults, _ = cmd.Flags().GetInt("max-results")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if strings.TrimSpace(q.Query) == "" && q.InvestigationID == "" && q.EvidenceType == "" {
		return fmt.Errorf("query or filter required: provide a search query, --investigation, or --evidence")
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	hits, err := st.SearchFindings(context.Background(), q)
	if err != nil {
		return err
	}
	if jsonOutput {
		return store.Encode(cmd.OutOrStdout(), hits, store.FormatJSON)
	}
	formatFindings(cmd.OutOrStdout(), hits)
	return nil
}

func formatFindings(w io.Writer, hits []store.FindingHit) {
	if len(hits) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-13s  %-5s  %-50s  %s\n", "Rank", "Evidence", "Level", "Title", "Investigation")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for i, h := range hits {
		fmt.Fprintf(w, "%-4d  %-13s  %-5d  %-50s  %s\n",
			i+1, h.EvidenceType, h.EvidenceLevel, clip(h.Title, 50), clip(h.Prompt, 30))
	}
	fmt.Fprintf(w, "\n%d results\n", len(hits))
}

func init() {
	findingsSearchCmd.Flags().String("investigation", "", "restrict to one investigation ID")
	findingsSearchCmd.Flags().String("evidence", "", "filter by evidence type: supporting, contradicting, neutral")
	findingsSearchCmd.Flags().Int("max-results", 20, "maximum number of results")
	findingsSearchCmd.Flags().Bool("json", false, "output results as JSON")

	findingsCmd.AddCommand(findingsSearchCmd)
	rootCmd.AddCommand(findingsCmd)
}
