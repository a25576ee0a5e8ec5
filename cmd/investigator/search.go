// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/investigator/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search literature backends directly",
	Long: `Search queries the same backends the search_literature tool uses
(arXiv, Semantic Scholar, OpenAlex) outside of an investigation. Results are
deduplicated across sources and ranked by relevance. Use --patents to query
PatentsView instead.`,
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	q, err := queryFromFlags(cmd, args)
	if err != nil {
		return err
	}
	if q.IsEmpty() {
		return fmt.Errorf("query required: provide a search query, --author, or --keywords")
	}

	cfg := appConfig.Search
	if n, _ := cmd.Flags().GetInt("max-results"); n > 0 {
		cfg.MaxResults = n
	}
	if bias, _ := cmd.Flags().GetBool("recency-bias"); !bias {
		cfg.RecencyBiasWindow = 0
	}

	client := &http.Client{Timeout: cfg.Timeout}
	backends := search.LiteratureBackends(cfg, client)
	if patents, _ := cmd.Flags().GetBool("patents"); patents {
		backends = []search.Backend{&search.PatentsViewBackend{Client: client, APIKey: cfg.PatentsViewAPIKey}}
	}
	if len(backends) == 0 {
		return fmt.Errorf("no search backends enabled")
	}

	out, err := search.Search(context.Background(), q, backends, cfg, logger)
	if err != nil {
		return err
	}
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return search.FormatJSON(out, cmd.OutOrStdout())
	}
	search.FormatTable(out, cmd.OutOrStdout())
	return nil
}

func queryFromFlags(cmd *cobra.Command, args []string) (search.Query, error) {
	q := search.Query{FreeText: strings.TrimSpace(strings.Join(args, " "))}
	q.Author, _ = cmd.Flags().GetString("author")

	if kw, _ := cmd.Flags().GetString("keywords"); kw != "" {
		for _, k := range strings.Split(kw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				q.Keywords = append(q.Keywords, k)
			}
		}
	}

	var err error
	if from, _ := cmd.Flags().GetString("from"); from != "" {
		if q.DateFrom, err = time.Parse(time.DateOnly, from); err != nil {
			return q, fmt.Errorf("invalid --from date %q: %w", from, err)
		}
	}
	if to, _ := cmd.Flags().GetString("to"); to != "" {
		if q.DateTo, err = time.Parse(time.DateOnly, to); err != nil {
			return q, fmt.Errorf("invalid --to date %q: %w", to, err)
		}
	}
	return q, nil
}

func init() {
	searchCmd.Flags().String("author", "", "filter by author name (inventor surname with --patents)")
	searchCmd.Flags().String("keywords", "", "filter by keywords (comma-separated)")
	searchCmd.Flags().String("from", "", "publication date range start (YYYY-MM-DD)")
	searchCmd.Flags().String("to", "", "publication date range end (YYYY-MM-DD)")
	searchCmd.Flags().Int("max-results", 0, "maximum number of results to return (default search.max_results)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().Bool("recency-bias", false, "boost recently published papers")
	searchCmd.Flags().Bool("patents", false, "search PatentsView instead of the literature backends")

	rootCmd.AddCommand(searchCmd)
}
