// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries academic and patent APIs and returns unified,
// deduplicated, ranked references. The backends are exposed to the
// investigation engine as tools (see tool.go).
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/pdiddy/investigator/pkg/types"
)

var backendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "investigator_search_backend_requests_total",
	Help: "Search backend requests by backend and result.",
}, []string{"backend", "result"})

// Result is one reference returned by a backend.
type Result struct {
	// Identifier is the canonical ID from the source (arXiv ID, DOI, patent
	// number, or a source URL).
	Identifier string    `json:"identifier"`
	Title      string    `json:"title"`
	Authors    []string  `json:"authors"`
	Abstract   string    `json:"abstract"`
	Date       time.Time `json:"date"`
	Source     string    `json:"source"`
	// Score is a relevance value in [0, 1].
	Score float64 `json:"score"`
}

// Citation converts r into the reference type stored on an investigation.
func (r Result) Citation() types.Citation {
	c := types.Citation{
		Identifier: r.Identifier,
		Title:      r.Title,
		Authors:    r.Authors,
		Abstract:   r.Abstract,
		Source:     r.Source,
	}
	if !r.Date.IsZero() {
		c.Year = r.Date.Year()
	}
	return c
}

// Backend searches a single API.
type Backend interface {
	Name() string
	Search(ctx context.Context, query Query, cfg types.SearchConfig) ([]Result, error)
}

// Query holds the search parameters.
type Query struct {
	FreeText string
	Author   string
	Keywords []string
	DateFrom time.Time
	DateTo   time.Time
}

// IsEmpty reports whether the query contains no searchable terms.
func (q Query) IsEmpty() bool {
	return q.FreeText == "" && q.Author == "" && len(q.Keywords) == 0
}

// Output holds the merged results and dedup statistics.
type Output struct {
	Results       []Result
	DupsRemoved   int
	BackendErrors []string
}

// Search fans the query out to all backends, deduplicates the results,
// ranks them, and returns the top MaxResults. A failing backend is logged
// and reported in BackendErrors; the others still contribute.
func Search(ctx context.Context, query Query, backends []Backend, cfg types.SearchConfig, logger *zap.Logger) (Output, error) {
	if query.IsEmpty() {
		return Output{}, fmt.Errorf("query is empty: provide search text, an author, or keywords")
	}
	if len(backends) == 0 {
		return Output{}, fmt.Errorf("no search backends configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	type backendResult struct {
		results []Result
		err     error
		name    string
	}

	ch := make(chan backendResult, len(backends))
	var wg sync.WaitGroup

	for i, b := range backends {
		if i > 0 && cfg.InterBackendDelay > 0 {
			select {
			case <-time.After(cfg.InterBackendDelay):
			case <-ctx.Done():
			}
		}
		wg.Add(1)
		go func(b Backend) {
			defer wg.Done()
			results, err := b.Search(ctx, query, cfg)
			ch <- backendResult{results: results, err: err, name: b.Name()}
		}(b)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	var all []Result
	var backendErrors []string
	for br := range ch {
		if br.err != nil {
			backendRequests.WithLabelValues(br.name, "error").Inc()
			backendErrors = append(backendErrors, fmt.Sprintf("%s: %v", br.name, br.err))
			logger.Warn("search backend failed", zap.String("backend", br.name), zap.Error(br.err))
			continue
		}
		backendRequests.WithLabelValues(br.name, "ok").Inc()
		all = append(all, br.results...)
	}
	sort.Strings(backendErrors)

	deduped, removed := deduplicate(all)

	if cfg.RecencyBiasWindow > 0 {
		applyRecencyBias(deduped, cfg.RecencyBiasWindow, time.Now())
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Score > deduped[j].Score
	})

	if cfg.MaxResults > 0 && len(deduped) > cfg.MaxResults {
		deduped = deduped[:cfg.MaxResults]
	}

	return Output{
		Results:       deduped,
		DupsRemoved:   removed,
		BackendErrors: backendErrors,
	}, nil
}

// deduplicate merges results that share an identifier or normalized title.
func deduplicate(results []Result) ([]Result, int) {
	seen := make(map[string]int) // key -> index in deduped
	var deduped []Result
	removed := 0

	for _, r := range results {
		idKey := ""
		if r.Identifier != "" {
			idKey = "id:" + strings.ToLower(r.Identifier)
		}
		titleKey := ""
		if t := normalizeTitle(r.Title); t != "" {
			titleKey = "title:" + t
		}

		// Empty keys are never stored, so they never match.
		idx, ok := seen[idKey]
		if !ok {
			idx, ok = seen[titleKey]
		}
		if ok {
			mergeInto(&deduped[idx], r)
			removed++
			continue
		}

		idx = len(deduped)
		deduped = append(deduped, r)
		if idKey != "" {
			seen[idKey] = idx
		}
		if titleKey != "" {
			seen[titleKey] = idx
		}
	}
	return deduped, removed
}

// mergeInto fills empty fields of dst from src and keeps the higher score.
func mergeInto(dst *Result, src Result) {
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if len(dst.Authors) == 0 {
		dst.Authors = src.Authors
	}
	if dst.Abstract == "" {
		dst.Abstract = src.Abstract
	}
	if dst.Date.IsZero() {
		dst.Date = src.Date
	}
	if src.Score > dst.Score {
		dst.Score = src.Score
	}
	// arXiv IDs are the most stable identifier across backends.
	if isArxivID(src.Identifier) && !isArxivID(dst.Identifier) {
		dst.Identifier = src.Identifier
	}
	if src.Source != "" && !containsSource(dst.Source, src.Source) {
		dst.Source = dst.Source + "," + src.Source
	}
}

func containsSource(list, name string) bool {
	for _, s := range strings.Split(list, ",") {
		if s == name {
			return true
		}
	}
	return false
}

// isArxivID reports whether s looks like a new-style arXiv ID (e.g. "2301.07041").
func isArxivID(s string) bool {
	if len(s) < 9 || s[4] != '.' {
		return false
	}
	for _, r := range s[:4] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// normalizeTitle lowercases the title and strips punctuation.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// applyRecencyBias boosts scores of results dated within window of now.
func applyRecencyBias(results []Result, window time.Duration, now time.Time) {
	for i := range results {
		if results[i].Date.IsZero() {
			continue
		}
		age := now.Sub(results[i].Date)
		if age >= 0 && age <= window {
			boost := 0.2 * (1.0 - float64(age)/float64(window))
			results[i].Score = math.Min(1.0, results[i].Score+boost)
		}
	}
}

// positionScore scores the i-th of total results from a relevance-ordered
// API: 1.0 for the first, falling linearly to 0.1 for the last.
func positionScore(i, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	return 1.0 - float64(i)/float64(total-1)*0.9
}

// FormatTable writes results as a human-readable table to w.
func FormatTable(out Output, w io.Writer) {
	if len(out.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-4s  %-6s  %s\n",
		"Rank", "Title", "Authors", "Year", "Score", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for i, r := range out.Results {
		year := ""
		if !r.Date.IsZero() {
			year = fmt.Sprintf("%d", r.Date.Year())
		}
		fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-4s  %-6.2f  %s\n",
			i+1, truncate(r.Title, 60), formatAuthors(r.Authors), year, r.Score, r.Source)
	}

	fmt.Fprintf(w, "\n%d results", len(out.Results))
	if out.DupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", out.DupsRemoved)
	}
	fmt.Fprintln(w)
	for _, e := range out.BackendErrors {
		fmt.Fprintf(w, "warning: %s\n", e)
	}
}

// FormatJSON writes results as indented JSON to w.
func FormatJSON(out Output, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out.Results)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
