// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/investigator/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// ArxivBackend queries the arXiv Atom API.
type ArxivBackend struct {
	Client *http.Client
}

// Name returns the backend identifier.
func (b *ArxivBackend) Name() string { return "arxiv" }

// Search queries arXiv. arXiv has no date filter in its query language, so
// DateFrom and DateTo are applied to the returned entries.
func (b *ArxivBackend) Search(ctx context.Context, query Query, cfg types.SearchConfig) ([]Result, error) {
	expr := buildArxivQuery(query)
	if expr == "" {
		return nil, errEmptyQuery
	}

	// search_query is passed through unescaped; arXiv reads '+' as a separator.
	endpoint := arxivAPIBase + "?search_query=" + expr +
		"&start=0&max_results=" + strconv.Itoa(maxResults(cfg, 100)) +
		"&sortBy=relevance&sortOrder=descending"

	var feed arxivFeed
	if err := fetch(ctx, b.Client, "arXiv", endpoint, cfg, nil, decodeXML(&feed)); err != nil {
		return nil, err
	}

	var out []Result
	for i, e := range feed.Entries {
		r, ok := e.result(positionScore(i, len(feed.Entries)))
		if !ok || !inRange(r.Date, query.DateFrom, query.DateTo) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// result maps an Atom entry; ok is false when the entry carries no
// recognizable arXiv ID.
func (e arxivEntry) result(score float64) (Result, bool) {
	id := extractArxivID(e.ID)
	if id == "" {
		return Result{}, false
	}
	r := Result{
		Identifier: id,
		Title:      strings.Join(strings.Fields(e.Title), " "),
		Abstract:   strings.TrimSpace(e.Summary),
		Source:     "arxiv",
		Score:      score,
	}
	if published, err := time.Parse(time.RFC3339, e.Published); err == nil {
		r.Date = published
	}
	for _, a := range e.Authors {
		r.Authors = append(r.Authors, strings.TrimSpace(a.Name))
	}
	return r, true
}

// buildArxivQuery constructs the search_query parameter from structured fields.
func buildArxivQuery(q Query) string {
	var parts []string
	if q.FreeText != "" {
		parts = append(parts, "all:"+strings.Join(strings.Fields(q.FreeText), "+"))
	}
	if q.Author != "" {
		parts = append(parts, "au:"+strings.Join(strings.Fields(q.Author), "+"))
	}
	for _, kw := range q.Keywords {
		if terms := strings.Fields(kw); len(terms) > 0 {
			parts = append(parts, "all:"+strings.Join(terms, "+"))
		}
	}
	return strings.Join(parts, "+AND+")
}

// inRange reports whether d falls within [from, to]. Undated entries and
// open bounds always pass.
func inRange(d, from, to time.Time) bool {
	if d.IsZero() {
		return true
	}
	if !from.IsZero() && d.Before(from) {
		return false
	}
	if !to.IsZero() && d.After(to.Add(24*time.Hour-time.Nanosecond)) {
		return false
	}
	return true
}

func maxResults(cfg types.SearchConfig, limit int) int {
	n := cfg.MaxResults
	if n <= 0 {
		n = 20
	}
	if n > limit {
		n = limit
	}
	return n
}

type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

// extractArxivID pulls the versionless arXiv ID from an entry <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" -> "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]
	if v := strings.LastIndex(id, "v"); v > 0 {
		if _, err := strconv.Atoi(id[v+1:]); err == nil {
			id = id[:v]
		}
	}
	return id
}
