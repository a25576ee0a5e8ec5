// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/investigator/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,abstract,authors,externalIds,year,publicationDate"

// SemanticScholarBackend queries the Semantic Scholar Graph API.
type SemanticScholarBackend struct {
	Client *http.Client
	APIKey string
}

// Name returns the backend identifier.
func (b *SemanticScholarBackend) Name() string { return "semantic_scholar" }

// Search queries Semantic Scholar. Identifiers prefer the arXiv ID, then
// the DOI, then the Semantic Scholar paper ID.
func (b *SemanticScholarBackend) Search(ctx context.Context, query Query, cfg types.SearchConfig) ([]Result, error) {
	terms := joinTerms(query)
	if terms == "" {
		return nil, errEmptyQuery
	}

	params := url.Values{}
	params.Set("query", terms)
	params.Set("fields", semanticFields)
	params.Set("limit", strconv.Itoa(maxResults(cfg, 100)))
	if span := buildYearRange(query.DateFrom, query.DateTo); span != "" {
		params.Set("year", span)
	}

	var page semanticResponse
	err := fetch(ctx, b.Client, "Semantic Scholar", semanticAPIBase+"?"+params.Encode(), cfg,
		map[string]string{"x-api-key": b.APIKey}, decodeJSON(&page))
	if err != nil {
		return nil, err
	}

	out := make([]Result, len(page.Data))
	for i, p := range page.Data {
		out[i] = p.result(positionScore(i, len(page.Data)))
	}
	return out, nil
}

func (p semanticPaper) result(score float64) Result {
	r := Result{
		Identifier: firstNonEmpty(p.ExternalIDs.ArXiv, p.ExternalIDs.DOI, p.PaperID),
		Title:      p.Title,
		Abstract:   p.Abstract,
		Date:       parseDay(p.PublicationDate, p.Year),
		Source:     "semantic_scholar",
		Score:      score,
	}
	for _, a := range p.Authors {
		r.Authors = append(r.Authors, a.Name)
	}
	return r
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// joinTerms combines the query fields into one space-separated string.
func joinTerms(q Query) string {
	var parts []string
	if q.FreeText != "" {
		parts = append(parts, q.FreeText)
	}
	if q.Author != "" {
		parts = append(parts, q.Author)
	}
	parts = append(parts, q.Keywords...)
	return strings.TrimSpace(strings.Join(parts, " "))
}

// buildYearRange returns a Semantic Scholar year filter (e.g. "2020-2023").
func buildYearRange(from, to time.Time) string {
	switch {
	case !from.IsZero() && !to.IsZero():
		return fmt.Sprintf("%d-%d", from.Year(), to.Year())
	case !from.IsZero():
		return fmt.Sprintf("%d-", from.Year())
	case !to.IsZero():
		return fmt.Sprintf("-%d", to.Year())
	}
	return ""
}

type semanticResponse struct {
	Total int             `json:"total"`
	Data  []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID         string              `json:"paperId"`
	Title           string              `json:"title"`
	Abstract        string              `json:"abstract"`
	Year            int                 `json:"year"`
	PublicationDate string              `json:"publicationDate"`
	Authors         []semanticAuthor    `json:"authors"`
	ExternalIDs     semanticExternalIDs `json:"externalIds"`
}

type semanticAuthor struct {
	Name string `json:"name"`
}

type semanticExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}
