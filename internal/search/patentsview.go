// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/investigator/pkg/types"
)

// patentsViewSearchBase is the PatentsView patent search endpoint. Declared
// as a var so tests can substitute an httptest server.
var patentsViewSearchBase = "https://search.patentsview.org/api/v1/patent/"

const patentsViewFields = `["patent_id","patent_title","patent_abstract","patent_date","inventors.inventor_name_last"]`

// PatentsViewBackend queries the USPTO PatentsView API.
type PatentsViewBackend struct {
	Client *http.Client
	APIKey string
}

// Name returns the backend identifier.
func (b *PatentsViewBackend) Name() string { return "patentsview" }

// Search queries PatentsView. Identifiers carry the "US" prefix and
// inventors stand in for authors.
func (b *PatentsViewBackend) Search(ctx context.Context, query Query, cfg types.SearchConfig) ([]Result, error) {
	q, err := buildPatentsViewQuery(query)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("f", patentsViewFields)
	params.Set("o", fmt.Sprintf(`{"size":%d}`, maxResults(cfg, 1000)))

	var page patentsViewResponse
	err = fetch(ctx, b.Client, "PatentsView", patentsViewSearchBase+"?"+params.Encode(), cfg,
		map[string]string{"X-Api-Key": b.APIKey}, decodeJSON(&page))
	if err != nil {
		return nil, err
	}

	out := make([]Result, len(page.Patents))
	for i, p := range page.Patents {
		out[i] = p.result(positionScore(i, len(page.Patents)))
	}
	return out, nil
}

func (p patentsViewPatent) result(score float64) Result {
	r := Result{
		Identifier: "US" + p.PatentID,
		Title:      p.PatentTitle,
		Abstract:   p.PatentAbstract,
		Date:       parseDay(p.PatentDate, 0),
		Source:     "patentsview",
		Score:      score,
	}
	for _, inv := range p.Inventors {
		if inv.InventorNameLast != "" {
			r.Authors = append(r.Authors, inv.InventorNameLast)
		}
	}
	return r
}

// buildPatentsViewQuery builds the JSON "q" parameter with PatentsView
// operators. Multiple conditions are joined with _and.
func buildPatentsViewQuery(q Query) (string, error) {
	var conds []map[string]any
	textOn := func(op, text string) map[string]any {
		return map[string]any{"_or": []map[string]any{
			{op: map[string]string{"patent_title": text}},
			{op: map[string]string{"patent_abstract": text}},
		}}
	}

	if q.FreeText != "" {
		conds = append(conds, textOn("_text_any", q.FreeText))
	}
	if q.Author != "" {
		conds = append(conds, map[string]any{"_contains": map[string]string{"inventors.inventor_name_last": q.Author}})
	}
	if len(q.Keywords) > 0 {
		conds = append(conds, textOn("_text_all", strings.Join(q.Keywords, " ")))
	}
	if !q.DateFrom.IsZero() {
		conds = append(conds, map[string]any{"_gte": map[string]string{"patent_date": q.DateFrom.Format("2006-01-02")}})
	}
	if !q.DateTo.IsZero() {
		conds = append(conds, map[string]any{"_lte": map[string]string{"patent_date": q.DateTo.Format("2006-01-02")}})
	}

	var v any
	switch len(conds) {
	case 0:
		return "", errEmptyQuery
	case 1:
		v = conds[0]
	default:
		v = map[string]any{"_and": conds}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding PatentsView query: %w", err)
	}
	return string(b), nil
}

type patentsViewResponse struct {
	Patents []patentsViewPatent `json:"patents"`
}

type patentsViewPatent struct {
	PatentID       string                `json:"patent_id"`
	PatentTitle    string                `json:"patent_title"`
	PatentAbstract string                `json:"patent_abstract"`
	PatentDate     string                `json:"patent_date"`
	Inventors      []patentsViewInventor `json:"inventors"`
}

type patentsViewInventor struct {
	InventorNameLast string `json:"inventor_name_last"`
}
