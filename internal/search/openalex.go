// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/investigator/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

// OpenAlexBackend queries the OpenAlex Works API.
type OpenAlexBackend struct {
	Client *http.Client
	// Email is sent as mailto for polite-pool access.
	Email string
}

// Name returns the backend identifier.
func (b *OpenAlexBackend) Name() string { return "openalex" }

// Search queries OpenAlex. OpenAlex is DOI-centric, so the bare DOI is the
// identifier when present.
func (b *OpenAlexBackend) Search(ctx context.Context, query Query, cfg types.SearchConfig) ([]Result, error) {
	terms := joinTerms(query)
	if terms == "" {
		return nil, errEmptyQuery
	}

	params := url.Values{}
	params.Set("search", terms)
	params.Set("page", "1")
	params.Set("per_page", strconv.Itoa(maxResults(cfg, 200)))
	if f := openAlexFilter(query.DateFrom, query.DateTo); f != "" {
		params.Set("filter", f)
	}
	if b.Email != "" {
		params.Set("mailto", b.Email)
	}

	var page openAlexResponse
	if err := fetch(ctx, b.Client, "OpenAlex", openAlexSearchBase+"?"+params.Encode(), cfg, nil, decodeJSON(&page)); err != nil {
		return nil, err
	}

	out := make([]Result, len(page.Results))
	for i, w := range page.Results {
		out[i] = w.result(positionScore(i, len(page.Results)))
	}
	return out, nil
}

// openAlexFilter renders the publication date bounds as an OpenAlex filter.
func openAlexFilter(from, to time.Time) string {
	var parts []string
	if !from.IsZero() {
		parts = append(parts, "from_publication_date:"+from.Format(time.DateOnly))
	}
	if !to.IsZero() {
		parts = append(parts, "to_publication_date:"+to.Format(time.DateOnly))
	}
	return strings.Join(parts, ",")
}

func (w openAlexWork) result(score float64) Result {
	r := Result{
		Identifier: w.ID,
		Title:      w.Title,
		Abstract:   reconstructAbstract(w.AbstractInvertedIndex),
		Date:       parseDay(w.PublicationDate, w.PublicationYear),
		Source:     "openalex",
		Score:      score,
	}
	if w.DOI != "" {
		r.Identifier = strings.TrimPrefix(w.DOI, "https://doi.org/")
	}
	for _, a := range w.Authorships {
		if name := a.Author.DisplayName; name != "" {
			r.Authors = append(r.Authors, name)
		}
	}
	return r
}

// reconstructAbstract turns OpenAlex's abstract_inverted_index, a map of
// word to positions, back into plain text.
func reconstructAbstract(index map[string][]int) string {
	if len(index) == 0 {
		return ""
	}
	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range index {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos, word})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].pos < pairs[j].pos })

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	PublicationDate       string               `json:"publication_date"`
	PublicationYear       int                  `json:"publication_year"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
}

type openAlexAuthorship struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}
