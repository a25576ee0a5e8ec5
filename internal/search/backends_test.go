// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/investigator/internal/httputil"
)

// serve points *base at a test server running h for the duration of t.
func serve(t *testing.T, base *string, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(h)
	old := *base
	*base = ts.URL
	t.Cleanup(func() {
		*base = old
		ts.Close()
	})
	return ts
}

func noBackoff(t *testing.T) {
	t.Helper()
	old := httputil.RetryBaseDelay
	httputil.RetryBaseDelay = time.Millisecond
	t.Cleanup(func() { httputil.RetryBaseDelay = old })
}

const arxivFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.07041v2</id>
    <title>Attention
      Is All You Need</title>
    <summary> Transformers. </summary>
    <published>2023-01-17T00:00:00Z</published>
    <author><name>Ashish Vaswani</name></author>
    <author><name>Noam Shazeer</name></author>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/1706.03762v1</id>
    <title>Older</title>
    <published>2017-06-12T00:00:00Z</published>
  </entry>
  <entry>
    <id>not-an-arxiv-url</id>
    <title>Skipped</title>
  </entry>
</feed>`

func TestArxivSearch(t *testing.T) {
	var got *http.Request
	ts := serve(t, &arxivAPIBase, func(w http.ResponseWriter, r *http.Request) {
		got = r
		fmt.Fprint(w, arxivFeedXML)
	})

	b := &ArxivBackend{Client: ts.Client()}
	results, err := b.Search(context.Background(), Query{FreeText: "attention heads", Author: "Vaswani"}, testCfg())
	require.NoError(t, err)

	assert.Contains(t, got.URL.RawQuery, "search_query=all:attention+heads+AND+au:Vaswani")
	assert.Equal(t, "test/0.1", got.Header.Get("User-Agent"))

	require.Len(t, results, 2)
	assert.Equal(t, "2301.07041", results[0].Identifier)
	assert.Equal(t, "Attention Is All You Need", results[0].Title)
	assert.Equal(t, "Transformers.", results[0].Abstract)
	assert.Equal(t, []string{"Ashish Vaswani", "Noam Shazeer"}, results[0].Authors)
	assert.Equal(t, 2023, results[0].Date.Year())
	assert.Equal(t, 1.0, results[0].Score)
	assert.Equal(t, "1706.03762", results[1].Identifier)
}

func TestArxivDateFilter(t *testing.T) {
	ts := serve(t, &arxivAPIBase, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, arxivFeedXML)
	})
	b := &ArxivBackend{Client: ts.Client()}
	results, err := b.Search(context.Background(), Query{
		FreeText: "attention",
		DateFrom: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}, testCfg())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "2301.07041", results[0].Identifier)
}

func TestBuildArxivQuery(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  string
	}{
		{"free text", Query{FreeText: "graph neural nets"}, "all:graph+neural+nets"},
		{"author", Query{Author: "Yann LeCun"}, "au:Yann+LeCun"},
		{"keywords", Query{Keywords: []string{"cnn", " ", "vision"}}, "all:cnn+AND+all:vision"},
		{"empty", Query{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildArxivQuery(tt.query))
		})
	}
}

func TestExtractArxivID(t *testing.T) {
	assert.Equal(t, "2301.07041", extractArxivID("http://arxiv.org/abs/2301.07041v1"))
	assert.Equal(t, "2301.07041", extractArxivID("http://arxiv.org/abs/2301.07041"))
	assert.Equal(t, "hep-th/9901001", extractArxivID("http://arxiv.org/abs/hep-th/9901001v3"))
	assert.Empty(t, extractArxivID("http://example.com/2301.07041"))
}

func TestSemanticSearch(t *testing.T) {
	var got *http.Request
	ts := serve(t, &semanticAPIBase, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"total":3,"data":[
		  {"paperId":"p1","title":"With arXiv","year":2021,"authors":[{"name":"A"}],"externalIds":{"ArXiv":"2101.00001","DOI":"10.1/a"}},
		  {"paperId":"p2","title":"With DOI","publicationDate":"2022-03-04","externalIds":{"DOI":"10.1/b"}},
		  {"paperId":"p3","title":"Bare","externalIds":{}}
		]}`)
	})

	b := &SemanticScholarBackend{Client: ts.Client(), APIKey: "k"}
	results, err := b.Search(context.Background(), Query{
		FreeText: "attention",
		DateFrom: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		DateTo:   time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
	}, testCfg())
	require.NoError(t, err)

	q := got.URL.Query()
	assert.Equal(t, "attention", q.Get("query"))
	assert.Equal(t, "20", q.Get("limit"))
	assert.Equal(t, "2020-2023", q.Get("year"))
	assert.Equal(t, "k", got.Header.Get("x-api-key"))

	require.Len(t, results, 3)
	assert.Equal(t, "2101.00001", results[0].Identifier)
	assert.Equal(t, 2021, results[0].Date.Year())
	assert.Equal(t, "10.1/b", results[1].Identifier)
	assert.Equal(t, time.March, results[1].Date.Month())
	assert.Equal(t, "p3", results[2].Identifier)
	assert.InDelta(t, 0.1, results[2].Score, 1e-9)
}

func TestSemanticRetriesThrottle(t *testing.T) {
	noBackoff(t)
	calls := 0
	ts := serve(t, &semanticAPIBase, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"data":[]}`)
	})
	b := &SemanticScholarBackend{Client: ts.Client()}
	results, err := b.Search(context.Background(), Query{FreeText: "x"}, testCfg())
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 2, calls)
}

func TestSemanticHTTPError(t *testing.T) {
	ts := serve(t, &semanticAPIBase, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	b := &SemanticScholarBackend{Client: ts.Client()}
	_, err := b.Search(context.Background(), Query{FreeText: "x"}, testCfg())
	assert.ErrorContains(t, err, "HTTP 400")
}

func TestBuildYearRange(t *testing.T) {
	y := func(n int) time.Time { return time.Date(n, 1, 1, 0, 0, 0, 0, time.UTC) }
	assert.Equal(t, "2020-2023", buildYearRange(y(2020), y(2023)))
	assert.Equal(t, "2020-", buildYearRange(y(2020), time.Time{}))
	assert.Equal(t, "-2023", buildYearRange(time.Time{}, y(2023)))
	assert.Empty(t, buildYearRange(time.Time{}, time.Time{}))
}

func TestOpenAlexSearch(t *testing.T) {
	var got *http.Request
	ts := serve(t, &openAlexSearchBase, func(w http.ResponseWriter, r *http.Request) {
		got = r
		fmt.Fprint(w, `{"results":[
		  {"id":"https://openalex.org/W1","title":"First","doi":"https://doi.org/10.1/x","publication_date":"2020-05-06",
		   "authorships":[{"author":{"display_name":"Grace Hopper"}},{"author":{"display_name":""}}],
		   "abstract_inverted_index":{"world":[1],"hello":[0]}},
		  {"id":"https://openalex.org/W2","title":"Second","publication_year":2019}
		]}`)
	})

	b := &OpenAlexBackend{Client: ts.Client(), Email: "me@example.com"}
	results, err := b.Search(context.Background(), Query{
		FreeText: "compilers",
		DateFrom: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC),
	}, testCfg())
	require.NoError(t, err)

	q := got.URL.Query()
	assert.Equal(t, "compilers", q.Get("search"))
	assert.Equal(t, "from_publication_date:2019-01-01", q.Get("filter"))
	assert.Equal(t, "me@example.com", q.Get("mailto"))

	require.Len(t, results, 2)
	assert.Equal(t, "10.1/x", results[0].Identifier)
	assert.Equal(t, "hello world", results[0].Abstract)
	assert.Equal(t, []string{"Grace Hopper"}, results[0].Authors)
	assert.Equal(t, "https://openalex.org/W2", results[1].Identifier)
	assert.Equal(t, 2019, results[1].Date.Year())
}

func TestPatentsViewSearch(t *testing.T) {
	var got *http.Request
	ts := serve(t, &patentsViewSearchBase, func(w http.ResponseWriter, r *http.Request) {
		got = r
		fmt.Fprint(w, `{"patents":[{"patent_id":"10000000","patent_title":"Widget","patent_date":"2018-06-19",
		  "inventors":[{"inventor_name_last":"Tesla"}]}]}`)
	})

	b := &PatentsViewBackend{Client: ts.Client(), APIKey: "pv"}
	results, err := b.Search(context.Background(), Query{FreeText: "widget"}, testCfg())
	require.NoError(t, err)

	assert.Equal(t, "pv", got.Header.Get("X-Api-Key"))
	var q map[string]any
	require.NoError(t, json.Unmarshal([]byte(got.URL.Query().Get("q")), &q))
	assert.Contains(t, q, "_or")

	require.Len(t, results, 1)
	assert.Equal(t, "US10000000", results[0].Identifier)
	assert.Equal(t, []string{"Tesla"}, results[0].Authors)
	assert.Equal(t, "patentsview", results[0].Source)
}

func TestBuildPatentsViewQuery(t *testing.T) {
	_, err := buildPatentsViewQuery(Query{})
	assert.Error(t, err)

	q, err := buildPatentsViewQuery(Query{
		FreeText: `say "hi"`,
		Author:   "Tesla",
		DateTo:   time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var v struct {
		And []map[string]any `json:"_and"`
	}
	require.NoError(t, json.Unmarshal([]byte(q), &v))
	require.Len(t, v.And, 3)
	assert.Contains(t, v.And[1], "_contains")
	assert.Equal(t, map[string]any{"patent_date": "2020-01-01"}, v.And[2]["_lte"])
	assert.Contains(t, q, `say \"hi\"`)
}
