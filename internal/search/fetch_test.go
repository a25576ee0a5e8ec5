// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchHeaders(t *testing.T) {
	var got http.Header
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{"n":3}`))
	}))
	defer ts.Close()

	var v struct{ N int }
	err := fetch(context.Background(), ts.Client(), "Test API", ts.URL, testCfg(),
		map[string]string{"X-Key": "k", "X-Empty": ""}, decodeJSON(&v))
	require.NoError(t, err)
	assert.Equal(t, 3, v.N)
	assert.Equal(t, "k", got.Get("X-Key"))
	assert.NotContains(t, got, "X-Empty")
	assert.Equal(t, testCfg().UserAgent, got.Get("User-Agent"))
}

func TestFetchErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`not json`))
	}))
	defer ts.Close()

	var v map[string]any
	err := fetch(context.Background(), ts.Client(), "Test API", ts.URL+"/missing", testCfg(), nil, decodeJSON(&v))
	assert.EqualError(t, err, "Test API returned HTTP 404")

	err = fetch(context.Background(), ts.Client(), "Test API", ts.URL, testCfg(), nil, decodeJSON(&v))
	assert.ErrorContains(t, err, "Test API: decoding response")
}

func TestParseDay(t *testing.T) {
	tests := []struct {
		name string
		day  string
		year int
		want time.Time
	}{
		{"full date", "2021-03-04", 1999, time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"year fallback", "", 2019, time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"malformed date", "March 2020", 2020, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"nothing", "", 0, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(parseDay(tt.day, tt.year)), "got %v", parseDay(tt.day, tt.year))
		})
	}
}
