// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pdiddy/investigator/internal/httputil"
	"github.com/pdiddy/investigator/pkg/types"
)

// errEmptyQuery is returned by a backend whose query language has nothing
// to match on.
var errEmptyQuery = errors.New("nothing to search for")

// decoder reads a response body into a backend's wire type.
type decoder func(io.Reader) error

func decodeJSON(v any) decoder {
	return func(r io.Reader) error { return json.NewDecoder(r).Decode(v) }
}

func decodeXML(v any) decoder {
	return func(r io.Reader) error { return xml.NewDecoder(r).Decode(v) }
}

// fetch issues a GET to endpoint on behalf of the named API, retrying
// throttled responses, and hands a 200 body to decode. Empty header values
// are not sent.
func fetch(ctx context.Context, client *http.Client, api, endpoint string, cfg types.SearchConfig, header map[string]string, decode decoder) error {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%s: building request: %w", api, err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	for k, v := range header {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return fmt.Errorf("%s: %w", api, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned HTTP %d", api, resp.StatusCode)
	}
	if err := decode(resp.Body); err != nil {
		return fmt.Errorf("%s: decoding response: %w", api, err)
	}
	return nil
}

// parseDay parses a YYYY-MM-DD date, falling back to January 1 of year
// when the date is missing or malformed. Both empty yields the zero time.
func parseDay(day string, year int) time.Time {
	if t, err := time.Parse(time.DateOnly, day); err == nil {
		return t
	}
	if year > 0 {
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Time{}
}
