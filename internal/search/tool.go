// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/investigator/internal/tools"
	"github.com/pdiddy/investigator/pkg/types"
)

// Tool names registered by Register.
const (
	LiteratureTool = "search_literature"
	PatentTool     = "search_patents"
)

// abstractLimit bounds each abstract when a tool output is compacted.
const abstractLimit = 280

const toolSchema = `{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "free-text search terms"},
    "author": {"type": "string"},
    "keywords": {"type": "array", "items": {"type": "string"}},
    "date_from": {"type": "string", "description": "YYYY-MM-DD"},
    "date_to": {"type": "string", "description": "YYYY-MM-DD"},
    "max_results": {"type": "integer", "minimum": 1}
  }
}`

// Reply is the output of the search tools.
type Reply struct {
	Results       []types.Citation `json:"results"`
	BackendErrors []string         `json:"backend_errors,omitempty"`
}

type toolInput struct {
	Query      string   `json:"query"`
	Author     string   `json:"author"`
	Keywords   []string `json:"keywords"`
	DateFrom   string   `json:"date_from"`
	DateTo     string   `json:"date_to"`
	MaxResults int      `json:"max_results"`
}

// Tool runs one search across a fixed set of backends.
type Tool struct {
	Backends []Backend
	Config   types.SearchConfig
	Logger   *zap.Logger
}

// Invoke implements tools.Tool. It fails only when the input is unusable
// or every backend failed.
func (t *Tool) Invoke(ctx context.Context, call tools.Call) (string, error) {
	var in toolInput
	if err := json.Unmarshal(call.Input, &in); err != nil {
		return "", fmt.Errorf("decoding search input: %w", err)
	}
	query, err := in.query()
	if err != nil {
		return "", err
	}

	cfg := t.Config
	if in.MaxResults > 0 && (cfg.MaxResults <= 0 || in.MaxResults < cfg.MaxResults) {
		cfg.MaxResults = in.MaxResults
	}

	out, err := Search(ctx, query, t.Backends, cfg, t.Logger)
	if err != nil {
		return "", err
	}
	if len(out.Results) == 0 && len(out.BackendErrors) == len(t.Backends) {
		return "", fmt.Errorf("all search backends failed: %s", strings.Join(out.BackendErrors, "; "))
	}

	reply := Reply{Results: make([]types.Citation, 0, len(out.Results)), BackendErrors: out.BackendErrors}
	for _, r := range out.Results {
		reply.Results = append(reply.Results, r.Citation())
	}
	b, err := json.Marshal(reply)
	if err != nil {
		return "", fmt.Errorf("encoding search results: %w", err)
	}
	return string(b), nil
}

func (in toolInput) query() (Query, error) {
	q := Query{
		FreeText: strings.TrimSpace(in.Query),
		Author:   strings.TrimSpace(in.Author),
		Keywords: in.Keywords,
	}
	var err error
	if in.DateFrom != "" {
		if q.DateFrom, err = time.Parse("2006-01-02", in.DateFrom); err != nil {
			return q, fmt.Errorf("invalid date_from %q: %w", in.DateFrom, err)
		}
	}
	if in.DateTo != "" {
		if q.DateTo, err = time.Parse("2006-01-02", in.DateTo); err != nil {
			return q, fmt.Errorf("invalid date_to %q: %w", in.DateTo, err)
		}
	}
	return q, nil
}

// Compact shortens abstracts, then drops them, until the reply fits in
// limit. Output that is not a Reply is truncated.
func Compact(output string, limit int) string {
	if len(output) <= limit {
		return output
	}
	var reply Reply
	if err := json.Unmarshal([]byte(output), &reply); err != nil {
		return tools.Truncate(output, limit)
	}
	for i := range reply.Results {
		if r := []rune(reply.Results[i].Abstract); len(r) > abstractLimit {
			reply.Results[i].Abstract = string(r[:abstractLimit]) + "..."
		}
	}
	if b, _ := json.Marshal(reply); len(b) <= limit {
		return string(b)
	}
	for i := range reply.Results {
		reply.Results[i].Abstract = ""
	}
	b, _ := json.Marshal(reply)
	return tools.Truncate(string(b), limit)
}

// LiteratureBackends builds the enabled academic backends.
func LiteratureBackends(cfg types.SearchConfig, client *http.Client) []Backend {
	var bs []Backend
	if cfg.EnableArxiv {
		bs = append(bs, &ArxivBackend{Client: client})
	}
	if cfg.EnableSemanticScholar {
		bs = append(bs, &SemanticScholarBackend{Client: client, APIKey: cfg.SemanticScholarAPIKey})
	}
	if cfg.EnableOpenAlex {
		bs = append(bs, &OpenAlexBackend{Client: client, Email: cfg.OpenAlexEmail})
	}
	return bs
}

// Register adds the search tools enabled by cfg to reg. Literature search
// is universal; patent search is visible only to cfg.PatentDomains.
func Register(reg *tools.Registry, cfg types.SearchConfig, client *http.Client, logger *zap.Logger) error {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if bs := LiteratureBackends(cfg, client); len(bs) > 0 {
		err := reg.Register(LiteratureTool, &Tool{Backends: bs, Config: cfg, Logger: logger}, nil,
			tools.WithDescription("Search arXiv, Semantic Scholar, and OpenAlex for papers. Returns deduplicated references ranked by relevance."),
			tools.WithSchema(toolSchema),
			tools.WithCompactor(Compact))
		if err != nil {
			return err
		}
	}
	if cfg.EnablePatentsView && len(cfg.PatentDomains) > 0 {
		tool := &Tool{
			Backends: []Backend{&PatentsViewBackend{Client: client, APIKey: cfg.PatentsViewAPIKey}},
			Config:   cfg,
			Logger:   logger,
		}
		err := reg.Register(PatentTool, tool, cfg.PatentDomains,
			tools.WithDescription("Search US patents granted by the USPTO. The author field matches inventor surnames."),
			tools.WithSchema(toolSchema),
			tools.WithCompactor(Compact))
		if err != nil {
			return err
		}
	}
	return nil
}
