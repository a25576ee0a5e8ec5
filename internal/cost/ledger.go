// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cost accumulates token usage and tool calls for one
// investigation and derives its USD cost.
package cost

import (
	"math"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pdiddy/investigator/pkg/types"
)

var (
	tokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "investigator",
		Name:      "tokens_total",
		Help:      "Tokens consumed by model and kind (input, output, cache_read, cache_write)",
	}, []string{"model", "kind"})

	costTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "investigator",
		Name:      "cost_usd_total",
		Help:      "Estimated spend in USD by model",
	}, []string{"model"})
)

// Cache pricing relative to the input price when not configured.
const (
	cacheReadFactor  = 0.1
	cacheWriteFactor = 1.25
)

// DefaultPricing is USD per million tokens keyed by model family. A model
// matches the first family name it contains.
var DefaultPricing = map[string]types.ModelPrice{
	"opus":   {Input: 15, Output: 75},
	"sonnet": {Input: 3, Output: 15},
	"haiku":  {Input: 1, Output: 5},
}

// familyOrder fixes match precedence for family lookup.
var familyOrder = []string{"opus", "sonnet", "haiku"}

// Ledger is a thread-safe running total of usage. The zero value is not
// usable; call NewLedger.
type Ledger struct {
	mu        sync.Mutex
	pricing   map[string]types.ModelPrice
	byModel   map[string]*types.ModelUsage
	order     []string
	toolCalls int
}

// NewLedger returns an empty ledger. Entries in pricing override
// DefaultPricing; keys are model names or family names.
func NewLedger(pricing map[string]types.ModelPrice) *Ledger {
	merged := make(map[string]types.ModelPrice, len(DefaultPricing)+len(pricing))
	for k, v := range DefaultPricing {
		merged[k] = v
	}
	for k, v := range pricing {
		merged[strings.ToLower(k)] = v
	}
	return &Ledger{pricing: merged, byModel: make(map[string]*types.ModelUsage)}
}

// PriceFor returns the price of model and whether one was found. An exact
// model entry wins over a family match.
func (l *Ledger) PriceFor(model string) (types.ModelPrice, bool) {
	m := strings.ToLower(model)
	if p, ok := l.pricing[m]; ok {
		return withCacheDefaults(p), true
	}
	for _, fam := range familyOrder {
		if strings.Contains(m, fam) {
			if p, ok := l.pricing[fam]; ok {
				return withCacheDefaults(p), true
			}
		}
	}
	return types.ModelPrice{}, false
}

func withCacheDefaults(p types.ModelPrice) types.ModelPrice {
	if p.CacheRead == 0 {
		p.CacheRead = p.Input * cacheReadFactor
	}
	if p.CacheWrite == 0 {
		p.CacheWrite = p.Input * cacheWriteFactor
	}
	return p
}

// AddUsage records one model call. Unpriced models accrue tokens at zero
// cost.
func (l *Ledger) AddUsage(inputTokens, outputTokens int, model string, cacheRead, cacheWrite int) {
	price, _ := l.PriceFor(model)
	usd := (float64(inputTokens)*price.Input +
		float64(outputTokens)*price.Output +
		float64(cacheRead)*price.CacheRead +
		float64(cacheWrite)*price.CacheWrite) / 1e6

	l.mu.Lock()
	u, ok := l.byModel[model]
	if !ok {
		u = &types.ModelUsage{}
		l.byModel[model] = u
		l.order = append(l.order, model)
	}
	u.InputTokens += int64(inputTokens)
	u.OutputTokens += int64(outputTokens)
	u.CacheReadTokens += int64(cacheRead)
	u.CacheWriteTokens += int64(cacheWrite)
	u.Calls++
	u.CostUSD += usd
	l.mu.Unlock()

	tokensTotal.WithLabelValues(model, "input").Add(float64(inputTokens))
	tokensTotal.WithLabelValues(model, "output").Add(float64(outputTokens))
	tokensTotal.WithLabelValues(model, "cache_read").Add(float64(cacheRead))
	tokensTotal.WithLabelValues(model, "cache_write").Add(float64(cacheWrite))
	costTotal.WithLabelValues(model).Add(usd)
}

// AddToolCall counts one tool dispatch.
func (l *Ledger) AddToolCall() {
	l.mu.Lock()
	l.toolCalls++
	l.mu.Unlock()
}

// Snapshot returns an immutable copy of the totals. TotalCostUSD is rounded
// to six decimals.
func (l *Ledger) Snapshot() types.CostSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := types.CostSnapshot{ToolCalls: l.toolCalls}
	if len(l.byModel) > 0 {
		s.ByModel = make(map[string]types.ModelUsage, len(l.byModel))
	}
	var usd float64
	for _, model := range l.order {
		u := *l.byModel[model]
		s.ByModel[model] = u
		s.InputTokens += u.InputTokens
		s.OutputTokens += u.OutputTokens
		s.CacheReadTokens += u.CacheReadTokens
		s.CacheWriteTokens += u.CacheWriteTokens
		usd += u.CostUSD
	}
	s.TotalTokens = s.InputTokens + s.OutputTokens + s.CacheReadTokens + s.CacheWriteTokens
	s.TotalCostUSD = math.Round(usd*1e6) / 1e6
	return s
}
