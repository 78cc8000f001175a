package telemetry

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/qnagen/internal/llm"
)

// Rate holds tier pricing per 1M tokens.
type Rate struct {
	PromptPerMillion     float64 `json:"prompt_per_million" yaml:"prompt_per_million" koanf:"prompt_per_million"`
	CompletionPerMillion float64 `json:"completion_per_million" yaml:"completion_per_million" koanf:"completion_per_million"`
}

// Cost returns the price of the given token counts at this rate.
func (r Rate) Cost(promptTokens, completionTokens int) float64 {
	return float64(max(promptTokens, 0))/1_000_000.0*r.PromptPerMillion +
		float64(max(completionTokens, 0))/1_000_000.0*r.CompletionPerMillion
}

// RateTable maps tiers to their pricing. A tier with no entry has an unknown rate.
type RateTable map[llm.Tier]Rate

// DefaultRates are Gemini 2.5 Flash / Pro list prices in USD.
var DefaultRates = RateTable{
	llm.TierLite:    {PromptPerMillion: 0.30, CompletionPerMillion: 2.50},
	llm.TierPremium: {PromptPerMillion: 1.25, CompletionPerMillion: 10.00},
}

// Pricing is the read-only price configuration shared by all runs.
type Pricing struct {
	Currency      string
	Rates         RateTable
	SearchPerCall float64
}

// DefaultPricing returns USD pricing with the built-in rates and free search.
func DefaultPricing() Pricing {
	return Pricing{Currency: "USD", Rates: DefaultRates}
}

// CallCost is the cost line of one call record. Cost is nil when the tier
// has no known rate.
type CallCost struct {
	Tier             llm.Tier `json:"tier"`
	Model            string   `json:"model"`
	Cost             *float64 `json:"cost"`
	PromptTokens     int      `json:"prompt_tokens"`
	CompletionTokens int      `json:"completion_tokens"`
}

// CostEstimate is derived from call records; it is never updated in place.
type CostEstimate struct {
	Currency    string     `json:"currency"`
	TotalCost   *float64   `json:"total_cost"`
	PerCall     []CallCost `json:"per_call"`
	SearchCalls int        `json:"search_calls"`
	SearchCost  float64    `json:"search_cost"`
}

// EstimateCost prices every record with the tier table and adds the fixed
// per-call price of searchCalls. TotalCost stays nil only when nothing had
// a known price.
func EstimateCost(records []llm.CallRecord, searchCalls int, pricing Pricing) CostEstimate {
	est := CostEstimate{
		Currency: pricing.Currency,
		PerCall:  make([]CallCost, 0, len(records)),
	}
	if est.Currency == "" {
		est.Currency = "USD"
	}

	var total float64
	known := false
	for _, r := range records {
		line := CallCost{
			Tier:             r.Tier,
			Model:            r.Model,
			PromptTokens:     r.PromptTokens,
			CompletionTokens: r.CompletionTokens,
		}
		if rate, ok := pricing.Rates[r.Tier]; ok {
			c := rate.Cost(r.PromptTokens, r.CompletionTokens)
			line.Cost = &c
			total += c
			known = true
		}
		est.PerCall = append(est.PerCall, line)
	}

	if searchCalls > 0 {
		est.SearchCalls = searchCalls
		est.SearchCost = float64(searchCalls) * pricing.SearchPerCall
		total += est.SearchCost
		known = true
	}

	if known {
		est.TotalCost = &total
	}
	return est
}

// Convert returns a copy of est expressed in currency, multiplying every
// amount by rate. The aggregator never converts on its own.
func Convert(est CostEstimate, currency string, rate float64) (CostEstimate, error) {
	if rate <= 0 {
		return CostEstimate{}, fmt.Errorf("conversion rate must be positive, got %v", rate)
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return CostEstimate{}, fmt.Errorf("target currency is required")
	}

	out := CostEstimate{
		Currency:    currency,
		PerCall:     make([]CallCost, len(est.PerCall)),
		SearchCalls: est.SearchCalls,
		SearchCost:  est.SearchCost * rate,
	}
	for i, line := range est.PerCall {
		if line.Cost != nil {
			c := *line.Cost * rate
			line.Cost = &c
		}
		out.PerCall[i] = line
	}
	if est.TotalCost != nil {
		t := *est.TotalCost * rate
		out.TotalCost = &t
	}
	return out, nil
}
