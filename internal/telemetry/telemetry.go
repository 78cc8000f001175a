// Package telemetry aggregates per-call token usage and derives cost estimates.
package telemetry

import "github.com/ziadkadry99/qnagen/internal/llm"

// Totals is the summed token usage of a set of call records.
type Totals struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Sum adds up the token counts of records. Negative counts are treated as zero.
func Sum(records []llm.CallRecord) Totals {
	var t Totals
	for _, r := range records {
		t.PromptTokens += max(r.PromptTokens, 0)
		t.CompletionTokens += max(r.CompletionTokens, 0)
		t.TotalTokens += max(r.TotalTokens, 0)
	}
	return t
}

// Ledger accumulates the usage of one pipeline run. It is a value: Add and
// Merge return a new Ledger and never touch the receiver's backing array.
type Ledger struct {
	Calls       []llm.CallRecord
	SearchCalls int
}

// Add returns a ledger with rec appended.
func (l Ledger) Add(rec llm.CallRecord) Ledger {
	calls := make([]llm.CallRecord, 0, len(l.Calls)+1)
	calls = append(calls, l.Calls...)
	l.Calls = append(calls, rec)
	return l
}

// AddSearchCalls returns a ledger with n more fixed-price search calls.
func (l Ledger) AddSearchCalls(n int) Ledger {
	if n > 0 {
		l.SearchCalls += n
	}
	return l
}

// Merge returns the union of l and other.
func (l Ledger) Merge(other Ledger) Ledger {
	calls := make([]llm.CallRecord, 0, len(l.Calls)+len(other.Calls))
	calls = append(calls, l.Calls...)
	l.Calls = append(calls, other.Calls...)
	l.SearchCalls += other.SearchCalls
	return l
}

// Totals sums the ledger's call records.
func (l Ledger) Totals() Totals {
	return Sum(l.Calls)
}

// Summary is the usage block returned with a pipeline result.
type Summary struct {
	Totals
	Calls        []llm.CallRecord `json:"calls"`
	CostEstimate CostEstimate     `json:"cost_estimate"`
}

// Summarize derives the full usage summary of a ledger.
func Summarize(l Ledger, pricing Pricing) Summary {
	calls := l.Calls
	if calls == nil {
		calls = []llm.CallRecord{}
	}
	return Summary{
		Totals:       l.Totals(),
		Calls:        calls,
		CostEstimate: EstimateCost(l.Calls, l.SearchCalls, pricing),
	}
}
