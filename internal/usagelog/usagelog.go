// Package usagelog persists one usage entry per pipeline run.
package usagelog

import "time"

// Entry is the usage record of one pipeline run.
type Entry struct {
	ID               string    `json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	RunID            string    `json:"run_id"`
	Step             string    `json:"step"`
	State            string    `json:"state"`
	Status           string    `json:"status"`
	Provider         string    `json:"provider"`
	Product          string    `json:"product"`
	Calls            int       `json:"calls"`
	Fallbacks        int       `json:"fallbacks"`
	SearchCalls      int       `json:"search_calls"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	// Cost is nil when no call of the run had a known rate.
	Cost       *float64 `json:"cost"`
	Currency   string   `json:"currency"`
	DurationMS int64    `json:"duration_ms"`
	Error      string   `json:"error,omitempty"`
}

// QueryFilter controls which entries are returned by Query.
type QueryFilter struct {
	RunID  string
	Step   string
	Status string
	Since  *time.Time
	Until  *time.Time
	Limit  int
	Offset int
}

// StepSummary aggregates the entries of one requested step.
type StepSummary struct {
	Step             string  `json:"step"`
	Runs             int     `json:"runs"`
	Failed           int     `json:"failed"`
	Calls            int     `json:"calls"`
	Fallbacks        int     `json:"fallbacks"`
	SearchCalls      int     `json:"search_calls"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	Cost             float64 `json:"cost"`
	// UnpricedRuns counts runs whose cost was unknown.
	UnpricedRuns int `json:"unpriced_runs"`
}

// Summary is the usage log aggregated per step.
type Summary struct {
	Currency string        `json:"currency"`
	Steps    []StepSummary `json:"steps"`
	Total    StepSummary   `json:"total"`
}
