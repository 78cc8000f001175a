package usagelog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/qnagen/internal/db"
)

// Store reads and writes usage entries.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Write inserts an entry. Empty ID and CreatedAt are filled in.
func (s *Store) Write(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.Currency == "" {
		e.Currency = "USD"
	}

	var cost sql.NullFloat64
	if e.Cost != nil {
		cost = sql.NullFloat64{Float64: *e.Cost, Valid: true}
	}
	var errText sql.NullString
	if e.Error != "" {
		errText = sql.NullString{String: e.Error, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_logs (
			id, created_at, run_id, step, state, status, provider, product,
			calls, fallbacks, search_calls,
			prompt_tokens, completion_tokens, total_tokens,
			cost, currency, duration_ms, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.CreatedAt.UTC().Format(time.DateTime),
		e.RunID,
		e.Step,
		e.State,
		e.Status,
		e.Provider,
		e.Product,
		e.Calls,
		e.Fallbacks,
		e.SearchCalls,
		e.PromptTokens,
		e.CompletionTokens,
		e.TotalTokens,
		cost,
		e.Currency,
		e.DurationMS,
		errText,
	)
	if err != nil {
		return fmt.Errorf("inserting usage entry: %w", err)
	}
	return nil
}

const selectColumns = `id, created_at, run_id, step, state, status, provider, product,
	calls, fallbacks, search_calls, prompt_tokens, completion_tokens, total_tokens,
	cost, currency, duration_ms, error`

// GetByRunID returns the entry of a run.
func (s *Store) GetByRunID(ctx context.Context, runID string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM usage_logs WHERE run_id = ? ORDER BY created_at DESC LIMIT 1", runID)
	return scanInto(row)
}

func (f QueryFilter) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.RunID != "" {
		clauses = append(clauses, "run_id = ?")
		args = append(args, f.RunID)
	}
	if f.Step != "" {
		clauses = append(clauses, "step = ?")
		args = append(args, f.Step)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, f.Status)
	}
	if f.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.Since.UTC().Format(time.DateTime))
	}
	if f.Until != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, f.Until.UTC().Format(time.DateTime))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Query returns entries matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	where, args := filter.where()
	query := "SELECT " + selectColumns + " FROM usage_logs" + where + " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying usage entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanInto(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Summarize aggregates matching entries per step. Costs are summed as
// stored; entries in another currency than the first one seen are skipped
// from the cost sum and counted as unpriced.
func (s *Store) Summarize(ctx context.Context, filter QueryFilter) (*Summary, error) {
	filter.Limit, filter.Offset = 0, 0
	entries, err := s.Query(ctx, filter)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Currency: "USD", Steps: []StepSummary{}, Total: StepSummary{Step: "total"}}
	if len(entries) > 0 {
		sum.Currency = entries[0].Currency
	}

	index := map[string]int{}
	for _, e := range entries {
		i, ok := index[e.Step]
		if !ok {
			i = len(sum.Steps)
			index[e.Step] = i
			sum.Steps = append(sum.Steps, StepSummary{Step: e.Step})
		}
		priced := e.Cost != nil && e.Currency == sum.Currency
		sum.Steps[i].add(e, priced)
		sum.Total.add(e, priced)
	}
	return sum, nil
}

func (s *StepSummary) add(e Entry, priced bool) {
	s.Runs++
	if e.Status != "ok" {
		s.Failed++
	}
	s.Calls += e.Calls
	s.Fallbacks += e.Fallbacks
	s.SearchCalls += e.SearchCalls
	s.PromptTokens += e.PromptTokens
	s.CompletionTokens += e.CompletionTokens
	s.TotalTokens += e.TotalTokens
	if priced {
		s.Cost += *e.Cost
	} else {
		s.UnpricedRuns++
	}
}

// DeleteBefore removes entries older than the given time and returns how
// many were deleted.
func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM usage_logs WHERE created_at < ?",
		before.UTC().Format(time.DateTime),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting old usage entries: %w", err)
	}
	return res.RowsAffected()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*Entry, error) {
	var (
		e       Entry
		ts      string
		cost    sql.NullFloat64
		errText sql.NullString
	)
	err := sc.Scan(
		&e.ID, &ts, &e.RunID, &e.Step, &e.State, &e.Status, &e.Provider, &e.Product,
		&e.Calls, &e.Fallbacks, &e.SearchCalls,
		&e.PromptTokens, &e.CompletionTokens, &e.TotalTokens,
		&cost, &e.Currency, &e.DurationMS, &errText,
	)
	if err != nil {
		return nil, err
	}

	if t, parseErr := time.Parse(time.DateTime, ts); parseErr == nil {
		e.CreatedAt = t
	} else if t, parseErr := time.Parse(time.RFC3339, ts); parseErr == nil {
		e.CreatedAt = t
	}
	if cost.Valid {
		c := cost.Float64
		e.Cost = &c
	}
	if errText.Valid {
		e.Error = errText.String
	}
	return &e, nil
}
