package usagelog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/qnagen/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func cost(v float64) *float64 { return &v }

func TestWriteAndGetByRunID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	entry := Entry{
		RunID:            "run-1",
		Step:             "all",
		State:            "complete",
		Status:           "ok",
		Provider:         "google",
		Product:          "수분 크림",
		Calls:            10,
		Fallbacks:        1,
		SearchCalls:      2,
		PromptTokens:     1200,
		CompletionTokens: 800,
		TotalTokens:      2000,
		Cost:             cost(0.0123),
		DurationMS:       4200,
	}
	if err := store.Write(ctx, entry); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := store.GetByRunID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByRunID: %v", err)
	}
	if got.ID == "" {
		t.Error("expected generated ID")
	}
	if got.Product != "수분 크림" || got.Calls != 10 || got.Fallbacks != 1 || got.SearchCalls != 2 {
		t.Errorf("entry = %+v", got)
	}
	if got.Cost == nil || *got.Cost != 0.0123 {
		t.Errorf("Cost = %v, want 0.0123", got.Cost)
	}
	if got.Currency != "USD" {
		t.Errorf("Currency = %q, want USD default", got.Currency)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not restored")
	}
}

func TestWriteNilCostAndError(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.Write(ctx, Entry{RunID: "run-2", Step: "answer", Status: "error", Error: "answer stage: quota"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := store.GetByRunID(ctx, "run-2")
	if err != nil {
		t.Fatalf("GetByRunID: %v", err)
	}
	if got.Cost != nil {
		t.Errorf("Cost = %v, want nil", *got.Cost)
	}
	if got.Error != "answer stage: quota" {
		t.Errorf("Error = %q", got.Error)
	}
}

func TestQueryFilters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	now := time.Now()
	seed := []Entry{
		{RunID: "a", Step: "all", Status: "ok", CreatedAt: now.Add(-48 * time.Hour)},
		{RunID: "b", Step: "all", Status: "error", CreatedAt: now.Add(-time.Hour)},
		{RunID: "c", Step: "question", Status: "ok", CreatedAt: now},
	}
	for _, e := range seed {
		if err := store.Write(ctx, e); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	all, err := store.Query(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(all) != 3 || all[0].RunID != "c" {
		t.Errorf("expected 3 entries newest first, got %d (first %q)", len(all), all[0].RunID)
	}

	steps, _ := store.Query(ctx, QueryFilter{Step: "all"})
	if len(steps) != 2 {
		t.Errorf("step filter: got %d, want 2", len(steps))
	}
	failed, _ := store.Query(ctx, QueryFilter{Status: "error"})
	if len(failed) != 1 || failed[0].RunID != "b" {
		t.Errorf("status filter: got %+v", failed)
	}
	since := now.Add(-2 * time.Hour)
	recent, _ := store.Query(ctx, QueryFilter{Since: &since})
	if len(recent) != 2 {
		t.Errorf("since filter: got %d, want 2", len(recent))
	}
	page, _ := store.Query(ctx, QueryFilter{Limit: 1, Offset: 1})
	if len(page) != 1 || page[0].RunID != "b" {
		t.Errorf("pagination: got %+v", page)
	}
}

func TestSummarize(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	seed := []Entry{
		{RunID: "1", Step: "all", Status: "ok", Calls: 10, TotalTokens: 100, PromptTokens: 60, CompletionTokens: 40, Cost: cost(0.5)},
		{RunID: "2", Step: "all", Status: "error", Calls: 3, TotalTokens: 30, Cost: nil},
		{RunID: "3", Step: "question", Status: "ok", Calls: 1, TotalTokens: 10, Cost: cost(0.25), SearchCalls: 2},
	}
	for _, e := range seed {
		if err := store.Write(ctx, e); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	sum, err := store.Summarize(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.Total.Runs != 3 || sum.Total.Failed != 1 || sum.Total.Calls != 14 || sum.Total.TotalTokens != 140 {
		t.Errorf("total = %+v", sum.Total)
	}
	if sum.Total.Cost != 0.75 || sum.Total.UnpricedRuns != 1 {
		t.Errorf("cost = %v unpriced = %d", sum.Total.Cost, sum.Total.UnpricedRuns)
	}
	if len(sum.Steps) != 2 {
		t.Fatalf("steps = %+v", sum.Steps)
	}
	for _, s := range sum.Steps {
		if s.Step == "all" && s.Runs != 2 {
			t.Errorf("all runs = %d, want 2", s.Runs)
		}
		if s.Step == "question" && s.SearchCalls != 2 {
			t.Errorf("question search calls = %d, want 2", s.SearchCalls)
		}
	}
}

func TestDeleteBefore(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	store.Write(ctx, Entry{RunID: "old", Step: "all", Status: "ok", CreatedAt: time.Now().Add(-72 * time.Hour)})
	store.Write(ctx, Entry{RunID: "new", Step: "all", Status: "ok"})

	n, err := store.DeleteBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d, want 1", n)
	}
}

// fakeRecorder records writes and can be told to fail or block.
type fakeRecorder struct {
	mu      sync.Mutex
	entries []Entry
	err     error
	block   chan struct{}
}

func (f *fakeRecorder) Write(ctx context.Context, e Entry) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func TestWriterDrainsOnClose(t *testing.T) {
	rec := &fakeRecorder{}
	w := NewWriter(rec, 8, time.Second)

	for i := 0; i < 5; i++ {
		if !w.Submit(Entry{RunID: "r", Step: "all", Status: "ok"}) {
			t.Fatalf("Submit %d rejected", i)
		}
	}
	w.Close()

	if rec.count() != 5 {
		t.Errorf("wrote %d entries, want 5", rec.count())
	}
	if rec.entries[0].ID == "" || rec.entries[0].CreatedAt.IsZero() {
		t.Error("expected ID and CreatedAt to be filled in")
	}
	if err := w.Enqueue(Entry{}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Enqueue after Close = %v, want ErrQueueClosed", err)
	}
	w.Close() // second Close is a no-op
}

func TestWriterDropsWhenFull(t *testing.T) {
	rec := &fakeRecorder{block: make(chan struct{})}
	w := NewWriter(rec, 1, time.Second)

	// The worker takes the first entry and blocks; the second fills the queue.
	w.Submit(Entry{RunID: "1"})
	deadline := time.Now().Add(time.Second)
	for len(w.ch) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !w.Submit(Entry{RunID: "2"}) {
		t.Fatal("second entry should fit in the queue")
	}
	if err := w.Enqueue(Entry{RunID: "3"}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Enqueue = %v, want ErrQueueFull", err)
	}
	if w.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", w.Dropped())
	}

	close(rec.block)
	w.Close()
	if rec.count() != 2 {
		t.Errorf("wrote %d entries, want 2", rec.count())
	}
}

func TestWriterPublishesErrors(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("disk full")}
	w := NewWriter(rec, 4, time.Second)

	w.Submit(Entry{RunID: "r"})
	select {
	case err := <-w.Errors():
		if err == nil || err.Error() != "disk full" {
			t.Errorf("error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no error published")
	}
	w.Close()

	if _, ok := <-w.Errors(); ok {
		t.Error("Errors channel should be closed after Close")
	}
}

func TestWriterWithStore(t *testing.T) {
	store := setupStore(t)
	w := NewWriter(store, 4, time.Second)
	w.Submit(Entry{RunID: "persisted", Step: "all", Status: "ok", Cost: cost(1)})
	w.Close()

	if _, err := store.GetByRunID(context.Background(), "persisted"); err != nil {
		t.Errorf("entry not persisted: %v", err)
	}
}

func TestRoutes(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	store.Write(ctx, Entry{RunID: "r1", Step: "all", Status: "ok", TotalTokens: 50, Cost: cost(0.1)})
	store.Write(ctx, Entry{RunID: "r2", Step: "question", Status: "ok", TotalTokens: 5})

	router := chi.NewRouter()
	RegisterRoutes(router, store)

	req := httptest.NewRequest(http.MethodGet, "/api/usage/?step=all", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var entries []Entry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].RunID != "r1" {
		t.Errorf("entries = %+v", entries)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/usage/summary", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var sum Summary
	if err := json.NewDecoder(rec.Body).Decode(&sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if sum.Total.Runs != 2 || sum.Total.TotalTokens != 55 {
		t.Errorf("summary = %+v", sum.Total)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/usage/runs/missing", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing run status = %d, want 404", rec.Code)
	}
}

func TestSummaryConvertAndFormat(t *testing.T) {
	sum := Summary{
		Currency: "USD",
		Steps:    []StepSummary{{Step: "all", Runs: 2, Calls: 10, TotalTokens: 500, Cost: 0.5}},
		Total:    StepSummary{Step: "total", Runs: 2, Calls: 10, TotalTokens: 500, Cost: 0.5, UnpricedRuns: 1},
	}

	krw, err := sum.Convert("krw", 1400)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if krw.Currency != "KRW" || krw.Steps[0].Cost != 700 || krw.Total.Cost != 700 {
		t.Errorf("converted = %+v", krw)
	}
	if sum.Steps[0].Cost != 0.5 {
		t.Error("Convert must not modify the receiver")
	}
	if _, err := sum.Convert("KRW", 0); err == nil {
		t.Error("expected error for zero rate")
	}

	text := FormatSummary(&krw)
	for _, want := range []string{"COST (KRW)", "all", "total", "700.0000", "+1 unpriced"} {
		if !strings.Contains(text, want) {
			t.Errorf("formatted summary missing %q:\n%s", want, text)
		}
	}
}
