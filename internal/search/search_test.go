package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNaverClientSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Naver-Client-Id") != "id" || r.Header.Get("X-Naver-Client-Secret") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"errorMessage":"Authentication failed","errorCode":"024"}`))
			return
		}
		if got := r.URL.Query().Get("query"); got != "수분 크림 건조함" {
			t.Errorf("query = %q", got)
		}
		if got := r.URL.Query().Get("display"); got != "3" {
			t.Errorf("display = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"total":2,"display":2,"items":[
			{"title":"<b>수분 크림</b> 후기","link":"https://blog.example/1","description":"건조한 피부에 &quot;딱&quot;"},
			{"title":"겨울철 보습","link":"https://blog.example/2","description":"크림 추천"}]}`))
	}))
	defer server.Close()

	c := NewNaverClient("id", "secret").WithBaseURL(server.URL)
	res, err := c.Search(context.Background(), "수분 크림 건조함", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !res.Success || len(res.Items) != 2 {
		t.Fatalf("result = %+v", res)
	}

	bad := NewNaverClient("id", "wrong").WithBaseURL(server.URL)
	if _, err := bad.Search(context.Background(), "x", 3); err == nil || !strings.Contains(err.Error(), "Authentication failed") {
		t.Errorf("expected auth error, got %v", err)
	}
}

func TestNewNaverClientFromEnv(t *testing.T) {
	t.Setenv("NAVER_CLIENT_ID", "")
	t.Setenv("NAVER_CLIENT_SECRET", "")
	if _, err := NewNaverClientFromEnv(); err == nil {
		t.Error("expected error without credentials")
	}
	t.Setenv("NAVER_CLIENT_ID", "id")
	t.Setenv("NAVER_CLIENT_SECRET", "secret")
	if _, err := NewNaverClientFromEnv(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestQueries(t *testing.T) {
	got := Queries("수분 크림", "건조함", " ", "건조함", "흡수력")
	want := []string{"수분 크림 건조함", "수분 크림 흡수력"}
	if len(got) != len(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("query %d = %q, want %q", i, got[i], want[i])
		}
	}
	if only := Queries("크림"); len(only) != 1 || only[0] != "크림" {
		t.Errorf("no topics = %q", only)
	}
}

type fakeProvider struct {
	calls []string
	times []time.Time
	fail  map[string]bool
}

func (f *fakeProvider) Search(ctx context.Context, query string, maxResults int) (*Result, error) {
	f.calls = append(f.calls, query)
	f.times = append(f.times, time.Now())
	if f.fail[query] {
		return nil, errors.New("upstream 500")
	}
	return &Result{Success: true, Items: []Item{{Title: "<b>" + query + "</b>", Description: "좋아요 &amp; 추천"}}}, nil
}

func TestAugmenterBuildContext(t *testing.T) {
	p := &fakeProvider{fail: map[string]bool{"크림 가격": true}}
	a := NewAugmenter(p, 5, 20*time.Millisecond)

	text, calls := a.BuildContext(context.Background(), "크림", "보습", "가격", "향")
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if !strings.Contains(text, "[크림 보습]") || !strings.Contains(text, "- 크림 향: 좋아요 & 추천") {
		t.Errorf("context text:\n%s", text)
	}
	if strings.Contains(text, "크림 가격") {
		t.Error("failed query should not appear in the context")
	}
	for i := 1; i < len(p.times); i++ {
		if gap := p.times[i].Sub(p.times[i-1]); gap < 15*time.Millisecond {
			t.Errorf("calls %d and %d only %v apart", i-1, i, gap)
		}
	}
}

func TestAugmenterCancelled(t *testing.T) {
	p := &fakeProvider{}
	a := NewAugmenter(p, 5, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	text, calls := a.BuildContext(ctx, "크림", "보습", "가격")
	if text != "" || calls != 0 {
		t.Errorf("got %q / %d calls after cancel", text, calls)
	}
}

func TestAugmenterCallsDoNotShareLimiter(t *testing.T) {
	p := &fakeProvider{}
	a := NewAugmenter(p, 5, time.Hour)

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.BuildContext(context.Background(), "크림", "보습")
		a.BuildContext(context.Background(), "토너", "진정")
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second run waited on the first run's pacing")
	}
	if len(p.calls) != 2 {
		t.Errorf("calls = %v, want one per run", p.calls)
	}
}

func TestStripTags(t *testing.T) {
	if got := StripTags(" <b>수분</b> &lt;크림&gt; "); got != "수분 <크림>" {
		t.Errorf("got %q", got)
	}
}
