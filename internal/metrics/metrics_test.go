package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesCollectors(t *testing.T) {
	PipelineRunTotal.WithLabelValues("all", "ok").Inc()
	LLMCallTotal.WithLabelValues("google", "lite", "quota").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`qnagen_pipeline_run_total{status="ok",step="all"}`,
		`qnagen_llm_call_total{provider="google",status="quota",tier="lite"}`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}
