package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/qnagen/internal/db"
	"github.com/ziadkadry99/qnagen/internal/llm"
	"github.com/ziadkadry99/qnagen/internal/pipeline"
	"github.com/ziadkadry99/qnagen/internal/usagelog"
)

// mockRunner implements pipeline.Runner for testing.
type mockRunner struct {
	got    pipeline.Request
	result *pipeline.Result
	err    error
}

func (m *mockRunner) Run(_ context.Context, req pipeline.Request) (*pipeline.Result, error) {
	m.got = req
	return m.result, m.err
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("expected content in result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", res.Content[0])
	}
	return tc.Text
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"generate_content", generateContentTool, "generate_content"},
		{"usage_summary", usageSummaryTool, "usage_summary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}

	required := generateContentTool.InputSchema.Required
	if len(required) != 1 || required[0] != "product_name" {
		t.Errorf("generate_content required = %v, want [product_name]", required)
	}
}

func TestNewServer(t *testing.T) {
	runner := &mockRunner{}
	srv := NewServer(runner, nil)

	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
	if srv.runner != runner {
		t.Error("runner not set correctly")
	}
}

func TestHandleGenerateContent(t *testing.T) {
	ctx := context.Background()

	t.Run("maps arguments", func(t *testing.T) {
		runner := &mockRunner{result: &pipeline.Result{
			RunID:  "run-1",
			State:  pipeline.StateAnswer,
			Answer: &pipeline.Answer{Content: "촉촉한 사용감이 특징입니다."},
		}}
		srv := NewServer(runner, nil)

		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"product_name":        "수분 크림",
			"product_category":    "스킨케어",
			"worry_point":         "건조함",
			"feeling":             "worried",
			"step":                "answer",
			"conversation_mode":   true,
			"conversation_length": float64(8),
			"question_title":      "건조한 피부",
			"question_content":    "겨울마다 당겨요",
		}
		res, err := srv.handleGenerateContent(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.IsError {
			t.Fatalf("unexpected tool error: %s", resultText(t, res))
		}

		got := runner.got
		if got.Product.Name != "수분 크림" || got.Product.Category != "스킨케어" {
			t.Errorf("product = %+v", got.Product)
		}
		if got.WorryPoint != "건조함" || got.Tones.Feeling != pipeline.FeelingWorried {
			t.Errorf("request = %+v", got)
		}
		if got.Step != pipeline.StepAnswer || !got.ConversationMode || got.ConversationLength != 8 {
			t.Errorf("step/mode/length = %q/%v/%d", got.Step, got.ConversationMode, got.ConversationLength)
		}
		if got.Question == nil || got.Question.Title != "건조한 피부" {
			t.Errorf("question = %+v", got.Question)
		}
		if got.Answer != nil {
			t.Error("answer should be nil when answer_content is absent")
		}

		var decoded pipeline.Result
		if err := json.Unmarshal([]byte(resultText(t, res)), &decoded); err != nil {
			t.Fatalf("result is not JSON: %v", err)
		}
		if decoded.RunID != "run-1" {
			t.Errorf("run_id = %q", decoded.RunID)
		}
	})

	t.Run("missing product name", func(t *testing.T) {
		srv := NewServer(&mockRunner{}, nil)
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}
		res, err := srv.handleGenerateContent(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.IsError {
			t.Error("expected error result for missing product_name")
		}
	})

	t.Run("quota error hides provider text", func(t *testing.T) {
		runner := &mockRunner{err: &llm.QuotaError{Tier: llm.TierPremium, Err: errors.New("RESOURCE_EXHAUSTED secret")}}
		srv := NewServer(runner, nil)
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"product_name": "크림"}
		res, err := srv.handleGenerateContent(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.IsError {
			t.Fatal("expected error result")
		}
		text := resultText(t, res)
		if strings.Contains(text, "RESOURCE_EXHAUSTED") || !strings.Contains(text, "try again later") {
			t.Errorf("message = %q", text)
		}
	})

	t.Run("validation error names field", func(t *testing.T) {
		runner := &mockRunner{err: &pipeline.ValidationError{Field: "conversation_length", Message: "must be one of 6, 8, 10, 12"}}
		srv := NewServer(runner, nil)
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"product_name": "크림"}
		res, _ := srv.handleGenerateContent(ctx, req)
		if !strings.Contains(resultText(t, res), "conversation_length") {
			t.Errorf("message = %q", resultText(t, res))
		}
	})
}

func TestHandleUsageSummary(t *testing.T) {
	ctx := context.Background()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer database.Close()
	store := usagelog.NewStore(database)
	srv := NewServer(&mockRunner{}, store)

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{}
	res, err := srv.handleUsageSummary(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(resultText(t, res), "No runs") {
		t.Errorf("empty log text = %q", resultText(t, res))
	}

	c := 0.02
	if err := store.Write(ctx, usagelog.Entry{RunID: "r1", Step: "all", State: "complete", Status: "ok", Calls: 10, TotalTokens: 900, Cost: &c}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	res, _ = srv.handleUsageSummary(ctx, req)
	text := resultText(t, res)
	if !strings.Contains(text, "all") || !strings.Contains(text, "900") {
		t.Errorf("summary text = %q", text)
	}

	req.Params.Arguments = map[string]any{"since": "yesterday"}
	res, _ = srv.handleUsageSummary(ctx, req)
	if !res.IsError {
		t.Error("expected error for invalid since")
	}
}
