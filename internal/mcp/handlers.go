package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/qnagen/internal/pipeline"
	"github.com/ziadkadry99/qnagen/internal/usagelog"
)

// handleGenerateContent runs the pipeline for the tool arguments and returns
// the result as indented JSON.
func (s *Server) handleGenerateContent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("product_name")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: product_name"), nil
	}

	req := requestFrom(request, name)
	result, err := s.runner.Run(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(pipeline.UserMessage(err)), nil
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// requestFrom maps flat tool arguments onto a pipeline request. Defaults and
// validation are left to the orchestrator.
func requestFrom(request mcp.CallToolRequest, name string) pipeline.Request {
	req := pipeline.Request{
		Product: pipeline.Product{
			Name:     name,
			Category: request.GetString("product_category", ""),
			Features: request.GetString("product_features", ""),
		},
		Persona:      request.GetString("persona", ""),
		WorryPoint:   request.GetString("worry_point", ""),
		SellingPoint: request.GetString("selling_point", ""),
		Tones: pipeline.Tones{
			Feeling:       pipeline.FeelingTone(request.GetString("feeling", "")),
			Answer:        pipeline.AnswerTone(request.GetString("answer_tone", "")),
			CustomerStyle: pipeline.CustomerStyle(request.GetString("customer_style", "")),
		},
		AnswerLength:       pipeline.AnswerLength(request.GetString("answer_length", "")),
		ConversationMode:   request.GetBool("conversation_mode", false),
		ConversationLength: request.GetInt("conversation_length", 0),
		Step:               pipeline.Step(request.GetString("step", "")),
	}

	title := request.GetString("question_title", "")
	content := request.GetString("question_content", "")
	if title != "" || content != "" {
		req.Question = &pipeline.Question{Title: title, Content: content}
	}
	if answer := request.GetString("answer_content", ""); answer != "" {
		req.Answer = &pipeline.Answer{Content: answer}
	}
	return req
}

// handleUsageSummary returns the aggregated usage log as a text table.
func (s *Server) handleUsageSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := usagelog.QueryFilter{Step: request.GetString("step", "")}
	if v := request.GetString("since", ""); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid since %q: expected RFC 3339", v)), nil
		}
		filter.Since = &t
	}

	summary, err := s.usage.Summarize(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("summarizing usage: %v", err)), nil
	}
	if summary.Total.Runs == 0 {
		return mcp.NewToolResultText("No runs recorded yet."), nil
	}
	return mcp.NewToolResultText(usagelog.FormatSummary(summary)), nil
}
