package mcp

import "github.com/mark3labs/mcp-go/mcp"

// generateContentTool defines the generate_content MCP tool.
var generateContentTool = mcp.NewTool("generate_content",
	mcp.WithDescription("Generate a marketing customer question, an advisor answer, and optionally a customer/advisor conversation for a product. Returns the result as JSON."),
	mcp.WithString("product_name",
		mcp.Required(),
		mcp.Description("Product name"),
	),
	mcp.WithString("product_category",
		mcp.Description("Product category"),
	),
	mcp.WithString("product_features",
		mcp.Description("Key product features"),
	),
	mcp.WithString("persona",
		mcp.Description("Customer persona the question is written from"),
	),
	mcp.WithString("worry_point",
		mcp.Description("The customer's concern"),
	),
	mcp.WithString("selling_point",
		mcp.Description("Selling point the answer should emphasize"),
	),
	mcp.WithString("feeling",
		mcp.Description("Emotional tone of the customer"),
		mcp.Enum("warm", "neutral", "excited", "worried"),
	),
	mcp.WithString("answer_tone",
		mcp.Description("Tone of the advisor"),
		mcp.Enum("expert", "friendly", "concise"),
	),
	mcp.WithString("customer_style",
		mcp.Description("Speaking style of the customer in the conversation"),
		mcp.Enum("curious", "skeptical", "casual"),
	),
	mcp.WithString("answer_length",
		mcp.Description("Target answer length"),
		mcp.Enum("short", "medium", "long"),
	),
	mcp.WithString("step",
		mcp.Description("Which stages to run (default all)"),
		mcp.Enum("question", "answer", "conversation", "all"),
	),
	mcp.WithBoolean("conversation_mode",
		mcp.Description("Also generate a conversation after the answer"),
	),
	mcp.WithNumber("conversation_length",
		mcp.Description("Number of regular conversation turns: 6, 8, 10 or 12 (default 6)"),
	),
	mcp.WithString("question_title",
		mcp.Description("Existing question title; skips question generation when given with question_content"),
	),
	mcp.WithString("question_content",
		mcp.Description("Existing question body"),
	),
	mcp.WithString("answer_content",
		mcp.Description("Existing answer; used by the conversation step"),
	),
)

// usageSummaryTool defines the usage_summary MCP tool.
var usageSummaryTool = mcp.NewTool("usage_summary",
	mcp.WithDescription("Summarize recorded generation runs: calls, tokens and estimated cost per step."),
	mcp.WithString("step",
		mcp.Description("Restrict the summary to one step"),
		mcp.Enum("question", "answer", "conversation", "all"),
	),
	mcp.WithString("since",
		mcp.Description("Only include runs at or after this RFC 3339 timestamp"),
	),
)
