package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mandymgr/KRINS-Chronicle-Keeper-sub001/internal/impact"
)

// NewMCPServer creates an MCP server exposing the impact tracker as tools,
// plus the analytics snapshot as a readable resource.
func NewMCPServer(tr *impact.Tracker) *server.MCPServer {
	s := server.NewMCPServer(
		"adrpulse",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("adrpulse — records observed impacts of architecture decisions and scores how well each decision worked out."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("record_impact",
			mcp.WithDescription("Record one observed impact of an architecture decision."),
			mcp.WithString("decision_id", mcp.Description("Decision the impact belongs to"), mcp.Required()),
			mcp.WithString("category", mcp.Description("One of performance, security, maintainability, scalability, cost, developer_experience"), mcp.Required()),
			mcp.WithString("polarity", mcp.Description("positive, negative or neutral"), mcp.Required()),
			mcp.WithString("severity", mcp.Description("low, medium, high or critical"), mcp.Required()),
			mcp.WithString("description", mcp.Description("Free-text description of what was observed")),
			mcp.WithString("source", mcp.Description("Where the observation came from")),
			mcp.WithString("evidence", mcp.Description("Pointer to supporting evidence")),
			mcp.WithNumber("measured_value", mcp.Description("Optional measured value")),
			mcp.WithNumber("expected_value", mcp.Description("Optional expected value")),
			mcp.WithString("unit", mcp.Description("Unit for the measured and expected values")),
		),
		mcpRecordImpact(tr),
	)

	s.AddTool(
		mcp.NewTool("evaluate_decision",
			mcp.WithDescription("Compute and store an effectiveness evaluation for a decision from its recorded impacts."),
			mcp.WithString("decision_id", mcp.Description("Decision to evaluate"), mcp.Required()),
			mcp.WithString("title", mcp.Description("Human-readable decision title")),
			mcp.WithString("implementation_date", mcp.Description("RFC 3339 date the decision went live"), mcp.Required()),
			mcp.WithNumber("period_months", mcp.Description("Nominal evaluation period in months (default 6)")),
		),
		mcpEvaluateDecision(tr),
	)

	s.AddTool(
		mcp.NewTool("decision_timeline",
			mcp.WithDescription("Chronological impact timeline for a decision with a rolling trend label per entry."),
			mcp.WithString("decision_id", mcp.Description("Decision to build the timeline for"), mcp.Required()),
		),
		mcpDecisionTimeline(tr),
	)

	s.AddTool(
		mcp.NewTool("predict_effectiveness",
			mcp.WithDescription("Project a decision's future effectiveness from its recent impact history."),
			mcp.WithString("decision_id", mcp.Description("Decision to project"), mcp.Required()),
		),
		mcpPredictEffectiveness(tr),
	)

	s.AddTool(
		mcp.NewTool("decision_analytics",
			mcp.WithDescription("Aggregate analytics across all tracked decisions, optionally bounded to a timeframe."),
			mcp.WithString("start", mcp.Description("Optional RFC 3339 lower bound")),
			mcp.WithString("end", mcp.Description("Optional RFC 3339 upper bound")),
		),
		mcpDecisionAnalytics(tr),
	)

	s.AddResource(
		mcp.NewResource(
			"adr://analytics",
			"Decision Analytics",
			mcp.WithResourceDescription("Current cross-decision analytics snapshot as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceAnalytics(tr),
	)

	return s
}

func mcpRecordImpact(tr *impact.Tracker) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		decisionID, err := req.RequireString("decision_id")
		if err != nil {
			return mcpError("decision_id is required"), nil
		}
		category, err := req.RequireString("category")
		if err != nil {
			return mcpError("category is required"), nil
		}
		polarity, err := req.RequireString("polarity")
		if err != nil {
			return mcpError("polarity is required"), nil
		}
		severity, err := req.RequireString("severity")
		if err != nil {
			return mcpError("severity is required"), nil
		}

		n := impact.NewImpact{
			DecisionID:  decisionID,
			Category:    impact.Category(category),
			Polarity:    impact.Polarity(polarity),
			Severity:    impact.Severity(severity),
			Description: req.GetString("description", ""),
			Source:      req.GetString("source", ""),
			Evidence:    req.GetString("evidence", ""),
			Unit:        req.GetString("unit", ""),
		}
		args := req.GetArguments()
		if v, ok := args["measured_value"].(float64); ok {
			n.MeasuredValue = &v
		}
		if v, ok := args["expected_value"].(float64); ok {
			n.ExpectedValue = &v
		}

		id, err := tr.Record(n)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to record impact: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Recorded impact %s for %s", id, decisionID)), nil
	}
}

func mcpEvaluateDecision(tr *impact.Tracker) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		decisionID, err := req.RequireString("decision_id")
		if err != nil {
			return mcpError("decision_id is required"), nil
		}
		dateRaw, err := req.RequireString("implementation_date")
		if err != nil {
			return mcpError("implementation_date is required"), nil
		}
		implDate, err := time.Parse(time.RFC3339, dateRaw)
		if err != nil {
			return mcpError(fmt.Sprintf("invalid implementation_date: %v", err)), nil
		}

		period := req.GetInt("period_months", impact.DefaultPeriodMonths)
		if period <= 0 {
			period = impact.DefaultPeriodMonths
		}

		ev, err := tr.Evaluate(decisionID, req.GetString("title", ""), implDate, period)
		if err != nil {
			return mcpError(fmt.Sprintf("evaluation failed: %v", err)), nil
		}
		return mcpJSON(ev)
	}
}

func mcpDecisionTimeline(tr *impact.Tracker) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		decisionID, err := req.RequireString("decision_id")
		if err != nil {
			return mcpError("decision_id is required"), nil
		}
		return mcpJSON(tr.Timeline(decisionID))
	}
}

func mcpPredictEffectiveness(tr *impact.Tracker) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		decisionID, err := req.RequireString("decision_id")
		if err != nil {
			return mcpError("decision_id is required"), nil
		}
		return mcpJSON(tr.Predict(decisionID))
	}
}

func mcpDecisionAnalytics(tr *impact.Tracker) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var tf *impact.Timeframe
		startRaw := req.GetString("start", "")
		endRaw := req.GetString("end", "")
		if startRaw != "" || endRaw != "" {
			tf = &impact.Timeframe{}
			if startRaw != "" {
				start, err := time.Parse(time.RFC3339, startRaw)
				if err != nil {
					return mcpError(fmt.Sprintf("invalid start: %v", err)), nil
				}
				tf.Start = start
			}
			if endRaw != "" {
				end, err := time.Parse(time.RFC3339, endRaw)
				if err != nil {
					return mcpError(fmt.Sprintf("invalid end: %v", err)), nil
				}
				tf.End = end
			}
		}
		return mcpJSON(tr.Analytics(tf))
	}
}

func mcpResourceAnalytics(tr *impact.Tracker) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(tr.Analytics(nil))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal analytics: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
