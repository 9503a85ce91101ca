package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/assure/inspectd/internal/inspection"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Service *inspection.Service
	Version string
}

// NewMCPServer creates an MCP server with the inspection tools and resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"inspectd",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("inspectd answers questions about uploaded home inspection reports."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask_report",
			mcp.WithDescription("Ask a question about an inspection report. Follow-up questions continue the same conversation."),
			mcp.WithString("report_id", mcp.Description("Report ID returned by upload"), mcp.Required()),
			mcp.WithString("question", mcp.Description("The customer's question"), mcp.Required()),
		),
		mcpAskReport(deps),
	)

	s.AddTool(
		mcp.NewTool("cache_status",
			mcp.WithDescription("Show the resident report conversations, oldest first."),
		),
		mcpCacheStatus(deps),
	)

	s.AddTool(
		mcp.NewTool("report_summary",
			mcp.WithDescription("Return the stored summary of an inspection report."),
			mcp.WithString("report_id", mcp.Description("Report ID"), mcp.Required()),
		),
		mcpReportSummary(deps),
	)

	s.AddTool(
		mcp.NewTool("list_questions",
			mcp.WithDescription("List the questions already asked about a report, oldest first."),
			mcp.WithString("report_id", mcp.Description("Report ID"), mcp.Required()),
		),
		mcpListQuestions(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"inspectd://cache",
			"Conversation Cache",
			mcp.WithResourceDescription("Resident report conversations as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceCache(deps),
	)

	return s
}

func mcpAskReport(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		reportID, err := req.RequireString("report_id")
		if err != nil {
			return mcpError("report_id is required"), nil
		}
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}

		ans, err := deps.Service.Ask(ctx, reportID, question)
		if err != nil {
			return mcpError(mcpErrText(err, "failed to answer question")), nil
		}

		b, err := json.Marshal(map[string]any{
			"question_id": ans.QuestionID,
			"answer":      ans.Answer,
			"issue_type":  ans.IssueType,
			"referrals":   referralViews(ans.Referrals),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal answer: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpCacheStatus(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, err := json.Marshal(deps.Service.CacheStatus())
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal cache status: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpReportSummary(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		reportID, err := req.RequireString("report_id")
		if err != nil {
			return mcpError("report_id is required"), nil
		}
		r, err := deps.Service.Report(reportID)
		if err != nil {
			return mcpError(mcpErrText(err, "failed to load report")), nil
		}
		return mcpText(fmt.Sprintf("%s\n\n%s", r.Address, r.Summary)), nil
	}
}

func mcpListQuestions(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		reportID, err := req.RequireString("report_id")
		if err != nil {
			return mcpError("report_id is required"), nil
		}
		qs, err := deps.Service.Conversations(reportID)
		if err != nil {
			return mcpError(mcpErrText(err, "failed to list questions")), nil
		}
		if len(qs) == 0 {
			return mcpText("[]"), nil
		}

		views := make([]questionView, len(qs))
		for i, q := range qs {
			views[i] = questionView{
				ID:        q.ID,
				Question:  q.Question,
				Answer:    q.Answer,
				IssueType: q.IssueType,
				Timestamp: q.CreatedAt.UTC().Format(time.RFC3339),
			}
		}
		b, err := json.Marshal(views)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal questions: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceCache(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Service.CacheStatus())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal cache status: %w", err)
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

// mcpErrText shows validation and not-found messages and hides the rest.
func mcpErrText(err error, failMsg string) string {
	var ve *inspection.ValidationError
	var nf *inspection.NotFoundError
	switch {
	case errors.As(err, &ve):
		return ve.Msg
	case errors.As(err, &nf):
		return nf.Error()
	}
	return fmt.Sprintf("%s: %v", failMsg, err)
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
