// Package mcpadapter exposes the query pipeline as Model Context Protocol tools.
package mcpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/jd-copilot/internal/core/domain"
	"github.com/kirillkom/jd-copilot/internal/core/ports"
)

const (
	serverName = "jd-copilot"

	toolAsk      = "ask_job_descriptions"
	toolClassify = "classify_question"
)

type Server struct {
	queries ports.QueryService
	mcp     *server.MCPServer
	logger  *slog.Logger
}

func NewServer(queries ports.QueryService, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		queries: queries,
		mcp:     server.NewMCPServer(serverName, version, server.WithToolCapabilities(false)),
		logger:  logger,
	}

	s.mcp.AddTool(mcp.NewTool(toolAsk,
		mcp.WithDescription("Answer a question about campus placement job descriptions: companies, roles, salaries, skills."),
		mcp.WithString("question", mcp.Required(), mcp.Description("Natural-language question")),
		mcp.WithNumber("top_k", mcp.Description("Number of passages to retrieve (default 5)")),
		mcp.WithString("company", mcp.Description("Restrict retrieval to one company")),
		mcp.WithNumber("year", mcp.Description("Restrict retrieval to a batch start year")),
		mcp.WithBoolean("use_llm_classifier", mcp.Description("Classify with a generation backend instead of patterns")),
	), s.handleAsk)

	s.mcp.AddTool(mcp.NewTool(toolClassify,
		mcp.WithDescription("Classify a question and return its query type, parameters and routing strategy without answering it."),
		mcp.WithString("question", mcp.Required(), mcp.Description("Natural-language question")),
		mcp.WithBoolean("use_llm", mcp.Description("Use the generation-backed classifier")),
	), s.handleClassify)

	return s
}

func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ServeStdio blocks serving JSON-RPC over stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil || strings.TrimSpace(question) == "" {
		return mcp.NewToolResultError("question is required"), nil
	}

	result, err := s.queries.Query(ctx, domain.QueryRequest{
		Question: question,
		TopK:     req.GetInt("top_k", 0),
		Filters: domain.QueryFilters{
			Company: req.GetString("company", ""),
			Year:    req.GetInt("year", 0),
		},
		UseLLMClassifier: req.GetBool("use_llm_classifier", false),
	})
	if err != nil {
		s.logger.Warn("mcp_tool_failed", "tool", toolAsk, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleClassify(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil || strings.TrimSpace(question) == "" {
		return mcp.NewToolResultError("question is required"), nil
	}
	return jsonResult(s.queries.Analyze(ctx, question, req.GetBool("use_llm", false)))
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(raw)), nil
}
