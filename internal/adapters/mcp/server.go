// Package mcpadapter exposes the email analyzer as an MCP tool.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/email-analyzer/internal/core/domain"
	"github.com/kirillkom/email-analyzer/internal/core/ports"
)

const (
	ToolName = "analyze_email"

	argText     = "text"
	argFilePath = "file_path"
)

type toolResult struct {
	AnalysisID     string `json:"analysis_id"`
	Category       string `json:"category"`
	SuggestedReply string `json:"suggested_reply"`
	Classifier     string `json:"classifier,omitempty"`
}

type Server struct {
	analyzer       ports.EmailAnalyzer
	maxUploadBytes int64
}

func New(analyzer ports.EmailAnalyzer, maxUploadBytes int64) *Server {
	return &Server{analyzer: analyzer, maxUploadBytes: maxUploadBytes}
}

// MCPServer builds the stdio-ready MCP server with the analyze tool registered.
func (s *Server) MCPServer(version string) *server.MCPServer {
	srv := server.NewMCPServer("email-analyzer", version, server.WithToolCapabilities(false))
	srv.AddTool(analyzeTool(), s.HandleAnalyze)
	return srv
}

func analyzeTool() mcp.Tool {
	return mcp.NewTool(ToolName,
		mcp.WithDescription("Classify an email as Productive or Unproductive and suggest a reply. Pass the email text, or a path to a .txt, .pdf, .xlsx or .html file."),
		mcp.WithString(argText, mcp.Description("Email body text.")),
		mcp.WithString(argFilePath, mcp.Description("Local path of a file holding the email. Takes precedence over text.")),
	)
}

func (s *Server) HandleAnalyze(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	submission := domain.Submission{Text: request.GetString(argText, "")}

	if path := strings.TrimSpace(request.GetString(argFilePath, "")); path != "" {
		upload, err := s.readUpload(path)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		submission.File = upload
	}

	analysis, err := s.analyzer.Analyze(ctx, submission)
	if err != nil {
		if msg, ok := domain.UserMessage(err); ok {
			return mcp.NewToolResultError(msg), nil
		}
		slog.ErrorContext(ctx, "mcp_analyze_failed", "error", err)
		return mcp.NewToolResultError("internal error while analyzing the email."), nil
	}

	payload, err := json.Marshal(toolResult{
		AnalysisID:     analysis.ID,
		Category:       analysis.Category,
		SuggestedReply: analysis.SuggestedReply,
		Classifier:     analysis.Classifier,
	})
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) readUpload(path string) (*domain.Upload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s", path)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if s.maxUploadBytes > 0 && info.Size() > s.maxUploadBytes {
		return nil, fmt.Errorf("file too large, max %s.", domain.FormatBytes(s.maxUploadBytes))
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s", path)
	}
	return &domain.Upload{Filename: filepath.Base(path), Content: content}, nil
}
