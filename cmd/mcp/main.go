package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/email-analyzer/internal/adapters/mcp"
	"github.com/kirillkom/email-analyzer/internal/bootstrap"
	"github.com/kirillkom/email-analyzer/internal/config"
	"github.com/kirillkom/email-analyzer/internal/observability/logging"
)

const version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()
	// stdout carries the MCP protocol.
	slog.SetDefault(logging.New(os.Stderr, "mcp", cfg.LogLevel, false))

	app, err := bootstrap.New(context.Background(), cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		return 1
	}
	defer app.Close()

	srv := mcpadapter.New(app.Analyzer, cfg.MaxUploadBytes).MCPServer(version)
	if err := server.ServeStdio(srv); err != nil {
		slog.Error("mcp_server_stopped", "error", err)
		return 1
	}
	return 0
}
