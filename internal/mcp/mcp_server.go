// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"
	"log/slog"

	"github.com/huangsam/gatekeeper/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the gatekeeper MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"Gatekeeper Deployment Gate Server",
		version,
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		logger:  slog.Default(),
	}

	// --- 1. Tool: evaluate_gates ---
	s.AddTool(mcp.NewTool("evaluate_gates",
		mcp.WithDescription("Evaluate the local deployment gates against Snyk and SonarQube results and return the decision document. The policy decision point and exception tracker are not consulted."),
		mcp.WithString("snyk_dir", mcp.Description("Directory holding the Snyk JSON results.")),
		mcp.WithString("sonar_dir", mcp.Description("Directory holding the SonarQube JSON results.")),
		mcp.WithString("thresholds_file", mcp.Description("Optional developer threshold document (JSON or YAML).")),
		mcp.WithString("environment", mcp.Description("Target environment, e.g. DEV, UAT or PROD."), mcp.Required()),
		mcp.WithString("branch", mcp.Description("Branch or ref being deployed."), mcp.Required()),
		mcp.WithString("quality_params", mcp.Description("Comma-separated analysis parameter names passed to the scanner.")),
		mcp.WithString("repository", mcp.Description("Repository in owner/name form, used for per-project thresholds.")),
		mcp.WithString("commit", mcp.Description("Commit SHA being deployed.")),
	), h.handleEvaluateGates)

	// --- 2. Tool: list_gates ---
	s.AddTool(mcp.NewTool("list_gates",
		mcp.WithDescription("List every gate with its category, source and evaluation position."),
	), h.handleListGates)

	return s
}

// StartMCPServer starts the gatekeeper MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, version string) error {
	s := NewMCPServer(baseCfg, version)
	return server.ServeStdio(s)
}
