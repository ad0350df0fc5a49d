package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/huangsam/gatekeeper/core"
	"github.com/huangsam/gatekeeper/internal/contract"
	"github.com/huangsam/gatekeeper/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	logger  *slog.Logger
}

func (h *toolHandler) handleEvaluateGates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if d := request.GetString("snyk_dir", ""); d != "" {
		cfg.SnykDir = d
	}
	if d := request.GetString("sonar_dir", ""); d != "" {
		cfg.SonarDir = d
	}
	if f := request.GetString("thresholds_file", ""); f != "" {
		cfg.ThresholdsFile = f
	}
	if r := request.GetString("repository", ""); r != "" {
		cfg.Run.Repository = r
	}
	if c := request.GetString("commit", ""); c != "" {
		cfg.Run.Commit = c
	}
	if p := request.GetString("quality_params", ""); p != "" {
		cfg.Run.QualityParameters = contract.SplitList(p)
	}

	env := strings.TrimSpace(request.GetString("environment", ""))
	if env == "" {
		return mcp.NewToolResultError("environment is required"), nil
	}
	cfg.Run.Environment = env

	branch := schema.NormalizeBranch(request.GetString("branch", ""))
	if branch == "" {
		return mcp.NewToolResultError("branch is required"), nil
	}
	cfg.Run.Branch = branch

	// Only the local gates run here
	deps := core.EvaluationDeps{Logger: h.logger}
	doc, _, err := core.EvaluateGates(ctx, cfg, deps)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("evaluation failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(doc, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleListGates(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jsonData, _ := json.MarshalIndent(schema.GateCatalog, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}
