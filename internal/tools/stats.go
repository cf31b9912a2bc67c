package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/prdforge/prdforge/internal/storage"
)

// StatsTool handles the stats MCP tool.
type StatsTool struct {
	store *storage.Store
	log   zerolog.Logger
}

// NewStatsTool creates a StatsTool.
func NewStatsTool(store *storage.Store, log zerolog.Logger) *StatsTool {
	return &StatsTool{store: store, log: log}
}

// Definition returns the MCP tool definition for stats.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("stats",
		mcp.WithDescription("Report usage counters: AI calls, template fallbacks and PRDs generated."),
	)
}

// Handle processes the stats tool call.
func (t *StatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metrics, err := t.store.Metrics()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load metrics: %v", err)), nil
	}
	return jsonResult(metrics)
}
