package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/prdforge/prdforge/internal/config"
	"github.com/prdforge/prdforge/internal/providers"
	"github.com/prdforge/prdforge/internal/storage"
)

// ListProvidersTool handles the list_ai_providers MCP tool.
type ListProvidersTool struct {
	store  *storage.Store
	loader *config.Loader
	log    zerolog.Logger
}

// NewListProvidersTool creates a ListProvidersTool.
func NewListProvidersTool(store *storage.Store, loader *config.Loader, log zerolog.Logger) *ListProvidersTool {
	return &ListProvidersTool{store: store, loader: loader, log: log}
}

// Definition returns the MCP tool definition for list_ai_providers.
func (t *ListProvidersTool) Definition() mcp.Tool {
	return mcp.NewTool("list_ai_providers",
		mcp.WithDescription("List all AI providers and whether each is currently available."),
	)
}

// Handle processes the list_ai_providers tool call.
func (t *ListProvidersTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	configs, err := t.loader.ProviderConfigs()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load provider configuration: %v", err)), nil
	}
	manager := providers.NewManager(configs, t.store, t.log)
	return jsonResult(manager.ListAvailable())
}
