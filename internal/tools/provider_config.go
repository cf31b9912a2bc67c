package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/prdforge/prdforge/internal/config"
)

// providerConfigView is the JSON shape get_provider_config reports per
// provider. API keys are never echoed back, only their presence.
type providerConfigView struct {
	ID        string `json:"id"`
	Model     string `json:"model,omitempty"`
	BaseURL   string `json:"baseUrl,omitempty"`
	HasAPIKey bool   `json:"hasApiKey"`
}

// ProviderConfigTool handles the get_provider_config and
// update_provider_config MCP tools.
type ProviderConfigTool struct {
	loader    *config.Loader
	overrides *config.OverrideStore
	log       zerolog.Logger
}

// NewProviderConfigTool creates a ProviderConfigTool.
func NewProviderConfigTool(loader *config.Loader, overrides *config.OverrideStore, log zerolog.Logger) *ProviderConfigTool {
	return &ProviderConfigTool{loader: loader, overrides: overrides, log: log}
}

// GetDefinition returns the MCP tool definition for get_provider_config.
func (t *ProviderConfigTool) GetDefinition() mcp.Tool {
	return mcp.NewTool("get_provider_config",
		mcp.WithDescription(
			"Show the effective configuration of every AI provider (environment merged "+
				"with stored overrides). API keys are reported as present or absent, never echoed.",
		),
	)
}

// HandleGet processes the get_provider_config tool call.
func (t *ProviderConfigTool) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	configs, err := t.loader.ProviderConfigs()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load provider configuration: %v", err)), nil
	}

	views := make(map[string]providerConfigView, len(configs))
	for id, cfg := range configs {
		views[id] = providerConfigView{
			ID:        id,
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			HasAPIKey: cfg.APIKey != "",
		}
	}
	return jsonResult(views)
}

// UpdateDefinition returns the MCP tool definition for update_provider_config.
func (t *ProviderConfigTool) UpdateDefinition() mcp.Tool {
	return mcp.NewTool("update_provider_config",
		mcp.WithDescription(
			"Store a configuration override for an AI provider. Overrides persist across "+
				"restarts and take precedence over environment variables; omitted fields keep "+
				"their stored value.",
		),
		mcp.WithString("providerId",
			mcp.Required(),
			mcp.Description("Provider to configure: openai, anthropic, gemini, local, template"),
		),
		mcp.WithString("apiKey",
			mcp.Description("API key override"),
		),
		mcp.WithString("baseUrl",
			mcp.Description("Base URL override"),
		),
		mcp.WithString("model",
			mcp.Description("Model name override"),
		),
	)
}

// HandleUpdate processes the update_provider_config tool call.
func (t *ProviderConfigTool) HandleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	providerID := req.GetString("providerId", "")
	if providerID == "" {
		return mcp.NewToolResultError("'providerId' is required"), nil
	}

	override := config.Override{
		APIKey:  req.GetString("apiKey", ""),
		BaseURL: req.GetString("baseUrl", ""),
		Model:   req.GetString("model", ""),
	}
	if err := t.overrides.Update(providerID, override); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update provider configuration: %v", err)), nil
	}

	t.log.Info().Str("provider", providerID).Msg("provider configuration updated")
	return mcp.NewToolResultText(fmt.Sprintf("Updated configuration for provider %s", providerID)), nil
}
