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

// GeneratePRDTool handles the generate_prd MCP tool.
type GeneratePRDTool struct {
	store  *storage.Store
	loader *config.Loader
	log    zerolog.Logger
}

// NewGeneratePRDTool creates a GeneratePRDTool.
func NewGeneratePRDTool(store *storage.Store, loader *config.Loader, log zerolog.Logger) *GeneratePRDTool {
	return &GeneratePRDTool{store: store, loader: loader, log: log}
}

// Definition returns the MCP tool definition for generate_prd.
func (t *GeneratePRDTool) Definition() mcp.Tool {
	return mcp.NewTool("generate_prd",
		mcp.WithDescription(
			"Generate a Product Requirements Document from structured product input, "+
				"using an AI provider when one is configured or deterministic template substitution otherwise.",
		),
		mcp.WithString("productName",
			mcp.Required(),
			mcp.Description("The name of the product"),
		),
		mcp.WithString("productDescription",
			mcp.Required(),
			mcp.Description("Description of the product"),
		),
		mcp.WithString("targetAudience",
			mcp.Required(),
			mcp.Description("Description of the target audience"),
		),
		mcp.WithArray("coreFeatures",
			mcp.Required(),
			mcp.Description("Core feature descriptions"),
			mcp.WithStringItems(),
		),
		mcp.WithArray("constraints",
			mcp.Description("Optional constraints or limitations"),
			mcp.WithStringItems(),
		),
		mcp.WithString("templateName",
			mcp.Description("Template to use for fallback rendering (default \"standard\")"),
		),
		mcp.WithString("providerId",
			mcp.Description("Specific AI provider to use: openai, anthropic, gemini, local, template"),
		),
		mcp.WithString("additionalContext",
			mcp.Description("Additional context passed to the AI provider"),
		),
		mcp.WithObject("providerOptions",
			mcp.Description("Provider-specific options, e.g. temperature and maxTokens"),
		),
	)
}

// Handle processes the generate_prd tool call.
func (t *GeneratePRDTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input := providers.Input{
		ProductName:        req.GetString("productName", ""),
		ProductDescription: req.GetString("productDescription", ""),
		TargetAudience:     req.GetString("targetAudience", ""),
		CoreFeatures:       stringSliceArg(req, "coreFeatures"),
		Constraints:        stringSliceArg(req, "constraints"),
		TemplateName:       req.GetString("templateName", ""),
		AdditionalContext:  req.GetString("additionalContext", ""),
	}

	if input.ProductName == "" {
		return mcp.NewToolResultError("'productName' is required"), nil
	}
	if input.ProductDescription == "" {
		return mcp.NewToolResultError("'productDescription' is required"), nil
	}
	if input.TargetAudience == "" {
		return mcp.NewToolResultError("'targetAudience' is required"), nil
	}
	if len(input.CoreFeatures) == 0 {
		return mcp.NewToolResultError("'coreFeatures' must contain at least one feature"), nil
	}

	// Configs are merged fresh per request so stored overrides take
	// effect without a restart.
	configs, err := t.loader.ProviderConfigs()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load provider configuration: %v", err)), nil
	}
	manager := providers.NewManager(configs, t.store, t.log)

	preferred := req.GetString("providerId", "")
	if preferred == "" {
		preferred = t.loader.DefaultProviderID()
	}

	provider, err := manager.Select(preferred)
	if err != nil {
		// Not even the fallback could be constructed: broken install.
		t.log.Error().Err(err).Msg("no provider can be constructed")
		return mcp.NewToolResultError(err.Error()), nil
	}

	metric := "ai_calls"
	if provider.ID() == "template" {
		metric = "fallbacks"
	}
	if err := t.store.IncrementMetric(metric, 1); err != nil {
		t.log.Warn().Err(err).Str("metric", metric).Msg("metric increment failed")
	}

	prd, err := provider.GeneratePRD(ctx, input, optionsFromArgs(req))
	if err != nil {
		t.log.Error().Err(err).Str("provider", provider.ID()).Msg("PRD generation failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to generate PRD: %v", err)), nil
	}

	if err := t.store.IncrementMetric("prd_generated", 1); err != nil {
		t.log.Warn().Err(err).Msg("metric increment failed")
	}

	return mcp.NewToolResultText(prd), nil
}

// optionsFromArgs maps the providerOptions object onto typed Options,
// routing unknown keys through the Extra escape hatch.
func optionsFromArgs(req mcp.CallToolRequest) providers.Options {
	raw := mapArg(req, "providerOptions")
	if raw == nil {
		return providers.Options{}
	}

	var opts providers.Options
	for key, value := range raw {
		switch key {
		case "temperature":
			if f, ok := value.(float64); ok {
				opts.Temperature = f
			}
		case "maxTokens":
			if f, ok := value.(float64); ok {
				opts.MaxTokens = int(f)
			}
		default:
			if opts.Extra == nil {
				opts.Extra = make(map[string]any)
			}
			opts.Extra[key] = value
		}
	}
	return opts
}
