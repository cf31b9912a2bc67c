package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/prdforge/prdforge/internal/providers"
	"github.com/prdforge/prdforge/internal/storage"
)

// RenderTemplateTool handles the render_template MCP tool. Rendering
// is pure placeholder substitution and never touches an AI provider.
type RenderTemplateTool struct {
	store *storage.Store
	log   zerolog.Logger
}

// NewRenderTemplateTool creates a RenderTemplateTool.
func NewRenderTemplateTool(store *storage.Store, log zerolog.Logger) *RenderTemplateTool {
	return &RenderTemplateTool{store: store, log: log}
}

// Definition returns the MCP tool definition for render_template.
func (t *RenderTemplateTool) Definition() mcp.Tool {
	return mcp.NewTool("render_template",
		mcp.WithDescription(
			"Render a stored template by substituting its placeholders with the supplied product details. "+
				"Deterministic and offline: no AI provider is involved.",
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
			mcp.Description("ID or name of the template to render (default \"standard\")"),
		),
	)
}

// Handle processes the render_template tool call.
func (t *RenderTemplateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templateName := req.GetString("templateName", "standard")

	input := providers.Input{
		ProductName:        req.GetString("productName", ""),
		ProductDescription: req.GetString("productDescription", ""),
		TargetAudience:     req.GetString("targetAudience", ""),
		CoreFeatures:       stringSliceArg(req, "coreFeatures"),
		Constraints:        stringSliceArg(req, "constraints"),
	}
	if input.ProductName == "" || input.ProductDescription == "" || input.TargetAudience == "" {
		return mcp.NewToolResultError("'productName', 'productDescription' and 'targetAudience' are required"), nil
	}

	tpl, err := t.store.GetTemplate(templateName)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("template %q not found", templateName)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to load template: %v", err)), nil
	}

	rendered := providers.Substitute(tpl.Content, input, time.Now())
	t.log.Debug().Str("template", tpl.Name).Msg("template rendered")
	return mcp.NewToolResultText(rendered), nil
}
