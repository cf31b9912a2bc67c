package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/prdforge/prdforge/internal/storage"
	"github.com/prdforge/prdforge/internal/validation"
)

// ValidatePRDTool handles the validate_prd MCP tool.
type ValidatePRDTool struct {
	store *storage.Store
	log   zerolog.Logger
}

// NewValidatePRDTool creates a ValidatePRDTool.
func NewValidatePRDTool(store *storage.Store, log zerolog.Logger) *ValidatePRDTool {
	return &ValidatePRDTool{store: store, log: log}
}

// Definition returns the MCP tool definition for validate_prd.
func (t *ValidatePRDTool) Definition() mcp.Tool {
	return mcp.NewTool("validate_prd",
		mcp.WithDescription(
			"Validate a PRD document against the built-in quality rules plus any stored custom rules. "+
				"Returns a JSON report with per-rule pass/fail results.",
		),
		mcp.WithString("prdContent",
			mcp.Required(),
			mcp.Description("The PRD markdown content to validate"),
		),
		mcp.WithArray("validationRules",
			mcp.Description("Optional list of rule IDs; when set, only those rules are evaluated"),
			mcp.WithStringItems(),
		),
	)
}

// Handle processes the validate_prd tool call.
func (t *ValidatePRDTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := req.GetString("prdContent", "")
	if content == "" {
		return mcp.NewToolResultError("'prdContent' is required"), nil
	}

	rules := validation.BuiltinRules()
	stored, err := t.store.ListRules()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load validation rules: %v", err)), nil
	}
	for _, r := range stored {
		rules = append(rules, validation.Rule{
			ID:          r.ID,
			Name:        r.Name,
			Description: derefString(r.Description),
			Pattern:     r.Pattern,
			MustMatch:   r.MustMatch,
		})
	}

	if filter := stringSliceArg(req, "validationRules"); len(filter) > 0 {
		wanted := make(map[string]bool, len(filter))
		for _, id := range filter {
			wanted[id] = true
		}
		kept := rules[:0]
		for _, r := range rules {
			if wanted[r.ID] {
				kept = append(kept, r)
			}
		}
		rules = kept
	}

	report := validation.Evaluate(content, rules)
	t.log.Debug().Int("passed", report.Passed).Int("failed", report.Failed).Msg("PRD validated")
	return jsonResult(report)
}
