package tools

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/prdforge/prdforge/internal/storage"
	"github.com/prdforge/prdforge/internal/validation"
)

// ruleView is the JSON shape rules are listed in, shared by built-in
// and custom rules.
type ruleView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Pattern     string `json:"pattern"`
	MustMatch   bool   `json:"mustMatch"`
	Builtin     bool   `json:"builtin"`
}

// RulesTool handles the validation-rule MCP tools: listing the built-in
// set, listing everything, and CRUD on stored custom rules.
type RulesTool struct {
	store *storage.Store
	log   zerolog.Logger
}

// NewRulesTool creates a RulesTool.
func NewRulesTool(store *storage.Store, log zerolog.Logger) *RulesTool {
	return &RulesTool{store: store, log: log}
}

// ListBuiltinDefinition returns the MCP tool definition for list_validation_rules.
func (t *RulesTool) ListBuiltinDefinition() mcp.Tool {
	return mcp.NewTool("list_validation_rules",
		mcp.WithDescription("List the built-in PRD validation rules."),
	)
}

// HandleListBuiltin processes the list_validation_rules tool call.
func (t *RulesTool) HandleListBuiltin(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	views := make([]ruleView, 0)
	for _, r := range validation.BuiltinRules() {
		views = append(views, ruleView{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Pattern:     r.Pattern,
			MustMatch:   r.MustMatch,
			Builtin:     true,
		})
	}
	return jsonResult(views)
}

// ListAllDefinition returns the MCP tool definition for list_all_rules.
func (t *RulesTool) ListAllDefinition() mcp.Tool {
	return mcp.NewTool("list_all_rules",
		mcp.WithDescription("List every validation rule: the built-in set plus stored custom rules."),
	)
}

// HandleListAll processes the list_all_rules tool call.
func (t *RulesTool) HandleListAll(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	views := make([]ruleView, 0)
	for _, r := range validation.BuiltinRules() {
		views = append(views, ruleView{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Pattern:     r.Pattern,
			MustMatch:   r.MustMatch,
			Builtin:     true,
		})
	}
	custom, err := t.store.ListRules()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list rules: %v", err)), nil
	}
	for _, r := range custom {
		views = append(views, ruleView{
			ID:          r.ID,
			Name:        r.Name,
			Description: derefString(r.Description),
			Pattern:     r.Pattern,
			MustMatch:   r.MustMatch,
		})
	}
	return jsonResult(views)
}

// AddDefinition returns the MCP tool definition for add_validation_rule.
func (t *RulesTool) AddDefinition() mcp.Tool {
	return mcp.NewTool("add_validation_rule",
		mcp.WithDescription(
			"Add a custom validation rule. The pattern is a regular expression; "+
				"mustMatch controls whether a match means compliance (true) or violation (false).",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Unique rule identifier, used to update or delete the rule later"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Human-readable rule name"),
		),
		mcp.WithString("pattern",
			mcp.Required(),
			mcp.Description("Regular expression evaluated against the PRD content"),
		),
		mcp.WithString("description",
			mcp.Description("What the rule checks for"),
		),
		mcp.WithBoolean("mustMatch",
			mcp.Description("Whether the pattern must match for the rule to pass (default true)"),
		),
	)
}

// HandleAdd processes the add_validation_rule tool call.
func (t *RulesTool) HandleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	name := req.GetString("name", "")
	pattern := req.GetString("pattern", "")
	if id == "" || name == "" || pattern == "" {
		return mcp.NewToolResultError("'id', 'name' and 'pattern' are required"), nil
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid pattern: %v", err)), nil
	}

	rule := storage.ValidationRule{
		ID:        id,
		Name:      name,
		Pattern:   pattern,
		MustMatch: req.GetBool("mustMatch", true),
	}
	if desc := req.GetString("description", ""); desc != "" {
		rule.Description = &desc
	}

	if err := t.store.AddRule(rule); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add rule: %v", err)), nil
	}
	return jsonResult(rule)
}

// UpdateDefinition returns the MCP tool definition for update_validation_rule.
func (t *RulesTool) UpdateDefinition() mcp.Tool {
	return mcp.NewTool("update_validation_rule",
		mcp.WithDescription("Update a custom validation rule. Only the provided fields change."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("ID of the rule to update"),
		),
		mcp.WithString("name",
			mcp.Description("New rule name"),
		),
		mcp.WithString("description",
			mcp.Description("New description"),
		),
		mcp.WithString("pattern",
			mcp.Description("New regular expression"),
		),
		mcp.WithBoolean("mustMatch",
			mcp.Description("New match polarity"),
		),
	)
}

// HandleUpdate processes the update_validation_rule tool call.
func (t *RulesTool) HandleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	args := req.GetArguments()
	var params storage.UpdateRuleParams
	if v, ok := args["name"].(string); ok {
		params.Name = &v
	}
	if v, ok := args["description"].(string); ok {
		params.Description = &v
	}
	if v, ok := args["pattern"].(string); ok {
		if _, err := regexp.Compile(v); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid pattern: %v", err)), nil
		}
		params.Pattern = &v
	}
	if v, ok := args["mustMatch"].(bool); ok {
		params.MustMatch = &v
	}

	if err := t.store.UpdateRule(id, params); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("rule %q not found", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to update rule: %v", err)), nil
	}

	updated, err := t.store.GetRule(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load updated rule: %v", err)), nil
	}
	return jsonResult(updated)
}

// DeleteDefinition returns the MCP tool definition for delete_validation_rule.
func (t *RulesTool) DeleteDefinition() mcp.Tool {
	return mcp.NewTool("delete_validation_rule",
		mcp.WithDescription("Delete a custom validation rule. Built-in rules cannot be deleted."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("ID of the rule to delete"),
		),
	)
}

// HandleDelete processes the delete_validation_rule tool call.
func (t *RulesTool) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	for _, r := range validation.BuiltinRules() {
		if r.ID == id {
			return mcp.NewToolResultError(fmt.Sprintf("rule %q is built in and cannot be deleted", id)), nil
		}
	}
	if err := t.store.DeleteRule(id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete rule: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted validation rule %s", id)), nil
}
