package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/prdforge/prdforge/internal/storage"
)

// TemplatesTool handles the template management MCP tools: CRUD,
// version history, and JSON export/import.
type TemplatesTool struct {
	store *storage.Store
	log   zerolog.Logger
}

// NewTemplatesTool creates a TemplatesTool.
func NewTemplatesTool(store *storage.Store, log zerolog.Logger) *TemplatesTool {
	return &TemplatesTool{store: store, log: log}
}

// CreateDefinition returns the MCP tool definition for create_template.
func (t *TemplatesTool) CreateDefinition() mcp.Tool {
	return mcp.NewTool("create_template",
		mcp.WithDescription("Create a new PRD template with placeholder tokens such as {{PRODUCT_NAME}}."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Template name"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Template markdown content"),
		),
		mcp.WithString("description",
			mcp.Description("What the template is for"),
		),
		mcp.WithArray("tags",
			mcp.Description("Tags for categorizing the template"),
			mcp.WithStringItems(),
		),
	)
}

// HandleCreate processes the create_template tool call.
func (t *TemplatesTool) HandleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	content := req.GetString("content", "")
	if name == "" || content == "" {
		return mcp.NewToolResultError("'name' and 'content' are required"), nil
	}

	tpl, err := t.store.CreateTemplate(storage.CreateTemplateParams{
		Name:        name,
		Description: req.GetString("description", ""),
		Content:     content,
		Tags:        stringSliceArg(req, "tags"),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create template: %v", err)), nil
	}
	return jsonResult(tpl)
}

// ListDefinition returns the MCP tool definition for list_templates.
func (t *TemplatesTool) ListDefinition() mcp.Tool {
	return mcp.NewTool("list_templates",
		mcp.WithDescription("List all templates (deleted templates excluded). Content is omitted; use get_template for it."),
	)
}

// HandleList processes the list_templates tool call.
func (t *TemplatesTool) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templates, err := t.store.ListTemplates()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list templates: %v", err)), nil
	}
	return jsonResult(templates)
}

// GetDefinition returns the MCP tool definition for get_template.
func (t *TemplatesTool) GetDefinition() mcp.Tool {
	return mcp.NewTool("get_template",
		mcp.WithDescription("Retrieve a template by id or name, including its content. Finds soft-deleted templates too."),
		mcp.WithString("templateId",
			mcp.Required(),
			mcp.Description("Template id or name"),
		),
		mcp.WithBoolean("includeVersions",
			mcp.Description("Also return the template's version history (default false)"),
		),
	)
}

// HandleGet processes the get_template tool call.
func (t *TemplatesTool) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("templateId", "")
	if id == "" {
		return mcp.NewToolResultError("'templateId' is required"), nil
	}

	tpl, err := t.store.GetTemplate(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("template %q not found", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to load template: %v", err)), nil
	}

	if !req.GetBool("includeVersions", false) {
		return jsonResult(tpl)
	}

	versions, err := t.store.ListVersions(tpl.ID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load version history: %v", err)), nil
	}
	return jsonResult(struct {
		*storage.Template
		Versions []storage.VersionSnapshot `json:"versions"`
	}{tpl, versions})
}

// UpdateDefinition returns the MCP tool definition for update_template.
func (t *TemplatesTool) UpdateDefinition() mcp.Tool {
	return mcp.NewTool("update_template",
		mcp.WithDescription(
			"Update a template. Only the provided fields change; the prior content is "+
				"snapshotted into the version history and the version number increments.",
		),
		mcp.WithString("templateId",
			mcp.Required(),
			mcp.Description("ID of the template to update"),
		),
		mcp.WithString("name",
			mcp.Description("New template name"),
		),
		mcp.WithString("description",
			mcp.Description("New description"),
		),
		mcp.WithString("content",
			mcp.Description("New markdown content"),
		),
		mcp.WithArray("tags",
			mcp.Description("Replacement tag list"),
			mcp.WithStringItems(),
		),
	)
}

// HandleUpdate processes the update_template tool call.
func (t *TemplatesTool) HandleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("templateId", "")
	if id == "" {
		return mcp.NewToolResultError("'templateId' is required"), nil
	}

	args := req.GetArguments()
	var params storage.UpdateTemplateParams
	if v, ok := args["name"].(string); ok {
		params.Name = &v
	}
	if v, ok := args["description"].(string); ok {
		params.Description = &v
	}
	if v, ok := args["content"].(string); ok {
		params.Content = &v
	}
	if _, ok := args["tags"]; ok {
		params.Tags = stringSliceArg(req, "tags")
	}

	tpl, err := t.store.UpdateTemplate(id, params)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("template %q not found", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to update template: %v", err)), nil
	}
	return jsonResult(tpl)
}

// DeleteDefinition returns the MCP tool definition for delete_template.
func (t *TemplatesTool) DeleteDefinition() mcp.Tool {
	return mcp.NewTool("delete_template",
		mcp.WithDescription(
			"Soft-delete a template. It disappears from listings but remains retrievable "+
				"by id. Deleting an already-deleted template succeeds.",
		),
		mcp.WithString("templateId",
			mcp.Required(),
			mcp.Description("ID of the template to delete"),
		),
	)
}

// HandleDelete processes the delete_template tool call.
func (t *TemplatesTool) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("templateId", "")
	if id == "" {
		return mcp.NewToolResultError("'templateId' is required"), nil
	}
	if err := t.store.DeleteTemplate(id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete template: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted template %s", id)), nil
}

// ExportDefinition returns the MCP tool definition for export_templates.
func (t *TemplatesTool) ExportDefinition() mcp.Tool {
	return mcp.NewTool("export_templates",
		mcp.WithDescription("Export all non-deleted templates to a JSON file."),
		mcp.WithString("filePath",
			mcp.Required(),
			mcp.Description("Path of the JSON file to write"),
		),
	)
}

// HandleExport processes the export_templates tool call.
func (t *TemplatesTool) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("filePath", "")
	if path == "" {
		return mcp.NewToolResultError("'filePath' is required"), nil
	}
	if err := t.store.ExportTemplates(path); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to export templates: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Exported templates to %s", path)), nil
}

// ImportDefinition returns the MCP tool definition for import_templates.
func (t *TemplatesTool) ImportDefinition() mcp.Tool {
	return mcp.NewTool("import_templates",
		mcp.WithDescription(
			"Import templates from a JSON export file. Entries are upserted by name: "+
				"existing templates are updated (with a version snapshot), new names are created.",
		),
		mcp.WithString("filePath",
			mcp.Required(),
			mcp.Description("Path of the JSON file to read"),
		),
	)
}

// HandleImport processes the import_templates tool call.
func (t *TemplatesTool) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("filePath", "")
	if path == "" {
		return mcp.NewToolResultError("'filePath' is required"), nil
	}
	if err := t.store.ImportTemplates(path); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to import templates: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Imported templates from %s", path)), nil
}
