// Package resources implements MCP resource handlers for prdforge.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (prd://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/prdforge/prdforge/internal/config"
	"github.com/prdforge/prdforge/internal/providers"
	"github.com/prdforge/prdforge/internal/storage"
)

// Handler manages prdforge resource endpoints.
type Handler struct {
	store  *storage.Store
	loader *config.Loader
	log    zerolog.Logger
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(store *storage.Store, loader *config.Loader, log zerolog.Logger) *Handler {
	return &Handler{store: store, loader: loader, log: log}
}

// status is the JSON document served at prd://status.
type status struct {
	Templates []storage.TemplateSummary `json:"templates"`
	Providers []providers.Status        `json:"providers"`
	Metrics   []storage.Metric          `json:"metrics"`
}

// StatusResource returns the MCP resource definition for server status.
func (h *Handler) StatusResource() mcp.Resource {
	return mcp.NewResource(
		"prd://status",
		"PRD Server Status",
		mcp.WithResourceDescription("Available templates, provider availability and usage counters"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStatus returns the current server status as JSON.
func (h *Handler) HandleStatus(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	var st status

	templates, err := h.store.ListTemplates()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	st.Templates = templates

	metrics, err := h.store.Metrics()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	st.Metrics = metrics

	configs, err := h.loader.ProviderConfigs()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	st.Providers = providers.NewManager(configs, h.store, h.log).ListAvailable()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling status: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
