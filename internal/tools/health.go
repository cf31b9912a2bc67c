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

// healthReport is the JSON shape health_check returns.
type healthReport struct {
	DB        bool               `json:"db"`
	Providers []providers.Status `json:"providers"`
	Error     string             `json:"error,omitempty"`
}

// HealthTool handles the health_check MCP tool.
type HealthTool struct {
	store  *storage.Store
	loader *config.Loader
	log    zerolog.Logger
}

// NewHealthTool creates a HealthTool.
func NewHealthTool(store *storage.Store, loader *config.Loader, log zerolog.Logger) *HealthTool {
	return &HealthTool{store: store, loader: loader, log: log}
}

// Definition returns the MCP tool definition for health_check.
func (t *HealthTool) Definition() mcp.Tool {
	return mcp.NewTool("health_check",
		mcp.WithDescription("Check database connectivity and report which AI providers are available."),
	)
}

// Handle processes the health_check tool call.
func (t *HealthTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report := healthReport{DB: true}
	if err := t.store.Ping(); err != nil {
		report.DB = false
		report.Error = fmt.Sprintf("database: %v", err)
		t.log.Error().Err(err).Msg("health check: database unreachable")
	}

	configs, err := t.loader.ProviderConfigs()
	if err != nil {
		if report.Error != "" {
			report.Error += "; "
		}
		report.Error += fmt.Sprintf("provider configuration: %v", err)
	} else {
		manager := providers.NewManager(configs, t.store, t.log)
		report.Providers = manager.ListAvailable()
	}

	return jsonResult(report)
}
