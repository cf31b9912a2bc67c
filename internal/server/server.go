// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates concrete implementations
// and injects them into the tools/prompts/resources that depend on them.
// No business logic lives here — only wiring.
package server

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/prdforge/prdforge/internal/config"
	"github.com/prdforge/prdforge/internal/logging"
	"github.com/prdforge/prdforge/internal/prompts"
	"github.com/prdforge/prdforge/internal/resources"
	"github.com/prdforge/prdforge/internal/storage"
	"github.com/prdforge/prdforge/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. This is the single place where all
// dependencies are resolved.
//
// The returned cleanup function flushes the log file and closes the
// database connection; it must be called on shutdown (typically via
// defer) and is always non-nil, safe to call even after init failure.
func New() (*server.MCPServer, func(), error) {
	// --- Create shared dependencies ---

	storeCfg := storage.DefaultConfig()
	logDir := filepath.Join(storeCfg.DataDir, "logs")

	log, closeLog, err := logging.New(logging.Options{Dir: logDir, Level: os.Getenv("LOG_LEVEL")})
	if err != nil {
		return nil, noop, fmt.Errorf("creating logger: %w", err)
	}

	store, err := storage.New(storeCfg, log)
	if err != nil {
		closeLog()
		return nil, noop, fmt.Errorf("opening store: %w", err)
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("store close")
		}
		closeLog()
	}

	if err := store.InitializeDefaults(); err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("seeding default templates: %w", err)
	}

	overrides := config.NewOverrideStore(storeCfg.DataDir)
	loader := config.NewLoader(overrides)

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"prdforge",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register generation tools ---

	generateTool := tools.NewGeneratePRDTool(store, loader, log)
	s.AddTool(generateTool.Definition(), generateTool.Handle)

	renderTool := tools.NewRenderTemplateTool(store, log)
	s.AddTool(renderTool.Definition(), renderTool.Handle)

	validateTool := tools.NewValidatePRDTool(store, log)
	s.AddTool(validateTool.Definition(), validateTool.Handle)

	// --- Register validation rule tools ---

	rulesTool := tools.NewRulesTool(store, log)
	s.AddTool(rulesTool.ListBuiltinDefinition(), rulesTool.HandleListBuiltin)
	s.AddTool(rulesTool.ListAllDefinition(), rulesTool.HandleListAll)
	s.AddTool(rulesTool.AddDefinition(), rulesTool.HandleAdd)
	s.AddTool(rulesTool.UpdateDefinition(), rulesTool.HandleUpdate)
	s.AddTool(rulesTool.DeleteDefinition(), rulesTool.HandleDelete)

	// --- Register template tools ---

	templatesTool := tools.NewTemplatesTool(store, log)
	s.AddTool(templatesTool.CreateDefinition(), templatesTool.HandleCreate)
	s.AddTool(templatesTool.ListDefinition(), templatesTool.HandleList)
	s.AddTool(templatesTool.GetDefinition(), templatesTool.HandleGet)
	s.AddTool(templatesTool.UpdateDefinition(), templatesTool.HandleUpdate)
	s.AddTool(templatesTool.DeleteDefinition(), templatesTool.HandleDelete)
	s.AddTool(templatesTool.ExportDefinition(), templatesTool.HandleExport)
	s.AddTool(templatesTool.ImportDefinition(), templatesTool.HandleImport)

	// --- Register provider tools ---

	listProvidersTool := tools.NewListProvidersTool(store, loader, log)
	s.AddTool(listProvidersTool.Definition(), listProvidersTool.Handle)

	providerConfigTool := tools.NewProviderConfigTool(loader, overrides, log)
	s.AddTool(providerConfigTool.GetDefinition(), providerConfigTool.HandleGet)
	s.AddTool(providerConfigTool.UpdateDefinition(), providerConfigTool.HandleUpdate)

	// --- Register operational tools ---

	statsTool := tools.NewStatsTool(store, log)
	s.AddTool(statsTool.Definition(), statsTool.Handle)

	healthTool := tools.NewHealthTool(store, loader, log)
	s.AddTool(healthTool.Definition(), healthTool.Handle)

	logsTool := tools.NewLogsTool(logDir, log)
	s.AddTool(logsTool.Definition(), logsTool.Handle)

	// --- Register prompts ---

	workflowPrompt := prompts.NewWorkflowPrompt()
	s.AddPrompt(workflowPrompt.Definition(), workflowPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(store, loader, log)
	s.AddResource(resourceHandler.StatusResource(), resourceHandler.HandleStatus)

	log.Info().Str("version", Version).Msg("server wired")
	return s, cleanup, nil
}

// noop is the default cleanup function when initialization fails early.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to use prdforge effectively.
func serverInstructions() string {
	return `You have access to prdforge, a Product Requirements Document MCP server.

## WHEN TO ACTIVATE prdforge

Suggest using prdforge when the user:
- Wants to write a PRD, product spec, or requirements document
- Describes a product idea and needs it structured
- Asks to plan features for a new product

## WORKFLOW

1. Gather the product name, description, target audience, core features,
   and constraints from the user.
2. Run list_templates to pick a suitable template (or stay with "standard").
3. Call generate_prd. Without API keys configured it falls back to
   deterministic template rendering — still a complete, well-formed PRD.
4. Call validate_prd on the result and fix any failing rules.
5. Iterate until the document passes validation.

Use update_provider_config to store API keys for OpenAI, Anthropic,
Gemini, or a local Ollama endpoint; list_ai_providers shows what is
currently usable.`
}
