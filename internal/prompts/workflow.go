// Package prompts implements the MCP prompts prdforge registers.
package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// WorkflowPrompt handles the prd_workflow MCP prompt.
// It walks the AI through the generate-validate-refine loop.
type WorkflowPrompt struct{}

// NewWorkflowPrompt creates a WorkflowPrompt.
func NewWorkflowPrompt() *WorkflowPrompt {
	return &WorkflowPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *WorkflowPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("prd_workflow",
		mcp.WithPromptDescription(
			"Guide through creating a PRD: gather product details, "+
				"generate the document, validate it, and iterate until it passes.",
		),
	)
}

// Handle processes the prd_workflow prompt request.
func (p *WorkflowPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "PRD Creation Workflow",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Help me create a Product Requirements Document.\n\n" +
						"1. Ask me for the product name, a short description, the target audience, " +
						"the core features, and any constraints\n" +
						"2. Run `list_templates` and suggest the template that best fits the product\n" +
						"3. Call `generate_prd` with the collected details\n" +
						"4. Call `validate_prd` on the result and show me any failing rules\n" +
						"5. If rules fail, revise the document and validate again until it passes\n" +
						"6. Present the final PRD",
				),
			},
		},
	}, nil
}
