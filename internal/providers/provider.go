// Package providers implements the PRD generation backends.
//
// A Provider turns structured product input into PRD markdown. Backends
// are a closed set: OpenAI, Anthropic, Gemini, a local Ollama endpoint,
// and a deterministic template-substitution fallback that is always
// available. The Manager caches instances and selects among them with a
// fixed priority order, guaranteeing a provider is always returned.
package providers

import (
	"context"
	"fmt"
	"strings"
)

// Provider is the uniform generation capability.
type Provider interface {
	// ID is the stable identifier used in configuration and selection.
	ID() string
	// Name is the human-readable display name.
	Name() string
	// Available reports whether the provider is minimally configured.
	// This is a configuration check only, never a network probe.
	Available() bool
	// GeneratePRD produces PRD markdown for the input. An empty result
	// from a backend is an error, never silently returned.
	GeneratePRD(ctx context.Context, input Input, opts Options) (string, error)
}

// Input is the structured product description a PRD is generated from.
type Input struct {
	ProductName        string   `json:"productName"`
	ProductDescription string   `json:"productDescription"`
	TargetAudience     string   `json:"targetAudience"`
	CoreFeatures       []string `json:"coreFeatures"`
	Constraints        []string `json:"constraints,omitempty"`
	TemplateName       string   `json:"templateName,omitempty"`
	AdditionalContext  string   `json:"additionalContext,omitempty"`
}

// Options carries generation tuning. Extra is the escape hatch for
// provider-specific settings passed through to backends that accept
// free-form options.
type Options struct {
	Temperature float64        `json:"temperature,omitempty"`
	MaxTokens   int            `json:"maxTokens,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 4000
)

// withDefaults fills unset tuning fields.
func (o Options) withDefaults() Options {
	if o.Temperature == 0 {
		o.Temperature = defaultTemperature
	}
	if o.MaxTokens == 0 {
		o.MaxTokens = defaultMaxTokens
	}
	return o
}

// ProviderError is a failed backend interchange: unconfigured provider,
// transport or API failure, or empty content.
type ProviderError struct {
	ProviderID string
	Reason     string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s: %s: %v", e.ProviderID, e.Reason, e.Err)
	}
	return fmt.Sprintf("provider %s: %s", e.ProviderID, e.Reason)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// generationSystemPrompt instructs the model to act as a product manager
// and produce a structured markdown PRD.
const generationSystemPrompt = `You are an expert product manager with deep experience in writing detailed, professional Product Requirements Documents (PRDs).
Your task is to create a comprehensive PRD for the product described by the user.
Structure the PRD with clear sections including:
- Introduction and product overview
- Target audience analysis
- Detailed core features explanation
- Technical and business constraints
- Implementation considerations
- Success metrics
Use professional language, be thorough, and format the document in clean markdown.`

// generationUserPrompt renders the structured input into the user turn.
func generationUserPrompt(input Input) string {
	var sb strings.Builder
	sb.WriteString("Please create a detailed PRD for the following product:\n\n")
	sb.WriteString("Product Name: " + input.ProductName + "\n\n")
	sb.WriteString("Product Description: " + input.ProductDescription + "\n\n")
	sb.WriteString("Target Audience: " + input.TargetAudience + "\n\n")
	sb.WriteString("Core Features:\n" + bulleted(input.CoreFeatures) + "\n\n")
	sb.WriteString("Constraints:\n")
	if len(input.Constraints) > 0 {
		sb.WriteString(bulleted(input.Constraints))
	} else {
		sb.WriteString("None specified")
	}
	sb.WriteString("\n\n")
	if input.AdditionalContext != "" {
		sb.WriteString("Additional Context: " + input.AdditionalContext + "\n\n")
	}
	sb.WriteString("Format the PRD as a well-structured markdown document with appropriate headings, bullet points, and sections.")
	return sb.String()
}

func bulleted(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "• " + item
	}
	return strings.Join(lines, "\n")
}
