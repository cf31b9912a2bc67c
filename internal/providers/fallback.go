package providers

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prdforge/prdforge/internal/storage"
)

// TemplateSource is the slice of the store the fallback provider needs.
type TemplateSource interface {
	GetTemplate(idOrName string) (*storage.Template, error)
}

// fallbackProvider renders PRDs by deterministic placeholder substitution
// over a stored template. It never calls a network backend and is always
// available, which is what makes provider selection total.
type fallbackProvider struct {
	templates TemplateSource
	log       zerolog.Logger
}

func newFallbackProvider(templates TemplateSource, log zerolog.Logger) *fallbackProvider {
	return &fallbackProvider{templates: templates, log: log}
}

func (p *fallbackProvider) ID() string   { return "template" }
func (p *fallbackProvider) Name() string { return "Template-based (No AI)" }

func (p *fallbackProvider) Available() bool { return true }

func (p *fallbackProvider) GeneratePRD(ctx context.Context, input Input, _ Options) (string, error) {
	name := input.TemplateName
	if name == "" {
		name = "standard"
	}

	tmpl, err := p.templates.GetTemplate(name)
	if err != nil {
		p.log.Error().Err(err).Str("template", name).Msg("template fallback failed")
		return "", &ProviderError{ProviderID: p.ID(), Reason: "template lookup failed", Err: err}
	}

	p.log.Info().Str("template", name).Str("product", input.ProductName).Msg("PRD rendered from template")
	return Substitute(tmpl.Content, input, time.Now()), nil
}

// Substitute replaces every placeholder token in content with values
// derived from input. All occurrences of a token are replaced; unknown
// tokens are left verbatim.
func Substitute(content string, input Input, now time.Time) string {
	features := make([]string, len(input.CoreFeatures))
	for i, f := range input.CoreFeatures {
		features[i] = "- " + f
	}

	constraints := "No specific constraints identified."
	if len(input.Constraints) > 0 {
		lines := make([]string, len(input.Constraints))
		for i, c := range input.Constraints {
			lines[i] = "- " + c
		}
		constraints = strings.Join(lines, "\n")
	}

	replacer := strings.NewReplacer(
		"{{PRODUCT_NAME}}", input.ProductName,
		"{{PRODUCT_DESCRIPTION}}", input.ProductDescription,
		"{{TARGET_AUDIENCE}}", input.TargetAudience,
		"{{CORE_FEATURES}}", strings.Join(features, "\n"),
		"{{CONSTRAINTS}}", constraints,
		"{{DATE}}", now.Format("1/2/2006"),
	)
	return replacer.Replace(content)
}
