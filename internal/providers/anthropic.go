package providers

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/prdforge/prdforge/internal/config"
)

// anthropicProvider generates PRDs through the Anthropic Messages API.
type anthropicProvider struct {
	cfg    config.ProviderConfig
	client *anthropic.Client
	log    zerolog.Logger
}

func newAnthropicProvider(cfg config.ProviderConfig, log zerolog.Logger) *anthropicProvider {
	p := &anthropicProvider{cfg: cfg, log: log}
	if cfg.APIKey != "" {
		reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
		if cfg.BaseURL != "" {
			reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
		}
		client := anthropic.NewClient(reqOpts...)
		p.client = &client
	}
	return p
}

func (p *anthropicProvider) ID() string   { return "anthropic" }
func (p *anthropicProvider) Name() string { return "Anthropic Claude" }

func (p *anthropicProvider) Available() bool { return p.client != nil }

func (p *anthropicProvider) GeneratePRD(ctx context.Context, input Input, opts Options) (string, error) {
	if p.client == nil {
		return "", &ProviderError{ProviderID: p.ID(), Reason: "API key not configured"}
	}

	opts = opts.withDefaults()
	model := p.cfg.Model
	if model == "" {
		model = "claude-3-opus-20240229"
	}

	p.log.Info().Str("provider", p.ID()).Str("product", input.ProductName).Msg("generating PRD")

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(opts.MaxTokens),
		System: []anthropic.TextBlockParam{
			{Text: generationSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(generationUserPrompt(input))),
		},
		Temperature: anthropic.Float(opts.Temperature),
	})
	if err != nil {
		p.log.Error().Err(err).Str("provider", p.ID()).Msg("PRD generation failed")
		return "", &ProviderError{ProviderID: p.ID(), Reason: "message creation failed", Err: err}
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}
	if content == "" {
		return "", &ProviderError{ProviderID: p.ID(), Reason: "empty response"}
	}

	p.log.Info().Str("provider", p.ID()).Str("product", input.ProductName).Msg("PRD generated")
	return content, nil
}
