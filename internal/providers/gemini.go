package providers

import (
	"context"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/prdforge/prdforge/internal/config"
)

// geminiOpenAIBaseURL is Google's OpenAI-compatible endpoint for the
// Gemini API.
const geminiOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// geminiProvider generates PRDs through the Gemini API, speaking the
// OpenAI-compatible chat completion surface Google exposes for it.
type geminiProvider struct {
	cfg    config.ProviderConfig
	client *openai.Client
	log    zerolog.Logger
}

func newGeminiProvider(cfg config.ProviderConfig, log zerolog.Logger) *geminiProvider {
	p := &geminiProvider{cfg: cfg, log: log}
	if cfg.APIKey != "" {
		clientCfg := openai.DefaultConfig(cfg.APIKey)
		clientCfg.BaseURL = geminiOpenAIBaseURL
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
		p.client = openai.NewClientWithConfig(clientCfg)
	}
	return p
}

func (p *geminiProvider) ID() string   { return "gemini" }
func (p *geminiProvider) Name() string { return "Google Gemini" }

func (p *geminiProvider) Available() bool { return p.client != nil }

func (p *geminiProvider) GeneratePRD(ctx context.Context, input Input, opts Options) (string, error) {
	if p.client == nil {
		return "", &ProviderError{ProviderID: p.ID(), Reason: "API key not configured"}
	}

	opts = opts.withDefaults()
	model := p.cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	p.log.Info().Str("provider", p.ID()).Str("product", input.ProductName).Msg("generating PRD")

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: generationSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: generationUserPrompt(input)},
		},
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		p.log.Error().Err(err).Str("provider", p.ID()).Msg("PRD generation failed")
		return "", &ProviderError{ProviderID: p.ID(), Reason: "chat completion failed", Err: err}
	}

	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	if content == "" {
		return "", &ProviderError{ProviderID: p.ID(), Reason: "empty response"}
	}

	p.log.Info().Str("provider", p.ID()).Str("product", input.ProductName).Msg("PRD generated")
	return content, nil
}
