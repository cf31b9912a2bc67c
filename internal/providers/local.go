package providers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"

	"github.com/prdforge/prdforge/internal/config"
)

// localProvider generates PRDs through a self-hosted Ollama endpoint.
type localProvider struct {
	cfg    config.ProviderConfig
	client *api.Client
	log    zerolog.Logger
}

func newLocalProvider(cfg config.ProviderConfig, log zerolog.Logger) *localProvider {
	p := &localProvider{cfg: cfg, log: log}
	if cfg.BaseURL != "" {
		// The Ollama client wants the host URL without an API suffix.
		base := strings.TrimSuffix(strings.TrimSuffix(cfg.BaseURL, "/"), "/v1")
		if parsed, err := url.Parse(base); err == nil {
			p.client = api.NewClient(parsed, http.DefaultClient)
		} else {
			log.Warn().Err(err).Str("baseUrl", cfg.BaseURL).Msg("invalid local model URL")
		}
	}
	return p
}

func (p *localProvider) ID() string   { return "local" }
func (p *localProvider) Name() string { return "Local Model" }

func (p *localProvider) Available() bool { return p.client != nil }

func (p *localProvider) GeneratePRD(ctx context.Context, input Input, opts Options) (string, error) {
	if p.client == nil {
		return "", &ProviderError{ProviderID: p.ID(), Reason: "model endpoint not configured"}
	}

	opts = opts.withDefaults()
	model := p.cfg.Model
	if model == "" {
		model = "llama3"
	}

	p.log.Info().Str("provider", p.ID()).Str("model", model).Str("product", input.ProductName).Msg("generating PRD")

	options := map[string]any{
		"temperature": opts.Temperature,
		"num_predict": opts.MaxTokens,
	}
	for k, v := range opts.Extra {
		options[k] = v
	}

	stream := false
	req := &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{Role: "system", Content: generationSystemPrompt},
			{Role: "user", Content: generationUserPrompt(input)},
		},
		Stream:  &stream,
		Options: options,
	}

	var content strings.Builder
	err := p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		p.log.Error().Err(err).Str("provider", p.ID()).Msg("PRD generation failed")
		return "", &ProviderError{ProviderID: p.ID(), Reason: "chat request failed", Err: err}
	}
	if content.Len() == 0 {
		return "", &ProviderError{ProviderID: p.ID(), Reason: "empty response"}
	}

	p.log.Info().Str("provider", p.ID()).Str("product", input.ProductName).Msg("PRD generated")
	return content.String(), nil
}
