// Package config resolves provider configuration.
//
// Effective configuration for each provider is environment-derived
// defaults overlaid with persisted overrides from a flat JSON file;
// an override always wins over the environment. Overrides are merged
// at read time, so edits take effect on the next request without a
// restart.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// ProviderConfig is the effective configuration for one provider.
type ProviderConfig struct {
	ID      string `json:"id"`
	APIKey  string `json:"apiKey,omitempty"`
	BaseURL string `json:"baseUrl,omitempty"`
	Model   string `json:"model,omitempty"`
}

// envSettings are the environment-derived defaults per provider.
type envSettings struct {
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_API_BASE_URL"`
	OpenAIModel   string `envconfig:"OPENAI_MODEL" default:"gpt-4"`

	AnthropicAPIKey  string `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicBaseURL string `envconfig:"ANTHROPIC_API_BASE_URL"`
	AnthropicModel   string `envconfig:"ANTHROPIC_MODEL" default:"claude-3-opus-20240229"`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`

	LocalBaseURL string `envconfig:"LOCAL_MODEL_API_URL"`
	LocalModel   string `envconfig:"LOCAL_MODEL_NAME" default:"llama3"`

	DefaultProvider string `envconfig:"DEFAULT_AI_PROVIDER" default:"template"`
}

// Loader resolves effective provider configurations.
type Loader struct {
	overrides *OverrideStore
}

// NewLoader creates a Loader reading overrides from the given store.
func NewLoader(overrides *OverrideStore) *Loader {
	return &Loader{overrides: overrides}
}

// ProviderConfigs returns the merged configuration for every known
// provider id, stored overrides taking precedence over the environment.
func (l *Loader) ProviderConfigs() (map[string]ProviderConfig, error) {
	var env envSettings
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("config: process environment: %w", err)
	}

	stored, err := l.overrides.Load()
	if err != nil {
		return nil, err
	}

	configs := map[string]ProviderConfig{
		"openai": {
			ID:      "openai",
			APIKey:  env.OpenAIAPIKey,
			BaseURL: env.OpenAIBaseURL,
			Model:   env.OpenAIModel,
		},
		"anthropic": {
			ID:      "anthropic",
			APIKey:  env.AnthropicAPIKey,
			BaseURL: env.AnthropicBaseURL,
			Model:   env.AnthropicModel,
		},
		"gemini": {
			ID:     "gemini",
			APIKey: env.GeminiAPIKey,
			Model:  env.GeminiModel,
		},
		"local": {
			ID:      "local",
			BaseURL: env.LocalBaseURL,
			Model:   env.LocalModel,
		},
		"template": {ID: "template"},
	}

	for id, cfg := range configs {
		override, ok := stored[id]
		if !ok {
			continue
		}
		if override.APIKey != "" {
			cfg.APIKey = override.APIKey
		}
		if override.BaseURL != "" {
			cfg.BaseURL = override.BaseURL
		}
		if override.Model != "" {
			cfg.Model = override.Model
		}
		configs[id] = cfg
	}

	return configs, nil
}

// DefaultProviderID returns the provider id requests fall back to when
// none is named, from DEFAULT_AI_PROVIDER (default "template").
func (l *Loader) DefaultProviderID() string {
	var env envSettings
	if err := envconfig.Process("", &env); err != nil {
		return "template"
	}
	return env.DefaultProvider
}
