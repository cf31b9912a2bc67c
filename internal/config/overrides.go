package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Override is a stored partial provider configuration.
// Empty fields do not override the environment value.
type Override struct {
	APIKey  string `json:"apiKey,omitempty"`
	BaseURL string `json:"baseUrl,omitempty"`
	Model   string `json:"model,omitempty"`
}

// OverrideStore persists provider configuration overrides as a flat
// JSON mapping keyed by provider id. Last write wins; no history.
type OverrideStore struct {
	path string
}

// NewOverrideStore creates a store writing to dir/provider-config.json.
func NewOverrideStore(dir string) *OverrideStore {
	return &OverrideStore{path: filepath.Join(dir, "provider-config.json")}
}

// Load reads all stored overrides. A missing or unparseable file yields
// an empty mapping, never an error — a corrupt override file must not
// take provider selection down with it.
func (s *OverrideStore) Load() (map[string]Override, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Override{}, nil
		}
		return nil, fmt.Errorf("config: read overrides: %w", err)
	}

	var overrides map[string]Override
	if err := json.Unmarshal(data, &overrides); err != nil {
		return map[string]Override{}, nil
	}
	if overrides == nil {
		overrides = map[string]Override{}
	}
	return overrides, nil
}

// Update merges the non-empty fields of o into the stored override for
// providerID and persists the result.
func (s *OverrideStore) Update(providerID string, o Override) error {
	overrides, err := s.Load()
	if err != nil {
		return err
	}

	existing := overrides[providerID]
	if o.APIKey != "" {
		existing.APIKey = o.APIKey
	}
	if o.BaseURL != "" {
		existing.BaseURL = o.BaseURL
	}
	if o.Model != "" {
		existing.Model = o.Model
	}
	overrides[providerID] = existing

	data, err := json.MarshalIndent(overrides, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal overrides: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("config: create config dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("config: write overrides: %w", err)
	}
	return nil
}
