package providers

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/prdforge/prdforge/internal/config"
)

// registeredIDs is the closed set of provider identifiers, in listing order.
var registeredIDs = []string{"openai", "gemini", "anthropic", "local", "template"}

// priorityOrder is the auto-selection order, distinct from registration
// order. The template fallback is not listed: it is the terminal case.
var priorityOrder = []string{"openai", "anthropic", "gemini", "local"}

// Status describes one provider's availability for listings.
type Status struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// Manager constructs, caches, and selects providers. Configuration is
// captured at construction; callers that need freshly merged config
// build a new Manager.
type Manager struct {
	configs   map[string]config.ProviderConfig
	templates TemplateSource
	log       zerolog.Logger

	mu        sync.Mutex
	instances map[string]Provider
}

// NewManager creates a Manager over the given merged configurations.
func NewManager(configs map[string]config.ProviderConfig, templates TemplateSource, log zerolog.Logger) *Manager {
	return &Manager{
		configs:   configs,
		templates: templates,
		log:       log,
		instances: make(map[string]Provider),
	}
}

// Provider returns the cached instance for id, constructing it on first
// use. Unknown ids are an error.
func (m *Manager) Provider(id string) (Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.instances[id]; ok {
		return p, nil
	}

	p, err := m.build(id)
	if err != nil {
		return nil, err
	}
	m.instances[id] = p
	return p, nil
}

// build is the closed-variant factory: one case per known backend.
func (m *Manager) build(id string) (Provider, error) {
	cfg := m.configs[id]
	cfg.ID = id

	switch id {
	case "openai":
		return newOpenAIProvider(cfg, m.log), nil
	case "anthropic":
		return newAnthropicProvider(cfg, m.log), nil
	case "gemini":
		return newGeminiProvider(cfg, m.log), nil
	case "local":
		return newLocalProvider(cfg, m.log), nil
	case "template":
		if m.templates == nil {
			return nil, fmt.Errorf("providers: template source not configured")
		}
		return newFallbackProvider(m.templates, m.log), nil
	default:
		return nil, fmt.Errorf("providers: unknown provider %q", id)
	}
}

// ListAvailable reports every registered provider with its availability.
// A failed construction is reported as unavailable, never propagated.
func (m *Manager) ListAvailable() []Status {
	result := make([]Status, 0, len(registeredIDs))
	for _, id := range registeredIDs {
		p, err := m.Provider(id)
		if err != nil {
			m.log.Warn().Err(err).Str("provider", id).Msg("availability check failed")
			result = append(result, Status{ID: id, Name: id, Available: false})
			continue
		}
		result = append(result, Status{ID: p.ID(), Name: p.Name(), Available: p.Available()})
	}
	return result
}

// Select returns the provider to serve a generation request:
//
//  1. the preferred provider, when given, resolvable, and available;
//  2. otherwise the first available provider in priority order;
//  3. otherwise the template fallback, which is always available.
//
// An error is returned only when even the fallback cannot be
// constructed — the one unrecoverable condition in the system.
func (m *Manager) Select(preferredID string) (Provider, error) {
	if preferredID != "" {
		p, err := m.Provider(preferredID)
		switch {
		case err != nil:
			m.log.Warn().Err(err).Str("provider", preferredID).Msg("preferred provider unresolvable")
		case p.Available():
			m.log.Info().Str("provider", p.ID()).Msg("using preferred provider")
			return p, nil
		default:
			m.log.Warn().Str("provider", preferredID).Msg("preferred provider unavailable, trying fallback chain")
		}
	}

	for _, id := range priorityOrder {
		p, err := m.Provider(id)
		if err != nil {
			m.log.Warn().Err(err).Str("provider", id).Msg("skipping provider")
			continue
		}
		if p.Available() {
			m.log.Info().Str("provider", p.ID()).Msg("selected provider")
			return p, nil
		}
	}

	m.log.Info().Msg("no AI provider available, using template fallback")
	p, err := m.Provider("template")
	if err != nil {
		return nil, fmt.Errorf("critical: even the fallback provider is unavailable: %w", err)
	}
	return p, nil
}
