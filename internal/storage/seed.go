package storage

import (
	"embed"
	"strings"
)

//go:embed seed/*.md
var seedFS embed.FS

// standardFallback is the minimal template created when the embedded seed
// directory can't be read. It keeps generate_prd and render_template
// working on a broken install.
const standardFallback = `# {{PRODUCT_NAME}} - Product Requirements Document

## Introduction

### Product Overview
{{PRODUCT_DESCRIPTION}}

### Target Audience
{{TARGET_AUDIENCE}}

## Core Features

{{CORE_FEATURES}}

## Constraints and Limitations

{{CONSTRAINTS}}

## User Stories

*To be added by the product team*

## Acceptance Criteria

*To be added for each feature*

## Timeline

*To be determined*

---

Generated on {{DATE}}`

// InitializeDefaults seeds the template table on first run. If the store
// already holds at least one template (deleted or not), it does nothing.
func (s *Store) InitializeDefaults() error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM templates`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		s.log.Info().Int("count", count).Msg("existing templates found, skipping seed")
		return nil
	}

	entries, err := seedFS.ReadDir("seed")
	if err != nil {
		s.log.Warn().Err(err).Msg("seed templates unreadable, creating standard fallback")
		_, err = s.CreateTemplate(CreateTemplateParams{
			Name:        "standard",
			Description: "Standard PRD template",
			Content:     standardFallback,
			Tags:        []string{"default"},
		})
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		content, err := seedFS.ReadFile("seed/" + entry.Name())
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(entry.Name(), ".md")
		if _, err := s.CreateTemplate(CreateTemplateParams{
			Name:        name,
			Description: "Default template: " + name,
			Content:     string(content),
			Tags:        []string{"default"},
		}); err != nil {
			return err
		}
		s.log.Info().Str("name", name).Msg("seeded default template")
	}
	return nil
}
