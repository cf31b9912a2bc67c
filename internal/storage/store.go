// Package storage implements the persistent store for prdforge.
//
// It uses SQLite to hold PRD templates, their version history, custom
// validation rules, and metric counters. Templates are soft-deleted and
// copy-on-write versioned: every update snapshots the prior content into
// template_versions before overwriting the live row.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a template or rule lookup matches nothing.
var ErrNotFound = errors.New("not found")

// ─── Types ───────────────────────────────────────────────────────────────────

// Template is a PRD template row. Content is markdown with placeholder
// tokens ({{PRODUCT_NAME}} and friends).
type Template struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags"`
	Version     int      `json:"version"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
	Deleted     bool     `json:"deleted,omitempty"`
}

// TemplateSummary is a template row without its content. Listings return
// summaries because content is heavyweight and fetched only via Get.
type TemplateSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	Tags        []string `json:"tags"`
	Version     int      `json:"version"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

// VersionSnapshot is an immutable copy of a template's content taken
// immediately before an update superseded it.
type VersionSnapshot struct {
	ID         string `json:"id"`
	TemplateID string `json:"templateId"`
	Version    int    `json:"version"`
	Content    string `json:"content"`
	CreatedAt  string `json:"createdAt"`
}

// ValidationRule is a caller-defined pattern rule evaluated against PRD
// content. MustMatch controls polarity: true means a pattern match
// indicates compliance, false means a match indicates a violation.
type ValidationRule struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Pattern     string  `json:"pattern"`
	MustMatch   bool    `json:"mustMatch"`
}

// Metric is a named monotonic counter.
type Metric struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// CreateTemplateParams holds the input for creating a template.
type CreateTemplateParams struct {
	Name        string
	Description string
	Content     string
	Tags        []string
}

// UpdateTemplateParams holds partial update fields for a template.
// Nil fields retain their prior values; a non-nil Tags slice replaces
// the tag list wholesale.
type UpdateTemplateParams struct {
	Name        *string
	Description *string
	Content     *string
	Tags        []string
}

// UpdateRuleParams holds partial update fields for a validation rule.
type UpdateRuleParams struct {
	Name        *string
	Description *string
	Pattern     *string
	MustMatch   *bool
}

// ExportedTemplate is the on-disk shape of one template in an export file.
// Import reads the same shape; ids and versions are regenerated on import.
type ExportedTemplate struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags"`
	Version     int      `json:"version,omitempty"`
	CreatedAt   string   `json:"createdAt,omitempty"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds store configuration.
type Config struct {
	// DataDir is where the database file lives. Created if missing.
	DataDir string
	// DBFile overrides the database file name (default prdforge.db).
	DBFile string
}

// DefaultConfig returns the default store configuration, honoring the
// DB_PATH environment variable when set.
func DefaultConfig() Config {
	if p := os.Getenv("DB_PATH"); p != "" {
		return Config{DataDir: filepath.Dir(p), DBFile: filepath.Base(p)}
	}
	home, _ := os.UserHomeDir()
	return Config{DataDir: filepath.Join(home, ".prdforge")}
}

func (c Config) dbPath() string {
	name := c.DBFile
	if name == "" {
		name = "prdforge.db"
	}
	return filepath.Join(c.DataDir, name)
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the persistent layer backed by SQLite.
type Store struct {
	db  *sql.DB
	cfg Config
	log zerolog.Logger
}

// New creates a Store with the given configuration. It creates the data
// directory if needed, opens SQLite with WAL mode, and runs migrations.
func New(cfg Config, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.dbPath())
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("storage: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg, log: log}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("storage: migration: %w", err)
	}

	log.Info().Str("path", cfg.dbPath()).Msg("database ready")
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable. Used by health_check.
func (s *Store) Ping() error {
	var one int
	return s.db.QueryRow("SELECT 1").Scan(&one)
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS templates (
			id          TEXT PRIMARY KEY,
			name        TEXT    NOT NULL,
			description TEXT,
			content     TEXT    NOT NULL,
			tags        TEXT,
			version     INTEGER NOT NULL DEFAULT 1,
			deleted     INTEGER NOT NULL DEFAULT 0,
			created_at  TEXT    NOT NULL,
			updated_at  TEXT    NOT NULL
		);

		CREATE TABLE IF NOT EXISTS template_versions (
			id          TEXT PRIMARY KEY,
			template_id TEXT    NOT NULL,
			version     INTEGER NOT NULL,
			content     TEXT    NOT NULL,
			created_at  TEXT    NOT NULL,
			FOREIGN KEY (template_id) REFERENCES templates(id)
		);

		CREATE TABLE IF NOT EXISTS validation_rules (
			id          TEXT PRIMARY KEY,
			name        TEXT    NOT NULL,
			description TEXT,
			pattern     TEXT    NOT NULL,
			must_match  INTEGER NOT NULL DEFAULT 1
		);

		CREATE TABLE IF NOT EXISTS metrics (
			name  TEXT PRIMARY KEY,
			count INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_templates_name ON templates(name);
		CREATE INDEX IF NOT EXISTS idx_templates_deleted ON templates(deleted);
		CREATE INDEX IF NOT EXISTS idx_versions_template ON template_versions(template_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Databases created before the polarity flag existed gain the column
	// on upgrade; the error when it already exists is expected.
	_, _ = s.db.Exec(`ALTER TABLE validation_rules ADD COLUMN must_match INTEGER NOT NULL DEFAULT 1`)

	return nil
}

// ─── Templates ───────────────────────────────────────────────────────────────

// GetTemplate looks a template up by id first, falling back to name.
// Direct lookup deliberately includes soft-deleted rows.
func (s *Store) GetTemplate(idOrName string) (*Template, error) {
	const cols = `id, name, description, content, tags, version, deleted, created_at, updated_at`

	row := s.db.QueryRow(`SELECT `+cols+` FROM templates WHERE id = ?`, idOrName)
	t, err := scanTemplate(row)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	row = s.db.QueryRow(`SELECT `+cols+` FROM templates WHERE name = ? LIMIT 1`, idOrName)
	t, err = scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template %q: %w", idOrName, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CreateTemplate persists a new template at version 1 with a fresh id.
func (s *Store) CreateTemplate(p CreateTemplateParams) (*Template, error) {
	id := uuid.NewString()
	now := timestamp()

	_, err := s.db.Exec(
		`INSERT INTO templates (id, name, description, content, tags, version, deleted, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 1, 0, ?, ?)`,
		id, p.Name, nullableString(p.Description), p.Content, marshalTags(p.Tags), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: create template: %w", err)
	}

	s.log.Info().Str("name", p.Name).Str("id", id).Msg("created template")

	return &Template{
		ID:          id,
		Name:        p.Name,
		Description: optString(p.Description),
		Content:     p.Content,
		Tags:        normalizeTags(p.Tags),
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// UpdateTemplate applies a partial update to a template, snapshotting the
// current content into template_versions first and bumping the version.
//
// The snapshot insert and the live-row update are two separate statements
// with no transaction spanning them. A crash between the two can leave a
// snapshot without the matching update or vice versa; this mirrors the
// behavior the data model was built around and is a known gap.
func (s *Store) UpdateTemplate(id string, p UpdateTemplateParams) (*Template, error) {
	current, err := s.GetTemplate(id)
	if err != nil {
		return nil, err
	}

	now := timestamp()
	newVersion := current.Version + 1

	_, err = s.db.Exec(
		`INSERT INTO template_versions (id, template_id, version, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), current.ID, current.Version, current.Content, now,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: snapshot version: %w", err)
	}

	name := current.Name
	if p.Name != nil {
		name = *p.Name
	}
	description := current.Description
	if p.Description != nil {
		description = optString(*p.Description)
	}
	content := current.Content
	if p.Content != nil {
		content = *p.Content
	}
	tags := current.Tags
	if p.Tags != nil {
		tags = p.Tags
	}

	_, err = s.db.Exec(
		`UPDATE templates
		 SET name = ?, description = ?, content = ?, tags = ?, version = ?, updated_at = ?
		 WHERE id = ?`,
		name, nullablePtr(description), content, marshalTags(tags), newVersion, now, current.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: update template: %w", err)
	}

	s.log.Info().Str("name", name).Str("id", current.ID).Int("version", newVersion).Msg("updated template")

	return &Template{
		ID:          current.ID,
		Name:        name,
		Description: description,
		Content:     content,
		Tags:        normalizeTags(tags),
		Version:     newVersion,
		CreatedAt:   current.CreatedAt,
		UpdatedAt:   now,
		Deleted:     current.Deleted,
	}, nil
}

// ListTemplates returns all non-deleted templates without their content,
// ordered by name.
func (s *Store) ListTemplates() ([]TemplateSummary, error) {
	rows, err := s.db.Query(
		`SELECT id, name, description, tags, version, created_at, updated_at
		 FROM templates
		 WHERE deleted = 0
		 ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []TemplateSummary
	for rows.Next() {
		var t TemplateSummary
		var tags sql.NullString
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &tags, &t.Version, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.Tags = unmarshalTags(tags)
		result = append(result, t)
	}
	return result, rows.Err()
}

// DeleteTemplate soft-deletes a template. Idempotent: deleting an
// already-deleted or unknown id succeeds without error.
func (s *Store) DeleteTemplate(id string) error {
	_, err := s.db.Exec(
		`UPDATE templates SET deleted = 1, updated_at = ? WHERE id = ?`,
		timestamp(), id,
	)
	if err != nil {
		return fmt.Errorf("storage: delete template: %w", err)
	}
	s.log.Info().Str("id", id).Msg("deleted template")
	return nil
}

// ListVersions returns the version history of a template, newest first.
func (s *Store) ListVersions(templateID string) ([]VersionSnapshot, error) {
	rows, err := s.db.Query(
		`SELECT id, template_id, version, content, created_at
		 FROM template_versions
		 WHERE template_id = ?
		 ORDER BY version DESC`,
		templateID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []VersionSnapshot
	for rows.Next() {
		var v VersionSnapshot
		if err := rows.Scan(&v.ID, &v.TemplateID, &v.Version, &v.Content, &v.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

// ─── Export / Import ─────────────────────────────────────────────────────────

// ExportTemplates writes every non-deleted template, content included,
// to a JSON array at path.
func (s *Store) ExportTemplates(path string) error {
	rows, err := s.db.Query(
		`SELECT id, name, description, content, tags, version, created_at, updated_at
		 FROM templates
		 WHERE deleted = 0
		 ORDER BY name`,
	)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	exports := []ExportedTemplate{}
	for rows.Next() {
		var e ExportedTemplate
		var tags sql.NullString
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.Content, &tags, &e.Version, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return err
		}
		e.Tags = unmarshalTags(tags)
		exports = append(exports, e)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(exports, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshal export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("storage: write export: %w", err)
	}

	s.log.Info().Str("path", path).Int("count", len(exports)).Msg("exported templates")
	return nil
}

// ImportTemplates reads a JSON array of templates from path and upserts
// each entry keyed by name: existing names are updated (creating a version
// snapshot), unknown names are created.
func (s *Store) ImportTemplates(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("storage: read import: %w", err)
	}

	var imports []ExportedTemplate
	if err := json.Unmarshal(data, &imports); err != nil {
		return fmt.Errorf("storage: parse import: %w", err)
	}

	for _, t := range imports {
		existing, err := s.GetTemplate(t.Name)
		switch {
		case err == nil:
			_, err = s.UpdateTemplate(existing.ID, UpdateTemplateParams{
				Name:        &t.Name,
				Description: t.Description,
				Content:     &t.Content,
				Tags:        t.Tags,
			})
			if err != nil {
				return err
			}
		case errors.Is(err, ErrNotFound):
			_, err = s.CreateTemplate(CreateTemplateParams{
				Name:        t.Name,
				Description: derefString(t.Description),
				Content:     t.Content,
				Tags:        t.Tags,
			})
			if err != nil {
				return err
			}
		default:
			return err
		}
	}

	s.log.Info().Str("path", path).Int("count", len(imports)).Msg("imported templates")
	return nil
}

// ─── Validation rules ────────────────────────────────────────────────────────

// ListRules returns all custom validation rules ordered by id.
func (s *Store) ListRules() ([]ValidationRule, error) {
	rows, err := s.db.Query(
		`SELECT id, name, description, pattern, must_match FROM validation_rules ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []ValidationRule
	for rows.Next() {
		var r ValidationRule
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.Pattern, &r.MustMatch); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// GetRule retrieves a single custom rule by id.
func (s *Store) GetRule(id string) (*ValidationRule, error) {
	row := s.db.QueryRow(
		`SELECT id, name, description, pattern, must_match FROM validation_rules WHERE id = ?`, id,
	)
	var r ValidationRule
	if err := row.Scan(&r.ID, &r.Name, &r.Description, &r.Pattern, &r.MustMatch); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("rule %q: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &r, nil
}

// AddRule creates a custom validation rule with a caller-supplied id.
func (s *Store) AddRule(r ValidationRule) error {
	_, err := s.db.Exec(
		`INSERT INTO validation_rules (id, name, description, pattern, must_match) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.Description, r.Pattern, r.MustMatch,
	)
	if err != nil {
		return fmt.Errorf("storage: add rule: %w", err)
	}
	s.log.Info().Str("id", r.ID).Str("name", r.Name).Msg("added validation rule")
	return nil
}

// UpdateRule applies a partial update to a custom rule.
func (s *Store) UpdateRule(id string, p UpdateRuleParams) error {
	existing, err := s.GetRule(id)
	if err != nil {
		return err
	}

	name := existing.Name
	if p.Name != nil {
		name = *p.Name
	}
	description := existing.Description
	if p.Description != nil {
		description = optString(*p.Description)
	}
	pattern := existing.Pattern
	if p.Pattern != nil {
		pattern = *p.Pattern
	}
	mustMatch := existing.MustMatch
	if p.MustMatch != nil {
		mustMatch = *p.MustMatch
	}

	_, err = s.db.Exec(
		`UPDATE validation_rules SET name = ?, description = ?, pattern = ?, must_match = ? WHERE id = ?`,
		name, description, pattern, mustMatch, id,
	)
	if err != nil {
		return fmt.Errorf("storage: update rule: %w", err)
	}
	return nil
}

// DeleteRule removes a custom rule. Unknown ids are not an error.
func (s *Store) DeleteRule(id string) error {
	_, err := s.db.Exec(`DELETE FROM validation_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("storage: delete rule: %w", err)
	}
	return nil
}

// ─── Metrics ─────────────────────────────────────────────────────────────────

// IncrementMetric atomically adds by to a named counter, creating it
// when absent. by defaults to 1 when zero or negative.
func (s *Store) IncrementMetric(name string, by int64) error {
	if by <= 0 {
		by = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO metrics (name, count) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET count = count + excluded.count`,
		name, by,
	)
	if err != nil {
		return fmt.Errorf("storage: increment metric: %w", err)
	}
	return nil
}

// Metrics returns all counters ordered by name.
func (s *Store) Metrics() ([]Metric, error) {
	rows, err := s.db.Query(`SELECT name, count FROM metrics ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []Metric
	for rows.Next() {
		var m Metric
		if err := rows.Scan(&m.Name, &m.Count); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

type rowLike interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowLike) (*Template, error) {
	var t Template
	var tags sql.NullString
	var deleted int
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.Content, &tags, &t.Version, &deleted, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Tags = unmarshalTags(tags)
	t.Deleted = deleted != 0
	return &t, nil
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func marshalTags(tags []string) any {
	if len(tags) == 0 {
		return nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil
	}
	return string(data)
}

func unmarshalTags(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw.String), &tags); err != nil {
		return []string{}
	}
	return tags
}

func normalizeTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullablePtr(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
