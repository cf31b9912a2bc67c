package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/prdforge/prdforge/internal/config"
	"github.com/prdforge/prdforge/internal/storage"
)

// newToolStore creates a seeded Store in a temp directory.
func newToolStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.New(storage.Config{DataDir: t.TempDir()}, zerolog.Nop())
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	if err := s.InitializeDefaults(); err != nil {
		t.Fatalf("seeding store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newToolLoader(t *testing.T) (*config.Loader, *config.OverrideStore) {
	t.Helper()
	overrides := config.NewOverrideStore(t.TempDir())
	return config.NewLoader(overrides), overrides
}

// makeRequest builds a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// isErrorResult reports whether a tool result is an error result.
func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func productArgs() map[string]any {
	return map[string]any{
		"productName":        "Acme",
		"productDescription": "A widget platform",
		"targetAudience":     "Widget engineers",
		"coreFeatures":       []any{"Designer", "Marketplace"},
	}
}

// ─── generate_prd ────────────────────────────────────────────────────────────

func TestGeneratePRD_FallsBackToTemplate(t *testing.T) {
	// Make sure ambient credentials can't turn this into a network call.
	for _, key := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "LOCAL_MODEL_API_URL"} {
		t.Setenv(key, "")
	}

	store := newToolStore(t)
	loader, _ := newToolLoader(t)
	tool := NewGeneratePRDTool(store, loader, zerolog.Nop())

	result, err := tool.Handle(context.Background(), makeRequest(productArgs()))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("expected success, got: %s", getResultText(result))
	}

	text := getResultText(result)
	if !strings.Contains(text, "Acme") {
		t.Errorf("PRD missing product name:\n%s", text)
	}
	if !strings.Contains(text, "- Designer") {
		t.Errorf("PRD missing feature bullets:\n%s", text)
	}

	// Without AI backends, the call counts as a fallback and a generation.
	metrics, err := store.Metrics()
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	counts := map[string]int64{}
	for _, m := range metrics {
		counts[m.Name] = m.Count
	}
	if counts["fallbacks"] != 1 {
		t.Errorf("fallbacks = %d, want 1", counts["fallbacks"])
	}
	if counts["prd_generated"] != 1 {
		t.Errorf("prd_generated = %d, want 1", counts["prd_generated"])
	}
	if counts["ai_calls"] != 0 {
		t.Errorf("ai_calls = %d, want 0", counts["ai_calls"])
	}
}

func TestGeneratePRD_RequiresCoreFeatures(t *testing.T) {
	store := newToolStore(t)
	loader, _ := newToolLoader(t)
	tool := NewGeneratePRDTool(store, loader, zerolog.Nop())

	args := productArgs()
	args["coreFeatures"] = []any{}

	result, err := tool.Handle(context.Background(), makeRequest(args))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("expected error result for empty coreFeatures")
	}
}

func TestGeneratePRD_RequiresProductName(t *testing.T) {
	store := newToolStore(t)
	loader, _ := newToolLoader(t)
	tool := NewGeneratePRDTool(store, loader, zerolog.Nop())

	args := productArgs()
	delete(args, "productName")

	result, _ := tool.Handle(context.Background(), makeRequest(args))
	if !isErrorResult(result) {
		t.Fatal("expected error result for missing productName")
	}
}

// ─── render_template ─────────────────────────────────────────────────────────

func TestRenderTemplate_DefaultsToStandard(t *testing.T) {
	store := newToolStore(t)
	tool := NewRenderTemplateTool(store, zerolog.Nop())

	result, err := tool.Handle(context.Background(), makeRequest(productArgs()))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("expected success, got: %s", getResultText(result))
	}

	text := getResultText(result)
	if strings.Contains(text, "{{") {
		t.Errorf("unsubstituted tokens remain:\n%s", text)
	}
	if !strings.Contains(text, "Acme") {
		t.Error("rendered output missing product name")
	}
}

func TestRenderTemplate_UnknownTemplate(t *testing.T) {
	store := newToolStore(t)
	tool := NewRenderTemplateTool(store, zerolog.Nop())

	args := productArgs()
	args["templateName"] = "no-such-template"

	result, _ := tool.Handle(context.Background(), makeRequest(args))
	if !isErrorResult(result) {
		t.Fatal("expected error result for unknown template")
	}
	if !strings.Contains(getResultText(result), "not found") {
		t.Errorf("error text = %q", getResultText(result))
	}
}

// ─── validate_prd ────────────────────────────────────────────────────────────

func TestValidatePRD_ReportsResults(t *testing.T) {
	store := newToolStore(t)
	tool := NewValidatePRDTool(store, zerolog.Nop())

	prd := `# Acme

## Overview
A widget platform for widget engineers, described at length so the
document clears the substance threshold. It covers the target audience,
planned features, and delivery schedule for the first three releases.

## Target Audience
Widget engineers.

## Features
- Designer
- Marketplace

## Timeline
Q3 MVP.
`
	result, err := tool.Handle(context.Background(), makeRequest(map[string]any{"prdContent": prd}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("expected success, got: %s", getResultText(result))
	}

	var report struct {
		Valid   bool `json:"valid"`
		Passed  int  `json:"passed"`
		Failed  int  `json:"failed"`
		Results []struct {
			RuleID string `json:"ruleId"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(getResultText(result)), &report); err != nil {
		t.Fatalf("parsing report: %v", err)
	}
	if !report.Valid {
		t.Errorf("expected valid report, got %+v", report)
	}
	if len(report.Results) == 0 {
		t.Error("expected per-rule results")
	}
}

func TestValidatePRD_CustomRuleWithBadPatternIsIsolated(t *testing.T) {
	store := newToolStore(t)
	if err := store.AddRule(storage.ValidationRule{
		ID: "custom-bad", Name: "broken", Pattern: `([`, MustMatch: true,
	}); err != nil {
		t.Fatalf("AddRule: %v", err)
	}
	tool := NewValidatePRDTool(store, zerolog.Nop())

	result, err := tool.Handle(context.Background(), makeRequest(map[string]any{"prdContent": "short"}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("bad custom rule aborted validation: %s", getResultText(result))
	}
	if !strings.Contains(getResultText(result), "custom-bad") {
		t.Error("broken rule missing from report")
	}
}

func TestValidatePRD_RuleFilter(t *testing.T) {
	store := newToolStore(t)
	tool := NewValidatePRDTool(store, zerolog.Nop())

	result, err := tool.Handle(context.Background(), makeRequest(map[string]any{
		"prdContent":      "anything",
		"validationRules": []any{"minimum-substance"},
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	var report struct {
		Results []struct {
			RuleID string `json:"ruleId"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(getResultText(result)), &report); err != nil {
		t.Fatalf("parsing report: %v", err)
	}
	if len(report.Results) != 1 || report.Results[0].RuleID != "minimum-substance" {
		t.Errorf("filter not applied, results = %+v", report.Results)
	}
}

// ─── template tools ──────────────────────────────────────────────────────────

func TestTemplatesTool_CreateGetUpdateDelete(t *testing.T) {
	store := newToolStore(t)
	tool := NewTemplatesTool(store, zerolog.Nop())
	ctx := context.Background()

	// Create.
	result, err := tool.HandleCreate(ctx, makeRequest(map[string]any{
		"name":    "custom",
		"content": "# {{PRODUCT_NAME}}",
		"tags":    []any{"mine"},
	}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("HandleCreate: err=%v result=%s", err, getResultText(result))
	}
	var created storage.Template
	if err := json.Unmarshal([]byte(getResultText(result)), &created); err != nil {
		t.Fatalf("parsing created template: %v", err)
	}
	if created.Version != 1 {
		t.Errorf("Version = %d, want 1", created.Version)
	}

	// Update bumps the version and snapshots.
	result, err = tool.HandleUpdate(ctx, makeRequest(map[string]any{
		"templateId": created.ID,
		"content":    "# changed",
	}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("HandleUpdate: err=%v result=%s", err, getResultText(result))
	}
	var updated storage.Template
	_ = json.Unmarshal([]byte(getResultText(result)), &updated)
	if updated.Version != 2 {
		t.Errorf("Version after update = %d, want 2", updated.Version)
	}

	// Get with history shows the snapshot.
	result, err = tool.HandleGet(ctx, makeRequest(map[string]any{
		"templateId":      created.ID,
		"includeVersions": true,
	}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("HandleGet: err=%v result=%s", err, getResultText(result))
	}
	if !strings.Contains(getResultText(result), `"versions"`) {
		t.Error("expected versions in response")
	}

	// Delete, then the template is gone from listings but still retrievable.
	result, err = tool.HandleDelete(ctx, makeRequest(map[string]any{"templateId": created.ID}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("HandleDelete: err=%v result=%s", err, getResultText(result))
	}
	result, _ = tool.HandleList(ctx, makeRequest(nil))
	if strings.Contains(getResultText(result), created.ID) {
		t.Error("deleted template still listed")
	}
	result, _ = tool.HandleGet(ctx, makeRequest(map[string]any{"templateId": created.ID}))
	if isErrorResult(result) {
		t.Error("deleted template should still be retrievable by id")
	}
}

func TestTemplatesTool_ExportImportRoundTrip(t *testing.T) {
	store := newToolStore(t)
	tool := NewTemplatesTool(store, zerolog.Nop())
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "templates.json")

	result, err := tool.HandleExport(ctx, makeRequest(map[string]any{"filePath": path}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("HandleExport: err=%v result=%s", err, getResultText(result))
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("export file missing: %v", err)
	}

	// Importing the same file upserts by name: no duplicates.
	before, _ := store.ListTemplates()
	result, err = tool.HandleImport(ctx, makeRequest(map[string]any{"filePath": path}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("HandleImport: err=%v result=%s", err, getResultText(result))
	}
	after, _ := store.ListTemplates()
	if len(after) != len(before) {
		t.Errorf("import duplicated templates: %d -> %d", len(before), len(after))
	}
}

// ─── rule tools ──────────────────────────────────────────────────────────────

func TestRulesTool_AddListDelete(t *testing.T) {
	store := newToolStore(t)
	tool := NewRulesTool(store, zerolog.Nop())
	ctx := context.Background()

	result, err := tool.HandleAdd(ctx, makeRequest(map[string]any{
		"id":      "pricing-mention",
		"name":    "mentions pricing",
		"pattern": `(?i)pricing`,
	}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("HandleAdd: err=%v result=%s", err, getResultText(result))
	}
	var added storage.ValidationRule
	if err := json.Unmarshal([]byte(getResultText(result)), &added); err != nil {
		t.Fatalf("parsing added rule: %v", err)
	}
	if !added.MustMatch {
		t.Error("MustMatch should default to true")
	}

	result, _ = tool.HandleListAll(ctx, makeRequest(nil))
	if !strings.Contains(getResultText(result), added.ID) {
		t.Error("custom rule missing from list_all_rules")
	}
	// Built-in listing excludes custom rules.
	result, _ = tool.HandleListBuiltin(ctx, makeRequest(nil))
	if strings.Contains(getResultText(result), added.ID) {
		t.Error("custom rule leaked into list_validation_rules")
	}

	result, _ = tool.HandleDelete(ctx, makeRequest(map[string]any{"id": added.ID}))
	if isErrorResult(result) {
		t.Fatalf("HandleDelete: %s", getResultText(result))
	}
}

func TestRulesTool_HonorsCallerSuppliedID(t *testing.T) {
	store := newToolStore(t)
	tool := NewRulesTool(store, zerolog.Nop())
	ctx := context.Background()

	result, err := tool.HandleAdd(ctx, makeRequest(map[string]any{
		"id":      "my-rule-1",
		"name":    "my rule",
		"pattern": `(?i)roadmap`,
	}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("HandleAdd: err=%v result=%s", err, getResultText(result))
	}

	stored, err := store.GetRule("my-rule-1")
	if err != nil {
		t.Fatalf("GetRule by supplied id: %v", err)
	}
	if stored.ID != "my-rule-1" || stored.Name != "my rule" {
		t.Errorf("stored rule = %+v", stored)
	}

	// The supplied id is addressable through the update and delete tools.
	result, _ = tool.HandleUpdate(ctx, makeRequest(map[string]any{
		"id":   "my-rule-1",
		"name": "renamed rule",
	}))
	if isErrorResult(result) {
		t.Fatalf("HandleUpdate by supplied id: %s", getResultText(result))
	}

	// Reusing an id is rejected rather than silently remapped.
	result, _ = tool.HandleAdd(ctx, makeRequest(map[string]any{
		"id":      "my-rule-1",
		"name":    "duplicate",
		"pattern": `x`,
	}))
	if !isErrorResult(result) {
		t.Fatal("expected error result for duplicate rule id")
	}
}

func TestRulesTool_AddRequiresID(t *testing.T) {
	store := newToolStore(t)
	tool := NewRulesTool(store, zerolog.Nop())

	result, _ := tool.HandleAdd(context.Background(), makeRequest(map[string]any{
		"name":    "no id",
		"pattern": `x`,
	}))
	if !isErrorResult(result) {
		t.Fatal("expected error result when id is missing")
	}
}

func TestRulesTool_RejectsInvalidPattern(t *testing.T) {
	store := newToolStore(t)
	tool := NewRulesTool(store, zerolog.Nop())

	result, _ := tool.HandleAdd(context.Background(), makeRequest(map[string]any{
		"id":      "broken-rule",
		"name":    "broken",
		"pattern": `([`,
	}))
	if !isErrorResult(result) {
		t.Fatal("expected error result for invalid pattern")
	}
}

func TestRulesTool_ProtectsBuiltins(t *testing.T) {
	store := newToolStore(t)
	tool := NewRulesTool(store, zerolog.Nop())

	result, _ := tool.HandleDelete(context.Background(), makeRequest(map[string]any{
		"id": "overview-section",
	}))
	if !isErrorResult(result) {
		t.Fatal("expected error when deleting a built-in rule")
	}
}

// ─── provider config tools ───────────────────────────────────────────────────

func TestProviderConfigTool_NeverEchoesAPIKeys(t *testing.T) {
	loader, overrides := newToolLoader(t)
	tool := NewProviderConfigTool(loader, overrides, zerolog.Nop())
	ctx := context.Background()

	result, err := tool.HandleUpdate(ctx, makeRequest(map[string]any{
		"providerId": "openai",
		"apiKey":     "sk-super-secret",
		"model":      "gpt-4o",
	}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("HandleUpdate: err=%v result=%s", err, getResultText(result))
	}

	result, err = tool.HandleGet(ctx, makeRequest(nil))
	if err != nil || isErrorResult(result) {
		t.Fatalf("HandleGet: err=%v result=%s", err, getResultText(result))
	}
	text := getResultText(result)
	if strings.Contains(text, "sk-super-secret") {
		t.Error("API key echoed back in get_provider_config")
	}
	if !strings.Contains(text, `"hasApiKey": true`) {
		t.Errorf("expected hasApiKey true for openai:\n%s", text)
	}
	if !strings.Contains(text, "gpt-4o") {
		t.Error("model override missing from effective config")
	}
}

// ─── operational tools ───────────────────────────────────────────────────────

func TestListProvidersTool_TemplateAlwaysAvailable(t *testing.T) {
	store := newToolStore(t)
	loader, _ := newToolLoader(t)
	tool := NewListProvidersTool(store, loader, zerolog.Nop())

	result, err := tool.Handle(context.Background(), makeRequest(nil))
	if err != nil || isErrorResult(result) {
		t.Fatalf("Handle: err=%v result=%s", err, getResultText(result))
	}

	var statuses []struct {
		ID        string `json:"id"`
		Available bool   `json:"available"`
	}
	if err := json.Unmarshal([]byte(getResultText(result)), &statuses); err != nil {
		t.Fatalf("parsing statuses: %v", err)
	}
	if len(statuses) != 5 {
		t.Fatalf("len(statuses) = %d, want 5", len(statuses))
	}
	found := false
	for _, s := range statuses {
		if s.ID == "template" && s.Available {
			found = true
		}
	}
	if !found {
		t.Error("template provider should always be available")
	}
}

func TestStatsTool_ReflectsIncrements(t *testing.T) {
	store := newToolStore(t)
	if err := store.IncrementMetric("ai_calls", 3); err != nil {
		t.Fatal(err)
	}
	tool := NewStatsTool(store, zerolog.Nop())

	result, err := tool.Handle(context.Background(), makeRequest(nil))
	if err != nil || isErrorResult(result) {
		t.Fatalf("Handle: err=%v result=%s", err, getResultText(result))
	}

	var metrics []storage.Metric
	if err := json.Unmarshal([]byte(getResultText(result)), &metrics); err != nil {
		t.Fatalf("parsing metrics: %v", err)
	}
	if len(metrics) != 1 || metrics[0].Name != "ai_calls" || metrics[0].Count != 3 {
		t.Errorf("metrics = %+v, want ai_calls=3", metrics)
	}
}

func TestHealthTool_ReportsHealthyDB(t *testing.T) {
	store := newToolStore(t)
	loader, _ := newToolLoader(t)
	tool := NewHealthTool(store, loader, zerolog.Nop())

	result, err := tool.Handle(context.Background(), makeRequest(nil))
	if err != nil || isErrorResult(result) {
		t.Fatalf("Handle: err=%v result=%s", err, getResultText(result))
	}

	var report struct {
		DB    bool   `json:"db"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(getResultText(result)), &report); err != nil {
		t.Fatalf("parsing report: %v", err)
	}
	if !report.DB {
		t.Errorf("DB = false, error = %q", report.Error)
	}
}

func TestHealthTool_ReportsUnreachableDB(t *testing.T) {
	store := newToolStore(t)
	loader, _ := newToolLoader(t)
	tool := NewHealthTool(store, loader, zerolog.Nop())

	if err := store.Close(); err != nil {
		t.Fatalf("closing store: %v", err)
	}

	result, err := tool.Handle(context.Background(), makeRequest(nil))
	if err != nil || isErrorResult(result) {
		t.Fatalf("Handle: err=%v result=%s", err, getResultText(result))
	}

	var report struct {
		DB    bool   `json:"db"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(getResultText(result)), &report); err != nil {
		t.Fatalf("parsing report: %v", err)
	}
	if report.DB {
		t.Error("DB should be false once the store is closed")
	}
	if !strings.Contains(report.Error, "database") {
		t.Errorf("error = %q, want database failure detail", report.Error)
	}
}

func TestLogsTool_TailsLogFile(t *testing.T) {
	dir := t.TempDir()
	content := "line one\nline two\nline three"
	if err := os.WriteFile(filepath.Join(dir, "combined.log"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	tool := NewLogsTool(dir, zerolog.Nop())

	result, err := tool.Handle(context.Background(), makeRequest(map[string]any{
		"lines": float64(2),
	}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("Handle: err=%v result=%s", err, getResultText(result))
	}
	if got := getResultText(result); got != "line two\nline three" {
		t.Errorf("tail = %q", got)
	}
}
