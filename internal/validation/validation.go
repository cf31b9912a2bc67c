// Package validation evaluates PRD content against pattern rules.
//
// Rules come from two places: a fixed built-in set defined here (never
// persisted) and custom rules stored in the database. Each rule is a
// regular-expression source with a polarity flag: must-match rules pass
// when the pattern matches the document, must-not-match rules pass when
// it doesn't.
package validation

import (
	"fmt"
	"regexp"
)

// Rule is one evaluatable pattern rule.
type Rule struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Pattern     string `json:"pattern"`
	// MustMatch is the polarity: true means a match indicates compliance.
	MustMatch bool `json:"mustMatch"`
}

// RuleResult is the outcome of evaluating a single rule.
type RuleResult struct {
	RuleID   string `json:"ruleId"`
	RuleName string `json:"ruleName"`
	Passed   bool   `json:"passed"`
	// Error is set when the rule itself could not be evaluated, e.g. a
	// malformed pattern. An erroring rule counts as failed but never
	// aborts evaluation of the remaining rules.
	Error string `json:"error,omitempty"`
}

// Report is the structured pass/fail outcome for a document.
type Report struct {
	Valid   bool         `json:"valid"`
	Passed  int          `json:"passed"`
	Failed  int          `json:"failed"`
	Results []RuleResult `json:"results"`
}

// BuiltinRules returns the fixed rule set applied to every validation.
// These are process configuration, not data; they never hit the store.
func BuiltinRules() []Rule {
	return []Rule{
		{
			ID:          "overview-section",
			Name:        "Has overview section",
			Description: "The PRD contains an introduction or product overview section",
			Pattern:     `(?i)#+.*\b(overview|introduction)\b`,
			MustMatch:   true,
		},
		{
			ID:          "target-audience",
			Name:        "Names a target audience",
			Description: "The PRD identifies who the product is for",
			Pattern:     `(?i)target audience|target users`,
			MustMatch:   true,
		},
		{
			ID:          "features-section",
			Name:        "Has features section",
			Description: "The PRD contains a features section",
			Pattern:     `(?i)#+.*\bfeatures\b`,
			MustMatch:   true,
		},
		{
			ID:          "feature-list",
			Name:        "Lists features",
			Description: "The PRD enumerates at least one feature as a list item",
			Pattern:     `(?m)^\s*[-*•]\s+\S`,
			MustMatch:   true,
		},
		{
			ID:          "timeline-mention",
			Name:        "Mentions timeline",
			Description: "The PRD addresses timeline, milestones, or scheduling",
			Pattern:     `(?i)timeline|milestone|schedule`,
			MustMatch:   true,
		},
		{
			ID:          "minimum-substance",
			Name:        "Minimum substance",
			Description: "The PRD is long enough to plausibly be a real document",
			Pattern:     `(?s).{300,}`,
			MustMatch:   true,
		},
	}
}

// Evaluate runs every rule against content and aggregates a report.
// A malformed pattern fails its own rule and nothing else.
func Evaluate(content string, rules []Rule) Report {
	report := Report{Results: make([]RuleResult, 0, len(rules))}

	for _, rule := range rules {
		result := RuleResult{RuleID: rule.ID, RuleName: rule.Name}

		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			result.Error = fmt.Sprintf("invalid pattern: %v", err)
		} else {
			result.Passed = re.MatchString(content) == rule.MustMatch
		}

		if result.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
		report.Results = append(report.Results, result)
	}

	report.Valid = report.Failed == 0
	return report
}
