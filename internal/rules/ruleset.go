// Package rules recovers validation rule sets from controller and form
// request methods, including the branch conditions that select each set.
package rules

import (
	"fmt"
	"strings"
)

// ConditionKind classifies the boolean test gating a rule set.
type ConditionKind string

const (
	CondHTTPMethod    ConditionKind = "http_method"
	CondUserPresent   ConditionKind = "user_present"
	CondUserCheck     ConditionKind = "user_check"
	CondRequestHas    ConditionKind = "request_has"
	CondRequestFilled ConditionKind = "request_filled"
	CondInputEquals   ConditionKind = "input_equals"
	CondElse          ConditionKind = "else"
	CondCustom        ConditionKind = "custom"
)

// Condition is one classified test on the path to a reachable return.
type Condition struct {
	Kind  ConditionKind `json:"kind"`
	Field string        `json:"field,omitempty"` // RequestHas / RequestFilled / InputEquals
	Value string        `json:"value,omitempty"` // HTTP method, or InputEquals comparand
	Expr  string        `json:"expr,omitempty"`  // raw source text for UserCheck / Custom
}

// Describe renders the condition as a human-readable clause for parameter
// descriptions.
func (c Condition) Describe() string {
	switch c.Kind {
	case CondHTTPMethod:
		return fmt.Sprintf("when the request method is %s", c.Value)
	case CondUserPresent:
		return "when the request is authenticated"
	case CondUserCheck:
		return fmt.Sprintf("when `%s`", c.Expr)
	case CondRequestHas:
		return fmt.Sprintf("when the request has `%s`", c.Field)
	case CondRequestFilled:
		return fmt.Sprintf("when `%s` is filled", c.Field)
	case CondInputEquals:
		return fmt.Sprintf("when `%s` is `%s`", c.Field, c.Value)
	case CondElse:
		return "otherwise"
	default:
		return fmt.Sprintf("when `%s`", c.Expr)
	}
}

// RuleSet is the rule map returned by one reachable return statement plus
// the ANDed conditions selecting it. RuleSets from one method are ordered by
// source appearance.
type RuleSet struct {
	Conditions []Condition         `json:"conditions"`
	Fields     []string            `json:"fields"` // key order of Rules, source order
	Rules      map[string][]string `json:"rules"`
}

// DescribeConditions joins the condition clauses for display.
func (rs RuleSet) DescribeConditions() string {
	if len(rs.Conditions) == 0 {
		return ""
	}
	parts := make([]string, len(rs.Conditions))
	for i, c := range rs.Conditions {
		parts[i] = c.Describe()
	}
	return strings.Join(parts, " and ")
}

// Extraction is the complete result for one method: every reachable rule set
// and the best-effort overlay of all of them in source order.
type Extraction struct {
	RuleSets     []RuleSet           `json:"rule_sets"`
	Merged       map[string][]string `json:"merged_rules"`
	MergedFields []string            `json:"merged_fields"`
}

// ruleMap is an insertion-ordered field → tokens map used during resolution.
type ruleMap struct {
	fields []string
	rules  map[string][]string
}

func newRuleMap() *ruleMap {
	return &ruleMap{rules: make(map[string][]string)}
}

// set records tokens for a field, overwriting any earlier value but keeping
// the field's original position.
func (m *ruleMap) set(field string, tokens []string) {
	if _, ok := m.rules[field]; !ok {
		m.fields = append(m.fields, field)
	}
	m.rules[field] = tokens
}

// overlay applies other on top of m: colliding fields take other's tokens.
func (m *ruleMap) overlay(other *ruleMap) {
	for _, f := range other.fields {
		m.set(f, other.rules[f])
	}
}

func (m *ruleMap) isEmpty() bool { return len(m.fields) == 0 }
