package diag

import (
	"fmt"
	"sort"
	"strings"
)

// Severity classifies how a finding affects the run.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Category identifies the kind of analysis failure.
type Category string

const (
	CategoryParseFailure         Category = "parse_failure"
	CategoryUnresolvedExpression Category = "unresolved_expression"
	CategoryStructuralMismatch   Category = "structural_mismatch"
)

// Finding is a single diagnostic recorded during analysis.
type Finding struct {
	Severity Severity `json:"severity"`
	Category Category `json:"category"`
	Message  string   `json:"message"`
	File     string   `json:"file,omitempty"`
	Line     int      `json:"line,omitempty"`
}

func (f Finding) String() string {
	loc := f.File
	if f.Line > 0 {
		loc = fmt.Sprintf("%s:%d", f.File, f.Line)
	}
	if loc == "" {
		return fmt.Sprintf("[%s] %s: %s", f.Severity, f.Category, f.Message)
	}
	return fmt.Sprintf("[%s] %s: %s (%s)", f.Severity, f.Category, f.Message, loc)
}

// Collector accumulates findings for one analysis run. Collectors are not
// safe for concurrent use; each worker owns its own collector and the
// results are combined with Merge after the workers join.
type Collector struct {
	findings []Finding
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Warn records a warning-grade finding.
func (c *Collector) Warn(cat Category, file string, line int, format string, args ...any) {
	c.findings = append(c.findings, Finding{
		Severity: SeverityWarning,
		Category: cat,
		Message:  fmt.Sprintf(format, args...),
		File:     file,
		Line:     line,
	})
}

// Error records an error-grade finding. Errors still never abort the batch;
// fail-fast is a caller policy applied after the fact.
func (c *Collector) Error(cat Category, file string, line int, format string, args ...any) {
	c.findings = append(c.findings, Finding{
		Severity: SeverityError,
		Category: cat,
		Message:  fmt.Sprintf(format, args...),
		File:     file,
		Line:     line,
	})
}

// Merge appends all findings from other into c.
func (c *Collector) Merge(other *Collector) {
	if other == nil {
		return
	}
	c.findings = append(c.findings, other.findings...)
}

// Findings returns the recorded findings in insertion order.
func (c *Collector) Findings() []Finding {
	return c.findings
}

// HasErrors reports whether any error-grade finding was recorded.
func (c *Collector) HasErrors() bool {
	for _, f := range c.findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Summary returns per-category counts plus the total, for end-of-run
// reporting.
func (c *Collector) Summary() string {
	if len(c.findings) == 0 {
		return "no diagnostics"
	}
	counts := make(map[Category]int)
	for _, f := range c.findings {
		counts[f.Category]++
	}
	cats := make([]string, 0, len(counts))
	for cat := range counts {
		cats = append(cats, string(cat))
	}
	sort.Strings(cats)
	parts := make([]string, 0, len(cats))
	for _, cat := range cats {
		parts = append(parts, fmt.Sprintf("%s=%d", cat, counts[Category(cat)]))
	}
	return fmt.Sprintf("%d diagnostics (%s)", len(c.findings), strings.Join(parts, ", "))
}
