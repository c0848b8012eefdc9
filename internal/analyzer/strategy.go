package analyzer

import (
	"regexp"
	"strings"

	"github.com/laragen/laragen/internal/diag"
	"github.com/laragen/laragen/internal/phpsrc"
	"github.com/laragen/laragen/internal/rules"
)

// extractionStrategy recovers validation rules for one controller action.
// The AST strategy is precise; the reflective strategy is a lower-fidelity
// fallback used when the source failed to parse. Both return the same
// normalized structures.
type extractionStrategy interface {
	Name() string
	Extract(controller, action string, diags *diag.Collector) (rules.Extraction, map[string]string)
}

// sourceUnit pairs a source file with its parse result. AST is nil when
// parsing failed.
type sourceUnit struct {
	file SourceFile
	ast  *phpsrc.File
}

// strategyFor selects the strategy purely from whether parsing succeeded.
func (s *Service) strategyFor(unit *sourceUnit) extractionStrategy {
	if unit.ast != nil {
		return &astStrategy{unit: unit, index: s.index}
	}
	return &reflectiveStrategy{unit: unit}
}

// astStrategy walks the parsed controller method. Rules come from a
// FormRequest type-hint when one resolves, otherwise from inline
// $request->validate(...) calls rewritten into returns so the conditional
// walker sees them.
type astStrategy struct {
	unit  *sourceUnit
	index map[string]*sourceUnit
}

func (s *astStrategy) Name() string { return "ast" }

func (s *astStrategy) Extract(controller, action string, diags *diag.Collector) (rules.Extraction, map[string]string) {
	cls := s.unit.ast.FindClass(controller)
	if cls == nil {
		cls = s.unit.ast.FindAnonymousClass()
	}
	if cls == nil {
		diags.Warn(diag.CategoryStructuralMismatch, s.unit.file.Path, 0, "class %s not found", controller)
		return rules.Extraction{}, nil
	}
	m := cls.FindMethod(action)
	if m == nil {
		diags.Warn(diag.CategoryStructuralMismatch, s.unit.file.Path, cls.Line, "method %s::%s not found", controller, action)
		return rules.Extraction{}, nil
	}

	// FormRequest type-hint takes precedence: its rules() method is the
	// canonical rule source for the action.
	for _, p := range m.Params {
		if p.Type == "" || p.Type == "Request" {
			continue
		}
		if requestUnit, ok := s.index[p.Type]; ok {
			if ex, aliases, ok := extractFromRequestClass(requestUnit, p.Type, s.index, diags); ok {
				return ex, aliases
			}
		}
	}

	// Inline validation: turn validate-call statements into returns and run
	// the same branch-aware extractor over the method body.
	rewritten := rewriteValidateCalls(m.Body)
	synthetic := &phpsrc.Method{Name: m.Name, Body: rewritten, Line: m.Line}
	ex := rules.NewExtractor(s.unit.file.Path, cls, diags).ExtractMethod(synthetic)
	return ex, s.unit.ast.UseAliases()
}

// extractFromRequestClass runs the conditional extractor over a FormRequest
// class's rules() method, honoring the request file's own parse strategy.
func extractFromRequestClass(unit *sourceUnit, className string, index map[string]*sourceUnit, diags *diag.Collector) (rules.Extraction, map[string]string, bool) {
	if unit.ast == nil {
		refl := &reflectiveStrategy{unit: unit}
		ex, aliases := refl.Extract(className, "rules", diags)
		return ex, aliases, len(ex.RuleSets) > 0
	}
	cls := unit.ast.FindClass(className)
	if cls == nil {
		cls = unit.ast.FindAnonymousClass()
	}
	if cls == nil {
		return rules.Extraction{}, nil, false
	}
	m := cls.FindMethod("rules")
	if m == nil {
		return rules.Extraction{}, nil, false
	}
	ex := rules.NewExtractor(unit.file.Path, cls, diags).ExtractMethod(m)
	return ex, unit.ast.UseAliases(), true
}

// rewriteValidateCalls maps statements containing a validate call onto
// return statements of the call's rule-array argument, preserving the
// branching structure around them.
func rewriteValidateCalls(stmts []phpsrc.Stmt) []phpsrc.Stmt {
	out := make([]phpsrc.Stmt, 0, len(stmts))
	for _, s := range stmts {
		switch s.Kind {
		case phpsrc.StmtExpr, phpsrc.StmtAssign:
			if arr := validateArg(s.Expr); arr != nil {
				out = append(out, phpsrc.Stmt{Kind: phpsrc.StmtReturn, Line: s.Line, Expr: arr})
				continue
			}
			out = append(out, s)
		case phpsrc.StmtIf:
			rewrittenIf := phpsrc.Stmt{Kind: phpsrc.StmtIf, Line: s.Line}
			for _, br := range s.Branches {
				rewrittenIf.Branches = append(rewrittenIf.Branches, phpsrc.IfBranch{
					Cond: br.Cond,
					Body: rewriteValidateCalls(br.Body),
				})
			}
			out = append(out, rewrittenIf)
		default:
			out = append(out, s)
		}
	}
	return out
}

// validateArg returns the rule-array argument of a $request->validate(...)
// or $this->validate($request, ...) call found anywhere in the expression.
func validateArg(e *phpsrc.Expr) *phpsrc.Expr {
	if e == nil {
		return nil
	}
	if e.Kind == phpsrc.KindMethodCall && (e.Name == "validate" || e.Name == "validateWithBag") {
		for _, a := range e.Args {
			if a != nil && a.Kind == phpsrc.KindArray {
				return a
			}
		}
	}
	if e.Target != nil {
		if arr := validateArg(e.Target); arr != nil {
			return arr
		}
	}
	for _, a := range e.Args {
		if arr := validateArg(a); arr != nil {
			return arr
		}
	}
	return nil
}

// reflectiveStrategy harvests field/rule pairs from raw source text with a
// regex when the file could not be parsed. It recovers a single
// unconditional rule set and no alias table: approximate, but enough to
// document field names and basic types.
type reflectiveStrategy struct {
	unit *sourceUnit
}

func (s *reflectiveStrategy) Name() string { return "reflective" }

var rulePairPattern = regexp.MustCompile(`['"]([A-Za-z0-9_.*\[\]]+)['"]\s*=>\s*['"]([^'"]+)['"]`)

func (s *reflectiveStrategy) Extract(controller, action string, diags *diag.Collector) (rules.Extraction, map[string]string) {
	var (
		fields  []string
		ruleMap = make(map[string][]string)
	)
	for _, m := range rulePairPattern.FindAllStringSubmatch(s.unit.file.Content, -1) {
		field, value := m[1], m[2]
		if !looksLikeRuleString(value) {
			continue
		}
		if _, seen := ruleMap[field]; !seen {
			fields = append(fields, field)
		}
		ruleMap[field] = splitRules(value)
	}

	if len(fields) == 0 {
		return rules.Extraction{}, nil
	}
	diags.Warn(diag.CategoryParseFailure, s.unit.file.Path, 0,
		"recovered %d fields reflectively from unparsed source", len(fields))

	rs := rules.RuleSet{Fields: fields, Rules: ruleMap}
	return rules.Extraction{
		RuleSets:     []rules.RuleSet{rs},
		Merged:       ruleMap,
		MergedFields: fields,
	}, nil
}

// knownRuleNames anchors the reflective heuristic: a quoted value counts as
// a rule string only if one of its segments is a recognized rule.
var knownRuleNames = map[string]bool{
	"required": true, "sometimes": true, "nullable": true, "string": true,
	"integer": true, "numeric": true, "boolean": true, "array": true,
	"email": true, "url": true, "uuid": true, "date": true, "file": true,
	"image": true, "ip": true, "ipv4": true, "ipv6": true, "confirmed": true,
}

func looksLikeRuleString(v string) bool {
	for _, part := range strings.Split(v, "|") {
		name, _, _ := strings.Cut(part, ":")
		if knownRuleNames[name] {
			return true
		}
		switch name {
		case "min", "max", "in", "exists", "unique", "between", "mimes", "date_format", "required_if", "required_unless", "required_with", "required_without", "regex", "size", "digits":
			return true
		}
	}
	return false
}

func splitRules(v string) []string {
	parts := strings.Split(v, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
