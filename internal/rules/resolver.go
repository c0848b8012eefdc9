package rules

import (
	"strings"

	"github.com/laragen/laragen/internal/diag"
	"github.com/laragen/laragen/internal/phpsrc"
)

// maxInlineDepth bounds helper-method and variable back-resolution so that
// mutually recursive helpers cannot loop the resolver.
const maxInlineDepth = 4

// resolver converts return expressions into ordered rule maps. It is scoped
// to one method invocation: scope holds the most recent assignment seen for
// each local variable at the current walk position.
type resolver struct {
	class *phpsrc.Class
	file  string
	diags *diag.Collector
	scope map[string]*phpsrc.Expr
}

// resolve converts an expression into a rule map. It is total: unsupported
// forms yield an empty map and a warning, never an error.
func (r *resolver) resolve(e *phpsrc.Expr, depth int) *ruleMap {
	out := newRuleMap()
	if e == nil || depth > maxInlineDepth {
		return out
	}

	switch e.Kind {
	case phpsrc.KindArray:
		r.resolveArrayLit(e, out)

	case phpsrc.KindFuncCall:
		if e.Name == "array_merge" {
			for _, arg := range e.Args {
				out.overlay(r.resolve(arg, depth+1))
			}
			return out
		}
		r.warnUnresolved(e, "function call %s()", e.Name)

	case phpsrc.KindBinary:
		if e.Op == "+" {
			out.overlay(r.resolve(e.Args[0], depth+1))
			out.overlay(r.resolve(e.Args[1], depth+1))
			return out
		}
		r.warnUnresolved(e, "binary expression %q", e.Op)

	case phpsrc.KindVar:
		if assigned, ok := r.scope[e.Name]; ok {
			return r.resolve(assigned, depth+1)
		}
		r.warnUnresolved(e, "variable $%s has no visible assignment", e.Name)

	case phpsrc.KindMethodCall:
		if isThis(e.Target) && r.class != nil {
			if helper := r.class.FindMethod(e.Name); helper != nil {
				if inner := simpleReturnExpr(helper); inner != nil {
					sub := &resolver{class: r.class, file: r.file, diags: r.diags, scope: assignmentsOf(helper)}
					return sub.resolve(inner, depth+1)
				}
			}
		}
		r.warnUnresolved(e, "method call %s() could not be inlined", e.Name)

	case phpsrc.KindTernary:
		// A nested ternary (not at return position) contributes both arms,
		// approximating every field that can appear.
		out.overlay(r.resolve(e.Args[1], depth+1))
		if len(e.Args) > 2 {
			out.overlay(r.resolve(e.Args[2], depth+1))
		}

	default:
		if e.Kind != phpsrc.KindNull {
			r.warnUnresolved(e, "unsupported expression")
		}
	}
	return out
}

// resolveArrayLit fills out from a literal rule array: string keys map to
// either a pipe-delimited rule string or an array of rule entries.
func (r *resolver) resolveArrayLit(arr *phpsrc.Expr, out *ruleMap) {
	for _, entry := range arr.Entries {
		if entry.Key == nil || entry.Key.Kind != phpsrc.KindString {
			continue
		}
		field := entry.Key.Value
		tokens := r.resolveTokens(entry.Value)
		if tokens == nil {
			tokens = []string{}
		}
		out.set(field, tokens)
	}
}

// resolveTokens converts one field's rule value into an ordered token list.
func (r *resolver) resolveTokens(v *phpsrc.Expr) []string {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case phpsrc.KindString:
		return splitPipe(v.Value)
	case phpsrc.KindArray:
		var tokens []string
		for _, entry := range v.Entries {
			if entry.Key != nil {
				continue
			}
			tokens = append(tokens, r.resolveTokens(entry.Value)...)
		}
		return tokens
	case phpsrc.KindStaticCall:
		return r.resolveRuleCall(v)
	default:
		r.warnUnresolved(v, "rule entry")
		return nil
	}
}

// resolveRuleCall maps Rule:: builder calls onto their string-token
// equivalents. Unrecognized calls are dropped with a warning.
func (r *resolver) resolveRuleCall(call *phpsrc.Expr) []string {
	if call.Class != "Rule" {
		r.warnUnresolved(call, "static call %s::%s", call.Class, call.Name)
		return nil
	}
	switch call.Name {
	case "in":
		return []string{"in:" + strings.Join(flattenStrings(call.Args), ",")}
	case "exists":
		if len(call.Args) > 0 {
			return []string{"exists:" + argText(call.Args[0])}
		}
	case "unique":
		if len(call.Args) > 0 {
			return []string{"unique:" + argText(call.Args[0])}
		}
	case "enum":
		if len(call.Args) > 0 {
			return []string{"enum:" + argText(call.Args[0])}
		}
	case "requiredIf":
		raw := ""
		if len(call.Args) > 0 {
			raw = call.Args[0].Raw
		}
		return []string{"required_if:" + raw}
	case "when":
		// Rule::when(cond, rules): the inner rules apply conditionally, so a
		// plain "required" inside becomes required_if on the condition text.
		if len(call.Args) < 2 {
			return nil
		}
		cond := call.Args[0].Raw
		inner := r.resolveTokens(call.Args[1])
		out := make([]string, 0, len(inner))
		for _, t := range inner {
			if t == "required" {
				t = "required_if:" + cond
			}
			out = append(out, t)
		}
		return out
	}
	r.warnUnresolved(call, "Rule::%s", call.Name)
	return nil
}

func (r *resolver) warnUnresolved(e *phpsrc.Expr, format string, args ...any) {
	line := 0
	if e != nil {
		line = e.Line
	}
	r.diags.Warn(diag.CategoryUnresolvedExpression, r.file, line, format, args...)
}

// simpleReturnExpr returns the helper's single return expression when the
// body is assignments followed by one return, nil otherwise.
func simpleReturnExpr(m *phpsrc.Method) *phpsrc.Expr {
	var ret *phpsrc.Expr
	for _, s := range m.Body {
		switch s.Kind {
		case phpsrc.StmtAssign:
			continue
		case phpsrc.StmtReturn:
			if ret != nil {
				return nil
			}
			ret = s.Expr
		default:
			return nil
		}
	}
	return ret
}

// assignmentsOf collects a method's top-level variable assignments.
func assignmentsOf(m *phpsrc.Method) map[string]*phpsrc.Expr {
	scope := make(map[string]*phpsrc.Expr)
	for _, s := range m.Body {
		if s.Kind == phpsrc.StmtAssign {
			scope[s.Assign] = s.Expr
		}
	}
	return scope
}

func isThis(e *phpsrc.Expr) bool {
	return e != nil && e.Kind == phpsrc.KindVar && e.Name == "this"
}

func splitPipe(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// flattenStrings collects string values from arguments, descending into
// array literals, for Rule::in style variadic or array forms.
func flattenStrings(args []*phpsrc.Expr) []string {
	var out []string
	for _, a := range args {
		if a == nil {
			continue
		}
		switch a.Kind {
		case phpsrc.KindString, phpsrc.KindNumber:
			out = append(out, a.Value)
		case phpsrc.KindArray:
			for _, entry := range a.Entries {
				out = append(out, flattenStrings([]*phpsrc.Expr{entry.Value})...)
			}
		}
	}
	return out
}

// argText renders an argument for embedding in a token: strings by value,
// Class::class references by class name, anything else by source text.
func argText(e *phpsrc.Expr) string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case phpsrc.KindString:
		return e.Value
	case phpsrc.KindClassConst:
		if e.Name == "class" {
			return e.Class
		}
	}
	return e.Raw
}
