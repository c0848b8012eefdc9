package rules

import (
	"strings"

	"github.com/laragen/laragen/internal/phpsrc"
)

// classifyCondition pattern-matches a boolean expression into a Condition.
// Anything that does not reduce to one of the atomic forms is captured as
// CondCustom with its source text, so classification is total.
func classifyCondition(e *phpsrc.Expr) Condition {
	if e == nil {
		return Condition{Kind: CondCustom, Expr: ""}
	}

	switch e.Kind {
	case phpsrc.KindMethodCall:
		if c, ok := classifyMethodCall(e); ok {
			return c
		}
	case phpsrc.KindBinary:
		if e.Op == "===" || e.Op == "==" {
			if c, ok := classifyEquality(e.Args[0], e.Args[1]); ok {
				return c
			}
			if c, ok := classifyEquality(e.Args[1], e.Args[0]); ok {
				return c
			}
		}
	}

	return Condition{Kind: CondCustom, Expr: e.Raw}
}

func classifyMethodCall(e *phpsrc.Expr) (Condition, bool) {
	if !isRequestReceiver(e.Target) {
		// $this->user()->can('edit') and similar chains: a call whose
		// receiver is itself the user() call.
		if t := e.Target; t != nil && t.Kind == phpsrc.KindMethodCall && t.Name == "user" && isRequestReceiver(t.Target) {
			return Condition{Kind: CondUserCheck, Expr: e.Raw}, true
		}
		// auth()->check()
		if t := e.Target; t != nil && t.Kind == phpsrc.KindFuncCall && t.Name == "auth" && e.Name == "check" {
			return Condition{Kind: CondUserPresent}, true
		}
		return Condition{}, false
	}

	switch e.Name {
	case "isMethod":
		if m, ok := stringArg(e, 0); ok {
			return Condition{Kind: CondHTTPMethod, Value: strings.ToUpper(m)}, true
		}
	case "user":
		return Condition{Kind: CondUserPresent}, true
	case "has":
		if f, ok := stringArg(e, 0); ok {
			return Condition{Kind: CondRequestHas, Field: f}, true
		}
	case "filled":
		if f, ok := stringArg(e, 0); ok {
			return Condition{Kind: CondRequestFilled, Field: f}, true
		}
	}
	return Condition{}, false
}

// classifyEquality recognizes $this->input('field') === 'value'.
func classifyEquality(left, right *phpsrc.Expr) (Condition, bool) {
	if left == nil || right == nil {
		return Condition{}, false
	}
	if left.Kind != phpsrc.KindMethodCall || left.Name != "input" || !isRequestReceiver(left.Target) {
		return Condition{}, false
	}
	field, ok := stringArg(left, 0)
	if !ok {
		return Condition{}, false
	}
	if right.Kind != phpsrc.KindString {
		return Condition{}, false
	}
	return Condition{Kind: CondInputEquals, Field: field, Value: right.Value}, true
}

// isRequestReceiver reports whether the expression is $this or the request()
// helper, the two spellings of the current request in validation code.
func isRequestReceiver(e *phpsrc.Expr) bool {
	if e == nil {
		return false
	}
	if e.Kind == phpsrc.KindVar && (e.Name == "this" || e.Name == "request") {
		return true
	}
	return e.Kind == phpsrc.KindFuncCall && e.Name == "request"
}

func stringArg(call *phpsrc.Expr, i int) (string, bool) {
	if i >= len(call.Args) || call.Args[i] == nil {
		return "", false
	}
	if call.Args[i].Kind != phpsrc.KindString {
		return "", false
	}
	return call.Args[i].Value, true
}
