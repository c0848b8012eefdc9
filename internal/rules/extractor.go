package rules

import (
	"github.com/laragen/laragen/internal/diag"
	"github.com/laragen/laragen/internal/phpsrc"
)

// Extractor walks a rule-producing method and recovers every reachable rule
// set together with the condition path that selects it. The extractor is
// total: any method body yields a (possibly empty) Extraction, never an
// error.
type Extractor struct {
	file  string
	class *phpsrc.Class
	diags *diag.Collector
}

// NewExtractor creates an extractor for methods of the given class. The
// class is used to inline simple same-class helper calls; it may be nil.
func NewExtractor(file string, class *phpsrc.Class, diags *diag.Collector) *Extractor {
	if diags == nil {
		diags = diag.NewCollector()
	}
	return &Extractor{file: file, class: class, diags: diags}
}

// ExtractMethod analyzes one method body. Rule sets are emitted in source
// order; the merged map is their left-to-right overlay.
func (e *Extractor) ExtractMethod(m *phpsrc.Method) Extraction {
	res := &resolver{
		class: e.class,
		file:  e.file,
		diags: e.diags,
		scope: make(map[string]*phpsrc.Expr),
	}

	w := &walker{res: res}
	if m != nil {
		w.walkStmts(m.Body, nil)
	}

	merged := newRuleMap()
	for _, rs := range w.sets {
		rm := newRuleMap()
		for _, f := range rs.Fields {
			rm.set(f, rs.Rules[f])
		}
		merged.overlay(rm)
	}

	return Extraction{
		RuleSets:     w.sets,
		Merged:       merged.rules,
		MergedFields: merged.fields,
	}
}

// walker carries the emit list through the statement walk. The condition
// path is passed down the stack rather than stored, so each branch sees its
// own copy.
type walker struct {
	res  *resolver
	sets []RuleSet
}

// walkStmts walks one statement list under the given condition path. It
// reports whether the list terminated at a return, in which case callers
// stop walking the remainder of the branch.
func (w *walker) walkStmts(stmts []phpsrc.Stmt, path []Condition) bool {
	for _, s := range stmts {
		switch s.Kind {
		case phpsrc.StmtAssign:
			w.res.scope[s.Assign] = s.Expr

		case phpsrc.StmtReturn:
			w.emitReturn(s.Expr, path)
			return true

		case phpsrc.StmtIf:
			for _, br := range s.Branches {
				var cond Condition
				if br.Cond == nil {
					cond = Condition{Kind: CondElse}
				} else {
					cond = classifyCondition(br.Cond)
				}
				w.walkStmts(br.Body, append(append([]Condition{}, path...), cond))
			}
		}
	}
	return false
}

// emitReturn resolves a return expression into one rule set, or two when the
// expression is a ternary (sugar for if/else around the same return).
func (w *walker) emitReturn(expr *phpsrc.Expr, path []Condition) {
	if expr != nil && expr.Kind == phpsrc.KindTernary {
		cond := classifyCondition(expr.Args[0])
		w.emit(expr.Args[1], append(append([]Condition{}, path...), cond))
		if len(expr.Args) > 2 {
			w.emit(expr.Args[2], append(append([]Condition{}, path...), Condition{Kind: CondElse}))
		}
		return
	}
	w.emit(expr, path)
}

func (w *walker) emit(expr *phpsrc.Expr, path []Condition) {
	rm := w.res.resolve(expr, 0)
	conds := append([]Condition{}, path...)
	w.sets = append(w.sets, RuleSet{
		Conditions: conds,
		Fields:     rm.fields,
		Rules:      rm.rules,
	})
}
