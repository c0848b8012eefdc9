package phpsrc

import (
	"fmt"
	"strings"
)

// ParseError reports a structural failure with its source location. Callers
// treat it as a warning-grade diagnostic and fall back to the reflective
// extraction strategy.
type ParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
}

type parser struct {
	path string
	src  string
	toks []token
	pos  int
}

// Parse parses PHP source into a File. Expressions outside the supported
// subset degrade to Unknown nodes; only structural damage (unbalanced
// braces, truncated class bodies) produces a ParseError.
func Parse(path, src string) (*File, error) {
	p := &parser{path: path, src: src, toks: lex(src)}
	f := &File{Path: path, uses: make(map[string]string)}

	for !p.at(tokEOF) {
		switch {
		case p.atIdent("namespace"):
			p.next()
			f.Namespace = p.qualifiedName()
			p.skipPast(";")
		case p.atIdent("use"):
			p.next()
			full := p.qualifiedName()
			short := shortName(full)
			if p.atIdent("as") {
				p.next()
				short = p.cur().value
				p.next()
			}
			if full != "" {
				f.uses[short] = full
			}
			p.skipPast(";")
		case p.atIdent("abstract") || p.atIdent("final"):
			p.next()
		case p.atIdent("class"):
			cls, err := p.parseClass()
			if err != nil {
				return nil, err
			}
			f.Classes = append(f.Classes, *cls)
		case p.atIdent("interface") || p.atIdent("trait") || p.atIdent("enum"):
			// Declarations we do not analyze; skip the whole body.
			p.next()
			if err := p.skipBalancedBody(); err != nil {
				return nil, err
			}
		default:
			stmt := p.parseStmt()
			f.Stmts = append(f.Stmts, stmt)
			// Anonymous classes appear inside return/assign expressions;
			// hoist them so FindAnonymousClass works.
			hoistAnonymous(f, stmt.Expr)
		}
	}
	return f, nil
}

func hoistAnonymous(f *File, e *Expr) {
	if e == nil {
		return
	}
	if e.Kind == KindUnknown && e.anon != nil {
		f.Classes = append(f.Classes, *e.anon)
	}
	for _, a := range e.Args {
		hoistAnonymous(f, a)
	}
}

func (p *parser) parseClass() (*Class, error) {
	line := p.cur().line
	p.next() // class
	cls := &Class{Line: line}
	if p.at(tokIdent) {
		cls.Name = p.cur().value
		p.next()
	}
	for p.atIdent("extends") || p.atIdent("implements") {
		kw := p.cur().value
		p.next()
		name := p.qualifiedName()
		if kw == "extends" {
			cls.Extends = shortName(name)
		}
		for p.atOp(",") {
			p.next()
			p.qualifiedName()
		}
	}
	if !p.atOp("{") {
		return nil, &ParseError{Path: p.path, Line: p.cur().line, Message: "expected class body"}
	}
	p.next()

	for !p.atOp("}") {
		if p.at(tokEOF) {
			return nil, &ParseError{Path: p.path, Line: line, Message: fmt.Sprintf("unterminated body of class %s", cls.Name)}
		}
		vis := ""
		for p.atIdent("public") || p.atIdent("protected") || p.atIdent("private") || p.atIdent("static") || p.atIdent("final") || p.atIdent("abstract") || p.atIdent("readonly") {
			if vis == "" && (p.atIdent("public") || p.atIdent("protected") || p.atIdent("private")) {
				vis = p.cur().value
			}
			p.next()
		}
		switch {
		case p.atIdent("function"):
			m := p.parseMethod(vis)
			cls.Methods = append(cls.Methods, m)
		case p.atIdent("const") || p.at(tokVar) || p.at(tokIdent):
			// Property or constant declaration.
			p.skipPast(";")
		default:
			p.next()
		}
	}
	p.next() // }
	return cls, nil
}

func (p *parser) parseMethod(vis string) Method {
	line := p.cur().line
	p.next() // function
	m := Method{Visibility: vis, Line: line}
	if p.at(tokIdent) {
		m.Name = p.cur().value
		p.next()
	}
	if p.atOp("(") {
		p.next()
		for !p.atOp(")") && !p.at(tokEOF) {
			before := p.pos
			var prm Param
			for p.at(tokIdent) { // type hint, possibly nullable or unioned
				prm.Type = shortName(p.cur().value)
				p.next()
				if p.atOp("|") || p.atOp("?") {
					p.next()
					continue
				}
				break
			}
			if p.at(tokVar) {
				prm.Name = p.cur().value
				p.next()
			}
			if p.atOp("=") { // default value
				p.next()
				p.parseExpr()
			}
			if prm.Name != "" || prm.Type != "" {
				m.Params = append(m.Params, prm)
			}
			if p.atOp(",") {
				p.next()
			} else if p.pos == before {
				// Unexpected token in the parameter list; skip it so the
				// loop always advances.
				p.next()
			}
		}
		p.next() // )
	}
	// Return type hint.
	if p.atOp(":") {
		p.next()
		if p.atOp("?") {
			p.next()
		}
		if p.at(tokIdent) {
			p.next()
		}
	}
	if p.atOp("{") {
		m.Body = p.parseBlock()
	} else {
		p.skipPast(";") // abstract/interface method
	}
	return m
}

// parseBlock parses a brace-delimited statement list; the opening brace is
// the current token.
func (p *parser) parseBlock() []Stmt {
	p.next() // {
	var stmts []Stmt
	for !p.atOp("}") && !p.at(tokEOF) {
		stmts = append(stmts, p.parseStmt())
	}
	p.next() // }
	return stmts
}

func (p *parser) parseStmt() Stmt {
	line := p.cur().line
	switch {
	case p.atIdent("if"):
		return p.parseIf()
	case p.atIdent("return"):
		p.next()
		var e *Expr
		if !p.atOp(";") {
			e = p.parseExpr()
		}
		p.skipPast(";")
		return Stmt{Kind: StmtReturn, Line: line, Expr: e}
	case p.at(tokVar) && p.peekOp(1, "="):
		name := p.cur().value
		p.next()
		p.next() // =
		e := p.parseExpr()
		p.skipPast(";")
		return Stmt{Kind: StmtAssign, Line: line, Assign: name, Expr: e}
	case p.atIdent("foreach") || p.atIdent("while") || p.atIdent("for") || p.atIdent("switch") || p.atIdent("try"):
		// Constructs outside the analyzed subset: skip their parenthesized
		// head and body wholesale.
		p.next()
		p.skipUnknownConstruct()
		return Stmt{Kind: StmtUnknown, Line: line}
	default:
		e := p.parseExpr()
		p.skipPast(";")
		return Stmt{Kind: StmtExpr, Line: line, Expr: e}
	}
}

func (p *parser) parseIf() Stmt {
	line := p.cur().line
	stmt := Stmt{Kind: StmtIf, Line: line}
	for {
		p.next() // if / elseif
		var cond *Expr
		if p.atOp("(") {
			p.next()
			cond = p.parseExpr()
			for !p.atOp(")") && !p.at(tokEOF) {
				p.next()
			}
			p.next() // )
		}
		body := p.branchBody()
		stmt.Branches = append(stmt.Branches, IfBranch{Cond: cond, Body: body})

		if p.atIdent("elseif") {
			continue
		}
		if p.atIdent("else") {
			if p.peekIdent(1, "if") {
				p.next() // else; loop re-reads "if"
				continue
			}
			p.next() // else
			stmt.Branches = append(stmt.Branches, IfBranch{Body: p.branchBody()})
		}
		return stmt
	}
}

// branchBody parses either a braced block or a single statement.
func (p *parser) branchBody() []Stmt {
	if p.atOp("{") {
		return p.parseBlock()
	}
	return []Stmt{p.parseStmt()}
}

// ---- expressions ----

func (p *parser) parseExpr() *Expr {
	start := p.pos
	e := p.parseTernary()
	p.setRaw(e, start)
	return e
}

func (p *parser) parseTernary() *Expr {
	start := p.pos
	cond := p.parseBinary(0)
	if !p.atOp("?") || p.atOp("?:") {
		if p.atOp("?:") {
			line := p.cur().line
			p.next()
			alt := p.parseTernary()
			e := &Expr{Kind: KindTernary, Line: line, Args: []*Expr{cond, cond, alt}}
			p.setRaw(e, start)
			return e
		}
		return cond
	}
	line := p.cur().line
	p.next() // ?
	then := p.parseTernary()
	var alt *Expr
	if p.atOp(":") {
		p.next()
		alt = p.parseTernary()
	}
	e := &Expr{Kind: KindTernary, Line: line, Args: []*Expr{cond, then, alt}}
	p.setRaw(e, start)
	return e
}

// binary operator precedence, low to high.
var binaryLevels = [][]string{
	{"||"},
	{"&&"},
	{"??"},
	{"===", "!==", "==", "!="},
	{"<", ">", "<=", ">=", "<=>"},
	{"+", "-", "."},
	{"*", "/", "%"},
}

func (p *parser) parseBinary(level int) *Expr {
	if level >= len(binaryLevels) {
		return p.parseUnary()
	}
	start := p.pos
	left := p.parseBinary(level + 1)
	for {
		op := ""
		for _, candidate := range binaryLevels[level] {
			if p.atOp(candidate) {
				op = candidate
				break
			}
		}
		if op == "" {
			return left
		}
		line := p.cur().line
		p.next()
		right := p.parseBinary(level + 1)
		left = &Expr{Kind: KindBinary, Op: op, Line: line, Args: []*Expr{left, right}}
		p.setRaw(left, start)
	}
}

func (p *parser) parseUnary() *Expr {
	if p.atOp("!") || p.atOp("-") {
		start := p.pos
		op := p.cur().value
		line := p.cur().line
		p.next()
		operand := p.parseUnary()
		e := &Expr{Kind: KindUnary, Op: op, Line: line, Args: []*Expr{operand}}
		p.setRaw(e, start)
		return e
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() *Expr {
	start := p.pos
	e := p.parsePrimary()
	for {
		switch {
		case p.atOp("->") || p.atOp("?->"):
			line := p.cur().line
			p.next()
			name := p.cur().value
			p.next()
			if p.atOp("(") {
				args := p.parseArgs()
				e = &Expr{Kind: KindMethodCall, Name: name, Target: e, Args: args, Line: line}
			} else {
				e = &Expr{Kind: KindPropFetch, Name: name, Target: e, Line: line}
			}
			p.setRaw(e, start)
		case p.atOp("::"):
			line := p.cur().line
			class := e.Raw
			if e.Kind == KindUnknown && e.Value != "" {
				class = e.Value
			}
			p.next()
			name := p.cur().value
			p.next()
			if p.atOp("(") {
				args := p.parseArgs()
				e = &Expr{Kind: KindStaticCall, Class: shortName(class), Name: name, Args: args, Line: line}
			} else {
				e = &Expr{Kind: KindClassConst, Class: shortName(class), Name: name, Line: line}
			}
			p.setRaw(e, start)
		case p.atOp("["):
			// Index access: treat as opaque but keep walking.
			p.next()
			depth := 1
			for depth > 0 && !p.at(tokEOF) {
				if p.atOp("[") {
					depth++
				}
				if p.atOp("]") {
					depth--
				}
				p.next()
			}
			e = &Expr{Kind: KindUnknown, Line: e.Line}
			p.setRaw(e, start)
		default:
			return e
		}
	}
}

func (p *parser) parsePrimary() *Expr {
	t := p.cur()
	start := p.pos
	switch {
	case t.typ == tokString:
		p.next()
		e := &Expr{Kind: KindString, Value: t.value, Line: t.line}
		p.setRaw(e, start)
		return e
	case t.typ == tokNumber:
		p.next()
		e := &Expr{Kind: KindNumber, Value: t.value, Line: t.line}
		p.setRaw(e, start)
		return e
	case t.typ == tokVar:
		p.next()
		e := &Expr{Kind: KindVar, Name: t.value, Line: t.line}
		p.setRaw(e, start)
		return e
	case p.atOp("["):
		return p.parseArrayLit("]")
	case p.atOp("("):
		p.next()
		e := p.parseExpr()
		if p.atOp(")") {
			p.next()
		}
		return e
	case p.atOp("\\"):
		// Fully qualified name; precede-with-backslash is equivalent to the
		// plain identifier for our purposes.
		p.next()
		return p.parsePrimary()
	case t.typ == tokIdent:
		switch t.value {
		case "true", "false":
			p.next()
			e := &Expr{Kind: KindBool, Value: t.value, Line: t.line}
			p.setRaw(e, start)
			return e
		case "null":
			p.next()
			e := &Expr{Kind: KindNull, Line: t.line}
			p.setRaw(e, start)
			return e
		case "array":
			if p.peekOp(1, "(") {
				p.next()
				return p.parseArrayLit(")")
			}
		case "new":
			return p.parseNew()
		case "fn", "function":
			// Closures are opaque to rule extraction.
			p.next()
			p.skipUnknownConstruct()
			e := &Expr{Kind: KindUnknown, Line: t.line}
			p.setRaw(e, start)
			return e
		}
		name := t.value
		p.next()
		if p.atOp("(") {
			args := p.parseArgs()
			e := &Expr{Kind: KindFuncCall, Name: shortName(name), Args: args, Line: t.line}
			p.setRaw(e, start)
			return e
		}
		// Bare identifier: class name ahead of ::, or an unknown constant.
		e := &Expr{Kind: KindUnknown, Value: name, Line: t.line}
		e.Raw = name
		return e
	default:
		p.next()
		e := &Expr{Kind: KindUnknown, Line: t.line}
		p.setRaw(e, start)
		return e
	}
}

// parseNew handles `new Foo(...)` and `new class { ... }`. Anonymous class
// bodies are parsed and attached for later hoisting.
func (p *parser) parseNew() *Expr {
	start := p.pos
	line := p.cur().line
	p.next() // new
	e := &Expr{Kind: KindUnknown, Line: line}
	if p.atIdent("class") {
		p.next()
		if p.atOp("(") {
			p.parseArgs()
		}
		for p.atIdent("extends") || p.atIdent("implements") {
			p.next()
			p.qualifiedName()
		}
		if p.atOp("{") {
			cls := &Class{Line: line}
			p.next() // {
			for !p.atOp("}") && !p.at(tokEOF) {
				vis := ""
				for p.atIdent("public") || p.atIdent("protected") || p.atIdent("private") || p.atIdent("static") {
					if vis == "" {
						vis = p.cur().value
					}
					p.next()
				}
				if p.atIdent("function") {
					cls.Methods = append(cls.Methods, p.parseMethod(vis))
				} else {
					p.skipPast(";")
				}
			}
			p.next() // }
			e.anon = cls
		}
	} else {
		p.qualifiedName()
		if p.atOp("(") {
			p.parseArgs()
		}
	}
	p.setRaw(e, start)
	return e
}

// parseArrayLit parses entries until the given closer; the opening bracket
// is the current token.
func (p *parser) parseArrayLit(closer string) *Expr {
	start := p.pos
	line := p.cur().line
	p.next()
	e := &Expr{Kind: KindArray, Line: line}
	for !p.atOp(closer) && !p.at(tokEOF) {
		first := p.parseExpr()
		entry := ArrayEntry{Value: first}
		if p.atOp("=>") {
			p.next()
			entry.Key = first
			entry.Value = p.parseExpr()
		}
		e.Entries = append(e.Entries, entry)
		if p.atOp(",") {
			p.next()
		} else if !p.atOp(closer) {
			// Something we can't handle mid-array; resync.
			p.syncWithin(closer)
			break
		}
	}
	if p.atOp(closer) {
		p.next()
	}
	p.setRaw(e, start)
	return e
}

// parseArgs parses a parenthesized argument list; the opening paren is the
// current token.
func (p *parser) parseArgs() []*Expr {
	p.next() // (
	var args []*Expr
	for !p.atOp(")") && !p.at(tokEOF) {
		// Named argument `name: value`.
		if p.at(tokIdent) && p.peekOp(1, ":") && !p.peekOp(1, "::") {
			p.next()
			p.next()
		}
		args = append(args, p.parseExpr())
		if p.atOp(",") {
			p.next()
		} else if !p.atOp(")") {
			p.syncWithin(")")
			break
		}
	}
	if p.atOp(")") {
		p.next()
	}
	return args
}

// ---- token helpers ----

func (p *parser) cur() token { return p.toks[p.pos] }

func (p *parser) next() {
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
}

func (p *parser) at(typ tokenType) bool { return p.cur().typ == typ }

func (p *parser) atIdent(v string) bool {
	return p.cur().typ == tokIdent && p.cur().value == v
}

func (p *parser) atOp(v string) bool {
	return p.cur().typ == tokOp && p.cur().value == v
}

func (p *parser) peekOp(n int, v string) bool {
	if p.pos+n >= len(p.toks) {
		return false
	}
	t := p.toks[p.pos+n]
	return t.typ == tokOp && t.value == v
}

func (p *parser) peekIdent(n int, v string) bool {
	if p.pos+n >= len(p.toks) {
		return false
	}
	t := p.toks[p.pos+n]
	return t.typ == tokIdent && t.value == v
}

// qualifiedName consumes a possibly namespace-qualified identifier.
func (p *parser) qualifiedName() string {
	if p.atOp("\\") {
		p.next()
	}
	if !p.at(tokIdent) {
		return ""
	}
	name := p.cur().value
	p.next()
	return strings.TrimPrefix(name, "\\")
}

// skipPast consumes tokens through the next occurrence of op at depth zero.
func (p *parser) skipPast(op string) {
	depth := 0
	for !p.at(tokEOF) {
		switch {
		case p.atOp("{") || p.atOp("(") || p.atOp("["):
			depth++
		case p.atOp("}") || p.atOp(")") || p.atOp("]"):
			if depth == 0 && op == ";" {
				// A closing brace ends the enclosing block; do not eat it.
				return
			}
			depth--
		case depth == 0 && p.atOp(op):
			p.next()
			return
		}
		p.next()
	}
}

// syncWithin advances until the closer at the current nesting level.
func (p *parser) syncWithin(closer string) {
	depth := 0
	for !p.at(tokEOF) {
		if p.atOp("(") || p.atOp("[") || p.atOp("{") {
			depth++
		}
		if p.atOp(")") || p.atOp("]") || p.atOp("}") {
			if depth == 0 && p.atOp(closer) {
				return
			}
			depth--
		}
		p.next()
	}
}

// skipUnknownConstruct skips an optional parenthesized head followed by a
// braced body or a semicolon-terminated statement.
func (p *parser) skipUnknownConstruct() {
	for !p.at(tokEOF) && !p.atOp("(") && !p.atOp("{") && !p.atOp(";") {
		p.next()
	}
	if p.atOp("(") {
		p.next()
		depth := 1
		for depth > 0 && !p.at(tokEOF) {
			if p.atOp("(") {
				depth++
			}
			if p.atOp(")") {
				depth--
			}
			p.next()
		}
	}
	if p.atOp("{") {
		p.next()
		depth := 1
		for depth > 0 && !p.at(tokEOF) {
			if p.atOp("{") {
				depth++
			}
			if p.atOp("}") {
				depth--
			}
			p.next()
		}
		return
	}
	p.skipPast(";")
}

// skipBalancedBody skips up to and through the next balanced brace pair.
func (p *parser) skipBalancedBody() error {
	line := p.cur().line
	for !p.atOp("{") {
		if p.at(tokEOF) {
			return &ParseError{Path: p.path, Line: line, Message: "expected body"}
		}
		p.next()
	}
	p.next()
	depth := 1
	for depth > 0 {
		if p.at(tokEOF) {
			return &ParseError{Path: p.path, Line: line, Message: "unterminated body"}
		}
		if p.atOp("{") {
			depth++
		}
		if p.atOp("}") {
			depth--
		}
		p.next()
	}
	return nil
}

// setRaw records the source text covered by the tokens consumed since start.
func (p *parser) setRaw(e *Expr, start int) {
	if e == nil || start >= len(p.toks) {
		return
	}
	from := p.toks[start].offset
	to := p.toks[p.pos].offset
	if to > len(p.src) {
		to = len(p.src)
	}
	if from > to {
		from = to
	}
	e.Raw = strings.TrimSpace(p.src[from:to])
}

func shortName(qualified string) string {
	if i := strings.LastIndex(qualified, "\\"); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}
