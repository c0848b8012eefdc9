// Package phpsrc parses the subset of PHP source that route, controller and
// validation code is written in. It is a best-effort reader: anything outside
// the subset degrades to an Unknown node rather than failing the parse.
package phpsrc

// Kind discriminates expression nodes. The set is closed; consumers match
// over it and must treat KindUnknown as a valid, resolvable-to-nothing case.
type Kind int

const (
	KindUnknown Kind = iota
	KindString
	KindNumber
	KindBool
	KindNull
	KindArray
	KindVar
	KindPropFetch
	KindMethodCall
	KindStaticCall
	KindFuncCall
	KindClassConst
	KindBinary
	KindUnary
	KindTernary
)

// Expr is a parsed expression. Fields are populated per Kind; unused fields
// stay zero. Raw always holds the original source text of the expression.
type Expr struct {
	Kind Kind
	Raw  string
	Line int

	// KindString / KindNumber / KindBool
	Value string

	// KindArray: ordered entries, each an optional key plus a value.
	Entries []ArrayEntry

	// KindVar: name without the $ sigil.
	// KindPropFetch / KindMethodCall: Name is the property/method name.
	// KindStaticCall / KindClassConst: Name is the member, Class the receiver.
	// KindFuncCall: Name is the function name.
	Name  string
	Class string

	// KindPropFetch / KindMethodCall: receiver expression.
	Target *Expr

	// Call arguments, binary operands (Args[0], Args[1]), unary operand
	// (Args[0]), ternary cond/then/else (Args[0..2]).
	Args []*Expr

	// KindBinary / KindUnary operator text ("&&", "===", "!", "+", ".").
	Op string

	// anonymous class attached to a `new class {...}` expression; hoisted
	// into File.Classes by the parser.
	anon *Class
}

// ArrayEntry is one element of an array literal. Key is nil for list-style
// entries.
type ArrayEntry struct {
	Key   *Expr
	Value *Expr
}

// StmtKind discriminates statement nodes.
type StmtKind int

const (
	StmtUnknown StmtKind = iota
	StmtIf
	StmtReturn
	StmtAssign
	StmtExpr
)

// Stmt is a parsed statement.
type Stmt struct {
	Kind StmtKind
	Line int

	// StmtReturn / StmtExpr value; StmtAssign right-hand side.
	Expr *Expr

	// StmtAssign target variable name (without $).
	Assign string

	// StmtIf: the chain of branches in source order. A trailing else has a
	// nil Cond.
	Branches []IfBranch
}

// IfBranch is one arm of an if/elseif/else chain.
type IfBranch struct {
	Cond *Expr // nil for else
	Body []Stmt
}

// Method is a parsed class method.
type Method struct {
	Name       string
	Visibility string
	Params     []Param
	Body       []Stmt
	Line       int
}

// Param is a method parameter with its optional type hint.
type Param struct {
	Name string
	Type string
}

// Class is a parsed class declaration. Anonymous classes have an empty Name.
type Class struct {
	Name    string
	Extends string
	Methods []Method
	Line    int
}

// File is a parsed source file.
type File struct {
	Path      string
	Namespace string
	Classes   []Class
	// Top-level statements outside any class (route files are statement
	// lists).
	Stmts []Stmt

	uses map[string]string
}

// FindClass returns the class with the given short name, or nil.
func (f *File) FindClass(name string) *Class {
	for i := range f.Classes {
		if f.Classes[i].Name == name {
			return &f.Classes[i]
		}
	}
	return nil
}

// FindAnonymousClass returns the first anonymous class in the file, or nil.
// FormRequest-style rule holders returned from closures are declared this
// way.
func (f *File) FindAnonymousClass() *Class {
	for i := range f.Classes {
		if f.Classes[i].Name == "" {
			return &f.Classes[i]
		}
	}
	return nil
}

// UseAliases returns the file's import aliases as shortName -> fully
// qualified name.
func (f *File) UseAliases() map[string]string {
	if f.uses == nil {
		return map[string]string{}
	}
	return f.uses
}

// FindMethod returns the method with the given name, or nil.
func (c *Class) FindMethod(name string) *Method {
	for i := range c.Methods {
		if c.Methods[i].Name == name {
			return &c.Methods[i]
		}
	}
	return nil
}
