package phpsrc

import (
	"strings"
	"unicode"
)

type tokenType int

const (
	tokEOF tokenType = iota
	tokIdent
	tokVar    // $name
	tokString // quoted string, Value holds the decoded text
	tokNumber
	tokOp // punctuation and operators
)

type token struct {
	typ    tokenType
	value  string
	line   int
	offset int // byte offset of the token start in the source
}

// multi-character operators, longest first.
var multiOps = []string{
	"===", "!==", "<=>", "?->", "**", "=>", "->", "::", "==", "!=", ">=", "<=",
	"&&", "||", "??", "++", "--", ".=", "+=", "-=", "?:",
}

type lexer struct {
	src    string
	pos    int
	line   int
	tokens []token
}

// lex tokenizes src. It never fails: characters it does not understand are
// emitted as single-character operator tokens.
func lex(src string) []token {
	l := &lexer{src: src, line: 1}
	l.run()
	l.tokens = append(l.tokens, token{typ: tokEOF, line: l.line, offset: len(src)})
	return l.tokens
}

func (l *lexer) run() {
	// Skip everything before the opening tag; route and class files start
	// with one but inline snippets may not.
	if idx := strings.Index(l.src, "<?php"); idx >= 0 {
		l.line += strings.Count(l.src[:idx], "\n")
		l.pos = idx + len("<?php")
	}

	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.pos++
		case c == ' ' || c == '\t' || c == '\r':
			l.pos++
		case c == '/' && l.peek(1) == '/':
			l.skipLine()
		case c == '#':
			l.skipLine()
		case c == '/' && l.peek(1) == '*':
			l.skipBlockComment()
		case c == '\'' || c == '"':
			l.lexString(c)
		case c == '$':
			l.lexVar()
		case isIdentStart(rune(c)):
			l.lexIdent()
		case c >= '0' && c <= '9':
			l.lexNumber()
		default:
			l.lexOp()
		}
	}
}

func (l *lexer) peek(n int) byte {
	if l.pos+n < len(l.src) {
		return l.src[l.pos+n]
	}
	return 0
}

func (l *lexer) emit(typ tokenType, value string, start int) {
	l.tokens = append(l.tokens, token{typ: typ, value: value, line: l.line, offset: start})
}

func (l *lexer) skipLine() {
	for l.pos < len(l.src) && l.src[l.pos] != '\n' {
		l.pos++
	}
}

func (l *lexer) skipBlockComment() {
	l.pos += 2
	for l.pos < len(l.src) {
		if l.src[l.pos] == '\n' {
			l.line++
		}
		if l.src[l.pos] == '*' && l.peek(1) == '/' {
			l.pos += 2
			return
		}
		l.pos++
	}
}

func (l *lexer) lexString(quote byte) {
	start := l.pos
	l.pos++
	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '\\' && l.pos+1 < len(l.src) {
			next := l.src[l.pos+1]
			switch next {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(next)
			}
			l.pos += 2
			continue
		}
		if c == quote {
			l.pos++
			l.emit(tokString, b.String(), start)
			return
		}
		if c == '\n' {
			l.line++
		}
		b.WriteByte(c)
		l.pos++
	}
	// Unterminated string: emit what we have.
	l.emit(tokString, b.String(), start)
}

func (l *lexer) lexVar() {
	start := l.pos
	l.pos++ // $
	for l.pos < len(l.src) && isIdentPart(rune(l.src[l.pos])) {
		l.pos++
	}
	l.emit(tokVar, l.src[start+1:l.pos], start)
}

func (l *lexer) lexIdent() {
	start := l.pos
	for l.pos < len(l.src) && (isIdentPart(rune(l.src[l.pos])) || l.src[l.pos] == '\\') {
		l.pos++
	}
	l.emit(tokIdent, l.src[start:l.pos], start)
}

func (l *lexer) lexNumber() {
	start := l.pos
	for l.pos < len(l.src) && (l.src[l.pos] >= '0' && l.src[l.pos] <= '9' || l.src[l.pos] == '.' || l.src[l.pos] == '_') {
		l.pos++
	}
	l.emit(tokNumber, strings.ReplaceAll(l.src[start:l.pos], "_", ""), start)
}

func (l *lexer) lexOp() {
	for _, op := range multiOps {
		if strings.HasPrefix(l.src[l.pos:], op) {
			l.emit(tokOp, op, l.pos)
			l.pos += len(op)
			return
		}
	}
	l.emit(tokOp, string(l.src[l.pos]), l.pos)
	l.pos++
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
