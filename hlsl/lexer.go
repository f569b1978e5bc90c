package hlsl

import (
	"fmt"
	"strings"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokFloat
	tokPunct
)

// Pos is a position in the source text. Line and column start at 1.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string {
	return fmt.Sprintf("(%d,%d)", p.Line, p.Col)
}

type token struct {
	kind tokenKind
	text string
	pos  Pos
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of file"
	}

	return "'" + t.text + "'"
}

// punctuation ordered so that longer operators are matched first
var punctuation = []string{
	"<<=", ">>=",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=",
	"==", "!=", "<=", ">=", "&&", "||", "++", "--", "<<", ">>", "::",
	"+", "-", "*", "/", "%", "=", "<", ">", "!", "~", "&", "|", "^",
	"(", ")", "{", "}", "[", "]", ";", ",", ".", ":", "?",
}

type lexer struct {
	src  string
	off  int
	line int
	col  int
}

func tokenize(src string) ([]token, *Diagnostic) {
	lx := &lexer{src: src, line: 1, col: 1}

	var tokens []token
	for {
		tok, diag := lx.next()
		if diag != nil {
			return nil, diag
		}

		tokens = append(tokens, tok)

		if tok.kind == tokEOF {
			return tokens, nil
		}
	}
}

func (lx *lexer) advance(n int) {
	for range n {
		if lx.src[lx.off] == '\n' {
			lx.line++
			lx.col = 1
		} else {
			lx.col++
		}

		lx.off++
	}
}

func (lx *lexer) peekByte(ahead int) byte {
	if lx.off+ahead < len(lx.src) {
		return lx.src[lx.off+ahead]
	}

	return 0
}

func (lx *lexer) skipSpaceAndComments() *Diagnostic {
	atLineStart := lx.col == 1

	for lx.off < len(lx.src) {
		ch := lx.src[lx.off]

		switch {
		case ch == '\n':
			atLineStart = true
			lx.advance(1)

		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\f' || ch == '\v':
			lx.advance(1)

		case ch == '#' && atLineStart:
			// preprocessor directives are not evaluated
			for lx.off < len(lx.src) && lx.src[lx.off] != '\n' {
				lx.advance(1)
			}

		case ch == '/' && lx.peekByte(1) == '/':
			for lx.off < len(lx.src) && lx.src[lx.off] != '\n' {
				lx.advance(1)
			}

		case ch == '/' && lx.peekByte(1) == '*':
			start := Pos{lx.line, lx.col}
			end := strings.Index(lx.src[lx.off+2:], "*/")
			if end < 0 {
				return &Diagnostic{Pos: start, Code: 1004, Message: "unexpected end of file in comment"}
			}

			lx.advance(end + 4)

		default:
			return nil
		}
	}

	return nil
}

func (lx *lexer) next() (token, *Diagnostic) {
	if diag := lx.skipSpaceAndComments(); diag != nil {
		return token{}, diag
	}

	pos := Pos{lx.line, lx.col}

	if lx.off >= len(lx.src) {
		return token{kind: tokEOF, pos: pos}, nil
	}

	ch := lx.src[lx.off]

	switch {
	case isIdentStart(ch):
		start := lx.off
		for lx.off < len(lx.src) && isIdentPart(lx.src[lx.off]) {
			lx.advance(1)
		}

		return token{kind: tokIdent, text: lx.src[start:lx.off], pos: pos}, nil

	case isDigit(ch) || (ch == '.' && isDigit(lx.peekByte(1))):
		return lx.number(pos)
	}

	for _, punct := range punctuation {
		if strings.HasPrefix(lx.src[lx.off:], punct) {
			lx.advance(len(punct))
			return token{kind: tokPunct, text: punct, pos: pos}, nil
		}
	}

	return token{}, &Diagnostic{
		Pos:     pos,
		Code:    3000,
		Message: fmt.Sprintf("syntax error: unexpected character '%c'", ch),
	}
}

func (lx *lexer) number(pos Pos) (token, *Diagnostic) {
	start := lx.off
	isFloat := false

	if lx.src[lx.off] == '0' && (lx.peekByte(1) == 'x' || lx.peekByte(1) == 'X') {
		lx.advance(2)
		for lx.off < len(lx.src) && isHexDigit(lx.src[lx.off]) {
			lx.advance(1)
		}
	} else {
		for lx.off < len(lx.src) && isDigit(lx.src[lx.off]) {
			lx.advance(1)
		}

		if lx.off < len(lx.src) && lx.src[lx.off] == '.' {
			isFloat = true
			lx.advance(1)

			for lx.off < len(lx.src) && isDigit(lx.src[lx.off]) {
				lx.advance(1)
			}
		}

		if ch := lx.peekByte(0); ch == 'e' || ch == 'E' {
			next := lx.peekByte(1)
			if isDigit(next) || ((next == '+' || next == '-') && isDigit(lx.peekByte(2))) {
				isFloat = true
				lx.advance(2)

				for lx.off < len(lx.src) && isDigit(lx.src[lx.off]) {
					lx.advance(1)
				}
			}
		}
	}

	text := lx.src[start:lx.off]

	// literal suffixes
	switch lx.peekByte(0) {
	case 'f', 'F', 'h', 'H', 'l', 'L':
		isFloat = true
		lx.advance(1)

	case 'u', 'U':
		lx.advance(1)
	}

	if lx.off < len(lx.src) && isIdentPart(lx.src[lx.off]) {
		return token{}, &Diagnostic{
			Pos:     pos,
			Code:    3000,
			Message: fmt.Sprintf("syntax error: invalid number '%s'", lx.src[start:lx.off+1]),
		}
	}

	kind := tokInt
	if isFloat {
		kind = tokFloat
	}

	return token{kind: kind, text: text, pos: pos}, nil
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
