package hlsl

import (
	"strconv"
	"strings"
)

type parser struct {
	tokens  []token
	idx     int
	errs    *errorList
	structs map[string]bool
}

// bailout aborts parsing after the first syntax error.
type bailout struct{}

func parse(src string, errs *errorList) (f *file) {
	tokens, diag := tokenize(src)
	if diag != nil {
		errs.diags = append(errs.diags, *diag)
		return nil
	}

	p := &parser{tokens: tokens, errs: errs, structs: map[string]bool{}}

	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}

			f = nil
		}
	}()

	return p.parseFile()
}

func (p *parser) peek() token {
	return p.tokens[p.idx]
}

func (p *parser) peekAt(ahead int) token {
	if p.idx+ahead < len(p.tokens) {
		return p.tokens[p.idx+ahead]
	}

	return p.tokens[len(p.tokens)-1]
}

func (p *parser) next() token {
	tok := p.tokens[p.idx]
	if tok.kind != tokEOF {
		p.idx++
	}

	return tok
}

func (p *parser) is(text string) bool {
	tok := p.peek()
	return (tok.kind == tokPunct || tok.kind == tokIdent) && tok.text == text
}

func (p *parser) accept(text string) bool {
	if p.is(text) {
		p.next()
		return true
	}

	return false
}

func (p *parser) unexpected(tok token) {
	p.errs.add(tok.pos, 3000, "syntax error: unexpected %s", describeToken(tok))
	panic(bailout{})
}

func describeToken(tok token) string {
	switch tok.kind {
	case tokEOF:
		return "end of file"
	case tokInt, tokFloat:
		return "numeric constant"
	default:
		return "token '" + tok.text + "'"
	}
}

func (p *parser) expect(text string) token {
	tok := p.peek()
	if !p.is(text) {
		p.unexpected(tok)
	}

	return p.next()
}

func (p *parser) expectIdent() token {
	tok := p.peek()
	if tok.kind != tokIdent || isKeyword(tok.text) {
		p.unexpected(tok)
	}

	return p.next()
}

func isKeyword(text string) bool {
	switch text {
	case "struct", "cbuffer", "if", "else", "for", "while", "do", "return", "break",
		"continue", "discard", "static", "const", "in", "out", "inout", "uniform",
		"true", "false", "row_major", "column_major":
		return true
	}

	return false
}

func (p *parser) isTypeName(text string) bool {
	if _, ok := builtinType(text); ok {
		return true
	}

	return p.structs[text]
}

func (p *parser) parseFile() *file {
	f := &file{}

	for p.peek().kind != tokEOF {
		switch {
		case p.accept(";"):

		case p.is("struct"):
			f.structs = append(f.structs, p.parseStruct())
			p.expect(";")

		case p.is("cbuffer"):
			f.cbuffers = append(f.cbuffers, p.parseCBuffer())
			p.accept(";")

		default:
			p.parseTopLevel(f)
		}
	}

	return f
}

func (p *parser) parseStruct() *structDecl {
	pos := p.expect("struct").pos
	name := p.expectIdent()

	decl := &structDecl{pos: pos, name: name.text}

	// register the name early so the struct can be used in its own body
	p.structs[name.text] = true

	p.expect("{")
	for !p.accept("}") {
		p.skipInterpolationModifiers()

		field := fieldDecl{pos: p.peek().pos, typ: p.parseType()}
		field.name = p.expectIdent().text

		if p.accept(":") {
			field.semantic = p.expectIdent().text
		}

		p.expect(";")
		decl.fields = append(decl.fields, field)
	}

	return decl
}

func (p *parser) skipInterpolationModifiers() {
	for {
		switch p.peek().text {
		case "linear", "centroid", "nointerpolation", "noperspective", "sample":
			p.next()
		default:
			return
		}
	}
}

func (p *parser) parseCBuffer() *cbufferDecl {
	pos := p.expect("cbuffer").pos
	name := p.expectIdent()

	decl := &cbufferDecl{pos: pos, name: name.text, register: -1}

	if p.accept(":") {
		decl.register = p.parseRegister("b")
	}

	p.expect("{")
	for !p.accept("}") {
		field := fieldDecl{pos: p.peek().pos}

		for {
			if p.accept("row_major") {
				field.rowMajor = true
			} else if p.accept("column_major") {
				field.columnMajor = true
			} else {
				break
			}
		}

		field.typ = p.parseType()
		field.name = p.expectIdent().text
		p.expect(";")

		decl.fields = append(decl.fields, field)
	}

	return decl
}

// parseRegister parses "register(b3)" and returns the slot.
func (p *parser) parseRegister(class string) int {
	p.expect("register")
	p.expect("(")

	tok := p.expectIdent()

	slot, err := strconv.Atoi(strings.TrimPrefix(tok.text, class))
	if !strings.HasPrefix(tok.text, class) || err != nil || slot < 0 {
		p.errs.add(tok.pos, 3000, "syntax error: invalid register '%s'", tok.text)
		panic(bailout{})
	}

	p.expect(")")

	return slot
}

func (p *parser) parseType() typeRef {
	tok := p.peek()
	if tok.kind != tokIdent {
		p.unexpected(tok)
	}

	if !p.isTypeName(tok.text) {
		p.errs.add(tok.pos, 3000, "unrecognized identifier '%s'", tok.text)
		panic(bailout{})
	}

	p.next()

	return typeRef{pos: tok.pos, name: tok.text}
}

func (p *parser) parseTopLevel(f *file) {
	var static, isConst bool

qualifiers:
	for {
		switch {
		case p.accept("static"):
			static = true
		case p.accept("const"):
			isConst = true
		case p.accept("uniform"), p.accept("extern"), p.accept("inline"):
		case p.accept("row_major"), p.accept("column_major"):
		default:
			break qualifiers
		}
	}

	start := p.peek().pos
	typ := p.parseType()
	name := p.expectIdent()

	if p.is("(") {
		f.funcs = append(f.funcs, p.parseFunc(typ, name))
		return
	}

	decl := p.parseDeclarators(start, typ, name)
	decl.isConst = isConst

	f.globals = append(f.globals, &globalDecl{static: static, decl: decl})
}

func (p *parser) parseFunc(ret typeRef, name token) *funcDecl {
	decl := &funcDecl{pos: name.pos, ret: ret, name: name.text}

	p.expect("(")
	if !p.is(")") {
		for {
			decl.params = append(decl.params, p.parseParam())
			if !p.accept(",") {
				break
			}
		}
	}

	p.expect(")")

	if p.accept(":") {
		decl.semantic = p.expectIdent().text
	}

	if p.accept(";") {
		// forward declaration
		return decl
	}

	decl.body = p.parseBlock()

	return decl
}

func (p *parser) parseParam() paramDecl {
	param := paramDecl{pos: p.peek().pos}

modifiers:
	for {
		switch {
		case p.accept("in"):
			param.in = true
		case p.accept("out"):
			param.out = true
		case p.accept("inout"):
			param.in = true
			param.out = true
		case p.accept("uniform"), p.accept("const"):
		default:
			break modifiers
		}
	}

	p.skipInterpolationModifiers()

	if !param.in && !param.out {
		param.in = true
	}

	param.typ = p.parseType()
	param.name = p.expectIdent().text

	if p.accept(":") {
		param.semantic = p.expectIdent().text
	}

	return param
}

func (p *parser) parseBlock() *blockStmt {
	block := &blockStmt{pos: p.expect("{").pos}

	for !p.accept("}") {
		if p.peek().kind == tokEOF {
			p.unexpected(p.peek())
		}

		block.stmts = append(block.stmts, p.parseStmt())
	}

	return block
}

func (p *parser) isDeclStart() bool {
	tok := p.peek()
	if tok.kind != tokIdent {
		return false
	}

	if tok.text == "const" || tok.text == "static" {
		return true
	}

	return p.isTypeName(tok.text) && p.peekAt(1).kind == tokIdent
}

func (p *parser) parseStmt() stmt {
	tok := p.peek()

	// skip attributes like [unroll] or [loop]
	for p.is("[") && p.peekAt(1).kind == tokIdent && p.peekAt(2).text == "]" {
		p.next()
		p.next()
		p.next()
		tok = p.peek()
	}

	switch {
	case p.is("{"):
		return p.parseBlock()

	case p.accept(";"):
		return &emptyStmt{pos: tok.pos}

	case p.accept("if"):
		stmt := &ifStmt{pos: tok.pos}
		p.expect("(")
		stmt.cond = p.parseExpr()
		p.expect(")")
		stmt.then = p.parseStmt()

		if p.accept("else") {
			stmt.els = p.parseStmt()
		}

		return stmt

	case p.accept("for"):
		stmt := &forStmt{pos: tok.pos}
		p.expect("(")

		if !p.accept(";") {
			if p.isDeclStart() {
				stmt.init = p.parseDeclStmt()
			} else {
				stmt.init = &exprStmt{pos: p.peek().pos, x: p.parseExpr()}
				p.expect(";")
			}
		}

		if !p.is(";") {
			stmt.cond = p.parseExpr()
		}

		p.expect(";")

		if !p.is(")") {
			stmt.post = p.parseExpr()
		}

		p.expect(")")
		stmt.body = p.parseStmt()

		return stmt

	case p.accept("while"):
		stmt := &whileStmt{pos: tok.pos}
		p.expect("(")
		stmt.cond = p.parseExpr()
		p.expect(")")
		stmt.body = p.parseStmt()
		return stmt

	case p.accept("do"):
		stmt := &whileStmt{pos: tok.pos, do: true}
		stmt.body = p.parseStmt()
		p.expect("while")
		p.expect("(")
		stmt.cond = p.parseExpr()
		p.expect(")")
		p.expect(";")
		return stmt

	case p.accept("return"):
		stmt := &returnStmt{pos: tok.pos}
		if !p.is(";") {
			stmt.x = p.parseExpr()
		}

		p.expect(";")
		return stmt

	case p.is("break"), p.is("continue"), p.is("discard"):
		p.next()
		p.expect(";")
		return &branchStmt{pos: tok.pos, kind: tok.text}

	case p.isDeclStart():
		return p.parseDeclStmt()
	}

	x := p.parseExpr()
	p.expect(";")

	return &exprStmt{pos: tok.pos, x: x}
}

func (p *parser) parseDeclStmt() *declStmt {
	start := p.peek().pos

	var isConst bool
	for {
		if p.accept("const") {
			isConst = true
		} else if !p.accept("static") {
			break
		}
	}

	typ := p.parseType()
	name := p.expectIdent()

	decl := p.parseDeclarators(start, typ, name)
	decl.isConst = isConst

	return decl
}

func (p *parser) parseDeclarators(start Pos, typ typeRef, first token) *declStmt {
	decl := &declStmt{pos: start, typ: typ}

	name := first
	for {
		d := declarator{pos: name.pos, name: name.text}

		if p.is("[") {
			p.errs.add(p.peek().pos, 3000, "syntax error: arrays are not supported")
			panic(bailout{})
		}

		if p.accept(":") {
			// semantics or register bindings of globals are ignored
			if p.accept("register") {
				p.expect("(")
				p.expectIdent()
				p.expect(")")
			} else {
				p.expectIdent()
			}
		}

		if p.accept("=") {
			d.init = p.parseAssign()
		}

		decl.vars = append(decl.vars, d)

		if !p.accept(",") {
			break
		}

		name = p.expectIdent()
	}

	p.expect(";")

	return decl
}

func (p *parser) parseExpr() expr {
	return p.parseAssign()
}

func isAssignOp(text string) bool {
	switch text {
	case "=", "+=", "-=", "*=", "/=", "%=":
		return true
	}

	return false
}

func (p *parser) parseAssign() expr {
	lhs := p.parseCond()

	tok := p.peek()
	if tok.kind == tokPunct && isAssignOp(tok.text) {
		p.next()
		rhs := p.parseAssign()
		return &assignExpr{pos: tok.pos, op: tok.text, x: lhs, y: rhs}
	}

	return lhs
}

func (p *parser) parseCond() expr {
	cond := p.parseBinary(1)

	if tok := p.peek(); p.accept("?") {
		then := p.parseAssign()
		p.expect(":")
		els := p.parseCond()

		return &condExpr{pos: tok.pos, cond: cond, then: then, els: els}
	}

	return cond
}

func binaryPrecedence(op string) int {
	switch op {
	case "||":
		return 1
	case "&&":
		return 2
	case "|":
		return 3
	case "^":
		return 4
	case "&":
		return 5
	case "==", "!=":
		return 6
	case "<", ">", "<=", ">=":
		return 7
	case "<<", ">>":
		return 8
	case "+", "-":
		return 9
	case "*", "/", "%":
		return 10
	}

	return 0
}

func (p *parser) parseBinary(minPrec int) expr {
	lhs := p.parseUnary()

	for {
		tok := p.peek()
		if tok.kind != tokPunct {
			return lhs
		}

		prec := binaryPrecedence(tok.text)
		if prec == 0 || prec < minPrec {
			return lhs
		}

		p.next()
		rhs := p.parseBinary(prec + 1)

		lhs = &binaryExpr{pos: tok.pos, op: tok.text, x: lhs, y: rhs}
	}
}

func (p *parser) parseUnary() expr {
	tok := p.peek()

	if tok.kind == tokPunct {
		switch tok.text {
		case "-", "+", "!", "~", "++", "--":
			p.next()
			return &unaryExpr{pos: tok.pos, op: tok.text, x: p.parseUnary()}

		case "(":
			// a cast looks like "(float4) expr"
			next := p.peekAt(1)
			if next.kind == tokIdent && p.isTypeName(next.text) && p.peekAt(2).text == ")" {
				p.next()
				typ := p.parseType()
				p.expect(")")

				return &castExpr{pos: tok.pos, typ: typ, x: p.parseUnary()}
			}
		}
	}

	return p.parsePostfix()
}

func (p *parser) parsePostfix() expr {
	x := p.parsePrimary()

	for {
		tok := p.peek()

		switch {
		case p.accept("."):
			name := p.expectIdent()
			x = &memberExpr{pos: name.pos, x: x, name: name.text}

		case p.accept("["):
			index := p.parseExpr()
			p.expect("]")
			x = &indexExpr{pos: tok.pos, x: x, index: index}

		case p.is("++"), p.is("--"):
			p.next()
			x = &unaryExpr{pos: tok.pos, op: tok.text, x: x, postfix: true}

		default:
			return x
		}
	}
}

func (p *parser) parsePrimary() expr {
	tok := p.next()

	switch tok.kind {
	case tokInt:
		value, err := strconv.ParseInt(tok.text, 0, 64)
		if err != nil {
			p.errs.add(tok.pos, 3000, "syntax error: invalid integer constant '%s'", tok.text)
			panic(bailout{})
		}

		return &literalExpr{pos: tok.pos, value: float64(value)}

	case tokFloat:
		value, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			p.errs.add(tok.pos, 3000, "syntax error: invalid float constant '%s'", tok.text)
			panic(bailout{})
		}

		return &literalExpr{pos: tok.pos, value: value, isFloat: true}

	case tokIdent:
		switch tok.text {
		case "true":
			return &literalExpr{pos: tok.pos, value: 1, isBool: true}
		case "false":
			return &literalExpr{pos: tok.pos, value: 0, isBool: true}
		}

		if isKeyword(tok.text) {
			p.unexpected(tok)
		}

		if p.accept("(") {
			call := &callExpr{pos: tok.pos, name: tok.text}

			if !p.is(")") {
				for {
					call.args = append(call.args, p.parseAssign())
					if !p.accept(",") {
						break
					}
				}
			}

			p.expect(")")
			return call
		}

		return &identExpr{pos: tok.pos, name: tok.text}

	case tokPunct:
		if tok.text == "(" {
			x := p.parseExpr()
			p.expect(")")
			return x
		}
	}

	p.unexpected(tok)
	return nil
}
