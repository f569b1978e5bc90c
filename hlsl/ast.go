package hlsl

// syntax tree produced by the parser

type typeRef struct {
	pos  Pos
	name string
}

type fieldDecl struct {
	pos      Pos
	typ      typeRef
	name     string
	semantic string

	// matrix packing qualifier in constant buffers
	rowMajor    bool
	columnMajor bool
}

type structDecl struct {
	pos    Pos
	name   string
	fields []fieldDecl
}

type cbufferDecl struct {
	pos      Pos
	name     string
	register int // -1 if not bound explicitly
	fields   []fieldDecl
}

type paramDecl struct {
	pos      Pos
	typ      typeRef
	name     string
	semantic string
	in, out  bool
}

type funcDecl struct {
	pos      Pos
	ret      typeRef
	name     string
	params   []paramDecl
	semantic string
	body     *blockStmt
}

type globalDecl struct {
	static bool
	decl   *declStmt
}

type file struct {
	structs  []*structDecl
	cbuffers []*cbufferDecl
	funcs    []*funcDecl
	globals  []*globalDecl
}

// statements

type stmt interface {
	stmtPos() Pos
}

type declarator struct {
	pos  Pos
	name string
	init expr
}

type declStmt struct {
	pos     Pos
	typ     typeRef
	isConst bool
	vars    []declarator
}

type exprStmt struct {
	pos Pos
	x   expr
}

type blockStmt struct {
	pos   Pos
	stmts []stmt
}

type ifStmt struct {
	pos  Pos
	cond expr
	then stmt
	els  stmt
}

type forStmt struct {
	pos  Pos
	init stmt
	cond expr
	post expr
	body stmt
}

type whileStmt struct {
	pos  Pos
	cond expr
	body stmt
	do   bool
}

type returnStmt struct {
	pos Pos
	x   expr
}

type branchStmt struct {
	pos  Pos
	kind string // break, continue or discard
}

type emptyStmt struct {
	pos Pos
}

func (s *declStmt) stmtPos() Pos   { return s.pos }
func (s *exprStmt) stmtPos() Pos   { return s.pos }
func (s *blockStmt) stmtPos() Pos  { return s.pos }
func (s *ifStmt) stmtPos() Pos     { return s.pos }
func (s *forStmt) stmtPos() Pos    { return s.pos }
func (s *whileStmt) stmtPos() Pos  { return s.pos }
func (s *returnStmt) stmtPos() Pos { return s.pos }
func (s *branchStmt) stmtPos() Pos { return s.pos }
func (s *emptyStmt) stmtPos() Pos  { return s.pos }

// expressions

type expr interface {
	exprPos() Pos
}

type identExpr struct {
	pos  Pos
	name string
}

type literalExpr struct {
	pos     Pos
	value   float64
	isFloat bool
	isBool  bool
}

type unaryExpr struct {
	pos     Pos
	op      string
	x       expr
	postfix bool
}

type binaryExpr struct {
	pos  Pos
	op   string
	x, y expr
}

type assignExpr struct {
	pos  Pos
	op   string
	x, y expr
}

type condExpr struct {
	pos             Pos
	cond, then, els expr
}

type callExpr struct {
	pos  Pos
	name string
	args []expr
}

type castExpr struct {
	pos Pos
	typ typeRef
	x   expr
}

type memberExpr struct {
	pos  Pos
	x    expr
	name string
}

type indexExpr struct {
	pos   Pos
	x     expr
	index expr
}

func (e *identExpr) exprPos() Pos   { return e.pos }
func (e *literalExpr) exprPos() Pos { return e.pos }
func (e *unaryExpr) exprPos() Pos   { return e.pos }
func (e *binaryExpr) exprPos() Pos  { return e.pos }
func (e *assignExpr) exprPos() Pos  { return e.pos }
func (e *condExpr) exprPos() Pos    { return e.pos }
func (e *callExpr) exprPos() Pos    { return e.pos }
func (e *castExpr) exprPos() Pos    { return e.pos }
func (e *memberExpr) exprPos() Pos  { return e.pos }
func (e *indexExpr) exprPos() Pos   { return e.pos }
