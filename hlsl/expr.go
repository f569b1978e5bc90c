package hlsl

import "math"

type operand struct {
	typ  Type
	eval evalFn

	// set if the operand can be assigned to
	lv *lvalue

	// set if the value is known at compile time
	constant []float32
}

// lvalue addresses components of a variable.
type lvalue struct {
	root     func(m *machine) []float32
	comps    []int
	readonly bool
	name     string
}

func contiguous(comps []int) bool {
	for idx := 1; idx < len(comps); idx++ {
		if comps[idx] != comps[0]+idx {
			return false
		}
	}

	return len(comps) > 0
}

func (fc *funcCompiler) constant(typ Type, values ...float32) operand {
	return operand{
		typ:      typ,
		eval:     func(*machine) []float32 { return values },
		constant: values,
	}
}

func (fc *funcCompiler) lvalueOperand(typ Type, lv *lvalue) operand {
	root := lv.root
	n := len(lv.comps)

	if contiguous(lv.comps) {
		c0 := lv.comps[0]
		return operand{
			typ: typ,
			lv:  lv,
			eval: func(m *machine) []float32 {
				s := root(m)
				return s[c0 : c0+n : c0+n]
			},
		}
	}

	comps := lv.comps
	tmp := fc.alloc(n)

	return operand{
		typ: typ,
		lv:  lv,
		eval: func(m *machine) []float32 {
			s := root(m)
			out := m.slot(tmp, n)
			for idx, c := range comps {
				out[idx] = s[c]
			}

			return out
		},
	}
}

// detach copies the value of an lvalue operand into a temporary, so that a
// later store cannot change the value while it is read.
func (fc *funcCompiler) detach(op operand) operand {
	if op.lv == nil {
		return op
	}

	n := op.typ.Size()
	tmp := fc.alloc(n)
	eval := op.eval

	return operand{
		typ: op.typ,
		eval: func(m *machine) []float32 {
			out := m.slot(tmp, n)
			copy(out, eval(m))
			return out
		},
	}
}

// project selects components of an operand. The result stays assignable if
// the operand was.
func (fc *funcCompiler) project(op operand, comps []int, typ Type) operand {
	if op.lv != nil {
		mapped := make([]int, len(comps))
		for idx, c := range comps {
			mapped[idx] = op.lv.comps[c]
		}

		lv := &lvalue{
			root:     op.lv.root,
			comps:    mapped,
			readonly: op.lv.readonly || hasDuplicates(comps),
			name:     op.lv.name,
		}

		return fc.lvalueOperand(typ, lv)
	}

	if op.constant != nil {
		values := make([]float32, len(comps))
		for idx, c := range comps {
			values[idx] = op.constant[c]
		}

		return fc.constant(typ, values...)
	}

	eval := op.eval
	n := len(comps)

	if contiguous(comps) {
		c0 := comps[0]
		return operand{typ: typ, eval: func(m *machine) []float32 {
			s := eval(m)
			return s[c0 : c0+n : c0+n]
		}}
	}

	tmp := fc.alloc(n)

	return operand{typ: typ, eval: func(m *machine) []float32 {
		s := eval(m)
		out := m.slot(tmp, n)
		for idx, c := range comps {
			out[idx] = s[c]
		}

		return out
	}}
}

func hasDuplicates(comps []int) bool {
	seen := map[int]bool{}
	for _, c := range comps {
		if seen[c] {
			return true
		}

		seen[c] = true
	}

	return false
}

// canConvert reports whether a value of type from converts implicitly to type to.
func canConvert(from, to Type) bool {
	switch {
	case from.IsStruct() || to.IsStruct():
		return from.IsStruct() && to.IsStruct() && from.Struct == to.Struct

	case from.Base == Void || to.Base == Void:
		return false

	case from.Rows == to.Rows && from.Cols == to.Cols:
		return true

	case from.IsScalar():
		return true

	case from.IsVector() && to.IsVector():
		return from.Cols >= to.Cols

	case from.IsMatrix() && to.IsMatrix():
		return from.Rows >= to.Rows && from.Cols >= to.Cols
	}

	return false
}

// convert applies an implicit conversion to the operand.
func (fc *funcCompiler) convert(op operand, to Type, pos Pos) operand {
	if !canConvert(op.typ, to) {
		fc.c.abort(pos, 3017, "cannot implicitly convert from '%s' to '%s'", op.typ, to)
	}

	return fc.reshape(op, to, pos)
}

// reshape converts the operand to the target type, broadcasting scalars,
// truncating vectors and matrices and converting the base type.
func (fc *funcCompiler) reshape(op operand, to Type, pos Pos) operand {
	from := op.typ

	if to.IsStruct() {
		return op
	}

	switch {
	case from.Rows == to.Rows && from.Cols == to.Cols:

	case from.IsScalar():
		op = fc.broadcast(op, to.withBase(from.Base))

	case from.IsVector() && to.IsVector():
		fc.c.errs.warn(pos, 3206, "implicit truncation of vector type")

		comps := make([]int, to.Cols)
		for idx := range comps {
			comps[idx] = idx
		}

		op = fc.project(op, comps, to.withBase(from.Base))

	case from.IsMatrix() && to.IsMatrix():
		var comps []int
		for r := 0; r < to.Rows; r++ {
			for c := 0; c < to.Cols; c++ {
				comps = append(comps, r*from.Cols+c)
			}
		}

		op = fc.project(op, comps, to.withBase(from.Base))
	}

	return fc.convertBase(op, to.Base)
}

func (fc *funcCompiler) broadcast(op operand, to Type) operand {
	n := to.Size()

	if op.constant != nil {
		values := make([]float32, n)
		for idx := range values {
			values[idx] = op.constant[0]
		}

		return fc.constant(to, values...)
	}

	tmp := fc.alloc(n)
	eval := op.eval

	return operand{typ: to, eval: func(m *machine) []float32 {
		value := eval(m)[0]
		out := m.slot(tmp, n)
		for idx := range out {
			out[idx] = value
		}

		return out
	}}
}

// convertBase converts the component type. Only conversions that change
// the numeric value need code, e.g. float to int truncates.
func (fc *funcCompiler) convertBase(op operand, base BaseKind) operand {
	from := op.typ.Base
	if from == base || base == Float || (from != Float && base != Bool) {
		op.typ = op.typ.withBase(base)
		return op
	}

	var conv func(float32) float32
	switch base {
	case Bool:
		conv = func(v float32) float32 {
			if v != 0 {
				return 1
			}
			return 0
		}

	case Uint:
		conv = func(v float32) float32 {
			return float32(uint32(max(v, 0)))
		}

	default:
		conv = func(v float32) float32 {
			return float32(math.Trunc(float64(v)))
		}
	}

	return fc.unaryOp(op, op.typ.withBase(base), conv)
}

func (fc *funcCompiler) unaryOp(op operand, typ Type, f func(float32) float32) operand {
	n := typ.Size()

	if op.constant != nil {
		values := make([]float32, n)
		for idx := range values {
			values[idx] = f(op.constant[idx])
		}

		return fc.constant(typ, values...)
	}

	tmp := fc.alloc(n)
	eval := op.eval

	return operand{typ: typ, eval: func(m *machine) []float32 {
		value := eval(m)
		out := m.slot(tmp, n)
		for idx := range out {
			out[idx] = f(value[idx])
		}

		return out
	}}
}

func (fc *funcCompiler) binaryOp(a, b operand, typ Type, f func(x, y float32) float32) operand {
	n := typ.Size()
	tmp := fc.alloc(n)
	ea, eb := a.eval, b.eval

	return operand{typ: typ, eval: func(m *machine) []float32 {
		x := ea(m)
		y := eb(m)
		out := m.slot(tmp, n)
		for idx := range out {
			out[idx] = f(x[idx], y[idx])
		}

		return out
	}}
}

func (fc *funcCompiler) ternaryOp(a, b, c operand, typ Type, f func(x, y, z float32) float32) operand {
	n := typ.Size()
	tmp := fc.alloc(n)
	ea, eb, ec := a.eval, b.eval, c.eval

	return operand{typ: typ, eval: func(m *machine) []float32 {
		x := ea(m)
		y := eb(m)
		z := ec(m)
		out := m.slot(tmp, n)
		for idx := range out {
			out[idx] = f(x[idx], y[idx], z[idx])
		}

		return out
	}}
}

// commonType returns the type both operands are converted to in a
// component wise operation.
func (fc *funcCompiler) commonType(pos Pos, a, b Type) Type {
	if !a.isNumeric() || !b.isNumeric() {
		fc.c.abort(pos, 3020, "type mismatch between '%s' and '%s'", a, b)
	}

	var base BaseKind
	switch {
	case a.Base == Float || b.Base == Float:
		base = Float
	case a.Base == Int || b.Base == Int:
		base = Int
	case a.Base == Uint || b.Base == Uint:
		base = Uint
	default:
		base = Bool
	}

	switch {
	case a.Rows == b.Rows && a.Cols == b.Cols:
		return a.withBase(base)

	case a.IsScalar():
		return b.withBase(base)

	case b.IsScalar():
		return a.withBase(base)

	case a.IsVector() && b.IsVector():
		fc.c.errs.warn(pos, 3206, "implicit truncation of vector type")
		return vectorType(base, min(a.Cols, b.Cols))

	case a.IsMatrix() && b.IsMatrix():
		return matrixType(base, min(a.Rows, b.Rows), min(a.Cols, b.Cols))
	}

	fc.c.abort(pos, 3020, "type mismatch between '%s' and '%s'", a, b)
	return Type{}
}

func (fc *funcCompiler) expr(e expr) operand {
	switch e := e.(type) {
	case *literalExpr:
		switch {
		case e.isBool:
			return fc.constant(typeBool, float32(e.value))
		case e.isFloat:
			return fc.constant(typeFloat, float32(e.value))
		default:
			return fc.constant(typeInt, float32(e.value))
		}

	case *identExpr:
		v, ok := fc.lookup(e.name)
		if !ok {
			fc.c.abort(e.pos, 3004, "undeclared identifier '%s'", e.name)
		}

		comps := make([]int, v.typ.Size())
		for idx := range comps {
			comps[idx] = idx
		}

		return fc.lvalueOperand(v.typ, &lvalue{
			root:     v.storage(),
			comps:    comps,
			readonly: v.readonly,
			name:     v.name,
		})

	case *memberExpr:
		return fc.member(e)

	case *indexExpr:
		return fc.index(e)

	case *unaryExpr:
		return fc.unary(e)

	case *binaryExpr:
		return fc.binary(e)

	case *assignExpr:
		return fc.assign(e)

	case *condExpr:
		return fc.cond(e)

	case *castExpr:
		return fc.cast(e)

	case *callExpr:
		return fc.call(e)
	}

	fc.c.abort(e.exprPos(), 3000, "syntax error: unsupported expression")
	return operand{}
}

func (fc *funcCompiler) member(e *memberExpr) operand {
	x := fc.expr(e.x)

	switch {
	case x.typ.IsStruct():
		field, ok := x.typ.Struct.field(e.name)
		if !ok {
			fc.c.abort(e.pos, 3018, "invalid subscript '%s'", e.name)
		}

		comps := make([]int, field.Type.Size())
		for idx := range comps {
			comps[idx] = field.offset + idx
		}

		return fc.project(x, comps, field.Type)

	case x.typ.IsVector():
		comps, ok := parseSwizzle(e.name, x.typ.Cols)
		if !ok {
			fc.c.abort(e.pos, 3018, "invalid subscript '%s'", e.name)
		}

		return fc.project(x, comps, vectorType(x.typ.Base, len(comps)))

	case x.typ.IsMatrix():
		comps, ok := parseMatrixSwizzle(e.name, x.typ.Rows, x.typ.Cols)
		if !ok {
			fc.c.abort(e.pos, 3018, "invalid subscript '%s'", e.name)
		}

		return fc.project(x, comps, vectorType(x.typ.Base, len(comps)))
	}

	fc.c.abort(e.pos, 3018, "invalid subscript '%s'", e.name)
	return operand{}
}

func parseSwizzle(name string, size int) ([]int, bool) {
	if len(name) == 0 || len(name) > 4 {
		return nil, false
	}

	const xyzw = "xyzw"
	const rgba = "rgba"

	var set string
	switch name[0] {
	case 'x', 'y', 'z', 'w':
		set = xyzw
	case 'r', 'g', 'b', 'a':
		set = rgba
	default:
		return nil, false
	}

	comps := make([]int, len(name))
	for idx := range len(name) {
		c := -1
		for k := range len(set) {
			if set[k] == name[idx] {
				c = k
			}
		}

		if c < 0 || c >= size {
			return nil, false
		}

		comps[idx] = c
	}

	return comps, true
}

// parseMatrixSwizzle parses "_m01_m10" (zero based) or "_12_21" (one based).
func parseMatrixSwizzle(name string, rows, cols int) ([]int, bool) {
	var comps []int

	for len(name) > 0 && len(comps) < 4 {
		var r, c int

		switch {
		case len(name) >= 4 && name[0] == '_' && name[1] == 'm':
			r, c = int(name[2]-'0'), int(name[3]-'0')
			name = name[4:]

		case len(name) >= 3 && name[0] == '_':
			r, c = int(name[1]-'1'), int(name[2]-'1')
			name = name[3:]

		default:
			return nil, false
		}

		if r < 0 || r >= rows || c < 0 || c >= cols {
			return nil, false
		}

		comps = append(comps, r*cols+c)
	}

	return comps, len(name) == 0 && len(comps) > 0
}

func (fc *funcCompiler) index(e *indexExpr) operand {
	x := fc.expr(e.x)
	idx := fc.convert(fc.expr(e.index), typeInt, e.index.exprPos())

	if !x.typ.IsVector() && !x.typ.IsMatrix() {
		fc.c.abort(e.pos, 3121, "array, matrix, vector, or indexable object type expected in index expression")
	}

	// a row of a matrix or a component of a vector
	var rowType Type
	var stride int
	var count int

	if x.typ.IsMatrix() {
		rowType = vectorType(x.typ.Base, x.typ.Cols)
		stride = x.typ.Cols
		count = x.typ.Rows
	} else {
		rowType = scalarType(x.typ.Base)
		stride = 1
		count = x.typ.Cols
	}

	if idx.constant != nil {
		row := int(idx.constant[0])
		if row < 0 || row >= count {
			fc.c.abort(e.index.exprPos(), 3504, "array index out of bounds")
		}

		comps := make([]int, stride)
		for k := range comps {
			comps[k] = row*stride + k
		}

		return fc.project(x, comps, rowType)
	}

	tmp := fc.alloc(stride)
	ex, ei := x.eval, idx.eval

	return operand{typ: rowType, eval: func(m *machine) []float32 {
		value := ex(m)
		row := min(max(int(ei(m)[0]), 0), count-1)

		out := m.slot(tmp, stride)
		copy(out, value[row*stride:row*stride+stride])
		return out
	}}
}

func (fc *funcCompiler) unary(e *unaryExpr) operand {
	x := fc.expr(e.x)

	if !x.typ.isNumeric() {
		fc.c.abort(e.pos, 3022, "scalar, vector, or matrix expected")
	}

	switch e.op {
	case "+":
		return x

	case "-":
		return fc.unaryOp(x, x.typ, func(v float32) float32 { return -v })

	case "!":
		return fc.unaryOp(x, x.typ.withBase(Bool), func(v float32) float32 {
			if v == 0 {
				return 1
			}
			return 0
		})

	case "~":
		if !x.typ.isIntegral() {
			fc.c.abort(e.pos, 3082, "int or unsigned int type required")
		}

		return fc.unaryOp(x, x.typ, func(v float32) float32 { return float32(^int32(v)) })

	default:
		return fc.increment(e, x)
	}
}

func (fc *funcCompiler) increment(e *unaryExpr, x operand) operand {
	if x.lv == nil || x.lv.readonly {
		fc.c.abort(e.pos, 3025, "l-value specifies const object")
	}

	delta := float32(1)
	if e.op == "--" {
		delta = -1
	}

	n := x.typ.Size()
	tmp := fc.alloc(n)
	root, comps := x.lv.root, x.lv.comps
	postfix := e.postfix

	return operand{typ: x.typ, eval: func(m *machine) []float32 {
		s := root(m)
		out := m.slot(tmp, n)

		for idx, c := range comps {
			if postfix {
				out[idx] = s[c]
				s[c] += delta
			} else {
				s[c] += delta
				out[idx] = s[c]
			}
		}

		return out
	}}
}

func arithmetic(op string, integral bool) func(x, y float32) float32 {
	switch op {
	case "+":
		return func(x, y float32) float32 { return x + y }
	case "-":
		return func(x, y float32) float32 { return x - y }
	case "*":
		return func(x, y float32) float32 { return x * y }
	case "/":
		if integral {
			return func(x, y float32) float32 {
				if y == 0 {
					return 0
				}
				return float32(math.Trunc(float64(x / y)))
			}
		}

		return func(x, y float32) float32 { return x / y }
	case "%":
		return func(x, y float32) float32 { return float32(math.Mod(float64(x), float64(y))) }
	}

	return nil
}

func comparison(op string) func(x, y float32) float32 {
	var test func(x, y float32) bool

	switch op {
	case "<":
		test = func(x, y float32) bool { return x < y }
	case ">":
		test = func(x, y float32) bool { return x > y }
	case "<=":
		test = func(x, y float32) bool { return x <= y }
	case ">=":
		test = func(x, y float32) bool { return x >= y }
	case "==":
		test = func(x, y float32) bool { return x == y }
	case "!=":
		test = func(x, y float32) bool { return x != y }
	case "&&":
		test = func(x, y float32) bool { return x != 0 && y != 0 }
	case "||":
		test = func(x, y float32) bool { return x != 0 || y != 0 }
	default:
		return nil
	}

	return func(x, y float32) float32 {
		if test(x, y) {
			return 1
		}
		return 0
	}
}

func bitwise(op string) func(x, y float32) float32 {
	switch op {
	case "&":
		return func(x, y float32) float32 { return float32(int32(x) & int32(y)) }
	case "|":
		return func(x, y float32) float32 { return float32(int32(x) | int32(y)) }
	case "^":
		return func(x, y float32) float32 { return float32(int32(x) ^ int32(y)) }
	case "<<":
		return func(x, y float32) float32 { return float32(int32(x) << (uint32(y) & 31)) }
	case ">>":
		return func(x, y float32) float32 { return float32(int32(x) >> (uint32(y) & 31)) }
	}

	return nil
}

func (fc *funcCompiler) binary(e *binaryExpr) operand {
	x := fc.expr(e.x)
	y := fc.expr(e.y)

	return fc.binaryValues(e.pos, e.op, x, y)
}

func (fc *funcCompiler) binaryValues(pos Pos, op string, x, y operand) operand {
	typ := fc.commonType(pos, x.typ, y.typ)

	x = fc.reshape(x, typ, pos)
	y = fc.reshape(y, typ, pos)

	if f := comparison(op); f != nil {
		return fc.binaryOp(x, y, typ.withBase(Bool), f)
	}

	if f := bitwise(op); f != nil {
		if !typ.isIntegral() {
			fc.c.abort(pos, 3082, "int or unsigned int type required")
		}

		return fc.binaryOp(x, y, typ, f)
	}

	if typ.Base == Bool {
		typ = typ.withBase(Int)
	}

	f := arithmetic(op, typ.isIntegral())
	if f == nil {
		fc.c.abort(pos, 3000, "syntax error: unexpected token '%s'", op)
	}

	return fc.binaryOp(x, y, typ, f)
}

func (fc *funcCompiler) store(pos Pos, target operand, value operand) operand {
	if target.lv == nil || target.lv.readonly {
		fc.c.abort(pos, 3025, "l-value specifies const object")
	}

	value = fc.detach(fc.convert(value, target.typ, pos))

	root, comps := target.lv.root, target.lv.comps
	eval := value.eval

	return operand{typ: target.typ, eval: func(m *machine) []float32 {
		v := eval(m)
		s := root(m)
		for idx, c := range comps {
			s[c] = v[idx]
		}

		return v
	}}
}

func (fc *funcCompiler) assign(e *assignExpr) operand {
	target := fc.expr(e.x)
	value := fc.expr(e.y)

	if e.op != "=" {
		value = fc.binaryValues(e.pos, e.op[:1], target, value)
	}

	return fc.store(e.pos, target, value)
}

func (fc *funcCompiler) cond(e *condExpr) operand {
	cond := fc.expr(e.cond)
	then := fc.expr(e.then)
	els := fc.expr(e.els)

	typ := fc.commonType(e.pos, then.typ, els.typ)
	then = fc.reshape(then, typ, e.pos)
	els = fc.reshape(els, typ, e.pos)

	if cond.typ.IsScalar() {
		ec, et, ee := cond.eval, then.eval, els.eval
		return operand{typ: typ, eval: func(m *machine) []float32 {
			if ec(m)[0] != 0 {
				return et(m)
			}

			return ee(m)
		}}
	}

	cond = fc.convert(cond, typ.withBase(Bool), e.cond.exprPos())

	return fc.ternaryOp(cond, then, els, typ, func(c, x, y float32) float32 {
		if c != 0 {
			return x
		}
		return y
	})
}

func (fc *funcCompiler) cast(e *castExpr) operand {
	to := fc.c.resolveType(e.typ)
	x := fc.expr(e.x)

	if to.IsStruct() || x.typ.IsStruct() {
		if x.typ.IsStruct() && to.IsStruct() && x.typ.Struct == to.Struct {
			return x
		}

		fc.c.abort(e.pos, 3017, "cannot convert from '%s' to '%s'", x.typ, to)
	}

	// explicit casts may also reinterpret a value with the same number of components
	if !canConvert(x.typ, to) {
		if x.typ.Size() != to.Size() {
			fc.c.abort(e.pos, 3017, "cannot convert from '%s' to '%s'", x.typ, to)
		}

		x.typ = Type{Base: x.typ.Base, Rows: to.Rows, Cols: to.Cols}
		x.lv = nil
	}

	return fc.reshape(x, to, e.pos)
}

func (fc *funcCompiler) call(e *callExpr) operand {
	if typ, ok := builtinType(e.name); ok {
		return fc.construct(e, typ)
	}

	if _, ok := fc.c.structs[e.name]; ok {
		fc.c.abort(e.pos, 3037, "constructors only defined for numeric base types")
	}

	var args []operand
	for _, arg := range e.args {
		args = append(args, fc.expr(arg))
	}

	if candidates, ok := fc.c.funcs[e.name]; ok {
		return fc.callFunction(e, candidates, args)
	}

	if intrinsic, ok := intrinsics[e.name]; ok {
		return intrinsic(fc, e, args)
	}

	fc.c.abort(e.pos, 3004, "undeclared identifier '%s'", e.name)
	return operand{}
}

func (fc *funcCompiler) construct(e *callExpr, typ Type) operand {
	if typ.Base == Void {
		fc.c.abort(e.pos, 3000, "syntax error: unexpected token 'void'")
	}

	var parts []operand
	var total int

	for _, arg := range e.args {
		op := fc.expr(arg)
		if !op.typ.isNumeric() {
			fc.c.abort(arg.exprPos(), 3017, "cannot convert from '%s' to '%s'", op.typ, typ)
		}

		parts = append(parts, fc.convertBase(op, typ.Base))
		total += op.typ.Size()
	}

	if len(parts) == 1 && parts[0].typ.IsScalar() {
		return fc.broadcast(parts[0], typ)
	}

	if total != typ.Size() {
		fc.c.abort(e.pos, 3014, "incorrect number of arguments to numeric-type constructor")
	}

	n := typ.Size()
	tmp := fc.alloc(n)

	evals := make([]evalFn, len(parts))
	for idx, part := range parts {
		evals[idx] = part.eval
	}

	return operand{typ: typ, eval: func(m *machine) []float32 {
		out := m.slot(tmp, n)

		var offset int
		for _, eval := range evals {
			offset += copy(out[offset:], eval(m))
		}

		return out
	}}
}

func (fc *funcCompiler) callFunction(e *callExpr, candidates []*function, args []operand) operand {
	var fn *function

	for _, candidate := range candidates {
		if len(candidate.decl.params) != len(args) {
			continue
		}

		matches := true
		for idx, pd := range candidate.decl.params {
			if !canConvert(args[idx].typ, fc.c.resolveType(pd.typ)) {
				matches = false
				break
			}
		}

		if matches {
			fn = candidate
			break
		}
	}

	if fn == nil {
		fc.c.abort(e.pos, 3013, "'%s': no matching %d parameter function", e.name, len(args))
	}

	fc.c.compileFunction(fn)
	fc.fn.callees = append(fc.fn.callees, fn)

	type binding struct {
		eval   evalFn
		param  int
		size   int
		in     bool
		out    bool
		target *lvalue
	}

	bindings := make([]binding, len(args))

	for idx, pd := range fn.decl.params {
		param := fn.params[idx]
		b := binding{param: param.offset, size: param.typ.Size(), in: pd.in, out: pd.out}

		if pd.in {
			b.eval = fc.detach(fc.convert(args[idx], param.typ, e.args[idx].exprPos())).eval
		}

		if pd.out {
			arg := args[idx]
			if arg.lv == nil || arg.lv.readonly {
				fc.c.abort(e.args[idx].exprPos(), 3025, "l-value specifies const object")
			}

			if arg.typ != param.typ {
				fc.c.abort(e.args[idx].exprPos(), 3017, "cannot implicitly convert from '%s' to '%s'", param.typ, arg.typ)
			}

			b.target = arg.lv
		}

		bindings[idx] = b
	}

	retSize := fn.ret.Size()
	res := fc.alloc(retSize)

	return operand{typ: fn.ret, eval: func(m *machine) []float32 {
		var stackValues [8][]float32

		values := stackValues[:0]
		for _, b := range bindings {
			var value []float32
			if b.in {
				value = b.eval(m)
			}

			values = append(values, value)
		}

		callerFp, callerSp := m.fp, m.sp
		calleeFp := callerSp

		frame := m.stack[calleeFp : calleeFp+fn.frameSize]
		clear(frame)

		for idx, b := range bindings {
			if b.in {
				copy(frame[b.param:b.param+b.size], values[idx])
			}
		}

		m.fp = calleeFp
		m.sp = calleeFp + fn.frameSize

		fn.body(m)

		m.fp, m.sp = callerFp, callerSp

		for _, b := range bindings {
			if b.out {
				s := b.target.root(m)
				for k, c := range b.target.comps {
					s[c] = frame[b.param+k]
				}
			}
		}

		out := m.slot(res, retSize)
		copy(out, frame[:retSize])
		return out
	}}
}
