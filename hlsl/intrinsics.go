package hlsl

import "math"

type intrinsicFn func(fc *funcCompiler, e *callExpr, args []operand) operand

var intrinsics map[string]intrinsicFn

func init() {
	intrinsics = map[string]intrinsicFn{
		"mul":       intrinsicMul,
		"dot":       intrinsicDot,
		"cross":     intrinsicCross,
		"length":    intrinsicLength,
		"distance":  intrinsicDistance,
		"normalize": intrinsicNormalize,
		"reflect":   intrinsicReflect,
		"transpose": intrinsicTranspose,
		"any":       reduction(false),
		"all":       reduction(true),

		"abs":      componentwise1(math.Abs),
		"sin":      componentwise1(math.Sin),
		"cos":      componentwise1(math.Cos),
		"tan":      componentwise1(math.Tan),
		"asin":     componentwise1(math.Asin),
		"acos":     componentwise1(math.Acos),
		"atan":     componentwise1(math.Atan),
		"sqrt":     componentwise1(math.Sqrt),
		"exp":      componentwise1(math.Exp),
		"exp2":     componentwise1(math.Exp2),
		"log":      componentwise1(math.Log),
		"log2":     componentwise1(math.Log2),
		"floor":    componentwise1(math.Floor),
		"ceil":     componentwise1(math.Ceil),
		"round":    componentwise1(math.RoundToEven),
		"trunc":    componentwise1(math.Trunc),
		"rsqrt":    componentwise1(func(x float64) float64 { return 1 / math.Sqrt(x) }),
		"frac":     componentwise1(func(x float64) float64 { return x - math.Floor(x) }),
		"saturate": componentwise1(func(x float64) float64 { return min(max(x, 0), 1) }),
		"degrees":  componentwise1(func(x float64) float64 { return x * 180 / math.Pi }),
		"radians":  componentwise1(func(x float64) float64 { return x * math.Pi / 180 }),
		"sign": componentwise1(func(x float64) float64 {
			switch {
			case x > 0:
				return 1
			case x < 0:
				return -1
			default:
				return 0
			}
		}),

		"min":   componentwise2(math.Min),
		"max":   componentwise2(math.Max),
		"pow":   componentwise2(math.Pow),
		"fmod":  componentwise2(math.Mod),
		"atan2": componentwise2(math.Atan2),
		"step": componentwise2(func(edge, x float64) float64 {
			if x >= edge {
				return 1
			}
			return 0
		}),

		"lerp": componentwise3(func(a, b, t float64) float64 {
			return a + (b-a)*t
		}),
		"clamp": componentwise3(func(x, lo, hi float64) float64 {
			return min(max(x, lo), hi)
		}),
		"smoothstep": componentwise3(func(lo, hi, x float64) float64 {
			t := min(max((x-lo)/(hi-lo), 0), 1)
			return t * t * (3 - 2*t)
		}),
	}
}

func expectArgs(fc *funcCompiler, e *callExpr, args []operand, count int) {
	if len(args) != count {
		fc.c.abort(e.pos, 3013, "'%s': no matching %d parameter intrinsic function", e.name, len(args))
	}

	for idx, arg := range args {
		if !arg.typ.isNumeric() {
			fc.c.abort(e.args[idx].exprPos(), 3013, "'%s': no matching %d parameter intrinsic function", e.name, len(args))
		}
	}
}

// floatType returns the type with a float base.
func floatType(t Type) Type {
	return t.withBase(Float)
}

func componentwise1(f func(float64) float64) intrinsicFn {
	return func(fc *funcCompiler, e *callExpr, args []operand) operand {
		expectArgs(fc, e, args, 1)

		typ := floatType(args[0].typ)
		x := fc.reshape(args[0], typ, e.pos)

		return fc.unaryOp(x, typ, func(v float32) float32 {
			return float32(f(float64(v)))
		})
	}
}

func componentwise2(f func(float64, float64) float64) intrinsicFn {
	return func(fc *funcCompiler, e *callExpr, args []operand) operand {
		expectArgs(fc, e, args, 2)

		typ := floatType(fc.commonType(e.pos, args[0].typ, args[1].typ))
		x := fc.reshape(args[0], typ, e.pos)
		y := fc.reshape(args[1], typ, e.pos)

		return fc.binaryOp(x, y, typ, func(a, b float32) float32 {
			return float32(f(float64(a), float64(b)))
		})
	}
}

func componentwise3(f func(float64, float64, float64) float64) intrinsicFn {
	return func(fc *funcCompiler, e *callExpr, args []operand) operand {
		expectArgs(fc, e, args, 3)

		typ := fc.commonType(e.pos, args[0].typ, args[1].typ)
		typ = floatType(fc.commonType(e.pos, typ, args[2].typ))

		x := fc.reshape(args[0], typ, e.pos)
		y := fc.reshape(args[1], typ, e.pos)
		z := fc.reshape(args[2], typ, e.pos)

		return fc.ternaryOp(x, y, z, typ, func(a, b, c float32) float32 {
			return float32(f(float64(a), float64(b), float64(c)))
		})
	}
}

func reduction(all bool) intrinsicFn {
	return func(fc *funcCompiler, e *callExpr, args []operand) operand {
		expectArgs(fc, e, args, 1)

		tmp := fc.alloc(1)
		eval := args[0].eval

		return operand{typ: typeBool, eval: func(m *machine) []float32 {
			result := all

			for _, v := range eval(m) {
				if all && v == 0 {
					result = false
					break
				}

				if !all && v != 0 {
					result = true
					break
				}
			}

			out := m.slot(tmp, 1)
			out[0] = 0
			if result {
				out[0] = 1
			}

			return out
		}}
	}
}

// vectorPair converts both arguments to float vectors of the same size.
func vectorPair(fc *funcCompiler, e *callExpr, args []operand) (operand, operand, Type) {
	expectArgs(fc, e, args, 2)

	typ := floatType(fc.commonType(e.pos, args[0].typ, args[1].typ))
	if !typ.IsVector() {
		fc.c.abort(e.pos, 3013, "'%s': no matching 2 parameter intrinsic function", e.name)
	}

	return fc.reshape(args[0], typ, e.pos), fc.reshape(args[1], typ, e.pos), typ
}

func dot(x, y []float32) float32 {
	var sum float32
	for idx := range x {
		sum += x[idx] * y[idx]
	}

	return sum
}

func intrinsicDot(fc *funcCompiler, e *callExpr, args []operand) operand {
	a, b, _ := vectorPair(fc, e, args)

	tmp := fc.alloc(1)
	ea, eb := a.eval, b.eval

	return operand{typ: typeFloat, eval: func(m *machine) []float32 {
		out := m.slot(tmp, 1)
		out[0] = dot(ea(m), eb(m))
		return out
	}}
}

func intrinsicCross(fc *funcCompiler, e *callExpr, args []operand) operand {
	expectArgs(fc, e, args, 2)

	a := fc.convert(args[0], typeFloat3, e.args[0].exprPos())
	b := fc.convert(args[1], typeFloat3, e.args[1].exprPos())

	tmp := fc.alloc(3)
	ea, eb := a.eval, b.eval

	return operand{typ: typeFloat3, eval: func(m *machine) []float32 {
		x, y := ea(m), eb(m)
		out := m.slot(tmp, 3)
		out[0] = x[1]*y[2] - x[2]*y[1]
		out[1] = x[2]*y[0] - x[0]*y[2]
		out[2] = x[0]*y[1] - x[1]*y[0]
		return out
	}}
}

func intrinsicLength(fc *funcCompiler, e *callExpr, args []operand) operand {
	expectArgs(fc, e, args, 1)

	x := fc.reshape(args[0], floatType(args[0].typ), e.pos)
	if !x.typ.IsVector() {
		fc.c.abort(e.pos, 3013, "'length': no matching 1 parameter intrinsic function")
	}

	tmp := fc.alloc(1)
	eval := x.eval

	return operand{typ: typeFloat, eval: func(m *machine) []float32 {
		v := eval(m)
		out := m.slot(tmp, 1)
		out[0] = float32(math.Sqrt(float64(dot(v, v))))
		return out
	}}
}

func intrinsicDistance(fc *funcCompiler, e *callExpr, args []operand) operand {
	a, b, _ := vectorPair(fc, e, args)

	tmp := fc.alloc(1)
	ea, eb := a.eval, b.eval

	return operand{typ: typeFloat, eval: func(m *machine) []float32 {
		x, y := ea(m), eb(m)

		var sum float32
		for idx := range x {
			d := x[idx] - y[idx]
			sum += d * d
		}

		out := m.slot(tmp, 1)
		out[0] = float32(math.Sqrt(float64(sum)))
		return out
	}}
}

func intrinsicNormalize(fc *funcCompiler, e *callExpr, args []operand) operand {
	expectArgs(fc, e, args, 1)

	typ := floatType(args[0].typ)
	if !typ.IsVector() {
		fc.c.abort(e.pos, 3013, "'normalize': no matching 1 parameter intrinsic function")
	}

	x := fc.reshape(args[0], typ, e.pos)

	n := typ.Size()
	tmp := fc.alloc(n)
	eval := x.eval

	return operand{typ: typ, eval: func(m *machine) []float32 {
		v := eval(m)
		inv := float32(1 / math.Sqrt(float64(dot(v, v))))

		out := m.slot(tmp, n)
		for idx := range out {
			out[idx] = v[idx] * inv
		}

		return out
	}}
}

func intrinsicReflect(fc *funcCompiler, e *callExpr, args []operand) operand {
	i, nrm, typ := vectorPair(fc, e, args)

	n := typ.Size()
	tmp := fc.alloc(n)
	ei, en := i.eval, nrm.eval

	return operand{typ: typ, eval: func(m *machine) []float32 {
		iv, nv := ei(m), en(m)
		d := 2 * dot(nv, iv)

		out := m.slot(tmp, n)
		for idx := range out {
			out[idx] = iv[idx] - d*nv[idx]
		}

		return out
	}}
}

func intrinsicTranspose(fc *funcCompiler, e *callExpr, args []operand) operand {
	expectArgs(fc, e, args, 1)

	x := args[0]
	if !x.typ.IsMatrix() {
		return x
	}

	rows, cols := x.typ.Rows, x.typ.Cols
	typ := matrixType(x.typ.Base, cols, rows)

	comps := make([]int, 0, rows*cols)
	for r := 0; r < cols; r++ {
		for c := 0; c < rows; c++ {
			comps = append(comps, c*cols+r)
		}
	}

	x.lv = nil
	return fc.project(x, comps, typ)
}

// intrinsicMul multiplies vectors and matrices. Vectors on the left are row
// vectors, vectors on the right are column vectors.
func intrinsicMul(fc *funcCompiler, e *callExpr, args []operand) operand {
	expectArgs(fc, e, args, 2)

	a, b := args[0], args[1]

	switch {
	case a.typ.IsScalar() || b.typ.IsScalar():
		return fc.binaryValues(e.pos, "*", a, b)

	case a.typ.IsVector() && b.typ.IsVector():
		return intrinsicDot(fc, e, args)
	}

	// treat vectors as matrices with one row (left) or one column (right)
	aRows, aCols := a.typ.Rows, a.typ.Cols
	bRows, bCols := b.typ.Rows, b.typ.Cols

	if b.typ.IsVector() {
		bRows, bCols = b.typ.Cols, 1
	}

	if aCols != bRows {
		fc.c.abort(e.pos, 3013, "'mul': no matching 2 parameter intrinsic function")
	}

	var typ Type
	switch {
	case a.typ.IsVector():
		typ = vectorType(Float, bCols)
	case b.typ.IsVector():
		typ = vectorType(Float, aRows)
	default:
		typ = matrixType(Float, aRows, bCols)
	}

	n := typ.Size()
	tmp := fc.alloc(n)
	ea, eb := a.eval, b.eval

	return operand{typ: typ, eval: func(m *machine) []float32 {
		x, y := ea(m), eb(m)
		out := m.slot(tmp, n)

		for r := 0; r < aRows; r++ {
			for c := 0; c < bCols; c++ {
				var sum float32
				for k := 0; k < aCols; k++ {
					sum += x[r*aCols+k] * y[k*bCols+c]
				}

				out[r*bCols+c] = sum
			}
		}

		return out
	}}
}
