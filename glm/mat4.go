package glm

import "math"

// Mat4 is a 4x4 matrix in row-major order. Vectors are row vectors and are
// transformed as v·M, so the translation lives in the last row.
// Shaders declared with the default column_major packing expect the
// transposed matrix, see Transpose.
type Mat4[T numeric] [16]T

func IdentityMat4[T numeric]() Mat4[T] {
	return Mat4[T]{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mat4FromRows builds a matrix from its four rows.
func Mat4FromRows[T numeric](r0, r1, r2, r3 Vec4[T]) Mat4[T] {
	return Mat4[T]{
		r0[0], r0[1], r0[2], r0[3],
		r1[0], r1[1], r1[2], r1[3],
		r2[0], r2[1], r2[2], r2[3],
		r3[0], r3[1], r3[2], r3[3],
	}
}

func TranslationMat4[T numeric](x, y, z T) Mat4[T] {
	return Mat4[T]{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		x, y, z, 1,
	}
}

func ScaleMat4[T numeric](x, y, z T) Mat4[T] {
	return Mat4[T]{
		x, 0, 0, 0,
		0, y, 0, 0,
		0, 0, z, 0,
		0, 0, 0, 1,
	}
}

// RotationXMat4 rotates clockwise around the x axis when looking
// along the axis towards the origin (left-handed).
func RotationXMat4[T float](angle Rad) Mat4[T] {
	fs, fc := fastSincos(angle)
	s := T(fs)
	c := T(fc)

	return Mat4[T]{
		1, 0, 0, 0,
		0, c, s, 0,
		0, -s, c, 0,
		0, 0, 0, 1,
	}
}

func RotationYMat4[T float](angle Rad) Mat4[T] {
	fs, fc := fastSincos(angle)
	s := T(fs)
	c := T(fc)

	return Mat4[T]{
		c, 0, -s, 0,
		0, 1, 0, 0,
		s, 0, c, 0,
		0, 0, 0, 1,
	}
}

func RotationZMat4[T float](angle Rad) Mat4[T] {
	fs, fc := fastSincos(angle)
	s := T(fs)
	c := T(fc)

	return Mat4[T]{
		c, s, 0, 0,
		-s, c, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// At returns the element in the given row and column.
func (lhs Mat4[T]) At(row, col int) T {
	return lhs[row*4+col]
}

func (lhs Mat4[T]) Row(i int) Vec4[T] {
	return Vec4[T]{lhs[i*4], lhs[i*4+1], lhs[i*4+2], lhs[i*4+3]}
}

func (lhs Mat4[T]) Col(i int) Vec4[T] {
	return Vec4[T]{lhs[i], lhs[4+i], lhs[8+i], lhs[12+i]}
}

func (lhs Mat4[T]) Scale(x, y, z T) Mat4[T] {
	return lhs.Mul(ScaleMat4[T](x, y, z))
}

func (lhs Mat4[T]) Translate(x, y, z T) Mat4[T] {
	return lhs.Mul(TranslationMat4[T](x, y, z))
}

func (lhs Mat4[T]) IsZero() bool {
	return lhs == Mat4[T]{}
}

// Mul returns lhs·rhs. With row vectors the transform of lhs is applied first.
func (lhs Mat4[T]) Mul(rhs Mat4[T]) Mat4[T] {
	var out Mat4[T]

	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[r*4+c] = lhs[r*4]*rhs[c] +
				lhs[r*4+1]*rhs[4+c] +
				lhs[r*4+2]*rhs[8+c] +
				lhs[r*4+3]*rhs[12+c]
		}
	}

	return out
}

// Transform returns the row vector v·lhs.
func (lhs Mat4[T]) Transform(v Vec4[T]) Vec4[T] {
	return Vec4[T]{
		v[0]*lhs[0] + v[1]*lhs[4] + v[2]*lhs[8] + v[3]*lhs[12],
		v[0]*lhs[1] + v[1]*lhs[5] + v[2]*lhs[9] + v[3]*lhs[13],
		v[0]*lhs[2] + v[1]*lhs[6] + v[2]*lhs[10] + v[3]*lhs[14],
		v[0]*lhs[3] + v[1]*lhs[7] + v[2]*lhs[11] + v[3]*lhs[15],
	}
}

func (lhs Mat4[T]) Transpose() Mat4[T] {
	return Mat4[T]{
		lhs[0], lhs[4], lhs[8], lhs[12],
		lhs[1], lhs[5], lhs[9], lhs[13],
		lhs[2], lhs[6], lhs[10], lhs[14],
		lhs[3], lhs[7], lhs[11], lhs[15],
	}
}

// ApproxEqual reports whether every element differs by at most eps.
func (lhs Mat4[T]) ApproxEqual(rhs Mat4[T], eps float64) bool {
	for idx := range lhs {
		if math.Abs(float64(lhs[idx])-float64(rhs[idx])) > eps {
			return false
		}
	}

	return true
}
