package glm

import "math"

// All camera helpers use left-handed coordinates: +x right, +y up and +z
// pointing into the screen. Clip space depth runs from 0 at the near plane
// to 1 at the far plane.

// PerspectiveFovLH builds a left-handed perspective projection with the given
// vertical field of view.
func PerspectiveFovLH[T float](fovY Rad, aspect, near, far T) Mat4[T] {
	h := T(1 / math.Tan(float64(fovY)*0.5))
	w := h / aspect
	q := far / (far - near)

	return Mat4[T]{
		w, 0, 0, 0,
		0, h, 0, 0,
		0, 0, q, 1,
		0, 0, -q * near, 0,
	}
}

// LookAtLH builds a left-handed view matrix for a camera at eye looking at target.
func LookAtLH[T float](eye, target, up Vec3[T]) Mat4[T] {
	z := target.Sub(eye).Normalize()
	x := up.Cross(z).Normalize()
	y := z.Cross(x)

	return Mat4[T]{
		x[0], y[0], z[0], 0,
		x[1], y[1], z[1], 0,
		x[2], y[2], z[2], 0,
		-x.Dot(eye), -y.Dot(eye), -z.Dot(eye), 1,
	}
}

func DegToRad[T numeric](deg T) Rad {
	return Rad(float64(deg) * (math.Pi / 180))
}

func RadToDeg[T numeric](rad Rad) (deg T) {
	return T(rad * (180 / math.Pi))
}
