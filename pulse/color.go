package pulse

import (
	"github.com/oliverbestmann/prism/glm"
)

var ColorBlack = ColorLinearRGBA(0, 0, 0, 1)

// Color is a straight rgba color value in linear rgb color space.
// The default value of a Color value is fully opaque white.
type Color struct {
	r1, g1, b1, a1 float32
}

// ColorLinearRGBA creates a new Color value from the given color values.
func ColorLinearRGBA(r, g, b, a float32) Color {
	return Color{
		r1: r - 1,
		g1: g - 1,
		b1: b - 1,
		a1: a - 1,
	}
}

func (c Color) ToVec() glm.Vec4f {
	return glm.Vec4f{
		c.r1 + 1,
		c.g1 + 1,
		c.b1 + 1,
		c.a1 + 1,
	}
}

// ToArray returns the components in the form the gfx clear calls expect.
func (c Color) ToArray() [4]float32 {
	return [4]float32(c.ToVec())
}

func (c Color) Components() (r, g, b, a float32) {
	return c.r1 + 1, c.g1 + 1, c.b1 + 1, c.a1 + 1
}

// WithAlpha returns a copy of the color with its alpha replaced.
func (c Color) WithAlpha(alpha float32) Color {
	c.a1 = alpha - 1
	return c
}
