package soft

import (
	"math"

	"github.com/oliverbestmann/prism/gfx"
)

// clipVertex is a vertex in homogeneous clip space.
type clipVertex struct {
	pos   [4]float32
	attrs []float32
}

// screenVertex is a vertex after the perspective divide and the viewport
// transform. Its attributes are premultiplied by invW for perspective
// correct interpolation.
type screenVertex struct {
	x, y, z float64
	invW    float64
	attrs   []float32
}

// plane is a clip plane in homogeneous space, a point p is inside if
// dot(plane, p) >= 0.
type plane [4]float32

var (
	nearPlane = plane{0, 0, 1, 0}
	farPlane  = plane{0, 0, -1, 1}

	// keeps w away from zero for projections without a near plane
	wPlane = plane{0, 0, 0, 1}
)

const wEpsilon = 1e-6

func (pl plane) distance(v *clipVertex) float32 {
	d := pl[0]*v.pos[0] + pl[1]*v.pos[1] + pl[2]*v.pos[2] + pl[3]*v.pos[3]
	if pl == wPlane {
		d -= wEpsilon
	}

	return d
}

func (p *pipeline) clipPlanes() []plane {
	if p.raster.DepthClip {
		return []plane{wPlane, nearPlane, farPlane}
	}

	return []plane{wPlane}
}

func lerpVertex(a, b *clipVertex, t float32) clipVertex {
	var v clipVertex
	for idx := range 4 {
		v.pos[idx] = a.pos[idx] + (b.pos[idx]-a.pos[idx])*t
	}

	v.attrs = make([]float32, len(a.attrs))
	for idx := range v.attrs {
		v.attrs[idx] = a.attrs[idx] + (b.attrs[idx]-a.attrs[idx])*t
	}

	return v
}

// clipPolygon clips a convex polygon against the planes using the
// Sutherland-Hodgman algorithm.
func clipPolygon(polygon []clipVertex, planes []plane) []clipVertex {
	for _, pl := range planes {
		if len(polygon) == 0 {
			return nil
		}

		var result []clipVertex

		for idx := range polygon {
			a := &polygon[idx]
			b := &polygon[(idx+1)%len(polygon)]

			da, db := pl.distance(a), pl.distance(b)

			if da >= 0 {
				result = append(result, *a)
			}

			if (da >= 0) != (db >= 0) {
				result = append(result, lerpVertex(a, b, da/(da-db)))
			}
		}

		polygon = result
	}

	return polygon
}

func (p *pipeline) toScreen(v *clipVertex) screenVertex {
	vp := p.viewport

	invW := 1 / float64(v.pos[3])

	x := float64(v.pos[0]) * invW
	y := float64(v.pos[1]) * invW
	z := float64(v.pos[2]) * invW

	s := screenVertex{
		x:     float64(vp.X) + (x+1)*0.5*float64(vp.Width),
		y:     float64(vp.Y) + (1-y)*0.5*float64(vp.Height),
		z:     float64(vp.MinDepth) + z*float64(vp.MaxDepth-vp.MinDepth),
		invW:  invW,
		attrs: make([]float32, len(v.attrs)),
	}

	for idx, a := range v.attrs {
		s.attrs[idx] = a * float32(invW)
	}

	return s
}

func edge(a, b *screenVertex, x, y float64) float64 {
	return (b.x-a.x)*(y-a.y) - (b.y-a.y)*(x-a.x)
}

// topLeft reports whether the edge from a to b is a top or a left edge of
// a triangle with positive area. Pixels centered exactly on such edges are
// covered, pixels on other edges are not.
func topLeft(a, b *screenVertex) bool {
	dx, dy := b.x-a.x, b.y-a.y
	return (dy == 0 && dx > 0) || dy < 0
}

func (p *pipeline) triangle(a, b, c *clipVertex) {
	stats := &p.ctx.stats
	stats.CInvocations++

	polygon := clipPolygon([]clipVertex{*a, *b, *c}, p.clipPlanes())
	if len(polygon) < 3 {
		return
	}

	screen := make([]screenVertex, len(polygon))
	for idx := range polygon {
		screen[idx] = p.toScreen(&polygon[idx])
	}

	stats.CPrimitives += uint64(len(screen) - 2)

	// all triangles of the clipped polygon share the winding of the input
	var area float64
	for idx := 1; idx+1 < len(screen) && area == 0; idx++ {
		area = edge(&screen[0], &screen[idx], screen[idx+1].x, screen[idx+1].y)
	}

	if area == 0 || p.culled(area) {
		return
	}

	if p.raster.Fill == gfx.FillWireframe {
		for idx := range screen {
			p.rasterLine(&screen[idx], &screen[(idx+1)%len(screen)])
		}

		return
	}

	for idx := 1; idx+1 < len(screen); idx++ {
		p.fillTriangle(&screen[0], &screen[idx], &screen[idx+1])
	}
}

// culled applies the cull mode. In screen space with y pointing down, a
// positive area means the triangle is wound clockwise.
func (p *pipeline) culled(area float64) bool {
	front := area > 0
	if p.raster.FrontCounterClockwise {
		front = !front
	}

	switch p.raster.Cull {
	case gfx.CullBack:
		return !front
	case gfx.CullFront:
		return front
	default:
		return false
	}
}

func (p *pipeline) fillTriangle(v0, v1, v2 *screenVertex) {
	area := edge(v0, v1, v2.x, v2.y)
	if area == 0 {
		return
	}

	if area < 0 {
		v1, v2 = v2, v1
		area = -area
	}

	minX := max(int(math.Floor(min(v0.x, v1.x, v2.x))), p.minX)
	maxX := min(int(math.Ceil(max(v0.x, v1.x, v2.x))), p.maxX-1)
	minY := max(int(math.Floor(min(v0.y, v1.y, v2.y))), p.minY)
	maxY := min(int(math.Ceil(max(v0.y, v1.y, v2.y))), p.maxY-1)

	tl0, tl1, tl2 := topLeft(v1, v2), topLeft(v2, v0), topLeft(v0, v1)

	for y := minY; y <= maxY; y++ {
		cy := float64(y) + 0.5

		for x := minX; x <= maxX; x++ {
			cx := float64(x) + 0.5

			w0 := edge(v1, v2, cx, cy)
			w1 := edge(v2, v0, cx, cy)
			w2 := edge(v0, v1, cx, cy)

			if !covers(w0, tl0) || !covers(w1, tl1) || !covers(w2, tl2) {
				continue
			}

			b0, b1, b2 := w0/area, w1/area, w2/area

			z := b0*v0.z + b1*v1.z + b2*v2.z
			invW := b0*v0.invW + b1*v1.invW + b2*v2.invW

			attrs := p.scratch
			for idx := range attrs {
				attrs[idx] = float32((b0*float64(v0.attrs[idx]) + b1*float64(v1.attrs[idx]) + b2*float64(v2.attrs[idx])) / invW)
			}

			p.shade(x, y, z, invW, attrs)
		}
	}
}

func covers(w float64, topLeft bool) bool {
	return w > 0 || (w == 0 && topLeft)
}

// rasterLine draws a line by stepping one pixel along its major axis.
func (p *pipeline) rasterLine(a, b *screenVertex) {
	dx, dy := b.x-a.x, b.y-a.y

	steps := int(math.Ceil(max(math.Abs(dx), math.Abs(dy))))
	if steps == 0 {
		steps = 1
	}

	attrs := p.scratch

	for step := 0; step <= steps; step++ {
		t := float64(step) / float64(steps)

		x := int(math.Floor(a.x + dx*t))
		y := int(math.Floor(a.y + dy*t))

		if x < p.minX || x >= p.maxX || y < p.minY || y >= p.maxY {
			continue
		}

		z := a.z + (b.z-a.z)*t
		invW := a.invW + (b.invW-a.invW)*t

		for idx := range attrs {
			value := float64(a.attrs[idx]) + (float64(b.attrs[idx])-float64(a.attrs[idx]))*t
			attrs[idx] = float32(value / invW)
		}

		p.shade(x, y, z, invW, attrs)
	}
}

func (p *pipeline) line(a, b *clipVertex) {
	stats := &p.ctx.stats
	stats.CInvocations++

	va, vb := *a, *b

	for _, pl := range p.clipPlanes() {
		da, db := pl.distance(&va), pl.distance(&vb)

		switch {
		case da < 0 && db < 0:
			return

		case da < 0:
			va = lerpVertex(&va, &vb, da/(da-db))

		case db < 0:
			vb = lerpVertex(&va, &vb, da/(da-db))
		}
	}

	stats.CPrimitives++

	sa, sb := p.toScreen(&va), p.toScreen(&vb)
	p.rasterLine(&sa, &sb)
}

func (p *pipeline) point(v *clipVertex) {
	stats := &p.ctx.stats
	stats.CInvocations++

	for _, pl := range p.clipPlanes() {
		if pl.distance(v) < 0 {
			return
		}
	}

	stats.CPrimitives++

	s := p.toScreen(v)

	x, y := int(math.Floor(s.x)), int(math.Floor(s.y))
	if x < p.minX || x >= p.maxX || y < p.minY || y >= p.maxY {
		return
	}

	for idx := range s.attrs {
		p.scratch[idx] = float32(float64(s.attrs[idx]) / s.invW)
	}

	p.shade(x, y, s.z, s.invW, p.scratch)
}

// shade runs the depth test and the pixel shader for one covered pixel.
func (p *pipeline) shade(x, y int, z, invW float64, attrs []float32) {
	vp := p.viewport
	depth := float32(min(max(z, float64(vp.MinDepth)), float64(vp.MaxDepth)))

	ds := p.depthStencil
	testDepth := p.depth != nil && ds.DepthEnable

	idx := y*int(p.ctxWidth()) + x

	if testDepth && !ds.DepthFunc.Test(depth, p.depth.depth[idx]) {
		return
	}

	if p.ps != nil {
		in := p.pixelIn

		var offset int
		for _, vary := range p.varyings {
			copy(in[vary.dst:vary.dst+vary.size], attrs[offset:offset+vary.size])
			offset += vary.size
		}

		if p.psPosition >= 0 {
			in[p.psPosition] = float32(x) + 0.5
			in[p.psPosition+1] = float32(y) + 0.5
			in[p.psPosition+2] = depth
			in[p.psPosition+3] = float32(invW)
		}

		p.ctx.stats.PSInvocations++

		if !p.psInv.Invoke(in, p.pixelOut) {
			return
		}

		if p.psDepth >= 0 {
			depth = min(max(p.pixelOut[p.psDepth], 0), 1)

			// the shader may have moved the pixel behind the stored depth
			if testDepth && !ds.DepthFunc.Test(depth, p.depth.depth[idx]) {
				return
			}
		}

		if p.target != nil && p.psColor >= 0 {
			color := [4]float32{0, 0, 0, 1}
			copy(color[:], p.pixelOut[p.psColor:p.psColor+p.psColorSize])
			p.target.storeColor(x, y, color[:])
		}
	}

	if testDepth && ds.DepthWrite {
		p.depth.depth[idx] = depth
	}
}

// ctxWidth returns the width of the bound targets.
func (p *pipeline) ctxWidth() uint32 {
	if p.target != nil {
		return p.target.desc.Width
	}

	return p.depth.desc.Width
}
