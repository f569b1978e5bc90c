package soft

import (
	"encoding/binary"
	"slices"

	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/prism/hlsl"
)

// varying copies one vertex shader output into the pixel shader input.
type varying struct {
	src, dst, size int
}

// pipeline is the validated state of one draw call.
type pipeline struct {
	ctx *Context

	vs, ps     *hlsl.Shader
	vsInv      *hlsl.Invoker
	psInv      *hlsl.Invoker
	attributes []attribute

	// offset of SV_POSITION in the vertex shader output
	position int

	// varyings in the order of the pixel shader input, attrSize components
	varyings []varying
	attrSize int

	// offset of SV_POSITION in the pixel shader input or -1
	psPosition int

	// offsets of SV_TARGET0 and SV_DEPTH in the pixel shader output or -1
	psColor     int
	psColorSize int
	psDepth     int

	target *Texture
	depth  *Texture

	raster       gfx.RasterizerDesc
	depthStencil gfx.DepthStencilDesc
	viewport     gfx.Viewport

	// scissor rectangle derived from viewport and targets
	minX, minY, maxX, maxY int

	vertexIn  []float32
	pixelIn   []float32
	pixelOut  []float32
	scratch   []float32
	outOfData bool
}

// defaultDepthStencil is the state used while none is bound, like the
// default state of Direct3D 11.
var defaultDepthStencil = gfx.DepthStencilDesc{
	DepthEnable: true,
	DepthWrite:  true,
	DepthFunc:   gfx.CompareLess,
}

// prepare validates the bound state. It returns nil if nothing can be
// drawn, after reporting the reason to the validation layer.
func (c *Context) prepare() *pipeline {
	dev := c.dev

	switch {
	case c.vertexShader == nil || c.vertexShader.released:
		dev.report(gfx.SeverityError, "DEVICE_DRAW_VERTEX_SHADER_NOT_SET", "Draw: a vertex shader is always required")
		return nil

	case c.topology < gfx.PointList || c.topology > gfx.TriangleStrip:
		dev.report(gfx.SeverityError, "DEVICE_DRAW_INVALID_PRIMITIVETOPOLOGY", "Draw: invalid primitive topology %d", c.topology)
		return nil

	case c.rtv == nil && c.dsv == nil:
		dev.report(gfx.SeverityWarning, "DEVICE_DRAW_RENDERTARGETVIEW_NOT_SET", "Draw: no render target or depth stencil view bound")
		return nil

	case c.rtv != nil && c.rtv.released, c.dsv != nil && c.dsv.released:
		dev.report(gfx.SeverityCorruption, "DEVICE_DRAW_RESOURCE_RELEASED", "Draw: a bound view was already released")
		return nil

	case c.viewport.Width <= 0 || c.viewport.Height <= 0:
		dev.report(gfx.SeverityWarning, "DEVICE_DRAW_VIEWPORT_NOT_SET", "Draw: the viewport is empty")
		return nil
	}

	p := &pipeline{
		ctx:          c,
		vs:           c.vertexShader.shader,
		raster:       gfx.DefaultRasterizerDesc,
		depthStencil: defaultDepthStencil,
		viewport:     c.viewport,
		psPosition:   -1,
		psColor:      -1,
		psDepth:      -1,
	}

	if c.rasterizer != nil {
		p.raster = c.rasterizer.desc
	}

	if c.depthStencil != nil {
		p.depthStencil = c.depthStencil.desc
	}

	if c.rtv != nil {
		p.target = c.rtv.tex
	}

	if c.dsv != nil {
		p.depth = c.dsv.tex
	}

	if p.target != nil && p.depth != nil {
		if p.target.desc.Width != p.depth.desc.Width || p.target.desc.Height != p.depth.desc.Height {
			dev.report(gfx.SeverityError, "OMSETRENDERTARGETS_INVALIDVIEW",
				"Draw: depth stencil view of %dx%d does not match render target of %dx%d",
				p.depth.desc.Width, p.depth.desc.Height, p.target.desc.Width, p.target.desc.Height)
			return nil
		}
	}

	if !p.linkVertexInput() || !p.linkPixelShader() {
		return nil
	}

	p.position = mustOutput(p.vs, "SV_POSITION")

	p.vsInv = c.invoker(p.vs)
	p.bindConstants(p.vsInv, p.vs, &c.vsConstants, "vertex")

	if p.ps != nil {
		p.psInv = c.invoker(p.ps)
		p.bindConstants(p.psInv, p.ps, &c.psConstants, "pixel")
	}

	p.computeScissor()

	p.vertexIn = make([]float32, p.vs.InputSize)
	if p.ps != nil {
		p.pixelIn = make([]float32, p.ps.InputSize)
		p.pixelOut = make([]float32, p.ps.OutputSize)
	}

	p.scratch = make([]float32, p.attrSize)

	return p
}

func mustOutput(shader *hlsl.Shader, semantic string) int {
	el, _ := shader.Output(semantic, 0)
	return el.Offset
}

func (p *pipeline) linkVertexInput() bool {
	c := p.ctx

	if len(p.vs.Inputs) == 0 {
		return true
	}

	if c.layout == nil || c.layout.released {
		c.dev.report(gfx.SeverityError, "DEVICE_DRAW_INPUTLAYOUT_NOT_SET",
			"Draw: the vertex shader %q has inputs, but no input layout is bound", p.vs.Name)
		return false
	}

	layout := c.layout
	if layout.signature != p.vs {
		key := layoutKey{layout: layout, shader: p.vs}

		variant, ok := c.layoutVariant[key]
		if !ok {
			var err error

			variant, err = newInputLayout(layout.elements, p.vs)
			if err != nil {
				c.dev.report(gfx.SeverityError, "DEVICE_SHADER_LINKAGE_SEMANTICNAME_NOT_FOUND",
					"Draw: input layout does not match the vertex shader: %s", err)
				return false
			}

			c.layoutVariant[key] = variant
		}

		layout = variant
	}

	p.attributes = layout.attributes

	return true
}

func (p *pipeline) linkPixelShader() bool {
	c := p.ctx

	if c.pixelShader == nil {
		// depth only rendering
		return true
	}

	if c.pixelShader.released {
		c.dev.report(gfx.SeverityCorruption, "DEVICE_DRAW_RESOURCE_RELEASED", "Draw: the bound pixel shader was already released")
		return false
	}

	p.ps = c.pixelShader.shader

	for _, input := range p.ps.Inputs {
		if input.SemanticName == "SV_POSITION" {
			p.psPosition = input.Offset
			continue
		}

		output, ok := p.vs.Output(input.SemanticName, input.SemanticIndex)
		if !ok || output.Type.Size() < input.Type.Size() {
			c.dev.report(gfx.SeverityError, "DEVICE_SHADER_LINKAGE_SEMANTICNAME_NOT_FOUND",
				"Draw: pixel shader input %s%d is not written by the vertex shader", input.SemanticName, input.SemanticIndex)
			return false
		}

		p.varyings = append(p.varyings, varying{src: output.Offset, dst: input.Offset, size: input.Type.Size()})
	}

	for idx := range p.varyings {
		p.attrSize += p.varyings[idx].size
	}

	if el, ok := p.ps.Output("SV_TARGET", 0); ok {
		p.psColor = el.Offset
		p.psColorSize = min(el.Type.Size(), 4)
	}

	if el, ok := p.ps.Output("SV_DEPTH", 0); ok {
		p.psDepth = el.Offset
	}

	return true
}

func (p *pipeline) bindConstants(inv *hlsl.Invoker, shader *hlsl.Shader, slots *[maxConstantBuffers]*Buffer, stage string) {
	dev := p.ctx.dev

	for _, cb := range shader.ConstantBuffers {
		var buf *Buffer
		if cb.Register < maxConstantBuffers {
			buf = slots[cb.Register]
		}

		switch {
		case buf == nil || buf.released:
			dev.report(gfx.SeverityWarning, "DEVICE_DRAW_CONSTANT_BUFFER_NOT_SET",
				"Draw: the %s shader expects a constant buffer at slot %d, but none is bound", stage, cb.Register)
			inv.SetConstants(cb.Register, nil)
			continue

		case buf.desc.ByteWidth < cb.Size:
			dev.report(gfx.SeverityWarning, "DEVICE_DRAW_CONSTANT_BUFFER_TOO_SMALL",
				"Draw: the size of the constant buffer at slot %d of the %s shader unit is too small (%d bytes provided, %d bytes, at least, expected)",
				cb.Register, stage, buf.desc.ByteWidth, cb.Size)

		case buf.mapped:
			dev.report(gfx.SeverityError, "DEVICE_DRAW_RESOURCE_MAPPED",
				"Draw: the constant buffer at slot %d of the %s shader is still mapped", cb.Register, stage)
		}

		inv.SetConstants(cb.Register, buf.data)
	}
}

// computeScissor clips the viewport against the bound targets.
func (p *pipeline) computeScissor() {
	var width, height int
	switch {
	case p.target != nil:
		width, height = int(p.target.desc.Width), int(p.target.desc.Height)
	default:
		width, height = int(p.depth.desc.Width), int(p.depth.desc.Height)
	}

	vp := p.viewport

	p.minX = max(int(vp.X), 0)
	p.minY = max(int(vp.Y), 0)
	p.maxX = min(int(vp.X+vp.Width+0.5), width)
	p.maxY = min(int(vp.Y+vp.Height+0.5), height)
}

// fetchVertex runs the vertex shader for one vertex of the bound vertex
// buffers and appends its output to dst.
func (p *pipeline) fetchVertex(dst []float32, vertex uint32) []float32 {
	c := p.ctx

	for _, attr := range p.attributes {
		binding := c.vertices[attr.slot]
		in := p.vertexIn[attr.dst : attr.dst+attr.size]

		if binding.buf == nil {
			clear(in)
			p.outOfData = true
			continue
		}

		start := uint64(binding.offset) + uint64(vertex)*uint64(binding.stride) + uint64(attr.offset)
		end := start + uint64(attr.format.Size())

		if end > uint64(len(binding.buf.data)) {
			clear(in)
			p.outOfData = true
			continue
		}

		decodeAttribute(in, binding.buf.data[start:end], attr.format)
	}

	n := len(dst)
	dst = slices.Grow(dst, p.vs.OutputSize)[:n+p.vs.OutputSize]

	p.vsInv.Invoke(p.vertexIn, dst[n:])

	return dst
}

func (c *Context) Draw(vertexCount, startVertex uint32) {
	c.draw(vertexCount, func(idx uint32) uint32 {
		return startVertex + idx
	})
}

func (c *Context) DrawIndexed(indexCount, startIndex uint32, baseVertex int32) {
	if c.indices == nil || c.indices.released {
		c.dev.report(gfx.SeverityError, "DEVICE_DRAW_INDEX_BUFFER_NOT_SET", "DrawIndexed: no index buffer bound")
		return
	}

	data := c.indices.data
	size := uint64(c.indexFormat.Size())
	if size != 2 && size != 4 {
		c.dev.report(gfx.SeverityError, "DEVICE_DRAW_INDEX_BUFFER_FORMAT_INVALID", "DrawIndexed: invalid index format %s", c.indexFormat)
		return
	}

	var outOfRange bool

	c.draw(indexCount, func(idx uint32) uint32 {
		off := uint64(c.indexOffset) + (uint64(startIndex)+uint64(idx))*size
		if off+size > uint64(len(data)) {
			// reads outside of the index buffer return zero
			outOfRange = true
			return 0
		}

		var index uint32
		if size == 2 {
			index = uint32(binary.LittleEndian.Uint16(data[off:]))
		} else {
			index = binary.LittleEndian.Uint32(data[off:])
		}

		return uint32(int64(index) + int64(baseVertex))
	})

	if outOfRange {
		c.dev.report(gfx.SeverityWarning, "DEVICE_DRAW_INDEX_BUFFER_TOO_SMALL",
			"DrawIndexed: index buffer %q is too small for %d indices starting at %d", c.indices.desc.Label, indexCount, startIndex)
	}
}

// draw processes count vertices. vertexOf maps the n-th vertex of the draw
// to the index of the vertex in the vertex buffers.
func (c *Context) draw(count uint32, vertexOf func(uint32) uint32) {
	if count == 0 {
		return
	}

	p := c.prepare()
	if p == nil {
		return
	}

	c.draws++

	c.stats.IAVertices += uint64(count)
	c.stats.IAPrimitives += uint64(c.topology.Primitives(count))

	// run the vertex shader once per distinct vertex
	stride := p.vs.OutputSize
	slots := make(map[uint32]int, count)
	refs := make([]int, count)

	var outputs []float32

	for idx := range count {
		vertex := vertexOf(idx)

		slot, ok := slots[vertex]
		if !ok {
			slot = len(outputs) / max(stride, 1)
			outputs = p.fetchVertex(outputs, vertex)
			slots[vertex] = slot

			c.stats.VSInvocations++
		}

		refs[idx] = slot
	}

	if p.outOfData {
		c.dev.report(gfx.SeverityWarning, "DEVICE_DRAW_VERTEX_BUFFER_TOO_SMALL",
			"Draw: vertex data was read outside of the bound vertex buffers")
	}

	vertices := make([]clipVertex, len(slots))
	for slot := range vertices {
		out := outputs[slot*stride : (slot+1)*stride]
		vertices[slot] = p.clipVertex(out)
	}

	at := func(idx uint32) *clipVertex {
		return &vertices[refs[idx]]
	}

	switch c.topology {
	case gfx.PointList:
		for idx := range count {
			p.point(at(idx))
		}

	case gfx.LineList:
		for idx := uint32(0); idx+1 < count; idx += 2 {
			p.line(at(idx), at(idx+1))
		}

	case gfx.LineStrip:
		for idx := uint32(0); idx+1 < count; idx++ {
			p.line(at(idx), at(idx+1))
		}

	case gfx.TriangleList:
		for idx := uint32(0); idx+2 < count; idx += 3 {
			p.triangle(at(idx), at(idx+1), at(idx+2))
		}

	case gfx.TriangleStrip:
		for idx := uint32(0); idx+2 < count; idx++ {
			// every other triangle is flipped to keep the winding
			if idx%2 == 0 {
				p.triangle(at(idx), at(idx+1), at(idx+2))
			} else {
				p.triangle(at(idx+1), at(idx), at(idx+2))
			}
		}
	}
}

// clipVertex extracts the position and the varyings of a vertex.
func (p *pipeline) clipVertex(out []float32) clipVertex {
	var v clipVertex

	copy(v.pos[:], out[p.position:p.position+4])

	v.attrs = make([]float32, 0, p.attrSize)
	for _, vary := range p.varyings {
		v.attrs = append(v.attrs, out[vary.src:vary.src+vary.size]...)
	}

	return v
}
