package soft

import (
	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/prism/hlsl"
)

const (
	maxVertexBuffers   = 16
	maxConstantBuffers = 14
)

type vertexBinding struct {
	buf    *Buffer
	stride uint32
	offset uint32
}

// Context executes commands immediately on the calling goroutine. It is
// not safe for concurrent use.
type Context struct {
	dev *Device

	rtv      *RenderTargetView
	dsv      *DepthStencilView
	viewport gfx.Viewport

	rasterizer   *RasterizerState
	depthStencil *DepthStencilState

	layout   *InputLayout
	vertices [maxVertexBuffers]vertexBinding

	indices       *Buffer
	indexFormat   gfx.Format
	indexOffset   uint32
	topology      gfx.Topology
	vertexShader  *VertexShader
	pixelShader   *PixelShader
	vsConstants   [maxConstantBuffers]*Buffer
	psConstants   [maxConstantBuffers]*Buffer
	stats         gfx.PipelineStatistics
	draws         uint64
	invokers      map[*hlsl.Shader]*hlsl.Invoker
	layoutVariant map[layoutKey]*InputLayout
}

type layoutKey struct {
	layout *InputLayout
	shader *hlsl.Shader
}

var (
	_ gfx.Context          = (*Context)(nil)
	_ gfx.StatisticsReader = (*Context)(nil)
)

func newContext(dev *Device) *Context {
	return &Context{
		dev:           dev,
		invokers:      map[*hlsl.Shader]*hlsl.Invoker{},
		layoutVariant: map[layoutKey]*InputLayout{},
	}
}

func (c *Context) ClearRenderTargetView(view gfx.RenderTargetView, color [4]float32) {
	rtv, ok := view.(*RenderTargetView)
	if !ok || rtv == nil || rtv.released {
		c.dev.report(gfx.SeverityError, "CLEARRENDERTARGETVIEW_INVALIDVIEW", "ClearRenderTargetView: invalid view")
		return
	}

	tex := rtv.tex

	var pixel [4]byte
	for idx := range 4 {
		pixel[idx] = unorm8(color[idx])
	}

	if tex.desc.Format == gfx.FormatB8G8R8A8Unorm {
		pixel[0], pixel[2] = pixel[2], pixel[0]
	}

	for off := 0; off+3 < len(tex.pixels); off += 4 {
		copy(tex.pixels[off:off+4], pixel[:])
	}
}

func (c *Context) ClearDepthStencilView(view gfx.DepthStencilView, depth float32, stencil uint8) {
	dsv, ok := view.(*DepthStencilView)
	if !ok || dsv == nil || dsv.released {
		c.dev.report(gfx.SeverityError, "CLEARDEPTHSTENCILVIEW_INVALIDVIEW", "ClearDepthStencilView: invalid view")
		return
	}

	depth = min(max(depth, 0), 1)

	for idx := range dsv.tex.depth {
		dsv.tex.depth[idx] = depth
		dsv.tex.stencil[idx] = stencil
	}
}

func (c *Context) SetRenderTargets(color gfx.RenderTargetView, depth gfx.DepthStencilView) {
	c.rtv, _ = color.(*RenderTargetView)
	c.dsv, _ = depth.(*DepthStencilView)
}

func (c *Context) SetViewport(vp gfx.Viewport) {
	c.viewport = vp
}

func (c *Context) SetRasterizerState(state gfx.RasterizerState) {
	c.rasterizer, _ = state.(*RasterizerState)
}

func (c *Context) SetDepthStencilState(state gfx.DepthStencilState) {
	c.depthStencil, _ = state.(*DepthStencilState)
}

func (c *Context) SetInputLayout(layout gfx.InputLayout) {
	c.layout, _ = layout.(*InputLayout)
}

func (c *Context) SetVertexBuffer(slot uint32, buf gfx.Buffer, stride, offset uint32) {
	if slot >= maxVertexBuffers {
		c.dev.report(gfx.SeverityError, "IASETVERTEXBUFFERS_SLOTS_INVALID", "IASetVertexBuffers: invalid slot %d", slot)
		return
	}

	b, _ := buf.(*Buffer)
	if b != nil && b.desc.Bind&gfx.BindVertexBuffer == 0 {
		c.dev.report(gfx.SeverityError, "IASETVERTEXBUFFERS_INVALIDBUFFER",
			"IASetVertexBuffers: buffer %q was not created with the vertex buffer bind flag", b.desc.Label)
	}

	c.vertices[slot] = vertexBinding{buf: b, stride: stride, offset: offset}
}

func (c *Context) SetIndexBuffer(buf gfx.Buffer, format gfx.Format, offset uint32) {
	b, _ := buf.(*Buffer)

	if b != nil && format != gfx.FormatR16Uint && format != gfx.FormatR32Uint {
		c.dev.report(gfx.SeverityError, "IASETINDEXBUFFER_FORMAT_INVALID", "IASetIndexBuffer: invalid index format %s", format)
	}

	if b != nil && b.desc.Bind&gfx.BindIndexBuffer == 0 {
		c.dev.report(gfx.SeverityError, "IASETINDEXBUFFER_INVALIDBUFFER",
			"IASetIndexBuffer: buffer %q was not created with the index buffer bind flag", b.desc.Label)
	}

	c.indices = b
	c.indexFormat = format
	c.indexOffset = offset
}

func (c *Context) SetPrimitiveTopology(topology gfx.Topology) {
	c.topology = topology
}

func (c *Context) SetVertexShader(shader gfx.VertexShader) {
	c.vertexShader, _ = shader.(*VertexShader)
}

func (c *Context) SetPixelShader(shader gfx.PixelShader) {
	c.pixelShader, _ = shader.(*PixelShader)
}

func (c *Context) setConstantBuffer(slots *[maxConstantBuffers]*Buffer, stage string, slot uint32, buf gfx.Buffer) {
	if slot >= maxConstantBuffers {
		c.dev.report(gfx.SeverityError, "SETCONSTANTBUFFERS_SLOTS_INVALID", "%sSetConstantBuffers: invalid slot %d", stage, slot)
		return
	}

	b, _ := buf.(*Buffer)
	if b != nil && b.desc.Bind&gfx.BindConstantBuffer == 0 {
		c.dev.report(gfx.SeverityError, "SETCONSTANTBUFFERS_INVALIDBUFFER",
			"%sSetConstantBuffers: buffer %q was not created with the constant buffer bind flag", stage, b.desc.Label)
	}

	slots[slot] = b
}

func (c *Context) SetVSConstantBuffer(slot uint32, buf gfx.Buffer) {
	c.setConstantBuffer(&c.vsConstants, "VS", slot, buf)
}

func (c *Context) SetPSConstantBuffer(slot uint32, buf gfx.Buffer) {
	c.setConstantBuffer(&c.psConstants, "PS", slot, buf)
}

// Map maps a dynamic buffer with write discard semantics: the returned
// memory starts out cleared.
func (c *Context) Map(buf gfx.Buffer) ([]byte, error) {
	if err := c.dev.checkRemoved("map"); err != nil {
		return nil, err
	}

	b, ok := buf.(*Buffer)
	if !ok || b == nil || b.released {
		return nil, c.dev.invalid("MAP_INVALIDRESOURCE", "Map: invalid resource")
	}

	if b.desc.Usage != gfx.UsageDynamic {
		return nil, c.dev.invalid("MAP_INVALIDMAPTYPE", "Map: buffer %q is not dynamic and cannot be mapped for writing", b.desc.Label)
	}

	if b.mapped {
		return nil, c.dev.invalid("MAP_ALREADYMAPPED", "Map: buffer %q is already mapped", b.desc.Label)
	}

	b.mapped = true
	clear(b.data)

	return b.data, nil
}

func (c *Context) Unmap(buf gfx.Buffer) {
	b, ok := buf.(*Buffer)
	if !ok || b == nil || !b.mapped {
		c.dev.report(gfx.SeverityError, "UNMAP_NOTMAPPED", "Unmap: resource is not mapped")
		return
	}

	b.mapped = false
}

func (c *Context) ClearState() {
	stats, draws := c.stats, c.draws
	invokers, variants := c.invokers, c.layoutVariant

	*c = Context{dev: c.dev}

	c.stats, c.draws = stats, draws
	c.invokers, c.layoutVariant = invokers, variants
}

// Flush is a no-op, commands execute when they are recorded.
func (c *Context) Flush() {}

func (c *Context) PipelineStatistics() gfx.PipelineStatistics {
	return c.stats
}

func (c *Context) ResetPipelineStatistics() {
	c.stats = gfx.PipelineStatistics{}
}

// Draws returns the number of draw calls that reached the rasterizer.
func (c *Context) Draws() uint64 {
	return c.draws
}

// RenderTarget returns the texture of the bound render target view, or nil.
func (c *Context) RenderTarget() *Texture {
	if c.rtv == nil {
		return nil
	}

	return c.rtv.tex
}

func (c *Context) invoker(shader *hlsl.Shader) *hlsl.Invoker {
	inv, ok := c.invokers[shader]
	if !ok {
		inv = shader.NewInvoker()
		c.invokers[shader] = inv
	}

	return inv
}
