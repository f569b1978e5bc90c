package d3d11

import (
	"fmt"
	"unsafe"

	"github.com/oliverbestmann/prism/gfx"
)

// Context forwards to the immediate context of the device.
type Context struct {
	dev *Device
	ctx *iD3D11DeviceContext
}

var _ gfx.Context = (*Context)(nil)

// pointerOf returns the COM pointer of an object created by this package,
// or nil for a nil interface.
func pointerOf[T any, P interface {
	*T
	object() unsafe.Pointer
}](value any) unsafe.Pointer {
	if ptr, ok := value.(P); ok && ptr != nil {
		return ptr.object()
	}

	return nil
}

func (o *comObject) object() unsafe.Pointer {
	return o.ptr
}

func (ctx *Context) ClearRenderTargetView(view gfx.RenderTargetView, color [4]float32) {
	ctx.ctx.ClearRenderTargetView(pointerOf[RenderTargetView](view), &color)
}

func (ctx *Context) ClearDepthStencilView(view gfx.DepthStencilView, depth float32, stencil uint8) {
	ctx.ctx.ClearDepthStencilView(pointerOf[DepthStencilView](view), clearDepth|clearStencil, depth, stencil)
}

func (ctx *Context) SetRenderTargets(color gfx.RenderTargetView, depth gfx.DepthStencilView) {
	ctx.ctx.OMSetRenderTargets(pointerOf[RenderTargetView](color), pointerOf[DepthStencilView](depth))
}

func (ctx *Context) SetViewport(vp gfx.Viewport) {
	ctx.ctx.RSSetViewports(&viewport{
		TopLeftX: vp.X,
		TopLeftY: vp.Y,
		Width:    vp.Width,
		Height:   vp.Height,
		MinDepth: vp.MinDepth,
		MaxDepth: vp.MaxDepth,
	})
}

func (ctx *Context) SetRasterizerState(state gfx.RasterizerState) {
	ctx.ctx.RSSetState(pointerOf[RasterizerState](state))
}

func (ctx *Context) SetDepthStencilState(state gfx.DepthStencilState) {
	ctx.ctx.OMSetDepthStencilState(pointerOf[DepthStencilState](state), 0)
}

func (ctx *Context) SetInputLayout(layout gfx.InputLayout) {
	ctx.ctx.IASetInputLayout(pointerOf[InputLayout](layout))
}

func (ctx *Context) SetVertexBuffer(slot uint32, buf gfx.Buffer, stride, offset uint32) {
	ctx.ctx.IASetVertexBuffers(slot, pointerOf[Buffer](buf), stride, offset)
}

func (ctx *Context) SetIndexBuffer(buf gfx.Buffer, format gfx.Format, offset uint32) {
	ctx.ctx.IASetIndexBuffer(pointerOf[Buffer](buf), uint32(format), offset)
}

func (ctx *Context) SetPrimitiveTopology(topology gfx.Topology) {
	ctx.ctx.IASetPrimitiveTopology(uint32(topology))
}

func (ctx *Context) SetVertexShader(shader gfx.VertexShader) {
	ctx.ctx.VSSetShader(pointerOf[VertexShader](shader))
}

func (ctx *Context) SetPixelShader(shader gfx.PixelShader) {
	ctx.ctx.PSSetShader(pointerOf[PixelShader](shader))
}

func (ctx *Context) SetVSConstantBuffer(slot uint32, buf gfx.Buffer) {
	ctx.ctx.VSSetConstantBuffers(slot, pointerOf[Buffer](buf))
}

func (ctx *Context) SetPSConstantBuffer(slot uint32, buf gfx.Buffer) {
	ctx.ctx.PSSetConstantBuffers(slot, pointerOf[Buffer](buf))
}

func (ctx *Context) Map(buf gfx.Buffer) ([]byte, error) {
	b, ok := buf.(*Buffer)
	if !ok || b.ptr == nil {
		return nil, fmt.Errorf("map buffer: %w", gfx.ErrInvalidCall)
	}

	if b.desc.Usage != gfx.UsageDynamic {
		return nil, fmt.Errorf("map buffer %q: not dynamic: %w", b.desc.Label, gfx.ErrInvalidCall)
	}

	mapped, err := ctx.ctx.Map(b.ptr, mapWriteDiscard)
	if err != nil {
		return nil, ctx.dev.wrapError(fmt.Sprintf("map buffer %q", b.desc.Label), err)
	}

	return unsafe.Slice((*byte)(mapped.Data), b.desc.ByteWidth), nil
}

func (ctx *Context) Unmap(buf gfx.Buffer) {
	ctx.ctx.Unmap(pointerOf[Buffer](buf))
}

func (ctx *Context) Draw(vertexCount, startVertex uint32) {
	ctx.ctx.Draw(vertexCount, startVertex)
}

func (ctx *Context) DrawIndexed(indexCount, startIndex uint32, baseVertex int32) {
	ctx.ctx.DrawIndexed(indexCount, startIndex, baseVertex)
}

func (ctx *Context) ClearState() {
	ctx.ctx.ClearState()
}

func (ctx *Context) Flush() {
	ctx.ctx.Flush()
}
