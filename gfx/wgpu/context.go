package wgpu

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/webgpu/wgpu"
)

type vertexBinding struct {
	buffer *Buffer
	stride uint32
	offset uint32
}

type pendingClear struct {
	color *view
	rgba  [4]float32

	depth      *view
	depthValue float32
}

// Context records commands into a command encoder. Every draw becomes
// a render pass, clears are folded into the load operation of the next
// pass on the same view. Flush submits the encoder to the queue.
type Context struct {
	dev *Device

	color    *view
	depth    *view
	viewport gfx.Viewport

	raster     gfx.RasterizerDesc
	hasRaster  bool
	depthState gfx.DepthStencilDesc
	hasDepth   bool

	layout   *InputLayout
	vertices [maxVertexBuffers]vertexBinding

	indices     *Buffer
	indexFormat gfx.Format
	indexOffset uint32

	topology gfx.Topology

	vs *VertexShader
	ps *PixelShader

	vsConstants *Buffer
	psConstants *Buffer

	clears []pendingClear

	encoder *wgpu.CommandEncoder

	// released after the next submit
	garbage []interface{ Release() }
}

var _ gfx.Context = (*Context)(nil)

func (ctx *Context) ClearRenderTargetView(v gfx.RenderTargetView, color [4]float32) {
	rtv, ok := v.(*RenderTargetView)
	if !ok || rtv.source == nil {
		ctx.report("ClearRenderTargetView", fmt.Errorf("invalid view %T", v))
		return
	}

	ctx.clears = append(ctx.clears, pendingClear{color: (*view)(rtv), rgba: color})
}

func (ctx *Context) ClearDepthStencilView(v gfx.DepthStencilView, depth float32, _ uint8) {
	dsv, ok := v.(*DepthStencilView)
	if !ok || dsv.source == nil {
		ctx.report("ClearDepthStencilView", fmt.Errorf("invalid view %T", v))
		return
	}

	ctx.clears = append(ctx.clears, pendingClear{depth: (*view)(dsv), depthValue: depth})
}

func (ctx *Context) SetRenderTargets(color gfx.RenderTargetView, depth gfx.DepthStencilView) {
	rtv, _ := color.(*RenderTargetView)
	dsv, _ := depth.(*DepthStencilView)

	ctx.color = (*view)(rtv)
	ctx.depth = (*view)(dsv)
}

func (ctx *Context) SetViewport(vp gfx.Viewport) {
	ctx.viewport = vp
}

func (ctx *Context) SetRasterizerState(state gfx.RasterizerState) {
	ctx.hasRaster = state != nil
	if state != nil {
		ctx.raster = state.Desc()
	}
}

func (ctx *Context) SetDepthStencilState(state gfx.DepthStencilState) {
	ctx.hasDepth = state != nil
	if state != nil {
		ctx.depthState = state.Desc()
	}
}

func (ctx *Context) SetInputLayout(layout gfx.InputLayout) {
	ctx.layout, _ = layout.(*InputLayout)
}

func (ctx *Context) SetVertexBuffer(slot uint32, buf gfx.Buffer, stride, offset uint32) {
	if slot >= maxVertexBuffers {
		ctx.report("SetVertexBuffer", fmt.Errorf("slot %d out of range", slot))
		return
	}

	b, _ := buf.(*Buffer)
	ctx.vertices[slot] = vertexBinding{buffer: b, stride: stride, offset: offset}
}

func (ctx *Context) SetIndexBuffer(buf gfx.Buffer, format gfx.Format, offset uint32) {
	ctx.indices, _ = buf.(*Buffer)
	ctx.indexFormat = format
	ctx.indexOffset = offset
}

func (ctx *Context) SetPrimitiveTopology(topology gfx.Topology) {
	ctx.topology = topology
}

func (ctx *Context) SetVertexShader(shader gfx.VertexShader) {
	ctx.vs, _ = shader.(*VertexShader)
}

func (ctx *Context) SetPixelShader(shader gfx.PixelShader) {
	ctx.ps, _ = shader.(*PixelShader)
}

func (ctx *Context) SetVSConstantBuffer(slot uint32, buf gfx.Buffer) {
	if slot != 0 {
		ctx.report("SetVSConstantBuffer", fmt.Errorf("slot %d: only slot 0 is mapped to a bind group", slot))
		return
	}

	ctx.vsConstants, _ = buf.(*Buffer)
}

func (ctx *Context) SetPSConstantBuffer(slot uint32, buf gfx.Buffer) {
	if slot != 0 {
		ctx.report("SetPSConstantBuffer", fmt.Errorf("slot %d: only slot 0 is mapped to a bind group", slot))
		return
	}

	ctx.psConstants, _ = buf.(*Buffer)
}

func (ctx *Context) Map(buf gfx.Buffer) ([]byte, error) {
	b, ok := buf.(*Buffer)
	if !ok || b.buffer == nil {
		return nil, fmt.Errorf("map buffer: %w", gfx.ErrInvalidCall)
	}

	if b.shadow == nil {
		return nil, fmt.Errorf("map buffer %q: not dynamic: %w", b.desc.Label, gfx.ErrInvalidCall)
	}

	if b.mapped {
		return nil, fmt.Errorf("map buffer %q: already mapped: %w", b.desc.Label, gfx.ErrInvalidCall)
	}

	b.mapped = true

	// discard the previous contents
	clear(b.shadow)

	return b.shadow[:b.desc.ByteWidth], nil
}

func (ctx *Context) Unmap(buf gfx.Buffer) {
	b, ok := buf.(*Buffer)
	if !ok || !b.mapped {
		return
	}

	b.mapped = false

	// queue writes are ordered before the next submit, pending passes that
	// read the old contents need to be submitted first
	ctx.Flush()

	if err := ctx.dev.queue.WriteBuffer(b.buffer, 0, b.shadow); err != nil {
		ctx.report("Unmap", err)
	}
}

func (ctx *Context) Draw(vertexCount, startVertex uint32) {
	ctx.draw("Draw", func(pass *wgpu.RenderPassEncoder) {
		pass.Draw(vertexCount, 1, startVertex, 0)
	})
}

func (ctx *Context) DrawIndexed(indexCount, startIndex uint32, baseVertex int32) {
	if ctx.indices == nil || ctx.indices.buffer == nil {
		ctx.report("DrawIndexed", fmt.Errorf("no index buffer bound"))
		return
	}

	format, ok := indexFormat(ctx.indexFormat)
	if !ok {
		ctx.report("DrawIndexed", fmt.Errorf("index format %s", ctx.indexFormat))
		return
	}

	ctx.draw("DrawIndexed", func(pass *wgpu.RenderPassEncoder) {
		pass.SetIndexBuffer(ctx.indices.buffer, format, uint64(ctx.indexOffset), wgpu.WholeSize)
		pass.DrawIndexed(indexCount, 1, startIndex, baseVertex, 0)
	})
}

func (ctx *Context) draw(op string, issue func(pass *wgpu.RenderPassEncoder)) {
	if err := ctx.encodeDraw(issue); err != nil {
		ctx.report(op, err)
	}
}

func (ctx *Context) encodeDraw(issue func(pass *wgpu.RenderPassEncoder)) error {
	if ctx.color == nil || ctx.vs == nil || ctx.vs.module == nil {
		return fmt.Errorf("no render target or vertex shader bound")
	}

	conf, err := ctx.pipelineConfig()
	if err != nil {
		return err
	}

	pipeline, err := ctx.dev.pipelines.Get(conf)
	if err != nil {
		return err
	}

	var bindGroup *wgpu.BindGroup

	constants := ctx.vsConstants
	if constants == nil {
		constants = ctx.psConstants
	}

	if constants != nil && constants.buffer != nil {
		bindGroup, err = ctx.dev.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Layout: pipeline.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: constants.buffer, Size: wgpu.WholeSize},
			},
		})

		if err != nil {
			return fmt.Errorf("create bind group: %w", err)
		}

		ctx.garbage = append(ctx.garbage, bindGroup)
	}

	pass, err := ctx.beginPass(ctx.color, ctx.depth)
	if err != nil {
		return err
	}

	defer pass.Release()

	vp := ctx.viewport
	if vp.Width > 0 && vp.Height > 0 {
		pass.SetViewport(vp.X, vp.Y, vp.Width, vp.Height, vp.MinDepth, vp.MaxDepth)
	}

	pass.SetPipeline(pipeline.Pipeline)

	if bindGroup != nil {
		pass.SetBindGroup(0, bindGroup, nil)
	}

	if ctx.layout != nil {
		for idx, slot := range ctx.layout.slots {
			binding := ctx.vertices[slot]
			if binding.buffer == nil || binding.buffer.buffer == nil {
				// the pass must be ended before the encoder can be used again
				return errors.Join(fmt.Errorf("no vertex buffer in slot %d", slot), pass.End())
			}

			pass.SetVertexBuffer(uint32(idx), binding.buffer.buffer, uint64(binding.offset), wgpu.WholeSize)
		}
	}

	issue(pass)

	return pass.End()
}

func (ctx *Context) pipelineConfig() (pipelineConfig, error) {
	colorFormat, ok := textureFormat(ctx.color.source.Desc().Format)
	if !ok {
		return pipelineConfig{}, fmt.Errorf("render target format %s", ctx.color.source.Desc().Format)
	}

	conf := pipelineConfig{
		vertex:      ctx.vs.module,
		vsEntry:     ctx.vs.entry,
		layout:      ctx.layout,
		topology:    ctx.topology,
		raster:      gfx.DefaultRasterizerDesc,
		colorFormat: colorFormat,
		samples:     ctx.color.source.Desc().SampleCount,
	}

	if ctx.ps != nil && ctx.ps.module != nil {
		conf.pixel = ctx.ps.module
		conf.psEntry = ctx.ps.entry
	}

	if ctx.hasRaster {
		conf.raster = ctx.raster
	}

	// without a state object the depth test is enabled like in Direct3D
	conf.depthEnabled = true
	conf.depth = gfx.DepthStencilDesc{DepthEnable: true, DepthWrite: true, DepthFunc: gfx.CompareLess}

	if ctx.hasDepth {
		conf.depth = ctx.depthState
	}

	if ctx.depth != nil && ctx.depth.source != nil {
		conf.depthFormat, _ = textureFormat(ctx.depth.source.Desc().Format)
	}

	if isStrip(ctx.topology) {
		conf.stripIndexFormat, _ = indexFormat(ctx.indexFormat)
	}

	for slot, binding := range ctx.vertices {
		conf.strides[slot] = binding.stride
	}

	return conf, nil
}

// beginPass starts a render pass on the given views, clearing them if a
// clear is pending. Clears of other views are encoded first.
func (ctx *Context) beginPass(color, depth *view) (*wgpu.RenderPassEncoder, error) {
	encoder, err := ctx.currentEncoder()
	if err != nil {
		return nil, err
	}

	colorClear, hasColorClear := ctx.takeColorClear(color)
	depthClear, hasDepthClear := ctx.takeDepthClear(depth)

	if err := ctx.encodeClears(); err != nil {
		return nil, err
	}

	desc := &wgpu.RenderPassDescriptor{}

	if color != nil {
		target, err := color.resolve()
		if err != nil {
			return nil, fmt.Errorf("render target: %w", err)
		}

		attachment := wgpu.RenderPassColorAttachment{
			View:    target,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}

		if hasColorClear {
			attachment.LoadOp = wgpu.LoadOpClear
			attachment.ClearValue = wgpu.Color{
				R: float64(colorClear[0]),
				G: float64(colorClear[1]),
				B: float64(colorClear[2]),
				A: float64(colorClear[3]),
			}
		}

		desc.ColorAttachments = []wgpu.RenderPassColorAttachment{attachment}
	}

	if depth != nil {
		target, err := depth.resolve()
		if err != nil {
			return nil, fmt.Errorf("depth target: %w", err)
		}

		attachment := &wgpu.RenderPassDepthStencilAttachment{
			View:           target,
			DepthLoadOp:    wgpu.LoadOpLoad,
			DepthStoreOp:   wgpu.StoreOpStore,
			StencilLoadOp:  wgpu.LoadOpLoad,
			StencilStoreOp: wgpu.StoreOpStore,
		}

		if hasDepthClear {
			attachment.DepthLoadOp = wgpu.LoadOpClear
			attachment.DepthClearValue = depthClear
			attachment.StencilLoadOp = wgpu.LoadOpClear
		}

		desc.DepthStencilAttachment = attachment
	}

	return encoder.BeginRenderPass(desc), nil
}

func (ctx *Context) takeColorClear(target *view) ([4]float32, bool) {
	for idx := len(ctx.clears) - 1; idx >= 0; idx-- {
		if target != nil && ctx.clears[idx].color == target {
			rgba := ctx.clears[idx].rgba
			ctx.clears = append(ctx.clears[:idx], ctx.clears[idx+1:]...)
			return rgba, true
		}
	}

	return [4]float32{}, false
}

func (ctx *Context) takeDepthClear(target *view) (float32, bool) {
	for idx := len(ctx.clears) - 1; idx >= 0; idx-- {
		if target != nil && ctx.clears[idx].depth == target {
			value := ctx.clears[idx].depthValue
			ctx.clears = append(ctx.clears[:idx], ctx.clears[idx+1:]...)
			return value, true
		}
	}

	return 0, false
}

// encodeClears encodes an empty pass for every pending clear.
func (ctx *Context) encodeClears() error {
	clears := ctx.clears
	ctx.clears = nil

	for _, c := range clears {
		if c.color != nil {
			ctx.clears = append(ctx.clears, c)

			pass, err := ctx.beginPass(c.color, nil)
			if err != nil {
				return err
			}

			err = pass.End()
			pass.Release()

			if err != nil {
				return err
			}
		}

		if c.depth != nil {
			ctx.clears = append(ctx.clears, c)

			pass, err := ctx.beginPass(nil, c.depth)
			if err != nil {
				return err
			}

			err = pass.End()
			pass.Release()

			if err != nil {
				return err
			}
		}
	}

	return nil
}

func (ctx *Context) currentEncoder() (*wgpu.CommandEncoder, error) {
	if ctx.encoder != nil {
		return ctx.encoder, nil
	}

	encoder, err := ctx.dev.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}

	ctx.encoder = encoder
	return encoder, nil
}

func (ctx *Context) ClearState() {
	*ctx = Context{
		dev:     ctx.dev,
		clears:  ctx.clears,
		encoder: ctx.encoder,
		garbage: ctx.garbage,
	}
}

// Flush encodes pending clears and submits everything recorded so far.
func (ctx *Context) Flush() {
	if len(ctx.clears) > 0 {
		if err := ctx.encodeClears(); err != nil {
			ctx.report("Flush", err)
		}
	}

	if ctx.encoder == nil {
		return
	}

	encoder := ctx.encoder
	ctx.encoder = nil

	defer encoder.Release()

	cmd, err := encoder.Finish(nil)
	if err != nil {
		ctx.report("Flush", fmt.Errorf("finish command encoder: %w", err))
		return
	}

	defer cmd.Release()

	ctx.dev.queue.Submit(cmd)

	for _, obj := range ctx.garbage {
		obj.Release()
	}

	ctx.garbage = nil
}

// report records an error of a call that cannot return one. With the
// debug layer the error is queued as a message, otherwise it is logged.
func (ctx *Context) report(op string, err error) {
	if ctx.dev.debug {
		ctx.dev.addMessage(gfx.Message{
			Severity: gfx.SeverityError,
			ID:       op,
			Text:     err.Error(),
		})

		return
	}

	slog.Warn("WebGPU call failed",
		slog.String("component", "wgpu"),
		slog.String("op", op),
		slog.Any("err", err),
	)
}
