package wgpu

import (
	"fmt"
	"slices"
	"sync"

	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/webgpu/wgpu"
)

type Device struct {
	level gfx.FeatureLevel
	info  gfx.AdapterInfo
	debug bool

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	pipelines *pipelineCache
	ctx       *Context

	mu       sync.Mutex
	messages []gfx.Message
	released bool
}

var (
	_ gfx.Device    = (*Device)(nil)
	_ gfx.InfoQueue = (*Device)(nil)
)

// Messages returns the errors of calls that could not report them. Only
// recorded for devices opened in debug mode.
func (dev *Device) Messages() []gfx.Message {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	return slices.Clone(dev.messages)
}

func (dev *Device) ClearMessages() {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.messages = nil
}

func (dev *Device) addMessage(msg gfx.Message) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.messages = append(dev.messages, msg)
}

func (dev *Device) FeatureLevel() gfx.FeatureLevel {
	return dev.level
}

func (dev *Device) AdapterInfo() gfx.AdapterInfo {
	return dev.info
}

func (dev *Device) ShaderLanguage() gfx.ShaderLanguage {
	return gfx.LanguageWGSL
}

func (dev *Device) Debug() bool {
	return dev.debug
}

func (dev *Device) ImmediateContext() gfx.Context {
	return dev.ctx
}

func (dev *Device) Release() {
	dev.mu.Lock()
	released := dev.released
	dev.released = true
	dev.mu.Unlock()

	if released {
		return
	}

	if dev.ctx != nil {
		dev.ctx.ClearState()
		dev.ctx.Flush()
	}

	if dev.pipelines != nil {
		dev.pipelines.Purge()
	}

	if dev.queue != nil {
		dev.queue.Release()
	}

	if dev.device != nil {
		dev.device.Release()
	}

	if dev.adapter != nil {
		dev.adapter.Release()
	}

	if dev.instance != nil {
		dev.instance.Release()
	}
}

func (dev *Device) CreateBuffer(desc gfx.BufferDesc, data []byte) (gfx.Buffer, error) {
	if desc.ByteWidth == 0 {
		return nil, fmt.Errorf("create buffer %q: zero size: %w", desc.Label, gfx.ErrInvalidCall)
	}

	if desc.Usage == gfx.UsageImmutable && len(data) == 0 {
		return nil, fmt.Errorf("create buffer %q: immutable buffer without data: %w", desc.Label, gfx.ErrInvalidCall)
	}

	if len(data) > int(desc.ByteWidth) {
		return nil, fmt.Errorf("create buffer %q: %d bytes of data for %d bytes: %w",
			desc.Label, len(data), desc.ByteWidth, gfx.ErrInvalidCall)
	}

	usage := bufferUsage(desc)

	// buffer sizes must be a multiple of four
	size := uint64(desc.ByteWidth+3) &^ 3

	buf, err := dev.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Usage: usage,
		Size:  size,
	})

	if err != nil {
		return nil, fmt.Errorf("create buffer %q: %w", desc.Label, err)
	}

	if len(data) > 0 {
		if err := dev.queue.WriteBuffer(buf, 0, padded(data)); err != nil {
			buf.Release()
			return nil, fmt.Errorf("upload buffer %q: %w", desc.Label, err)
		}
	}

	b := &Buffer{desc: desc, buffer: buf}

	if desc.Usage == gfx.UsageDynamic {
		b.shadow = make([]byte, size)
	}

	return b, nil
}

func (dev *Device) CreateTexture2D(desc gfx.Texture2DDesc) (gfx.Texture2D, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("create texture %q: zero size: %w", desc.Label, gfx.ErrInvalidCall)
	}

	format, ok := textureFormat(desc.Format)
	if !ok {
		return nil, fmt.Errorf("create texture %q: format %s: %w", desc.Label, desc.Format, gfx.ErrUnsupported)
	}

	sampleCount := max(desc.SampleCount, 1)

	texture, err := dev.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     desc.Label,
		Usage:     textureUsage(desc.Bind),
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   sampleCount,
	})

	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", desc.Label, err)
	}

	return &Texture{desc: desc, texture: texture}, nil
}

func (dev *Device) CreateRenderTargetView(tex gfx.Texture2D) (gfx.RenderTargetView, error) {
	if tex.Desc().Bind&gfx.BindRenderTarget == 0 {
		return nil, fmt.Errorf("create render target view: texture not bound as render target: %w", gfx.ErrInvalidCall)
	}

	view, err := newView(tex)
	if err != nil {
		return nil, fmt.Errorf("create render target view: %w", err)
	}

	return (*RenderTargetView)(view), nil
}

func (dev *Device) CreateDepthStencilView(tex gfx.Texture2D) (gfx.DepthStencilView, error) {
	if tex.Desc().Bind&gfx.BindDepthStencil == 0 || !tex.Desc().Format.IsDepth() {
		return nil, fmt.Errorf("create depth stencil view: texture not bound as depth stencil: %w", gfx.ErrInvalidCall)
	}

	view, err := newView(tex)
	if err != nil {
		return nil, fmt.Errorf("create depth stencil view: %w", err)
	}

	return (*DepthStencilView)(view), nil
}

func (dev *Device) CreateRasterizerState(desc gfx.RasterizerDesc) (gfx.RasterizerState, error) {
	if desc.Fill == gfx.FillWireframe {
		// polygon mode line is a native only feature
		return nil, fmt.Errorf("create rasterizer state: wireframe: %w", gfx.ErrUnsupported)
	}

	return &RasterizerState{desc: desc}, nil
}

func (dev *Device) CreateDepthStencilState(desc gfx.DepthStencilDesc) (gfx.DepthStencilState, error) {
	return &DepthStencilState{desc: desc}, nil
}

func padded(data []byte) []byte {
	if len(data)%4 == 0 {
		return data
	}

	buf := make([]byte, (len(data)+3)&^3)
	copy(buf, data)
	return buf
}
