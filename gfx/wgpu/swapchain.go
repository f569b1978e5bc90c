package wgpu

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/webgpu/wgpu"
)

// SurfaceWindow is a window a WebGPU surface can be created for.
type SurfaceWindow interface {
	gfx.Window
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
}

// SwapChain presents to a configured surface. WebGPU hands out one
// surface texture per frame, its only back buffer acquires that texture
// on first use.
type SwapChain struct {
	dev     *Device
	desc    gfx.SwapChainDesc
	surface *wgpu.Surface
	config  *wgpu.SurfaceConfiguration

	// format of the surface textures, may differ in channel order from desc
	format gfx.Format

	immediate bool

	back *backBuffer
}

func (dev *Device) CreateSwapChain(win gfx.Window, desc gfx.SwapChainDesc) (gfx.SwapChain, error) {
	sw, ok := win.(SurfaceWindow)
	if !ok {
		return nil, fmt.Errorf("create swap chain: window %T has no surface descriptor: %w", win, gfx.ErrUnsupported)
	}

	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("create swap chain: zero size: %w", gfx.ErrInvalidCall)
	}

	format, ok := textureFormat(desc.Format)
	if !ok || desc.Format.IsDepth() {
		return nil, fmt.Errorf("create swap chain: format %s: %w", desc.Format, gfx.ErrUnsupported)
	}

	surface := dev.instance.CreateSurface(sw.SurfaceDescriptor())

	caps := surface.GetCapabilities(dev.adapter)
	slog.Info("Available surface formats", slog.Any("formats", caps.Formats))

	surfaceFormat := desc.Format

	// many surfaces only offer bgra, the channel order is invisible to shaders
	if !slices.Contains(caps.Formats, format) && slices.Contains(caps.Formats, wgpu.TextureFormatBGRA8Unorm) {
		format, surfaceFormat = wgpu.TextureFormatBGRA8Unorm, gfx.FormatB8G8R8A8Unorm
	}

	if !slices.Contains(caps.Formats, format) || len(caps.AlphaModes) == 0 {
		surface.Release()
		return nil, fmt.Errorf("create swap chain: surface does not support %s: %w", desc.Format, gfx.ErrUnsupported)
	}

	sc := &SwapChain{
		dev:     dev,
		desc:    desc,
		format:  surfaceFormat,
		surface: surface,
		config: &wgpu.SurfaceConfiguration{
			Usage:       wgpu.TextureUsageRenderAttachment,
			Format:      format,
			PresentMode: wgpu.PresentModeFifo,
			AlphaMode:   caps.AlphaModes[0],
			Width:       desc.Width,
			Height:      desc.Height,

			// try to reduce input latency
			DesiredMaximumFrameLatency: 1,
		},

		immediate: slices.Contains(caps.PresentModes, wgpu.PresentModeImmediate),
	}

	sc.back = &backBuffer{chain: sc}

	surface.Configure(dev.device, sc.config)

	return sc, nil
}

func (sc *SwapChain) Desc() gfx.SwapChainDesc {
	return sc.desc
}

func (sc *SwapChain) Buffer(idx uint32) (gfx.Texture2D, error) {
	if idx != 0 {
		return nil, fmt.Errorf("buffer %d: only buffer 0 is accessible: %w", idx, gfx.ErrInvalidCall)
	}

	return sc.back, nil
}

func (sc *SwapChain) CurrentBackBufferIndex() uint32 {
	return 0
}

func (sc *SwapChain) ResizeBuffers(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("resize buffers to %dx%d: %w", width, height, gfx.ErrInvalidCall)
	}

	if sc.back.views > 0 {
		return fmt.Errorf("resize buffers: %d views still alive: %w", sc.back.views, gfx.ErrInvalidCall)
	}

	sc.back.releaseFrame()

	sc.desc.Width = width
	sc.desc.Height = height

	sc.config.Width = width
	sc.config.Height = height
	sc.surface.Configure(sc.dev.device, sc.config)

	return nil
}

func (sc *SwapChain) Present(syncInterval uint32) error {
	mode := wgpu.PresentModeFifo
	if syncInterval == 0 && sc.immediate {
		mode = wgpu.PresentModeImmediate
	}

	sc.dev.ctx.Flush()

	// presenting requires a texture, even if nothing was drawn
	if _, err := sc.back.acquire(); err != nil {
		return fmt.Errorf("present: %w", err)
	}

	sc.surface.Present()
	sc.back.releaseFrame()

	if mode != sc.config.PresentMode {
		sc.config.PresentMode = mode
		sc.surface.Configure(sc.dev.device, sc.config)
	}

	return nil
}

func (sc *SwapChain) Release() {
	if sc.surface == nil {
		return
	}

	sc.back.releaseFrame()

	sc.surface.Release()
	sc.surface = nil
}

type backBuffer struct {
	chain *SwapChain
	views int

	// the surface texture of the current frame
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

var _ viewSource = (*backBuffer)(nil)

func (b *backBuffer) Desc() gfx.Texture2DDesc {
	return gfx.Texture2DDesc{
		Label:       "back buffer",
		Width:       b.chain.desc.Width,
		Height:      b.chain.desc.Height,
		Format:      b.chain.format,
		Bind:        gfx.BindRenderTarget,
		SampleCount: 1,
	}
}

// Release has no effect, the buffer belongs to the swap chain.
func (b *backBuffer) Release() {}

func (b *backBuffer) addView(delta int) {
	b.views += delta
}

func (b *backBuffer) textureView() (*wgpu.TextureView, error) {
	if b.view != nil {
		return b.view, nil
	}

	if _, err := b.acquire(); err != nil {
		return nil, err
	}

	view, err := b.texture.CreateView(nil)
	if err != nil {
		return nil, fmt.Errorf("create back buffer view: %w", err)
	}

	b.view = view
	return view, nil
}

func (b *backBuffer) acquire() (*wgpu.Texture, error) {
	if b.texture != nil {
		return b.texture, nil
	}

	if b.chain.surface == nil {
		return nil, errReleased
	}

	texture, err := b.chain.surface.GetCurrentTexture()
	if err != nil {
		// lost or outdated surfaces mean the device has to be rebuilt
		return nil, fmt.Errorf("acquire surface texture: %w: %w", gfx.ErrDeviceRemoved, err)
	}

	b.texture = texture
	return texture, nil
}

func (b *backBuffer) releaseFrame() {
	if b.view != nil {
		b.view.Release()
		b.view = nil
	}

	if b.texture != nil {
		b.texture.Release()
		b.texture = nil
	}
}
