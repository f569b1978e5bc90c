package d3d11

import (
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/oliverbestmann/prism/gfx"
	"golang.org/x/sys/windows"
)

// SwapChain is a windowed DXGI swap chain using the discard swap effect.
type SwapChain struct {
	dev   *Device
	chain *iDXGISwapChain
	desc  gfx.SwapChainDesc

	// buffer 0, fetched on first use and released before resizing
	back *Texture
}

func (dev *Device) CreateSwapChain(win gfx.Window, desc gfx.SwapChainDesc) (gfx.SwapChain, error) {
	hwnd := win.NativeHandle()
	if hwnd == 0 {
		return nil, fmt.Errorf("create swap chain: window has no native handle: %w", gfx.ErrUnsupported)
	}

	ptr, err := dev.adapter.GetParent(&iidIDXGIFactory)
	if err != nil {
		return nil, dev.wrapError("get dxgi factory", err)
	}

	factory := (*iDXGIFactory)(ptr)
	defer release(ptr)

	chain, err := factory.CreateSwapChain(unsafe.Pointer(dev.device), &dxgiSwapChainDesc{
		BufferDesc: dxgiModeDesc{
			Width:  desc.Width,
			Height: desc.Height,
			Format: uint32(desc.Format),
		},
		SampleDesc:   sampleDesc{Count: max(desc.SampleCount, 1)},
		BufferUsage:  dxgiUsageRenderTargetOutput,
		BufferCount:  desc.BufferCount,
		OutputWindow: windows.Handle(hwnd),
		Windowed:     boolean(desc.Windowed),
		SwapEffect:   dxgiSwapEffectDiscard,
	})

	if err != nil {
		return nil, dev.wrapError("create swap chain", err)
	}

	// we handle fullscreen transitions ourselves
	if err := factory.MakeWindowAssociation(hwnd, dxgiMWANoAltEnter); err != nil {
		slog.Warn("Failed to disable alt-enter",
			slog.String("component", "d3d11"),
			slog.String("op", "create swap chain"),
			slog.Any("err", err),
		)
	}

	return &SwapChain{dev: dev, chain: chain, desc: desc}, nil
}

func (sc *SwapChain) Desc() gfx.SwapChainDesc {
	return sc.desc
}

func (sc *SwapChain) Buffer(idx uint32) (gfx.Texture2D, error) {
	if idx != 0 {
		return nil, fmt.Errorf("buffer %d: only buffer 0 is accessible: %w", idx, gfx.ErrInvalidCall)
	}

	if sc.back != nil {
		return sc.back, nil
	}

	ptr, err := sc.chain.GetBuffer(0, &iidID3D11Texture2D)
	if err != nil {
		return nil, sc.dev.wrapError("get back buffer", err)
	}

	sc.back = &Texture{
		comObject: comObject{ptr},
		chain:     sc,
		desc: gfx.Texture2DDesc{
			Label:       "back buffer",
			Width:       sc.desc.Width,
			Height:      sc.desc.Height,
			Format:      sc.desc.Format,
			Bind:        gfx.BindRenderTarget,
			SampleCount: max(sc.desc.SampleCount, 1),
		},
	}

	return sc.back, nil
}

func (sc *SwapChain) CurrentBackBufferIndex() uint32 {
	return 0
}

func (sc *SwapChain) ResizeBuffers(width, height uint32) error {
	if sc.back != nil {
		if sc.back.views > 0 {
			return fmt.Errorf("resize buffers: %d views still alive: %w", sc.back.views, gfx.ErrInvalidCall)
		}

		sc.back.comObject.Release()
		sc.back = nil
	}

	// zero keeps count and format
	if err := sc.chain.ResizeBuffers(0, width, height, 0, 0); err != nil {
		return sc.dev.wrapError(fmt.Sprintf("resize buffers to %dx%d", width, height), err)
	}

	sc.desc.Width = width
	sc.desc.Height = height

	return nil
}

func (sc *SwapChain) Present(syncInterval uint32) error {
	err := sc.chain.Present(syncInterval, 0)

	var code errorCode
	if errors.As(err, &code) && code.Code == dxgiStatusOccluded {
		// window is not visible, nothing to do
		return nil
	}

	if err != nil {
		return sc.dev.wrapError("present", err)
	}

	return nil
}

func (sc *SwapChain) Release() {
	if sc.chain == nil {
		return
	}

	if sc.back != nil {
		sc.back.comObject.Release()
		sc.back = nil
	}

	release(unsafe.Pointer(sc.chain))
	sc.chain = nil
}
