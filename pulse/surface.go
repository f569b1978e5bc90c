package pulse

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/oliverbestmann/prism/gfx"
)

// BackBufferFormat is the color format of every Surface.
const BackBufferFormat = gfx.FormatR8G8B8A8Unorm

// Surface owns the back buffer chain of exactly one host window and the
// view onto its current back buffer.
type Surface struct {
	ctx   *Context
	win   gfx.Window
	chain gfx.SwapChain
	view  gfx.RenderTargetView

	width, height uint32

	inFrame bool
}

// BindSurface creates a windowed chain of two back buffers for the window.
func BindSurface(ctx *Context, win gfx.Window, width, height uint32) (*Surface, error) {
	if width == 0 || height == 0 {
		return nil, newError(ErrZeroSizedWindow, "surface", "bind", fmt.Errorf("size %dx%d", width, height))
	}

	chain, err := ctx.CreateSwapChain(win, gfx.SwapChainDesc{
		Width:       width,
		Height:      height,
		Format:      BackBufferFormat,
		BufferCount: 2,
		SampleCount: 1,
		Windowed:    true,
	})

	if err != nil {
		return nil, newError(ErrSwapChainCreation, "surface", "bind", err)
	}

	s := &Surface{ctx: ctx, win: win, chain: chain, width: width, height: height}

	if err := s.createView(); err != nil {
		chain.Release()
		return nil, newError(ErrSwapChainCreation, "surface", "bind", err)
	}

	slog.Info("Surface bound",
		slog.Int("width", int(width)),
		slog.Int("height", int(height)),
		slog.String("format", BackBufferFormat.String()),
	)

	return s, nil
}

func (s *Surface) createView() error {
	back, err := s.chain.Buffer(0)
	if err != nil {
		return fmt.Errorf("get back buffer: %w", err)
	}

	view, err := s.ctx.CreateRenderTargetView(back)
	if err != nil {
		return fmt.Errorf("create render target view: %w", err)
	}

	s.view = view

	return nil
}

// ReleaseView releases the view onto the back buffer. The chain can only be
// resized while no view exists.
func (s *Surface) ReleaseView() {
	if s.view != nil {
		s.view.Release()
		s.view = nil
	}
}

func (s *Surface) BeginFrame() {
	if s.inFrame {
		panic("BeginFrame called twice")
	}

	s.inFrame = true
}

func (s *Surface) EndFrame() {
	s.inFrame = false
}

// CurrentTarget returns the back buffer to render the current frame to.
// It panics when called outside of BeginFrame and EndFrame.
func (s *Surface) CurrentTarget() RenderTarget {
	if !s.inFrame {
		panic("CurrentTarget called outside of a frame")
	}

	if s.view == nil {
		panic("surface has no render target view")
	}

	return RenderTarget{
		View:   s.view,
		Format: BackBufferFormat,
		Width:  s.width,
		Height: s.height,
	}
}

// Resize resizes the chain in place, keeping buffer count and format.
// A zero sized window is rejected before the chain is touched. Resizing to
// the current size has no effect.
func (s *Surface) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return newError(ErrZeroSizedWindow, "surface", "resize", fmt.Errorf("size %dx%d", width, height))
	}

	if width == s.width && height == s.height && s.view != nil {
		return nil
	}

	// flush pending work referencing the old view
	s.ctx.Recorder.Flush()
	s.ReleaseView()

	if err := s.chain.ResizeBuffers(width, height); err != nil {
		kind := ErrResizeRefused
		if errors.Is(err, gfx.ErrDeviceRemoved) {
			kind = ErrDeviceLost
		}

		// keep a view on the old buffers to allow retrying later
		if viewErr := s.createView(); viewErr != nil {
			err = errors.Join(err, viewErr)
		}

		return newError(kind, "surface", "resize", err)
	}

	s.width, s.height = width, height

	if err := s.createView(); err != nil {
		return newError(ErrResizeRefused, "surface", "resize", err)
	}

	slog.Debug("Surface resized",
		slog.Int("width", int(width)),
		slog.Int("height", int(height)),
	)

	return nil
}

// Present flushes the recorder and shows the back buffer. With vsync
// enabled it blocks until the next vertical refresh.
func (s *Surface) Present(vsync bool) error {
	s.ctx.Recorder.Flush()

	var syncInterval uint32
	if vsync {
		syncInterval = 1
	}

	if err := s.chain.Present(syncInterval); err != nil {
		if errors.Is(err, gfx.ErrDeviceRemoved) {
			return newError(ErrDeviceLost, "surface", "present", err)
		}

		return fmt.Errorf("present: %w", err)
	}

	return nil
}

// Size returns the size of the back buffers.
func (s *Surface) Size() (width, height uint32) {
	return s.width, s.height
}

// View returns the render target view of the back buffer. It is nil while
// a resize is in progress or after the view could not be recreated.
func (s *Surface) View() gfx.RenderTargetView {
	return s.view
}

// BackBufferSize returns the size the chain reports for its buffers.
func (s *Surface) BackBufferSize() (width, height uint32) {
	desc := s.chain.Desc()
	return desc.Width, desc.Height
}

// BackBufferIndex returns the index of the buffer the next frame renders to.
func (s *Surface) BackBufferIndex() uint32 {
	return s.chain.CurrentBackBufferIndex()
}

func (s *Surface) Chain() gfx.SwapChain {
	return s.chain
}

func (s *Surface) Window() gfx.Window {
	return s.win
}

// Release releases the view and the chain. It is safe to call Release
// multiple times or on a nil Surface.
func (s *Surface) Release() {
	if s == nil {
		return
	}

	s.ReleaseView()

	if s.chain != nil {
		s.chain.Release()
		s.chain = nil
	}
}
