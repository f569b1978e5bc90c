package soft

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oliverbestmann/prism/gfx"
)

// Window is an offscreen stand-in for a host window.
type Window struct {
	mu            sync.Mutex
	handle        uintptr
	width, height uint32
}

var nextWindowHandle atomic.Uintptr

// NewWindow creates a window with the given client size.
func NewWindow(width, height uint32) *Window {
	handle := 0x10000 + nextWindowHandle.Add(0x10)
	return &Window{handle: handle, width: width, height: height}
}

func (w *Window) NativeHandle() uintptr {
	return w.handle
}

func (w *Window) ClientSize() (uint32, uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.width, w.height
}

// SetClientSize changes the client size as if the user resized the window.
func (w *Window) SetClientSize(width, height uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.width, w.height = width, height
}

// SwapChain holds BufferCount images. Rendering always goes to buffer zero,
// whose storage rotates through the images on every present, like the
// discard swap effect of DXGI.
type SwapChain struct {
	object
	dev  *Device
	win  gfx.Window
	desc gfx.SwapChainDesc

	images  [][]byte
	current int

	// stable back buffer object, its pixels point to images[current]
	back *Texture

	// last presented image
	front []byte

	presents uint64
}

var _ gfx.SwapChain = (*SwapChain)(nil)

func newSwapChain(dev *Device, win gfx.Window, desc gfx.SwapChainDesc) *SwapChain {
	sc := &SwapChain{dev: dev, win: win, desc: desc}

	sc.back = &Texture{chain: sc}
	sc.allocate()

	return sc
}

func (sc *SwapChain) allocate() {
	size := int(sc.desc.Width) * int(sc.desc.Height) * 4

	sc.images = make([][]byte, sc.desc.BufferCount)
	for idx := range sc.images {
		sc.images[idx] = make([]byte, size)
	}

	sc.current = 0
	sc.front = nil

	sc.back.desc = gfx.Texture2DDesc{
		Label:       "back buffer",
		Width:       sc.desc.Width,
		Height:      sc.desc.Height,
		Format:      sc.desc.Format,
		Bind:        gfx.BindRenderTarget,
		SampleCount: 1,
	}

	sc.back.pixels = sc.images[sc.current]
}

func (sc *SwapChain) Desc() gfx.SwapChainDesc {
	return sc.desc
}

func (sc *SwapChain) Buffer(idx uint32) (gfx.Texture2D, error) {
	if idx != 0 {
		return nil, sc.dev.invalid("GETBUFFER_INVALIDINDEX",
			"GetBuffer: only buffer 0 is accessible with the discard swap effect, got %d", idx)
	}

	return sc.back, nil
}

// BackBuffer returns buffer zero with its concrete type.
func (sc *SwapChain) BackBuffer() *Texture {
	return sc.back
}

func (sc *SwapChain) ResizeBuffers(width, height uint32) error {
	if err := sc.dev.checkRemoved("resize buffers"); err != nil {
		return err
	}

	if sc.back.views > 0 {
		return sc.dev.invalid("RESIZEBUFFERS_INVALIDCALL",
			"ResizeBuffers: %d views of the back buffers are still alive", sc.back.views)
	}

	// a zero size takes the size of the window
	if width == 0 || height == 0 {
		width, height = sc.win.ClientSize()
	}

	if width == 0 || height == 0 {
		return sc.dev.invalid("RESIZEBUFFERS_INVALIDDIMENSIONS", "ResizeBuffers: window has no client area")
	}

	sc.desc.Width = width
	sc.desc.Height = height
	sc.allocate()

	return nil
}

// Present rotates the buffers. A sync interval of n waits for the n-th
// vertical refresh from now.
func (sc *SwapChain) Present(syncInterval uint32) error {
	if err := sc.dev.checkRemoved("present"); err != nil {
		return err
	}

	if syncInterval > 4 {
		return sc.dev.invalid("PRESENT_INVALIDSYNCINTERVAL", "Present: invalid sync interval %d", syncInterval)
	}

	if syncInterval > 0 {
		sc.waitForVerticalBlank(syncInterval)
	}

	sc.front = sc.images[sc.current]
	sc.current = (sc.current + 1) % len(sc.images)
	sc.back.pixels = sc.images[sc.current]

	sc.presents++

	return nil
}

func (sc *SwapChain) waitForVerticalBlank(intervals uint32) {
	period := sc.dev.refresh
	elapsed := time.Since(sc.dev.epoch)

	// the next refresh strictly after now, plus further intervals
	next := (elapsed/period + time.Duration(intervals)) * period
	time.Sleep(next - elapsed)
}

func (sc *SwapChain) CurrentBackBufferIndex() uint32 {
	return uint32(sc.current)
}

// Presents returns the number of successful presents.
func (sc *SwapChain) Presents() uint64 {
	return sc.presents
}

// FrontBuffer returns a copy of the image presented last, or nil if
// nothing was presented since the buffers were allocated.
func (sc *SwapChain) FrontBuffer() *image.RGBA {
	if sc.front == nil {
		return nil
	}

	return toImage(sc.back.desc, sc.front)
}

func (sc *SwapChain) String() string {
	return fmt.Sprintf("SwapChain(%dx%d, %d buffers)", sc.desc.Width, sc.desc.Height, sc.desc.BufferCount)
}
