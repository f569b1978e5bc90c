package orion

import (
	"image/color"
	"math"
	"testing"

	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/prism/gfx/soft"
	"github.com/oliverbestmann/prism/glimpse"
	"github.com/oliverbestmann/prism/pulse"
)

// useDriver registers a fresh software driver for the duration of the test.
func useDriver(t *testing.T) *soft.Driver {
	t.Helper()

	drv := &soft.Driver{}

	gfx.Register(drv)
	t.Cleanup(func() { gfx.Register(&soft.Driver{}) })

	return drv
}

func engineOptions(scene Scene) EngineOptions {
	return EngineOptions{
		Device:  pulse.OpenOptions{Driver: soft.DriverName},
		Scene:   scene,
		NoVSync: true,
	}
}

func newTestEngine(t *testing.T, win gfx.Window, opts EngineOptions) *Engine {
	t.Helper()

	engine, err := NewEngine(win, opts)
	if err != nil {
		t.Fatalf("setup engine: %s", err)
	}

	t.Cleanup(engine.Release)

	return engine
}

func render(t *testing.T, engine *Engine, tick FrameTick) {
	t.Helper()

	if err := engine.Render(tick); err != nil {
		t.Fatalf("render frame: %s", err)
	}
}

func chainOf(engine *Engine) *soft.SwapChain {
	return engine.Surface.Chain().(*soft.SwapChain)
}

func deviceOf(engine *Engine) *soft.Device {
	return engine.Context.Device.(*soft.Device)
}

// presentedPixel returns the pixel of the last presented image.
func presentedPixel(t *testing.T, engine *Engine, x, y int) color.RGBA {
	t.Helper()

	img := chainOf(engine).FrontBuffer()
	if img == nil {
		t.Fatal("nothing presented yet")
	}

	return img.RGBAAt(x, y)
}

// approxRGBA compares a pixel against a color given in the range 0 to 1.
func approxRGBA(got color.RGBA, want [4]float32, eps float64) bool {
	channels := [4]uint8{got.R, got.G, got.B, got.A}

	for idx, value := range channels {
		if math.Abs(float64(value)/255-float64(want[idx])) > eps {
			return false
		}
	}

	return true
}

// testHost is a window that is driven by the test.
type testHost struct {
	*soft.Window

	pending glimpse.InputState
	closed  bool
	polls   int

	// closes the window after the given number of polls if non zero
	closeAfter int
}

func newTestHost(width, height uint32) *testHost {
	return &testHost{Window: soft.NewWindow(width, height)}
}

func (h *testHost) Press(key glimpse.Key) {
	h.pending.Press(key)
}

func (h *testHost) PollEvents() glimpse.InputState {
	h.polls++

	if h.closeAfter > 0 && h.polls >= h.closeAfter {
		h.closed = true
	}

	input := h.pending
	h.pending = glimpse.InputState{}

	return input
}

func (h *testHost) ShouldClose() bool {
	return h.closed
}

func (h *testHost) Close() {
	h.closed = true
}
