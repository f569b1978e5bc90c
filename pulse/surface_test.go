package pulse_test

import (
	"errors"
	"image/color"
	"testing"
	"time"

	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/prism/gfx/soft"
	"github.com/oliverbestmann/prism/pulse"
)

func bindSurface(t *testing.T, ctx *pulse.Context, width, height uint32) *pulse.Surface {
	t.Helper()

	surface, err := pulse.BindSurface(ctx, soft.NewWindow(width, height), width, height)
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(surface.Release)

	return surface
}

func TestBindSurface(t *testing.T) {
	ctx := openContext(t, pulse.OpenOptions{})
	surface := bindSurface(t, ctx, 320, 240)

	desc := surface.Chain().Desc()
	if desc.BufferCount != 2 || desc.Format != pulse.BackBufferFormat || desc.SampleCount != 1 || !desc.Windowed {
		t.Errorf("unexpected chain %+v", desc)
	}

	if w, h := surface.Size(); w != 320 || h != 240 {
		t.Errorf("surface is %dx%d", w, h)
	}

	if live := softDevice(ctx).LiveObjects(); live["SwapChain"] != 1 || live["RenderTargetView"] != 1 {
		t.Errorf("unexpected live objects %v", live)
	}
}

func TestBindSurfaceZeroSize(t *testing.T) {
	ctx := openContext(t, pulse.OpenOptions{})

	_, err := pulse.BindSurface(ctx, soft.NewWindow(0, 0), 0, 0)
	if !errors.Is(err, pulse.ErrZeroSizedWindow) {
		t.Fatalf("unexpected error %v", err)
	}

	if _, ok := softDevice(ctx).LiveObjects()["SwapChain"]; ok {
		t.Error("swap chain created for a zero sized window")
	}
}

func TestBindSurfaceDeviceRemoved(t *testing.T) {
	ctx := openContext(t, pulse.OpenOptions{})
	softDevice(ctx).Remove(nil)

	_, err := pulse.BindSurface(ctx, soft.NewWindow(64, 64), 64, 64)
	if !errors.Is(err, pulse.ErrSwapChainCreation) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestResizeKeepsSizesInSync(t *testing.T) {
	ctx := openContext(t, pulse.OpenOptions{})
	surface := bindSurface(t, ctx, 640, 480)

	depth, err := pulse.NewDepthSurface(ctx, 640, 480)
	if err != nil {
		t.Fatal(err)
	}

	defer depth.Release()

	state, err := pulse.NewFixedFunctionState(ctx, pulse.StateOptions{}, 640, 480)
	if err != nil {
		t.Fatal(err)
	}

	sizes := [][2]uint32{
		{800, 600},
		{1, 1},
		{1920, 1080},
		{1920, 1080},
		{333, 777},
		{640, 480},
	}

	for _, size := range sizes {
		width, height := size[0], size[1]

		if err := surface.Resize(width, height); err != nil {
			t.Fatalf("resize surface to %dx%d: %s", width, height, err)
		}

		if err := depth.Resize(width, height); err != nil {
			t.Fatalf("resize depth to %dx%d: %s", width, height, err)
		}

		state.Resize(width, height)

		if w, h := surface.Size(); w != width || h != height {
			t.Errorf("surface is %dx%d, want %dx%d", w, h, width, height)
		}

		if w, h := surface.BackBufferSize(); w != width || h != height {
			t.Errorf("back buffer is %dx%d, want %dx%d", w, h, width, height)
		}

		if w, h := depth.Size(); w != width || h != height {
			t.Errorf("depth is %dx%d, want %dx%d", w, h, width, height)
		}

		want := gfx.Viewport{Width: float32(width), Height: float32(height), MaxDepth: 1}
		if vp := state.Viewport(); vp != want {
			t.Errorf("viewport is %+v, want %+v", vp, want)
		}

		if desc := surface.Chain().Desc(); desc.BufferCount != 2 || desc.Format != pulse.BackBufferFormat {
			t.Errorf("resize changed the chain to %+v", desc)
		}

		surface.BeginFrame()
		target := surface.CurrentTarget()
		depth.CheckSize(target.Width, target.Height)
		surface.EndFrame()
	}

	live := softDevice(ctx).LiveObjects()
	if live["RenderTargetView"] != 1 || live["DepthStencilView"] != 1 || live["Texture2D"] != 1 {
		t.Errorf("resize leaked objects: %v", live)
	}
}

func TestResizeZeroSize(t *testing.T) {
	ctx := openContext(t, pulse.OpenOptions{})
	surface := bindSurface(t, ctx, 64, 48)

	depth, err := pulse.NewDepthSurface(ctx, 64, 48)
	if err != nil {
		t.Fatal(err)
	}

	defer depth.Release()

	for _, size := range [][2]uint32{{0, 0}, {0, 48}, {64, 0}} {
		err := surface.Resize(size[0], size[1])
		if !errors.Is(err, pulse.ErrZeroSizedWindow) || !pulse.Recoverable(err) {
			t.Errorf("surface resize to %v returned %v", size, err)
		}

		err = depth.Resize(size[0], size[1])
		if !errors.Is(err, pulse.ErrZeroSizedWindow) {
			t.Errorf("depth resize to %v returned %v", size, err)
		}
	}

	if w, h := surface.BackBufferSize(); w != 64 || h != 48 {
		t.Errorf("zero size reached the chain, back buffer is %dx%d", w, h)
	}

	if w, h := depth.Size(); w != 64 || h != 48 {
		t.Errorf("depth is %dx%d", w, h)
	}
}

func TestResizeSameSizeIsNoop(t *testing.T) {
	ctx := openContext(t, pulse.OpenOptions{})
	surface := bindSurface(t, ctx, 64, 48)

	chain := softChain(surface)

	surface.BeginFrame()
	surface.CurrentTarget().Clear(ctx.Recorder, pulse.ColorLinearRGBA(1, 0, 0, 1))
	surface.EndFrame()

	if err := surface.Resize(64, 48); err != nil {
		t.Fatal(err)
	}

	// buffers are reallocated on every resize of the chain, which would
	// lose the cleared color
	if got := chain.BackBuffer().Pixel(10, 10); got != [4]float32{1, 0, 0, 1} {
		t.Errorf("resize to the same size touched the chain, pixel is %v", got)
	}
}

func TestResizeRefused(t *testing.T) {
	ctx := openContext(t, pulse.OpenOptions{})
	surface := bindSurface(t, ctx, 64, 48)

	// an outstanding view of the back buffer blocks the resize
	back, err := surface.Chain().Buffer(0)
	if err != nil {
		t.Fatal(err)
	}

	extra, err := ctx.CreateRenderTargetView(back)
	if err != nil {
		t.Fatal(err)
	}

	err = surface.Resize(128, 96)
	if !errors.Is(err, pulse.ErrResizeRefused) || !pulse.Recoverable(err) {
		t.Fatalf("unexpected error %v", err)
	}

	if w, h := surface.Size(); w != 64 || h != 48 {
		t.Errorf("surface is %dx%d after refused resize", w, h)
	}

	// the surface stays usable
	surface.BeginFrame()
	if target := surface.CurrentTarget(); target.View == nil {
		t.Error("no render target after refused resize")
	}
	surface.EndFrame()

	extra.Release()

	if err := surface.Resize(128, 96); err != nil {
		t.Fatalf("retry failed: %s", err)
	}

	if w, h := surface.BackBufferSize(); w != 128 || h != 96 {
		t.Errorf("back buffer is %dx%d", w, h)
	}
}

func TestCurrentTargetOutsideFrame(t *testing.T) {
	ctx := openContext(t, pulse.OpenOptions{})
	surface := bindSurface(t, ctx, 16, 16)

	mustPanic(t, "CurrentTarget before BeginFrame", func() { surface.CurrentTarget() })

	surface.BeginFrame()
	mustPanic(t, "BeginFrame inside a frame", surface.BeginFrame)
	surface.EndFrame()

	mustPanic(t, "CurrentTarget after EndFrame", func() { surface.CurrentTarget() })
}

func TestBackBufferRotation(t *testing.T) {
	ctx := openContext(t, pulse.OpenOptions{})
	surface := bindSurface(t, ctx, 16, 16)

	colors := []pulse.Color{
		pulse.ColorLinearRGBA(1, 0, 0, 1),
		pulse.ColorLinearRGBA(0, 1, 0, 1),
		pulse.ColorLinearRGBA(0, 0, 1, 1),
		pulse.ColorLinearRGBA(1, 1, 1, 1),
		pulse.ColorLinearRGBA(0, 0, 0, 1),
	}

	if idx := surface.BackBufferIndex(); idx != 0 {
		t.Fatalf("first back buffer index is %d", idx)
	}

	for frame, clearColor := range colors {
		surface.BeginFrame()
		surface.CurrentTarget().Clear(ctx.Recorder, clearColor)
		surface.EndFrame()

		if err := surface.Present(false); err != nil {
			t.Fatal(err)
		}

		if idx, want := surface.BackBufferIndex(), uint32((frame+1)%2); idx != want {
			t.Errorf("frame %d: back buffer index is %d, want %d", frame, idx, want)
		}

		r, g, b, a := clearColor.Components()
		want := color.RGBA{R: uint8(r * 255), G: uint8(g * 255), B: uint8(b * 255), A: uint8(a * 255)}

		if got := softChain(surface).FrontBuffer().RGBAAt(8, 8); got != want {
			t.Errorf("frame %d: presented %v, want %v", frame, got, want)
		}
	}
}

func TestPresentVerticalSync(t *testing.T) {
	useDriver(t, &soft.Driver{RefreshRate: 50})

	ctx := openContext(t, pulse.OpenOptions{})
	surface := bindSurface(t, ctx, 16, 16)

	// align with the refresh clock
	if err := surface.Present(true); err != nil {
		t.Fatal(err)
	}

	start := time.Now()

	if err := surface.Present(true); err != nil {
		t.Fatal(err)
	}

	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Errorf("vsync present returned after %s, refresh period is 20ms", elapsed)
	}

	start = time.Now()

	for range 10 {
		if err := surface.Present(false); err != nil {
			t.Fatal(err)
		}
	}

	if elapsed := time.Since(start); elapsed > 15*time.Millisecond {
		t.Errorf("ten presents without vsync took %s", elapsed)
	}
}

func TestPresentDeviceLost(t *testing.T) {
	ctx := openContext(t, pulse.OpenOptions{})
	surface := bindSurface(t, ctx, 16, 16)

	softDevice(ctx).Remove(errors.New("driver upgraded"))

	err := surface.Present(true)
	if !errors.Is(err, pulse.ErrDeviceLost) || !errors.Is(err, gfx.ErrDeviceRemoved) {
		t.Fatalf("unexpected error %v", err)
	}

	if pulse.Recoverable(err) {
		t.Error("device loss reported as recoverable")
	}

	if err := surface.Resize(32, 32); !errors.Is(err, pulse.ErrDeviceLost) {
		t.Errorf("resize after device loss returned %v", err)
	}
}

func TestSurfaceRelease(t *testing.T) {
	ctx := openContext(t, pulse.OpenOptions{})
	surface := bindSurface(t, ctx, 16, 16)

	surface.Release()
	surface.Release()

	var nilSurface *pulse.Surface
	nilSurface.Release()

	if live := softDevice(ctx).LiveObjects(); len(live) != 0 {
		t.Errorf("objects still alive: %v", live)
	}
}
