package orion

import (
	"errors"
	"maps"
	"math"
	"testing"

	"github.com/oliverbestmann/prism/assets"
	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/prism/gfx/soft"
	"github.com/oliverbestmann/prism/pulse"
)

const brokenFragmentShader = `
float4 PS(float4 pos : SV_POSITION) : SV_TARGET
{
    return float4(1, 0, 0, 1)
}
`

func TestHelloTriangle(t *testing.T) {
	useDriver(t)

	win := soft.NewWindow(64, 64)
	engine := newTestEngine(t, win, engineOptions(TriangleScene()))

	render(t, engine, FrameTick{})

	// the centroid blends all three corners equally
	if got := presentedPixel(t, engine, 32, 37); !approxRGBA(got, [4]float32{1.0 / 3, 1.0 / 3, 1.0 / 3, 1}, 0.06) {
		t.Errorf("centroid is %v", got)
	}

	if got := presentedPixel(t, engine, 2, 2); got.R != 0 || got.G != 0 || got.B != 0 || got.A != 255 {
		t.Errorf("background is %v, want black", got)
	}

	if engine.Frames().Presented != 1 || chainOf(engine).Presents() != 1 {
		t.Errorf("presented %d frames", engine.Frames().Presented)
	}
}

func TestSpinningCube(t *testing.T) {
	useDriver(t)

	win := soft.NewWindow(64, 64)
	engine := newTestEngine(t, win, engineOptions(CubeScene()))

	cases := []struct {
		name    string
		elapsed float64
		want    [4]float32
	}{
		// the front face blends red and blue along its diagonal
		{name: "front face", elapsed: 0, want: [4]float32{0.5, 0, 0.5, 1}},

		// half a turn around y and a quarter turn around x shows the bottom
		{name: "bottom face", elapsed: math.Pi, want: [4]float32{1, 1, 0.5, 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			render(t, engine, FrameTick{Elapsed: tc.elapsed})

			if got := presentedPixel(t, engine, 32, 32); !approxRGBA(got, tc.want, 0.06) {
				t.Errorf("center is %v, want %v", got, tc.want)
			}

			// the clear color of the cube scene
			if got := presentedPixel(t, engine, 1, 1); !approxRGBA(got, [4]float32{0.1, 0.1, 0.2, 1}, 0.01) {
				t.Errorf("corner is %v", got)
			}
		})
	}
}

func TestResizeRebuildsViews(t *testing.T) {
	useDriver(t)

	opts := engineOptions(TriangleScene())
	opts.Device.Debug = true

	win := soft.NewWindow(800, 600)
	engine := newTestEngine(t, win, opts)

	render(t, engine, FrameTick{})

	program := engine.Programs.Current()
	geometry := engine.Geometry
	constants := engine.Constants

	win.SetClientSize(1600, 900)
	if err := engine.Resize(1600, 900); err != nil {
		t.Fatal(err)
	}

	render(t, engine, FrameTick{})

	if w, h := engine.Surface.Size(); w != 1600 || h != 900 {
		t.Errorf("surface is %dx%d", w, h)
	}

	if w, h := engine.Depth.Size(); w != 1600 || h != 900 {
		t.Errorf("depth surface is %dx%d", w, h)
	}

	want := gfx.Viewport{Width: 1600, Height: 900, MinDepth: 0, MaxDepth: 1}
	if vp := engine.State.Viewport(); vp != want {
		t.Errorf("viewport is %+v", vp)
	}

	if engine.Programs.Current() != program || engine.Geometry != geometry || engine.Constants != constants {
		t.Error("resize touched resources that do not depend on the size")
	}

	if n := engine.Frames().Messages; n != 0 {
		t.Errorf("%d validation messages", n)
	}

	live := deviceOf(engine).LiveObjects()
	if live["RenderTargetView"] != 1 || live["DepthStencilView"] != 1 || live["Texture2D"] != 1 {
		t.Errorf("unexpected live objects after resize: %v", live)
	}
}

func TestResizeSameSizeIsNoop(t *testing.T) {
	useDriver(t)

	engine := newTestEngine(t, soft.NewWindow(64, 64), engineOptions(TriangleScene()))

	view := engine.Depth.View()

	if err := engine.Resize(64, 64); err != nil {
		t.Fatal(err)
	}

	if engine.Depth.View() != view {
		t.Error("depth surface rebuilt for an unchanged size")
	}
}

func TestDepthResizeFailureSkipsFrames(t *testing.T) {
	useDriver(t)

	win := soft.NewWindow(64, 64)
	engine := newTestEngine(t, win, engineOptions(CubeScene()))

	render(t, engine, FrameTick{})

	dev := deviceOf(engine)
	dev.FailTextures(gfx.ErrOutOfMemory)

	// the swap chain takes the new size, the depth buffer does not
	win.SetClientSize(128, 96)

	err := engine.Resize(128, 96)
	if !errors.Is(err, pulse.ErrResizeRefused) || !pulse.Recoverable(err) {
		t.Fatalf("unexpected error %v", err)
	}

	for range 2 {
		render(t, engine, FrameTick{})
	}

	if engine.Frames().Skipped != 2 || engine.Frames().Presented != 1 {
		t.Errorf("skipped %d, presented %d", engine.Frames().Skipped, engine.Frames().Presented)
	}

	// the next frame rebuilds the depth buffer at the size of the chain
	dev.FailTextures(nil)
	render(t, engine, FrameTick{})

	if engine.Frames().Presented != 2 {
		t.Fatalf("rendering not resumed")
	}

	if w, h := engine.Depth.Size(); w != 128 || h != 96 {
		t.Errorf("depth surface is %dx%d", w, h)
	}

	want := gfx.Viewport{Width: 128, Height: 96, MinDepth: 0, MaxDepth: 1}
	if vp := engine.State.Viewport(); vp != want {
		t.Errorf("viewport is %+v", vp)
	}
}

func TestMinimizedWindowSkipsFrames(t *testing.T) {
	useDriver(t)

	win := soft.NewWindow(64, 64)
	engine := newTestEngine(t, win, engineOptions(TriangleScene()))

	render(t, engine, FrameTick{})

	stats := engine.Context.Recorder.(gfx.StatisticsReader)
	before := stats.PipelineStatistics()

	win.SetClientSize(0, 0)
	if err := engine.Resize(0, 0); err != nil {
		t.Fatalf("zero sized resize failed: %s", err)
	}

	for range 3 {
		render(t, engine, FrameTick{Elapsed: 1})
	}

	if !engine.Minimized() {
		t.Error("engine not minimized")
	}

	if engine.Frames().Skipped != 3 || engine.Frames().Presented != 1 || chainOf(engine).Presents() != 1 {
		t.Errorf("skipped %d, presented %d", engine.Frames().Skipped, engine.Frames().Presented)
	}

	if after := stats.PipelineStatistics(); after != before {
		t.Errorf("draws while minimized: %+v", after)
	}

	// restored at the old size, nothing to rebuild
	win.SetClientSize(64, 64)
	if err := engine.Resize(64, 64); err != nil {
		t.Fatal(err)
	}

	render(t, engine, FrameTick{Elapsed: 1})

	if engine.Frames().Presented != 2 {
		t.Errorf("rendering not resumed")
	}
}

func TestDeviceLostRebuilds(t *testing.T) {
	drv := useDriver(t)

	win := soft.NewWindow(64, 64)
	engine := newTestEngine(t, win, engineOptions(CubeScene()))

	tick := FrameTick{Elapsed: 0.7}

	render(t, engine, tick)
	before := presentedPixel(t, engine, 32, 32)

	lost := deviceOf(engine)
	lost.Remove(errors.New("driver updated"))

	// the frame is lost, the engine is rebuilt on a new device
	render(t, engine, tick)

	if engine.Rebuilds != 1 || drv.Opened() != 2 {
		t.Fatalf("rebuilds %d, opened %d devices", engine.Rebuilds, drv.Opened())
	}

	if !lost.Released() || len(lost.LiveObjects()) != 0 {
		t.Errorf("lost device not released: %v", lost.LiveObjects())
	}

	render(t, engine, tick)

	if after := presentedPixel(t, engine, 32, 32); after != before {
		t.Errorf("rebuilt engine draws %v, drew %v before", after, before)
	}
}

func TestDeviceLostRetriesOnce(t *testing.T) {
	drv := useDriver(t)

	engine := newTestEngine(t, soft.NewWindow(64, 64), engineOptions(TriangleScene()))
	render(t, engine, FrameTick{})

	deviceOf(engine).Remove(nil)
	drv.FailOpen = errors.New("adapter gone")

	// the first failed rebuild is retried with the next frame
	if err := engine.Render(FrameTick{}); err != nil {
		t.Fatalf("first failure is fatal: %s", err)
	}

	drv.FailOpen = nil

	render(t, engine, FrameTick{})

	if engine.Rebuilds != 1 || engine.Context == nil {
		t.Fatalf("engine not rebuilt")
	}

	// the rebuild happens before the frame is drawn
	if engine.Frames().Presented != 2 {
		t.Errorf("presented %d frames", engine.Frames().Presented)
	}
}

func TestDeviceLostGivesUp(t *testing.T) {
	drv := useDriver(t)

	engine := newTestEngine(t, soft.NewWindow(64, 64), engineOptions(TriangleScene()))
	render(t, engine, FrameTick{})

	deviceOf(engine).Remove(nil)
	drv.FailOpen = errors.New("adapter gone")

	if err := engine.Render(FrameTick{}); err != nil {
		t.Fatalf("first failure is fatal: %s", err)
	}

	err := engine.Render(FrameTick{})
	if !errors.Is(err, pulse.ErrDeviceLost) {
		t.Fatalf("expected a fatal device loss, got %v", err)
	}

	if ExitCode(err) != 2 {
		t.Errorf("exit code %d", ExitCode(err))
	}
}

func TestSetupFailureReleasesEverything(t *testing.T) {
	broken := TriangleScene()
	broken.Fragment = pulse.ShaderSource{Name: "broken.hlsl", HLSL: brokenFragmentShader}

	outOfRange := TriangleScene()
	outOfRange.Indices = []uint32{0, 1, 5}

	cases := []struct {
		name     string
		width    uint32
		scene    Scene
		debug    bool
		failOpen bool
		wantErr  error
	}{
		{name: "device", width: 64, scene: TriangleScene(), failOpen: true, wantErr: pulse.ErrNoDeviceAvailable},
		{name: "surface", width: 0, scene: TriangleScene(), wantErr: pulse.ErrZeroSizedWindow},
		{name: "program", width: 64, scene: broken, wantErr: pulse.ErrShaderCompile},
		{name: "geometry", width: 64, scene: outOfRange, debug: true, wantErr: pulse.ErrIndexOutOfRange},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			drv := useDriver(t)
			if tc.failOpen {
				drv.FailOpen = errors.New("no adapter")
			}

			opts := engineOptions(tc.scene)
			opts.Device.Debug = tc.debug

			engine, err := NewEngine(soft.NewWindow(tc.width, 64), opts)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}

			if engine != nil {
				t.Error("engine returned on failure")
			}

			if ExitCode(errors.Join(ErrSetup, err)) != 1 {
				t.Error("setup failure does not map to exit code 1")
			}

			dev := drv.Last()
			if tc.failOpen {
				if dev != nil {
					t.Error("device opened")
				}

				return
			}

			if !dev.Released() {
				t.Error("device not released")
			}

			if live := dev.LiveObjects(); !maps.Equal(live, map[string]int{}) {
				t.Errorf("leaked objects: %v", live)
			}
		})
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	drv := useDriver(t)

	engine, err := NewEngine(soft.NewWindow(64, 64), engineOptions(CubeScene()))
	if err != nil {
		t.Fatal(err)
	}

	engine.Release()
	engine.Release()

	if engine.Context != nil || engine.Surface != nil || engine.Geometry != nil {
		t.Error("released engine keeps resources")
	}

	if live := drv.Last().LiveObjects(); len(live) != 0 {
		t.Errorf("leaked objects: %v", live)
	}

	var nilEngine *Engine
	nilEngine.Release()
}

func TestPausedFrameKeepsTransforms(t *testing.T) {
	useDriver(t)

	engine := newTestEngine(t, soft.NewWindow(64, 64), engineOptions(CubeScene()))

	render(t, engine, FrameTick{Elapsed: 1})

	block := engine.Frames().Transforms()
	before := presentedPixel(t, engine, 32, 32)

	render(t, engine, FrameTick{Elapsed: 2, Paused: true})

	if engine.Frames().Transforms() != block {
		t.Error("paused frame changed the transforms")
	}

	if engine.Constants.Writes() != 1 {
		t.Errorf("paused frame wrote the constants, %d writes", engine.Constants.Writes())
	}

	if engine.Frames().Presented != 2 {
		t.Error("paused frame not presented")
	}

	if after := presentedPixel(t, engine, 32, 32); after != before {
		t.Errorf("paused frame draws %v, drew %v before", after, before)
	}
}

func TestPausedFrameAfterRebuild(t *testing.T) {
	useDriver(t)

	engine := newTestEngine(t, soft.NewWindow(64, 64), engineOptions(CubeScene()))

	render(t, engine, FrameTick{Elapsed: 1})
	block := engine.Frames().Transforms()

	deviceOf(engine).Remove(nil)

	render(t, engine, FrameTick{Elapsed: 1, Paused: true})
	render(t, engine, FrameTick{Elapsed: 1, Paused: true})

	if engine.Rebuilds != 1 {
		t.Fatalf("engine not rebuilt")
	}

	if engine.Constants.Writes() != 1 || engine.Constants.Last() != block {
		t.Error("rebuilt constant store does not hold the last transforms")
	}
}

func TestReloadProgram(t *testing.T) {
	useDriver(t)

	engine := newTestEngine(t, soft.NewWindow(64, 64), engineOptions(TriangleScene()))
	initial := engine.Programs.Current()

	broken := pulse.ShaderSource{Name: "broken.hlsl", HLSL: brokenFragmentShader}
	if err := engine.ReloadProgram(assets.ColorShader, broken); !errors.Is(err, pulse.ErrShaderCompile) {
		t.Fatalf("expected a compile error, got %v", err)
	}

	if err := engine.ReloadProgram(assets.ColorShader, assets.ColorShader); err != nil {
		t.Fatal(err)
	}

	if engine.Programs.Current() != initial {
		t.Fatal("program swapped outside of a frame boundary")
	}

	render(t, engine, FrameTick{})

	if engine.Programs.Current() == initial {
		t.Error("program not swapped after the frame")
	}
}

func TestSetTopology(t *testing.T) {
	useDriver(t)

	scene := TriangleScene()
	scene.Vertices = assets.QuadVertices
	scene.Indices = assets.QuadIndices
	scene.Topology = gfx.PointList

	engine := newTestEngine(t, soft.NewWindow(64, 64), engineOptions(scene))
	stats := engine.Context.Recorder.(gfx.StatisticsReader)

	cases := []struct {
		topology   gfx.Topology
		primitives uint64
	}{
		{gfx.PointList, 4},
		{gfx.LineList, 2},
		{gfx.LineStrip, 3},
		{gfx.TriangleList, 1},
		{gfx.TriangleStrip, 2},
	}

	for _, tc := range cases {
		t.Run(tc.topology.String(), func(t *testing.T) {
			engine.Frames().SetTopology(tc.topology)
			stats.ResetPipelineStatistics()

			render(t, engine, FrameTick{})

			if got := stats.PipelineStatistics().IAPrimitives; got != tc.primitives {
				t.Errorf("assembled %d primitives, want %d", got, tc.primitives)
			}
		})
	}
}
