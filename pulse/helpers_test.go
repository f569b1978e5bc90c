package pulse_test

import (
	"testing"

	"github.com/oliverbestmann/prism/assets"
	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/prism/gfx/soft"
	"github.com/oliverbestmann/prism/glm"
	"github.com/oliverbestmann/prism/pulse"
)

// useDriver registers drv in place of the default software driver for the
// duration of the test.
func useDriver(t *testing.T, drv *soft.Driver) {
	t.Helper()

	gfx.Register(drv)
	t.Cleanup(func() { gfx.Register(&soft.Driver{}) })
}

func openContext(t *testing.T, opts pulse.OpenOptions) *pulse.Context {
	t.Helper()

	if opts.Driver == "" {
		opts.Driver = soft.DriverName
	}

	ctx, err := pulse.Open(opts)
	if err != nil {
		t.Fatalf("open device: %s", err)
	}

	t.Cleanup(ctx.Release)

	return ctx
}

func softDevice(ctx *pulse.Context) *soft.Device {
	return ctx.Device.(*soft.Device)
}

func softChain(surface *pulse.Surface) *soft.SwapChain {
	return surface.Chain().(*soft.SwapChain)
}

func statistics(ctx *pulse.Context) gfx.PipelineStatistics {
	return ctx.Recorder.(gfx.StatisticsReader).PipelineStatistics()
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()

	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", name)
		}
	}()

	fn()
}

// pipeline holds everything needed to draw a mesh into a window.
type pipeline struct {
	ctx       *pulse.Context
	win       *soft.Window
	surface   *pulse.Surface
	depth     *pulse.DepthSurface
	program   *pulse.ShaderProgram
	constants *pulse.ConstantStore
	state     *pulse.FixedFunctionState
}

func newPipeline(t *testing.T, ctx *pulse.Context, width, height uint32, cull gfx.CullMode) *pipeline {
	t.Helper()

	p := &pipeline{ctx: ctx, win: soft.NewWindow(width, height)}
	t.Cleanup(p.release)

	var err error

	p.surface, err = pulse.BindSurface(ctx, p.win, width, height)
	if err != nil {
		t.Fatal(err)
	}

	p.depth, err = pulse.NewDepthSurface(ctx, width, height)
	if err != nil {
		t.Fatal(err)
	}

	p.program, err = pulse.CompileProgram(ctx, assets.ColorShader, assets.ColorShader, pulse.EntryPoints{}, pulse.VertexLayout)
	if err != nil {
		t.Fatal(err)
	}

	p.constants, err = pulse.NewConstantStore(ctx)
	if err != nil {
		t.Fatal(err)
	}

	p.state, err = pulse.NewFixedFunctionState(ctx, pulse.StateOptions{Cull: cull}, width, height)
	if err != nil {
		t.Fatal(err)
	}

	return p
}

// camera returns the transforms of a camera at (0, 0, -3) looking at the origin.
func (p *pipeline) camera(world glm.Mat4f) pulse.TransformBlock {
	width, height := p.surface.Size()

	return pulse.TransformBlock{
		World: world,
		View: glm.LookAtLH(
			glm.Vec3f{0, 0, -3},
			glm.Vec3f{0, 0, 0},
			glm.Vec3f{0, 1, 0},
		),
		Projection: glm.PerspectiveFovLH[float32](glm.Rad(0.25*3.14159265), float32(width)/float32(height), 0.1, 100),
	}
}

// draw renders one frame of the geometry without presenting it.
func (p *pipeline) draw(t *testing.T, geometry *pulse.Geometry, topology gfx.Topology, block pulse.TransformBlock) {
	t.Helper()

	rec := p.ctx.Recorder

	p.surface.BeginFrame()
	defer p.surface.EndFrame()

	target := p.surface.CurrentTarget()
	p.depth.CheckSize(target.Width, target.Height)

	rec.SetRenderTargets(target.View, p.depth.View())
	target.Clear(rec, pulse.ColorLinearRGBA(0, 0, 0, 1))
	p.depth.Clear(rec)

	p.state.Bind(rec)
	p.program.Bind(rec)

	if err := p.constants.Write(rec, block); err != nil {
		t.Fatal(err)
	}

	p.constants.Bind(rec)
	geometry.Bind(rec)

	rec.SetPrimitiveTopology(topology)
	rec.DrawIndexed(geometry.Indices.Count, 0, 0)
}

func (p *pipeline) pixel(x, y int) [4]float32 {
	return softChain(p.surface).BackBuffer().Pixel(x, y)
}

func (p *pipeline) release() {
	p.state.Release()
	p.constants.Release()
	p.program.Release()
	p.depth.Release()
	p.surface.Release()
}

func approxColor(got [4]float32, want [4]float32, eps float32) bool {
	for idx := range got {
		if d := got[idx] - want[idx]; d > eps || d < -eps {
			return false
		}
	}

	return true
}
