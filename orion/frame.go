package orion

import (
	"log/slog"
	"time"

	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/prism/pulse"
)

// FrameTick is passed to the frame controller once per frame.
type FrameTick struct {
	// Elapsed is the scene time in seconds. It does not advance while paused.
	Elapsed float64
	Paused  bool
}

// Clock produces frame ticks from the wall clock.
type Clock struct {
	start   time.Time
	elapsed time.Duration
	last    time.Time
	paused  bool

	now func() time.Time
}

func NewClock() *Clock {
	return newClockAt(time.Now)
}

func newClockAt(now func() time.Time) *Clock {
	t := now()
	return &Clock{start: t, last: t, now: now}
}

// SetPaused stops or resumes the scene time.
func (c *Clock) SetPaused(paused bool) {
	c.paused = paused
}

func (c *Clock) Paused() bool {
	return c.paused
}

// Tick advances the clock and returns the tick for the next frame.
func (c *Clock) Tick() FrameTick {
	now := c.now()

	if !c.paused {
		c.elapsed += now.Sub(c.last)
	}

	c.last = now

	return FrameTick{Elapsed: c.elapsed.Seconds(), Paused: c.paused}
}

// FrameController draws the scene of an engine, one frame per call to Render.
type FrameController struct {
	engine *Engine

	// transforms of the last frame that was not paused
	block    pulse.TransformBlock
	hasBlock bool

	topology gfx.Topology

	// Presented counts presented frames, Skipped frames that were not drawn
	// because the window had no client area or a resize failed.
	Presented uint64
	Skipped   uint64

	// Messages counts the validation messages logged after presenting.
	Messages uint64
}

func newFrameController(engine *Engine) *FrameController {
	return &FrameController{
		engine:   engine,
		topology: engine.scene.Topology,
	}
}

// Skip counts a frame that was not drawn.
func (fc *FrameController) Skip() {
	fc.Skipped++
}

// SetTopology changes the topology used for the next draws.
func (fc *FrameController) SetTopology(topology gfx.Topology) {
	slog.Info("Topology changed", slog.String("topology", topology.String()))
	fc.topology = topology
}

func (fc *FrameController) Topology() gfx.Topology {
	return fc.topology
}

// Transforms returns the transforms used by the last frame.
func (fc *FrameController) Transforms() pulse.TransformBlock {
	return fc.block
}

// Render draws and presents a single frame. Nothing is drawn or presented
// while the window is minimised or the size dependent resources could not
// be rebuilt after a failed resize.
func (fc *FrameController) Render(tick FrameTick) error {
	e := fc.engine
	scene := &e.scene

	if e.minimized {
		fc.Skipped++
		return nil
	}

	if ok, err := e.restoreSize(); err != nil || !ok {
		if !ok {
			fc.Skipped++
		}

		return err
	}

	rec := e.Context.Recorder
	width, height := e.Surface.Size()

	if !tick.Paused || !fc.hasBlock {
		fc.block = scene.Transforms(tick.Elapsed, width, height)
		fc.hasBlock = true

		if err := e.Constants.Write(rec, fc.block); err != nil {
			return err
		}
	} else if e.Constants.Writes() == 0 {
		// the store was rebuilt while paused, restore the last frame
		if err := e.Constants.Write(rec, fc.block); err != nil {
			return err
		}
	}

	e.Surface.BeginFrame()

	target := e.Surface.CurrentTarget()
	e.Depth.CheckSize(target.Width, target.Height)

	rec.SetRenderTargets(target.View, e.Depth.View())
	target.Clear(rec, scene.ClearColor)
	e.Depth.Clear(rec)

	e.Geometry.Bind(rec)
	rec.SetPrimitiveTopology(fc.topology)
	e.Programs.Current().Bind(rec)
	e.Constants.Bind(rec)
	e.State.Bind(rec)

	rec.DrawIndexed(e.Geometry.Indices.Count, 0, 0)

	e.Surface.EndFrame()

	if err := e.Surface.Present(e.vsync); err != nil {
		return err
	}

	fc.Presented++
	fc.Messages += uint64(e.Context.LogMessages())

	// swap a reloaded program at the frame boundary
	e.Programs.Apply()

	return nil
}
