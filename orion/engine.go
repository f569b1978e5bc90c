package orion

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/prism/pulse"
)

// maxReacquireFailures is the number of consecutive failed attempts to
// rebuild after a device loss before giving up.
const maxReacquireFailures = 2

type EngineOptions struct {
	Device pulse.OpenOptions
	State  pulse.StateOptions
	Scene  Scene

	// NoVSync presents without waiting for the vertical refresh.
	NoVSync bool
}

// Engine owns every GPU resource needed to draw a Scene into a window.
// Resources are acquired in dependency order and released in reverse.
type Engine struct {
	win   gfx.Window
	opts  EngineOptions
	scene Scene
	vsync bool

	Context   *pulse.Context
	Surface   *pulse.Surface
	Depth     *pulse.DepthSurface
	Programs  *pulse.ProgramSlot
	Geometry  *pulse.Geometry
	Constants *pulse.ConstantStore
	State     *pulse.FixedFunctionState

	frames *FrameController

	// the window has no client area
	minimized bool

	// a failed resize left the back buffer without a matching view or depth
	// surface, frames are skipped until both are rebuilt
	stale bool

	// the device was lost and is not yet rebuilt
	lost     bool
	failures int

	// number of rebuilds after a device loss
	Rebuilds int
}

// NewEngine acquires all resources for the window. On failure everything
// acquired so far is released again and the error is returned.
func NewEngine(win gfx.Window, opts EngineOptions) (*Engine, error) {
	e := &Engine{
		win:   win,
		opts:  opts,
		scene: opts.Scene.withDefaults(),
		vsync: !opts.NoVSync,
	}

	if err := e.acquire(); err != nil {
		slog.Error("Engine setup failed",
			slog.String("component", "lifecycle"),
			slog.String("op", "acquire"),
			slog.Any("err", err),
		)

		return nil, err
	}

	e.frames = newFrameController(e)

	return e, nil
}

func (e *Engine) acquire() (err error) {
	defer func() {
		if err != nil {
			e.Release()
		}
	}()

	width, height := e.win.ClientSize()

	e.Context, err = pulse.Open(e.opts.Device)
	if err != nil {
		return err
	}

	e.Surface, err = pulse.BindSurface(e.Context, e.win, width, height)
	if err != nil {
		return err
	}

	e.Depth, err = pulse.NewDepthSurface(e.Context, width, height)
	if err != nil {
		return err
	}

	program, err := pulse.CompileProgram(e.Context, e.scene.Vertex, e.scene.Fragment, e.scene.Entries, e.scene.Layout)
	if err != nil {
		return err
	}

	e.Programs = pulse.NewProgramSlot(program)

	e.Geometry, err = pulse.UploadMesh(e.Context, e.scene.Vertices, e.scene.Indices)
	if err != nil {
		return err
	}

	e.Constants, err = pulse.NewConstantStore(e.Context)
	if err != nil {
		return err
	}

	e.State, err = pulse.NewFixedFunctionState(e.Context, e.opts.State, width, height)
	if err != nil {
		return err
	}

	e.minimized = false
	e.stale = false

	slog.Info("Engine ready",
		slog.String("scene", e.scene.Name),
		slog.Int("width", int(width)),
		slog.Int("height", int(height)),
		slog.Int("indices", int(e.Geometry.Indices.Count)),
	)

	return nil
}

// Release releases all resources in reverse order of acquisition. It only
// touches what was acquired and is safe to call multiple times.
func (e *Engine) Release() {
	if e == nil {
		return
	}

	if e.Context != nil && e.Context.Recorder != nil {
		e.Context.Recorder.ClearState()
		e.Context.Recorder.Flush()
	}

	e.State.Release()
	e.State = nil

	e.Constants.Release()
	e.Constants = nil

	e.Geometry.Release()
	e.Geometry = nil

	e.Programs.Release()
	e.Programs = nil

	e.Depth.Release()
	e.Depth = nil

	e.Surface.Release()
	e.Surface = nil

	e.Context.Release()
	e.Context = nil
}

// Frames returns the frame controller of the engine.
func (e *Engine) Frames() *FrameController {
	return e.frames
}

func (e *Engine) Scene() Scene {
	return e.scene
}

// SetClearColor changes the color the back buffer is cleared to.
func (e *Engine) SetClearColor(color pulse.Color) {
	e.scene.ClearColor = color
}

// Minimized reports whether rendering is suspended because the window
// has no client area.
func (e *Engine) Minimized() bool {
	return e.minimized
}

// Resize adapts the engine to a new client size. A zero size suspends
// rendering until the next resize to a non zero size. Resize failures
// are recoverable. Rendering continues at the previous size, or is skipped
// until the engine managed to rebuild the size dependent resources.
func (e *Engine) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		if !e.minimized {
			slog.Debug("Window minimized, rendering suspended")
		}

		e.minimized = true
		return nil
	}

	e.minimized = false

	if e.lost {
		// the rebuild picks up the new size
		return nil
	}

	if w, h := e.Surface.Size(); w == width && h == height && !e.stale {
		return nil
	}

	rec := e.Context.Recorder
	rec.ClearState()
	rec.Flush()

	e.Surface.ReleaseView()
	e.Depth.Release()

	if err := e.Surface.Resize(width, height); err != nil {
		if errors.Is(err, pulse.ErrDeviceLost) {
			// rebuilt with the next frame
			e.deviceLost("resize", err)
			return nil
		}

		// keep depth and viewport in sync with what the chain still has
		w, h := e.Surface.Size()

		if depthErr := e.Depth.Resize(w, h); depthErr != nil {
			err = errors.Join(err, depthErr)
		}

		e.State.Resize(w, h)
		e.stale = e.Surface.View() == nil || e.Depth.View() == nil

		slog.Warn("Resize failed",
			slog.String("component", "lifecycle"),
			slog.String("op", "resize"),
			slog.Any("err", err),
		)

		return err
	}

	e.State.Resize(width, height)

	if err := e.Depth.Resize(width, height); err != nil {
		e.stale = true

		slog.Warn("Resize failed",
			slog.String("component", "lifecycle"),
			slog.String("op", "resize"),
			slog.Any("err", err),
		)

		return err
	}

	e.stale = false

	slog.Info("Resized",
		slog.Int("width", int(width)),
		slog.Int("height", int(height)),
	)

	return nil
}

// restoreSize rebuilds the view and depth surface after a failed resize at
// the current size of the back buffer. It reports whether the frame can be
// drawn. Only a lost device is returned as an error.
func (e *Engine) restoreSize() (bool, error) {
	if !e.stale {
		return true, nil
	}

	width, height := e.Surface.Size()

	err := e.Surface.Resize(width, height)
	if err == nil {
		err = e.Depth.Resize(width, height)
	}

	if err != nil {
		if errors.Is(err, pulse.ErrDeviceLost) {
			return false, err
		}

		return false, nil
	}

	e.State.Resize(width, height)
	e.stale = false

	slog.Info("Size dependent resources restored",
		slog.Int("width", int(width)),
		slog.Int("height", int(height)),
	)

	return true, nil
}

// ReloadProgram compiles a new program and swaps it in after the next
// presented frame. On failure the current program stays in use.
func (e *Engine) ReloadProgram(vertex, fragment pulse.ShaderSource) error {
	program, err := pulse.CompileProgram(e.Context, vertex, fragment, e.scene.Entries, e.scene.Layout)
	if err != nil {
		slog.Warn("Shader reload failed",
			slog.String("component", "shader"),
			slog.String("op", "reload"),
			slog.Any("err", err),
		)

		return err
	}

	e.scene.Vertex = vertex
	e.scene.Fragment = fragment
	e.Programs.Queue(program)

	return nil
}

// Render renders one frame. A lost device is rebuilt from scratch. The
// returned error is fatal.
func (e *Engine) Render(tick FrameTick) error {
	if e.lost {
		if err := e.reacquire(); err != nil || e.lost {
			return err
		}
	}

	err := e.frames.Render(tick)

	switch {
	case err == nil:
		return nil

	case errors.Is(err, pulse.ErrDeviceLost):
		e.deviceLost("present", err)
		return e.reacquire()

	default:
		return fmt.Errorf("render frame: %w", err)
	}
}

// deviceLost tears down everything but the window.
func (e *Engine) deviceLost(op string, err error) {
	slog.Warn("Device lost, rebuilding",
		slog.String("component", "lifecycle"),
		slog.String("op", op),
		slog.Any("err", err),
	)

	e.Release()
	e.lost = true
}

// reacquire runs the acquisition sequence again. The first failure is
// retried on the next frame, the second one is fatal.
func (e *Engine) reacquire() error {
	if e.minimized {
		return nil
	}

	if err := e.acquire(); err != nil {
		e.failures++

		if e.failures >= maxReacquireFailures {
			return fmt.Errorf("rebuild after device loss failed %d times: %w: %w",
				e.failures, pulse.ErrDeviceLost, err)
		}

		slog.Warn("Rebuild after device loss failed, retry with next frame",
			slog.String("component", "lifecycle"),
			slog.String("op", "reacquire"),
			slog.Int("attempt", e.failures),
			slog.Any("err", err),
		)

		return nil
	}

	e.lost = false
	e.failures = 0
	e.Rebuilds++

	return nil
}
