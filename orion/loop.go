package orion

import (
	"fmt"
	"log/slog"

	"github.com/oliverbestmann/prism/glimpse"
	"github.com/oliverbestmann/prism/pulse"
)

// Host is the window a Loop renders into.
type Host interface {
	NativeHandle() uintptr
	ClientSize() (uint32, uint32)

	PollEvents() glimpse.InputState
	ShouldClose() bool
	Close()
}

// Frame is passed to the update function once per frame, before the frame
// is rendered.
type Frame struct {
	Engine *Engine
	Input  glimpse.InputState
	Clock  *Clock

	host Host
}

// Close ends the loop after the current frame.
func (f *Frame) Close() {
	f.host.Close()
}

type Loop struct {
	Host   Host
	Engine *Engine
	Clock  *Clock

	// Update is called before every frame. A returned error ends the loop.
	Update func(f *Frame) error

	Times FrameTimes

	width, height uint32
}

func NewLoop(host Host, engine *Engine, update func(f *Frame) error) *Loop {
	width, height := host.ClientSize()

	return &Loop{
		Host:   host,
		Engine: engine,
		Clock:  NewClock(),
		Update: update,
		width:  width,
		height: height,
	}
}

// Run renders frames until the host window is closed or a fatal error
// occurs. Shutdown only happens between frames.
func (l *Loop) Run() error {
	for !l.Host.ShouldClose() {
		if err := l.Step(); err != nil {
			return err
		}
	}

	slog.Info("Window closed, shutting down",
		slog.Uint64("frames", l.Times.FrameCount),
		slog.Uint64("rebuilds", uint64(l.Engine.Rebuilds)),
	)

	return nil
}

// Step runs a single iteration of the loop.
func (l *Loop) Step() error {
	frame := &Frame{
		Engine: l.Engine,
		Input:  l.Host.PollEvents(),
		Clock:  l.Clock,
		host:   l.Host,
	}

	l.handleKeys(frame)

	resized, err := l.resize()
	if err != nil {
		return err
	}

	if l.Update != nil {
		if err := l.Update(frame); err != nil {
			return fmt.Errorf("update frame: %w", err)
		}
	}

	if !resized {
		// the engine is still at the previous size
		l.Engine.Frames().Skip()
		return nil
	}

	if err := l.Engine.Render(l.Clock.Tick()); err != nil {
		return err
	}

	if l.Times.Tick() {
		slog.Debug("Frame statistics",
			slog.Float64("fps", l.Times.FPS()),
			slog.Duration("avg", l.Times.AverageDuration),
			slog.Duration("max", l.Times.MaxDuration),
		)
	}

	return nil
}

func (l *Loop) handleKeys(f *Frame) {
	if f.IsKeyJustPressed(glimpse.KeyEscape) {
		l.Host.Close()
	}

	if f.IsKeyJustPressed(glimpse.KeyP) {
		paused := !l.Clock.Paused()
		l.Clock.SetPaused(paused)

		slog.Info("Animation paused", slog.Bool("paused", paused))
	}
}

// resize forwards changes of the client size to the engine. It reports
// false if the engine refused the new size. Refused resizes are logged by
// the engine and the current frame is not rendered.
func (l *Loop) resize() (bool, error) {
	width, height := l.Host.ClientSize()
	if width == l.width && height == l.height {
		return true, nil
	}

	l.width, l.height = width, height

	if err := l.Engine.Resize(width, height); err != nil {
		if pulse.Recoverable(err) {
			return false, nil
		}

		return false, fmt.Errorf("resize: %w", err)
	}

	return true, nil
}
