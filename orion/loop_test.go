package orion

import (
	"errors"
	"testing"
	"time"

	"github.com/oliverbestmann/prism/glimpse"
)

func newTestLoop(t *testing.T, host *testHost, update func(f *Frame) error) *Loop {
	t.Helper()

	engine := newTestEngine(t, host, engineOptions(TriangleScene()))
	return NewLoop(host, engine, update)
}

func TestLoopRunsUntilClosed(t *testing.T) {
	useDriver(t)

	host := newTestHost(64, 64)
	host.closeAfter = 5

	var updates int

	loop := newTestLoop(t, host, func(f *Frame) error {
		updates++
		return nil
	})

	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}

	if updates != 5 || loop.Engine.Frames().Presented != 5 {
		t.Errorf("%d updates, %d frames presented", updates, loop.Engine.Frames().Presented)
	}

	if loop.Times.FrameCount != 5 {
		t.Errorf("frame times counted %d frames", loop.Times.FrameCount)
	}
}

func TestLoopEscapeCloses(t *testing.T) {
	useDriver(t)

	host := newTestHost(64, 64)
	loop := newTestLoop(t, host, nil)

	if err := loop.Step(); err != nil {
		t.Fatal(err)
	}

	host.Press(glimpse.KeyEscape)

	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}

	// the frame in which escape was pressed is still drawn
	if loop.Engine.Frames().Presented != 2 {
		t.Errorf("presented %d frames", loop.Engine.Frames().Presented)
	}
}

func TestLoopSkipsFrameAfterRefusedResize(t *testing.T) {
	useDriver(t)

	host := newTestHost(64, 64)
	loop := newTestLoop(t, host, nil)

	if err := loop.Step(); err != nil {
		t.Fatal(err)
	}

	// an outstanding view of the back buffer blocks the resize
	back, err := loop.Engine.Surface.Chain().Buffer(0)
	if err != nil {
		t.Fatal(err)
	}

	extra, err := loop.Engine.Context.CreateRenderTargetView(back)
	if err != nil {
		t.Fatal(err)
	}

	host.SetClientSize(128, 96)

	if err := loop.Step(); err != nil {
		t.Fatalf("refused resize is fatal: %s", err)
	}

	frames := loop.Engine.Frames()
	if frames.Presented != 1 || frames.Skipped != 1 {
		t.Errorf("presented %d, skipped %d", frames.Presented, frames.Skipped)
	}

	extra.Release()

	// rendering continues at the previous size
	if err := loop.Step(); err != nil {
		t.Fatal(err)
	}

	if frames.Presented != 2 {
		t.Errorf("presented %d frames", frames.Presented)
	}

	if w, h := loop.Engine.Surface.Size(); w != 64 || h != 64 {
		t.Errorf("surface is %dx%d", w, h)
	}
}

func TestLoopPauseKey(t *testing.T) {
	useDriver(t)

	host := newTestHost(64, 64)
	loop := newTestLoop(t, host, nil)

	host.Press(glimpse.KeyP)

	if err := loop.Step(); err != nil {
		t.Fatal(err)
	}

	if !loop.Clock.Paused() {
		t.Fatal("clock not paused")
	}

	host.Press(glimpse.KeyP)

	if err := loop.Step(); err != nil {
		t.Fatal(err)
	}

	if loop.Clock.Paused() {
		t.Error("clock not resumed")
	}
}

func TestLoopFollowsWindowSize(t *testing.T) {
	useDriver(t)

	host := newTestHost(64, 64)
	loop := newTestLoop(t, host, nil)

	host.SetClientSize(96, 48)

	if err := loop.Step(); err != nil {
		t.Fatal(err)
	}

	if w, h := loop.Engine.Surface.Size(); w != 96 || h != 48 {
		t.Errorf("surface is %dx%d", w, h)
	}

	// minimizing suspends rendering without an error
	host.SetClientSize(0, 0)

	if err := loop.Step(); err != nil {
		t.Fatal(err)
	}

	if !loop.Engine.Minimized() || loop.Engine.Frames().Skipped != 1 {
		t.Error("frame drawn into a minimized window")
	}
}

func TestLoopUpdateError(t *testing.T) {
	useDriver(t)

	errQuit := errors.New("quit")

	host := newTestHost(64, 64)
	loop := newTestLoop(t, host, func(f *Frame) error {
		return errQuit
	})

	if err := loop.Run(); !errors.Is(err, errQuit) {
		t.Fatalf("expected the update error, got %v", err)
	}

	if loop.Engine.Frames().Presented != 0 {
		t.Error("frame drawn after the update failed")
	}
}

func TestLoopUpdateCanClose(t *testing.T) {
	useDriver(t)

	host := newTestHost(64, 64)
	loop := newTestLoop(t, host, func(f *Frame) error {
		f.Engine.SetClearColor(f.Engine.Scene().ClearColor.WithAlpha(1))
		f.Close()
		return nil
	})

	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}

	if host.polls != 1 {
		t.Errorf("loop polled %d times", host.polls)
	}
}

func TestClock(t *testing.T) {
	now := time.Unix(1000, 0)
	clock := newClockAt(func() time.Time { return now })

	now = now.Add(500 * time.Millisecond)

	if tick := clock.Tick(); tick.Elapsed != 0.5 || tick.Paused {
		t.Errorf("unexpected tick %+v", tick)
	}

	clock.SetPaused(true)
	now = now.Add(2 * time.Second)

	if tick := clock.Tick(); tick.Elapsed != 0.5 || !tick.Paused {
		t.Errorf("paused clock advanced: %+v", tick)
	}

	clock.SetPaused(false)
	now = now.Add(250 * time.Millisecond)

	if tick := clock.Tick(); tick.Elapsed != 0.75 {
		t.Errorf("resumed clock counts the pause: %+v", tick)
	}
}

func TestFrameTimes(t *testing.T) {
	var times FrameTimes

	now := time.Unix(0, 0)

	var reports int
	for range 120 {
		if times.tickAt(now) {
			reports++
		}

		now = now.Add(20 * time.Millisecond)
	}

	if reports != 2 {
		t.Errorf("reported %d times", reports)
	}

	if times.Delta != 20*time.Millisecond || times.MaxDuration != 20*time.Millisecond {
		t.Errorf("unexpected times %+v", times)
	}

	if fps := times.FPS(); fps < 49.9 || fps > 50.1 {
		t.Errorf("fps is %v", fps)
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errors.Join(ErrSetup, errors.New("no device")), 1},
		{errors.New("render frame: boom"), 2},
	}

	for _, tc := range cases {
		if got := ExitCode(tc.err); got != tc.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestFrameInput(t *testing.T) {
	var input glimpse.InputState
	input.Press(glimpse.KeySpace)
	input.Press(glimpse.KeyP)
	input.NextTick()
	input.Release(glimpse.KeyP)
	input.Press(glimpse.KeyEscape)

	input.Mouse.CursorX = 12
	input.Mouse.CursorY = 34

	f := &Frame{Input: input}

	if !f.IsKeyPressed(glimpse.KeySpace) || f.IsKeyJustPressed(glimpse.KeySpace) {
		t.Error("space should be held but not just pressed")
	}

	if !f.IsKeyJustReleased(glimpse.KeyP) || f.IsKeyPressed(glimpse.KeyP) {
		t.Error("p should be just released")
	}

	if !f.IsKeyJustPressed(glimpse.KeyEscape) {
		t.Error("escape should be just pressed")
	}

	if f.IsMouseButtonPressed(0) || f.IsMouseButtonJustPressed(0) || f.IsMouseButtonJustReleased(0) {
		t.Error("no mouse button was pressed")
	}

	if pos := f.MousePosition(); pos[0] != 12 || pos[1] != 34 {
		t.Errorf("mouse position is %v", pos)
	}
}
