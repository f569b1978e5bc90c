package glimpse

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/oliverbestmann/webgpu/wgpu"
	"github.com/oliverbestmann/webgpu/wgpuglfw"
	"github.com/pkg/profile"
)

func init() {
	// glfw must be called from the main thread
	runtime.LockOSThread()
}

type glfwWindow struct {
	win   *glfw.Window
	prof  interface{ Stop() }
	input InputState
}

func NewWindow(width, height int, title string) (Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("initialize glfw: %w", err)
	}

	// the window has no client api, the swap chain is created by the backend
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	window, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}

	w := &glfwWindow{
		win:  window,
		prof: startProfile(os.Getenv("PRISM_PROFILE")),
	}

	configureInput(window, &w.input)

	slog.Info("Window created",
		slog.Int("width", width),
		slog.Int("height", height),
		slog.String("title", title),
	)

	return w, nil
}

func (g *glfwWindow) NativeHandle() uintptr {
	return nativeHandle(g.win)
}

func (g *glfwWindow) ClientSize() (uint32, uint32) {
	// the framebuffer size is in pixels, the window size is not on high dpi screens
	width, height := g.win.GetFramebufferSize()
	return uint32(max(width, 0)), uint32(max(height, 0))
}

func (g *glfwWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(g.win)
}

func (g *glfwWindow) PollEvents() InputState {
	g.input.nextTick()
	glfw.PollEvents()
	return g.input
}

func (g *glfwWindow) ShouldClose() bool {
	return g.win.ShouldClose()
}

func (g *glfwWindow) Close() {
	g.win.SetShouldClose(true)
}

func (g *glfwWindow) Terminate() {
	g.prof.Stop()
	g.win.Destroy()
	glfw.Terminate()
}

type noProfile struct{}

func (noProfile) Stop() {}

// startProfile starts the profiler selected by mode, "cpu" or "mem".
func startProfile(mode string) interface{ Stop() } {
	switch mode {
	case "cpu":
		return profile.Start(profile.CPUProfile, profile.NoShutdownHook)
	case "mem":
		return profile.Start(profile.MemProfile, profile.NoShutdownHook)
	case "":
		return noProfile{}
	default:
		slog.Warn("Unknown profile mode", slog.String("mode", mode))
		return noProfile{}
	}
}

func configureInput(window *glfw.Window, input *InputState) {
	window.SetKeyCallback(func(_win *glfw.Window, glfwKey glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action == glfw.Repeat {
			return
		}

		key, ok := keyOf(glfwKey)
		if !ok {
			return
		}

		switch action {
		case glfw.Press:
			input.Keys.press(key)

		case glfw.Release:
			input.Keys.release(key)
		}
	})

	window.SetMouseButtonCallback(func(_win *glfw.Window, btn glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		button := MouseButton(btn)

		switch action {
		case glfw.Press:
			input.Mouse.press(button)
		case glfw.Release:
			input.Mouse.release(button)
		}
	})

	window.SetCursorPosCallback(func(_win *glfw.Window, xpos float64, ypos float64) {
		input.Mouse.position(float32(xpos), float32(ypos))
	})
}

func keyOf(glfwKey glfw.Key) (key Key, ok bool) {
	key, ok = glfwToKey[glfwKey]
	if !ok {
		slog.Debug(
			"Unknown key code",
			slog.String("key", glfw.GetKeyName(glfwKey, 0)),
		)
	}

	return
}

var glfwToKey = map[glfw.Key]Key{
	glfw.KeySpace:  KeySpace,
	glfw.KeyEscape: KeyEscape,
	glfw.KeyEnter:  KeyEnter,
	glfw.KeyP:      KeyP,
	glfw.KeyR:      KeyR,
	glfw.KeyT:      KeyT,
	glfw.KeyW:      KeyW,
	glfw.KeyLeft:   KeyLeft,
	glfw.KeyRight:  KeyRight,
	glfw.KeyUp:     KeyUp,
	glfw.KeyDown:   KeyDown,
}
