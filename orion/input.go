package orion

import (
	"github.com/oliverbestmann/prism/glimpse"
	"github.com/oliverbestmann/prism/glm"
)

type KeyCode = glimpse.Key
type MouseButton = glimpse.MouseButton

// MousePosition returns the cursor position in window coordinates.
func (f *Frame) MousePosition() glm.Vec2f {
	return glm.Vec2f{
		f.Input.Mouse.CursorX,
		f.Input.Mouse.CursorY,
	}
}

func (f *Frame) IsKeyPressed(key KeyCode) bool {
	return f.Input.Keys.Pressed[key]
}

// IsKeyJustPressed reports whether the key went down since the last frame.
func (f *Frame) IsKeyJustPressed(key KeyCode) bool {
	return f.Input.Keys.JustPressed[key]
}

func (f *Frame) IsKeyJustReleased(key KeyCode) bool {
	return f.Input.Keys.JustReleased[key]
}

func (f *Frame) IsMouseButtonPressed(button MouseButton) bool {
	return f.Input.Mouse.Pressed[button]
}

func (f *Frame) IsMouseButtonJustPressed(button MouseButton) bool {
	return f.Input.Mouse.JustPressed[button]
}

func (f *Frame) IsMouseButtonJustReleased(button MouseButton) bool {
	return f.Input.Mouse.JustReleased[button]
}
