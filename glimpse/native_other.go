//go:build !windows

package glimpse

import "github.com/go-gl/glfw/v3.3/glfw"

// there is no Direct3D on this platform, backends use the surface descriptor
func nativeHandle(*glfw.Window) uintptr {
	return 0
}
