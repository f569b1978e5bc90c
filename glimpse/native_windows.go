package glimpse

import (
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func nativeHandle(win *glfw.Window) uintptr {
	return uintptr(unsafe.Pointer(win.GetWin32Window()))
}
