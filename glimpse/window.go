// Package glimpse provides the host window the renderer draws into.
package glimpse

import "github.com/oliverbestmann/webgpu/wgpu"

type Window interface {
	// NativeHandle returns the platform handle of the window, a HWND on
	// windows and zero on platforms without a native Direct3D backend.
	NativeHandle() uintptr

	// ClientSize returns the size of the drawable area in pixels. It is
	// zero while the window is minimized.
	ClientSize() (uint32, uint32)

	// SurfaceDescriptor describes the window to a WebGPU instance.
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// PollEvents processes pending window events and returns the input
	// state for the next frame.
	PollEvents() InputState

	ShouldClose() bool

	// Close asks the window to close. ShouldClose reports true afterwards.
	Close()

	Terminate()
}
