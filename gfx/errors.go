package gfx

import (
	"errors"
	"strings"
)

// ErrNoHardwareAdapter means that no hardware adapter supports any of the
// requested feature levels.
var ErrNoHardwareAdapter = errors.New("gfx: no hardware adapter")

// ErrDebugLayerUnavailable means that the validation layer was requested
// but is not installed.
var ErrDebugLayerUnavailable = errors.New("gfx: debug layer unavailable")

// ErrDeviceRemoved means that the device was removed or reset. All objects
// created by the device are invalid and must be released.
var ErrDeviceRemoved = errors.New("gfx: device removed")

// ErrInvalidCall means that a call was rejected because its arguments or the
// current state of an object do not allow it.
var ErrInvalidCall = errors.New("gfx: invalid call")

// ErrUnsupported means that the device does not support the requested
// feature or format.
var ErrUnsupported = errors.New("gfx: unsupported")

// ErrCompile means that a shader failed to compile. Errors matching
// ErrCompile are of type *CompileError.
var ErrCompile = errors.New("gfx: shader compilation failed")

// ErrOutOfMemory means that a resource could not be allocated.
var ErrOutOfMemory = errors.New("gfx: out of memory")

// CompileError carries the diagnostic text of the shader compiler verbatim.
type CompileError struct {
	Name string
	Log  string
}

func (e *CompileError) Error() string {
	return strings.TrimRight(e.Log, "\n")
}

func (e *CompileError) Is(target error) bool {
	return target == ErrCompile
}
