package pulse

import (
	"errors"
	"strings"

	"github.com/oliverbestmann/prism/gfx"
)

// Error kinds. Use errors.Is to test the kind of an *Error.
var (
	ErrNoDeviceAvailable = errors.New("no device available")
	ErrSwapChainCreation = errors.New("swap chain creation failed")
	ErrResourceCreation  = errors.New("resource creation failed")
	ErrShaderCompile     = errors.New("shader compile error")
	ErrBufferUpload      = errors.New("buffer upload failed")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrZeroSizedWindow   = errors.New("zero sized window")
	ErrResizeRefused     = errors.New("resize refused")
	ErrDeviceLost        = errors.New("device lost")
)

// Error is returned by the setup, resize and present operations of this
// package. It names the component and operation that failed and carries
// the diagnostic text of the driver or the shader compiler, if any.
type Error struct {
	Kind      error
	Component string
	Op        string

	// Diagnostic is the text reported by the driver, e.g. the output
	// of the shader compiler.
	Diagnostic string

	// Err is the underlying error, might be nil.
	Err error
}

func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(e.Component)
	sb.WriteString(" ")
	sb.WriteString(e.Op)
	sb.WriteString(": ")
	sb.WriteString(e.Kind.Error())

	switch {
	case e.Diagnostic != "":
		sb.WriteString(": ")
		sb.WriteString(e.Diagnostic)

	case e.Err != nil:
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}

	return sb.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

// Recoverable reports whether the frame loop can continue after the error.
// Resize failures are recoverable, setup failures and device loss are not.
func Recoverable(err error) bool {
	return errors.Is(err, ErrZeroSizedWindow) || errors.Is(err, ErrResizeRefused)
}

func newError(kind error, component, op string, err error) *Error {
	e := &Error{Kind: kind, Component: component, Op: op, Err: err}

	// keep the compiler output verbatim
	var compileErr *gfx.CompileError
	if errors.As(err, &compileErr) {
		e.Diagnostic = compileErr.Log
	}

	return e
}
