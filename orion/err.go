package orion

import "errors"

// ErrSetup marks errors that occurred before the first frame was drawn.
var ErrSetup = errors.New("setup failed")

// ExitCode maps the result of Run to a process exit code: 0 after an
// orderly shutdown, 1 if setup failed and 2 for fatal errors at runtime.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrSetup):
		return 1
	default:
		return 2
	}
}
