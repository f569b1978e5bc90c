package pulse

// Releaser is implemented by everything holding GPU resources.
type Releaser interface {
	Release()
}

// ReleaseGuard releases its delegate unless Keep was called. Use it to
// roll back a partially built object on error paths.
type ReleaseGuard struct {
	delegate Releaser
}

func NewReleaseGuard(delegate Releaser) ReleaseGuard {
	return ReleaseGuard{delegate: delegate}
}

func (r *ReleaseGuard) Keep() {
	r.delegate = nil
}

func (r *ReleaseGuard) Release() {
	if r.delegate != nil {
		r.delegate.Release()
		r.delegate = nil
	}
}
