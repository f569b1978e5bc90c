// Package gfx is the boundary between the rendering core and a GPU API.
//
// It mirrors the shape of Direct3D 11: a Device creates resources and
// state objects, a Context records commands against them, and a SwapChain
// rotates the back buffers of a window. Backends live in sub packages
// and register themselves with Register from an init function.
package gfx

import (
	"log/slog"
	"sync"
)

// Driver opens devices of one GPU API.
type Driver interface {
	// Name returns the name of the driver, e.g. "d3d11".
	// It must not cause the driver to be opened.
	Name() string

	// Open creates a new device. Every call creates a fresh device,
	// nothing is cached between calls.
	Open(opts OpenOptions) (Device, error)
}

// DriverType selects the kind of adapter a device is opened on.
type DriverType uint8

const (
	// DriverHardware requests a hardware accelerated adapter.
	DriverHardware DriverType = iota

	// DriverSoftware requests the software rasterizer
	// (WARP on Direct3D, the fallback adapter on WebGPU).
	DriverSoftware
)

func (t DriverType) String() string {
	switch t {
	case DriverHardware:
		return "hardware"
	case DriverSoftware:
		return "software"
	default:
		return "unknown"
	}
}

type OpenOptions struct {
	Type DriverType

	// Debug requests the validation layer of the driver. Drivers that
	// cannot provide it fail with ErrDebugLayerUnavailable.
	Debug bool

	// FeatureLevels lists the acceptable capability tiers in order of
	// preference. Defaults to DefaultFeatureLevels if empty.
	FeatureLevels []FeatureLevel
}

// Drivers returns the registered drivers in registration order.
func Drivers() []Driver {
	mu.Lock()
	defer mu.Unlock()

	drv := make([]Driver, len(drivers))
	copy(drv, drivers)
	return drv
}

// Lookup returns the registered driver with the given name.
func Lookup(name string) (Driver, bool) {
	mu.Lock()
	defer mu.Unlock()

	for _, drv := range drivers {
		if drv.Name() == name {
			return drv, true
		}
	}

	return nil, false
}

// Register registers a driver. If a driver with the same name has already
// been registered, it is replaced by drv.
func Register(drv Driver) {
	mu.Lock()
	defer mu.Unlock()

	for idx := range drivers {
		if drivers[idx].Name() == drv.Name() {
			drivers[idx] = drv
			slog.Debug("Driver replaced", slog.String("driver", drv.Name()))
			return
		}
	}

	drivers = append(drivers, drv)
}

var (
	mu      sync.Mutex
	drivers []Driver
)
