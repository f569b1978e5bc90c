// Package soft implements the gfx interfaces in pure Go.
//
// The device rasterizes on the CPU and runs shaders through the hlsl
// interpreter. It stands in for the WARP adapter on hosts without
// Direct3D and is the device all tests render with. Besides rendering it
// offers hooks to inspect and break things: pipeline statistics, a
// validation layer, live object accounting and fault injection.
package soft

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oliverbestmann/prism/gfx"
)

const DriverName = "soft"

func init() {
	gfx.Register(&Driver{})
}

// Driver opens software devices. The zero value is ready to use and
// accepts both hardware and software requests.
type Driver struct {
	// FailHardware rejects requests for a hardware adapter with
	// gfx.ErrNoHardwareAdapter, as on a machine without a GPU.
	FailHardware bool

	// NoDebugLayer rejects requests for the validation layer with
	// gfx.ErrDebugLayerUnavailable.
	NoDebugLayer bool

	// FailOpen makes every Open fail with the given error.
	FailOpen error

	// MaxFeatureLevel is the highest level the device supports.
	// Defaults to 11.1.
	MaxFeatureLevel gfx.FeatureLevel

	// RefreshRate of the simulated display in hertz. Defaults to 60.
	RefreshRate float64

	opened atomic.Int64

	mu   sync.Mutex
	last *Device
}

// Opened returns the number of devices created by this driver.
func (drv *Driver) Opened() int {
	return int(drv.opened.Load())
}

// Last returns the device opened most recently, or nil.
func (drv *Driver) Last() *Device {
	drv.mu.Lock()
	defer drv.mu.Unlock()

	return drv.last
}

func (drv *Driver) Name() string {
	return DriverName
}

func (drv *Driver) Open(opts gfx.OpenOptions) (gfx.Device, error) {
	dev, err := drv.OpenDevice(opts)
	if err != nil {
		return nil, err
	}

	return dev, nil
}

// OpenDevice is like Open but returns the concrete device type.
func (drv *Driver) OpenDevice(opts gfx.OpenOptions) (*Device, error) {
	if drv.FailOpen != nil {
		return nil, drv.FailOpen
	}

	if opts.Type == gfx.DriverHardware && drv.FailHardware {
		return nil, fmt.Errorf("open %s device: %w", opts.Type, gfx.ErrNoHardwareAdapter)
	}

	if opts.Debug && drv.NoDebugLayer {
		return nil, fmt.Errorf("open %s device: %w", opts.Type, gfx.ErrDebugLayerUnavailable)
	}

	maxLevel := drv.MaxFeatureLevel
	if maxLevel == 0 {
		maxLevel = gfx.FeatureLevel11_1
	}

	level, ok := gfx.SelectFeatureLevel(opts.FeatureLevels, maxLevel)
	if !ok {
		return nil, fmt.Errorf("open %s device: no supported feature level: %w", opts.Type, gfx.ErrUnsupported)
	}

	refresh := drv.RefreshRate
	if refresh <= 0 {
		refresh = 60
	}

	dev := &Device{
		level:   level,
		debug:   opts.Debug,
		refresh: time.Duration(float64(time.Second) / refresh),
		epoch:   time.Now(),
		live:    map[string]int{},
		adapter: gfx.AdapterInfo{
			Description:     "Prism Software Rasterizer",
			VendorID:        0x1414,
			DeviceID:        0x8c,
			DedicatedMemory: 0,
			Software:        opts.Type == gfx.DriverSoftware,
		},
	}

	dev.ctx = newContext(dev)

	drv.opened.Add(1)

	drv.mu.Lock()
	drv.last = dev
	drv.mu.Unlock()

	slog.Debug("Software device opened",
		slog.String("type", opts.Type.String()),
		slog.String("featureLevel", level.String()),
		slog.Bool("debug", opts.Debug),
	)

	return dev, nil
}
