package pulse

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/oliverbestmann/prism/gfx"
)

type OpenOptions struct {
	// Driver is the name of a registered gfx driver. Defaults to
	// PRISM_DRIVER, then d3d11 or wgpu if registered, then the first
	// registered driver.
	Driver string

	// Debug requests the validation layer. Also enabled by PRISM_DEBUG=1.
	Debug bool

	// ForceSoftware skips the hardware adapter. Also enabled by
	// PRISM_FORCE_SOFTWARE=1.
	ForceSoftware bool

	// FeatureLevels in order of preference, defaults to 11.1 down to 9.3.
	FeatureLevels []gfx.FeatureLevel

	// number of compiled shaders to keep around, defaults to 64
	ShaderCacheSize int
}

func (opts OpenOptions) withDefaults() OpenOptions {
	if opts.Driver == "" {
		opts.Driver = os.Getenv("PRISM_DRIVER")
	}

	if os.Getenv("PRISM_DEBUG") == "1" {
		opts.Debug = true
	}

	if os.Getenv("PRISM_FORCE_SOFTWARE") == "1" {
		opts.ForceSoftware = true
	}

	if len(opts.FeatureLevels) == 0 {
		opts.FeatureLevels = gfx.DefaultFeatureLevels
	}

	if opts.ShaderCacheSize == 0 {
		opts.ShaderCacheSize = 64
	}

	return opts
}

// Context encapsulates the device, its immediate command recorder and the
// negotiated capability tier.
type Context struct {
	gfx.Device

	Recorder gfx.Context
	Tier     gfx.FeatureLevel

	// name of the driver that opened the device
	Driver string

	shaders *ShaderCache
	states  *stateCache
}

// Open opens a fresh device. If no hardware adapter is available, it retries
// exactly once on the software adapter of the same driver. A missing debug
// layer is not an error, the device is opened without validation instead.
func Open(opts OpenOptions) (*Context, error) {
	opts = opts.withDefaults()

	drv, err := lookupDriver(opts.Driver)
	if err != nil {
		return nil, newError(ErrNoDeviceAvailable, "device", "open", err)
	}

	req := gfx.OpenOptions{
		Type:          gfx.DriverHardware,
		Debug:         opts.Debug,
		FeatureLevels: opts.FeatureLevels,
	}

	if opts.ForceSoftware {
		req.Type = gfx.DriverSoftware
	}

	dev, err := openDevice(drv, req)

	if req.Type == gfx.DriverHardware && errors.Is(err, gfx.ErrNoHardwareAdapter) {
		slog.Warn("No hardware adapter available, retry with software adapter",
			slog.String("component", "device"),
			slog.String("op", "open"),
			slog.String("driver", drv.Name()),
			slog.Any("err", err),
		)

		req.Type = gfx.DriverSoftware
		dev, err = openDevice(drv, req)
	}

	if err != nil {
		return nil, newError(ErrNoDeviceAvailable, "device", "open", err)
	}

	if !slices.Contains(opts.FeatureLevels, dev.FeatureLevel()) {
		dev.Release()

		err := fmt.Errorf("driver returned feature level %s which was not requested", dev.FeatureLevel())
		return nil, newError(ErrNoDeviceAvailable, "device", "open", err)
	}

	shaders, err := NewShaderCache(opts.ShaderCacheSize)
	if err != nil {
		dev.Release()
		return nil, newError(ErrNoDeviceAvailable, "device", "open", err)
	}

	ctx := &Context{
		Device:   dev,
		Recorder: dev.ImmediateContext(),
		Tier:     dev.FeatureLevel(),
		Driver:   drv.Name(),
		shaders:  shaders,
		states:   newStateCache(),
	}

	info := dev.AdapterInfo()

	slog.Info("Device opened",
		slog.String("driver", ctx.Driver),
		slog.String("adapter", info.Description),
		slog.String("type", req.Type.String()),
		slog.String("tier", ctx.Tier.String()),
		slog.Bool("debug", dev.Debug()),
	)

	return ctx, nil
}

func lookupDriver(name string) (gfx.Driver, error) {
	if name != "" {
		drv, ok := gfx.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("driver %q is not registered", name)
		}

		return drv, nil
	}

	drivers := gfx.Drivers()
	if len(drivers) == 0 {
		return nil, errors.New("no driver registered")
	}

	// prefer a hardware api over whatever was registered first
	for _, name := range preferredDrivers {
		if drv, ok := gfx.Lookup(name); ok {
			return drv, nil
		}
	}

	return drivers[0], nil
}

var preferredDrivers = []string{"d3d11", "wgpu"}

func openDevice(drv gfx.Driver, req gfx.OpenOptions) (gfx.Device, error) {
	dev, err := drv.Open(req)

	if req.Debug && errors.Is(err, gfx.ErrDebugLayerUnavailable) {
		slog.Warn("Debug layer not available, continue without validation",
			slog.String("component", "device"),
			slog.String("op", "open"),
			slog.String("driver", drv.Name()),
			slog.Any("err", err),
		)

		req.Debug = false
		dev, err = drv.Open(req)
	}

	if err != nil {
		return nil, fmt.Errorf("open %s device on %s: %w", req.Type, drv.Name(), err)
	}

	return dev, nil
}

// Shaders returns the cache of compiled shaders of this device.
func (ctx *Context) Shaders() *ShaderCache {
	return ctx.shaders
}

// LogMessages forwards the messages of the validation layer to slog and
// returns the number of messages that were logged.
func (ctx *Context) LogMessages() int {
	queue, ok := ctx.Device.(gfx.InfoQueue)
	if !ok {
		return 0
	}

	messages := queue.Messages()
	queue.ClearMessages()

	for _, msg := range messages {
		slog.Warn("Driver message",
			slog.String("component", "driver"),
			slog.String("severity", msg.Severity.String()),
			slog.String("id", msg.ID),
			slog.String("text", msg.Text),
		)
	}

	return len(messages)
}

// Release releases the cached objects and the device. It is safe to call
// Release multiple times or on a nil Context.
func (ctx *Context) Release() {
	if ctx == nil || ctx.Device == nil {
		return
	}

	if ctx.Recorder != nil {
		ctx.Recorder.ClearState()
		ctx.Recorder.Flush()
		ctx.Recorder = nil
	}

	ctx.states.Purge()
	ctx.shaders.Purge()

	ctx.Device.Release()
	ctx.Device = nil
}
