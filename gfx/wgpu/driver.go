// Package wgpu implements the gfx interfaces on top of WebGPU.
//
// WebGPU records commands into passes while gfx mirrors an immediate
// context. The Context of this package keeps the bound state and encodes
// one render pass per draw call, folding pending clears into the load
// operations of the pass.
package wgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/webgpu/wgpu"
)

const DriverName = "wgpu"

func init() {
	switch strings.ToUpper(os.Getenv("WGPU_LOG_LEVEL")) {
	case "OFF":
		wgpu.SetLogLevel(wgpu.LogLevelOff)
	case "ERROR":
		wgpu.SetLogLevel(wgpu.LogLevelError)
	case "WARN":
		wgpu.SetLogLevel(wgpu.LogLevelWarn)
	case "INFO":
		wgpu.SetLogLevel(wgpu.LogLevelInfo)
	case "DEBUG":
		wgpu.SetLogLevel(wgpu.LogLevelDebug)
	case "TRACE":
		wgpu.SetLogLevel(wgpu.LogLevelTrace)
	}

	gfx.Register(&Driver{})
}

// WebGPU offers roughly the capabilities of Direct3D 11.0.
const maxFeatureLevel = gfx.FeatureLevel11_0

type Driver struct{}

func (drv *Driver) Name() string {
	return DriverName
}

// Open requests an adapter and a device. A software request asks for the
// fallback adapter of the WebGPU implementation.
func (drv *Driver) Open(opts gfx.OpenOptions) (dev gfx.Device, err error) {
	level, ok := gfx.SelectFeatureLevel(opts.FeatureLevels, maxFeatureLevel)
	if !ok {
		return nil, fmt.Errorf("open %s device: no supported feature level: %w", opts.Type, gfx.ErrUnsupported)
	}

	d := &Device{level: level, debug: opts.Debug}

	defer func() {
		if err != nil {
			d.Release()
		}
	}()

	if opts.Debug {
		// wgpu always validates, debug only makes the messages visible
		wgpu.SetLogLevel(wgpu.LogLevelWarn)
	}

	d.instance = wgpu.CreateInstance(nil)

	d.adapter, err = d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: opts.Type == gfx.DriverSoftware,
		PowerPreference:      wgpu.PowerPreferenceHighPerformance,
	})

	if err != nil {
		if opts.Type == gfx.DriverHardware {
			return nil, fmt.Errorf("request adapter: %w: %w", gfx.ErrNoHardwareAdapter, err)
		}

		return nil, fmt.Errorf("request fallback adapter: %w", err)
	}

	info := d.adapter.GetInfo()

	d.info = gfx.AdapterInfo{
		Description: adapterName(info),
		VendorID:    info.VendorId,
		DeviceID:    info.DeviceId,
		Software:    info.AdapterType == wgpu.AdapterTypeCPU,
	}

	if opts.Type == gfx.DriverHardware && d.info.Software {
		return nil, fmt.Errorf("adapter %q is a software adapter: %w", d.info.Description, gfx.ErrNoHardwareAdapter)
	}

	d.device, err = d.adapter.RequestDevice(nil)
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}

	d.queue = d.device.GetQueue()

	d.pipelines, err = newPipelineCache(d.device)
	if err != nil {
		return nil, err
	}

	d.ctx = &Context{dev: d}

	slog.Info("WebGPU device opened",
		slog.String("adapter", d.info.Description),
		slog.Any("backend", info.BackendType),
		slog.String("featureLevel", level.String()),
	)

	return d, nil
}

var errReleased = errors.New("object was released")

// adapterName prefers the device name and falls back to the description
// for drivers that leave the name empty.
func adapterName(info wgpu.AdapterInfo) string {
	if info.Device != "" {
		return info.Device
	}

	return info.Description
}
