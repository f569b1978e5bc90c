package d3d11

import (
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/oliverbestmann/prism/gfx"
	"golang.org/x/sys/windows"
)

func init() {
	gfx.Register(&Driver{})
}

type Driver struct{}

func (drv *Driver) Name() string {
	return DriverName
}

// Open creates a device on the hardware adapter, or on WARP for software
// requests.
func (drv *Driver) Open(opts gfx.OpenOptions) (gfx.Device, error) {
	if err := d3d11DLL.Load(); err != nil {
		return nil, fmt.Errorf("load d3d11.dll: %w: %w", gfx.ErrUnsupported, err)
	}

	driverType := uint32(driverTypeHardware)
	if opts.Type == gfx.DriverSoftware {
		driverType = driverTypeWARP
	}

	var flags uint32
	if opts.Debug {
		flags |= createDeviceDebug
	}

	levels := opts.FeatureLevels
	if len(levels) == 0 {
		levels = gfx.DefaultFeatureLevels
	}

	device, ctx, level, err := createDevice(driverType, flags, levels)

	// runtimes before 11.1 reject the whole list if it contains 11.1
	var code errorCode
	if errors.As(err, &code) && code.Code == eInvalidArg && levels[0] == gfx.FeatureLevel11_1 && len(levels) > 1 {
		device, ctx, level, err = createDevice(driverType, flags, levels[1:])
	}

	switch {
	case err == nil:

	case opts.Debug && errors.As(err, &code) && code.Code == dxgiErrorSDKMissing:
		return nil, fmt.Errorf("create %s device: %w: %w", opts.Type, gfx.ErrDebugLayerUnavailable, err)

	case opts.Type == gfx.DriverHardware:
		return nil, fmt.Errorf("create %s device: %w: %w", opts.Type, gfx.ErrNoHardwareAdapter, err)

	default:
		return nil, fmt.Errorf("create %s device: %w", opts.Type, err)
	}

	dev := &Device{
		device: device,
		ctx:    ctx,
		level:  gfx.FeatureLevel(level),
		debug:  opts.Debug,
	}

	if err := dev.init(opts.Type == gfx.DriverSoftware); err != nil {
		dev.Release()
		return nil, err
	}

	slog.Info("Direct3D 11 device opened",
		slog.String("adapter", dev.info.Description),
		slog.String("type", opts.Type.String()),
		slog.String("featureLevel", dev.level.String()),
		slog.Bool("debug", opts.Debug),
	)

	return dev, nil
}

func createDevice(driverType, flags uint32, levels []gfx.FeatureLevel) (*iD3D11Device, *iD3D11DeviceContext, uint32, error) {
	var (
		device *iD3D11Device
		ctx    *iD3D11DeviceContext
		level  uint32
	)

	r, _, _ := procD3D11CreateDevice.Call(
		0,                                   // pAdapter
		uintptr(driverType),                 // DriverType
		0,                                   // Software
		uintptr(flags),                      // Flags
		uintptr(unsafe.Pointer(&levels[0])), // pFeatureLevels
		uintptr(len(levels)),                // FeatureLevels
		sdkVersion,                          // SDKVersion
		uintptr(unsafe.Pointer(&device)),    // ppDevice
		uintptr(unsafe.Pointer(&level)),     // pFeatureLevel
		uintptr(unsafe.Pointer(&ctx)),       // ppImmediateContext
	)

	if err := hresult("D3D11CreateDevice", r); err != nil {
		return nil, nil, 0, err
	}

	return device, ctx, level, nil
}

// adapterInfo reads the description of the adapter the device runs on.
func adapterInfo(device *iD3D11Device) (gfx.AdapterInfo, *iDXGIAdapter, error) {
	ptr, err := queryInterface(unsafe.Pointer(device), &iidIDXGIDevice)
	if err != nil {
		return gfx.AdapterInfo{}, nil, err
	}

	dxgiDevice := (*iDXGIDevice)(ptr)
	defer release(ptr)

	adapter, err := dxgiDevice.GetAdapter()
	if err != nil {
		return gfx.AdapterInfo{}, nil, err
	}

	desc, err := adapter.GetDesc()
	if err != nil {
		release(unsafe.Pointer(adapter))
		return gfx.AdapterInfo{}, nil, err
	}

	info := gfx.AdapterInfo{
		Description:     windows.UTF16ToString(desc.Description[:]),
		VendorID:        desc.VendorID,
		DeviceID:        desc.DeviceID,
		DedicatedMemory: uint64(desc.DedicatedVideoMemory),
	}

	return info, adapter, nil
}
