package pulse_test

import (
	"errors"
	"testing"

	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/prism/gfx/soft"
	"github.com/oliverbestmann/prism/pulse"
)

func cleanEnv(t *testing.T) {
	t.Setenv("PRISM_DRIVER", "")
	t.Setenv("PRISM_DEBUG", "")
	t.Setenv("PRISM_FORCE_SOFTWARE", "")
}

func TestOpen(t *testing.T) {
	cleanEnv(t)

	cases := []struct {
		name         string
		driver       soft.Driver
		opts         pulse.OpenOptions
		wantTier     gfx.FeatureLevel
		wantSoftware bool
		wantDebug    bool
	}{
		{
			name:     "hardware",
			wantTier: gfx.FeatureLevel11_1,
		},
		{
			name:         "no hardware adapter",
			driver:       soft.Driver{FailHardware: true},
			wantTier:     gfx.FeatureLevel11_1,
			wantSoftware: true,
		},
		{
			name:         "force software",
			opts:         pulse.OpenOptions{ForceSoftware: true},
			wantTier:     gfx.FeatureLevel11_1,
			wantSoftware: true,
		},
		{
			name:      "debug",
			opts:      pulse.OpenOptions{Debug: true},
			wantTier:  gfx.FeatureLevel11_1,
			wantDebug: true,
		},
		{
			name:     "debug layer missing",
			driver:   soft.Driver{NoDebugLayer: true},
			opts:     pulse.OpenOptions{Debug: true},
			wantTier: gfx.FeatureLevel11_1,
		},
		{
			name:     "older adapter",
			driver:   soft.Driver{MaxFeatureLevel: gfx.FeatureLevel10_0},
			wantTier: gfx.FeatureLevel10_0,
		},
		{
			name:     "custom preference",
			opts:     pulse.OpenOptions{FeatureLevels: []gfx.FeatureLevel{gfx.FeatureLevel10_1, gfx.FeatureLevel9_3}},
			wantTier: gfx.FeatureLevel10_1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			drv := &soft.Driver{
				FailHardware:    tc.driver.FailHardware,
				NoDebugLayer:    tc.driver.NoDebugLayer,
				MaxFeatureLevel: tc.driver.MaxFeatureLevel,
			}

			useDriver(t, drv)

			ctx := openContext(t, tc.opts)

			if ctx.Tier != tc.wantTier || ctx.FeatureLevel() != tc.wantTier {
				t.Errorf("tier is %s, want %s", ctx.Tier, tc.wantTier)
			}

			if got := ctx.AdapterInfo().Software; got != tc.wantSoftware {
				t.Errorf("software adapter is %v, want %v", got, tc.wantSoftware)
			}

			if got := ctx.Debug(); got != tc.wantDebug {
				t.Errorf("debug is %v, want %v", got, tc.wantDebug)
			}

			if ctx.Driver != soft.DriverName {
				t.Errorf("driver is %q", ctx.Driver)
			}

			if ctx.Recorder == nil {
				t.Error("context has no recorder")
			}
		})
	}
}

func TestOpenFailure(t *testing.T) {
	cleanEnv(t)

	cases := []struct {
		name   string
		driver *soft.Driver
		opts   pulse.OpenOptions
	}{
		{
			name:   "driver fails",
			driver: &soft.Driver{FailOpen: errors.New("adapter enumeration failed")},
		},
		{
			name:   "unknown driver",
			driver: &soft.Driver{},
			opts:   pulse.OpenOptions{Driver: "vulkan"},
		},
		{
			name:   "no acceptable tier",
			driver: &soft.Driver{MaxFeatureLevel: gfx.FeatureLevel10_0},
			opts:   pulse.OpenOptions{FeatureLevels: []gfx.FeatureLevel{gfx.FeatureLevel11_1, gfx.FeatureLevel11_0}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			useDriver(t, tc.driver)

			opts := tc.opts
			if opts.Driver == "" {
				opts.Driver = soft.DriverName
			}

			ctx, err := pulse.Open(opts)
			if err == nil {
				ctx.Release()
				t.Fatal("open succeeded")
			}

			if !errors.Is(err, pulse.ErrNoDeviceAvailable) {
				t.Errorf("unexpected error %v", err)
			}

			var pErr *pulse.Error
			if !errors.As(err, &pErr) || pErr.Component != "device" || pErr.Op != "open" {
				t.Errorf("error %v does not name the device component", err)
			}

			if pulse.Recoverable(err) {
				t.Error("setup failure reported as recoverable")
			}
		})
	}
}

func TestOpenFailsOnSoftwareRetry(t *testing.T) {
	cleanEnv(t)

	// the retry on the software adapter fails as well
	useDriver(t, &soft.Driver{FailHardware: true, MaxFeatureLevel: gfx.FeatureLevel9_3})

	_, err := pulse.Open(pulse.OpenOptions{
		Driver:        soft.DriverName,
		FeatureLevels: []gfx.FeatureLevel{gfx.FeatureLevel11_0},
	})

	if !errors.Is(err, pulse.ErrNoDeviceAvailable) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestOpenEnvironment(t *testing.T) {
	cleanEnv(t)

	drv := &soft.Driver{}
	useDriver(t, drv)

	t.Setenv("PRISM_DRIVER", soft.DriverName)
	t.Setenv("PRISM_DEBUG", "1")
	t.Setenv("PRISM_FORCE_SOFTWARE", "1")

	ctx, err := pulse.Open(pulse.OpenOptions{})
	if err != nil {
		t.Fatal(err)
	}

	defer ctx.Release()

	if !ctx.Debug() || !ctx.AdapterInfo().Software || ctx.Driver != soft.DriverName {
		t.Errorf("environment not applied: debug=%v, software=%v, driver=%s",
			ctx.Debug(), ctx.AdapterInfo().Software, ctx.Driver)
	}
}

func TestOpenCreatesFreshDevice(t *testing.T) {
	cleanEnv(t)

	drv := &soft.Driver{}
	useDriver(t, drv)

	first := openContext(t, pulse.OpenOptions{})
	second := openContext(t, pulse.OpenOptions{})

	if first.Device == second.Device {
		t.Error("both contexts share a device")
	}

	if drv.Opened() != 2 {
		t.Errorf("driver opened %d devices, want 2", drv.Opened())
	}
}

func TestContextRelease(t *testing.T) {
	cleanEnv(t)

	ctx, err := pulse.Open(pulse.OpenOptions{Driver: soft.DriverName})
	if err != nil {
		t.Fatal(err)
	}

	dev := softDevice(ctx)

	ctx.Release()
	ctx.Release()

	if !dev.Released() {
		t.Error("device was not released")
	}

	var nilContext *pulse.Context
	nilContext.Release()
}

func TestLogMessages(t *testing.T) {
	cleanEnv(t)

	ctx := openContext(t, pulse.OpenOptions{Debug: true})

	buf, err := ctx.CreateBuffer(gfx.BufferDesc{
		ByteWidth: 16,
		Usage:     gfx.UsageImmutable,
		Bind:      gfx.BindVertexBuffer,
	}, make([]byte, 16))

	if err != nil {
		t.Fatal(err)
	}

	defer buf.Release()

	if _, err := ctx.Recorder.Map(buf); !errors.Is(err, gfx.ErrInvalidCall) {
		t.Fatalf("map of immutable buffer returned %v", err)
	}

	if n := ctx.LogMessages(); n != 1 {
		t.Errorf("logged %d messages, want 1", n)
	}

	if n := ctx.LogMessages(); n != 0 {
		t.Errorf("messages were not cleared, logged %d again", n)
	}
}
