package d3d11

import (
	"errors"
	"testing"

	"github.com/oliverbestmann/prism/assets"
	"github.com/oliverbestmann/prism/gfx"
)

func openWARP(t *testing.T, debug bool) *Device {
	t.Helper()

	dev, err := (&Driver{}).Open(gfx.OpenOptions{Type: gfx.DriverSoftware, Debug: debug})
	if errors.Is(err, gfx.ErrDebugLayerUnavailable) {
		t.Skip("debug layer not installed")
	}

	if err != nil {
		t.Fatalf("open WARP device: %s", err)
	}

	t.Cleanup(dev.Release)

	return dev.(*Device)
}

func TestOpenWARP(t *testing.T) {
	dev := openWARP(t, false)

	if !dev.AdapterInfo().Software {
		t.Error("WARP device not reported as software")
	}

	if dev.FeatureLevel() < gfx.FeatureLevel10_0 {
		t.Errorf("unexpected feature level %s", dev.FeatureLevel())
	}
}

func TestCompileColorShader(t *testing.T) {
	dev := openWARP(t, false)

	vs, err := dev.CompileShader([]byte(assets.ColorShader.HLSL), assets.ColorShader.Name, "VS", "vs_4_0")
	if err != nil {
		t.Fatal(err)
	}

	shader, err := dev.CreateVertexShader(vs)
	if err != nil {
		t.Fatal(err)
	}

	shader.Release()

	_, err = dev.CompileShader([]byte("float4 VS() : SV_Position { return x; }"), "broken.hlsl", "VS", "vs_4_0")

	var compileErr *gfx.CompileError
	if !errors.As(err, &compileErr) || compileErr.Log == "" {
		t.Fatalf("expected compile error, got %v", err)
	}
}

func TestDynamicBufferRoundTrip(t *testing.T) {
	dev := openWARP(t, false)

	buf, err := dev.CreateBuffer(gfx.BufferDesc{
		ByteWidth: 192,
		Usage:     gfx.UsageDynamic,
		Bind:      gfx.BindConstantBuffer,
	}, nil)

	if err != nil {
		t.Fatal(err)
	}

	defer buf.Release()

	data, err := dev.context.Map(buf)
	if err != nil {
		t.Fatal(err)
	}

	if len(data) != 192 {
		t.Errorf("mapped %d bytes", len(data))
	}

	dev.context.Unmap(buf)

	_, err = dev.CreateBuffer(gfx.BufferDesc{ByteWidth: 100, Usage: gfx.UsageDynamic, Bind: gfx.BindConstantBuffer}, nil)
	if !errors.Is(err, gfx.ErrInvalidCall) {
		t.Errorf("unaligned constant buffer accepted: %v", err)
	}
}

func TestDebugLayerReportsMessages(t *testing.T) {
	dev := openWARP(t, true)

	dev.ClearMessages()

	// drawing without any state is reported by the debug layer
	dev.context.DrawIndexed(3, 0, 0)

	if len(dev.Messages()) == 0 {
		t.Error("debug layer reported nothing")
	}

	dev.ClearMessages()

	if len(dev.Messages()) != 0 {
		t.Error("messages not cleared")
	}
}
