package wgpu

import (
	"errors"
	"os"
	"testing"

	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/webgpu/wgpu"
)

const colorShader = `
@vertex
fn VS(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(position, 1.0);
}

@fragment
fn PS() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`

func TestDeclaresEntryPoint(t *testing.T) {
	cases := map[string]bool{
		"VS":   true,
		"PS":   true,
		"main": false,
		"V":    false,
	}

	for entry, want := range cases {
		if got := declaresEntryPoint(colorShader, entry); got != want {
			t.Errorf("declaresEntryPoint(%q) = %v", entry, got)
		}
	}
}

func TestStage(t *testing.T) {
	if stage("vs_4_0") != "vs" || stage("ps_5_0") != "ps" || stage("cs") != "cs" {
		t.Error("unexpected stage")
	}
}

func TestInputLayoutLocations(t *testing.T) {
	dev := &Device{}

	elements := []gfx.InputElement{
		{Semantic: "POSITION", Format: gfx.FormatR32G32B32Float, Offset: 0},
		{Semantic: "COLOR", Format: gfx.FormatR32G32B32A32Float, Offset: 12},
		{Semantic: "TEXCOORD", Format: gfx.FormatR32G32Float, Slot: 1},
	}

	layout, err := dev.CreateInputLayout(elements, &Blob{profile: "vs_4_0"})
	if err != nil {
		t.Fatal(err)
	}

	buffers := layout.(*InputLayout).buffers
	if len(buffers) != 2 {
		t.Fatalf("expected two vertex buffers, got %d", len(buffers))
	}

	if buffers[0].ArrayStride != 28 || len(buffers[0].Attributes) != 2 {
		t.Errorf("unexpected first buffer %+v", buffers[0])
	}

	if attr := buffers[0].Attributes[1]; attr.ShaderLocation != 1 || attr.Offset != 12 || attr.Format != wgpu.VertexFormatFloat32x4 {
		t.Errorf("unexpected color attribute %+v", attr)
	}

	if attr := buffers[1].Attributes[0]; attr.ShaderLocation != 2 {
		t.Errorf("texture coordinates fed to location %d", attr.ShaderLocation)
	}
}

func TestInputLayoutRejects(t *testing.T) {
	dev := &Device{}

	_, err := dev.CreateInputLayout(
		[]gfx.InputElement{{Semantic: "POSITION", Format: gfx.FormatD24UnormS8Uint}},
		&Blob{profile: "vs_4_0"},
	)

	if !errors.Is(err, gfx.ErrUnsupported) {
		t.Errorf("depth format accepted as vertex format: %v", err)
	}

	_, err = dev.CreateInputLayout(nil, &Blob{profile: "ps_4_0"})
	if !errors.Is(err, gfx.ErrInvalidCall) {
		t.Errorf("pixel shader blob accepted: %v", err)
	}
}

func TestConversions(t *testing.T) {
	if got, ok := primitiveTopology(gfx.LineStrip); !ok || got != wgpu.PrimitiveTopologyLineStrip {
		t.Error("line strip")
	}

	if _, ok := primitiveTopology(gfx.Topology(42)); ok {
		t.Error("unknown topology accepted")
	}

	if frontFace(gfx.DefaultRasterizerDesc) != wgpu.FrontFaceCW {
		t.Error("clockwise triangles must be front facing by default")
	}

	if cullMode(gfx.CullBack) != wgpu.CullModeBack || cullMode(gfx.CullNone) != wgpu.CullModeNone {
		t.Error("cull mode")
	}

	if compareFunction(gfx.CompareLess) != wgpu.CompareFunctionLess {
		t.Error("compare less")
	}

	if got, ok := textureFormat(gfx.FormatD24UnormS8Uint); !ok || got != wgpu.TextureFormatDepth24PlusStencil8 {
		t.Error("depth format")
	}

	usage := bufferUsage(gfx.BufferDesc{Bind: gfx.BindConstantBuffer})
	if usage&wgpu.BufferUsageUniform == 0 || usage&wgpu.BufferUsageCopyDst == 0 {
		t.Error("constant buffers must be writable uniforms")
	}
}

func TestDepthStencilConversions(t *testing.T) {
	if _, ok := vertexFormat(gfx.FormatD24UnormS8Uint); ok {
		t.Error("depth format accepted as vertex format")
	}

	if optionalBool(true) != wgpu.OptionalBoolTrue || optionalBool(false) != wgpu.OptionalBoolFalse {
		t.Error("optional bool")
	}

	conf := pipelineConfig{
		topology:     gfx.TriangleList,
		depthEnabled: true,
		depth:        gfx.DepthStencilDesc{DepthEnable: true, DepthWrite: true, DepthFunc: gfx.CompareLess},
		colorFormat:  wgpu.TextureFormatRGBA8Unorm,
		depthFormat:  wgpu.TextureFormatDepth24PlusStencil8,
	}

	if state := conf.depthStencilState(); state.DepthWriteEnabled != wgpu.OptionalBoolTrue || state.DepthCompare != wgpu.CompareFunctionLess {
		t.Errorf("unexpected depth state %+v", state)
	}

	conf.depthEnabled = false

	if state := conf.depthStencilState(); state.DepthWriteEnabled != wgpu.OptionalBoolFalse || state.DepthCompare != wgpu.CompareFunctionAlways {
		t.Errorf("depth test without a bound depth state: %+v", state)
	}
}

func TestAdapterName(t *testing.T) {
	if got := adapterName(wgpu.AdapterInfo{Device: "llvmpipe", Description: "Mesa"}); got != "llvmpipe" {
		t.Errorf("got %q", got)
	}

	if got := adapterName(wgpu.AdapterInfo{Description: "Mesa"}); got != "Mesa" {
		t.Errorf("got %q", got)
	}
}

func TestPadded(t *testing.T) {
	if got := padded(make([]byte, 6)); len(got) != 8 {
		t.Errorf("padded to %d bytes", len(got))
	}

	data := make([]byte, 12)
	if got := padded(data); &got[0] != &data[0] {
		t.Error("aligned data was copied")
	}
}

// openDevice opens a device on the fallback adapter. Set PRISM_WGPU_TESTS
// to run tests that need a WebGPU implementation.
func openDevice(t *testing.T) *Device {
	t.Helper()

	if os.Getenv("PRISM_WGPU_TESTS") == "" {
		t.Skip("PRISM_WGPU_TESTS not set")
	}

	drv := &Driver{}

	dev, err := drv.Open(gfx.OpenOptions{Type: gfx.DriverSoftware, Debug: true})
	if err != nil {
		t.Skipf("no WebGPU adapter: %s", err)
	}

	t.Cleanup(dev.Release)

	return dev.(*Device)
}

func TestCompileShader(t *testing.T) {
	dev := openDevice(t)

	blob, err := dev.CompileShader([]byte(colorShader), "color.wgsl", "VS", "vs_4_0")
	if err != nil {
		t.Fatal(err)
	}

	defer blob.Release()

	shader, err := dev.CreateVertexShader(blob)
	if err != nil {
		t.Fatal(err)
	}

	shader.Release()

	if _, err := dev.CreatePixelShader(blob); !errors.Is(err, gfx.ErrInvalidCall) {
		t.Errorf("vertex blob accepted for a pixel shader: %v", err)
	}

	_, err = dev.CompileShader([]byte("fn VS( {"), "broken.wgsl", "VS", "vs_4_0")

	var compileErr *gfx.CompileError
	if !errors.As(err, &compileErr) || compileErr.Log == "" {
		t.Errorf("expected a compile error with diagnostics, got %v", err)
	}
}

func TestDrawIntoTexture(t *testing.T) {
	dev := openDevice(t)
	ctx := dev.ImmediateContext()

	tex, err := dev.CreateTexture2D(gfx.Texture2DDesc{
		Width: 16, Height: 16,
		Format: gfx.FormatR8G8B8A8Unorm,
		Bind:   gfx.BindRenderTarget,
	})

	if err != nil {
		t.Fatal(err)
	}

	defer tex.Release()

	rtv, err := dev.CreateRenderTargetView(tex)
	if err != nil {
		t.Fatal(err)
	}

	defer rtv.Release()

	vsBlob, err := dev.CompileShader([]byte(colorShader), "color.wgsl", "VS", "vs_4_0")
	if err != nil {
		t.Fatal(err)
	}

	defer vsBlob.Release()

	psBlob, err := dev.CompileShader([]byte(colorShader), "color.wgsl", "PS", "ps_4_0")
	if err != nil {
		t.Fatal(err)
	}

	defer psBlob.Release()

	vs, _ := dev.CreateVertexShader(vsBlob)
	ps, _ := dev.CreatePixelShader(psBlob)

	layout, err := dev.CreateInputLayout([]gfx.InputElement{{Semantic: "POSITION", Format: gfx.FormatR32G32B32Float}}, vsBlob)
	if err != nil {
		t.Fatal(err)
	}

	vertices, err := dev.CreateBuffer(gfx.BufferDesc{
		ByteWidth: 36,
		Usage:     gfx.UsageImmutable,
		Bind:      gfx.BindVertexBuffer,
	}, make([]byte, 36))

	if err != nil {
		t.Fatal(err)
	}

	defer vertices.Release()

	ctx.SetRenderTargets(rtv, nil)
	ctx.ClearRenderTargetView(rtv, [4]float32{0, 0, 0, 1})
	ctx.SetViewport(gfx.Viewport{Width: 16, Height: 16, MaxDepth: 1})
	ctx.SetInputLayout(layout)
	ctx.SetVertexBuffer(0, vertices, 12, 0)
	ctx.SetPrimitiveTopology(gfx.TriangleList)
	ctx.SetVertexShader(vs)
	ctx.SetPixelShader(ps)
	ctx.Draw(3, 0)
	ctx.Flush()

	if msgs := dev.Messages(); len(msgs) > 0 {
		t.Errorf("draw reported %v", msgs)
	}

	if dev.pipelines.Len() != 1 {
		t.Errorf("expected one cached pipeline, got %d", dev.pipelines.Len())
	}

	// the same state reuses the pipeline
	ctx.Draw(3, 0)
	ctx.Flush()

	if dev.pipelines.Len() != 1 {
		t.Errorf("pipeline not reused, %d cached", dev.pipelines.Len())
	}

	ctx.ClearState()
	vs.Release()
	ps.Release()
}
