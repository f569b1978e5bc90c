package soft

import (
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/prism/hlsl"
)

// maxResourceSize mirrors the 128 MiB resource size limit of Direct3D 11.
const maxResourceSize = 128 << 20

type Device struct {
	level   gfx.FeatureLevel
	adapter gfx.AdapterInfo
	debug   bool

	// period and start of the simulated vertical refresh
	refresh time.Duration
	epoch   time.Time

	ctx *Context

	mu       sync.Mutex
	live     map[string]int
	messages []gfx.Message
	removed  error
	released bool

	// returned by CreateTexture2D if set
	failTextures error
}

var (
	_ gfx.Device    = (*Device)(nil)
	_ gfx.InfoQueue = (*Device)(nil)
)

func (dev *Device) FeatureLevel() gfx.FeatureLevel {
	return dev.level
}

func (dev *Device) AdapterInfo() gfx.AdapterInfo {
	return dev.adapter
}

func (dev *Device) ShaderLanguage() gfx.ShaderLanguage {
	return gfx.LanguageHLSL
}

func (dev *Device) Debug() bool {
	return dev.debug
}

func (dev *Device) ImmediateContext() gfx.Context {
	return dev.ctx
}

// Context returns the immediate context with its concrete type.
func (dev *Device) Context() *Context {
	return dev.ctx
}

// Release releases the device. With the validation layer active, objects
// still alive at this point are reported.
func (dev *Device) Release() {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if dev.released {
		return
	}

	dev.released = true

	if dev.debug {
		for kind, count := range dev.live {
			dev.messages = append(dev.messages, gfx.Message{
				Severity: gfx.SeverityWarning,
				ID:       "LIVE_OBJECT_SUMMARY",
				Text:     fmt.Sprintf("Live %s objects: %d", kind, count),
			})
		}
	}
}

// Released reports whether Release was called.
func (dev *Device) Released() bool {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	return dev.released
}

// LiveObjects returns the number of objects per kind that were created but
// not released yet. Kinds without live objects are omitted.
func (dev *Device) LiveObjects() map[string]int {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	return maps.Clone(dev.live)
}

// Remove simulates the loss of the device, e.g. after a driver update or a
// GPU reset. Present and resource creation fail with gfx.ErrDeviceRemoved
// afterwards.
func (dev *Device) Remove(reason error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if reason == nil {
		reason = errors.New("device hung")
	}

	dev.removed = reason
}

// FailTextures makes CreateTexture2D fail with the given error until it is
// called again with nil. Swap chain buffers are not affected.
func (dev *Device) FailTextures(err error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.failTextures = err
}

// RemovedReason returns the reason passed to Remove or nil.
func (dev *Device) RemovedReason() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	return dev.removed
}

func (dev *Device) checkRemoved(op string) error {
	if reason := dev.RemovedReason(); reason != nil {
		return fmt.Errorf("%s: %w: %w", op, gfx.ErrDeviceRemoved, reason)
	}

	return nil
}

// Messages returns the messages recorded by the validation layer.
func (dev *Device) Messages() []gfx.Message {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	return append([]gfx.Message(nil), dev.messages...)
}

func (dev *Device) ClearMessages() {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.messages = nil
}

// report records a validation message. Messages are only recorded if the
// device was opened with the validation layer.
func (dev *Device) report(severity gfx.Severity, id string, format string, args ...any) {
	if !dev.debug {
		return
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.messages = append(dev.messages, gfx.Message{
		Severity: severity,
		ID:       id,
		Text:     fmt.Sprintf(format, args...),
	})
}

// invalid records an error message and returns an error wrapping
// gfx.ErrInvalidCall with the same text.
func (dev *Device) invalid(id string, format string, args ...any) error {
	dev.report(gfx.SeverityError, id, format, args...)
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), gfx.ErrInvalidCall)
}

func (dev *Device) track(kind string) object {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.live[kind]++

	return object{dev: dev, kind: kind}
}

func (dev *Device) untrack(kind string) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.live[kind]--
	if dev.live[kind] <= 0 {
		delete(dev.live, kind)
	}
}

// object implements the reference accounting shared by all device children.
type object struct {
	dev      *Device
	kind     string
	released bool
}

func (o *object) Release() {
	if o.released || o.dev == nil {
		return
	}

	o.released = true
	o.dev.untrack(o.kind)
}

func (dev *Device) CreateBuffer(desc gfx.BufferDesc, data []byte) (gfx.Buffer, error) {
	if err := dev.checkRemoved("create buffer"); err != nil {
		return nil, err
	}

	switch {
	case desc.ByteWidth == 0:
		return nil, dev.invalid("CREATEBUFFER_INVALIDDIMENSIONS", "CreateBuffer: ByteWidth of %q must not be zero", desc.Label)

	case desc.ByteWidth > maxResourceSize:
		return nil, fmt.Errorf("create buffer %q of %d bytes: %w", desc.Label, desc.ByteWidth, gfx.ErrOutOfMemory)

	case desc.Bind&gfx.BindConstantBuffer != 0 && desc.ByteWidth%16 != 0:
		return nil, dev.invalid("CREATEBUFFER_INVALIDCONSTANTBUFFERBYTEWIDTH",
			"CreateBuffer: constant buffer %q has a ByteWidth of %d which is not a multiple of 16", desc.Label, desc.ByteWidth)

	case desc.Usage == gfx.UsageImmutable && len(data) == 0:
		return nil, dev.invalid("CREATEBUFFER_INVALIDINITIALDATA", "CreateBuffer: immutable buffer %q requires initial data", desc.Label)

	case data != nil && uint32(len(data)) < desc.ByteWidth:
		return nil, dev.invalid("CREATEBUFFER_INVALIDINITIALDATA",
			"CreateBuffer: initial data of %q holds %d bytes, %d expected", desc.Label, len(data), desc.ByteWidth)
	}

	buf := &Buffer{
		object: dev.track("Buffer"),
		desc:   desc,
		data:   make([]byte, desc.ByteWidth),
	}

	copy(buf.data, data)

	return buf, nil
}

func (dev *Device) CreateTexture2D(desc gfx.Texture2DDesc) (gfx.Texture2D, error) {
	if err := dev.checkRemoved("create texture"); err != nil {
		return nil, err
	}

	dev.mu.Lock()
	fail := dev.failTextures
	dev.mu.Unlock()

	if fail != nil {
		return nil, fmt.Errorf("create texture %q: %w", desc.Label, fail)
	}

	if desc.Width == 0 || desc.Height == 0 {
		return nil, dev.invalid("CREATETEXTURE2D_INVALIDDIMENSIONS",
			"CreateTexture2D: texture %q has invalid dimensions %dx%d", desc.Label, desc.Width, desc.Height)
	}

	if desc.SampleCount > 1 {
		return nil, fmt.Errorf("create texture %q with %d samples: %w", desc.Label, desc.SampleCount, gfx.ErrUnsupported)
	}

	switch desc.Format {
	case gfx.FormatR8G8B8A8Unorm, gfx.FormatB8G8R8A8Unorm, gfx.FormatD24UnormS8Uint:
	default:
		return nil, fmt.Errorf("create texture %q with format %s: %w", desc.Label, desc.Format, gfx.ErrUnsupported)
	}

	if uint64(desc.Width)*uint64(desc.Height)*4 > maxResourceSize {
		return nil, fmt.Errorf("create texture %q of %dx%d: %w", desc.Label, desc.Width, desc.Height, gfx.ErrOutOfMemory)
	}

	tex := newTexture(desc)
	tex.object = dev.track("Texture2D")

	return tex, nil
}

func (dev *Device) CreateRenderTargetView(texture gfx.Texture2D) (gfx.RenderTargetView, error) {
	if err := dev.checkRemoved("create render target view"); err != nil {
		return nil, err
	}

	tex, ok := texture.(*Texture)
	if !ok || tex == nil {
		return nil, dev.invalid("CREATERENDERTARGETVIEW_INVALIDRESOURCE", "CreateRenderTargetView: invalid resource")
	}

	if tex.desc.Bind&gfx.BindRenderTarget == 0 || tex.desc.Format.IsDepth() {
		return nil, dev.invalid("CREATERENDERTARGETVIEW_INVALIDRESOURCE",
			"CreateRenderTargetView: texture %q was not created with the render target bind flag", tex.desc.Label)
	}

	tex.views++

	return &RenderTargetView{object: dev.track("RenderTargetView"), tex: tex}, nil
}

func (dev *Device) CreateDepthStencilView(texture gfx.Texture2D) (gfx.DepthStencilView, error) {
	if err := dev.checkRemoved("create depth stencil view"); err != nil {
		return nil, err
	}

	tex, ok := texture.(*Texture)
	if !ok || tex == nil {
		return nil, dev.invalid("CREATEDEPTHSTENCILVIEW_INVALIDRESOURCE", "CreateDepthStencilView: invalid resource")
	}

	if tex.desc.Bind&gfx.BindDepthStencil == 0 || !tex.desc.Format.IsDepth() {
		return nil, dev.invalid("CREATEDEPTHSTENCILVIEW_INVALIDRESOURCE",
			"CreateDepthStencilView: texture %q was not created as a depth stencil", tex.desc.Label)
	}

	tex.views++

	return &DepthStencilView{object: dev.track("DepthStencilView"), tex: tex}, nil
}

func (dev *Device) CompileShader(source []byte, name, entryPoint, profile string) (gfx.Blob, error) {
	shader, err := hlsl.Compile(string(source), name, entryPoint, profile)
	if err != nil {
		return nil, &gfx.CompileError{Name: name, Log: err.Error()}
	}

	return &Blob{
		object: dev.track("Blob"),
		shader: shader,
		source: source,
	}, nil
}

func (dev *Device) blobShader(blob gfx.Blob, stage hlsl.Stage, op string) (*hlsl.Shader, error) {
	b, ok := blob.(*Blob)
	if !ok || b == nil {
		return nil, dev.invalid("CREATESHADER_INVALIDSHADERBYTECODE", "%s: invalid shader bytecode", op)
	}

	if b.shader.Stage != stage {
		return nil, dev.invalid("CREATESHADER_INVALIDSHADERTYPE",
			"%s: blob %q contains a %s shader", op, b.shader.Name, b.shader.Stage)
	}

	return b.shader, nil
}

func (dev *Device) CreateVertexShader(blob gfx.Blob) (gfx.VertexShader, error) {
	if err := dev.checkRemoved("create vertex shader"); err != nil {
		return nil, err
	}

	shader, err := dev.blobShader(blob, hlsl.StageVertex, "CreateVertexShader")
	if err != nil {
		return nil, err
	}

	if _, ok := shader.Output("SV_POSITION", 0); !ok {
		return nil, dev.invalid("CREATEVERTEXSHADER_INVALIDSHADERBYTECODE",
			"CreateVertexShader: shader %q does not write SV_Position", shader.Name)
	}

	return &VertexShader{object: dev.track("VertexShader"), shader: shader}, nil
}

func (dev *Device) CreatePixelShader(blob gfx.Blob) (gfx.PixelShader, error) {
	if err := dev.checkRemoved("create pixel shader"); err != nil {
		return nil, err
	}

	shader, err := dev.blobShader(blob, hlsl.StagePixel, "CreatePixelShader")
	if err != nil {
		return nil, err
	}

	return &PixelShader{object: dev.track("PixelShader"), shader: shader}, nil
}

func (dev *Device) CreateInputLayout(elements []gfx.InputElement, vertexShader gfx.Blob) (gfx.InputLayout, error) {
	if err := dev.checkRemoved("create input layout"); err != nil {
		return nil, err
	}

	shader, err := dev.blobShader(vertexShader, hlsl.StageVertex, "CreateInputLayout")
	if err != nil {
		return nil, err
	}

	layout, err := newInputLayout(elements, shader)
	if err != nil {
		return nil, dev.invalid("CREATEINPUTLAYOUT_MISSINGELEMENT", "CreateInputLayout: %s", err)
	}

	layout.object = dev.track("InputLayout")

	return layout, nil
}

func (dev *Device) CreateRasterizerState(desc gfx.RasterizerDesc) (gfx.RasterizerState, error) {
	if err := dev.checkRemoved("create rasterizer state"); err != nil {
		return nil, err
	}

	if desc.Fill != gfx.FillSolid && desc.Fill != gfx.FillWireframe {
		return nil, dev.invalid("CREATERASTERIZERSTATE_INVALIDFILLMODE", "CreateRasterizerState: invalid fill mode %d", desc.Fill)
	}

	if desc.Cull < gfx.CullNone || desc.Cull > gfx.CullBack {
		return nil, dev.invalid("CREATERASTERIZERSTATE_INVALIDCULLMODE", "CreateRasterizerState: invalid cull mode %d", desc.Cull)
	}

	return &RasterizerState{object: dev.track("RasterizerState"), desc: desc}, nil
}

func (dev *Device) CreateDepthStencilState(desc gfx.DepthStencilDesc) (gfx.DepthStencilState, error) {
	if err := dev.checkRemoved("create depth stencil state"); err != nil {
		return nil, err
	}

	if desc.DepthEnable && (desc.DepthFunc < gfx.CompareNever || desc.DepthFunc > gfx.CompareAlways) {
		return nil, dev.invalid("CREATEDEPTHSTENCILSTATE_INVALIDDEPTHFUNC",
			"CreateDepthStencilState: invalid depth function %d", desc.DepthFunc)
	}

	return &DepthStencilState{object: dev.track("DepthStencilState"), desc: desc}, nil
}

func (dev *Device) CreateSwapChain(win gfx.Window, desc gfx.SwapChainDesc) (gfx.SwapChain, error) {
	if err := dev.checkRemoved("create swap chain"); err != nil {
		return nil, err
	}

	if win == nil || win.NativeHandle() == 0 {
		return nil, dev.invalid("CREATESWAPCHAIN_INVALIDOUTPUTWINDOW", "CreateSwapChain: invalid output window")
	}

	// a zero size takes the size of the window, like DXGI does
	if desc.Width == 0 || desc.Height == 0 {
		desc.Width, desc.Height = win.ClientSize()
	}

	if desc.Width == 0 || desc.Height == 0 {
		return nil, dev.invalid("CREATESWAPCHAIN_INVALIDDIMENSIONS", "CreateSwapChain: window has no client area")
	}

	if desc.BufferCount < 1 || desc.BufferCount > 16 {
		return nil, dev.invalid("CREATESWAPCHAIN_INVALIDBUFFERCOUNT", "CreateSwapChain: invalid buffer count %d", desc.BufferCount)
	}

	if desc.SampleCount > 1 {
		return nil, fmt.Errorf("create swap chain with %d samples: %w", desc.SampleCount, gfx.ErrUnsupported)
	}

	switch desc.Format {
	case gfx.FormatR8G8B8A8Unorm, gfx.FormatB8G8R8A8Unorm:
	default:
		return nil, fmt.Errorf("create swap chain with format %s: %w", desc.Format, gfx.ErrUnsupported)
	}

	sc := newSwapChain(dev, win, desc)
	sc.object = dev.track("SwapChain")

	return sc, nil
}
