package d3d11

import (
	"errors"
	"fmt"
	"strconv"
	"unsafe"

	"github.com/oliverbestmann/prism/gfx"
	"golang.org/x/sys/windows"
)

type Device struct {
	device    *iD3D11Device
	ctx       *iD3D11DeviceContext
	adapter   *iDXGIAdapter
	infoQueue *iD3D11InfoQueue

	level gfx.FeatureLevel
	info  gfx.AdapterInfo
	debug bool

	context  *Context
	released bool
}

var (
	_ gfx.Device    = (*Device)(nil)
	_ gfx.InfoQueue = (*Device)(nil)
)

func (dev *Device) init(software bool) error {
	info, adapter, err := adapterInfo(dev.device)
	if err != nil {
		return fmt.Errorf("query adapter: %w", err)
	}

	dev.info = info
	dev.info.Software = software
	dev.adapter = adapter

	if dev.debug {
		ptr, err := queryInterface(unsafe.Pointer(dev.device), &iidID3D11InfoQueue)
		if err != nil {
			return fmt.Errorf("query info queue: %w: %w", gfx.ErrDebugLayerUnavailable, err)
		}

		dev.infoQueue = (*iD3D11InfoQueue)(ptr)
	}

	dev.context = &Context{dev: dev, ctx: dev.ctx}

	return nil
}

func (dev *Device) FeatureLevel() gfx.FeatureLevel {
	return dev.level
}

func (dev *Device) AdapterInfo() gfx.AdapterInfo {
	return dev.info
}

func (dev *Device) ShaderLanguage() gfx.ShaderLanguage {
	return gfx.LanguageHLSL
}

func (dev *Device) Debug() bool {
	return dev.debug
}

func (dev *Device) ImmediateContext() gfx.Context {
	return dev.context
}

func (dev *Device) Release() {
	if dev.released {
		return
	}

	dev.released = true

	if dev.ctx != nil {
		dev.ctx.ClearState()
		dev.ctx.Flush()
	}

	release(unsafe.Pointer(dev.infoQueue))
	release(unsafe.Pointer(dev.adapter))
	release(unsafe.Pointer(dev.ctx))
	release(unsafe.Pointer(dev.device))

	dev.infoQueue = nil
	dev.adapter = nil
	dev.ctx = nil
	dev.device = nil
}

// Messages returns the messages stored by the debug layer.
func (dev *Device) Messages() []gfx.Message {
	if dev.infoQueue == nil {
		return nil
	}

	var messages []gfx.Message

	count := dev.infoQueue.NumStoredMessages()
	for idx := range count {
		severity, id, text, err := dev.infoQueue.Message(idx)
		if err != nil {
			break
		}

		messages = append(messages, gfx.Message{
			Severity: messageSeverity(severity),
			ID:       strconv.Itoa(int(id)),
			Text:     text,
		})
	}

	return messages
}

func (dev *Device) ClearMessages() {
	if dev.infoQueue != nil {
		dev.infoQueue.ClearStoredMessages()
	}
}

func messageSeverity(severity int32) gfx.Severity {
	switch severity {
	case 0:
		return gfx.SeverityCorruption
	case 1:
		return gfx.SeverityError
	case 2:
		return gfx.SeverityWarning
	default:
		return gfx.SeverityInfo
	}
}

// wrapError maps HRESULT codes to the errors of the gfx package.
func (dev *Device) wrapError(op string, err error) error {
	var code errorCode
	if !errors.As(err, &code) {
		return fmt.Errorf("%s: %w", op, err)
	}

	switch code.Code {
	case eOutOfMemory:
		return fmt.Errorf("%s: %w: %w", op, gfx.ErrOutOfMemory, err)

	case eInvalidArg, dxgiErrorInvalidCall:
		return fmt.Errorf("%s: %w: %w", op, gfx.ErrInvalidCall, err)

	case dxgiErrorUnsupported:
		return fmt.Errorf("%s: %w: %w", op, gfx.ErrUnsupported, err)

	case dxgiErrorDeviceRemoved, dxgiErrorDeviceReset, dxgiErrorDeviceHung, d3dddiErrDeviceRemoved:
		if reason := dev.device.GetDeviceRemovedReason(); reason != nil {
			err = errors.Join(err, reason)
		}

		return fmt.Errorf("%s: %w: %w", op, gfx.ErrDeviceRemoved, err)

	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// comObject owns one reference of a COM object.
type comObject struct {
	ptr unsafe.Pointer
}

func (o *comObject) Release() {
	release(o.ptr)
	o.ptr = nil
}

type Buffer struct {
	comObject
	desc gfx.BufferDesc
}

func (b *Buffer) Desc() gfx.BufferDesc {
	return b.desc
}

func (dev *Device) CreateBuffer(desc gfx.BufferDesc, data []byte) (gfx.Buffer, error) {
	if desc.Bind&gfx.BindConstantBuffer != 0 && desc.ByteWidth%16 != 0 {
		return nil, fmt.Errorf("create buffer %q: constant buffer size %d not a multiple of 16: %w",
			desc.Label, desc.ByteWidth, gfx.ErrInvalidCall)
	}

	if len(data) > 0 && len(data) < int(desc.ByteWidth) {
		// initial data must cover the whole buffer
		data = append(data, make([]byte, int(desc.ByteWidth)-len(data))...)
	}

	d := bufferDesc{
		ByteWidth: desc.ByteWidth,
		Usage:     uint32(desc.Usage),
		BindFlags: uint32(desc.Bind),
	}

	if desc.Usage == gfx.UsageDynamic {
		d.CPUAccessFlags = cpuAccessWrite
	}

	ptr, err := dev.device.CreateBuffer(&d, data)
	if err != nil {
		return nil, dev.wrapError(fmt.Sprintf("create buffer %q", desc.Label), err)
	}

	return &Buffer{comObject: comObject{ptr}, desc: desc}, nil
}

type Texture struct {
	comObject
	desc gfx.Texture2DDesc

	// back buffers belong to their swap chain
	chain *SwapChain
	views int
}

func (t *Texture) Desc() gfx.Texture2DDesc {
	return t.desc
}

func (t *Texture) Release() {
	if t.chain == nil {
		t.comObject.Release()
	}
}

func (dev *Device) CreateTexture2D(desc gfx.Texture2DDesc) (gfx.Texture2D, error) {
	ptr, err := dev.device.CreateTexture2D(&texture2DDesc{
		Width:      desc.Width,
		Height:     desc.Height,
		MipLevels:  1,
		ArraySize:  1,
		Format:     uint32(desc.Format),
		SampleDesc: sampleDesc{Count: max(desc.SampleCount, 1)},
		Usage:      usageDefault,
		BindFlags:  uint32(desc.Bind),
	})

	if err != nil {
		return nil, dev.wrapError(fmt.Sprintf("create texture %q", desc.Label), err)
	}

	return &Texture{comObject: comObject{ptr}, desc: desc}, nil
}

type RenderTargetView struct {
	comObject
	texture *Texture
}

func (v *RenderTargetView) Texture() gfx.Texture2D {
	return v.texture
}

func (v *RenderTargetView) Release() {
	if v.ptr != nil {
		v.texture.views--
	}

	v.comObject.Release()
}

type DepthStencilView struct {
	comObject
	texture *Texture
}

func (v *DepthStencilView) Texture() gfx.Texture2D {
	return v.texture
}

func (v *DepthStencilView) Release() {
	if v.ptr != nil {
		v.texture.views--
	}

	v.comObject.Release()
}

func (dev *Device) CreateRenderTargetView(tex gfx.Texture2D) (gfx.RenderTargetView, error) {
	t, ok := tex.(*Texture)
	if !ok || t.ptr == nil {
		return nil, fmt.Errorf("create render target view: %w", gfx.ErrInvalidCall)
	}

	ptr, err := dev.device.CreateRenderTargetView(t.ptr)
	if err != nil {
		return nil, dev.wrapError("create render target view", err)
	}

	t.views++

	return &RenderTargetView{comObject: comObject{ptr}, texture: t}, nil
}

func (dev *Device) CreateDepthStencilView(tex gfx.Texture2D) (gfx.DepthStencilView, error) {
	t, ok := tex.(*Texture)
	if !ok || t.ptr == nil {
		return nil, fmt.Errorf("create depth stencil view: %w", gfx.ErrInvalidCall)
	}

	ptr, err := dev.device.CreateDepthStencilView(t.ptr)
	if err != nil {
		return nil, dev.wrapError("create depth stencil view", err)
	}

	t.views++

	return &DepthStencilView{comObject: comObject{ptr}, texture: t}, nil
}

type VertexShader struct{ comObject }

type PixelShader struct{ comObject }

func (dev *Device) CreateVertexShader(blob gfx.Blob) (gfx.VertexShader, error) {
	ptr, err := dev.device.CreateVertexShader(blob.Bytes())
	if err != nil {
		return nil, dev.wrapError("create vertex shader", err)
	}

	return &VertexShader{comObject{ptr}}, nil
}

func (dev *Device) CreatePixelShader(blob gfx.Blob) (gfx.PixelShader, error) {
	ptr, err := dev.device.CreatePixelShader(blob.Bytes())
	if err != nil {
		return nil, dev.wrapError("create pixel shader", err)
	}

	return &PixelShader{comObject{ptr}}, nil
}

type InputLayout struct{ comObject }

func (dev *Device) CreateInputLayout(elements []gfx.InputElement, vertexShader gfx.Blob) (gfx.InputLayout, error) {
	descs := make([]inputElementDesc, 0, len(elements))

	for _, element := range elements {
		name, err := windows.BytePtrFromString(element.Semantic)
		if err != nil {
			return nil, fmt.Errorf("create input layout: semantic %q: %w", element.Semantic, gfx.ErrInvalidCall)
		}

		descs = append(descs, inputElementDesc{
			SemanticName:      name,
			SemanticIndex:     element.SemanticIndex,
			Format:            uint32(element.Format),
			InputSlot:         element.Slot,
			AlignedByteOffset: element.Offset,
			InputSlotClass:    inputPerVertexData,
		})
	}

	ptr, err := dev.device.CreateInputLayout(descs, vertexShader.Bytes())
	if err != nil {
		return nil, dev.wrapError("create input layout", err)
	}

	return &InputLayout{comObject{ptr}}, nil
}

type RasterizerState struct {
	comObject
	desc gfx.RasterizerDesc
}

func (s *RasterizerState) Desc() gfx.RasterizerDesc {
	return s.desc
}

func (dev *Device) CreateRasterizerState(desc gfx.RasterizerDesc) (gfx.RasterizerState, error) {
	ptr, err := dev.device.CreateRasterizerState(&rasterizerDesc{
		FillMode:              uint32(desc.Fill),
		CullMode:              uint32(desc.Cull),
		FrontCounterClockwise: boolean(desc.FrontCounterClockwise),
		DepthClipEnable:       boolean(desc.DepthClip),
	})

	if err != nil {
		return nil, dev.wrapError("create rasterizer state", err)
	}

	return &RasterizerState{comObject: comObject{ptr}, desc: desc}, nil
}

type DepthStencilState struct {
	comObject
	desc gfx.DepthStencilDesc
}

func (s *DepthStencilState) Desc() gfx.DepthStencilDesc {
	return s.desc
}

func (dev *Device) CreateDepthStencilState(desc gfx.DepthStencilDesc) (gfx.DepthStencilState, error) {
	writeMask := uint32(depthWriteMaskZero)
	if desc.DepthWrite {
		writeMask = depthWriteMaskAll
	}

	depthFunc := desc.DepthFunc
	if depthFunc == 0 {
		depthFunc = gfx.CompareLess
	}

	// stencil ops are validated even with stencil disabled
	keep := depthStencilOpDesc{
		StencilFailOp:      stencilOpKeep,
		StencilDepthFailOp: stencilOpKeep,
		StencilPassOp:      stencilOpKeep,
		StencilFunc:        uint32(gfx.CompareAlways),
	}

	ptr, err := dev.device.CreateDepthStencilState(&depthStencilDesc{
		DepthEnable:      boolean(desc.DepthEnable),
		DepthWriteMask:   writeMask,
		DepthFunc:        uint32(depthFunc),
		StencilReadMask:  0xff,
		StencilWriteMask: 0xff,
		FrontFace:        keep,
		BackFace:         keep,
	})

	if err != nil {
		return nil, dev.wrapError("create depth stencil state", err)
	}

	return &DepthStencilState{comObject: comObject{ptr}, desc: desc}, nil
}

func boolean(value bool) uint32 {
	if value {
		return 1
	}

	return 0
}
