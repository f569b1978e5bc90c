package d3d11

import (
	"fmt"
	"math"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	d3d11DLL       = windows.NewLazySystemDLL("d3d11.dll")
	d3dcompilerDLL = windows.NewLazySystemDLL("d3dcompiler_47.dll")

	procD3D11CreateDevice = d3d11DLL.NewProc("D3D11CreateDevice")
	procD3DCompile        = d3dcompilerDLL.NewProc("D3DCompile")
)

const (
	sdkVersion = 7

	driverTypeHardware = 1
	driverTypeWARP     = 5

	createDeviceDebug = 0x2

	usageDefault   = 0
	usageImmutable = 1
	usageDynamic   = 2
	usageStaging   = 3

	cpuAccessWrite = 0x10000

	mapWriteDiscard = 4

	clearDepth   = 0x1
	clearStencil = 0x2

	depthWriteMaskZero = 0
	depthWriteMaskAll  = 1

	stencilOpKeep = 1

	dxgiUsageRenderTargetOutput = 1 << (1 + 4)
	dxgiSwapEffectDiscard       = 0

	inputPerVertexData = 0

	compileDebug            = 1 << 0
	compileSkipOptimization = 1 << 2
	compileEnableStrictness = 1 << 11
)

// HRESULT codes we react to.
const (
	sOK                    = 0
	dxgiStatusOccluded     = 0x087A0001
	dxgiErrorInvalidCall   = 0x887A0001
	dxgiErrorDeviceRemoved = 0x887A0005
	dxgiErrorDeviceHung    = 0x887A0006
	dxgiErrorDeviceReset   = 0x887A0007
	dxgiErrorSDKMissing    = 0x887A002D
	dxgiErrorUnsupported   = 0x887A0004
	d3dddiErrDeviceRemoved = 1<<31 | 0x876<<16 | 2160
	eInvalidArg            = 0x80070057
	eOutOfMemory           = 0x8007000E
)

// errorCode is a failed HRESULT of a named call.
type errorCode struct {
	Name string
	Code uint32
}

func (e errorCode) Error() string {
	return fmt.Sprintf("%s: %#x", e.Name, e.Code)
}

func hresult(name string, r uintptr) error {
	if uint32(r) == sOK {
		return nil
	}

	return errorCode{Name: name, Code: uint32(r)}
}

type guid struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

var (
	iidID3D11Texture2D = guid{0x6f15aaf2, 0xd208, 0x4e89, [8]byte{0x9a, 0xb4, 0x48, 0x95, 0x35, 0xd3, 0x4f, 0x9c}}
	iidIDXGIDevice     = guid{0x54ec77fa, 0x1377, 0x44e6, [8]byte{0x8c, 0x32, 0x88, 0xfd, 0x5f, 0x44, 0xc8, 0x4c}}
	iidIDXGIFactory    = guid{0x7b7166ec, 0x21c7, 0x44ae, [8]byte{0xb2, 0x1a, 0xc9, 0xae, 0x32, 0x1a, 0xe3, 0x69}}
	iidID3D11InfoQueue = guid{0x6543dbb6, 0x1b48, 0x42f5, [8]byte{0xab, 0x82, 0xe9, 0x7e, 0xc7, 0x43, 0x26, 0xf6}}
)

type unknownVtbl struct {
	QueryInterface uintptr
	AddRef         uintptr
	Release        uintptr
}

// iUnknown is the common prefix of every COM object.
type iUnknown struct {
	vtbl *unknownVtbl
}

func release(obj unsafe.Pointer) {
	if obj == nil {
		return
	}

	unk := (*iUnknown)(obj)
	syscall.SyscallN(unk.vtbl.Release, uintptr(obj))
}

func queryInterface(obj unsafe.Pointer, iid *guid) (unsafe.Pointer, error) {
	var ref unsafe.Pointer

	unk := (*iUnknown)(obj)
	r, _, _ := syscall.SyscallN(unk.vtbl.QueryInterface,
		uintptr(obj),
		uintptr(unsafe.Pointer(iid)),
		uintptr(unsafe.Pointer(&ref)),
	)

	if err := hresult("IUnknown::QueryInterface", r); err != nil {
		return nil, err
	}

	return ref, nil
}

type bufferDesc struct {
	ByteWidth           uint32
	Usage               uint32
	BindFlags           uint32
	CPUAccessFlags      uint32
	MiscFlags           uint32
	StructureByteStride uint32
}

type subresourceData struct {
	SysMem           *byte
	SysMemPitch      uint32
	SysMemSlicePitch uint32
}

type sampleDesc struct {
	Count   uint32
	Quality uint32
}

type texture2DDesc struct {
	Width          uint32
	Height         uint32
	MipLevels      uint32
	ArraySize      uint32
	Format         uint32
	SampleDesc     sampleDesc
	Usage          uint32
	BindFlags      uint32
	CPUAccessFlags uint32
	MiscFlags      uint32
}

type inputElementDesc struct {
	SemanticName         *byte
	SemanticIndex        uint32
	Format               uint32
	InputSlot            uint32
	AlignedByteOffset    uint32
	InputSlotClass       uint32
	InstanceDataStepRate uint32
}

type rasterizerDesc struct {
	FillMode              uint32
	CullMode              uint32
	FrontCounterClockwise uint32
	DepthBias             int32
	DepthBiasClamp        float32
	SlopeScaledDepthBias  float32
	DepthClipEnable       uint32
	ScissorEnable         uint32
	MultisampleEnable     uint32
	AntialiasedLineEnable uint32
}

type depthStencilOpDesc struct {
	StencilFailOp      uint32
	StencilDepthFailOp uint32
	StencilPassOp      uint32
	StencilFunc        uint32
}

type depthStencilDesc struct {
	DepthEnable      uint32
	DepthWriteMask   uint32
	DepthFunc        uint32
	StencilEnable    uint32
	StencilReadMask  uint8
	StencilWriteMask uint8
	FrontFace        depthStencilOpDesc
	BackFace         depthStencilOpDesc
}

type viewport struct {
	TopLeftX float32
	TopLeftY float32
	Width    float32
	Height   float32
	MinDepth float32
	MaxDepth float32
}

type mappedSubresource struct {
	Data       unsafe.Pointer
	RowPitch   uint32
	DepthPitch uint32
}

type dxgiRational struct {
	Numerator   uint32
	Denominator uint32
}

type dxgiModeDesc struct {
	Width            uint32
	Height           uint32
	RefreshRate      dxgiRational
	Format           uint32
	ScanlineOrdering uint32
	Scaling          uint32
}

type dxgiSwapChainDesc struct {
	BufferDesc   dxgiModeDesc
	SampleDesc   sampleDesc
	BufferUsage  uint32
	BufferCount  uint32
	OutputWindow windows.Handle
	Windowed     uint32
	SwapEffect   uint32
	Flags        uint32
}

type dxgiAdapterDesc struct {
	Description           [128]uint16
	VendorID              uint32
	DeviceID              uint32
	SubSysID              uint32
	Revision              uint32
	DedicatedVideoMemory  uintptr
	DedicatedSystemMemory uintptr
	SharedSystemMemory    uintptr
	AdapterLuid           windows.LUID
}

type iD3D11Device struct {
	vtbl *struct {
		unknownVtbl
		CreateBuffer                         uintptr
		CreateTexture1D                      uintptr
		CreateTexture2D                      uintptr
		CreateTexture3D                      uintptr
		CreateShaderResourceView             uintptr
		CreateUnorderedAccessView            uintptr
		CreateRenderTargetView               uintptr
		CreateDepthStencilView               uintptr
		CreateInputLayout                    uintptr
		CreateVertexShader                   uintptr
		CreateGeometryShader                 uintptr
		CreateGeometryShaderWithStreamOutput uintptr
		CreatePixelShader                    uintptr
		CreateHullShader                     uintptr
		CreateDomainShader                   uintptr
		CreateComputeShader                  uintptr
		CreateClassLinkage                   uintptr
		CreateBlendState                     uintptr
		CreateDepthStencilState              uintptr
		CreateRasterizerState                uintptr
		CreateSamplerState                   uintptr
		CreateQuery                          uintptr
		CreatePredicate                      uintptr
		CreateCounter                        uintptr
		CreateDeferredContext                uintptr
		OpenSharedResource                   uintptr
		CheckFormatSupport                   uintptr
		CheckMultisampleQualityLevels        uintptr
		CheckCounterInfo                     uintptr
		CheckCounter                         uintptr
		CheckFeatureSupport                  uintptr
		GetPrivateData                       uintptr
		SetPrivateData                       uintptr
		SetPrivateDataInterface              uintptr
		GetFeatureLevel                      uintptr
		GetCreationFlags                     uintptr
		GetDeviceRemovedReason               uintptr
		GetImmediateContext                  uintptr
		SetExceptionMode                     uintptr
		GetExceptionMode                     uintptr
	}
}

func (d *iD3D11Device) this() uintptr {
	return uintptr(unsafe.Pointer(d))
}

func (d *iD3D11Device) CreateBuffer(desc *bufferDesc, data []byte) (unsafe.Pointer, error) {
	var initial *subresourceData
	if len(data) > 0 {
		initial = &subresourceData{SysMem: &data[0]}
	}

	var buf unsafe.Pointer
	r, _, _ := syscall.SyscallN(d.vtbl.CreateBuffer, d.this(),
		uintptr(unsafe.Pointer(desc)),
		uintptr(unsafe.Pointer(initial)),
		uintptr(unsafe.Pointer(&buf)),
	)

	return buf, hresult("ID3D11Device::CreateBuffer", r)
}

func (d *iD3D11Device) CreateTexture2D(desc *texture2DDesc) (unsafe.Pointer, error) {
	var tex unsafe.Pointer
	r, _, _ := syscall.SyscallN(d.vtbl.CreateTexture2D, d.this(),
		uintptr(unsafe.Pointer(desc)),
		0, // pInitialData
		uintptr(unsafe.Pointer(&tex)),
	)

	return tex, hresult("ID3D11Device::CreateTexture2D", r)
}

func (d *iD3D11Device) CreateRenderTargetView(res unsafe.Pointer) (unsafe.Pointer, error) {
	var view unsafe.Pointer
	r, _, _ := syscall.SyscallN(d.vtbl.CreateRenderTargetView, d.this(),
		uintptr(res),
		0, // pDesc
		uintptr(unsafe.Pointer(&view)),
	)

	return view, hresult("ID3D11Device::CreateRenderTargetView", r)
}

func (d *iD3D11Device) CreateDepthStencilView(res unsafe.Pointer) (unsafe.Pointer, error) {
	var view unsafe.Pointer
	r, _, _ := syscall.SyscallN(d.vtbl.CreateDepthStencilView, d.this(),
		uintptr(res),
		0, // pDesc
		uintptr(unsafe.Pointer(&view)),
	)

	return view, hresult("ID3D11Device::CreateDepthStencilView", r)
}

func (d *iD3D11Device) CreateInputLayout(descs []inputElementDesc, bytecode []byte) (unsafe.Pointer, error) {
	var first *inputElementDesc
	if len(descs) > 0 {
		first = &descs[0]
	}

	var layout unsafe.Pointer
	r, _, _ := syscall.SyscallN(d.vtbl.CreateInputLayout, d.this(),
		uintptr(unsafe.Pointer(first)),
		uintptr(len(descs)),
		uintptr(unsafe.Pointer(&bytecode[0])),
		uintptr(len(bytecode)),
		uintptr(unsafe.Pointer(&layout)),
	)

	return layout, hresult("ID3D11Device::CreateInputLayout", r)
}

func (d *iD3D11Device) CreateVertexShader(bytecode []byte) (unsafe.Pointer, error) {
	var shader unsafe.Pointer
	r, _, _ := syscall.SyscallN(d.vtbl.CreateVertexShader, d.this(),
		uintptr(unsafe.Pointer(&bytecode[0])),
		uintptr(len(bytecode)),
		0, // pClassLinkage
		uintptr(unsafe.Pointer(&shader)),
	)

	return shader, hresult("ID3D11Device::CreateVertexShader", r)
}

func (d *iD3D11Device) CreatePixelShader(bytecode []byte) (unsafe.Pointer, error) {
	var shader unsafe.Pointer
	r, _, _ := syscall.SyscallN(d.vtbl.CreatePixelShader, d.this(),
		uintptr(unsafe.Pointer(&bytecode[0])),
		uintptr(len(bytecode)),
		0, // pClassLinkage
		uintptr(unsafe.Pointer(&shader)),
	)

	return shader, hresult("ID3D11Device::CreatePixelShader", r)
}

func (d *iD3D11Device) CreateRasterizerState(desc *rasterizerDesc) (unsafe.Pointer, error) {
	var state unsafe.Pointer
	r, _, _ := syscall.SyscallN(d.vtbl.CreateRasterizerState, d.this(),
		uintptr(unsafe.Pointer(desc)),
		uintptr(unsafe.Pointer(&state)),
	)

	return state, hresult("ID3D11Device::CreateRasterizerState", r)
}

func (d *iD3D11Device) CreateDepthStencilState(desc *depthStencilDesc) (unsafe.Pointer, error) {
	var state unsafe.Pointer
	r, _, _ := syscall.SyscallN(d.vtbl.CreateDepthStencilState, d.this(),
		uintptr(unsafe.Pointer(desc)),
		uintptr(unsafe.Pointer(&state)),
	)

	return state, hresult("ID3D11Device::CreateDepthStencilState", r)
}

func (d *iD3D11Device) GetDeviceRemovedReason() error {
	r, _, _ := syscall.SyscallN(d.vtbl.GetDeviceRemovedReason, d.this())
	return hresult("ID3D11Device::GetDeviceRemovedReason", r)
}

type iD3D11DeviceContext struct {
	vtbl *struct {
		unknownVtbl
		GetDevice                                 uintptr
		GetPrivateData                            uintptr
		SetPrivateData                            uintptr
		SetPrivateDataInterface                   uintptr
		VSSetConstantBuffers                      uintptr
		PSSetShaderResources                      uintptr
		PSSetShader                               uintptr
		PSSetSamplers                             uintptr
		VSSetShader                               uintptr
		DrawIndexed                               uintptr
		Draw                                      uintptr
		Map                                       uintptr
		Unmap                                     uintptr
		PSSetConstantBuffers                      uintptr
		IASetInputLayout                          uintptr
		IASetVertexBuffers                        uintptr
		IASetIndexBuffer                          uintptr
		DrawIndexedInstanced                      uintptr
		DrawInstanced                             uintptr
		GSSetConstantBuffers                      uintptr
		GSSetShader                               uintptr
		IASetPrimitiveTopology                    uintptr
		VSSetShaderResources                      uintptr
		VSSetSamplers                             uintptr
		Begin                                     uintptr
		End                                       uintptr
		GetData                                   uintptr
		SetPredication                            uintptr
		GSSetShaderResources                      uintptr
		GSSetSamplers                             uintptr
		OMSetRenderTargets                        uintptr
		OMSetRenderTargetsAndUnorderedAccessViews uintptr
		OMSetBlendState                           uintptr
		OMSetDepthStencilState                    uintptr
		SOSetTargets                              uintptr
		DrawAuto                                  uintptr
		DrawIndexedInstancedIndirect              uintptr
		DrawInstancedIndirect                     uintptr
		Dispatch                                  uintptr
		DispatchIndirect                          uintptr
		RSSetState                                uintptr
		RSSetViewports                            uintptr
		RSSetScissorRects                         uintptr
		CopySubresourceRegion                     uintptr
		CopyResource                              uintptr
		UpdateSubresource                         uintptr
		CopyStructureCount                        uintptr
		ClearRenderTargetView                     uintptr
		ClearUnorderedAccessViewUint              uintptr
		ClearUnorderedAccessViewFloat             uintptr
		ClearDepthStencilView                     uintptr
		GenerateMips                              uintptr
		SetResourceMinLOD                         uintptr
		GetResourceMinLOD                         uintptr
		ResolveSubresource                        uintptr
		ExecuteCommandList                        uintptr
		HSSetShaderResources                      uintptr
		HSSetShader                               uintptr
		HSSetSamplers                             uintptr
		HSSetConstantBuffers                      uintptr
		DSSetShaderResources                      uintptr
		DSSetShader                               uintptr
		DSSetSamplers                             uintptr
		DSSetConstantBuffers                      uintptr
		CSSetShaderResources                      uintptr
		CSSetUnorderedAccessViews                 uintptr
		CSSetShader                               uintptr
		CSSetSamplers                             uintptr
		CSSetConstantBuffers                      uintptr
		VSGetConstantBuffers                      uintptr
		PSGetShaderResources                      uintptr
		PSGetShader                               uintptr
		PSGetSamplers                             uintptr
		VSGetShader                               uintptr
		PSGetConstantBuffers                      uintptr
		IAGetInputLayout                          uintptr
		IAGetVertexBuffers                        uintptr
		IAGetIndexBuffer                          uintptr
		GSGetConstantBuffers                      uintptr
		GSGetShader                               uintptr
		IAGetPrimitiveTopology                    uintptr
		VSGetShaderResources                      uintptr
		VSGetSamplers                             uintptr
		GetPredication                            uintptr
		GSGetShaderResources                      uintptr
		GSGetSamplers                             uintptr
		OMGetRenderTargets                        uintptr
		OMGetRenderTargetsAndUnorderedAccessViews uintptr
		OMGetBlendState                           uintptr
		OMGetDepthStencilState                    uintptr
		SOGetTargets                              uintptr
		RSGetState                                uintptr
		RSGetViewports                            uintptr
		RSGetScissorRects                         uintptr
		HSGetShaderResources                      uintptr
		HSGetShader                               uintptr
		HSGetSamplers                             uintptr
		HSGetConstantBuffers                      uintptr
		DSGetShaderResources                      uintptr
		DSGetShader                               uintptr
		DSGetSamplers                             uintptr
		DSGetConstantBuffers                      uintptr
		CSGetShaderResources                      uintptr
		CSGetUnorderedAccessViews                 uintptr
		CSGetShader                               uintptr
		CSGetSamplers                             uintptr
		CSGetConstantBuffers                      uintptr
		ClearState                                uintptr
		Flush                                     uintptr
		GetType                                   uintptr
		GetContextFlags                           uintptr
		FinishCommandList                         uintptr
	}
}

func (c *iD3D11DeviceContext) this() uintptr {
	return uintptr(unsafe.Pointer(c))
}

func (c *iD3D11DeviceContext) ClearRenderTargetView(view unsafe.Pointer, color *[4]float32) {
	syscall.SyscallN(c.vtbl.ClearRenderTargetView, c.this(), uintptr(view), uintptr(unsafe.Pointer(color)))
}

func (c *iD3D11DeviceContext) ClearDepthStencilView(view unsafe.Pointer, flags uint32, depth float32, stencil uint8) {
	syscall.SyscallN(c.vtbl.ClearDepthStencilView, c.this(),
		uintptr(view),
		uintptr(flags),
		uintptr(math.Float32bits(depth)),
		uintptr(stencil),
	)
}

func (c *iD3D11DeviceContext) OMSetRenderTargets(color, depth unsafe.Pointer) {
	var count uintptr
	if color != nil {
		count = 1
	}

	syscall.SyscallN(c.vtbl.OMSetRenderTargets, c.this(),
		count,
		uintptr(unsafe.Pointer(&color)),
		uintptr(depth),
	)
}

func (c *iD3D11DeviceContext) RSSetViewports(vp *viewport) {
	syscall.SyscallN(c.vtbl.RSSetViewports, c.this(), 1, uintptr(unsafe.Pointer(vp)))
}

func (c *iD3D11DeviceContext) RSSetState(state unsafe.Pointer) {
	syscall.SyscallN(c.vtbl.RSSetState, c.this(), uintptr(state))
}

func (c *iD3D11DeviceContext) OMSetDepthStencilState(state unsafe.Pointer, stencilRef uint32) {
	syscall.SyscallN(c.vtbl.OMSetDepthStencilState, c.this(), uintptr(state), uintptr(stencilRef))
}

func (c *iD3D11DeviceContext) IASetInputLayout(layout unsafe.Pointer) {
	syscall.SyscallN(c.vtbl.IASetInputLayout, c.this(), uintptr(layout))
}

func (c *iD3D11DeviceContext) IASetVertexBuffers(slot uint32, buf unsafe.Pointer, stride, offset uint32) {
	syscall.SyscallN(c.vtbl.IASetVertexBuffers, c.this(),
		uintptr(slot),
		1, // NumBuffers
		uintptr(unsafe.Pointer(&buf)),
		uintptr(unsafe.Pointer(&stride)),
		uintptr(unsafe.Pointer(&offset)),
	)
}

func (c *iD3D11DeviceContext) IASetIndexBuffer(buf unsafe.Pointer, format, offset uint32) {
	syscall.SyscallN(c.vtbl.IASetIndexBuffer, c.this(), uintptr(buf), uintptr(format), uintptr(offset))
}

func (c *iD3D11DeviceContext) IASetPrimitiveTopology(topology uint32) {
	syscall.SyscallN(c.vtbl.IASetPrimitiveTopology, c.this(), uintptr(topology))
}

func (c *iD3D11DeviceContext) VSSetShader(shader unsafe.Pointer) {
	syscall.SyscallN(c.vtbl.VSSetShader, c.this(), uintptr(shader), 0, 0)
}

func (c *iD3D11DeviceContext) PSSetShader(shader unsafe.Pointer) {
	syscall.SyscallN(c.vtbl.PSSetShader, c.this(), uintptr(shader), 0, 0)
}

func (c *iD3D11DeviceContext) VSSetConstantBuffers(slot uint32, buf unsafe.Pointer) {
	syscall.SyscallN(c.vtbl.VSSetConstantBuffers, c.this(), uintptr(slot), 1, uintptr(unsafe.Pointer(&buf)))
}

func (c *iD3D11DeviceContext) PSSetConstantBuffers(slot uint32, buf unsafe.Pointer) {
	syscall.SyscallN(c.vtbl.PSSetConstantBuffers, c.this(), uintptr(slot), 1, uintptr(unsafe.Pointer(&buf)))
}

func (c *iD3D11DeviceContext) Map(res unsafe.Pointer, mapType uint32) (mappedSubresource, error) {
	var mapped mappedSubresource
	r, _, _ := syscall.SyscallN(c.vtbl.Map, c.this(),
		uintptr(res),
		0, // Subresource
		uintptr(mapType),
		0, // MapFlags
		uintptr(unsafe.Pointer(&mapped)),
	)

	return mapped, hresult("ID3D11DeviceContext::Map", r)
}

func (c *iD3D11DeviceContext) Unmap(res unsafe.Pointer) {
	syscall.SyscallN(c.vtbl.Unmap, c.this(), uintptr(res), 0)
}

func (c *iD3D11DeviceContext) Draw(count, start uint32) {
	syscall.SyscallN(c.vtbl.Draw, c.this(), uintptr(count), uintptr(start))
}

func (c *iD3D11DeviceContext) DrawIndexed(count, start uint32, base int32) {
	syscall.SyscallN(c.vtbl.DrawIndexed, c.this(), uintptr(count), uintptr(start), uintptr(base))
}

func (c *iD3D11DeviceContext) ClearState() {
	syscall.SyscallN(c.vtbl.ClearState, c.this())
}

func (c *iD3D11DeviceContext) Flush() {
	syscall.SyscallN(c.vtbl.Flush, c.this())
}

type iDXGIObjectVtbl struct {
	unknownVtbl
	SetPrivateData          uintptr
	SetPrivateDataInterface uintptr
	GetPrivateData          uintptr
	GetParent               uintptr
}

type iDXGIDevice struct {
	vtbl *struct {
		iDXGIObjectVtbl
		GetAdapter             uintptr
		CreateSurface          uintptr
		QueryResourceResidency uintptr
		SetGPUThreadPriority   uintptr
		GetGPUThreadPriority   uintptr
	}
}

func (d *iDXGIDevice) GetAdapter() (*iDXGIAdapter, error) {
	var adapter *iDXGIAdapter
	r, _, _ := syscall.SyscallN(d.vtbl.GetAdapter, uintptr(unsafe.Pointer(d)), uintptr(unsafe.Pointer(&adapter)))
	return adapter, hresult("IDXGIDevice::GetAdapter", r)
}

type iDXGIAdapter struct {
	vtbl *struct {
		iDXGIObjectVtbl
		EnumOutputs           uintptr
		GetDesc               uintptr
		CheckInterfaceSupport uintptr
	}
}

func (a *iDXGIAdapter) GetDesc() (dxgiAdapterDesc, error) {
	var desc dxgiAdapterDesc
	r, _, _ := syscall.SyscallN(a.vtbl.GetDesc, uintptr(unsafe.Pointer(a)), uintptr(unsafe.Pointer(&desc)))
	return desc, hresult("IDXGIAdapter::GetDesc", r)
}

func (a *iDXGIAdapter) GetParent(iid *guid) (unsafe.Pointer, error) {
	var parent unsafe.Pointer
	r, _, _ := syscall.SyscallN(a.vtbl.GetParent, uintptr(unsafe.Pointer(a)),
		uintptr(unsafe.Pointer(iid)),
		uintptr(unsafe.Pointer(&parent)),
	)

	return parent, hresult("IDXGIObject::GetParent", r)
}

type iDXGIFactory struct {
	vtbl *struct {
		iDXGIObjectVtbl
		EnumAdapters          uintptr
		MakeWindowAssociation uintptr
		GetWindowAssociation  uintptr
		CreateSwapChain       uintptr
		CreateSoftwareAdapter uintptr
	}
}

func (f *iDXGIFactory) CreateSwapChain(device unsafe.Pointer, desc *dxgiSwapChainDesc) (*iDXGISwapChain, error) {
	var chain *iDXGISwapChain
	r, _, _ := syscall.SyscallN(f.vtbl.CreateSwapChain, uintptr(unsafe.Pointer(f)),
		uintptr(device),
		uintptr(unsafe.Pointer(desc)),
		uintptr(unsafe.Pointer(&chain)),
	)

	return chain, hresult("IDXGIFactory::CreateSwapChain", r)
}

const dxgiMWANoAltEnter = 1 << 1

func (f *iDXGIFactory) MakeWindowAssociation(hwnd uintptr, flags uint32) error {
	r, _, _ := syscall.SyscallN(f.vtbl.MakeWindowAssociation, uintptr(unsafe.Pointer(f)), hwnd, uintptr(flags))
	return hresult("IDXGIFactory::MakeWindowAssociation", r)
}

type iDXGISwapChain struct {
	vtbl *struct {
		iDXGIObjectVtbl
		GetDevice           uintptr
		Present             uintptr
		GetBuffer           uintptr
		SetFullscreenState  uintptr
		GetFullscreenState  uintptr
		GetDesc             uintptr
		ResizeBuffers       uintptr
		ResizeTarget        uintptr
		GetContainingOutput uintptr
		GetFrameStatistics  uintptr
		GetLastPresentCount uintptr
	}
}

func (s *iDXGISwapChain) this() uintptr {
	return uintptr(unsafe.Pointer(s))
}

func (s *iDXGISwapChain) Present(syncInterval, flags uint32) error {
	r, _, _ := syscall.SyscallN(s.vtbl.Present, s.this(), uintptr(syncInterval), uintptr(flags))
	return hresult("IDXGISwapChain::Present", r)
}

func (s *iDXGISwapChain) GetBuffer(idx uint32, iid *guid) (unsafe.Pointer, error) {
	var buf unsafe.Pointer
	r, _, _ := syscall.SyscallN(s.vtbl.GetBuffer, s.this(),
		uintptr(idx),
		uintptr(unsafe.Pointer(iid)),
		uintptr(unsafe.Pointer(&buf)),
	)

	return buf, hresult("IDXGISwapChain::GetBuffer", r)
}

func (s *iDXGISwapChain) ResizeBuffers(count, width, height, format, flags uint32) error {
	r, _, _ := syscall.SyscallN(s.vtbl.ResizeBuffers, s.this(),
		uintptr(count),
		uintptr(width),
		uintptr(height),
		uintptr(format),
		uintptr(flags),
	)

	return hresult("IDXGISwapChain::ResizeBuffers", r)
}

type iD3DBlob struct {
	vtbl *struct {
		unknownVtbl
		GetBufferPointer uintptr
		GetBufferSize    uintptr
	}
}

// Bytes copies the contents of the blob.
func (b *iD3DBlob) Bytes() []byte {
	ptr, _, _ := syscall.SyscallN(b.vtbl.GetBufferPointer, uintptr(unsafe.Pointer(b)))
	size, _, _ := syscall.SyscallN(b.vtbl.GetBufferSize, uintptr(unsafe.Pointer(b)))

	return append([]byte(nil), unsafe.Slice((*byte)(unsafe.Pointer(ptr)), size)...)
}

type iD3D11InfoQueue struct {
	vtbl *struct {
		unknownVtbl
		SetMessageCountLimit                         uintptr
		ClearStoredMessages                          uintptr
		GetMessage                                   uintptr
		GetNumMessagesAllowedByStorageFilter         uintptr
		GetNumMessagesDeniedByStorageFilter          uintptr
		GetNumStoredMessages                         uintptr
		GetNumStoredMessagesAllowedByRetrievalFilter uintptr
		GetNumMessagesDiscardedByMessageCountLimit   uintptr
		GetMessageCountLimit                         uintptr
	}
}

type d3d11Message struct {
	Category          int32
	Severity          int32
	ID                int32
	Description       *byte
	DescriptionLength uintptr
}

func (q *iD3D11InfoQueue) this() uintptr {
	return uintptr(unsafe.Pointer(q))
}

func (q *iD3D11InfoQueue) NumStoredMessages() uint64 {
	r, _, _ := syscall.SyscallN(q.vtbl.GetNumStoredMessages, q.this())
	return uint64(r)
}

// Message returns the stored message with the given index.
func (q *iD3D11InfoQueue) Message(idx uint64) (severity int32, id int32, text string, err error) {
	var size uintptr
	r, _, _ := syscall.SyscallN(q.vtbl.GetMessage, q.this(), uintptr(idx), 0, uintptr(unsafe.Pointer(&size)))
	if err := hresult("ID3D11InfoQueue::GetMessage", r); err != nil {
		return 0, 0, "", err
	}

	// the message struct is followed by its description
	buf := make([]uintptr, (size+unsafe.Sizeof(uintptr(0))-1)/unsafe.Sizeof(uintptr(0)))
	msg := (*d3d11Message)(unsafe.Pointer(&buf[0]))

	r, _, _ = syscall.SyscallN(q.vtbl.GetMessage, q.this(), uintptr(idx), uintptr(unsafe.Pointer(msg)), uintptr(unsafe.Pointer(&size)))
	if err := hresult("ID3D11InfoQueue::GetMessage", r); err != nil {
		return 0, 0, "", err
	}

	text = windows.BytePtrToString(msg.Description)

	return msg.Severity, msg.ID, text, nil
}

func (q *iD3D11InfoQueue) ClearStoredMessages() {
	syscall.SyscallN(q.vtbl.ClearStoredMessages, q.this())
}
