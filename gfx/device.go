package gfx

// Releaser is implemented by every object created by a device. Releasing an
// object twice has no effect.
type Releaser interface {
	Release()
}

type Buffer interface {
	Releaser
	Desc() BufferDesc
}

type Texture2D interface {
	Releaser
	Desc() Texture2DDesc
}

type RenderTargetView interface {
	Releaser
	Texture() Texture2D
}

type DepthStencilView interface {
	Releaser
	Texture() Texture2D
}

// Blob holds a compiled shader together with its entry point and profile.
type Blob interface {
	Releaser
	Bytes() []byte
	EntryPoint() string
	Profile() string
}

type VertexShader interface {
	Releaser
}

type PixelShader interface {
	Releaser
}

type InputLayout interface {
	Releaser
}

type RasterizerState interface {
	Releaser
	Desc() RasterizerDesc
}

type DepthStencilState interface {
	Releaser
	Desc() DepthStencilDesc
}

// ShaderLanguage is the source language a device compiles.
type ShaderLanguage uint8

const (
	LanguageHLSL ShaderLanguage = iota
	LanguageWGSL
)

// Window is the host window a swap chain presents to.
type Window interface {
	// NativeHandle returns the platform window handle (a HWND on windows).
	NativeHandle() uintptr

	// ClientSize returns the size of the drawable area in pixels.
	ClientSize() (width, height uint32)
}

// Device creates resources and state objects. Objects created by one device
// must not be used with another device.
type Device interface {
	Releaser

	FeatureLevel() FeatureLevel
	AdapterInfo() AdapterInfo
	ShaderLanguage() ShaderLanguage

	// Debug reports whether the validation layer is active.
	Debug() bool

	// ImmediateContext returns the command recorder of the device.
	ImmediateContext() Context

	// CreateBuffer creates a buffer. Immutable buffers must be created with
	// their initial data, which is copied before CreateBuffer returns.
	CreateBuffer(desc BufferDesc, data []byte) (Buffer, error)

	CreateTexture2D(desc Texture2DDesc) (Texture2D, error)
	CreateRenderTargetView(tex Texture2D) (RenderTargetView, error)
	CreateDepthStencilView(tex Texture2D) (DepthStencilView, error)

	// CompileShader compiles the entry point of a shader source for the
	// given profile, e.g. "vs_4_0". Failures are of type *CompileError.
	CompileShader(source []byte, name, entryPoint, profile string) (Blob, error)

	CreateVertexShader(blob Blob) (VertexShader, error)
	CreatePixelShader(blob Blob) (PixelShader, error)

	// CreateInputLayout validates the elements against the input signature
	// of the vertex shader blob.
	CreateInputLayout(elements []InputElement, vertexShader Blob) (InputLayout, error)

	CreateRasterizerState(desc RasterizerDesc) (RasterizerState, error)
	CreateDepthStencilState(desc DepthStencilDesc) (DepthStencilState, error)

	CreateSwapChain(win Window, desc SwapChainDesc) (SwapChain, error)
}

// Context records rendering commands. Commands are executed in order;
// Flush submits everything recorded so far.
type Context interface {
	ClearRenderTargetView(view RenderTargetView, color [4]float32)
	ClearDepthStencilView(view DepthStencilView, depth float32, stencil uint8)

	SetRenderTargets(color RenderTargetView, depth DepthStencilView)
	SetViewport(vp Viewport)
	SetRasterizerState(state RasterizerState)
	SetDepthStencilState(state DepthStencilState)

	SetInputLayout(layout InputLayout)
	SetVertexBuffer(slot uint32, buf Buffer, stride, offset uint32)
	SetIndexBuffer(buf Buffer, format Format, offset uint32)
	SetPrimitiveTopology(topology Topology)

	SetVertexShader(shader VertexShader)
	SetPixelShader(shader PixelShader)
	SetVSConstantBuffer(slot uint32, buf Buffer)
	SetPSConstantBuffer(slot uint32, buf Buffer)

	// Map maps a dynamic buffer for writing, discarding its previous
	// contents. The returned slice is valid until Unmap.
	Map(buf Buffer) ([]byte, error)
	Unmap(buf Buffer)

	Draw(vertexCount, startVertex uint32)
	DrawIndexed(indexCount, startIndex uint32, baseVertex int32)

	// ClearState unbinds all state from the pipeline.
	ClearState()
	Flush()
}

// SwapChain rotates the back buffers of a window.
type SwapChain interface {
	Releaser

	Desc() SwapChainDesc

	// Buffer returns the back buffer with the given index. With the discard
	// swap effect only buffer 0 is accessible, it always refers to the
	// buffer rendered to next.
	Buffer(idx uint32) (Texture2D, error)

	// ResizeBuffers resizes all buffers in place, keeping count and format.
	// It fails with ErrInvalidCall while views of the buffers are alive.
	ResizeBuffers(width, height uint32) error

	// Present shows the back buffer. With a sync interval of 1 it waits for
	// the next vertical refresh, with 0 it returns immediately.
	Present(syncInterval uint32) error

	// CurrentBackBufferIndex returns the index of the buffer rendered to next.
	CurrentBackBufferIndex() uint32
}

// Severity of a validation message.
type Severity uint8

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityCorruption
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "CORRUPTION"
	}
}

type Message struct {
	Severity Severity
	ID       string
	Text     string
}

// InfoQueue is implemented by devices opened with the validation layer.
type InfoQueue interface {
	Messages() []Message
	ClearMessages()
}

type PipelineStatistics struct {
	IAVertices    uint64
	IAPrimitives  uint64
	VSInvocations uint64
	CInvocations  uint64
	CPrimitives   uint64
	PSInvocations uint64
}

// StatisticsReader is implemented by contexts that count pipeline statistics.
type StatisticsReader interface {
	PipelineStatistics() PipelineStatistics
	ResetPipelineStatistics()
}
