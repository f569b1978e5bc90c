package gfx

//go:generate go tool stringer -type=Topology,CullMode -output=enums_string.go

// Usage describes how a resource is accessed by the CPU and the GPU.
type Usage uint32

const (
	// UsageDefault resources are read and written by the GPU only.
	UsageDefault Usage = iota

	// UsageImmutable resources are initialized at creation and never change.
	UsageImmutable

	// UsageDynamic resources are written by the CPU every frame through Map.
	UsageDynamic

	UsageStaging
)

type BindFlags uint32

const (
	BindVertexBuffer   BindFlags = 0x1
	BindIndexBuffer    BindFlags = 0x2
	BindConstantBuffer BindFlags = 0x4
	BindShaderResource BindFlags = 0x8
	BindRenderTarget   BindFlags = 0x20
	BindDepthStencil   BindFlags = 0x40
)

type BufferDesc struct {
	Label     string
	ByteWidth uint32
	Usage     Usage
	Bind      BindFlags
}

type Texture2DDesc struct {
	Label       string
	Width       uint32
	Height      uint32
	Format      Format
	Bind        BindFlags
	SampleCount uint32
}

// InputElement describes one vertex attribute, matched by semantic name
// against the input signature of the vertex shader.
type InputElement struct {
	Semantic      string
	SemanticIndex uint32
	Format        Format
	Slot          uint32
	Offset        uint32
}

// Topology is the primitive topology used to assemble vertices.
// The values match D3D11_PRIMITIVE_TOPOLOGY.
type Topology uint32

const (
	PointList     Topology = 1
	LineList      Topology = 2
	LineStrip     Topology = 3
	TriangleList  Topology = 4
	TriangleStrip Topology = 5
)

// Primitives returns the number of primitives assembled from n vertices.
func (t Topology) Primitives(n uint32) uint32 {
	switch t {
	case PointList:
		return n
	case LineList:
		return n / 2
	case LineStrip:
		if n < 2 {
			return 0
		}
		return n - 1
	case TriangleList:
		return n / 3
	case TriangleStrip:
		if n < 3 {
			return 0
		}
		return n - 2
	default:
		return 0
	}
}

type FillMode uint32

const (
	FillWireframe FillMode = 2
	FillSolid     FillMode = 3
)

type CullMode uint32

const (
	CullNone  CullMode = 1
	CullFront CullMode = 2
	CullBack  CullMode = 3
)

type RasterizerDesc struct {
	Fill FillMode
	Cull CullMode

	// FrontCounterClockwise treats counter-clockwise triangles as front
	// facing. The default treats clockwise triangles as front facing.
	FrontCounterClockwise bool

	DepthClip bool
}

// DefaultRasterizerDesc matches the default rasterizer state of Direct3D 11.
var DefaultRasterizerDesc = RasterizerDesc{
	Fill:      FillSolid,
	Cull:      CullBack,
	DepthClip: true,
}

type ComparisonFunc uint32

const (
	CompareNever        ComparisonFunc = 1
	CompareLess         ComparisonFunc = 2
	CompareEqual        ComparisonFunc = 3
	CompareLessEqual    ComparisonFunc = 4
	CompareGreater      ComparisonFunc = 5
	CompareNotEqual     ComparisonFunc = 6
	CompareGreaterEqual ComparisonFunc = 7
	CompareAlways       ComparisonFunc = 8
)

// Test reports whether value passes the comparison against reference.
func (f ComparisonFunc) Test(value, reference float32) bool {
	switch f {
	case CompareNever:
		return false
	case CompareLess:
		return value < reference
	case CompareEqual:
		return value == reference
	case CompareLessEqual:
		return value <= reference
	case CompareGreater:
		return value > reference
	case CompareNotEqual:
		return value != reference
	case CompareGreaterEqual:
		return value >= reference
	default:
		return true
	}
}

type DepthStencilDesc struct {
	DepthEnable bool
	DepthWrite  bool
	DepthFunc   ComparisonFunc
}

type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

type SwapChainDesc struct {
	Width       uint32
	Height      uint32
	Format      Format
	BufferCount uint32
	SampleCount uint32
	Windowed    bool
}
