package wgpu

import (
	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/webgpu/wgpu"
)

func bufferUsage(desc gfx.BufferDesc) wgpu.BufferUsage {
	usage := wgpu.BufferUsageCopyDst

	if desc.Bind&gfx.BindVertexBuffer != 0 {
		usage |= wgpu.BufferUsageVertex
	}

	if desc.Bind&gfx.BindIndexBuffer != 0 {
		usage |= wgpu.BufferUsageIndex
	}

	if desc.Bind&gfx.BindConstantBuffer != 0 {
		usage |= wgpu.BufferUsageUniform
	}

	return usage
}

func textureUsage(bind gfx.BindFlags) wgpu.TextureUsage {
	var usage wgpu.TextureUsage

	if bind&(gfx.BindRenderTarget|gfx.BindDepthStencil) != 0 {
		usage |= wgpu.TextureUsageRenderAttachment
	}

	if bind&gfx.BindShaderResource != 0 {
		usage |= wgpu.TextureUsageTextureBinding
	}

	return usage
}

func textureFormat(format gfx.Format) (wgpu.TextureFormat, bool) {
	switch format {
	case gfx.FormatR8G8B8A8Unorm:
		return wgpu.TextureFormatRGBA8Unorm, true
	case gfx.FormatB8G8R8A8Unorm:
		return wgpu.TextureFormatBGRA8Unorm, true
	case gfx.FormatD24UnormS8Uint:
		return wgpu.TextureFormatDepth24PlusStencil8, true
	case gfx.FormatR32Float:
		return wgpu.TextureFormatR32Float, true
	case gfx.FormatR32G32B32A32Float:
		return wgpu.TextureFormatRGBA32Float, true
	default:
		return wgpu.TextureFormatUndefined, false
	}
}

func vertexFormat(format gfx.Format) (wgpu.VertexFormat, bool) {
	switch format {
	case gfx.FormatR32G32B32A32Float:
		return wgpu.VertexFormatFloat32x4, true
	case gfx.FormatR32G32B32Float:
		return wgpu.VertexFormatFloat32x3, true
	case gfx.FormatR32G32Float:
		return wgpu.VertexFormatFloat32x2, true
	case gfx.FormatR32Float:
		return wgpu.VertexFormatFloat32, true
	case gfx.FormatR32Uint:
		return wgpu.VertexFormatUint32, true
	case gfx.FormatR8G8B8A8Unorm:
		return wgpu.VertexFormatUnorm8x4, true
	default:
		return 0, false
	}
}

func indexFormat(format gfx.Format) (wgpu.IndexFormat, bool) {
	switch format {
	case gfx.FormatR32Uint:
		return wgpu.IndexFormatUint32, true
	case gfx.FormatR16Uint:
		return wgpu.IndexFormatUint16, true
	default:
		return wgpu.IndexFormatUndefined, false
	}
}

func primitiveTopology(topology gfx.Topology) (wgpu.PrimitiveTopology, bool) {
	switch topology {
	case gfx.PointList:
		return wgpu.PrimitiveTopologyPointList, true
	case gfx.LineList:
		return wgpu.PrimitiveTopologyLineList, true
	case gfx.LineStrip:
		return wgpu.PrimitiveTopologyLineStrip, true
	case gfx.TriangleList:
		return wgpu.PrimitiveTopologyTriangleList, true
	case gfx.TriangleStrip:
		return wgpu.PrimitiveTopologyTriangleStrip, true
	default:
		return wgpu.PrimitiveTopologyTriangleList, false
	}
}

func isStrip(topology gfx.Topology) bool {
	return topology == gfx.LineStrip || topology == gfx.TriangleStrip
}

func cullMode(cull gfx.CullMode) wgpu.CullMode {
	switch cull {
	case gfx.CullFront:
		return wgpu.CullModeFront
	case gfx.CullBack:
		return wgpu.CullModeBack
	default:
		return wgpu.CullModeNone
	}
}

func frontFace(desc gfx.RasterizerDesc) wgpu.FrontFace {
	if desc.FrontCounterClockwise {
		return wgpu.FrontFaceCCW
	}

	return wgpu.FrontFaceCW
}

func compareFunction(f gfx.ComparisonFunc) wgpu.CompareFunction {
	switch f {
	case gfx.CompareNever:
		return wgpu.CompareFunctionNever
	case gfx.CompareLess:
		return wgpu.CompareFunctionLess
	case gfx.CompareEqual:
		return wgpu.CompareFunctionEqual
	case gfx.CompareLessEqual:
		return wgpu.CompareFunctionLessEqual
	case gfx.CompareGreater:
		return wgpu.CompareFunctionGreater
	case gfx.CompareNotEqual:
		return wgpu.CompareFunctionNotEqual
	case gfx.CompareGreaterEqual:
		return wgpu.CompareFunctionGreaterEqual
	default:
		return wgpu.CompareFunctionAlways
	}
}

var stencilKeep = wgpu.StencilFaceState{
	Compare:     wgpu.CompareFunctionAlways,
	FailOp:      wgpu.StencilOperationKeep,
	DepthFailOp: wgpu.StencilOperationKeep,
	PassOp:      wgpu.StencilOperationKeep,
}

func optionalBool(value bool) wgpu.OptionalBool {
	if value {
		return wgpu.OptionalBoolTrue
	}

	return wgpu.OptionalBoolFalse
}
