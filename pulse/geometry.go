package pulse

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"structs"

	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/prism/glm"
)

// Vertex is the vertex format of the lesson meshes: 12 bytes position and
// 16 bytes color, without padding.
type Vertex struct {
	_ structs.HostLayout

	Position glm.Vec3f
	Color    glm.Vec4f
}

// VertexStride is the size of a marshaled Vertex in bytes.
const VertexStride = 28

// VertexLayout describes a Vertex to the input assembler.
var VertexLayout = []gfx.InputElement{
	{Semantic: "POSITION", Format: gfx.FormatR32G32B32Float, Offset: 0},
	{Semantic: "COLOR", Format: gfx.FormatR32G32B32A32Float, Offset: 12},
}

// MarshalVertices encodes the vertices in their on disk format.
func MarshalVertices(vertices []Vertex) []byte {
	buf := make([]byte, 0, len(vertices)*VertexStride)

	for _, v := range vertices {
		for _, f := range v.Position {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}

		for _, f := range v.Color {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
	}

	return buf
}

func UnmarshalVertices(buf []byte) ([]Vertex, error) {
	if len(buf)%VertexStride != 0 {
		return nil, fmt.Errorf("vertex data of %d bytes is not a multiple of %d", len(buf), VertexStride)
	}

	vertices := make([]Vertex, len(buf)/VertexStride)

	for idx := range vertices {
		rec := buf[idx*VertexStride:]

		var values [7]float32
		for c := range values {
			values[c] = math.Float32frombits(binary.LittleEndian.Uint32(rec[c*4:]))
		}

		vertices[idx].Position = glm.Vec3f(values[:3])
		vertices[idx].Color = glm.Vec4f(values[3:])
	}

	return vertices, nil
}

// MarshalIndices encodes the indices as little endian 32 bit values.
func MarshalIndices(indices []uint32) []byte {
	buf := make([]byte, 0, len(indices)*4)

	for _, idx := range indices {
		buf = binary.LittleEndian.AppendUint32(buf, idx)
	}

	return buf
}

func UnmarshalIndices(buf []byte) ([]uint32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("index data of %d bytes is not a multiple of 4", len(buf))
	}

	indices := make([]uint32, len(buf)/4)
	for idx := range indices {
		indices[idx] = binary.LittleEndian.Uint32(buf[idx*4:])
	}

	return indices, nil
}

// VertexBuffer is an immutable buffer of fixed stride vertices.
type VertexBuffer struct {
	buffer gfx.Buffer
	Stride uint32
	Count  uint32
}

// UploadVertices copies the vertex data into an immutable buffer. The
// caller may reuse data as soon as UploadVertices returns.
func UploadVertices(ctx *Context, data []byte, stride uint32) (*VertexBuffer, error) {
	if stride == 0 || len(data) == 0 || len(data)%int(stride) != 0 {
		err := fmt.Errorf("%d bytes of vertex data with stride %d", len(data), stride)
		return nil, newError(ErrBufferUpload, "geometry", "upload vertices", err)
	}

	buffer, err := ctx.CreateBuffer(gfx.BufferDesc{
		Label:     "Vertices",
		ByteWidth: uint32(len(data)),
		Usage:     gfx.UsageImmutable,
		Bind:      gfx.BindVertexBuffer,
	}, data)

	if err != nil {
		return nil, newError(ErrBufferUpload, "geometry", "upload vertices", err)
	}

	vb := &VertexBuffer{
		buffer: buffer,
		Stride: stride,
		Count:  uint32(len(data)) / stride,
	}

	slog.Debug("Vertices uploaded", slog.Int("count", int(vb.Count)), slog.Int("stride", int(stride)))

	return vb, nil
}

// UploadVertexSlice uploads vertices in the Vertex format.
func UploadVertexSlice(ctx *Context, vertices []Vertex) (*VertexBuffer, error) {
	return UploadVertices(ctx, MarshalVertices(vertices), VertexStride)
}

func (vb *VertexBuffer) Release() {
	if vb != nil && vb.buffer != nil {
		vb.buffer.Release()
		vb.buffer = nil
	}
}

// IndexBuffer is an immutable buffer of 32 bit indices.
type IndexBuffer struct {
	buffer gfx.Buffer
	Count  uint32
}

// UploadIndices copies the indices into an immutable buffer. On devices
// with the validation layer every index is checked against vertexCount.
func UploadIndices(ctx *Context, indices []uint32, vertexCount uint32) (*IndexBuffer, error) {
	if len(indices) == 0 {
		return nil, newError(ErrBufferUpload, "geometry", "upload indices", errors.New("no indices"))
	}

	if ctx.Debug() {
		for pos, idx := range indices {
			if idx >= vertexCount {
				err := fmt.Errorf("index %d at position %d, only %d vertices", idx, pos, vertexCount)
				return nil, newError(ErrIndexOutOfRange, "geometry", "upload indices", err)
			}
		}
	}

	buffer, err := ctx.CreateBuffer(gfx.BufferDesc{
		Label:     "Indices",
		ByteWidth: uint32(len(indices) * 4),
		Usage:     gfx.UsageImmutable,
		Bind:      gfx.BindIndexBuffer,
	}, MarshalIndices(indices))

	if err != nil {
		return nil, newError(ErrBufferUpload, "geometry", "upload indices", err)
	}

	return &IndexBuffer{buffer: buffer, Count: uint32(len(indices))}, nil
}

func (ib *IndexBuffer) Release() {
	if ib != nil && ib.buffer != nil {
		ib.buffer.Release()
		ib.buffer = nil
	}
}

// Geometry is an indexed mesh on the GPU.
type Geometry struct {
	Vertices *VertexBuffer
	Indices  *IndexBuffer
}

// UploadMesh uploads vertices and indices of a mesh.
func UploadMesh(ctx *Context, vertices []Vertex, indices []uint32) (*Geometry, error) {
	vb, err := UploadVertexSlice(ctx, vertices)
	if err != nil {
		return nil, err
	}

	ib, err := UploadIndices(ctx, indices, uint32(len(vertices)))
	if err != nil {
		vb.Release()
		return nil, err
	}

	return &Geometry{Vertices: vb, Indices: ib}, nil
}

// BindGeometry binds the vertex buffer to slot 0 and the index buffer.
func BindGeometry(rec gfx.Context, vb *VertexBuffer, ib *IndexBuffer) {
	rec.SetVertexBuffer(0, vb.buffer, vb.Stride, 0)
	rec.SetIndexBuffer(ib.buffer, gfx.FormatR32Uint, 0)
}

func (g *Geometry) Bind(rec gfx.Context) {
	BindGeometry(rec, g.Vertices, g.Indices)
}

// Release releases both buffers. It is safe to call Release multiple times
// or on a nil Geometry.
func (g *Geometry) Release() {
	if g == nil {
		return
	}

	g.Indices.Release()
	g.Vertices.Release()
}
