package pulse

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/prism/glm"
)

// TransformBlockSize is the size of a TransformBlock on the GPU in bytes.
const TransformBlockSize = 3 * 64

// TransformBlock holds the per frame transforms. Matrices are row major
// and transform row vectors, like DirectXMath.
type TransformBlock struct {
	World      glm.Mat4f
	View       glm.Mat4f
	Projection glm.Mat4f
}

// IdentityTransforms sets all three matrices to identity.
func IdentityTransforms() TransformBlock {
	return TransformBlock{
		World:      glm.IdentityMat4[float32](),
		View:       glm.IdentityMat4[float32](),
		Projection: glm.IdentityMat4[float32](),
	}
}

// Transposed returns the block with every matrix transposed.
func (b TransformBlock) Transposed() TransformBlock {
	return TransformBlock{
		World:      b.World.Transpose(),
		View:       b.View.Transpose(),
		Projection: b.Projection.Transpose(),
	}
}

// WorldViewProjection returns the combined transform.
func (b TransformBlock) WorldViewProjection() glm.Mat4f {
	return b.World.Mul(b.View).Mul(b.Projection)
}

// AppendBytes appends the matrices in memory order as little endian floats.
func (b TransformBlock) AppendBytes(buf []byte) []byte {
	for _, m := range []*glm.Mat4f{&b.World, &b.View, &b.Projection} {
		for _, f := range m {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
	}

	return buf
}

// ConstantStore owns the dynamic constant buffer holding the TransformBlock.
type ConstantStore struct {
	buffer gfx.Buffer
	last   TransformBlock
	writes uint64
}

func NewConstantStore(ctx *Context) (*ConstantStore, error) {
	buffer, err := ctx.CreateBuffer(gfx.BufferDesc{
		Label:     "TransformBlock",
		ByteWidth: TransformBlockSize,
		Usage:     gfx.UsageDynamic,
		Bind:      gfx.BindConstantBuffer,
	}, nil)

	if err != nil {
		return nil, newError(ErrResourceCreation, "constants", "create", err)
	}

	return &ConstantStore{buffer: buffer}, nil
}

// Write replaces the contents of the buffer. The matrices are transposed
// on the way, shaders read them column major.
func (s *ConstantStore) Write(rec gfx.Context, block TransformBlock) error {
	mapped, err := rec.Map(s.buffer)
	if err != nil {
		if errors.Is(err, gfx.ErrDeviceRemoved) {
			return newError(ErrDeviceLost, "constants", "write", err)
		}

		return fmt.Errorf("map constant buffer: %w", err)
	}

	copy(mapped, block.Transposed().AppendBytes(make([]byte, 0, TransformBlockSize)))
	rec.Unmap(s.buffer)

	s.last = block
	s.writes++

	return nil
}

// Bind attaches the buffer to slot 0 of the vertex stage.
func (s *ConstantStore) Bind(rec gfx.Context) {
	rec.SetVSConstantBuffer(0, s.buffer)
}

// Last returns the block written most recently.
func (s *ConstantStore) Last() TransformBlock {
	return s.last
}

// Writes returns the number of successful writes.
func (s *ConstantStore) Writes() uint64 {
	return s.writes
}

func (s *ConstantStore) Buffer() gfx.Buffer {
	return s.buffer
}

// Release releases the buffer. It is safe to call Release multiple times
// or on a nil ConstantStore.
func (s *ConstantStore) Release() {
	if s != nil && s.buffer != nil {
		s.buffer.Release()
		s.buffer = nil
	}
}
