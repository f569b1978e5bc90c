package hlsl

import (
	"encoding/binary"
	"math"
)

// ConstantBuffer describes the memory layout of a cbuffer using the
// packing rules of shader model 4: members never straddle a 16 byte
// register, matrices start at a new register.
type ConstantBuffer struct {
	Name     string
	Register uint32

	// Size in bytes, a multiple of 16
	Size    uint32
	Members []ConstantMember

	// number of float components of all members in their logical layout
	components int
}

type ConstantMember struct {
	Name string
	Type Type

	// Offset of the member in bytes
	Offset uint32

	// RowMajor is true if the rows of the matrix occupy one register each.
	// Matrices are column major by default.
	RowMajor bool

	// offset of the member within the decoded float components
	component int
}

// Member returns the member with the given name.
func (cb *ConstantBuffer) Member(name string) (ConstantMember, bool) {
	for _, m := range cb.Members {
		if m.Name == name {
			return m, true
		}
	}

	return ConstantMember{}, false
}

// packedSize returns the number of bytes a member occupies from the start
// of its first register.
func packedSize(t Type, rowMajor bool) uint32 {
	if !t.IsMatrix() {
		return uint32(t.Cols) * 4
	}

	if rowMajor {
		return uint32(t.Rows-1)*16 + uint32(t.Cols)*4
	}

	return uint32(t.Cols-1)*16 + uint32(t.Rows)*4
}

func layoutConstantBuffer(cb *ConstantBuffer) {
	var offset uint32
	var component int

	for idx := range cb.Members {
		m := &cb.Members[idx]

		size := packedSize(m.Type, m.RowMajor)

		// matrices begin a new register, other values must not cross one
		crosses := offset/16 != (offset+size-1)/16
		if m.Type.IsMatrix() || crosses {
			offset = alignUp(offset, 16)
		}

		m.Offset = offset
		m.component = component

		offset += size
		component += m.Type.Size()
	}

	cb.Size = alignUp(offset, 16)
	cb.components = component
}

func alignUp(value, alignment uint32) uint32 {
	return (value + alignment - 1) / alignment * alignment
}

// Read decodes the value of the member from the raw buffer contents. Matrix
// values are returned row by row, independent of their packing.
func (m ConstantMember) Read(raw []byte) []float32 {
	values := make([]float32, m.Type.Size())
	m.decode(values, raw)
	return values
}

func (m ConstantMember) decode(dst []float32, raw []byte) {
	t := m.Type

	load := func(byteOffset uint32) float32 {
		if int(byteOffset)+4 > len(raw) {
			return 0
		}

		bits := binary.LittleEndian.Uint32(raw[byteOffset:])

		switch t.Base {
		case Int:
			return float32(int32(bits))
		case Uint:
			return float32(bits)
		case Bool:
			if bits != 0 {
				return 1
			}
			return 0
		default:
			return math.Float32frombits(bits)
		}
	}

	if !t.IsMatrix() {
		for c := 0; c < t.Cols; c++ {
			dst[c] = load(m.Offset + uint32(c)*4)
		}

		return
	}

	for r := 0; r < t.Rows; r++ {
		for c := 0; c < t.Cols; c++ {
			var off uint32
			if m.RowMajor {
				off = uint32(r)*16 + uint32(c)*4
			} else {
				off = uint32(c)*16 + uint32(r)*4
			}

			dst[r*t.Cols+c] = load(m.Offset + off)
		}
	}
}

// Decode converts the raw buffer contents into the component layout used by
// the interpreter. dst is reused if large enough.
func (cb *ConstantBuffer) Decode(dst []float32, raw []byte) []float32 {
	if cap(dst) < cb.components {
		dst = make([]float32, cb.components)
	}

	dst = dst[:cb.components]

	for _, m := range cb.Members {
		m.decode(dst[m.component:m.component+m.Type.Size()], raw)
	}

	return dst
}
