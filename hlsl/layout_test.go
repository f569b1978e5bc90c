package hlsl

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestConstantBufferLayout(t *testing.T) {
	float3, _ := builtinType("float3")
	float2, _ := builtinType("float2")
	float1, _ := builtinType("float")
	float3x3, _ := builtinType("float3x3")

	cb := &ConstantBuffer{Members: []ConstantMember{
		{Name: "a", Type: float3},
		{Name: "b", Type: float2},
		{Name: "c", Type: float1},
		{Name: "m", Type: float3x3},
		{Name: "d", Type: float1},
	}}

	layoutConstantBuffer(cb)

	want := map[string]uint32{
		"a": 0,
		"b": 16, // would straddle the first register
		"c": 24,
		"m": 32,
		"d": 76, // fits behind the last column of m
	}

	for name, offset := range want {
		member, ok := cb.Member(name)
		if !ok || member.Offset != offset {
			t.Errorf("member %s at %d, want %d", name, member.Offset, offset)
		}
	}

	if cb.Size != 80 {
		t.Errorf("size is %d, want 80", cb.Size)
	}
}

func TestConstantMemberRead(t *testing.T) {
	float4x4, _ := builtinType("float4x4")

	raw := make([]byte, 64)
	for idx := range 16 {
		binary.LittleEndian.PutUint32(raw[idx*4:], math.Float32bits(float32(idx)))
	}

	columnMajor := ConstantMember{Type: float4x4}
	rowMajor := ConstantMember{Type: float4x4, RowMajor: true}

	cm := columnMajor.Read(raw)
	rm := rowMajor.Read(raw)

	for r := range 4 {
		for c := range 4 {
			if rm[r*4+c] != float32(r*4+c) {
				t.Fatalf("row major [%d][%d] = %v", r, c, rm[r*4+c])
			}

			if cm[r*4+c] != float32(c*4+r) {
				t.Fatalf("column major [%d][%d] = %v", r, c, cm[r*4+c])
			}
		}
	}
}

func TestConstantMemberReadShortBuffer(t *testing.T) {
	float4, _ := builtinType("float4")

	raw := make([]byte, 8)
	binary.LittleEndian.PutUint32(raw, math.Float32bits(1.5))

	values := ConstantMember{Type: float4}.Read(raw)
	if !approxEqual(values, []float32{1.5, 0, 0, 0}) {
		t.Fatalf("unexpected values %v", values)
	}
}
