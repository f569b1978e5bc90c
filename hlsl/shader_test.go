package hlsl

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"
)

const lessonShader = `
cbuffer MatrixBuffer : register(b0)
{
    matrix worldMatrix;
    matrix viewMatrix;
    matrix projectionMatrix;
};

struct VS_INPUT {
    float3 position : POSITION;
    float4 color : COLOR;
};

struct VS_OUTPUT {
    float4 position : SV_POSITION;
    float4 color : COLOR;
};

VS_OUTPUT VS(VS_INPUT input)
{
    VS_OUTPUT output;

    // Transform position through matrices
    float4 worldPos = mul(float4(input.position, 1.0f), worldMatrix);
    float4 viewPos = mul(worldPos, viewMatrix);
    output.position = mul(viewPos, projectionMatrix);

    output.color = input.color;

    return output;
}

float4 PS(VS_OUTPUT input) : SV_TARGET
{
    return input.color;
}
`

// columnMajorBytes encodes row-major matrices the way a column_major
// cbuffer expects them: transposed.
func columnMajorBytes(matrices ...[16]float32) []byte {
	var raw []byte

	for _, m := range matrices {
		for r := 0; r < 4; r++ {
			for c := 0; c < 4; c++ {
				raw = binary.LittleEndian.AppendUint32(raw, math.Float32bits(m[c*4+r]))
			}
		}
	}

	return raw
}

var identity = [16]float32{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

func mustCompile(t *testing.T, src, entry, profile string) *Shader {
	t.Helper()

	shader, err := Compile(src, "test.hlsl", entry, profile)
	if err != nil {
		t.Fatalf("compile %s: %s", entry, err)
	}

	return shader
}

func approxEqual(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}

	for idx := range a {
		if math.Abs(float64(a[idx]-b[idx])) > 1e-5 {
			return false
		}
	}

	return true
}

func TestLessonSignatures(t *testing.T) {
	vs := mustCompile(t, lessonShader, "VS", "vs_4_0")

	if vs.Stage != StageVertex || vs.Major != 4 || vs.Minor != 0 {
		t.Fatalf("unexpected profile %v %d.%d", vs.Stage, vs.Major, vs.Minor)
	}

	position, ok := vs.Input("POSITION", 0)
	if !ok || position.Type.String() != "float3" || position.Offset != 0 {
		t.Fatalf("unexpected POSITION input: %+v", position)
	}

	color, ok := vs.Input("color", 0)
	if !ok || color.Type.String() != "float4" || color.Offset != 3 {
		t.Fatalf("unexpected COLOR input: %+v", color)
	}

	if vs.InputSize != 7 || vs.OutputSize != 8 {
		t.Fatalf("unexpected signature sizes %d/%d", vs.InputSize, vs.OutputSize)
	}

	if _, ok := vs.Output("SV_POSITION", 0); !ok {
		t.Fatal("SV_POSITION output missing")
	}

	cb := vs.ConstantBuffer(0)
	if cb == nil {
		t.Fatal("constant buffer b0 missing")
	}

	if cb.Size != 192 {
		t.Fatalf("constant buffer size is %d, want 192", cb.Size)
	}

	for idx, name := range []string{"worldMatrix", "viewMatrix", "projectionMatrix"} {
		member, ok := cb.Member(name)
		if !ok || member.Offset != uint32(idx*64) || member.RowMajor {
			t.Errorf("unexpected member %s: %+v", name, member)
		}
	}

	ps := mustCompile(t, lessonShader, "PS", "ps_4_0")
	if target, ok := ps.Output("SV_Target", 0); !ok || target.Type.Size() != 4 {
		t.Fatalf("unexpected pixel output: %+v", ps.Outputs)
	}
}

func TestVertexShaderTransform(t *testing.T) {
	vs := mustCompile(t, lessonShader, "VS", "vs_5_0")

	world := identity
	world[12], world[13], world[14] = 1, 2, 3

	scale := identity
	scale[0], scale[5], scale[10] = 2, 2, 2

	inv := vs.NewInvoker()
	inv.SetConstants(0, columnMajorBytes(world, scale, identity))

	out := make([]float32, vs.OutputSize)
	inv.Invoke([]float32{1, 0, 0, 0.1, 0.2, 0.3, 0.4}, out)

	position, _ := vs.Output("SV_POSITION", 0)
	color, _ := vs.Output("COLOR", 0)

	got := out[position.Offset : position.Offset+4]
	if want := []float32{4, 4, 6, 1}; !approxEqual(got, want) {
		t.Errorf("position = %v, want %v", got, want)
	}

	got = out[color.Offset : color.Offset+4]
	if want := []float32{0.1, 0.2, 0.3, 0.4}; !approxEqual(got, want) {
		t.Errorf("color = %v, want %v", got, want)
	}
}

func TestRowMajorPacking(t *testing.T) {
	src := `
cbuffer Params : register(b2)
{
    row_major float4x4 transform;
    float3 direction;
    float intensity;
    float2 scale;
};

float4 VS(float3 p : POSITION) : SV_POSITION
{
    return mul(float4(p, 1), transform) * intensity + float4(direction, 0);
}
`

	vs := mustCompile(t, src, "VS", "vs_4_0")

	cb := vs.ConstantBuffer(2)
	if cb == nil {
		t.Fatal("constant buffer b2 missing")
	}

	offsets := map[string]uint32{"transform": 0, "direction": 64, "intensity": 76, "scale": 80}
	for name, want := range offsets {
		member, _ := cb.Member(name)
		if member.Offset != want {
			t.Errorf("%s at offset %d, want %d", name, member.Offset, want)
		}
	}

	if cb.Size != 96 {
		t.Errorf("size is %d, want 96", cb.Size)
	}

	// row major: stored as is
	var raw []byte
	transform := identity
	transform[12] = 5

	for _, v := range transform {
		raw = binary.LittleEndian.AppendUint32(raw, math.Float32bits(v))
	}

	for _, v := range []float32{0, 1, 0, 2, 0, 0, 0, 0} {
		raw = binary.LittleEndian.AppendUint32(raw, math.Float32bits(v))
	}

	inv := vs.NewInvoker()
	inv.SetConstants(2, raw)

	out := make([]float32, 4)
	inv.Invoke([]float32{1, 1, 1}, out)

	if want := []float32{12, 3, 2, 2}; !approxEqual(out, want) {
		t.Errorf("got %v, want %v", out, want)
	}
}

func TestConstantBuffersFollowReferences(t *testing.T) {
	if ps := mustCompile(t, lessonShader, "PS", "ps_4_0"); len(ps.ConstantBuffers) != 0 {
		t.Errorf("pixel shader lists constant buffers it never reads: %v", ps.ConstantBuffers)
	}

	src := `
cbuffer Unused : register(b0)
{
    float4 unused;
};

cbuffer Light : register(b1)
{
    float4 tint;
};

cbuffer Offset : register(b3)
{
    float4 offset;
};

float4 shade(float4 c)
{
    return c * tint;
}

float4 VS(float3 p : POSITION) : SV_POSITION
{
    return float4(p, 1) + offset;
}

float4 PS(float4 c : COLOR) : SV_TARGET
{
    return shade(c);
}
`

	cases := []struct {
		entry, profile string
		want           []uint32
	}{
		{entry: "VS", profile: "vs_4_0", want: []uint32{3}},

		// read through a called function
		{entry: "PS", profile: "ps_4_0", want: []uint32{1}},
	}

	for _, tc := range cases {
		t.Run(tc.entry, func(t *testing.T) {
			shader := mustCompile(t, src, tc.entry, tc.profile)

			var got []uint32
			for _, cb := range shader.ConstantBuffers {
				got = append(got, cb.Register)
			}

			if len(got) != len(tc.want) || (len(got) > 0 && got[0] != tc.want[0]) {
				t.Errorf("constant buffers at %v, want %v", got, tc.want)
			}

			if shader.ConstantBuffer(0) != nil {
				t.Error("unreferenced buffer b0 is listed")
			}
		})
	}

	// constants of a buffer the entry point reads still arrive at their register
	vs := mustCompile(t, src, "VS", "vs_4_0")

	var raw []byte
	for _, v := range []float32{1, 2, 3, 0} {
		raw = binary.LittleEndian.AppendUint32(raw, math.Float32bits(v))
	}

	inv := vs.NewInvoker()
	inv.SetConstants(0, raw)
	inv.SetConstants(3, raw)

	out := make([]float32, 4)
	inv.Invoke([]float32{1, 1, 1}, out)

	if want := []float32{2, 3, 4, 1}; !approxEqual(out, want) {
		t.Errorf("got %v, want %v", out, want)
	}
}

func TestControlFlow(t *testing.T) {
	src := `
static const float scale = 2.0;

float accumulate(float n, out float count)
{
    float sum = 0;
    count = 0;
    for (int i = 0; i < 10; i++) {
        if (i >= n) {
            break;
        }

        sum += i;
        count += 1;
    }

    return sum;
}

float4 PS(float4 v : TEXCOORD0) : SV_TARGET
{
    float count;
    float total = accumulate(v.x, count);

    float4 result = float4(total, count, 0, 0);
    result.zw = v.yx * scale;

    int k = 7 / 2;
    result.w += k;

    if (v.w < 0) {
        discard;
    }

    return result;
}
`

	ps := mustCompile(t, src, "PS", "ps_4_0")
	inv := ps.NewInvoker()

	out := make([]float32, 4)
	if !inv.Invoke([]float32{4, 3, 0, 1}, out) {
		t.Fatal("unexpected discard")
	}

	// sum of 0..3, 4 iterations, 3*2, 4*2+3
	if want := []float32{6, 4, 6, 11}; !approxEqual(out, want) {
		t.Errorf("got %v, want %v", out, want)
	}

	if inv.Invoke([]float32{1, 1, 1, -1}, out) {
		t.Error("expected discard")
	}
}

func TestSwizzleAssignmentAliasing(t *testing.T) {
	src := `
float4 PS(float4 v : TEXCOORD0) : SV_TARGET
{
    float4 r = v;
    r.yz = r.xy;
    r.xw = r.wx;
    return r;
}
`

	ps := mustCompile(t, src, "PS", "ps_5_0")

	out := make([]float32, 4)
	ps.NewInvoker().Invoke([]float32{1, 2, 3, 4}, out)

	if want := []float32{4, 1, 2, 1}; !approxEqual(out, want) {
		t.Errorf("got %v, want %v", out, want)
	}
}

func TestIntrinsics(t *testing.T) {
	tests := []struct {
		expr string
		want []float32
	}{
		{"float4(dot(v.xyz, float3(1, 1, 1)), 0, 0, 0)", []float32{6, 0, 0, 0}},
		{"float4(cross(float3(1, 0, 0), float3(0, 1, 0)), 1)", []float32{0, 0, 1, 1}},
		{"float4(normalize(float3(3, 0, 4)), length(float2(3, 4)))", []float32{0.6, 0, 0.8, 5}},
		{"saturate(v - 2)", []float32{0, 0, 1, 1}},
		{"lerp(float4(0, 0, 0, 0), v, 0.5)", []float32{0.5, 1, 1.5, 2}},
		{"clamp(v, 1.5, 2.5)", []float32{1.5, 2, 2.5, 2.5}},
		{"max(v, 2) + min(v, 2)", []float32{3, 4, 5, 6}},
		{"abs(-v)", []float32{1, 2, 3, 4}},
		{"float4(sin(0), cos(0), 0, 0)", []float32{0, 1, 0, 0}},
		{"v.wzyx", []float32{4, 3, 2, 1}},
		{"v.x > 2 ? v : -v", []float32{-1, -2, -3, -4}},
		{"mul(float4x4(2,0,0,0, 0,2,0,0, 0,0,2,0, 0,0,0,1), v)", []float32{2, 4, 6, 4}},
		{"transpose(float4x4(1,0,0,0, 0,1,0,0, 0,0,1,0, 5,6,7,1))[3]", []float32{0, 0, 0, 1}},
		{"float4x4(1,0,0,0, 0,1,0,0, 0,0,1,0, 5,6,7,1)._m30_m31_m32_m33", []float32{5, 6, 7, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			src := "float4 PS(float4 v : TEXCOORD0) : SV_TARGET { return " + tt.expr + "; }"
			ps := mustCompile(t, src, "PS", "ps_4_0")

			out := make([]float32, 4)
			ps.NewInvoker().Invoke([]float32{1, 2, 3, 4}, out)

			if !approxEqual(out, tt.want) {
				t.Errorf("got %v, want %v", out, tt.want)
			}
		})
	}
}

func TestDiagnostics(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		entry   string
		profile string
		want    string
	}{
		{
			name:    "syntax error",
			src:     "float4 PS() : SV_TARGET { return float4(1,1,1,1) }",
			entry:   "PS",
			profile: "ps_4_0",
			want:    "test.hlsl(1,50): error X3000: syntax error: unexpected token '}'",
		},
		{
			name:    "undeclared identifier",
			src:     "float4 PS() : SV_TARGET\n{\n  return colour;\n}",
			entry:   "PS",
			profile: "ps_4_0",
			want:    "test.hlsl(3,10): error X3004: undeclared identifier 'colour'",
		},
		{
			name:    "unknown type",
			src:     "flaot4 PS() : SV_TARGET { return 1; }",
			entry:   "PS",
			profile: "ps_4_0",
			want:    "test.hlsl(1,1): error X3000: unrecognized identifier 'flaot4'",
		},
		{
			name:    "missing entry point",
			src:     "float4 PS() : SV_TARGET { return 1; }",
			entry:   "main",
			profile: "ps_4_0",
			want:    "test.hlsl: error X3501: 'main': entrypoint not found",
		},
		{
			name:    "legacy profile",
			src:     lessonShader,
			entry:   "VS",
			profile: "vs_3_0",
			want:    "test.hlsl: error X3539: 'vs_3_0' is not supported, shader model 4.0 or higher is required",
		},
		{
			name:    "missing semantics",
			src:     "float4 VS(float3 p) : SV_POSITION { return float4(p, 1); }",
			entry:   "VS",
			profile: "vs_4_0",
			want:    "test.hlsl(1,11): error X3502: 'VS': input parameter 'p' missing semantics",
		},
		{
			name:    "assign to constant",
			src:     "cbuffer C { float4 c; };\nfloat4 PS() : SV_TARGET { c = 1; return c; }",
			entry:   "PS",
			profile: "ps_4_0",
			want:    "test.hlsl(2,29): error X3025: l-value specifies const object",
		},
		{
			name:    "recursion",
			src:     "float f(float x) { return f(x); }\nfloat4 PS() : SV_TARGET { return f(1); }",
			entry:   "PS",
			profile: "ps_4_0",
			want:    "test.hlsl(1,7): error X3500: 'f': recursive functions not allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.src, "test.hlsl", tt.entry, tt.profile)
			if err == nil {
				t.Fatal("expected an error")
			}

			var hlslErr *Error
			if !errors.As(err, &hlslErr) {
				t.Fatalf("unexpected error type %T", err)
			}

			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %q\nwant %q", err.Error(), tt.want)
			}
		})
	}
}

func TestParseProfile(t *testing.T) {
	stage, major, minor, err := ParseProfile("ps_4_0_level_9_3")
	if err != nil || stage != StagePixel || major != 4 || minor != 0 {
		t.Fatalf("unexpected result %v %d %d %v", stage, major, minor, err)
	}

	if _, _, _, err := ParseProfile("cs_5_0"); err == nil {
		t.Fatal("compute profiles must be rejected")
	}
}

func BenchmarkVertexShader(b *testing.B) {
	vs, err := Compile(lessonShader, "bench.hlsl", "VS", "vs_4_0")
	if err != nil {
		b.Fatal(err)
	}

	inv := vs.NewInvoker()
	inv.SetConstants(0, columnMajorBytes(identity, identity, identity))

	in := []float32{1, 2, 3, 1, 1, 1, 1}
	out := make([]float32, vs.OutputSize)

	for b.Loop() {
		inv.Invoke(in, out)
	}
}
