package pulse_test

import (
	"errors"
	"maps"
	"strings"
	"testing"

	"github.com/oliverbestmann/prism/assets"
	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/prism/pulse"
)

// brokenShader misses the semicolon after the return statement of VS.
var brokenShader = pulse.ShaderSource{
	Name: "broken.hlsl",
	HLSL: `struct VSOutput { float4 position : SV_POSITION; float4 color : COLOR; };

VSOutput VS(float3 position : POSITION, float4 color : COLOR) {
	VSOutput output;
	output.position = float4(position, 1.0f);
	output.color = color;
	return output
}

float4 PS(VSOutput input) : SV_Target { return input.color; }
`,
}

func TestCompileProgram(t *testing.T) {
	ctx := openContext(t, pulse.OpenOptions{})

	program, err := pulse.CompileProgram(ctx, assets.ColorShader, assets.ColorShader, pulse.EntryPoints{}, pulse.VertexLayout)
	if err != nil {
		t.Fatal(err)
	}

	defer program.Release()

	if program.Name != assets.ColorShader.Name {
		t.Errorf("program is named %q", program.Name)
	}

	live := softDevice(ctx).LiveObjects()
	if live["VertexShader"] != 1 || live["PixelShader"] != 1 || live["InputLayout"] != 1 {
		t.Errorf("unexpected live objects %v", live)
	}

	program.Release()
	program.Release()

	live = softDevice(ctx).LiveObjects()
	if live["VertexShader"] != 0 || live["PixelShader"] != 0 || live["InputLayout"] != 0 {
		t.Errorf("objects alive after release: %v", live)
	}
}

func TestCompileProgramSyntaxError(t *testing.T) {
	ctx := openContext(t, pulse.OpenOptions{})

	before := softDevice(ctx).LiveObjects()

	_, err := pulse.CompileProgram(ctx, brokenShader, brokenShader, pulse.EntryPoints{}, pulse.VertexLayout)

	if !errors.Is(err, pulse.ErrShaderCompile) || !errors.Is(err, gfx.ErrCompile) {
		t.Fatalf("unexpected error %v", err)
	}

	var pErr *pulse.Error
	if !errors.As(err, &pErr) {
		t.Fatalf("error %T is not a *pulse.Error", err)
	}

	if !strings.HasPrefix(pErr.Diagnostic, "broken.hlsl(8,1): error X3000:") {
		t.Errorf("unexpected diagnostic %q", pErr.Diagnostic)
	}

	if !strings.Contains(err.Error(), pErr.Diagnostic) {
		t.Errorf("error message %q does not contain the diagnostic", err)
	}

	if after := softDevice(ctx).LiveObjects(); !maps.Equal(before, after) {
		t.Errorf("failed compile leaked objects: before %v, after %v", before, after)
	}
}

func TestCompileProgramBrokenFragmentStage(t *testing.T) {
	ctx := openContext(t, pulse.OpenOptions{})

	fragment := pulse.ShaderSource{
		Name: "fragment.hlsl",
		HLSL: "float4 PS(float4 position : SV_POSITION) : SV_Target { return undefined; }",
	}

	before := softDevice(ctx).LiveObjects()

	_, err := pulse.CompileProgram(ctx, assets.ColorShader, fragment, pulse.EntryPoints{}, pulse.VertexLayout)
	if !errors.Is(err, pulse.ErrShaderCompile) {
		t.Fatalf("unexpected error %v", err)
	}

	var pErr *pulse.Error
	if !errors.As(err, &pErr) || !strings.HasPrefix(pErr.Diagnostic, "fragment.hlsl(1,") {
		t.Errorf("unexpected error %v", err)
	}

	// the vertex stage compiled fine and stays in the cache
	ctx.Shaders().Purge()

	if after := softDevice(ctx).LiveObjects(); !maps.Equal(before, after) {
		t.Errorf("failed compile leaked objects: before %v, after %v", before, after)
	}
}

func TestCompileProgramLayoutMismatch(t *testing.T) {
	ctx := openContext(t, pulse.OpenOptions{})

	layout := []gfx.InputElement{
		{Semantic: "POSITION", Format: gfx.FormatR32G32B32Float, Offset: 0},
		{Semantic: "TEXCOORD", Format: gfx.FormatR32G32Float, Offset: 12},
	}

	_, err := pulse.CompileProgram(ctx, assets.ColorShader, assets.ColorShader, pulse.EntryPoints{}, layout)
	if !errors.Is(err, pulse.ErrShaderCompile) {
		t.Fatalf("unexpected error %v", err)
	}

	var pErr *pulse.Error
	if errors.As(err, &pErr) && pErr.Op != "create input layout" {
		t.Errorf("failure reported for %q", pErr.Op)
	}
}

func TestCompileProgramUnknownEntryPoint(t *testing.T) {
	ctx := openContext(t, pulse.OpenOptions{})

	_, err := pulse.CompileProgram(ctx, assets.ColorShader, assets.ColorShader, pulse.EntryPoints{Vertex: "main"}, pulse.VertexLayout)
	if !errors.Is(err, pulse.ErrShaderCompile) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestShaderCache(t *testing.T) {
	ctx := openContext(t, pulse.OpenOptions{})
	cache := ctx.Shaders()

	first, err := pulse.CompileProgram(ctx, assets.ColorShader, assets.ColorShader, pulse.EntryPoints{}, pulse.VertexLayout)
	if err != nil {
		t.Fatal(err)
	}

	defer first.Release()

	second, err := pulse.CompileProgram(ctx, assets.ColorShader, assets.ColorShader, pulse.EntryPoints{}, pulse.VertexLayout)
	if err != nil {
		t.Fatal(err)
	}

	defer second.Release()

	if cache.Misses != 2 || cache.Hits != 2 || cache.Len() != 2 {
		t.Errorf("cache has %d misses and %d hits with %d entries", cache.Misses, cache.Hits, cache.Len())
	}

	// another profile is another entry
	third, err := pulse.CompileProgram(ctx, assets.ColorShader, assets.ColorShader, pulse.EntryPoints{Model: "5_0"}, pulse.VertexLayout)
	if err != nil {
		t.Fatal(err)
	}

	defer third.Release()

	if cache.Len() != 4 {
		t.Errorf("cache has %d entries, want 4", cache.Len())
	}

	cache.Purge()

	if live := softDevice(ctx).LiveObjects(); live["Blob"] != 0 {
		t.Errorf("purge left %d blobs alive", live["Blob"])
	}
}

func TestShaderCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := openContext(t, pulse.OpenOptions{ShaderCacheSize: 1})

	program, err := pulse.CompileProgram(ctx, assets.ColorShader, assets.ColorShader, pulse.EntryPoints{}, pulse.VertexLayout)
	if err != nil {
		t.Fatal(err)
	}

	defer program.Release()

	if n := ctx.Shaders().Len(); n != 1 {
		t.Errorf("cache holds %d blobs", n)
	}

	if live := softDevice(ctx).LiveObjects(); live["Blob"] != 1 {
		t.Errorf("evicted blob not released, %d alive", live["Blob"])
	}
}

func TestProgramSlot(t *testing.T) {
	ctx := openContext(t, pulse.OpenOptions{})

	compile := func() *pulse.ShaderProgram {
		program, err := pulse.CompileProgram(ctx, assets.ColorShader, assets.ColorShader, pulse.EntryPoints{}, pulse.VertexLayout)
		if err != nil {
			t.Fatal(err)
		}

		return program
	}

	live := func() int {
		return softDevice(ctx).LiveObjects()["VertexShader"]
	}

	first := compile()
	slot := pulse.NewProgramSlot(first)

	if slot.Apply() {
		t.Error("apply without a pending program swapped")
	}

	second := compile()
	third := compile()

	slot.Queue(second)
	slot.Queue(third)

	if slot.Current() != first {
		t.Error("queue swapped the program immediately")
	}

	if live() != 2 {
		t.Errorf("replaced pending program not released, %d vertex shaders alive", live())
	}

	if !slot.Apply() || slot.Current() != third {
		t.Error("apply did not swap in the pending program")
	}

	if live() != 1 {
		t.Errorf("old program not released, %d vertex shaders alive", live())
	}

	slot.Release()

	if live() != 0 {
		t.Errorf("%d vertex shaders alive after release", live())
	}
}
