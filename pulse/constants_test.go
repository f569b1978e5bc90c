package pulse_test

import (
	"math"
	"testing"

	"github.com/oliverbestmann/prism/assets"
	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/prism/gfx/soft"
	"github.com/oliverbestmann/prism/glm"
	"github.com/oliverbestmann/prism/hlsl"
	"github.com/oliverbestmann/prism/pulse"
)

func TestTransposeTwiceIsIdentity(t *testing.T) {
	block := pulse.TransformBlock{
		World:      glm.RotationYMat4[float32](0.7).Mul(glm.TranslationMat4[float32](1, 2, 3)),
		View:       glm.LookAtLH(glm.Vec3f{1, 2, -5}, glm.Vec3f{}, glm.Vec3f{0, 1, 0}),
		Projection: glm.PerspectiveFovLH[float32](glm.Rad(math.Pi/4), 4.0/3.0, 0.1, 100),
	}

	if got := block.Transposed().Transposed(); got != block {
		t.Errorf("transposing twice changed the block")
	}

	if block.Transposed() == block {
		t.Errorf("transpose had no effect")
	}
}

func TestConstantStoreLayout(t *testing.T) {
	ctx := openContext(t, pulse.OpenOptions{})

	store, err := pulse.NewConstantStore(ctx)
	if err != nil {
		t.Fatal(err)
	}

	defer store.Release()

	if desc := store.Buffer().Desc(); desc.ByteWidth != pulse.TransformBlockSize || desc.Usage != gfx.UsageDynamic {
		t.Errorf("unexpected buffer %+v", desc)
	}

	shader, err := hlsl.Compile(assets.ColorShader.HLSL, assets.ColorShader.Name, "VS", "vs_4_0")
	if err != nil {
		t.Fatal(err)
	}

	cb := shader.ConstantBuffer(0)
	if cb == nil {
		t.Fatal("shader has no constant buffer in b0")
	}

	members := map[string]func(pulse.TransformBlock) glm.Mat4f{
		"world":      func(b pulse.TransformBlock) glm.Mat4f { return b.World },
		"view":       func(b pulse.TransformBlock) glm.Mat4f { return b.View },
		"projection": func(b pulse.TransformBlock) glm.Mat4f { return b.Projection },
	}

	for _, angle := range []glm.Rad{0, 0.3, 1, math.Pi / 2, 2.5, math.Pi} {
		block := pulse.TransformBlock{
			World: glm.RotationYMat4[float32](angle).Mul(glm.RotationXMat4[float32](angle * 0.5)),
			View: glm.LookAtLH(
				glm.Vec3f{0, 0, -3},
				glm.Vec3f{0, 0, 0},
				glm.Vec3f{0, 1, 0},
			),
			Projection: glm.PerspectiveFovLH[float32](math.Pi/4, 800.0/600.0, 0.1, 100),
		}

		if err := store.Write(ctx.Recorder, block); err != nil {
			t.Fatal(err)
		}

		raw := store.Buffer().(*soft.Buffer).Bytes()

		// the shader must observe the matrices as they were on the host
		for name, want := range members {
			member, ok := cb.Member(name)
			if !ok {
				t.Fatalf("constant buffer has no member %q", name)
			}

			got := glm.Mat4f(member.Read(raw))
			if !got.ApproxEqual(want(block), 1e-6) {
				t.Errorf("angle %v: shader reads %s as %v, want %v", angle, name, got, want(block))
			}
		}

		if store.Last() != block {
			t.Errorf("last block not recorded")
		}
	}

	if store.Writes() != 6 {
		t.Errorf("store counted %d writes", store.Writes())
	}
}

func TestConstantStoreTransformsVertices(t *testing.T) {
	ctx := openContext(t, pulse.OpenOptions{})

	triangle, err := pulse.UploadMesh(ctx, assets.TriangleVertices, assets.TriangleIndices)
	if err != nil {
		t.Fatal(err)
	}

	defer triangle.Release()

	p := newPipeline(t, ctx, 64, 64, gfx.CullNone)

	// moving the triangle right by half the screen uncovers the left border
	block := pulse.IdentityTransforms()
	block.World = glm.TranslationMat4[float32](0.5, 0, 0)

	p.draw(t, triangle, gfx.TriangleList, block)

	black := [4]float32{0, 0, 0, 1}

	if got := p.pixel(20, 40); got != black {
		t.Errorf("pixel left of the moved triangle is %v", got)
	}

	if got := p.pixel(48, 40); got == black {
		t.Errorf("moved triangle not drawn at its new position")
	}
}

func TestDebugDrawWithColorShaderIsClean(t *testing.T) {
	ctx := openContext(t, pulse.OpenOptions{Debug: true})

	triangle, err := pulse.UploadMesh(ctx, assets.TriangleVertices, assets.TriangleIndices)
	if err != nil {
		t.Fatal(err)
	}

	defer triangle.Release()

	// only the vertex stage reads the transforms, the pixel stage needs no constants
	p := newPipeline(t, ctx, 64, 64, gfx.CullNone)
	p.draw(t, triangle, gfx.TriangleList, pulse.IdentityTransforms())

	if msgs := softDevice(ctx).Messages(); len(msgs) != 0 {
		t.Errorf("unexpected validation messages: %v", msgs)
	}
}
