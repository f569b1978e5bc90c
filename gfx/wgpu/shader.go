package wgpu

import (
	"fmt"
	"strings"

	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/webgpu/wgpu"
)

// module is a compiled shader module shared by a blob and the shaders
// created from it. It is released with its last reference.
type module struct {
	module *wgpu.ShaderModule
	refs   int
}

func (m *module) retain() *module {
	m.refs++
	return m
}

func (m *module) release() {
	m.refs--

	if m.refs == 0 {
		m.module.Release()
		m.module = nil
	}
}

// Blob is a WGSL module validated for one entry point.
type Blob struct {
	source  []byte
	entry   string
	profile string
	module  *module
}

func (b *Blob) Bytes() []byte {
	return b.source
}

func (b *Blob) EntryPoint() string {
	return b.entry
}

func (b *Blob) Profile() string {
	return b.profile
}

func (b *Blob) Release() {
	if b.module != nil {
		b.module.release()
		b.module = nil
	}
}

// stage returns the pipeline stage of a profile such as "vs_4_0".
func stage(profile string) string {
	prefix, _, _ := strings.Cut(profile, "_")
	return prefix
}

func (dev *Device) CompileShader(source []byte, name, entryPoint, profile string) (gfx.Blob, error) {
	if s := stage(profile); s != "vs" && s != "ps" {
		return nil, fmt.Errorf("compile %s: profile %q: %w", name, profile, gfx.ErrUnsupported)
	}

	if !declaresEntryPoint(string(source), entryPoint) {
		return nil, &gfx.CompileError{
			Name: name,
			Log:  fmt.Sprintf("%s: entry point %q not found", name, entryPoint),
		}
	}

	shader, err := dev.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: name,
		WGSLSource: &wgpu.ShaderSourceWGSL{
			Code: string(source),
		},
	})

	if err != nil {
		return nil, &gfx.CompileError{Name: name, Log: name + ": " + err.Error()}
	}

	return &Blob{
		source:  source,
		entry:   entryPoint,
		profile: profile,
		module:  (&module{module: shader}).retain(),
	}, nil
}

// declaresEntryPoint reports whether the WGSL source declares a function
// with the given name.
func declaresEntryPoint(source, entryPoint string) bool {
	for _, line := range strings.Split(source, "\n") {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), "fn ")
		if !ok {
			continue
		}

		name, _, _ := strings.Cut(rest, "(")
		if strings.TrimSpace(name) == entryPoint {
			return true
		}
	}

	return false
}

type shader struct {
	module *module
	entry  string
}

func (s *shader) Release() {
	if s.module != nil {
		s.module.release()
		s.module = nil
	}
}

type VertexShader struct{ shader }

type PixelShader struct{ shader }

func shaderOf(blob gfx.Blob, want string) (shader, error) {
	b, ok := blob.(*Blob)
	if !ok || b.module == nil {
		return shader{}, fmt.Errorf("blob of type %T: %w", blob, gfx.ErrInvalidCall)
	}

	if stage(b.profile) != want {
		return shader{}, fmt.Errorf("blob compiled for %q: %w", b.profile, gfx.ErrInvalidCall)
	}

	return shader{module: b.module.retain(), entry: b.entry}, nil
}

func (dev *Device) CreateVertexShader(blob gfx.Blob) (gfx.VertexShader, error) {
	s, err := shaderOf(blob, "vs")
	if err != nil {
		return nil, fmt.Errorf("create vertex shader: %w", err)
	}

	return &VertexShader{s}, nil
}

func (dev *Device) CreatePixelShader(blob gfx.Blob) (gfx.PixelShader, error) {
	s, err := shaderOf(blob, "ps")
	if err != nil {
		return nil, fmt.Errorf("create pixel shader: %w", err)
	}

	return &PixelShader{s}, nil
}

// InputLayout maps input elements to vertex buffer layouts. The element
// with index i feeds @location(i) of the vertex shader.
type InputLayout struct {
	buffers []wgpu.VertexBufferLayout
	slots   []uint32
}

func (l *InputLayout) Release() {}

func (dev *Device) CreateInputLayout(elements []gfx.InputElement, vertexShader gfx.Blob) (gfx.InputLayout, error) {
	if b, ok := vertexShader.(*Blob); !ok || stage(b.profile) != "vs" {
		return nil, fmt.Errorf("create input layout: not a vertex shader blob: %w", gfx.ErrInvalidCall)
	}

	layout := &InputLayout{}
	bySlot := map[uint32]int{}

	for idx, element := range elements {
		format, ok := vertexFormat(element.Format)
		if !ok {
			return nil, fmt.Errorf("create input layout: element %s%d has format %s: %w",
				element.Semantic, element.SemanticIndex, element.Format, gfx.ErrUnsupported)
		}

		bufferIdx, ok := bySlot[element.Slot]
		if !ok {
			bufferIdx = len(layout.buffers)
			bySlot[element.Slot] = bufferIdx

			layout.buffers = append(layout.buffers, wgpu.VertexBufferLayout{
				StepMode: wgpu.VertexStepModeVertex,
			})

			layout.slots = append(layout.slots, element.Slot)
		}

		buffer := &layout.buffers[bufferIdx]

		buffer.Attributes = append(buffer.Attributes, wgpu.VertexAttribute{
			Format:         format,
			Offset:         uint64(element.Offset),
			ShaderLocation: uint32(idx),
		})

		// the stride is set from the bound vertex buffer, this is the minimum
		buffer.ArrayStride = max(buffer.ArrayStride, uint64(element.Offset+element.Format.Size()))
	}

	return layout, nil
}
