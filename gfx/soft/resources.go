package soft

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/prism/hlsl"
)

type Buffer struct {
	object
	desc gfx.BufferDesc
	data []byte

	mapped bool
}

func (b *Buffer) Desc() gfx.BufferDesc {
	return b.desc
}

// Bytes returns the current contents of the buffer.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Texture is a 2D texture. Color textures hold four bytes per pixel in the
// order of their format, depth textures hold a float32 depth and a stencil
// byte per pixel.
type Texture struct {
	object
	desc gfx.Texture2DDesc

	pixels  []byte
	depth   []float32
	stencil []uint8

	// number of live views on the texture
	views int

	// owned by a swap chain, released together with it
	chain *SwapChain
}

func newTexture(desc gfx.Texture2DDesc) *Texture {
	tex := &Texture{desc: desc}
	tex.allocate()
	return tex
}

func (t *Texture) allocate() {
	n := int(t.desc.Width) * int(t.desc.Height)

	if t.desc.Format.IsDepth() {
		t.depth = make([]float32, n)
		t.stencil = make([]uint8, n)
		return
	}

	t.pixels = make([]byte, n*4)
}

func (t *Texture) Desc() gfx.Texture2DDesc {
	return t.desc
}

func (t *Texture) Release() {
	if t.chain != nil {
		// back buffers live as long as their swap chain
		return
	}

	t.object.Release()
}

func (t *Texture) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < int(t.desc.Width) && y < int(t.desc.Height)
}

// Pixel returns the color of a pixel in RGBA order with components in [0, 1].
func (t *Texture) Pixel(x, y int) [4]float32 {
	if t.desc.Format.IsDepth() || !t.inBounds(x, y) {
		return [4]float32{}
	}

	off := (y*int(t.desc.Width) + x) * 4
	p := t.pixels[off : off+4 : off+4]

	color := [4]float32{
		float32(p[0]) / 255,
		float32(p[1]) / 255,
		float32(p[2]) / 255,
		float32(p[3]) / 255,
	}

	if t.desc.Format == gfx.FormatB8G8R8A8Unorm {
		color[0], color[2] = color[2], color[0]
	}

	return color
}

// Depth returns the depth value stored for a pixel of a depth texture.
func (t *Texture) Depth(x, y int) float32 {
	if !t.desc.Format.IsDepth() || !t.inBounds(x, y) {
		return 0
	}

	return t.depth[y*int(t.desc.Width)+x]
}

// Image copies the contents of a color texture into an image.
func (t *Texture) Image() *image.RGBA {
	return toImage(t.desc, t.pixels)
}

func toImage(desc gfx.Texture2DDesc, pixels []byte) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, int(desc.Width), int(desc.Height)))
	copy(img.Pix, pixels)

	if desc.Format == gfx.FormatB8G8R8A8Unorm {
		for off := 0; off+3 < len(img.Pix); off += 4 {
			img.Pix[off], img.Pix[off+2] = img.Pix[off+2], img.Pix[off]
		}
	}

	return img
}

// storeColor converts a shader color to the texture format and stores it.
func (t *Texture) storeColor(x, y int, color []float32) {
	off := (y*int(t.desc.Width) + x) * 4
	p := t.pixels[off : off+4 : off+4]

	for idx := range 4 {
		p[idx] = unorm8(color[idx])
	}

	if t.desc.Format == gfx.FormatB8G8R8A8Unorm {
		p[0], p[2] = p[2], p[0]
	}
}

func unorm8(v float32) uint8 {
	if v != v || v <= 0 {
		return 0
	}

	if v >= 1 {
		return 255
	}

	return uint8(v*255 + 0.5)
}

type RenderTargetView struct {
	object
	tex *Texture
}

func (v *RenderTargetView) Texture() gfx.Texture2D {
	return v.tex
}

func (v *RenderTargetView) Release() {
	if !v.released {
		v.tex.views--
	}

	v.object.Release()
}

type DepthStencilView struct {
	object
	tex *Texture
}

func (v *DepthStencilView) Texture() gfx.Texture2D {
	return v.tex
}

func (v *DepthStencilView) Release() {
	if !v.released {
		v.tex.views--
	}

	v.object.Release()
}

// Blob holds a compiled shader. Its bytes are the source it was compiled
// from, the software device has no bytecode format.
type Blob struct {
	object
	shader *hlsl.Shader
	source []byte
}

func (b *Blob) Bytes() []byte {
	return b.source
}

func (b *Blob) EntryPoint() string {
	return b.shader.EntryPoint
}

func (b *Blob) Profile() string {
	return b.shader.Profile
}

// Shader returns the compiled shader of the blob.
func (b *Blob) Shader() *hlsl.Shader {
	return b.shader
}

type VertexShader struct {
	object
	shader *hlsl.Shader
}

type PixelShader struct {
	object
	shader *hlsl.Shader
}

type RasterizerState struct {
	object
	desc gfx.RasterizerDesc
}

func (s *RasterizerState) Desc() gfx.RasterizerDesc {
	return s.desc
}

type DepthStencilState struct {
	object
	desc gfx.DepthStencilDesc
}

func (s *DepthStencilState) Desc() gfx.DepthStencilDesc {
	return s.desc
}

// attribute fetches one vertex attribute from a vertex buffer slot into the
// input of the vertex shader.
type attribute struct {
	slot   uint32
	offset uint32
	format gfx.Format

	// destination in the shader input
	dst  int
	size int
}

type InputLayout struct {
	object
	elements   []gfx.InputElement
	attributes []attribute
	signature  *hlsl.Shader
}

// newInputLayout matches the elements against the input signature of the
// vertex shader. Every input of the shader must be provided by an element.
func newInputLayout(elements []gfx.InputElement, shader *hlsl.Shader) (*InputLayout, error) {
	layout := &InputLayout{
		elements:  append([]gfx.InputElement(nil), elements...),
		signature: shader,
	}

	for _, el := range elements {
		if el.Format.Components() == 0 {
			return nil, fmt.Errorf("element %s%d has unsupported format %s", el.Semantic, el.SemanticIndex, el.Format)
		}

		if el.Slot >= maxVertexBuffers {
			return nil, fmt.Errorf("element %s%d uses invalid slot %d", el.Semantic, el.SemanticIndex, el.Slot)
		}
	}

	for _, input := range shader.Inputs {
		if input.SystemValue() {
			return nil, fmt.Errorf("system value input %s is not supported", input.SemanticName)
		}

		el, ok := findInputElement(elements, input.SemanticName, input.SemanticIndex)
		if !ok {
			return nil, fmt.Errorf("vertex shader %q expects %s%d, which is not provided by the layout",
				shader.Name, input.SemanticName, input.SemanticIndex)
		}

		layout.attributes = append(layout.attributes, attribute{
			slot:   el.Slot,
			offset: el.Offset,
			format: el.Format,
			dst:    input.Offset,
			size:   input.Type.Size(),
		})
	}

	return layout, nil
}

func findInputElement(elements []gfx.InputElement, semantic string, index uint32) (gfx.InputElement, bool) {
	for _, el := range elements {
		if strings.EqualFold(el.Semantic, semantic) && el.SemanticIndex == index {
			return el, true
		}
	}

	return gfx.InputElement{}, false
}

// decodeAttribute reads the element from src into dst. Missing components
// default to 0, except for w which defaults to 1.
func decodeAttribute(dst []float32, src []byte, format gfx.Format) {
	defaults := [4]float32{0, 0, 0, 1}

	n := format.Components()

	var values [4]float32
	switch format {
	case gfx.FormatR8G8B8A8Unorm, gfx.FormatB8G8R8A8Unorm:
		for idx := range 4 {
			values[idx] = float32(src[idx]) / 255
		}

		if format == gfx.FormatB8G8R8A8Unorm {
			values[0], values[2] = values[2], values[0]
		}

	case gfx.FormatR32Uint:
		values[0] = float32(binary.LittleEndian.Uint32(src))

	default:
		for idx := range n {
			values[idx] = math.Float32frombits(binary.LittleEndian.Uint32(src[idx*4:]))
		}
	}

	for idx := range dst {
		switch {
		case idx < n:
			dst[idx] = values[idx]
		case idx < 4:
			dst[idx] = defaults[idx]
		default:
			dst[idx] = 0
		}
	}
}
