package wgpu

import (
	"fmt"

	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/webgpu/wgpu"
)

type Buffer struct {
	desc   gfx.BufferDesc
	buffer *wgpu.Buffer

	// cpu side copy of a dynamic buffer, uploaded on Unmap
	shadow []byte
	mapped bool
}

func (b *Buffer) Desc() gfx.BufferDesc {
	return b.desc
}

func (b *Buffer) Release() {
	if b.buffer != nil {
		b.buffer.Release()
		b.buffer = nil
	}
}

type Texture struct {
	desc    gfx.Texture2DDesc
	texture *wgpu.Texture

	// views created from this texture and still alive
	views int
}

func (t *Texture) Desc() gfx.Texture2DDesc {
	return t.desc
}

func (t *Texture) Release() {
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

// viewSource is implemented by textures a view can be created for. The
// back buffer of a swap chain acquires its surface texture lazily.
type viewSource interface {
	gfx.Texture2D
	textureView() (*wgpu.TextureView, error)
	addView(delta int)
}

func (t *Texture) textureView() (*wgpu.TextureView, error) {
	if t.texture == nil {
		return nil, errReleased
	}

	return t.texture.CreateView(nil)
}

func (t *Texture) addView(delta int) {
	t.views += delta
}

type view struct {
	source viewSource

	// nil for views of a back buffer until first use in a frame
	view *wgpu.TextureView
}

func newView(tex gfx.Texture2D) (*view, error) {
	source, ok := tex.(viewSource)
	if !ok {
		return nil, fmt.Errorf("texture of type %T: %w", tex, gfx.ErrInvalidCall)
	}

	v := &view{source: source}

	if _, lazy := source.(*backBuffer); !lazy {
		tv, err := source.textureView()
		if err != nil {
			return nil, err
		}

		v.view = tv
	}

	source.addView(1)

	return v, nil
}

// resolve returns the texture view to render into.
func (v *view) resolve() (*wgpu.TextureView, error) {
	if v.view != nil {
		return v.view, nil
	}

	if v.source == nil {
		return nil, errReleased
	}

	// back buffer views are only valid for the current frame
	return v.source.textureView()
}

func (v *view) release() {
	if v.source == nil {
		return
	}

	if v.view != nil {
		v.view.Release()
		v.view = nil
	}

	v.source.addView(-1)
	v.source = nil
}

type RenderTargetView view

func (v *RenderTargetView) Texture() gfx.Texture2D {
	return v.source
}

func (v *RenderTargetView) Release() {
	(*view)(v).release()
}

type DepthStencilView view

func (v *DepthStencilView) Texture() gfx.Texture2D {
	return v.source
}

func (v *DepthStencilView) Release() {
	(*view)(v).release()
}

type RasterizerState struct {
	desc gfx.RasterizerDesc
}

func (s *RasterizerState) Desc() gfx.RasterizerDesc {
	return s.desc
}

func (s *RasterizerState) Release() {}

type DepthStencilState struct {
	desc gfx.DepthStencilDesc
}

func (s *DepthStencilState) Desc() gfx.DepthStencilDesc {
	return s.desc
}

func (s *DepthStencilState) Release() {}
