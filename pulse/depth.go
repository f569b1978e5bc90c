package pulse

import (
	"fmt"
	"log/slog"

	"github.com/oliverbestmann/prism/gfx"
)

// DepthFormat is the format of every DepthSurface: 24 bit depth and 8 bit stencil.
const DepthFormat = gfx.FormatD24UnormS8Uint

// DepthSurface owns a depth stencil texture and its view. Its size must
// always match the size of the back buffer it is used with.
type DepthSurface struct {
	ctx     *Context
	texture gfx.Texture2D
	view    gfx.DepthStencilView

	width, height uint32
}

func NewDepthSurface(ctx *Context, width, height uint32) (*DepthSurface, error) {
	d := &DepthSurface{ctx: ctx}

	if err := d.create(width, height); err != nil {
		return nil, newError(ErrResourceCreation, "depth", "create", err)
	}

	return d, nil
}

func (d *DepthSurface) create(width, height uint32) error {
	texture, err := d.ctx.CreateTexture2D(gfx.Texture2DDesc{
		Label:       "DepthTexture",
		Width:       width,
		Height:      height,
		Format:      DepthFormat,
		Bind:        gfx.BindDepthStencil,
		SampleCount: 1,
	})

	if err != nil {
		return fmt.Errorf("create depth texture: %w", err)
	}

	view, err := d.ctx.CreateDepthStencilView(texture)
	if err != nil {
		texture.Release()
		return fmt.Errorf("create depth stencil view: %w", err)
	}

	d.texture = texture
	d.view = view
	d.width, d.height = width, height

	return nil
}

// Resize replaces texture and view with ones of the new size.
func (d *DepthSurface) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return newError(ErrZeroSizedWindow, "depth", "resize", fmt.Errorf("size %dx%d", width, height))
	}

	if width == d.width && height == d.height && d.view != nil {
		return nil
	}

	d.release()

	if err := d.create(width, height); err != nil {
		return newError(ErrResizeRefused, "depth", "resize", err)
	}

	slog.Debug("Depth surface resized",
		slog.Int("width", int(width)),
		slog.Int("height", int(height)),
	)

	return nil
}

func (d *DepthSurface) View() gfx.DepthStencilView {
	return d.view
}

func (d *DepthSurface) Size() (width, height uint32) {
	return d.width, d.height
}

// CheckSize panics if the surface does not match the given size. Rendering
// with a depth surface of another size than the render target is a bug.
func (d *DepthSurface) CheckSize(width, height uint32) {
	if d.width != width || d.height != height {
		panic(fmt.Sprintf("depth surface is %dx%d, render target is %dx%d", d.width, d.height, width, height))
	}
}

// Clear resets the depth to the far plane and the stencil to zero.
func (d *DepthSurface) Clear(rec gfx.Context) {
	rec.ClearDepthStencilView(d.view, 1, 0)
}

func (d *DepthSurface) release() {
	if d.view != nil {
		d.view.Release()
		d.view = nil
	}

	if d.texture != nil {
		d.texture.Release()
		d.texture = nil
	}
}

// Release releases the view and the texture. It is safe to call Release
// multiple times or on a nil DepthSurface.
func (d *DepthSurface) Release() {
	if d == nil {
		return
	}

	d.release()
}
