package pulse

import "github.com/oliverbestmann/prism/gfx"

// RenderTarget holds all the information of something that can be rendered to.
// During a frame this is the current back buffer of a Surface.
type RenderTarget struct {
	View gfx.RenderTargetView

	// Texture format of View
	Format gfx.Format

	// Size of the target to render to
	Width  uint32
	Height uint32
}

// Clear clears the target to the given color.
func (t RenderTarget) Clear(rec gfx.Context, color Color) {
	rec.ClearRenderTargetView(t.View, color.ToArray())
}
