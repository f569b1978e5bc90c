package pulse

import (
	"fmt"
	"log/slog"

	"github.com/hashicorp/golang-lru/v2"
	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/prism/glm"
)

type stateCache struct {
	rasterizer   *lru.Cache[gfx.RasterizerDesc, gfx.RasterizerState]
	depthStencil *lru.Cache[gfx.DepthStencilDesc, gfx.DepthStencilState]
}

func newStateCache() *stateCache {
	rasterizer, _ := lru.NewWithEvict[gfx.RasterizerDesc, gfx.RasterizerState](16, releaseOnEvict)
	depthStencil, _ := lru.NewWithEvict[gfx.DepthStencilDesc, gfx.DepthStencilState](16, releaseOnEvict)

	return &stateCache{rasterizer: rasterizer, depthStencil: depthStencil}
}

func releaseOnEvict[K any, V Releaser](_ K, value V) {
	value.Release()
}

func (c *stateCache) Purge() {
	c.rasterizer.Purge()
	c.depthStencil.Purge()
}

// CachedRasterizerState returns a rasterizer state matching your description.
// The state is owned by the cache, you must not call Release on it.
func (ctx *Context) CachedRasterizerState(desc gfx.RasterizerDesc) (gfx.RasterizerState, error) {
	state, ok := ctx.states.rasterizer.Get(desc)
	if ok {
		return state, nil
	}

	state, err := ctx.CreateRasterizerState(desc)
	if err != nil {
		return nil, fmt.Errorf("create rasterizer state: %w", err)
	}

	ctx.states.rasterizer.Add(desc, state)

	return state, nil
}

// CachedDepthStencilState returns a depth stencil state matching your
// description. The state is owned by the cache, you must not call Release
// on it.
func (ctx *Context) CachedDepthStencilState(desc gfx.DepthStencilDesc) (gfx.DepthStencilState, error) {
	state, ok := ctx.states.depthStencil.Get(desc)
	if ok {
		return state, nil
	}

	state, err := ctx.CreateDepthStencilState(desc)
	if err != nil {
		return nil, fmt.Errorf("create depth stencil state: %w", err)
	}

	ctx.states.depthStencil.Add(desc, state)

	return state, nil
}

type StateOptions struct {
	// Cull defaults to gfx.CullBack. Use gfx.CullNone to show both
	// sides of every triangle.
	Cull gfx.CullMode

	Wireframe bool
}

// FixedFunctionState holds the rasterizer, depth test and viewport state.
// Depth testing always uses LESS with depth writes enabled.
type FixedFunctionState struct {
	rasterizer   gfx.RasterizerState
	depthStencil gfx.DepthStencilState
	viewport     gfx.Viewport
}

func NewFixedFunctionState(ctx *Context, opts StateOptions, width, height uint32) (*FixedFunctionState, error) {
	if opts.Cull == 0 {
		opts.Cull = gfx.CullBack
	}

	rasterizerDesc := gfx.RasterizerDesc{
		Fill:      gfx.FillSolid,
		Cull:      opts.Cull,
		DepthClip: true,
	}

	if opts.Wireframe {
		rasterizerDesc.Fill = gfx.FillWireframe
	}

	rasterizer, err := ctx.CachedRasterizerState(rasterizerDesc)
	if err != nil {
		return nil, newError(ErrResourceCreation, "state", "create", err)
	}

	depthStencil, err := ctx.CachedDepthStencilState(gfx.DepthStencilDesc{
		DepthEnable: true,
		DepthWrite:  true,
		DepthFunc:   gfx.CompareLess,
	})
	if err != nil {
		return nil, newError(ErrResourceCreation, "state", "create", err)
	}

	slog.Debug("Fixed function state created",
		slog.String("cull", opts.Cull.String()),
		slog.Bool("wireframe", opts.Wireframe),
	)

	s := &FixedFunctionState{
		rasterizer:   rasterizer,
		depthStencil: depthStencil,
	}

	s.Resize(width, height)

	return s, nil
}

// Resize rebuilds the viewport to cover a target of the given size.
func (s *FixedFunctionState) Resize(width, height uint32) {
	bounds := RectangleFromSize(glm.Vec2f{}, glm.Vec2f{float32(width), float32(height)})
	s.viewport = ViewportOf(bounds)
}

func (s *FixedFunctionState) Viewport() gfx.Viewport {
	return s.viewport
}

func (s *FixedFunctionState) Rasterizer() gfx.RasterizerDesc {
	return s.rasterizer.Desc()
}

func (s *FixedFunctionState) Bind(rec gfx.Context) {
	rec.SetRasterizerState(s.rasterizer)
	rec.SetDepthStencilState(s.depthStencil)
	rec.SetViewport(s.viewport)
}

// Release drops the references to the state objects, which are owned by
// the state cache of the Context.
func (s *FixedFunctionState) Release() {
	if s == nil {
		return
	}

	s.rasterizer = nil
	s.depthStencil = nil
}

// ViewportOf returns a viewport covering the rectangle with the full depth range.
func ViewportOf(rect Rectangle2f) gfx.Viewport {
	x, y, w, h := rect.XYWH()

	return gfx.Viewport{
		X:        x,
		Y:        y,
		Width:    w,
		Height:   h,
		MinDepth: 0,
		MaxDepth: 1,
	}
}
