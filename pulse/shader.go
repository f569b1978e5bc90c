package pulse

import (
	"crypto/sha256"
	"fmt"
	"log/slog"

	"github.com/hashicorp/golang-lru/v2"
	"github.com/oliverbestmann/prism/gfx"
)

// ShaderSource holds the source code of a shader stage. HLSL is required,
// WGSL is only used by devices that compile WGSL.
type ShaderSource struct {
	// Name of the source file, used in diagnostics.
	Name string

	HLSL string
	WGSL string
}

func (src ShaderSource) code(lang gfx.ShaderLanguage) (string, error) {
	switch lang {
	case gfx.LanguageWGSL:
		if src.WGSL == "" {
			return "", fmt.Errorf("%s has no WGSL source", src.Name)
		}

		return src.WGSL, nil

	default:
		return src.HLSL, nil
	}
}

type EntryPoints struct {
	// entry point of the vertex stage, defaults to "VS"
	Vertex string

	// entry point of the fragment stage, defaults to "PS"
	Fragment string

	// Model is the shader model suffix of the profiles, defaults to "4_0".
	Model string
}

func (e EntryPoints) withDefaults() EntryPoints {
	if e.Vertex == "" {
		e.Vertex = "VS"
	}

	if e.Fragment == "" {
		e.Fragment = "PS"
	}

	if e.Model == "" {
		e.Model = "4_0"
	}

	return e
}

// ShaderProgram is a vertex and a pixel shader together with the input
// layout created against the vertex shader's input signature.
type ShaderProgram struct {
	Name string

	vertex gfx.VertexShader
	pixel  gfx.PixelShader
	layout gfx.InputLayout
}

// CompileProgram compiles both stages and creates the input layout. Compile
// failures are returned as ErrShaderCompile with the compiler output in
// the Diagnostic of the Error.
func CompileProgram(ctx *Context, vertex, fragment ShaderSource, entries EntryPoints, elements []gfx.InputElement) (*ShaderProgram, error) {
	entries = entries.withDefaults()

	program := &ShaderProgram{Name: vertex.Name}

	guard := NewReleaseGuard(program)
	defer guard.Release()

	lang := ctx.ShaderLanguage()

	vsCode, err := vertex.code(lang)
	if err != nil {
		return nil, newError(ErrShaderCompile, "shader", "compile vertex stage", err)
	}

	vsBlob, err := ctx.shaders.Compile(ctx, []byte(vsCode), vertex.Name, entries.Vertex, "vs_"+entries.Model)
	if err != nil {
		return nil, newError(ErrShaderCompile, "shader", "compile vertex stage", err)
	}

	program.vertex, err = ctx.CreateVertexShader(vsBlob)
	if err != nil {
		return nil, newError(ErrShaderCompile, "shader", "create vertex shader", err)
	}

	program.layout, err = ctx.CreateInputLayout(elements, vsBlob)
	if err != nil {
		return nil, newError(ErrShaderCompile, "shader", "create input layout", err)
	}

	psCode, err := fragment.code(lang)
	if err != nil {
		return nil, newError(ErrShaderCompile, "shader", "compile fragment stage", err)
	}

	psBlob, err := ctx.shaders.Compile(ctx, []byte(psCode), fragment.Name, entries.Fragment, "ps_"+entries.Model)
	if err != nil {
		return nil, newError(ErrShaderCompile, "shader", "compile fragment stage", err)
	}

	program.pixel, err = ctx.CreatePixelShader(psBlob)
	if err != nil {
		return nil, newError(ErrShaderCompile, "shader", "create pixel shader", err)
	}

	slog.Info("Shader program created",
		slog.String("vertex", vertex.Name+":"+entries.Vertex),
		slog.String("fragment", fragment.Name+":"+entries.Fragment),
		slog.String("model", entries.Model),
	)

	guard.Keep()

	return program, nil
}

// Bind installs both stages and the input layout.
func (p *ShaderProgram) Bind(rec gfx.Context) {
	rec.SetInputLayout(p.layout)
	rec.SetVertexShader(p.vertex)
	rec.SetPixelShader(p.pixel)
}

// Release releases shaders and layout. It is safe to call Release multiple
// times or on a nil ShaderProgram.
func (p *ShaderProgram) Release() {
	if p == nil {
		return
	}

	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}

	if p.pixel != nil {
		p.pixel.Release()
		p.pixel = nil
	}

	if p.vertex != nil {
		p.vertex.Release()
		p.vertex = nil
	}
}

type shaderKey struct {
	source  [sha256.Size]byte
	name    string
	entry   string
	profile string
}

// ShaderCache memoizes compiled shader blobs by source, entry point and
// profile. It belongs to a single device.
type ShaderCache struct {
	cache *lru.Cache[shaderKey, gfx.Blob]

	Hits   uint64
	Misses uint64
}

func NewShaderCache(size int) (*ShaderCache, error) {
	cache, err := lru.NewWithEvict[shaderKey, gfx.Blob](size, releaseOnEvict)
	if err != nil {
		return nil, fmt.Errorf("create shader cache: %w", err)
	}

	return &ShaderCache{cache: cache}, nil
}

// Compile returns the cached blob or compiles the source. The blob is owned
// by the cache, you must not call Release on it.
func (c *ShaderCache) Compile(ctx *Context, source []byte, name, entry, profile string) (gfx.Blob, error) {
	key := shaderKey{
		source:  sha256.Sum256(source),
		name:    name,
		entry:   entry,
		profile: profile,
	}

	if blob, ok := c.cache.Get(key); ok {
		c.Hits++
		return blob, nil
	}

	c.Misses++

	blob, err := ctx.CompileShader(source, name, entry, profile)
	if err != nil {
		return nil, fmt.Errorf("compile %s:%s (%s): %w", name, entry, profile, err)
	}

	c.cache.Add(key, blob)

	return blob, nil
}

func (c *ShaderCache) Len() int {
	return c.cache.Len()
}

// Purge releases all cached blobs.
func (c *ShaderCache) Purge() {
	c.cache.Purge()
}

// ProgramSlot holds the program used for rendering and supports swapping
// it between frames. It is not safe for concurrent use.
type ProgramSlot struct {
	current *ShaderProgram
	pending *ShaderProgram
}

func NewProgramSlot(program *ShaderProgram) *ProgramSlot {
	return &ProgramSlot{current: program}
}

func (s *ProgramSlot) Current() *ShaderProgram {
	return s.current
}

// Queue stores a program to use from the next frame on. A program queued
// before and not yet applied is released.
func (s *ProgramSlot) Queue(program *ShaderProgram) {
	if s.pending != nil && s.pending != program {
		s.pending.Release()
	}

	s.pending = program
}

// Apply swaps in the pending program and releases the old one. Call it at
// frame boundaries only. Returns true if the program was swapped.
func (s *ProgramSlot) Apply() bool {
	if s.pending == nil {
		return false
	}

	old := s.current

	s.current = s.pending
	s.pending = nil

	if old != nil && old != s.current {
		old.Release()
	}

	slog.Info("Shader program swapped", slog.String("name", s.current.Name))

	return true
}

// Release releases the current and the pending program.
func (s *ProgramSlot) Release() {
	if s == nil {
		return
	}

	s.pending.Release()
	s.current.Release()

	s.pending = nil
	s.current = nil
}
