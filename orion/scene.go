package orion

import (
	"math"

	"github.com/oliverbestmann/prism/assets"
	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/prism/glm"
	"github.com/oliverbestmann/prism/pulse"
)

// Camera describes a left-handed perspective camera. The aspect ratio is
// taken from the back buffer in every frame.
type Camera struct {
	Eye    glm.Vec3f
	Target glm.Vec3f
	Up     glm.Vec3f

	FovY glm.Rad
	Near float32
	Far  float32
}

// DefaultCamera sits three units in front of the origin and looks at it.
var DefaultCamera = Camera{
	Eye:    glm.Vec3f{0, 0, -3},
	Target: glm.Vec3f{0, 0, 0},
	Up:     glm.Vec3f{0, 1, 0},
	FovY:   math.Pi / 4,
	Near:   0.1,
	Far:    100,
}

func (c Camera) View() glm.Mat4f {
	return glm.LookAtLH(c.Eye, c.Target, c.Up)
}

func (c Camera) Projection(width, height uint32) glm.Mat4f {
	aspect := float32(width) / float32(height)
	return glm.PerspectiveFovLH(c.FovY, aspect, c.Near, c.Far)
}

// Spin rotates around the y axis by t and around the x axis by t/2.
func Spin(t float64) glm.Mat4f {
	return glm.RotationYMat4[float32](glm.Rad(t)).
		Mul(glm.RotationXMat4[float32](glm.Rad(0.5 * t)))
}

// Scene is everything the frame controller draws: one indexed mesh, the
// program to draw it with and the transforms to use.
type Scene struct {
	Name string

	Vertex   pulse.ShaderSource
	Fragment pulse.ShaderSource
	Entries  pulse.EntryPoints

	// Layout of the vertex data, defaults to pulse.VertexLayout.
	Layout []gfx.InputElement

	Vertices []pulse.Vertex
	Indices  []uint32

	// Topology defaults to a triangle list.
	Topology gfx.Topology

	// World returns the world matrix at time t in seconds. Defaults to identity.
	World func(t float64) glm.Mat4f

	// Camera provides view and projection. Without a camera both are identity.
	Camera *Camera

	ClearColor pulse.Color
}

func (s Scene) withDefaults() Scene {
	if s.Layout == nil {
		s.Layout = pulse.VertexLayout
	}

	if s.Topology == 0 {
		s.Topology = gfx.TriangleList
	}

	if s.World == nil {
		s.World = func(float64) glm.Mat4f { return glm.IdentityMat4[float32]() }
	}

	return s
}

// Transforms computes the transform block for time t and a back buffer of
// the given size.
func (s Scene) Transforms(t float64, width, height uint32) pulse.TransformBlock {
	block := pulse.IdentityTransforms()
	block.World = s.World(t)

	if s.Camera != nil {
		block.View = s.Camera.View()
		block.Projection = s.Camera.Projection(width, height)
	}

	return block
}

// TriangleScene draws the hello triangle without any transformation.
func TriangleScene() Scene {
	return Scene{
		Name:       "triangle",
		Vertex:     assets.ColorShader,
		Fragment:   assets.ColorShader,
		Vertices:   assets.TriangleVertices,
		Indices:    assets.TriangleIndices,
		ClearColor: pulse.ColorBlack,
	}
}

// CubeScene draws the spinning cube.
func CubeScene() Scene {
	camera := DefaultCamera

	return Scene{
		Name:       "cube",
		Vertex:     assets.ColorShader,
		Fragment:   assets.ColorShader,
		Vertices:   assets.CubeVertices,
		Indices:    assets.CubeIndices,
		World:      Spin,
		Camera:     &camera,
		ClearColor: pulse.ColorLinearRGBA(0.1, 0.1, 0.2, 1),
	}
}
