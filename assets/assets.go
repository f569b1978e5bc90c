// Package assets holds the shader and the meshes of the lesson programs.
package assets

import (
	_ "embed"

	"github.com/oliverbestmann/prism/glm"
	"github.com/oliverbestmann/prism/pulse"
)

//go:embed color.hlsl
var colorHLSL string

//go:embed color.wgsl
var colorWGSL string

// ColorShader transforms position by world, view and projection and
// passes the vertex color through.
var ColorShader = pulse.ShaderSource{
	Name: "color.hlsl",
	HLSL: colorHLSL,
	WGSL: colorWGSL,
}

var (
	Red    = glm.Vec4f{1, 0, 0, 1}
	Green  = glm.Vec4f{0, 1, 0, 1}
	Blue   = glm.Vec4f{0, 0, 1, 1}
	Yellow = glm.Vec4f{1, 1, 0, 1}
)

// TriangleVertices is the hello triangle with a red, a green and a blue corner.
var TriangleVertices = []pulse.Vertex{
	{Position: glm.Vec3f{0, 0.5, 0}, Color: Red},
	{Position: glm.Vec3f{0.5, -0.5, 0}, Color: Green},
	{Position: glm.Vec3f{-0.5, -0.5, 0}, Color: Blue},
}

var TriangleIndices = []uint32{0, 1, 2}

// CubeVertices is a unit cube centered at the origin, the front face
// looks towards -z.
var CubeVertices = []pulse.Vertex{
	// front
	{Position: glm.Vec3f{-0.5, 0.5, -0.5}, Color: Red},
	{Position: glm.Vec3f{0.5, 0.5, -0.5}, Color: Green},
	{Position: glm.Vec3f{0.5, -0.5, -0.5}, Color: Blue},
	{Position: glm.Vec3f{-0.5, -0.5, -0.5}, Color: Yellow},

	// back
	{Position: glm.Vec3f{-0.5, 0.5, 0.5}, Color: glm.Vec4f{1, 0, 1, 1}},
	{Position: glm.Vec3f{0.5, 0.5, 0.5}, Color: glm.Vec4f{0, 1, 1, 1}},
	{Position: glm.Vec3f{0.5, -0.5, 0.5}, Color: glm.Vec4f{1, 1, 1, 1}},
	{Position: glm.Vec3f{-0.5, -0.5, 0.5}, Color: glm.Vec4f{0.5, 0.5, 0.5, 1}},
}

// CubeIndices lists the triangles of the cube, two per face in the order
// front, back, top, bottom, left and right.
var CubeIndices = []uint32{
	0, 1, 2, 0, 2, 3,
	4, 6, 5, 4, 7, 6,
	4, 5, 1, 4, 1, 0,
	3, 2, 6, 3, 6, 7,
	4, 0, 3, 4, 3, 7,
	1, 5, 6, 1, 6, 2,
}

// QuadVertices are the four corners used to show the primitive topologies.
var QuadVertices = []pulse.Vertex{
	{Position: glm.Vec3f{-0.5, 0.5, 0}, Color: Red},
	{Position: glm.Vec3f{0.5, 0.5, 0}, Color: Green},
	{Position: glm.Vec3f{0.5, -0.5, 0}, Color: Blue},
	{Position: glm.Vec3f{-0.5, -0.5, 0}, Color: Yellow},
}

var QuadIndices = []uint32{0, 1, 2, 3}
