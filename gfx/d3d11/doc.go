// Package d3d11 implements the gfx interfaces on Direct3D 11.
//
// The package only registers a driver on windows. COM interfaces are
// called through their vtables, shaders are compiled at runtime with
// d3dcompiler_47.dll. Opening a software device selects the WARP adapter.
package d3d11

const DriverName = "d3d11"
