// Package hlsl compiles a subset of the High Level Shading Language into
// closures that run on the CPU.
//
// The subset covers what simple vertex and pixel shaders need: structs with
// semantics, constant buffers, functions, the usual statements and the
// common intrinsics. Diagnostics use the format of the fxc compiler.
package hlsl

import (
	"fmt"
	"strconv"
	"strings"
)

type Stage uint8

const (
	StageVertex Stage = iota
	StagePixel
)

func (s Stage) String() string {
	if s == StageVertex {
		return "vertex"
	}

	return "pixel"
}

// SignatureElement is one value passed into or out of an entry point.
type SignatureElement struct {
	// upper case name of the semantic without its index, e.g. "TEXCOORD"
	SemanticName  string
	SemanticIndex uint32
	Type          Type

	// Offset of the first component in the flat input or output array
	Offset int

	// offset within the frame of the entry point
	frame int
}

// SystemValue reports whether the element is a system value like SV_POSITION.
func (e SignatureElement) SystemValue() bool {
	return strings.HasPrefix(e.SemanticName, "SV_")
}

func (e SignatureElement) String() string {
	return e.SemanticName + strconv.Itoa(int(e.SemanticIndex)) + ":" + e.Type.String()
}

// Shader is a compiled entry point.
type Shader struct {
	Name       string
	EntryPoint string
	Profile    string
	Stage      Stage

	// shader model, e.g. 5 and 0 for vs_5_0
	Major, Minor int

	Inputs          []SignatureElement
	Outputs         []SignatureElement
	// ConstantBuffers holds the constant buffers the entry point reads.
	ConstantBuffers []*ConstantBuffer

	// number of components of all inputs and all outputs
	InputSize  int
	OutputSize int

	// Warnings emitted during compilation
	Warnings []Diagnostic

	// all constant buffers declared in the source
	cbuffers []*ConstantBuffer

	entry      *function
	init       *function
	stackSize  int
	staticSize int
}

// Input returns the input element with the given semantic.
func (s *Shader) Input(semantic string, index uint32) (SignatureElement, bool) {
	return findElement(s.Inputs, semantic, index)
}

// Output returns the output element with the given semantic.
func (s *Shader) Output(semantic string, index uint32) (SignatureElement, bool) {
	return findElement(s.Outputs, semantic, index)
}

func findElement(elements []SignatureElement, semantic string, index uint32) (SignatureElement, bool) {
	semantic = strings.ToUpper(semantic)

	for _, el := range elements {
		if el.SemanticName == semantic && el.SemanticIndex == index {
			return el, true
		}
	}

	return SignatureElement{}, false
}

// ConstantBuffer returns the constant buffer bound to the register or nil.
func (s *Shader) ConstantBuffer(register uint32) *ConstantBuffer {
	for _, cb := range s.ConstantBuffers {
		if cb.Register == register {
			return cb
		}
	}

	return nil
}

// ParseProfile parses a target profile like "vs_4_0" or "ps_4_0_level_9_3".
func ParseProfile(profile string) (stage Stage, major, minor int, err error) {
	parts := strings.SplitN(profile, "_", 4)
	if len(parts) < 3 {
		return 0, 0, 0, fmt.Errorf("invalid target '%s'", profile)
	}

	switch parts[0] {
	case "vs":
		stage = StageVertex
	case "ps":
		stage = StagePixel
	default:
		return 0, 0, 0, fmt.Errorf("invalid target '%s'", profile)
	}

	major, errMajor := strconv.Atoi(parts[1])
	minor, errMinor := strconv.Atoi(parts[2])
	if errMajor != nil || errMinor != nil {
		return 0, 0, 0, fmt.Errorf("invalid target '%s'", profile)
	}

	if len(parts) == 4 && !strings.HasPrefix(parts[3], "level_9_") {
		return 0, 0, 0, fmt.Errorf("invalid target '%s'", profile)
	}

	return stage, major, minor, nil
}

// Compile compiles the entry point of the source for the target profile.
// name is used as file name in diagnostics. Profiles below shader model 4
// are rejected. On failure the error is an *Error holding all diagnostics.
func Compile(source, name, entryPoint, profile string) (*Shader, error) {
	errs := &errorList{}

	fail := func() (*Shader, error) {
		return nil, &Error{Name: name, Diagnostics: errs.errors()}
	}

	stage, major, minor, err := ParseProfile(profile)
	if err != nil {
		errs.add(Pos{}, 3523, "%s", err.Error())
		return fail()
	}

	if major < 4 {
		errs.add(Pos{}, 3539, "'%s' is not supported, shader model 4.0 or higher is required", profile)
		return fail()
	}

	f := parse(source, errs)
	if f == nil || errs.failed() {
		return fail()
	}

	shader := &Shader{
		Name:       name,
		EntryPoint: entryPoint,
		Profile:    profile,
		Stage:      stage,
		Major:      major,
		Minor:      minor,
	}

	c := newCompiler(f, errs)
	if !c.compile(shader) {
		return fail()
	}

	shader.Warnings = errs.diags

	return shader, nil
}
