package d3d11

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/oliverbestmann/prism/gfx"
	"golang.org/x/sys/windows"
)

// Blob is compiled shader bytecode.
type Blob struct {
	bytecode []byte
	entry    string
	profile  string
}

func (b *Blob) Bytes() []byte {
	return b.bytecode
}

func (b *Blob) EntryPoint() string {
	return b.entry
}

func (b *Blob) Profile() string {
	return b.profile
}

func (b *Blob) Release() {}

// CompileShader compiles HLSL source with D3DCompile. Debug devices
// compile without optimizations and with debug information.
func (dev *Device) CompileShader(source []byte, name, entryPoint, profile string) (gfx.Blob, error) {
	if err := d3dcompilerDLL.Load(); err != nil {
		return nil, fmt.Errorf("load d3dcompiler_47.dll: %w: %w", gfx.ErrUnsupported, err)
	}

	if len(source) == 0 {
		return nil, &gfx.CompileError{Name: name, Log: name + ": empty source"}
	}

	sourceName, err := windows.BytePtrFromString(name)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, gfx.ErrInvalidCall)
	}

	entry, err := windows.BytePtrFromString(entryPoint)
	if err != nil {
		return nil, fmt.Errorf("compile %s: entry point: %w", name, gfx.ErrInvalidCall)
	}

	target, err := windows.BytePtrFromString(profile)
	if err != nil {
		return nil, fmt.Errorf("compile %s: profile: %w", name, gfx.ErrInvalidCall)
	}

	flags := uint32(compileEnableStrictness)
	if dev.debug {
		flags |= compileDebug | compileSkipOptimization
	}

	var code, diagnostics *iD3DBlob

	r, _, _ := procD3DCompile.Call(
		uintptr(unsafe.Pointer(&source[0])),
		uintptr(len(source)),
		uintptr(unsafe.Pointer(sourceName)),
		0, // pDefines
		0, // pInclude
		uintptr(unsafe.Pointer(entry)),
		uintptr(unsafe.Pointer(target)),
		uintptr(flags),
		0, // Flags2
		uintptr(unsafe.Pointer(&code)),
		uintptr(unsafe.Pointer(&diagnostics)),
	)

	var log string
	if diagnostics != nil {
		log = strings.TrimRight(string(diagnostics.Bytes()), "\x00")
		release(unsafe.Pointer(diagnostics))
	}

	if err := hresult("D3DCompile", r); err != nil {
		if log == "" {
			log = err.Error()
		}

		return nil, &gfx.CompileError{Name: name, Log: log}
	}

	defer release(unsafe.Pointer(code))

	return &Blob{bytecode: code.Bytes(), entry: entryPoint, profile: profile}, nil
}
