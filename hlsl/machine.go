package hlsl

// machine is the runtime state of one shader invocation. All values are
// stored as float32 components. Integers and booleans are represented
// by their numeric value.
type machine struct {
	stack []float32

	// frame pointer of the active function and top of the stack
	fp, sp int

	cbuffers  [][]float32
	statics   []float32
	discarded bool
}

// slot returns n components of the active frame at offset off.
func (m *machine) slot(off, n int) []float32 {
	base := m.fp + off
	return m.stack[base : base+n : base+n]
}

type evalFn func(m *machine) []float32

type control uint8

const (
	ctlNext control = iota
	ctlReturn
	ctlBreak
	ctlContinue
)

type execFn func(m *machine) control

// function is a compiled user function or entry point.
type function struct {
	decl *funcDecl
	name string

	ret    Type
	params []*variable

	// frame layout: return value, parameters, locals and temporaries
	frameSize int
	body      execFn

	callees   []*function
	compiling bool
	compiled  bool
}

// stackSize returns the number of components needed to run the function
// including all nested calls.
func (fn *function) stackSize() int {
	var nested int
	for _, callee := range fn.callees {
		nested = max(nested, callee.stackSize())
	}

	return fn.frameSize + nested
}

// Invoker runs a compiled shader. An Invoker is not safe for concurrent use,
// create one Invoker per goroutine.
type Invoker struct {
	shader *Shader
	m      machine
}

// NewInvoker creates a new Invoker for the shader.
func (s *Shader) NewInvoker() *Invoker {
	inv := &Invoker{shader: s}

	inv.m.stack = make([]float32, s.stackSize)
	inv.m.statics = make([]float32, s.staticSize)
	inv.m.cbuffers = make([][]float32, len(s.cbuffers))

	for idx, cb := range s.cbuffers {
		inv.m.cbuffers[idx] = make([]float32, cb.components)
	}

	return inv
}

// SetConstants decodes the raw contents of the constant buffer bound to the
// register. Registers the shader does not use are ignored.
func (inv *Invoker) SetConstants(register uint32, raw []byte) {
	for idx, cb := range inv.shader.cbuffers {
		if cb.Register == register {
			inv.m.cbuffers[idx] = cb.Decode(inv.m.cbuffers[idx], raw)
		}
	}
}

// Invoke runs the entry point. in holds the components of all input
// signature elements, out receives the components of all output elements.
// The result is false if the invocation executed discard.
func (inv *Invoker) Invoke(in, out []float32) bool {
	s := inv.shader
	m := &inv.m

	m.discarded = false

	if s.init != nil {
		m.fp = 0
		m.sp = s.init.frameSize
		clear(m.stack[:m.sp])
		s.init.body(m)
	}

	m.fp = 0
	m.sp = s.entry.frameSize
	clear(m.stack[:m.sp])

	for _, el := range s.Inputs {
		n := el.Type.Size()
		copy(m.stack[el.frame:el.frame+n], in[el.Offset:el.Offset+n])
	}

	s.entry.body(m)

	if m.discarded {
		return false
	}

	for _, el := range s.Outputs {
		n := el.Type.Size()
		copy(out[el.Offset:el.Offset+n], m.stack[el.frame:el.frame+n])
	}

	return true
}
