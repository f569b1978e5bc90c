package hlsl

import (
	"slices"
	"strings"
)

type storageClass uint8

const (
	storageLocal storageClass = iota
	storageConstant
	storageStatic
)

type variable struct {
	name     string
	typ      Type
	class    storageClass
	cbuffer  int
	offset   int
	readonly bool
}

// storage returns a function resolving the storage of the variable.
func (v *variable) storage() func(m *machine) []float32 {
	off := v.offset
	n := v.typ.Size()

	switch v.class {
	case storageConstant:
		idx := v.cbuffer
		return func(m *machine) []float32 {
			return m.cbuffers[idx][off : off+n : off+n]
		}

	case storageStatic:
		return func(m *machine) []float32 {
			return m.statics[off : off+n : off+n]
		}

	default:
		return func(m *machine) []float32 {
			base := m.fp + off
			return m.stack[base : base+n : base+n]
		}
	}
}

type compiler struct {
	file *file
	errs *errorList

	structs  map[string]*Struct
	globals  map[string]*variable
	cbuffers []*ConstantBuffer
	funcs    map[string][]*function

	// constant buffers read by the compiled code, by index into cbuffers
	referenced map[int]bool

	staticSize int
	init       *funcCompiler
}

func newCompiler(f *file, errs *errorList) *compiler {
	return &compiler{
		file:    f,
		errs:    errs,
		structs: map[string]*Struct{},
		globals: map[string]*variable{},
		funcs:   map[string][]*function{},

		referenced: map[int]bool{},
	}
}

// abort stops compilation after an error was recorded.
func (c *compiler) abort(pos Pos, code int, format string, args ...any) {
	c.errs.add(pos, code, format, args...)
	panic(bailout{})
}

func (c *compiler) compile(shader *Shader) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if _, isBailout := r.(bailout); !isBailout {
				panic(r)
			}

			ok = false
		}
	}()

	for _, decl := range c.file.structs {
		c.declareStruct(decl)
	}

	for _, decl := range c.file.funcs {
		if decl.body == nil {
			continue
		}

		fn := &function{decl: decl, name: decl.name}
		c.funcs[decl.name] = append(c.funcs[decl.name], fn)
	}

	c.declareConstantBuffers()
	c.declareStatics()

	entry := c.entryPoint(shader.EntryPoint)
	c.compileFunction(entry)

	c.buildSignatures(shader, entry)

	shader.entry = entry
	shader.cbuffers = c.cbuffers
	shader.ConstantBuffers = c.referencedConstantBuffers()
	shader.staticSize = c.staticSize
	shader.stackSize = entry.stackSize()

	if c.init != nil {
		shader.init = c.init.fn
		shader.stackSize = max(shader.stackSize, c.init.fn.stackSize())
	}

	return !c.errs.failed()
}

// referencedConstantBuffers returns the constant buffers the entry point,
// its callees or the static initializers read from.
func (c *compiler) referencedConstantBuffers() []*ConstantBuffer {
	var buffers []*ConstantBuffer
	for idx, cb := range c.cbuffers {
		if c.referenced[idx] {
			buffers = append(buffers, cb)
		}
	}

	return buffers
}

func (c *compiler) resolveType(ref typeRef) Type {
	if t, ok := builtinType(ref.name); ok {
		return t
	}

	if s, ok := c.structs[ref.name]; ok {
		return structType(s)
	}

	c.abort(ref.pos, 3000, "unrecognized identifier '%s'", ref.name)
	return Type{}
}

func (c *compiler) declareStruct(decl *structDecl) {
	if _, exists := c.structs[decl.name]; exists {
		c.abort(decl.pos, 3003, "redefinition of '%s'", decl.name)
	}

	s := &Struct{Name: decl.name}

	for _, fd := range decl.fields {
		typ := c.resolveType(fd.typ)
		if typ.Base == Void {
			c.abort(fd.pos, 3038, "'%s': void type not allowed here", fd.name)
		}

		if _, exists := s.field(fd.name); exists {
			c.abort(fd.pos, 3003, "redefinition of '%s'", fd.name)
		}

		s.Fields = append(s.Fields, Field{
			Name:     fd.name,
			Type:     typ,
			Semantic: fd.semantic,
			offset:   s.size,
		})

		s.size += typ.Size()
	}

	c.structs[decl.name] = s
}

func (c *compiler) declareGlobal(pos Pos, v *variable) {
	if _, exists := c.globals[v.name]; exists {
		c.abort(pos, 3003, "redefinition of '%s'", v.name)
	}

	c.globals[v.name] = v
}

func (c *compiler) declareConstantBuffers() {
	used := map[uint32]bool{}
	for _, decl := range c.file.cbuffers {
		if decl.register >= 0 {
			if used[uint32(decl.register)] {
				c.abort(decl.pos, 4500, "overlapping register semantics not yet implemented 'b%d'", decl.register)
			}

			used[uint32(decl.register)] = true
		}
	}

	nextFree := func() uint32 {
		var reg uint32
		for used[reg] {
			reg++
		}

		used[reg] = true
		return reg
	}

	addBuffer := func(name string, register uint32, fields []fieldDecl) {
		cb := &ConstantBuffer{Name: name, Register: register}

		for _, fd := range fields {
			typ := c.resolveType(fd.typ)
			if !typ.isNumeric() {
				c.abort(fd.pos, 3000, "'%s': only numeric types are supported in constant buffers", fd.name)
			}

			cb.Members = append(cb.Members, ConstantMember{
				Name:     fd.name,
				Type:     typ,
				RowMajor: fd.rowMajor && !fd.columnMajor,
			})
		}

		layoutConstantBuffer(cb)

		idx := len(c.cbuffers)
		c.cbuffers = append(c.cbuffers, cb)

		for memberIdx, m := range cb.Members {
			c.declareGlobal(fields[memberIdx].pos, &variable{
				name:     m.Name,
				typ:      m.Type,
				class:    storageConstant,
				cbuffer:  idx,
				offset:   m.component,
				readonly: true,
			})
		}
	}

	for _, decl := range c.file.cbuffers {
		if decl.register >= 0 {
			addBuffer(decl.name, uint32(decl.register), decl.fields)
		}
	}

	for _, decl := range c.file.cbuffers {
		if decl.register < 0 {
			addBuffer(decl.name, nextFree(), decl.fields)
		}
	}

	// uniform globals outside of a cbuffer end up in $Globals
	var globals []fieldDecl
	for _, g := range c.file.globals {
		if g.static {
			continue
		}

		for _, d := range g.decl.vars {
			if d.init != nil && !g.decl.isConst {
				c.errs.warn(d.pos, 3207, "initializer ignored - global variables are implicitly uniform")
			}

			globals = append(globals, fieldDecl{pos: d.pos, typ: g.decl.typ, name: d.name})
		}
	}

	if len(globals) > 0 {
		addBuffer("$Globals", nextFree(), globals)
	}
}

func (c *compiler) declareStatics() {
	for _, g := range c.file.globals {
		if !g.static {
			continue
		}

		if c.init == nil {
			fn := &function{name: "$init", ret: typeVoid}
			c.init = &funcCompiler{c: c, fn: fn}
			c.init.pushScope()
		}

		typ := c.resolveType(g.decl.typ)

		for _, d := range g.decl.vars {
			v := &variable{name: d.name, typ: typ, class: storageStatic, offset: c.staticSize}
			c.staticSize += typ.Size()

			var initExec execFn
			if d.init != nil {
				initExec = c.init.initialize(v, d.init)
			}

			v.readonly = g.decl.isConst
			c.declareGlobal(d.pos, v)

			if initExec != nil {
				previous := c.init.fn.body
				c.init.fn.body = func(m *machine) control {
					if previous != nil {
						previous(m)
					}

					return initExec(m)
				}
			}
		}
	}

	if c.init != nil {
		c.init.fn.frameSize = c.init.size

		if c.init.fn.body == nil {
			c.init = nil
		}
	}
}

func (c *compiler) entryPoint(name string) *function {
	candidates := c.funcs[name]
	if len(candidates) == 0 {
		c.abort(Pos{}, 3501, "'%s': entrypoint not found", name)
	}

	if len(candidates) > 1 {
		c.abort(candidates[1].decl.pos, 3003, "redefinition of '%s'", name)
	}

	return candidates[0]
}

func (c *compiler) compileFunction(fn *function) {
	if fn.compiled {
		return
	}

	if fn.compiling {
		c.abort(fn.decl.pos, 3500, "'%s': recursive functions not allowed", fn.name)
	}

	fn.compiling = true
	defer func() { fn.compiling = false }()

	fc := &funcCompiler{c: c, fn: fn}
	decl := fn.decl

	fn.ret = c.resolveType(decl.ret)
	fc.alloc(fn.ret.Size())

	fc.pushScope()

	for _, pd := range decl.params {
		typ := c.resolveType(pd.typ)
		if typ.Base == Void {
			c.abort(pd.pos, 3038, "'%s': void type not allowed here", pd.name)
		}

		v := &variable{name: pd.name, typ: typ, class: storageLocal, offset: fc.alloc(typ.Size())}
		fc.declare(pd.pos, v)

		fn.params = append(fn.params, v)
	}

	fn.body = fc.block(decl.body, false)

	if fn.ret.Base != Void && !returns(decl.body) {
		c.abort(decl.pos, 3507, "'%s': Not all control paths return a value", fn.name)
	}

	fn.frameSize = fc.size
	fn.compiled = true
}

// returns reports whether every path through the statement ends in a return.
func returns(s stmt) bool {
	switch s := s.(type) {
	case *returnStmt:
		return true

	case *branchStmt:
		return s.kind == "discard"

	case *blockStmt:
		return slices.ContainsFunc(s.stmts, returns)

	case *ifStmt:
		return s.els != nil && returns(s.then) && returns(s.els)

	case *whileStmt:
		return s.do && returns(s.body)
	}

	return false
}

func (c *compiler) buildSignatures(shader *Shader, entry *function) {
	decl := entry.decl

	var inputs, outputs []SignatureElement

	for idx, pd := range decl.params {
		param := entry.params[idx]

		if pd.in {
			elements := c.signatureOf(pd.pos, param.typ, pd.semantic, param.offset, func() {
				c.abort(pd.pos, 3502, "'%s': input parameter '%s' missing semantics", entry.name, pd.name)
			})

			inputs = append(inputs, elements...)
		}

		if pd.out {
			elements := c.signatureOf(pd.pos, param.typ, pd.semantic, param.offset, func() {
				c.abort(pd.pos, 3503, "'%s': output parameter '%s' missing semantics", entry.name, pd.name)
			})

			outputs = append(outputs, elements...)
		}
	}

	if entry.ret.Base != Void {
		elements := c.signatureOf(decl.pos, entry.ret, decl.semantic, 0, func() {
			c.abort(decl.pos, 3503, "'%s': function return value missing semantics", entry.name)
		})

		outputs = append(outputs, elements...)
	}

	if shader.Stage == StagePixel {
		for idx, el := range outputs {
			switch el.SemanticName {
			case "SV_TARGET", "SV_DEPTH":
			case "COLOR":
				// legacy name of the render target output
				outputs[idx].SemanticName = "SV_TARGET"
			default:
				c.abort(decl.pos, 4509, "invalid ps output semantic '%s%d'", el.SemanticName, el.SemanticIndex)
			}
		}
	}

	shader.Inputs, shader.InputSize = assignOffsets(inputs)
	shader.Outputs, shader.OutputSize = assignOffsets(outputs)
}

func assignOffsets(elements []SignatureElement) ([]SignatureElement, int) {
	var offset int
	for idx := range elements {
		elements[idx].Offset = offset
		offset += elements[idx].Type.Size()
	}

	return elements, offset
}

// signatureOf flattens a value with semantics into signature elements.
// Structs contribute one element per field.
func (c *compiler) signatureOf(pos Pos, typ Type, semantic string, frame int, missing func()) []SignatureElement {
	if typ.IsStruct() {
		if semantic != "" {
			c.abort(pos, 3000, "semantics on struct values are not supported")
		}

		var elements []SignatureElement
		for _, field := range typ.Struct.Fields {
			elements = append(elements, c.signatureOf(pos, field.Type, field.Semantic, frame+field.offset, missing)...)
		}

		return elements
	}

	if semantic == "" {
		missing()
	}

	name, index := splitSemantic(semantic)

	return []SignatureElement{{
		SemanticName:  strings.ToUpper(name),
		SemanticIndex: index,
		Type:          typ,
		frame:         frame,
	}}
}
