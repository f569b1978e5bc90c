package hlsl

// funcCompiler compiles the body of one function into closures.
type funcCompiler struct {
	c  *compiler
	fn *function

	// size of the frame allocated so far
	size int

	scopes []map[string]*variable
	loops  int
}

func (fc *funcCompiler) alloc(n int) int {
	off := fc.size
	fc.size += n
	return off
}

func (fc *funcCompiler) pushScope() {
	fc.scopes = append(fc.scopes, map[string]*variable{})
}

func (fc *funcCompiler) popScope() {
	fc.scopes = fc.scopes[:len(fc.scopes)-1]
}

func (fc *funcCompiler) declare(pos Pos, v *variable) {
	scope := fc.scopes[len(fc.scopes)-1]
	if _, exists := scope[v.name]; exists {
		fc.c.abort(pos, 3003, "redefinition of '%s'", v.name)
	}

	scope[v.name] = v
}

func (fc *funcCompiler) lookup(name string) (*variable, bool) {
	for idx := len(fc.scopes) - 1; idx >= 0; idx-- {
		if v, ok := fc.scopes[idx][name]; ok {
			return v, true
		}
	}

	v, ok := fc.c.globals[name]
	if ok && v.class == storageConstant {
		fc.c.referenced[v.cbuffer] = true
	}

	return v, ok
}

func (fc *funcCompiler) stmt(s stmt) execFn {
	switch s := s.(type) {
	case *blockStmt:
		return fc.block(s, true)

	case *emptyStmt:
		return func(*machine) control { return ctlNext }

	case *declStmt:
		return fc.declStmt(s)

	case *exprStmt:
		eval := fc.expr(s.x).eval
		return func(m *machine) control {
			eval(m)
			return ctlNext
		}

	case *ifStmt:
		return fc.ifStmt(s)

	case *forStmt:
		return fc.forStmt(s)

	case *whileStmt:
		return fc.whileStmt(s)

	case *returnStmt:
		return fc.returnStmt(s)

	case *branchStmt:
		return fc.branchStmt(s)
	}

	fc.c.abort(s.stmtPos(), 3000, "syntax error: unsupported statement")
	return nil
}

func (fc *funcCompiler) block(b *blockStmt, scoped bool) execFn {
	if scoped {
		fc.pushScope()
		defer fc.popScope()
	}

	var stmts []execFn
	for _, s := range b.stmts {
		stmts = append(stmts, fc.stmt(s))
	}

	return func(m *machine) control {
		for _, s := range stmts {
			if ctl := s(m); ctl != ctlNext {
				return ctl
			}
		}

		return ctlNext
	}
}

func (fc *funcCompiler) declStmt(s *declStmt) execFn {
	typ := fc.c.resolveType(s.typ)
	if typ.Base == Void {
		fc.c.abort(s.typ.pos, 3038, "'%s': void type not allowed here", s.vars[0].name)
	}

	var inits []execFn

	for _, d := range s.vars {
		v := &variable{name: d.name, typ: typ, class: storageLocal, offset: fc.alloc(typ.Size())}

		if d.init != nil {
			inits = append(inits, fc.initialize(v, d.init))
		} else {
			if s.isConst {
				fc.c.abort(d.pos, 3012, "'%s': missing initial value", d.name)
			}

			storage := v.storage()
			inits = append(inits, func(m *machine) control {
				clear(storage(m))
				return ctlNext
			})
		}

		v.readonly = s.isConst
		fc.declare(d.pos, v)
	}

	if len(inits) == 1 {
		return inits[0]
	}

	return func(m *machine) control {
		for _, init := range inits {
			init(m)
		}

		return ctlNext
	}
}

// initialize compiles the assignment of the initial value of a variable.
func (fc *funcCompiler) initialize(v *variable, init expr) execFn {
	value := fc.convert(fc.expr(init), v.typ, init.exprPos())
	value = fc.detach(value)

	storage := v.storage()
	eval := value.eval

	return func(m *machine) control {
		copy(storage(m), eval(m))
		return ctlNext
	}
}

func (fc *funcCompiler) condition(e expr) evalFn {
	cond := fc.expr(e)
	if !cond.typ.isNumeric() {
		fc.c.abort(e.exprPos(), 3019, "if statement conditional expressions must evaluate to a scalar")
	}

	if !cond.typ.IsScalar() {
		fc.c.errs.warn(e.exprPos(), 3206, "implicit truncation of vector type")
	}

	return cond.eval
}

func (fc *funcCompiler) ifStmt(s *ifStmt) execFn {
	cond := fc.condition(s.cond)
	then := fc.stmt(s.then)

	if s.els == nil {
		return func(m *machine) control {
			if cond(m)[0] != 0 {
				return then(m)
			}

			return ctlNext
		}
	}

	els := fc.stmt(s.els)

	return func(m *machine) control {
		if cond(m)[0] != 0 {
			return then(m)
		}

		return els(m)
	}
}

func (fc *funcCompiler) loopBody(s stmt) execFn {
	fc.loops++
	defer func() { fc.loops-- }()

	return fc.stmt(s)
}

func (fc *funcCompiler) forStmt(s *forStmt) execFn {
	fc.pushScope()
	defer fc.popScope()

	var init execFn
	if s.init != nil {
		init = fc.stmt(s.init)
	}

	var cond evalFn
	if s.cond != nil {
		cond = fc.condition(s.cond)
	}

	var post evalFn
	if s.post != nil {
		post = fc.expr(s.post).eval
	}

	body := fc.loopBody(s.body)

	return func(m *machine) control {
		if init != nil {
			init(m)
		}

		for cond == nil || cond(m)[0] != 0 {
			switch body(m) {
			case ctlReturn:
				return ctlReturn
			case ctlBreak:
				return ctlNext
			}

			if post != nil {
				post(m)
			}
		}

		return ctlNext
	}
}

func (fc *funcCompiler) whileStmt(s *whileStmt) execFn {
	cond := fc.condition(s.cond)
	body := fc.loopBody(s.body)
	isDo := s.do

	return func(m *machine) control {
		first := isDo

		for first || cond(m)[0] != 0 {
			first = false

			switch body(m) {
			case ctlReturn:
				return ctlReturn
			case ctlBreak:
				return ctlNext
			}
		}

		return ctlNext
	}
}

func (fc *funcCompiler) returnStmt(s *returnStmt) execFn {
	ret := fc.fn.ret

	if ret.Base == Void {
		if s.x != nil {
			fc.c.abort(s.pos, 3079, "'%s': void functions cannot return a value", fc.fn.name)
		}

		return func(*machine) control { return ctlReturn }
	}

	if s.x == nil {
		fc.c.abort(s.pos, 3080, "'%s': function must return a value", fc.fn.name)
	}

	value := fc.convert(fc.expr(s.x), ret, s.x.exprPos())
	eval := value.eval
	n := ret.Size()

	return func(m *machine) control {
		copy(m.slot(0, n), eval(m))
		return ctlReturn
	}
}

func (fc *funcCompiler) branchStmt(s *branchStmt) execFn {
	switch s.kind {
	case "discard":
		return func(m *machine) control {
			m.discarded = true
			return ctlReturn
		}

	case "break":
		if fc.loops == 0 {
			fc.c.abort(s.pos, 3518, "break must be inside a loop")
		}

		return func(*machine) control { return ctlBreak }

	default:
		if fc.loops == 0 {
			fc.c.abort(s.pos, 3519, "continue must be inside a loop")
		}

		return func(*machine) control { return ctlContinue }
	}
}
