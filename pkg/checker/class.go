package checker

import (
	"strings"

	"jmm/pkg/errors"
	"jmm/pkg/lexer"
	"jmm/pkg/parser"
	"jmm/pkg/types"
)

// --- Phase 1: signatures ---

// DeclareTypes registers a handle for every class and interface declared in
// units. No supertype or member is resolved yet, so later declarations may
// refer to earlier ones and the other way round.
func (c *Checker) DeclareTypes(units ...*parser.CompilationUnit) {
	for _, cu := range units {
		c.enterUnit(cu)
		for _, decl := range cu.Types {
			name := decl.Name
			if cu.Package != "" {
				name = cu.Package + "." + name
			}
			mods := decl.Modifiers
			if decl.Interface {
				mods |= types.Interface | types.Abstract
			}
			ct, fresh := c.registry.Declare(name, mods)
			if !fresh {
				c.errorf(errors.DuplicateBinding, decl, "type %s is already defined", name)
				// Analyze the duplicate against a private handle so that its
				// members do not leak into the first declaration.
				ct = &types.ClassType{Name: name, Modifiers: mods}
			}
			decl.Type = ct
			debugPrintf("// [Checker] declared %s\n", name)
		}
	}
}

// ResolveSignatures resolves supertypes, rejects inheritance cycles and
// registers member signatures for every declaration in units. It must run
// after DeclareTypes has seen all units.
func (c *Checker) ResolveSignatures(units ...*parser.CompilationUnit) {
	for _, cu := range units {
		c.enterUnit(cu)
		for _, decl := range cu.Types {
			c.resolveSupertypes(decl)
		}
	}
	for _, cu := range units {
		c.enterUnit(cu)
		for _, decl := range cu.Types {
			c.checkCycles(decl)
		}
	}
	for _, cu := range units {
		c.enterUnit(cu)
		for _, decl := range cu.Types {
			c.resolveMembers(decl)
		}
	}
}

func (c *Checker) resolveSupertypes(decl *parser.ClassDeclaration) {
	ct := decl.Type
	ct.Super = c.registry.Object

	if decl.Interface {
		for _, tn := range decl.Interfaces {
			if iface := c.resolveClassType(tn); iface != nil {
				if !iface.IsInterface() {
					c.errorf(errors.IllegalInheritance, tn, "interface %s cannot extend class %s", decl.Name, iface.Name)
					continue
				}
				ct.Interfaces = append(ct.Interfaces, iface)
			}
		}
		return
	}

	if decl.Super != nil {
		if super := c.resolveClassType(decl.Super); super != nil {
			switch {
			case super.IsInterface():
				c.errorf(errors.IllegalInheritance, decl.Super, "class %s cannot extend interface %s", decl.Name, super.Name)
			case super.IsFinal():
				c.errorf(errors.IllegalInheritance, decl.Super, "class %s cannot extend final class %s", decl.Name, super.Name)
			default:
				ct.Super = super
			}
		}
	}
	for _, tn := range decl.Interfaces {
		if iface := c.resolveClassType(tn); iface != nil {
			if !iface.IsInterface() {
				c.errorf(errors.IllegalInheritance, tn, "class %s cannot implement class %s", decl.Name, iface.Name)
				continue
			}
			ct.Interfaces = append(ct.Interfaces, iface)
		}
	}
}

// checkCycles reports a class whose superclass chain or an interface whose
// superinterface graph leads back to itself, and cuts the cycle.
func (c *Checker) checkCycles(decl *parser.ClassDeclaration) {
	ct := decl.Type
	seen := map[*types.ClassType]bool{}
	for s := ct.Super; s != nil; s = s.Super {
		if s == ct {
			c.errorf(errors.IllegalInheritance, decl, "cyclic inheritance involving %s", ct.Name)
			ct.Super = c.registry.Object
			return
		}
		if seen[s] {
			break
		}
		seen[s] = true
	}

	visited := map[*types.ClassType]bool{}
	var reaches func(i *types.ClassType) bool
	reaches = func(i *types.ClassType) bool {
		if i == ct {
			return true
		}
		if visited[i] {
			return false
		}
		visited[i] = true
		for _, sup := range i.Interfaces {
			if reaches(sup) {
				return true
			}
		}
		return false
	}
	for _, iface := range ct.Interfaces {
		if reaches(iface) {
			c.errorf(errors.IllegalInheritance, decl, "cyclic inheritance involving %s", ct.Name)
			ct.Interfaces = nil
			return
		}
	}
}

func (c *Checker) resolveMembers(decl *parser.ClassDeclaration) {
	ct := decl.Type
	hasCtor := false

	for _, m := range decl.Members {
		switch member := m.(type) {
		case *parser.FieldDeclaration:
			c.resolveField(decl, member)
		case *parser.MethodDeclaration:
			c.resolveMethod(decl, member)
		case *parser.ConstructorDeclaration:
			hasCtor = true
			c.resolveConstructor(decl, member)
		case *parser.InitializerBlock:
			// analyzed with the bodies
		}
	}

	if !hasCtor && !decl.Interface {
		ctor := &parser.ConstructorDeclaration{
			Token:     decl.Token,
			Modifiers: types.Public,
			Name:      decl.Name,
			Params:    []*parser.Parameter{},
			Body:      &parser.BlockStatement{Token: decl.Token, Statements: []parser.Statement{}},
			Implicit:  true,
		}
		decl.Members = append(decl.Members, ctor)
		c.resolveConstructor(decl, ctor)
	}
	debugPrintf("// [Checker] %s: %d fields, %d methods, %d constructors\n", ct.Name, len(ct.Fields), len(ct.Methods), len(ct.Constructors))
}

func (c *Checker) resolveField(decl *parser.ClassDeclaration, fd *parser.FieldDeclaration) {
	ct := decl.Type
	mods := fd.Modifiers
	if decl.Interface {
		mods |= types.Public | types.Static | types.Final
	}
	for _, vd := range fd.Vars {
		t := c.resolveType(fd.Type, vd.Dims)
		vd.Type = t
		if prev := ct.DeclaredField(vd.Name); prev != nil {
			c.errorf(errors.DuplicateBinding, vd, "field %s is already defined in %s at line %d", vd.Name, decl.Name, prev.Line)
			continue
		}
		f := &types.Field{Name: vd.Name, Type: t, Modifiers: mods, Owner: ct, Line: vd.Line()}
		ct.Fields = append(ct.Fields, f)
		if vd.Init != nil {
			c.initializedFields[f] = true
		}
	}
	fd.Modifiers = mods
}

func (c *Checker) resolveParams(params []*parser.Parameter) []types.Type {
	out := make([]types.Type, len(params))
	for i, p := range params {
		out[i] = c.resolveType(p.Type, 0)
		if out[i] == types.Void {
			c.errorf(errors.TypeMismatch, p, "parameter %s cannot have type void", p.Name)
			out[i] = types.Any
		}
	}
	return out
}

func (c *Checker) resolveThrows(throws []*parser.TypeName) []types.Type {
	var out []types.Type
	for _, tn := range throws {
		t := c.resolveType(tn, 0)
		if t == types.Any {
			continue
		}
		if !types.IsThrowable(t) {
			c.errorf(errors.TypeMismatch, tn, "%s in throws clause is not a Throwable", t)
			continue
		}
		out = append(out, t)
	}
	return out
}

func (c *Checker) resolveMethod(decl *parser.ClassDeclaration, md *parser.MethodDeclaration) {
	ct := decl.Type
	mods := md.Modifiers
	if decl.Interface {
		mods |= types.Public | types.Abstract
	}
	m := &types.Method{
		Name:      md.Name,
		Params:    c.resolveParams(md.Params),
		Return:    c.resolveType(md.ReturnType, 0),
		Throws:    c.resolveThrows(md.Throws),
		Modifiers: mods,
		Owner:     ct,
		Line:      md.Line(),
	}
	md.Modifiers = mods
	md.Method = m
	if prev := ct.DeclaredMethod(m.Name, m.Params); prev != nil {
		c.errorf(errors.DuplicateBinding, md, "method %s is already defined in %s at line %d", m.Signature(), decl.Name, prev.Line)
		return
	}
	ct.Methods = append(ct.Methods, m)
}

func (c *Checker) resolveConstructor(decl *parser.ClassDeclaration, cd *parser.ConstructorDeclaration) {
	ct := decl.Type
	m := &types.Method{
		Name:      "<init>",
		Params:    c.resolveParams(cd.Params),
		Return:    types.Void,
		Throws:    c.resolveThrows(cd.Throws),
		Modifiers: cd.Modifiers,
		Owner:     ct,
		Line:      cd.Line(),
	}
	cd.Method = m
	for _, prev := range ct.Constructors {
		if sameTypes(prev.Params, m.Params) {
			c.errorf(errors.DuplicateBinding, cd, "constructor %s is already defined in %s at line %d", m.Signature(), decl.Name, prev.Line)
			return
		}
	}
	ct.Constructors = append(ct.Constructors, m)
}

func sameTypes(a, b []types.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --- Phase 2: bodies ---

// CheckBodies analyzes every initializer, constructor and method body in
// cu against the complete signature set, and checks that concrete classes
// implement every abstract method they inherit.
func (c *Checker) CheckBodies(cu *parser.CompilationUnit) {
	us := c.enterUnit(cu)
	for _, decl := range cu.Types {
		c.class = decl
		classCtx := us.root.NewClass(decl.Type)
		c.withContext(classCtx, func() {
			c.checkClassBody(decl)
		})
		c.class = nil
	}
}

func (c *Checker) checkClassBody(decl *parser.ClassDeclaration) {
	ct := decl.Type
	classCtx := c.ctx

	// Static and instance initializers each run in one synthesized method,
	// so they share a slot counter in textual order.
	staticInit := classCtx.NewMethod(nil, true)
	staticInit.Initializer = true
	instanceInit := classCtx.NewMethod(nil, false)
	instanceInit.Initializer = true

	for _, m := range decl.Members {
		switch member := m.(type) {
		case *parser.FieldDeclaration:
			init := instanceInit
			if member.Modifiers.Has(types.Static) {
				init = staticInit
			}
			c.withMember(init, &memberState{returnType: types.Void, initializer: true}, func() {
				for _, vd := range member.Vars {
					if vd.Init != nil {
						vd.Init = c.initializer(vd.Init, vd.Type)
					}
				}
			})
		case *parser.InitializerBlock:
			init := instanceInit
			if member.Static {
				init = staticInit
			}
			c.withMember(init, &memberState{returnType: types.Void, initializer: true}, func() {
				member.Body = c.checkBlock(member.Body)
			})
		}
	}
	decl.StaticInitLocals = staticInit.MaxLocals()
	decl.InstanceInitLocals = instanceInit.MaxLocals()

	for _, m := range decl.Members {
		switch member := m.(type) {
		case *parser.ConstructorDeclaration:
			c.checkConstructor(decl, member)
		case *parser.MethodDeclaration:
			c.checkMethod(member)
		}
	}

	if !ct.IsAbstract() {
		if missing := ct.MissingImplementations(); len(missing) > 0 {
			names := make([]string, len(missing))
			for i, m := range missing {
				names[i] = m.Owner.SimpleName() + "." + m.Signature()
			}
			c.errorf(errors.MissingImplementation, decl, "class %s must implement %s", decl.Name, strings.Join(names, ", "))
		}
	}
}

// withMember runs fn inside method context ctx with member state ms.
func (c *Checker) withMember(ctx *Context, ms *memberState, fn func()) {
	saved, savedLoops := c.member, c.loopDepth
	c.member, c.loopDepth = ms, 0
	defer func() { c.member, c.loopDepth = saved, savedLoops }()
	c.withContext(ctx, fn)
}

func (c *Checker) declareParams(params []*parser.Parameter, ts []types.Type) {
	for i, p := range params {
		b := c.declare(p, p.Name, ts[i], ParameterBinding, p.Final, true)
		p.Slot = b.Slot
	}
}

func (c *Checker) checkMethod(md *parser.MethodDeclaration) {
	m := md.Method
	if md.Body == nil || m == nil {
		return
	}
	ctx := c.ctx.NewMethod(m, m.IsStatic())
	c.withMember(ctx, &memberState{returnType: m.Return}, func() {
		c.declareParams(md.Params, m.Params)
		md.Body = c.checkBlock(md.Body)
		if m.Return != types.Void && m.Return != types.Any && CompletesNormally(md.Body) {
			c.errorf(errors.MissingReturn, md, "method %s must return a value of type %s", m.Signature(), m.Return)
		}
	})
	md.MaxLocals = ctx.MaxLocals()
}

func (c *Checker) checkConstructor(decl *parser.ClassDeclaration, cd *parser.ConstructorDeclaration) {
	m := cd.Method
	if m == nil {
		return
	}
	ms := &memberState{returnType: types.Void, constructor: true}
	stmts := cd.Body.Statements
	if len(stmts) > 0 {
		ms.ctorCall = constructorCall(stmts[0])
	}
	if ms.ctorCall == nil {
		// Insert the implicit super() so code generation sees one shape.
		ms.ctorCall = &parser.ConstructorCall{
			Token:     lexer.Token{Type: lexer.SUPER, Literal: "super", Line: cd.Line()},
			Super:     true,
			Arguments: []parser.Expression{},
		}
		stmt := &parser.ExpressionStatement{Token: ms.ctorCall.Token, Expression: ms.ctorCall}
		cd.Body.Statements = append([]parser.Statement{stmt}, stmts...)
	}

	ctx := c.ctx.NewMethod(m, false)
	c.withMember(ctx, ms, func() {
		c.declareParams(cd.Params, m.Params)
		cd.Body = c.checkBlock(cd.Body)
	})
	cd.MaxLocals = ctx.MaxLocals()
}

func constructorCall(s parser.Statement) *parser.ConstructorCall {
	if es, ok := s.(*parser.ExpressionStatement); ok {
		if call, ok := es.Expression.(*parser.ConstructorCall); ok {
			return call
		}
	}
	return nil
}

// initializer analyzes a variable initializer against the declared type.
// Array literals take their element type from the target.
func (c *Checker) initializer(init parser.Expression, target types.Type) parser.Expression {
	if lit, ok := init.(*parser.ArrayLiteral); ok {
		return c.checkArrayLiteral(lit, target)
	}
	return c.coerce(c.expr(init), target, "initialize")
}
