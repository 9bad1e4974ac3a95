// Package compiler generates stack-machine code from checked J-- trees.
// It trusts the checker: every expression carries its type, every call its
// resolved method and every local its slot. Units with errors must not be
// passed in.
package compiler

import (
	"fmt"

	"jmm/pkg/checker"
	"jmm/pkg/parser"
	"jmm/pkg/types"
	"jmm/pkg/vm"
)

const compilerDebug = false

func debugPrintf(format string, args ...interface{}) {
	if compilerDebug {
		fmt.Printf(format, args...)
	}
}

// instanceInit is the synthetic method holding field initializers and
// instance initializer blocks. Constructors that call super(...) invoke it.
const instanceInit = "$init"

// Emitter receives classes, members and instructions in program order.
// Labels are per method; the emitter fixes up branch offsets.
// vm.Assembler implements it.
type Emitter interface {
	AddClass(mods types.Modifiers, name, super string, interfaces []string, synthetic bool)
	AddField(mods types.Modifiers, name, desc string)
	AddMethod(mods types.Modifiers, name, desc string, throws []string, synthetic bool)

	CreateLabel() vm.Label
	AddLabel(l vm.Label)
	MarkLine(line int)

	AddNoArgInstruction(op vm.OpCode)
	AddOneArgInstruction(op vm.OpCode, arg int)
	AddLDCInstruction(v any)
	AddIINCInstruction(slot, delta int)
	AddBranchInstruction(op vm.OpCode, l vm.Label)
	AddReferenceInstruction(op vm.OpCode, typeName string)
	AddMultiANewArrayInstruction(desc string, dims int)
	AddMemberAccessInstruction(op vm.OpCode, owner, name, desc string)
	AddExceptionHandler(start, end, handler vm.Label, catchType string)
}

var _ Emitter = (*vm.Assembler)(nil)

// Compiler walks checked compilation units and drives an Emitter.
type Compiler struct {
	emit  Emitter
	reg   *types.Registry
	class *parser.ClassDeclaration
	owner string // internal name of the class being compiled
	m     *methodState
}

// methodState tracks the method body being emitted.
type methodState struct {
	returns   types.Type
	nextLocal int     // first slot free for temporaries
	exits     []*exit // enclosing loops and try statements, innermost last
}

// exit is a construct that break, continue and return leave through. Loops
// supply jump targets; try statements supply the protected region to
// suspend and the finally body to run on the way out.
type exit struct {
	loop          bool
	breakLabel    vm.Label
	continueLabel vm.Label

	region  *region
	finally *parser.BlockStatement
}

// New returns a compiler that emits into emit. reg is the registry the
// units were checked against.
func New(emit Emitter, reg *types.Registry) *Compiler {
	return &Compiler{emit: emit, reg: reg}
}

// Compile emits every class and interface declared in units.
func (c *Compiler) Compile(units ...*parser.CompilationUnit) {
	for _, cu := range units {
		for _, decl := range cu.Types {
			c.compileClass(decl)
		}
	}
}

func (c *Compiler) compileClass(decl *parser.ClassDeclaration) {
	ct := decl.Type
	c.class, c.owner = decl, types.InternalName(ct)
	defer func() { c.class, c.m = nil, nil }()

	var super string
	if ct.Super != nil {
		super = types.InternalName(ct.Super)
	}
	ifaces := make([]string, len(ct.Interfaces))
	for i, iface := range ct.Interfaces {
		ifaces[i] = types.InternalName(iface)
	}
	debugPrintf("// [Compiler] class %s extends %s\n", c.owner, super)
	c.emit.AddClass(ct.Modifiers, c.owner, super, ifaces, false)

	for _, m := range decl.Members {
		if fd, ok := m.(*parser.FieldDeclaration); ok {
			for _, vd := range fd.Vars {
				c.emit.AddField(fd.Modifiers, vd.Name, vd.Type.Descriptor())
			}
		}
	}

	if hasInitializers(decl, true) {
		c.emit.AddMethod(types.Static, "<clinit>", "()V", nil, true)
		c.compileInitializers(decl, true, decl.StaticInitLocals)
	}
	if hasInitializers(decl, false) {
		c.emit.AddMethod(types.Private, instanceInit, "()V", nil, true)
		c.compileInitializers(decl, false, decl.InstanceInitLocals)
	}

	for _, m := range decl.Members {
		switch member := m.(type) {
		case *parser.ConstructorDeclaration:
			c.compileConstructor(member)
		case *parser.MethodDeclaration:
			c.compileMethod(member)
		}
	}
}

// hasInitializers reports whether decl has field initializers or
// initializer blocks of the given staticness.
func hasInitializers(decl *parser.ClassDeclaration, static bool) bool {
	for _, m := range decl.Members {
		switch member := m.(type) {
		case *parser.FieldDeclaration:
			if member.Modifiers.Has(types.Static) != static {
				continue
			}
			for _, vd := range member.Vars {
				if vd.Init != nil {
					return true
				}
			}
		case *parser.InitializerBlock:
			if member.Static == static {
				return true
			}
		}
	}
	return false
}

// compileInitializers emits field initializers and initializer blocks in
// textual order as the body of <clinit> or $init.
func (c *Compiler) compileInitializers(decl *parser.ClassDeclaration, static bool, locals int) {
	c.m = &methodState{returns: types.Void, nextLocal: locals}
	for _, m := range decl.Members {
		switch member := m.(type) {
		case *parser.FieldDeclaration:
			if member.Modifiers.Has(types.Static) != static {
				continue
			}
			for _, vd := range member.Vars {
				if vd.Init == nil {
					continue
				}
				c.emit.MarkLine(vd.Line())
				if !static {
					c.emit.AddOneArgInstruction(vm.OpAload, 0)
				}
				c.compileInitializer(vd.Init, vd.Type)
				op := vm.OpPutfield
				if static {
					op = vm.OpPutstatic
				}
				c.emit.AddMemberAccessInstruction(op, c.owner, vd.Name, vd.Type.Descriptor())
			}
		case *parser.InitializerBlock:
			if member.Static == static {
				c.compileBlock(member.Body)
			}
		}
	}
	c.emit.AddNoArgInstruction(vm.OpReturn)
}

func (c *Compiler) compileMethod(md *parser.MethodDeclaration) {
	m := md.Method
	debugPrintf("// [Compiler] method %s.%s%s\n", c.owner, m.Name, m.Descriptor())
	c.emit.AddMethod(md.Modifiers, m.Name, m.Descriptor(), internalNames(m.Throws), false)
	if md.Body == nil {
		return
	}
	c.m = &methodState{returns: m.Return, nextLocal: md.MaxLocals}
	c.emit.MarkLine(md.Line())
	c.compileBlock(md.Body)
	if m.Return == types.Void && checker.CompletesNormally(md.Body) {
		c.emit.AddNoArgInstruction(vm.OpReturn)
	}
}

// compileConstructor emits a constructor. Its first statement is always
// this(...) or super(...); after super(...) the instance initializers run.
func (c *Compiler) compileConstructor(cd *parser.ConstructorDeclaration) {
	m := cd.Method
	c.emit.AddMethod(cd.Modifiers, "<init>", m.Descriptor(), internalNames(m.Throws), cd.Implicit)
	c.m = &methodState{returns: types.Void, nextLocal: cd.MaxLocals}
	c.emit.MarkLine(cd.Line())

	stmts := cd.Body.Statements
	if len(stmts) > 0 {
		if es, ok := stmts[0].(*parser.ExpressionStatement); ok {
			if call, ok := es.Expression.(*parser.ConstructorCall); ok {
				c.compileStatement(es)
				if call.Super && hasInitializers(c.class, false) {
					c.emit.AddOneArgInstruction(vm.OpAload, 0)
					c.emit.AddMemberAccessInstruction(vm.OpInvokespecial, c.owner, instanceInit, "()V")
				}
				stmts = stmts[1:]
			}
		}
	}
	for _, s := range stmts {
		c.compileStatement(s)
	}
	if checker.CompletesNormally(cd.Body) {
		c.emit.AddNoArgInstruction(vm.OpReturn)
	}
}

func internalNames(ts []types.Type) []string {
	if len(ts) == 0 {
		return nil
	}
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = types.InternalName(t)
	}
	return out
}

// --- labels, locals and exits ---

// here creates a label placed at the next instruction.
func (c *Compiler) here() vm.Label {
	l := c.emit.CreateLabel()
	c.emit.AddLabel(l)
	return l
}

// newLocal reserves a temporary local of width slots.
func (c *Compiler) newLocal(width int) int {
	slot := c.m.nextLocal
	c.m.nextLocal += width
	return slot
}

func (c *Compiler) pushExit(e *exit) { c.m.exits = append(c.m.exits, e) }
func (c *Compiler) popExit()         { c.m.exits = c.m.exits[:len(c.m.exits)-1] }

// innermostLoop returns the index of the closest enclosing loop exit.
func (c *Compiler) innermostLoop() int {
	for i := len(c.m.exits) - 1; i >= 0; i-- {
		if c.m.exits[i].loop {
			return i
		}
	}
	panic("compiler: break or continue outside a loop")
}

// crossesFinally reports whether leaving every exit above depth runs a
// finally body.
func (c *Compiler) crossesFinally(depth int) bool {
	for _, e := range c.m.exits[depth:] {
		if e.finally != nil {
			return true
		}
	}
	return false
}

// unwind emits the finally bodies of every exit above depth, innermost
// first. Each try statement's protected region is suspended before its
// finally copy so the copy is never guarded by its own handlers. The
// suspended regions are returned for resume once the jump is emitted.
// While a finally copy is emitted only the exits outside it are visible.
func (c *Compiler) unwind(depth int) []*region {
	var suspended []*region
	exits := c.m.exits
	for i := len(exits) - 1; i >= depth; i-- {
		e := exits[i]
		if e.region != nil && c.closeRegion(e.region) {
			suspended = append(suspended, e.region)
		}
		if e.finally != nil {
			c.m.exits = exits[:i:i]
			c.compileBlock(e.finally)
			c.m.exits = exits
		}
	}
	return suspended
}

func (c *Compiler) resume(regions []*region) {
	for _, r := range regions {
		c.openRegion(r)
	}
}

// region is a protected code range that may be split into several pieces
// around inline finally copies.
type region struct {
	ranges []labelRange
	start  vm.Label
	open   bool
}

type labelRange struct {
	start, end vm.Label
}

func (c *Compiler) openRegion(r *region) {
	r.start, r.open = c.here(), true
}

// closeRegion ends the open piece of r and reports whether one was open.
func (c *Compiler) closeRegion(r *region) bool {
	if !r.open {
		return false
	}
	r.ranges = append(r.ranges, labelRange{r.start, c.here()})
	r.open = false
	return true
}
