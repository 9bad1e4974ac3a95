package checker

import (
	"fmt"

	"jmm/pkg/desugar"
	"jmm/pkg/errors"
	"jmm/pkg/parser"
	"jmm/pkg/types"
)

const checkerDebug = false

func debugPrintf(format string, args ...interface{}) {
	if checkerDebug {
		fmt.Printf(format, args...)
	}
}

// Checker performs semantic analysis over a set of compilation units that
// share one type registry. Analysis runs in two phases: every unit finishes
// the signature phase (DeclareTypes, ResolveSignatures) before any unit's
// bodies are checked (CheckBodies).
type Checker struct {
	registry *types.Registry
	errs     *errors.Collector
	loops    *desugar.Desugarer

	units map[*parser.CompilationUnit]*unitState

	// Fields with an initializer in their declaration; assigning them
	// anywhere else is a reassignment.
	initializedFields map[*types.Field]bool

	// Current position.
	unit      *unitState
	ctx       *Context
	class     *parser.ClassDeclaration
	member    *memberState
	loopDepth int
}

type unitState struct {
	cu    *parser.CompilationUnit
	arena *Arena
	root  *Context
}

// memberState describes the body being analyzed.
type memberState struct {
	returnType  types.Type // Void for constructors and initializers
	initializer bool
	constructor bool
	ctorCall    *parser.ConstructorCall // the one this(...) or super(...) allowed
	stored      map[*types.Field]bool   // blank finals this constructor assigned
}

// New creates a checker that resolves types in registry and reports to errs.
func New(registry *types.Registry, errs *errors.Collector) *Checker {
	return &Checker{
		registry:          registry,
		errs:              errs,
		loops:             desugar.New(registry),
		units:             make(map[*parser.CompilationUnit]*unitState),
		initializedFields: make(map[*types.Field]bool),
	}
}

// Registry returns the registry shared by all units.
func (c *Checker) Registry() *types.Registry { return c.registry }

// Check runs both phases over units. It is equivalent to calling
// DeclareTypes and ResolveSignatures on all units and then CheckBodies on
// each.
func (c *Checker) Check(units ...*parser.CompilationUnit) {
	c.DeclareTypes(units...)
	c.ResolveSignatures(units...)
	for _, cu := range units {
		c.CheckBodies(cu)
	}
}

func (c *Checker) enterUnit(cu *parser.CompilationUnit) *unitState {
	us, ok := c.units[cu]
	if !ok {
		arena := NewArena(c.errs)
		us = &unitState{cu: cu, arena: arena, root: arena.NewUnit(cu)}
		c.units[cu] = us
	}
	c.unit = us
	c.ctx = us.root
	c.errs.SetSource(cu.Source)
	return us
}

// --- Diagnostics ---

func (c *Checker) errorf(kind errors.ErrorKind, node parser.Node, format string, args ...interface{}) {
	line := 0
	if node != nil {
		line = node.Line()
	}
	debugPrintf("// [Checker] %s at line %d: %s\n", kind, line, fmt.Sprintf(format, args...))
	c.errs.ReportSemanticError(kind, line, format, args...)
}

func (c *Checker) warnf(node parser.Node, format string, args ...interface{}) {
	c.errs.Warnf(node.Line(), format, args...)
}

// --- Scopes ---

// withContext runs fn with ctx as the current context.
func (c *Checker) withContext(ctx *Context, fn func()) {
	saved := c.ctx
	c.ctx = ctx
	defer func() { c.ctx = saved }()
	fn()
}

// declare adds a local or parameter binding in the current context and
// allocates its slot.
func (c *Checker) declare(node parser.Node, name string, t types.Type, kind BindingKind, final, initialized bool) *Binding {
	b := &Binding{
		Name:        name,
		Type:        t,
		Kind:        kind,
		Final:       final,
		Initialized: initialized,
		Line:        node.Line(),
	}
	if err := c.ctx.Declare(b); err != nil {
		c.errs.Add(err.(errors.JmmError))
		// Keep the slot allocation so later references still resolve.
	}
	b.Slot = c.ctx.NextSlot(types.Width(t))
	return b
}

// currentClass returns the class whose body is being analyzed.
func (c *Checker) currentClass() *types.ClassType {
	if cc := c.ctx.EnclosingClass(); cc != nil {
		return cc.Class
	}
	return nil
}
