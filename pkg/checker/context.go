package checker

import (
	"fmt"

	"jmm/pkg/errors"
	"jmm/pkg/parser"
	"jmm/pkg/types"
)

// ContextKind distinguishes the scopes of the context chain.
type ContextKind int

const (
	CompilationUnitContext ContextKind = iota
	ClassContext
	MethodContext
	LocalContext
)

func (k ContextKind) String() string {
	switch k {
	case CompilationUnitContext:
		return "unit"
	case ClassContext:
		return "class"
	case MethodContext:
		return "method"
	case LocalContext:
		return "local"
	}
	return "unknown"
}

// ContextID indexes a Context in its Arena. Parent links are IDs rather than
// pointers; the arena owns every context.
type ContextID int

const noContext ContextID = -1

// BindingKind tells locals from parameters.
type BindingKind int

const (
	LocalBinding BindingKind = iota
	ParameterBinding
)

func (k BindingKind) String() string {
	if k == ParameterBinding {
		return "parameter"
	}
	return "local variable"
}

// Binding is a named local variable or parameter.
type Binding struct {
	Name        string
	Type        types.Type
	Slot        int
	Kind        BindingKind
	Initialized bool
	Final       bool
	Line        int
}

// Arena allocates the contexts of one compilation unit. Contexts are dropped
// together with the arena once the unit has been analyzed.
type Arena struct {
	contexts []*Context
	errs     *errors.Collector
}

// NewArena creates an empty arena reporting shadowing warnings to errs.
func NewArena(errs *errors.Collector) *Arena {
	return &Arena{errs: errs}
}

// Get returns the context with the given ID, or nil for noContext.
func (a *Arena) Get(id ContextID) *Context {
	if id == noContext {
		return nil
	}
	return a.contexts[id]
}

// Len returns the number of contexts allocated so far.
func (a *Arena) Len() int { return len(a.contexts) }

func (a *Arena) alloc(kind ContextKind, parent ContextID) *Context {
	ctx := &Context{
		ID:     ContextID(len(a.contexts)),
		Kind:   kind,
		Parent: parent,
		arena:  a,
		names:  make(map[string]*Binding),
	}
	a.contexts = append(a.contexts, ctx)
	return ctx
}

// NewUnit creates the root context of a compilation unit.
func (a *Arena) NewUnit(cu *parser.CompilationUnit) *Context {
	ctx := a.alloc(CompilationUnitContext, noContext)
	ctx.Unit = cu
	return ctx
}

// Context is one scope of the chain.
type Context struct {
	ID     ContextID
	Kind   ContextKind
	Parent ContextID

	arena *Arena
	names map[string]*Binding

	Unit  *parser.CompilationUnit // CompilationUnitContext
	Class *types.ClassType        // ClassContext

	// MethodContext. Method is nil for the synthesized initializer methods,
	// which set Initializer instead.
	Method      *types.Method
	Static      bool
	Initializer bool
	Constructor bool

	slots      int
	exceptions []types.Type
}

// NewClass opens a class scope under ctx.
func (ctx *Context) NewClass(ct *types.ClassType) *Context {
	c := ctx.arena.alloc(ClassContext, ctx.ID)
	c.Class = ct
	return c
}

// NewMethod opens a method scope under ctx. Instance methods reserve slot 0
// for this. The declared throws seed the exception set.
func (ctx *Context) NewMethod(m *types.Method, static bool) *Context {
	c := ctx.arena.alloc(MethodContext, ctx.ID)
	c.Method = m
	c.Static = static
	if !static {
		c.slots = 1
	}
	if m != nil {
		c.Constructor = m.IsConstructor()
		c.exceptions = append(c.exceptions, m.Throws...)
	}
	return c
}

// NewLocal opens a block scope under ctx.
func (ctx *Context) NewLocal() *Context {
	return ctx.arena.alloc(LocalContext, ctx.ID)
}

// Outer returns the parent context, or nil at the root.
func (ctx *Context) Outer() *Context {
	return ctx.arena.Get(ctx.Parent)
}

func (ctx *Context) enclosing(kind ContextKind) *Context {
	for c := ctx; c != nil; c = c.Outer() {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// EnclosingMethod returns the nearest method context, or nil.
func (ctx *Context) EnclosingMethod() *Context { return ctx.enclosing(MethodContext) }

// EnclosingClass returns the nearest class context, or nil.
func (ctx *Context) EnclosingClass() *Context { return ctx.enclosing(ClassContext) }

// EnclosingUnit returns the compilation unit context.
func (ctx *Context) EnclosingUnit() *Context { return ctx.enclosing(CompilationUnitContext) }

// IsStatic reports whether code in ctx has no receiver.
func (ctx *Context) IsStatic() bool {
	m := ctx.EnclosingMethod()
	return m == nil || m.Static
}

// Lookup finds the nearest binding of name, walking outwards through local
// and method scopes. Fields and types are not bindings; the checker
// resolves them through the class and unit contexts.
func (ctx *Context) Lookup(name string) *Binding {
	for c := ctx; c != nil; c = c.Outer() {
		if b, ok := c.names[name]; ok {
			return b
		}
		if c.Kind == MethodContext {
			return nil
		}
	}
	return nil
}

// LookupLocal finds name in ctx alone.
func (ctx *Context) LookupLocal(name string) *Binding {
	return ctx.names[name]
}

// Declare adds b to ctx. It fails with DuplicateBinding when ctx already
// binds the name. Hiding a local or parameter of an enclosing scope is
// allowed and recorded as a warning.
func (ctx *Context) Declare(b *Binding) error {
	if prev, ok := ctx.names[b.Name]; ok {
		return &errors.SemanticError{
			Position: errors.Position{Line: b.Line, Source: ctx.arena.errs.Source()},
			Code:     errors.DuplicateBinding,
			Msg:      fmt.Sprintf("%s %s is already defined at line %d", prev.Kind, b.Name, prev.Line),
		}
	}
	if ctx.Kind != MethodContext {
		if outer := ctx.Outer(); outer != nil {
			if prev := outer.Lookup(b.Name); prev != nil {
				ctx.arena.errs.Warnf(b.Line, "shadows %s %s declared at line %d", prev.Kind, b.Name, prev.Line)
			}
		}
	}
	ctx.names[b.Name] = b
	return nil
}

// NextSlot allocates width consecutive local slots in the enclosing method.
// Slots are never handed out twice within one method.
func (ctx *Context) NextSlot(width int) int {
	m := ctx.EnclosingMethod()
	slot := m.slots
	m.slots += width
	return slot
}

// MaxLocals returns the number of slots the enclosing method has used.
func (ctx *Context) MaxLocals() int {
	return ctx.EnclosingMethod().slots
}

// AddException registers t as permitted to escape the enclosing method.
func (ctx *Context) AddException(t types.Type) {
	m := ctx.EnclosingMethod()
	m.exceptions = append(m.exceptions, t)
}

// Exceptions returns the exception types currently permitted to escape.
func (ctx *Context) Exceptions() []types.Type {
	if m := ctx.EnclosingMethod(); m != nil {
		return m.exceptions
	}
	return nil
}

// ExceptionMark returns a token for RestoreExceptions.
func (ctx *Context) ExceptionMark() int {
	return len(ctx.EnclosingMethod().exceptions)
}

// RestoreExceptions drops every exception added since mark was taken.
func (ctx *Context) RestoreExceptions(mark int) {
	m := ctx.EnclosingMethod()
	m.exceptions = m.exceptions[:mark]
}

// Covers reports whether throwing t is permitted in ctx.
func (ctx *Context) Covers(t types.Type) bool {
	if !types.IsChecked(t) {
		return true
	}
	for _, e := range ctx.Exceptions() {
		if types.IsSubtype(t, e) {
			return true
		}
	}
	return false
}
