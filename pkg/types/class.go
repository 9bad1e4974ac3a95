package types

import (
	"fmt"
	"strings"
)

// ClassType is the handle for a declared class or interface. One instance
// exists per qualified name; it is created empty in the declaration pass and
// filled in as signatures are resolved.
type ClassType struct {
	Name       string // qualified, dot separated: "java.util.ArrayList"
	Modifiers  Modifiers
	Super      *ClassType // nil only for java.lang.Object
	Interfaces []*ClassType

	Fields       []*Field
	Methods      []*Method
	Constructors []*Method

	// Library is set for types supplied by the runtime library rather than
	// declared in a compilation unit.
	Library bool
}

func (ct *ClassType) String() string     { return ct.Name }
func (ct *ClassType) Descriptor() string { return "L" + InternalName(ct) + ";" }
func (ct *ClassType) typeNode()          {}

// SimpleName returns the last component of the qualified name.
func (ct *ClassType) SimpleName() string {
	if i := strings.LastIndexByte(ct.Name, '.'); i >= 0 {
		return ct.Name[i+1:]
	}
	return ct.Name
}

// Package returns the package part of the qualified name, "" for the
// default package.
func (ct *ClassType) Package() string {
	if i := strings.LastIndexByte(ct.Name, '.'); i >= 0 {
		return ct.Name[:i]
	}
	return ""
}

func (ct *ClassType) IsInterface() bool { return ct.Modifiers.Has(Interface) }
func (ct *ClassType) IsAbstract() bool  { return ct.Modifiers.Has(Abstract) || ct.IsInterface() }
func (ct *ClassType) IsFinal() bool     { return ct.Modifiers.Has(Final) }

// inherits reports whether ct is the class named name or a subclass of it.
func (ct *ClassType) inherits(name string) bool {
	for c := ct; c != nil; c = c.Super {
		if c.Name == name {
			return true
		}
	}
	return false
}

// --- Members ---

// Field is a resolved field signature.
type Field struct {
	Name      string
	Type      Type
	Modifiers Modifiers
	Owner     *ClassType
	Line      int
}

func (f *Field) IsStatic() bool { return f.Modifiers.Has(Static) }
func (f *Field) IsFinal() bool  { return f.Modifiers.Has(Final) }

// Method is a resolved method or constructor signature. Constructors are
// named "<init>" and return Void.
type Method struct {
	Name      string
	Params    []Type
	Return    Type
	Throws    []Type
	Modifiers Modifiers
	Owner     *ClassType
	Line      int
}

func (m *Method) IsStatic() bool      { return m.Modifiers.Has(Static) }
func (m *Method) IsAbstract() bool    { return m.Modifiers.Has(Abstract) }
func (m *Method) IsConstructor() bool { return m.Name == "<init>" }

// Descriptor returns the JVM method descriptor.
func (m *Method) Descriptor() string {
	return MethodDescriptor(m.Params, m.Return)
}

// Signature renders the method for diagnostics: "name(int, java.lang.String)".
func (m *Method) Signature() string {
	parts := make([]string, len(m.Params))
	for i, p := range m.Params {
		parts[i] = p.String()
	}
	name := m.Name
	if m.IsConstructor() && m.Owner != nil {
		name = m.Owner.SimpleName()
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(parts, ", "))
}

func (m *Method) sameParams(o *Method) bool {
	if len(m.Params) != len(o.Params) {
		return false
	}
	for i := range m.Params {
		if m.Params[i] != o.Params[i] {
			return false
		}
	}
	return true
}

// DeclaredField returns the field named name declared directly in ct.
func (ct *ClassType) DeclaredField(name string) *Field {
	for _, f := range ct.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// DeclaredMethod returns the method declared directly in ct with exactly
// the given parameter types.
func (ct *ClassType) DeclaredMethod(name string, params []Type) *Method {
	probe := &Method{Params: params}
	for _, m := range ct.Methods {
		if m.Name == name && m.sameParams(probe) {
			return m
		}
	}
	return nil
}

// LookupField finds a field in ct, its superclasses or its superinterfaces.
func (ct *ClassType) LookupField(name string) *Field {
	for c := ct; c != nil; c = c.Super {
		if f := c.DeclaredField(name); f != nil {
			return f
		}
		for _, iface := range c.Interfaces {
			if f := iface.LookupField(name); f != nil {
				return f
			}
		}
	}
	return nil
}

// MethodsNamed returns every method named name visible from ct, with
// overridden signatures removed (the most derived declaration wins).
func (ct *ClassType) MethodsNamed(name string) []*Method {
	var out []*Method
	seen := map[*ClassType]bool{}
	var walk func(c *ClassType)
	walk = func(c *ClassType) {
		if c == nil || seen[c] {
			return
		}
		seen[c] = true
		for _, m := range c.Methods {
			if m.Name != name {
				continue
			}
			overridden := false
			for _, o := range out {
				if o.sameParams(m) {
					overridden = true
					break
				}
			}
			if !overridden {
				out = append(out, m)
			}
		}
		walk(c.Super)
		for _, iface := range c.Interfaces {
			walk(iface)
		}
	}
	walk(ct)
	return out
}

// LookupMethod resolves a call of name with the given argument types. It
// returns the most specific applicable method, or nil when none applies.
func (ct *ClassType) LookupMethod(name string, args []Type) *Method {
	return mostSpecific(ct.MethodsNamed(name), args)
}

// LookupConstructor resolves a constructor call with the given argument types.
func (ct *ClassType) LookupConstructor(args []Type) *Method {
	return mostSpecific(ct.Constructors, args)
}

func applicable(m *Method, args []Type) bool {
	if len(m.Params) != len(args) {
		return false
	}
	for i, a := range args {
		if !IsAssignable(a, m.Params[i]) {
			return false
		}
	}
	return true
}

// mostSpecific picks the applicable candidate whose parameters are each
// assignable to every other applicable candidate's parameters. Ambiguous
// calls resolve to the first declared candidate.
func mostSpecific(candidates []*Method, args []Type) *Method {
	var app []*Method
	for _, m := range candidates {
		if applicable(m, args) {
			app = append(app, m)
		}
	}
	if len(app) == 0 {
		return nil
	}
	for _, m := range app {
		best := true
		for _, o := range app {
			if o != m && !applicable(o, m.Params) {
				best = false
				break
			}
		}
		if best {
			return m
		}
	}
	return app[0]
}

// MissingImplementations lists the abstract methods ct is obligated to
// implement but neither declares nor inherits a body for. It is only
// meaningful for concrete classes.
func (ct *ClassType) MissingImplementations() []*Method {
	var missing []*Method
	seen := map[*ClassType]bool{}
	var walk func(c *ClassType)
	walk = func(c *ClassType) {
		if c == nil || seen[c] {
			return
		}
		seen[c] = true
		for _, m := range c.Methods {
			if !m.IsAbstract() || ct.concreteMethod(m) != nil {
				continue
			}
			dup := false
			for _, o := range missing {
				if o.Name == m.Name && o.sameParams(m) {
					dup = true
					break
				}
			}
			if !dup {
				missing = append(missing, m)
			}
		}
		walk(c.Super)
		for _, iface := range c.Interfaces {
			walk(iface)
		}
	}
	walk(ct)
	return missing
}

// concreteMethod finds a non-abstract method in the superclass chain that
// implements m.
func (ct *ClassType) concreteMethod(m *Method) *Method {
	for c := ct; c != nil; c = c.Super {
		for _, cm := range c.Methods {
			if cm.Name == m.Name && !cm.IsAbstract() && cm.sameParams(m) {
				return cm
			}
		}
	}
	return nil
}
