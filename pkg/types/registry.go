package types

import (
	"fmt"
	"strings"
)

// Registry maps qualified names to canonical type handles for one compiler
// invocation. Every unit compiled in the same run shares one Registry, which
// is how types declared in one unit become visible to the others.
type Registry struct {
	classes map[string]*ClassType
	arrays  map[Type]*ArrayType
	order   []*ClassType

	// Frequently used library types.
	Object           *ClassType
	String           *ClassType
	StringBuilder    *ClassType
	Throwable        *ClassType
	RuntimeException *ClassType
	Error            *ClassType
	Iterable         *ClassType
	Iterator         *ClassType
}

// NewRegistry creates a registry preloaded with the runtime library.
func NewRegistry() *Registry {
	r := &Registry{
		classes: make(map[string]*ClassType),
		arrays:  make(map[Type]*ArrayType),
	}
	r.loadLibrary()
	return r
}

// Lookup returns the class or interface with the given qualified name.
func (r *Registry) Lookup(name string) *ClassType {
	return r.classes[name]
}

// Declare creates the handle for a new class or interface. It returns the
// existing handle and false when the name is already taken.
func (r *Registry) Declare(name string, mods Modifiers) (*ClassType, bool) {
	if existing, ok := r.classes[name]; ok {
		return existing, false
	}
	ct := &ClassType{Name: name, Modifiers: mods}
	r.classes[name] = ct
	r.order = append(r.order, ct)
	return ct, true
}

// ArrayOf returns the interned array type with element type elem.
func (r *Registry) ArrayOf(elem Type) *ArrayType {
	if at, ok := r.arrays[elem]; ok {
		return at
	}
	at := &ArrayType{Elem: elem}
	r.arrays[elem] = at
	return at
}

// Classes returns every registered class and interface in declaration order.
func (r *Registry) Classes() []*ClassType {
	return r.order
}

// ParseTypeName resolves a fully written type name: a primitive, a
// qualified class name, or either followed by "[]" pairs.
func (r *Registry) ParseTypeName(name string) (Type, error) {
	dims := 0
	for strings.HasSuffix(name, "[]") {
		name = strings.TrimSuffix(name, "[]")
		dims++
	}
	var t Type
	if p := LookupPrimitive(name); p != nil {
		t = p
	} else if ct := r.Lookup(name); ct != nil {
		t = ct
	} else {
		return nil, fmt.Errorf("unknown type %q", name)
	}
	for i := 0; i < dims; i++ {
		if t == Void {
			return nil, fmt.Errorf("array of void")
		}
		t = r.ArrayOf(t)
	}
	return t, nil
}
