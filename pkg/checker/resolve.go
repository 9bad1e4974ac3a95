package checker

import (
	"strings"

	"jmm/pkg/errors"
	"jmm/pkg/parser"
	"jmm/pkg/types"
)

// resolveClassName maps a simple or qualified class name written in the
// current unit to its handle. Lookup order: qualified names as written,
// the unit's own package, single-type imports, java.lang, then on-demand
// imports.
func (c *Checker) resolveClassName(name string) *types.ClassType {
	if strings.Contains(name, ".") {
		if ct := c.registry.Lookup(name); ct != nil {
			return ct
		}
	}
	cu := c.unit.cu
	if cu.Package != "" {
		if ct := c.registry.Lookup(cu.Package + "." + name); ct != nil {
			return ct
		}
	} else if ct := c.registry.Lookup(name); ct != nil {
		return ct
	}
	for _, imp := range cu.Imports {
		if strings.HasSuffix(imp, "."+name) {
			if ct := c.registry.Lookup(imp); ct != nil {
				return ct
			}
		}
	}
	if ct := c.registry.Lookup("java.lang." + name); ct != nil {
		return ct
	}
	for _, imp := range cu.Imports {
		if pkg, ok := strings.CutSuffix(imp, ".*"); ok {
			if ct := c.registry.Lookup(pkg + "." + name); ct != nil {
				return ct
			}
		}
	}
	return nil
}

// resolveType resolves a written type reference, reporting UnresolvedType
// and returning types.Any when it names nothing. extraDims adds brackets
// written after a declarator name.
func (c *Checker) resolveType(tn *parser.TypeName, extraDims int) types.Type {
	if tn == nil {
		return types.Any
	}
	t := tn.Resolved
	if t == nil {
		if p := types.LookupPrimitive(tn.Name); p != nil {
			t = p
		} else if ct := c.resolveClassName(tn.Name); ct != nil {
			t = ct
		} else {
			c.errorf(errors.UnresolvedType, tn, "cannot find type %s", tn.Name)
			tn.Resolved = types.Any
			return types.Any
		}
		for i := 0; i < tn.Dims; i++ {
			t = c.arrayOf(tn, t)
		}
		tn.Resolved = t
	}
	for i := 0; i < extraDims; i++ {
		t = c.arrayOf(tn, t)
	}
	return t
}

func (c *Checker) arrayOf(node parser.Node, elem types.Type) types.Type {
	if elem == types.Void {
		c.errorf(errors.TypeMismatch, node, "array of void is not a type")
		return types.Any
	}
	if elem == types.Any {
		return types.Any
	}
	return c.registry.ArrayOf(elem)
}

// resolveClassType resolves tn and requires a class or interface.
func (c *Checker) resolveClassType(tn *parser.TypeName) *types.ClassType {
	t := c.resolveType(tn, 0)
	if t == types.Any {
		return nil
	}
	ct, ok := t.(*types.ClassType)
	if !ok {
		c.errorf(errors.TypeMismatch, tn, "%s is not a class or interface type", t)
		return nil
	}
	return ct
}

// dottedName returns the source text of an identifier chain a.b.c, or false
// when e is not such a chain.
func dottedName(e parser.Expression) (string, bool) {
	switch n := e.(type) {
	case *parser.Identifier:
		return n.Value, true
	case *parser.FieldAccess:
		if n.Target == nil {
			return "", false
		}
		prefix, ok := dottedName(n.Target)
		if !ok {
			return "", false
		}
		return prefix + "." + n.Name, true
	}
	return "", false
}

// headIsValue reports whether the leftmost identifier of a chain names a
// local, parameter or field, in which case the chain is not a type name.
func (c *Checker) headIsValue(e parser.Expression) bool {
	for {
		switch n := e.(type) {
		case *parser.Identifier:
			if c.ctx.Lookup(n.Value) != nil {
				return true
			}
			if ct := c.currentClass(); ct != nil && ct.LookupField(n.Value) != nil {
				return true
			}
			return false
		case *parser.FieldAccess:
			e = n.Target
		default:
			return true
		}
	}
}
