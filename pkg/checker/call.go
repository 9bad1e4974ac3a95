package checker

import (
	"strings"

	"jmm/pkg/errors"
	"jmm/pkg/parser"
	"jmm/pkg/types"
)

// arguments analyzes call arguments in place and returns their types.
func (c *Checker) arguments(args []parser.Expression) []types.Type {
	ts := make([]types.Type, len(args))
	for i, a := range args {
		args[i] = c.expr(a)
		ts[i] = typeOf(args[i])
		if ts[i] == types.Void {
			c.errorf(errors.TypeMismatch, args[i], "'void' type not allowed here")
			ts[i] = types.Any
		}
	}
	return ts
}

// coerceArguments widens each argument to the parameter type of m.
func (c *Checker) coerceArguments(args []parser.Expression, m *types.Method) {
	for i := range args {
		args[i] = c.coerce(args[i], m.Params[i], "argument")
	}
}

func typeList(ts []types.Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ",")
}

// accessible reports private members used outside their class.
func (c *Checker) accessible(node parser.Node, m *types.Method) bool {
	if m.Modifiers.Has(types.Private) && m.Owner != c.currentClass() {
		name := m.Name
		if m.IsConstructor() {
			name = m.Owner.SimpleName()
		}
		c.errorf(errors.UnresolvedMember, node, "%s(%s) has private access in %s", name, typeList(m.Params), m.Owner)
		return false
	}
	return true
}

func (c *Checker) methodCall(n *parser.MethodCall) parser.Expression {
	var owner *types.ClassType
	static := false

	if n.Target != nil {
		n.Target = c.exprOrType(n.Target)
	}
	args := c.arguments(n.Arguments)

	switch target := n.Target.(type) {
	case nil:
		owner = c.currentClass()
	case *parser.TypeExpression:
		owner, static = target.Type, true
	default:
		switch t := typeOf(target).(type) {
		case *types.ClassType:
			owner = t
		case *types.ArrayType:
			owner = c.registry.Object
		default:
			if t != types.Any {
				c.errorf(errors.TypeMismatch, n, "%s cannot be dereferenced", t)
			}
			return typed(n, types.Any)
		}
	}

	m := owner.LookupMethod(n.Name, args)
	if m == nil {
		if len(owner.MethodsNamed(n.Name)) == 0 {
			c.errorf(errors.UnresolvedMember, n, "cannot find symbol: method %s(%s) in %s", n.Name, typeList(args), owner)
		} else {
			c.errorf(errors.UnresolvedMember, n, "no suitable method found for %s(%s) in %s", n.Name, typeList(args), owner)
		}
		return typed(n, types.Any)
	}
	if !c.accessible(n, m) {
		return typed(n, types.Any)
	}

	switch {
	case n.Target == nil && !m.IsStatic():
		if c.ctx.IsStatic() {
			c.errorf(errors.StaticContext, n, "non-static method %s cannot be referenced from a static context", m.Signature())
			return typed(n, types.Any)
		}
		n.Target = typed(&parser.ThisExpression{Token: n.Token, Implicit: true}, owner)
	case static && !m.IsStatic():
		c.errorf(errors.StaticContext, n, "non-static method %s cannot be referenced from a static context", m.Signature())
		return typed(n, types.Any)
	}
	if _, super := n.Target.(*parser.SuperExpression); super && m.IsAbstract() {
		c.errorf(errors.UnresolvedMember, n, "abstract method %s in %s cannot be accessed directly", m.Signature(), m.Owner)
		return typed(n, types.Any)
	}

	c.coerceArguments(n.Arguments, m)
	c.checkThrows(n, m)
	n.Method = m
	return typed(n, m.Return)
}

// constructorCall analyzes this(...) or super(...). Placement is checked by
// the statement that contains it.
func (c *Checker) constructorCall(n *parser.ConstructorCall) parser.Expression {
	args := c.arguments(n.Arguments)
	owner := c.currentClass()
	if n.Super {
		owner = owner.Super
	}
	if owner == nil {
		return typed(n, types.Void)
	}
	m := owner.LookupConstructor(args)
	if m == nil {
		c.errorf(errors.UnresolvedMember, n, "no suitable constructor found for %s(%s)", owner.SimpleName(), typeList(args))
		return typed(n, types.Void)
	}
	if !c.accessible(n, m) {
		return typed(n, types.Void)
	}
	c.coerceArguments(n.Arguments, m)
	c.checkThrows(n, m)
	n.Method = m
	return typed(n, types.Void)
}
