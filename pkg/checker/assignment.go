package checker

import (
	"strings"

	"jmm/pkg/errors"
	"jmm/pkg/parser"
	"jmm/pkg/types"
)

// lvalue analyzes an assignment target. reads is set for compound
// assignments and updates, which read the old value first. The binding is
// returned for locals so the caller can mark them initialized. ok is false
// when e cannot be assigned.
func (c *Checker) lvalue(e parser.Expression, reads bool) (target parser.Expression, b *Binding, ok bool) {
	if id, isIdent := e.(*parser.Identifier); isIdent {
		if b = c.ctx.Lookup(id.Value); b != nil {
			id.Slot = b.Slot
			typed(id, b.Type)
			if reads && !b.Initialized {
				c.errorf(errors.UninitializedRead, id, "variable %s might not have been initialized", id.Value)
			}
			if b.Final && (b.Initialized || b.Kind == ParameterBinding) {
				c.errorf(errors.FinalReassignment, id, "cannot assign a value to final %s %s", b.Kind, id.Value)
			}
			return id, b, true
		}
	}

	switch e.(type) {
	case *parser.Identifier, *parser.FieldAccess, *parser.IndexExpression:
	default:
		c.errorf(errors.InvalidAssignmentTarget, e, "unexpected type: required variable, found value")
		return c.expr(e), nil, false
	}

	target = c.expr(e)
	switch t := target.(type) {
	case *parser.ArrayLength:
		c.errorf(errors.InvalidAssignmentTarget, t, "cannot assign a value to final variable length")
		return target, nil, false
	case *parser.FieldAccess:
		if t.Field != nil && t.Field.IsFinal() {
			if c.mayInitialize(t.Field) {
				c.markInitialized(t.Field)
			} else {
				c.errorf(errors.FinalReassignment, t, "cannot assign a value to final variable %s", t.Name)
			}
		}
	}
	return target, nil, true
}

// mayInitialize reports whether the code being analyzed may store the
// first value of final field f: f belongs to the current class, nothing
// has stored it yet, and the current member is a constructor or
// initializer of matching staticness.
func (c *Checker) mayInitialize(f *types.Field) bool {
	if f.Owner != c.currentClass() || c.initializedFields[f] || c.member.stored[f] {
		return false
	}
	if f.IsStatic() {
		return c.member.initializer && c.ctx.IsStatic()
	}
	return (c.member.constructor || c.member.initializer) && !c.ctx.IsStatic()
}

// markInitialized records the first store to blank final f. Initializers
// run before every constructor, so their stores count for the whole class;
// a constructor's store counts only within that constructor.
func (c *Checker) markInitialized(f *types.Field) {
	if c.member.initializer {
		c.initializedFields[f] = true
		return
	}
	if c.member.stored == nil {
		c.member.stored = make(map[*types.Field]bool)
	}
	c.member.stored[f] = true
}

func (c *Checker) assignment(n *parser.AssignmentExpression) parser.Expression {
	compound := n.Operator != "="
	target, b, ok := c.lvalue(n.Target, compound)
	n.Target = target
	tt := typeOf(target)
	if !ok {
		tt = types.Any
	}

	if !compound {
		if lit, isLit := n.Value.(*parser.ArrayLiteral); isLit {
			n.Value = c.checkArrayLiteral(lit, tt)
		} else {
			n.Value = c.coerce(c.expr(n.Value), tt, "assignment")
		}
	} else {
		n.Value = c.compoundValue(n, tt)
	}
	if b != nil {
		b.Initialized = true
	}
	return typed(n, tt)
}

// compoundValue checks target op= value. The value must be assignable to
// the target type and the operator must apply to the target type; += on a
// String target appends any value.
func (c *Checker) compoundValue(n *parser.AssignmentExpression, tt types.Type) parser.Expression {
	v := c.expr(n.Value)
	vt := typeOf(v)
	if tt == types.Any || vt == types.Any {
		return v
	}
	op := strings.TrimSuffix(n.Operator, "=")

	if op == "+" && tt == c.registry.String {
		if vt == types.Void {
			c.errorf(errors.TypeMismatch, v, "'void' type not allowed here")
		}
		return v
	}

	var fits bool
	switch op {
	case "+", "-", "*", "/", "%":
		fits = types.IsNumeric(tt) && tt != types.Char
	case "&", "|", "^":
		fits = tt == types.Int || tt == types.Boolean
	case "<<", ">>", ">>>":
		fits = tt == types.Int
	}
	if !fits {
		c.errorf(errors.TypeMismatch, n, "bad operand types for binary operator '%s': %s and %s", op, tt, vt)
		return v
	}
	return c.coerce(v, tt, "compound assignment")
}

func (c *Checker) update(n *parser.UpdateExpression) parser.Expression {
	target, b, ok := c.lvalue(n.Target, true)
	n.Target = target
	if !ok {
		return typed(n, types.Any)
	}
	tt := typeOf(target)
	if tt != types.Any && !types.IsNumeric(tt) {
		c.errorf(errors.TypeMismatch, n, "bad operand type %s for unary operator '%s'", tt, n.Operator)
		return typed(n, types.Any)
	}
	if b != nil {
		b.Initialized = true
	}
	return typed(n, tt)
}
