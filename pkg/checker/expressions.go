package checker

import (
	"jmm/pkg/errors"
	"jmm/pkg/lexer"
	"jmm/pkg/parser"
	"jmm/pkg/types"
)

// expr analyzes e as a value and returns the node that replaces it. Every
// returned expression has its computed type set; failures get types.Any.
// Nodes that already carry a type are returned as they are, so analyzing a
// subtree twice is harmless.
func (c *Checker) expr(e parser.Expression) parser.Expression {
	return c.analyze(e, false)
}

// exprOrType analyzes the qualifier of a member access, where a class name
// is also allowed and becomes a TypeExpression.
func (c *Checker) exprOrType(e parser.Expression) parser.Expression {
	return c.analyze(e, true)
}

func (c *Checker) analyze(e parser.Expression, allowType bool) parser.Expression {
	if e == nil {
		return nil
	}
	if e.GetComputedType() != nil {
		return e
	}
	switch n := e.(type) {
	case *parser.IntegerLiteral:
		if n.Token.Literal == "2147483648" {
			c.errorf(errors.TypeMismatch, n, "integer number too large: %s", n.Token.Literal)
		}
		return typed(n, types.Int)
	case *parser.DoubleLiteral:
		return typed(n, types.Double)
	case *parser.CharLiteral:
		return typed(n, types.Char)
	case *parser.StringLiteral:
		return typed(n, c.registry.String)
	case *parser.BooleanLiteral:
		return typed(n, types.Boolean)
	case *parser.NullLiteral:
		return typed(n, types.Null)
	case *parser.ThisExpression:
		if c.ctx.IsStatic() {
			c.errorf(errors.StaticContext, n, "non-static variable this cannot be referenced from a static context")
			return typed(n, types.Any)
		}
		return typed(n, c.currentClass())
	case *parser.SuperExpression:
		if c.ctx.IsStatic() {
			c.errorf(errors.StaticContext, n, "non-static variable super cannot be referenced from a static context")
			return typed(n, types.Any)
		}
		return typed(n, c.currentClass().Super)
	case *parser.Identifier:
		return c.identifier(n, allowType)
	case *parser.FieldAccess:
		return c.fieldAccess(n, allowType)
	case *parser.MethodCall:
		return c.methodCall(n)
	case *parser.ConstructorCall:
		return c.constructorCall(n)
	case *parser.NewExpression:
		return c.newObject(n)
	case *parser.NewArrayExpression:
		return c.newArray(n)
	case *parser.ArrayLiteral:
		c.errorf(errors.TypeMismatch, n, "array initializer is not allowed here")
		for i, el := range n.Elements {
			n.Elements[i] = c.expr(el)
		}
		return typed(n, types.Any)
	case *parser.IndexExpression:
		return c.index(n)
	case *parser.AssignmentExpression:
		return c.assignment(n)
	case *parser.UpdateExpression:
		return c.update(n)
	case *parser.PrefixExpression:
		return c.prefix(n)
	case *parser.InfixExpression:
		return c.infix(n)
	case *parser.ConditionalExpression:
		return c.conditional(n)
	case *parser.CastExpression:
		return c.cast(n)
	case *parser.InstanceOfExpression:
		return c.instanceOf(n)
	case *parser.TypeExpression, *parser.ArrayLength, *parser.ConversionExpression, *parser.ConcatExpression:
		// Only built by the checker, always with a type.
		return e
	}
	panic("checker: unexpected expression type")
}

func typed(e parser.Expression, t types.Type) parser.Expression {
	e.SetComputedType(t)
	return e
}

func typeOf(e parser.Expression) types.Type {
	return e.GetComputedType()
}

// --- names ---

func (c *Checker) identifier(n *parser.Identifier, allowType bool) parser.Expression {
	if b := c.ctx.Lookup(n.Value); b != nil {
		if !b.Initialized {
			c.errorf(errors.UninitializedRead, n, "variable %s might not have been initialized", n.Value)
		}
		n.Slot = b.Slot
		return typed(n, b.Type)
	}
	if ct := c.currentClass(); ct != nil {
		if f := ct.LookupField(n.Value); f != nil {
			fa := &parser.FieldAccess{Token: n.Token, Name: n.Value}
			if !f.IsStatic() {
				if c.ctx.IsStatic() {
					c.errorf(errors.StaticContext, n, "non-static variable %s cannot be referenced from a static context", n.Value)
					return typed(n, types.Any)
				}
				fa.Target = typed(&parser.ThisExpression{Token: n.Token, Implicit: true}, ct)
			}
			return c.bindField(fa, f)
		}
	}
	if allowType {
		if ct := c.resolveClassName(n.Value); ct != nil {
			return typed(&parser.TypeExpression{Token: n.Token, Type: ct}, ct)
		}
	}
	c.errorf(errors.UnresolvedName, n, "cannot find symbol: variable %s", n.Value)
	return typed(n, types.Any)
}

func (c *Checker) fieldAccess(n *parser.FieldAccess, allowType bool) parser.Expression {
	if allowType && !c.headIsValue(n) {
		if name, ok := dottedName(n); ok {
			if ct := c.resolveClassName(name); ct != nil {
				return typed(&parser.TypeExpression{Token: n.Token, Type: ct}, ct)
			}
		}
	}

	n.Target = c.exprOrType(n.Target)
	tt := typeOf(n.Target)
	if tt == types.Any {
		return typed(n, types.Any)
	}

	switch t := tt.(type) {
	case *types.ArrayType:
		if n.Name == "length" {
			al := &parser.ArrayLength{Token: n.Token, Array: n.Target}
			return typed(al, types.Int)
		}
		c.errorf(errors.UnresolvedMember, n, "cannot find symbol: %s in %s", n.Name, t)
		return typed(n, types.Any)
	case *types.ClassType:
		f := t.LookupField(n.Name)
		if f == nil {
			c.errorf(errors.UnresolvedMember, n, "cannot find symbol: variable %s in %s", n.Name, t)
			return typed(n, types.Any)
		}
		if _, static := n.Target.(*parser.TypeExpression); static && !f.IsStatic() {
			c.errorf(errors.StaticContext, n, "non-static variable %s cannot be referenced from a static context", n.Name)
			return typed(n, types.Any)
		}
		return c.bindField(n, f)
	}
	c.errorf(errors.TypeMismatch, n, "%s cannot be dereferenced", tt)
	return typed(n, types.Any)
}

// bindField completes a field access once the field is known, checking
// private access.
func (c *Checker) bindField(fa *parser.FieldAccess, f *types.Field) parser.Expression {
	if f.Modifiers.Has(types.Private) && f.Owner != c.currentClass() {
		c.errorf(errors.UnresolvedMember, fa, "%s has private access in %s", f.Name, f.Owner)
		return typed(fa, types.Any)
	}
	fa.Field = f
	return typed(fa, f.Type)
}

func (c *Checker) index(n *parser.IndexExpression) parser.Expression {
	n.Left = c.expr(n.Left)
	n.Index = c.coerce(c.expr(n.Index), types.Int, "index")
	switch lt := typeOf(n.Left).(type) {
	case *types.ArrayType:
		return typed(n, lt.Elem)
	case *types.Primitive:
		if lt == types.Any {
			return typed(n, types.Any)
		}
	}
	c.errorf(errors.TypeMismatch, n, "array required, but %s found", typeOf(n.Left))
	return typed(n, types.Any)
}

// --- conversions ---

// coerce checks that e can be stored in a slot of type target and inserts a
// widening conversion where the representation changes.
func (c *Checker) coerce(e parser.Expression, target types.Type, what string) parser.Expression {
	src := typeOf(e)
	if src == types.Any || target == types.Any {
		return e
	}
	if !types.IsAssignable(src, target) {
		c.errorf(errors.TypeMismatch, e, "incompatible types in %s: %s cannot be converted to %s", what, src, target)
		return e
	}
	return widen(e, target)
}

// widen wraps a primitive e in a ConversionExpression to target when the
// types differ. References are returned unchanged.
func widen(e parser.Expression, target types.Type) parser.Expression {
	src := typeOf(e)
	if src == target || !types.IsPrimitive(src) || !types.IsPrimitive(target) {
		return e
	}
	conv := &parser.ConversionExpression{Token: lexer.Token{Line: e.Line()}, Operand: e, To: target}
	return typed(conv, target)
}

// checkArrayLiteral types an initializer {a, b, ...} against the array type
// it initializes. Nested literals take the element type.
func (c *Checker) checkArrayLiteral(lit *parser.ArrayLiteral, target types.Type) *parser.ArrayLiteral {
	at, ok := target.(*types.ArrayType)
	if !ok {
		if target != types.Any {
			c.errorf(errors.TypeMismatch, lit, "illegal initializer for %s", target)
		}
		for i, el := range lit.Elements {
			if inner, ok := el.(*parser.ArrayLiteral); ok {
				lit.Elements[i] = c.checkArrayLiteral(inner, types.Any)
			} else {
				lit.Elements[i] = c.expr(el)
			}
		}
		lit.SetComputedType(types.Any)
		return lit
	}
	for i, el := range lit.Elements {
		lit.Elements[i] = c.initializer(el, at.Elem)
	}
	lit.SetComputedType(at)
	return lit
}

// --- operators ---

func (c *Checker) prefix(n *parser.PrefixExpression) parser.Expression {
	if n.Operator == "-" {
		switch lit := n.Right.(type) {
		case *parser.IntegerLiteral:
			folded := &parser.IntegerLiteral{Token: n.Token, Value: -lit.Value}
			folded.Token.Literal = "-" + lit.Token.Literal
			return typed(folded, types.Int)
		case *parser.DoubleLiteral:
			folded := &parser.DoubleLiteral{Token: n.Token, Value: -lit.Value}
			folded.Token.Literal = "-" + lit.Token.Literal
			return typed(folded, types.Double)
		}
	}

	n.Right = c.expr(n.Right)
	rt := typeOf(n.Right)
	if rt == types.Any {
		return typed(n, types.Any)
	}
	switch n.Operator {
	case "-", "+":
		if types.IsNumeric(rt) {
			n.Right = widen(n.Right, unaryPromotion(rt))
			return typed(n, unaryPromotion(rt))
		}
	case "!":
		if rt == types.Boolean {
			return typed(n, types.Boolean)
		}
	case "~":
		if types.IsIntegral(rt) {
			n.Right = widen(n.Right, types.Int)
			return typed(n, types.Int)
		}
	}
	c.errorf(errors.TypeMismatch, n, "bad operand type %s for unary operator '%s'", rt, n.Operator)
	return typed(n, types.Any)
}

func unaryPromotion(t types.Type) types.Type {
	if t == types.Char {
		return types.Int
	}
	return t
}

func (c *Checker) infix(n *parser.InfixExpression) parser.Expression {
	n.Left = c.expr(n.Left)
	n.Right = c.expr(n.Right)
	lt, rt := typeOf(n.Left), typeOf(n.Right)

	if n.Operator == "+" && (lt == c.registry.String || rt == c.registry.String) {
		return c.concat(n)
	}
	if lt == types.Any || rt == types.Any {
		if isComparison(n.Operator) || n.Operator == "&&" || n.Operator == "||" {
			return typed(n, types.Boolean)
		}
		return typed(n, types.Any)
	}

	result, operand := c.binaryType(n.Operator, lt, rt)
	if result == nil {
		c.errorf(errors.TypeMismatch, n, "bad operand types for binary operator '%s': %s and %s", n.Operator, lt, rt)
		return typed(n, types.Any)
	}
	if operand != nil {
		n.Left = widen(n.Left, operand)
		n.Right = widen(n.Right, operand)
	}
	return typed(n, result)
}

// binaryType applies the operand rules of a binary operator. It returns the
// result type and the type both operands are widened to (nil for reference
// and boolean operands), or a nil result when the operands do not fit.
func (c *Checker) binaryType(op string, lt, rt types.Type) (result, operand types.Type) {
	switch op {
	case "&&", "||":
		if lt == types.Boolean && rt == types.Boolean {
			return types.Boolean, nil
		}
	case "+", "-", "*", "/", "%":
		if types.IsNumeric(lt) && types.IsNumeric(rt) {
			p := types.BinaryNumericPromotion(lt, rt)
			return p, p
		}
	case "<<", ">>", ">>>":
		if types.IsIntegral(lt) && types.IsIntegral(rt) {
			return types.Int, types.Int
		}
	case "&", "|", "^":
		if types.IsIntegral(lt) && types.IsIntegral(rt) {
			return types.Int, types.Int
		}
		if lt == types.Boolean && rt == types.Boolean {
			return types.Boolean, nil
		}
	case "<", ">", "<=", ">=":
		if types.IsNumeric(lt) && types.IsNumeric(rt) {
			return types.Boolean, types.BinaryNumericPromotion(lt, rt)
		}
	case "==", "!=":
		switch {
		case types.IsNumeric(lt) && types.IsNumeric(rt):
			return types.Boolean, types.BinaryNumericPromotion(lt, rt)
		case lt == types.Boolean && rt == types.Boolean:
			return types.Boolean, nil
		case types.IsReference(lt) && types.IsReference(rt) && types.IsCastable(lt, rt):
			return types.Boolean, nil
		}
	}
	return nil, nil
}

func isComparison(op string) bool {
	switch op {
	case "<", ">", "<=", ">=", "==", "!=", "instanceof":
		return true
	}
	return false
}

// concat turns a + with a String operand into a ConcatExpression, merging
// operands that are themselves concatenations.
func (c *Checker) concat(n *parser.InfixExpression) parser.Expression {
	out := &parser.ConcatExpression{Token: n.Token}
	for _, operand := range []parser.Expression{n.Left, n.Right} {
		t := typeOf(operand)
		if t == types.Void {
			c.errorf(errors.TypeMismatch, operand, "'void' type not allowed here")
		}
		if inner, ok := operand.(*parser.ConcatExpression); ok {
			out.Operands = append(out.Operands, inner.Operands...)
			continue
		}
		out.Operands = append(out.Operands, operand)
	}
	return typed(out, c.registry.String)
}

func (c *Checker) conditional(n *parser.ConditionalExpression) parser.Expression {
	n.Condition = c.condition(n.Condition)
	n.Consequence = c.expr(n.Consequence)
	n.Alternative = c.expr(n.Alternative)
	a, b := typeOf(n.Consequence), typeOf(n.Alternative)

	var t types.Type
	switch {
	case a == types.Any || b == types.Any:
		t = types.Any
	case a == b:
		t = a
	case types.IsNumeric(a) && types.IsNumeric(b):
		t = types.BinaryNumericPromotion(a, b)
		n.Consequence = widen(n.Consequence, t)
		n.Alternative = widen(n.Alternative, t)
	case types.IsReference(a) && types.IsAssignable(b, a):
		t = a
	case types.IsReference(b) && types.IsAssignable(a, b):
		t = b
	default:
		c.errorf(errors.TypeMismatch, n, "incompatible types in conditional expression: %s and %s", a, b)
		t = types.Any
	}
	if t == types.Void {
		c.errorf(errors.TypeMismatch, n, "'void' type not allowed here")
		t = types.Any
	}
	return typed(n, t)
}

func (c *Checker) cast(n *parser.CastExpression) parser.Expression {
	target := c.resolveType(n.Type, 0)
	n.Operand = c.expr(n.Operand)
	src := typeOf(n.Operand)
	if target == types.Void {
		c.errorf(errors.TypeMismatch, n, "cannot cast to void")
		return typed(n, types.Any)
	}
	if !types.IsCastable(src, target) {
		c.errorf(errors.TypeMismatch, n, "incompatible types: %s cannot be converted to %s", src, target)
	}
	return typed(n, target)
}

func (c *Checker) instanceOf(n *parser.InstanceOfExpression) parser.Expression {
	n.Operand = c.expr(n.Operand)
	target := c.resolveType(n.Type, 0)
	src := typeOf(n.Operand)
	switch {
	case src == types.Any || target == types.Any:
	case !types.IsReference(src) || !types.IsReference(target):
		c.errorf(errors.TypeMismatch, n, "unexpected type for instanceof: %s instanceof %s", src, target)
	case !types.IsCastable(src, target):
		c.errorf(errors.TypeMismatch, n, "incompatible types: %s cannot be converted to %s", src, target)
	}
	return typed(n, types.Boolean)
}

// --- object and array creation ---

func (c *Checker) newObject(n *parser.NewExpression) parser.Expression {
	ct := c.resolveClassType(n.Type)
	args := c.arguments(n.Arguments)
	if ct == nil {
		return typed(n, types.Any)
	}
	if ct.IsAbstract() {
		c.errorf(errors.TypeMismatch, n, "%s is abstract; cannot be instantiated", ct)
		return typed(n, types.Any)
	}
	m := ct.LookupConstructor(args)
	if m == nil {
		c.errorf(errors.UnresolvedMember, n, "no suitable constructor found for %s(%s)", ct.SimpleName(), typeList(args))
		return typed(n, types.Any)
	}
	if !c.accessible(n, m) {
		return typed(n, types.Any)
	}
	c.coerceArguments(n.Arguments, m)
	c.checkThrows(n, m)
	n.Constructor = m
	return typed(n, ct)
}

func (c *Checker) newArray(n *parser.NewArrayExpression) parser.Expression {
	base := c.resolveType(n.Type, 0)
	for i, d := range n.Dims {
		n.Dims[i] = c.coerce(c.expr(d), types.Int, "array dimension")
	}
	if base == types.Any {
		return typed(n, types.Any)
	}
	if base == types.Void {
		c.errorf(errors.TypeMismatch, n, "array of void is not a type")
		return typed(n, types.Any)
	}
	t := base
	for i := 0; i < len(n.Dims)+n.ExtraDims; i++ {
		t = c.registry.ArrayOf(t)
	}
	if n.Init != nil {
		n.Init = c.checkArrayLiteral(n.Init, t)
	}
	return typed(n, t)
}
