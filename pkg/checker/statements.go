package checker

import (
	"jmm/pkg/errors"
	"jmm/pkg/parser"
	"jmm/pkg/types"
)

// checkBlock analyzes b in a fresh block scope.
func (c *Checker) checkBlock(b *parser.BlockStatement) *parser.BlockStatement {
	if b == nil {
		return nil
	}
	c.withContext(c.ctx.NewLocal(), func() {
		for i, s := range b.Statements {
			b.Statements[i] = c.stmt(s)
		}
	})
	return b
}

// nested analyzes a statement that forms its own scope, such as an if
// branch, so a declaration there does not leak into the enclosing block.
func (c *Checker) nested(s parser.Statement) parser.Statement {
	if b, ok := s.(*parser.BlockStatement); ok {
		return c.checkBlock(b)
	}
	var out parser.Statement
	c.withContext(c.ctx.NewLocal(), func() {
		out = c.stmt(s)
	})
	return out
}

// stmt analyzes s and returns the statement to store in its place.
func (c *Checker) stmt(s parser.Statement) parser.Statement {
	switch n := s.(type) {
	case *parser.BlockStatement:
		return c.checkBlock(n)
	case *parser.LocalVariableDeclaration:
		c.localDeclaration(n)
	case *parser.ExpressionStatement:
		c.expressionStatement(n)
	case *parser.EmptyStatement:
	case *parser.IfStatement:
		n.Condition = c.condition(n.Condition)
		n.Consequence = c.nested(n.Consequence)
		if n.Alternative != nil {
			n.Alternative = c.nested(n.Alternative)
		}
	case *parser.WhileStatement:
		n.Canonical = c.loops.While(n)
		return c.loop(n.Canonical)
	case *parser.ForStatement:
		n.Canonical = c.loops.For(n)
		return c.loop(n.Canonical)
	case *parser.ForEachStatement:
		return c.forEach(n)
	case *parser.LoopStatement:
		return c.loop(n)
	case *parser.BreakStatement:
		if c.loopDepth == 0 {
			c.errorf(errors.IllegalControlFlow, n, "break outside of a loop")
		}
	case *parser.ContinueStatement:
		if c.loopDepth == 0 {
			c.errorf(errors.IllegalControlFlow, n, "continue outside of a loop")
		}
	case *parser.ReturnStatement:
		c.returnStatement(n)
	case *parser.ThrowStatement:
		c.throwStatement(n)
	case *parser.TryStatement:
		c.tryStatement(n)
	default:
		panic("checker: unexpected statement type")
	}
	return s
}

func (c *Checker) localDeclaration(n *parser.LocalVariableDeclaration) {
	base := c.resolveType(n.Type, 0)
	if base == types.Void {
		c.errorf(errors.TypeMismatch, n.Type, "variable cannot have type void")
		base = types.Any
	}
	for _, vd := range n.Vars {
		t := base
		if vd.Dims > 0 {
			t = c.resolveType(n.Type, vd.Dims)
		}
		vd.Type = t
		// The binding is visible in its own initializer, so int x = x + 1
		// reads an uninitialized local.
		b := c.declare(vd, vd.Name, t, LocalBinding, n.Final, false)
		vd.Slot = b.Slot
		if vd.Init != nil {
			vd.Init = c.initializer(vd.Init, t)
			b.Initialized = true
		}
	}
}

func (c *Checker) expressionStatement(n *parser.ExpressionStatement) {
	switch e := n.Expression.(type) {
	case *parser.AssignmentExpression, *parser.UpdateExpression, *parser.MethodCall, *parser.NewExpression:
	case *parser.ConstructorCall:
		if c.member == nil || e != c.member.ctorCall {
			c.errorf(errors.IllegalControlFlow, e, "call to %s must be the first statement in a constructor", e.Token.Literal)
		}
	default:
		c.errorf(errors.IllegalStatementExpression, n, "not a statement: %s", n.Expression)
	}
	n.Expression = c.expr(n.Expression)
}

// condition analyzes a boolean test.
func (c *Checker) condition(e parser.Expression) parser.Expression {
	if e == nil {
		return nil
	}
	e = c.expr(e)
	if t := e.GetComputedType(); t != types.Boolean && t != types.Any {
		c.errorf(errors.TypeMismatch, e, "condition must be boolean, found %s", t)
	}
	return e
}

// loop analyzes a canonical loop in its own scope. Init declarations are
// visible to the condition, body and step.
func (c *Checker) loop(l *parser.LoopStatement) *parser.LoopStatement {
	c.withContext(c.ctx.NewLocal(), func() {
		for i, s := range l.Init {
			l.Init[i] = c.stmt(s)
		}
		l.Condition = c.condition(l.Condition)
		c.loopDepth++
		l.Body = c.nested(l.Body)
		c.loopDepth--
		for i, s := range l.Step {
			l.Step[i] = c.stmt(s)
		}
	})
	return l
}

// forEach picks the array or iterator rewrite from the type of the
// iterable, then analyzes the canonical loop.
func (c *Checker) forEach(n *parser.ForEachStatement) parser.Statement {
	n.Iterable = c.expr(n.Iterable)
	elem := c.resolveType(n.Type, 0)
	it := n.Iterable.GetComputedType()

	switch {
	case it == types.Any:
	case isArray(it):
		n.Canonical = c.loops.ArrayForEach(n, it.(*types.ArrayType))
		return c.loop(n.Canonical)
	case types.IsSubtype(it, c.registry.Iterable):
		n.Canonical = c.loops.IteratorForEach(n, elem)
		return c.loop(n.Canonical)
	default:
		c.errorf(errors.TypeMismatch, n.Iterable, "for-each not applicable to expression type %s", it)
	}

	// Keep analyzing the body so its own errors are reported.
	c.withContext(c.ctx.NewLocal(), func() {
		c.declare(n, n.Name, elem, LocalBinding, n.Final, true)
		c.loopDepth++
		n.Body = c.nested(n.Body)
		c.loopDepth--
	})
	return n
}

func (c *Checker) returnStatement(n *parser.ReturnStatement) {
	ms := c.member
	if ms.initializer {
		c.errorf(errors.IllegalControlFlow, n, "return outside of a method")
		if n.ReturnValue != nil {
			n.ReturnValue = c.expr(n.ReturnValue)
		}
		return
	}
	switch {
	case n.ReturnValue == nil:
		if ms.returnType != types.Void && ms.returnType != types.Any {
			c.errorf(errors.IllegalControlFlow, n, "missing return value of type %s", ms.returnType)
		}
	case ms.returnType == types.Void:
		c.errorf(errors.IllegalControlFlow, n, "cannot return a value from a void method")
		n.ReturnValue = c.expr(n.ReturnValue)
	default:
		n.ReturnValue = c.coerce(c.expr(n.ReturnValue), ms.returnType, "return")
	}
}

func isArray(t types.Type) bool {
	_, ok := t.(*types.ArrayType)
	return ok
}
