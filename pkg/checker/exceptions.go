package checker

import (
	"jmm/pkg/errors"
	"jmm/pkg/parser"
	"jmm/pkg/types"
)

func (c *Checker) throwStatement(n *parser.ThrowStatement) {
	n.Value = c.expr(n.Value)
	t := n.Value.GetComputedType()
	if t == types.Any {
		return
	}
	if !types.IsThrowable(t) {
		c.errorf(errors.TypeMismatch, n.Value, "incompatible types: %s cannot be thrown", t)
		return
	}
	if c.member.initializer {
		c.errorf(errors.ThrowInInitializer, n, "initializer cannot throw %s", t)
		return
	}
	c.checkThrown(n, t)
}

// checkThrown reports t when it is a checked exception not covered by the
// enclosing method's declared throws or an enclosing catch.
func (c *Checker) checkThrown(node parser.Node, t types.Type) {
	if c.ctx.Covers(t) {
		return
	}
	c.errorf(errors.UndeclaredException, node, "unreported exception %s; must be caught or declared to be thrown", t)
}

// checkThrows applies checkThrown to every exception a callee declares.
func (c *Checker) checkThrows(node parser.Node, m *types.Method) {
	for _, t := range m.Throws {
		c.checkThrown(node, t)
	}
}

// tryStatement analyzes try/catch/finally. While the try body is analyzed
// the throwable catch types count as declared exceptions of the method;
// while a handler runs its own catch type does. Each handler and the
// finally body get scopes of their own.
func (c *Checker) tryStatement(n *parser.TryStatement) {
	caught := make([]types.Type, len(n.Catches))
	for i, cc := range n.Catches {
		t := c.resolveType(cc.Type, 0)
		caught[i] = t
		if t == types.Any {
			continue
		}
		if !types.IsThrowable(t) {
			c.errorf(errors.NonThrowableCatch, cc.Type, "incompatible types: %s is not a subclass of java.lang.Throwable", t)
			continue
		}
		cc.Throwable = true
		for j := 0; j < i; j++ {
			if n.Catches[j].Throwable && types.IsSubtype(t, caught[j]) {
				c.warnf(cc, "exception %s has already been caught by the handler at line %d", t, n.Catches[j].Line())
				break
			}
		}
	}

	mark := c.ctx.ExceptionMark()
	for i, cc := range n.Catches {
		if cc.Throwable {
			c.ctx.AddException(caught[i])
		}
	}
	n.Body = c.checkBlock(n.Body)
	c.ctx.RestoreExceptions(mark)

	for i, cc := range n.Catches {
		c.withContext(c.ctx.NewLocal(), func() {
			b := c.declare(cc, cc.Name, caught[i], LocalBinding, false, true)
			cc.Slot = b.Slot
			if cc.Throwable {
				c.ctx.AddException(caught[i])
			}
			cc.Body = c.checkBlock(cc.Body)
			c.ctx.RestoreExceptions(mark)
		})
	}

	if n.Finally != nil {
		n.Finally = c.checkBlock(n.Finally)
	}
}
