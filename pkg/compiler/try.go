package compiler

import (
	"jmm/pkg/checker"
	"jmm/pkg/parser"
	"jmm/pkg/types"
	"jmm/pkg/vm"
)

// compileTry emits try/catch/finally:
//
//	try body; [finally copy]; goto end
//	handler_i: astore e_i; catch body_i; [finally copy]; goto end
//	any: astore t; finally body; aload t; athrow
//	end:
//
// Explicit catch rows cover the try body. The catch-any row covers the try
// body and every catch body. Both exclude the inline finally copies, which
// split the regions into pieces. Rows are added once the statement is
// complete, so a nested try's rows precede those of the try around it.
func (c *Compiler) compileTry(n *parser.TryStatement) {
	end := c.emit.CreateLabel()

	body := &region{}
	c.pushExit(&exit{region: body, finally: n.Finally})
	c.openRegion(body)
	c.compileBlock(n.Body)
	c.closeRegion(body)
	c.popExit()
	if checker.CompletesNormally(n.Body) {
		c.finishClause(n, end)
	}

	handlers := make([]vm.Label, len(n.Catches))
	catchBodies := &region{}
	for i, cc := range n.Catches {
		if !cc.Throwable {
			continue
		}
		handlers[i] = c.here()
		c.emit.MarkLine(cc.Line())
		c.emit.AddOneArgInstruction(vm.OpAstore, cc.Slot)
		if n.Finally != nil {
			c.pushExit(&exit{region: catchBodies, finally: n.Finally})
			c.openRegion(catchBodies)
		}
		c.compileBlock(cc.Body)
		if n.Finally != nil {
			c.closeRegion(catchBodies)
			c.popExit()
		}
		if checker.CompletesNormally(cc.Body) {
			c.finishClause(n, end)
		}
	}

	for _, r := range body.ranges {
		for i, cc := range n.Catches {
			if cc.Throwable {
				c.emit.AddExceptionHandler(r.start, r.end, handlers[i], types.InternalName(cc.Type.Resolved))
			}
		}
	}

	if n.Finally != nil {
		any := c.here()
		slot := c.newLocal(1)
		c.emit.MarkLine(n.Finally.Line())
		c.emit.AddOneArgInstruction(vm.OpAstore, slot)
		c.compileBlock(n.Finally)
		if checker.CompletesNormally(n.Finally) {
			c.emit.AddOneArgInstruction(vm.OpAload, slot)
			c.emit.AddNoArgInstruction(vm.OpAthrow)
		}
		for _, r := range append(body.ranges, catchBodies.ranges...) {
			c.emit.AddExceptionHandler(r.start, r.end, any, "")
		}
	}
	c.emit.AddLabel(end)
}

// finishClause ends a try body or catch body that completes normally: it
// runs the finally copy and jumps past the handlers.
func (c *Compiler) finishClause(n *parser.TryStatement, end vm.Label) {
	if n.Finally != nil {
		c.compileBlock(n.Finally)
		if !checker.CompletesNormally(n.Finally) {
			return
		}
	}
	c.emit.AddBranchInstruction(vm.OpGoto, end)
}
