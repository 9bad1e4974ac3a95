package compiler

import (
	"jmm/pkg/checker"
	"jmm/pkg/parser"
	"jmm/pkg/types"
	"jmm/pkg/vm"
)

func (c *Compiler) compileBlock(b *parser.BlockStatement) {
	if b == nil {
		return
	}
	for _, s := range b.Statements {
		c.compileStatement(s)
	}
}

func (c *Compiler) compileStatement(s parser.Statement) {
	c.emit.MarkLine(s.Line())
	switch n := s.(type) {
	case *parser.BlockStatement:
		c.compileBlock(n)
	case *parser.LocalVariableDeclaration:
		for _, vd := range n.Vars {
			if vd.Init == nil {
				continue
			}
			c.compileInitializer(vd.Init, vd.Type)
			c.emit.AddOneArgInstruction(storeOp(vd.Type), vd.Slot)
		}
	case *parser.ExpressionStatement:
		c.compileEffect(n.Expression)
	case *parser.EmptyStatement:
	case *parser.IfStatement:
		c.compileIf(n)
	case *parser.LoopStatement:
		c.compileLoop(n)
	case *parser.WhileStatement:
		c.compileLoop(n.Canonical)
	case *parser.ForStatement:
		c.compileLoop(n.Canonical)
	case *parser.ForEachStatement:
		c.compileLoop(n.Canonical)
	case *parser.BreakStatement:
		c.compileJump(n.Line(), func(e *exit) vm.Label { return e.breakLabel })
	case *parser.ContinueStatement:
		c.compileJump(n.Line(), func(e *exit) vm.Label { return e.continueLabel })
	case *parser.ReturnStatement:
		c.compileReturn(n)
	case *parser.ThrowStatement:
		c.compileExpr(n.Value)
		c.emit.AddNoArgInstruction(vm.OpAthrow)
	case *parser.TryStatement:
		c.compileTry(n)
	default:
		panic("compiler: unexpected statement type")
	}
}

func (c *Compiler) compileIf(n *parser.IfStatement) {
	elseLabel := c.emit.CreateLabel()
	c.compileBranch(n.Condition, elseLabel, false)
	c.compileStatement(n.Consequence)
	if n.Alternative == nil {
		c.emit.AddLabel(elseLabel)
		return
	}
	end := c.emit.CreateLabel()
	if checker.CompletesNormally(n.Consequence) {
		c.emit.AddBranchInstruction(vm.OpGoto, end)
	}
	c.emit.AddLabel(elseLabel)
	c.compileStatement(n.Alternative)
	c.emit.AddLabel(end)
}

// compileLoop emits the canonical loop:
//
//	init; top: if !cond goto exit; body; step: update; goto top; exit:
//
// continue jumps to step, break to exit.
func (c *Compiler) compileLoop(l *parser.LoopStatement) {
	for _, s := range l.Init {
		c.compileStatement(s)
	}
	top, step, exitLabel := c.emit.CreateLabel(), c.emit.CreateLabel(), c.emit.CreateLabel()
	c.emit.AddLabel(top)
	if l.Condition != nil {
		c.compileBranch(l.Condition, exitLabel, false)
	}
	c.pushExit(&exit{loop: true, breakLabel: exitLabel, continueLabel: step})
	c.compileStatement(l.Body)
	c.popExit()
	c.emit.AddLabel(step)
	for _, s := range l.Step {
		c.compileStatement(s)
	}
	c.emit.AddBranchInstruction(vm.OpGoto, top)
	c.emit.AddLabel(exitLabel)
}

// compileJump emits break or continue, running the finally bodies between
// the jump and its loop.
func (c *Compiler) compileJump(line int, target func(e *exit) vm.Label) {
	i := c.innermostLoop()
	to := target(c.m.exits[i])
	if !c.crossesFinally(i + 1) {
		c.emit.AddBranchInstruction(vm.OpGoto, to)
		return
	}
	suspended := c.unwind(i + 1)
	c.emit.MarkLine(line)
	c.emit.AddBranchInstruction(vm.OpGoto, to)
	c.resume(suspended)
}

// compileReturn emits return. Inside try statements with finally bodies
// the value is computed first, parked in a temporary while the finally
// bodies run, and then returned.
func (c *Compiler) compileReturn(n *parser.ReturnStatement) {
	t := c.m.returns
	if n.ReturnValue != nil {
		c.compileExpr(n.ReturnValue)
	}
	if !c.crossesFinally(0) {
		c.emit.AddNoArgInstruction(returnOp(t))
		return
	}
	slot := -1
	if n.ReturnValue != nil {
		slot = c.newLocal(types.Width(t))
		c.emit.AddOneArgInstruction(storeOp(t), slot)
	}
	suspended := c.unwind(0)
	c.emit.MarkLine(n.Line())
	if slot >= 0 {
		c.emit.AddOneArgInstruction(loadOp(t), slot)
	}
	c.emit.AddNoArgInstruction(returnOp(t))
	c.resume(suspended)
}

// --- opcode selection by type ---

func loadOp(t types.Type) vm.OpCode {
	switch {
	case t == types.Double:
		return vm.OpDload
	case types.IsReference(t):
		return vm.OpAload
	}
	return vm.OpIload
}

func storeOp(t types.Type) vm.OpCode {
	switch {
	case t == types.Double:
		return vm.OpDstore
	case types.IsReference(t):
		return vm.OpAstore
	}
	return vm.OpIstore
}

func returnOp(t types.Type) vm.OpCode {
	switch {
	case t == types.Void:
		return vm.OpReturn
	case t == types.Double:
		return vm.OpDreturn
	case types.IsReference(t):
		return vm.OpAreturn
	}
	return vm.OpIreturn
}

func arrayLoadOp(elem types.Type) vm.OpCode {
	switch {
	case elem == types.Double:
		return vm.OpDaload
	case elem == types.Char:
		return vm.OpCaload
	case elem == types.Boolean:
		return vm.OpBaload
	case types.IsReference(elem):
		return vm.OpAaload
	}
	return vm.OpIaload
}

func arrayStoreOp(elem types.Type) vm.OpCode {
	switch {
	case elem == types.Double:
		return vm.OpDastore
	case elem == types.Char:
		return vm.OpCastore
	case elem == types.Boolean:
		return vm.OpBastore
	case types.IsReference(elem):
		return vm.OpAastore
	}
	return vm.OpIastore
}
