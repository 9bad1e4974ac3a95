package compiler

import (
	"jmm/pkg/parser"
	"jmm/pkg/types"
	"jmm/pkg/vm"
)

// compileBranch emits code that jumps to target when e evaluates to onTrue
// and falls through otherwise. No boolean is left on the stack, so && and
// || compose into short-circuit jumps.
func (c *Compiler) compileBranch(e parser.Expression, target vm.Label, onTrue bool) {
	switch n := e.(type) {
	case *parser.BooleanLiteral:
		if n.Value == onTrue {
			c.emit.AddBranchInstruction(vm.OpGoto, target)
		}
		return
	case *parser.PrefixExpression:
		if n.Operator == "!" {
			c.compileBranch(n.Right, target, !onTrue)
			return
		}
	case *parser.InfixExpression:
		switch n.Operator {
		case "&&":
			if onTrue {
				skip := c.emit.CreateLabel()
				c.compileBranch(n.Left, skip, false)
				c.compileBranch(n.Right, target, true)
				c.emit.AddLabel(skip)
			} else {
				c.compileBranch(n.Left, target, false)
				c.compileBranch(n.Right, target, false)
			}
			return
		case "||":
			if onTrue {
				c.compileBranch(n.Left, target, true)
				c.compileBranch(n.Right, target, true)
			} else {
				skip := c.emit.CreateLabel()
				c.compileBranch(n.Left, skip, true)
				c.compileBranch(n.Right, target, false)
				c.emit.AddLabel(skip)
			}
			return
		case "<", ">", "<=", ">=", "==", "!=":
			c.compileComparison(n, target, onTrue)
			return
		}
	}
	c.compileExpr(e)
	if onTrue {
		c.emit.AddBranchInstruction(vm.OpIfne, target)
	} else {
		c.emit.AddBranchInstruction(vm.OpIfeq, target)
	}
}

// negated maps a comparison to its complement.
var negated = map[string]string{
	"<": ">=", ">=": "<",
	">": "<=", "<=": ">",
	"==": "!=", "!=": "==",
}

var intCompare = map[string]vm.OpCode{
	"==": vm.OpIfIcmpeq, "!=": vm.OpIfIcmpne,
	"<": vm.OpIfIcmplt, ">=": vm.OpIfIcmpge,
	">": vm.OpIfIcmpgt, "<=": vm.OpIfIcmple,
}

var zeroCompare = map[string]vm.OpCode{
	"==": vm.OpIfeq, "!=": vm.OpIfne,
	"<": vm.OpIflt, ">=": vm.OpIfge,
	">": vm.OpIfgt, "<=": vm.OpIfle,
}

// doubleCompare picks the three-way compare for a double comparison. The
// choice depends only on the operator, so the opposite branch orientations
// of one comparison agree on NaN: < and > are false for a NaN operand,
// while their complements >= and <= are true. == is false and != true.
//
//	op   compare  jump if true  jump if false
//	>    dcmpl    ifgt          ifle
//	<=   dcmpl    ifle          ifgt
//	<    dcmpg    iflt          ifge
//	>=   dcmpg    ifge          iflt
//	==   dcmpl    ifeq          ifne
//	!=   dcmpl    ifne          ifeq
var doubleCompare = map[string]vm.OpCode{
	">": vm.OpDcmpl, "<=": vm.OpDcmpl,
	"<": vm.OpDcmpg, ">=": vm.OpDcmpg,
	"==": vm.OpDcmpl, "!=": vm.OpDcmpl,
}

func (c *Compiler) compileComparison(n *parser.InfixExpression, target vm.Label, onTrue bool) {
	op := n.Operator
	jump := op
	if !onTrue {
		jump = negated[op]
	}
	lt, rt := typeOf(n.Left), typeOf(n.Right)

	switch {
	case lt == types.Double:
		c.compileExpr(n.Left)
		c.compileExpr(n.Right)
		c.emit.AddNoArgInstruction(doubleCompare[op])
		c.emit.AddBranchInstruction(zeroCompare[jump], target)
	case types.IsReference(lt) || types.IsReference(rt):
		eq := jump == "=="
		switch {
		case isNull(n.Right):
			c.compileExpr(n.Left)
			c.emit.AddBranchInstruction(pick(eq, vm.OpIfnull, vm.OpIfnonnull), target)
		case isNull(n.Left):
			c.compileExpr(n.Right)
			c.emit.AddBranchInstruction(pick(eq, vm.OpIfnull, vm.OpIfnonnull), target)
		default:
			c.compileExpr(n.Left)
			c.compileExpr(n.Right)
			c.emit.AddBranchInstruction(pick(eq, vm.OpIfAcmpeq, vm.OpIfAcmpne), target)
		}
	case isZero(n.Right):
		c.compileExpr(n.Left)
		c.emit.AddBranchInstruction(zeroCompare[jump], target)
	default:
		c.compileExpr(n.Left)
		c.compileExpr(n.Right)
		c.emit.AddBranchInstruction(intCompare[jump], target)
	}
}

func pick(cond bool, a, b vm.OpCode) vm.OpCode {
	if cond {
		return a
	}
	return b
}

func isNull(e parser.Expression) bool {
	_, ok := e.(*parser.NullLiteral)
	return ok
}

func isZero(e parser.Expression) bool {
	lit, ok := e.(*parser.IntegerLiteral)
	return ok && lit.Value == 0
}

// compileBoolean materializes a condition as 0 or 1.
func (c *Compiler) compileBoolean(e parser.Expression) {
	falseLabel, end := c.emit.CreateLabel(), c.emit.CreateLabel()
	c.compileBranch(e, falseLabel, false)
	c.emit.AddNoArgInstruction(vm.OpIconst1)
	c.emit.AddBranchInstruction(vm.OpGoto, end)
	c.emit.AddLabel(falseLabel)
	c.emit.AddNoArgInstruction(vm.OpIconst0)
	c.emit.AddLabel(end)
}
