package compiler

import (
	"math"
	"strings"

	"jmm/pkg/parser"
	"jmm/pkg/types"
	"jmm/pkg/vm"
)

const stringBuilderClass = "java/lang/StringBuilder"

func typeOf(e parser.Expression) types.Type { return e.GetComputedType() }

// compileExpr emits code that leaves the value of e on the stack.
func (c *Compiler) compileExpr(e parser.Expression) {
	switch n := e.(type) {
	case *parser.IntegerLiteral:
		c.compileInt(n.Value)
	case *parser.CharLiteral:
		c.compileInt(int32(n.Value))
	case *parser.DoubleLiteral:
		c.compileDouble(n.Value)
	case *parser.BooleanLiteral:
		c.emit.AddNoArgInstruction(pick(n.Value, vm.OpIconst1, vm.OpIconst0))
	case *parser.StringLiteral:
		c.emit.AddLDCInstruction(n.Value)
	case *parser.NullLiteral:
		c.emit.AddNoArgInstruction(vm.OpAconstNull)
	case *parser.ThisExpression, *parser.SuperExpression:
		c.emit.AddOneArgInstruction(vm.OpAload, 0)
	case *parser.Identifier:
		c.emit.AddOneArgInstruction(loadOp(typeOf(n)), n.Slot)
	case *parser.FieldAccess:
		loc := c.locate(n)
		c.load(loc)
	case *parser.IndexExpression:
		loc := c.locate(n)
		c.load(loc)
	case *parser.ArrayLength:
		c.compileExpr(n.Array)
		c.emit.AddNoArgInstruction(vm.OpArraylength)
	case *parser.MethodCall:
		c.compileCall(n)
	case *parser.ConstructorCall:
		c.emit.AddOneArgInstruction(vm.OpAload, 0)
		c.compileArgs(n.Arguments)
		c.emit.AddMemberAccessInstruction(vm.OpInvokespecial, types.InternalName(n.Method.Owner), "<init>", n.Method.Descriptor())
	case *parser.NewExpression:
		owner := types.InternalName(typeOf(n))
		c.emit.MarkLine(n.Line())
		c.emit.AddReferenceInstruction(vm.OpNew, owner)
		c.emit.AddNoArgInstruction(vm.OpDup)
		c.compileArgs(n.Arguments)
		c.emit.AddMemberAccessInstruction(vm.OpInvokespecial, owner, "<init>", n.Constructor.Descriptor())
	case *parser.NewArrayExpression:
		c.compileNewArray(n)
	case *parser.ArrayLiteral:
		c.compileArrayLiteral(n, typeOf(n))
	case *parser.AssignmentExpression:
		c.compileAssignment(n, true)
	case *parser.UpdateExpression:
		c.compileUpdate(n, true)
	case *parser.PrefixExpression:
		c.compilePrefix(n)
	case *parser.InfixExpression:
		c.compileInfix(n)
	case *parser.ConditionalExpression:
		elseLabel, end := c.emit.CreateLabel(), c.emit.CreateLabel()
		c.compileBranch(n.Condition, elseLabel, false)
		c.compileExpr(n.Consequence)
		c.emit.AddBranchInstruction(vm.OpGoto, end)
		c.emit.AddLabel(elseLabel)
		c.compileExpr(n.Alternative)
		c.emit.AddLabel(end)
	case *parser.CastExpression:
		c.compileExpr(n.Operand)
		c.convert(typeOf(n.Operand), typeOf(n))
	case *parser.ConversionExpression:
		c.compileExpr(n.Operand)
		c.convert(typeOf(n.Operand), n.To)
	case *parser.InstanceOfExpression:
		c.compileExpr(n.Operand)
		c.emit.AddReferenceInstruction(vm.OpInstanceof, types.InternalName(n.Type.Resolved))
	case *parser.ConcatExpression:
		c.compileConcat(n.Operands)
	default:
		panic("compiler: unexpected expression type")
	}
}

// compileEffect evaluates e for its side effects and leaves nothing on the
// stack.
func (c *Compiler) compileEffect(e parser.Expression) {
	switch n := e.(type) {
	case *parser.AssignmentExpression:
		c.compileAssignment(n, false)
	case *parser.UpdateExpression:
		c.compileUpdate(n, false)
	default:
		c.compileExpr(e)
		c.pop(typeOf(e))
	}
}

func (c *Compiler) pop(t types.Type) {
	switch types.Width(t) {
	case 1:
		c.emit.AddNoArgInstruction(vm.OpPop)
	case 2:
		c.emit.AddNoArgInstruction(vm.OpPop2)
	}
}

// --- constants ---

func (c *Compiler) compileInt(v int32) {
	switch {
	case v >= -1 && v <= 5:
		c.emit.AddNoArgInstruction(vm.OpCode(int32(vm.OpIconst0) + v))
	case v >= math.MinInt8 && v <= math.MaxInt8:
		c.emit.AddOneArgInstruction(vm.OpBipush, int(v))
	case v >= math.MinInt16 && v <= math.MaxInt16:
		c.emit.AddOneArgInstruction(vm.OpSipush, int(v))
	default:
		c.emit.AddLDCInstruction(v)
	}
}

func (c *Compiler) compileDouble(v float64) {
	switch {
	case v == 0 && !math.Signbit(v):
		c.emit.AddNoArgInstruction(vm.OpDconst0)
	case v == 1:
		c.emit.AddNoArgInstruction(vm.OpDconst1)
	default:
		c.emit.AddLDCInstruction(v)
	}
}

// --- conversions ---

// convert emits the conversion of a value of type from to type to: numeric
// widening and narrowing for primitives, a checked cast for reference
// downcasts.
func (c *Compiler) convert(from, to types.Type) {
	switch {
	case from == to:
	case to == types.Double && types.IsIntegral(from):
		c.emit.AddNoArgInstruction(vm.OpI2d)
	case from == types.Double && to == types.Int:
		c.emit.AddNoArgInstruction(vm.OpD2i)
	case from == types.Double && to == types.Char:
		c.emit.AddNoArgInstruction(vm.OpD2i)
		c.emit.AddNoArgInstruction(vm.OpI2c)
	case from == types.Int && to == types.Char:
		c.emit.AddNoArgInstruction(vm.OpI2c)
	case types.IsReference(to) && !types.IsAssignable(from, to):
		c.emit.AddReferenceInstruction(vm.OpCheckcast, types.InternalName(to))
	}
}

// --- calls ---

func (c *Compiler) compileArgs(args []parser.Expression) {
	for _, a := range args {
		c.compileExpr(a)
	}
}

// compileCall picks the invoke instruction: invokestatic for static
// methods, invokespecial for super calls and private methods,
// invokeinterface for interface methods and invokevirtual otherwise. A
// static method named through an instance still evaluates the instance.
func (c *Compiler) compileCall(n *parser.MethodCall) {
	m := n.Method
	owner := types.InternalName(m.Owner)
	desc := m.Descriptor()

	if m.IsStatic() {
		c.compileDiscardedTarget(n.Target)
		c.compileArgs(n.Arguments)
		c.emit.MarkLine(n.Line())
		c.emit.AddMemberAccessInstruction(vm.OpInvokestatic, owner, m.Name, desc)
		return
	}

	c.compileExpr(n.Target)
	c.compileArgs(n.Arguments)
	c.emit.MarkLine(n.Line())
	_, super := n.Target.(*parser.SuperExpression)
	switch {
	case super || m.Modifiers.Has(types.Private):
		c.emit.AddMemberAccessInstruction(vm.OpInvokespecial, owner, m.Name, desc)
	case m.Owner.IsInterface():
		c.emit.AddMemberAccessInstruction(vm.OpInvokeinterface, owner, m.Name, desc)
	default:
		c.emit.AddMemberAccessInstruction(vm.OpInvokevirtual, owner, m.Name, desc)
	}
}

// compileDiscardedTarget evaluates the instance a static member is named
// through, for its side effects.
func (c *Compiler) compileDiscardedTarget(target parser.Expression) {
	switch target.(type) {
	case nil, *parser.TypeExpression:
		return
	}
	c.compileExpr(target)
	c.emit.AddNoArgInstruction(vm.OpPop)
}

// --- arrays ---

func (c *Compiler) compileNewArray(n *parser.NewArrayExpression) {
	t := typeOf(n)
	if n.Init != nil {
		c.compileArrayLiteral(n.Init, t)
		return
	}
	c.compileArgs(n.Dims)
	if len(n.Dims) > 1 {
		c.emit.AddMultiANewArrayInstruction(t.Descriptor(), len(n.Dims))
		return
	}
	c.newArray(t.(*types.ArrayType).Elem)
}

// newArray creates a one-dimensional array of elem whose length is on the
// stack.
func (c *Compiler) newArray(elem types.Type) {
	switch elem {
	case types.Int:
		c.emit.AddOneArgInstruction(vm.OpNewarray, vm.TInt)
	case types.Double:
		c.emit.AddOneArgInstruction(vm.OpNewarray, vm.TDouble)
	case types.Char:
		c.emit.AddOneArgInstruction(vm.OpNewarray, vm.TChar)
	case types.Boolean:
		c.emit.AddOneArgInstruction(vm.OpNewarray, vm.TBoolean)
	default:
		c.emit.AddReferenceInstruction(vm.OpAnewarray, types.InternalName(elem))
	}
}

// compileArrayLiteral builds an array of type t and stores each element.
// Nested literals build the inner arrays.
func (c *Compiler) compileArrayLiteral(lit *parser.ArrayLiteral, t types.Type) {
	elem := t.(*types.ArrayType).Elem
	c.compileInt(int32(len(lit.Elements)))
	c.newArray(elem)
	for i, el := range lit.Elements {
		c.emit.AddNoArgInstruction(vm.OpDup)
		c.compileInt(int32(i))
		c.compileInitializer(el, elem)
		c.emit.AddNoArgInstruction(arrayStoreOp(elem))
	}
}

// compileInitializer emits a variable initializer of type t.
func (c *Compiler) compileInitializer(init parser.Expression, t types.Type) {
	if lit, ok := init.(*parser.ArrayLiteral); ok {
		c.compileArrayLiteral(lit, t)
		return
	}
	c.compileExpr(init)
}

// --- operators ---

func (c *Compiler) compilePrefix(n *parser.PrefixExpression) {
	switch n.Operator {
	case "!":
		c.compileBoolean(n)
	case "-":
		c.compileExpr(n.Right)
		c.emit.AddNoArgInstruction(pick(typeOf(n) == types.Double, vm.OpDneg, vm.OpIneg))
	case "+":
		c.compileExpr(n.Right)
	case "~":
		c.compileExpr(n.Right)
		c.emit.AddNoArgInstruction(vm.OpIconstM1)
		c.emit.AddNoArgInstruction(vm.OpIxor)
	default:
		panic("compiler: unexpected prefix operator " + n.Operator)
	}
}

func (c *Compiler) compileInfix(n *parser.InfixExpression) {
	switch n.Operator {
	case "&&", "||", "<", ">", "<=", ">=", "==", "!=":
		c.compileBoolean(n)
		return
	}
	c.compileExpr(n.Left)
	c.compileExpr(n.Right)
	c.emit.AddNoArgInstruction(arithOp(n.Operator, typeOf(n)))
}

var intOps = map[string]vm.OpCode{
	"+": vm.OpIadd, "-": vm.OpIsub, "*": vm.OpImul, "/": vm.OpIdiv, "%": vm.OpIrem,
	"&": vm.OpIand, "|": vm.OpIor, "^": vm.OpIxor,
	"<<": vm.OpIshl, ">>": vm.OpIshr, ">>>": vm.OpIushr,
}

var doubleOps = map[string]vm.OpCode{
	"+": vm.OpDadd, "-": vm.OpDsub, "*": vm.OpDmul, "/": vm.OpDdiv, "%": vm.OpDrem,
}

// arithOp returns the instruction for a binary operator whose operands and
// result have type t. Booleans use the int bitwise instructions.
func arithOp(op string, t types.Type) vm.OpCode {
	if t == types.Double {
		return doubleOps[op]
	}
	code, ok := intOps[op]
	if !ok {
		panic("compiler: unexpected binary operator " + op)
	}
	return code
}

// compileConcat builds a string with a StringBuilder, appending each
// operand with the overload for its type.
func (c *Compiler) compileConcat(operands []parser.Expression) {
	c.emit.AddReferenceInstruction(vm.OpNew, stringBuilderClass)
	c.emit.AddNoArgInstruction(vm.OpDup)
	c.emit.AddMemberAccessInstruction(vm.OpInvokespecial, stringBuilderClass, "<init>", "()V")
	for _, e := range operands {
		c.compileExpr(e)
		c.appendValue(typeOf(e))
	}
	c.emit.AddMemberAccessInstruction(vm.OpInvokevirtual, stringBuilderClass, "toString", "()Ljava/lang/String;")
}

// appendValue calls the StringBuilder.append overload for a value of t.
func (c *Compiler) appendValue(t types.Type) {
	desc := "Ljava/lang/Object;"
	switch {
	case types.IsPrimitive(t):
		desc = t.Descriptor()
	case t.Descriptor() == "Ljava/lang/String;":
		desc = t.Descriptor()
	}
	c.emit.AddMemberAccessInstruction(vm.OpInvokevirtual, stringBuilderClass, "append", "("+desc+")Ljava/lang/StringBuilder;")
}

// --- assignment ---

func (c *Compiler) compileAssignment(n *parser.AssignmentExpression, want bool) {
	if n.Operator != "=" && !want && c.compileIinc(n) {
		return
	}
	loc := c.locate(n.Target)
	if n.Operator == "=" {
		c.compileInitializer(n.Value, loc.t)
	} else {
		op := strings.TrimSuffix(n.Operator, "=")
		c.dupAddress(loc)
		c.load(loc)
		if op == "+" && !types.IsPrimitive(loc.t) {
			// String += value
			c.emit.AddReferenceInstruction(vm.OpNew, stringBuilderClass)
			c.emit.AddNoArgInstruction(vm.OpDup)
			c.emit.AddMemberAccessInstruction(vm.OpInvokespecial, stringBuilderClass, "<init>", "()V")
			c.emit.AddNoArgInstruction(vm.OpSwap)
			c.appendValue(loc.t)
			c.compileExpr(n.Value)
			c.appendValue(typeOf(n.Value))
			c.emit.AddMemberAccessInstruction(vm.OpInvokevirtual, stringBuilderClass, "toString", "()Ljava/lang/String;")
		} else {
			c.compileExpr(n.Value)
			c.emit.AddNoArgInstruction(arithOp(op, loc.t))
		}
	}
	if want {
		c.dupValueUnder(loc)
	}
	c.store(loc)
}

// compileIinc emits local += constant and local -= constant on an int
// local as one iinc. It reports whether it applied.
func (c *Compiler) compileIinc(n *parser.AssignmentExpression) bool {
	id, ok := n.Target.(*parser.Identifier)
	if !ok || typeOf(id) != types.Int {
		return false
	}
	lit, ok := n.Value.(*parser.IntegerLiteral)
	if !ok {
		return false
	}
	delta := int(lit.Value)
	switch n.Operator {
	case "+=":
	case "-=":
		delta = -delta
	default:
		return false
	}
	if delta < math.MinInt16 || delta > math.MaxInt16 {
		return false
	}
	c.emit.AddIINCInstruction(id.Slot, delta)
	return true
}

func (c *Compiler) compileUpdate(n *parser.UpdateExpression, want bool) {
	loc := c.locate(n.Target)
	delta := 1
	if n.Operator == "--" {
		delta = -1
	}

	if loc.kind == localLoc && loc.t == types.Int {
		if want && !n.Prefix {
			c.load(loc)
		}
		c.emit.AddIINCInstruction(loc.slot, delta)
		if want && n.Prefix {
			c.load(loc)
		}
		return
	}

	c.dupAddress(loc)
	c.load(loc)
	if want && !n.Prefix {
		c.dupValueUnder(loc)
	}
	if loc.t == types.Double {
		c.emit.AddNoArgInstruction(vm.OpDconst1)
		c.emit.AddNoArgInstruction(pick(delta > 0, vm.OpDadd, vm.OpDsub))
	} else {
		c.emit.AddNoArgInstruction(vm.OpIconst1)
		c.emit.AddNoArgInstruction(pick(delta > 0, vm.OpIadd, vm.OpIsub))
		if loc.t == types.Char {
			c.emit.AddNoArgInstruction(vm.OpI2c)
		}
	}
	if want && n.Prefix {
		c.dupValueUnder(loc)
	}
	c.store(loc)
}

// --- storage locations ---

type locKind int

const (
	localLoc   locKind = iota // a local slot
	staticLoc                 // a static field
	fieldLoc                  // an instance field; the object is on the stack
	elementLoc                // an array element; array and index are on the stack
)

// location is an assignable place whose address operands have been
// pushed.
type location struct {
	kind  locKind
	t     types.Type
	slot  int
	field *types.Field
}

// locate emits the address operands of an assignable expression.
func (c *Compiler) locate(e parser.Expression) *location {
	switch n := e.(type) {
	case *parser.Identifier:
		return &location{kind: localLoc, t: typeOf(n), slot: n.Slot}
	case *parser.FieldAccess:
		f := n.Field
		if f.IsStatic() {
			c.compileDiscardedTarget(n.Target)
			return &location{kind: staticLoc, t: f.Type, field: f}
		}
		c.compileExpr(n.Target)
		return &location{kind: fieldLoc, t: f.Type, field: f}
	case *parser.IndexExpression:
		c.compileExpr(n.Left)
		c.compileExpr(n.Index)
		return &location{kind: elementLoc, t: typeOf(n)}
	}
	panic("compiler: expression is not assignable")
}

func (c *Compiler) load(loc *location) {
	switch loc.kind {
	case localLoc:
		c.emit.AddOneArgInstruction(loadOp(loc.t), loc.slot)
	case staticLoc:
		c.fieldInstruction(vm.OpGetstatic, loc.field)
	case fieldLoc:
		c.fieldInstruction(vm.OpGetfield, loc.field)
	case elementLoc:
		c.emit.AddNoArgInstruction(arrayLoadOp(loc.t))
	}
}

func (c *Compiler) store(loc *location) {
	switch loc.kind {
	case localLoc:
		c.emit.AddOneArgInstruction(storeOp(loc.t), loc.slot)
	case staticLoc:
		c.fieldInstruction(vm.OpPutstatic, loc.field)
	case fieldLoc:
		c.fieldInstruction(vm.OpPutfield, loc.field)
	case elementLoc:
		c.emit.AddNoArgInstruction(arrayStoreOp(loc.t))
	}
}

func (c *Compiler) fieldInstruction(op vm.OpCode, f *types.Field) {
	c.emit.AddMemberAccessInstruction(op, types.InternalName(f.Owner), f.Name, f.Type.Descriptor())
}

// dupAddress duplicates the address operands so the location can be read
// and then written.
func (c *Compiler) dupAddress(loc *location) {
	switch loc.kind {
	case fieldLoc:
		c.emit.AddNoArgInstruction(vm.OpDup)
	case elementLoc:
		c.emit.AddNoArgInstruction(vm.OpDup2)
	}
}

// dupValueUnder copies the value on top of the stack below the address
// operands, leaving it as the expression's result after the store.
func (c *Compiler) dupValueUnder(loc *location) {
	wide := loc.t == types.Double
	switch loc.kind {
	case localLoc, staticLoc:
		c.emit.AddNoArgInstruction(pick(wide, vm.OpDup2, vm.OpDup))
	case fieldLoc:
		c.emit.AddNoArgInstruction(pick(wide, vm.OpDup2X1, vm.OpDupX1))
	case elementLoc:
		c.emit.AddNoArgInstruction(pick(wide, vm.OpDup2X2, vm.OpDupX2))
	}
}
