package vm

import (
	"fmt"

	"jmm/pkg/types"
)

const assemblerDebug = false

func debugPrintf(format string, args ...interface{}) {
	if assemblerDebug {
		fmt.Printf(format, args...)
	}
}

// Label is an opaque position marker within one method. It has no offset
// until it is placed with AddLabel; branches may refer to it earlier.
type Label int

type handlerRow struct {
	start, end, handler Label
	catchType           string
}

// Assembler builds a Program from emitter calls made in program order. It
// resolves labels when a method is finished, drops exception-table rows
// that protect no instructions, computes max locals and verifies that the
// operand stack depth is consistent at every instruction.
type Assembler struct {
	prog   *Program
	class  *Class
	method *Method
	labels []int
	rows   []handlerRow
	line   int
	err    error
}

// NewAssembler returns an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{prog: &Program{}}
}

func (a *Assembler) fail(format string, args ...interface{}) {
	if a.err != nil {
		return
	}
	where := ""
	if a.class != nil {
		where = a.class.Name
		if a.method != nil {
			where += "." + a.method.Name + a.method.Descriptor
		}
		where += ": "
	}
	a.err = fmt.Errorf("assembler: %s%s", where, fmt.Sprintf(format, args...))
}

// AddClass starts a new class; subsequent fields and methods belong to it.
func (a *Assembler) AddClass(mods types.Modifiers, name, super string, interfaces []string, synthetic bool) {
	a.finishMethod()
	a.class = &Class{
		Name:       name,
		Super:      super,
		Interfaces: interfaces,
		Modifiers:  mods,
		Synthetic:  synthetic,
	}
	a.prog.Classes = append(a.prog.Classes, a.class)
}

// AddField declares a field of the current class.
func (a *Assembler) AddField(mods types.Modifiers, name, desc string) {
	if a.class == nil {
		a.fail("field %s outside a class", name)
		return
	}
	a.class.Fields = append(a.class.Fields, &Field{Modifiers: mods, Name: name, Descriptor: desc})
}

// AddMethod starts a new method of the current class. Abstract methods
// take no instructions.
func (a *Assembler) AddMethod(mods types.Modifiers, name, desc string, throws []string, synthetic bool) {
	a.finishMethod()
	if a.class == nil {
		a.fail("method %s outside a class", name)
		return
	}
	a.method = &Method{
		Class:      a.class,
		Modifiers:  mods,
		Name:       name,
		Descriptor: desc,
		Throws:     throws,
		Synthetic:  synthetic,
	}
	a.class.Methods = append(a.class.Methods, a.method)
	a.labels = a.labels[:0]
	a.rows = a.rows[:0]
	a.line = 0
}

// CreateLabel returns a new, unplaced label for the current method.
func (a *Assembler) CreateLabel() Label {
	a.labels = append(a.labels, -1)
	return Label(len(a.labels) - 1)
}

// AddLabel places l at the next instruction.
func (a *Assembler) AddLabel(l Label) {
	if !a.validLabel(l) {
		return
	}
	if a.labels[l] >= 0 {
		a.fail("label %d placed twice", l)
		return
	}
	a.labels[l] = len(a.method.Code)
}

func (a *Assembler) validLabel(l Label) bool {
	if a.method == nil {
		a.fail("label outside a method")
		return false
	}
	if int(l) < 0 || int(l) >= len(a.labels) {
		a.fail("unknown label %d", l)
		return false
	}
	return true
}

// MarkLine sets the source line recorded for following instructions.
func (a *Assembler) MarkLine(line int) {
	a.line = line
}

func (a *Assembler) emit(in Instruction, kind operandKind) {
	if a.method == nil {
		a.fail("%s outside a method", in.Op)
		return
	}
	if in.Op.operands() != kind {
		a.fail("%s used with the wrong operands", in.Op)
		return
	}
	in.Line = a.line
	a.method.Code = append(a.method.Code, in)
}

func (a *Assembler) AddNoArgInstruction(op OpCode) {
	a.emit(Instruction{Op: op}, noOperand)
}

// AddOneArgInstruction emits an instruction with one immediate operand: a
// local slot, a bipush/sipush value or a newarray element type.
func (a *Assembler) AddOneArgInstruction(op OpCode, arg int) {
	a.emit(Instruction{Op: op, Arg: arg}, oneOperand)
}

// AddLDCInstruction pushes a constant: an int32, a float64 or a string.
func (a *Assembler) AddLDCInstruction(v any) {
	switch c := v.(type) {
	case int32:
		a.emit(Instruction{Op: OpLdc, Const: Int(c)}, constOperand)
	case int:
		a.emit(Instruction{Op: OpLdc, Const: Int(int32(c))}, constOperand)
	case float64:
		a.emit(Instruction{Op: OpLdc2W, Const: Double(c)}, constOperand)
	case string:
		a.emit(Instruction{Op: OpLdc, Const: Ref(&String{Value: c})}, constOperand)
	default:
		a.fail("unsupported constant %T", v)
	}
}

func (a *Assembler) AddIINCInstruction(slot, delta int) {
	a.emit(Instruction{Op: OpIinc, Arg: slot, Inc: delta}, iincOperand)
}

func (a *Assembler) AddBranchInstruction(op OpCode, l Label) {
	if a.validLabel(l) {
		a.emit(Instruction{Op: op, label: l}, branchOperand)
	}
}

// AddReferenceInstruction emits new, anewarray, checkcast or instanceof
// with an internal class name or array descriptor.
func (a *Assembler) AddReferenceInstruction(op OpCode, typeName string) {
	a.emit(Instruction{Op: op, Owner: typeName}, typeOperand)
}

// AddMultiANewArrayInstruction creates an array of type desc, taking the
// first dims lengths from the stack.
func (a *Assembler) AddMultiANewArrayInstruction(desc string, dims int) {
	a.emit(Instruction{Op: OpMultianewarray, Owner: desc, Arg: dims}, multiArrayOperand)
}

func (a *Assembler) AddMemberAccessInstruction(op OpCode, owner, name, desc string) {
	a.emit(Instruction{Op: op, Owner: owner, Name: name, Desc: desc}, memberOperand)
}

// AddExceptionHandler appends an exception-table row. An empty catchType
// catches any throwable.
func (a *Assembler) AddExceptionHandler(start, end, handler Label, catchType string) {
	if a.validLabel(start) && a.validLabel(end) && a.validLabel(handler) {
		a.rows = append(a.rows, handlerRow{start, end, handler, catchType})
	}
}

// Finish completes the last method and returns the program, or the first
// error encountered while assembling.
func (a *Assembler) Finish() (*Program, error) {
	a.finishMethod()
	if a.err != nil {
		return nil, a.err
	}
	return a.prog, nil
}

func (a *Assembler) finishMethod() {
	m := a.method
	if m == nil {
		return
	}
	defer func() { a.method = nil }()

	args, ret, err := methodWords(m.Descriptor)
	if err != nil {
		a.fail("%v", err)
		return
	}
	m.argWords, m.retWords = args, ret

	if m.Modifiers.Has(types.Abstract) {
		if len(m.Code) > 0 {
			a.fail("abstract method has code")
		}
		return
	}
	if len(m.Code) == 0 {
		a.fail("method has no code")
		return
	}

	for pc := range m.Code {
		in := &m.Code[pc]
		if in.Op.operands() != branchOperand {
			continue
		}
		target := a.labels[in.label]
		if target < 0 {
			a.fail("branch at %d to unplaced label %d", pc, in.label)
			return
		}
		in.Arg = target
	}

	for _, r := range a.rows {
		start, end, handler := a.labels[r.start], a.labels[r.end], a.labels[r.handler]
		if start < 0 || end < 0 || handler < 0 {
			a.fail("exception handler uses an unplaced label")
			return
		}
		if start == end {
			debugPrintf("// [Assembler] %s.%s: dropping empty protected region at %d\n", a.class.Name, m.Name, start)
			continue
		}
		m.Handlers = append(m.Handlers, ExceptionHandler{Start: start, End: end, Handler: handler, CatchType: r.catchType})
	}

	m.MaxLocals = args
	if !m.IsStatic() {
		m.MaxLocals++
	}
	for _, in := range m.Code {
		var used int
		switch in.Op {
		case OpIload, OpAload, OpIstore, OpAstore, OpIinc:
			used = in.Arg + 1
		case OpDload, OpDstore:
			used = in.Arg + 2
		}
		if used > m.MaxLocals {
			m.MaxLocals = used
		}
	}

	if err := m.verify(); err != nil {
		a.fail("%v", err)
	}
}
