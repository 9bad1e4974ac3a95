package vm

import (
	"fmt"
	"io"
	"strings"

	"jmm/pkg/types"
)

// OpCode defines the type for bytecode instructions. Values match the JVM
// instruction set so listings read like javap output.
type OpCode uint8

const (
	OpNop        OpCode = 0x00
	OpAconstNull OpCode = 0x01
	OpIconstM1   OpCode = 0x02
	OpIconst0    OpCode = 0x03
	OpIconst1    OpCode = 0x04
	OpIconst2    OpCode = 0x05
	OpIconst3    OpCode = 0x06
	OpIconst4    OpCode = 0x07
	OpIconst5    OpCode = 0x08
	OpDconst0    OpCode = 0x0e
	OpDconst1    OpCode = 0x0f
	OpBipush     OpCode = 0x10 // byte: push sign-extended immediate
	OpSipush     OpCode = 0x11 // short: push sign-extended immediate
	OpLdc        OpCode = 0x12 // const: push int or String constant
	OpLdc2W      OpCode = 0x14 // const: push double constant

	// Locals
	OpIload  OpCode = 0x15 // slot
	OpDload  OpCode = 0x18 // slot
	OpAload  OpCode = 0x19 // slot
	OpIstore OpCode = 0x36 // slot
	OpDstore OpCode = 0x39 // slot
	OpAstore OpCode = 0x3a // slot
	OpIinc   OpCode = 0x84 // slot delta

	// Arrays
	OpIaload  OpCode = 0x2e
	OpDaload  OpCode = 0x31
	OpAaload  OpCode = 0x32
	OpBaload  OpCode = 0x33
	OpCaload  OpCode = 0x34
	OpIastore OpCode = 0x4f
	OpDastore OpCode = 0x52
	OpAastore OpCode = 0x53
	OpBastore OpCode = 0x54
	OpCastore OpCode = 0x55

	// Operand stack
	OpPop    OpCode = 0x57
	OpPop2   OpCode = 0x58
	OpDup    OpCode = 0x59
	OpDupX1  OpCode = 0x5a
	OpDupX2  OpCode = 0x5b
	OpDup2   OpCode = 0x5c
	OpDup2X1 OpCode = 0x5d
	OpDup2X2 OpCode = 0x5e
	OpSwap   OpCode = 0x5f

	// Arithmetic
	OpIadd  OpCode = 0x60
	OpDadd  OpCode = 0x63
	OpIsub  OpCode = 0x64
	OpDsub  OpCode = 0x67
	OpImul  OpCode = 0x68
	OpDmul  OpCode = 0x6b
	OpIdiv  OpCode = 0x6c
	OpDdiv  OpCode = 0x6f
	OpIrem  OpCode = 0x70
	OpDrem  OpCode = 0x73
	OpIneg  OpCode = 0x74
	OpDneg  OpCode = 0x77
	OpIshl  OpCode = 0x78
	OpIshr  OpCode = 0x7a
	OpIushr OpCode = 0x7c
	OpIand  OpCode = 0x7e
	OpIor   OpCode = 0x80
	OpIxor  OpCode = 0x82

	// Conversions and comparisons
	OpI2d   OpCode = 0x87
	OpD2i   OpCode = 0x8e
	OpI2c   OpCode = 0x92
	OpDcmpl OpCode = 0x97 // -1 when either operand is NaN
	OpDcmpg OpCode = 0x98 // 1 when either operand is NaN

	// Branches: label
	OpIfeq      OpCode = 0x99
	OpIfne      OpCode = 0x9a
	OpIflt      OpCode = 0x9b
	OpIfge      OpCode = 0x9c
	OpIfgt      OpCode = 0x9d
	OpIfle      OpCode = 0x9e
	OpIfIcmpeq  OpCode = 0x9f
	OpIfIcmpne  OpCode = 0xa0
	OpIfIcmplt  OpCode = 0xa1
	OpIfIcmpge  OpCode = 0xa2
	OpIfIcmpgt  OpCode = 0xa3
	OpIfIcmple  OpCode = 0xa4
	OpIfAcmpeq  OpCode = 0xa5
	OpIfAcmpne  OpCode = 0xa6
	OpGoto      OpCode = 0xa7
	OpIfnull    OpCode = 0xc6
	OpIfnonnull OpCode = 0xc7

	// Returns
	OpIreturn OpCode = 0xac
	OpDreturn OpCode = 0xaf
	OpAreturn OpCode = 0xb0
	OpReturn  OpCode = 0xb1

	// Members: owner name descriptor
	OpGetstatic       OpCode = 0xb2
	OpPutstatic       OpCode = 0xb3
	OpGetfield        OpCode = 0xb4
	OpPutfield        OpCode = 0xb5
	OpInvokevirtual   OpCode = 0xb6
	OpInvokespecial   OpCode = 0xb7
	OpInvokestatic    OpCode = 0xb8
	OpInvokeinterface OpCode = 0xb9

	// Objects: type reference
	OpNew            OpCode = 0xbb
	OpNewarray       OpCode = 0xbc // atype
	OpAnewarray      OpCode = 0xbd
	OpArraylength    OpCode = 0xbe
	OpAthrow         OpCode = 0xbf
	OpCheckcast      OpCode = 0xc0
	OpInstanceof     OpCode = 0xc1
	OpMultianewarray OpCode = 0xc5 // descriptor dims
)

// Element type codes for OpNewarray.
const (
	TBoolean = 4
	TChar    = 5
	TDouble  = 7
	TInt     = 10
)

var opNames = map[OpCode]string{
	OpNop: "nop", OpAconstNull: "aconst_null",
	OpIconstM1: "iconst_m1", OpIconst0: "iconst_0", OpIconst1: "iconst_1", OpIconst2: "iconst_2",
	OpIconst3: "iconst_3", OpIconst4: "iconst_4", OpIconst5: "iconst_5",
	OpDconst0: "dconst_0", OpDconst1: "dconst_1",
	OpBipush: "bipush", OpSipush: "sipush", OpLdc: "ldc", OpLdc2W: "ldc2_w",
	OpIload: "iload", OpDload: "dload", OpAload: "aload",
	OpIstore: "istore", OpDstore: "dstore", OpAstore: "astore", OpIinc: "iinc",
	OpIaload: "iaload", OpDaload: "daload", OpAaload: "aaload", OpBaload: "baload", OpCaload: "caload",
	OpIastore: "iastore", OpDastore: "dastore", OpAastore: "aastore", OpBastore: "bastore", OpCastore: "castore",
	OpPop: "pop", OpPop2: "pop2", OpDup: "dup", OpDupX1: "dup_x1", OpDupX2: "dup_x2",
	OpDup2: "dup2", OpDup2X1: "dup2_x1", OpDup2X2: "dup2_x2", OpSwap: "swap",
	OpIadd: "iadd", OpDadd: "dadd", OpIsub: "isub", OpDsub: "dsub", OpImul: "imul", OpDmul: "dmul",
	OpIdiv: "idiv", OpDdiv: "ddiv", OpIrem: "irem", OpDrem: "drem", OpIneg: "ineg", OpDneg: "dneg",
	OpIshl: "ishl", OpIshr: "ishr", OpIushr: "iushr", OpIand: "iand", OpIor: "ior", OpIxor: "ixor",
	OpI2d: "i2d", OpD2i: "d2i", OpI2c: "i2c", OpDcmpl: "dcmpl", OpDcmpg: "dcmpg",
	OpIfeq: "ifeq", OpIfne: "ifne", OpIflt: "iflt", OpIfge: "ifge", OpIfgt: "ifgt", OpIfle: "ifle",
	OpIfIcmpeq: "if_icmpeq", OpIfIcmpne: "if_icmpne", OpIfIcmplt: "if_icmplt",
	OpIfIcmpge: "if_icmpge", OpIfIcmpgt: "if_icmpgt", OpIfIcmple: "if_icmple",
	OpIfAcmpeq: "if_acmpeq", OpIfAcmpne: "if_acmpne", OpGoto: "goto",
	OpIfnull: "ifnull", OpIfnonnull: "ifnonnull",
	OpIreturn: "ireturn", OpDreturn: "dreturn", OpAreturn: "areturn", OpReturn: "return",
	OpGetstatic: "getstatic", OpPutstatic: "putstatic", OpGetfield: "getfield", OpPutfield: "putfield",
	OpInvokevirtual: "invokevirtual", OpInvokespecial: "invokespecial",
	OpInvokestatic: "invokestatic", OpInvokeinterface: "invokeinterface",
	OpNew: "new", OpNewarray: "newarray", OpAnewarray: "anewarray", OpArraylength: "arraylength",
	OpAthrow: "athrow", OpCheckcast: "checkcast", OpInstanceof: "instanceof",
	OpMultianewarray: "multianewarray",
}

// String returns the JVM mnemonic for the OpCode.
func (op OpCode) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("op_%#02x", uint8(op))
}

// operandKind groups opcodes by the emitter call that may produce them.
type operandKind uint8

const (
	noOperand operandKind = iota
	oneOperand
	constOperand
	iincOperand
	branchOperand
	memberOperand
	typeOperand
	multiArrayOperand
)

func (op OpCode) operands() operandKind {
	switch op {
	case OpBipush, OpSipush, OpIload, OpDload, OpAload, OpIstore, OpDstore, OpAstore, OpNewarray:
		return oneOperand
	case OpLdc, OpLdc2W:
		return constOperand
	case OpIinc:
		return iincOperand
	case OpIfeq, OpIfne, OpIflt, OpIfge, OpIfgt, OpIfle,
		OpIfIcmpeq, OpIfIcmpne, OpIfIcmplt, OpIfIcmpge, OpIfIcmpgt, OpIfIcmple,
		OpIfAcmpeq, OpIfAcmpne, OpGoto, OpIfnull, OpIfnonnull:
		return branchOperand
	case OpGetstatic, OpPutstatic, OpGetfield, OpPutfield,
		OpInvokevirtual, OpInvokespecial, OpInvokestatic, OpInvokeinterface:
		return memberOperand
	case OpNew, OpAnewarray, OpCheckcast, OpInstanceof:
		return typeOperand
	case OpMultianewarray:
		return multiArrayOperand
	}
	return noOperand
}

// IsTerminal reports whether control never falls through op.
func (op OpCode) IsTerminal() bool {
	switch op {
	case OpGoto, OpIreturn, OpDreturn, OpAreturn, OpReturn, OpAthrow:
		return true
	}
	return false
}

// Instruction is one resolved instruction. Which fields are meaningful
// depends on the opcode's operand kind.
type Instruction struct {
	Op    OpCode
	Arg   int    // slot, immediate, atype, branch target pc, or dimensions
	Inc   int    // iinc delta
	Const Value  // ldc operand
	Owner string // internal class name or array descriptor
	Name  string // member name
	Desc  string // member descriptor
	Line  int

	label Label // branch target before resolution
}

func (in *Instruction) String() string {
	var sb strings.Builder
	sb.WriteString(in.Op.String())
	switch in.Op.operands() {
	case oneOperand, branchOperand:
		fmt.Fprintf(&sb, " %d", in.Arg)
	case constOperand:
		fmt.Fprintf(&sb, " %s", in.Const.Inspect())
	case iincOperand:
		fmt.Fprintf(&sb, " %d, %d", in.Arg, in.Inc)
	case memberOperand:
		fmt.Fprintf(&sb, " %s.%s:%s", in.Owner, in.Name, in.Desc)
	case typeOperand:
		fmt.Fprintf(&sb, " %s", in.Owner)
	case multiArrayOperand:
		fmt.Fprintf(&sb, " %s, %d", in.Owner, in.Arg)
	}
	return sb.String()
}

// ExceptionHandler is one row of a method's exception table. Rows are
// searched in order; the first row whose range [Start, End) contains the
// faulting pc and whose CatchType matches wins. An empty CatchType catches
// everything.
type ExceptionHandler struct {
	Start     int
	End       int
	Handler   int
	CatchType string
}

// Field is a field declared by a class.
type Field struct {
	Modifiers  types.Modifiers
	Name       string
	Descriptor string
}

// Method is a method or constructor with resolved code. Library methods
// have a native implementation instead of code.
type Method struct {
	Class      *Class
	Modifiers  types.Modifiers
	Name       string
	Descriptor string
	Throws     []string
	Synthetic  bool

	Code      []Instruction
	Handlers  []ExceptionHandler
	MaxLocals int
	MaxStack  int

	native   NativeFunc
	argWords int // parameter words, excluding the receiver
	retWords int
}

func (m *Method) IsStatic() bool { return m.Modifiers.Has(types.Static) }

// Key returns name+descriptor, the identity of a method within a class.
func (m *Method) Key() string { return m.Name + m.Descriptor }

// Class is a class or interface with its fields and methods.
type Class struct {
	Name       string // internal name: "java/lang/Object"
	Super      string // "" only for java/lang/Object
	Interfaces []string
	Modifiers  types.Modifiers
	Synthetic  bool
	Fields     []*Field
	Methods    []*Method

	library    bool
	super      *Class
	interfaces []*Class
	methods    map[string]*Method
	statics    map[string]Value
	state      initState
}

type initState uint8

const (
	uninitialized initState = iota
	initializing
	initialized
)

// Method returns the method declared in c with the given name and
// descriptor, or nil.
func (c *Class) Method(name, desc string) *Method {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == desc {
			return m
		}
	}
	return nil
}

// Field returns the field declared in c with the given name, or nil.
func (c *Class) Field(name string) *Field {
	for _, f := range c.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Program is the output of the assembler: every emitted class in emission
// order.
type Program struct {
	Classes []*Class
}

// Class returns the class with internal name name, or nil.
func (p *Program) Class(name string) *Class {
	for _, c := range p.Classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Disassemble writes a javap-style listing of every class in p.
func (p *Program) Disassemble(w io.Writer) {
	for i, c := range p.Classes {
		if i > 0 {
			fmt.Fprintln(w)
		}
		c.Disassemble(w)
	}
}

// Disassemble writes a listing of c.
func (c *Class) Disassemble(w io.Writer) {
	header := c.Modifiers.String()
	if header != "" {
		header += " "
	}
	kind := "class"
	if c.Modifiers.Has(types.Interface) {
		kind = "interface"
		header = strings.TrimSpace(strings.Replace(header, "interface", "", 1))
		if header != "" {
			header += " "
		}
	}
	fmt.Fprintf(w, "%s%s %s", header, kind, c.Name)
	if c.Super != "" {
		fmt.Fprintf(w, " extends %s", c.Super)
	}
	if len(c.Interfaces) > 0 {
		fmt.Fprintf(w, " implements %s", strings.Join(c.Interfaces, ", "))
	}
	fmt.Fprintln(w, " {")
	for _, f := range c.Fields {
		fmt.Fprintf(w, "  %s %s;\n", joinMods(f.Modifiers, f.Descriptor), f.Name)
	}
	for _, m := range c.Methods {
		m.disassemble(w)
	}
	fmt.Fprintln(w, "}")
}

func joinMods(m types.Modifiers, rest string) string {
	if s := m.String(); s != "" {
		return s + " " + rest
	}
	return rest
}

func (m *Method) disassemble(w io.Writer) {
	fmt.Fprintf(w, "\n  %s%s", joinMods(m.Modifiers, m.Name), m.Descriptor)
	if len(m.Throws) > 0 {
		fmt.Fprintf(w, " throws %s", strings.Join(m.Throws, ", "))
	}
	if m.Code == nil {
		fmt.Fprintln(w, ";")
		return
	}
	fmt.Fprintf(w, "\n    stack=%d, locals=%d\n", m.MaxStack, m.MaxLocals)
	line := 0
	for pc := range m.Code {
		in := &m.Code[pc]
		if in.Line != line && in.Line > 0 {
			line = in.Line
			fmt.Fprintf(w, "    // line %d\n", line)
		}
		fmt.Fprintf(w, "    %4d: %s\n", pc, in)
	}
	if len(m.Handlers) > 0 {
		fmt.Fprintln(w, "    Exception table:")
		fmt.Fprintln(w, "       from    to  target type")
		for _, h := range m.Handlers {
			ct := h.CatchType
			if ct == "" {
				ct = "any"
			}
			fmt.Fprintf(w, "      %5d %5d %5d   %s\n", h.Start, h.End, h.Handler, ct)
		}
	}
}
