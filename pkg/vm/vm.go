package vm

import (
	"fmt"
	"io"
	"math"
	"os"

	"jmm/pkg/errors"
	"jmm/pkg/types"
)

// DefaultMaxDepth bounds nested method activations.
const DefaultMaxDepth = 1024

// VM executes the classes of one Program together with the runtime
// library. Each method activation gets its own frame with max-locals
// slots and an operand stack; doubles take two words in both.
type VM struct {
	classes  map[string]*Class
	out      io.Writer
	strings  map[string]*String
	argWords map[string]int
	hashes   map[Object]int32
	nextHash int32

	steps    int
	maxSteps int
	depth    int
	maxDepth int
}

// Option configures a VM.
type Option func(*VM)

// WithOutput directs System.out to w.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) { vm.out = w }
}

// WithStepLimit stops execution with a runtime error after n instructions.
// Zero means no limit.
func WithStepLimit(n int) Option {
	return func(vm *VM) { vm.maxSteps = n }
}

// WithMaxDepth sets the activation depth at which execution fails.
func WithMaxDepth(n int) Option {
	return func(vm *VM) { vm.maxDepth = n }
}

// New links prog against the runtime library described by reg.
func New(prog *Program, reg *types.Registry, opts ...Option) (*VM, error) {
	vm := &VM{
		classes:  make(map[string]*Class),
		out:      os.Stdout,
		strings:  make(map[string]*String),
		argWords: make(map[string]int),
		hashes:   make(map[Object]int32),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(vm)
	}
	if err := vm.link(prog, reg); err != nil {
		return nil, err
	}
	return vm, nil
}

// Class returns the linked class with the given internal name.
func (vm *VM) Class(name string) *Class {
	return vm.classes[name]
}

// Steps returns the number of instructions executed so far.
func (vm *VM) Steps() int { return vm.steps }

// Run invokes the static main method of class, passing an empty argument
// array when main takes one. An uncaught exception is returned as an
// *errors.RuntimeError.
func (vm *VM) Run(class string) error {
	c := vm.classes[class]
	if c == nil {
		return &errors.RuntimeError{Msg: fmt.Sprintf("class %s not found", class)}
	}
	if m := c.methods["main([Ljava/lang/String;)V"]; m != nil && m.IsStatic() {
		_, err := vm.Invoke(class, "main", "([Ljava/lang/String;)V", Ref(&Array{Type: "[Ljava/lang/String;"}))
		return err
	}
	_, err := vm.Invoke(class, "main", "()V")
	return err
}

// Invoke calls a static method with the given arguments, one Value per
// parameter.
func (vm *VM) Invoke(class, name, desc string, args ...Value) (Value, error) {
	c := vm.classes[class]
	if c == nil {
		return Value{}, &errors.RuntimeError{Msg: fmt.Sprintf("class %s not found", class)}
	}
	m := c.lookupMethod(name, desc)
	if m == nil || !m.IsStatic() {
		return Value{}, &errors.RuntimeError{Msg: fmt.Sprintf("no static method %s.%s%s", class, name, desc)}
	}
	if err := vm.initialize(c); err != nil {
		return Value{}, vm.uncaught(err)
	}
	res, err := vm.execute(m, expand(args))
	return res, vm.uncaught(err)
}

// uncaught converts an exception that escaped the outermost frame into a
// runtime error.
func (vm *VM) uncaught(err error) error {
	if t, ok := err.(*Throw); ok {
		return &errors.RuntimeError{
			Position: errors.Position{Line: t.Line},
			Msg:      "Exception in thread \"main\" " + t.Error(),
			Cause:    t,
		}
	}
	return err
}

func (vm *VM) fault(line int, format string, args ...interface{}) error {
	return &errors.RuntimeError{Position: errors.Position{Line: line}, Msg: fmt.Sprintf(format, args...)}
}

// expand turns one Value per argument into stack words.
func expand(args []Value) []Value {
	words := make([]Value, 0, len(args)*2)
	for _, a := range args {
		words = append(words, a)
		if a.kind == DoubleValue {
			words = append(words, top)
		}
	}
	return words
}

// compact drops the second words of doubles.
func compact(words []Value) []Value {
	out := make([]Value, 0, len(words))
	for _, w := range words {
		if w.kind != TopValue {
			out = append(out, w)
		}
	}
	return out
}

// --- Frames ---

type frame struct {
	method *Method
	locals []Value
	stack  []Value
}

func (f *frame) push(v Value) {
	f.stack = append(f.stack, v)
	if v.kind == DoubleValue {
		f.stack = append(f.stack, top)
	}
}

func (f *frame) pop() Value {
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}

func (f *frame) popInt() int32 { return f.pop().i }

func (f *frame) popDouble() float64 {
	f.pop()
	return f.pop().d
}

// popN removes the top n words and returns them in push order.
func (f *frame) popN(n int) []Value {
	words := make([]Value, n)
	copy(words, f.stack[len(f.stack)-n:])
	f.stack = f.stack[:len(f.stack)-n]
	return words
}

func (f *frame) peek(depth int) Value {
	return f.stack[len(f.stack)-1-depth]
}

func (vm *VM) descArgWords(desc string) int {
	if n, ok := vm.argWords[desc]; ok {
		return n
	}
	n, _, _ := methodWords(desc)
	vm.argWords[desc] = n
	return n
}

// execute runs m with the given argument words and returns its result.
// The error is a *Throw for an exception leaving m, or a runtime error.
func (vm *VM) execute(m *Method, args []Value) (Value, error) {
	if m.native != nil {
		return m.native(vm, compact(args))
	}
	if m.Code == nil {
		return Value{}, vm.fault(0, "AbstractMethodError: %s.%s%s", m.Class.Name, m.Name, m.Descriptor)
	}
	vm.depth++
	defer func() { vm.depth-- }()
	if vm.depth > vm.maxDepth {
		return Value{}, vm.fault(0, "stack overflow in %s.%s", m.Class.Name, m.Name)
	}

	f := &frame{
		method: m,
		locals: make([]Value, m.MaxLocals),
		stack:  make([]Value, 0, m.MaxStack),
	}
	copy(f.locals, args)

	pc := 0
	for {
		if vm.maxSteps > 0 {
			vm.steps++
			if vm.steps > vm.maxSteps {
				return Value{}, vm.fault(m.Code[pc].Line, "step limit of %d instructions exceeded", vm.maxSteps)
			}
		}
		in := &m.Code[pc]
		next, result, done, err := vm.step(f, in, pc)
		if err != nil {
			t, ok := err.(*Throw)
			if !ok {
				if re, isRuntime := err.(*errors.RuntimeError); isRuntime && re.Line == 0 {
					re.Line = in.Line
				}
				return Value{}, err
			}
			if t.Line == 0 {
				t.Line = in.Line
			}
			h := vm.findHandler(m, pc, t.Exception)
			if h == nil {
				return Value{}, t
			}
			f.stack = f.stack[:0]
			f.push(Ref(t.Exception))
			pc = h.Handler
			continue
		}
		if done {
			return result, nil
		}
		pc = next
	}
}

// step executes one instruction. It returns the next pc, or done with the
// method's result.
func (vm *VM) step(f *frame, in *Instruction, pc int) (next int, result Value, done bool, err error) {
	next = pc + 1
	switch in.Op {
	case OpNop:
	case OpAconstNull:
		f.push(Null())
	case OpIconstM1, OpIconst0, OpIconst1, OpIconst2, OpIconst3, OpIconst4, OpIconst5:
		f.push(Int(int32(in.Op) - int32(OpIconst0)))
	case OpDconst0:
		f.push(Double(0))
	case OpDconst1:
		f.push(Double(1))
	case OpBipush, OpSipush:
		f.push(Int(int32(in.Arg)))
	case OpLdc, OpLdc2W:
		f.push(in.Const)

	case OpIload, OpAload:
		f.push(f.locals[in.Arg])
	case OpDload:
		f.push(f.locals[in.Arg])
	case OpIstore, OpAstore:
		f.locals[in.Arg] = f.pop()
	case OpDstore:
		f.locals[in.Arg+1] = f.pop()
		f.locals[in.Arg] = f.pop()
	case OpIinc:
		f.locals[in.Arg] = Int(f.locals[in.Arg].i + int32(in.Inc))

	case OpIaload, OpDaload, OpAaload, OpBaload, OpCaload:
		i := f.popInt()
		arr, err := vm.arrayRef(f.pop(), i)
		if err != nil {
			return next, Value{}, false, err
		}
		f.push(arr.Elems[i])
	case OpIastore, OpDastore, OpAastore, OpBastore, OpCastore:
		v := f.pop()
		if in.Op == OpDastore {
			v = f.pop()
		}
		i := f.popInt()
		arr, err := vm.arrayRef(f.pop(), i)
		if err != nil {
			return next, Value{}, false, err
		}
		switch in.Op {
		case OpCastore:
			v = Int(int32(uint16(v.i)))
		case OpBastore:
			v = Int(int32(int8(v.i)))
		}
		arr.Elems[i] = v

	case OpPop:
		f.pop()
	case OpPop2:
		f.pop()
		f.pop()
	case OpDup:
		f.stack = append(f.stack, f.peek(0))
	case OpDupX1:
		v1, v2 := f.pop(), f.pop()
		f.stack = append(f.stack, v1, v2, v1)
	case OpDupX2:
		v1, v2, v3 := f.pop(), f.pop(), f.pop()
		f.stack = append(f.stack, v1, v3, v2, v1)
	case OpDup2:
		v1, v2 := f.peek(0), f.peek(1)
		f.stack = append(f.stack, v2, v1)
	case OpDup2X1:
		v1, v2, v3 := f.pop(), f.pop(), f.pop()
		f.stack = append(f.stack, v2, v1, v3, v2, v1)
	case OpDup2X2:
		v1, v2, v3, v4 := f.pop(), f.pop(), f.pop(), f.pop()
		f.stack = append(f.stack, v2, v1, v4, v3, v2, v1)
	case OpSwap:
		v1, v2 := f.pop(), f.pop()
		f.stack = append(f.stack, v1, v2)

	case OpIadd, OpIsub, OpImul, OpIdiv, OpIrem, OpIshl, OpIshr, OpIushr, OpIand, OpIor, OpIxor:
		b, a := f.popInt(), f.popInt()
		r, err := vm.intOp(in.Op, a, b)
		if err != nil {
			return next, Value{}, false, err
		}
		f.push(Int(r))
	case OpDadd, OpDsub, OpDmul, OpDdiv, OpDrem:
		b, a := f.popDouble(), f.popDouble()
		f.push(Double(doubleOp(in.Op, a, b)))
	case OpIneg:
		f.push(Int(-f.popInt()))
	case OpDneg:
		f.push(Double(-f.popDouble()))

	case OpI2d:
		f.push(Double(float64(f.popInt())))
	case OpD2i:
		f.push(Int(d2i(f.popDouble())))
	case OpI2c:
		f.push(Int(int32(uint16(f.popInt()))))
	case OpDcmpl, OpDcmpg:
		b, a := f.popDouble(), f.popDouble()
		f.push(Int(dcmp(a, b, in.Op == OpDcmpg)))

	case OpIfeq, OpIfne, OpIflt, OpIfge, OpIfgt, OpIfle:
		if compareZero(in.Op, f.popInt()) {
			next = in.Arg
		}
	case OpIfIcmpeq, OpIfIcmpne, OpIfIcmplt, OpIfIcmpge, OpIfIcmpgt, OpIfIcmple:
		b, a := f.popInt(), f.popInt()
		if compareZero(in.Op-(OpIfIcmpeq-OpIfeq), sign(a, b)) {
			next = in.Arg
		}
	case OpIfAcmpeq, OpIfAcmpne:
		b, a := f.pop(), f.pop()
		if (a.ref == b.ref) == (in.Op == OpIfAcmpeq) {
			next = in.Arg
		}
	case OpIfnull, OpIfnonnull:
		if f.pop().IsNull() == (in.Op == OpIfnull) {
			next = in.Arg
		}
	case OpGoto:
		next = in.Arg

	case OpIreturn, OpAreturn:
		return next, f.pop(), true, nil
	case OpDreturn:
		return next, Double(f.popDouble()), true, nil
	case OpReturn:
		return next, Value{}, true, nil

	case OpGetstatic, OpPutstatic:
		c, err := vm.staticOwner(in)
		if err != nil {
			return next, Value{}, false, err
		}
		if in.Op == OpGetstatic {
			f.push(c.statics[in.Name])
		} else {
			v := f.pop()
			if v.kind == TopValue {
				v = f.pop()
			}
			c.statics[in.Name] = v
		}
	case OpGetfield:
		obj, err := vm.instanceRef(f.pop(), "read field "+in.Name)
		if err != nil {
			return next, Value{}, false, err
		}
		f.push(obj.Fields[fieldKey(in.Owner, in.Name)])
	case OpPutfield:
		v := f.pop()
		if v.kind == TopValue {
			v = f.pop()
		}
		obj, err := vm.instanceRef(f.pop(), "assign field "+in.Name)
		if err != nil {
			return next, Value{}, false, err
		}
		obj.Fields[fieldKey(in.Owner, in.Name)] = v

	case OpInvokevirtual, OpInvokespecial, OpInvokestatic, OpInvokeinterface:
		if err := vm.invoke(f, in); err != nil {
			return next, Value{}, false, err
		}

	case OpNew:
		c, err := vm.loadClass(in.Owner)
		if err != nil {
			return next, Value{}, false, err
		}
		if c.Modifiers.Has(types.Abstract) {
			return next, Value{}, false, vm.fault(in.Line, "InstantiationError: %s", c.Name)
		}
		if err := vm.initialize(c); err != nil {
			return next, Value{}, false, err
		}
		f.push(Ref(vm.newInstance(c)))
	case OpNewarray, OpAnewarray:
		n := f.popInt()
		desc := "[" + newarrayElem(in)
		arr, err := vm.newArray(desc, []int32{n})
		if err != nil {
			return next, Value{}, false, err
		}
		f.push(Ref(arr))
	case OpMultianewarray:
		counts := make([]int32, in.Arg)
		for i := in.Arg - 1; i >= 0; i-- {
			counts[i] = f.popInt()
		}
		arr, err := vm.newArray(in.Owner, counts)
		if err != nil {
			return next, Value{}, false, err
		}
		f.push(Ref(arr))
	case OpArraylength:
		v := f.pop()
		arr, ok := v.ref.(*Array)
		if !ok {
			return next, Value{}, false, vm.nullPointer("read the array length")
		}
		f.push(Int(int32(len(arr.Elems))))
	case OpAthrow:
		v := f.pop()
		exc, ok := v.ref.(*Instance)
		if !ok {
			return next, Value{}, false, vm.nullPointer("throw a null exception")
		}
		return next, Value{}, false, &Throw{Exception: exc}
	case OpCheckcast:
		v := f.peek(0)
		if !v.IsNull() && !vm.isInstance(v.ref, in.Owner) {
			return next, Value{}, false, vm.throwNew("java/lang/ClassCastException",
				"class %s cannot be cast to class %s", vm.typeName(v.ref), dotted(in.Owner))
		}
	case OpInstanceof:
		v := f.pop()
		f.push(Bool(!v.IsNull() && vm.isInstance(v.ref, in.Owner)))

	default:
		return next, Value{}, false, vm.fault(in.Line, "unknown opcode %s", in.Op)
	}
	return next, Value{}, false, nil
}

func (vm *VM) intOp(op OpCode, a, b int32) (int32, error) {
	switch op {
	case OpIadd:
		return a + b, nil
	case OpIsub:
		return a - b, nil
	case OpImul:
		return a * b, nil
	case OpIdiv, OpIrem:
		if b == 0 {
			return 0, vm.throwNew("java/lang/ArithmeticException", "/ by zero")
		}
		if op == OpIdiv {
			return a / b, nil
		}
		return a % b, nil
	case OpIshl:
		return a << (uint32(b) & 31), nil
	case OpIshr:
		return a >> (uint32(b) & 31), nil
	case OpIushr:
		return int32(uint32(a) >> (uint32(b) & 31)), nil
	case OpIand:
		return a & b, nil
	case OpIor:
		return a | b, nil
	case OpIxor:
		return a ^ b, nil
	}
	return 0, fmt.Errorf("not an int operator: %s", op)
}

func doubleOp(op OpCode, a, b float64) float64 {
	switch op {
	case OpDadd:
		return a + b
	case OpDsub:
		return a - b
	case OpDmul:
		return a * b
	case OpDdiv:
		return a / b
	}
	return math.Mod(a, b)
}

// dcmp implements dcmpl (nanGreater false) and dcmpg (nanGreater true).
func dcmp(a, b float64, nanGreater bool) int32 {
	switch {
	case math.IsNaN(a) || math.IsNaN(b):
		if nanGreater {
			return 1
		}
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func d2i(d float64) int32 {
	switch {
	case math.IsNaN(d):
		return 0
	case d >= math.MaxInt32:
		return math.MaxInt32
	case d <= math.MinInt32:
		return math.MinInt32
	}
	return int32(d)
}

func sign(a, b int32) int32 {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// compareZero evaluates one of the if<cond> tests against v.
func compareZero(op OpCode, v int32) bool {
	switch op {
	case OpIfeq:
		return v == 0
	case OpIfne:
		return v != 0
	case OpIflt:
		return v < 0
	case OpIfge:
		return v >= 0
	case OpIfgt:
		return v > 0
	case OpIfle:
		return v <= 0
	}
	return false
}

func newarrayElem(in *Instruction) string {
	if in.Op == OpAnewarray {
		return classDescriptor(in.Owner)
	}
	switch in.Arg {
	case TBoolean:
		return "Z"
	case TChar:
		return "C"
	case TDouble:
		return "D"
	}
	return "I"
}

// newArray allocates an array of type desc whose first len(counts)
// dimensions have the given lengths.
func (vm *VM) newArray(desc string, counts []int32) (*Array, error) {
	n := counts[0]
	if n < 0 {
		return nil, vm.throwNew("java/lang/NegativeArraySizeException", "%d", n)
	}
	arr := &Array{Type: desc, Elems: make([]Value, n)}
	elem := desc[1:]
	for i := range arr.Elems {
		if len(counts) > 1 {
			inner, err := vm.newArray(elem, counts[1:])
			if err != nil {
				return nil, err
			}
			arr.Elems[i] = Ref(inner)
			continue
		}
		arr.Elems[i] = zeroValue(elem)
	}
	return arr, nil
}

func (vm *VM) arrayRef(v Value, i int32) (*Array, error) {
	arr, ok := v.ref.(*Array)
	if !ok {
		return nil, vm.nullPointer("access an array element")
	}
	if i < 0 || int(i) >= len(arr.Elems) {
		return nil, vm.throwNew("java/lang/ArrayIndexOutOfBoundsException",
			"Index %d out of bounds for length %d", i, len(arr.Elems))
	}
	return arr, nil
}

func (vm *VM) instanceRef(v Value, action string) (*Instance, error) {
	obj, ok := v.ref.(*Instance)
	if !ok {
		return nil, vm.nullPointer(action)
	}
	return obj, nil
}

func (vm *VM) nullPointer(action string) error {
	return vm.throwNew("java/lang/NullPointerException", "Cannot %s because the value is null", action)
}

// --- Invocation ---

func (vm *VM) invoke(f *frame, in *Instruction) error {
	var m *Method
	switch in.Op {
	case OpInvokestatic:
		c, err := vm.loadClass(in.Owner)
		if err != nil {
			return err
		}
		if m = c.lookupMethod(in.Name, in.Desc); m == nil || !m.IsStatic() {
			return vm.fault(in.Line, "NoSuchMethodError: static %s.%s%s", in.Owner, in.Name, in.Desc)
		}
		if err := vm.initialize(m.Class); err != nil {
			return err
		}
	case OpInvokespecial:
		c, err := vm.loadClass(in.Owner)
		if err != nil {
			return err
		}
		if in.Name == "<init>" {
			m = c.methods[in.Name+in.Desc]
		} else {
			m = c.lookupMethod(in.Name, in.Desc)
		}
		if m == nil {
			return vm.fault(in.Line, "NoSuchMethodError: %s.%s%s", in.Owner, in.Name, in.Desc)
		}
		if f.peek(m.argWords).IsNull() {
			return vm.nullPointer("invoke " + in.Name)
		}
	default:
		recv := f.peek(vm.descArgWords(in.Desc))
		if recv.IsNull() {
			return vm.nullPointer(fmt.Sprintf("invoke \"%s.%s()\"", dotted(in.Owner), in.Name))
		}
		if m = vm.classOf(recv.ref).lookupMethod(in.Name, in.Desc); m == nil || m.Code == nil && m.native == nil {
			return vm.fault(in.Line, "AbstractMethodError: %s.%s%s", vm.typeName(recv.ref), in.Name, in.Desc)
		}
	}

	n := m.argWords
	if !m.IsStatic() {
		n++
	}
	res, err := vm.execute(m, f.popN(n))
	if err != nil {
		return err
	}
	switch m.retWords {
	case 1:
		f.stack = append(f.stack, res)
	case 2:
		f.push(res)
	}
	return nil
}

// CallMethod invokes an instance method on recv with virtual dispatch.
// Natives use it to call back into J-- code.
func (vm *VM) CallMethod(recv Object, name, desc string, args ...Value) (Value, error) {
	m := vm.classOf(recv).lookupMethod(name, desc)
	if m == nil {
		return Value{}, vm.fault(0, "NoSuchMethodError: %s.%s%s", vm.typeName(recv), name, desc)
	}
	return vm.execute(m, append([]Value{Ref(recv)}, expand(args)...))
}
