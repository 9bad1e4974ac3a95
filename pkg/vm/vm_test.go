package vm

import (
	"bytes"
	stderrors "errors"
	"math"
	"strings"
	"testing"

	"jmm/pkg/errors"
	"jmm/pkg/types"
)

const static = types.Public | types.Static

func assemble(t *testing.T, build func(a *Assembler)) *Program {
	t.Helper()
	a := NewAssembler()
	a.AddClass(types.Public, "T", "java/lang/Object", nil, false)
	build(a)
	prog, err := a.Finish()
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return prog
}

func newVM(t *testing.T, prog *Program, out *bytes.Buffer) *VM {
	t.Helper()
	machine, err := New(prog, types.NewRegistry(), WithOutput(out), WithStepLimit(100000))
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	return machine
}

// sumTo emits: static int sum(int n) { int s = 0; for (i = 1; i <= n; i++) s += i; return s; }
func sumTo(a *Assembler) {
	a.AddMethod(static, "sum", "(I)I", nil, false)
	loop, exit := a.CreateLabel(), a.CreateLabel()
	a.AddNoArgInstruction(OpIconst0)
	a.AddOneArgInstruction(OpIstore, 1)
	a.AddNoArgInstruction(OpIconst1)
	a.AddOneArgInstruction(OpIstore, 2)
	a.AddLabel(loop)
	a.AddOneArgInstruction(OpIload, 2)
	a.AddOneArgInstruction(OpIload, 0)
	a.AddBranchInstruction(OpIfIcmpgt, exit)
	a.AddOneArgInstruction(OpIload, 1)
	a.AddOneArgInstruction(OpIload, 2)
	a.AddNoArgInstruction(OpIadd)
	a.AddOneArgInstruction(OpIstore, 1)
	a.AddIINCInstruction(2, 1)
	a.AddBranchInstruction(OpGoto, loop)
	a.AddLabel(exit)
	a.AddOneArgInstruction(OpIload, 1)
	a.AddNoArgInstruction(OpIreturn)
}

func TestAssemblerResolvesLabels(t *testing.T) {
	prog := assemble(t, sumTo)
	m := prog.Class("T").Method("sum", "(I)I")
	if m.MaxLocals != 3 || m.MaxStack != 2 {
		t.Errorf("locals=%d stack=%d, want 3 and 2", m.MaxLocals, m.MaxStack)
	}
	if len(m.Code) != 15 {
		t.Fatalf("assembled %d instructions, want 15", len(m.Code))
	}
	if got := m.Code[6]; got.Op != OpIfIcmpgt || got.Arg != 13 {
		t.Errorf("forward branch = %v %d, want if_icmpgt 13", got.Op, got.Arg)
	}
	if got := m.Code[12]; got.Op != OpGoto || got.Arg != 4 {
		t.Errorf("backward branch = %v %d, want goto 4", got.Op, got.Arg)
	}

	var out bytes.Buffer
	res, err := newVM(t, prog, &out).Invoke("T", "sum", "(I)I", Int(10))
	if err != nil {
		t.Fatal(err)
	}
	if res.AsInt() != 55 {
		t.Errorf("sum(10) = %d, want 55", res.AsInt())
	}
}

func TestAssemblerRejectsBadCode(t *testing.T) {
	tests := []struct {
		name  string
		build func(a *Assembler)
		want  string
	}{
		{"inconsistent depth", func(a *Assembler) {
			a.AddMethod(static, "f", "(I)V", nil, false)
			join := a.CreateLabel()
			a.AddOneArgInstruction(OpIload, 0)
			a.AddBranchInstruction(OpIfeq, join)
			a.AddNoArgInstruction(OpIconst1)
			a.AddLabel(join)
			a.AddNoArgInstruction(OpReturn)
		}, "disagrees"},
		{"underflow", func(a *Assembler) {
			a.AddMethod(static, "f", "()V", nil, false)
			a.AddNoArgInstruction(OpPop)
			a.AddNoArgInstruction(OpReturn)
		}, "underflow"},
		{"falls off the end", func(a *Assembler) {
			a.AddMethod(static, "f", "()V", nil, false)
			a.AddNoArgInstruction(OpNop)
		}, "falls off"},
		{"unplaced label", func(a *Assembler) {
			a.AddMethod(static, "f", "()V", nil, false)
			a.AddBranchInstruction(OpGoto, a.CreateLabel())
		}, "unplaced"},
		{"wrong operands", func(a *Assembler) {
			a.AddMethod(static, "f", "()V", nil, false)
			a.AddNoArgInstruction(OpIload)
		}, "wrong operands"},
	}
	for _, tt := range tests {
		a := NewAssembler()
		a.AddClass(types.Public, "T", "java/lang/Object", nil, false)
		tt.build(a)
		_, err := a.Finish()
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: err = %v, want it to mention %q", tt.name, err, tt.want)
		}
	}
}

func TestEmptyProtectedRegionIsDropped(t *testing.T) {
	prog := assemble(t, func(a *Assembler) {
		a.AddMethod(static, "f", "()V", nil, false)
		start, end, handler := a.CreateLabel(), a.CreateLabel(), a.CreateLabel()
		a.AddLabel(start)
		a.AddLabel(end)
		a.AddNoArgInstruction(OpReturn)
		a.AddLabel(handler)
		a.AddNoArgInstruction(OpAthrow)
		a.AddExceptionHandler(start, end, handler, "")
	})
	if n := len(prog.Class("T").Method("f", "()V").Handlers); n != 0 {
		t.Errorf("got %d handler rows, want 0", n)
	}
}

func TestDoubleCompareNaN(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		a, b       float64
		cmpl, cmpg int32
	}{
		{1, 2, -1, -1},
		{2, 1, 1, 1},
		{1, 1, 0, 0},
		{nan, 1, -1, 1},
		{1, nan, -1, 1},
	}
	for _, tt := range tests {
		if got := dcmp(tt.a, tt.b, false); got != tt.cmpl {
			t.Errorf("dcmpl(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.cmpl)
		}
		if got := dcmp(tt.a, tt.b, true); got != tt.cmpg {
			t.Errorf("dcmpg(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.cmpg)
		}
	}
}

// thrower emits static int f(int k): throws ArithmeticException from a
// nested call when k == 0 and returns which handler ran.
func thrower(a *Assembler) {
	a.AddMethod(static, "div", "(I)I", nil, false)
	a.MarkLine(3)
	a.AddNoArgInstruction(OpIconst1)
	a.AddOneArgInstruction(OpIload, 0)
	a.AddNoArgInstruction(OpIdiv)
	a.AddNoArgInstruction(OpIreturn)

	a.AddMethod(static, "f", "(I)I", nil, false)
	start, end, arith, any := a.CreateLabel(), a.CreateLabel(), a.CreateLabel(), a.CreateLabel()
	a.AddLabel(start)
	a.AddOneArgInstruction(OpIload, 0)
	a.AddMemberAccessInstruction(OpInvokestatic, "T", "div", "(I)I")
	a.AddLabel(end)
	a.AddNoArgInstruction(OpIreturn)
	a.AddLabel(arith)
	a.AddNoArgInstruction(OpPop)
	a.AddOneArgInstruction(OpBipush, 10)
	a.AddNoArgInstruction(OpIreturn)
	a.AddLabel(any)
	a.AddNoArgInstruction(OpPop)
	a.AddOneArgInstruction(OpBipush, 20)
	a.AddNoArgInstruction(OpIreturn)
	a.AddExceptionHandler(start, end, arith, "java/lang/ArithmeticException")
	a.AddExceptionHandler(start, end, any, "")
}

func TestExceptionTableFirstMatchWins(t *testing.T) {
	var out bytes.Buffer
	machine := newVM(t, assemble(t, thrower), &out)
	tests := []struct {
		k, want int32
	}{
		{1, 1},
		{0, 10},
	}
	for _, tt := range tests {
		res, err := machine.Invoke("T", "f", "(I)I", Int(tt.k))
		if err != nil {
			t.Fatalf("f(%d): %v", tt.k, err)
		}
		if res.AsInt() != tt.want {
			t.Errorf("f(%d) = %d, want %d", tt.k, res.AsInt(), tt.want)
		}
	}
}

func TestUncaughtExceptionReportsLine(t *testing.T) {
	var out bytes.Buffer
	_, err := newVM(t, assemble(t, thrower), &out).Invoke("T", "div", "(I)I", Int(0))
	var re *errors.RuntimeError
	if !stderrors.As(err, &re) {
		t.Fatalf("err = %v, want a runtime error", err)
	}
	if re.Line != 3 || !strings.Contains(re.Msg, "java.lang.ArithmeticException: / by zero") {
		t.Errorf("got line %d %q", re.Line, re.Msg)
	}
}

func TestDoublesTakeTwoWords(t *testing.T) {
	prog := assemble(t, func(a *Assembler) {
		// static double f(double x, int n) { double y = x * n; return y + y; }
		a.AddMethod(static, "f", "(DI)D", nil, false)
		a.AddOneArgInstruction(OpDload, 0)
		a.AddOneArgInstruction(OpIload, 2)
		a.AddNoArgInstruction(OpI2d)
		a.AddNoArgInstruction(OpDmul)
		a.AddOneArgInstruction(OpDstore, 3)
		a.AddOneArgInstruction(OpDload, 3)
		a.AddNoArgInstruction(OpDup2)
		a.AddNoArgInstruction(OpDadd)
		a.AddNoArgInstruction(OpDreturn)
	})
	m := prog.Class("T").Method("f", "(DI)D")
	if m.MaxLocals != 5 || m.MaxStack != 4 {
		t.Errorf("locals=%d stack=%d, want 5 and 4", m.MaxLocals, m.MaxStack)
	}
	var out bytes.Buffer
	res, err := newVM(t, prog, &out).Invoke("T", "f", "(DI)D", Double(1.5), Int(3))
	if err != nil {
		t.Fatal(err)
	}
	if res.AsDouble() != 9 {
		t.Errorf("f(1.5, 3) = %v, want 9", res.AsDouble())
	}
}

func TestLibraryNatives(t *testing.T) {
	reg := types.NewRegistry()
	for _, ct := range reg.Classes() {
		c := libraryClass(ct)
		for _, m := range c.Methods {
			if m.native == nil && !m.Modifiers.Has(types.Abstract) {
				t.Errorf("no native for %s.%s%s", c.Name, m.Name, m.Descriptor)
			}
		}
	}
}

func TestPrintAndStringBuilder(t *testing.T) {
	prog := assemble(t, func(a *Assembler) {
		a.AddMethod(static, "main", "()V", nil, false)
		a.AddMemberAccessInstruction(OpGetstatic, "java/lang/System", "out", "Ljava/io/PrintStream;")
		a.AddReferenceInstruction(OpNew, "java/lang/StringBuilder")
		a.AddNoArgInstruction(OpDup)
		a.AddMemberAccessInstruction(OpInvokespecial, "java/lang/StringBuilder", "<init>", "()V")
		a.AddLDCInstruction("x=")
		a.AddMemberAccessInstruction(OpInvokevirtual, "java/lang/StringBuilder", "append", "(Ljava/lang/String;)Ljava/lang/StringBuilder;")
		a.AddLDCInstruction(0.5)
		a.AddMemberAccessInstruction(OpInvokevirtual, "java/lang/StringBuilder", "append", "(D)Ljava/lang/StringBuilder;")
		a.AddOneArgInstruction(OpBipush, 'c')
		a.AddMemberAccessInstruction(OpInvokevirtual, "java/lang/StringBuilder", "append", "(C)Ljava/lang/StringBuilder;")
		a.AddNoArgInstruction(OpAconstNull)
		a.AddMemberAccessInstruction(OpInvokevirtual, "java/lang/StringBuilder", "append", "(Ljava/lang/Object;)Ljava/lang/StringBuilder;")
		a.AddMemberAccessInstruction(OpInvokevirtual, "java/lang/StringBuilder", "toString", "()Ljava/lang/String;")
		a.AddMemberAccessInstruction(OpInvokevirtual, "java/io/PrintStream", "println", "(Ljava/lang/String;)V")
		a.AddNoArgInstruction(OpReturn)
	})
	var out bytes.Buffer
	if err := newVM(t, prog, &out).Run("T"); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "x=0.5cnull\n" {
		t.Errorf("output %q", got)
	}
}

func TestStepLimit(t *testing.T) {
	prog := assemble(t, func(a *Assembler) {
		a.AddMethod(static, "main", "()V", nil, false)
		loop := a.CreateLabel()
		a.AddLabel(loop)
		a.AddBranchInstruction(OpGoto, loop)
	})
	var out bytes.Buffer
	err := newVM(t, prog, &out).Run("T")
	if err == nil || !strings.Contains(err.Error(), "step limit") {
		t.Errorf("err = %v, want step limit", err)
	}
}

func TestStaticInitializerRunsOnce(t *testing.T) {
	prog := assemble(t, func(a *Assembler) {
		a.AddField(types.Static, "n", "I")
		a.AddMethod(types.Static, "<clinit>", "()V", nil, true)
		a.AddMemberAccessInstruction(OpGetstatic, "T", "n", "I")
		a.AddNoArgInstruction(OpIconst1)
		a.AddNoArgInstruction(OpIadd)
		a.AddMemberAccessInstruction(OpPutstatic, "T", "n", "I")
		a.AddNoArgInstruction(OpReturn)

		a.AddMethod(static, "get", "()I", nil, false)
		a.AddMemberAccessInstruction(OpGetstatic, "T", "n", "I")
		a.AddNoArgInstruction(OpIreturn)
	})
	var out bytes.Buffer
	machine := newVM(t, prog, &out)
	for i := 0; i < 2; i++ {
		res, err := machine.Invoke("T", "get", "()I")
		if err != nil {
			t.Fatal(err)
		}
		if res.AsInt() != 1 {
			t.Errorf("call %d: n = %d, want 1", i, res.AsInt())
		}
	}
}

func TestFormatDouble(t *testing.T) {
	tests := []struct {
		d    float64
		want string
	}{
		{1, "1.0"},
		{0.1, "0.1"},
		{-2.5, "-2.5"},
		{1e7, "1.0E7"},
		{1.5e-4, "1.5E-4"},
		{123456.789, "123456.789"},
		{math.NaN(), "NaN"},
		{math.Inf(-1), "-Infinity"},
		{0, "0.0"},
	}
	for _, tt := range tests {
		if got := FormatDouble(tt.d); got != tt.want {
			t.Errorf("FormatDouble(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestDisassembleListsExceptionTable(t *testing.T) {
	var buf bytes.Buffer
	assemble(t, thrower).Disassemble(&buf)
	listing := buf.String()
	for _, want := range []string{
		"invokestatic T.div:(I)I",
		"java/lang/ArithmeticException",
		"any",
		"// line 3",
	} {
		if !strings.Contains(listing, want) {
			t.Errorf("listing missing %q:\n%s", want, listing)
		}
	}
}
