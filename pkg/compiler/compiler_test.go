package compiler

import (
	"bytes"
	stderrors "errors"
	"math"
	"strings"
	"testing"

	"jmm/pkg/checker"
	"jmm/pkg/errors"
	"jmm/pkg/parser"
	"jmm/pkg/source"
	"jmm/pkg/types"
	"jmm/pkg/vm"
)

// build parses, checks and compiles src. When strict is set any
// diagnostic fails the test.
func build(t *testing.T, src string, strict bool) (*vm.Program, *types.Registry, *errors.Collector) {
	t.Helper()
	cu, perrs := parser.ParseSource(source.NewEvalSource(src))
	if len(perrs) > 0 {
		t.Fatalf("parse errors: %v", perrs)
	}
	reg := types.NewRegistry()
	errs := errors.NewCollector()
	checker.New(reg, errs).Check(cu)
	if strict && errs.HasErrors() {
		for _, e := range errs.Errors() {
			t.Errorf("unexpected error: %s", e.Error())
		}
		t.FailNow()
	}
	asm := vm.NewAssembler()
	New(asm, reg).Compile(cu)
	prog, err := asm.Finish()
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return prog, reg, errs
}

func compile(t *testing.T, src string) (*vm.Program, *types.Registry) {
	t.Helper()
	prog, reg, _ := build(t, src, true)
	return prog, reg
}

// run compiles src and runs Main.main, returning what it printed.
func run(t *testing.T, src string) (string, error) {
	t.Helper()
	prog, reg := compile(t, src)
	var out bytes.Buffer
	machine, err := vm.New(prog, reg, vm.WithOutput(&out), vm.WithStepLimit(1000000))
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	err = machine.Run("Main")
	return out.String(), err
}

func method(t *testing.T, prog *vm.Program, class, name string) *vm.Method {
	t.Helper()
	c := prog.Class(class)
	if c == nil {
		t.Fatalf("no class %s", class)
	}
	for _, m := range c.Methods {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("no method %s.%s", class, name)
	return nil
}

func mnemonics(m *vm.Method) string {
	names := make([]string, len(m.Code))
	for i, in := range m.Code {
		names[i] = in.Op.String()
	}
	return strings.Join(names, " ")
}

func TestExpressionCode(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"arithmetic", "static int f(int a, int b) { return a + b * 2; }",
			"iload iload iconst_2 imul iadd ireturn"},
		{"int widened to double", "static double f(int a) { return a; }",
			"iload i2d dreturn"},
		{"char widened to int", "static int f(char c) { return c + 1; }",
			"iload iconst_1 iadd ireturn"},
		{"increments use iinc", "static void f() { int i = 0; i++; i += 5; i -= 2; }",
			"iconst_0 istore iinc iinc iinc return"},
		{"char increment narrows", "static char f(char c) { c++; return c; }",
			"iload iconst_1 iadd i2c istore iload ireturn"},
		{"postfix value", "static int f(int i) { return i++; }",
			"iload iinc ireturn"},
		{"array element compound", "static void f(int[] a) { a[0] *= 3; }",
			"aload iconst_0 dup2 iaload iconst_3 imul iastore return"},
		{"chained assignment", "static void f() { int a; int b; a = b = 7; }",
			"bipush dup istore istore return"},
		{"concat", "static String f(int a) { return \"a\" + a; }",
			"new dup invokespecial ldc invokevirtual iload invokevirtual invokevirtual areturn"},
		{"string append", "static String f(String s, double d) { s += d; return s; }",
			"aload new dup invokespecial swap invokevirtual dload invokevirtual invokevirtual astore aload areturn"},
		{"short circuit", "static boolean f(int a, int b) { return a > 0 && b > 0; }",
			"iload ifle iload ifle iconst_1 goto iconst_0 ireturn"},
		{"conditional", "static int f(boolean b) { return b ? 1 : 2; }",
			"iload ifeq iconst_1 goto iconst_2 ireturn"},
		{"downcast", "static String f(Object o) { return (String) o; }",
			"aload checkcast areturn"},
		{"double to char", "static char f(double d) { return (char) d; }",
			"dload d2i i2c ireturn"},
		{"null test", "static boolean f(Object o) { return o != null; }",
			"aload ifnull iconst_1 goto iconst_0 ireturn"},
		{"new array", "static int[][] f() { return new int[2][3]; }",
			"iconst_2 iconst_3 multianewarray areturn"},
		{"array literal", "static char[] f() { return new char[] {'a'}; }",
			"iconst_1 newarray dup iconst_0 bipush castore areturn"},
		{"large constants", "static int f() { return 100000 + 1000 + 5; }",
			"ldc sipush iadd iconst_5 iadd ireturn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, _ := compile(t, "class T { "+tt.src+" }")
			if got := mnemonics(method(t, prog, "T", "f")); got != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestDoubleComparisonOpcodes(t *testing.T) {
	tests := []struct {
		op               string
		compare          string
		onTrue, onFalse string
	}{
		{">", "dcmpl", "ifgt", "ifle"},
		{"<=", "dcmpl", "ifle", "ifgt"},
		{"<", "dcmpg", "iflt", "ifge"},
		{">=", "dcmpg", "ifge", "iflt"},
		{"==", "dcmpl", "ifeq", "ifne"},
		{"!=", "dcmpl", "ifne", "ifeq"},
	}
	for _, tt := range tests {
		src := "class T { static boolean f(double x, double y) { return x " + tt.op + " y; }" +
			" static int g(double x, double y) { if (!(x " + tt.op + " y)) return 1; return 0; } }"
		prog, _ := compile(t, src)

		f := method(t, prog, "T", "f")
		if got := f.Code[2].Op.String() + " " + f.Code[3].Op.String(); got != tt.compare+" "+tt.onFalse {
			t.Errorf("value of x %s y: got %s, want %s %s", tt.op, got, tt.compare, tt.onFalse)
		}
		g := method(t, prog, "T", "g")
		if got := g.Code[2].Op.String() + " " + g.Code[3].Op.String(); got != tt.compare+" "+tt.onTrue {
			t.Errorf("branch on x %s y: got %s, want %s %s", tt.op, got, tt.compare, tt.onTrue)
		}
	}
}

func TestNaNComparisons(t *testing.T) {
	src := `class T {
		static boolean gt(double x, double y) { return x > y; }
		static boolean le(double x, double y) { return x <= y; }
		static boolean lt(double x, double y) { return x < y; }
		static boolean ge(double x, double y) { return x >= y; }
		static boolean eq(double x, double y) { return x == y; }
		static boolean ne(double x, double y) { return x != y; }
		static boolean gtIf(double x, double y) { if (x > y) return true; return false; }
		static boolean leIf(double x, double y) { if (x <= y) return true; return false; }
		static boolean ltIf(double x, double y) { if (x < y) return true; return false; }
		static boolean geIf(double x, double y) { if (x >= y) return true; return false; }
	}`
	prog, reg := compile(t, src)
	var out bytes.Buffer
	machine, err := vm.New(prog, reg, vm.WithOutput(&out))
	if err != nil {
		t.Fatal(err)
	}
	nan := math.NaN()
	want := map[string]bool{
		"gt": false, "le": true, "lt": false, "ge": true, "eq": false, "ne": true,
		"gtIf": false, "leIf": true, "ltIf": false, "geIf": true,
	}
	for name, expected := range want {
		for _, args := range [][2]float64{{nan, 1}, {1, nan}} {
			res, err := machine.Invoke("T", name, "(DD)Z", vm.Double(args[0]), vm.Double(args[1]))
			if err != nil {
				t.Fatalf("%s: %v", name, err)
			}
			if res.AsBool() != expected {
				t.Errorf("%s(%v, %v) = %v, want %v", name, args[0], args[1], res.AsBool(), expected)
			}
		}
	}
	// Ordinary operands still compare normally.
	if res, _ := machine.Invoke("T", "ge", "(DD)Z", vm.Double(1), vm.Double(2)); res.AsBool() {
		t.Errorf("1 >= 2 is true")
	}
}

func TestExceptionTableOrder(t *testing.T) {
	src := `class T {
		static int f(int k) {
			int r = 0;
			try {
				try {
					r = 10 / k;
				} catch (ArithmeticException e) {
					r = -1;
				}
			} catch (RuntimeException e) {
				r = -2;
			} finally {
				r = r + 100;
			}
			return r;
		}
	}`
	prog, reg := compile(t, src)
	f := method(t, prog, "T", "f")
	var catches []string
	for _, h := range f.Handlers {
		catches = append(catches, h.CatchType)
	}
	if len(catches) < 3 || catches[0] != "java/lang/ArithmeticException" || catches[1] != "java/lang/RuntimeException" {
		t.Fatalf("rows %q: want the inner catch, then the outer catch, then catch-any rows", catches)
	}
	for _, c := range catches[2:] {
		if c != "" {
			t.Errorf("rows %q: explicit row after a catch-any row", catches)
		}
	}

	var out bytes.Buffer
	machine, err := vm.New(prog, reg, vm.WithOutput(&out))
	if err != nil {
		t.Fatal(err)
	}
	for k, want := range map[int32]int32{0: 99, 2: 105} {
		res, err := machine.Invoke("T", "f", "(I)I", vm.Int(k))
		if err != nil {
			t.Fatal(err)
		}
		if res.AsInt() != want {
			t.Errorf("f(%d) = %d, want %d", k, res.AsInt(), want)
		}
	}
}

func TestNonThrowableCatchHasNoRow(t *testing.T) {
	src := `class T {
		static void f() {
			try { g(); } catch (String s) { g(); } catch (RuntimeException e) { }
		}
		static void g() { }
	}`
	prog, _, errs := build(t, src, false)
	if kinds := errs.Kinds(); len(kinds) != 1 || kinds[0] != errors.NonThrowableCatch {
		t.Fatalf("diagnostics %v, want one NonThrowableCatch", kinds)
	}
	f := method(t, prog, "T", "f")
	if len(f.Handlers) != 1 || f.Handlers[0].CatchType != "java/lang/RuntimeException" {
		t.Errorf("handlers %+v, want only the RuntimeException row", f.Handlers)
	}
}

func TestFinallyReplication(t *testing.T) {
	src := `class T {
		static int count;
		static int f(int k) {
			for (int i = 0; i < 3; i++) {
				try {
					if (i == k) return i;
					if (i == 1) continue;
					count += 10;
				} finally {
					count++;
				}
			}
			return -1;
		}
		static int total() { return count; }
	}`
	prog, reg := compile(t, src)
	f := method(t, prog, "T", "f")

	// count++ compiles to getstatic iconst_1 iadd putstatic.
	var copies []int
	for pc := 0; pc+3 < len(f.Code); pc++ {
		if f.Code[pc].Op == vm.OpGetstatic && f.Code[pc+1].Op == vm.OpIconst1 &&
			f.Code[pc+2].Op == vm.OpIadd && f.Code[pc+3].Op == vm.OpPutstatic {
			copies = append(copies, pc)
		}
	}
	// normal exit, return, continue and the catch-any handler
	if len(copies) != 4 {
		t.Fatalf("%d copies of the finally body, want 4:\n%s", len(copies), mnemonics(f))
	}
	if len(f.Handlers) < 2 {
		t.Errorf("%d handler rows, want the try region split around the inline copies", len(f.Handlers))
	}
	for _, h := range f.Handlers {
		if h.CatchType != "" {
			t.Errorf("unexpected catch type %s", h.CatchType)
		}
		for _, pc := range copies {
			if pc >= h.Start && pc < h.End {
				t.Errorf("finally copy at %d is guarded by its own handler [%d, %d)", pc, h.Start, h.End)
			}
		}
	}

	tests := []struct {
		k, result, count int32
	}{
		{0, 0, 1},
		{2, 2, 13},
		{5, -1, 23},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		machine, err := vm.New(prog, reg, vm.WithOutput(&out))
		if err != nil {
			t.Fatal(err)
		}
		res, err := machine.Invoke("T", "f", "(I)I", vm.Int(tt.k))
		if err != nil {
			t.Fatal(err)
		}
		if res.AsInt() != tt.result {
			t.Errorf("f(%d) = %d, want %d", tt.k, res.AsInt(), tt.result)
		}
		count, err := machine.Invoke("T", "total", "()I")
		if err != nil {
			t.Fatal(err)
		}
		if count.AsInt() != tt.count {
			t.Errorf("after f(%d) count = %d, want %d", tt.k, count.AsInt(), tt.count)
		}
	}
}

func TestPrograms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"finally runs once", `class Main {
			static int counter;
			static int risky(int x) throws Exception {
				if (x < 0) throw new Exception("negative");
				return x;
			}
			public static void main(String[] args) {
				int v = 0;
				try {
					v = risky(-1);
				} catch (Exception e) {
					v = 7;
					System.out.println(e.getMessage());
				} finally {
					counter++;
				}
				System.out.println(v);
				System.out.println(counter);
			}
		}`, "negative\n7\n1\n"},

		{"loop forms iterate in the same order", `import java.util.ArrayList;
		class Main {
			public static void main(String[] args) {
				int[] a = {3, 1, 4, 1, 5};
				ArrayList list = new ArrayList();
				String counted = "";
				for (int i = 0; i < a.length; i++) {
					counted += a[i];
					list.add("" + a[i]);
				}
				String indexed = "";
				for (int x : a) indexed += x;
				String iterated = "";
				for (Object o : list) iterated += o;
				String cast = "";
				for (String s : list) cast = cast + s;
				int sum = 0;
				int j = 0;
				while (j < a.length) {
					sum += a[j];
					j++;
				}
				System.out.println(counted);
				System.out.println(indexed);
				System.out.println(iterated);
				System.out.println(cast);
				System.out.println(sum);
			}
		}`, "31415\n31415\n31415\n31415\n14\n"},

		{"break and continue", `class Main {
			public static void main(String[] args) {
				String s = "";
				for (int i = 0; ; i++) {
					if (i % 2 == 0) continue;
					if (i > 7) break;
					s += i;
				}
				System.out.println(s);
			}
		}`, "1357\n"},

		{"virtual and interface dispatch", `interface Shape { double area(); }
		abstract class Base implements Shape {
			String name;
			Base(String name) { this.name = name; }
			public String toString() { return name + "=" + area(); }
		}
		class Square extends Base {
			double side;
			Square(double s) { super("square"); side = s; }
			public double area() { return side * side; }
		}
		class Main {
			public static void main(String[] args) {
				Shape s = new Square(1.5);
				System.out.println(s.area());
				System.out.println(s);
				Base b = (Base) s;
				System.out.println(b instanceof Square);
			}
		}`, "2.25\nsquare=2.25\ntrue\n"},

		{"initializers and constructor chaining", `class Counter {
			int n = 5;
			static int created;
			static { created = 100; }
			{ n = n * 2; }
			Counter() { this(1); }
			Counter(int extra) { n += extra; created++; }
		}
		class Main {
			public static void main(String[] args) {
				Counter c = new Counter();
				System.out.println(c.n);
				System.out.println(Counter.created);
			}
		}`, "11\n101\n"},

		{"caught runtime exceptions", `class Main {
			public static void main(String[] args) {
				int[] a = new int[2];
				try {
					a[2] = 1;
				} catch (ArrayIndexOutOfBoundsException e) {
					System.out.println(e.getMessage());
				}
				try {
					System.out.println(1 / (a.length - 2));
				} catch (ArithmeticException e) {
					System.out.println(e);
				}
			}
		}`, "Index 2 out of bounds for length 2\njava.lang.ArithmeticException: / by zero\n"},

		{"return through nested finally", `class Main {
			static String log = "";
			static int f() {
				try {
					try {
						return 1;
					} finally {
						log += "a";
					}
				} finally {
					log += "b";
				}
			}
			public static void main(String[] args) {
				System.out.println(f());
				System.out.println(log);
			}
		}`, "1\nab\n"},

		{"chars and strings", `class Main {
			public static void main(String[] args) {
				char c = 'a';
				c++;
				String s = "x" + c + 1 + 2.5 + true + null;
				System.out.println(s);
				System.out.println(s.length());
				System.out.println(s.charAt(1) == 'b');
			}
		}`, "xb12.5truenull\n14\ntrue\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run(t, tt.src)
			if err != nil {
				t.Fatalf("run: %v\noutput so far: %q", err, got)
			}
			if got != tt.want {
				t.Errorf("output %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUncaughtException(t *testing.T) {
	_, err := run(t, `class Main {
		public static void main(String[] args) {
			int[] a = new int[1];
			a[3] = 1;
		}
	}`)
	var re *errors.RuntimeError
	if !stderrors.As(err, &re) {
		t.Fatalf("err = %v, want a runtime error", err)
	}
	if re.Line != 4 || !strings.Contains(re.Msg, "ArrayIndexOutOfBoundsException") {
		t.Errorf("line %d message %q", re.Line, re.Msg)
	}
}
