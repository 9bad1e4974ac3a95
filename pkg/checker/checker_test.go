package checker

import (
	"strings"
	"testing"

	"jmm/pkg/errors"
	"jmm/pkg/parser"
	"jmm/pkg/source"
	"jmm/pkg/types"
)

// check parses and analyzes sources as one compilation run.
func check(t *testing.T, sources ...string) ([]*parser.CompilationUnit, *errors.Collector) {
	t.Helper()
	var units []*parser.CompilationUnit
	for _, src := range sources {
		cu, perrs := parser.ParseSource(source.NewEvalSource(src))
		if len(perrs) > 0 {
			t.Fatalf("parse errors in %q: %v", src, perrs)
		}
		units = append(units, cu)
	}
	errs := errors.NewCollector()
	New(types.NewRegistry(), errs).Check(units...)
	return units, errs
}

func hasKind(errs *errors.Collector, kind errors.ErrorKind) bool {
	for _, k := range errs.Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

func expectClean(t *testing.T, errs *errors.Collector) {
	t.Helper()
	for _, e := range errs.Errors() {
		t.Errorf("unexpected error: %s", e.Error())
	}
}

func method(cu *parser.CompilationUnit, class, name string) *parser.MethodDeclaration {
	for _, decl := range cu.Types {
		if decl.Name != class {
			continue
		}
		for _, m := range decl.Members {
			if md, ok := m.(*parser.MethodDeclaration); ok && md.Name == name {
				return md
			}
		}
	}
	return nil
}

func TestValidPrograms(t *testing.T) {
	tests := []struct {
		name    string
		sources []string
	}{
		{"forward reference", []string{`
class A { B b; int f() { return b.g(); } }
class B { int g() { return 1; } }`}},
		{"mutual reference across units", []string{
			`class A extends B { int f(C c) { return c.h(this); } }`,
			`class B { int x; } class C { int h(A a) { return a.x; } }`,
		}},
		{"loops", []string{`
class Main {
  static int sum(int[] a) { int s = 0; for (int i = 0; i < a.length; i++) s += a[i]; return s; }
  static int each(int[] a) { int s = 0; for (int x : a) { s += x; } return s; }
  static int count(java.util.ArrayList l) { int n = 0; for (Object o : l) { n++; } return n; }
  static int spin() { while (true) { return 1; } }
  static void nested(int[][] m) { for (int[] row : m) for (int v : row) { if (v < 0) break; } }
}`}},
		{"checked exceptions", []string{`
class E extends Exception { E(String m) { super(m); } }
class Main {
  static void f() throws E { throw new E("x"); }
  static int g() {
    try { f(); return 1; } catch (E e) { return 2; } finally { System.out.println("done"); }
  }
  static void rethrow() { try { f(); } catch (E e) { throw e; } catch (RuntimeException r) { } }
}`}},
		{"interfaces and statics", []string{`
import java.util.*;
interface Shape { double area(); int SIDES = 0; }
abstract class Base implements Shape { abstract String name(); }
class Square extends Base {
  private double side;
  static int made;
  Square(double s) { side = s; made++; }
  public double area() { return side * side; }
  String name() { return "square " + side + " " + Shape.SIDES; }
  static double total(ArrayList shapes) {
    double t = 0;
    for (Object o : shapes) { if (o instanceof Shape) t += ((Shape) o).area(); }
    return t + Math.max(1, 2) + java.lang.Math.PI;
  }
}`}},
		{"final fields and initializers", []string{`
class C {
  final int a;
  static final int B;
  final int c = 3;
  static { B = 2; }
  { a = 1; }
  int[] xs = {1, 2, 3};
  char[][] grid = new char[2][];
  int min() { return -2147483648; }
}`}},
		{"null on either side of a comparison", []string{`
class N {
  boolean f(Object o) { return o == null; }
  boolean g(String s) { return s != null && null != s; }
  boolean h(int[] a) { return null == a || a == null; }
}`}},
		{"blank final assigned once per constructor", []string{`
class F {
  final int a;
  final int b;
  static final int S;
  static { S = 1; }
  { a = 2; }
  F() { b = 3; }
  F(int v) { b = v; }
}`}},
		{"constructor chaining", []string{`
class P { P(int x) { } }
class Q extends P { Q() { this(1); } Q(int y) { super(y); } }`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := check(t, tt.sources...)
			expectClean(t, errs)
		})
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want errors.ErrorKind
	}{
		{"unknown field type", `class A { Foo f; }`, errors.UnresolvedType},
		{"unknown supertype", `class A extends Missing {}`, errors.UnresolvedType},
		{"duplicate local", `class A { void m() { int x = 1; int x = 2; } }`, errors.DuplicateBinding},
		{"duplicate method", `class A { void m() {} void m() {} }`, errors.DuplicateBinding},
		{"duplicate class", `class A {} class A {}`, errors.DuplicateBinding},
		{"string into int", `class A { void m() { int x = "s"; } }`, errors.TypeMismatch},
		{"int plus boolean", `class A { void m() { boolean b = 1 + true; } }`, errors.TypeMismatch},
		{"double into int", `class A { void m() { int x = 1.5; } }`, errors.TypeMismatch},
		{"compound narrowing", `class A { void m() { int x = 0; x += 1.5; } }`, errors.TypeMismatch},
		{"boolean and-assign int", `class A { void m() { boolean b = true; b &= 1; } }`, errors.TypeMismatch},
		{"shift of double", `class A { void m() { double d = 1; d <<= 1; } }`, errors.TypeMismatch},
		{"int literal too large", `class A { int m() { return 2147483648; } }`, errors.TypeMismatch},
		{"non-boolean condition", `class A { void m() { if (1) {} } }`, errors.TypeMismatch},
		{"abstract instantiation", `abstract class B {} class A { Object m() { return new B(); } }`, errors.TypeMismatch},
		{"for-each over int", `class A { void m() { for (int x : 3) {} } }`, errors.TypeMismatch},
		{"undeclared throw", `class A { void m() { throw new Exception(); } }`, errors.UndeclaredException},
		{"undeclared call", `class A { void f() throws Exception {} void m() { f(); } }`, errors.UndeclaredException},
		{"implicit constructor", `class B { B() throws Exception {} } class C extends B {}`, errors.UndeclaredException},
		{"catch non-throwable", `class A { void m() { try { } catch (String s) { } } }`, errors.NonThrowableCatch},
		{"throw in static block", `class A { static { throw new RuntimeException(); } }`, errors.ThrowInInitializer},
		{"throw in finally of initializer", `class A { { try { } finally { throw new Error(); } } }`, errors.ThrowInInitializer},
		{"missing implementation", `interface I { void f(); } class A implements I { }`, errors.MissingImplementation},
		{"assign array length", `class A { void m(int[] a) { a.length = 3; } }`, errors.InvalidAssignmentTarget},
		{"assign to value", `class A { void m() { int x = 0; x + 1 = 2; } }`, errors.InvalidAssignmentTarget},
		{"arithmetic statement", `class A { void m() { 1 + 2; } }`, errors.IllegalStatementExpression},
		{"unknown variable", `class A { void m() { y = 1; } }`, errors.UnresolvedName},
		{"unknown method", `class A { void m() { "s".nope(); } }`, errors.UnresolvedMember},
		{"private field", `class B { private int x; } class A { int m(B b) { return b.x; } }`, errors.UnresolvedMember},
		{"private method", `class B { private void p() {} } class A { void m(B b) { b.p(); } }`, errors.UnresolvedMember},
		{"extend final", `final class B {} class A extends B {}`, errors.IllegalInheritance},
		{"extend interface", `interface I {} class A extends I {}`, errors.IllegalInheritance},
		{"cycle", `class A extends B {} class B extends A {}`, errors.IllegalInheritance},
		{"uninitialized local", `class A { int m() { int x; return x; } }`, errors.UninitializedRead},
		{"self initializer", `class A { void m() { int x = x + 1; } }`, errors.UninitializedRead},
		{"final local", `class A { void m() { final int x = 1; x = 2; } }`, errors.FinalReassignment},
		{"final parameter", `class A { void m(final int p) { p++; } }`, errors.FinalReassignment},
		{"final field outside constructor", `class A { final int f = 1; void m() { f = 2; } }`, errors.FinalReassignment},
		{"final field in two initializer blocks", `class A { final int y; { y = 3; } { y = 4; } }`, errors.FinalReassignment},
		{"static final in two static blocks", `class A { static final int y; static { y = 3; } static { y = 4; } }`, errors.FinalReassignment},
		{"final field in block and constructor", `class A { final int y; { y = 3; } A() { y = 4; } }`, errors.FinalReassignment},
		{"final field twice in constructor", `class A { final int y; A() { y = 3; this.y = 4; } }`, errors.FinalReassignment},
		{"null compared to primitive", `class A { boolean m(int i) { return i == null; } }`, errors.TypeMismatch},
		{"library final", `class A { void m() { Math.PI = 3; } }`, errors.FinalReassignment},
		{"break outside loop", `class A { void m() { break; } }`, errors.IllegalControlFlow},
		{"return in initializer", `class A { { return; } }`, errors.IllegalControlFlow},
		{"value from void", `class A { void m() { return 1; } }`, errors.IllegalControlFlow},
		{"late super call", `class A { A() { int x = 1; super(); } }`, errors.IllegalControlFlow},
		{"missing return", `class A { int m(boolean b) { if (b) return 1; } }`, errors.MissingReturn},
		{"infinite loop with break", `class A { int m() { while (true) { break; } } }`, errors.MissingReturn},
		{"instance field from static", `class A { int x; static int m() { return x; } }`, errors.StaticContext},
		{"this in static", `class A { static Object m() { return this; } }`, errors.StaticContext},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := check(t, tt.src)
			if !hasKind(errs, tt.want) {
				t.Errorf("kinds = %v, want %s", errs.Kinds(), tt.want)
				for _, e := range errs.Errors() {
					t.Logf("  %s", e.Error())
				}
			}
		})
	}
}

func TestShadowingIsAWarning(t *testing.T) {
	units, errs := check(t, `
class A {
  int m() {
    int x = 1;
    { int x = 2; x++; }
    x = 3;
    return x;
  }
}`)
	expectClean(t, errs)
	ws := errs.Warnings()
	if len(ws) != 1 || !strings.Contains(ws[0].Msg, "shadows local variable x declared at line 4") {
		t.Fatalf("warnings = %v", ws)
	}

	// The assignment after the inner block resolves to the outer slot.
	body := method(units[0], "A", "m").Body.Statements
	outer := body[0].(*parser.LocalVariableDeclaration).Vars[0]
	inner := body[1].(*parser.BlockStatement).Statements[0].(*parser.LocalVariableDeclaration).Vars[0]
	assign := body[2].(*parser.ExpressionStatement).Expression.(*parser.AssignmentExpression)
	if outer.Slot == inner.Slot {
		t.Errorf("shadowing binding reused slot %d", outer.Slot)
	}
	if got := assign.Target.(*parser.Identifier).Slot; got != outer.Slot {
		t.Errorf("assignment slot = %d, want outer slot %d", got, outer.Slot)
	}
}

func TestCatchParameterScope(t *testing.T) {
	_, errs := check(t, `
class A {
  void m() {
    try { } catch (RuntimeException e) { } catch (Error f) { Object o = e; }
  }
}`)
	if !hasKind(errs, errors.UnresolvedName) {
		t.Errorf("catch parameter visible in sibling handler; kinds = %v", errs.Kinds())
	}
}

func TestNonThrowableCatchHasNoRow(t *testing.T) {
	units, errs := check(t, `class A { void m() { try { } catch (String s) { } catch (RuntimeException r) { } } }`)
	if !hasKind(errs, errors.NonThrowableCatch) {
		t.Fatalf("kinds = %v", errs.Kinds())
	}
	try := method(units[0], "A", "m").Body.Statements[0].(*parser.TryStatement)
	if try.Catches[0].Throwable {
		t.Errorf("String catch marked throwable")
	}
	if !try.Catches[1].Throwable {
		t.Errorf("RuntimeException catch not marked throwable")
	}
}

func TestRewrites(t *testing.T) {
	units, errs := check(t, `
class A {
  int n;
  static int count;
  int f(int i, char c) {
    double d = i;
    String s = "a" + i + c + "b";
    count = n + c;
    return i;
  }
  void g(int[] a) { for (int x : a) { n += x; } }
}`)
	expectClean(t, errs)
	body := method(units[0], "A", "f").Body.Statements

	d := body[0].(*parser.LocalVariableDeclaration).Vars[0]
	conv, ok := d.Init.(*parser.ConversionExpression)
	if !ok || conv.To != types.Double {
		t.Errorf("double d = i: init is %T, want int-to-double conversion", d.Init)
	}

	s := body[1].(*parser.LocalVariableDeclaration).Vars[0]
	concat, ok := s.Init.(*parser.ConcatExpression)
	if !ok || len(concat.Operands) != 4 {
		t.Errorf("string + chain: init is %T (%v), want 4-operand concatenation", s.Init, s.Init)
	}

	assign := body[2].(*parser.ExpressionStatement).Expression.(*parser.AssignmentExpression)
	static, ok := assign.Target.(*parser.FieldAccess)
	if !ok || static.Target != nil || static.Field == nil || !static.Field.IsStatic() {
		t.Errorf("count target = %#v, want static field access", assign.Target)
	}
	sum := assign.Value.(*parser.InfixExpression)
	inst, ok := sum.Left.(*parser.FieldAccess)
	if !ok {
		t.Fatalf("n is %T, want *parser.FieldAccess", sum.Left)
	}
	if this, ok := inst.Target.(*parser.ThisExpression); !ok || !this.Implicit {
		t.Errorf("n target = %T, want implicit this", inst.Target)
	}
	if _, ok := sum.Right.(*parser.ConversionExpression); !ok {
		t.Errorf("char operand not widened: %T", sum.Right)
	}

	g := method(units[0], "A", "g")
	loop, ok := g.Body.Statements[0].(*parser.LoopStatement)
	if !ok {
		t.Fatalf("for-each not replaced: %T", g.Body.Statements[0])
	}
	if len(loop.Init) != 2 || len(loop.Step) != 1 {
		t.Errorf("array loop shape: init=%d step=%d", len(loop.Init), len(loop.Step))
	}
	if _, ok := loop.Condition.(*parser.InfixExpression).Right.(*parser.ArrayLength); !ok {
		t.Errorf("condition does not compare against array length: %s", loop.Condition)
	}
	// this, a, $arr, $i, x
	if g.MaxLocals != 5 {
		t.Errorf("g MaxLocals = %d, want 5", g.MaxLocals)
	}
}

func TestImplicitSuperInserted(t *testing.T) {
	units, errs := check(t, `class A { int v; A(int x) { v = x; } } class B extends A { B() { super(2); } } class C {}`)
	expectClean(t, errs)
	for _, decl := range units[0].Types {
		var ctor *parser.ConstructorDeclaration
		for _, m := range decl.Members {
			if cd, ok := m.(*parser.ConstructorDeclaration); ok {
				ctor = cd
			}
		}
		if ctor == nil {
			t.Fatalf("%s has no constructor", decl.Name)
		}
		call := constructorCall(ctor.Body.Statements[0])
		if call == nil || !call.Super || call.Method == nil {
			t.Errorf("%s: first statement is not a resolved super call", decl.Name)
		}
		if decl.Name == "C" && !ctor.Implicit {
			t.Errorf("C constructor not marked implicit")
		}
	}
}

func TestMissingImplementationListsAll(t *testing.T) {
	_, errs := check(t, `interface I { void f(); int g(int x); } class A implements I { public void f() {} }`)
	var msg string
	for _, e := range errs.Errors() {
		if se, ok := e.(*errors.SemanticError); ok && se.Code == errors.MissingImplementation {
			msg = se.Msg
		}
	}
	if !strings.Contains(msg, "I.g(int)") || strings.Contains(msg, "I.f()") {
		t.Errorf("message = %q, want only I.g(int) listed", msg)
	}
}

func TestDesugaredLoopNamesAreUnique(t *testing.T) {
	units, errs := check(t, `
class A {
  void m(int[][] grid) {
    for (int[] row : grid) { for (int v : row) { for (int w : row) { } } }
  }
}`)
	expectClean(t, errs)
	seen := map[string]bool{}
	var walk func(s parser.Statement)
	walk = func(s parser.Statement) {
		switch n := s.(type) {
		case *parser.BlockStatement:
			for _, st := range n.Statements {
				walk(st)
			}
		case *parser.LoopStatement:
			for _, init := range n.Init {
				name := init.(*parser.LocalVariableDeclaration).Vars[0].Name
				if seen[name] {
					t.Errorf("hidden name %s reused", name)
				}
				if !strings.HasPrefix(name, "$") {
					t.Errorf("hidden name %s is a legal identifier", name)
				}
				seen[name] = true
			}
			walk(n.Body)
		}
	}
	walk(method(units[0], "A", "m").Body)
	if len(seen) != 6 {
		t.Errorf("found %d hidden locals, want 6", len(seen))
	}
}
