package parser

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"jmm/pkg/lexer"
	"jmm/pkg/source"
)

func parseUnit(t *testing.T, input string) *CompilationUnit {
	t.Helper()
	cu, errs := ParseSource(source.NewEvalSource(input))
	if len(errs) > 0 {
		for _, e := range errs {
			t.Errorf("parser error: %s", e.Error())
		}
		t.FailNow()
	}
	return cu
}

// parseBody wraps stmts in a method and returns its statements.
func parseBody(t *testing.T, stmts string) []Statement {
	t.Helper()
	cu := parseUnit(t, "class T { void m() { "+stmts+" } }")
	md, ok := cu.Types[0].Members[0].(*MethodDeclaration)
	if !ok {
		t.Fatalf("member is %T, not *MethodDeclaration", cu.Types[0].Members[0])
	}
	return md.Body.Statements
}

func parseExpr(t *testing.T, input string) Expression {
	t.Helper()
	p := NewParser(lexer.NewLexer(input), nil)
	expr := p.parseExpression(LOWEST)
	if len(p.Errors()) > 0 {
		t.Fatalf("parser errors for %q: %v", input, p.Errors())
	}
	return expr
}

func TestCompilationUnitHeader(t *testing.T) {
	cu := parseUnit(t, `
package shapes.core;
import java.util.ArrayList;
import java.util.*;
public abstract class Shape extends Object implements Comparable, Named {}
interface Named extends A, B {}
`)
	if cu.Package != "shapes.core" {
		t.Errorf("package = %q", cu.Package)
	}
	if len(cu.Imports) != 2 || cu.Imports[1] != "java.util.*" {
		t.Errorf("imports = %v", cu.Imports)
	}
	if len(cu.Types) != 2 {
		t.Fatalf("expected 2 types, got %d", len(cu.Types))
	}
	shape := cu.Types[0]
	if shape.Name != "Shape" || shape.Interface || shape.Super.Name != "Object" || len(shape.Interfaces) != 2 {
		t.Errorf("unexpected class header: %s", shape)
	}
	named := cu.Types[1]
	if !named.Interface || named.Super != nil || len(named.Interfaces) != 2 {
		t.Errorf("unexpected interface header: %s", named)
	}
}

func TestClassMembers(t *testing.T) {
	cu := parseUnit(t, `
class Point {
    private int x, y = 2;
    static final double ORIGIN = 0.0;
    int[] coords;
    static { count = 0; }
    { x = 1; }
    Point(int x, final int y) throws Exception { this.x = x; }
    abstract int area();
    public static void main(String[] args) { }
    int grid[][];
}`)
	members := cu.Types[0].Members
	want := []string{
		"*parser.FieldDeclaration",
		"*parser.FieldDeclaration",
		"*parser.FieldDeclaration",
		"*parser.InitializerBlock",
		"*parser.InitializerBlock",
		"*parser.ConstructorDeclaration",
		"*parser.MethodDeclaration",
		"*parser.MethodDeclaration",
		"*parser.FieldDeclaration",
	}
	if len(members) != len(want) {
		t.Fatalf("expected %d members, got %d", len(want), len(members))
	}
	for i, m := range members {
		if got := typeName(m); got != want[i] {
			t.Errorf("member %d: got %s, want %s", i, got, want[i])
		}
	}

	xy := members[0].(*FieldDeclaration)
	if len(xy.Vars) != 2 || xy.Vars[1].Init == nil {
		t.Errorf("field x, y parsed as %s", xy)
	}
	if !members[3].(*InitializerBlock).Static || members[4].(*InitializerBlock).Static {
		t.Error("initializer block static flags wrong")
	}
	ctor := members[5].(*ConstructorDeclaration)
	if len(ctor.Params) != 2 || !ctor.Params[1].Final || len(ctor.Throws) != 1 {
		t.Errorf("constructor parsed as %s", ctor)
	}
	area := members[6].(*MethodDeclaration)
	if area.Body != nil {
		t.Error("abstract method should have no body")
	}
	main := members[7].(*MethodDeclaration)
	if main.Params[0].Type.Dims != 1 || main.ReturnType.Name != "void" {
		t.Errorf("main parsed as %s", main)
	}
	grid := members[8].(*FieldDeclaration)
	if grid.Vars[0].Dims != 2 {
		t.Errorf("grid dims = %d", grid.Vars[0].Dims)
	}
}

func typeName(n Node) string { return fmt.Sprintf("%T", n) }

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"a + b * c", "(a + (b * c))"},
		{"a * b + c", "((a * b) + c)"},
		{"-a * b", "((-a) * b)"},
		{"!a && b || c", "(((!a) && b) || c)"},
		{"a < b == c > d", "((a < b) == (c > d))"},
		{"a = b = c", "a = b = c"},
		{"a += b * 2", "a += (b * 2)"},
		{"x ? y : z ? u : v", "(x ? y : (z ? u : v))"},
		{"a | b ^ c & d", "(a | (b ^ (c & d)))"},
		{"a << 2 + 1", "(a << (2 + 1))"},
		{"a.b.c(d)[e]", "a.b.c(d)[e]"},
		{"i++ + ++j", "((i++) + (++j))"},
		{"o instanceof String && ok", "((o instanceof String) && ok)"},
	}
	for _, tt := range tests {
		got := parseExpr(t, tt.input).String()
		if got != tt.expected {
			t.Errorf("%q: expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestCastVersusGrouping(t *testing.T) {
	tests := []struct {
		input string
		cast  bool
	}{
		{"(int) x", true},
		{"(double) -x", true},
		{"(String) o", true},
		{"(java.util.Iterator) o", true},
		{"(Object[]) arr", true},
		{"(a) + b", false},
		{"(a) - b", false},
		{"(a + b)", false},
		{"(a)", false},
	}
	for _, tt := range tests {
		expr := parseExpr(t, tt.input)
		_, isCast := expr.(*CastExpression)
		if isCast != tt.cast {
			t.Errorf("%q: cast = %v, want %v (parsed %T)", tt.input, isCast, tt.cast, expr)
		}
	}
}

func TestNewExpressions(t *testing.T) {
	expr := parseExpr(t, "new java.util.ArrayList()")
	ne, ok := expr.(*NewExpression)
	if !ok || ne.Type.Name != "java.util.ArrayList" {
		t.Fatalf("got %T %s", expr, expr)
	}

	expr = parseExpr(t, "new int[3][4][]")
	na, ok := expr.(*NewArrayExpression)
	if !ok || len(na.Dims) != 2 || na.ExtraDims != 1 {
		t.Fatalf("got %T %s", expr, expr)
	}

	expr = parseExpr(t, "new int[] {1, 2, 3}")
	na, ok = expr.(*NewArrayExpression)
	if !ok || na.Init == nil || len(na.Init.Elements) != 3 {
		t.Fatalf("got %T %s", expr, expr)
	}
}

func TestStatementForms(t *testing.T) {
	stmts := parseBody(t, `
int i = 0, j;
final String s = "x";
int[] a = {1, 2};
Foo f;
i++;
if (i < 3) i = 1; else { i = 2; }
while (i > 0) i--;
for (int k = 0; k < 10; k++) sum += k;
for (;;) break;
for (i = 0, j = 1; i < j; i++, j--) continue;
for (int x : a) sum += x;
for (final String e : list) ;
return;
`)
	want := []string{
		"*parser.LocalVariableDeclaration",
		"*parser.LocalVariableDeclaration",
		"*parser.LocalVariableDeclaration",
		"*parser.LocalVariableDeclaration",
		"*parser.ExpressionStatement",
		"*parser.IfStatement",
		"*parser.WhileStatement",
		"*parser.ForStatement",
		"*parser.ForStatement",
		"*parser.ForStatement",
		"*parser.ForEachStatement",
		"*parser.ForEachStatement",
		"*parser.ReturnStatement",
	}
	if len(stmts) != len(want) {
		for _, s := range stmts {
			t.Logf("%T: %s", s, s)
		}
		t.Fatalf("expected %d statements, got %d", len(want), len(stmts))
	}
	for i, s := range stmts {
		if got := typeName(s); got != want[i] {
			t.Errorf("statement %d: got %s, want %s", i, got, want[i])
		}
	}

	if lit, ok := stmts[2].(*LocalVariableDeclaration).Vars[0].Init.(*ArrayLiteral); !ok || len(lit.Elements) != 2 {
		t.Error("array initializer not parsed")
	}
	forever := stmts[8].(*ForStatement)
	if forever.Condition != nil || forever.Init != nil || forever.Update != nil {
		t.Errorf("for(;;) parsed as %s", forever)
	}
	multi := stmts[9].(*ForStatement)
	if len(multi.Init) != 2 || len(multi.Update) != 2 {
		t.Errorf("multi-expression for parsed as %s", multi)
	}
	each := stmts[11].(*ForEachStatement)
	if !each.Final || each.Name != "e" || each.Type.Name != "String" {
		t.Errorf("for-each parsed as %s", each)
	}
}

func TestTryStatement(t *testing.T) {
	stmts := parseBody(t, `
try {
    throw new Exception("boom");
} catch (RuntimeException e) {
    x = 1;
} catch (final Exception e) {
    x = 2;
} finally {
    x = 3;
}
try { x = 4; } finally { x = 5; }
`)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(stmts))
	}
	ts := stmts[0].(*TryStatement)
	if len(ts.Catches) != 2 || ts.Finally == nil {
		t.Fatalf("try parsed as %s", ts)
	}
	if ts.Catches[0].Type.Name != "RuntimeException" || ts.Catches[1].Name != "e" {
		t.Errorf("catch clauses parsed as %s / %s", ts.Catches[0], ts.Catches[1])
	}
	if _, ok := ts.Body.Statements[0].(*ThrowStatement); !ok {
		t.Errorf("try body starts with %T", ts.Body.Statements[0])
	}
	bare := stmts[1].(*TryStatement)
	if len(bare.Catches) != 0 || bare.Finally == nil {
		t.Errorf("try/finally parsed as %s", bare)
	}
}

func TestConstructorCalls(t *testing.T) {
	cu := parseUnit(t, `class A extends B { A() { super(1); } A(int x) { this(); } }`)
	first := cu.Types[0].Members[0].(*ConstructorDeclaration)
	call, ok := first.Body.Statements[0].(*ExpressionStatement).Expression.(*ConstructorCall)
	if !ok || !call.Super || len(call.Arguments) != 1 {
		t.Fatalf("super(1) parsed as %s", first.Body)
	}
	second := cu.Types[0].Members[1].(*ConstructorDeclaration)
	call, ok = second.Body.Statements[0].(*ExpressionStatement).Expression.(*ConstructorCall)
	if !ok || call.Super {
		t.Fatalf("this() parsed as %s", second.Body)
	}
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"class A { void m() { int x = ; } }", "unexpected"},
		{"class A { void m() { try { } } }", "'try' without 'catch' or 'finally'"},
		{"class A { void f; }", "cannot have type void"},
		{"class A { int m() { return 1 } }", "expected next token"},
		{"class A { void m() { x = 99999999999; } }", "out of range"},
		{"class A { void m() { new int(); } }", "cannot instantiate primitive"},
		{"int x;", "expected 'class' or 'interface'"},
		{"class A { void m() { int $x; } }", "illegal token"},
		{"interface I { void m() { } }", "cannot have a body"},
		{"interface I { I() { } }", "cannot have constructors"},
		{"class A { void m(); }", "missing body"},
	}
	for _, tt := range tests {
		_, errs := ParseSource(source.NewEvalSource(tt.input))
		if len(errs) == 0 {
			t.Errorf("%q: expected a syntax error", tt.input)
			continue
		}
		found := false
		for _, e := range errs {
			if strings.Contains(e.Message(), tt.want) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("%q: no error containing %q in %v", tt.input, tt.want, errs)
		}
	}
}

func TestErrorRecoveryContinuesAfterBadMember(t *testing.T) {
	cu, errs := ParseSource(source.NewEvalSource(`
class A {
    void broken( { }
    int ok() { return 1; }
}
class B {}
`))
	if len(errs) == 0 {
		t.Fatal("expected errors")
	}
	found := false
	for _, decl := range cu.Types {
		if decl.Name == "B" {
			found = true
		}
	}
	if !found {
		t.Error("class B should still be parsed after an error in A")
	}
}

func TestSyntaxErrorPositions(t *testing.T) {
	_, errs := ParseSource(source.NewEvalSource("class A {\n  void m() {\n    x = ;\n  }\n}"))
	if len(errs) == 0 {
		t.Fatal("expected an error")
	}
	if pos := errs[0].Pos(); pos.Line != 3 || pos.Column != 9 {
		t.Errorf("error at %d:%d, want 3:9", pos.Line, pos.Column)
	}
}

type collectWriter struct {
	lines []string
}

func (c *collectWriter) WriteNode(n Node, depth int) {
	c.lines = append(c.lines, strings.Repeat(".", depth)+describeNode(n))
}

func TestWalkVisitsEveryNode(t *testing.T) {
	cu := parseUnit(t, "class A { int f(int x) { return x + 1; } }")
	w := &collectWriter{}
	Walk(cu, w)
	want := []string{
		"CompilationUnit",
		".ClassDeclaration",
		"..MethodDeclaration",
		"...Parameter",
		"...BlockStatement",
		"....ReturnStatement",
		".....InfixExpression",
		"......Identifier",
		"......IntegerLiteral",
	}
	if len(w.lines) != len(want) {
		t.Fatalf("visited %d nodes, want %d: %v", len(w.lines), len(want), w.lines)
	}
	for i, prefix := range want {
		if !strings.HasPrefix(w.lines[i], prefix) {
			t.Errorf("node %d: %q does not start with %q", i, w.lines[i], prefix)
		}
	}

	var buf bytes.Buffer
	DumpAST(&buf, cu)
	if !strings.Contains(buf.String(), "MethodDeclaration line=1 int f") {
		t.Errorf("dump missing method line:\n%s", buf.String())
	}
}
