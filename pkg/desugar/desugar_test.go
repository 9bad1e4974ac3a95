package desugar

import (
	"testing"

	"jmm/pkg/lexer"
	"jmm/pkg/parser"
	"jmm/pkg/types"
)

func forEach(typeName, name string, iterable parser.Expression) *parser.ForEachStatement {
	tok := lexer.Token{Type: lexer.FOR, Literal: "for", Line: 7, Column: 3}
	return &parser.ForEachStatement{
		Token:    tok,
		Type:     &parser.TypeName{Token: tok, Name: typeName},
		Name:     name,
		Iterable: iterable,
		Body:     &parser.BlockStatement{Token: tok},
	}
}

func declName(t *testing.T, s parser.Statement) string {
	t.Helper()
	decl, ok := s.(*parser.LocalVariableDeclaration)
	if !ok || len(decl.Vars) != 1 {
		t.Fatalf("want a single local declaration, got %T", s)
	}
	return decl.Vars[0].Name
}

func TestArrayForEach(t *testing.T) {
	reg := types.NewRegistry()
	d := New(reg)
	src := &parser.Identifier{Token: lexer.Token{Type: lexer.IDENT, Literal: "xs", Line: 7}, Value: "xs"}
	loop := d.ArrayForEach(forEach("int", "x", src), reg.ArrayOf(types.Int))

	if len(loop.Init) != 2 {
		t.Fatalf("init has %d statements, want 2", len(loop.Init))
	}
	if got := declName(t, loop.Init[0]); got != "$arr1" {
		t.Errorf("array local = %q", got)
	}
	if got := declName(t, loop.Init[1]); got != "$i1" {
		t.Errorf("index local = %q", got)
	}
	// The iterable is evaluated once, as the array local's initializer.
	if init := loop.Init[0].(*parser.LocalVariableDeclaration).Vars[0].Init; init != parser.Expression(src) {
		t.Errorf("array local is not initialized from the iterable")
	}

	cond, ok := loop.Condition.(*parser.InfixExpression)
	if !ok || cond.Operator != "<" {
		t.Fatalf("condition = %v", loop.Condition)
	}
	if fa, ok := cond.Right.(*parser.FieldAccess); !ok || fa.Name != "length" {
		t.Errorf("condition does not compare against length: %v", cond.Right)
	}

	body, ok := loop.Body.(*parser.BlockStatement)
	if !ok || len(body.Statements) != 2 {
		t.Fatalf("body = %T", loop.Body)
	}
	if got := declName(t, body.Statements[0]); got != "x" {
		t.Errorf("element binding = %q", got)
	}
	if len(loop.Step) != 1 {
		t.Errorf("step has %d statements, want 1", len(loop.Step))
	}
	if loop.Line() != 7 {
		t.Errorf("loop line = %d", loop.Line())
	}
}

func TestIteratorForEachCastsElements(t *testing.T) {
	reg := types.NewRegistry()
	d := New(reg)
	list := &parser.Identifier{Token: lexer.Token{Type: lexer.IDENT, Literal: "list"}, Value: "list"}

	tests := []struct {
		typeName string
		elem     types.Type
		cast     bool
	}{
		{"Object", reg.Object, false},
		{"String", reg.String, true},
	}
	for i, tt := range tests {
		loop := d.IteratorForEach(forEach(tt.typeName, "e", list), tt.elem)
		if len(loop.Init) != 1 {
			t.Fatalf("%s: init has %d statements", tt.typeName, len(loop.Init))
		}
		want := []string{"$iter1", "$iter2"}[i]
		if got := declName(t, loop.Init[0]); got != want {
			t.Errorf("%s: iterator local = %q, want %q", tt.typeName, got, want)
		}
		if call, ok := loop.Condition.(*parser.MethodCall); !ok || call.Name != "hasNext" {
			t.Errorf("%s: condition = %v", tt.typeName, loop.Condition)
		}
		if len(loop.Step) != 0 {
			t.Errorf("%s: iterator loop has a step", tt.typeName)
		}
		element := loop.Body.(*parser.BlockStatement).Statements[0].(*parser.LocalVariableDeclaration)
		_, isCast := element.Vars[0].Init.(*parser.CastExpression)
		if isCast != tt.cast {
			t.Errorf("%s: cast = %v, want %v", tt.typeName, isCast, tt.cast)
		}
	}
}

func TestCountedAndWhileLoops(t *testing.T) {
	d := New(types.NewRegistry())
	tok := lexer.Token{Type: lexer.FOR, Literal: "for", Line: 2}
	cond := &parser.BooleanLiteral{Token: tok, Value: true}
	body := &parser.BlockStatement{Token: tok}
	init := []parser.Statement{&parser.BlockStatement{Token: tok}}
	update := []parser.Statement{&parser.BlockStatement{Token: tok}}

	counted := d.For(&parser.ForStatement{Token: tok, Init: init, Condition: nil, Update: update, Body: body})
	if counted.Condition != nil {
		t.Errorf("missing condition was replaced: %v", counted.Condition)
	}
	if len(counted.Init) != 1 || len(counted.Step) != 1 || counted.Body != parser.Statement(body) {
		t.Errorf("counted loop parts were not carried over")
	}

	loop := d.While(&parser.WhileStatement{Token: tok, Condition: cond, Body: body})
	if loop.Condition != parser.Expression(cond) || loop.Init != nil || loop.Step != nil {
		t.Errorf("while loop = %+v", loop)
	}
	if d.n != 0 {
		t.Errorf("counted and while loops consumed hidden names")
	}
}
