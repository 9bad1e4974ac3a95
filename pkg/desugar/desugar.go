// Package desugar rewrites the surface loop forms of J-- into the one
// canonical loop the code generator understands:
//
//	Init; L1: if !Condition goto L2; Body; Step; goto L1; L2:
//
// The rewrites are purely syntactic. Hidden locals are given names that
// contain '$', which the lexer never accepts in an identifier, and a
// counter that is never reset, so nested loops cannot collide.
package desugar

import (
	"fmt"

	"jmm/pkg/lexer"
	"jmm/pkg/parser"
	"jmm/pkg/types"
)

const desugarDebug = false

func debugPrintf(format string, args ...interface{}) {
	if desugarDebug {
		fmt.Printf(format, args...)
	}
}

// Desugarer produces canonical loops. One Desugarer is shared by every
// unit of a compilation so hidden names stay unique across the run.
type Desugarer struct {
	reg *types.Registry
	n   int
}

// New creates a Desugarer that types its hidden locals with reg.
func New(reg *types.Registry) *Desugarer {
	return &Desugarer{reg: reg}
}

func (d *Desugarer) next() int {
	d.n++
	return d.n
}

// While rewrites while (c) body.
func (d *Desugarer) While(s *parser.WhileStatement) *parser.LoopStatement {
	return &parser.LoopStatement{
		Token:     s.Token,
		Condition: s.Condition,
		Body:      s.Body,
	}
}

// For rewrites for (init; cond; update) body. A missing condition stays nil,
// which the canonical loop reads as true.
func (d *Desugarer) For(s *parser.ForStatement) *parser.LoopStatement {
	return &parser.LoopStatement{
		Token:     s.Token,
		Init:      s.Init,
		Condition: s.Condition,
		Body:      s.Body,
		Step:      s.Update,
	}
}

// ArrayForEach rewrites for (T x : array) body over an array of type at:
//
//	T'[] $arrN = array; int $iN = 0;
//	while ($iN < $arrN.length) { T x = $arrN[$iN]; body } step $iN += 1
//
// s.Iterable must already be analyzed; it is evaluated once, into $arrN.
func (d *Desugarer) ArrayForEach(s *parser.ForEachStatement, at *types.ArrayType) *parser.LoopStatement {
	tok := s.Token
	n := d.next()
	arr, idx := fmt.Sprintf("$arr%d", n), fmt.Sprintf("$i%d", n)
	debugPrintf("// [Desugar] array for-each at line %d: %s, %s\n", tok.Line, arr, idx)

	init := []parser.Statement{
		hiddenLocal(tok, arr, at, s.Iterable),
		hiddenLocal(tok, idx, types.Int, &parser.IntegerLiteral{Token: intToken(tok, 0), Value: 0}),
	}
	cond := &parser.InfixExpression{
		Token:    opToken(tok, lexer.LT),
		Operator: "<",
		Left:     ident(tok, idx),
		Right:    &parser.FieldAccess{Token: opToken(tok, lexer.DOT), Target: ident(tok, arr), Name: "length"},
	}
	element := &parser.LocalVariableDeclaration{
		Token: tok,
		Final: s.Final,
		Type:  s.Type,
		Vars: []*parser.VariableDeclarator{{
			Token: nameToken(tok, s.Name),
			Name:  s.Name,
			Init:  &parser.IndexExpression{Token: opToken(tok, lexer.LBRACKET), Left: ident(tok, arr), Index: ident(tok, idx)},
		}},
	}
	step := &parser.ExpressionStatement{
		Token: tok,
		Expression: &parser.AssignmentExpression{
			Token:    opToken(tok, lexer.PLUS_ASSIGN),
			Operator: "+=",
			Target:   ident(tok, idx),
			Value:    &parser.IntegerLiteral{Token: intToken(tok, 1), Value: 1},
		},
	}
	return &parser.LoopStatement{
		Token:     tok,
		Init:      init,
		Condition: cond,
		Body:      prepend(tok, element, s.Body),
		Step:      []parser.Statement{step},
	}
}

// IteratorForEach rewrites for (T x : iterable) body over an Iterable:
//
//	java.util.Iterator $iterN = iterable.iterator();
//	while ($iterN.hasNext()) { T x = (T) $iterN.next(); body }
//
// The cast is left out when T is Object. The step is empty.
func (d *Desugarer) IteratorForEach(s *parser.ForEachStatement, elem types.Type) *parser.LoopStatement {
	tok := s.Token
	iter := fmt.Sprintf("$iter%d", d.next())
	debugPrintf("// [Desugar] iterator for-each at line %d: %s\n", tok.Line, iter)

	start := &parser.MethodCall{Token: nameToken(tok, "iterator"), Target: s.Iterable, Name: "iterator", Arguments: []parser.Expression{}}
	cond := &parser.MethodCall{Token: nameToken(tok, "hasNext"), Target: ident(tok, iter), Name: "hasNext", Arguments: []parser.Expression{}}

	var next parser.Expression = &parser.MethodCall{Token: nameToken(tok, "next"), Target: ident(tok, iter), Name: "next", Arguments: []parser.Expression{}}
	if elem != d.reg.Object {
		castType := *s.Type
		next = &parser.CastExpression{Token: opToken(tok, lexer.LPAREN), Type: &castType, Operand: next}
	}
	element := &parser.LocalVariableDeclaration{
		Token: tok,
		Final: s.Final,
		Type:  s.Type,
		Vars:  []*parser.VariableDeclarator{{Token: nameToken(tok, s.Name), Name: s.Name, Init: next}},
	}
	return &parser.LoopStatement{
		Token:     tok,
		Init:      []parser.Statement{hiddenLocal(tok, iter, d.reg.Iterator, start)},
		Condition: cond,
		Body:      prepend(tok, element, s.Body),
	}
}

// --- node builders ---

func hiddenLocal(tok lexer.Token, name string, t types.Type, init parser.Expression) *parser.LocalVariableDeclaration {
	return &parser.LocalVariableDeclaration{
		Token: tok,
		Type:  &parser.TypeName{Token: tok, Resolved: t},
		Vars:  []*parser.VariableDeclarator{{Token: nameToken(tok, name), Name: name, Init: init}},
	}
}

// prepend builds { first; body }. The body keeps its own block so that its
// declarations live in a scope nested inside the element binding.
func prepend(tok lexer.Token, first, body parser.Statement) *parser.BlockStatement {
	return &parser.BlockStatement{
		Token:      lexer.Token{Type: lexer.LBRACE, Literal: "{", Line: tok.Line, Column: tok.Column},
		Statements: []parser.Statement{first, body},
	}
}

func ident(tok lexer.Token, name string) *parser.Identifier {
	return &parser.Identifier{Token: nameToken(tok, name), Value: name}
}

func nameToken(tok lexer.Token, name string) lexer.Token {
	return lexer.Token{Type: lexer.IDENT, Literal: name, Line: tok.Line, Column: tok.Column}
}

func opToken(tok lexer.Token, t lexer.TokenType) lexer.Token {
	return lexer.Token{Type: t, Literal: string(t), Line: tok.Line, Column: tok.Column}
}

func intToken(tok lexer.Token, v int) lexer.Token {
	return lexer.Token{Type: lexer.INT_LITERAL, Literal: fmt.Sprint(v), Line: tok.Line, Column: tok.Column}
}
