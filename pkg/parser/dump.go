package parser

import (
	"fmt"
	"io"
	"strings"
)

// TreeWriter observes a tree walk. WriteNode is called for every node in
// pre-order with its depth below the root. Implementations must not mutate
// the nodes they are given.
type TreeWriter interface {
	WriteNode(n Node, depth int)
}

// Walk visits n and its descendants, reporting each to w. Surface loops
// that have been desugared are followed by their canonical form.
func Walk(n Node, w TreeWriter) {
	walk(n, w, 0)
}

func walk(n Node, w TreeWriter, depth int) {
	if n == nil {
		return
	}
	w.WriteNode(n, depth)
	for _, c := range Children(n) {
		walk(c, w, depth+1)
	}
}

// Children returns the direct children of n in source order.
func Children(n Node) []Node {
	var out []Node
	add := func(nodes ...Node) {
		for _, c := range nodes {
			if c != nil && !isNilNode(c) {
				out = append(out, c)
			}
		}
	}
	addStmts := func(stmts []Statement) {
		for _, s := range stmts {
			add(s)
		}
	}
	addExprs := func(exprs []Expression) {
		for _, e := range exprs {
			add(e)
		}
	}

	switch node := n.(type) {
	case *CompilationUnit:
		for _, t := range node.Types {
			add(t)
		}
	case *ClassDeclaration:
		for _, m := range node.Members {
			add(m)
		}
	case *FieldDeclaration:
		for _, v := range node.Vars {
			add(v)
		}
	case *VariableDeclarator:
		add(node.Init)
	case *MethodDeclaration:
		for _, p := range node.Params {
			add(p)
		}
		add(node.Body)
	case *ConstructorDeclaration:
		for _, p := range node.Params {
			add(p)
		}
		add(node.Body)
	case *InitializerBlock:
		add(node.Body)
	case *BlockStatement:
		addStmts(node.Statements)
	case *LocalVariableDeclaration:
		for _, v := range node.Vars {
			add(v)
		}
	case *ExpressionStatement:
		add(node.Expression)
	case *IfStatement:
		add(node.Condition, node.Consequence, node.Alternative)
	case *WhileStatement:
		if node.Canonical != nil {
			add(node.Canonical)
		} else {
			add(node.Condition, node.Body)
		}
	case *ForStatement:
		if node.Canonical != nil {
			add(node.Canonical)
		} else {
			addStmts(node.Init)
			add(node.Condition)
			addStmts(node.Update)
			add(node.Body)
		}
	case *ForEachStatement:
		if node.Canonical != nil {
			add(node.Canonical)
		} else {
			add(node.Iterable, node.Body)
		}
	case *LoopStatement:
		addStmts(node.Init)
		add(node.Condition, node.Body)
		addStmts(node.Step)
	case *ReturnStatement:
		add(node.ReturnValue)
	case *ThrowStatement:
		add(node.Value)
	case *TryStatement:
		add(node.Body)
		for _, c := range node.Catches {
			add(c)
		}
		add(node.Finally)
	case *CatchClause:
		add(node.Body)
	case *FieldAccess:
		add(node.Target)
	case *ArrayLength:
		add(node.Array)
	case *MethodCall:
		add(node.Target)
		addExprs(node.Arguments)
	case *ConstructorCall:
		addExprs(node.Arguments)
	case *NewExpression:
		addExprs(node.Arguments)
	case *NewArrayExpression:
		addExprs(node.Dims)
		add(node.Init)
	case *ArrayLiteral:
		addExprs(node.Elements)
	case *IndexExpression:
		add(node.Left, node.Index)
	case *AssignmentExpression:
		add(node.Target, node.Value)
	case *UpdateExpression:
		add(node.Target)
	case *PrefixExpression:
		add(node.Right)
	case *InfixExpression:
		add(node.Left, node.Right)
	case *ConditionalExpression:
		add(node.Condition, node.Consequence, node.Alternative)
	case *CastExpression:
		add(node.Operand)
	case *InstanceOfExpression:
		add(node.Operand)
	case *ConversionExpression:
		add(node.Operand)
	case *ConcatExpression:
		addExprs(node.Operands)
	case *Parameter, *TypeName, *EmptyStatement, *BreakStatement, *ContinueStatement,
		*Identifier, *IntegerLiteral, *DoubleLiteral, *CharLiteral, *StringLiteral,
		*BooleanLiteral, *NullLiteral, *ThisExpression, *SuperExpression, *TypeExpression:
		// leaves
	default:
		panic(fmt.Sprintf("parser: Children: unhandled node %T", n))
	}
	return out
}

// isNilNode catches typed nil pointers stored in interface fields.
func isNilNode(n Node) bool {
	switch v := n.(type) {
	case *BlockStatement:
		return v == nil
	case *ArrayLiteral:
		return v == nil
	case *LoopStatement:
		return v == nil
	}
	return false
}

// --- Pretty printer ---

type dumper struct {
	out io.Writer
}

func (d *dumper) WriteNode(n Node, depth int) {
	fmt.Fprintf(d.out, "%s%s\n", strings.Repeat("  ", depth), describeNode(n))
}

// DumpAST writes an indented outline of the tree rooted at n to out, one
// node per line with its source line and, for analyzed expressions, its
// type.
func DumpAST(out io.Writer, n Node) {
	Walk(n, &dumper{out: out})
}

func describeNode(n Node) string {
	name := strings.TrimPrefix(fmt.Sprintf("%T", n), "*parser.")
	var detail string
	switch node := n.(type) {
	case *CompilationUnit:
		detail = node.Package
	case *ClassDeclaration:
		detail = node.Name
		if node.Super != nil {
			detail += " extends " + node.Super.String()
		}
	case *MethodDeclaration:
		detail = fmt.Sprintf("%s %s", node.ReturnType, node.Name)
	case *ConstructorDeclaration:
		detail = node.Name
		if node.Implicit {
			detail += " (implicit)"
		}
	case *InitializerBlock:
		if node.Static {
			detail = "static"
		}
	case *FieldDeclaration:
		detail = node.Type.String()
	case *LocalVariableDeclaration:
		detail = node.Type.String()
	case *VariableDeclarator:
		detail = node.Name
	case *Parameter:
		detail = node.String()
	case *CatchClause:
		detail = node.Type.String() + " " + node.Name
	case *Identifier:
		detail = node.Value
	case *FieldAccess:
		detail = node.Name
	case *MethodCall:
		detail = node.Name
	case *InfixExpression:
		detail = node.Operator
	case *PrefixExpression:
		detail = node.Operator
	case *AssignmentExpression:
		detail = node.Operator
	case *UpdateExpression:
		detail = node.Operator
	case *IntegerLiteral, *DoubleLiteral, *CharLiteral, *StringLiteral, *BooleanLiteral:
		detail = n.String()
	case *NewExpression:
		detail = node.Type.String()
	case *CastExpression:
		detail = node.Type.String()
	case *InstanceOfExpression:
		detail = node.Type.String()
	case *TypeExpression:
		detail = node.Type.Name
	}

	s := fmt.Sprintf("%s line=%d", name, n.Line())
	if detail != "" {
		s += " " + detail
	}
	if e, ok := n.(Expression); ok && e.GetComputedType() != nil {
		s += " : " + e.GetComputedType().String()
	}
	return s
}
