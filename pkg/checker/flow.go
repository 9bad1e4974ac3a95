package checker

import "jmm/pkg/parser"

// CompletesNormally reports whether control can reach the end of s. The
// analysis is conservative in the same direction as Java's reachability
// rules: only return, throw, break, continue and loops without an exit end
// a path.
func CompletesNormally(s parser.Statement) bool {
	switch n := s.(type) {
	case nil:
		return true
	case *parser.ReturnStatement, *parser.ThrowStatement, *parser.BreakStatement, *parser.ContinueStatement:
		return false
	case *parser.BlockStatement:
		if n == nil {
			return true
		}
		for _, st := range n.Statements {
			if !CompletesNormally(st) {
				return false
			}
		}
		return true
	case *parser.IfStatement:
		if n.Alternative == nil {
			return true
		}
		return CompletesNormally(n.Consequence) || CompletesNormally(n.Alternative)
	case *parser.LoopStatement:
		if n == nil {
			return true
		}
		if !isConstantTrue(n.Condition) {
			return true
		}
		return breaksOut(n.Body)
	case *parser.WhileStatement:
		if n.Canonical != nil {
			return CompletesNormally(n.Canonical)
		}
		return !isConstantTrue(n.Condition) || breaksOut(n.Body)
	case *parser.ForStatement:
		if n.Canonical != nil {
			return CompletesNormally(n.Canonical)
		}
		return !isConstantTrue(n.Condition) || breaksOut(n.Body)
	case *parser.ForEachStatement:
		return true
	case *parser.TryStatement:
		if n.Finally != nil && !CompletesNormally(n.Finally) {
			return false
		}
		if CompletesNormally(n.Body) {
			return true
		}
		for _, cc := range n.Catches {
			if CompletesNormally(cc.Body) {
				return true
			}
		}
		return false
	}
	return true
}

// isConstantTrue reports whether a loop condition is absent or the literal
// true.
func isConstantTrue(e parser.Expression) bool {
	if e == nil {
		return true
	}
	b, ok := e.(*parser.BooleanLiteral)
	return ok && b.Value
}

// breaksOut reports whether s contains a break that leaves the loop whose
// body s is. Breaks inside nested loops belong to those loops.
func breaksOut(s parser.Statement) bool {
	switch n := s.(type) {
	case *parser.BreakStatement:
		return true
	case *parser.BlockStatement:
		if n == nil {
			return false
		}
		for _, st := range n.Statements {
			if breaksOut(st) {
				return true
			}
		}
	case *parser.IfStatement:
		return breaksOut(n.Consequence) || n.Alternative != nil && breaksOut(n.Alternative)
	case *parser.TryStatement:
		if breaksOut(n.Body) {
			return true
		}
		for _, cc := range n.Catches {
			if breaksOut(cc.Body) {
				return true
			}
		}
		return n.Finally != nil && breaksOut(n.Finally)
	}
	return false
}
