package parser

import (
	"bytes"
	"fmt"
	"strings"

	"jmm/pkg/lexer"
	"jmm/pkg/source"
	"jmm/pkg/types"
)

// --- Interfaces ---

// Node is the base interface for all AST nodes.
type Node interface {
	TokenLiteral() string // Returns the literal value of the token associated with the node
	String() string       // Returns a string representation of the node (for debugging)
	Line() int            // Source line the node starts on
}

// Statement represents a statement node in the AST.
type Statement interface {
	Node
	statementNode() // Dummy method for distinguishing statement types
}

// Expression represents an expression node in the AST.
type Expression interface {
	Node
	expressionNode() // Dummy method for distinguishing expression types
	GetComputedType() types.Type
	SetComputedType(t types.Type)
}

// Member represents a class or interface body member.
type Member interface {
	Node
	memberNode()
}

// --- Base struct for Expressions to hold ComputedType ---
type BaseExpression struct {
	ComputedType types.Type
}

func (be *BaseExpression) GetComputedType() types.Type {
	return be.ComputedType
}

func (be *BaseExpression) SetComputedType(t types.Type) {
	be.ComputedType = t
}
func (be *BaseExpression) expressionNode() {}

// --- Compilation Unit ---

// CompilationUnit is the root node of one source file.
type CompilationUnit struct {
	Token   lexer.Token
	Source  *source.SourceFile
	Package string   // dotted package name, "" for the default package
	Imports []string // dotted names; on-demand imports end in ".*"
	Types   []*ClassDeclaration
}

func (cu *CompilationUnit) TokenLiteral() string { return cu.Token.Literal }
func (cu *CompilationUnit) Line() int            { return cu.Token.Line }
func (cu *CompilationUnit) String() string {
	var out bytes.Buffer
	if cu.Package != "" {
		out.WriteString("package " + cu.Package + ";\n")
	}
	for _, imp := range cu.Imports {
		out.WriteString("import " + imp + ";\n")
	}
	for _, t := range cu.Types {
		out.WriteString(t.String())
		out.WriteString("\n")
	}
	return out.String()
}

// --- Declarations ---

// TypeName is a written type reference: a primitive keyword or a possibly
// qualified class name, followed by Dims pairs of brackets. The checker
// stores the resolved handle in Resolved; a TypeName built with Resolved
// already set is taken as is.
type TypeName struct {
	Token    lexer.Token
	Name     string
	Dims     int
	Resolved types.Type
}

func (tn *TypeName) TokenLiteral() string { return tn.Token.Literal }
func (tn *TypeName) Line() int            { return tn.Token.Line }
func (tn *TypeName) String() string {
	if tn.Name == "" && tn.Resolved != nil {
		return tn.Resolved.String()
	}
	return tn.Name + strings.Repeat("[]", tn.Dims)
}

// ClassDeclaration is a class or, when Interface is set, an interface.
// For an interface Super is nil and Interfaces holds the extends list.
type ClassDeclaration struct {
	Token      lexer.Token
	Modifiers  types.Modifiers
	Name       string
	Interface  bool
	Super      *TypeName
	Interfaces []*TypeName
	Members    []Member

	Type *types.ClassType // set in the declaration pass

	// Slot high-water marks of the synthesized initializer methods: static
	// field initializers and static blocks, and instance field initializers
	// and instance blocks.
	StaticInitLocals   int
	InstanceInitLocals int
}

func (cd *ClassDeclaration) TokenLiteral() string { return cd.Token.Literal }
func (cd *ClassDeclaration) Line() int            { return cd.Token.Line }
func (cd *ClassDeclaration) String() string {
	var out bytes.Buffer
	if cd.Modifiers != 0 {
		out.WriteString(cd.Modifiers.String() + " ")
	}
	if cd.Interface {
		out.WriteString("interface ")
	} else {
		out.WriteString("class ")
	}
	out.WriteString(cd.Name)
	if cd.Super != nil {
		out.WriteString(" extends " + cd.Super.String())
	}
	if len(cd.Interfaces) > 0 {
		names := make([]string, len(cd.Interfaces))
		for i, tn := range cd.Interfaces {
			names[i] = tn.String()
		}
		if cd.Interface {
			out.WriteString(" extends ")
		} else {
			out.WriteString(" implements ")
		}
		out.WriteString(strings.Join(names, ", "))
	}
	out.WriteString(" {\n")
	for _, m := range cd.Members {
		out.WriteString("  " + m.String() + "\n")
	}
	out.WriteString("}")
	return out.String()
}

// VariableDeclarator is one name in a field or local declaration.
type VariableDeclarator struct {
	Token lexer.Token
	Name  string
	Dims  int        // extra brackets after the name: int a[]
	Init  Expression // may be nil; may be an *ArrayLiteral

	Type types.Type // resolved declared type
	Slot int        // local slot; unused for fields
}

func (vd *VariableDeclarator) TokenLiteral() string { return vd.Token.Literal }
func (vd *VariableDeclarator) Line() int            { return vd.Token.Line }
func (vd *VariableDeclarator) String() string {
	s := vd.Name + strings.Repeat("[]", vd.Dims)
	if vd.Init != nil {
		s += " = " + vd.Init.String()
	}
	return s
}

func declaratorsString(vars []*VariableDeclarator) string {
	parts := make([]string, len(vars))
	for i, v := range vars {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

// FieldDeclaration declares one or more fields of the same base type.
type FieldDeclaration struct {
	Token     lexer.Token
	Modifiers types.Modifiers
	Type      *TypeName
	Vars      []*VariableDeclarator
}

func (fd *FieldDeclaration) memberNode()          {}
func (fd *FieldDeclaration) TokenLiteral() string { return fd.Token.Literal }
func (fd *FieldDeclaration) Line() int            { return fd.Token.Line }
func (fd *FieldDeclaration) String() string {
	mods := ""
	if fd.Modifiers != 0 {
		mods = fd.Modifiers.String() + " "
	}
	return fmt.Sprintf("%s%s %s;", mods, fd.Type, declaratorsString(fd.Vars))
}

// Parameter is a formal parameter of a method or constructor.
type Parameter struct {
	Token lexer.Token
	Final bool
	Type  *TypeName
	Name  string
	Slot  int
}

func (p *Parameter) TokenLiteral() string { return p.Token.Literal }
func (p *Parameter) Line() int            { return p.Token.Line }
func (p *Parameter) String() string       { return p.Type.String() + " " + p.Name }

func paramsString(params []*Parameter) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}

func throwsString(throws []*TypeName) string {
	if len(throws) == 0 {
		return ""
	}
	parts := make([]string, len(throws))
	for i, t := range throws {
		parts[i] = t.String()
	}
	return " throws " + strings.Join(parts, ", ")
}

// MethodDeclaration is a method; Body is nil for abstract and interface
// methods.
type MethodDeclaration struct {
	Token      lexer.Token
	Modifiers  types.Modifiers
	ReturnType *TypeName
	Name       string
	Params     []*Parameter
	Throws     []*TypeName
	Body       *BlockStatement

	Method    *types.Method // set in the signature pass
	MaxLocals int           // set in the body pass
}

func (md *MethodDeclaration) memberNode()          {}
func (md *MethodDeclaration) TokenLiteral() string { return md.Token.Literal }
func (md *MethodDeclaration) Line() int            { return md.Token.Line }
func (md *MethodDeclaration) String() string {
	mods := ""
	if md.Modifiers != 0 {
		mods = md.Modifiers.String() + " "
	}
	s := fmt.Sprintf("%s%s %s(%s)%s", mods, md.ReturnType, md.Name, paramsString(md.Params), throwsString(md.Throws))
	if md.Body == nil {
		return s + ";"
	}
	return s + " " + md.Body.String()
}

// ConstructorDeclaration is an explicit constructor, or one synthesized by
// the checker when a class declares none.
type ConstructorDeclaration struct {
	Token     lexer.Token
	Modifiers types.Modifiers
	Name      string
	Params    []*Parameter
	Throws    []*TypeName
	Body      *BlockStatement
	Implicit  bool // synthesized default constructor

	Method    *types.Method
	MaxLocals int
}

func (cd *ConstructorDeclaration) memberNode()          {}
func (cd *ConstructorDeclaration) TokenLiteral() string { return cd.Token.Literal }
func (cd *ConstructorDeclaration) Line() int            { return cd.Token.Line }
func (cd *ConstructorDeclaration) String() string {
	mods := ""
	if cd.Modifiers != 0 {
		mods = cd.Modifiers.String() + " "
	}
	return fmt.Sprintf("%s%s(%s)%s %s", mods, cd.Name, paramsString(cd.Params), throwsString(cd.Throws), cd.Body)
}

// InitializerBlock is a static or instance initializer: static { ... }.
type InitializerBlock struct {
	Token  lexer.Token
	Static bool
	Body   *BlockStatement

	MaxLocals int
}

func (ib *InitializerBlock) memberNode()          {}
func (ib *InitializerBlock) TokenLiteral() string { return ib.Token.Literal }
func (ib *InitializerBlock) Line() int            { return ib.Token.Line }
func (ib *InitializerBlock) String() string {
	if ib.Static {
		return "static " + ib.Body.String()
	}
	return ib.Body.String()
}

// --- Statement Nodes ---

// BlockStatement represents a block of statements enclosed in braces.
type BlockStatement struct {
	Token      lexer.Token // The { token
	Statements []Statement
}

func (bs *BlockStatement) statementNode()       {}
func (bs *BlockStatement) TokenLiteral() string { return bs.Token.Literal }
func (bs *BlockStatement) Line() int            { return bs.Token.Line }
func (bs *BlockStatement) String() string {
	var out bytes.Buffer
	out.WriteString("{ ")
	for _, s := range bs.Statements {
		out.WriteString(s.String())
		out.WriteString(" ")
	}
	out.WriteString("}")
	return out.String()
}

// LocalVariableDeclaration declares one or more locals of the same base type.
type LocalVariableDeclaration struct {
	Token lexer.Token
	Final bool
	Type  *TypeName
	Vars  []*VariableDeclarator
}

func (lv *LocalVariableDeclaration) statementNode()       {}
func (lv *LocalVariableDeclaration) TokenLiteral() string { return lv.Token.Literal }
func (lv *LocalVariableDeclaration) Line() int            { return lv.Token.Line }
func (lv *LocalVariableDeclaration) String() string {
	prefix := ""
	if lv.Final {
		prefix = "final "
	}
	return fmt.Sprintf("%s%s %s;", prefix, lv.Type, declaratorsString(lv.Vars))
}

// ExpressionStatement represents a statement consisting of a single expression.
type ExpressionStatement struct {
	Token      lexer.Token // The first token of the expression
	Expression Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Literal }
func (es *ExpressionStatement) Line() int            { return es.Token.Line }
func (es *ExpressionStatement) String() string {
	if es.Expression != nil {
		return es.Expression.String() + ";"
	}
	return ";"
}

// EmptyStatement is a lone semicolon.
type EmptyStatement struct {
	Token lexer.Token
}

func (es *EmptyStatement) statementNode()       {}
func (es *EmptyStatement) TokenLiteral() string { return es.Token.Literal }
func (es *EmptyStatement) Line() int            { return es.Token.Line }
func (es *EmptyStatement) String() string       { return ";" }

// IfStatement represents an if/else statement.
type IfStatement struct {
	Token       lexer.Token // The 'if' token
	Condition   Expression
	Consequence Statement
	Alternative Statement // may be nil
}

func (is *IfStatement) statementNode()       {}
func (is *IfStatement) TokenLiteral() string { return is.Token.Literal }
func (is *IfStatement) Line() int            { return is.Token.Line }
func (is *IfStatement) String() string {
	s := "if (" + is.Condition.String() + ") " + is.Consequence.String()
	if is.Alternative != nil {
		s += " else " + is.Alternative.String()
	}
	return s
}

// WhileStatement represents a while loop. Canonical is filled in by the
// checker with the loop it desugars into.
type WhileStatement struct {
	Token     lexer.Token
	Condition Expression
	Body      Statement

	Canonical *LoopStatement
}

func (ws *WhileStatement) statementNode()       {}
func (ws *WhileStatement) TokenLiteral() string { return ws.Token.Literal }
func (ws *WhileStatement) Line() int            { return ws.Token.Line }
func (ws *WhileStatement) String() string {
	return "while (" + ws.Condition.String() + ") " + ws.Body.String()
}

// ForStatement represents a counted for loop. Init holds local declarations
// or expression statements; Condition may be nil.
type ForStatement struct {
	Token     lexer.Token
	Init      []Statement
	Condition Expression
	Update    []Statement
	Body      Statement

	Canonical *LoopStatement
}

func (fs *ForStatement) statementNode()       {}
func (fs *ForStatement) TokenLiteral() string { return fs.Token.Literal }
func (fs *ForStatement) Line() int            { return fs.Token.Line }
func (fs *ForStatement) String() string {
	var out bytes.Buffer
	out.WriteString("for (")
	for i, s := range fs.Init {
		if i > 0 {
			out.WriteString(" ")
		}
		out.WriteString(strings.TrimSuffix(s.String(), ";"))
	}
	out.WriteString("; ")
	if fs.Condition != nil {
		out.WriteString(fs.Condition.String())
	}
	out.WriteString("; ")
	for i, s := range fs.Update {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(strings.TrimSuffix(s.String(), ";"))
	}
	out.WriteString(") ")
	out.WriteString(fs.Body.String())
	return out.String()
}

// ForEachStatement represents for (T x : iterable) body.
type ForEachStatement struct {
	Token    lexer.Token
	Final    bool
	Type     *TypeName
	Name     string
	Iterable Expression
	Body     Statement

	Canonical *LoopStatement
}

func (fe *ForEachStatement) statementNode()       {}
func (fe *ForEachStatement) TokenLiteral() string { return fe.Token.Literal }
func (fe *ForEachStatement) Line() int            { return fe.Token.Line }
func (fe *ForEachStatement) String() string {
	return fmt.Sprintf("for (%s %s : %s) %s", fe.Type, fe.Name, fe.Iterable, fe.Body)
}

// LoopStatement is the canonical loop every surface loop is rewritten into:
//
//	Init; L1: if !Condition goto L2; Body; Step; goto L1; L2:
//
// A nil Condition means true. continue jumps to Step.
type LoopStatement struct {
	Token     lexer.Token
	Init      []Statement
	Condition Expression
	Body      Statement
	Step      []Statement
}

func (ls *LoopStatement) statementNode()       {}
func (ls *LoopStatement) TokenLiteral() string { return ls.Token.Literal }
func (ls *LoopStatement) Line() int            { return ls.Token.Line }
func (ls *LoopStatement) String() string {
	var out bytes.Buffer
	out.WriteString("loop {")
	for _, s := range ls.Init {
		out.WriteString(" " + s.String())
	}
	out.WriteString(" while (")
	if ls.Condition != nil {
		out.WriteString(ls.Condition.String())
	} else {
		out.WriteString("true")
	}
	out.WriteString(") " + ls.Body.String())
	if len(ls.Step) > 0 {
		out.WriteString(" step {")
		for _, s := range ls.Step {
			out.WriteString(" " + s.String())
		}
		out.WriteString(" }")
	}
	out.WriteString(" }")
	return out.String()
}

// BreakStatement represents a `break` statement.
type BreakStatement struct {
	Token lexer.Token
}

func (bs *BreakStatement) statementNode()       {}
func (bs *BreakStatement) TokenLiteral() string { return bs.Token.Literal }
func (bs *BreakStatement) Line() int            { return bs.Token.Line }
func (bs *BreakStatement) String() string       { return "break;" }

// ContinueStatement represents a `continue` statement.
type ContinueStatement struct {
	Token lexer.Token
}

func (cs *ContinueStatement) statementNode()       {}
func (cs *ContinueStatement) TokenLiteral() string { return cs.Token.Literal }
func (cs *ContinueStatement) Line() int            { return cs.Token.Line }
func (cs *ContinueStatement) String() string       { return "continue;" }

// ReturnStatement represents a `return` statement.
type ReturnStatement struct {
	Token       lexer.Token // The 'return' token
	ReturnValue Expression  // nil for a bare return
}

func (rs *ReturnStatement) statementNode()       {}
func (rs *ReturnStatement) TokenLiteral() string { return rs.Token.Literal }
func (rs *ReturnStatement) Line() int            { return rs.Token.Line }
func (rs *ReturnStatement) String() string {
	if rs.ReturnValue != nil {
		return "return " + rs.ReturnValue.String() + ";"
	}
	return "return;"
}

// ThrowStatement represents a `throw` statement.
type ThrowStatement struct {
	Token lexer.Token
	Value Expression
}

func (ts *ThrowStatement) statementNode()       {}
func (ts *ThrowStatement) TokenLiteral() string { return ts.Token.Literal }
func (ts *ThrowStatement) Line() int            { return ts.Token.Line }
func (ts *ThrowStatement) String() string       { return "throw " + ts.Value.String() + ";" }

// CatchClause is one catch (T name) { ... } handler.
type CatchClause struct {
	Token lexer.Token
	Type  *TypeName
	Name  string
	Body  *BlockStatement

	Slot      int
	Throwable bool // set by the checker when Type resolved to a throwable type
}

func (cc *CatchClause) TokenLiteral() string { return cc.Token.Literal }
func (cc *CatchClause) Line() int            { return cc.Token.Line }
func (cc *CatchClause) String() string {
	return fmt.Sprintf("catch (%s %s) %s", cc.Type, cc.Name, cc.Body)
}

// TryStatement represents try/catch/finally. Finally may be nil; at least
// one of Catches or Finally is present.
type TryStatement struct {
	Token   lexer.Token
	Body    *BlockStatement
	Catches []*CatchClause
	Finally *BlockStatement
}

func (ts *TryStatement) statementNode()       {}
func (ts *TryStatement) TokenLiteral() string { return ts.Token.Literal }
func (ts *TryStatement) Line() int            { return ts.Token.Line }
func (ts *TryStatement) String() string {
	var out bytes.Buffer
	out.WriteString("try " + ts.Body.String())
	for _, c := range ts.Catches {
		out.WriteString(" " + c.String())
	}
	if ts.Finally != nil {
		out.WriteString(" finally " + ts.Finally.String())
	}
	return out.String()
}

// --- Expression Nodes ---

// Identifier is a simple name. After analysis it always denotes a local
// variable or parameter; field and type names are rewritten into
// FieldAccess and TypeExpression nodes.
type Identifier struct {
	BaseExpression
	Token lexer.Token
	Value string

	Slot int
}

func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) Line() int            { return i.Token.Line }
func (i *Identifier) String() string       { return i.Value }

// IntegerLiteral represents an int literal.
type IntegerLiteral struct {
	BaseExpression
	Token lexer.Token
	Value int32
}

func (il *IntegerLiteral) TokenLiteral() string { return il.Token.Literal }
func (il *IntegerLiteral) Line() int            { return il.Token.Line }
func (il *IntegerLiteral) String() string       { return fmt.Sprintf("%d", il.Value) }

// DoubleLiteral represents a double literal.
type DoubleLiteral struct {
	BaseExpression
	Token lexer.Token
	Value float64
}

func (dl *DoubleLiteral) TokenLiteral() string { return dl.Token.Literal }
func (dl *DoubleLiteral) Line() int            { return dl.Token.Line }
func (dl *DoubleLiteral) String() string       { return dl.Token.Literal }

// CharLiteral represents a char literal.
type CharLiteral struct {
	BaseExpression
	Token lexer.Token
	Value rune
}

func (cl *CharLiteral) TokenLiteral() string { return cl.Token.Literal }
func (cl *CharLiteral) Line() int            { return cl.Token.Line }
func (cl *CharLiteral) String() string       { return fmt.Sprintf("%q", cl.Value) }

// StringLiteral represents a string literal.
type StringLiteral struct {
	BaseExpression
	Token lexer.Token
	Value string
}

func (sl *StringLiteral) TokenLiteral() string { return sl.Token.Literal }
func (sl *StringLiteral) Line() int            { return sl.Token.Line }
func (sl *StringLiteral) String() string       { return fmt.Sprintf("%q", sl.Value) }

// BooleanLiteral represents true or false.
type BooleanLiteral struct {
	BaseExpression
	Token lexer.Token
	Value bool
}

func (bl *BooleanLiteral) TokenLiteral() string { return bl.Token.Literal }
func (bl *BooleanLiteral) Line() int            { return bl.Token.Line }
func (bl *BooleanLiteral) String() string       { return bl.Token.Literal }

// NullLiteral represents null.
type NullLiteral struct {
	BaseExpression
	Token lexer.Token
}

func (nl *NullLiteral) TokenLiteral() string { return nl.Token.Literal }
func (nl *NullLiteral) Line() int            { return nl.Token.Line }
func (nl *NullLiteral) String() string       { return "null" }

// ThisExpression represents `this`, written or implied by an unqualified
// instance member reference.
type ThisExpression struct {
	BaseExpression
	Token    lexer.Token
	Implicit bool
}

func (te *ThisExpression) TokenLiteral() string { return te.Token.Literal }
func (te *ThisExpression) Line() int            { return te.Token.Line }
func (te *ThisExpression) String() string {
	if te.Implicit {
		return ""
	}
	return "this"
}

// SuperExpression represents `super` as the target of a field access or
// method call.
type SuperExpression struct {
	BaseExpression
	Token lexer.Token
}

func (se *SuperExpression) TokenLiteral() string { return se.Token.Literal }
func (se *SuperExpression) Line() int            { return se.Token.Line }
func (se *SuperExpression) String() string       { return "super" }

// TypeExpression is a class name used as the qualifier of a static member
// access. It is produced by the checker, never by the parser.
type TypeExpression struct {
	BaseExpression
	Token lexer.Token
	Type  *types.ClassType
}

func (te *TypeExpression) TokenLiteral() string { return te.Token.Literal }
func (te *TypeExpression) Line() int            { return te.Token.Line }
func (te *TypeExpression) String() string       { return te.Type.Name }

// FieldAccess represents target.name. Target is nil for an unqualified
// static field.
type FieldAccess struct {
	BaseExpression
	Token  lexer.Token // The '.' token or the field name
	Target Expression
	Name   string

	Field *types.Field
}

func (fa *FieldAccess) TokenLiteral() string { return fa.Token.Literal }
func (fa *FieldAccess) Line() int            { return fa.Token.Line }
func (fa *FieldAccess) String() string {
	if fa.Target == nil || fa.Target.String() == "" {
		return fa.Name
	}
	return fa.Target.String() + "." + fa.Name
}

// ArrayLength represents array.length.
type ArrayLength struct {
	BaseExpression
	Token lexer.Token
	Array Expression
}

func (al *ArrayLength) TokenLiteral() string { return al.Token.Literal }
func (al *ArrayLength) Line() int            { return al.Token.Line }
func (al *ArrayLength) String() string       { return al.Array.String() + ".length" }

// MethodCall represents [target.]name(arguments). Target is nil for an
// unqualified call.
type MethodCall struct {
	BaseExpression
	Token     lexer.Token // The method name token
	Target    Expression
	Name      string
	Arguments []Expression

	Method *types.Method
}

func (mc *MethodCall) TokenLiteral() string { return mc.Token.Literal }
func (mc *MethodCall) Line() int            { return mc.Token.Line }
func (mc *MethodCall) String() string {
	prefix := ""
	if mc.Target != nil && mc.Target.String() != "" {
		prefix = mc.Target.String() + "."
	}
	return prefix + mc.Name + "(" + expressionsString(mc.Arguments) + ")"
}

// ConstructorCall is an explicit this(...) or super(...) invocation at the
// start of a constructor body.
type ConstructorCall struct {
	BaseExpression
	Token     lexer.Token
	Super     bool
	Arguments []Expression

	Method *types.Method
}

func (cc *ConstructorCall) TokenLiteral() string { return cc.Token.Literal }
func (cc *ConstructorCall) Line() int            { return cc.Token.Line }
func (cc *ConstructorCall) String() string {
	return cc.Token.Literal + "(" + expressionsString(cc.Arguments) + ")"
}

// NewExpression represents new Type(arguments).
type NewExpression struct {
	BaseExpression
	Token     lexer.Token
	Type      *TypeName
	Arguments []Expression

	Constructor *types.Method
}

func (ne *NewExpression) TokenLiteral() string { return ne.Token.Literal }
func (ne *NewExpression) Line() int            { return ne.Token.Line }
func (ne *NewExpression) String() string {
	return "new " + ne.Type.String() + "(" + expressionsString(ne.Arguments) + ")"
}

// NewArrayExpression represents new T[d1][d2]...[] with optional trailing
// unsized dimensions, or new T[]{...} when Init is set.
type NewArrayExpression struct {
	BaseExpression
	Token     lexer.Token
	Type      *TypeName // element base type, Dims unused
	Dims      []Expression
	ExtraDims int
	Init      *ArrayLiteral
}

func (na *NewArrayExpression) TokenLiteral() string { return na.Token.Literal }
func (na *NewArrayExpression) Line() int            { return na.Token.Line }
func (na *NewArrayExpression) String() string {
	var out bytes.Buffer
	out.WriteString("new " + na.Type.Name)
	for _, d := range na.Dims {
		out.WriteString("[" + d.String() + "]")
	}
	out.WriteString(strings.Repeat("[]", na.ExtraDims))
	if na.Init != nil {
		out.WriteString(na.Init.String())
	}
	return out.String()
}

// ArrayLiteral is an array initializer {e1, e2, ...}.
type ArrayLiteral struct {
	BaseExpression
	Token    lexer.Token
	Elements []Expression
}

func (al *ArrayLiteral) TokenLiteral() string { return al.Token.Literal }
func (al *ArrayLiteral) Line() int            { return al.Token.Line }
func (al *ArrayLiteral) String() string       { return "{" + expressionsString(al.Elements) + "}" }

// IndexExpression represents array[index].
type IndexExpression struct {
	BaseExpression
	Token lexer.Token // The '[' token
	Left  Expression
	Index Expression
}

func (ie *IndexExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *IndexExpression) Line() int            { return ie.Token.Line }
func (ie *IndexExpression) String() string {
	return ie.Left.String() + "[" + ie.Index.String() + "]"
}

// AssignmentExpression represents target op= value for every assignment
// operator.
type AssignmentExpression struct {
	BaseExpression
	Token    lexer.Token // The assignment operator token
	Operator string
	Target   Expression
	Value    Expression
}

func (ae *AssignmentExpression) TokenLiteral() string { return ae.Token.Literal }
func (ae *AssignmentExpression) Line() int            { return ae.Token.Line }
func (ae *AssignmentExpression) String() string {
	return ae.Target.String() + " " + ae.Operator + " " + ae.Value.String()
}

// UpdateExpression represents ++x, --x, x++ and x--.
type UpdateExpression struct {
	BaseExpression
	Token    lexer.Token
	Operator string // "++" or "--"
	Prefix   bool
	Target   Expression
}

func (ue *UpdateExpression) TokenLiteral() string { return ue.Token.Literal }
func (ue *UpdateExpression) Line() int            { return ue.Token.Line }
func (ue *UpdateExpression) String() string {
	if ue.Prefix {
		return "(" + ue.Operator + ue.Target.String() + ")"
	}
	return "(" + ue.Target.String() + ue.Operator + ")"
}

// PrefixExpression represents a unary operator: - + ! ~.
type PrefixExpression struct {
	BaseExpression
	Token    lexer.Token
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) TokenLiteral() string { return pe.Token.Literal }
func (pe *PrefixExpression) Line() int            { return pe.Token.Line }
func (pe *PrefixExpression) String() string {
	return "(" + pe.Operator + pe.Right.String() + ")"
}

// InfixExpression represents a binary operator, including && and ||.
type InfixExpression struct {
	BaseExpression
	Token    lexer.Token
	Operator string
	Left     Expression
	Right    Expression
}

func (ie *InfixExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *InfixExpression) Line() int            { return ie.Token.Line }
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Operator + " " + ie.Right.String() + ")"
}

// ConditionalExpression represents cond ? a : b.
type ConditionalExpression struct {
	BaseExpression
	Token       lexer.Token
	Condition   Expression
	Consequence Expression
	Alternative Expression
}

func (ce *ConditionalExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *ConditionalExpression) Line() int            { return ce.Token.Line }
func (ce *ConditionalExpression) String() string {
	return "(" + ce.Condition.String() + " ? " + ce.Consequence.String() + " : " + ce.Alternative.String() + ")"
}

// CastExpression represents (Type) operand.
type CastExpression struct {
	BaseExpression
	Token   lexer.Token
	Type    *TypeName
	Operand Expression
}

func (ce *CastExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *CastExpression) Line() int            { return ce.Token.Line }
func (ce *CastExpression) String() string {
	return "((" + ce.Type.String() + ") " + ce.Operand.String() + ")"
}

// InstanceOfExpression represents operand instanceof Type.
type InstanceOfExpression struct {
	BaseExpression
	Token   lexer.Token
	Operand Expression
	Type    *TypeName
}

func (ie *InstanceOfExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *InstanceOfExpression) Line() int            { return ie.Token.Line }
func (ie *InstanceOfExpression) String() string {
	return "(" + ie.Operand.String() + " instanceof " + ie.Type.String() + ")"
}

// ConversionExpression is an implicit primitive widening inserted by the
// checker, e.g. int to double for mixed arithmetic.
type ConversionExpression struct {
	BaseExpression
	Token   lexer.Token
	Operand Expression
	To      types.Type
}

func (ce *ConversionExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *ConversionExpression) Line() int            { return ce.Token.Line }
func (ce *ConversionExpression) String() string {
	return ce.Operand.String()
}

// ConcatExpression is string concatenation, produced by the checker from
// + and += when either operand is a String. Operands are flattened.
type ConcatExpression struct {
	BaseExpression
	Token    lexer.Token
	Operands []Expression
}

func (ce *ConcatExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *ConcatExpression) Line() int            { return ce.Token.Line }
func (ce *ConcatExpression) String() string {
	parts := make([]string, len(ce.Operands))
	for i, o := range ce.Operands {
		parts[i] = o.String()
	}
	return "(" + strings.Join(parts, " + ") + ")"
}

func expressionsString(exprs []Expression) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
