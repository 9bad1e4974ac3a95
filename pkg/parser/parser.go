package parser

import (
	"fmt"
	"math"
	"strconv"

	"jmm/pkg/errors"
	"jmm/pkg/lexer"
	"jmm/pkg/source"
)

// --- Debug Flag ---
const debugParser = false

func debugPrint(format string, args ...interface{}) {
	if debugParser {
		fmt.Printf("[Parser Debug] "+format+"\n", args...)
	}
}

// --- End Debug Flag ---

// maxErrors stops parsing a unit once this many syntax errors accumulated.
const maxErrors = 50

// Parser takes a lexer and builds an AST.
type Parser struct {
	l      *lexer.Lexer
	source *source.SourceFile
	errors []errors.JmmError

	curToken  lexer.Token
	peekToken lexer.Token

	prefixParseFns map[lexer.TokenType]prefixParseFn
	infixParseFns  map[lexer.TokenType]infixParseFn
}

// Parsing functions types for Pratt parser
type (
	prefixParseFn func() Expression
	infixParseFn  func(Expression) Expression // Arg is the left side expression
)

// Precedence levels for operators
const (
	_ int = iota
	LOWEST
	ASSIGNMENT  // = += -= *= /= %= &= |= ^= <<= >>= >>>=
	TERNARY     // ?:
	LOGICAL_OR  // ||
	LOGICAL_AND // &&
	BITWISE_OR  // |
	BITWISE_XOR // ^
	BITWISE_AND // &
	EQUALS      // == !=
	LESSGREATER // < > <= >= instanceof
	SHIFT       // << >> >>>
	SUM         // + -
	PRODUCT     // * / %
	PREFIX      // -X !X ~X ++X --X (T)X
	POSTFIX     // X++ X--
	MEMBER      // a.b a[i] a.m()
)

var precedences = map[lexer.TokenType]int{
	lexer.ASSIGN:         ASSIGNMENT,
	lexer.PLUS_ASSIGN:    ASSIGNMENT,
	lexer.MINUS_ASSIGN:   ASSIGNMENT,
	lexer.STAR_ASSIGN:    ASSIGNMENT,
	lexer.SLASH_ASSIGN:   ASSIGNMENT,
	lexer.PERCENT_ASSIGN: ASSIGNMENT,
	lexer.AMP_ASSIGN:     ASSIGNMENT,
	lexer.PIPE_ASSIGN:    ASSIGNMENT,
	lexer.CARET_ASSIGN:   ASSIGNMENT,
	lexer.SHL_ASSIGN:     ASSIGNMENT,
	lexer.SHR_ASSIGN:     ASSIGNMENT,
	lexer.USHR_ASSIGN:    ASSIGNMENT,

	lexer.QUESTION:    TERNARY,
	lexer.LOGICAL_OR:  LOGICAL_OR,
	lexer.LOGICAL_AND: LOGICAL_AND,
	lexer.PIPE:        BITWISE_OR,
	lexer.CARET:       BITWISE_XOR,
	lexer.AMP:         BITWISE_AND,

	lexer.EQ:     EQUALS,
	lexer.NOT_EQ: EQUALS,

	lexer.LT:         LESSGREATER,
	lexer.GT:         LESSGREATER,
	lexer.LE:         LESSGREATER,
	lexer.GE:         LESSGREATER,
	lexer.INSTANCEOF: LESSGREATER,

	lexer.SHL:  SHIFT,
	lexer.SHR:  SHIFT,
	lexer.USHR: SHIFT,

	lexer.PLUS:    SUM,
	lexer.MINUS:   SUM,
	lexer.STAR:    PRODUCT,
	lexer.SLASH:   PRODUCT,
	lexer.PERCENT: PRODUCT,

	lexer.INC: POSTFIX,
	lexer.DEC: POSTFIX,

	lexer.DOT:      MEMBER,
	lexer.LBRACKET: MEMBER,
}

// NewParser creates a new Parser reading tokens from l. sf is used only to
// attach positions to syntax errors and may be nil.
func NewParser(l *lexer.Lexer, sf *source.SourceFile) *Parser {
	p := &Parser{
		l:      l,
		source: sf,
		errors: []errors.JmmError{},
	}

	p.prefixParseFns = make(map[lexer.TokenType]prefixParseFn)
	p.registerPrefix(lexer.IDENT, p.parseIdentifier)
	p.registerPrefix(lexer.INT_LITERAL, p.parseIntegerLiteral)
	p.registerPrefix(lexer.DOUBLE_LITERAL, p.parseDoubleLiteral)
	p.registerPrefix(lexer.CHAR_LITERAL, p.parseCharLiteral)
	p.registerPrefix(lexer.STRING_LITERAL, p.parseStringLiteral)
	p.registerPrefix(lexer.TRUE, p.parseBooleanLiteral)
	p.registerPrefix(lexer.FALSE, p.parseBooleanLiteral)
	p.registerPrefix(lexer.NULL, p.parseNullLiteral)
	p.registerPrefix(lexer.THIS, p.parseThisExpression)
	p.registerPrefix(lexer.SUPER, p.parseSuperExpression)
	p.registerPrefix(lexer.NEW, p.parseNewExpression)
	p.registerPrefix(lexer.LPAREN, p.parseGroupedOrCast)
	p.registerPrefix(lexer.BANG, p.parsePrefixExpression)
	p.registerPrefix(lexer.MINUS, p.parsePrefixExpression)
	p.registerPrefix(lexer.PLUS, p.parsePrefixExpression)
	p.registerPrefix(lexer.TILDE, p.parsePrefixExpression)
	p.registerPrefix(lexer.INC, p.parsePrefixUpdate)
	p.registerPrefix(lexer.DEC, p.parsePrefixUpdate)

	p.infixParseFns = make(map[lexer.TokenType]infixParseFn)
	for _, t := range []lexer.TokenType{
		lexer.PLUS, lexer.MINUS, lexer.STAR, lexer.SLASH, lexer.PERCENT,
		lexer.EQ, lexer.NOT_EQ, lexer.LT, lexer.GT, lexer.LE, lexer.GE,
		lexer.LOGICAL_AND, lexer.LOGICAL_OR, lexer.AMP, lexer.PIPE, lexer.CARET,
		lexer.SHL, lexer.SHR, lexer.USHR,
	} {
		p.registerInfix(t, p.parseInfixExpression)
	}
	for _, t := range []lexer.TokenType{
		lexer.ASSIGN, lexer.PLUS_ASSIGN, lexer.MINUS_ASSIGN, lexer.STAR_ASSIGN,
		lexer.SLASH_ASSIGN, lexer.PERCENT_ASSIGN, lexer.AMP_ASSIGN, lexer.PIPE_ASSIGN,
		lexer.CARET_ASSIGN, lexer.SHL_ASSIGN, lexer.SHR_ASSIGN, lexer.USHR_ASSIGN,
	} {
		p.registerInfix(t, p.parseAssignmentExpression)
	}
	p.registerInfix(lexer.QUESTION, p.parseConditionalExpression)
	p.registerInfix(lexer.INSTANCEOF, p.parseInstanceOfExpression)
	p.registerInfix(lexer.DOT, p.parseMemberExpression)
	p.registerInfix(lexer.LBRACKET, p.parseIndexExpression)
	p.registerInfix(lexer.INC, p.parsePostfixUpdate)
	p.registerInfix(lexer.DEC, p.parsePostfixUpdate)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

// ParseSource lexes and parses a whole source file.
func ParseSource(sf *source.SourceFile) (*CompilationUnit, []errors.JmmError) {
	p := NewParser(lexer.NewLexer(sf.Content), sf)
	return p.ParseCompilationUnit()
}

// Errors returns the list of parsing errors.
func (p *Parser) Errors() []errors.JmmError {
	return p.errors
}

// nextToken advances the current and peek tokens.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
	if p.curToken.Type == lexer.ILLEGAL {
		p.addError(p.curToken, "illegal token %q", p.curToken.Literal)
	}
	debugPrint("nextToken(): cur='%s' (%s), peek='%s' (%s)", p.curToken.Literal, p.curToken.Type, p.peekToken.Literal, p.peekToken.Type)
}

// parserState is a snapshot used for speculative parsing.
type parserState struct {
	lex       lexer.State
	cur, peek lexer.Token
	nerrs     int
}

func (p *Parser) mark() parserState {
	return parserState{lex: p.l.Save(), cur: p.curToken, peek: p.peekToken, nerrs: len(p.errors)}
}

func (p *Parser) reset(s parserState) {
	p.l.Restore(s.lex)
	p.curToken = s.cur
	p.peekToken = s.peek
	p.errors = p.errors[:s.nerrs]
}

// --- Error helpers ---

func (p *Parser) addError(tok lexer.Token, format string, args ...interface{}) {
	p.errors = append(p.errors, &errors.SyntaxError{
		Position: errors.Position{Line: tok.Line, Column: tok.Column, Source: p.source},
		Msg:      fmt.Sprintf(format, args...),
	})
}

func (p *Parser) peekError(t lexer.TokenType) {
	p.addError(p.peekToken, "expected next token to be %s, got %s instead", t, describe(p.peekToken))
}

func (p *Parser) noPrefixParseFnError(tok lexer.Token) {
	p.addError(tok, "unexpected %s at start of expression", describe(tok))
}

func describe(tok lexer.Token) string {
	if tok.Type == lexer.EOF {
		return "end of file"
	}
	return fmt.Sprintf("%q", tok.Literal)
}

// synchronize skips to the end of the current statement or block so that
// one syntax error does not produce a cascade of others.
func (p *Parser) synchronize() {
	for !p.curTokenIs(lexer.EOF) {
		if p.curTokenIs(lexer.SEMICOLON) || p.curTokenIs(lexer.RBRACE) {
			return
		}
		if p.peekTokenIs(lexer.RBRACE) {
			return
		}
		p.nextToken()
	}
}

func (p *Parser) tooManyErrors() bool {
	return len(p.errors) >= maxErrors
}

// --- Token helpers ---

func (p *Parser) registerPrefix(tokenType lexer.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType lexer.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t lexer.TokenType) bool {
	return p.peekToken.Type == t
}

// expectPeek checks the type of the next token and advances if it matches.
// If it doesn't match, it adds an error.
func (p *Parser) expectPeek(t lexer.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func isPrimitiveKeyword(t lexer.TokenType) bool {
	switch t {
	case lexer.INT, lexer.DOUBLE, lexer.BOOLEAN, lexer.CHAR:
		return true
	}
	return false
}

// --- Types ---

// parseType parses a primitive or qualified class name with trailing []
// pairs. curToken is the first token; on return it is the last.
func (p *Parser) parseType() *TypeName {
	tn := &TypeName{Token: p.curToken}
	switch {
	case isPrimitiveKeyword(p.curToken.Type) || p.curTokenIs(lexer.VOID):
		tn.Name = p.curToken.Literal
	case p.curTokenIs(lexer.IDENT):
		tn.Name = p.curToken.Literal
		for p.peekTokenIs(lexer.DOT) {
			s := p.mark()
			p.nextToken()
			if !p.peekTokenIs(lexer.IDENT) {
				p.reset(s)
				break
			}
			p.nextToken()
			tn.Name += "." + p.curToken.Literal
		}
	default:
		p.addError(p.curToken, "expected a type, got %s", describe(p.curToken))
		return nil
	}
	for p.peekTokenIs(lexer.LBRACKET) {
		s := p.mark()
		p.nextToken()
		if !p.peekTokenIs(lexer.RBRACKET) {
			p.reset(s)
			break
		}
		p.nextToken()
		tn.Dims++
	}
	return tn
}

// startsLocalDeclaration reports whether the statement at curToken is a
// local variable declaration: a type followed by an identifier. It leaves
// the parser where it found it.
func (p *Parser) startsLocalDeclaration() bool {
	if p.curTokenIs(lexer.FINAL) || isPrimitiveKeyword(p.curToken.Type) {
		return true
	}
	if !p.curTokenIs(lexer.IDENT) {
		return false
	}
	s := p.mark()
	defer p.reset(s)
	if p.parseType() == nil {
		return false
	}
	return p.peekTokenIs(lexer.IDENT)
}

// --- Statement Parsing ---

func (p *Parser) parseStatement() Statement {
	debugPrint("parseStatement: cur='%s' (%s), peek='%s' (%s)", p.curToken.Literal, p.curToken.Type, p.peekToken.Literal, p.peekToken.Type)
	switch p.curToken.Type {
	case lexer.LBRACE:
		return p.parseBlockStatement()
	case lexer.SEMICOLON:
		return &EmptyStatement{Token: p.curToken}
	case lexer.IF:
		return p.parseIfStatement()
	case lexer.WHILE:
		return p.parseWhileStatement()
	case lexer.FOR:
		return p.parseForStatement()
	case lexer.RETURN:
		return p.parseReturnStatement()
	case lexer.THROW:
		return p.parseThrowStatement()
	case lexer.TRY:
		return p.parseTryStatement()
	case lexer.BREAK:
		stmt := &BreakStatement{Token: p.curToken}
		if !p.expectPeek(lexer.SEMICOLON) {
			return nil
		}
		return stmt
	case lexer.CONTINUE:
		stmt := &ContinueStatement{Token: p.curToken}
		if !p.expectPeek(lexer.SEMICOLON) {
			return nil
		}
		return stmt
	case lexer.THIS, lexer.SUPER:
		if p.peekTokenIs(lexer.LPAREN) {
			return p.parseConstructorCallStatement()
		}
	}
	if p.startsLocalDeclaration() {
		decl := p.parseLocalVariableDeclaration()
		if decl == nil || !p.expectPeek(lexer.SEMICOLON) {
			return nil
		}
		return decl
	}
	return p.parseExpressionStatement()
}

// parseBlockStatement parses { statements }. curToken is '{'; on return it
// is the matching '}'.
func (p *Parser) parseBlockStatement() *BlockStatement {
	block := &BlockStatement{Token: p.curToken, Statements: []Statement{}}
	p.nextToken() // consume '{'

	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) {
		if p.tooManyErrors() {
			return block
		}
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		} else {
			p.synchronize()
			if p.curTokenIs(lexer.RBRACE) {
				break
			}
		}
		p.nextToken()
	}
	if !p.curTokenIs(lexer.RBRACE) {
		p.addError(p.curToken, "expected '}' to close block opened at line %d", block.Token.Line)
	}
	return block
}

func (p *Parser) parseLocalVariableDeclaration() *LocalVariableDeclaration {
	decl := &LocalVariableDeclaration{Token: p.curToken}
	if p.curTokenIs(lexer.FINAL) {
		decl.Final = true
		p.nextToken()
	}
	decl.Type = p.parseType()
	if decl.Type == nil {
		return nil
	}
	decl.Vars = p.parseVariableDeclarators()
	if decl.Vars == nil {
		return nil
	}
	return decl
}

// parseVariableDeclarators parses name [= init] {, name [= init]}. curToken
// is the last token of the type; on return it is the last token of the
// last declarator.
func (p *Parser) parseVariableDeclarators() []*VariableDeclarator {
	var vars []*VariableDeclarator
	for {
		if !p.expectPeek(lexer.IDENT) {
			return nil
		}
		vd := &VariableDeclarator{Token: p.curToken, Name: p.curToken.Literal}
		for p.peekTokenIs(lexer.LBRACKET) {
			p.nextToken()
			if !p.expectPeek(lexer.RBRACKET) {
				return nil
			}
			vd.Dims++
		}
		if p.peekTokenIs(lexer.ASSIGN) {
			p.nextToken()
			p.nextToken()
			vd.Init = p.parseVariableInitializer()
			if vd.Init == nil {
				return nil
			}
		}
		vars = append(vars, vd)
		if !p.peekTokenIs(lexer.COMMA) {
			return vars
		}
		p.nextToken()
	}
}

func (p *Parser) parseVariableInitializer() Expression {
	if p.curTokenIs(lexer.LBRACE) {
		return p.parseArrayLiteral()
	}
	return p.parseExpression(LOWEST)
}

// parseArrayLiteral parses {e, e, ...}; nested braces are nested literals.
func (p *Parser) parseArrayLiteral() *ArrayLiteral {
	lit := &ArrayLiteral{Token: p.curToken}
	if p.peekTokenIs(lexer.RBRACE) {
		p.nextToken()
		return lit
	}
	for {
		p.nextToken()
		if p.curTokenIs(lexer.RBRACE) { // trailing comma
			return lit
		}
		elem := p.parseVariableInitializer()
		if elem == nil {
			return nil
		}
		lit.Elements = append(lit.Elements, elem)
		if p.peekTokenIs(lexer.COMMA) {
			p.nextToken()
			continue
		}
		if !p.expectPeek(lexer.RBRACE) {
			return nil
		}
		return lit
	}
}

func (p *Parser) parseExpressionStatement() Statement {
	stmt := &ExpressionStatement{Token: p.curToken}
	stmt.Expression = p.parseExpression(LOWEST)
	if stmt.Expression == nil {
		return nil
	}
	if !p.expectPeek(lexer.SEMICOLON) {
		return nil
	}
	return stmt
}

func (p *Parser) parseConstructorCallStatement() Statement {
	call := &ConstructorCall{Token: p.curToken, Super: p.curTokenIs(lexer.SUPER)}
	p.nextToken() // '('
	args, ok := p.parseArguments()
	if !ok {
		return nil
	}
	call.Arguments = args
	stmt := &ExpressionStatement{Token: call.Token, Expression: call}
	if !p.expectPeek(lexer.SEMICOLON) {
		return nil
	}
	return stmt
}

func (p *Parser) parseParenCondition() Expression {
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if cond == nil || !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	return cond
}

func (p *Parser) parseIfStatement() Statement {
	stmt := &IfStatement{Token: p.curToken}
	stmt.Condition = p.parseParenCondition()
	if stmt.Condition == nil {
		return nil
	}
	p.nextToken()
	stmt.Consequence = p.parseStatement()
	if stmt.Consequence == nil {
		return nil
	}
	if p.peekTokenIs(lexer.ELSE) {
		p.nextToken()
		p.nextToken()
		stmt.Alternative = p.parseStatement()
		if stmt.Alternative == nil {
			return nil
		}
	}
	return stmt
}

func (p *Parser) parseWhileStatement() Statement {
	stmt := &WhileStatement{Token: p.curToken}
	stmt.Condition = p.parseParenCondition()
	if stmt.Condition == nil {
		return nil
	}
	p.nextToken()
	stmt.Body = p.parseStatement()
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

// isForEachHeader reports whether the tokens after 'for (' have the shape
// [final] Type name ':'.
func (p *Parser) isForEachHeader() bool {
	s := p.mark()
	defer p.reset(s)
	if p.curTokenIs(lexer.FINAL) {
		p.nextToken()
	}
	if !isPrimitiveKeyword(p.curToken.Type) && !p.curTokenIs(lexer.IDENT) {
		return false
	}
	if p.parseType() == nil || !p.expectPeek(lexer.IDENT) {
		return false
	}
	return p.peekTokenIs(lexer.COLON)
}

func (p *Parser) parseForStatement() Statement {
	tok := p.curToken
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()

	if p.isForEachHeader() {
		return p.parseForEachRest(tok)
	}

	stmt := &ForStatement{Token: tok}
	if !p.curTokenIs(lexer.SEMICOLON) {
		if p.startsLocalDeclaration() {
			decl := p.parseLocalVariableDeclaration()
			if decl == nil {
				return nil
			}
			stmt.Init = []Statement{decl}
		} else {
			init := p.parseStatementExpressionList()
			if init == nil {
				return nil
			}
			stmt.Init = init
		}
		if !p.expectPeek(lexer.SEMICOLON) {
			return nil
		}
	}

	// curToken is the first ';'
	if !p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
		stmt.Condition = p.parseExpression(LOWEST)
		if stmt.Condition == nil {
			return nil
		}
	}
	if !p.expectPeek(lexer.SEMICOLON) {
		return nil
	}

	if !p.peekTokenIs(lexer.RPAREN) {
		p.nextToken()
		update := p.parseStatementExpressionList()
		if update == nil {
			return nil
		}
		stmt.Update = update
	}
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Body = p.parseStatement()
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

// parseStatementExpressionList parses e {, e} as expression statements.
func (p *Parser) parseStatementExpressionList() []Statement {
	var list []Statement
	for {
		tok := p.curToken
		expr := p.parseExpression(LOWEST)
		if expr == nil {
			return nil
		}
		list = append(list, &ExpressionStatement{Token: tok, Expression: expr})
		if !p.peekTokenIs(lexer.COMMA) {
			return list
		}
		p.nextToken()
		p.nextToken()
	}
}

func (p *Parser) parseForEachRest(tok lexer.Token) Statement {
	stmt := &ForEachStatement{Token: tok}
	if p.curTokenIs(lexer.FINAL) {
		stmt.Final = true
		p.nextToken()
	}
	stmt.Type = p.parseType()
	p.nextToken()
	stmt.Name = p.curToken.Literal
	p.nextToken() // ':'
	p.nextToken()
	stmt.Iterable = p.parseExpression(LOWEST)
	if stmt.Iterable == nil || !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Body = p.parseStatement()
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseReturnStatement() Statement {
	stmt := &ReturnStatement{Token: p.curToken}
	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
		return stmt
	}
	p.nextToken()
	stmt.ReturnValue = p.parseExpression(LOWEST)
	if stmt.ReturnValue == nil || !p.expectPeek(lexer.SEMICOLON) {
		return nil
	}
	return stmt
}

func (p *Parser) parseThrowStatement() Statement {
	stmt := &ThrowStatement{Token: p.curToken}
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	if stmt.Value == nil || !p.expectPeek(lexer.SEMICOLON) {
		return nil
	}
	return stmt
}

func (p *Parser) parseTryStatement() Statement {
	stmt := &TryStatement{Token: p.curToken}
	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()

	for p.peekTokenIs(lexer.CATCH) {
		p.nextToken()
		cc := &CatchClause{Token: p.curToken}
		if !p.expectPeek(lexer.LPAREN) {
			return nil
		}
		p.nextToken()
		if p.curTokenIs(lexer.FINAL) {
			p.nextToken()
		}
		cc.Type = p.parseType()
		if cc.Type == nil || !p.expectPeek(lexer.IDENT) {
			return nil
		}
		cc.Name = p.curToken.Literal
		if !p.expectPeek(lexer.RPAREN) || !p.expectPeek(lexer.LBRACE) {
			return nil
		}
		cc.Body = p.parseBlockStatement()
		stmt.Catches = append(stmt.Catches, cc)
	}

	if p.peekTokenIs(lexer.FINALLY) {
		p.nextToken()
		if !p.expectPeek(lexer.LBRACE) {
			return nil
		}
		stmt.Finally = p.parseBlockStatement()
	}

	if len(stmt.Catches) == 0 && stmt.Finally == nil {
		p.addError(stmt.Token, "'try' without 'catch' or 'finally'")
		return nil
	}
	return stmt
}

// --- Expression Parsing (Pratt Parser) ---

func (p *Parser) parseExpression(precedence int) Expression {
	debugPrint("parseExpression(prec=%d): cur='%s' (%s)", precedence, p.curToken.Literal, p.curToken.Type)
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		if p.curToken.Type != lexer.ILLEGAL {
			p.noPrefixParseFnError(p.curToken)
		}
		return nil
	}
	leftExp := prefix()
	if leftExp == nil {
		return nil
	}

	for !p.peekTokenIs(lexer.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
		if leftExp == nil {
			return nil
		}
	}
	return leftExp
}

// -- Prefix Parse Functions --

func (p *Parser) parseIdentifier() Expression {
	ident := &Identifier{Token: p.curToken, Value: p.curToken.Literal}
	if p.peekTokenIs(lexer.LPAREN) {
		p.nextToken()
		args, ok := p.parseArguments()
		if !ok {
			return nil
		}
		return &MethodCall{Token: ident.Token, Name: ident.Value, Arguments: args}
	}
	return ident
}

func (p *Parser) parseIntegerLiteral() Expression {
	lit := &IntegerLiteral{Token: p.curToken}
	v, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
	// 2147483648 is accepted so that -2147483648 can be written.
	if err != nil || v > math.MaxInt32+1 {
		p.addError(p.curToken, "integer literal %s out of range", p.curToken.Literal)
		return nil
	}
	lit.Value = int32(v)
	return lit
}

func (p *Parser) parseDoubleLiteral() Expression {
	lit := &DoubleLiteral{Token: p.curToken}
	v, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.addError(p.curToken, "malformed double literal %s", p.curToken.Literal)
		return nil
	}
	lit.Value = v
	return lit
}

func (p *Parser) parseCharLiteral() Expression {
	r := []rune(p.curToken.Literal)
	return &CharLiteral{Token: p.curToken, Value: r[0]}
}

func (p *Parser) parseStringLiteral() Expression {
	return &StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseBooleanLiteral() Expression {
	return &BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(lexer.TRUE)}
}

func (p *Parser) parseNullLiteral() Expression {
	return &NullLiteral{Token: p.curToken}
}

func (p *Parser) parseThisExpression() Expression {
	return &ThisExpression{Token: p.curToken}
}

func (p *Parser) parseSuperExpression() Expression {
	if !p.peekTokenIs(lexer.DOT) {
		p.addError(p.curToken, "'super' must be followed by a member access")
		return nil
	}
	return &SuperExpression{Token: p.curToken}
}

// parseNewExpression parses new C(args), new T[n]...[] and new T[]{...}.
func (p *Parser) parseNewExpression() Expression {
	tok := p.curToken
	p.nextToken()
	base := &TypeName{Token: p.curToken}
	switch {
	case isPrimitiveKeyword(p.curToken.Type):
		base.Name = p.curToken.Literal
	case p.curTokenIs(lexer.IDENT):
		base.Name = p.curToken.Literal
		for p.peekTokenIs(lexer.DOT) {
			p.nextToken()
			if !p.expectPeek(lexer.IDENT) {
				return nil
			}
			base.Name += "." + p.curToken.Literal
		}
	default:
		p.addError(p.curToken, "expected a type after 'new', got %s", describe(p.curToken))
		return nil
	}

	if p.peekTokenIs(lexer.LPAREN) {
		if isPrimitiveKeyword(base.Token.Type) {
			p.addError(base.Token, "cannot instantiate primitive type %s", base.Name)
			return nil
		}
		p.nextToken()
		args, ok := p.parseArguments()
		if !ok {
			return nil
		}
		return &NewExpression{Token: tok, Type: base, Arguments: args}
	}

	if !p.peekTokenIs(lexer.LBRACKET) {
		p.peekError(lexer.LPAREN)
		return nil
	}
	arr := &NewArrayExpression{Token: tok, Type: base}
	for p.peekTokenIs(lexer.LBRACKET) {
		p.nextToken()
		if p.peekTokenIs(lexer.RBRACKET) {
			p.nextToken()
			arr.ExtraDims++
			continue
		}
		if arr.ExtraDims > 0 {
			p.addError(p.curToken, "sized dimension after unsized dimension")
			return nil
		}
		p.nextToken()
		dim := p.parseExpression(LOWEST)
		if dim == nil || !p.expectPeek(lexer.RBRACKET) {
			return nil
		}
		arr.Dims = append(arr.Dims, dim)
	}
	if len(arr.Dims) == 0 {
		if !p.expectPeek(lexer.LBRACE) {
			return nil
		}
		arr.Init = p.parseArrayLiteral()
		if arr.Init == nil {
			return nil
		}
	}
	return arr
}

// castOperandStart reports whether tok can start the operand of a cast to
// a reference type (a unary expression not beginning with + or -).
func castOperandStart(tok lexer.Token) bool {
	switch tok.Type {
	case lexer.IDENT, lexer.INT_LITERAL, lexer.DOUBLE_LITERAL, lexer.CHAR_LITERAL,
		lexer.STRING_LITERAL, lexer.TRUE, lexer.FALSE, lexer.NULL, lexer.THIS,
		lexer.SUPER, lexer.NEW, lexer.LPAREN, lexer.BANG, lexer.TILDE:
		return true
	}
	return false
}

func (p *Parser) parseGroupedOrCast() Expression {
	tok := p.curToken
	if isPrimitiveKeyword(p.peekToken.Type) || p.peekTokenIs(lexer.IDENT) {
		s := p.mark()
		p.nextToken()
		primitive := isPrimitiveKeyword(p.curToken.Type)
		tn := p.parseType()
		if tn != nil && p.peekTokenIs(lexer.RPAREN) {
			p.nextToken()
			if primitive || castOperandStart(p.peekToken) {
				p.nextToken()
				operand := p.parseExpression(PREFIX)
				if operand == nil {
					return nil
				}
				return &CastExpression{Token: tok, Type: tn, Operand: operand}
			}
		}
		p.reset(s)
	}

	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if exp == nil || !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	return exp
}

func (p *Parser) parsePrefixExpression() Expression {
	expression := &PrefixExpression{Token: p.curToken, Operator: p.curToken.Literal}
	p.nextToken()
	expression.Right = p.parseExpression(PREFIX)
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parsePrefixUpdate() Expression {
	expression := &UpdateExpression{Token: p.curToken, Operator: p.curToken.Literal, Prefix: true}
	p.nextToken()
	expression.Target = p.parseExpression(PREFIX)
	if expression.Target == nil {
		return nil
	}
	return expression
}

// -- Infix Parse Functions --

func (p *Parser) parseInfixExpression(left Expression) Expression {
	expression := &InfixExpression{Token: p.curToken, Operator: p.curToken.Literal, Left: left}
	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}
	return expression
}

// parseAssignmentExpression is right associative: a = b = c.
func (p *Parser) parseAssignmentExpression(left Expression) Expression {
	expression := &AssignmentExpression{Token: p.curToken, Operator: p.curToken.Literal, Target: left}
	p.nextToken()
	expression.Value = p.parseExpression(ASSIGNMENT - 1)
	if expression.Value == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseConditionalExpression(cond Expression) Expression {
	expression := &ConditionalExpression{Token: p.curToken, Condition: cond}
	p.nextToken()
	expression.Consequence = p.parseExpression(LOWEST)
	if expression.Consequence == nil || !p.expectPeek(lexer.COLON) {
		return nil
	}
	p.nextToken()
	expression.Alternative = p.parseExpression(TERNARY - 1)
	if expression.Alternative == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseInstanceOfExpression(left Expression) Expression {
	expression := &InstanceOfExpression{Token: p.curToken, Operand: left}
	p.nextToken()
	expression.Type = p.parseType()
	if expression.Type == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseMemberExpression(left Expression) Expression {
	dot := p.curToken
	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	name := p.curToken
	if p.peekTokenIs(lexer.LPAREN) {
		p.nextToken()
		args, ok := p.parseArguments()
		if !ok {
			return nil
		}
		return &MethodCall{Token: name, Target: left, Name: name.Literal, Arguments: args}
	}
	return &FieldAccess{Token: dot, Target: left, Name: name.Literal}
}

func (p *Parser) parseIndexExpression(left Expression) Expression {
	expression := &IndexExpression{Token: p.curToken, Left: left}
	p.nextToken()
	expression.Index = p.parseExpression(LOWEST)
	if expression.Index == nil || !p.expectPeek(lexer.RBRACKET) {
		return nil
	}
	return expression
}

func (p *Parser) parsePostfixUpdate(left Expression) Expression {
	return &UpdateExpression{Token: p.curToken, Operator: p.curToken.Literal, Target: left}
}

// parseArguments parses (a, b, ...). curToken is '('; on return it is ')'.
func (p *Parser) parseArguments() ([]Expression, bool) {
	args := []Expression{}
	if p.peekTokenIs(lexer.RPAREN) {
		p.nextToken()
		return args, true
	}
	p.nextToken()
	for {
		arg := p.parseExpression(LOWEST)
		if arg == nil {
			return nil, false
		}
		args = append(args, arg)
		if !p.peekTokenIs(lexer.COMMA) {
			break
		}
		p.nextToken()
		p.nextToken()
	}
	if !p.expectPeek(lexer.RPAREN) {
		return nil, false
	}
	return args, true
}
