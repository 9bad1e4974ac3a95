package parser

import (
	"jmm/pkg/errors"
	"jmm/pkg/lexer"
	"jmm/pkg/types"
)

// ParseCompilationUnit parses the entire input and returns the root node and
// any errors.
// Syntax: [package Name;] {import Name[.*];} {TypeDeclaration}
func (p *Parser) ParseCompilationUnit() (*CompilationUnit, []errors.JmmError) {
	cu := &CompilationUnit{Token: p.curToken, Source: p.source}

	if p.curTokenIs(lexer.PACKAGE) {
		p.nextToken()
		name, ok := p.parseQualifiedName(false)
		if ok && p.expectPeek(lexer.SEMICOLON) {
			cu.Package = name
		}
		p.nextToken()
	}

	for p.curTokenIs(lexer.IMPORT) {
		p.nextToken()
		name, ok := p.parseQualifiedName(true)
		if ok && p.expectPeek(lexer.SEMICOLON) {
			cu.Imports = append(cu.Imports, name)
		} else {
			p.synchronize()
		}
		p.nextToken()
	}

	for !p.curTokenIs(lexer.EOF) && !p.tooManyErrors() {
		if p.curTokenIs(lexer.SEMICOLON) {
			p.nextToken()
			continue
		}
		decl := p.parseTypeDeclaration()
		if decl != nil {
			cu.Types = append(cu.Types, decl)
		} else {
			// Skip to the next plausible type declaration.
			p.nextToken()
			for !p.curTokenIs(lexer.EOF) && !p.curTokenIs(lexer.CLASS) && !p.curTokenIs(lexer.INTERFACE) {
				p.nextToken()
			}
			continue
		}
		p.nextToken()
	}

	return cu, p.errors
}

// parseQualifiedName parses a.b.c, and a.b.* when wildcard is allowed.
func (p *Parser) parseQualifiedName(wildcard bool) (string, bool) {
	if !p.curTokenIs(lexer.IDENT) {
		p.addError(p.curToken, "expected a name, got %s", describe(p.curToken))
		return "", false
	}
	name := p.curToken.Literal
	for p.peekTokenIs(lexer.DOT) {
		p.nextToken()
		if wildcard && p.peekTokenIs(lexer.STAR) {
			p.nextToken()
			return name + ".*", true
		}
		if !p.expectPeek(lexer.IDENT) {
			return "", false
		}
		name += "." + p.curToken.Literal
	}
	return name, true
}

// parseModifiers consumes modifier keywords starting at curToken and leaves
// curToken on the first non-modifier token.
func (p *Parser) parseModifiers() types.Modifiers {
	var mods types.Modifiers
	for {
		m, ok := types.ParseModifier(p.curToken.Literal)
		if !ok || p.curTokenIs(lexer.IDENT) {
			return mods
		}
		if mods.Has(m) {
			p.addError(p.curToken, "repeated modifier %s", p.curToken.Literal)
		}
		mods |= m
		p.nextToken()
	}
}

// parseTypeDeclaration parses a class or interface declaration.
// Syntax: Modifiers class Name [extends T] [implements T, ...] { body }
//
//	Modifiers interface Name [extends T, ...] { body }
func (p *Parser) parseTypeDeclaration() *ClassDeclaration {
	mods := p.parseModifiers()
	decl := &ClassDeclaration{Token: p.curToken, Modifiers: mods}

	switch {
	case p.curTokenIs(lexer.CLASS):
	case p.curTokenIs(lexer.INTERFACE):
		decl.Interface = true
	default:
		p.addError(p.curToken, "expected 'class' or 'interface', got %s", describe(p.curToken))
		return nil
	}

	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	decl.Name = p.curToken.Literal

	if p.peekTokenIs(lexer.EXTENDS) {
		p.nextToken()
		if decl.Interface {
			decl.Interfaces = p.parseTypeList()
			if decl.Interfaces == nil {
				return nil
			}
		} else {
			p.nextToken()
			decl.Super = p.parseType()
			if decl.Super == nil {
				return nil
			}
		}
	}
	if !decl.Interface && p.peekTokenIs(lexer.IMPLEMENTS) {
		p.nextToken()
		decl.Interfaces = p.parseTypeList()
		if decl.Interfaces == nil {
			return nil
		}
	}

	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	members, ok := p.parseClassBody(decl)
	if !ok {
		return nil
	}
	decl.Members = members
	return decl
}

// parseTypeList parses T {, T}. curToken is the keyword before the list.
func (p *Parser) parseTypeList() []*TypeName {
	var list []*TypeName
	for {
		p.nextToken()
		tn := p.parseType()
		if tn == nil {
			return nil
		}
		list = append(list, tn)
		if !p.peekTokenIs(lexer.COMMA) {
			return list
		}
		p.nextToken()
	}
}

// parseClassBody parses members until the closing brace. curToken is '{';
// on return it is '}'.
func (p *Parser) parseClassBody(decl *ClassDeclaration) ([]Member, bool) {
	var members []Member
	p.nextToken()
	for !p.curTokenIs(lexer.RBRACE) {
		if p.curTokenIs(lexer.EOF) {
			p.addError(p.curToken, "expected '}' to close %s", decl.Name)
			return nil, false
		}
		if p.tooManyErrors() {
			return nil, false
		}
		if p.curTokenIs(lexer.SEMICOLON) {
			p.nextToken()
			continue
		}
		m := p.parseMember(decl)
		if m != nil {
			members = append(members, m)
		} else {
			p.synchronize()
			if p.curTokenIs(lexer.RBRACE) && p.peekTokenIs(lexer.EOF) {
				break
			}
		}
		p.nextToken()
	}
	return members, true
}

// parseMember parses one field, method, constructor or initializer block.
func (p *Parser) parseMember(decl *ClassDeclaration) Member {
	if p.curTokenIs(lexer.LBRACE) || p.curTokenIs(lexer.STATIC) && p.peekTokenIs(lexer.LBRACE) {
		tok := p.curToken
		static := p.curTokenIs(lexer.STATIC)
		if static {
			p.nextToken()
		}
		block := &InitializerBlock{Token: tok, Static: static, Body: p.parseBlockStatement()}
		if decl.Interface {
			p.addError(tok, "interface %s cannot have initializer blocks", decl.Name)
		}
		return block
	}

	start := p.curToken
	mods := p.parseModifiers()

	// Constructor: Name(
	if p.curTokenIs(lexer.IDENT) && p.curToken.Literal == decl.Name && p.peekTokenIs(lexer.LPAREN) {
		if decl.Interface {
			p.addError(p.curToken, "interface %s cannot have constructors", decl.Name)
		}
		ctor := &ConstructorDeclaration{Token: start, Modifiers: mods, Name: decl.Name}
		p.nextToken()
		params, ok := p.parseParameters()
		if !ok {
			return nil
		}
		ctor.Params = params
		ctor.Throws, ok = p.parseThrows()
		if !ok || !p.expectPeek(lexer.LBRACE) {
			return nil
		}
		ctor.Body = p.parseBlockStatement()
		return ctor
	}

	typ := p.parseType()
	if typ == nil {
		return nil
	}
	afterType := p.mark()
	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	nameTok := p.curToken

	if p.peekTokenIs(lexer.LPAREN) {
		md := &MethodDeclaration{Token: start, Modifiers: mods, ReturnType: typ, Name: nameTok.Literal}
		p.nextToken()
		params, ok := p.parseParameters()
		if !ok {
			return nil
		}
		md.Params = params
		md.Throws, ok = p.parseThrows()
		if !ok {
			return nil
		}
		bodyless := decl.Interface || mods.Has(types.Abstract)
		if p.peekTokenIs(lexer.SEMICOLON) {
			p.nextToken()
			if !bodyless {
				p.addError(nameTok, "missing body for method %s", md.Name)
				return nil
			}
			return md
		}
		if !p.expectPeek(lexer.LBRACE) {
			return nil
		}
		body := p.parseBlockStatement()
		if bodyless {
			p.addError(nameTok, "abstract method %s cannot have a body", md.Name)
			return md
		}
		md.Body = body
		return md
	}

	if typ.Name == "void" {
		p.addError(typ.Token, "field %s cannot have type void", nameTok.Literal)
		return nil
	}
	fd := &FieldDeclaration{Token: start, Modifiers: mods, Type: typ}
	p.reset(afterType)
	fd.Vars = p.parseVariableDeclarators()
	if fd.Vars == nil || !p.expectPeek(lexer.SEMICOLON) {
		return nil
	}
	return fd
}

// parseParameters parses (T a, final T b). curToken is '('; on return ')'.
func (p *Parser) parseParameters() ([]*Parameter, bool) {
	params := []*Parameter{}
	if p.peekTokenIs(lexer.RPAREN) {
		p.nextToken()
		return params, true
	}
	for {
		p.nextToken()
		param := &Parameter{Token: p.curToken}
		if p.curTokenIs(lexer.FINAL) {
			param.Final = true
			p.nextToken()
		}
		param.Type = p.parseType()
		if param.Type == nil || !p.expectPeek(lexer.IDENT) {
			return nil, false
		}
		param.Name = p.curToken.Literal
		for p.peekTokenIs(lexer.LBRACKET) {
			p.nextToken()
			if !p.expectPeek(lexer.RBRACKET) {
				return nil, false
			}
			param.Type.Dims++
		}
		params = append(params, param)
		if !p.peekTokenIs(lexer.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(lexer.RPAREN) {
		return nil, false
	}
	return params, true
}

// parseThrows parses an optional throws list after a parameter list.
func (p *Parser) parseThrows() ([]*TypeName, bool) {
	if !p.peekTokenIs(lexer.THROWS) {
		return nil, true
	}
	p.nextToken()
	list := p.parseTypeList()
	return list, list != nil
}
