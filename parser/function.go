package parser

import (
	"github.com/codeassociates/caiman/ast"
	"github.com/codeassociates/caiman/diag"
	"github.com/codeassociates/caiman/lexer"
	"github.com/codeassociates/caiman/symbol"
)

// parseFunctionCall parses a call's argument list; the opening parenthesis
// is already consumed. method is the receiver chain for .name(args) calls,
// nil otherwise.
func (p *Parser) parseFunctionCall(name lexer.Token, method ast.Node) (ast.Node, *diag.Error) {
	pos := p.tokenPos
	var args []ast.Node

	firstArg := false
	for {
		switch {
		case p.peekIs(lexer.RPAREN):
			p.next()
			return &ast.FunctionCall{
				Base:      ast.At(pos),
				Name:      name.Literal,
				Namespace: name.Namespace,
				Method:    method,
				Args:      args,
			}, nil

		case p.peekIs(lexer.COMMA):
			if !firstArg {
				return nil, diag.New(p.tokenPos, "no argument before comma")
			}
			p.next()

		case firstArg:
			return nil, diag.Newf(p.tokenPos,
				"expected a comma or a right parenthesis in %s function call", name.Literal)
		}

		firstArg = true

		p.discardNewlines()
		arg, err := p.parseExpr(AllowStructDeclaration)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
}

// parseFunctionDecl parses a signature and body; the fn keyword is already
// consumed. structName mangles methods and prepends the self argument.
func (p *Parser) parseFunctionDecl(structName string) (*ast.FunctionDecl, *diag.Error) {
	pos := p.tokenPos

	identifier, err := p.expectIdentifier("expected the function name after function declaration")
	if err != nil {
		return nil, err
	}

	fnName := identifier.NamespacedName()
	var typedArgs []symbol.TypedArg

	if structName != "" {
		fnName = symbol.MangleMethod(structName, identifier.Literal)
		typedArgs = append(typedArgs, symbol.TypedArg{
			Name: "self",
			Type: symbol.RefTo(symbol.StructOf(structName)),
		})
	}

	if err := p.expectToken(lexer.LPAREN, "expected a left parenthesis after the function name"); err != nil {
		return nil, err
	}

	firstArg := false
	for {
		if p.peekIs(lexer.RPAREN) {
			p.next()
			break
		}
		if p.peekIs(lexer.COMMA) {
			if !firstArg {
				return nil, diag.New(p.tokenPos, "no argument before comma")
			}
			p.next()
		} else if firstArg {
			return nil, diag.Newf(p.tokenPos,
				"expected a comma or a right parenthesis in %s function declaration", identifier.Literal)
		}
		firstArg = true

		p.discardNewlines()

		argName, err := p.expectIdentifier("expected an argument name in function declaration")
		if err != nil {
			return nil, err
		}
		argType, err := p.parseVarType()
		if err != nil {
			return nil, err
		}
		typedArgs = append(typedArgs, symbol.TypedArg{Name: argName.Literal, Type: argType})
	}

	p.discardNewlines()

	// no return type annotation means void
	var returnType *symbol.Type
	if !p.peekIs(lexer.LBRACE) {
		ret, err := p.parseVarType()
		if err != nil {
			return nil, err
		}
		returnType = &ret
	}

	p.discardNewlines()

	if err := p.expectToken(lexer.LBRACE, "expected a left bracket after function declaration"); err != nil {
		return nil, err
	}

	body, err := p.parseBlock(ast.ScopeFunction, false)
	if err != nil {
		return nil, err
	}

	decl := &symbol.FunctionDecl{Name: fnName, Args: typedArgs, Return: returnType}
	if err := p.registerFnDecl(fnName, decl); err != nil {
		return nil, err
	}

	return &ast.FunctionDecl{Base: ast.At(pos), Name: fnName, Decl: decl, Body: body}, nil
}

// parseStructDecl parses a struct body of fields and methods; the struct
// keyword is already consumed.
func (p *Parser) parseStructDecl() (*ast.StructDecl, *diag.Error) {
	pos := p.tokenPos

	identifier, err := p.expectIdentifier("expected the struct name after struct declaration")
	if err != nil {
		return nil, err
	}
	structName := identifier.NamespacedName()

	if err := p.expectToken(lexer.LBRACE, "expected a left bracket after the struct name"); err != nil {
		return nil, err
	}

	decl := symbol.NewStructDecl(structName)
	node := &ast.StructDecl{Base: ast.At(pos), Decl: decl}

	for {
		p.discardNewlines()

		switch tok := p.next(); tok.Type {
		case lexer.RBRACE:
			if err := p.registerStructDecl(structName, decl); err != nil {
				return nil, err
			}
			return node, nil

		// struct method: fields and methods share one namespace
		case lexer.FN:
			method, err := p.parseFunctionDecl(structName)
			if err != nil {
				return nil, err
			}
			short := method.Name[len(symbol.MangleMethod(structName, "")):]
			if !decl.AddMethod(short) {
				return nil, diag.Newf(p.tokenPos,
					"method %s is already defined as a field in this struct", short)
			}
			node.Methods = append(node.Methods, method)

		case lexer.IDENT:
			fieldType, err := p.parseVarType()
			if err != nil {
				return nil, err
			}
			if !decl.AddField(tok.Literal, fieldType) {
				return nil, diag.Newf(p.tokenPos, "duplicate field %s in struct", tok.Literal)
			}

		default:
			return nil, diag.New(p.tokenPos, "expected a field or a method name")
		}
	}
}
