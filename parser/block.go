package parser

import (
	"github.com/codeassociates/caiman/ast"
	"github.com/codeassociates/caiman/diag"
	"github.com/codeassociates/caiman/lexer"
)

// parseBlock parses statements until a closing brace or end of stream. It
// consumes the closing brace but never the opening one. Top level allows
// declarations and imports; control flow and returns are body-only.
func (p *Parser) parseBlock(scope ast.BlockScope, isTopLevel bool) (*ast.Block, *diag.Error) {
	block := &ast.Block{Base: ast.At(p.tokenPos), Scope: scope}

	for {
		tok := p.peek()

		switch tok.Type {
		case lexer.EOF:
			return block, nil

		case lexer.RBRACE:
			p.next()
			return block, nil

		case lexer.NEWLINE, lexer.SEMICOLON:
			p.next()

		case lexer.LET:
			stmt, err := p.parseVarDecl()
			if err != nil {
				return nil, err
			}
			block.Children = append(block.Children, stmt)

		case lexer.IDENT, lexer.MULTIPLY:
			stmt, err := p.parseAssignOrCall()
			if err != nil {
				return nil, err
			}
			block.Children = append(block.Children, stmt)

		case lexer.STRUCT:
			p.next()
			if !isTopLevel {
				return nil, diag.New(p.tokenPos, "structs can only be declared at top level")
			}
			stmt, err := p.parseStructDecl()
			if err != nil {
				return nil, err
			}
			block.Children = append(block.Children, stmt)

		case lexer.FN:
			p.next()
			if !isTopLevel {
				return nil, diag.New(p.tokenPos, "functions can only be declared at top level")
			}
			stmt, err := p.parseFunctionDecl("")
			if err != nil {
				return nil, err
			}
			block.Children = append(block.Children, stmt)

		case lexer.RETURN:
			p.next()
			if isTopLevel {
				return nil, diag.New(p.tokenPos, "can't return a value outside of a function")
			}
			pos := p.tokenPos
			expr, err := p.parseExpr(AllowStructDeclaration)
			if err != nil {
				return nil, err
			}
			if _, isVoid := expr.(*ast.Void); isVoid {
				expr = nil
			}
			block.Children = append(block.Children, &ast.Return{Base: ast.At(pos), Expr: expr})

		case lexer.IF:
			p.next()
			if isTopLevel {
				return nil, diag.New(p.tokenPos, "cannot use a if outside a function").
					WithHint("add a main function")
			}
			stmt, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			block.Children = append(block.Children, stmt)

		case lexer.WHILE:
			p.next()
			if isTopLevel {
				return nil, diag.New(p.tokenPos, "cannot use a while outside a function").
					WithHint("add a main function")
			}
			pos := p.tokenPos
			cond, err := p.parseExpr(DenyStructDeclaration)
			if err != nil {
				return nil, err
			}
			if err := p.expectToken(lexer.LBRACE, "expected a left bracket after while expression"); err != nil {
				return nil, err
			}
			body, err := p.parseBlock(ast.ScopeNew, false)
			if err != nil {
				return nil, err
			}
			block.Children = append(block.Children, &ast.While{Base: ast.At(pos), Cond: cond, Body: body})

		case lexer.BREAK:
			p.next()
			if isTopLevel {
				return nil, diag.New(p.tokenPos, "cannot break outside a loop")
			}
			block.Children = append(block.Children, &ast.Break{Base: ast.At(p.tokenPos)})

		case lexer.CONTINUE:
			p.next()
			if isTopLevel {
				return nil, diag.New(p.tokenPos, "cannot continue outside a loop")
			}
			block.Children = append(block.Children, &ast.Continue{Base: ast.At(p.tokenPos)})

		case lexer.IMPORT:
			p.next()
			if !isTopLevel {
				return nil, diag.New(p.tokenPos, "imports can only be declared at top level")
			}
			pos := p.tokenPos
			name, err := p.expectStr("expected a str after the import keyword")
			if err != nil {
				return nil, err
			}
			block.Children = append(block.Children, &ast.Import{Base: ast.At(pos), Name: name})

		case lexer.ELIF, lexer.ELSE:
			return nil, diag.Newf(p.tokenPos, "unexpected %s without a matching if", tok.Literal)

		default:
			return nil, diag.Newf(tok.Pos, "unexpected token: %s", tok.Type)
		}
	}
}

// parseVarDecl parses a let statement: a name, then at least one of a type
// annotation and an initializer expression.
func (p *Parser) parseVarDecl() (ast.Node, *diag.Error) {
	p.next() // let
	pos := p.tokenPos

	identifier, err := p.expectIdentifier("expected a variable name after the let keyword")
	if err != nil {
		return nil, err
	}

	decl := &ast.VarDecl{Base: ast.At(pos), Name: identifier.NamespacedName()}

	switch tok := p.peek(); {
	case tok.Type == lexer.ASSIGN:
		p.next()
		init, err := p.parseExpr(AllowStructDeclaration)
		if err != nil {
			return nil, err
		}
		decl.Init = init
		return decl, nil

	case isTypeStart(tok.Type):
		annotated, err := p.parseVarType()
		if err != nil {
			return nil, err
		}
		decl.DeclType = &annotated

	case tok.Type == lexer.NEWLINE || tok.Type == lexer.EOF:
		return nil, diag.Newf(p.tokenPos, "cannot infer the variable type of %s", identifier.Literal)

	default:
		return nil, diag.Newf(p.tokenPos, "expected an equals sign after %s", identifier.Literal)
	}

	// an annotated declaration may still carry an initializer
	switch tok := p.next(); tok.Type {
	case lexer.ASSIGN:
		init, err := p.parseExpr(AllowStructDeclaration)
		if err != nil {
			return nil, err
		}
		decl.Init = init
	case lexer.NEWLINE, lexer.EOF:
	default:
		return nil, diag.Newf(p.tokenPos, "expected an equals sign after %s", identifier.Literal)
	}

	return decl, nil
}

// parseAssignOrCall parses an lvalue chain and either finishes it into an
// assignment (desugaring compound operators) or keeps the chain as a
// statement expression.
func (p *Parser) parseAssignOrCall() (ast.Node, *diag.Error) {
	lvalue, err := p.parseIdentifier(AllowStructDeclaration)
	if err != nil {
		return nil, err
	}

	tok := p.peek()
	if !tok.IsAssignOp() {
		return lvalue, nil
	}
	p.next()
	pos := p.tokenPos

	expr, err := p.parseExpr(AllowStructDeclaration)
	if err != nil {
		return nil, err
	}

	if tok.Type == lexer.ASSIGN {
		return &ast.Assignment{Base: ast.At(pos), Lvalue: lvalue, Expr: expr}, nil
	}

	// x += e desugars to x = x + e; the lvalue node is shared by both
	// sides, which is safe since evaluation never mutates nodes
	var op ast.Node
	switch tok.CompoundBase() {
	case lexer.PLUS:
		op = &ast.Plus{Base: ast.At(pos), Left: lvalue, Right: expr}
	case lexer.MINUS:
		op = &ast.Minus{Base: ast.At(pos), Left: lvalue, Right: expr}
	case lexer.MULTIPLY:
		op = &ast.Multiplicate{Base: ast.At(pos), Left: lvalue, Right: expr}
	case lexer.DIVIDE:
		op = &ast.Divide{Base: ast.At(pos), Left: lvalue, Right: expr}
	case lexer.POWER:
		op = &ast.Power{Base: ast.At(pos), Left: lvalue, Right: expr}
	}

	return &ast.Assignment{Base: ast.At(pos), Lvalue: lvalue, Expr: op}, nil
}

// parseIf parses an if / elif* / else? construct into parallel condition
// and body lists; a trailing extra body is the else branch.
func (p *Parser) parseIf() (ast.Node, *diag.Error) {
	pos := p.tokenPos
	node := &ast.If{Base: ast.At(pos)}

	cond, err := p.parseExpr(DenyStructDeclaration)
	if err != nil {
		return nil, err
	}
	if err := p.expectToken(lexer.LBRACE, "expected left bracket after if expression"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock(ast.ScopeNew, false)
	if err != nil {
		return nil, err
	}
	node.Conditions = append(node.Conditions, cond)
	node.Bodies = append(node.Bodies, body)

	for {
		switch p.peek().Type {
		case lexer.ELIF:
			p.next()
			cond, err := p.parseExpr(DenyStructDeclaration)
			if err != nil {
				return nil, err
			}
			if err := p.expectToken(lexer.LBRACE, "expected left bracket after elif expression"); err != nil {
				return nil, err
			}
			body, err := p.parseBlock(ast.ScopeNew, false)
			if err != nil {
				return nil, err
			}
			node.Conditions = append(node.Conditions, cond)
			node.Bodies = append(node.Bodies, body)

		case lexer.ELSE:
			p.next()
			if err := p.expectToken(lexer.LBRACE, "expected left bracket after else expression"); err != nil {
				return nil, err
			}
			body, err := p.parseBlock(ast.ScopeNew, false)
			if err != nil {
				return nil, err
			}
			node.Bodies = append(node.Bodies, body)
			return node, nil

		default:
			return node, nil
		}
	}
}

func isTypeStart(t lexer.TokenType) bool {
	switch t {
	case lexer.NUM_TYPE, lexer.FNUM_TYPE, lexer.STR_TYPE, lexer.BOOL_TYPE,
		lexer.IDENT, lexer.AMPERSAND, lexer.LBRACKET:
		return true
	}
	return false
}
