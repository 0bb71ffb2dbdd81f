package parser

import (
	"strconv"

	"github.com/codeassociates/caiman/ast"
	"github.com/codeassociates/caiman/diag"
	"github.com/codeassociates/caiman/lexer"
	"github.com/codeassociates/caiman/symbol"
)

// parseIdentifier parses an identifier chain: optional leading refs and
// derefs, an identifier, literal or array literal, then any postfix mix of
// field accesses, method calls, function calls and indexing. The ref and
// deref operators apply at the end, outermost first.
func (p *Parser) parseIdentifier(parseType ExprParsingType) (ast.Node, *diag.Error) {
	// collect leading & and * markers; true marks a ref, false a deref
	var refChain []bool
	var refPositions []diag.Pos

	for {
		tok := p.peek()
		if tok.Type == lexer.AMPERSAND {
			refChain = append(refChain, true)
		} else if tok.Type == lexer.MULTIPLY {
			refChain = append(refChain, false)
		} else {
			break
		}
		p.next()
		refPositions = append(refPositions, p.tokenPos)
	}

	var out ast.Node

	switch tok := p.next(); tok.Type {
	case lexer.IDENT:
		switch {
		// function call
		case p.peekIs(lexer.LPAREN):
			p.next()
			call, err := p.parseFunctionCall(tok, nil)
			if err != nil {
				return nil, err
			}
			out = call

		// struct literal
		case p.peekIs(lexer.LBRACE) && parseType == AllowStructDeclaration:
			p.next()
			create, err := p.parseStructCreate(tok)
			if err != nil {
				return nil, err
			}
			if len(refChain) != 0 {
				return nil, diag.New(p.tokenPos, "can't chain on struct creation")
			}
			return create, nil

		default:
			out = &ast.VarCall{Base: ast.At(p.tokenPos), Name: tok.Literal, Namespace: tok.Namespace}
		}

	case lexer.NUM_LIT:
		n, convErr := strconv.ParseInt(tok.Literal, 10, 32)
		if convErr != nil {
			return nil, diag.Newf(p.tokenPos, "cannot parse the number %s", tok.Literal)
		}
		out = &ast.Constant{Base: ast.At(p.tokenPos), Value: symbol.NumLiteral(int32(n))}

	case lexer.FNUM_LIT:
		f, convErr := strconv.ParseFloat(tok.Literal, 32)
		if convErr != nil {
			return nil, diag.Newf(p.tokenPos, "cannot parse the number %s", tok.Literal)
		}
		out = &ast.Constant{Base: ast.At(p.tokenPos), Value: symbol.FnumLiteral(float32(f))}

	case lexer.STR_LIT:
		out = &ast.Constant{Base: ast.At(p.tokenPos), Value: symbol.StrLiteral(tok.Literal)}

	case lexer.BOOL_LIT:
		out = &ast.Constant{Base: ast.At(p.tokenPos), Value: symbol.BoolLiteral(tok.Literal == "true")}

	case lexer.LBRACKET:
		arr, err := p.parseArray()
		if err != nil {
			return nil, err
		}
		out = arr

	default:
		return nil, diag.New(p.tokenPos, "expected an identifier after the dereference operator")
	}

	// postfix chain: .field, .method(args), [index]
	for {
		switch p.peek().Type {
		case lexer.DOT:
			p.next()
			field, err := p.expectIdentifier("expected a field or method name after the dot")
			if err != nil {
				return nil, err
			}

			if p.peekIs(lexer.LPAREN) {
				p.next()
				call, err := p.parseFunctionCall(field, out)
				if err != nil {
					return nil, err
				}
				out = call
			} else {
				out = &ast.DotField{Base: ast.At(p.tokenPos), Child: out, Field: field.Literal}
			}

		case lexer.LBRACKET:
			p.next()
			index, err := p.parseExpr(DenyStructDeclaration)
			if err != nil {
				return nil, err
			}
			if err := p.expectToken(lexer.RBRACKET, "expected right square bracket after accessing an array"); err != nil {
				return nil, err
			}
			out = &ast.ArrayIndex{Base: ast.At(p.tokenPos), Child: out, Index: index}

		default:
			// apply refs and derefs, outermost first
			for i := len(refChain) - 1; i >= 0; i-- {
				if refChain[i] {
					out = &ast.Ref{Base: ast.At(refPositions[i]), Child: out}
				} else {
					out = &ast.Deref{Base: ast.At(refPositions[i]), Child: out}
				}
			}
			return out, nil
		}
	}
}

// parseStructCreate parses a struct literal body; the opening brace is
// already consumed.
func (p *Parser) parseStructCreate(name lexer.Token) (ast.Node, *diag.Error) {
	pos := p.tokenPos
	fields := make(map[string]ast.Node)

	p.discardNewlines()
	for {
		p.discardNewlines()

		if p.peekIs(lexer.RBRACE) {
			p.next()
			break
		}

		fieldName, err := p.expectIdentifier("expected a field name")
		if err != nil {
			return nil, err
		}
		if err := p.expectToken(lexer.COLON, "expected a colon after the field name"); err != nil {
			return nil, err
		}
		fieldExpr, err := p.parseExpr(AllowStructDeclaration)
		if err != nil {
			return nil, err
		}
		if _, dup := fields[fieldName.Literal]; dup {
			return nil, diag.Newf(p.tokenPos, "duplicate field %s in struct literal", fieldName.Literal)
		}
		fields[fieldName.Literal] = fieldExpr

		if p.peekIs(lexer.COMMA) {
			p.next()
		}
	}

	return &ast.StructCreate{
		Base:      ast.At(pos),
		Name:      name.Literal,
		Namespace: name.Namespace,
		Fields:    fields,
	}, nil
}
