package parser

import (
	"github.com/codeassociates/caiman/ast"
	"github.com/codeassociates/caiman/diag"
	"github.com/codeassociates/caiman/lexer"
)

// parseArray parses an array literal; the opening square bracket is
// already consumed. Element types are checked at evaluation time, since
// the parser cannot know the type of an arbitrary element expression.
func (p *Parser) parseArray() (ast.Node, *diag.Error) {
	pos := p.tokenPos
	var elems []ast.Node

	for {
		if p.peekIs(lexer.RBRACKET) {
			p.next()
			break
		}

		elem, err := p.parseExpr(AllowStructDeclaration)
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
		p.discardNewlines()

		switch tok := p.next(); tok.Type {
		case lexer.COMMA:
		case lexer.RBRACKET:
			return &ast.ArrayCreate{Base: ast.At(pos), Elems: elems}, nil
		default:
			return nil, diag.New(p.tokenPos, "unexpected token in array declaration")
		}
	}

	return &ast.ArrayCreate{Base: ast.At(pos), Elems: elems}, nil
}
