package parser

import (
	"github.com/codeassociates/caiman/diag"
	"github.com/codeassociates/caiman/lexer"
	"github.com/codeassociates/caiman/symbol"
)

// parseVarType parses a type annotation: str, num, fnum, bool, &T, [T] or
// a struct name (possibly dotted when it comes from an import).
func (p *Parser) parseVarType() (symbol.Type, *diag.Error) {
	switch tok := p.next(); tok.Type {
	case lexer.STR_TYPE:
		return symbol.StrType(), nil
	case lexer.NUM_TYPE:
		return symbol.NumType(), nil
	case lexer.FNUM_TYPE:
		return symbol.FnumType(), nil
	case lexer.BOOL_TYPE:
		return symbol.BoolType(), nil

	case lexer.AMPERSAND:
		pointee, err := p.parseVarType()
		if err != nil {
			return symbol.Type{}, err
		}
		return symbol.RefTo(pointee), nil

	case lexer.IDENT:
		name := tok.NamespacedName()
		// module-qualified struct name, e.g. shapes.Circle
		if p.peekIs(lexer.DOT) {
			p.next()
			qualified, err := p.expectIdentifier("expected a struct name after the module prefix")
			if err != nil {
				return symbol.Type{}, err
			}
			name = tok.Literal + "." + qualified.Literal
		}
		return symbol.StructOf(name), nil

	case lexer.LBRACKET:
		elem, err := p.parseVarType()
		if err != nil {
			return symbol.Type{}, err
		}
		if err := p.expectToken(lexer.RBRACKET, "expected a right bracket to close the array type"); err != nil {
			return symbol.Type{}, err
		}
		return symbol.ArrayOf(elem), nil
	}

	return symbol.Type{}, diag.New(p.tokenPos, "invalid variable type")
}
