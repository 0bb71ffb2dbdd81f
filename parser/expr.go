package parser

import (
	"github.com/codeassociates/caiman/ast"
	"github.com/codeassociates/caiman/diag"
	"github.com/codeassociates/caiman/lexer"
	"github.com/codeassociates/caiman/symbol"
)

// Operator precedence, low to high. Higher binds tighter.
var precedences = map[lexer.TokenType]int{
	lexer.OR:          1,
	lexer.AND:         2,
	lexer.EQ:          3,
	lexer.NEQ:         3,
	lexer.GE:          4,
	lexer.GT:          4,
	lexer.LE:          4,
	lexer.LT:          4,
	lexer.PLUS:        5,
	lexer.MINUS:       5,
	lexer.MULTIPLY:    6,
	lexer.DIVIDE:      6,
	lexer.UNARY_MINUS: 7,
	lexer.BANG:        7,
	lexer.POWER:       8,
	lexer.AS:          9,
}

// leftAssociative operators pop equal-precedence operators off the stack.
var leftAssociative = map[lexer.TokenType]bool{
	lexer.DIVIDE: true,
	lexer.MINUS:  true,
	lexer.POWER:  true,
	lexer.GE:     true,
	lexer.GT:     true,
	lexer.LE:     true,
	lexer.LT:     true,
}

// parseExpr parses one expression with the shunting-yard algorithm. The
// expression ends at a newline, comma, curly bracket, right square
// bracket, or a right parenthesis that closes no parenthesis of ours. An
// empty expression yields a Void node.
func (p *Parser) parseExpr(parseType ExprParsingType) (ast.Node, *diag.Error) {
	var stack []lexer.Token
	var output []ast.Node

	parenthesisOpened := 0

	// a leading minus is unary; the flag flips after every operand and
	// closes after `(`
	isUnary := true

loop:
	for {
		tok := p.peek()

		switch {
		case tok.Type == lexer.RPAREN && parenthesisOpened == 0:
			break loop
		case tok.Type == lexer.NEWLINE || tok.Type == lexer.COMMA ||
			tok.Type == lexer.LBRACE || tok.Type == lexer.RBRACE ||
			tok.Type == lexer.RBRACKET || tok.Type == lexer.EOF ||
			tok.Type == lexer.SEMICOLON:
			break loop
		}

		isNextTokenUnary := tok.Type == lexer.LPAREN || isOperator(tok.Type)

		switch {
		case tok.Type == lexer.IDENT || isLiteral(tok.Type) || tok.Type == lexer.LBRACKET:
			node, err := p.parseIdentifier(parseType)
			if err != nil {
				return nil, err
			}
			// a bare identifier operand copies the variable's contents;
			// chains, refs and derefs keep the assignable location
			if varCall, ok := node.(*ast.VarCall); ok {
				node = &ast.VarCopy{Base: varCall.Base, Name: varCall.Name, Namespace: varCall.Namespace}
			}
			output = append(output, node)

		case (tok.Type == lexer.AMPERSAND || tok.Type == lexer.MULTIPLY) && isUnary:
			node, err := p.parseIdentifier(parseType)
			if err != nil {
				return nil, err
			}
			output = append(output, node)
			isNextTokenUnary = false

		case isTypeKeyword(tok.Type):
			p.next()
			output = append(output, &ast.Type{Base: ast.At(p.tokenPos), T: keywordType(tok.Type)})

		case isOperator(tok.Type):
			p.next()

			opType := tok.Type
			switch {
			case opType == lexer.MINUS && isUnary:
				opType = lexer.UNARY_MINUS
			case opType == lexer.BANG:
			case isUnary:
				return nil, diag.New(p.tokenPos, "not a valid unary operator")
			}

			for len(stack) > 0 {
				top := stack[len(stack)-1]
				if !isOperator(top.Type) {
					break
				}
				if (leftAssociative[top.Type] && precedences[top.Type] == precedences[opType]) ||
					precedences[top.Type] > precedences[opType] {
					stack = stack[:len(stack)-1]
					if err := p.addNode(&output, top); err != nil {
						return nil, err
					}
				} else {
					break
				}
			}

			op := tok
			op.Type = opType
			stack = append(stack, op)

		case tok.Type == lexer.LPAREN:
			p.next()
			stack = append(stack, tok)
			parenthesisOpened++

		case tok.Type == lexer.RPAREN:
			p.next()
			parenthesisOpened--

			for {
				if len(stack) == 0 {
					return nil, diag.New(p.tokenPos, "missing parenthesis in expression")
				}
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if top.Type == lexer.LPAREN {
					break
				}
				if !isOperator(top.Type) {
					return nil, diag.New(p.tokenPos, "missing parenthesis in expression")
				}
				if err := p.addNode(&output, top); err != nil {
					return nil, err
				}
			}

		default:
			return nil, diag.Newf(tok.Pos, "unexpected token in expression: %s", tok.Type)
		}

		isUnary = isNextTokenUnary
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.Type == lexer.LPAREN {
			return nil, diag.New(p.tokenPos, "missing parenthesis in expression")
		}
		if err := p.addNode(&output, top); err != nil {
			return nil, err
		}
	}

	if len(output) == 0 {
		return &ast.Void{Base: ast.At(p.tokenPos)}, nil
	}
	if len(output) > 1 {
		return nil, diag.New(p.tokenPos, "invalid expression")
	}
	return output[0], nil
}

// addNode folds an operator token over the output stack.
func (p *Parser) addNode(output *[]ast.Node, op lexer.Token) *diag.Error {
	pos := op.Pos

	pop := func() (ast.Node, *diag.Error) {
		if len(*output) == 0 {
			return nil, diag.New(pos, "missing element in expression")
		}
		node := (*output)[len(*output)-1]
		*output = (*output)[:len(*output)-1]
		return node, nil
	}

	right, err := pop()
	if err != nil {
		return err
	}

	// unary operators take one operand
	switch op.Type {
	case lexer.BANG:
		*output = append(*output, &ast.Not{Base: ast.At(pos), Child: right})
		return nil
	case lexer.UNARY_MINUS:
		*output = append(*output, &ast.UnaryMinus{Base: ast.At(pos), Child: right})
		return nil
	}

	left, err := pop()
	if err != nil {
		return err
	}

	var node ast.Node
	switch op.Type {
	case lexer.PLUS:
		node = &ast.Plus{Base: ast.At(pos), Left: left, Right: right}
	case lexer.MINUS:
		node = &ast.Minus{Base: ast.At(pos), Left: left, Right: right}
	case lexer.MULTIPLY:
		node = &ast.Multiplicate{Base: ast.At(pos), Left: left, Right: right}
	case lexer.DIVIDE:
		node = &ast.Divide{Base: ast.At(pos), Left: left, Right: right}
	case lexer.POWER:
		node = &ast.Power{Base: ast.At(pos), Left: left, Right: right}
	case lexer.EQ, lexer.NEQ, lexer.GT, lexer.GE, lexer.LT, lexer.LE:
		node = &ast.Compare{Base: ast.At(pos), Left: left, Right: right, Op: op.Type}
	case lexer.AND:
		node = &ast.And{Base: ast.At(pos), Left: left, Right: right}
	case lexer.OR:
		node = &ast.Or{Base: ast.At(pos), Left: left, Right: right}
	case lexer.AS:
		node = &ast.As{Base: ast.At(pos), Child: left, Target: right}
	default:
		return diag.Newf(pos, "can't evaluate token in expression: %s", op.Type)
	}

	*output = append(*output, node)
	return nil
}

func isOperator(t lexer.TokenType) bool {
	_, ok := precedences[t]
	return ok
}

func isLiteral(t lexer.TokenType) bool {
	switch t {
	case lexer.NUM_LIT, lexer.FNUM_LIT, lexer.STR_LIT, lexer.BOOL_LIT:
		return true
	}
	return false
}

func isTypeKeyword(t lexer.TokenType) bool {
	switch t {
	case lexer.NUM_TYPE, lexer.FNUM_TYPE, lexer.STR_TYPE, lexer.BOOL_TYPE:
		return true
	}
	return false
}

func keywordType(t lexer.TokenType) symbol.Type {
	switch t {
	case lexer.NUM_TYPE:
		return symbol.NumType()
	case lexer.FNUM_TYPE:
		return symbol.FnumType()
	case lexer.STR_TYPE:
		return symbol.StrType()
	}
	return symbol.BoolType()
}
