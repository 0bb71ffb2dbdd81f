package parser

import (
	"github.com/codeassociates/caiman/ast"
	"github.com/codeassociates/caiman/diag"
	"github.com/codeassociates/caiman/lexer"
	"github.com/codeassociates/caiman/symbol"
)

// ExprParsingType decides whether a `{` after an identifier may begin a
// struct literal. Deny mode is used inside if/while conditions, where the
// brace opens the body instead.
type ExprParsingType int

const (
	AllowStructDeclaration ExprParsingType = iota
	DenyStructDeclaration
)

// Parser builds an AST from a token stream by recursive descent, with a
// shunting-yard sub-parser for expressions. It registers function and
// struct declarations as it goes; the backends re-register them into their
// symbol tables when visiting the declaration nodes.
type Parser struct {
	tokens []lexer.Token
	index  int

	// position of the most recently consumed token
	tokenPos diag.Pos

	// scope discipline of the root block; imports set Keep
	scope ast.BlockScope

	functions map[string]*symbol.FunctionDecl
	structs   map[string]*symbol.StructDecl
}

func New() *Parser {
	return &Parser{
		scope:     ast.ScopeNew,
		functions: make(map[string]*symbol.FunctionDecl),
		structs:   make(map[string]*symbol.StructDecl),
	}
}

// SetScope overrides the root block's scope discipline.
func (p *Parser) SetScope(scope ast.BlockScope) {
	p.scope = scope
}

// Process parses a whole token stream into the root block.
func (p *Parser) Process(tokens []lexer.Token) (*ast.Block, *diag.Error) {
	p.tokens = tokens
	p.index = 0

	block, err := p.parseBlock(p.scope, true)
	if err != nil {
		err.SetKindIfUnknown(diag.Parse)
		return nil, err
	}
	return block, nil
}

// peek returns the next token without consuming it.
func (p *Parser) peek() lexer.Token {
	if p.index >= len(p.tokens) {
		return lexer.Token{Type: lexer.EOF, Pos: p.tokenPos}
	}
	return p.tokens[p.index]
}

// next consumes and returns the next token, tracking its position.
func (p *Parser) next() lexer.Token {
	tok := p.peek()
	if p.index < len(p.tokens) {
		p.index++
	}
	p.tokenPos = tok.Pos
	return tok
}

func (p *Parser) peekIs(t lexer.TokenType) bool {
	return p.peek().Type == t
}

// expectToken consumes the next token, failing unless it has the wanted
// type.
func (p *Parser) expectToken(t lexer.TokenType, errMsg string) *diag.Error {
	tok := p.next()
	if tok.Type != t {
		return diag.New(p.tokenPos, errMsg)
	}
	return nil
}

// expectIdentifier consumes the next token, failing unless it is an
// identifier.
func (p *Parser) expectIdentifier(errMsg string) (lexer.Token, *diag.Error) {
	tok := p.next()
	if tok.Type != lexer.IDENT {
		return lexer.Token{}, diag.New(p.tokenPos, errMsg)
	}
	return tok, nil
}

// expectStr consumes the next token, failing unless it is a string
// literal.
func (p *Parser) expectStr(errMsg string) (string, *diag.Error) {
	tok := p.next()
	if tok.Type != lexer.STR_LIT {
		return "", diag.New(p.tokenPos, errMsg)
	}
	return tok.Literal, nil
}

func (p *Parser) discardNewlines() {
	for p.peekIs(lexer.NEWLINE) {
		p.next()
	}
}

// registerFnDecl records a function declaration, rejecting any name
// already taken by a function or a struct.
func (p *Parser) registerFnDecl(name string, decl *symbol.FunctionDecl) *diag.Error {
	if err := p.checkDeclFree(name); err != nil {
		return err
	}
	p.functions[name] = decl
	return nil
}

// registerStructDecl records a struct declaration under the same
// uniqueness rule.
func (p *Parser) registerStructDecl(name string, decl *symbol.StructDecl) *diag.Error {
	if err := p.checkDeclFree(name); err != nil {
		return err
	}
	p.structs[name] = decl
	return nil
}

func (p *Parser) checkDeclFree(name string) *diag.Error {
	if _, exists := p.functions[name]; exists {
		return diag.Newf(p.tokenPos, "a function called %s already exists", name)
	}
	if _, exists := p.structs[name]; exists {
		return diag.Newf(p.tokenPos, "a struct called %s already exists", name)
	}
	return nil
}
