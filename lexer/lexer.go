package lexer

import (
	"strconv"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/codeassociates/caiman/diag"
)

// Lexer turns source text into a flat token stream. Word boundaries follow
// Unicode segmentation, so the position of a token is (line, word) rather
// than (line, column). One lexer instance carries one namespace: imported
// files are lexed with the import name as namespace so their identifiers
// resolve under a prefix.
type Lexer struct {
	namespace string
	file      string

	line int
	word int

	rest  string
	state int
}

func New() *Lexer {
	return &Lexer{state: -1}
}

// SetNamespace stamps every identifier emitted from now on.
func (l *Lexer) SetNamespace(namespace string) {
	l.namespace = namespace
}

// SetFile records the file name carried by token positions.
func (l *Lexer) SetFile(file string) {
	l.file = file
}

func (l *Lexer) pos() diag.Pos {
	return diag.NewPos(l.file, l.line, l.word)
}

// Process tokenizes the whole input. The returned slice always ends with an
// EOF token. The first unclassifiable grapheme aborts lexing with a syntax
// error.
func (l *Lexer) Process(code string) ([]Token, *diag.Error) {
	l.rest = code
	l.state = -1
	l.line = 0
	l.word = 0

	var tokens []Token
	for len(l.rest) > 0 {
		toks, err := l.next()
		if err != nil {
			err.SetKindIfUnknown(diag.Syntax)
			return nil, err
		}
		for _, tok := range toks {
			if tok.Type == DISCARD {
				continue
			}
			tokens = append(tokens, tok)
		}
	}
	tokens = append(tokens, Token{Type: EOF, Pos: l.pos()})
	return tokens, nil
}

// next consumes one word segment (or one raw run, for strings and comments)
// and returns the tokens it produced. A dotted identifier expands to several
// tokens sharing one position.
func (l *Lexer) next() ([]Token, *diag.Error) {
	seg := l.nextSegment()

	// whitespace carries no token and no word index
	if strings.TrimSpace(seg) == "" && seg != "\n" && seg != "\r\n" {
		return nil, nil
	}

	pos := l.pos()

	switch {
	case seg == "\n" || seg == "\r\n":
		l.line++
		l.word = 0
		return []Token{{Type: NEWLINE, Literal: "\\n", Pos: pos}}, nil

	case seg == "/" && strings.HasPrefix(l.rest, "/"):
		l.skipToEndOfLine()
		return nil, nil

	case seg == `"`:
		lit, ok := l.readString()
		if !ok {
			return nil, diag.New(pos, "unterminated string")
		}
		l.word++
		return []Token{{Type: STR_LIT, Literal: lit, Pos: pos}}, nil

	case isWordStart(seg):
		l.word++
		return l.identifierTokens(seg, pos), nil

	case isNumberStart(seg):
		l.word++
		return l.numberToken(seg, pos)

	default:
		tok, err := l.operatorToken(seg, pos)
		if err != nil {
			return nil, err
		}
		l.word++
		return []Token{tok}, nil
	}
}

// nextSegment pops the next Unicode word segment off the input.
func (l *Lexer) nextSegment() string {
	var seg string
	seg, l.rest, l.state = uniseg.FirstWordInString(l.rest, l.state)
	return seg
}

// peekByte returns the next raw byte without consuming it.
func (l *Lexer) peekByte() byte {
	if len(l.rest) == 0 {
		return 0
	}
	return l.rest[0]
}

// takeByte consumes one raw byte and resets the segmenter state.
func (l *Lexer) takeByte() byte {
	b := l.rest[0]
	l.rest = l.rest[1:]
	l.state = -1
	return b
}

// readString consumes raw input until the closing quote, translating the
// \" escape (plus \\, \n and \t). Reports failure when the input runs out
// before the quote.
func (l *Lexer) readString() (string, bool) {
	var b strings.Builder
	for len(l.rest) > 0 {
		ch := l.takeByte()
		switch ch {
		case '"':
			return b.String(), true
		case '\\':
			if len(l.rest) == 0 {
				return "", false
			}
			esc := l.takeByte()
			switch esc {
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte('\\')
				b.WriteByte(esc)
			}
		case '\n':
			// strings stay on one line; the newline means the quote
			// never closed
			return "", false
		default:
			b.WriteByte(ch)
		}
	}
	return "", false
}

func (l *Lexer) skipToEndOfLine() {
	for len(l.rest) > 0 && l.rest[0] != '\n' {
		l.rest = l.rest[1:]
	}
	l.state = -1
}

// identifierTokens expands a word into tokens. Dotted words (foo.bar) are
// legacy call syntax and split into ident / dot / ident, all sharing the
// word's position.
func (l *Lexer) identifierTokens(seg string, pos diag.Pos) []Token {
	parts := strings.Split(seg, ".")
	var tokens []Token
	for i, part := range parts {
		if i > 0 {
			tokens = append(tokens, Token{Type: DOT, Literal: ".", Pos: pos})
		}
		if part == "" {
			continue
		}
		tok := Token{Type: LookupIdent(part), Literal: part, Pos: pos}
		if tok.Type == IDENT {
			tok.Namespace = l.namespace
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// numberToken classifies a numeric word as an integer or floating literal.
func (l *Lexer) numberToken(seg string, pos diag.Pos) ([]Token, *diag.Error) {
	if _, err := strconv.ParseInt(seg, 10, 32); err == nil {
		return []Token{{Type: NUM_LIT, Literal: seg, Pos: pos}}, nil
	}
	if _, err := strconv.ParseFloat(seg, 32); err == nil {
		return []Token{{Type: FNUM_LIT, Literal: seg, Pos: pos}}, nil
	}
	return nil, diag.Newf(pos, "cannot parse the number %s", seg)
}

// operatorToken classifies punctuation, pairing compound operators by raw
// one-byte lookahead.
func (l *Lexer) operatorToken(seg string, pos diag.Pos) (Token, *diag.Error) {
	compound := func(single TokenType, next byte, double TokenType) Token {
		if l.peekByte() == next {
			l.takeByte()
			return Token{Type: double, Literal: tokenNames[double], Pos: pos}
		}
		return Token{Type: single, Literal: seg, Pos: pos}
	}

	switch seg {
	case "(":
		return Token{Type: LPAREN, Literal: seg, Pos: pos}, nil
	case ")":
		return Token{Type: RPAREN, Literal: seg, Pos: pos}, nil
	case "[":
		return Token{Type: LBRACKET, Literal: seg, Pos: pos}, nil
	case "]":
		return Token{Type: RBRACKET, Literal: seg, Pos: pos}, nil
	case "{":
		return Token{Type: LBRACE, Literal: seg, Pos: pos}, nil
	case "}":
		return Token{Type: RBRACE, Literal: seg, Pos: pos}, nil
	case ",":
		return Token{Type: COMMA, Literal: seg, Pos: pos}, nil
	case ".":
		return Token{Type: DOT, Literal: seg, Pos: pos}, nil
	case ":":
		return Token{Type: COLON, Literal: seg, Pos: pos}, nil
	case ";":
		return Token{Type: SEMICOLON, Literal: seg, Pos: pos}, nil
	case "=":
		return compound(ASSIGN, '=', EQ), nil
	case "+":
		return compound(PLUS, '=', PLUS_EQ), nil
	case "-":
		return compound(MINUS, '=', MINUS_EQ), nil
	case "*":
		return compound(MULTIPLY, '=', MULTIPLY_EQ), nil
	case "/":
		return compound(DIVIDE, '=', DIVIDE_EQ), nil
	case "^":
		return compound(POWER, '=', POWER_EQ), nil
	case ">":
		return compound(GT, '=', GE), nil
	case "<":
		return compound(LT, '=', LE), nil
	case "!":
		return compound(BANG, '=', NEQ), nil
	case "&":
		return compound(AMPERSAND, '&', AND), nil
	case "|":
		if l.peekByte() == '|' {
			l.takeByte()
			return Token{Type: OR, Literal: "||", Pos: pos}, nil
		}
		return Token{}, diag.Newf(pos, "unrecognized character: %s", seg)
	}
	return Token{}, diag.Newf(pos, "unrecognized character: %s", seg)
}

func isWordStart(seg string) bool {
	ch := seg[0]
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch >= 0x80
}

func isNumberStart(seg string) bool {
	return seg[0] >= '0' && seg[0] <= '9'
}

// Tokenize is a convenience wrapper used by tests: one-shot
// lexing with an anonymous file.
func Tokenize(code string) ([]Token, *diag.Error) {
	return New().Process(code)
}
