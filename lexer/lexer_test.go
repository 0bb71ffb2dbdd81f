package lexer

import (
	"testing"
)

func lexAll(t *testing.T, input string) []Token {
	t.Helper()
	tokens, err := Tokenize(input)
	if err != nil {
		t.Fatalf("lex error: %s", err.Message)
	}
	return tokens
}

func TestBasicTokens(t *testing.T) {
	input := `let a = 3
a += 1
`
	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{LET, "let"},
		{IDENT, "a"},
		{ASSIGN, "="},
		{NUM_LIT, "3"},
		{NEWLINE, "\\n"},
		{IDENT, "a"},
		{PLUS_EQ, "+="},
		{NUM_LIT, "1"},
		{NEWLINE, "\\n"},
		{EOF, ""},
	}

	tokens := lexAll(t, input)
	for i, tt := range tests {
		if i >= len(tokens) {
			t.Fatalf("tests[%d] - ran out of tokens", i)
		}
		tok := tokens[i]
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (literal=%q)",
				i, tt.expectedType, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestOperators(t *testing.T) {
	input := `a == b != c <= d >= e < f > g
a && b || !c
a + b - c * d / e ^ f
a -= 2
b *= 3
c /= 4
d ^= 5
&x
`
	expected := []TokenType{
		IDENT, EQ, IDENT, NEQ, IDENT, LE, IDENT, GE, IDENT, LT, IDENT, GT, IDENT, NEWLINE,
		IDENT, AND, IDENT, OR, BANG, IDENT, NEWLINE,
		IDENT, PLUS, IDENT, MINUS, IDENT, MULTIPLY, IDENT, DIVIDE, IDENT, POWER, IDENT, NEWLINE,
		IDENT, MINUS_EQ, NUM_LIT, NEWLINE,
		IDENT, MULTIPLY_EQ, NUM_LIT, NEWLINE,
		IDENT, DIVIDE_EQ, NUM_LIT, NEWLINE,
		IDENT, POWER_EQ, NUM_LIT, NEWLINE,
		AMPERSAND, IDENT, NEWLINE,
		EOF,
	}

	tokens := lexAll(t, input)
	if len(tokens) != len(expected) {
		t.Fatalf("token count wrong. expected=%d, got=%d", len(expected), len(tokens))
	}
	for i, want := range expected {
		if tokens[i].Type != want {
			t.Fatalf("tokens[%d] wrong. expected=%q, got=%q (literal=%q)",
				i, want, tokens[i].Type, tokens[i].Literal)
		}
	}
}

func TestKeywordsAndLiterals(t *testing.T) {
	input := `fn struct if elif else while return break continue import num fnum str bool true false as`
	expected := []TokenType{
		FN, STRUCT, IF, ELIF, ELSE, WHILE, RETURN, BREAK, CONTINUE, IMPORT,
		NUM_TYPE, FNUM_TYPE, STR_TYPE, BOOL_TYPE, BOOL_LIT, BOOL_LIT, AS,
		EOF,
	}

	tokens := lexAll(t, input)
	if len(tokens) != len(expected) {
		t.Fatalf("token count wrong. expected=%d, got=%d", len(expected), len(tokens))
	}
	for i, want := range expected {
		if tokens[i].Type != want {
			t.Fatalf("tokens[%d] wrong. expected=%q, got=%q", i, want, tokens[i].Type)
		}
	}
}

func TestNumberLiterals(t *testing.T) {
	tokens := lexAll(t, "3 3.5 0 12.0")
	expected := []struct {
		typ TokenType
		lit string
	}{
		{NUM_LIT, "3"},
		{FNUM_LIT, "3.5"},
		{NUM_LIT, "0"},
		{FNUM_LIT, "12.0"},
		{EOF, ""},
	}
	for i, tt := range expected {
		if tokens[i].Type != tt.typ || tokens[i].Literal != tt.lit {
			t.Fatalf("tokens[%d] wrong. expected=%q %q, got=%q %q",
				i, tt.typ, tt.lit, tokens[i].Type, tokens[i].Literal)
		}
	}
}

func TestStringLiteral(t *testing.T) {
	tokens := lexAll(t, `let s = "hello \"world\"\n"`)
	if tokens[3].Type != STR_LIT {
		t.Fatalf("expected string literal, got %q", tokens[3].Type)
	}
	want := "hello \"world\"\n"
	if tokens[3].Literal != want {
		t.Fatalf("string contents wrong. expected=%q, got=%q", want, tokens[3].Literal)
	}
}

func TestUnterminatedString(t *testing.T) {
	_, err := Tokenize(`let s = "oops`)
	if err == nil {
		t.Fatal("expected an error for an unterminated string")
	}
	if err.Message != "unterminated string" {
		t.Fatalf("wrong message: %q", err.Message)
	}
}

func TestComments(t *testing.T) {
	input := `let a = 1 // trailing comment
// whole line comment
let b = 2
`
	tokens := lexAll(t, input)
	expected := []TokenType{
		LET, IDENT, ASSIGN, NUM_LIT, NEWLINE,
		NEWLINE,
		LET, IDENT, ASSIGN, NUM_LIT, NEWLINE,
		EOF,
	}
	if len(tokens) != len(expected) {
		t.Fatalf("token count wrong. expected=%d, got=%d", len(expected), len(tokens))
	}
	for i, want := range expected {
		if tokens[i].Type != want {
			t.Fatalf("tokens[%d] wrong. expected=%q, got=%q", i, want, tokens[i].Type)
		}
	}
}

func TestDottedIdentifierSplits(t *testing.T) {
	tokens := lexAll(t, `fs.read_file("a")`)
	expected := []TokenType{IDENT, DOT, IDENT, LPAREN, STR_LIT, RPAREN, EOF}
	for i, want := range expected {
		if tokens[i].Type != want {
			t.Fatalf("tokens[%d] wrong. expected=%q, got=%q (literal=%q)",
				i, want, tokens[i].Type, tokens[i].Literal)
		}
	}
	if tokens[0].Literal != "fs" || tokens[2].Literal != "read_file" {
		t.Fatalf("split identifiers wrong: %q / %q", tokens[0].Literal, tokens[2].Literal)
	}
}

func TestPositions(t *testing.T) {
	input := "let a = 1\na = 2\n"
	tokens := lexAll(t, input)

	tests := []struct {
		index int
		line  int
		word  int
	}{
		{0, 0, 0}, // let
		{1, 0, 1}, // a
		{2, 0, 2}, // =
		{3, 0, 3}, // 1
		{5, 1, 0}, // a
		{6, 1, 1}, // =
		{7, 1, 2}, // 2
	}
	for _, tt := range tests {
		tok := tokens[tt.index]
		if tok.Pos.Line != tt.line || tok.Pos.Word != tt.word {
			t.Fatalf("tokens[%d] (%q) position wrong. expected=%d:%d, got=%d:%d",
				tt.index, tok.Literal, tt.line, tt.word, tok.Pos.Line, tok.Pos.Word)
		}
	}
}

func TestCRLFNewlines(t *testing.T) {
	tokens := lexAll(t, "let a = 1\r\nlet b = 2\r\n")
	newlines := 0
	for _, tok := range tokens {
		if tok.Type == NEWLINE {
			newlines++
		}
	}
	if newlines != 2 {
		t.Fatalf("expected 2 newline tokens, got %d", newlines)
	}
	if tokens[5].Pos.Line != 1 {
		t.Fatalf("line counter did not advance over \\r\\n: got %d", tokens[5].Pos.Line)
	}
}

func TestNamespaceStamping(t *testing.T) {
	l := New()
	l.SetNamespace("mylib")
	tokens, err := l.Process("let a = b\n")
	if err != nil {
		t.Fatalf("lex error: %s", err.Message)
	}
	for _, tok := range tokens {
		if tok.Type == IDENT && tok.Namespace != "mylib" {
			t.Fatalf("identifier %q missing namespace, got %q", tok.Literal, tok.Namespace)
		}
	}
	if tokens[1].NamespacedName() != "mylib.a" {
		t.Fatalf("namespaced name wrong: %q", tokens[1].NamespacedName())
	}
}

func TestUnrecognizedCharacter(t *testing.T) {
	_, err := Tokenize("let a = 1 @ 2\n")
	if err == nil {
		t.Fatal("expected an error for an unrecognized character")
	}
}
