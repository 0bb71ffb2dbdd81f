package parser

import (
	"testing"

	"github.com/codeassociates/caiman/ast"
	"github.com/codeassociates/caiman/lexer"
	"github.com/codeassociates/caiman/symbol"
)

func parseProgram(t *testing.T, input string) *ast.Block {
	t.Helper()
	tokens, err := lexer.Tokenize(input)
	if err != nil {
		t.Fatalf("lex error: %s", err.Message)
	}
	block, err := New().Process(tokens)
	if err != nil {
		t.Fatalf("parse error: %s", err.Message)
	}
	return block
}

func parseError(t *testing.T, input string) string {
	t.Helper()
	tokens, err := lexer.Tokenize(input)
	if err != nil {
		t.Fatalf("lex error: %s", err.Message)
	}
	_, err = New().Process(tokens)
	if err == nil {
		t.Fatalf("expected a parse error for %q", input)
	}
	return err.Message
}

func TestVarDecl(t *testing.T) {
	block := parseProgram(t, "let a = 3\n")
	if len(block.Children) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(block.Children))
	}

	decl, ok := block.Children[0].(*ast.VarDecl)
	if !ok {
		t.Fatalf("expected *ast.VarDecl, got %T", block.Children[0])
	}
	if decl.Name != "a" {
		t.Fatalf("name wrong: %q", decl.Name)
	}
	if decl.DeclType != nil {
		t.Fatal("inferred declaration should carry no annotation")
	}
	constant, ok := decl.Init.(*ast.Constant)
	if !ok {
		t.Fatalf("expected constant initializer, got %T", decl.Init)
	}
	if constant.Value.Num != 3 {
		t.Fatalf("constant wrong: %d", constant.Value.Num)
	}
}

func TestVarDeclAnnotated(t *testing.T) {
	block := parseProgram(t, "let a [num]\nlet b &str = &c\nlet p Point\n")

	declA := block.Children[0].(*ast.VarDecl)
	if declA.DeclType == nil || declA.DeclType.String() != "[num]" {
		t.Fatalf("annotation wrong: %v", declA.DeclType)
	}
	if declA.Init != nil {
		t.Fatal("defaulted declaration should carry no initializer")
	}

	declB := block.Children[1].(*ast.VarDecl)
	if declB.DeclType.String() != "&str" {
		t.Fatalf("annotation wrong: %v", declB.DeclType)
	}
	if _, ok := declB.Init.(*ast.Ref); !ok {
		t.Fatalf("expected ref initializer, got %T", declB.Init)
	}

	declP := block.Children[2].(*ast.VarDecl)
	if declP.DeclType.String() != "Point" {
		t.Fatalf("annotation wrong: %v", declP.DeclType)
	}
}

func TestVarDeclRequiresTypeOrValue(t *testing.T) {
	msg := parseError(t, "let a\n")
	if msg != "cannot infer the variable type of a" {
		t.Fatalf("wrong message: %q", msg)
	}
}

func TestPrecedence(t *testing.T) {
	// 1 + 2 * 3 parses as 1 + (2 * 3)
	block := parseProgram(t, "let a = 1 + 2 * 3\n")
	plus, ok := block.Children[0].(*ast.VarDecl).Init.(*ast.Plus)
	if !ok {
		t.Fatalf("expected top-level plus, got %T", block.Children[0].(*ast.VarDecl).Init)
	}
	if _, ok := plus.Left.(*ast.Constant); !ok {
		t.Fatalf("left of plus should be constant, got %T", plus.Left)
	}
	if _, ok := plus.Right.(*ast.Multiplicate); !ok {
		t.Fatalf("right of plus should be multiply, got %T", plus.Right)
	}
}

func TestParenthesesOverridePrecedence(t *testing.T) {
	block := parseProgram(t, "let a = (1 + 2) * 3\n")
	mul, ok := block.Children[0].(*ast.VarDecl).Init.(*ast.Multiplicate)
	if !ok {
		t.Fatalf("expected top-level multiply, got %T", block.Children[0].(*ast.VarDecl).Init)
	}
	if _, ok := mul.Left.(*ast.Plus); !ok {
		t.Fatalf("left of multiply should be plus, got %T", mul.Left)
	}
}

func TestLeftAssociativity(t *testing.T) {
	// 10 - 4 - 3 parses as (10 - 4) - 3
	block := parseProgram(t, "let a = 10 - 4 - 3\n")
	minus := block.Children[0].(*ast.VarDecl).Init.(*ast.Minus)
	if _, ok := minus.Left.(*ast.Minus); !ok {
		t.Fatalf("minus should associate left, got left %T", minus.Left)
	}
}

func TestUnaryMinus(t *testing.T) {
	block := parseProgram(t, "let a = -3 + 4\n")
	plus := block.Children[0].(*ast.VarDecl).Init.(*ast.Plus)
	if _, ok := plus.Left.(*ast.UnaryMinus); !ok {
		t.Fatalf("leading minus should be unary, got %T", plus.Left)
	}
}

func TestCompareAndLogic(t *testing.T) {
	block := parseProgram(t, "let a = 1 < 2 && 3 == 3\n")
	and, ok := block.Children[0].(*ast.VarDecl).Init.(*ast.And)
	if !ok {
		t.Fatalf("&& must bind looser than comparisons, got %T", block.Children[0].(*ast.VarDecl).Init)
	}
	if _, ok := and.Left.(*ast.Compare); !ok {
		t.Fatalf("left of && should be a comparison, got %T", and.Left)
	}
	if _, ok := and.Right.(*ast.Compare); !ok {
		t.Fatalf("right of && should be a comparison, got %T", and.Right)
	}
}

func TestBareIdentifierOperandIsCopy(t *testing.T) {
	// a bare identifier used as a value copies; chains, refs and lvalues
	// keep the variable
	block := parseProgram(t, "let a = b\nlet c = b.d\nlet e = &b\nb = 1\n")

	if _, ok := block.Children[0].(*ast.VarDecl).Init.(*ast.VarCopy); !ok {
		t.Fatalf("bare identifier operand should be a copy, got %T",
			block.Children[0].(*ast.VarDecl).Init)
	}

	dot := block.Children[1].(*ast.VarDecl).Init.(*ast.DotField)
	if _, ok := dot.Child.(*ast.VarCall); !ok {
		t.Fatalf("chain base should stay a variable, got %T", dot.Child)
	}

	ref := block.Children[2].(*ast.VarDecl).Init.(*ast.Ref)
	if _, ok := ref.Child.(*ast.VarCall); !ok {
		t.Fatalf("ref operand should stay a variable, got %T", ref.Child)
	}

	assign := block.Children[3].(*ast.Assignment)
	if _, ok := assign.Lvalue.(*ast.VarCall); !ok {
		t.Fatalf("assignment target should stay a variable, got %T", assign.Lvalue)
	}
}

func TestCompoundAssignmentDesugars(t *testing.T) {
	block := parseProgram(t, "a += 2\n")
	assign, ok := block.Children[0].(*ast.Assignment)
	if !ok {
		t.Fatalf("expected assignment, got %T", block.Children[0])
	}
	plus, ok := assign.Expr.(*ast.Plus)
	if !ok {
		t.Fatalf("compound assignment should desugar to plus, got %T", assign.Expr)
	}
	if _, ok := plus.Left.(*ast.VarCall); !ok {
		t.Fatalf("desugared left side should be the lvalue, got %T", plus.Left)
	}
}

func TestIdentifierChain(t *testing.T) {
	block := parseProgram(t, "let a = b.c[0].d\n")
	dot, ok := block.Children[0].(*ast.VarDecl).Init.(*ast.DotField)
	if !ok {
		t.Fatalf("expected outer dot field, got %T", block.Children[0].(*ast.VarDecl).Init)
	}
	if dot.Field != "d" {
		t.Fatalf("outer field wrong: %q", dot.Field)
	}
	index, ok := dot.Child.(*ast.ArrayIndex)
	if !ok {
		t.Fatalf("expected index under the field, got %T", dot.Child)
	}
	inner, ok := index.Child.(*ast.DotField)
	if !ok || inner.Field != "c" {
		t.Fatalf("inner chain wrong: %T", index.Child)
	}
	if _, ok := inner.Child.(*ast.VarCall); !ok {
		t.Fatalf("chain root should be a variable, got %T", inner.Child)
	}
}

func TestRefDerefChain(t *testing.T) {
	block := parseProgram(t, "let a = *&b\n")
	deref, ok := block.Children[0].(*ast.VarDecl).Init.(*ast.Deref)
	if !ok {
		t.Fatalf("outermost operator should apply last, got %T", block.Children[0].(*ast.VarDecl).Init)
	}
	if _, ok := deref.Child.(*ast.Ref); !ok {
		t.Fatalf("expected ref under deref, got %T", deref.Child)
	}
}

func TestMethodCall(t *testing.T) {
	block := parseProgram(t, "p.dist(q)\n")
	call, ok := block.Children[0].(*ast.FunctionCall)
	if !ok {
		t.Fatalf("expected call, got %T", block.Children[0])
	}
	if call.Name != "dist" {
		t.Fatalf("method name wrong: %q", call.Name)
	}
	if call.Method == nil {
		t.Fatal("method receiver missing")
	}
	if len(call.Args) != 1 {
		t.Fatalf("arg count wrong: %d", len(call.Args))
	}
}

func TestStructLiteral(t *testing.T) {
	block := parseProgram(t, "let p = Point { x: 1, y: 2 }\n")
	create, ok := block.Children[0].(*ast.VarDecl).Init.(*ast.StructCreate)
	if !ok {
		t.Fatalf("expected struct literal, got %T", block.Children[0].(*ast.VarDecl).Init)
	}
	if create.Name != "Point" || len(create.Fields) != 2 {
		t.Fatalf("literal wrong: %q with %d fields", create.Name, len(create.Fields))
	}
}

func TestStructLiteralDeniedInCondition(t *testing.T) {
	// inside a condition the brace must open the body, not a literal
	block := parseProgram(t, "fn f() {\n  while running {\n    break\n  }\n}\n")
	fn := block.Children[0].(*ast.FunctionDecl)
	loop, ok := fn.Body.Children[0].(*ast.While)
	if !ok {
		t.Fatalf("expected while, got %T", fn.Body.Children[0])
	}
	if _, ok := loop.Cond.(*ast.VarCopy); !ok {
		t.Fatalf("condition should stay a bare identifier operand, got %T", loop.Cond)
	}
}

func TestFunctionDecl(t *testing.T) {
	p := New()
	tokens, lexErr := lexer.Tokenize("fn add(a num, b num) num {\n  return a + b\n}\n")
	if lexErr != nil {
		t.Fatalf("lex error: %s", lexErr.Message)
	}
	block, err := p.Process(tokens)
	if err != nil {
		t.Fatalf("parse error: %s", err.Message)
	}

	fn, ok := block.Children[0].(*ast.FunctionDecl)
	if !ok {
		t.Fatalf("expected function decl, got %T", block.Children[0])
	}
	if fn.Name != "add" {
		t.Fatalf("name wrong: %q", fn.Name)
	}
	if len(fn.Decl.Args) != 2 || !fn.Decl.Args[0].Type.Equals(symbol.NumType()) {
		t.Fatalf("args wrong: %+v", fn.Decl.Args)
	}
	if fn.Decl.Return == nil || !fn.Decl.Return.Equals(symbol.NumType()) {
		t.Fatal("return type wrong")
	}
	if fn.Body.Scope != ast.ScopeFunction {
		t.Fatal("function body must use the function scope discipline")
	}
	if _, declErr := p.functions["add"]; !declErr {
		t.Fatal("declaration not registered")
	}
}

func TestVoidFunctionEmptyBody(t *testing.T) {
	block := parseProgram(t, "fn noop() {\n}\n")
	fn := block.Children[0].(*ast.FunctionDecl)
	if fn.Decl.Return != nil {
		t.Fatal("missing annotation means void")
	}
	if len(fn.Body.Children) != 0 {
		t.Fatal("body should be empty")
	}
}

func TestStructDecl(t *testing.T) {
	input := `struct Point {
	x num
	y num
	fn len(self2 num) num {
		return 0
	}
}
`
	block := parseProgram(t, input)
	decl, ok := block.Children[0].(*ast.StructDecl)
	if !ok {
		t.Fatalf("expected struct decl, got %T", block.Children[0])
	}
	if decl.Decl.FieldIndex("x") != 0 || decl.Decl.FieldIndex("y") != 1 {
		t.Fatal("field order wrong")
	}
	if len(decl.Methods) != 1 {
		t.Fatalf("method count wrong: %d", len(decl.Methods))
	}

	method := decl.Methods[0]
	if method.Name != "_Point_len" {
		t.Fatalf("mangled name wrong: %q", method.Name)
	}
	if method.Decl.Args[0].Name != "self" || method.Decl.Args[0].Type.String() != "&Point" {
		t.Fatalf("self argument wrong: %+v", method.Decl.Args[0])
	}
}

func TestStructFieldMethodCollision(t *testing.T) {
	input := `struct P {
	x num
	fn x() {
	}
}
`
	parseError(t, input)
}

func TestDuplicateDeclRejected(t *testing.T) {
	parseError(t, "fn f() {\n}\nfn f() {\n}\n")
	parseError(t, "struct S {\n}\nfn S() {\n}\n")
}

func TestTopLevelRestrictions(t *testing.T) {
	parseError(t, "return 3\n")
	parseError(t, "if true {\n}\n")
	parseError(t, "while true {\n}\n")
	parseError(t, "break\n")
	parseError(t, "continue\n")
	parseError(t, "fn f() {\n  struct S {\n  }\n}\n")
	parseError(t, "fn f() {\n  import \"fs\"\n}\n")
}

func TestIfElifElse(t *testing.T) {
	input := `fn f() {
	if a {
		x = 1
	} elif b {
		x = 2
	} else {
		x = 3
	}
}
`
	block := parseProgram(t, input)
	fn := block.Children[0].(*ast.FunctionDecl)
	cond, ok := fn.Body.Children[0].(*ast.If)
	if !ok {
		t.Fatalf("expected if, got %T", fn.Body.Children[0])
	}
	if len(cond.Conditions) != 2 {
		t.Fatalf("condition count wrong: %d", len(cond.Conditions))
	}
	if len(cond.Bodies) != 3 {
		t.Fatalf("body count wrong: %d", len(cond.Bodies))
	}
}

func TestImport(t *testing.T) {
	block := parseProgram(t, "import \"fs\"\nimport \"./lib/helpers\"\n")
	first := block.Children[0].(*ast.Import)
	second := block.Children[1].(*ast.Import)
	if first.Name != "fs" || second.Name != "./lib/helpers" {
		t.Fatalf("import names wrong: %q, %q", first.Name, second.Name)
	}
}

func TestArrayLiteral(t *testing.T) {
	block := parseProgram(t, "let xs = [1, 2, 3]\n")
	arr, ok := block.Children[0].(*ast.VarDecl).Init.(*ast.ArrayCreate)
	if !ok {
		t.Fatalf("expected array literal, got %T", block.Children[0].(*ast.VarDecl).Init)
	}
	if len(arr.Elems) != 3 {
		t.Fatalf("element count wrong: %d", len(arr.Elems))
	}
}

func TestAsCast(t *testing.T) {
	block := parseProgram(t, "let s = 3 as str\n")
	cast, ok := block.Children[0].(*ast.VarDecl).Init.(*ast.As)
	if !ok {
		t.Fatalf("expected cast, got %T", block.Children[0].(*ast.VarDecl).Init)
	}
	typ, ok := cast.Target.(*ast.Type)
	if !ok || !typ.T.Equals(symbol.StrType()) {
		t.Fatalf("cast target wrong: %T", cast.Target)
	}
}

func TestPositionsSurviveParsing(t *testing.T) {
	block := parseProgram(t, "let a = 1\nlet b = 2\n")
	if block.Children[0].Pos().Line != 0 {
		t.Fatalf("first statement line wrong: %d", block.Children[0].Pos().Line)
	}
	if block.Children[1].Pos().Line != 1 {
		t.Fatalf("second statement line wrong: %d", block.Children[1].Pos().Line)
	}
}

func TestKeepScopeForImports(t *testing.T) {
	p := New()
	p.SetScope(ast.ScopeKeep)
	tokens, lexErr := lexer.Tokenize("let a = 1\n")
	if lexErr != nil {
		t.Fatalf("lex error: %s", lexErr.Message)
	}
	block, err := p.Process(tokens)
	if err != nil {
		t.Fatalf("parse error: %s", err.Message)
	}
	if block.Scope != ast.ScopeKeep {
		t.Fatal("scope discipline not honored")
	}
}
