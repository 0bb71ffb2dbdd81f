package compiler

import (
	"strings"
	"testing"

	"github.com/codeassociates/caiman/diag"
	"github.com/codeassociates/caiman/lexer"
	"github.com/codeassociates/caiman/parser"
)

func compile(t *testing.T, input string) string {
	t.Helper()
	tokens, err := lexer.Tokenize(input)
	if err != nil {
		t.Fatalf("lex error: %s", err.Message)
	}
	block, err := parser.New().Process(tokens)
	if err != nil {
		t.Fatalf("parse error: %s", err.Message)
	}
	module, err := New().Compile(block)
	if err != nil {
		t.Fatalf("compile error: %s", err.Message)
	}
	return module.String()
}

func compileError(t *testing.T, input string) *diag.Error {
	t.Helper()
	tokens, err := lexer.Tokenize(input)
	if err != nil {
		t.Fatalf("lex error: %s", err.Message)
	}
	block, err := parser.New().Process(tokens)
	if err != nil {
		t.Fatalf("parse error: %s", err.Message)
	}
	_, err = New().Compile(block)
	if err == nil {
		t.Fatalf("expected a compile error for %q", input)
	}
	return err
}

func expectIR(t *testing.T, ir string, wanted ...string) {
	t.Helper()
	for _, want := range wanted {
		if !strings.Contains(ir, want) {
			t.Fatalf("emitted IR missing %q\n%s", want, ir)
		}
	}
}

func TestEmitMain(t *testing.T) {
	ir := compile(t, "let a = 3\n")
	expectIR(t, ir,
		"define i32 @main()",
		"alloca i32",
		"store i32 3",
		"ret i32 0",
	)
}

func TestEmitArithmetic(t *testing.T) {
	ir := compile(t, "let a = 3\nlet b = a + 4 * 2\n")
	expectIR(t, ir, "mul i32", "add i32")
}

func TestEmitFnumArithmetic(t *testing.T) {
	ir := compile(t, "let a = 1.5 + 2.5\nlet b = a / 2.0\n")
	expectIR(t, ir, "fadd float", "fdiv float")
}

func TestMixedArithmeticRejected(t *testing.T) {
	err := compileError(t, "let a = 1 + 1.5\n")
	if err.Message != "cannot add these two types together" {
		t.Fatalf("wrong message: %q", err.Message)
	}
}

func TestEmitFunction(t *testing.T) {
	input := `fn add(a num, b num) num {
	return a + b
}
let r = add(1, 2)
`
	ir := compile(t, input)
	expectIR(t, ir,
		"define i32 @add(i32 %a, i32 %b)",
		"call i32 @add(i32 1, i32 2)",
	)
}

func TestStringReturnUsesSret(t *testing.T) {
	input := `fn greet() str {
	return "hi"
}
let s = greet()
`
	ir := compile(t, input)
	expectIR(t, ir,
		"define void @greet(%str* sret(%str) %sret)",
	)
}

func TestStringArgsArePointers(t *testing.T) {
	input := `fn show(s str) {
	print(s)
}
show("hello")
`
	ir := compile(t, input)
	expectIR(t, ir,
		"define void @show(%str* %s)",
		"call i8* @memcpy", // callee copies its aggregate argument
		"call void @_caiman_print(%str*",
	)
}

func TestStructLayoutFollowsDeclarationOrder(t *testing.T) {
	input := `struct Point {
	x num
	y fnum
	label str
}
let p = Point { x: 1 }
`
	ir := compile(t, input)
	expectIR(t, ir, "%Point = type { i32, float, %str }")
}

func TestStructReturnUsesSret(t *testing.T) {
	input := `struct P {
	x num
}
fn make() P {
	return P { x: 1 }
}
let p = make()
`
	ir := compile(t, input)
	expectIR(t, ir, "define void @make(%P* sret(%P) %sret)")
}

func TestMethodManglingAndSelf(t *testing.T) {
	input := `struct Counter {
	count num
	fn bump() {
		self.count = self.count + 1
	}
}
let c = Counter {}
c.bump()
`
	ir := compile(t, input)
	expectIR(t, ir,
		"define void @_Counter_bump(%Counter* %self)",
		"call void @_Counter_bump(%Counter*",
	)
}

func TestArrayIndexEmitsBoundsChecks(t *testing.T) {
	input := `let xs = [1, 2, 3]
let x = xs[1]
`
	ir := compile(t, input)
	expectIR(t, ir,
		"icmp slt i32",
		"icmp sge i64",
		"call void @_caiman_bounds_fail()",
		"unreachable",
	)
}

func TestWhileLowering(t *testing.T) {
	input := `fn count() num {
	let n = 0
	while n < 10 {
		n = n + 1
	}
	return n
}
`
	ir := compile(t, input)
	expectIR(t, ir, "while_cond", "while_body", "while_end", "br i1")
}

func TestBreakContinueTargets(t *testing.T) {
	input := `fn f() {
	while true {
		if false {
			break
		}
		continue
	}
}
`
	ir := compile(t, input)
	expectIR(t, ir, "while_end", "while_cond")
}

func TestIfChainLowering(t *testing.T) {
	input := `fn f(n num) num {
	if n < 0 {
		return 0
	} elif n == 0 {
		return 1
	} else {
		return 2
	}
}
`
	ir := compile(t, input)
	expectIR(t, ir, "then_0", "if_1", "then_1", "else", "endif")
}

func TestCastLowering(t *testing.T) {
	input := `let a = 3 as fnum
let b = 2.5 as num
let c = 1 as bool
let d = 7 as str
let e = "8" as num
`
	ir := compile(t, input)
	expectIR(t, ir,
		"sitofp i32",
		"fptosi float",
		"icmp ne i32",
		"call void @_caiman_str_from_num",
		"call i32 @_caiman_num_from_str",
	)
}

func TestRedundantCastRejected(t *testing.T) {
	err := compileError(t, "let a = 3 as num\n")
	if err.Message != "redundant cast" {
		t.Fatalf("wrong message: %q", err.Message)
	}
}

func TestStringConcatViaRuntime(t *testing.T) {
	ir := compile(t, `let s = "a" + "b"`+"\n")
	expectIR(t, ir, "call void @_caiman_str_concat")
}

func TestStringEqualityViaRuntime(t *testing.T) {
	ir := compile(t, `let ok = "a" == "b"`+"\n")
	expectIR(t, ir, "call i1 @_caiman_str_eq")
}

func TestStaticTypeMismatchRejected(t *testing.T) {
	err := compileError(t, "let a = 4\na = true\n")
	if err.Message != "cannot change the type of a variable" {
		t.Fatalf("wrong message: %q", err.Message)
	}
}

func TestRefLowering(t *testing.T) {
	input := `let a = 1
let r = &a
*r = 5
`
	ir := compile(t, input)
	expectIR(t, ir, "alloca i32*", "store i32 5")
}

func TestRelativeImportRejected(t *testing.T) {
	err := compileError(t, "import \"./helpers\"\n")
	if err.Kind != diag.CompileTarget {
		t.Fatalf("expected a compile target error, got kind %v", err.Kind)
	}
}

func TestStringLiteralIsHeapBacked(t *testing.T) {
	ir := compile(t, `let s = "hello"`+"\n")
	expectIR(t, ir,
		`c"hello"`,
		"call i8* @malloc(i64 5)",
	)
}

func TestAssertLowering(t *testing.T) {
	ir := compile(t, "assert(1 == 1)\n")
	expectIR(t, ir, "call void @_caiman_assert(i1")
}

func TestMissingReturnRejected(t *testing.T) {
	input := `fn f() num {
	let a = 1
}
`
	compileError(t, input)
}
