package builtin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/codeassociates/caiman/interp"
	"github.com/codeassociates/caiman/symbol"
)

func TestRegistry(t *testing.T) {
	for _, name := range []string{"global", "fs", "http", "math", "os"} {
		if _, ok := GetModule(name); !ok {
			t.Fatalf("module %s missing from the registry", name)
		}
	}
	if _, ok := GetModule("nope"); ok {
		t.Fatal("unknown modules must not resolve")
	}
}

func TestGlobalSurface(t *testing.T) {
	module, _ := GetModule("global")

	wanted := map[string]bool{
		"assert": false, "print": false, "println": false,
		"eprint": false, "eprintln": false,
		"_array_join": false, "_array_len": false,
		"_num_times": false,
		"_str_len":   false, "_str_slice": false, "_str_split": false, "_str_trim": false,
	}
	for _, fn := range module.Functions {
		if _, ok := wanted[fn.Decl.Name]; ok {
			wanted[fn.Decl.Name] = true
		}
	}
	for name, found := range wanted {
		if !found {
			t.Fatalf("global module missing %s", name)
		}
	}
}

func TestMathVars(t *testing.T) {
	module, _ := GetModule("math")
	if len(module.Vars) != 2 {
		t.Fatalf("math should expose pi and e, got %d vars", len(module.Vars))
	}
	for _, v := range module.Vars {
		prim, ok := v.Value.(interp.Primitive)
		if !ok || prim.Literal.Kind != symbol.Fnum {
			t.Fatalf("math var %s should be a fnum", v.Name)
		}
	}
}

func TestStrMethods(t *testing.T) {
	out, err := strSliceFn([]interp.Value{str("hello"), num(1), num(3)})
	if err != nil {
		t.Fatalf("slice failed: %s", err.Message)
	}
	if out.(interp.Primitive).Literal.Str != "el" {
		t.Fatalf("slice wrong: %q", out.(interp.Primitive).Literal.Str)
	}

	out, _ = strSliceFn([]interp.Value{str("hello"), num(-3), num(-1)})
	if out.(interp.Primitive).Literal.Str != "ll" {
		t.Fatalf("negative slice wrong: %q", out.(interp.Primitive).Literal.Str)
	}

	out, _ = strLenFn([]interp.Value{str("héllo")})
	if out.(interp.Primitive).Literal.Num != 5 {
		t.Fatalf("grapheme length wrong: %d", out.(interp.Primitive).Literal.Num)
	}

	out, _ = strTrimFn([]interp.Value{str("  x ")})
	if out.(interp.Primitive).Literal.Str != "x" {
		t.Fatalf("trim wrong: %q", out.(interp.Primitive).Literal.Str)
	}
}

func TestArrayMethods(t *testing.T) {
	array := &interp.ArrayValue{
		ElemType: symbol.StrType(),
		Contents: []*interp.Cell{
			interp.NewCell(str("a")),
			interp.NewCell(str("b")),
		},
	}

	out, err := arrayJoinFn([]interp.Value{array, str("+")})
	if err != nil {
		t.Fatalf("join failed: %s", err.Message)
	}
	if out.(interp.Primitive).Literal.Str != "a+b" {
		t.Fatalf("join wrong: %q", out.(interp.Primitive).Literal.Str)
	}

	out, _ = arrayLenFn([]interp.Value{array})
	if out.(interp.Primitive).Literal.Num != 2 {
		t.Fatalf("len wrong: %d", out.(interp.Primitive).Literal.Num)
	}
}

func TestNumTimes(t *testing.T) {
	out, err := numTimesFn([]interp.Value{num(7), num(3)})
	if err != nil {
		t.Fatalf("times failed: %s", err.Message)
	}
	array := out.(*interp.ArrayValue)
	if len(array.Contents) != 3 {
		t.Fatalf("times length wrong: %d", len(array.Contents))
	}
	for _, cell := range array.Contents {
		if cell.V.(interp.Primitive).Literal.Num != 7 {
			t.Fatal("times contents wrong")
		}
	}
}

func TestFsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	if _, err := writeFileFn([]interp.Value{str(path), str("payload")}); err != nil {
		t.Fatalf("write failed: %s", err.Message)
	}

	out, err := existsFn([]interp.Value{str(path)})
	if err != nil || !out.(interp.Primitive).Literal.Bool {
		t.Fatal("exists should report the written file")
	}

	out, err = readFileFn([]interp.Value{str(path)})
	if err != nil {
		t.Fatalf("read failed: %s", err.Message)
	}
	if out.(interp.Primitive).Literal.Str != "payload" {
		t.Fatalf("read wrong: %q", out.(interp.Primitive).Literal.Str)
	}

	sub := filepath.Join(dir, "a", "b")
	if _, err := createDirFn([]interp.Value{str(sub)}); err != nil {
		t.Fatalf("create_dir failed: %s", err.Message)
	}
	if info, statErr := os.Stat(sub); statErr != nil || !info.IsDir() {
		t.Fatal("create_dir should create the directory")
	}
}
