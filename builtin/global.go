package builtin

import (
	"fmt"
	"os"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/codeassociates/caiman/diag"
	"github.com/codeassociates/caiman/interp"
	"github.com/codeassociates/caiman/symbol"
)

// globalModule is pre-imported into every program with no namespace
// prefix. Beside the printing family it carries the per-type methods,
// declared under their mangled receiver names.
func globalModule() *interp.Module {
	return &interp.Module{
		Functions: []*interp.BuiltinFunction{
			fn("assert", []symbol.Type{symbol.BoolType()}, nil, assertFn),
			fn("eprint", []symbol.Type{symbol.StrType()}, nil, eprintFn),
			fn("eprintln", []symbol.Type{symbol.StrType()}, nil, eprintlnFn),
			fn("print", []symbol.Type{symbol.StrType()}, nil, printFn),
			fn("println", []symbol.Type{symbol.StrType()}, nil, printlnFn),

			// array methods
			fn("_array_join", []symbol.Type{symbol.StrType()}, retType(symbol.StrType()), arrayJoinFn),
			fn("_array_len", nil, retType(symbol.NumType()), arrayLenFn),

			// num methods
			fn("_num_times", []symbol.Type{symbol.NumType()},
				retType(symbol.ArrayOf(symbol.NumType())), numTimesFn),

			// str methods
			fn("_str_len", nil, retType(symbol.NumType()), strLenFn),
			fn("_str_slice", []symbol.Type{symbol.NumType(), symbol.NumType()},
				retType(symbol.StrType()), strSliceFn),
			fn("_str_split", []symbol.Type{symbol.StrType()},
				retType(symbol.ArrayOf(symbol.StrType())), strSplitFn),
			fn("_str_trim", nil, retType(symbol.StrType()), strTrimFn),
		},
	}
}

// assertFn exits the program when handed false.
func assertFn(args []interp.Value) (interp.Value, *diag.Error) {
	if !argBool(args, 0) {
		fmt.Fprintln(os.Stderr, "Assertion failed !")
		os.Exit(1)
	}
	return nil, nil
}

func eprintFn(args []interp.Value) (interp.Value, *diag.Error) {
	fmt.Fprint(os.Stderr, argStr(args, 0))
	return nil, nil
}

func eprintlnFn(args []interp.Value) (interp.Value, *diag.Error) {
	fmt.Fprintln(os.Stderr, argStr(args, 0))
	return nil, nil
}

func printFn(args []interp.Value) (interp.Value, *diag.Error) {
	fmt.Print(argStr(args, 0))
	return nil, nil
}

func printlnFn(args []interp.Value) (interp.Value, *diag.Error) {
	fmt.Println(argStr(args, 0))
	return nil, nil
}

// arrayJoinFn joins a str array with a separator.
func arrayJoinFn(args []interp.Value) (interp.Value, *diag.Error) {
	array := argArray(args, 0)
	delimiter := argStr(args, 1)

	parts := make([]string, 0, len(array.Contents))
	for _, cell := range array.Contents {
		prim, ok := cell.V.(interp.Primitive)
		if !ok || prim.Literal.Kind != symbol.Str {
			return nil, diag.FromKind("join expects an array of str", diag.Runtime)
		}
		parts = append(parts, prim.Literal.Str)
	}
	return str(strings.Join(parts, delimiter)), nil
}

func arrayLenFn(args []interp.Value) (interp.Value, *diag.Error) {
	return num(int32(len(argArray(args, 0).Contents))), nil
}

// numTimesFn builds an array repeating the receiver.
func numTimesFn(args []interp.Value) (interp.Value, *diag.Error) {
	value := argNum(args, 0)
	times := argNum(args, 1)

	contents := make([]*interp.Cell, 0, times)
	for n := int32(0); n < times; n++ {
		contents = append(contents, interp.NewCell(num(value)))
	}
	return &interp.ArrayValue{ElemType: symbol.NumType(), Contents: contents}, nil
}

// strLenFn counts graphemes, not bytes.
func strLenFn(args []interp.Value) (interp.Value, *diag.Error) {
	return num(int32(uniseg.GraphemeClusterCount(argStr(args, 0)))), nil
}

// strSliceFn slices by grapheme offsets; negative offsets count from the
// end, like the JavaScript String slice.
func strSliceFn(args []interp.Value) (interp.Value, *diag.Error) {
	s := argStr(args, 0)
	start := int(argNum(args, 1))
	end := int(argNum(args, 2))

	graphemes := splitGraphemes(s)
	if start < 0 {
		start += len(graphemes)
	}
	if end < 0 {
		end += len(graphemes)
	}
	if start < 0 {
		start = 0
	}
	if end > len(graphemes) {
		end = len(graphemes)
	}
	if end <= start {
		return str(""), nil
	}
	return str(strings.Join(graphemes[start:end], "")), nil
}

func strSplitFn(args []interp.Value) (interp.Value, *diag.Error) {
	parts := strings.Split(argStr(args, 0), argStr(args, 1))
	contents := make([]*interp.Cell, len(parts))
	for i, part := range parts {
		contents[i] = interp.NewCell(str(part))
	}
	return &interp.ArrayValue{ElemType: symbol.StrType(), Contents: contents}, nil
}

func strTrimFn(args []interp.Value) (interp.Value, *diag.Error) {
	return str(strings.TrimSpace(argStr(args, 0))), nil
}

func splitGraphemes(s string) []string {
	var out []string
	state := -1
	var g string
	for len(s) > 0 {
		g, s, _, state = uniseg.FirstGraphemeClusterInString(s, state)
		out = append(out, g)
	}
	return out
}
