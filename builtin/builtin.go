// Package builtin holds the caiman standard library: a fixed registry of
// modules resolved by name at import time. The global module is brought
// into scope on every program with no namespace prefix; every other
// module prefixes its symbols with the module name.
package builtin

import (
	"github.com/codeassociates/caiman/interp"
	"github.com/codeassociates/caiman/symbol"
)

// GetModule retrieves a builtin module by name.
func GetModule(name string) (*interp.Module, bool) {
	switch name {
	case "fs":
		return fsModule(), true
	case "global":
		return globalModule(), true
	case "http":
		return httpModule(), true
	case "math":
		return mathModule(), true
	case "os":
		return osModule(), true
	}
	return nil, false
}

// fn builds a builtin function entry. Method entries (mangled names)
// leave the receiver out of args.
func fn(name string, args []symbol.Type, ret *symbol.Type, callback interp.Callback) *interp.BuiltinFunction {
	typedArgs := make([]symbol.TypedArg, len(args))
	for i, t := range args {
		typedArgs[i] = symbol.TypedArg{Name: "", Type: t}
	}
	return &interp.BuiltinFunction{
		Decl: &symbol.FunctionDecl{Name: name, Args: typedArgs, Return: ret},
		Fn:   callback,
	}
}

func retType(t symbol.Type) *symbol.Type {
	return &t
}

// argument extractors: the argument types are validated before the
// callback runs, so a mismatch here is a bug in a declaration

func argStr(args []interp.Value, i int) string {
	return args[i].(interp.Primitive).Literal.Str
}

func argNum(args []interp.Value, i int) int32 {
	return args[i].(interp.Primitive).Literal.Num
}

func argFnum(args []interp.Value, i int) float32 {
	return args[i].(interp.Primitive).Literal.Fnum
}

func argBool(args []interp.Value, i int) bool {
	return args[i].(interp.Primitive).Literal.Bool
}

func argArray(args []interp.Value, i int) *interp.ArrayValue {
	return args[i].(*interp.ArrayValue)
}

func str(s string) interp.Value {
	return interp.Primitive{Literal: symbol.StrLiteral(s)}
}

func num(n int32) interp.Value {
	return interp.Primitive{Literal: symbol.NumLiteral(n)}
}

func fnum(f float32) interp.Value {
	return interp.Primitive{Literal: symbol.FnumLiteral(f)}
}

func boolean(b bool) interp.Value {
	return interp.Primitive{Literal: symbol.BoolLiteral(b)}
}
