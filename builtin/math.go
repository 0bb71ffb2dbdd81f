package builtin

import (
	"math"

	"github.com/codeassociates/caiman/diag"
	"github.com/codeassociates/caiman/interp"
	"github.com/codeassociates/caiman/symbol"
)

func mathModule() *interp.Module {
	return &interp.Module{
		Functions: []*interp.BuiltinFunction{
			fn("sqrt", []symbol.Type{symbol.FnumType()}, retType(symbol.FnumType()), sqrtFn),
			fn("pow", []symbol.Type{symbol.FnumType(), symbol.FnumType()}, retType(symbol.FnumType()), powFn),
		},
		Vars: []interp.BuiltinVar{
			{Name: "pi", Value: fnum(math.Pi)},
			{Name: "e", Value: fnum(math.E)},
		},
	}
}

func sqrtFn(args []interp.Value) (interp.Value, *diag.Error) {
	return fnum(float32(math.Sqrt(float64(argFnum(args, 0))))), nil
}

func powFn(args []interp.Value) (interp.Value, *diag.Error) {
	return fnum(float32(math.Pow(float64(argFnum(args, 0)), float64(argFnum(args, 1))))), nil
}
