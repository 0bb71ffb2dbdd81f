package builtin

import (
	"os"

	"github.com/codeassociates/caiman/diag"
	"github.com/codeassociates/caiman/interp"
	"github.com/codeassociates/caiman/symbol"
)

func fsModule() *interp.Module {
	return &interp.Module{
		Functions: []*interp.BuiltinFunction{
			fn("create_dir", []symbol.Type{symbol.StrType()}, nil, createDirFn),
			fn("exists", []symbol.Type{symbol.StrType()}, retType(symbol.BoolType()), existsFn),
			fn("read_file", []symbol.Type{symbol.StrType()}, retType(symbol.StrType()), readFileFn),
			fn("write_file", []symbol.Type{symbol.StrType(), symbol.StrType()}, nil, writeFileFn),
		},
	}
}

func createDirFn(args []interp.Value) (interp.Value, *diag.Error) {
	if err := os.MkdirAll(argStr(args, 0), 0o755); err != nil {
		return nil, diag.FromKind("cannot create the directory "+argStr(args, 0), diag.Runtime)
	}
	return nil, nil
}

func existsFn(args []interp.Value) (interp.Value, *diag.Error) {
	_, err := os.Stat(argStr(args, 0))
	return boolean(err == nil), nil
}

func readFileFn(args []interp.Value) (interp.Value, *diag.Error) {
	contents, err := os.ReadFile(argStr(args, 0))
	if err != nil {
		return nil, diag.FromKind("cannot read the file "+argStr(args, 0), diag.Runtime)
	}
	return str(string(contents)), nil
}

func writeFileFn(args []interp.Value) (interp.Value, *diag.Error) {
	if err := os.WriteFile(argStr(args, 0), []byte(argStr(args, 1)), 0o644); err != nil {
		return nil, diag.FromKind("cannot write the file "+argStr(args, 0), diag.Runtime)
	}
	return nil, nil
}
