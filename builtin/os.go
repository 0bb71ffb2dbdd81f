package builtin

import (
	"os/exec"
	"runtime"

	"github.com/codeassociates/caiman/diag"
	"github.com/codeassociates/caiman/interp"
	"github.com/codeassociates/caiman/symbol"
)

func osModule() *interp.Module {
	return &interp.Module{
		Functions: []*interp.BuiltinFunction{
			fn("exec", []symbol.Type{symbol.StrType()}, retType(symbol.StrType()), execFn),
		},
	}
}

// execFn runs a command through the platform shell and returns its
// combined output.
func execFn(args []interp.Value) (interp.Value, *diag.Error) {
	command := argStr(args, 0)

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/C", command)
	} else {
		cmd = exec.Command("sh", "-c", command)
	}

	out, err := cmd.CombinedOutput()
	if err != nil && len(out) == 0 {
		return nil, diag.FromKind("cannot execute the command "+command, diag.Runtime)
	}
	return str(string(out)), nil
}
