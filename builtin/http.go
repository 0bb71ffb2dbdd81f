package builtin

import (
	"io"
	"net/http"

	"github.com/codeassociates/caiman/diag"
	"github.com/codeassociates/caiman/interp"
	"github.com/codeassociates/caiman/symbol"
)

func httpModule() *interp.Module {
	return &interp.Module{
		Functions: []*interp.BuiltinFunction{
			fn("get", []symbol.Type{symbol.StrType()}, retType(symbol.StrType()), getFn),
		},
	}
}

// getFn fetches a url and returns the response body.
func getFn(args []interp.Value) (interp.Value, *diag.Error) {
	url := argStr(args, 0)

	resp, err := http.Get(url)
	if err != nil {
		return nil, diag.FromKind("cannot reach "+url, diag.Runtime)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, diag.FromKind("cannot read the response of "+url, diag.Runtime)
	}
	return str(string(body)), nil
}
